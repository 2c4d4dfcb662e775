package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeNotify           = "workflow.notify"
	EventTypeGenerateDocument = "workflow.generate_document"
)

// EntityRef identifies the workflow entity an event is about.
type EntityRef struct {
	TenantID   string `json:"tenant_id"`
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	InstanceID string `json:"instance_id"`
	State      string `json:"state"`
}

type NotifyEvent struct {
	BaseEvent
	EntityRef
	RecipientID string `json:"recipient_id"`
	Message     string `json:"message"`
}

func NewNotifyEvent(ref EntityRef, recipientID, message string) *NotifyEvent {
	return &NotifyEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeNotify,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"tenant_id":    ref.TenantID,
				"entity_type":  ref.EntityType,
				"entity_id":    ref.EntityID,
				"instance_id":  ref.InstanceID,
				"state":        ref.State,
				"recipient_id": recipientID,
				"message":      message,
			},
		},
		EntityRef:   ref,
		RecipientID: recipientID,
		Message:     message,
	}
}

type GenerateDocumentEvent struct {
	BaseEvent
	EntityRef
}

func NewGenerateDocumentEvent(ref EntityRef) *GenerateDocumentEvent {
	return &GenerateDocumentEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeGenerateDocument,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"tenant_id":   ref.TenantID,
				"entity_type": ref.EntityType,
				"entity_id":   ref.EntityID,
				"instance_id": ref.InstanceID,
				"state":       ref.State,
			},
		},
		EntityRef: ref,
	}
}
