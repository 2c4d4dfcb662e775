package workflow

import (
	"time"
)

// Instance is the live state machine of one business entity.
type Instance struct {
	ID                string            `json:"id"`
	TenantID          string            `json:"tenantId"`
	EntityType        string            `json:"entityType"`
	EntityID          string            `json:"entityId"`
	DefinitionVersion int               `json:"definitionVersion"`
	CurrentState      string            `json:"currentState"`
	AssignedTo        *string           `json:"assignedTo"`
	CreatedBy         string            `json:"createdBy"`
	Attributes        map[string]string `json:"attributes,omitempty"`
	// Version increases by one on every committed transition and guards
	// against lost updates.
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (i *Instance) clone() *Instance {
	cp := *i
	if i.AssignedTo != nil {
		a := *i.AssignedTo
		cp.AssignedTo = &a
	}
	if i.Attributes != nil {
		cp.Attributes = make(map[string]string, len(i.Attributes))
		for k, v := range i.Attributes {
			cp.Attributes[k] = v
		}
	}
	return &cp
}

// TransitionRecord is one entry of an instance's append-only history.
type TransitionRecord struct {
	ID         string    `json:"id"`
	InstanceID string    `json:"instanceId"`
	Sequence   int64     `json:"sequence"`
	FromState  string    `json:"fromState"`
	ToState    string    `json:"toState"`
	Action     string    `json:"action"`
	ActorID    string    `json:"actorId"`
	Comment    string    `json:"comment,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

type SideEffectKind string

const (
	SideEffectNotify           SideEffectKind = "notify"
	SideEffectGenerateDocument SideEffectKind = "generate_document"
)

// SideEffect is an intent emitted by a committed transition. Delivery happens
// after commit and never affects the transition's outcome.
type SideEffect struct {
	Kind        SideEffectKind `json:"kind"`
	RecipientID string         `json:"recipientId,omitempty"`
	Message     string         `json:"message,omitempty"`
	TenantID    string         `json:"tenantId"`
	EntityType  string         `json:"entityType"`
	EntityID    string         `json:"entityId"`
	InstanceID  string         `json:"instanceId"`
	State       string         `json:"state"`
}

// ActionRequest is a caller's attempt to move an entity's workflow.
type ActionRequest struct {
	EntityType string
	EntityID   string
	Action     string
	Comment    string
	// Attributes are captured on submission and feed specific_actor rules.
	Attributes map[string]string
}

type TransitionResult struct {
	Instance       *Instance
	PreviousState  string
	NewState       string
	NextAssigneeID *string
	SideEffects    []SideEffect
	Record         TransitionRecord
}

// InstanceView is an instance with its full history, oldest first.
type InstanceView struct {
	Instance *Instance
	History  []TransitionRecord
}

// ActionOption is one action available from an instance's current state,
// with the guard's verdict for the asking actor.
type ActionOption struct {
	Action             string `json:"action"`
	ToState            string `json:"toState"`
	RequiredPermission string `json:"requiredPermission"`
	Allowed            bool   `json:"allowed"`
	Reason             string `json:"reason"`
}
