package audit

import (
	"context"
	"time"

	"github.com/frahmantamala/approval-workflow/internal/ids"
)

// Entry is one append-only record of an attempted action, granted or not.
type Entry struct {
	ID           string    `json:"id"`
	TenantID     string    `json:"tenantId"`
	ActorID      string    `json:"actorId"`
	Action       string    `json:"action"`
	ResourceType string    `json:"resourceType"`
	ResourceID   string    `json:"resourceId"`
	BeforeState  string    `json:"beforeState,omitempty"`
	AfterState   string    `json:"afterState,omitempty"`
	Granted      bool      `json:"granted"`
	Reason       string    `json:"reason,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// Writer appends entries. There is no update or delete.
type Writer interface {
	Write(ctx context.Context, entry *Entry) error
}

type Filter struct {
	TenantID     string
	ResourceType string
	ResourceID   string
	ActorID      string
	Granted      *bool
	Limit        int
	Offset       int
}

type Reader interface {
	List(ctx context.Context, filter Filter) ([]Entry, error)
}

const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// NewEntry stamps an entry with a sortable id and the given time.
func NewEntry(at time.Time, tenantID, actorID, action, resourceType, resourceID string) *Entry {
	return &Entry{
		ID:           ids.NewAt(at),
		TenantID:     tenantID,
		ActorID:      actorID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Timestamp:    at,
	}
}

func (e *Entry) Grant(before, after string) *Entry {
	e.Granted = true
	e.BeforeState = before
	e.AfterState = after
	return e
}

func (e *Entry) Deny(before, reason string) *Entry {
	e.Granted = false
	e.BeforeState = before
	e.Reason = reason
	return e
}

func (f *Filter) Normalize() {
	if f.Limit <= 0 {
		f.Limit = DefaultLimit
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
}
