package workitem

import (
	"context"
	"time"
)

// Item is the inbox projection of one workflow instance.
type Item struct {
	WorkflowInstanceID string    `json:"workflowInstanceId"`
	TenantID           string    `json:"tenantId"`
	EntityType         string    `json:"entityType"`
	EntityID           string    `json:"entityId"`
	AssigneeID         *string   `json:"assigneeId"`
	CurrentState       string    `json:"currentState"`
	CreatedBy          string    `json:"createdBy"`
	Open               bool      `json:"open"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

type Query struct {
	TenantID   string
	AssigneeID string
	EntityType string
	State      string
	// IncludeClosed also returns items whose workflow reached a terminal state.
	IncludeClosed bool
	Limit         int
	Offset        int
}

const (
	DefaultLimit = 50
	MaxLimit     = 200
)

func (q *Query) Normalize() {
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
}

// Writer keeps exactly one item per instance.
type Writer interface {
	Upsert(ctx context.Context, item Item) error
}

type Store interface {
	Writer
	ListAssigned(ctx context.Context, q Query) ([]Item, error)
	ListUnassigned(ctx context.Context, q Query) ([]Item, error)
	Get(ctx context.Context, instanceID string) (*Item, error)
}

// Source yields the current projection of every workflow instance.
type Source interface {
	EachItem(ctx context.Context, fn func(Item) error) error
}
