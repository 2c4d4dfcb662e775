package workflow

import (
	"context"

	"github.com/frahmantamala/approval-workflow/internal/audit"
	"github.com/frahmantamala/approval-workflow/internal/workitem"
)

// InstanceRepository persists instances and their history.
type InstanceRepository interface {
	// Get returns internal.ErrInstanceNotFound when no instance exists.
	Get(ctx context.Context, tenantID, entityType, entityID string) (*Instance, error)
	// Create fails with internal.ErrConcurrentModification if the entity
	// already has an instance.
	Create(ctx context.Context, inst *Instance) error
	// CompareAndSwap writes inst only if the stored row still has
	// expectedState and expectedVersion, else internal.ErrConcurrentModification.
	CompareAndSwap(ctx context.Context, inst *Instance, expectedState string, expectedVersion int64) error
	AppendTransition(ctx context.Context, rec *TransitionRecord) error
	History(ctx context.Context, instanceID string) ([]TransitionRecord, error)
}

// Tx exposes the stores that must change together with a transition.
type Tx interface {
	Instances() InstanceRepository
	Audit() audit.Writer
	WorkItems() workitem.Writer
}

// UnitOfWork runs fn in one transaction. Any error from fn rolls back every write.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	Instances() InstanceRepository
}
