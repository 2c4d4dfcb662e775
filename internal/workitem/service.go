package workitem

import (
	"context"
	"log/slog"

	"github.com/frahmantamala/approval-workflow/internal"
)

type Service struct {
	store  Store
	logger *slog.Logger
}

func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// Inbox lists the items assigned to the calling actor in their tenant.
func (s *Service) Inbox(ctx context.Context, actor internal.Actor, q Query) ([]Item, error) {
	if actor.TenantID == "" {
		return nil, internal.ErrNoTenantContext
	}
	q.TenantID = actor.TenantID
	q.AssigneeID = actor.ID
	q.Normalize()

	items, err := s.store.ListAssigned(ctx, q)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list inbox", "error", err, "actor_id", actor.ID, "tenant_id", actor.TenantID)
		return nil, internal.NewInternalError("failed to list inbox", err)
	}
	return items, nil
}

// Unassigned lists open items nobody was resolved for, for triage.
func (s *Service) Unassigned(ctx context.Context, actor internal.Actor, q Query) ([]Item, error) {
	if actor.TenantID == "" {
		return nil, internal.ErrNoTenantContext
	}
	q.TenantID = actor.TenantID
	q.AssigneeID = ""
	q.IncludeClosed = false
	q.Normalize()

	items, err := s.store.ListUnassigned(ctx, q)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list unassigned items", "error", err, "tenant_id", actor.TenantID)
		return nil, internal.NewInternalError("failed to list unassigned items", err)
	}
	return items, nil
}

// Rebuild re-projects every instance from src. Items are upserted, so a
// partial run can simply be repeated.
func (s *Service) Rebuild(ctx context.Context, src Source) (int, error) {
	count := 0
	err := src.EachItem(ctx, func(item Item) error {
		if err := s.store.Upsert(ctx, item); err != nil {
			return err
		}
		count++
		return nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "work item rebuild failed", "error", err, "rebuilt", count)
		return count, err
	}
	s.logger.InfoContext(ctx, "work items rebuilt", "count", count)
	return count, nil
}
