package audit

import (
	"context"
	"log/slog"

	"github.com/frahmantamala/approval-workflow/internal"
)

type Service struct {
	reader Reader
	logger *slog.Logger
}

func NewService(reader Reader, logger *slog.Logger) *Service {
	return &Service{reader: reader, logger: logger}
}

// Query lists entries in the actor's tenant, newest first. The tenant always
// comes from the actor, never from the filter.
func (s *Service) Query(ctx context.Context, actor internal.Actor, filter Filter) ([]Entry, error) {
	if actor.TenantID == "" {
		return nil, internal.ErrNoTenantContext
	}
	filter.TenantID = actor.TenantID
	filter.Normalize()

	entries, err := s.reader.List(ctx, filter)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to query audit log", "error", err, "tenant_id", actor.TenantID)
		return nil, internal.NewInternalError("failed to query audit log", err)
	}
	return entries, nil
}
