package postgres

import (
	"context"

	"github.com/frahmantamala/approval-workflow/internal/audit"
	auditDatamodel "github.com/frahmantamala/approval-workflow/internal/core/datamodel/audit"
	"gorm.io/gorm"
)

// Repository stores audit entries. Bind it to a transaction handle to make
// the write part of that transaction.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

var (
	_ audit.Writer = (*Repository)(nil)
	_ audit.Reader = (*Repository)(nil)
)

func toRow(e *audit.Entry) *auditDatamodel.Entry {
	return &auditDatamodel.Entry{
		ID:           e.ID,
		TenantID:     e.TenantID,
		ActorID:      e.ActorID,
		Action:       e.Action,
		ResourceType: e.ResourceType,
		ResourceID:   e.ResourceID,
		BeforeState:  e.BeforeState,
		AfterState:   e.AfterState,
		Granted:      e.Granted,
		Reason:       e.Reason,
		CreatedAt:    e.Timestamp,
	}
}

func fromRow(row auditDatamodel.Entry) audit.Entry {
	return audit.Entry{
		ID:           row.ID,
		TenantID:     row.TenantID,
		ActorID:      row.ActorID,
		Action:       row.Action,
		ResourceType: row.ResourceType,
		ResourceID:   row.ResourceID,
		BeforeState:  row.BeforeState,
		AfterState:   row.AfterState,
		Granted:      row.Granted,
		Reason:       row.Reason,
		Timestamp:    row.CreatedAt,
	}
}

func (r *Repository) Write(ctx context.Context, entry *audit.Entry) error {
	return r.db.WithContext(ctx).Create(toRow(entry)).Error
}

func (r *Repository) List(ctx context.Context, filter audit.Filter) ([]audit.Entry, error) {
	q := r.db.WithContext(ctx).Model(&auditDatamodel.Entry{}).Where("tenant_id = ?", filter.TenantID)
	if filter.ResourceType != "" {
		q = q.Where("resource_type = ?", filter.ResourceType)
	}
	if filter.ResourceID != "" {
		q = q.Where("resource_id = ?", filter.ResourceID)
	}
	if filter.ActorID != "" {
		q = q.Where("actor_id = ?", filter.ActorID)
	}
	if filter.Granted != nil {
		q = q.Where("granted = ?", *filter.Granted)
	}

	var rows []auditDatamodel.Entry
	err := q.Order("created_at DESC").Order("id DESC").
		Limit(filter.Limit).Offset(filter.Offset).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]audit.Entry, 0, len(rows))
	for _, row := range rows {
		out = append(out, fromRow(row))
	}
	return out, nil
}
