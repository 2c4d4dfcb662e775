package postgres

import (
	"context"
	"errors"

	workitemDatamodel "github.com/frahmantamala/approval-workflow/internal/core/datamodel/workitem"
	"github.com/frahmantamala/approval-workflow/internal/workitem"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

var _ workitem.Store = (*Repository)(nil)

func toRow(item workitem.Item) *workitemDatamodel.WorkItem {
	return &workitemDatamodel.WorkItem{
		WorkflowInstanceID: item.WorkflowInstanceID,
		TenantID:           item.TenantID,
		EntityType:         item.EntityType,
		EntityID:           item.EntityID,
		AssigneeID:         item.AssigneeID,
		CurrentState:       item.CurrentState,
		CreatedBy:          item.CreatedBy,
		Open:               item.Open,
		UpdatedAt:          item.UpdatedAt,
	}
}

func fromRow(row workitemDatamodel.WorkItem) workitem.Item {
	return workitem.Item{
		WorkflowInstanceID: row.WorkflowInstanceID,
		TenantID:           row.TenantID,
		EntityType:         row.EntityType,
		EntityID:           row.EntityID,
		AssigneeID:         row.AssigneeID,
		CurrentState:       row.CurrentState,
		CreatedBy:          row.CreatedBy,
		Open:               row.Open,
		UpdatedAt:          row.UpdatedAt,
	}
}

func (r *Repository) Upsert(ctx context.Context, item workitem.Item) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "workflow_instance_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"assignee_id", "current_state", "open", "updated_at"}),
	}).Create(toRow(item)).Error
}

func (r *Repository) Get(ctx context.Context, instanceID string) (*workitem.Item, error) {
	var row workitemDatamodel.WorkItem
	err := r.db.WithContext(ctx).Where("workflow_instance_id = ?", instanceID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	item := fromRow(row)
	return &item, nil
}

func (r *Repository) scoped(ctx context.Context, q workitem.Query) *gorm.DB {
	tx := r.db.WithContext(ctx).Model(&workitemDatamodel.WorkItem{}).Where("tenant_id = ?", q.TenantID)
	if q.EntityType != "" {
		tx = tx.Where("entity_type = ?", q.EntityType)
	}
	if q.State != "" {
		tx = tx.Where("current_state = ?", q.State)
	}
	if !q.IncludeClosed {
		tx = tx.Where("open = ?", true)
	}
	return tx
}

func (r *Repository) list(tx *gorm.DB, q workitem.Query) ([]workitem.Item, error) {
	var rows []workitemDatamodel.WorkItem
	err := tx.Order("updated_at DESC").Order("workflow_instance_id ASC").
		Limit(q.Limit).Offset(q.Offset).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]workitem.Item, 0, len(rows))
	for _, row := range rows {
		out = append(out, fromRow(row))
	}
	return out, nil
}

func (r *Repository) ListAssigned(ctx context.Context, q workitem.Query) ([]workitem.Item, error) {
	return r.list(r.scoped(ctx, q).Where("assignee_id = ?", q.AssigneeID), q)
}

func (r *Repository) ListUnassigned(ctx context.Context, q workitem.Query) ([]workitem.Item, error) {
	return r.list(r.scoped(ctx, q).Where("assignee_id IS NULL"), q)
}
