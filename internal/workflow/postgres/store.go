package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/frahmantamala/approval-workflow/internal"
	"github.com/frahmantamala/approval-workflow/internal/audit"
	auditPostgres "github.com/frahmantamala/approval-workflow/internal/audit/postgres"
	workflowDatamodel "github.com/frahmantamala/approval-workflow/internal/core/datamodel/workflow"
	"github.com/frahmantamala/approval-workflow/internal/workflow"
	"github.com/frahmantamala/approval-workflow/internal/workitem"
	workitemPostgres "github.com/frahmantamala/approval-workflow/internal/workitem/postgres"
)

// InstanceRepository is the gorm-backed instance store.
type InstanceRepository struct {
	db *gorm.DB
}

func NewInstanceRepository(db *gorm.DB) *InstanceRepository {
	return &InstanceRepository{db: db}
}

var _ workflow.InstanceRepository = (*InstanceRepository)(nil)

func toRow(inst *workflow.Instance) (*workflowDatamodel.Instance, error) {
	var attrs string
	if len(inst.Attributes) > 0 {
		raw, err := json.Marshal(inst.Attributes)
		if err != nil {
			return nil, fmt.Errorf("encode attributes: %w", err)
		}
		attrs = string(raw)
	}
	return &workflowDatamodel.Instance{
		ID:                inst.ID,
		TenantID:          inst.TenantID,
		EntityType:        inst.EntityType,
		EntityID:          inst.EntityID,
		DefinitionVersion: inst.DefinitionVersion,
		CurrentState:      inst.CurrentState,
		AssignedTo:        inst.AssignedTo,
		CreatedBy:         inst.CreatedBy,
		Attributes:        attrs,
		Version:           inst.Version,
		CreatedAt:         inst.CreatedAt,
		UpdatedAt:         inst.UpdatedAt,
	}, nil
}

func fromRow(row workflowDatamodel.Instance) (*workflow.Instance, error) {
	inst := &workflow.Instance{
		ID:                row.ID,
		TenantID:          row.TenantID,
		EntityType:        row.EntityType,
		EntityID:          row.EntityID,
		DefinitionVersion: row.DefinitionVersion,
		CurrentState:      row.CurrentState,
		AssignedTo:        row.AssignedTo,
		CreatedBy:         row.CreatedBy,
		Version:           row.Version,
		CreatedAt:         row.CreatedAt,
		UpdatedAt:         row.UpdatedAt,
	}
	if row.Attributes != "" {
		if err := json.Unmarshal([]byte(row.Attributes), &inst.Attributes); err != nil {
			return nil, fmt.Errorf("decode attributes of instance %s: %w", row.ID, err)
		}
	}
	return inst, nil
}

func (r *InstanceRepository) Get(ctx context.Context, tenantID, entityType, entityID string) (*workflow.Instance, error) {
	var row workflowDatamodel.Instance
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND entity_type = ? AND entity_id = ?", tenantID, entityType, entityID).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrInstanceNotFound
		}
		return nil, err
	}
	return fromRow(row)
}

func (r *InstanceRepository) Create(ctx context.Context, inst *workflow.Instance) error {
	row, err := toRow(inst)
	if err != nil {
		return err
	}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(row)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return internal.ErrConcurrentModification
	}
	return nil
}

func (r *InstanceRepository) CompareAndSwap(ctx context.Context, inst *workflow.Instance, expectedState string, expectedVersion int64) error {
	row, err := toRow(inst)
	if err != nil {
		return err
	}
	res := r.db.WithContext(ctx).Model(&workflowDatamodel.Instance{}).
		Where("id = ? AND current_state = ? AND version = ?", inst.ID, expectedState, expectedVersion).
		Updates(map[string]interface{}{
			"current_state": row.CurrentState,
			"assigned_to":   row.AssignedTo,
			"attributes":    row.Attributes,
			"version":       row.Version,
			"updated_at":    row.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return internal.ErrConcurrentModification
	}
	return nil
}

func (r *InstanceRepository) AppendTransition(ctx context.Context, rec *workflow.TransitionRecord) error {
	return r.db.WithContext(ctx).Create(&workflowDatamodel.Transition{
		ID:         rec.ID,
		InstanceID: rec.InstanceID,
		Sequence:   rec.Sequence,
		FromState:  rec.FromState,
		ToState:    rec.ToState,
		Action:     rec.Action,
		ActorID:    rec.ActorID,
		Comment:    rec.Comment,
		CreatedAt:  rec.Timestamp,
	}).Error
}

func (r *InstanceRepository) History(ctx context.Context, instanceID string) ([]workflow.TransitionRecord, error) {
	var rows []workflowDatamodel.Transition
	err := r.db.WithContext(ctx).Where("instance_id = ?", instanceID).Order("sequence ASC").Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]workflow.TransitionRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, workflow.TransitionRecord{
			ID:         row.ID,
			InstanceID: row.InstanceID,
			Sequence:   row.Sequence,
			FromState:  row.FromState,
			ToState:    row.ToState,
			Action:     row.Action,
			ActorID:    row.ActorID,
			Comment:    row.Comment,
			Timestamp:  row.CreatedAt,
		})
	}
	return out, nil
}

type txStores struct {
	instances *InstanceRepository
	audit     *auditPostgres.Repository
	workItems *workitemPostgres.Repository
}

func (t txStores) Instances() workflow.InstanceRepository { return t.instances }
func (t txStores) Audit() audit.Writer                    { return t.audit }
func (t txStores) WorkItems() workitem.Writer             { return t.workItems }

// UnitOfWork binds every store to one gorm transaction.
type UnitOfWork struct {
	db *gorm.DB
}

func NewUnitOfWork(db *gorm.DB) *UnitOfWork {
	return &UnitOfWork{db: db}
}

var _ workflow.UnitOfWork = (*UnitOfWork)(nil)

func (u *UnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, tx workflow.Tx) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, txStores{
			instances: NewInstanceRepository(tx),
			audit:     auditPostgres.NewRepository(tx),
			workItems: workitemPostgres.NewRepository(tx),
		})
	})
}

func (u *UnitOfWork) Instances() workflow.InstanceRepository {
	return NewInstanceRepository(u.db)
}

const rebuildBatchSize = 500

// WorkItemSource projects stored instances into work items for a rebuild.
type WorkItemSource struct {
	db       *gorm.DB
	registry *workflow.Registry
}

func NewWorkItemSource(db *gorm.DB, registry *workflow.Registry) *WorkItemSource {
	return &WorkItemSource{db: db, registry: registry}
}

var _ workitem.Source = (*WorkItemSource)(nil)

func (s *WorkItemSource) EachItem(ctx context.Context, fn func(workitem.Item) error) error {
	var rows []workflowDatamodel.Instance
	return s.db.WithContext(ctx).Model(&workflowDatamodel.Instance{}).
		FindInBatches(&rows, rebuildBatchSize, func(tx *gorm.DB, batch int) error {
			for _, row := range rows {
				inst, err := fromRow(row)
				if err != nil {
					return err
				}
				def, err := s.registry.Get(inst.EntityType)
				if err != nil {
					return fmt.Errorf("instance %s: %w", inst.ID, err)
				}
				if _, ok := def.State(inst.CurrentState); !ok {
					return fmt.Errorf("instance %s: state %q is not declared by %s", inst.ID, inst.CurrentState, def.EntityType)
				}
				if err := fn(workflow.ProjectWorkItem(def, inst)); err != nil {
					return err
				}
			}
			return nil
		}).Error
}
