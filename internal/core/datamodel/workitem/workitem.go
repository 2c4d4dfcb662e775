package workitem

import "time"

type WorkItem struct {
	WorkflowInstanceID string    `gorm:"primaryKey;column:workflow_instance_id"`
	TenantID           string    `gorm:"column:tenant_id;not null;index:idx_work_item_assignee"`
	EntityType         string    `gorm:"column:entity_type;not null"`
	EntityID           string    `gorm:"column:entity_id;not null"`
	AssigneeID         *string   `gorm:"column:assignee_id;index:idx_work_item_assignee"`
	CurrentState       string    `gorm:"column:current_state;not null"`
	CreatedBy          string    `gorm:"column:created_by;not null"`
	Open               bool      `gorm:"column:open;not null"`
	UpdatedAt          time.Time `gorm:"column:updated_at;not null"`
}

func (WorkItem) TableName() string { return "work_items" }
