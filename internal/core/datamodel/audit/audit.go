package audit

import "time"

type Entry struct {
	ID           string    `gorm:"primaryKey;column:id"`
	TenantID     string    `gorm:"column:tenant_id;index:idx_audit_resource"`
	ActorID      string    `gorm:"column:actor_id;not null"`
	Action       string    `gorm:"column:action;not null"`
	ResourceType string    `gorm:"column:resource_type;not null;index:idx_audit_resource"`
	ResourceID   string    `gorm:"column:resource_id;not null;index:idx_audit_resource"`
	BeforeState  string    `gorm:"column:before_state"`
	AfterState   string    `gorm:"column:after_state"`
	Granted      bool      `gorm:"column:granted;not null"`
	Reason       string    `gorm:"column:reason"`
	CreatedAt    time.Time `gorm:"column:created_at;not null"`
}

func (Entry) TableName() string { return "audit_log" }
