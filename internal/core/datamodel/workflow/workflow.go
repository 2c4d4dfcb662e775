package workflow

import "time"

type Instance struct {
	ID                string    `gorm:"primaryKey;column:id"`
	TenantID          string    `gorm:"column:tenant_id;not null;uniqueIndex:idx_instance_entity"`
	EntityType        string    `gorm:"column:entity_type;not null;uniqueIndex:idx_instance_entity"`
	EntityID          string    `gorm:"column:entity_id;not null;uniqueIndex:idx_instance_entity"`
	DefinitionVersion int       `gorm:"column:definition_version;not null"`
	CurrentState      string    `gorm:"column:current_state;not null"`
	AssignedTo        *string   `gorm:"column:assigned_to"`
	CreatedBy         string    `gorm:"column:created_by;not null"`
	Attributes        string    `gorm:"column:attributes"`
	Version           int64     `gorm:"column:version;not null"`
	CreatedAt         time.Time `gorm:"column:created_at"`
	UpdatedAt         time.Time `gorm:"column:updated_at"`
}

func (Instance) TableName() string { return "workflow_instances" }

type Transition struct {
	ID         string    `gorm:"primaryKey;column:id"`
	InstanceID string    `gorm:"column:instance_id;not null;uniqueIndex:idx_transition_sequence"`
	Sequence   int64     `gorm:"column:sequence;not null;uniqueIndex:idx_transition_sequence"`
	FromState  string    `gorm:"column:from_state;not null"`
	ToState    string    `gorm:"column:to_state;not null"`
	Action     string    `gorm:"column:action;not null"`
	ActorID    string    `gorm:"column:actor_id;not null"`
	Comment    string    `gorm:"column:comment"`
	CreatedAt  time.Time `gorm:"column:created_at"`
}

func (Transition) TableName() string { return "workflow_transitions" }
