package rbac

import "time"

type Permission struct {
	ID       string `gorm:"primaryKey;column:id" db:"id"`
	Resource string `gorm:"column:resource;not null" db:"resource"`
	Action   string `gorm:"column:action;not null" db:"action"`
	Scope    string `gorm:"column:scope;not null" db:"scope"`
}

func (Permission) TableName() string { return "permissions" }

type Role struct {
	ID          string `gorm:"primaryKey;column:id" db:"id"`
	Rank        int    `gorm:"column:rank;not null" db:"rank"`
	Description string `gorm:"column:description" db:"description"`
}

func (Role) TableName() string { return "roles" }

type RolePermission struct {
	RoleID       string `gorm:"primaryKey;column:role_id" db:"role_id"`
	PermissionID string `gorm:"primaryKey;column:permission_id" db:"permission_id"`
}

func (RolePermission) TableName() string { return "role_permissions" }

type RoleAssignment struct {
	ID         int64     `gorm:"primaryKey" db:"id"`
	ActorID    string    `gorm:"column:actor_id;not null;index:idx_assignment_actor_tenant" db:"actor_id"`
	RoleID     string    `gorm:"column:role_id;not null" db:"role_id"`
	TenantID   string    `gorm:"column:tenant_id;not null;index:idx_assignment_actor_tenant" db:"tenant_id"`
	Active     bool      `gorm:"column:active;not null" db:"active"`
	AssignedAt time.Time `gorm:"column:assigned_at;not null" db:"assigned_at"`
}

func (RoleAssignment) TableName() string { return "role_assignments" }
