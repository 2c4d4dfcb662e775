package rbac

import "time"

const (
	RoleUser       = "user"
	RoleEmployee   = "employee"
	RolePromoter   = "promoter"
	RoleEmployer   = "employer"
	RoleManager    = "manager"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super_admin"
)

// Role is a named bundle of permissions with a rank in the hierarchy.
type Role struct {
	ID          string
	Rank        int
	Description string
	Permissions []string
}

// Assignment binds an actor to a role inside one tenant.
type Assignment struct {
	ActorID    string
	RoleID     string
	TenantID   string
	Active     bool
	AssignedAt time.Time
}

type RankComparison int

const (
	RankLower  RankComparison = -1
	RankEqual  RankComparison = 0
	RankHigher RankComparison = 1
)

func (c RankComparison) String() string {
	switch c {
	case RankLower:
		return "lower"
	case RankHigher:
		return "higher"
	default:
		return "equal"
	}
}
