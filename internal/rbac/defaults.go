package rbac

// Resources governed by the built-in matrix.
const (
	ResourceContracts     = "contracts"
	ResourceLeaveRequests = "leave_requests"
	ResourceLetters       = "letters"
	ResourceUsers         = "users"
	ResourceRoles         = "roles"
	ResourceAudit         = "audit"
	ResourceWorkflows     = "workflows"
)

func grant(resource string, scope Scope, actions ...string) []string {
	out := make([]string, 0, len(actions))
	for _, action := range actions {
		out = append(out, Permission{Resource: resource, Action: action, Scope: scope}.String())
	}
	return out
}

func concat(groups ...[]string) []string {
	var out []string
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

var reviewActions = []string{"read", "approve", "reject", "request_changes"}

// DefaultRoles is the role hierarchy seeded into new deployments, lowest rank first.
func DefaultRoles() []Role {
	userPerms := concat(
		grant(ResourceContracts, ScopeOwn, "read"),
		grant(ResourceLeaveRequests, ScopeOwn, "read"),
		grant(ResourceLetters, ScopeOwn, "read"),
	)

	employeePerms := concat(
		grant(ResourceContracts, ScopeOwn, "read"),
		grant(ResourceLeaveRequests, ScopeOwn, "create", "read", "update", "submit"),
		grant(ResourceLetters, ScopeOwn, "create", "read", "submit"),
	)

	promoterPerms := concat(
		grant(ResourceContracts, ScopeOwn, "create", "read", "update", "submit"),
		grant(ResourceLeaveRequests, ScopeOwn, "create", "read", "update", "submit"),
		grant(ResourceLetters, ScopeOwn, "create", "read", "submit"),
	)

	employerPerms := concat(
		grant(ResourceContracts, ScopeOrganization, "create", "read", "update", "submit", "sign"),
		grant(ResourceLeaveRequests, ScopeOrganization, "read"),
		grant(ResourceLeaveRequests, ScopeOwn, "create", "submit"),
		grant(ResourceLetters, ScopeOrganization, "create", "read", "submit"),
	)

	// Managers review contracts only when assigned; their contract approvals stay at own scope.
	managerPerms := concat(
		grant(ResourceContracts, ScopeOrganization, "read"),
		grant(ResourceContracts, ScopeOwn, "approve", "reject", "request_changes"),
		grant(ResourceLeaveRequests, ScopeOrganization, reviewActions...),
		grant(ResourceLeaveRequests, ScopeOwn, "create", "submit"),
		grant(ResourceLetters, ScopeOrganization, reviewActions...),
		grant(ResourceLetters, ScopeOwn, "create", "submit"),
		grant(ResourceWorkflows, ScopeOrganization, "triage"),
		grant(ResourceAudit, ScopeOrganization, "read"),
	)

	adminPerms := concat(
		grant(ResourceContracts, ScopeAll, "create", "read", "update", "submit", "approve", "reject", "request_changes", "sign", "delete"),
		grant(ResourceLeaveRequests, ScopeAll, "create", "read", "update", "submit", "approve", "reject", "request_changes"),
		grant(ResourceLetters, ScopeAll, "create", "read", "submit", "approve", "reject", "request_changes"),
		grant(ResourceUsers, ScopeAll, "create", "read", "update"),
		grant(ResourceRoles, ScopeAll, "read"),
		grant(ResourceWorkflows, ScopeAll, "triage"),
		grant(ResourceAudit, ScopeAll, "read"),
	)

	superAdminPerms := concat(
		adminPerms,
		grant(ResourceLeaveRequests, ScopeAll, "delete"),
		grant(ResourceLetters, ScopeAll, "delete"),
		grant(ResourceUsers, ScopeAll, "delete"),
		grant(ResourceRoles, ScopeAll, "assign", "manage"),
	)

	return []Role{
		{ID: RoleUser, Rank: 10, Description: "Authenticated user without workplace duties", Permissions: userPerms},
		{ID: RoleEmployee, Rank: 20, Description: "Employee submitting own requests", Permissions: employeePerms},
		{ID: RolePromoter, Rank: 30, Description: "Promoter preparing own contracts", Permissions: promoterPerms},
		{ID: RoleEmployer, Rank: 40, Description: "Employer representative and contract signatory", Permissions: employerPerms},
		{ID: RoleManager, Rank: 50, Description: "Line manager and HR reviewer", Permissions: managerPerms},
		{ID: RoleAdmin, Rank: 60, Description: "Tenant administrator and legal reviewer", Permissions: adminPerms},
		{ID: RoleSuperAdmin, Rank: 70, Description: "Platform administrator", Permissions: superAdminPerms},
	}
}
