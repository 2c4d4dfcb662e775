package workflow

import "github.com/frahmantamala/approval-workflow/internal/rbac"

const (
	EntityContract     = "contract"
	EntityLeaveRequest = "leave_request"
	EntityLetter       = "letter"

	StateDraft = "draft"
)

func perm(resource, action string, scope rbac.Scope) rbac.Permission {
	return rbac.Permission{Resource: resource, Action: action, Scope: scope}
}

// returnsFrom builds reject and request_changes transitions from every review
// state back to draft, handing the instance back to its creator.
func returnsFrom(resource string, states ...string) []Transition {
	var out []Transition
	for _, s := range states {
		out = append(out,
			Transition{From: s, Action: ActionReject, To: StateDraft,
				Required: perm(resource, ActionReject, rbac.ScopeOrganization),
				Assignee: SpecificActor(ExprCreator)},
			Transition{From: s, Action: ActionRequestChanges, To: StateDraft,
				Required: perm(resource, ActionRequestChanges, rbac.ScopeOrganization),
				Assignee: SpecificActor(ExprCreator)},
		)
	}
	return out
}

// ContractDefinition: legal, HR and final approval, then signature by the
// employer before the contract becomes active.
func ContractDefinition() *Definition {
	const res = rbac.ResourceContracts
	transitions := []Transition{
		{From: StateDraft, Action: ActionSubmit, To: "legal_review",
			Required: perm(res, ActionSubmit, rbac.ScopeOwn),
			Assignee: RoleInTenant(rbac.RoleAdmin)},
		{From: "legal_review", Action: ActionApprove, To: "hr_review",
			Required: perm(res, ActionApprove, rbac.ScopeOrganization),
			Assignee: RoleInTenant(rbac.RoleManager)},
		{From: "hr_review", Action: ActionApprove, To: "final_approval",
			Required: perm(res, ActionApprove, rbac.ScopeOrganization),
			Assignee: RoleInTenant(rbac.RoleAdmin)},
		{From: "final_approval", Action: ActionApprove, To: "signature",
			Required: perm(res, ActionApprove, rbac.ScopeAll),
			Assignee: SpecificActor("entity.signatory_id").Or(RoleInTenant(rbac.RoleEmployer))},
		{From: "signature", Action: ActionApprove, To: "active",
			Required: perm(res, "sign", rbac.ScopeOrganization),
			Assignee: NoAssignee()},
	}
	transitions = append(transitions, returnsFrom(res, "legal_review", "hr_review", "final_approval", "signature")...)

	return &Definition{
		EntityType: EntityContract,
		Resource:   res,
		Version:    1,
		Initial:    StateDraft,
		States: []State{
			{Name: StateDraft},
			{Name: "legal_review"},
			{Name: "hr_review"},
			{Name: "final_approval"},
			{Name: "signature"},
			{Name: "active", Terminal: true},
		},
		Transitions: transitions,
		DocumentOn:  "active",
	}
}

// LeaveRequestDefinition routes to the requester's line manager, then HR.
func LeaveRequestDefinition() *Definition {
	const res = rbac.ResourceLeaveRequests
	transitions := []Transition{
		{From: StateDraft, Action: ActionSubmit, To: "manager_review",
			Required: perm(res, ActionSubmit, rbac.ScopeOwn),
			Assignee: SpecificActor("entity.manager_id").Or(RoleInTenant(rbac.RoleManager))},
		{From: "manager_review", Action: ActionApprove, To: "hr_review",
			Required: perm(res, ActionApprove, rbac.ScopeOrganization),
			Assignee: RoleInTenant(rbac.RoleAdmin)},
		{From: "hr_review", Action: ActionApprove, To: "completed",
			Required: perm(res, ActionApprove, rbac.ScopeOrganization),
			Assignee: NoAssignee()},
	}
	transitions = append(transitions, returnsFrom(res, "manager_review", "hr_review")...)

	return &Definition{
		EntityType: EntityLeaveRequest,
		Resource:   res,
		Version:    1,
		Initial:    StateDraft,
		States: []State{
			{Name: StateDraft},
			{Name: "manager_review"},
			{Name: "hr_review"},
			{Name: "completed", Terminal: true},
		},
		Transitions: transitions,
	}
}

// LetterDefinition covers official letters, which are rendered once approved.
func LetterDefinition() *Definition {
	const res = rbac.ResourceLetters
	transitions := []Transition{
		{From: StateDraft, Action: ActionSubmit, To: "hr_review",
			Required: perm(res, ActionSubmit, rbac.ScopeOwn),
			Assignee: RoleInTenant(rbac.RoleManager)},
		{From: "hr_review", Action: ActionApprove, To: "final_approval",
			Required: perm(res, ActionApprove, rbac.ScopeOrganization),
			Assignee: RoleInTenant(rbac.RoleAdmin)},
		{From: "final_approval", Action: ActionApprove, To: "completed",
			Required: perm(res, ActionApprove, rbac.ScopeAll),
			Assignee: NoAssignee()},
	}
	transitions = append(transitions, returnsFrom(res, "hr_review", "final_approval")...)

	return &Definition{
		EntityType: EntityLetter,
		Resource:   res,
		Version:    1,
		Initial:    StateDraft,
		States: []State{
			{Name: StateDraft},
			{Name: "hr_review"},
			{Name: "final_approval"},
			{Name: "completed", Terminal: true},
		},
		Transitions: transitions,
		DocumentOn:  "completed",
	}
}
