package rbac

import (
	"context"
	"log/slog"

	"github.com/frahmantamala/approval-workflow/internal"
	"github.com/frahmantamala/approval-workflow/internal/obs"
)

const (
	ReasonPermissionGranted      = "permission_granted"
	ReasonBroaderScope           = "broader_scope"
	ReasonAssignedReviewer       = "assigned_reviewer"
	ReasonInsufficientPermission = "insufficient_permission"
)

// ScopeContext describes the resource instance an action targets. The zero
// value means no instance-specific context.
type ScopeContext struct {
	OwnerID    string
	AssignedTo *string
}

type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason"`
	// Matched is the permission that granted access, empty when the grant came
	// from the reviewer override or access was denied.
	Matched string `json:"matched,omitempty"`
}

// PermissionResolver is the subset of the resolver the guard needs.
type PermissionResolver interface {
	ResolveEffectivePermissions(ctx context.Context, actorID, tenantID string) (PermissionSet, error)
}

// Guard decides whether an actor may perform a capability on an instance.
type Guard struct {
	resolver PermissionResolver
	logger   *slog.Logger
}

func NewGuard(resolver PermissionResolver, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{resolver: resolver, logger: logger}
}

// Authorize runs the decision ladder: exact permission, then any broader scope
// of it, then the assigned-reviewer override. An own-scoped requirement on an
// instance owned by someone else is raised to organization scope first.
func (g *Guard) Authorize(ctx context.Context, actor internal.Actor, required Permission, sc ScopeContext) (Decision, error) {
	if actor.ID == "" {
		return Decision{}, internal.ErrUnauthenticated
	}
	if actor.TenantID == "" {
		return Decision{}, internal.ErrNoTenantContext
	}

	effective, err := g.resolver.ResolveEffectivePermissions(ctx, actor.ID, actor.TenantID)
	if err != nil {
		return Decision{}, err
	}

	needed := required
	if needed.Scope == ScopeOwn && sc.OwnerID != "" && sc.OwnerID != actor.ID {
		needed = needed.WithScope(ScopeOrganization)
	}

	decision := g.decide(effective, actor, needed, sc)
	obs.ObserveGuardDecision(decision.Allowed, decision.Reason)

	if decision.Allowed {
		g.logger.DebugContext(ctx, "access granted",
			"actor_id", actor.ID,
			"tenant_id", actor.TenantID,
			"required_permission", needed.String(),
			"reason", decision.Reason)
	} else {
		g.logger.WarnContext(ctx, "access denied",
			"actor_id", actor.ID,
			"tenant_id", actor.TenantID,
			"required_permission", needed.String(),
			"reason", decision.Reason)
	}
	return decision, nil
}

func (g *Guard) decide(effective PermissionSet, actor internal.Actor, needed Permission, sc ScopeContext) Decision {
	if HasPermission(effective, needed.String()) {
		return Decision{Allowed: true, Reason: ReasonPermissionGranted, Matched: needed.String()}
	}

	for _, scope := range needed.Scope.Broader() {
		candidate := needed.WithScope(scope).String()
		if HasPermission(effective, candidate) {
			return Decision{Allowed: true, Reason: ReasonBroaderScope, Matched: candidate}
		}
	}

	// A named reviewer may act when they hold some standing on the resource,
	// or hold no role at all in the tenant and were named explicitly.
	if sc.AssignedTo != nil && *sc.AssignedTo == actor.ID {
		if len(effective) == 0 || effective.HasAnyOnResource(needed.Resource) {
			return Decision{Allowed: true, Reason: ReasonAssignedReviewer}
		}
	}

	return Decision{Allowed: false, Reason: ReasonInsufficientPermission}
}

// Can is a convenience for route-level checks that have no instance context.
func (g *Guard) Can(ctx context.Context, actor internal.Actor, required Permission) (bool, error) {
	d, err := g.Authorize(ctx, actor, required, ScopeContext{})
	if err != nil {
		return false, err
	}
	return d.Allowed, nil
}
