package rbac

import (
	"context"
	"log/slog"
	"sort"

	"github.com/frahmantamala/approval-workflow/internal"
)

// AssignmentRepository reads role assignments. Implementations return active
// assignments only, but callers still filter on Active.
type AssignmentRepository interface {
	ActiveAssignments(ctx context.Context, actorID, tenantID string) ([]Assignment, error)
	ActiveHolders(ctx context.Context, tenantID, roleID string) ([]Assignment, error)
}

// Resolver answers who an actor is inside a tenant.
type Resolver struct {
	repo    AssignmentRepository
	catalog *Catalog
	logger  *slog.Logger
}

func NewResolver(repo AssignmentRepository, catalog *Catalog, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		repo:    repo,
		catalog: catalog,
		logger:  logger,
	}
}

func (r *Resolver) Catalog() *Catalog {
	return r.catalog
}

func (r *Resolver) activeAssignments(ctx context.Context, actorID, tenantID string) ([]Assignment, error) {
	if tenantID == "" {
		return nil, internal.ErrNoTenantContext
	}

	assignments, err := r.repo.ActiveAssignments(ctx, actorID, tenantID)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to load role assignments", "error", err, "actor_id", actorID, "tenant_id", tenantID)
		return nil, internal.NewInternalError("failed to load role assignments", err)
	}

	out := assignments[:0:0]
	for _, a := range assignments {
		if a.Active && a.TenantID == tenantID {
			out = append(out, a)
		}
	}
	return out, nil
}

// ResolveEffectivePermissions unions the permissions of every active role the
// actor holds in the tenant. An actor with no assignments gets an empty set.
func (r *Resolver) ResolveEffectivePermissions(ctx context.Context, actorID, tenantID string) (PermissionSet, error) {
	assignments, err := r.activeAssignments(ctx, actorID, tenantID)
	if err != nil {
		return nil, err
	}

	snap := r.catalog.Snapshot()
	effective := make(PermissionSet)
	for _, a := range assignments {
		grants := snap.RolePermissions(a.RoleID)
		if grants == nil {
			r.logger.WarnContext(ctx, "assignment references unknown role", "actor_id", actorID, "tenant_id", tenantID, "role_id", a.RoleID)
			continue
		}
		for p := range grants {
			effective[p] = struct{}{}
		}
	}
	return effective, nil
}

// ResolveHighestRole returns the highest-ranked active role the actor holds in the tenant.
func (r *Resolver) ResolveHighestRole(ctx context.Context, actorID, tenantID string) (string, error) {
	assignments, err := r.activeAssignments(ctx, actorID, tenantID)
	if err != nil {
		return "", err
	}

	snap := r.catalog.Snapshot()
	highest := ""
	for _, a := range assignments {
		if _, known := snap.Role(a.RoleID); !known {
			continue
		}
		if highest == "" || snap.CompareRoleRank(a.RoleID, highest) == RankHigher {
			highest = a.RoleID
		}
	}

	if highest == "" {
		return "", internal.ErrNoActiveRole
	}
	return highest, nil
}

// RoleHolders lists active holders of a role in the tenant, most recently
// assigned first. Ties fall back to actor id so the order is stable.
func (r *Resolver) RoleHolders(ctx context.Context, tenantID, roleID string) ([]Assignment, error) {
	if tenantID == "" {
		return nil, internal.ErrNoTenantContext
	}

	holders, err := r.repo.ActiveHolders(ctx, tenantID, roleID)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to load role holders", "error", err, "tenant_id", tenantID, "role_id", roleID)
		return nil, internal.NewInternalError("failed to load role holders", err)
	}

	out := holders[:0:0]
	for _, h := range holders {
		if h.Active && h.TenantID == tenantID && h.RoleID == roleID {
			out = append(out, h)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].AssignedAt.Equal(out[j].AssignedAt) {
			return out[i].AssignedAt.After(out[j].AssignedAt)
		}
		return out[i].ActorID < out[j].ActorID
	})
	return out, nil
}
