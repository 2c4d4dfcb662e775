package rbac

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"
)

// Snapshot is an immutable view of the role catalog. Readers always see one
// whole snapshot; reloads replace it rather than mutating it.
type Snapshot struct {
	roles       map[string]Role
	permissions map[string]Permission
	grants      map[string]PermissionSet
}

func NewSnapshot(roles []Role) (*Snapshot, error) {
	s := &Snapshot{
		roles:       make(map[string]Role, len(roles)),
		permissions: make(map[string]Permission),
		grants:      make(map[string]PermissionSet, len(roles)),
	}

	for _, role := range roles {
		if role.ID == "" {
			return nil, errors.New("role with empty id")
		}
		if _, dup := s.roles[role.ID]; dup {
			return nil, fmt.Errorf("duplicate role %q", role.ID)
		}

		set := make(PermissionSet, len(role.Permissions))
		for _, raw := range role.Permissions {
			p, err := ParsePermission(raw)
			if err != nil {
				return nil, fmt.Errorf("role %q: %w", role.ID, err)
			}
			s.permissions[raw] = p
			set[raw] = struct{}{}
		}

		role.Permissions = append([]string(nil), role.Permissions...)
		s.roles[role.ID] = role
		s.grants[role.ID] = set
	}

	return s, nil
}

func (s *Snapshot) Role(id string) (Role, bool) {
	r, ok := s.roles[id]
	return r, ok
}

// Roles returns every role ordered by rank, lowest first.
func (s *Snapshot) Roles() []Role {
	out := make([]Role, 0, len(s.roles))
	for _, r := range s.roles {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rank < out[j].Rank })
	return out
}

// RoleHasPermission is true iff permission is in the role's explicit set.
func (s *Snapshot) RoleHasPermission(roleID, permission string) bool {
	set, ok := s.grants[roleID]
	if !ok {
		return false
	}
	return set.Has(permission)
}

func (s *Snapshot) RolePermissions(roleID string) PermissionSet {
	return s.grants[roleID]
}

// CompareRoleRank orders two roles by rank. Unknown roles rank below every known role.
func (s *Snapshot) CompareRoleRank(a, b string) RankComparison {
	ra, rb := s.rank(a), s.rank(b)
	switch {
	case ra > rb:
		return RankHigher
	case ra < rb:
		return RankLower
	default:
		return RankEqual
	}
}

// CanRoleAccessRole reports whether a can manage b, which requires a strictly higher rank.
func (s *Snapshot) CanRoleAccessRole(a, b string) bool {
	return s.CompareRoleRank(a, b) == RankHigher
}

func (s *Snapshot) rank(id string) int {
	if r, ok := s.roles[id]; ok {
		return r.Rank
	}
	return -1
}

// HasPermission is an exact set-membership test. Scope widening is the guard's job.
func HasPermission(effective PermissionSet, required string) bool {
	return effective.Has(required)
}

// CatalogLoader reads the role catalog from durable storage.
type CatalogLoader interface {
	LoadRoles(ctx context.Context) ([]Role, error)
}

// Catalog holds the current snapshot and swaps it atomically on reload.
type Catalog struct {
	current atomic.Pointer[Snapshot]
	loader  CatalogLoader
	logger  *slog.Logger
}

func NewCatalog(initial *Snapshot, loader CatalogLoader, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Catalog{loader: loader, logger: logger}
	c.current.Store(initial)
	return c
}

// NewDefaultCatalog builds a catalog from the built-in role matrix.
func NewDefaultCatalog(loader CatalogLoader, logger *slog.Logger) (*Catalog, error) {
	snap, err := NewSnapshot(DefaultRoles())
	if err != nil {
		return nil, err
	}
	return NewCatalog(snap, loader, logger), nil
}

func (c *Catalog) Snapshot() *Snapshot {
	return c.current.Load()
}

// Reload reads the catalog from the loader and publishes it. A failed reload
// leaves the previous snapshot in place.
func (c *Catalog) Reload(ctx context.Context) (*Snapshot, error) {
	if c.loader == nil {
		return nil, errors.New("catalog has no loader configured")
	}

	roles, err := c.loader.LoadRoles(ctx)
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to load role catalog", "error", err)
		return nil, err
	}
	if len(roles) == 0 {
		c.logger.WarnContext(ctx, "role catalog is empty, keeping current snapshot")
		return nil, errors.New("role catalog is empty")
	}

	snap, err := NewSnapshot(roles)
	if err != nil {
		c.logger.ErrorContext(ctx, "role catalog rejected", "error", err)
		return nil, err
	}

	c.current.Store(snap)
	c.logger.InfoContext(ctx, "role catalog reloaded", "roles", len(roles), "permissions", len(snap.permissions))
	return snap, nil
}
