package postgres

import (
	"context"
	"fmt"
	"time"

	rbacDatamodel "github.com/frahmantamala/approval-workflow/internal/core/datamodel/rbac"
	"github.com/frahmantamala/approval-workflow/internal/rbac"
	"github.com/jmoiron/sqlx"
)

// Repository reads and writes the role catalog and assignments with sqlx.
type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

var (
	_ rbac.AssignmentRepository = (*Repository)(nil)
	_ rbac.CatalogLoader        = (*Repository)(nil)
)

const assignmentColumns = `id, actor_id, role_id, tenant_id, active, assigned_at`

func toAssignments(rows []rbacDatamodel.RoleAssignment) []rbac.Assignment {
	out := make([]rbac.Assignment, 0, len(rows))
	for _, row := range rows {
		out = append(out, rbac.Assignment{
			ActorID:    row.ActorID,
			RoleID:     row.RoleID,
			TenantID:   row.TenantID,
			Active:     row.Active,
			AssignedAt: row.AssignedAt,
		})
	}
	return out
}

func (r *Repository) ActiveAssignments(ctx context.Context, actorID, tenantID string) ([]rbac.Assignment, error) {
	var rows []rbacDatamodel.RoleAssignment
	query := `SELECT ` + assignmentColumns + ` FROM role_assignments
	          WHERE actor_id = $1 AND tenant_id = $2 AND active = true`
	if err := r.db.SelectContext(ctx, &rows, query, actorID, tenantID); err != nil {
		return nil, fmt.Errorf("select assignments: %w", err)
	}
	return toAssignments(rows), nil
}

func (r *Repository) ActiveHolders(ctx context.Context, tenantID, roleID string) ([]rbac.Assignment, error) {
	var rows []rbacDatamodel.RoleAssignment
	query := `SELECT ` + assignmentColumns + ` FROM role_assignments
	          WHERE tenant_id = $1 AND role_id = $2 AND active = true
	          ORDER BY assigned_at DESC, actor_id ASC`
	if err := r.db.SelectContext(ctx, &rows, query, tenantID, roleID); err != nil {
		return nil, fmt.Errorf("select role holders: %w", err)
	}
	return toAssignments(rows), nil
}

type grantRow struct {
	RoleID       string `db:"role_id"`
	PermissionID string `db:"permission_id"`
}

func (r *Repository) LoadRoles(ctx context.Context) ([]rbac.Role, error) {
	var roleRows []rbacDatamodel.Role
	if err := r.db.SelectContext(ctx, &roleRows, `SELECT id, rank, description FROM roles ORDER BY rank ASC`); err != nil {
		return nil, fmt.Errorf("select roles: %w", err)
	}

	var grants []grantRow
	query := `SELECT rp.role_id, rp.permission_id
	          FROM role_permissions rp
	          JOIN permissions p ON p.id = rp.permission_id
	          ORDER BY rp.role_id, rp.permission_id`
	if err := r.db.SelectContext(ctx, &grants, query); err != nil {
		return nil, fmt.Errorf("select role permissions: %w", err)
	}

	byRole := make(map[string][]string, len(roleRows))
	for _, g := range grants {
		byRole[g.RoleID] = append(byRole[g.RoleID], g.PermissionID)
	}

	roles := make([]rbac.Role, 0, len(roleRows))
	for _, row := range roleRows {
		roles = append(roles, rbac.Role{
			ID:          row.ID,
			Rank:        row.Rank,
			Description: row.Description,
			Permissions: byRole[row.ID],
		})
	}
	return roles, nil
}

// SaveCatalog upserts roles, their permissions and grants in one transaction.
// Grants no longer listed for a role are removed.
func (r *Repository) SaveCatalog(ctx context.Context, roles []rbac.Role) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin catalog tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, role := range roles {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO roles (id, rank, description) VALUES ($1, $2, $3)
			 ON CONFLICT (id) DO UPDATE SET rank = EXCLUDED.rank, description = EXCLUDED.description`,
			role.ID, role.Rank, role.Description); err != nil {
			return fmt.Errorf("upsert role %s: %w", role.ID, err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, role.ID); err != nil {
			return fmt.Errorf("clear grants for %s: %w", role.ID, err)
		}

		for _, raw := range role.Permissions {
			p, err := rbac.ParsePermission(raw)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO permissions (id, resource, action, scope) VALUES ($1, $2, $3, $4)
				 ON CONFLICT (id) DO NOTHING`,
				raw, p.Resource, p.Action, string(p.Scope)); err != nil {
				return fmt.Errorf("upsert permission %s: %w", raw, err)
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO role_permissions (role_id, permission_id) VALUES ($1, $2)`,
				role.ID, raw); err != nil {
				return fmt.Errorf("grant %s to %s: %w", raw, role.ID, err)
			}
		}
	}

	return tx.Commit()
}

// Assign activates a role for an actor in a tenant, refreshing assigned_at
// when the assignment already exists.
func (r *Repository) Assign(ctx context.Context, actorID, roleID, tenantID string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE role_assignments SET active = true, assigned_at = $4
		 WHERE actor_id = $1 AND role_id = $2 AND tenant_id = $3`,
		actorID, roleID, tenantID, at)
	if err != nil {
		return fmt.Errorf("update assignment: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return nil
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO role_assignments (actor_id, role_id, tenant_id, active, assigned_at)
		 VALUES ($1, $2, $3, true, $4)`,
		actorID, roleID, tenantID, at)
	if err != nil {
		return fmt.Errorf("insert assignment: %w", err)
	}
	return nil
}

func (r *Repository) Revoke(ctx context.Context, actorID, roleID, tenantID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE role_assignments SET active = false
		 WHERE actor_id = $1 AND role_id = $2 AND tenant_id = $3`,
		actorID, roleID, tenantID)
	if err != nil {
		return fmt.Errorf("revoke assignment: %w", err)
	}
	return nil
}
