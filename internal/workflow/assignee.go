package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/frahmantamala/approval-workflow/internal/rbac"
)

const (
	ExprCreator      = "creator"
	exprEntityPrefix = "entity."
)

type expression struct {
	creator   bool
	attribute string
}

func parseExpression(raw string) (expression, error) {
	switch {
	case raw == ExprCreator:
		return expression{creator: true}, nil
	case strings.HasPrefix(raw, exprEntityPrefix) && len(raw) > len(exprEntityPrefix):
		return expression{attribute: strings.TrimPrefix(raw, exprEntityPrefix)}, nil
	default:
		return expression{}, fmt.Errorf("unsupported actor expression %q", raw)
	}
}

// RoleDirectory lists a role's active holders in a tenant, most recently
// assigned first.
type RoleDirectory interface {
	RoleHolders(ctx context.Context, tenantID, roleID string) ([]rbac.Assignment, error)
}

// Subject is what an assignee rule is evaluated against.
type Subject struct {
	TenantID   string
	EntityType string
	EntityID   string
	CreatedBy  string
	Current    *string
	Attributes map[string]string
}

type AssigneeResolver struct {
	directory RoleDirectory
	logger    *slog.Logger
}

func NewAssigneeResolver(directory RoleDirectory, logger *slog.Logger) *AssigneeResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &AssigneeResolver{directory: directory, logger: logger}
}

// Resolve evaluates rule and its fallbacks in order. A nil result with a nil
// error means nobody qualified.
func (r *AssigneeResolver) Resolve(ctx context.Context, rule AssigneeRule, s Subject) (*string, error) {
	for cur := &rule; cur != nil; cur = cur.Fallback {
		id, err := r.evaluate(ctx, *cur, s)
		if err != nil {
			return nil, err
		}
		if id != nil {
			return id, nil
		}
	}
	return nil, nil
}

func (r *AssigneeResolver) evaluate(ctx context.Context, rule AssigneeRule, s Subject) (*string, error) {
	switch rule.Kind {
	case RuleNone:
		return nil, nil

	case RuleUnchanged:
		if s.Current == nil {
			return nil, nil
		}
		id := *s.Current
		return &id, nil

	case RuleRoleInTenant:
		holders, err := r.directory.RoleHolders(ctx, s.TenantID, rule.Role)
		if err != nil {
			return nil, err
		}
		if len(holders) == 0 {
			r.logger.DebugContext(ctx, "no active holder for role", "tenant_id", s.TenantID, "role_id", rule.Role)
			return nil, nil
		}
		id := holders[0].ActorID
		return &id, nil

	case RuleSpecificActor:
		expr, err := parseExpression(rule.Expression)
		if err != nil {
			return nil, err
		}
		var id string
		if expr.creator {
			id = s.CreatedBy
		} else {
			id = s.Attributes[expr.attribute]
		}
		if id == "" {
			return nil, nil
		}
		return &id, nil

	default:
		return nil, fmt.Errorf("unknown assignee rule %q", rule.Kind)
	}
}
