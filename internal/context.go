package internal

import (
	"context"
	"time"
)

type ctxKey string

const (
	ContextActorKey  ctxKey = "actor"
	ContextTenantKey ctxKey = "tenantID"
)

// Actor is the authenticated identity supplied by the calling layer.
type Actor struct {
	ID       string `json:"id"`
	TenantID string `json:"tenant_id"`
}

func ActorFromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	actor, ok := ctx.Value(ContextActorKey).(Actor)
	if !ok || actor.ID == "" {
		return Actor{}, false
	}
	return actor, true
}

func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	ctx = context.WithValue(ctx, ContextActorKey, actor)
	if actor.TenantID != "" {
		ctx = context.WithValue(ctx, ContextTenantKey, actor.TenantID)
	}
	return ctx
}

// TenantFromContext returns the explicit tenant for the request. It never
// falls back to a default tenant.
func TenantFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if tenantID, ok := ctx.Value(ContextTenantKey).(string); ok {
		return tenantID
	}
	return ""
}

func ContextWithTenant(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, ContextTenantKey, tenantID)
}

// WithTimeout returns a context with timeout, defaulting to 5 seconds if duration is zero or negative.
func WithTimeout(ctx context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if duration <= 0 {
		duration = 5 * time.Second
	}
	return context.WithTimeout(ctx, duration)
}
