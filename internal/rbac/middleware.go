package rbac

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/approval-workflow/internal"
	"github.com/frahmantamala/approval-workflow/internal/transport"
)

// Authorization gates routes on a capability without instance context.
type Authorization struct {
	*transport.BaseHandler
	guard *Guard
}

func NewAuthorization(guard *Guard, logger *slog.Logger) *Authorization {
	return &Authorization{
		BaseHandler: transport.NewBaseHandler(logger),
		guard:       guard,
	}
}

func (a *Authorization) Check(next http.HandlerFunc, permission Permission) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := internal.ActorFromContext(r.Context())
		if !ok {
			a.Logger.WarnContext(r.Context(), "authorization check failed: actor not found in context")
			a.WriteAppError(w, internal.ErrUnauthenticated)
			return
		}

		allowed, err := a.guard.Can(r.Context(), actor, permission)
		if err != nil {
			a.Logger.ErrorContext(r.Context(), "authorization check failed", "error", err, "actor_id", actor.ID, "permission", permission.String())
			a.HandleServiceError(w, err)
			return
		}

		if !allowed {
			a.WriteAppError(w, internal.ErrInsufficientPermission.WithDetails(map[string]string{
				"required_permission": permission.String(),
			}))
			return
		}

		next.ServeHTTP(w, r)
	}
}

func (a *Authorization) Require(permission string) func(http.Handler) http.Handler {
	p := MustPermission(permission)
	return func(next http.Handler) http.Handler {
		return a.Check(next.ServeHTTP, p)
	}
}
