package auth

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/approval-workflow/internal"
	"github.com/frahmantamala/approval-workflow/internal/transport"
	"github.com/frahmantamala/approval-workflow/pkg/logger"
)

type Handler struct {
	*transport.BaseHandler
	Tokens TokenGenerator
}

func NewHandler(tokens TokenGenerator, lg *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Tokens:      tokens,
	}
}

// AuthMiddleware resolves the bearer token into the request's actor. The
// token's tenant becomes the request tenant; nothing else can set it.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := h.ExtractTokenFromHeader(r)
		if token == "" {
			h.WriteAppError(w, internal.ErrUnauthenticated)
			return
		}

		claims, err := h.Tokens.ValidateToken(token)
		if err != nil {
			h.Logger.WarnContext(r.Context(), "token validation failed", "error", err)
			h.HandleServiceError(w, err)
			return
		}

		actor := claims.Actor()
		ctx := internal.ContextWithActor(r.Context(), actor)
		ctx = logger.With(ctx, "actor_id", actor.ID, "tenant_id", actor.TenantID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Whoami echoes the authenticated actor.
func (h *Handler) Whoami(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.ErrUnauthenticated)
		return
	}
	h.WriteJSON(w, http.StatusOK, actor)
}
