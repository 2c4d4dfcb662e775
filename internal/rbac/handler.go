package rbac

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sort"

	"github.com/frahmantamala/approval-workflow/internal"
	"github.com/frahmantamala/approval-workflow/internal/transport"
	"github.com/frahmantamala/approval-workflow/pkg/logger"
)

type ServiceAPI interface {
	ResolveEffectivePermissions(ctx context.Context, actorID, tenantID string) (PermissionSet, error)
	ResolveHighestRole(ctx context.Context, actorID, tenantID string) (string, error)
}

type CatalogAPI interface {
	Snapshot() *Snapshot
	Reload(ctx context.Context) (*Snapshot, error)
}

type RoleResponse struct {
	ID          string   `json:"id"`
	Rank        int      `json:"rank"`
	Description string   `json:"description,omitempty"`
	Permissions []string `json:"permissions"`
}

type AccessResponse struct {
	ActorID     string   `json:"actorId"`
	TenantID    string   `json:"tenantId"`
	HighestRole *string  `json:"highestRole"`
	Permissions []string `json:"permissions"`
}

type ReloadResponse struct {
	Roles int `json:"roles"`
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
	Catalog CatalogAPI
}

func NewHandler(svc ServiceAPI, catalog CatalogAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
		Catalog:     catalog,
	}
}

func toRoleResponse(r Role) RoleResponse {
	perms := append([]string(nil), r.Permissions...)
	sort.Strings(perms)
	return RoleResponse{ID: r.ID, Rank: r.Rank, Description: r.Description, Permissions: perms}
}

func (h *Handler) ListRoles(w http.ResponseWriter, r *http.Request) {
	roles := h.Catalog.Snapshot().Roles()
	out := make([]RoleResponse, 0, len(roles))
	for _, role := range roles {
		out = append(out, toRoleResponse(role))
	}
	h.WriteJSON(w, http.StatusOK, out)
}

// GetMyAccess reports the caller's highest role and effective permissions in their tenant.
func (h *Handler) GetMyAccess(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.ErrUnauthenticated)
		return
	}

	perms, err := h.Service.ResolveEffectivePermissions(r.Context(), actor.ID, actor.TenantID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	resp := AccessResponse{ActorID: actor.ID, TenantID: actor.TenantID, Permissions: perms.Slice()}
	sort.Strings(resp.Permissions)

	role, err := h.Service.ResolveHighestRole(r.Context(), actor.ID, actor.TenantID)
	switch {
	case err == nil:
		resp.HighestRole = &role
	case errors.Is(err, internal.ErrNoActiveRole):
	default:
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) ReloadCatalog(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Catalog.Reload(r.Context())
	if err != nil {
		h.Logger.ErrorContext(r.Context(), "catalog reload failed", "error", err)
		h.HandleServiceError(w, internal.NewInternalError("catalog reload failed", err))
		return
	}
	h.WriteJSON(w, http.StatusOK, ReloadResponse{Roles: len(snap.Roles())})
}
