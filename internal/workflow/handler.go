package workflow

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/approval-workflow/internal"
	"github.com/frahmantamala/approval-workflow/internal/transport"
	"github.com/frahmantamala/approval-workflow/pkg/logger"
)

type ServiceAPI interface {
	SubmitAction(ctx context.Context, actor internal.Actor, req ActionRequest) (*TransitionResult, error)
	GetInstance(ctx context.Context, actor internal.Actor, entityType, entityID string) (*InstanceView, error)
	AvailableActions(ctx context.Context, actor internal.Actor, entityType, entityID string) ([]ActionOption, error)
	Registry() *Registry
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(service ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
	}
}

func (h *Handler) SubmitAction(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.ErrUnauthenticated)
		return
	}

	var dto SubmitActionDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Warn("SubmitAction: invalid request body", "error", err)
		h.WriteAppError(w, internal.NewValidationError("invalid request body", internal.ErrCodeValidationFailed))
		return
	}

	res, err := h.Service.SubmitAction(r.Context(), actor, dto.ToRequest())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, NewTransitionResponse(res))
}

func (h *Handler) GetInstance(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.ErrUnauthenticated)
		return
	}

	view, err := h.Service.GetInstance(r.Context(), actor, chi.URLParam(r, "entityType"), chi.URLParam(r, "entityId"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	history := view.History
	if history == nil {
		history = []TransitionRecord{}
	}
	h.WriteJSON(w, http.StatusOK, InstanceResponse{Instance: view.Instance, History: history})
}

// GetAvailableActions lists the actions leaving the entity's current state and
// whether the caller may take each of them.
func (h *Handler) GetAvailableActions(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.ErrUnauthenticated)
		return
	}

	entityType, entityID := chi.URLParam(r, "entityType"), chi.URLParam(r, "entityId")
	options, err := h.Service.AvailableActions(r.Context(), actor, entityType, entityID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, ActionsResponse{EntityType: entityType, EntityID: entityID, Actions: options})
}

func (h *Handler) ListDefinitions(w http.ResponseWriter, r *http.Request) {
	defs := h.Service.Registry().Definitions()
	out := make([]DefinitionResponse, 0, len(defs))
	for _, d := range defs {
		out = append(out, NewDefinitionResponse(d))
	}
	h.WriteJSON(w, http.StatusOK, out)
}
