package audit

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/frahmantamala/approval-workflow/internal"
	"github.com/frahmantamala/approval-workflow/internal/transport"
	"github.com/frahmantamala/approval-workflow/pkg/logger"
)

type ServiceAPI interface {
	Query(ctx context.Context, actor internal.Actor, filter Filter) ([]Entry, error)
}

type ListResponse struct {
	Entries []Entry `json:"entries"`
	Limit   int     `json:"limit"`
	Offset  int     `json:"offset"`
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(svc ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
	}
}

func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.ErrUnauthenticated)
		return
	}

	q := r.URL.Query()
	filter := Filter{
		ResourceType: q.Get("resourceType"),
		ResourceID:   q.Get("resourceId"),
		ActorID:      q.Get("actorId"),
		Limit:        transport.QueryInt(r, "limit", DefaultLimit),
		Offset:       transport.QueryInt(r, "offset", 0),
	}
	if raw := q.Get("granted"); raw != "" {
		granted, err := strconv.ParseBool(raw)
		if err != nil {
			h.WriteAppError(w, internal.NewValidationFieldError("granted", "granted must be true or false", internal.ErrCodeValidationFailed))
			return
		}
		filter.Granted = &granted
	}

	entries, err := h.Service.Query(r.Context(), actor, filter)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	filter.Normalize()
	h.WriteJSON(w, http.StatusOK, ListResponse{Entries: entries, Limit: filter.Limit, Offset: filter.Offset})
}
