package workitem

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/approval-workflow/internal"
	"github.com/frahmantamala/approval-workflow/internal/transport"
	"github.com/frahmantamala/approval-workflow/pkg/logger"
)

type ServiceAPI interface {
	Inbox(ctx context.Context, actor internal.Actor, q Query) ([]Item, error)
	Unassigned(ctx context.Context, actor internal.Actor, q Query) ([]Item, error)
}

type ListResponse struct {
	Items  []Item `json:"items"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
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

func queryFromRequest(r *http.Request) Query {
	q := Query{
		EntityType:    r.URL.Query().Get("entityType"),
		State:         r.URL.Query().Get("state"),
		IncludeClosed: r.URL.Query().Get("includeClosed") == "true",
		Limit:         transport.QueryInt(r, "limit", DefaultLimit),
		Offset:        transport.QueryInt(r, "offset", 0),
	}
	q.Normalize()
	return q
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, fn func(context.Context, internal.Actor, Query) ([]Item, error)) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.ErrUnauthenticated)
		return
	}

	q := queryFromRequest(r)
	items, err := fn(r.Context(), actor, q)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, ListResponse{Items: items, Limit: q.Limit, Offset: q.Offset})
}

// GetInbox serves GET /workitems for the calling actor.
func (h *Handler) GetInbox(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.Service.Inbox)
}

func (h *Handler) GetUnassigned(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.Service.Unassigned)
}
