package rest

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/approval-workflow/internal/audit"
	"github.com/frahmantamala/approval-workflow/internal/auth"
	"github.com/frahmantamala/approval-workflow/internal/obs"
	"github.com/frahmantamala/approval-workflow/internal/rbac"
	"github.com/frahmantamala/approval-workflow/internal/transport/middleware"
	"github.com/frahmantamala/approval-workflow/internal/transport/swagger"
	"github.com/frahmantamala/approval-workflow/internal/workflow"
	"github.com/frahmantamala/approval-workflow/internal/workitem"
)

// Routes carries everything RegisterAllRoutes mounts. Nil handlers leave
// their routes out.
type Routes struct {
	Health        *HealthHandler
	Auth          *auth.Handler
	Workflow      *workflow.Handler
	WorkItems     *workitem.Handler
	Audit         *audit.Handler
	RBAC          *rbac.Handler
	Authorization *rbac.Authorization
	RateLimiter   *middleware.RateLimiter
	Validator     *middleware.RequestValidator

	OpenAPIPath    string
	MetricsPath    string
	MetricsEnabled bool
	CORSOrigins    []string
}

func RegisterAllRoutes(router *chi.Mux, routes Routes, logger *slog.Logger) {
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.CORS(routes.CORSOrigins))
	router.Use(middleware.LoggingMiddleware())
	if routes.MetricsEnabled {
		router.Use(obs.Instrument)
		router.Handle(routes.MetricsPath, obs.Handler())
	}

	if routes.OpenAPIPath != "" {
		router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
			http.ServeFile(w, r, routes.OpenAPIPath)
		})
		router.Handle("/swagger/*", swagger.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		if routes.Health != nil {
			r.Get("/health", routes.Health.healthCheckHandler)
			r.Get("/ping", routes.Health.pingHandler)
		}

		if routes.Auth == nil {
			return
		}

		r.Group(func(pr chi.Router) {
			pr.Use(routes.Auth.AuthMiddleware)
			pr.Use(middleware.RequestBodyLogger)
			if routes.Validator != nil {
				pr.Use(routes.Validator.Middleware)
			}

			pr.Get("/auth/whoami", routes.Auth.Whoami)

			if routes.Workflow != nil {
				pr.Route("/workflows", func(wr chi.Router) {
					wr.Get("/definitions", routes.Workflow.ListDefinitions)
					wr.Group(func(ar chi.Router) {
						if routes.RateLimiter != nil {
							ar.Use(routes.RateLimiter.Middleware)
						}
						ar.Post("/actions", routes.Workflow.SubmitAction)
					})
					wr.Get("/{entityType}/{entityId}", routes.Workflow.GetInstance)
					wr.Get("/{entityType}/{entityId}/actions", routes.Workflow.GetAvailableActions)
				})
			}

			if routes.WorkItems != nil {
				pr.Get("/workitems", routes.WorkItems.GetInbox)
				pr.With(routes.Authorization.Require("workflows:triage:organization")).
					Get("/workitems/unassigned", routes.WorkItems.GetUnassigned)
			}

			if routes.Audit != nil {
				pr.With(routes.Authorization.Require("audit:read:organization")).
					Get("/audit", routes.Audit.ListEntries)
			}

			if routes.RBAC != nil {
				pr.Get("/rbac/me", routes.RBAC.GetMyAccess)
				pr.With(routes.Authorization.Require("roles:read:all")).
					Get("/rbac/roles", routes.RBAC.ListRoles)
				pr.With(routes.Authorization.Require("roles:manage:all")).
					Post("/admin/catalog/reload", routes.RBAC.ReloadCatalog)
			}
		})
	})
}
