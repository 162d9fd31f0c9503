package rest

import (
	"log/slog"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
	"github.com/jmoiron/sqlx"

	"github.com/frahmantamala/hr-approval/internal/auth"
	"github.com/frahmantamala/hr-approval/internal/authority"
	"github.com/frahmantamala/hr-approval/internal/delegation"
	"github.com/frahmantamala/hr-approval/internal/location"
	"github.com/frahmantamala/hr-approval/internal/notification"
	"github.com/frahmantamala/hr-approval/internal/resource"
	"github.com/frahmantamala/hr-approval/internal/transport"
	"github.com/frahmantamala/hr-approval/internal/transport/middleware"
	"github.com/frahmantamala/hr-approval/internal/transport/swagger"
	"github.com/frahmantamala/hr-approval/internal/user"
	"github.com/frahmantamala/hr-approval/internal/workflow"
)

// Administrative permissions checked at the router, always globally.
const (
	PermLocationManage = "location.manage"
	PermTemplateManage = "workflow.template.manage"
)

type Handlers struct {
	Auth         *auth.Handler
	User         *user.Handler
	Location     *location.Handler
	Authority    *authority.Handler
	Delegation   *delegation.Handler
	Resource     *resource.Handler
	Notification *notification.Handler
	Workflow     *workflow.Handler
}

type RouterConfig struct {
	DB             *sqlx.DB
	Checker        middleware.AuthorityChecker
	AllowedOrigins string
	OpenAPI        *openapi3.T
	Logger         *slog.Logger
}

func RegisterAllRoutes(router *chi.Mux, cfg RouterConfig, h Handlers) {
	base := transport.NewBaseHandler(cfg.Logger)
	healthHandler := NewHealthHandler(base, cfg.DB)
	requirePermission := func(permission string) func(http.Handler) http.Handler {
		return middleware.RequirePermission(cfg.Checker, base, permission)
	}

	router.Use(middleware.CORS(cfg.AllowedOrigins))
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.TraceID)
	router.Use(middleware.SourceIP)
	router.Use(middleware.AccessLog)
	router.Use(middleware.Recovery(base))

	if cfg.OpenAPI != nil {
		router.Get(swagger.SpecRoute, swagger.SpecHandler(cfg.OpenAPI))
		router.Handle("/swagger/*", swagger.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.Health)
		r.Get("/ping", healthHandler.Ping)

		r.Route("/auth", func(sr chi.Router) {
			sr.Post("/login", h.Auth.Login)
			sr.Post("/refresh", h.Auth.RefreshToken)
			sr.Post("/logout", h.Auth.Logout)
		})

		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.AuthMiddleware)

			pr.Get("/users/me", h.User.GetCurrentUser)
			pr.Get("/users/{id}", h.User.GetUser)

			pr.Route("/locations", func(lr chi.Router) {
				lr.Get("/", h.Location.GetLocations)
				lr.Get("/{id}", h.Location.GetLocation)
				lr.Group(func(ar chi.Router) {
					ar.Use(requirePermission(PermLocationManage))
					ar.Post("/", h.Location.CreateLocation)
					ar.Patch("/{id}/deactivate", h.Location.DeactivateLocation)
					ar.Patch("/{id}/move", h.Location.MoveLocation)
				})
			})

			pr.Post("/authority/check", h.Authority.Check)

			pr.Route("/delegations", func(dr chi.Router) {
				dr.Get("/", h.Delegation.GetDelegations)
				dr.Post("/", h.Delegation.CreateDelegation)
				dr.Patch("/{id}/revoke", h.Delegation.RevokeDelegation)
			})

			pr.Post("/leave-requests", h.Resource.CreateLeaveRequest)
			pr.Get("/leave-requests/{id}", h.Resource.GetLeaveRequest)
			pr.Post("/timesheets", h.Resource.CreateTimesheet)
			pr.Get("/timesheets/{id}", h.Resource.GetTimesheet)

			pr.Get("/notifications", h.Notification.GetNotifications)
			pr.Patch("/notifications/{id}/read", h.Notification.MarkRead)

			pr.Route("/workflow-templates", func(tr chi.Router) {
				tr.Get("/", h.Workflow.GetTemplates)
				tr.Get("/{id}", h.Workflow.GetTemplate)
				tr.Get("/{id}/preview", h.Workflow.PreviewTemplate)
				tr.Group(func(ar chi.Router) {
					ar.Use(requirePermission(PermTemplateManage))
					ar.Post("/", h.Workflow.CreateTemplate)
					ar.Patch("/{id}/deactivate", h.Workflow.DeactivateTemplate)
				})
			})

			pr.Route("/workflow-instances", func(ir chi.Router) {
				ir.Post("/", h.Workflow.SubmitInstance)
				ir.Get("/{id}", h.Workflow.GetInstance)
				ir.Post("/{id}/actions", h.Workflow.ActOnInstance)
				ir.Get("/{id}/history", h.Workflow.GetInstanceHistory)
				ir.Get("/{id}/steps/{order}/approvers", h.Workflow.GetStepApprovers)
			})
		})
	})
}
