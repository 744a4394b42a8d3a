package http

import (
	nethttp "net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/request-tracker/internal/api/http/handlers"
	"github.com/spec-kit/request-tracker/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Requests       *handlers.RequestsHandler
	Worklogs       *handlers.WorklogsHandler
	Metrics        *handlers.MetricsHandler
	AuthMiddleware *auth.AuthMiddleware
	// Prometheus exposition; omitted when nil.
	MetricsExporter nethttp.Handler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.MetricsExporter != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.MetricsExporter))
	}

	app.Post("/auth/login", cfg.Auth.Login)

	api := app.Group("/api", cfg.AuthMiddleware.Handle, auth.RequireRole())
	api.Get("/me", cfg.Auth.Me)
	api.Get("/me/worklogs", auth.RequireStaff(), cfg.Worklogs.ListMine)

	requests := api.Group("/requests")
	requests.Post("/", cfg.Requests.Create)
	requests.Get("/", cfg.Requests.List)
	requests.Get("/:id", cfg.Requests.Get)
	requests.Get("/:id/history", cfg.Requests.History)
	requests.Post("/:id/feedback", cfg.Requests.Feedback)
	requests.Get("/:id/worklogs", cfg.Worklogs.ListByRequest)

	requests.Post("/:id/transition", auth.RequireStaff(), cfg.Requests.Transition)
	requests.Put("/:id", auth.RequireStaff(), cfg.Requests.Update)
	requests.Post("/:id/worklogs", auth.RequireStaff(), cfg.Worklogs.Record)

	requests.Post("/:id/classify", auth.RequireAdmin(), cfg.Requests.Classify)
	requests.Post("/:id/assign", auth.RequireAdmin(), cfg.Requests.Assign)
	requests.Post("/:id/unassign", auth.RequireAdmin(), cfg.Requests.Unassign)
	requests.Post("/:id/reopen", auth.RequireAdmin(), cfg.Requests.Reopen)

	metrics := api.Group("/metrics", auth.RequireStaff())
	metrics.Get("/kpis", cfg.Metrics.KPIs)
	metrics.Get("/distribution", cfg.Metrics.Distribution)
	metrics.Get("/technicians", cfg.Metrics.Technicians)
	metrics.Get("/rework", cfg.Metrics.Rework)
	metrics.Get("/time-by-state", cfg.Metrics.TimeByState)
	metrics.Get("/backlog-trend", cfg.Metrics.BacklogTrend)

	api.Get("/reports/summary", auth.RequireStaff(), cfg.Metrics.Summary)
	api.Get("/analytics/dashboard", auth.RequireStaff(), cfg.Metrics.Summary)
}
