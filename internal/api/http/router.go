package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/portfolio-contact/internal/api/http/handlers"
	"github.com/spec-kit/portfolio-contact/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Contact        *handlers.ContactHandler
	Auth           *handlers.AuthHandler
	Submissions    *handlers.SubmissionsHandler
	Metrics        *handlers.MetricsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api/v1")
	api.Post("/contact", cfg.Contact.Submit)

	admin := api.Group("/admin")
	admin.Post("/login", cfg.Auth.Login)

	protected := admin.Group("", cfg.AuthMiddleware.Handle, auth.RequireAdmin())
	protected.Get("/metrics", cfg.Metrics.Snapshot)

	submissions := protected.Group("/submissions")
	submissions.Get("/", cfg.Submissions.List)
	submissions.Get("/recent", cfg.Submissions.Recent)
	submissions.Get("/stats", cfg.Submissions.Stats)
	submissions.Get("/:id", cfg.Submissions.Get)
	submissions.Post("/:id/read", cfg.Submissions.MarkAsRead)
	submissions.Post("/:id/replied", cfg.Submissions.MarkAsReplied)
	submissions.Patch("/:id/status", cfg.Submissions.UpdateStatus)
}
