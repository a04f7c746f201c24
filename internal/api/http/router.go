package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/sla-engine/internal/api/http/handlers"
	"github.com/spec-kit/sla-engine/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Lifecycle      *handlers.LifecycleHandler
	Reports        *handlers.ReportsHandler
	Notifications  *handlers.NotificationsHandler
	Admin          *handlers.AdminHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	// Lifecycle hooks called by the ticket/comment subsystem.
	internal := app.Group("/internal", cfg.AuthMiddleware.Handle, auth.RequireRole(auth.RoleService, auth.RoleAdmin))
	internal.Post("/tickets/created", cfg.Lifecycle.TicketCreated)
	internal.Post("/tickets/first-contact", cfg.Lifecycle.FirstContact)
	internal.Post("/tickets/resolved", cfg.Lifecycle.TicketResolved)

	api := app.Group("/api", cfg.AuthMiddleware.Handle)

	sla := api.Group("/sla", auth.RequireRole(auth.RoleStaff, auth.RoleAdmin))
	sla.Get("/stats", cfg.Reports.GetStats)
	sla.Get("/at-risk", cfg.Reports.ListAtRisk)
	sla.Get("/breaches", cfg.Reports.ListBreaches)
	sla.Get("/policies", cfg.Reports.ListPolicies)

	api.Get("/notifications", auth.RequireRole(auth.RoleStaff, auth.RoleAdmin, auth.RoleService), cfg.Notifications.List)

	admin := api.Group("/admin", auth.RequireRole(auth.RoleAdmin))
	admin.Post("/sweep", cfg.Admin.TriggerSweep)
	admin.Post("/policies/refresh", cfg.Admin.RefreshPolicies)
}
