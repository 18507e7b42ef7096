package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/lead-service/internal/api/http/handlers"
	"github.com/spec-kit/lead-service/internal/auth"
	"github.com/spec-kit/lead-service/internal/domain"
	"github.com/spec-kit/lead-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Leads          *handlers.LeadsHandler
	Workflow       *handlers.LeadWorkflowHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/debug/metrics", metricsHandler(cfg.Metrics))

	app.Post("/auth/login", cfg.Users.Login)

	authGroup := app.Group("/auth", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	authGroup.Get("/me", cfg.Users.Me)
	authGroup.Post("/password/change", cfg.Users.ChangePassword)

	users := app.Group("/users", cfg.AuthMiddleware.Handle,
		auth.RequireRole(domain.RoleHigherAuthority, domain.RoleNodalOfficer))
	users.Post("", cfg.Users.CreateUser)
	users.Get("", cfg.Users.ListUsers)
	users.Delete("/:id", cfg.Users.DeactivateUser)

	leads := app.Group("/leads", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	leads.Post("", auth.RequireRole(domain.RoleHigherAuthority, domain.RoleNodalOfficer), cfg.Leads.CreateLead)
	leads.Get("", cfg.Leads.ListLeads)
	leads.Get("/:id", cfg.Leads.GetLead)
	leads.Patch("/:id", cfg.Leads.UpdateLead)
	leads.Patch("/:id/status", cfg.Leads.UpdateStatus)

	leads.Post("/:id/assign",
		auth.RequireRole(domain.RoleHigherAuthority, domain.RoleNodalOfficer), cfg.Workflow.AssignLead)
	leads.Post("/:id/progress", cfg.Workflow.AdvanceStage)
	leads.Get("/:id/progress", cfg.Workflow.GetProgress)
	leads.Get("/:id/audit", cfg.Workflow.ListAudit)
}

func metricsHandler(metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		requests, errs := metrics.Snapshot()
		return c.JSON(fiber.Map{
			"requests": requests,
			"errors":   errs,
		})
	}
}
