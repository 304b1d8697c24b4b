package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/atlasbank/servicedesk/internal/api/http/handlers"
	"github.com/atlasbank/servicedesk/internal/auth"
	"github.com/atlasbank/servicedesk/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	Approvals      *handlers.ApprovalsHandler
	Checklists     *handlers.ChecklistsHandler
	Reports        *handlers.ReportsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)

	api := app.Group("/api/v1", cfg.AuthMiddleware.Handle)

	tickets := api.Group("/tickets")
	tickets.Post("", cfg.Tickets.CreateTicket)
	tickets.Get("", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Get("/:id/sla", cfg.Tickets.GetSLA)
	tickets.Get("/:id/history", cfg.Tickets.ListHistory)
	tickets.Post("/:id/transition", cfg.Tickets.Transition)
	tickets.Post("/:id/claim", auth.RequireTicketWorker(), cfg.Tickets.ClaimTicket)
	tickets.Patch("/:id/priority", auth.RequireTicketWorker(), cfg.Tickets.UpdatePriority)
	tickets.Post("/:id/approval", auth.RequireRole(domain.RoleManager, domain.RoleAdmin), cfg.Approvals.Decide)
	tickets.Get("/:id/approvals", auth.RequireTicketWorker(), cfg.Approvals.ListByTicket)

	api.Get("/approvals/pending", auth.RequireRole(domain.RoleManager, domain.RoleAdmin), cfg.Approvals.ListPending)

	checklists := api.Group("/checklists", auth.RequireTicketWorker())
	checklists.Post("/claim", cfg.Checklists.Claim)
	checklists.Patch("/items", cfg.Checklists.UpdateItems)
	checklists.Get("/:type", cfg.Checklists.Get)

	reports := api.Group("/reports", auth.RequireRole(domain.RoleManager, domain.RoleAdmin))
	reports.Get("/sla-compliance", cfg.Reports.SLACompliance)
}
