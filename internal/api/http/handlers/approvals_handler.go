package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/atlasbank/servicedesk/internal/api/dto"
	"github.com/atlasbank/servicedesk/internal/auth"
	"github.com/atlasbank/servicedesk/internal/service"
	apperrors "github.com/atlasbank/servicedesk/pkg/util/errorutil"
)

// ApprovalsHandler manages manager approval endpoints.
type ApprovalsHandler struct {
	service *service.ApprovalService
	tickets *service.TicketService
}

// NewApprovalsHandler constructs handler.
func NewApprovalsHandler(approvalService *service.ApprovalService, ticketService *service.TicketService) *ApprovalsHandler {
	return &ApprovalsHandler{service: approvalService, tickets: ticketService}
}

// Decide POST /tickets/:id/approval.
func (h *ApprovalsHandler) Decide(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.ApprovalDecisionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	approval, err := h.service.Decide(c.Context(), principal.User, c.Params("id"), req.Status, req.Reason)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.ApprovalFromDomain(approval)})
}

// ListPending GET /approvals/pending. Tickets waiting on a manager decision.
func (h *ApprovalsHandler) ListPending(c *fiber.Ctx) error {
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	tickets, err := h.tickets.ListPendingApprovals(c.Context(), pageSize, (page-1)*pageSize)
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, dto.TicketSummaryFromDomain(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// ListByTicket GET /tickets/:id/approvals.
func (h *ApprovalsHandler) ListByTicket(c *fiber.Ctx) error {
	approvals, err := h.service.ListByTicket(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.ApprovalResponse, 0, len(approvals))
	for i := range approvals {
		items = append(items, dto.ApprovalFromDomain(&approvals[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}
