package handlers

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/atlasbank/servicedesk/internal/api/dto"
	"github.com/atlasbank/servicedesk/internal/auth"
	"github.com/atlasbank/servicedesk/internal/domain"
	"github.com/atlasbank/servicedesk/internal/service"
	apperrors "github.com/atlasbank/servicedesk/pkg/util/errorutil"
)

// ChecklistsHandler manages operational checklist endpoints.
type ChecklistsHandler struct {
	service *service.ChecklistService
}

// NewChecklistsHandler constructs handler.
func NewChecklistsHandler(checklistService *service.ChecklistService) *ChecklistsHandler {
	return &ChecklistsHandler{service: checklistService}
}

// Claim POST /checklists/claim.
func (h *ChecklistsHandler) Claim(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.ClaimChecklistRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if !validChecklistType(req.ChecklistType) {
		return apperrors.NewValidationError("unknown checklist_type", nil)
	}

	view, err := h.service.Claim(c.Context(), principal.User.ID, req.ChecklistType)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.ChecklistFromView(view)})
}

// Get GET /checklists/:type. Optional date query, defaults to today.
func (h *ChecklistsHandler) Get(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	checklistType := domain.ChecklistType(c.Params("type"))
	if !validChecklistType(checklistType) {
		return apperrors.NewValidationError("unknown checklist type", nil)
	}
	var date time.Time
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return apperrors.NewValidationError("date must be YYYY-MM-DD", nil)
		}
		date = parsed
	}

	view, err := h.service.Get(c.Context(), principal.User.ID, checklistType, date)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ChecklistFromView(view)})
}

// UpdateItems PATCH /checklists/items.
func (h *ChecklistsHandler) UpdateItems(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.UpdateChecklistItemsRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if len(req.Items) == 0 {
		return apperrors.NewValidationError("items required", nil)
	}

	updates := make([]service.ItemUpdateInput, 0, len(req.Items))
	for _, item := range req.Items {
		updates = append(updates, service.ItemUpdateInput{
			ItemID: item.ItemID,
			Status: item.Status,
			Notes:  item.Notes,
		})
	}
	result, err := h.service.UpdateItems(c.Context(), principal.User.ID, updates)
	if err != nil {
		return err
	}
	status := http.StatusOK
	if len(result.Errors) > 0 {
		status = http.StatusMultiStatus
	}
	return c.Status(status).JSON(fiber.Map{"data": dto.ChecklistUpdateResultFromService(result)})
}

func validChecklistType(t domain.ChecklistType) bool {
	switch t {
	case domain.ChecklistTypeDayOps, domain.ChecklistTypeNightOps,
		domain.ChecklistTypeDayMonitoring, domain.ChecklistTypeNightMonitoring:
		return true
	}
	return false
}
