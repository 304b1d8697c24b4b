package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/atlasbank/servicedesk/internal/api/dto"
	"github.com/atlasbank/servicedesk/internal/service"
	apperrors "github.com/atlasbank/servicedesk/pkg/util/errorutil"
)

// ReportsHandler exposes management reports.
type ReportsHandler struct {
	service *service.ReportService
}

// NewReportsHandler constructs handler.
func NewReportsHandler(reportService *service.ReportService) *ReportsHandler {
	return &ReportsHandler{service: reportService}
}

// SLACompliance GET /reports/sla-compliance?from=YYYY-MM-DD&to=YYYY-MM-DD.
// The range defaults to the last 30 days; to is exclusive.
func (h *ReportsHandler) SLACompliance(c *fiber.Ctx) error {
	to := time.Now().UTC().Truncate(24 * time.Hour).AddDate(0, 0, 1)
	from := to.AddDate(0, 0, -30)

	if raw := c.Query("from"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return apperrors.NewValidationError("from must be YYYY-MM-DD", nil)
		}
		from = parsed
	}
	if raw := c.Query("to"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return apperrors.NewValidationError("to must be YYYY-MM-DD", nil)
		}
		to = parsed
	}

	report, err := h.service.SLACompliance(c.Context(), from, to)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ComplianceReportFromService(report)})
}
