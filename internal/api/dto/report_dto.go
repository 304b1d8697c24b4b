package dto

import "github.com/atlasbank/servicedesk/internal/service"

// ComplianceReportResponse wraps the SLA report.
type ComplianceReportResponse struct {
	From     string                      `json:"from"`
	To       string                      `json:"to"`
	Services []service.ServiceCompliance `json:"services"`
}

// ComplianceReportFromService maps the report to its response form.
func ComplianceReportFromService(report *service.ComplianceReport) ComplianceReportResponse {
	return ComplianceReportResponse{
		From:     report.From.Format("2006-01-02"),
		To:       report.To.Format("2006-01-02"),
		Services: report.Services,
	}
}
