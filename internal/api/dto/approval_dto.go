package dto

import (
	"time"

	"github.com/atlasbank/servicedesk/internal/domain"
)

// ApprovalDecisionRequest payload for POST /tickets/:id/approval.
type ApprovalDecisionRequest struct {
	Status domain.ApprovalStatus `json:"status"`
	Reason string                `json:"reason"`
}

// ApprovalResponse is a recorded decision.
type ApprovalResponse struct {
	ID         string                `json:"id"`
	TicketID   string                `json:"ticket_id"`
	ApproverID string                `json:"approver_id"`
	Status     domain.ApprovalStatus `json:"status"`
	Reason     string                `json:"reason,omitempty"`
	CreatedAt  time.Time             `json:"created_at"`
}

// ApprovalFromDomain maps an approval record.
func ApprovalFromDomain(approval *domain.Approval) ApprovalResponse {
	return ApprovalResponse{
		ID:         approval.ID,
		TicketID:   approval.TicketID,
		ApproverID: approval.ApproverID,
		Status:     approval.Status,
		Reason:     approval.Reason,
		CreatedAt:  approval.CreatedAt,
	}
}
