package dto

import (
	"time"

	"github.com/atlasbank/servicedesk/internal/domain"
	"github.com/atlasbank/servicedesk/internal/lifecycle"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	ServiceID   string                `json:"service_id"`
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Priority    domain.TicketPriority `json:"priority"`
}

// TransitionRequest payload for POST /tickets/:id/transition.
type TransitionRequest struct {
	Status domain.TicketStatus `json:"status"`
	Notes  string              `json:"notes"`
}

// PriorityRequest payload for PATCH /tickets/:id/priority.
type PriorityRequest struct {
	Priority domain.TicketPriority `json:"priority"`
}

// TicketSummary response.
type TicketSummary struct {
	ID           string                    `json:"id"`
	Number       string                    `json:"number"`
	ServiceID    string                    `json:"service_id"`
	RequesterID  string                    `json:"requester_id"`
	AssigneeID   *string                   `json:"assignee_id"`
	Title        string                    `json:"title"`
	Status       domain.TicketStatus       `json:"status"`
	Priority     domain.TicketPriority     `json:"priority"`
	Presentation domain.StatusPresentation `json:"presentation"`
	CreatedAt    time.Time                 `json:"created_at"`
	UpdatedAt    time.Time                 `json:"updated_at"`
}

// TicketDetailResponse provides full ticket info with its SLA snapshot.
type TicketDetailResponse struct {
	TicketSummary
	Description     string                `json:"description"`
	ResolutionNotes string                `json:"resolution_notes,omitempty"`
	ClaimedAt       *time.Time            `json:"claimed_at"`
	ResolvedAt      *time.Time            `json:"resolved_at"`
	ClosedAt        *time.Time            `json:"closed_at"`
	CancelledAt     *time.Time            `json:"cancelled_at"`
	SLA             lifecycle.SLASnapshot `json:"sla"`
}

// TicketHistoryResponse is an audit trail entry.
type TicketHistoryResponse struct {
	ID          string                  `json:"id"`
	ChangeType  domain.TicketChangeType `json:"change_type"`
	ChangedByID *string                 `json:"changed_by_id"`
	OldValue    map[string]any          `json:"old_value"`
	NewValue    map[string]any          `json:"new_value"`
	CreatedAt   time.Time               `json:"created_at"`
}

// TicketSummaryFromDomain maps a ticket to its list form.
func TicketSummaryFromDomain(ticket *domain.Ticket) TicketSummary {
	return TicketSummary{
		ID:           ticket.ID,
		Number:       ticket.Number,
		ServiceID:    ticket.ServiceID,
		RequesterID:  ticket.RequesterID,
		AssigneeID:   ticket.AssigneeID,
		Title:        ticket.Title,
		Status:       ticket.Status,
		Priority:     ticket.Priority,
		Presentation: domain.PresentationFor(ticket.Status),
		CreatedAt:    ticket.CreatedAt,
		UpdatedAt:    ticket.UpdatedAt,
	}
}

// TicketDetailFromDomain maps a ticket plus its SLA snapshot.
func TicketDetailFromDomain(ticket *domain.Ticket, sla lifecycle.SLASnapshot) TicketDetailResponse {
	return TicketDetailResponse{
		TicketSummary:   TicketSummaryFromDomain(ticket),
		Description:     ticket.Description,
		ResolutionNotes: ticket.ResolutionNotes,
		ClaimedAt:       ticket.ClaimedAt,
		ResolvedAt:      ticket.ResolvedAt,
		ClosedAt:        ticket.ClosedAt,
		CancelledAt:     ticket.CancelledAt,
		SLA:             sla,
	}
}

// HistoryFromDomain maps audit entries.
func HistoryFromDomain(entries []domain.TicketHistory) []TicketHistoryResponse {
	resp := make([]TicketHistoryResponse, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, TicketHistoryResponse{
			ID:          entry.ID,
			ChangeType:  entry.ChangeType,
			ChangedByID: entry.ChangedByID,
			OldValue:    entry.OldValue,
			NewValue:    entry.NewValue,
			CreatedAt:   entry.CreatedAt,
		})
	}
	return resp
}
