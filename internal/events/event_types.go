package events

import (
	"time"

	"github.com/atlasbank/servicedesk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated         EventType = "ticket_created"
	EventTicketStatusChanged   EventType = "ticket_status_changed"
	EventTicketClaimed         EventType = "ticket_claimed"
	EventApprovalDecided       EventType = "approval_decided"
	EventSLABreached           EventType = "sla_breached"
	EventChecklistClaimed      EventType = "checklist_claimed"
	EventChecklistItemUpdated  EventType = "checklist_item_updated"
	EventChecklistCompleted    EventType = "checklist_completed"
	EventTicketPriorityChanged EventType = "ticket_priority_changed"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	TicketID  string    `json:"ticket_id,omitempty"`
	ActorID   string    `json:"actor_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	ServiceID string                `json:"service_id"`
	Priority  domain.TicketPriority `json:"priority"`
	Title     string                `json:"title"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	Comment   string              `json:"comment,omitempty"`
}

// TicketClaimedPayload payload.
type TicketClaimedPayload struct {
	AssigneeID string `json:"assignee_id"`
}

// ApprovalDecidedPayload payload.
type ApprovalDecidedPayload struct {
	Status domain.ApprovalStatus `json:"status"`
	Reason string                `json:"reason,omitempty"`
}

// SLABreachedPayload payload.
type SLABreachedPayload struct {
	ResponseBreached   bool `json:"response_breached"`
	ResolutionBreached bool `json:"resolution_breached"`
}

// ChecklistClaimedPayload payload.
type ChecklistClaimedPayload struct {
	InstanceID    string               `json:"instance_id"`
	ChecklistType domain.ChecklistType `json:"checklist_type"`
	Date          time.Time            `json:"date"`
}

// ChecklistItemUpdatedPayload payload.
type ChecklistItemUpdatedPayload struct {
	InstanceID string                     `json:"instance_id"`
	ItemID     string                     `json:"item_id"`
	Status     domain.ChecklistItemStatus `json:"status"`
}

// TicketPriorityChangedPayload payload.
type TicketPriorityChangedPayload struct {
	OldPriority domain.TicketPriority `json:"old_priority"`
	NewPriority domain.TicketPriority `json:"new_priority"`
}
