package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen            TicketStatus = "OPEN"
	TicketStatusPendingApproval TicketStatus = "PENDING_APPROVAL"
	TicketStatusApproved        TicketStatus = "APPROVED"
	TicketStatusRejected        TicketStatus = "REJECTED"
	TicketStatusInProgress      TicketStatus = "IN_PROGRESS"
	TicketStatusResolved        TicketStatus = "RESOLVED"
	TicketStatusClosed          TicketStatus = "CLOSED"
	TicketStatusCancelled       TicketStatus = "CANCELLED"
)

// IsTerminal reports whether no further transitions leave the status.
func (s TicketStatus) IsTerminal() bool {
	return s == TicketStatusClosed || s == TicketStatusCancelled || s == TicketStatusRejected
}

// TicketPriority enumerates urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityHigh   TicketPriority = "HIGH"
	TicketPriorityUrgent TicketPriority = "URGENT"
)

// Ticket is the aggregate for service-desk requests.
type Ticket struct {
	ID              string
	Number          string
	RequesterID     string
	ServiceID       string
	AssigneeID      *string
	Title           string
	Description     string
	Status          TicketStatus
	Priority        TicketPriority
	ResolutionNotes string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ClaimedAt       *time.Time
	ResolvedAt      *time.Time
	ClosedAt        *time.Time
	CancelledAt     *time.Time
}
