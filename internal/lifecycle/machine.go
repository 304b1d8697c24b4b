// Package lifecycle centralizes the ticket status machine, SLA deadline
// arithmetic and checklist time-window evaluation. Everything here is pure:
// callers load state, evaluate, and persist the result.
package lifecycle

import (
	"fmt"
	"strings"
	"time"

	"github.com/atlasbank/servicedesk/internal/domain"
)

// InvalidTransitionError reports an illegal status change attempt.
type InvalidTransitionError struct {
	From   domain.TicketStatus
	To     domain.TicketStatus
	Reason string
}

func (e *InvalidTransitionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid transition %s -> %s: %s", e.From, e.To, e.Reason)
	}
	return fmt.Sprintf("invalid transition %s -> %s", e.From, e.To)
}

// UnauthorizedTransitionError reports a role lacking permission for a change.
type UnauthorizedTransitionError struct {
	Role domain.Role
	To   domain.TicketStatus
}

func (e *UnauthorizedTransitionError) Error() string {
	return fmt.Sprintf("role %s may not transition ticket to %s", e.Role, e.To)
}

// TransitionRequest carries everything the guards need.
type TransitionRequest struct {
	Target    domain.TicketStatus
	ActorRole domain.Role
	// Notes carries resolution notes for RESOLVED and the reason for
	// REJECTED; guards require it non-empty for those targets.
	Notes string
	Now   time.Time
}

var allowedTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusOpen:            {domain.TicketStatusPendingApproval, domain.TicketStatusInProgress, domain.TicketStatusCancelled},
	domain.TicketStatusPendingApproval: {domain.TicketStatusApproved, domain.TicketStatusRejected, domain.TicketStatusCancelled},
	domain.TicketStatusApproved:        {domain.TicketStatusInProgress, domain.TicketStatusCancelled},
	domain.TicketStatusRejected:        {},
	domain.TicketStatusInProgress:      {domain.TicketStatusResolved, domain.TicketStatusCancelled},
	domain.TicketStatusResolved:        {domain.TicketStatusClosed},
	domain.TicketStatusClosed:          {},
	domain.TicketStatusCancelled:       {},
}

// CanTransition reports whether the adjacency table permits the change.
// Guards are checked separately by Transition.
func CanTransition(from, to domain.TicketStatus) bool {
	for _, candidate := range allowedTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// Targets returns the statuses reachable from the given one.
func Targets(from domain.TicketStatus) []domain.TicketStatus {
	return append([]domain.TicketStatus{}, allowedTransitions[from]...)
}

// Transition validates and applies a status change to the ticket in place.
// Requesting the current status is a no-op and returns changed=false.
// Timestamp fields are stamped exactly once; re-entering a state never
// overwrites an earlier stamp.
func Transition(ticket *domain.Ticket, svc *domain.Service, req TransitionRequest) (changed bool, err error) {
	if req.Target == ticket.Status {
		return false, nil
	}
	if !CanTransition(ticket.Status, req.Target) {
		return false, &InvalidTransitionError{From: ticket.Status, To: req.Target}
	}

	switch req.Target {
	case domain.TicketStatusPendingApproval:
		if svc == nil || !svc.RequiresApproval {
			return false, &InvalidTransitionError{From: ticket.Status, To: req.Target, Reason: "service does not require approval"}
		}
	case domain.TicketStatusApproved, domain.TicketStatusRejected:
		if !req.ActorRole.CanApprove() {
			return false, &UnauthorizedTransitionError{Role: req.ActorRole, To: req.Target}
		}
		if req.Target == domain.TicketStatusRejected && strings.TrimSpace(req.Notes) == "" {
			return false, &InvalidTransitionError{From: ticket.Status, To: req.Target, Reason: "rejection reason required"}
		}
	case domain.TicketStatusInProgress:
		if ticket.AssigneeID == nil {
			return false, &InvalidTransitionError{From: ticket.Status, To: req.Target, Reason: "assignee required"}
		}
		if !req.ActorRole.CanWorkTickets() {
			return false, &UnauthorizedTransitionError{Role: req.ActorRole, To: req.Target}
		}
	case domain.TicketStatusResolved:
		if strings.TrimSpace(req.Notes) == "" {
			return false, &InvalidTransitionError{From: ticket.Status, To: req.Target, Reason: "resolution notes required"}
		}
	}

	now := req.Now
	if now.IsZero() {
		now = time.Now()
	}

	ticket.Status = req.Target
	switch req.Target {
	case domain.TicketStatusInProgress:
		if ticket.ClaimedAt == nil {
			ticket.ClaimedAt = &now
		}
	case domain.TicketStatusResolved:
		ticket.ResolutionNotes = strings.TrimSpace(req.Notes)
		if ticket.ResolvedAt == nil {
			ticket.ResolvedAt = &now
		}
	case domain.TicketStatusClosed:
		if ticket.ClosedAt == nil {
			ticket.ClosedAt = &now
		}
	case domain.TicketStatusCancelled:
		if ticket.CancelledAt == nil {
			ticket.CancelledAt = &now
		}
	}
	return true, nil
}
