package service

import (
	"context"
	"strings"

	"github.com/atlasbank/servicedesk/internal/domain"
	"github.com/atlasbank/servicedesk/internal/events"
	"github.com/atlasbank/servicedesk/internal/repository"
	apperrors "github.com/atlasbank/servicedesk/pkg/util/errorutil"
)

// ApprovalService records manager decisions and drives the corresponding
// ticket transition. The latest approval per ticket is authoritative.
type ApprovalService struct {
	approvals repository.ApprovalRepository
	history   repository.TicketHistoryRepository
	tickets   *TicketService
}

// NewApprovalService constructs the service.
func NewApprovalService(approvals repository.ApprovalRepository, history repository.TicketHistoryRepository, tickets *TicketService) *ApprovalService {
	return &ApprovalService{approvals: approvals, history: history, tickets: tickets}
}

// Decide approves or rejects a pending ticket. A reason is mandatory for
// rejection; the transition guard enforces the manager role.
func (s *ApprovalService) Decide(ctx context.Context, approver *domain.User, ticketID string, status domain.ApprovalStatus, reason string) (*domain.Approval, error) {
	if status != domain.ApprovalStatusApproved && status != domain.ApprovalStatusRejected {
		return nil, apperrors.NewValidationError("status must be APPROVED or REJECTED", nil)
	}
	reason = strings.TrimSpace(reason)
	if status == domain.ApprovalStatusRejected && reason == "" {
		return nil, apperrors.NewValidationError("reason required when rejecting", nil)
	}

	target := domain.TicketStatusApproved
	notes := reason
	if status == domain.ApprovalStatusRejected {
		target = domain.TicketStatusRejected
	} else if notes == "" {
		notes = "approved"
	}

	// Transition first: it validates PENDING_APPROVAL state and the
	// approver's role before any approval row is written.
	ticket, err := s.tickets.Transition(ctx, approver, ticketID, target, notes)
	if err != nil {
		return nil, err
	}

	approval := &domain.Approval{
		TicketID:   ticket.ID,
		ApproverID: approver.ID,
		Status:     status,
		Reason:     reason,
	}
	if err := s.approvals.Create(ctx, approval); err != nil {
		return nil, apperrors.MapError(err)
	}

	if s.history != nil {
		entry := &domain.TicketHistory{
			TicketID:    ticket.ID,
			ChangedByID: &approver.ID,
			ChangeType:  domain.ChangeTypeApproval,
			OldValue:    map[string]any{"status": domain.TicketStatusPendingApproval},
			NewValue:    map[string]any{"decision": status, "reason": reason},
		}
		_ = s.history.Create(ctx, entry)
	}

	s.tickets.publishEvent(ctx, events.Event{
		Type:     events.EventApprovalDecided,
		TicketID: ticket.ID,
		ActorID:  approver.ID,
		Payload: events.ApprovalDecidedPayload{
			Status: status,
			Reason: reason,
		},
	})
	return approval, nil
}

// ListByTicket returns the approval trail for a ticket.
func (s *ApprovalService) ListByTicket(ctx context.Context, ticketID string) ([]domain.Approval, error) {
	approvals, err := s.approvals.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return approvals, nil
}
