package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlasbank/servicedesk/internal/domain"
	"github.com/atlasbank/servicedesk/internal/events"
	apperrors "github.com/atlasbank/servicedesk/pkg/util/errorutil"
)

func newApprovalFixture(t *testing.T) (*ApprovalService, *ticketFixture) {
	t.Helper()
	f := newTicketFixture(t, gatedService())
	return NewApprovalService(f.approvals, f.history, f.service), f
}

func pendingTicket(t *testing.T, f *ticketFixture) *domain.Ticket {
	t.Helper()
	ticket, err := f.service.CreateTicket(context.Background(), "req-1", TicketCreateInput{
		ServiceID: "svc-gated", Title: "Need VPN",
	})
	require.NoError(t, err)
	require.Equal(t, domain.TicketStatusPendingApproval, ticket.Status)
	return ticket
}

func TestDecideApproveMovesTicket(t *testing.T) {
	svc, f := newApprovalFixture(t)
	ticket := pendingTicket(t, f)

	approval, err := svc.Decide(context.Background(), manager(), ticket.ID, domain.ApprovalStatusApproved, "")
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalStatusApproved, approval.Status)

	updated, err := f.tickets.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusApproved, updated.Status)
	assert.Len(t, f.published.ofType(events.EventApprovalDecided), 1)
}

func TestDecideRejectRequiresReason(t *testing.T) {
	svc, f := newApprovalFixture(t)
	ticket := pendingTicket(t, f)

	_, err := svc.Decide(context.Background(), manager(), ticket.ID, domain.ApprovalStatusRejected, "  ")
	domainErr := apperrors.ToDomainError(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, "VALIDATION_FAILED", domainErr.Code)

	approval, err := svc.Decide(context.Background(), manager(), ticket.ID, domain.ApprovalStatusRejected, "not entitled")
	require.NoError(t, err)
	assert.Equal(t, "not entitled", approval.Reason)

	updated, err := f.tickets.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusRejected, updated.Status)
}

func TestDecideRejectsNonManagers(t *testing.T) {
	svc, f := newApprovalFixture(t)
	ticket := pendingTicket(t, f)

	_, err := svc.Decide(context.Background(), technician(), ticket.ID, domain.ApprovalStatusApproved, "")
	domainErr := apperrors.ToDomainError(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, "FORBIDDEN", domainErr.Code)

	// No approval row may exist after a rejected attempt.
	approvals, err := svc.ListByTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Empty(t, approvals)
}

func TestDecideRejectsDecidedTicket(t *testing.T) {
	svc, f := newApprovalFixture(t)
	ticket := pendingTicket(t, f)

	_, err := svc.Decide(context.Background(), manager(), ticket.ID, domain.ApprovalStatusApproved, "")
	require.NoError(t, err)

	_, err = svc.Decide(context.Background(), manager(), ticket.ID, domain.ApprovalStatusRejected, "changed my mind")
	domainErr := apperrors.ToDomainError(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, "INVALID_TRANSITION", domainErr.Code)
}

func TestDecideValidatesStatus(t *testing.T) {
	svc, f := newApprovalFixture(t)
	ticket := pendingTicket(t, f)

	_, err := svc.Decide(context.Background(), manager(), ticket.ID, domain.ApprovalStatus("MAYBE"), "")
	domainErr := apperrors.ToDomainError(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, "VALIDATION_FAILED", domainErr.Code)
}
