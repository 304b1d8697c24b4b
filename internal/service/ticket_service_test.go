package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlasbank/servicedesk/internal/domain"
	"github.com/atlasbank/servicedesk/internal/events"
	apperrors "github.com/atlasbank/servicedesk/pkg/util/errorutil"
)

type ticketFixture struct {
	service   *TicketService
	tickets   *fakeTicketRepo
	services  *fakeServiceRepo
	approvals *fakeApprovalRepo
	sla       *fakeSLARepo
	history   *fakeHistoryRepo
	published *capturedEvents
}

func newTicketFixture(t *testing.T, services ...*domain.Service) *ticketFixture {
	t.Helper()
	f := &ticketFixture{
		tickets:   newFakeTicketRepo(),
		services:  newFakeServiceRepo(services...),
		approvals: &fakeApprovalRepo{},
		sla:       newFakeSLARepo(),
		history:   &fakeHistoryRepo{},
		published: &capturedEvents{},
	}
	f.service = NewTicketService(TicketDependencies{
		TicketRepo:   f.tickets,
		ServiceRepo:  f.services,
		ApprovalRepo: f.approvals,
		SLARepo:      f.sla,
		HistoryRepo:  f.history,
		Dispatcher:   f.published,
	})
	return f
}

func plainService() *domain.Service {
	return &domain.Service{
		ID:              "svc-plain",
		Name:            "Password Reset",
		ResponseHours:   2,
		ResolutionHours: 8,
		IsActive:        true,
	}
}

func gatedService() *domain.Service {
	return &domain.Service{
		ID:               "svc-gated",
		Name:             "VPN Access",
		RequiresApproval: true,
		ResponseHours:    4,
		ResolutionHours:  24,
		IsActive:         true,
	}
}

func technician() *domain.User {
	return &domain.User{ID: "tech-1", Role: domain.RoleTechnician, IsActive: true}
}

func manager() *domain.User {
	return &domain.User{ID: "mgr-1", Role: domain.RoleManager, IsActive: true}
}

func requester() *domain.User {
	return &domain.User{ID: "req-1", Role: domain.RoleRequester, IsActive: true}
}

func TestCreateTicketStartsOpen(t *testing.T) {
	f := newTicketFixture(t, plainService())

	ticket, err := f.service.CreateTicket(context.Background(), "req-1", TicketCreateInput{
		ServiceID: "svc-plain",
		Title:     "Cannot log in",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	assert.Equal(t, domain.TicketPriorityMedium, ticket.Priority)
	assert.NotEmpty(t, ticket.Number)

	record, err := f.sla.GetByTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.NotNil(t, record.ResponseDeadline)
	assert.Len(t, f.published.ofType(events.EventTicketCreated), 1)
}

func TestCreateTicketApprovalGatedStartsPending(t *testing.T) {
	f := newTicketFixture(t, gatedService())

	ticket, err := f.service.CreateTicket(context.Background(), "req-1", TicketCreateInput{
		ServiceID: "svc-gated",
		Title:     "Need VPN",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusPendingApproval, ticket.Status)
}

func TestCreateTicketUnknownService(t *testing.T) {
	f := newTicketFixture(t)

	_, err := f.service.CreateTicket(context.Background(), "req-1", TicketCreateInput{
		ServiceID: "missing",
		Title:     "x",
	})
	domainErr := apperrors.ToDomainError(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, "NOT_FOUND", domainErr.Code)
}

func TestClaimTicketAssignsAndStartsProgress(t *testing.T) {
	f := newTicketFixture(t, plainService())
	ticket, err := f.service.CreateTicket(context.Background(), "req-1", TicketCreateInput{
		ServiceID: "svc-plain", Title: "broken printer",
	})
	require.NoError(t, err)

	claimed, err := f.service.ClaimTicket(context.Background(), technician(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, claimed.Status)
	require.NotNil(t, claimed.AssigneeID)
	assert.Equal(t, "tech-1", *claimed.AssigneeID)
	assert.NotNil(t, claimed.ClaimedAt)
	assert.Len(t, f.published.ofType(events.EventTicketClaimed), 1)
}

func TestClaimTicketSecondClaimerConflicts(t *testing.T) {
	f := newTicketFixture(t, plainService())
	ticket, err := f.service.CreateTicket(context.Background(), "req-1", TicketCreateInput{
		ServiceID: "svc-plain", Title: "broken printer",
	})
	require.NoError(t, err)

	_, err = f.service.ClaimTicket(context.Background(), technician(), ticket.ID)
	require.NoError(t, err)

	other := &domain.User{ID: "tech-2", Role: domain.RoleTechnician, IsActive: true}
	_, err = f.service.ClaimTicket(context.Background(), other, ticket.ID)
	domainErr := apperrors.ToDomainError(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, "CONFLICT", domainErr.Code)
}

func TestClaimTicketRequesterForbidden(t *testing.T) {
	f := newTicketFixture(t, plainService())
	ticket, err := f.service.CreateTicket(context.Background(), "req-1", TicketCreateInput{
		ServiceID: "svc-plain", Title: "broken printer",
	})
	require.NoError(t, err)

	_, err = f.service.ClaimTicket(context.Background(), requester(), ticket.ID)
	domainErr := apperrors.ToDomainError(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, "FORBIDDEN", domainErr.Code)
}

func TestClaimTicketRequiresApprovalDecision(t *testing.T) {
	f := newTicketFixture(t, gatedService())
	ticket, err := f.service.CreateTicket(context.Background(), "req-1", TicketCreateInput{
		ServiceID: "svc-gated", Title: "Need VPN",
	})
	require.NoError(t, err)

	// Pending approval: not claimable at all.
	_, err = f.service.ClaimTicket(context.Background(), technician(), ticket.ID)
	domainErr := apperrors.ToDomainError(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, "INVALID_TRANSITION", domainErr.Code)

	// Approve, then claiming succeeds.
	_, err = f.service.Transition(context.Background(), manager(), ticket.ID, domain.TicketStatusApproved, "ok")
	require.NoError(t, err)
	require.NoError(t, f.approvals.Create(context.Background(), &domain.Approval{
		TicketID:   ticket.ID,
		ApproverID: "mgr-1",
		Status:     domain.ApprovalStatusApproved,
	}))

	claimed, err := f.service.ClaimTicket(context.Background(), technician(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, claimed.Status)
}

func TestTransitionResolveRequiresNotes(t *testing.T) {
	f := newTicketFixture(t, plainService())
	ticket, err := f.service.CreateTicket(context.Background(), "req-1", TicketCreateInput{
		ServiceID: "svc-plain", Title: "broken printer",
	})
	require.NoError(t, err)
	_, err = f.service.ClaimTicket(context.Background(), technician(), ticket.ID)
	require.NoError(t, err)

	_, err = f.service.Transition(context.Background(), technician(), ticket.ID, domain.TicketStatusResolved, "   ")
	domainErr := apperrors.ToDomainError(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, "INVALID_TRANSITION", domainErr.Code)
	assert.Equal(t, 422, domainErr.HTTPStatus)

	resolved, err := f.service.Transition(context.Background(), technician(), ticket.ID, domain.TicketStatusResolved, "replaced toner")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusResolved, resolved.Status)
	assert.Equal(t, "replaced toner", resolved.ResolutionNotes)
	assert.NotNil(t, resolved.ResolvedAt)
}

func TestTransitionRecordsHistoryAndEvents(t *testing.T) {
	f := newTicketFixture(t, plainService())
	ticket, err := f.service.CreateTicket(context.Background(), "req-1", TicketCreateInput{
		ServiceID: "svc-plain", Title: "broken printer",
	})
	require.NoError(t, err)

	_, err = f.service.Transition(context.Background(), requester(), ticket.ID, domain.TicketStatusCancelled, "no longer needed")
	require.NoError(t, err)

	require.Len(t, f.history.entries, 1)
	assert.Equal(t, domain.ChangeTypeStatus, f.history.entries[0].ChangeType)
	assert.Len(t, f.published.ofType(events.EventTicketStatusChanged), 1)
}

func TestTransitionSameStatusIsNoOpAtServiceLevel(t *testing.T) {
	f := newTicketFixture(t, plainService())
	ticket, err := f.service.CreateTicket(context.Background(), "req-1", TicketCreateInput{
		ServiceID: "svc-plain", Title: "broken printer",
	})
	require.NoError(t, err)

	same, err := f.service.Transition(context.Background(), requester(), ticket.ID, domain.TicketStatusOpen, "")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, same.Status)
	assert.Empty(t, f.history.entries, "no-op must not write history")
	assert.Empty(t, f.published.ofType(events.EventTicketStatusChanged))
}

func TestGetTicketScopesRequesters(t *testing.T) {
	f := newTicketFixture(t, plainService())
	ticket, err := f.service.CreateTicket(context.Background(), "req-1", TicketCreateInput{
		ServiceID: "svc-plain", Title: "broken printer",
	})
	require.NoError(t, err)

	stranger := &domain.User{ID: "req-2", Role: domain.RoleRequester, IsActive: true}
	_, err = f.service.GetTicket(context.Background(), stranger, ticket.ID)
	domainErr := apperrors.ToDomainError(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, "FORBIDDEN", domainErr.Code)

	view, err := f.service.GetTicket(context.Background(), requester(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, ticket.ID, view.Ticket.ID)
	assert.Equal(t, "Open", view.Presentation.Label)
	assert.NotNil(t, view.SLA.ResponseDeadline)
}

func TestListTicketsScopesRequesters(t *testing.T) {
	f := newTicketFixture(t, plainService())
	_, err := f.service.CreateTicket(context.Background(), "req-1", TicketCreateInput{
		ServiceID: "svc-plain", Title: "mine",
	})
	require.NoError(t, err)
	_, err = f.service.CreateTicket(context.Background(), "req-2", TicketCreateInput{
		ServiceID: "svc-plain", Title: "theirs",
	})
	require.NoError(t, err)

	mine, err := f.service.ListTickets(context.Background(), requester(), TicketListFilter{})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "mine", mine[0].Title)

	all, err := f.service.ListTickets(context.Background(), technician(), TicketListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSLABreachFlagIsSticky(t *testing.T) {
	f := newTicketFixture(t, plainService())
	base := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	f.service.now = func() time.Time { return base }

	ticket, err := f.service.CreateTicket(context.Background(), "req-1", TicketCreateInput{
		ServiceID: "svc-plain", Title: "slow request",
	})
	require.NoError(t, err)

	// Past the 2h response target: the sync marks the breach.
	f.service.now = func() time.Time { return base.Add(3 * time.Hour) }
	_, err = f.service.ClaimTicket(context.Background(), technician(), ticket.ID)
	require.NoError(t, err)

	record, err := f.sla.GetByTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.True(t, record.IsResponseBreached)

	// Later syncs must not clear the persisted flag.
	_, err = f.service.Transition(context.Background(), technician(), ticket.ID, domain.TicketStatusResolved, "done")
	require.NoError(t, err)
	record, err = f.sla.GetByTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.True(t, record.IsResponseBreached, "breach flag must stay set")
}

func TestUpdatePriority(t *testing.T) {
	f := newTicketFixture(t, plainService())
	ticket, err := f.service.CreateTicket(context.Background(), "req-1", TicketCreateInput{
		ServiceID: "svc-plain", Title: "slow laptop",
	})
	require.NoError(t, err)

	_, err = f.service.UpdatePriority(context.Background(), technician(), ticket.ID, domain.TicketPriority("WHENEVER"))
	domainErr := apperrors.ToDomainError(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, "VALIDATION_FAILED", domainErr.Code)

	_, err = f.service.UpdatePriority(context.Background(), requester(), ticket.ID, domain.TicketPriorityHigh)
	domainErr = apperrors.ToDomainError(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, "FORBIDDEN", domainErr.Code)

	updated, err := f.service.UpdatePriority(context.Background(), technician(), ticket.ID, domain.TicketPriorityHigh)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketPriorityHigh, updated.Priority)
	require.Len(t, f.history.entries, 1)
	assert.Equal(t, domain.ChangeTypePriority, f.history.entries[0].ChangeType)
	assert.Len(t, f.published.ofType(events.EventTicketPriorityChanged), 1)

	// Same priority is a no-op.
	_, err = f.service.UpdatePriority(context.Background(), technician(), ticket.ID, domain.TicketPriorityHigh)
	require.NoError(t, err)
	assert.Len(t, f.history.entries, 1)
}

func TestUpdatePriorityRejectsClosedTicket(t *testing.T) {
	f := newTicketFixture(t, plainService())
	ticket, err := f.service.CreateTicket(context.Background(), "req-1", TicketCreateInput{
		ServiceID: "svc-plain", Title: "stale request",
	})
	require.NoError(t, err)
	_, err = f.service.Transition(context.Background(), requester(), ticket.ID, domain.TicketStatusCancelled, "")
	require.NoError(t, err)

	_, err = f.service.UpdatePriority(context.Background(), technician(), ticket.ID, domain.TicketPriorityUrgent)
	domainErr := apperrors.ToDomainError(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, "CONFLICT", domainErr.Code)
}

func TestMapLifecycleErrorPassthrough(t *testing.T) {
	err := mapLifecycleError(errors.New("boom"))
	domainErr := apperrors.ToDomainError(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, "INTERNAL_ERROR", domainErr.Code)
}
