package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"

	"github.com/atlasbank/servicedesk/internal/domain"
	"github.com/atlasbank/servicedesk/internal/events"
	"github.com/atlasbank/servicedesk/internal/lifecycle"
	"github.com/atlasbank/servicedesk/internal/repository"
	apperrors "github.com/atlasbank/servicedesk/pkg/util/errorutil"
)

// TicketService coordinates ticket workflows: creation, claim arbitration
// and status transitions through the lifecycle machine.
type TicketService struct {
	tickets    repository.TicketRepository
	services   repository.ServiceRepository
	approvals  repository.ApprovalRepository
	sla        repository.SLARepository
	history    repository.TicketHistoryRepository
	dispatcher events.Dispatcher
	claimGuard *redis.Client
	claimTTL   time.Duration
	now        func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo   repository.TicketRepository
	ServiceRepo  repository.ServiceRepository
	ApprovalRepo repository.ApprovalRepository
	SLARepo      repository.SLARepository
	HistoryRepo  repository.TicketHistoryRepository
	Dispatcher   events.Dispatcher
	ClaimGuard   *redis.Client
	ClaimTTL     time.Duration
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	ServiceID   string
	Title       string
	Description string
	Priority    domain.TicketPriority
}

// TicketListFilter describes listing filters.
type TicketListFilter struct {
	RequesterID *string
	ServiceID   *string
	AssigneeID  *string
	Unassigned  bool
	Statuses    []domain.TicketStatus
	Priorities  []domain.TicketPriority
	SearchTerm  *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// TicketView pairs a ticket with its live SLA snapshot and presentation.
type TicketView struct {
	Ticket       *domain.Ticket
	SLA          lifecycle.SLASnapshot
	Presentation domain.StatusPresentation
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		services:   deps.ServiceRepo,
		approvals:  deps.ApprovalRepo,
		sla:        deps.SLARepo,
		history:    deps.HistoryRepo,
		dispatcher: deps.Dispatcher,
		claimGuard: deps.ClaimGuard,
		claimTTL:   deps.ClaimTTL,
		now:        time.Now,
	}
}

// CreateTicket creates a ticket for a requester. Approval-gated services
// start in PENDING_APPROVAL, everything else in OPEN.
func (s *TicketService) CreateTicket(ctx context.Context, requesterID string, input TicketCreateInput) (*domain.Ticket, error) {
	svc, err := s.services.GetByID(ctx, input.ServiceID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("service", map[string]any{"service_id": input.ServiceID})
		}
		return nil, apperrors.MapError(err)
	}
	if !svc.IsActive {
		return nil, apperrors.NewConflict("service inactive", map[string]any{"service_id": svc.ID})
	}

	status := domain.TicketStatusOpen
	if svc.RequiresApproval {
		status = domain.TicketStatusPendingApproval
	}

	ticket := &domain.Ticket{
		Number:      generateTicketNumber(),
		RequesterID: requesterID,
		ServiceID:   svc.ID,
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		Status:      status,
		Priority:    input.Priority,
	}
	if ticket.Priority == "" {
		ticket.Priority = domain.TicketPriorityMedium
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	if err := s.syncSLARecord(ctx, ticket, svc); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		ActorID:  requesterID,
		Payload: events.TicketCreatedPayload{
			ServiceID: ticket.ServiceID,
			Priority:  ticket.Priority,
			Title:     ticket.Title,
		},
	})
	return ticket, nil
}

// Transition requests a status change on behalf of an actor. The lifecycle
// machine validates the adjacency table and guards; a request for the
// current status is a no-op.
func (s *TicketService) Transition(ctx context.Context, actor *domain.User, ticketID string, target domain.TicketStatus, notes string) (*domain.Ticket, error) {
	ticket, svc, err := s.loadTicketWithService(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	oldStatus := ticket.Status
	changed, err := lifecycle.Transition(ticket, svc, lifecycle.TransitionRequest{
		Target:    target,
		ActorRole: actor.Role,
		Notes:     notes,
		Now:       s.now(),
	})
	if err != nil {
		return nil, mapLifecycleError(err)
	}
	if !changed {
		return ticket, nil
	}

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	if err := s.syncSLARecord(ctx, ticket, svc); err != nil {
		return nil, err
	}
	if err := s.recordStatusChange(ctx, &actor.ID, ticket.ID, oldStatus, ticket.Status, notes); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticket.ID,
		ActorID:  actor.ID,
		Payload: events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: ticket.Status,
			Comment:   notes,
		},
	})
	return ticket, nil
}

// ClaimTicket assigns an unassigned OPEN or APPROVED ticket to the actor and
// moves it to IN_PROGRESS. A short-lived Redis lock narrows the race window;
// the conditional UPDATE in storage decides the winner.
func (s *TicketService) ClaimTicket(ctx context.Context, actor *domain.User, ticketID string) (*domain.Ticket, error) {
	if !actor.Role.CanWorkTickets() {
		return nil, apperrors.NewForbidden("only technicians can claim tickets")
	}

	ticket, svc, err := s.loadTicketWithService(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status != domain.TicketStatusOpen && ticket.Status != domain.TicketStatusApproved {
		return nil, apperrors.NewInvalidTransition("ticket is not claimable in its current status",
			string(ticket.Status), string(domain.TicketStatusInProgress))
	}
	if ticket.AssigneeID != nil {
		if *ticket.AssigneeID == actor.ID {
			return nil, apperrors.NewConflict("ticket already claimed by you", nil)
		}
		return nil, apperrors.NewConflict("ticket already assigned", map[string]any{"assignee_id": *ticket.AssigneeID})
	}
	if svc.RequiresApproval {
		latest, err := s.approvals.GetLatestByTicket(ctx, ticket.ID)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.MapError(err)
		}
		if latest == nil || latest.Status != domain.ApprovalStatusApproved {
			return nil, apperrors.NewForbidden("ticket requires manager approval before it can be claimed")
		}
	}
	if svc.SupportGroupID != nil && actor.Role == domain.RoleTechnician {
		if actor.SupportGroupID == nil || *actor.SupportGroupID != *svc.SupportGroupID {
			return nil, apperrors.NewForbidden("ticket belongs to another support group")
		}
	}

	release, err := s.acquireClaimGuard(ctx, ticket.ID, actor.ID)
	if err != nil {
		return nil, err
	}
	defer release()

	won, err := s.tickets.ClaimAssign(ctx, ticket.ID, actor.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if !won {
		return nil, apperrors.NewConflict("ticket was claimed by another technician", nil)
	}
	ticket.AssigneeID = &actor.ID

	oldStatus := ticket.Status
	if _, err := lifecycle.Transition(ticket, svc, lifecycle.TransitionRequest{
		Target:    domain.TicketStatusInProgress,
		ActorRole: actor.Role,
		Now:       s.now(),
	}); err != nil {
		return nil, mapLifecycleError(err)
	}
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	if err := s.syncSLARecord(ctx, ticket, svc); err != nil {
		return nil, err
	}
	if err := s.recordStatusChange(ctx, &actor.ID, ticket.ID, oldStatus, ticket.Status, "claimed"); err != nil {
		return nil, apperrors.MapError(err)
	}
	if s.history != nil {
		entry := &domain.TicketHistory{
			TicketID:    ticket.ID,
			ChangedByID: &actor.ID,
			ChangeType:  domain.ChangeTypeAssignee,
			OldValue:    map[string]any{"assignee_id": nil},
			NewValue:    map[string]any{"assignee_id": actor.ID},
		}
		if err := s.history.Create(ctx, entry); err != nil {
			return nil, apperrors.MapError(err)
		}
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketClaimed,
		TicketID: ticket.ID,
		ActorID:  actor.ID,
		Payload:  events.TicketClaimedPayload{AssigneeID: actor.ID},
	})
	return ticket, nil
}

// UpdatePriority changes the urgency of a non-terminal ticket.
func (s *TicketService) UpdatePriority(ctx context.Context, actor *domain.User, ticketID string, priority domain.TicketPriority) (*domain.Ticket, error) {
	switch priority {
	case domain.TicketPriorityLow, domain.TicketPriorityMedium,
		domain.TicketPriorityHigh, domain.TicketPriorityUrgent:
	default:
		return nil, apperrors.NewValidationError("unknown priority", nil)
	}
	if !actor.Role.CanWorkTickets() {
		return nil, apperrors.NewForbidden("only technicians can change priority")
	}

	ticket, _, err := s.loadTicketWithService(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status.IsTerminal() {
		return nil, apperrors.NewConflict("ticket is closed", map[string]any{"status": ticket.Status})
	}
	if ticket.Priority == priority {
		return ticket, nil
	}

	oldPriority := ticket.Priority
	ticket.Priority = priority
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	if s.history != nil {
		entry := &domain.TicketHistory{
			TicketID:    ticket.ID,
			ChangedByID: &actor.ID,
			ChangeType:  domain.ChangeTypePriority,
			OldValue:    map[string]any{"priority": oldPriority},
			NewValue:    map[string]any{"priority": priority},
		}
		if err := s.history.Create(ctx, entry); err != nil {
			return nil, apperrors.MapError(err)
		}
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketPriorityChanged,
		TicketID: ticket.ID,
		ActorID:  actor.ID,
		Payload: events.TicketPriorityChangedPayload{
			OldPriority: oldPriority,
			NewPriority: priority,
		},
	})
	return ticket, nil
}

// ListPendingApprovals returns tickets awaiting a manager decision.
func (s *TicketService) ListPendingApprovals(ctx context.Context, limit, offset int) ([]domain.Ticket, error) {
	tickets, err := s.tickets.ListWithFilter(ctx, repository.TicketFilter{
		Statuses: []domain.TicketStatus{domain.TicketStatusPendingApproval},
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// GetTicket returns the ticket with its live SLA snapshot. Requesters may
// only see their own tickets.
func (s *TicketService) GetTicket(ctx context.Context, actor *domain.User, ticketID string) (*TicketView, error) {
	ticket, svc, err := s.loadTicketWithService(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if actor.Role == domain.RoleRequester && ticket.RequesterID != actor.ID {
		return nil, apperrors.NewForbidden("access denied")
	}
	return &TicketView{
		Ticket:       ticket,
		SLA:          lifecycle.ComputeSLA(ticket, svc, s.now()),
		Presentation: domain.PresentationFor(ticket.Status),
	}, nil
}

// ComputeSLA exposes the live snapshot for a loaded ticket.
func (s *TicketService) ComputeSLA(ctx context.Context, ticketID string) (lifecycle.SLASnapshot, error) {
	ticket, svc, err := s.loadTicketWithService(ctx, ticketID)
	if err != nil {
		return lifecycle.SLASnapshot{}, err
	}
	return lifecycle.ComputeSLA(ticket, svc, s.now()), nil
}

// ListTickets returns tickets matching the filter; requesters are scoped to
// their own.
func (s *TicketService) ListTickets(ctx context.Context, actor *domain.User, filter TicketListFilter) ([]domain.Ticket, error) {
	repoFilter := repository.TicketFilter{
		RequesterID: filter.RequesterID,
		ServiceID:   filter.ServiceID,
		AssigneeID:  filter.AssigneeID,
		Unassigned:  filter.Unassigned,
		Statuses:    filter.Statuses,
		Priorities:  filter.Priorities,
		SearchTerm:  filter.SearchTerm,
		CreatedFrom: filter.CreatedFrom,
		CreatedTo:   filter.CreatedTo,
		Limit:       filter.Limit,
		Offset:      filter.Offset,
	}
	if actor.Role == domain.RoleRequester {
		repoFilter.RequesterID = &actor.ID
	}
	tickets, err := s.tickets.ListWithFilter(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// ListHistory returns audit entries for a ticket.
func (s *TicketService) ListHistory(ctx context.Context, actor *domain.User, ticketID string, limit, offset int) ([]domain.TicketHistory, error) {
	ticket, _, err := s.loadTicketWithService(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if actor.Role == domain.RoleRequester && ticket.RequesterID != actor.ID {
		return nil, apperrors.NewForbidden("access denied")
	}
	entries, err := s.history.ListByTicket(ctx, ticketID, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

func (s *TicketService) loadTicketWithService(ctx context.Context, ticketID string) (*domain.Ticket, *domain.Service, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, nil, apperrors.MapError(err)
	}
	svc, err := s.services.GetByID(ctx, ticket.ServiceID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, apperrors.NewNotFound("service", map[string]any{"service_id": ticket.ServiceID})
		}
		return nil, nil, apperrors.MapError(err)
	}
	return ticket, svc, nil
}

// syncSLARecord persists the live snapshot. The breach flags only ever
/// accumulate: the upsert ORs them with what is already stored.
func (s *TicketService) syncSLARecord(ctx context.Context, ticket *domain.Ticket, svc *domain.Service) error {
	if s.sla == nil {
		return nil
	}
	snap := lifecycle.ComputeSLA(ticket, svc, s.now())
	record := &domain.SLATracking{
		TicketID:             ticket.ID,
		ResponseDeadline:     snap.ResponseDeadline,
		ResolutionDeadline:   snap.ResolutionDeadline,
		IsResponseBreached:   snap.IsResponseBreached,
		IsResolutionBreached: snap.IsResolutionBreached,
		ResponseTime:         snap.ResponseTime,
		ResolutionTime:       snap.ResolutionTime,
	}
	if err := s.sla.Upsert(ctx, record); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

func (s *TicketService) acquireClaimGuard(ctx context.Context, ticketID, actorID string) (func(), error) {
	if s.claimGuard == nil {
		return func() {}, nil
	}
	key := "servicedesk:claim:ticket:" + ticketID
	ttl := s.claimTTL
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	ok, err := s.claimGuard.SetNX(ctx, key, actorID, ttl).Result()
	if err != nil {
		// Redis being down must not block claims; storage still arbitrates.
		return func() {}, nil
	}
	if !ok {
		return nil, apperrors.NewConflict("ticket claim in progress, retry shortly", nil)
	}
	return func() {
		_ = s.claimGuard.Del(context.WithoutCancel(ctx), key).Err()
	}, nil
}

func (s *TicketService) recordStatusChange(ctx context.Context, actorID *string, ticketID string, oldStatus, newStatus domain.TicketStatus, comment string) error {
	if s.history == nil {
		return nil
	}
	entry := &domain.TicketHistory{
		TicketID:    ticketID,
		ChangedByID: actorID,
		ChangeType:  domain.ChangeTypeStatus,
		OldValue: map[string]any{
			"status": oldStatus,
		},
		NewValue: map[string]any{
			"status":  newStatus,
			"comment": comment,
		},
	}
	return s.history.Create(ctx, entry)
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func generateTicketNumber() string {
	return "TKT-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func mapLifecycleError(err error) error {
	var invalid *lifecycle.InvalidTransitionError
	if errors.As(err, &invalid) {
		return apperrors.NewInvalidTransition(invalid.Error(), string(invalid.From), string(invalid.To))
	}
	var unauthorized *lifecycle.UnauthorizedTransitionError
	if errors.As(err, &unauthorized) {
		return apperrors.NewForbidden(unauthorized.Error())
	}
	return apperrors.MapError(err)
}
