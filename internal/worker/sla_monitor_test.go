package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/atlasbank/servicedesk/internal/domain"
	"github.com/atlasbank/servicedesk/internal/events"
	"github.com/atlasbank/servicedesk/internal/observability"
	"github.com/atlasbank/servicedesk/internal/repository"

	"github.com/jackc/pgx/v5"
)

type stubTicketRepo struct {
	tickets []domain.Ticket
}

func (s *stubTicketRepo) Create(context.Context, *domain.Ticket) error { return nil }
func (s *stubTicketRepo) Update(context.Context, *domain.Ticket) error { return nil }
func (s *stubTicketRepo) GetByID(context.Context, string) (*domain.Ticket, error) {
	return nil, pgx.ErrNoRows
}
func (s *stubTicketRepo) GetByNumber(context.Context, string) (*domain.Ticket, error) {
	return nil, pgx.ErrNoRows
}
func (s *stubTicketRepo) ListWithFilter(context.Context, repository.TicketFilter) ([]domain.Ticket, error) {
	return nil, nil
}
func (s *stubTicketRepo) ClaimAssign(context.Context, string, string) (bool, error) {
	return false, nil
}
func (s *stubTicketRepo) ListUnfinished(context.Context) ([]domain.Ticket, error) {
	return s.tickets, nil
}
func (s *stubTicketRepo) ListCreatedBetween(context.Context, string, time.Time, time.Time) ([]domain.Ticket, error) {
	return nil, nil
}

type stubServiceRepo struct {
	svc *domain.Service
}

func (s *stubServiceRepo) Create(context.Context, *domain.Service) error { return nil }
func (s *stubServiceRepo) GetByID(context.Context, string) (*domain.Service, error) {
	return s.svc, nil
}
func (s *stubServiceRepo) ListActive(context.Context) ([]domain.Service, error) {
	return []domain.Service{*s.svc}, nil
}

type stubSLARepo struct {
	records map[string]*domain.SLATracking
}

func (s *stubSLARepo) Upsert(_ context.Context, record *domain.SLATracking) error {
	existing, ok := s.records[record.TicketID]
	if ok {
		record.IsResponseBreached = record.IsResponseBreached || existing.IsResponseBreached
		record.IsResolutionBreached = record.IsResolutionBreached || existing.IsResolutionBreached
	}
	clone := *record
	s.records[record.TicketID] = &clone
	return nil
}

func (s *stubSLARepo) GetByTicket(_ context.Context, ticketID string) (*domain.SLATracking, error) {
	record, ok := s.records[ticketID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *record
	return &clone, nil
}

func (s *stubSLARepo) MarkBreached(_ context.Context, ticketID string, response, resolution bool) error {
	record, ok := s.records[ticketID]
	if !ok {
		return pgx.ErrNoRows
	}
	record.IsResponseBreached = record.IsResponseBreached || response
	record.IsResolutionBreached = record.IsResolutionBreached || resolution
	return nil
}

type recordingDispatcher struct {
	published []events.Event
}

func (r *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	r.published = append(r.published, event)
	return nil
}

func (r *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func TestSweepPersistsAndAnnouncesBreachesOnce(t *testing.T) {
	created := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	tickets := &stubTicketRepo{tickets: []domain.Ticket{
		{ID: "t-1", Number: "TKT-1", ServiceID: "svc-1", Status: domain.TicketStatusOpen, CreatedAt: created},
	}}
	services := &stubServiceRepo{svc: &domain.Service{
		ID: "svc-1", ResponseHours: 2, ResolutionHours: 8, IsActive: true,
	}}
	sla := &stubSLARepo{records: map[string]*domain.SLATracking{}}
	dispatcher := &recordingDispatcher{}

	monitor := NewSLAMonitor(tickets, services, sla, dispatcher, observability.NewMetrics(), zap.NewNop(), "@every 5m")
	monitor.now = func() time.Time { return created.Add(3 * time.Hour) }

	monitor.Sweep(context.Background())

	record, err := sla.GetByTicket(context.Background(), "t-1")
	require.NoError(t, err)
	assert.True(t, record.IsResponseBreached)
	assert.False(t, record.IsResolutionBreached)
	require.Len(t, dispatcher.published, 1)
	assert.Equal(t, events.EventSLABreached, dispatcher.published[0].Type)

	// A second sweep sees the sticky flag and stays quiet.
	monitor.Sweep(context.Background())
	assert.Len(t, dispatcher.published, 1)

	// Crossing the resolution deadline later announces exactly once more.
	monitor.now = func() time.Time { return created.Add(10 * time.Hour) }
	monitor.Sweep(context.Background())
	require.Len(t, dispatcher.published, 2)
	payload, ok := dispatcher.published[1].Payload.(events.SLABreachedPayload)
	require.True(t, ok)
	assert.False(t, payload.ResponseBreached)
	assert.True(t, payload.ResolutionBreached)
}

func TestSweepIgnoresTicketsWithinTargets(t *testing.T) {
	created := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	tickets := &stubTicketRepo{tickets: []domain.Ticket{
		{ID: "t-1", ServiceID: "svc-1", Status: domain.TicketStatusOpen, CreatedAt: created},
	}}
	services := &stubServiceRepo{svc: &domain.Service{
		ID: "svc-1", ResponseHours: 2, ResolutionHours: 8, IsActive: true,
	}}
	sla := &stubSLARepo{records: map[string]*domain.SLATracking{}}
	dispatcher := &recordingDispatcher{}

	monitor := NewSLAMonitor(tickets, services, sla, dispatcher, observability.NewMetrics(), zap.NewNop(), "@every 5m")
	monitor.now = func() time.Time { return created.Add(time.Hour) }

	monitor.Sweep(context.Background())

	_, err := sla.GetByTicket(context.Background(), "t-1")
	assert.ErrorIs(t, err, pgx.ErrNoRows)
	assert.Empty(t, dispatcher.published)
}
