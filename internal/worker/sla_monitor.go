package worker

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/atlasbank/servicedesk/internal/domain"
	"github.com/atlasbank/servicedesk/internal/events"
	"github.com/atlasbank/servicedesk/internal/lifecycle"
	"github.com/atlasbank/servicedesk/internal/observability"
	"github.com/atlasbank/servicedesk/internal/repository"
)

// SLAMonitor periodically sweeps unfinished tickets and persists newly
// crossed SLA deadlines. Breach flags only ever turn on; the storage upsert
// keeps them sticky even if a later sweep recomputes clean.
type SLAMonitor struct {
	tickets    repository.TicketRepository
	services   repository.ServiceRepository
	sla        repository.SLARepository
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	schedule   string
	cron       *cron.Cron
	now        func() time.Time
}

// NewSLAMonitor constructs the monitor. schedule takes cron spec syntax,
// including descriptors like "@every 5m".
func NewSLAMonitor(
	tickets repository.TicketRepository,
	services repository.ServiceRepository,
	sla repository.SLARepository,
	dispatcher events.Dispatcher,
	metrics *observability.Metrics,
	logger *zap.Logger,
	schedule string,
) *SLAMonitor {
	return &SLAMonitor{
		tickets:    tickets,
		services:   services,
		sla:        sla,
		dispatcher: dispatcher,
		metrics:    metrics,
		logger:     logger,
		schedule:   schedule,
		now:        time.Now,
	}
}

// Start schedules the sweep and runs one immediately.
func (m *SLAMonitor) Start(ctx context.Context) error {
	m.cron = cron.New()
	if _, err := m.cron.AddFunc(m.schedule, func() {
		m.Sweep(ctx)
	}); err != nil {
		return err
	}
	m.cron.Start()
	go m.Sweep(ctx)
	return nil
}

// Stop halts the scheduler and waits for a running sweep to finish.
func (m *SLAMonitor) Stop() {
	if m.cron == nil {
		return
	}
	<-m.cron.Stop().Done()
}

// Sweep evaluates every unfinished ticket once.
func (m *SLAMonitor) Sweep(ctx context.Context) {
	tickets, err := m.tickets.ListUnfinished(ctx)
	if err != nil {
		m.logger.Error("sla sweep: list tickets", zap.Error(err))
		return
	}

	now := m.now()
	serviceCache := map[string]*domain.Service{}
	newBreaches := 0

	for i := range tickets {
		ticket := &tickets[i]
		svc, ok := serviceCache[ticket.ServiceID]
		if !ok {
			svc, err = m.services.GetByID(ctx, ticket.ServiceID)
			if err != nil {
				m.logger.Error("sla sweep: load service",
					zap.String("ticket_id", ticket.ID),
					zap.String("service_id", ticket.ServiceID),
					zap.Error(err))
				continue
			}
			serviceCache[ticket.ServiceID] = svc
		}

		snap := lifecycle.ComputeSLA(ticket, svc, now)
		if !snap.IsResponseBreached && !snap.IsResolutionBreached {
			continue
		}

		record, responseNew, resolutionNew := m.newlyBreached(ctx, ticket.ID, snap)
		if record == nil {
			// No materialized row yet; write the full snapshot.
			err = m.sla.Upsert(ctx, &domain.SLATracking{
				TicketID:             ticket.ID,
				ResponseDeadline:     snap.ResponseDeadline,
				ResolutionDeadline:   snap.ResolutionDeadline,
				IsResponseBreached:   snap.IsResponseBreached,
				IsResolutionBreached: snap.IsResolutionBreached,
				ResponseTime:         snap.ResponseTime,
				ResolutionTime:       snap.ResolutionTime,
			})
		} else {
			// Deadlines and elapsed times are maintained by the service
			// layer; the sweep only turns breach flags on.
			err = m.sla.MarkBreached(ctx, ticket.ID, snap.IsResponseBreached, snap.IsResolutionBreached)
		}
		if err != nil {
			m.logger.Error("sla sweep: persist breach", zap.String("ticket_id", ticket.ID), zap.Error(err))
			continue
		}

		if !responseNew && !resolutionNew {
			continue
		}
		newBreaches++
		m.logger.Warn("sla breach detected",
			zap.String("ticket_id", ticket.ID),
			zap.String("ticket_number", ticket.Number),
			zap.Bool("response_breached", responseNew),
			zap.Bool("resolution_breached", resolutionNew))
		m.publishBreach(ctx, ticket.ID, responseNew, resolutionNew)
	}

	m.metrics.RecordSLABreach(newBreaches)
	m.logger.Debug("sla sweep complete",
		zap.Int("tickets", len(tickets)),
		zap.Int("new_breaches", newBreaches))
}

// newlyBreached compares the live snapshot against the persisted record so
// each breach is announced once, not on every sweep. The record is nil when
// no row has been materialized yet.
func (m *SLAMonitor) newlyBreached(ctx context.Context, ticketID string, snap lifecycle.SLASnapshot) (*domain.SLATracking, bool, bool) {
	record, err := m.sla.GetByTicket(ctx, ticketID)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			m.logger.Error("sla sweep: load record", zap.String("ticket_id", ticketID), zap.Error(err))
		}
		return nil, snap.IsResponseBreached, snap.IsResolutionBreached
	}
	return record, snap.IsResponseBreached && !record.IsResponseBreached,
		snap.IsResolutionBreached && !record.IsResolutionBreached
}

func (m *SLAMonitor) publishBreach(ctx context.Context, ticketID string, response, resolution bool) {
	if m.dispatcher == nil {
		return
	}
	_ = m.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventSLABreached,
		TicketID:  ticketID,
		Timestamp: m.now(),
		Payload: events.SLABreachedPayload{
			ResponseBreached:   response,
			ResolutionBreached: resolution,
		},
	})
}
