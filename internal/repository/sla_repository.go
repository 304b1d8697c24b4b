package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atlasbank/servicedesk/internal/domain"
)

// SLARepository encapsulates persisted SLA tracking records.
type SLARepository interface {
	Upsert(ctx context.Context, record *domain.SLATracking) error
	GetByTicket(ctx context.Context, ticketID string) (*domain.SLATracking, error)
	// MarkBreached sets the sticky breach flags; it never clears them.
	MarkBreached(ctx context.Context, ticketID string, response, resolution bool) error
}

type slaRepository struct {
	pool *pgxpool.Pool
}

// NewSLARepository instantiates repository.
func NewSLARepository(pool *pgxpool.Pool) SLARepository {
	return &slaRepository{pool: pool}
}

const slaColumns = `id, ticket_id, response_deadline, resolution_deadline, is_response_breached,
               is_resolution_breached, response_time, resolution_time, created_at, updated_at`

func (r *slaRepository) Upsert(ctx context.Context, record *domain.SLATracking) error {
	const query = `
        INSERT INTO sla_tracking (ticket_id, response_deadline, resolution_deadline, is_response_breached, is_resolution_breached, response_time, resolution_time)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        ON CONFLICT (ticket_id) DO UPDATE SET
            response_deadline = EXCLUDED.response_deadline,
            resolution_deadline = EXCLUDED.resolution_deadline,
            is_response_breached = sla_tracking.is_response_breached OR EXCLUDED.is_response_breached,
            is_resolution_breached = sla_tracking.is_resolution_breached OR EXCLUDED.is_resolution_breached,
            response_time = EXCLUDED.response_time,
            resolution_time = EXCLUDED.resolution_time,
            updated_at = NOW()
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		record.TicketID,
		record.ResponseDeadline,
		record.ResolutionDeadline,
		record.IsResponseBreached,
		record.IsResolutionBreached,
		record.ResponseTime,
		record.ResolutionTime,
	).Scan(&record.ID, &record.CreatedAt, &record.UpdatedAt)
}

func (r *slaRepository) GetByTicket(ctx context.Context, ticketID string) (*domain.SLATracking, error) {
	const query = `SELECT ` + slaColumns + ` FROM sla_tracking WHERE ticket_id=$1`
	var record domain.SLATracking
	if err := r.pool.QueryRow(ctx, query, ticketID).Scan(
		&record.ID,
		&record.TicketID,
		&record.ResponseDeadline,
		&record.ResolutionDeadline,
		&record.IsResponseBreached,
		&record.IsResolutionBreached,
		&record.ResponseTime,
		&record.ResolutionTime,
		&record.CreatedAt,
		&record.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *slaRepository) MarkBreached(ctx context.Context, ticketID string, response, resolution bool) error {
	const query = `
        UPDATE sla_tracking SET
            is_response_breached = is_response_breached OR $1,
            is_resolution_breached = is_resolution_breached OR $2,
            updated_at = $3
        WHERE ticket_id=$4`
	cmd, err := r.pool.Exec(ctx, query, response, resolution, time.Now(), ticketID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
