package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atlasbank/servicedesk/internal/domain"
)

// ApprovalRepository encapsulates approval persistence.
type ApprovalRepository interface {
	Create(ctx context.Context, approval *domain.Approval) error
	// GetLatestByTicket returns the most recent approval; pgx.ErrNoRows
	// when the ticket has none.
	GetLatestByTicket(ctx context.Context, ticketID string) (*domain.Approval, error)
	ListByTicket(ctx context.Context, ticketID string) ([]domain.Approval, error)
}

type approvalRepository struct {
	pool *pgxpool.Pool
}

// NewApprovalRepository instantiates repository.
func NewApprovalRepository(pool *pgxpool.Pool) ApprovalRepository {
	return &approvalRepository{pool: pool}
}

const approvalColumns = `id, ticket_id, approver_user_id, status, reason, created_at`

func (r *approvalRepository) Create(ctx context.Context, approval *domain.Approval) error {
	const query = `
        INSERT INTO approvals (ticket_id, approver_user_id, status, reason)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		approval.TicketID,
		approval.ApproverID,
		approval.Status,
		approval.Reason,
	).Scan(&approval.ID, &approval.CreatedAt)
}

func (r *approvalRepository) GetLatestByTicket(ctx context.Context, ticketID string) (*domain.Approval, error) {
	const query = `SELECT ` + approvalColumns + ` FROM approvals WHERE ticket_id=$1 ORDER BY created_at DESC LIMIT 1`
	var approval domain.Approval
	if err := r.pool.QueryRow(ctx, query, ticketID).Scan(
		&approval.ID,
		&approval.TicketID,
		&approval.ApproverID,
		&approval.Status,
		&approval.Reason,
		&approval.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &approval, nil
}

func (r *approvalRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Approval, error) {
	const query = `SELECT ` + approvalColumns + ` FROM approvals WHERE ticket_id=$1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanApprovals(rows)
}

func scanApprovals(rows pgx.Rows) ([]domain.Approval, error) {
	var result []domain.Approval
	for rows.Next() {
		var approval domain.Approval
		if err := rows.Scan(
			&approval.ID,
			&approval.TicketID,
			&approval.ApproverID,
			&approval.Status,
			&approval.Reason,
			&approval.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, approval)
	}
	return result, rows.Err()
}
