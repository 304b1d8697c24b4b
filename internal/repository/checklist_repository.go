package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atlasbank/servicedesk/internal/domain"
)

// ChecklistRepository encapsulates checklist instances and their items.
type ChecklistRepository interface {
	// CreateInstance persists the instance and its items in one
	// transaction; the unique (user, type, date) index arbitrates
	// concurrent claims by the same user.
	CreateInstance(ctx context.Context, instance *domain.ChecklistInstance) error
	GetInstanceByID(ctx context.Context, id string) (*domain.ChecklistInstance, error)
	GetInstanceForUser(ctx context.Context, userID string, checklistType domain.ChecklistType, date time.Time) (*domain.ChecklistInstance, error)
	// ListInstances returns all claims of a (type, date) pair, used for
	// the informational otherClaims view.
	ListInstances(ctx context.Context, checklistType domain.ChecklistType, date time.Time) ([]domain.ChecklistInstance, error)
	GetItem(ctx context.Context, itemID string) (*domain.ChecklistItem, error)
	UpdateItem(ctx context.Context, item *domain.ChecklistItem) error
	UpdateInstanceStatus(ctx context.Context, instanceID string, status domain.ChecklistInstanceStatus) error
}

type checklistRepository struct {
	pool *pgxpool.Pool
}

// NewChecklistRepository instantiates repository.
func NewChecklistRepository(pool *pgxpool.Pool) ChecklistRepository {
	return &checklistRepository{pool: pool}
}

const instanceColumns = `id, checklist_type, date, status, claimed_by_user_id, created_at, updated_at`

const itemColumns = `id, instance_id, category, title, description, item_order, is_required, unlock_time,
               input_type, status, notes, completed_at, created_at, updated_at`

func (r *checklistRepository) CreateInstance(ctx context.Context, instance *domain.ChecklistInstance) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const insertInstance = `
        INSERT INTO checklist_instances (checklist_type, date, status, claimed_by_user_id)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at, updated_at`
	if err := tx.QueryRow(ctx, insertInstance,
		instance.ChecklistType,
		instance.Date,
		instance.Status,
		instance.ClaimedByID,
	).Scan(&instance.ID, &instance.CreatedAt, &instance.UpdatedAt); err != nil {
		return err
	}

	const insertItem = `
        INSERT INTO checklist_items (instance_id, category, title, description, item_order, is_required, unlock_time, input_type, status, notes)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING id, created_at, updated_at`
	for i := range instance.Items {
		item := &instance.Items[i]
		item.InstanceID = instance.ID
		if err := tx.QueryRow(ctx, insertItem,
			item.InstanceID,
			item.Category,
			item.Title,
			item.Description,
			item.Order,
			item.IsRequired,
			item.UnlockTime,
			item.InputType,
			item.Status,
			item.Notes,
		).Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *checklistRepository) GetInstanceByID(ctx context.Context, id string) (*domain.ChecklistInstance, error) {
	const query = `SELECT ` + instanceColumns + ` FROM checklist_instances WHERE id=$1`
	return r.fetchInstance(ctx, query, id)
}

func (r *checklistRepository) GetInstanceForUser(ctx context.Context, userID string, checklistType domain.ChecklistType, date time.Time) (*domain.ChecklistInstance, error) {
	const query = `SELECT ` + instanceColumns + ` FROM checklist_instances
        WHERE claimed_by_user_id=$1 AND checklist_type=$2 AND date=$3`
	return r.fetchInstance(ctx, query, userID, checklistType, date)
}

func (r *checklistRepository) ListInstances(ctx context.Context, checklistType domain.ChecklistType, date time.Time) ([]domain.ChecklistInstance, error) {
	const query = `SELECT ` + instanceColumns + ` FROM checklist_instances
        WHERE checklist_type=$1 AND date=$2 ORDER BY created_at`
	rows, err := r.pool.Query(ctx, query, checklistType, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ChecklistInstance
	for rows.Next() {
		var instance domain.ChecklistInstance
		if err := scanInstance(rows, &instance); err != nil {
			return nil, err
		}
		result = append(result, instance)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range result {
		items, err := r.listItems(ctx, result[i].ID)
		if err != nil {
			return nil, err
		}
		result[i].Items = items
	}
	return result, nil
}

func (r *checklistRepository) GetItem(ctx context.Context, itemID string) (*domain.ChecklistItem, error) {
	const query = `SELECT ` + itemColumns + ` FROM checklist_items WHERE id=$1`
	var item domain.ChecklistItem
	if err := r.pool.QueryRow(ctx, query, itemID).Scan(
		&item.ID,
		&item.InstanceID,
		&item.Category,
		&item.Title,
		&item.Description,
		&item.Order,
		&item.IsRequired,
		&item.UnlockTime,
		&item.InputType,
		&item.Status,
		&item.Notes,
		&item.CompletedAt,
		&item.CreatedAt,
		&item.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *checklistRepository) UpdateItem(ctx context.Context, item *domain.ChecklistItem) error {
	const query = `
        UPDATE checklist_items SET status=$1, notes=$2, completed_at=$3, updated_at=NOW()
        WHERE id=$4`
	cmd, err := r.pool.Exec(ctx, query, item.Status, item.Notes, item.CompletedAt, item.ID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *checklistRepository) UpdateInstanceStatus(ctx context.Context, instanceID string, status domain.ChecklistInstanceStatus) error {
	const query = `UPDATE checklist_instances SET status=$1, updated_at=NOW() WHERE id=$2`
	cmd, err := r.pool.Exec(ctx, query, status, instanceID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *checklistRepository) fetchInstance(ctx context.Context, query string, args ...any) (*domain.ChecklistInstance, error) {
	var instance domain.ChecklistInstance
	row := r.pool.QueryRow(ctx, query, args...)
	if err := row.Scan(
		&instance.ID,
		&instance.ChecklistType,
		&instance.Date,
		&instance.Status,
		&instance.ClaimedByID,
		&instance.CreatedAt,
		&instance.UpdatedAt,
	); err != nil {
		return nil, err
	}
	items, err := r.listItems(ctx, instance.ID)
	if err != nil {
		return nil, err
	}
	instance.Items = items
	return &instance, nil
}

func scanInstance(rows pgx.Rows, instance *domain.ChecklistInstance) error {
	return rows.Scan(
		&instance.ID,
		&instance.ChecklistType,
		&instance.Date,
		&instance.Status,
		&instance.ClaimedByID,
		&instance.CreatedAt,
		&instance.UpdatedAt,
	)
}

func (r *checklistRepository) listItems(ctx context.Context, instanceID string) ([]domain.ChecklistItem, error) {
	const query = `SELECT ` + itemColumns + ` FROM checklist_items
        WHERE instance_id=$1 ORDER BY category, item_order`
	rows, err := r.pool.Query(ctx, query, instanceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ChecklistItem
	for rows.Next() {
		var item domain.ChecklistItem
		if err := rows.Scan(
			&item.ID,
			&item.InstanceID,
			&item.Category,
			&item.Title,
			&item.Description,
			&item.Order,
			&item.IsRequired,
			&item.UnlockTime,
			&item.InputType,
			&item.Status,
			&item.Notes,
			&item.CompletedAt,
			&item.CreatedAt,
			&item.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	return result, rows.Err()
}
