package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atlasbank/servicedesk/internal/domain"
)

// ChecklistTemplateRepository reads the admin-managed item templates.
type ChecklistTemplateRepository interface {
	ListActiveByType(ctx context.Context, checklistType domain.ChecklistType) ([]domain.ChecklistTemplateItem, error)
}

type checklistTemplateRepository struct {
	pool *pgxpool.Pool
}

// NewChecklistTemplateRepository instantiates repository.
func NewChecklistTemplateRepository(pool *pgxpool.Pool) ChecklistTemplateRepository {
	return &checklistTemplateRepository{pool: pool}
}

func (r *checklistTemplateRepository) ListActiveByType(ctx context.Context, checklistType domain.ChecklistType) ([]domain.ChecklistTemplateItem, error) {
	const query = `
        SELECT id, checklist_type, category, title, description, item_order, is_required, unlock_time, input_type, is_active, created_at
        FROM checklist_templates
        WHERE is_active AND checklist_type=$1
        ORDER BY category, item_order`
	rows, err := r.pool.Query(ctx, query, checklistType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ChecklistTemplateItem
	for rows.Next() {
		var item domain.ChecklistTemplateItem
		if err := rows.Scan(
			&item.ID,
			&item.ChecklistType,
			&item.Category,
			&item.Title,
			&item.Description,
			&item.Order,
			&item.IsRequired,
			&item.UnlockTime,
			&item.InputType,
			&item.IsActive,
			&item.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	return result, rows.Err()
}
