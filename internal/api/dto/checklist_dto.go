package dto

import (
	"time"

	"github.com/atlasbank/servicedesk/internal/domain"
	"github.com/atlasbank/servicedesk/internal/service"
)

// ClaimChecklistRequest payload.
type ClaimChecklistRequest struct {
	ChecklistType domain.ChecklistType `json:"checklist_type"`
}

// UpdateChecklistItemsRequest is a batch item update.
type UpdateChecklistItemsRequest struct {
	Items []ChecklistItemUpdate `json:"items"`
}

// ChecklistItemUpdate is one entry of the batch.
type ChecklistItemUpdate struct {
	ItemID string                     `json:"item_id"`
	Status domain.ChecklistItemStatus `json:"status"`
	Notes  *string                    `json:"notes"`
}

// ChecklistItemResponse is an item with its lock state.
type ChecklistItemResponse struct {
	ID          string                     `json:"id"`
	Category    string                     `json:"category"`
	Title       string                     `json:"title"`
	Description string                     `json:"description,omitempty"`
	Order       int                        `json:"order"`
	IsRequired  bool                       `json:"is_required"`
	UnlockTime  string                     `json:"unlock_time,omitempty"`
	InputType   string                     `json:"input_type,omitempty"`
	Status      domain.ChecklistItemStatus `json:"status"`
	Notes       string                     `json:"notes,omitempty"`
	CompletedAt *time.Time                 `json:"completed_at"`
	IsLocked    bool                       `json:"is_locked"`
	LockMessage string                     `json:"lock_message,omitempty"`
}

// ChecklistResponse is the full instance view.
type ChecklistResponse struct {
	ID            string                         `json:"id"`
	ChecklistType domain.ChecklistType           `json:"checklist_type"`
	Date          string                         `json:"date"`
	Status        domain.ChecklistInstanceStatus `json:"status"`
	ClaimedByID   string                         `json:"claimed_by_id"`
	Items         []ChecklistItemResponse        `json:"items"`
	Stats         service.ChecklistStats         `json:"stats"`
	OtherClaims   []service.ChecklistClaimInfo   `json:"other_claims"`
}

// ChecklistItemUpdateResult is the partial-success batch response.
type ChecklistItemUpdateResult struct {
	Updated []ChecklistItemResponse   `json:"updated"`
	Errors  []service.ItemUpdateError `json:"errors"`
}

// ChecklistFromView maps the service view.
func ChecklistFromView(view *service.ChecklistView) ChecklistResponse {
	items := make([]ChecklistItemResponse, 0, len(view.Items))
	for i := range view.Items {
		items = append(items, checklistItemResponse(&view.Items[i]))
	}
	return ChecklistResponse{
		ID:            view.Instance.ID,
		ChecklistType: view.Instance.ChecklistType,
		Date:          view.Instance.Date.Format("2006-01-02"),
		Status:        view.Instance.Status,
		ClaimedByID:   view.Instance.ClaimedByID,
		Items:         items,
		Stats:         view.Stats,
		OtherClaims:   view.OtherClaims,
	}
}

// ChecklistUpdateResultFromService maps the batch outcome.
func ChecklistUpdateResultFromService(result *service.ItemUpdateResult) ChecklistItemUpdateResult {
	updated := make([]ChecklistItemResponse, 0, len(result.Updated))
	for i := range result.Updated {
		updated = append(updated, checklistItemResponse(&result.Updated[i]))
	}
	errs := result.Errors
	if errs == nil {
		errs = []service.ItemUpdateError{}
	}
	return ChecklistItemUpdateResult{Updated: updated, Errors: errs}
}

func checklistItemResponse(item *service.ChecklistItemView) ChecklistItemResponse {
	return ChecklistItemResponse{
		ID:          item.ID,
		Category:    item.Category,
		Title:       item.Title,
		Description: item.Description,
		Order:       item.Order,
		IsRequired:  item.IsRequired,
		UnlockTime:  item.UnlockTime,
		InputType:   item.InputType,
		Status:      item.Status,
		Notes:       item.Notes,
		CompletedAt: item.CompletedAt,
		IsLocked:    item.IsLocked,
		LockMessage: item.LockMessage,
	}
}
