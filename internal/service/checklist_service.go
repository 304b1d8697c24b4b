package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/atlasbank/servicedesk/internal/domain"
	"github.com/atlasbank/servicedesk/internal/events"
	"github.com/atlasbank/servicedesk/internal/lifecycle"
	"github.com/atlasbank/servicedesk/internal/repository"
	apperrors "github.com/atlasbank/servicedesk/pkg/util/errorutil"
)

// ChecklistService coordinates daily checklist claims and item updates.
// Claims are collaborative: each user works their own instance of a
// (type, date) checklist and can see who else has claimed it.
type ChecklistService struct {
	checklists repository.ChecklistRepository
	templates  repository.ChecklistTemplateRepository
	users      repository.UserRepository
	dispatcher events.Dispatcher
	location   *time.Location
	now        func() time.Time
}

// ChecklistDependencies bundles collaborators for the checklist service.
type ChecklistDependencies struct {
	ChecklistRepo repository.ChecklistRepository
	TemplateRepo  repository.ChecklistTemplateRepository
	UserRepo      repository.UserRepository
	Dispatcher    events.Dispatcher
	Location      *time.Location
}

// ChecklistClaimInfo identifies another user's claim of the same checklist.
type ChecklistClaimInfo struct {
	InstanceID string `json:"instance_id"`
	UserID     string `json:"user_id"`
	UserName   string `json:"user_name"`
	Completed  int    `json:"completed"`
	Total      int    `json:"total"`
}

// ChecklistItemView is an item decorated with its current lock state.
type ChecklistItemView struct {
	domain.ChecklistItem
	lifecycle.LockState
}

// ChecklistStats summarizes item states of an instance.
type ChecklistStats struct {
	Total      int `json:"total"`
	Completed  int `json:"completed"`
	Pending    int `json:"pending"`
	InProgress int `json:"in_progress"`
	Skipped    int `json:"skipped"`
	Locked     int `json:"locked"`
}

// ChecklistView is the full instance response for one user.
type ChecklistView struct {
	Instance    *domain.ChecklistInstance `json:"instance"`
	Items       []ChecklistItemView       `json:"items"`
	Stats       ChecklistStats            `json:"stats"`
	OtherClaims []ChecklistClaimInfo      `json:"other_claims"`
}

// ItemUpdateInput is one entry of a batch item update.
type ItemUpdateInput struct {
	ItemID string
	Status domain.ChecklistItemStatus
	Notes  *string
}

// ItemUpdateError reports a single rejected item in a batch.
type ItemUpdateError struct {
	ItemID  string `json:"item_id"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ItemUpdateResult carries partial-success output of a batch update.
type ItemUpdateResult struct {
	Updated []ChecklistItemView `json:"updated"`
	Errors  []ItemUpdateError   `json:"errors"`
}

// NewChecklistService constructs the service.
func NewChecklistService(deps ChecklistDependencies) *ChecklistService {
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}
	return &ChecklistService{
		checklists: deps.ChecklistRepo,
		templates:  deps.TemplateRepo,
		users:      deps.UserRepo,
		dispatcher: deps.Dispatcher,
		location:   loc,
		now:        time.Now,
	}
}

// Claim creates today's checklist instance for the user from the active
// templates. A second claim of the same (type, date) by the same user is a
// conflict; claims by other users are allowed and surfaced as otherClaims.
func (s *ChecklistService) Claim(ctx context.Context, userID string, checklistType domain.ChecklistType) (*ChecklistView, error) {
	now := s.localNow()
	date := lifecycle.ChecklistDate(checklistType, now)

	if _, err := s.checklists.GetInstanceForUser(ctx, userID, checklistType, date); err == nil {
		return nil, apperrors.NewConflict("checklist already claimed for this date", map[string]any{
			"checklist_type": checklistType,
			"date":           date.Format("2006-01-02"),
		})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	templates, err := s.templates.ListActiveByType(ctx, checklistType)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if len(templates) == 0 {
		return nil, apperrors.NewNotFound("checklist templates", map[string]any{"checklist_type": checklistType})
	}

	instance := &domain.ChecklistInstance{
		ChecklistType: checklistType,
		Date:          date,
		Status:        domain.ChecklistInstancePending,
		ClaimedByID:   userID,
		Items:         make([]domain.ChecklistItem, 0, len(templates)),
	}
	for _, tpl := range templates {
		instance.Items = append(instance.Items, domain.ChecklistItem{
			Category:    tpl.Category,
			Title:       tpl.Title,
			Description: tpl.Description,
			Order:       tpl.Order,
			IsRequired:  tpl.IsRequired,
			UnlockTime:  tpl.UnlockTime,
			InputType:   tpl.InputType,
			Status:      domain.ChecklistItemPending,
		})
	}

	if err := s.checklists.CreateInstance(ctx, instance); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:    events.EventChecklistClaimed,
		ActorID: userID,
		Payload: events.ChecklistClaimedPayload{
			InstanceID:    instance.ID,
			ChecklistType: checklistType,
			Date:          date,
		},
	})
	return s.buildView(ctx, instance, now)
}

// Get returns the user's instance of a checklist for the given date (today
// when zero), including lock states, stats and other users' claims.
func (s *ChecklistService) Get(ctx context.Context, userID string, checklistType domain.ChecklistType, date time.Time) (*ChecklistView, error) {
	now := s.localNow()
	if date.IsZero() {
		date = lifecycle.ChecklistDate(checklistType, now)
	}
	instance, err := s.checklists.GetInstanceForUser(ctx, userID, checklistType, date)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("checklist", map[string]any{
				"checklist_type": checklistType,
				"date":           date.Format("2006-01-02"),
			})
		}
		return nil, apperrors.MapError(err)
	}
	return s.buildView(ctx, instance, now)
}

// EvaluateLock exposes the pure lock evaluation for one item.
func (s *ChecklistService) EvaluateLock(item *domain.ChecklistItem, checklistType domain.ChecklistType) lifecycle.LockState {
	return lifecycle.EvaluateLock(item.UnlockTime, s.localNow(), checklistType.IsNight())
}

// UpdateItems applies a batch of item changes with partial-success
// semantics: each item is re-validated against its time window, locked
// items are rejected individually and the rest commit.
func (s *ChecklistService) UpdateItems(ctx context.Context, userID string, updates []ItemUpdateInput) (*ItemUpdateResult, error) {
	if len(updates) == 0 {
		return nil, apperrors.NewValidationError("items required", nil)
	}

	now := s.localNow()
	result := &ItemUpdateResult{}
	touched := map[string]*domain.ChecklistInstance{}

	for _, update := range updates {
		item, err := s.checklists.GetItem(ctx, update.ItemID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				result.Errors = append(result.Errors, ItemUpdateError{
					ItemID:  update.ItemID,
					Code:    "NOT_FOUND",
					Message: "checklist item not found",
				})
				continue
			}
			return nil, apperrors.MapError(err)
		}

		instance, ok := touched[item.InstanceID]
		if !ok {
			instance, err = s.checklists.GetInstanceByID(ctx, item.InstanceID)
			if err != nil {
				return nil, apperrors.MapError(err)
			}
			touched[item.InstanceID] = instance
		}
		if instance.ClaimedByID != userID {
			result.Errors = append(result.Errors, ItemUpdateError{
				ItemID:  item.ID,
				Code:    "FORBIDDEN",
				Message: "item belongs to another user's checklist",
			})
			continue
		}

		if update.Status == domain.ChecklistItemCompleted {
			lock := lifecycle.EvaluateLock(item.UnlockTime, now, instance.ChecklistType.IsNight())
			if lock.IsLocked {
				result.Errors = append(result.Errors, ItemUpdateError{
					ItemID:  item.ID,
					Code:    "ITEM_LOCKED",
					Message: lock.LockMessage,
				})
				continue
			}
		}

		if update.Status != "" {
			item.Status = update.Status
			if update.Status == domain.ChecklistItemCompleted {
				if item.CompletedAt == nil {
					completedAt := now
					item.CompletedAt = &completedAt
				}
			} else {
				item.CompletedAt = nil
			}
		}
		if update.Notes != nil {
			item.Notes = strings.TrimSpace(*update.Notes)
		}

		if err := s.checklists.UpdateItem(ctx, item); err != nil {
			return nil, apperrors.MapError(err)
		}
		result.Updated = append(result.Updated, ChecklistItemView{
			ChecklistItem: *item,
			LockState:     lifecycle.EvaluateLock(item.UnlockTime, now, instance.ChecklistType.IsNight()),
		})

		s.publishEvent(ctx, events.Event{
			Type:    events.EventChecklistItemUpdated,
			ActorID: userID,
			Payload: events.ChecklistItemUpdatedPayload{
				InstanceID: item.InstanceID,
				ItemID:     item.ID,
				Status:     item.Status,
			},
		})
	}

	for _, instance := range touched {
		if err := s.refreshInstanceStatus(ctx, userID, instance); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// refreshInstanceStatus rolls item states up to the instance status.
func (s *ChecklistService) refreshInstanceStatus(ctx context.Context, userID string, instance *domain.ChecklistInstance) error {
	current, err := s.checklists.GetInstanceByID(ctx, instance.ID)
	if err != nil {
		return apperrors.MapError(err)
	}

	done := 0
	started := false
	for _, item := range current.Items {
		switch item.Status {
		case domain.ChecklistItemCompleted, domain.ChecklistItemSkipped:
			done++
			started = true
		case domain.ChecklistItemInProgress:
			started = true
		}
	}

	status := domain.ChecklistInstancePending
	switch {
	case len(current.Items) > 0 && done == len(current.Items):
		status = domain.ChecklistInstanceCompleted
	case started:
		status = domain.ChecklistInstanceInProgress
	}

	if status == current.Status {
		return nil
	}
	if err := s.checklists.UpdateInstanceStatus(ctx, current.ID, status); err != nil {
		return apperrors.MapError(err)
	}
	if status == domain.ChecklistInstanceCompleted {
		s.publishEvent(ctx, events.Event{
			Type:    events.EventChecklistCompleted,
			ActorID: userID,
			Payload: events.ChecklistClaimedPayload{
				InstanceID:    current.ID,
				ChecklistType: current.ChecklistType,
				Date:          current.Date,
			},
		})
	}
	return nil
}

func (s *ChecklistService) buildView(ctx context.Context, instance *domain.ChecklistInstance, now time.Time) (*ChecklistView, error) {
	night := instance.ChecklistType.IsNight()
	view := &ChecklistView{
		Instance:    instance,
		Items:       make([]ChecklistItemView, 0, len(instance.Items)),
		OtherClaims: []ChecklistClaimInfo{},
	}

	view.Stats.Total = len(instance.Items)
	for _, item := range instance.Items {
		lock := lifecycle.EvaluateLock(item.UnlockTime, now, night)
		view.Items = append(view.Items, ChecklistItemView{ChecklistItem: item, LockState: lock})
		if lock.IsLocked {
			view.Stats.Locked++
		}
		switch item.Status {
		case domain.ChecklistItemCompleted:
			view.Stats.Completed++
		case domain.ChecklistItemPending:
			view.Stats.Pending++
		case domain.ChecklistItemInProgress:
			view.Stats.InProgress++
		case domain.ChecklistItemSkipped:
			view.Stats.Skipped++
		}
	}

	others, err := s.checklists.ListInstances(ctx, instance.ChecklistType, instance.Date)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	for _, other := range others {
		if other.ID == instance.ID {
			continue
		}
		info := ChecklistClaimInfo{
			InstanceID: other.ID,
			UserID:     other.ClaimedByID,
			Total:      len(other.Items),
		}
		for _, item := range other.Items {
			if item.Status == domain.ChecklistItemCompleted {
				info.Completed++
			}
		}
		if s.users != nil {
			if user, err := s.users.GetByID(ctx, other.ClaimedByID); err == nil {
				info.UserName = user.Name
			}
		}
		view.OtherClaims = append(view.OtherClaims, info)
	}
	return view, nil
}

func (s *ChecklistService) localNow() time.Time {
	return s.now().In(s.location)
}

func (s *ChecklistService) publishEvent(ctx context.Context, event events.Event) {
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
