package domain

import "time"

// ChecklistType identifies a recurring operational checklist.
type ChecklistType string

const (
	ChecklistTypeDayOps          ChecklistType = "DAY_OPS"
	ChecklistTypeNightOps        ChecklistType = "NIGHT_OPS"
	ChecklistTypeDayMonitoring   ChecklistType = "DAY_MONITORING"
	ChecklistTypeNightMonitoring ChecklistType = "NIGHT_MONITORING"
)

// IsNight reports whether the checklist day spans midnight: early-morning
// hours belong to the previous checklist day.
func (t ChecklistType) IsNight() bool {
	return t == ChecklistTypeNightOps || t == ChecklistTypeNightMonitoring
}

// ChecklistItemStatus enumerates item states.
type ChecklistItemStatus string

const (
	ChecklistItemPending    ChecklistItemStatus = "PENDING"
	ChecklistItemInProgress ChecklistItemStatus = "IN_PROGRESS"
	ChecklistItemCompleted  ChecklistItemStatus = "COMPLETED"
	ChecklistItemSkipped    ChecklistItemStatus = "SKIPPED"
)

// ChecklistInstanceStatus enumerates instance states.
type ChecklistInstanceStatus string

const (
	ChecklistInstancePending    ChecklistInstanceStatus = "PENDING"
	ChecklistInstanceInProgress ChecklistInstanceStatus = "IN_PROGRESS"
	ChecklistInstanceCompleted  ChecklistInstanceStatus = "COMPLETED"
)

// ChecklistTemplateItem is an admin-managed immutable template row.
// UnlockTime is "HH:MM" local; empty means always unlocked.
type ChecklistTemplateItem struct {
	ID            string
	ChecklistType ChecklistType
	Category      string
	Title         string
	Description   string
	Order         int
	IsRequired    bool
	UnlockTime    string
	InputType     string
	IsActive      bool
	CreatedAt     time.Time
}

// ChecklistInstance is one user's claim of a checklist for one day.
type ChecklistInstance struct {
	ID            string
	ChecklistType ChecklistType
	Date          time.Time
	Status        ChecklistInstanceStatus
	ClaimedByID   string
	Items         []ChecklistItem
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ChecklistItem is the per-instance state of a template item.
type ChecklistItem struct {
	ID          string
	InstanceID  string
	Category    string
	Title       string
	Description string
	Order       int
	IsRequired  bool
	UnlockTime  string
	InputType   string
	Status      ChecklistItemStatus
	Notes       string
	CompletedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
