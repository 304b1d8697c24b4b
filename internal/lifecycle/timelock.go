package lifecycle

import (
	"fmt"
	"time"

	"github.com/atlasbank/servicedesk/internal/domain"
)

// Hours before this boundary belong to the previous checklist day for night
// checklists.
const dayBoundaryHour = 8

// LockState is the result of evaluating a checklist item's time window.
type LockState struct {
	IsLocked    bool   `json:"is_locked"`
	LockMessage string `json:"lock_message,omitempty"`
}

// EvaluateLock decides whether an item with the given "HH:MM" unlock time is
// actionable at now. The boundary is inclusive: exactly at the unlock minute
// the item is unlocked, and it never re-locks within the checklist day. For
// night checklists, times before the day boundary count as the next calendar
// day so late-evening unlocks survive midnight. An empty or malformed unlock
// time never locks.
func EvaluateLock(unlockTime string, now time.Time, night bool) LockState {
	if unlockTime == "" {
		return LockState{}
	}
	unlockMinutes, ok := parseClock(unlockTime)
	if !ok {
		return LockState{}
	}

	nowMinutes := now.Hour()*60 + now.Minute()
	if night {
		if now.Hour() < dayBoundaryHour {
			nowMinutes += 24 * 60
		}
		if unlockMinutes < dayBoundaryHour*60 {
			unlockMinutes += 24 * 60
		}
	}

	if nowMinutes >= unlockMinutes {
		return LockState{}
	}
	return LockState{
		IsLocked:    true,
		LockMessage: fmt.Sprintf("Item locked until %s", unlockTime),
	}
}

// ChecklistDate maps now to the checklist calendar day. Night checklists
// running past midnight still belong to the day the shift started.
func ChecklistDate(checklistType domain.ChecklistType, now time.Time) time.Time {
	day := now
	if checklistType.IsNight() && now.Hour() < dayBoundaryHour {
		day = now.AddDate(0, 0, -1)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
}

func parseClock(value string) (int, bool) {
	parsed, err := time.Parse("15:04", value)
	if err != nil {
		return 0, false
	}
	return parsed.Hour()*60 + parsed.Minute(), true
}
