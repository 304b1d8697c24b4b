package domain

import "time"

// SLATracking is the persisted SLA record for a ticket. Breach flags are
// sticky: set when first observed by the monitor, never cleared.
type SLATracking struct {
	ID                   string
	TicketID             string
	ResponseDeadline     *time.Time
	ResolutionDeadline   *time.Time
	IsResponseBreached   bool
	IsResolutionBreached bool
	ResponseTime         *float64
	ResolutionTime       *float64
	CreatedAt            time.Time
	UpdatedAt            time.Time
}
