package lifecycle

import (
	"math"
	"time"

	"github.com/atlasbank/servicedesk/internal/domain"
)

// SLASnapshot is the SLA view of one ticket computed at query time.
type SLASnapshot struct {
	ResponseDeadline     *time.Time `json:"response_deadline"`
	ResolutionDeadline   *time.Time `json:"resolution_deadline"`
	IsResponseBreached   bool       `json:"is_response_breached"`
	IsResolutionBreached bool       `json:"is_resolution_breached"`
	// Actual elapsed hours; nil until the ticket has been responded
	// to / resolved.
	ResponseTime   *float64 `json:"response_time,omitempty"`
	ResolutionTime *float64 `json:"resolution_time,omitempty"`
}

// ComputeSLA derives deadlines and breach state for a ticket. Deadlines are
// plain wall-clock addition of the service's SLA hours to createdAt; hours
// of zero disable the corresponding target. First response is the claim
// time; resolution stops the clock at resolvedAt (cancelledAt for cancelled
// tickets). Unfinished targets compare against now.
func ComputeSLA(ticket *domain.Ticket, svc *domain.Service, now time.Time) SLASnapshot {
	var snap SLASnapshot
	if ticket == nil || svc == nil {
		return snap
	}

	if svc.ResponseHours > 0 {
		deadline := ticket.CreatedAt.Add(hoursToDuration(svc.ResponseHours))
		snap.ResponseDeadline = &deadline
		if ticket.ClaimedAt != nil {
			elapsed := ticket.ClaimedAt.Sub(ticket.CreatedAt).Hours()
			snap.ResponseTime = &elapsed
			snap.IsResponseBreached = ticket.ClaimedAt.After(deadline)
		} else {
			snap.IsResponseBreached = now.After(deadline)
		}
	}

	if svc.ResolutionHours > 0 {
		deadline := ticket.CreatedAt.Add(hoursToDuration(svc.ResolutionHours))
		snap.ResolutionDeadline = &deadline
		end := ticket.ResolvedAt
		if end == nil {
			end = ticket.CancelledAt
		}
		if end != nil {
			elapsed := end.Sub(ticket.CreatedAt).Hours()
			snap.ResolutionTime = &elapsed
			snap.IsResolutionBreached = end.After(deadline)
		} else {
			snap.IsResolutionBreached = now.After(deadline)
		}
	}

	return snap
}

// CompliancePercent aggregates breach counts into a compliance percentage
// rounded to one decimal. Zero tickets yields 0, never NaN.
func CompliancePercent(total, breached int) float64 {
	if total <= 0 {
		return 0
	}
	pct := float64(total-breached) / float64(total) * 100
	return math.Round(pct*10) / 10
}

func hoursToDuration(hours float64) time.Duration {
	return time.Duration(hours * float64(time.Hour))
}
