package domain

import "time"

// Service is a catalog entry tickets are raised against. SLA hours are
// wall-clock; zero disables the corresponding deadline.
type Service struct {
	ID               string
	Name             string
	RequiresApproval bool
	ResponseHours    float64
	ResolutionHours  float64
	SupportGroupID   *string
	IsActive         bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
