package domain

import "time"

// ApprovalStatus is the decision recorded by a manager.
type ApprovalStatus string

const (
	ApprovalStatusApproved ApprovalStatus = "APPROVED"
	ApprovalStatusRejected ApprovalStatus = "REJECTED"
)

// Approval records a manager decision on a ticket. The latest approval per
// ticket drives the status machine branch.
type Approval struct {
	ID         string
	TicketID   string
	ApproverID string
	Status     ApprovalStatus
	Reason     string
	CreatedAt  time.Time
}
