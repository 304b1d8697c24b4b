package domain

import "time"

// Role enumerates service-desk actor roles.
type Role string

const (
	RoleRequester  Role = "REQUESTER"
	RoleTechnician Role = "TECHNICIAN"
	RoleManager    Role = "MANAGER"
	RoleAdmin      Role = "ADMIN"
)

// CanWorkTickets reports whether the role may claim and progress tickets.
func (r Role) CanWorkTickets() bool {
	return r == RoleTechnician || r == RoleManager || r == RoleAdmin
}

// CanApprove reports whether the role may decide approvals.
func (r Role) CanApprove() bool {
	return r == RoleManager || r == RoleAdmin
}

// User is a service-desk account (requester or operator).
type User struct {
	ID             string
	Name           string
	Email          string
	PasswordHash   string
	Role           Role
	SupportGroupID *string
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
