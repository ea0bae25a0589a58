package domain

import "github.com/google/uuid"

type Role string

const (
	RoleCustomer Role = "customer"
	RoleEmployee Role = "employee"
)

// Actor is the authenticated caller, supplied by the session layer.
// The workflow trusts it and only checks the role fits the operation.
type Actor struct {
	ID   uuid.UUID
	Role Role
}
