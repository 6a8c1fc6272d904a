package models

import (
	"time"

	"github.com/google/uuid"
)

// Role is the access level of a user account.
type Role string

const (
	// RoleAdmin can do everything, including running repayment plans.
	RoleAdmin Role = "ADMIN"
	// RoleOperator manages accounts: it lists them and can deactivate them.
	RoleOperator Role = "OPERATOR"
	// RoleUser can use the features they were approved for.
	RoleUser Role = "USER"
	// RolePending is waiting for approval.
	RolePending Role = "PENDING"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleOperator, RoleUser, RolePending:
		return true
	}
	return false
}

// User represents a registered account of the office.
type User struct {
	// ID is the unique identifier for the user (UUID format).
	ID string

	// Username is the login name (unique).
	Username string

	// Name is the display name shown in documents and the UI.
	Name string

	// PasswordHash is the bcrypt hash of the user's password.
	PasswordHash string

	// Role decides which operations the user may call.
	Role Role

	// Active accounts may log in. Deactivated accounts are kept for history.
	Active bool

	// CreatedAt and UpdatedAt are Unix timestamps.
	CreatedAt int64
	UpdatedAt int64
}

// NewUser creates an active user with a fresh ID and timestamps.
func NewUser(username, name, passwordHash string, role Role) *User {
	now := time.Now().Unix()
	return &User{
		ID:           uuid.New().String(),
		Username:     username,
		Name:         name,
		PasswordHash: passwordHash,
		Role:         role,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
