// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/rehabplan/internal/models"
)

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a unique constraint would be violated.
	ErrConflict = errors.New("already exists")
)

// UserStore persists user accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	ListUsers(ctx context.Context) ([]*models.User, error)
	UpdateUserRole(ctx context.Context, id string, role models.Role) error
	SetUserActive(ctx context.Context, id string, active bool) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}

// TemplateStore persists saved plan templates.
type TemplateStore interface {
	// CreateTemplate persists a template. ID and CreatedAt are assigned by
	// the store when empty.
	CreateTemplate(ctx context.Context, tmpl *models.PlanTemplate) error

	// GetTemplate returns the template with the given ID owned by ownerID.
	GetTemplate(ctx context.Context, id, ownerID string) (*models.PlanTemplate, error)

	// ListTemplates returns the owner's templates, newest first.
	ListTemplates(ctx context.Context, ownerID string) ([]*models.PlanTemplate, error)

	// DeleteTemplate removes a template. Returns ErrNotFound if the owner
	// has no such template.
	DeleteTemplate(ctx context.Context, id, ownerID string) error
}

// MedianIncomeStore persists the standard median income table.
type MedianIncomeStore interface {
	ListMedianIncome(ctx context.Context) ([]*models.MedianIncome, error)
	GetMedianIncome(ctx context.Context, year, householdSize int) (*models.MedianIncome, error)
	UpsertMedianIncome(ctx context.Context, year int, items []models.MedianIncomeItem) error
	DeleteMedianIncome(ctx context.Context, id int64) error
}

// InquiryStore persists contact form inquiries.
type InquiryStore interface {
	// CreateInquiry persists an inquiry. ID and CreatedAt are assigned by
	// the store when empty.
	CreateInquiry(ctx context.Context, inquiry *models.Inquiry) error

	// ListInquiries returns every inquiry with its sender's username,
	// newest first.
	ListInquiries(ctx context.Context) ([]*models.Inquiry, error)
}

// Store combines all storage operations.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the service layer.
type Store interface {
	UserStore
	TemplateStore
	MedianIncomeStore
	InquiryStore

	// Close releases any resources held by the store.
	Close() error
}
