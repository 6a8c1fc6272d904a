package models

import "github.com/mmynk/rehabplan/internal/planner"

// PlanTemplate is a saved set of repayment plan inputs that a user can
// reload or run again later.
type PlanTemplate struct {
	// ID is the unique identifier for the template (UUID format).
	ID string

	// OwnerID is the user who saved the template. Templates are private.
	OwnerID string

	// Name is the label the user gave the template.
	Name string

	// Creditors are the claims, stored in the order they were entered.
	Creditors []planner.Creditor

	// MonthlyAvailable is the monthly repayment budget.
	MonthlyAvailable float64

	// Months is the plan horizon.
	Months int

	// CreatedAt is the Unix timestamp when the template was saved.
	CreatedAt int64
}
