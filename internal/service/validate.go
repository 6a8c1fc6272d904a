package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mmynk/rehabplan/internal/planner"
)

const (
	// MaxPlanMonths bounds the plan horizon a request may ask for.
	MaxPlanMonths = 1200

	// MaxAmount is the largest claim, budget or claim total a request may
	// carry: 2^53, the last integer float64 holds exactly. Every rounded
	// payment and plan total then fits in an int64.
	MaxAmount = 1 << 53
)

// planInput is a validated plan request. Its JSON encoding is the cache key
// material, so field order must stay stable.
type planInput struct {
	Creditors        []planner.Creditor `json:"creditors"`
	MonthlyAvailable float64            `json:"monthlyAvailable"`
	Months           int                `json:"months"`
}

// validatePlan checks a plan request before the engine sees it. The error
// names the offending field.
func validatePlan(creditors []CreditorInput, monthlyAvailable float64, months int) (planInput, error) {
	if len(creditors) == 0 {
		return planInput{}, errors.New("creditors: at least one creditor is required")
	}
	if !(monthlyAvailable > 0) {
		return planInput{}, errors.New("monthlyAvailable: must be greater than 0")
	}
	if monthlyAvailable > MaxAmount {
		return planInput{}, fmt.Errorf("monthlyAvailable: must not exceed %d", int64(MaxAmount))
	}
	if months <= 0 {
		return planInput{}, errors.New("months: must be greater than 0")
	}
	if months > MaxPlanMonths {
		return planInput{}, fmt.Errorf("months: must not exceed %d", MaxPlanMonths)
	}

	in := planInput{
		Creditors:        make([]planner.Creditor, len(creditors)),
		MonthlyAvailable: monthlyAvailable,
		Months:           months,
	}
	seen := make(map[string]bool, len(creditors))
	var total float64
	for i, c := range creditors {
		name := strings.TrimSpace(c.Name)
		switch {
		case name == "":
			return planInput{}, fmt.Errorf("creditors[%d].name: is required", i)
		case name == planner.RoundKey:
			return planInput{}, fmt.Errorf("creditors[%d].name: %q is reserved", i, name)
		case seen[name]:
			return planInput{}, fmt.Errorf("creditors[%d].name: duplicate creditor name %q", i, name)
		case c.Amount == nil:
			return planInput{}, fmt.Errorf("creditors[%d].amount: is required", i)
		case !(*c.Amount > 0):
			return planInput{}, fmt.Errorf("creditors[%d].amount: must be greater than 0", i)
		case *c.Amount > MaxAmount:
			return planInput{}, fmt.Errorf("creditors[%d].amount: must not exceed %d", i, int64(MaxAmount))
		}
		seen[name] = true
		total += *c.Amount
		in.Creditors[i] = planner.Creditor{Name: name, Amount: *c.Amount, Priority: c.Priority}
	}
	if total > MaxAmount {
		return planInput{}, fmt.Errorf("creditors: total amount must not exceed %d", int64(MaxAmount))
	}

	return in, nil
}
