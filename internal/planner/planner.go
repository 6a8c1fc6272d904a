// Package planner computes month-by-month repayment schedules for a
// rehabilitation plan.
package planner

import "math"

// RoundKey is the row key holding the 1-based month number in the
// serialized plan. Creditor names must not collide with it.
const RoundKey = "round"

// settledEpsilon is the remaining balance below which a claim counts as
// fully repaid.
const settledEpsilon = 1e-6

// maxPrealloc bounds the row capacity reserved up front.
const maxPrealloc = 120

// Creditor is one claim in the plan.
type Creditor struct {
	Name     string  `json:"name"`
	Amount   float64 `json:"amount"`
	Priority bool    `json:"priority"`
}

// Payment is the rounded amount paid to one creditor in one month.
type Payment struct {
	Name   string
	Amount int64
}

// MonthlyRow is one month of the schedule. Payments holds an entry for
// every creditor, in input order, including the ones paid nothing.
type MonthlyRow struct {
	Round    int
	Payments []Payment
}

// Amount returns the payment recorded for name in this row.
func (r MonthlyRow) Amount(name string) (int64, bool) {
	for _, p := range r.Payments {
		if p.Name == name {
			return p.Amount, true
		}
	}
	return 0, false
}

// Total returns the sum of the row's rounded payments.
func (r MonthlyRow) Total() int64 {
	var sum int64
	for _, p := range r.Payments {
		sum += p.Amount
	}
	return sum
}

// ComputePlan allocates monthlyBudget across creditors for up to
// horizonMonths months.
//
// Each month priority claims are paid first, pro-rata by outstanding
// balance and capped at what they still owe. Whatever budget is left goes
// to the general claims the same way. Payments are rounded half away from
// zero per creditor; balances are reduced by the unrounded amounts. The
// schedule ends early once every balance is repaid.
//
// Callers must validate the input: at least one creditor, unique non-empty
// names, positive amounts, and a positive budget and horizon.
func ComputePlan(creditors []Creditor, monthlyBudget float64, horizonMonths int) ([]MonthlyRow, Statistics) {
	order := make([]string, 0, len(creditors))
	balances := make(map[string]float64, len(creditors))
	for _, c := range creditors {
		if _, seen := balances[c.Name]; !seen {
			order = append(order, c.Name)
		}
		balances[c.Name] = c.Amount
	}

	rows := make([]MonthlyRow, 0, min(horizonMonths, maxPrealloc))
	for month := 1; month <= horizonMonths; month++ {
		paid := make(map[string]int64, len(order))
		remaining := monthlyBudget

		remaining -= allocate(creditors, balances, paid, remaining, true)
		if remaining > 0 {
			allocate(creditors, balances, paid, remaining, false)
		}

		row := MonthlyRow{Round: month, Payments: make([]Payment, len(order))}
		for i, name := range order {
			row.Payments[i] = Payment{Name: name, Amount: paid[name]}
		}
		rows = append(rows, row)

		if outstanding(balances) <= 0 {
			break
		}
	}

	return rows, summarize(creditors, rows)
}

// allocate pays budget pro-rata across the creditors of one class that
// still carry a balance and returns the unrounded amount consumed.
func allocate(creditors []Creditor, balances map[string]float64, paid map[string]int64, budget float64, priority bool) float64 {
	var eligible []string
	var total float64
	seen := make(map[string]bool)
	for _, c := range creditors {
		if c.Priority != priority || seen[c.Name] || balances[c.Name] <= 0 {
			continue
		}
		seen[c.Name] = true
		eligible = append(eligible, c.Name)
		total += balances[c.Name]
	}
	if len(eligible) == 0 || budget <= 0 {
		return 0
	}

	payAmount := math.Min(budget, total)
	for _, name := range eligible {
		payment := payAmount * (balances[name] / total)
		balances[name] = settle(balances[name] - payment)
		paid[name] = Round(payment)
	}
	return payAmount
}

// settle clamps floating-point residue of a repaid claim to zero.
func settle(balance float64) float64 {
	if balance < settledEpsilon {
		return 0
	}
	return balance
}

func outstanding(balances map[string]float64) float64 {
	var sum float64
	for _, b := range balances {
		sum += b
	}
	return sum
}

// Round rounds x to the nearest integer, halves away from zero.
func Round(x float64) int64 {
	return int64(math.Round(x))
}
