package planner

import "github.com/shopspring/decimal"

// Statistics summarizes a computed plan.
type Statistics struct {
	// TotalAmount is the sum of the creditors' original claims.
	TotalAmount float64

	// TotalPayment is the sum of every rounded monthly payment.
	TotalPayment int64

	// DifferenceAmount is TotalAmount - TotalPayment, rounded. It carries
	// the drift from per-creditor rounding and from a horizon too short to
	// repay everything.
	DifferenceAmount int64
}

func summarize(creditors []Creditor, rows []MonthlyRow) Statistics {
	total := decimal.Zero
	for _, c := range creditors {
		total = total.Add(decimal.NewFromFloat(c.Amount))
	}

	var paid int64
	for _, row := range rows {
		paid += row.Total()
	}

	return Statistics{
		TotalAmount:      total.InexactFloat64(),
		TotalPayment:     paid,
		DifferenceAmount: total.Sub(decimal.NewFromInt(paid)).Round(0).IntPart(),
	}
}
