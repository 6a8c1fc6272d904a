package planner

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func amounts(t *testing.T, row MonthlyRow, names ...string) []int64 {
	t.Helper()
	out := make([]int64, len(names))
	for i, name := range names {
		amount, ok := row.Amount(name)
		require.Truef(t, ok, "round %d has no entry for %s", row.Round, name)
		out[i] = amount
	}
	return out
}

func TestComputePlan_SingleGeneralCreditor(t *testing.T) {
	rows, stats := ComputePlan([]Creditor{{Name: "Bank", Amount: 1200}}, 100, 12)

	require.Len(t, rows, 12)
	for i, row := range rows {
		assert.Equal(t, i+1, row.Round)
		assert.Equal(t, []int64{100}, amounts(t, row, "Bank"))
	}
	assert.Equal(t, 1200.0, stats.TotalAmount)
	assert.Equal(t, int64(1200), stats.TotalPayment)
	assert.Equal(t, int64(0), stats.DifferenceAmount)
}

func TestComputePlan_PriorityBeforeGeneral(t *testing.T) {
	creditors := []Creditor{
		{Name: "A", Amount: 1000, Priority: true},
		{Name: "B", Amount: 1000},
	}
	rows, stats := ComputePlan(creditors, 100, 30)

	require.Len(t, rows, 20, "plan should stop once both claims are repaid")
	for _, row := range rows[:10] {
		assert.Equal(t, []int64{100, 0}, amounts(t, row, "A", "B"), "round %d", row.Round)
	}
	for _, row := range rows[10:] {
		assert.Equal(t, []int64{0, 100}, amounts(t, row, "A", "B"), "round %d", row.Round)
	}
	assert.Equal(t, int64(2000), stats.TotalPayment)
	assert.Equal(t, int64(0), stats.DifferenceAmount)
}

func TestComputePlan_BudgetExceedsDebt(t *testing.T) {
	rows, stats := ComputePlan([]Creditor{{Name: "Card", Amount: 50}}, 100, 12)

	require.Len(t, rows, 1)
	assert.Equal(t, []int64{50}, amounts(t, rows[0], "Card"), "general pass must not pay more than is owed")
	assert.Equal(t, int64(50), stats.TotalPayment)
	assert.Equal(t, int64(0), stats.DifferenceAmount)
}

func TestComputePlan_PriorityRemainderFlowsToGeneral(t *testing.T) {
	creditors := []Creditor{
		{Name: "Tax", Amount: 150, Priority: true},
		{Name: "Bank", Amount: 1000},
	}
	rows, _ := ComputePlan(creditors, 100, 3)

	require.Len(t, rows, 3)
	assert.Equal(t, []int64{100, 0}, amounts(t, rows[0], "Tax", "Bank"))
	assert.Equal(t, []int64{50, 50}, amounts(t, rows[1], "Tax", "Bank"))
	assert.Equal(t, []int64{0, 100}, amounts(t, rows[2], "Tax", "Bank"))
}

func TestComputePlan_ProRataByOutstandingBalance(t *testing.T) {
	creditors := []Creditor{
		{Name: "Big", Amount: 3000},
		{Name: "Small", Amount: 1000},
	}
	rows, _ := ComputePlan(creditors, 400, 1)

	require.Len(t, rows, 1)
	assert.Equal(t, []int64{300, 100}, amounts(t, rows[0], "Big", "Small"))
}

func TestComputePlan_PriorityProRata(t *testing.T) {
	creditors := []Creditor{
		{Name: "Wages", Amount: 600, Priority: true},
		{Name: "Tax", Amount: 200, Priority: true},
		{Name: "Bank", Amount: 5000},
	}
	rows, _ := ComputePlan(creditors, 400, 2)

	require.Len(t, rows, 2)
	assert.Equal(t, []int64{300, 100, 0}, amounts(t, rows[0], "Wages", "Tax", "Bank"))
	// 300 + 100 left on the priority claims, nothing for the bank yet
	assert.Equal(t, []int64{300, 100, 0}, amounts(t, rows[1], "Wages", "Tax", "Bank"))
}

func TestComputePlan_RoundingDriftIsReported(t *testing.T) {
	creditors := []Creditor{
		{Name: "A", Amount: 100},
		{Name: "B", Amount: 100},
		{Name: "C", Amount: 100},
	}
	rows, stats := ComputePlan(creditors, 100, 12)

	require.Len(t, rows, 3)
	for _, row := range rows {
		assert.Equal(t, []int64{33, 33, 33}, amounts(t, row, "A", "B", "C"))
	}
	assert.Equal(t, int64(297), stats.TotalPayment)
	assert.Equal(t, int64(3), stats.DifferenceAmount)
}

func TestComputePlan_HalvesRoundAwayFromZero(t *testing.T) {
	creditors := []Creditor{
		{Name: "A", Amount: 1000},
		{Name: "B", Amount: 1000},
	}
	rows, stats := ComputePlan(creditors, 101, 1)

	require.Len(t, rows, 1)
	assert.Equal(t, []int64{51, 51}, amounts(t, rows[0], "A", "B"))
	assert.Equal(t, int64(102), stats.TotalPayment)
	assert.Equal(t, int64(1898), stats.DifferenceAmount)
}

func TestComputePlan_ShortHorizonKeepsBudget(t *testing.T) {
	creditors := []Creditor{
		{Name: "A", Amount: 10000},
		{Name: "B", Amount: 7000},
		{Name: "C", Amount: 3333},
	}
	const months = 5
	rows, stats := ComputePlan(creditors, 1000, months)

	require.Len(t, rows, months)
	drift := float64(len(creditors)*months) * 0.5
	assert.InDelta(t, 1000*months, stats.TotalPayment, drift)
	assert.Equal(t, Round(stats.TotalAmount-float64(stats.TotalPayment)), stats.DifferenceAmount)
}

func TestComputePlan_DuplicateNamesMerge(t *testing.T) {
	creditors := []Creditor{
		{Name: "A", Amount: 500},
		{Name: "A", Amount: 300},
	}
	rows, stats := ComputePlan(creditors, 100, 12)

	require.Len(t, rows, 3)
	require.Len(t, rows[0].Payments, 1)
	assert.Equal(t, 800.0, stats.TotalAmount)
	assert.Equal(t, int64(300), stats.TotalPayment)
}

// TestComputePlan_Invariants checks row completeness, non-negative payments,
// priority ordering and early termination over generated inputs.
func TestComputePlan_Invariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 200; i++ {
		n := 1 + rng.Intn(6)
		creditors := make([]Creditor, n)
		for j := range creditors {
			creditors[j] = Creditor{
				Name:     fmt.Sprintf("c%d", j),
				Amount:   float64(1 + rng.Intn(50000)),
				Priority: rng.Intn(3) == 0,
			}
		}
		budget := float64(1 + rng.Intn(5000))
		months := 1 + rng.Intn(60)

		t.Run(fmt.Sprintf("case-%d", i), func(t *testing.T) {
			rows, stats := ComputePlan(creditors, budget, months)
			require.NotEmpty(t, rows)
			require.LessOrEqual(t, len(rows), months)

			balances := make(map[string]float64, n)
			for _, c := range creditors {
				balances[c.Name] = c.Amount
			}

			var paid int64
			for r, row := range rows {
				require.Equal(t, r+1, row.Round)
				require.Len(t, row.Payments, n)

				var priorityOwed float64
				for _, c := range creditors {
					if c.Priority {
						priorityOwed += balances[c.Name]
					}
				}

				var generalPaid int64
				for k, p := range row.Payments {
					assert.Equal(t, creditors[k].Name, p.Name)
					assert.GreaterOrEqual(t, p.Amount, int64(0))
					if !creditors[k].Priority {
						generalPaid += p.Amount
					}
					balances[p.Name] -= float64(p.Amount)
					paid += p.Amount
				}

				if priorityOwed > budget+float64(n*(r+1)) {
					assert.Zero(t, generalPaid, "round %d paid general claims while priority claims absorb the budget", row.Round)
				}
			}
			assert.Equal(t, paid, stats.TotalPayment)

			if len(rows) < months {
				var left float64
				for _, b := range balances {
					left += b
				}
				assert.InDelta(t, 0, left, float64(n*len(rows)), "stopped early with balances outstanding")
			}
		})
	}
}

func TestRound(t *testing.T) {
	assert.Equal(t, int64(3), Round(2.5))
	assert.Equal(t, int64(-3), Round(-2.5))
	assert.Equal(t, int64(0), Round(0.49))
	assert.Equal(t, int64(1), Round(0.5))
	assert.Equal(t, int64(-50), Round(-50))
}

func TestMonthlyRowJSON(t *testing.T) {
	row := MonthlyRow{Round: 4, Payments: []Payment{{"Zeta Bank", 120}, {"Alpha Card", 0}}}

	data, err := json.Marshal(row)
	require.NoError(t, err)
	assert.JSONEq(t, `{"round":4,"Zeta Bank":120,"Alpha Card":0}`, string(data))
	assert.Equal(t, `{"round":4,"Zeta Bank":120,"Alpha Card":0}`, string(data), "keys keep creditor order")

	var decoded MonthlyRow
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, row, decoded)
}

func TestMonthlyRowJSON_RejectsNonObject(t *testing.T) {
	var row MonthlyRow
	assert.Error(t, json.Unmarshal([]byte(`[1,2]`), &row))
	assert.Error(t, json.Unmarshal([]byte(`{"round":1,"A":"x"}`), &row))
}
