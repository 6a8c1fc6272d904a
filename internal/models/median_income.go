package models

// MedianIncome is the published standard median income for one year and
// household size. Living costs in a rehabilitation filing are derived from
// it.
type MedianIncome struct {
	ID            int64
	Year          int
	HouseholdSize int
	Amount        float64
	CreatedAt     int64
}

// MedianIncomeItem is one household size entry of a bulk update.
type MedianIncomeItem struct {
	HouseholdSize int
	Amount        float64
}
