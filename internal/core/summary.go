package core

// CategoryAmount is an expense total aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount float64
}

// MonthlySummary compares income and expense totals for one month.
type MonthlySummary struct {
	Month   YearMonth
	Income  float64
	Expense float64
}

// Net is income minus expense for the month.
func (m MonthlySummary) Net() float64 {
	return m.Income - m.Expense
}

// Dashboard is the landing snapshot for a signed-in user.
type Dashboard struct {
	Balance      float64
	MonthExpense float64
	Month        YearMonth
	Recent       []Transaction
	LowBalance   bool
}
