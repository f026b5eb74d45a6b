package sheets

import (
	"context"

	"trackify/internal/core"
)

// MonthReport is everything exported for one user and month.
type MonthReport struct {
	UserEmail    string
	Month        core.YearMonth
	Summary      core.MonthlySummary
	Categories   []core.CategoryAmount
	Transactions []core.Transaction
}

// Ports for outbound adapters.
type (
	// MonthWriter persists a month report and returns a reference to where it
	// was written (a sheet range, or a synthetic key for in-memory stores).
	MonthWriter interface {
		WriteMonth(ctx context.Context, r MonthReport) (ref string, err error)
	}
)
