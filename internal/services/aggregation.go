package services

import (
	"context"
	"fmt"

	"trackify/internal/core"
)

// AggregationEngine derives balances and totals by querying on every call.
// Nothing is cached or accumulated between calls.
type AggregationEngine struct {
	repo AggregateRepository
}

func NewAggregationEngine(repo AggregateRepository) *AggregationEngine {
	return &AggregationEngine{repo: repo}
}

// TotalBalance is all-time income minus all-time expense for the user.
func (e *AggregationEngine) TotalBalance(ctx context.Context, email string) (float64, error) {
	sums, err := e.repo.SumByKind(ctx, core.NormalizeEmail(email))
	if err != nil {
		return 0, fmt.Errorf("total balance: %w", err)
	}
	return sums[core.KindIncome] - sums[core.KindExpense], nil
}

// MonthlyTotal sums the user's transactions of kind within ym.
func (e *AggregationEngine) MonthlyTotal(ctx context.Context, email string, ym core.YearMonth, kind core.Kind) (float64, error) {
	if err := ym.Validate(); err != nil {
		return 0, err
	}
	if err := kind.Validate(); err != nil {
		return 0, err
	}
	total, err := e.repo.MonthlyTotal(ctx, core.NormalizeEmail(email), ym, kind)
	if err != nil {
		return 0, fmt.Errorf("monthly %s total: %w", kind, err)
	}
	return total, nil
}

// MonthlyExpense is the expense total for the given calendar month.
func (e *AggregationEngine) MonthlyExpense(ctx context.Context, email string, year, month int) (float64, error) {
	return e.MonthlyTotal(ctx, email, core.NewYearMonth(year, month), core.KindExpense)
}

func (e *AggregationEngine) MonthlySummary(ctx context.Context, email string, ym core.YearMonth) (core.MonthlySummary, error) {
	income, err := e.MonthlyTotal(ctx, email, ym, core.KindIncome)
	if err != nil {
		return core.MonthlySummary{}, err
	}
	expense, err := e.MonthlyTotal(ctx, email, ym, core.KindExpense)
	if err != nil {
		return core.MonthlySummary{}, err
	}
	return core.MonthlySummary{Month: ym, Income: income, Expense: expense}, nil
}

// MonthlyCategoryBreakdown returns expense totals per category within ym,
// largest first. Categories with no expenses are omitted.
func (e *AggregationEngine) MonthlyCategoryBreakdown(ctx context.Context, email string, ym core.YearMonth) ([]core.CategoryAmount, error) {
	if err := ym.Validate(); err != nil {
		return nil, err
	}
	cats, err := e.repo.MonthlyCategoryTotals(ctx, core.NormalizeEmail(email), ym)
	if err != nil {
		return nil, fmt.Errorf("category breakdown: %w", err)
	}
	return cats, nil
}
