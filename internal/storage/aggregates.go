package storage

import (
	"context"

	"trackify/internal/core"
)

// SumByKind returns the user's all-time totals keyed by transaction type.
// Types with no rows are absent from the map.
func (r *SQLiteRepository) SumByKind(ctx context.Context, email string) (map[core.Kind]float64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT type, SUM(amount) FROM expenses WHERE user_email = ? GROUP BY type`, email)
	if err != nil {
		return nil, storageFault("sum by type", err)
	}
	defer rows.Close()

	sums := make(map[core.Kind]float64, 2)
	for rows.Next() {
		var (
			kind  string
			total float64
		)
		if err := rows.Scan(&kind, &total); err != nil {
			return nil, storageFault("sum by type", err)
		}
		sums[core.Kind(kind)] = total
	}
	if err := rows.Err(); err != nil {
		return nil, storageFault("sum by type", err)
	}
	return sums, nil
}

// MonthlyTotal sums the user's rows of one type within ym; 0 when there are none.
func (r *SQLiteRepository) MonthlyTotal(ctx context.Context, email string, ym core.YearMonth, kind core.Kind) (float64, error) {
	var total float64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM expenses
		 WHERE user_email = ? AND type = ? AND substr(date, 1, 7) = ?`,
		email, string(kind), string(ym),
	).Scan(&total)
	if err != nil {
		return 0, storageFault("monthly total", err)
	}
	return total, nil
}

// MonthlyCategoryTotals sums the user's expenses within ym per category,
// largest first. Categories without expenses do not appear.
func (r *SQLiteRepository) MonthlyCategoryTotals(ctx context.Context, email string, ym core.YearMonth) ([]core.CategoryAmount, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT category, SUM(amount) AS total FROM expenses
		 WHERE user_email = ? AND type = ? AND substr(date, 1, 7) = ?
		 GROUP BY category
		 ORDER BY total DESC, category ASC`,
		email, string(core.KindExpense), string(ym))
	if err != nil {
		return nil, storageFault("monthly category totals", err)
	}
	defer rows.Close()

	out := []core.CategoryAmount{}
	for rows.Next() {
		var ca core.CategoryAmount
		if err := rows.Scan(&ca.Name, &ca.Amount); err != nil {
			return nil, storageFault("monthly category totals", err)
		}
		out = append(out, ca)
	}
	if err := rows.Err(); err != nil {
		return nil, storageFault("monthly category totals", err)
	}
	return out, nil
}
