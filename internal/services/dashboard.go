package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"trackify/internal/core"
)

// DashboardConfig holds the landing page parameters.
type DashboardConfig struct {
	// LowBalanceThreshold flags balances strictly below it (default: 2000)
	LowBalanceThreshold float64

	// RecentLimit is the number of recent transactions shown (default: 3)
	RecentLimit int
}

// DefaultDashboardConfig returns sensible defaults
func DefaultDashboardConfig() DashboardConfig {
	return DashboardConfig{
		LowBalanceThreshold: 2000,
		RecentLimit:         3,
	}
}

// Dashboard assembles the landing snapshot from independent queries.
type Dashboard struct {
	agg      *AggregationEngine
	txs      *TransactionStore
	notifier Notifier
	config   DashboardConfig
}

func NewDashboard(agg *AggregationEngine, txs *TransactionStore, notifier Notifier, cfg DashboardConfig) *Dashboard {
	return &Dashboard{agg: agg, txs: txs, notifier: notifier, config: cfg}
}

// Threshold returns the configured low balance threshold.
func (d *Dashboard) Threshold() float64 {
	return d.config.LowBalanceThreshold
}

// Snapshot reads balance, the current month's expense and the most recent
// transactions concurrently. A low balance publishes an alert event.
func (d *Dashboard) Snapshot(ctx context.Context, email string, now time.Time) (core.Dashboard, error) {
	email = core.NormalizeEmail(email)
	snap := core.Dashboard{Month: core.MonthOf(now)}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		snap.Balance, err = d.agg.TotalBalance(gctx, email)
		return err
	})
	g.Go(func() error {
		var err error
		snap.MonthExpense, err = d.agg.MonthlyTotal(gctx, email, snap.Month, core.KindExpense)
		return err
	})
	g.Go(func() error {
		var err error
		snap.Recent, err = d.txs.ListRecent(gctx, email, d.config.RecentLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.Dashboard{}, fmt.Errorf("dashboard snapshot: %w", err)
	}

	snap.LowBalance = snap.Balance < d.config.LowBalanceThreshold
	if snap.LowBalance && d.notifier != nil {
		if err := d.notifier.PublishLowBalance(ctx, email, snap.Balance, d.config.LowBalanceThreshold); err != nil {
			slog.ErrorContext(ctx, "Failed to publish low balance event",
				"email", email, "balance", snap.Balance, "error", err)
		}
	}
	return snap, nil
}
