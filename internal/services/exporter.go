package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"trackify/internal/core"
	"trackify/internal/sheets"
)

// ErrExportDisabled is returned when no export backend is configured.
var ErrExportDisabled = errors.New("export backend not configured")

// Exporter writes a user's month (transactions, summary and category
// breakdown) to an external sheet.
type Exporter struct {
	agg    *AggregationEngine
	txs    *TransactionStore
	writer sheets.MonthWriter
}

func NewExporter(agg *AggregationEngine, txs *TransactionStore, writer sheets.MonthWriter) *Exporter {
	return &Exporter{agg: agg, txs: txs, writer: writer}
}

// ExportMonth builds the month report and hands it to the writer.
func (e *Exporter) ExportMonth(ctx context.Context, email string, ym core.YearMonth) (string, error) {
	if e.writer == nil {
		return "", ErrExportDisabled
	}
	email = core.NormalizeEmail(email)

	summary, err := e.agg.MonthlySummary(ctx, email, ym)
	if err != nil {
		return "", fmt.Errorf("export month: %w", err)
	}
	cats, err := e.agg.MonthlyCategoryBreakdown(ctx, email, ym)
	if err != nil {
		return "", fmt.Errorf("export month: %w", err)
	}
	txs, err := e.txs.ListByMonth(ctx, email, ym)
	if err != nil {
		return "", fmt.Errorf("export month: %w", err)
	}
	for _, tx := range txs {
		if _, err := tx.Date.Time(); err != nil {
			return "", fmt.Errorf("export month: transaction %d: %w", tx.ID, err)
		}
	}

	ref, err := e.writer.WriteMonth(ctx, sheets.MonthReport{
		UserEmail:    email,
		Month:        ym,
		Summary:      summary,
		Categories:   cats,
		Transactions: txs,
	})
	if err != nil {
		return "", fmt.Errorf("write month report: %w", err)
	}

	slog.InfoContext(ctx, "Month exported", "email", email, "month", ym, "rows", len(txs), "ref", ref)
	return ref, nil
}
