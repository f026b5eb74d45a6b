package services

import (
	"context"
	"errors"
	"fmt"
	"io"

	"trackify/internal/sheets"
	"trackify/internal/storage"
)

// Config gathers the tunables of every service.
type Config struct {
	Credentials CredentialConfig
	Dashboard   DashboardConfig
}

// Services wires the stores and engines over one repository.
type Services struct {
	Credentials  *CredentialStore
	Transactions *TransactionStore
	Aggregation  *AggregationEngine
	Dashboard    *Dashboard
	Exporter     *Exporter

	repo     *storage.SQLiteRepository
	notifier Notifier
}

// New builds the services. notifier and writer may be nil interfaces;
// callers must not pass typed nil pointers.
func New(repo *storage.SQLiteRepository, notifier Notifier, writer sheets.MonthWriter, cfg Config) *Services {
	txs := NewTransactionStore(repo)
	agg := NewAggregationEngine(repo)
	return &Services{
		Credentials:  NewCredentialStore(repo, notifier, cfg.Credentials),
		Transactions: txs,
		Aggregation:  agg,
		Dashboard:    NewDashboard(agg, txs, notifier, cfg.Dashboard),
		Exporter:     NewExporter(agg, txs, writer),
		repo:         repo,
		notifier:     notifier,
	}
}

// Close closes the repository and the notifier when it holds a connection.
func (s *Services) Close() error {
	var errs []error

	if s.repo != nil {
		if err := s.repo.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if c, ok := s.notifier.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("notifier: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close services: %w", errors.Join(errs...))
	}
	return nil
}

// Ping checks that the database answers.
func (s *Services) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}
