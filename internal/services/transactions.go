package services

import (
	"context"
	"fmt"

	"trackify/internal/core"
)

// TransactionStore validates and persists a user's income and expense records.
type TransactionStore struct {
	repo TransactionRepository
}

func NewTransactionStore(repo TransactionRepository) *TransactionStore {
	return &TransactionStore{repo: repo}
}

// Insert stores tx for tx.UserEmail and returns the assigned id. tx.ID is ignored.
func (s *TransactionStore) Insert(ctx context.Context, tx core.Transaction) (int64, error) {
	tx = normalize(tx)
	if err := tx.Validate(); err != nil {
		return 0, err
	}
	id, err := s.repo.InsertTransaction(ctx, tx)
	if err != nil {
		return 0, fmt.Errorf("insert transaction: %w", err)
	}
	return id, nil
}

// Update overwrites row id with tx, owner included; tx.ID is ignored.
// Returns core.ErrNotFound when no row has that id.
func (s *TransactionStore) Update(ctx context.Context, id int64, tx core.Transaction) error {
	tx = normalize(tx)
	if err := tx.Validate(); err != nil {
		return err
	}
	return s.repo.UpdateTransaction(ctx, id, tx)
}

// Delete removes row id; core.ErrNotFound when it does not exist.
func (s *TransactionStore) Delete(ctx context.Context, id int64) error {
	return s.repo.DeleteTransaction(ctx, id)
}

func (s *TransactionStore) GetByID(ctx context.Context, id int64) (core.Transaction, error) {
	return s.repo.GetTransaction(ctx, id)
}

// ListByMonth returns the user's transactions dated within ym, newest first.
func (s *TransactionStore) ListByMonth(ctx context.Context, email string, ym core.YearMonth) ([]core.Transaction, error) {
	if err := ym.Validate(); err != nil {
		return nil, err
	}
	return s.repo.ListTransactionsByMonth(ctx, core.NormalizeEmail(email), ym)
}

// ListRecent returns up to limit of the user's newest transactions. A
// non-positive limit yields an empty list.
func (s *TransactionStore) ListRecent(ctx context.Context, email string, limit int) ([]core.Transaction, error) {
	if limit <= 0 {
		return []core.Transaction{}, nil
	}
	return s.repo.ListRecentTransactions(ctx, core.NormalizeEmail(email), limit)
}

func normalize(tx core.Transaction) core.Transaction {
	tx.UserEmail = core.NormalizeEmail(tx.UserEmail)
	return tx
}
