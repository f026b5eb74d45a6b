package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"trackify/internal/core"
)

const transactionColumns = `expense_id, user_email, type, category, amount, date, COALESCE(note, '')`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(s rowScanner) (core.Transaction, error) {
	var (
		tx             core.Transaction
		kind, category string
		date           string
	)
	if err := s.Scan(&tx.ID, &tx.UserEmail, &kind, &category, &tx.Amount, &date, &tx.Note); err != nil {
		return core.Transaction{}, err
	}
	tx.Class = core.RestoreClassification(kind, category)
	tx.Date = core.Date(date)
	return tx, nil
}

// InsertTransaction stores tx and returns the new expense_id. tx.ID is ignored.
func (r *SQLiteRepository) InsertTransaction(ctx context.Context, tx core.Transaction) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (user_email, type, category, amount, date, note) VALUES (?, ?, ?, ?, ?, ?)`,
		tx.UserEmail, string(tx.Class.Kind()), tx.Class.Category(), tx.Amount, string(tx.Date), tx.Note)
	if err != nil {
		if isForeignKeyViolation(err) {
			return 0, fmt.Errorf("insert transaction: unknown user %s: %w: %w", tx.UserEmail, core.ErrStorageFault, err)
		}
		return 0, storageFault("insert transaction", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, storageFault("insert transaction id", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", id,
		"type", tx.Class.Kind(),
		"category", tx.Class.Category(),
		"amount", tx.Amount,
		"date", tx.Date)

	return id, nil
}

// UpdateTransaction overwrites every field of row id except its key. It never
// creates a row.
func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, id int64, tx core.Transaction) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET user_email = ?, type = ?, category = ?, amount = ?, date = ?, note = ? WHERE expense_id = ?`,
		tx.UserEmail, string(tx.Class.Kind()), tx.Class.Category(), tx.Amount, string(tx.Date), tx.Note, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("update transaction %d: unknown user %s: %w: %w", id, tx.UserEmail, core.ErrStorageFault, err)
		}
		return storageFault("update transaction", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storageFault("update transaction", err)
	}
	if n == 0 {
		return fmt.Errorf("update transaction %d: %w", id, core.ErrNotFound)
	}

	slog.InfoContext(ctx, "Transaction updated", "id", id, "user_email", tx.UserEmail)
	return nil
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE expense_id = ?`, id)
	if err != nil {
		return storageFault("delete transaction", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storageFault("delete transaction", err)
	}
	if n == 0 {
		return fmt.Errorf("delete transaction %d: %w", id, core.ErrNotFound)
	}

	slog.InfoContext(ctx, "Transaction deleted", "id", id)
	return nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM expenses WHERE expense_id = ?`, id)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, storageFault("get transaction", err)
	}
	return tx, nil
}

// ListTransactionsByMonth returns the user's rows whose date starts with ym,
// newest first.
func (r *SQLiteRepository) ListTransactionsByMonth(ctx context.Context, email string, ym core.YearMonth) ([]core.Transaction, error) {
	return r.queryTransactions(ctx, "list transactions by month",
		`SELECT `+transactionColumns+` FROM expenses
		 WHERE user_email = ? AND substr(date, 1, 7) = ?
		 ORDER BY date DESC, expense_id DESC`,
		email, string(ym))
}

// ListRecentTransactions returns at most limit rows of the user, newest first.
func (r *SQLiteRepository) ListRecentTransactions(ctx context.Context, email string, limit int) ([]core.Transaction, error) {
	if limit <= 0 {
		return []core.Transaction{}, nil
	}
	return r.queryTransactions(ctx, "list recent transactions",
		`SELECT `+transactionColumns+` FROM expenses
		 WHERE user_email = ?
		 ORDER BY date DESC, expense_id DESC
		 LIMIT ?`,
		email, limit)
}

func (r *SQLiteRepository) queryTransactions(ctx context.Context, op, query string, args ...any) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageFault(op, err)
	}
	defer rows.Close()

	out := []core.Transaction{}
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, storageFault(op, err)
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, storageFault(op, err)
	}
	return out, nil
}
