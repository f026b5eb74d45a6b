package services

import (
	"context"

	"trackify/internal/core"
	"trackify/internal/storage"
)

// Storage ports. *storage.SQLiteRepository satisfies all of them.
type (
	UserRepository interface {
		CreateUser(ctx context.Context, u storage.UserRecord) error
		GetUserByEmail(ctx context.Context, email string) (storage.UserRecord, error)
		UserExists(ctx context.Context, email string) (bool, error)
	}

	TransactionRepository interface {
		InsertTransaction(ctx context.Context, tx core.Transaction) (int64, error)
		UpdateTransaction(ctx context.Context, id int64, tx core.Transaction) error
		DeleteTransaction(ctx context.Context, id int64) error
		GetTransaction(ctx context.Context, id int64) (core.Transaction, error)
		ListTransactionsByMonth(ctx context.Context, email string, ym core.YearMonth) ([]core.Transaction, error)
		ListRecentTransactions(ctx context.Context, email string, limit int) ([]core.Transaction, error)
	}

	AggregateRepository interface {
		SumByKind(ctx context.Context, email string) (map[core.Kind]float64, error)
		MonthlyTotal(ctx context.Context, email string, ym core.YearMonth, kind core.Kind) (float64, error)
		MonthlyCategoryTotals(ctx context.Context, email string, ym core.YearMonth) ([]core.CategoryAmount, error)
	}
)

// Notifier publishes user-facing events. Presentation happens elsewhere.
type Notifier interface {
	PublishWelcome(ctx context.Context, email, name string) error
	PublishLowBalance(ctx context.Context, email string, balance, threshold float64) error
}

var (
	_ UserRepository        = (*storage.SQLiteRepository)(nil)
	_ TransactionRepository = (*storage.SQLiteRepository)(nil)
	_ AggregateRepository   = (*storage.SQLiteRepository)(nil)
)
