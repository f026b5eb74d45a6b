package services

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"trackify/internal/core"
	"trackify/internal/sheets"
	"trackify/internal/storage"
)

type recordingNotifier struct {
	mu         sync.Mutex
	welcomes   []string
	lowBalance []float64
	err        error
}

func (n *recordingNotifier) PublishWelcome(_ context.Context, email, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.welcomes = append(n.welcomes, email)
	return n.err
}

func (n *recordingNotifier) PublishLowBalance(_ context.Context, _ string, balance, _ float64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.lowBalance = append(n.lowBalance, balance)
	return n.err
}

type recordingWriter struct {
	reports []sheets.MonthReport
}

func (w *recordingWriter) WriteMonth(_ context.Context, r sheets.MonthReport) (string, error) {
	w.reports = append(w.reports, r)
	return "mem:1", nil
}

func newTestServices(t *testing.T, notifier Notifier, writer sheets.MonthWriter) *Services {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "trackify.db"))
	require.NoError(t, err)

	cfg := Config{
		Credentials: DefaultCredentialConfig(),
		Dashboard:   DefaultDashboardConfig(),
	}
	cfg.Credentials.BcryptCost = bcrypt.MinCost

	svc := New(repo, notifier, writer, cfg)
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func register(t *testing.T, svc *Services, email string) {
	t.Helper()
	require.NoError(t, svc.Credentials.Register(context.Background(), "User", email, "secret"))
}

func add(t *testing.T, svc *Services, email string, class core.Classification, amount float64, date core.Date) int64 {
	t.Helper()
	id, err := svc.Transactions.Insert(context.Background(), core.Transaction{
		UserEmail: email, Class: class, Amount: amount, Date: date,
	})
	require.NoError(t, err)
	return id
}

func TestRegisterAndVerify(t *testing.T) {
	svc := newTestServices(t, nil, nil)
	ctx := context.Background()

	require.NoError(t, svc.Credentials.Register(ctx, "A", "a@x.io", "p1"))

	ok, err := svc.Credentials.Verify(ctx, "a@x.io", "p1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.Credentials.Verify(ctx, "a@x.io", "p2")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.Credentials.Verify(ctx, "nobody@x.io", "p1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRegisterDuplicateIsCaseInsensitive(t *testing.T) {
	svc := newTestServices(t, nil, nil)
	ctx := context.Background()

	require.NoError(t, svc.Credentials.Register(ctx, "A", "a@x.io", "p1"))
	err := svc.Credentials.Register(ctx, "B", "A@X.IO", "p2")
	assert.ErrorIs(t, err, core.ErrDuplicateEmail)

	// The original password still works, and the mixed-case address verifies too.
	ok, err := svc.Credentials.Verify(ctx, " A@x.io ", "p1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestServices(t, nil, nil)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Credentials.Register(ctx, "A", "not-an-email", "p"), core.ErrInvalidEmail)
	assert.ErrorIs(t, svc.Credentials.Register(ctx, "A", "  ", "p"), core.ErrInvalidEmail)
	assert.ErrorIs(t, svc.Credentials.Register(ctx, "A", "a@x.io", ""), core.ErrInvalidPassword)

	long := make([]byte, 73)
	for i := range long {
		long[i] = 'a'
	}
	assert.ErrorIs(t, svc.Credentials.Register(ctx, "A", "a@x.io", string(long)), core.ErrInvalidPassword)
}

func TestPasswordIsNotStoredInPlaintext(t *testing.T) {
	svc := newTestServices(t, nil, nil)
	ctx := context.Background()
	require.NoError(t, svc.Credentials.Register(ctx, "A", "a@x.io", "p1"))

	rec, err := svc.repo.GetUserByEmail(ctx, "a@x.io")
	require.NoError(t, err)
	assert.NotEqual(t, "p1", rec.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(rec.PasswordHash), []byte("p1")))
}

func TestVerifyLegacyDigest(t *testing.T) {
	svc := newTestServices(t, nil, nil)
	ctx := context.Background()

	// Unsalted sha256("p1") as written by earlier releases.
	require.NoError(t, svc.repo.CreateUser(ctx, storage.UserRecord{
		Email:        "old@x.io",
		PasswordHash: "f64551fcd6f07823cb87971cfb91446425da18286b3ab1ef935e0cbd7a69f68a",
	}))

	ok, err := svc.Credentials.Verify(ctx, "old@x.io", "p1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.Credentials.Verify(ctx, "old@x.io", "p2")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMatchPasswordMalformedHash(t *testing.T) {
	_, err := matchPassword("not-a-hash", "p1")
	assert.ErrorIs(t, err, core.ErrParseFault)
}

func TestLoginPublishesWelcome(t *testing.T) {
	n := &recordingNotifier{}
	svc := newTestServices(t, n, nil)
	ctx := context.Background()
	require.NoError(t, svc.Credentials.Register(ctx, "Alice", "alice@x.io", "pw"))

	u, err := svc.Credentials.Login(ctx, "ALICE@x.io", "pw")
	require.NoError(t, err)
	assert.Equal(t, core.User{Email: "alice@x.io", Name: "Alice"}, u)
	assert.Equal(t, []string{"alice@x.io"}, n.welcomes)

	_, err = svc.Credentials.Login(ctx, "alice@x.io", "wrong")
	assert.ErrorIs(t, err, core.ErrInvalidCredentials)
	assert.Len(t, n.welcomes, 1)
}

func TestLookupCachesProfiles(t *testing.T) {
	svc := newTestServices(t, nil, nil)
	ctx := context.Background()
	require.NoError(t, svc.Credentials.Register(ctx, "Alice", "alice@x.io", "pw"))

	_, err := svc.Credentials.Lookup(ctx, "missing@x.io")
	assert.ErrorIs(t, err, core.ErrNotFound)

	for i := 0; i < 3; i++ {
		u, err := svc.Credentials.Lookup(ctx, "alice@x.io")
		require.NoError(t, err)
		assert.Equal(t, "Alice", u.Name)
	}
	stats := svc.Credentials.ProfileCache().Stats()
	assert.Equal(t, 1, stats.Size)
	assert.Equal(t, uint64(2), stats.Hits)
}

func TestTransactionCRUD(t *testing.T) {
	svc := newTestServices(t, nil, nil)
	ctx := context.Background()
	register(t, svc, "a@x.io")

	id := add(t, svc, "A@x.io", core.Expense(core.Food), 12.5, "2025-01-10")
	got, err := svc.Transactions.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "a@x.io", got.UserEmail)
	assert.Equal(t, core.Expense(core.Food), got.Class)
	assert.Equal(t, 12.5, got.Amount)

	require.NoError(t, svc.Transactions.Update(ctx, id, core.Transaction{
		UserEmail: "a@x.io", Class: core.Expense(core.Travel), Amount: 99, Date: "2025-01-11", Note: " trip ",
	}))
	got, err = svc.Transactions.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, core.Expense(core.Travel), got.Class)
	assert.Equal(t, " trip ", got.Note)
	assert.Equal(t, "a@x.io", got.UserEmail)

	require.NoError(t, svc.Transactions.Delete(ctx, id))
	_, err = svc.Transactions.GetByID(ctx, id)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestInsertRoundTripKeepsEveryField(t *testing.T) {
	svc := newTestServices(t, nil, nil)
	ctx := context.Background()
	register(t, svc, "a@x.io")

	want := core.Transaction{
		UserEmail: "a@x.io",
		Class:     core.Income(core.Freelance),
		Amount:    1234.56,
		Date:      "2025-02-28",
		Note:      "  padded note\t",
	}
	id, err := svc.Transactions.Insert(ctx, want)
	require.NoError(t, err)

	got, err := svc.Transactions.GetByID(ctx, id)
	require.NoError(t, err)
	want.ID = id
	assert.Equal(t, want, got)
}

func TestUpdateChangesOwner(t *testing.T) {
	svc := newTestServices(t, nil, nil)
	ctx := context.Background()
	register(t, svc, "a@x.io")
	register(t, svc, "b@x.io")

	id := add(t, svc, "a@x.io", core.Expense(core.Food), 10, "2025-01-01")
	require.NoError(t, svc.Transactions.Update(ctx, id, core.Transaction{
		UserEmail: "B@x.io", Class: core.Expense(core.Food), Amount: 10, Date: "2025-01-01",
	}))

	got, err := svc.Transactions.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "b@x.io", got.UserEmail)

	txs, err := svc.Transactions.ListRecent(ctx, "a@x.io", 10)
	require.NoError(t, err)
	assert.Empty(t, txs)

	err = svc.Transactions.Update(ctx, id, core.Transaction{
		Class: core.Expense(core.Food), Amount: 10, Date: "2025-01-01",
	})
	assert.ErrorIs(t, err, core.ErrEmptyEmail)
}

func TestUpdateMissingReturnsNotFound(t *testing.T) {
	svc := newTestServices(t, nil, nil)
	ctx := context.Background()
	register(t, svc, "a@x.io")

	err := svc.Transactions.Update(ctx, 12345, core.Transaction{
		UserEmail: "a@x.io", Class: core.Expense(core.Food), Amount: 1, Date: "2025-01-01",
	})
	assert.ErrorIs(t, err, core.ErrNotFound)

	txs, err := svc.Transactions.ListRecent(ctx, "a@x.io", 10)
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestInsertValidation(t *testing.T) {
	svc := newTestServices(t, nil, nil)
	ctx := context.Background()
	register(t, svc, "a@x.io")

	_, err := svc.Transactions.Insert(ctx, core.Transaction{UserEmail: "a@x.io", Class: core.Expense(core.Food), Amount: 0, Date: "2025-01-01"})
	assert.ErrorIs(t, err, core.ErrInvalidAmount)
	_, err = svc.Transactions.Insert(ctx, core.Transaction{UserEmail: "a@x.io", Class: core.Expense(core.Food), Amount: 1, Date: "01/01/2025"})
	assert.ErrorIs(t, err, core.ErrInvalidDate)
	_, err = svc.Transactions.Insert(ctx, core.Transaction{UserEmail: "a@x.io", Class: core.RestoreClassification("Income", "Food"), Amount: 1, Date: "2025-01-01"})
	assert.ErrorIs(t, err, core.ErrInvalidCategory)
	_, err = svc.Transactions.Insert(ctx, core.Transaction{UserEmail: "ghost@x.io", Class: core.Expense(core.Food), Amount: 1, Date: "2025-01-01"})
	assert.ErrorIs(t, err, core.ErrStorageFault)
}

func TestBalanceIsScopedToUser(t *testing.T) {
	svc := newTestServices(t, nil, nil)
	ctx := context.Background()
	register(t, svc, "a@x.io")
	register(t, svc, "b@x.io")

	add(t, svc, "a@x.io", core.Income(core.Salary), 1000, "2025-01-01")
	add(t, svc, "a@x.io", core.Expense(core.Food), 300, "2025-01-02")
	add(t, svc, "a@x.io", core.Expense(core.Rent), 100, "2025-02-02")
	add(t, svc, "b@x.io", core.Income(core.Salary), 5000, "2025-01-01")

	balance, err := svc.Aggregation.TotalBalance(ctx, "a@x.io")
	require.NoError(t, err)
	assert.Equal(t, 600.0, balance)

	balance, err = svc.Aggregation.TotalBalance(ctx, "c@x.io")
	require.NoError(t, err)
	assert.Zero(t, balance)
}

func TestBalanceIgnoresOtherUsersExpense(t *testing.T) {
	svc := newTestServices(t, nil, nil)
	ctx := context.Background()
	register(t, svc, "a@x.io")
	register(t, svc, "b@x.io")

	add(t, svc, "a@x.io", core.Income(core.Salary), 1000, "2025-01-01")
	add(t, svc, "a@x.io", core.Expense(core.Food), 300, "2025-01-02")
	add(t, svc, "a@x.io", core.Expense(core.Rent), 100, "2025-02-02")

	before, err := svc.Aggregation.TotalBalance(ctx, "a@x.io")
	require.NoError(t, err)
	assert.Equal(t, 600.0, before)

	add(t, svc, "b@x.io", core.Expense(core.Rent), 700, "2025-01-03")

	after, err := svc.Aggregation.TotalBalance(ctx, "a@x.io")
	require.NoError(t, err)
	assert.Equal(t, 600.0, after)

	other, err := svc.Aggregation.TotalBalance(ctx, "b@x.io")
	require.NoError(t, err)
	assert.Equal(t, -700.0, other)
}

func TestMonthFilterUsesDatePrefix(t *testing.T) {
	svc := newTestServices(t, nil, nil)
	ctx := context.Background()
	register(t, svc, "a@x.io")

	inside := add(t, svc, "a@x.io", core.Expense(core.Food), 10, "2025-03-31")
	add(t, svc, "a@x.io", core.Expense(core.Food), 20, "2025-04-01")

	txs, err := svc.Transactions.ListByMonth(ctx, "a@x.io", "2025-03")
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, inside, txs[0].ID)

	total, err := svc.Aggregation.MonthlyExpense(ctx, "a@x.io", 2025, 3)
	require.NoError(t, err)
	assert.Equal(t, 10.0, total)

	_, err = svc.Transactions.ListByMonth(ctx, "a@x.io", "2025-3")
	assert.ErrorIs(t, err, core.ErrInvalidYearMonth)
}

func TestListRecentOrdering(t *testing.T) {
	svc := newTestServices(t, nil, nil)
	ctx := context.Background()
	register(t, svc, "a@x.io")

	ids := []int64{
		add(t, svc, "a@x.io", core.Expense(core.Food), 1, "2025-01-01"),
		add(t, svc, "a@x.io", core.Expense(core.Food), 2, "2025-01-01"),
		add(t, svc, "a@x.io", core.Expense(core.Food), 3, "2025-01-01"),
	}

	txs, err := svc.Transactions.ListRecent(ctx, "a@x.io", 3)
	require.NoError(t, err)
	require.Len(t, txs, 3)
	assert.Equal(t, []int64{ids[2], ids[1], ids[0]}, []int64{txs[0].ID, txs[1].ID, txs[2].ID})

	txs, err = svc.Transactions.ListRecent(ctx, "a@x.io", -1)
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestMonthlyCategoryBreakdown(t *testing.T) {
	svc := newTestServices(t, nil, nil)
	ctx := context.Background()
	register(t, svc, "a@x.io")

	add(t, svc, "a@x.io", core.Expense(core.Food), 50, "2025-01-03")
	add(t, svc, "a@x.io", core.Expense(core.Rent), 500, "2025-01-01")
	add(t, svc, "a@x.io", core.Expense(core.Food), 70, "2025-01-20")
	add(t, svc, "a@x.io", core.Income(core.Salary), 4000, "2025-01-01")
	add(t, svc, "a@x.io", core.Expense(core.Travel), 999, "2025-02-01")

	cats, err := svc.Aggregation.MonthlyCategoryBreakdown(ctx, "a@x.io", "2025-01")
	require.NoError(t, err)
	assert.Equal(t, []core.CategoryAmount{
		{Name: "Rent", Amount: 500},
		{Name: "Food", Amount: 120},
	}, cats)

	summary, err := svc.Aggregation.MonthlySummary(ctx, "a@x.io", "2025-01")
	require.NoError(t, err)
	assert.Equal(t, core.MonthlySummary{Month: "2025-01", Income: 4000, Expense: 620}, summary)

	_, err = svc.Aggregation.MonthlyTotal(ctx, "a@x.io", "2025-01", "Transfer")
	assert.ErrorIs(t, err, core.ErrInvalidKind)
}

func TestDashboardSnapshot(t *testing.T) {
	n := &recordingNotifier{}
	svc := newTestServices(t, n, nil)
	ctx := context.Background()
	register(t, svc, "a@x.io")

	now := time.Date(2025, 5, 15, 12, 0, 0, 0, time.UTC)
	add(t, svc, "a@x.io", core.Income(core.Salary), 2500, "2025-04-30")
	add(t, svc, "a@x.io", core.Expense(core.Food), 200, "2025-05-02")
	add(t, svc, "a@x.io", core.Expense(core.Rent), 400, "2025-05-03")
	add(t, svc, "a@x.io", core.Expense(core.Shopping), 10, "2025-05-04")

	snap, err := svc.Dashboard.Snapshot(ctx, "a@x.io", now)
	require.NoError(t, err)
	assert.Equal(t, core.YearMonth("2025-05"), snap.Month)
	assert.Equal(t, 1890.0, snap.Balance)
	assert.Equal(t, 610.0, snap.MonthExpense)
	require.Len(t, snap.Recent, 3)
	assert.Equal(t, core.Date("2025-05-04"), snap.Recent[0].Date)
	assert.True(t, snap.LowBalance)
	assert.Equal(t, []float64{1890}, n.lowBalance)

	add(t, svc, "a@x.io", core.Income(core.Gifts), 1000, "2025-05-05")
	snap, err = svc.Dashboard.Snapshot(ctx, "a@x.io", now)
	require.NoError(t, err)
	assert.False(t, snap.LowBalance)
	assert.Len(t, n.lowBalance, 1)
}

func TestExportMonth(t *testing.T) {
	w := &recordingWriter{}
	svc := newTestServices(t, nil, w)
	ctx := context.Background()
	register(t, svc, "a@x.io")

	add(t, svc, "a@x.io", core.Income(core.Salary), 100, "2025-01-01")
	add(t, svc, "a@x.io", core.Expense(core.Food), 40, "2025-01-02")

	ref, err := svc.Exporter.ExportMonth(ctx, "a@x.io", "2025-01")
	require.NoError(t, err)
	assert.Equal(t, "mem:1", ref)
	require.Len(t, w.reports, 1)
	r := w.reports[0]
	assert.Equal(t, core.MonthlySummary{Month: "2025-01", Income: 100, Expense: 40}, r.Summary)
	assert.Len(t, r.Transactions, 2)
	assert.Equal(t, []core.CategoryAmount{{Name: "Food", Amount: 40}}, r.Categories)

	disabled := NewExporter(svc.Aggregation, svc.Transactions, nil)
	_, err = disabled.ExportMonth(ctx, "a@x.io", "2025-01")
	assert.ErrorIs(t, err, ErrExportDisabled)
}

func TestExportMonthRejectsMalformedStoredDate(t *testing.T) {
	w := &recordingWriter{}
	svc := newTestServices(t, nil, w)
	ctx := context.Background()
	register(t, svc, "a@x.io")

	// Written below the store, as an older client could have done.
	id, err := svc.repo.InsertTransaction(ctx, core.Transaction{
		UserEmail: "a@x.io", Class: core.Expense(core.Food), Amount: 5, Date: "2025-01-xx",
	})
	require.NoError(t, err)

	_, err = svc.Exporter.ExportMonth(ctx, "a@x.io", "2025-01")
	assert.ErrorIs(t, err, core.ErrParseFault)
	assert.ErrorContains(t, err, fmt.Sprintf("transaction %d", id))
	assert.Empty(t, w.reports)
}
