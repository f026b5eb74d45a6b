package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trackify/internal/amqp"
)

type fakeBalances map[string]float64

func (f fakeBalances) TotalBalance(_ context.Context, email string) (float64, error) {
	b, ok := f[email]
	if !ok {
		return 0, errors.New("boom")
	}
	return b, nil
}

type recorder struct {
	alerts []Alert
	err    error
}

func (r *recorder) Deliver(_ context.Context, a Alert) error {
	if r.err != nil {
		return r.err
	}
	r.alerts = append(r.alerts, a)
	return nil
}

func TestWelcomeAlert(t *testing.T) {
	rec := &recorder{}
	w := NewAlertWorker(fakeBalances{}, rec, DefaultAlertWorkerConfig())

	require.NoError(t, w.HandleNotification(context.Background(), amqp.NewWelcomeMessage("a@x.io", "Alice")))
	require.Len(t, rec.alerts, 1)
	assert.Equal(t, "Welcome to Trackify!", rec.alerts[0].Title)
	assert.Contains(t, rec.alerts[0].Body, "Alice")
}

func TestLowBalanceRechecksAndDedupes(t *testing.T) {
	rec := &recorder{}
	balances := fakeBalances{"low@x.io": 150, "ok@x.io": 5000}
	w := NewAlertWorker(balances, rec, DefaultAlertWorkerConfig())
	ctx := context.Background()

	require.NoError(t, w.HandleNotification(ctx, amqp.NewLowBalanceMessage("low@x.io", 100, 2000)))
	require.Len(t, rec.alerts, 1)
	assert.Equal(t, "Your current balance is 150.00. Review your budget!", rec.alerts[0].Body)
	assert.Equal(t, "high", rec.alerts[0].Priority)

	// Second event within the window is suppressed.
	require.NoError(t, w.HandleNotification(ctx, amqp.NewLowBalanceMessage("low@x.io", 90, 2000)))
	assert.Len(t, rec.alerts, 1)

	// Stale event: balance has recovered.
	require.NoError(t, w.HandleNotification(ctx, amqp.NewLowBalanceMessage("ok@x.io", 10, 2000)))
	assert.Len(t, rec.alerts, 1)
}

func TestLowBalanceErrorsRequeue(t *testing.T) {
	ctx := context.Background()

	w := NewAlertWorker(fakeBalances{}, &recorder{}, DefaultAlertWorkerConfig())
	assert.Error(t, w.HandleNotification(ctx, amqp.NewLowBalanceMessage("unknown@x.io", 1, 2000)))

	failing := &recorder{err: errors.New("push down")}
	w = NewAlertWorker(fakeBalances{"a@x.io": 1}, failing, DefaultAlertWorkerConfig())
	assert.Error(t, w.HandleNotification(ctx, amqp.NewLowBalanceMessage("a@x.io", 1, 2000)))
	assert.Zero(t, w.DedupeCache().Size(), "failed delivery must not be deduplicated")
}

func TestLogDeliverer(t *testing.T) {
	assert.NoError(t, LogDeliverer{}.Deliver(context.Background(), Alert{Type: amqp.EventWelcome}))
}
