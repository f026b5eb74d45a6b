// Package worker turns queued notification events into delivered alerts.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"trackify/internal/amqp"
	"trackify/internal/cache"
	"trackify/internal/core"
)

// Alert is a rendered notification ready for delivery.
type Alert struct {
	Type     amqp.EventType
	Email    string
	Title    string
	Body     string
	Priority string
}

// Deliverer presents an alert to the user (push, mail, log).
type Deliverer interface {
	Deliver(ctx context.Context, a Alert) error
}

// BalanceReader reports a user's current total balance.
type BalanceReader interface {
	TotalBalance(ctx context.Context, email string) (float64, error)
}

// AlertWorkerConfig holds configuration for the alert worker
type AlertWorkerConfig struct {
	// Threshold below which a balance is considered low (default: 2000)
	Threshold float64

	// DedupeWindow suppresses repeated low balance alerts per user (default: 1h)
	DedupeWindow time.Duration

	// DedupeSize bounds the number of users remembered (default: 1024)
	DedupeSize int
}

// DefaultAlertWorkerConfig returns sensible defaults
func DefaultAlertWorkerConfig() AlertWorkerConfig {
	return AlertWorkerConfig{
		Threshold:    2000,
		DedupeWindow: time.Hour,
		DedupeSize:   1024,
	}
}

// AlertWorker handles notification messages consumed from AMQP.
type AlertWorker struct {
	balances  BalanceReader
	deliverer Deliverer
	config    AlertWorkerConfig
	recent    *cache.LRUCache[time.Time]
}

func NewAlertWorker(balances BalanceReader, deliverer Deliverer, cfg AlertWorkerConfig) *AlertWorker {
	return &AlertWorker{
		balances:  balances,
		deliverer: deliverer,
		config:    cfg,
		recent:    cache.NewLRUCache[time.Time](cfg.DedupeSize, cfg.DedupeWindow),
	}
}

// DedupeCache exposes the suppression cache for periodic cleanup.
func (w *AlertWorker) DedupeCache() *cache.LRUCache[time.Time] {
	return w.recent
}

// HandleNotification processes a single notification message from AMQP.
// Returning an error requeues the message.
func (w *AlertWorker) HandleNotification(ctx context.Context, msg *amqp.NotificationMessage) error {
	slog.InfoContext(ctx, "Processing notification", "type", msg.Type, "email", msg.Email)

	switch msg.Type {
	case amqp.EventWelcome:
		return w.deliver(ctx, welcomeAlert(msg))
	case amqp.EventLowBalance:
		return w.handleLowBalance(ctx, msg)
	default:
		slog.WarnContext(ctx, "Ignoring unknown notification type", "type", msg.Type)
		return nil
	}
}

func (w *AlertWorker) handleLowBalance(ctx context.Context, msg *amqp.NotificationMessage) error {
	if _, seen := w.recent.Get(msg.Email); seen {
		slog.DebugContext(ctx, "Low balance alert suppressed", "email", msg.Email)
		return nil
	}

	// The event may be stale by the time it is consumed.
	balance, err := w.balances.TotalBalance(ctx, msg.Email)
	if err != nil {
		return fmt.Errorf("re-check balance: %w", err)
	}
	threshold := msg.Threshold
	if threshold == 0 {
		threshold = w.config.Threshold
	}
	if balance >= threshold {
		slog.InfoContext(ctx, "Balance recovered, dropping alert",
			"email", msg.Email, "balance", balance, "threshold", threshold)
		return nil
	}

	if err := w.deliver(ctx, lowBalanceAlert(msg.Email, balance)); err != nil {
		return err
	}
	w.recent.Set(msg.Email, time.Now())
	return nil
}

func (w *AlertWorker) deliver(ctx context.Context, a Alert) error {
	if err := w.deliverer.Deliver(ctx, a); err != nil {
		return fmt.Errorf("deliver %s alert: %w", a.Type, err)
	}
	return nil
}

func welcomeAlert(msg *amqp.NotificationMessage) Alert {
	name := msg.Name
	if name == "" {
		name = msg.Email
	}
	return Alert{
		Type:     amqp.EventWelcome,
		Email:    msg.Email,
		Title:    "Welcome to Trackify!",
		Body:     fmt.Sprintf("Hello, %s! Let's start tracking your finances.", name),
		Priority: "default",
	}
}

func lowBalanceAlert(email string, balance float64) Alert {
	return Alert{
		Type:     amqp.EventLowBalance,
		Email:    email,
		Title:    "CRITICAL ALERT: Low Balance",
		Body:     fmt.Sprintf("Your current balance is %s. Review your budget!", core.FormatAmount(balance)),
		Priority: "high",
	}
}

// LogDeliverer writes alerts to the structured log.
type LogDeliverer struct {
	Logger *slog.Logger
}

func (d LogDeliverer) Deliver(ctx context.Context, a Alert) error {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "Alert delivered",
		"type", a.Type,
		"email", a.Email,
		"title", a.Title,
		"body", a.Body,
		"priority", a.Priority)
	return nil
}
