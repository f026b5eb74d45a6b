package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"trackify/internal/amqp"
	"trackify/internal/cache"
	"trackify/internal/cli"
	applog "trackify/internal/log"
	"trackify/internal/services"
	"trackify/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"), applog.ComponentWorker)

	logger.Info("Starting alert-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the alert worker")
		os.Exit(1)
	}

	// Low balance events are re-checked against the database before delivery.
	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	alerts := worker.NewAlertWorker(
		services.NewAggregationEngine(repo),
		worker.LogDeliverer{Logger: logger.Logger.With(applog.FieldComponent, applog.ComponentWorker)},
		worker.AlertWorkerConfig{
			Threshold:    cfg.LowBalanceThreshold,
			DedupeWindow: cfg.AlertDedupeWindow,
			DedupeSize:   worker.DefaultAlertWorkerConfig().DedupeSize,
		},
	)

	caches := cache.NewManager()
	caches.Register("alert_dedupe", alerts.DedupeCache())

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, nil)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return client.Consume(gctx, alerts.HandleNotification)
	})
	g.Go(func() error {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				caches.CleanNow()
			}
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Alert worker stopped", "error", err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker shutdown complete")
}
