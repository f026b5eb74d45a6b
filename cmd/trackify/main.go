package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"trackify/internal/backend"
	"trackify/internal/cache"
	"trackify/internal/cli"
	apphttp "trackify/internal/http"
	applog "trackify/internal/log"
	"trackify/internal/middleware/auth"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"), applog.ComponentApp)

	cfg := cli.LoadAndValidateServerConfig(logger)

	backendConfig, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}

	result, err := backend.NewFactory(logger.Logger).Create(context.Background(), backendConfig)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "export", backendConfig.Export.String())
		os.Exit(1)
	}

	caches := cache.NewManager()
	caches.Register("profiles", result.Services.Credentials.ProfileCache())
	caches.StartCleanup(5 * time.Minute)

	srv := apphttp.NewServer(":"+cfg.Port, result.Services, auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL), apphttp.Options{
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		RecentLimit:        cfg.RecentLimit,
		Logger:             logger.WithComponent(applog.ComponentHTTP),
	})

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		caches.Stop()
		if err := result.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", "error", err)
		}
	})

	logger.Info("Starting trackify server",
		"port", cfg.Port,
		"export", backendConfig.Export.String(),
		"notifications", result.Notifications)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
