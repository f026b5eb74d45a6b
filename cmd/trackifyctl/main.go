// Command trackifyctl administers a trackify database from the shell: schema
// migrations, users, transactions, summaries and month exports.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"trackify/internal/backend"
	"trackify/internal/cli"
	"trackify/internal/config"
	applog "trackify/internal/log"
	"trackify/internal/services"
)

var (
	dbPath     string
	jsonOutput bool
	logLevel   string

	rootCmd = &cobra.Command{
		Use:   "trackifyctl",
		Short: "Administer a trackify database",
		Long: `trackifyctl works directly on the trackify SQLite database.

It registers and verifies users, records and edits transactions, prints
balances and monthly summaries, and exports a month to the configured sheet.
Settings come from the environment (and .env), like the server.`,
		SilenceUsage:      true,
		PersistentPreRunE: initLogging,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (default: $SQLITE_DB_PATH)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print results as JSON")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(userCmd())
	rootCmd.AddCommand(txCmd())
	rootCmd.AddCommand(summaryCmd())
	rootCmd.AddCommand(exportCmd())
}

func main() {
	cli.LoadEnvFile()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	cancel()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initLogging(_ *cobra.Command, _ []string) error {
	cli.SetupLogger(logLevel, "text", applog.ComponentCLI)
	return nil
}

// loadConfig reads the environment and applies the --db override.
func loadConfig() (*config.Config, error) {
	cfg := config.Load()
	if dbPath != "" {
		cfg.SQLiteDBPath = dbPath
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openServices wires the services the same way the server does. The caller
// must run the returned cleanup.
func openServices(ctx context.Context) (*services.Services, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	res, err := backend.NewFactory(slog.Default()).Create(ctx, bcfg)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := res.Cleanup(); err != nil {
			slog.Error("failed to close services", "error", err)
		}
	}
	return res.Services, cleanup, nil
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
