package backend

import (
	"context"
	"fmt"
	"log/slog"

	"trackify/internal/amqp"
	"trackify/internal/services"
	"trackify/internal/sheets"
	gsheet "trackify/internal/sheets/google"
	"trackify/internal/sheets/memory"
	"trackify/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// Create opens the database, connects the optional notifier and export
// writer, and wires the services over them.
func (f *DefaultFactory) Create(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	writer, err := f.createWriter(ctx, config)
	if err != nil {
		return nil, err
	}

	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	// Leave notifier a nil interface when AMQP is off or unreachable.
	var notifier services.Notifier
	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without notifications", "error", err)
		} else {
			notifier = client
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	svc := services.New(repo, notifier, writer, config.Services)

	f.logger.Info("Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		"amqp_enabled", notifier != nil,
		"export", config.Export)

	return &Result{
		Services:      svc,
		Notifications: notifier != nil,
		Cleanup:       svc.Close,
	}, nil
}

func (f *DefaultFactory) createWriter(ctx context.Context, config Config) (sheets.MonthWriter, error) {
	switch config.Export {
	case SheetsExport:
		cli, err := gsheet.New(ctx, gsheet.Config{
			SpreadsheetID:      config.GoogleSpreadsheetID,
			ServiceAccountJSON: config.GoogleServiceAccountJSON,
			ServiceAccountFile: config.GoogleServiceAccountFile,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
		}
		f.logger.Info("Initialized Google Sheets export", "spreadsheet_id", config.GoogleSpreadsheetID)
		return cli, nil
	case MemoryExport:
		f.logger.Info("Initialized in-memory export")
		return memory.New(), nil
	default:
		return nil, nil
	}
}
