package backend

import (
	"context"

	"trackify/internal/services"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Result holds the wired services and the function releasing what they hold.
type Result struct {
	Services *services.Services
	// Notifications reports whether an AMQP notifier is attached.
	Notifications bool
	Cleanup       CleanupFunc
}

// Factory builds the service graph from configuration.
type Factory interface {
	Create(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for backend creation
type Config struct {
	SQLiteDBPath string

	// AMQP (optional)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	Export ExportType

	// Google Sheets export
	GoogleSpreadsheetID      string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	Services services.Config
}

// ExportType selects where month reports go.
type ExportType string

const (
	NoExport     ExportType = "none"
	MemoryExport ExportType = "memory"
	SheetsExport ExportType = "sheets"
)

// String implements fmt.Stringer
func (et ExportType) String() string {
	return string(et)
}

// IsValid returns true if the export type is known
func (et ExportType) IsValid() bool {
	switch et {
	case NoExport, MemoryExport, SheetsExport:
		return true
	default:
		return false
	}
}
