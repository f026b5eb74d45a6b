package backend

import (
	"errors"
	"fmt"
	"time"

	"trackify/internal/config"
	"trackify/internal/services"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}

	export := ExportType(appConfig.ExportBackend)
	if !export.IsValid() {
		return Config{}, fmt.Errorf("invalid export backend in config: %s", appConfig.ExportBackend)
	}

	creds := services.DefaultCredentialConfig()
	creds.ProfileCacheSize = appConfig.ProfileCacheSize
	creds.ProfileCacheTTL = durationOr(appConfig.ProfileCacheTTL, creds.ProfileCacheTTL)

	dash := services.DefaultDashboardConfig()
	dash.LowBalanceThreshold = appConfig.LowBalanceThreshold
	if appConfig.RecentLimit > 0 {
		dash.RecentLimit = appConfig.RecentLimit
	}

	return Config{
		SQLiteDBPath: appConfig.SQLiteDBPath,

		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,

		Export:                   export,
		GoogleSpreadsheetID:      appConfig.GoogleSpreadsheetID,
		GoogleServiceAccountJSON: appConfig.GoogleServiceAccountJSON,
		GoogleServiceAccountFile: appConfig.GoogleServiceAccountFile,

		Services: services.Config{
			Credentials: creds,
			Dashboard:   dash,
		},
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if c.SQLiteDBPath == "" {
		return errors.New("SQLite database path is required")
	}
	if !c.Export.IsValid() {
		return fmt.Errorf("invalid export backend: %s", c.Export)
	}
	if c.Export == SheetsExport {
		if c.GoogleSpreadsheetID == "" {
			return errors.New("Google Spreadsheet ID is required for sheets export")
		}
		if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" {
			return errors.New("either GoogleServiceAccountJSON or GoogleServiceAccountFile must be provided for sheets export")
		}
	}
	return nil
}

// GetExportTypes returns all valid export types
func GetExportTypes() []ExportType {
	return []ExportType{NoExport, MemoryExport, SheetsExport}
}

// durationOr returns d, or def when d is not positive.
func durationOr(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
