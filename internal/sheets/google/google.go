// Package google writes month reports to a Google Sheets spreadsheet using a
// service account.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"unicode/utf8"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"trackify/internal/core"
	ports "trackify/internal/sheets"
)

// maxSheetTitle is the longest tab title the Sheets API accepts.
const maxSheetTitle = 100

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
}

// Ensure interface conformance
var _ ports.MonthWriter = (*Client)(nil)

// Config selects the target spreadsheet and the service account credentials.
// ServiceAccountJSON takes precedence over ServiceAccountFile.
type Config struct {
	SpreadsheetID      string
	ServiceAccountJSON string
	ServiceAccountFile string
}

// ConfigFromEnv reads GOOGLE_SPREADSHEET_ID, GOOGLE_SERVICE_ACCOUNT_JSON and
// GOOGLE_SERVICE_ACCOUNT_FILE (falling back to GOOGLE_APPLICATION_CREDENTIALS).
func ConfigFromEnv() Config {
	cfg := Config{
		SpreadsheetID:      strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID")),
		ServiceAccountJSON: strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON")),
		ServiceAccountFile: strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE")),
	}
	if cfg.ServiceAccountJSON == "" && cfg.ServiceAccountFile == "" {
		cfg.ServiceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	return cfg
}

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.SpreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Client{svc: svc, spreadsheetID: cfg.SpreadsheetID}, nil
}

func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	var (
		credentialsJSON []byte
		err             error
	)
	switch {
	case cfg.ServiceAccountJSON != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(cfg.ServiceAccountJSON)
	case cfg.ServiceAccountFile != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", cfg.ServiceAccountFile)
		credentialsJSON, err = os.ReadFile(cfg.ServiceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// WriteMonth replaces the content of the report's tab, creating the tab on
// first export. The returned reference is the updated A1 range.
func (c *Client) WriteMonth(ctx context.Context, r ports.MonthReport) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	title := sheetTitle(r.Month, r.UserEmail)
	if err := c.ensureSheet(ctx, title); err != nil {
		return "", err
	}

	quoted := quoteTitle(title)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, quoted, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("clear sheet %s: %w", title, err)
	}

	rows := buildMonthRows(r)
	vr := &gsheet.ValueRange{Values: rows}
	resp, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, quoted+"!A1", vr).
		ValueInputOption("USER_ENTERED").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("write sheet %s: %w", title, err)
	}

	slog.InfoContext(ctx, "Month report written to Google Sheets",
		"sheet", title,
		"rows", len(rows),
		"range", resp.UpdatedRange)
	return resp.UpdatedRange, nil
}

func (c *Client) ensureSheet(ctx context.Context, title string) error {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("get spreadsheet: %w", err)
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == title {
			return nil
		}
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{
				Properties: &gsheet.SheetProperties{Title: title},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %s: %w", title, err)
	}
	slog.InfoContext(ctx, "Created sheet", "sheet", title)
	return nil
}

// buildMonthRows lays out a summary block, a category block and the
// transaction list, separated by blank rows.
func buildMonthRows(r ports.MonthReport) [][]interface{} {
	rows := [][]interface{}{
		{"Month", string(r.Month)},
		{"User", r.UserEmail},
		{"Income", core.FormatAmount(r.Summary.Income)},
		{"Expense", core.FormatAmount(r.Summary.Expense)},
		{"Net", core.FormatAmount(r.Summary.Net())},
		{},
		{"Category", "Spent"},
	}
	for _, ca := range r.Categories {
		rows = append(rows, []interface{}{ca.Name, core.FormatAmount(ca.Amount)})
	}
	rows = append(rows, []interface{}{}, []interface{}{"ID", "Date", "Type", "Category", "Amount", "Note"})
	for _, tx := range r.Transactions {
		rows = append(rows, []interface{}{
			tx.ID,
			string(tx.Date),
			string(tx.Class.Kind()),
			tx.Class.Category(),
			core.FormatAmount(tx.Amount),
			tx.Note,
		})
	}
	return rows
}

// sheetTitle names the tab for one user's month, within the API length limit.
func sheetTitle(ym core.YearMonth, email string) string {
	title := fmt.Sprintf("%s %s", ym, email)
	if utf8.RuneCountInString(title) <= maxSheetTitle {
		return title
	}
	return string([]rune(title)[:maxSheetTitle])
}

func quoteTitle(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}
