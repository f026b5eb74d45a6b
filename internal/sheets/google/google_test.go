package google

import (
	"context"
	"strings"
	"testing"

	"trackify/internal/core"
	ports "trackify/internal/sheets"
)

func TestBuildMonthRows(t *testing.T) {
	r := ports.MonthReport{
		UserEmail: "a@x.io",
		Month:     "2025-01",
		Summary:   core.MonthlySummary{Month: "2025-01", Income: 1000, Expense: 250.5},
		Categories: []core.CategoryAmount{
			{Name: "Rent", Amount: 200},
			{Name: "Food", Amount: 50.5},
		},
		Transactions: []core.Transaction{
			{ID: 7, Class: core.Expense(core.Food), Amount: 50.5, Date: "2025-01-03", Note: "lunch"},
		},
	}

	rows := buildMonthRows(r)
	if got := rows[4]; got[0] != "Net" || got[1] != "749.50" {
		t.Fatalf("net row = %v", got)
	}
	if got := rows[7]; got[0] != "Rent" || got[1] != "200.00" {
		t.Fatalf("first category row = %v", got)
	}
	last := rows[len(rows)-1]
	if last[0] != int64(7) || last[2] != "Expense" || last[3] != "Food" || last[5] != "lunch" {
		t.Fatalf("transaction row = %v", last)
	}
	if len(rows) != 12 {
		t.Fatalf("expected 12 rows, got %d", len(rows))
	}
}

func TestSheetTitle(t *testing.T) {
	if got := sheetTitle("2025-01", "a@x.io"); got != "2025-01 a@x.io" {
		t.Fatalf("sheetTitle = %q", got)
	}
	long := strings.Repeat("x", 200) + "@x.io"
	if got := sheetTitle("2025-01", long); len([]rune(got)) != maxSheetTitle {
		t.Fatalf("expected truncation to %d, got %d", maxSheetTitle, len(got))
	}
	if got := quoteTitle("o'neil"); got != "'o''neil'" {
		t.Fatalf("quoteTitle = %q", got)
	}
}

func TestNewRequiresSpreadsheetAndCredentials(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatal("expected error without spreadsheet id")
	}
	if _, err := New(context.Background(), Config{SpreadsheetID: "id"}); err == nil {
		t.Fatal("expected error without credentials")
	}
	if _, err := New(context.Background(), Config{SpreadsheetID: "id", ServiceAccountFile: "/nonexistent/sa.json"}); err == nil {
		t.Fatal("expected error for missing credentials file")
	}
}

func TestWriteMonthWithoutService(t *testing.T) {
	c := &Client{spreadsheetID: "id"}
	if _, err := c.WriteMonth(context.Background(), ports.MonthReport{}); err == nil {
		t.Fatal("expected error without service")
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("GOOGLE_SPREADSHEET_ID", " sheet ")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "/etc/sa.json")

	cfg := ConfigFromEnv()
	if cfg.SpreadsheetID != "sheet" || cfg.ServiceAccountFile != "/etc/sa.json" {
		t.Fatalf("ConfigFromEnv = %+v", cfg)
	}
}
