package http

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"trackify/internal/middleware/auth"
	"trackify/internal/services"
	"trackify/internal/sheets"
	"trackify/internal/sheets/memory"
	"trackify/internal/storage"
)

const testSecret = "0123456789abcdef0123456789abcdef"

var testNow = time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)

type testServer struct {
	t      *testing.T
	srv    *Server
	svc    *services.Services
	dbPath string
}

func newTestServer(t *testing.T, writer sheets.MonthWriter, opts Options) *testServer {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "trackify.db")
	repo, err := storage.NewSQLiteRepository(dbPath)
	require.NoError(t, err)

	cfg := services.Config{
		Credentials: services.DefaultCredentialConfig(),
		Dashboard:   services.DefaultDashboardConfig(),
	}
	cfg.Credentials.BcryptCost = bcrypt.MinCost
	svc := services.New(repo, nil, writer, cfg)

	if opts.Now == nil {
		opts.Now = func() time.Time { return testNow }
	}
	srv := NewServer(":0", svc, auth.NewIssuer(testSecret, time.Hour), opts)
	t.Cleanup(func() {
		_ = srv.Shutdown(context.Background())
		_ = svc.Close()
	})
	return &testServer{t: t, srv: srv, svc: svc, dbPath: dbPath}
}

func (ts *testServer) do(method, path, token, body string) *httptest.ResponseRecorder {
	ts.t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	ts.srv.Handler.ServeHTTP(rr, req)
	return rr
}

// exec runs raw SQL against the server's database on a separate connection.
func (ts *testServer) exec(query string, args ...any) {
	ts.t.Helper()
	db, err := sql.Open("sqlite", ts.dbPath)
	require.NoError(ts.t, err)
	defer db.Close()
	_, err = db.Exec(query, args...)
	require.NoError(ts.t, err)
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func (ts *testServer) signup(email, password string) string {
	ts.t.Helper()
	rr := ts.do(http.MethodPost, "/api/register", "", `{"name":"Ann","email":"`+email+`","password":"`+password+`"}`)
	require.Equal(ts.t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = ts.do(http.MethodPost, "/api/login", "", `{"email":"`+email+`","password":"`+password+`"}`)
	require.Equal(ts.t, http.StatusOK, rr.Code, rr.Body.String())
	return decode[loginResponse](ts.t, rr).Token
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[errorBody](t, rr).Error.Code
}

func TestHealthAndReady(t *testing.T) {
	ts := newTestServer(t, nil, Options{})

	rr := ts.do(http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", rr.Body.String())

	rr = ts.do(http.MethodGet, "/readyz", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
}

func TestRegisterAndLogin(t *testing.T) {
	ts := newTestServer(t, nil, Options{})

	rr := ts.do(http.MethodPost, "/api/register", "", `{"name":"Ann","email":"Ann@Example.com","password":"pw"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, userResponse{Email: "ann@example.com", Name: "Ann"}, decode[userResponse](t, rr))

	rr = ts.do(http.MethodPost, "/api/register", "", `{"name":"Ann","email":"ann@example.com","password":"pw"}`)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "duplicate_email", errorCode(t, rr))

	rr = ts.do(http.MethodPost, "/api/register", "", `{"name":"Bob","email":"not-an-email","password":"pw"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, "invalid_email", errorCode(t, rr))

	rr = ts.do(http.MethodPost, "/api/register", "", `{"name":"Bob","email":"bob@example.com","password":""}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, "invalid_password", errorCode(t, rr))

	rr = ts.do(http.MethodPost, "/api/register", "", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = ts.do(http.MethodPost, "/api/login", "", `{"email":"ann@example.com","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "invalid_credentials", errorCode(t, rr))

	rr = ts.do(http.MethodPost, "/api/login", "", `{"email":"nobody@example.com","password":"pw"}`)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = ts.do(http.MethodPost, "/api/login", "", `{"email":"ANN@example.com","password":"pw"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	login := decode[loginResponse](t, rr)
	assert.NotEmpty(t, login.Token)
	assert.Equal(t, "ann@example.com", login.User.Email)

	rr = ts.do(http.MethodGet, "/api/profile", "", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("WWW-Authenticate"))

	rr = ts.do(http.MethodGet, "/api/profile", "garbage", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = ts.do(http.MethodGet, "/api/profile", login.Token, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Ann", decode[userResponse](t, rr).Name)
}

func TestRegisterAcceptsForm(t *testing.T) {
	ts := newTestServer(t, nil, Options{})
	req := httptest.NewRequest(http.MethodPost, "/api/register", strings.NewReader("name=Cy&email=cy%40example.com&password=p%20w"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	ts.srv.Handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	ok, err := ts.svc.Credentials.Verify(context.Background(), "cy@example.com", "p w")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestTransactionLifecycle(t *testing.T) {
	ts := newTestServer(t, nil, Options{})
	token := ts.signup("ann@example.com", "pw")

	rr := ts.do(http.MethodPost, "/api/transactions", token, `{"type":"Expense","category":"Food","amount":40.5,"date":"2024-03-10","note":" lunch "}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	food := decode[transactionResponse](t, rr)
	assert.Equal(t, "lunch", food.Note)
	assert.Equal(t, "/api/transactions/"+itoa(food.ID), rr.Header().Get("Location"))

	rr = ts.do(http.MethodPost, "/api/transactions", token, `{"type":"Income","category":"Salary","amount":"1000"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	salary := decode[transactionResponse](t, rr)
	assert.Equal(t, "2024-03-15", salary.Date, "missing date defaults to today")

	rr = ts.do(http.MethodPost, "/api/transactions", token, `{"type":"Expense","category":"Salary","amount":1}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, "invalid_category", errorCode(t, rr))

	rr = ts.do(http.MethodPost, "/api/transactions", token, `{"type":"Expense","category":"Food","amount":-3}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, "invalid_amount", errorCode(t, rr))

	rr = ts.do(http.MethodPost, "/api/transactions", token, `{"type":"Expense","category":"Food","amount":3,"date":"2024-02-30"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, "invalid_date", errorCode(t, rr))

	rr = ts.do(http.MethodGet, "/api/transactions?month=2024-03", token, "")
	require.Equal(t, http.StatusOK, rr.Code)
	list := decode[struct {
		Month        string                `json:"month"`
		Transactions []transactionResponse `json:"transactions"`
	}](t, rr)
	assert.Equal(t, "2024-03", list.Month)
	require.Len(t, list.Transactions, 2)
	assert.Equal(t, salary.ID, list.Transactions[0].ID, "newest date first")

	rr = ts.do(http.MethodGet, "/api/transactions?month=2024-13", token, "")
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = ts.do(http.MethodGet, "/api/transactions/recent?limit=1", token, "")
	require.Equal(t, http.StatusOK, rr.Code)
	recent := decode[struct {
		Transactions []transactionResponse `json:"transactions"`
	}](t, rr)
	require.Len(t, recent.Transactions, 1)

	rr = ts.do(http.MethodGet, "/api/transactions/recent?limit=abc", token, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = ts.do(http.MethodPut, "/api/transactions/"+itoa(food.ID), token, `{"type":"Expense","category":"Groceries","amount":55}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	updated := decode[transactionResponse](t, rr)
	assert.Equal(t, "Groceries", updated.Category)
	assert.Equal(t, "2024-03-10", updated.Date, "update without date keeps the stored date")

	rr = ts.do(http.MethodGet, "/api/transactions/"+itoa(food.ID), token, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 55.0, decode[transactionResponse](t, rr).Amount)

	rr = ts.do(http.MethodDelete, "/api/transactions/"+itoa(food.ID), token, "")
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = ts.do(http.MethodGet, "/api/transactions/"+itoa(food.ID), token, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = ts.do(http.MethodGet, "/api/transactions/zero", token, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestMalformedStoredDateIsReported(t *testing.T) {
	ts := newTestServer(t, memory.New(), Options{})
	token := ts.signup("ann@example.com", "pw")

	rr := ts.do(http.MethodPost, "/api/transactions", token, `{"type":"Expense","category":"Food","amount":4,"date":"2024-03-10"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	id := decode[transactionResponse](t, rr).ID
	ts.exec(`UPDATE expenses SET date = '2024-03-xx' WHERE expense_id = ?`, id)

	rr = ts.do(http.MethodPut, "/api/transactions/"+itoa(id), token, `{"type":"Expense","category":"Food","amount":6}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, "parse_fault", errorCode(t, rr))
	assert.NotContains(t, rr.Body.String(), "2024-03-xx")

	rr = ts.do(http.MethodPost, "/api/export?month=2024-03", token, "")
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, "parse_fault", errorCode(t, rr))

	// A new date replaces the malformed one.
	rr = ts.do(http.MethodPut, "/api/transactions/"+itoa(id), token, `{"type":"Expense","category":"Food","amount":6,"date":"2024-03-11"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "2024-03-11", decode[transactionResponse](t, rr).Date)
}

func TestTransactionsAreScopedToOwner(t *testing.T) {
	ts := newTestServer(t, nil, Options{})
	ann := ts.signup("ann@example.com", "pw")
	bob := ts.signup("bob@example.com", "pw")

	rr := ts.do(http.MethodPost, "/api/transactions", ann, `{"type":"Expense","category":"Rent","amount":800,"date":"2024-03-01"}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	id := itoa(decode[transactionResponse](t, rr).ID)

	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodGet, "/api/transactions/"+id, bob, "").Code)
	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodPut, "/api/transactions/"+id, bob, `{"type":"Expense","category":"Rent","amount":1}`).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodDelete, "/api/transactions/"+id, bob, "").Code)

	rr = ts.do(http.MethodGet, "/api/summary/balance", bob, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 0.0, decode[map[string]float64](t, rr)["balance"])
}

func TestSummaryAndDashboard(t *testing.T) {
	ts := newTestServer(t, nil, Options{})
	token := ts.signup("ann@example.com", "pw")

	for _, body := range []string{
		`{"type":"Income","category":"Salary","amount":1500,"date":"2024-03-01"}`,
		`{"type":"Expense","category":"Rent","amount":700,"date":"2024-03-02"}`,
		`{"type":"Expense","category":"Food","amount":50,"date":"2024-03-03"}`,
		`{"type":"Expense","category":"Food","amount":25,"date":"2024-02-20"}`,
	} {
		rr := ts.do(http.MethodPost, "/api/transactions", token, body)
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	}

	rr := ts.do(http.MethodGet, "/api/summary/balance", token, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.InDelta(t, 725.0, decode[map[string]float64](t, rr)["balance"], 1e-9)

	rr = ts.do(http.MethodGet, "/api/summary/month?year=2024&month=3", token, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, summaryResponse{Month: "2024-03", Income: 1500, Expense: 750, Net: 750}, decode[summaryResponse](t, rr))

	rr = ts.do(http.MethodGet, "/api/summary/categories?month=2024-03", token, "")
	require.Equal(t, http.StatusOK, rr.Code)
	cats := decode[struct {
		Categories []categoryAmountResponse `json:"categories"`
	}](t, rr)
	assert.Equal(t, []categoryAmountResponse{{"Rent", 700}, {"Food", 50}}, cats.Categories)

	rr = ts.do(http.MethodGet, "/api/dashboard", token, "")
	require.Equal(t, http.StatusOK, rr.Code)
	dash := decode[dashboardResponse](t, rr)
	assert.InDelta(t, 725.0, dash.Balance, 1e-9)
	assert.InDelta(t, 750.0, dash.MonthExpense, 1e-9)
	assert.Equal(t, "2024-03", dash.Month)
	assert.True(t, dash.LowBalance)
	assert.Equal(t, 2000.0, dash.Threshold)
	assert.Len(t, dash.Recent, 3)
}

func TestCategories(t *testing.T) {
	ts := newTestServer(t, nil, Options{})

	rr := ts.do(http.MethodGet, "/api/categories", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	all := decode[map[string][]string](t, rr)
	assert.Len(t, all["Expense"], 11)
	assert.Len(t, all["Income"], 6)

	rr = ts.do(http.MethodGet, "/api/categories?type=Income", "", "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = ts.do(http.MethodGet, "/api/categories?type=Gift", "", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestExport(t *testing.T) {
	store := memory.New()
	ts := newTestServer(t, store, Options{})
	token := ts.signup("ann@example.com", "pw")

	rr := ts.do(http.MethodPost, "/api/export?month=2024-03", token, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "mem:ann@example.com/2024-03", decode[map[string]string](t, rr)["ref"])
	assert.Equal(t, 1, store.Writes())

	disabled := newTestServer(t, nil, Options{})
	token = disabled.signup("ann@example.com", "pw")
	rr = disabled.do(http.MethodPost, "/api/export", token, "")
	assert.Equal(t, http.StatusNotImplemented, rr.Code)
	assert.Equal(t, "export_disabled", errorCode(t, rr))
}

func TestRateLimitAndProbes(t *testing.T) {
	ts := newTestServer(t, nil, Options{RateLimitPerMinute: 2})

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, ts.do(http.MethodGet, "/api/categories", "", "").Code)
	}
	rr := ts.do(http.MethodGet, "/api/categories", "", "")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))

	// Health checks are outside the limiter
	assert.Equal(t, http.StatusOK, ts.do(http.MethodGet, "/healthz", "", "").Code)

	assert.Equal(t, http.StatusBadRequest, ts.do(http.MethodGet, "/.env", "", "").Code)
	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodGet, "/nope", "", "").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, ts.do(http.MethodDelete, "/healthz", "", "").Code)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
