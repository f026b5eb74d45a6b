package http

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"trackify/internal/core"
	"trackify/internal/middleware/auth"
)

// sanitizeInput removes control characters except tab, newline and carriage
// return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// parseIDParam reads the {id} route parameter.
func parseIDParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid transaction id %q", errBadRequest, raw)
	}
	return id, nil
}

// currentEmail returns the authenticated caller. Private routes always run
// behind the auth middleware, so a missing value is a wiring bug.
func currentEmail(r *http.Request) (string, error) {
	email, ok := auth.EmailFromContext(r.Context())
	if !ok {
		return "", auth.ErrMissingToken
	}
	return email, nil
}

type userResponse struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

func toUserResponse(u core.User) userResponse {
	return userResponse{Email: u.Email, Name: u.Name}
}

type transactionResponse struct {
	ID       int64   `json:"id"`
	Type     string  `json:"type"`
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
	Date     string  `json:"date"`
	Note     string  `json:"note,omitempty"`
}

func toTransactionResponse(tx core.Transaction) transactionResponse {
	return transactionResponse{
		ID:       tx.ID,
		Type:     string(tx.Class.Kind()),
		Category: tx.Class.Category(),
		Amount:   tx.Amount,
		Date:     tx.Date.String(),
		Note:     tx.Note,
	}
}

func toTransactionResponses(txs []core.Transaction) []transactionResponse {
	out := make([]transactionResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, toTransactionResponse(tx))
	}
	return out
}

type summaryResponse struct {
	Month   string  `json:"month"`
	Income  float64 `json:"income"`
	Expense float64 `json:"expense"`
	Net     float64 `json:"net"`
}

func toSummaryResponse(s core.MonthlySummary) summaryResponse {
	return summaryResponse{
		Month:   s.Month.String(),
		Income:  s.Income,
		Expense: s.Expense,
		Net:     s.Net(),
	}
}

type categoryAmountResponse struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

type dashboardResponse struct {
	Balance      float64               `json:"balance"`
	MonthExpense float64               `json:"month_expense"`
	Month        string                `json:"month"`
	LowBalance   bool                  `json:"low_balance"`
	Threshold    float64               `json:"threshold"`
	Recent       []transactionResponse `json:"recent"`
}
