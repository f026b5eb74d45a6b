package http

import (
	"fmt"
	"net/http"

	"trackify/internal/core"
	applog "trackify/internal/log"
)

// maxRecentLimit caps ?limit= on the recent listing.
const maxRecentLimit = 100

// handleCreateTransaction stores an income or expense for the caller.
func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	email, err := currentEmail(r)
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}

	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	tx, err := p.ParseTransaction(s.now())
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	tx.UserEmail = email

	id, err := s.svc.Transactions.Insert(r.Context(), tx)
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	tx.ID = id

	applog.NewStructuredLogger(applog.FromContext(r.Context()).WithComponent(applog.ComponentTransaction)).
		LogTransactionCreated(r.Context(), email, id, string(tx.Class.Kind()), tx.Class.Category(), tx.Amount, tx.Date.String())

	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", fmt.Sprintf("/api/transactions/%d", id)).
		Data(toTransactionResponse(tx)).
		Write(w)
}

// ownedTransaction loads {id} and hides rows of other users behind 404.
func (s *Server) ownedTransaction(r *http.Request) (core.Transaction, error) {
	email, err := currentEmail(r)
	if err != nil {
		return core.Transaction{}, err
	}
	id, err := parseIDParam(r)
	if err != nil {
		return core.Transaction{}, err
	}
	tx, err := s.svc.Transactions.GetByID(r.Context(), id)
	if err != nil {
		return core.Transaction{}, err
	}
	if tx.UserEmail != email {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	return tx, nil
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := s.ownedTransaction(r)
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	NewJSONResponse().Data(toTransactionResponse(tx)).Write(w)
}

// handleUpdateTransaction replaces type, category, amount, date and note.
func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	current, err := s.ownedTransaction(r)
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}

	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	tx, err := p.ParseTransaction(s.now())
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	// An update without a date keeps the stored one.
	if !p.Has("date") {
		if _, err := current.Date.Time(); err != nil {
			writeError(w, r, applog.OpUpdate, err)
			return
		}
		tx.Date = current.Date
	}
	tx.ID = current.ID
	tx.UserEmail = current.UserEmail

	if err := s.svc.Transactions.Update(r.Context(), current.ID, tx); err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	NewJSONResponse().Data(toTransactionResponse(tx)).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := s.ownedTransaction(r)
	if err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}
	if err := s.svc.Transactions.Delete(r.Context(), tx.ID); err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

// handleListTransactions lists the caller's transactions for ?month=, newest first.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	email, err := currentEmail(r)
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}
	ym, err := ParseMonthParam(r.URL.Query(), s.now())
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}
	txs, err := s.svc.Transactions.ListByMonth(r.Context(), email, ym)
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}
	NewJSONResponse().Data(map[string]interface{}{
		"month":        ym.String(),
		"transactions": toTransactionResponses(txs),
	}).Write(w)
}

// handleRecentTransactions returns the caller's newest transactions.
func (s *Server) handleRecentTransactions(w http.ResponseWriter, r *http.Request) {
	email, err := currentEmail(r)
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}
	limit, err := ParseLimitParam(r.URL.Query(), s.recentLimit, maxRecentLimit)
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}
	txs, err := s.svc.Transactions.ListRecent(r.Context(), email, limit)
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}
	NewJSONResponse().Data(map[string]interface{}{
		"transactions": toTransactionResponses(txs),
	}).Write(w)
}
