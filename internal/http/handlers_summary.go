package http

import (
	"net/http"

	"trackify/internal/core"
	applog "trackify/internal/log"
)

// handleCategories lists the allowed categories, optionally for one ?type=.
func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	if kind := r.URL.Query().Get("type"); kind != "" {
		cats := core.CategoriesFor(core.Kind(kind))
		if cats == nil {
			writeError(w, r, applog.OpRead, core.ErrInvalidKind)
			return
		}
		NewJSONResponse().Data(map[string]interface{}{
			"type":       kind,
			"categories": cats,
		}).Write(w)
		return
	}
	NewJSONResponse().Data(map[string][]string{
		string(core.KindExpense): core.CategoriesFor(core.KindExpense),
		string(core.KindIncome):  core.CategoriesFor(core.KindIncome),
	}).Write(w)
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	email, err := currentEmail(r)
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	balance, err := s.svc.Aggregation.TotalBalance(r.Context(), email)
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	NewJSONResponse().Data(map[string]float64{"balance": balance}).Write(w)
}

func (s *Server) handleMonthSummary(w http.ResponseWriter, r *http.Request) {
	email, err := currentEmail(r)
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	ym, err := ParseMonthParam(r.URL.Query(), s.now())
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	sum, err := s.svc.Aggregation.MonthlySummary(r.Context(), email, ym)
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	NewJSONResponse().Data(toSummaryResponse(sum)).Write(w)
}

// handleCategoryBreakdown returns expense totals per category, largest first.
func (s *Server) handleCategoryBreakdown(w http.ResponseWriter, r *http.Request) {
	email, err := currentEmail(r)
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	ym, err := ParseMonthParam(r.URL.Query(), s.now())
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	cats, err := s.svc.Aggregation.MonthlyCategoryBreakdown(r.Context(), email, ym)
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	out := make([]categoryAmountResponse, 0, len(cats))
	for _, c := range cats {
		out = append(out, categoryAmountResponse{Name: c.Name, Amount: c.Amount})
	}
	NewJSONResponse().Data(map[string]interface{}{
		"month":      ym.String(),
		"categories": out,
	}).Write(w)
}

// handleDashboard returns balance, this month's expense and recent activity.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	email, err := currentEmail(r)
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	snap, err := s.svc.Dashboard.Snapshot(r.Context(), email, s.now())
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	NewJSONResponse().Data(dashboardResponse{
		Balance:      snap.Balance,
		MonthExpense: snap.MonthExpense,
		Month:        snap.Month.String(),
		LowBalance:   snap.LowBalance,
		Threshold:    s.svc.Dashboard.Threshold(),
		Recent:       toTransactionResponses(snap.Recent),
	}).Write(w)
}

// handleExport writes ?month= to the configured export backend.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	email, err := currentEmail(r)
	if err != nil {
		writeError(w, r, applog.OpExport, err)
		return
	}
	ym, err := ParseMonthParam(r.URL.Query(), s.now())
	if err != nil {
		writeError(w, r, applog.OpExport, err)
		return
	}
	ref, err := s.svc.Exporter.ExportMonth(r.Context(), email, ym)
	if err != nil {
		writeError(w, r, applog.OpExport, err)
		return
	}
	NewJSONResponse().Data(map[string]string{
		"month": ym.String(),
		"ref":   ref,
	}).Write(w)
}
