package http

import (
	"bytes"
	"net/http"
	"strconv"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/export"
	"fintrack/internal/ledger"
	applog "fintrack/internal/log"
)

const (
	pastMonthOptions   = 12
	futureMonthOptions = 3
)

// selectMonth resolves the month parameter and makes it the session's
// active month, materializing its recurring entries when it changed.
func (s *Server) selectMonth(w http.ResponseWriter, r *http.Request, op string) (core.Month, int, bool) {
	month, err := s.monthParam(r)
	if err != nil {
		writeError(w, r, op, err)
		return core.Month{}, 0, false
	}
	n, err := s.ledger.SelectMonth(r.Context(), month)
	if err != nil {
		writeError(w, r, applog.OpMaterialize, err)
		return core.Month{}, 0, false
	}
	if n > 0 {
		applog.FromContext(r.Context()).InfoContext(r.Context(), "Recurring entries added on month selection",
			applog.FieldMonth, month.String(),
			applog.FieldCount, n)
	}
	return month, n, true
}

func (s *Server) handleMonths(w http.ResponseWriter, r *http.Request) {
	today := s.ledger.Today()
	NewJSONResponse(map[string]any{
		"current":  core.MonthOf(today),
		"selected": s.ledger.SelectedMonth(),
		"options":  core.MonthOptions(today, pastMonthOptions, futureMonthOptions),
	}).Write(w)
}

type dashboardResponse struct {
	Month        core.Month            `json:"month"`
	Materialized int                   `json:"materialized"`
	CanUndo      bool                  `json:"can_undo"`
	Overview     ledger.Overview       `json:"overview"`
	Hero         ledger.Hero           `json:"hero"`
	Categories   []ledger.Total        `json:"categories"`
	Types        []ledger.Total        `json:"types"`
	Transactions []transactionResponse `json:"transactions"`
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	month, n, ok := s.selectMonth(w, r, applog.OpRead)
	if !ok {
		return
	}
	d, err := s.ledger.Dashboard(r.Context(), month)
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	NewJSONResponse(dashboardResponse{
		Month:        d.Month,
		Materialized: n,
		CanUndo:      s.ledger.CanUndo(),
		Overview:     d.Overview,
		Hero:         d.Hero,
		Categories:   d.Categories,
		Types:        d.Types,
		Transactions: newTransactionResponses(d.Transactions),
	}).Write(w)
}

func (s *Server) handleUtilization(w http.ResponseWriter, r *http.Request) {
	month, n, ok := s.selectMonth(w, r, applog.OpRead)
	if !ok {
		return
	}
	today := s.ledger.Today()
	rows, err := s.ledger.Utilization(r.Context(), month, today)
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	NewJSONResponse(map[string]any{
		"month":        month,
		"today":        today.Format(time.DateOnly),
		"materialized": n,
		"accounts":     rows,
	}).Write(w)
}

func (s *Server) handleTrends(w http.ResponseWriter, r *http.Request) {
	t, err := s.ledger.Trends(r.Context())
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	NewJSONResponse(t).Write(w)
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	in, err := s.ledger.Insights(r.Context())
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	NewJSONResponse(in).Write(w)
}

// handleExport streams the CSV of one month or, with month=all or no month,
// of the whole ledger.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	scope, err := export.ParseScope(r.URL.Query().Get("month"))
	if err != nil {
		writeError(w, r, applog.OpExport, err)
		return
	}
	var buf bytes.Buffer
	n, err := s.ledger.Export(r.Context(), &buf, scope)
	if err != nil {
		writeError(w, r, applog.OpExport, err)
		return
	}
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Ledger exported",
		applog.FieldOperation, applog.OpExport,
		"scope", scope.String(),
		applog.FieldCount, n)

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+scope.FileName()+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.Refresh(r.Context()); err != nil {
		writeError(w, r, applog.OpRefresh, err)
		return
	}
	NewJSONResponse(map[string]any{"version": s.ledger.Version()}).Write(w)
}
