package services

import (
	"context"
	"io"
	"time"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/export"
	"fintrack/internal/ledger"
)

// Dashboard is the month view: headline metrics, the hero line, category
// and type breakdowns and the month's rows newest first.
type Dashboard struct {
	Month        core.Month
	Overview     ledger.Overview
	Hero         ledger.Hero
	Categories   []ledger.Total
	Types        []ledger.Total
	Transactions []core.Transaction
}

// Dashboard derives the month view from the snapshot.
func (s *LedgerService) Dashboard(ctx context.Context, month core.Month) (Dashboard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.refreshDirtyLocked(ctx); err != nil {
		return Dashboard{}, err
	}
	return s.dashboards.GetOrCompute(cache.Key(s.version, "dashboard", month.String()), func() (Dashboard, error) {
		rows := ledger.InMonth(s.txs, month)
		var spend []core.Transaction
		for _, tx := range rows {
			if ledger.IsSpend(tx) {
				spend = append(spend, tx)
			}
		}
		return Dashboard{
			Month:        month,
			Overview:     ledger.MonthOverview(s.txs, month),
			Hero:         ledger.HeroInsight(s.txs, month),
			Categories:   ledger.SumByCategory(spend),
			Types:        ledger.SumByType(rows),
			Transactions: ledger.Search(s.txs, month, nil, ""),
		}, nil
	})
}

// Utilization returns the per-account card summary of month as of today.
func (s *LedgerService) Utilization(ctx context.Context, month core.Month, today time.Time) ([]ledger.Utilization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.refreshDirtyLocked(ctx); err != nil {
		return nil, err
	}
	key := cache.Key(s.version, "utilization", month.String(), today.Format("2006-01-02"))
	return s.utilization.GetOrCompute(key, func() ([]ledger.Utilization, error) {
		events := ledger.ComputeBalanceEvents(s.txs, s.accounts)
		return ledger.UtilizationTable(events, month, s.accounts, s.admin.RecurringPrefs, today), nil
	})
}

// Trends aggregates spending across the whole ledger.
func (s *LedgerService) Trends(ctx context.Context) (ledger.Trends, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.refreshDirtyLocked(ctx); err != nil {
		return ledger.Trends{}, err
	}
	return s.trends.GetOrCompute(cache.Key(s.version, "trends"), func() (ledger.Trends, error) {
		return ledger.ComputeTrends(s.txs), nil
	})
}

// Insights scores ledger data quality.
func (s *LedgerService) Insights(ctx context.Context) (ledger.Insights, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.refreshDirtyLocked(ctx); err != nil {
		return ledger.Insights{}, err
	}
	return s.insights.GetOrCompute(cache.Key(s.version, "insights"), func() (ledger.Insights, error) {
		return ledger.ComputeInsights(s.txs, s.accounts), nil
	})
}

// Search filters month rows by category set and notes text.
func (s *LedgerService) Search(ctx context.Context, month core.Month, categories []string, query string) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.refreshDirtyLocked(ctx); err != nil {
		return nil, err
	}
	return ledger.Search(s.txs, month, categories, query), nil
}

// Export writes the rows in scope as CSV to w.
func (s *LedgerService) Export(ctx context.Context, w io.Writer, scope export.Scope) (int, error) {
	s.mu.Lock()
	if err := s.refreshDirtyLocked(ctx); err != nil {
		s.mu.Unlock()
		return 0, err
	}
	rows := scope.Filter(s.txs)
	s.mu.Unlock()

	if err := export.WriteCSV(w, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// Today is the service clock truncated to a date.
func (s *LedgerService) Today() time.Time {
	return core.DateOnly(s.now())
}
