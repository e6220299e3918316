package http

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).String(),
	}).Write(w)
}

// handleReady reports ready only when the store answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := map[string]any{}

	if err := s.ledger.Ping(ctx); err != nil {
		checks["store"] = fmt.Sprintf("failed: %v", err)
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["store"] = "ok"
	}

	checks["ledger"] = map[string]any{
		"version":        s.ledger.Version(),
		"selected_month": s.ledger.SelectedMonth(),
		"can_undo":       s.ledger.CanUndo(),
	}
	checks["rate_limiter"] = map[string]any{
		"active_clients": s.limiter.ActiveClients(),
	}

	NewJSONResponse(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	}).Status(httpStatus).Write(w)
}

// handleMetrics writes counters in the Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	traceMetrics := s.tracer.GetMetrics()
	rateMetrics := s.limiter.GetMetrics()
	securityMetrics := s.detector.GetMetrics()

	counter := func(name, help string, v int64) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s counter\n%s %d\n\n", name, help, name, name, v)
	}
	gauge := func(name, help string, v float64) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s gauge\n%s %g\n\n", name, help, name, name, v)
	}

	counter("http_requests_total", "Total number of HTTP requests", traceMetrics.TotalRequests)
	counter("http_server_errors_total", "Responses with a 5xx status", traceMetrics.ServerErrors)
	gauge("http_response_time_avg_seconds", "Average response time", traceMetrics.AverageResponseTime.Seconds())
	counter("rate_limit_hits_total", "Writes rejected by the rate limiter", rateMetrics.TotalHits)
	gauge("active_rate_limit_clients", "Currently tracked rate limit clients", float64(rateMetrics.ClientCount))
	counter("suspicious_requests_total", "Requests flagged by the detector", securityMetrics.SuspiciousRequests)
	counter("blocked_requests_total", "Flagged requests that were rejected", securityMetrics.BlockedRequests)
	gauge("ledger_snapshot_version", "Current ledger snapshot version", float64(s.ledger.Version()))

	stats := s.ledger.CacheStats()
	views := make([]string, 0, len(stats))
	for v := range stats {
		views = append(views, v)
	}
	sort.Strings(views)
	fmt.Fprintf(w, "# HELP view_cache_hits_total Derived view cache hits\n# TYPE view_cache_hits_total counter\n")
	for _, v := range views {
		fmt.Fprintf(w, "view_cache_hits_total{view=%q} %d\n", v, stats[v].Hits)
	}
	fmt.Fprintf(w, "\n# HELP view_cache_misses_total Derived view cache misses\n# TYPE view_cache_misses_total counter\n")
	for _, v := range views {
		fmt.Fprintf(w, "view_cache_misses_total{view=%q} %d\n", v, stats[v].Misses)
	}
	fmt.Fprintf(w, "\n# HELP view_cache_entries Derived view cache entries\n# TYPE view_cache_entries gauge\n")
	for _, v := range views {
		fmt.Fprintf(w, "view_cache_entries{view=%q} %d\n", v, stats[v].Size)
	}
	gauge("uptime_seconds", "Application uptime in seconds", time.Since(s.started).Seconds())
}
