package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"fintrack/internal/cache"
	applog "fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/services"
)

const (
	cacheCleanupInterval = 10 * time.Minute
	maxBodyBytes         = 1 << 20
)

// Options tunes the middleware chain.
type Options struct {
	RateLimitPerMinute int
	TrustedProxies     []string
	BlockSuspicious    bool
}

// Server is the ledger JSON API. It owns the middleware state and the cache
// cleanup loop; the ledger session itself lives in the service.
type Server struct {
	http.Server

	ledger   *services.LedgerService
	logger   *applog.Logger
	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware
	caches   *cache.Manager

	started      time.Time
	shutdownOnce sync.Once
}

// NewServer wires routes and middleware around svc.
func NewServer(addr string, svc *services.LedgerService, opts Options) (*Server, error) {
	detector := security.NewDetector(opts.BlockSuspicious)
	for _, cidr := range opts.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			return nil, err
		}
	}

	s := &Server{
		ledger:   svc,
		logger:   applog.New(applog.Config{Component: applog.ComponentHTTP, Handler: slog.Default().Handler()}),
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		detector: detector,
		caches:   cache.NewManager(),
		started:  time.Now(),
	}
	s.tracer = trace.NewMiddleware(detector.ExtractClientIP)

	svc.RegisterCaches(s.caches)
	s.caches.StartCleanup(cacheCleanupInterval)

	mux := http.NewServeMux()
	s.routes(mux)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	var h http.Handler = mux
	h = s.limiter.Middleware(detector.ExtractClientIP, writeRateLimited)(h)
	h = detector.Middleware(h)
	h = applog.RequestIDMiddleware(func(r *http.Request) string { return trace.RequestID(r.Context()) })(h)
	h = applog.Middleware(s.logger)(h)
	h = s.tracer.Middleware(h)
	h = headers.Middleware(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /api/months", s.handleMonths)
	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /api/utilization", s.handleUtilization)
	mux.HandleFunc("GET /api/trends", s.handleTrends)
	mux.HandleFunc("GET /api/insights", s.handleInsights)
	mux.HandleFunc("GET /api/export.csv", s.handleExport)
	mux.HandleFunc("POST /api/refresh", s.handleRefresh)

	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("PUT /api/transactions/{id}", s.handleUpdateTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)
	mux.HandleFunc("POST /api/undo", s.handleUndo)

	mux.HandleFunc("GET /api/accounts", s.handleListAccounts)
	mux.HandleFunc("POST /api/accounts", s.handleCreateAccount)
	mux.HandleFunc("PUT /api/accounts/{name}", s.handleUpdateAccount)
	mux.HandleFunc("DELETE /api/accounts/{name}", s.handleDeleteAccount)

	mux.HandleFunc("GET /api/admin/locks", s.handleGetLocks)
	mux.HandleFunc("PUT /api/admin/locks", s.handlePutLocks)
	mux.HandleFunc("GET /api/admin/rules", s.handleGetRules)
	mux.HandleFunc("PUT /api/admin/rules", s.handlePutRules)
	mux.HandleFunc("PUT /api/admin/rules/lock", s.handlePutRulesLock)
	mux.HandleFunc("GET /api/admin/recurring", s.handleListRecurring)
	mux.HandleFunc("PUT /api/admin/recurring", s.handlePutRecurring)
}

// Shutdown stops the background loops and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		s.caches.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
