// Package http exposes the ledger, analytics and cache surfaces as a JSON
// API. Authentication happens upstream; the caller's user id arrives in the
// X-User-ID header.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"ledger/internal/analytics"
	"ledger/internal/log"
	"ledger/internal/middleware/ratelimit"
	"ledger/internal/middleware/security"
	"ledger/internal/middleware/trace"
	"ledger/internal/services"
)

// Services are the controllers the handlers call into.
type Services struct {
	Analytics    *analytics.Service
	Transactions *services.TransactionService
	Categories   *services.CategoryService
	Users        *services.UserService
	// Ready reports whether the ledger store is reachable. Nil means always.
	Ready func(ctx context.Context) error
}

type Server struct {
	http.Server
	svc     Services
	logger  *log.Logger
	limiter *ratelimit.Limiter
	tracer  *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, svc Services, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		svc:     svc,
		logger:  logger,
		limiter: ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		tracer:  trace.NewMiddleware(security.ClientIP, logger),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/analytics/summary", s.handleSummary)
	mux.HandleFunc("GET /api/analytics/summary/range", s.handleSummaryRange)
	mux.HandleFunc("GET /api/analytics/trends", s.handleMonthlyTrends)
	mux.HandleFunc("GET /api/analytics/categories/trends", s.handleCategoryTrends)
	mux.HandleFunc("GET /api/analytics/budget", s.handleBudget)
	mux.HandleFunc("GET /api/analytics/insights", s.handleInsights)

	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("GET /api/transactions/{id}", s.handleGetTransaction)
	mux.HandleFunc("PUT /api/transactions/{id}", s.handleUpdateTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)

	mux.HandleFunc("GET /api/categories", s.handleListCategories)
	mux.HandleFunc("POST /api/categories", s.handleCreateCategory)
	mux.HandleFunc("GET /api/categories/{id}", s.handleGetCategory)
	mux.HandleFunc("PUT /api/categories/{id}", s.handleUpdateCategory)
	mux.HandleFunc("DELETE /api/categories/{id}", s.handleDeleteCategory)

	mux.HandleFunc("GET /api/profile", s.handleGetProfile)
	mux.HandleFunc("PUT /api/profile", s.handleUpdateProfile)

	mux.HandleFunc("GET /api/cache/metrics", s.handleCacheMetrics)
	mux.HandleFunc("POST /api/cache/metrics/reset", s.handleResetCacheMetrics)
	mux.HandleFunc("POST /api/cache/warm", s.handleWarmCache)

	var handler http.Handler = mux
	handler = s.limiter.Middleware(security.ClientIP, s.handleRateLimited)(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.tracer.Middleware(handler)
	handler = log.ComponentMiddleware(log.ComponentHTTP)(handler)
	handler = log.Middleware(logger)(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16, // 64KB
	}
	return s
}

// Shutdown stops the limiter and gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"requests":  s.tracer.GetMetrics(),
		"rateLimit": s.limiter.GetMetrics(),
	})
}

// handleReady fails only when the ledger is unreachable. The cache fails
// open, so its state is reported but does not affect readiness.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	body := map[string]string{"status": "ready", "ledger": "ok", "cache": "ok"}
	if err := s.svc.Analytics.PingCache(ctx); err != nil {
		body["cache"] = "unavailable"
	}
	if s.svc.Ready != nil {
		if err := s.svc.Ready(ctx); err != nil {
			s.logger.WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			body["status"], body["ledger"] = "unavailable", "unavailable"
			writeJSON(w, http.StatusServiceUnavailable, body)
			return
		}
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusTooManyRequests, errorBody{
		Error:     "rate limit exceeded",
		RequestID: trace.GetRequestID(r.Context()),
	})
}
