// Package http serves the ledger over a JSON API.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/cors"

	"fxledger/internal/budget"
	"fxledger/internal/ledger"
	"fxledger/internal/log"
	"fxledger/internal/metrics"
	"fxledger/internal/middleware/ratelimit"
	"fxledger/internal/middleware/security"
	"fxledger/internal/middleware/trace"
	"fxledger/internal/tools"
)

const (
	maxJSONBody   = 1 << 20
	maxImportBody = 10 << 20
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the services behind the routes. Budgets and Tools may be nil,
// which disables their routes.
type Deps struct {
	Ledger  *ledger.Service
	Budgets *budget.Service
	Tools   *tools.Registry
	Store   Pinger
}

type Config struct {
	Addr            string
	AllowedOrigins  []string
	TrustedProxies  []string
	Limiter         ratelimit.Limiter
	RateLimitWindow time.Duration
}

type Server struct {
	http.Server
	deps Deps
	now  func() time.Time
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(cfg Config, deps Deps) (*Server, error) {
	clientIP, err := security.NewClientIP(cfg.TrustedProxies...)
	if err != nil {
		return nil, err
	}

	s := &Server{deps: deps, now: time.Now}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("POST /api/transactions", s.handleRecord)
	mux.HandleFunc("GET /api/transactions", s.handleList)
	mux.HandleFunc("POST /api/transactions/import", s.handleImport)
	mux.HandleFunc("GET /api/transactions/export", s.handleExport)
	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("GET /api/rates", s.handleRates)
	if deps.Budgets != nil {
		mux.HandleFunc("PUT /api/budgets", s.handleSetBudget)
		mux.HandleFunc("GET /api/budgets/status", s.handleBudgetStatus)
	}
	if deps.Tools != nil {
		mux.HandleFunc("GET /api/tools", s.handleListTools)
		mux.HandleFunc("POST /api/tools/{name}", s.handleInvokeTool)
	}

	// Metrics sits directly on the mux so it can read the matched pattern.
	var h http.Handler = instrument(mux)
	if cfg.Limiter != nil {
		window := cfg.RateLimitWindow
		if window <= 0 {
			window = ratelimit.DefaultConfig().Window
		}
		h = ratelimit.Middleware(cfg.Limiter, window, "api", clientIP.Extract, http.MethodPost, http.MethodPut)(h)
	}
	h = trace.Middleware(clientIP.Extract)(h)
	h = security.Headers(security.DefaultHeadersConfig())(h)
	if len(cfg.AllowedOrigins) > 0 {
		h = cors.New(cors.Options{
			AllowedOrigins: cfg.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", trace.HeaderRequestID},
			ExposedHeaders: []string{trace.HeaderRequestID},
			MaxAge:         300,
		}).Handler(h)
	}

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.Store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.Store.Ping(ctx); err != nil {
			slog.WarnContext(ctx, "Readiness check failed",
				log.FieldComponent, log.ComponentHTTP,
				log.FieldError, err)
			http.Error(w, "store unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// instrument records request counts and latency by matched route pattern.
func instrument(mux *http.ServeMux) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		mux.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		metrics.HTTPDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
