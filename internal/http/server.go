package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"fxledger/internal/auth"
	"fxledger/internal/core"
	"fxledger/internal/log"
	"fxledger/internal/metrics"
	"fxledger/internal/middleware/idempotency"
	"fxledger/internal/middleware/ratelimit"
	"fxledger/internal/middleware/security"
	"fxledger/internal/middleware/trace"
	"fxledger/internal/services"
)

// Ledger is the caller-facing surface the handlers drive.
type Ledger interface {
	CreateTransaction(ctx context.Context, in core.TransactionInput) (core.Transaction, error)
	ListTransactions(ctx context.Context, f core.Filter) ([]services.Entry, error)
	UpdateTransaction(ctx context.Context, id int64, in core.TransactionInput) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, id int64) error
	Rates(ctx context.Context, base string) (core.RateSnapshot, error)
}

// Pinger is a dependency checked by /readyz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options wires the server. Only Addr and Ledger are required.
type Options struct {
	Addr               string
	Ledger             Ledger
	Verifier           *auth.Verifier
	Metrics            *metrics.Metrics
	Logger             *log.Logger
	RateLimitPerMinute int
	Idempotency        idempotency.Store
	ReadyChecks        map[string]Pinger

	// AllowedOrigins enables CORS for browser callers; empty disables it.
	AllowedOrigins []string
	// TrustedProxies are CIDRs, on top of loopback and private ranges, whose
	// X-Forwarded-For is believed. Invalid entries are logged and skipped.
	TrustedProxies []string
}

type Server struct {
	http.Server
	ledger  Ledger
	checks  map[string]Pinger
	started time.Time

	rateLimiter  *ratelimit.Limiter
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Component(log.ComponentHTTP)
	}
	checks := opts.ReadyChecks
	if checks == nil {
		checks = map[string]Pinger{}
	}

	detector := security.NewDetector(opts.Metrics)
	for _, cidr := range opts.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring trusted proxy", log.FieldError, err)
		}
	}
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	tracer := trace.NewMiddleware(detector.ExtractClientIP, opts.Metrics)
	limiter := ratelimit.NewLimiter(ratelimit.Config{
		RequestsPerMinute: opts.RateLimitPerMinute,
		Metrics:           opts.Metrics,
	})

	s := &Server{
		ledger:      opts.Ledger,
		checks:      checks,
		started:     time.Now(),
		rateLimiter: limiter,
	}

	r := chi.NewRouter()
	r.Use(tracer.Middleware)
	r.Use(chimw.Recoverer)
	if len(opts.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   opts.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", idempotency.Header, trace.HeaderRequestID},
			ExposedHeaders:   []string{"Location", "Retry-After", idempotency.ReplayHeader, trace.HeaderRequestID},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}
	r.Use(log.Middleware(logger))
	r.Use(log.RequestIDMiddleware(trace.RequestID))
	r.Use(detector.Middleware)
	r.Use(headers.Middleware)
	r.NotFound(s.handleNotFound)
	r.MethodNotAllowed(s.handleMethodNotAllowed)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		if opts.Verifier != nil {
			r.Use(auth.Middleware(opts.Verifier))
		}
		r.Use(requireOwner)
		r.Use(limiter.Middleware(detector.ExtractClientIP))

		r.With(idempotency.Middleware(opts.Idempotency, opts.Metrics)).
			Post("/transactions", s.handleCreateTransaction)
		r.Get("/transactions", s.handleListTransactions)
		r.Put("/transactions/{id}", s.handleUpdateTransaction)
		r.Delete("/transactions/{id}", s.handleDeleteTransaction)
		r.Get("/rates", s.handleRates)
	})

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// requireOwner answers 401 before any body, path or query parsing when the
// request carries no authenticated owner.
func requireOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.OwnerID(r.Context()); !ok {
			WriteError(r.Context(), w, core.ErrUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
