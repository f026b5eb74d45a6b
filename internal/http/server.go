package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	applog "trackify/internal/log"
	"trackify/internal/middleware/auth"
	"trackify/internal/middleware/ratelimit"
	"trackify/internal/middleware/security"
	"trackify/internal/middleware/trace"
	"trackify/internal/services"
)

// readyTimeout bounds the database ping behind /readyz.
const readyTimeout = 2 * time.Second

// Options tunes the server. Zero values fall back to defaults.
type Options struct {
	RateLimitPerMinute int
	RecentLimit        int
	Logger             *applog.Logger
	// Now is the clock used for default dates and months.
	Now func() time.Time
}

type Server struct {
	http.Server

	svc         *services.Services
	issuer      *auth.Issuer
	limiter     *ratelimit.Limiter
	detector    *security.Detector
	tracer      *trace.Middleware
	now         func() time.Time
	recentLimit int

	shutdownOnce sync.Once
}

// NewServer configures middleware and routes, returning a ready-to-run http.Server.
func NewServer(addr string, svc *services.Services, issuer *auth.Issuer, opts Options) *Server {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.RecentLimit <= 0 {
		opts.RecentLimit = services.DefaultDashboardConfig().RecentLimit
	}

	detector := security.NewDetector()
	s := &Server{
		svc:         svc,
		issuer:      issuer,
		limiter:     ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		detector:    detector,
		tracer:      trace.NewMiddleware(opts.Logger, detector.ExtractClientIP),
		now:         opts.Now,
		recentLimit: opts.RecentLimit,
	}

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16, // 64KB
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.tracer.Middleware)
	r.Use(chimw.Recoverer)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(s.detector.Middleware)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("no such route").Write(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed").Write(w)
	})

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
			ErrorResponse(http.StatusTooManyRequests, "rate_limited", "rate limit exceeded, try again later").Write(w)
		}))

		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)
		r.Get("/categories", s.handleCategories)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.issuer.Middleware(func(w http.ResponseWriter, r *http.Request, err error) {
				writeError(w, r, applog.OpValidate, err)
			}))

			r.Get("/profile", s.handleProfile)

			r.Post("/transactions", s.handleCreateTransaction)
			r.Get("/transactions", s.handleListTransactions)
			r.Get("/transactions/recent", s.handleRecentTransactions)
			r.Get("/transactions/{id}", s.handleGetTransaction)
			r.Put("/transactions/{id}", s.handleUpdateTransaction)
			r.Delete("/transactions/{id}", s.handleDeleteTransaction)

			r.Get("/summary/balance", s.handleBalance)
			r.Get("/summary/month", s.handleMonthSummary)
			r.Get("/summary/categories", s.handleCategoryBreakdown)
			r.Get("/dashboard", s.handleDashboard)
			r.Post("/export", s.handleExport)
		})
	})

	return r
}

// Shutdown stops background routines and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady reports ready once the database answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()
	if err := s.svc.Ping(ctx); err != nil {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", applog.FieldError, err.Error())
		ErrorResponse(http.StatusServiceUnavailable, "not_ready", "database unavailable").Write(w)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
