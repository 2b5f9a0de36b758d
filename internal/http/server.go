package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"billbook/internal/auth"
	"billbook/internal/log"
	"billbook/internal/middleware/ratelimit"
	"billbook/internal/middleware/security"
	"billbook/internal/middleware/trace"
	"billbook/internal/services"
	appweb "billbook/web"
)

// Services groups the application services the handlers call.
type Services struct {
	Users      *services.UserService
	Categories *services.CategoryService
	Bills      *services.BillService
	Budgets    *services.BudgetService
}

// TokenParser verifies bearer tokens.
type TokenParser interface {
	Parse(raw string) (auth.Claims, error)
}

// Pinger reports whether the data store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options tune the HTTP surface.
type Options struct {
	CORSAllowedOrigins     []string
	AuthRateLimitPerMinute int
	ReadTimeout            time.Duration
	WriteTimeout           time.Duration
	IdleTimeout            time.Duration
}

type Server struct {
	http.Server
	templates   *template.Template
	svc         Services
	tokens      TokenParser
	store       Pinger
	logger      *log.Logger
	authLimiter *ratelimit.Limiter
	tracer      *trace.Middleware
	now         func() time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(addr string, svc Services, tokens TokenParser, store Pinger, opts Options, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 15 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 30 * time.Second
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = 60 * time.Second
	}

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadTimeout:       opts.ReadTimeout,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      opts.WriteTimeout,
			IdleTimeout:       opts.IdleTimeout,
		},
		svc:    svc,
		tokens: tokens,
		store:  store,
		logger: logger,
		authLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.AuthRateLimitPerMinute,
		}),
		tracer: trace.NewMiddleware(security.ClientIP, logger),
		now:    time.Now,
	}

	// Parse embedded templates at startup.
	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Warn("Failed parsing templates", log.FieldError, err)
	}
	s.templates = t

	s.Handler = s.routes(opts)
	return s
}

func (s *Server) routes(opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(s.tracer.Middleware)
	r.Use(chimw.Recoverer)
	r.Use(security.APIPolicy().Middleware)
	r.Use(security.CORS(security.DefaultCORSConfig(opts.CORSAllowedOrigins)))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("route not found").Write(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		MethodNotAllowedError().Write(w)
	})

	r.With(security.PagePolicy().Middleware).Get("/", s.handleIndex)
	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		r.With(security.AssetPolicy(time.Hour).Middleware).Handle("/static/*", static)
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(s.authLimiter.Middleware(security.ClientIP, s.handleRateLimited))
				r.Post("/register", s.handleRegister)
				r.Post("/login", s.handleLogin)
			})
			r.Group(func(r chi.Router) {
				r.Use(s.authMiddleware)
				r.Get("/profile", s.handleProfile)
				r.Put("/profile", s.handleUpdateProfile)
			})
		})

		r.Route("/categories", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/", s.handleListCategories)
			r.Post("/", s.handleCreateCategory)
			r.Get("/{id}", s.handleGetCategory)
			r.Put("/{id}", s.handleUpdateCategory)
			r.Delete("/{id}", s.handleDeleteCategory)
		})

		r.Route("/bills", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/", s.handleListBills)
			r.Post("/", s.handleCreateBill)
			r.Get("/summary", s.handleBillSummary)
			r.Get("/recent", s.handleRecentBills)
			r.Get("/{id}", s.handleGetBill)
			r.Put("/{id}", s.handleUpdateBill)
			r.Delete("/{id}", s.handleDeleteBill)
		})

		r.Route("/budgets", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/", s.handleListBudgets)
			r.Post("/", s.handleCreateBudget)
			r.Get("/{id}", s.handleGetBudget)
			r.Get("/{id}/status", s.handleBudgetStatus)
			r.Put("/{id}", s.handleUpdateBudget)
			r.Delete("/{id}", s.handleDeleteBudget)
		})
	})

	return r
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, security.ClientIP(r),
		log.FieldPath, r.URL.Path)
	TooManyRequestsError("too many requests, please try again later").Write(w)
}

// Stats is a snapshot of the server's request counters.
type Stats struct {
	Requests       int64 `json:"requests"`
	AvgResponseMs  int64 `json:"avgResponseMs"`
	RateLimited    int64 `json:"rateLimited"`
	TrackedClients int64 `json:"trackedClients"`
}

func (s *Server) Stats() Stats {
	tm := s.tracer.GetMetrics()
	lm := s.authLimiter.GetMetrics()
	return Stats{
		Requests:       tm.TotalRequests,
		AvgResponseMs:  tm.AverageResponseTime / 1000,
		RateLimited:    lm.TotalHits,
		TrackedClients: lm.ClientCount,
	}
}

type healthView struct {
	Status string `json:"status"`
	Stats
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	Success(http.StatusOK, "ok", healthView{Status: "ok", Stats: s.Stats()}).Write(w)
}

// handleReady reports 503 while the store cannot be reached.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.store.Ping(ctx); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			ErrorResponse(http.StatusServiceUnavailable, "store unavailable").Write(w)
			return
		}
	}
	Success(http.StatusOK, "ok", map[string]string{"status": "ready"}).Write(w)
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	// Ensure shutdown logic runs only once
	s.shutdownOnce.Do(func() {
		shutdownErr = s.Server.Shutdown(ctx)
		st := s.Stats()
		s.authLimiter.Stop()
		s.logger.Info("HTTP server stopped",
			"requests", st.Requests,
			"avg_response_ms", st.AvgResponseMs,
			"rate_limited", st.RateLimited)
	})

	return shutdownErr
}
