package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"finpilot/internal/log"
	"finpilot/internal/middleware/identity"
	"finpilot/internal/middleware/ratelimit"
	"finpilot/internal/middleware/security"
	"finpilot/internal/middleware/trace"
	"finpilot/internal/services"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services are the application services the handlers call into.
type Services struct {
	Transactions *services.TransactionService
	Goals        *services.GoalService
	Users        *services.UserService
	Dashboard    *services.DashboardService
	Tokens       identity.Verifier
	Health       Pinger
}

// Config holds the server settings taken from the environment.
type Config struct {
	Addr               string
	DefaultUserID      string
	CORSOrigins        []string
	RateLimitPerMinute int
	Logger             *log.Logger
}

type appMetrics struct {
	uptime              time.Time
	transactionsCreated int64
}

type Server struct {
	http.Server
	svc           Services
	defaultUserID string
	logger        *log.Logger
	now           func() time.Time

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	appMetrics       appMetrics

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(cfg Config, svc Services) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	defaultUser := cfg.DefaultUserID
	if defaultUser == "" {
		defaultUser = "demo"
	}

	limiterConfig := ratelimit.DefaultConfig()
	if cfg.RateLimitPerMinute > 0 {
		limiterConfig.RequestsPerMinute = cfg.RateLimitPerMinute
	}

	s := &Server{
		svc:              svc,
		defaultUserID:    defaultUser,
		logger:           logger,
		now:              time.Now,
		rateLimiter:      ratelimit.NewLimiter(limiterConfig),
		securityDetector: security.NewDetector(),
		appMetrics:       appMetrics{uptime: time.Now()},
	}
	s.traceMiddleware = trace.NewMiddleware(logger, s.securityDetector.ExtractClientIP)

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           s.middleware(s.routes(), cfg.CORSOrigins),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusNotFound, "Route not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)
	r.HandleFunc("/metrics", s.handleMetrics).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()

	tx := api.PathPrefix("/transactions").Subrouter()
	tx.HandleFunc("", s.handleCreateTransaction).Methods(http.MethodPost)
	tx.HandleFunc("", s.handleListTransactions).Methods(http.MethodGet)
	tx.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
	tx.HandleFunc("/summary", s.handleSummary).Methods(http.MethodGet)
	tx.HandleFunc("/buckets", s.handleBuckets).Methods(http.MethodGet)
	tx.HandleFunc("/trace", s.handleTrace).Methods(http.MethodGet)
	tx.HandleFunc("/export.xml", s.handleExportLedger).Methods(http.MethodGet)

	api.HandleFunc("/goals", s.handleGetGoal).Methods(http.MethodGet)
	api.HandleFunc("/goals", s.handleUpsertGoal).Methods(http.MethodPost)
	api.HandleFunc("/goals/progress", s.handleGoalProgress).Methods(http.MethodGet)

	api.HandleFunc("/dashboard", s.handleDashboard).Methods(http.MethodGet)

	users := api.PathPrefix("/users").Subrouter()
	users.HandleFunc("/register", s.handleRegister).Methods(http.MethodPost)
	users.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)
	users.HandleFunc("/forgot", s.handleForgot).Methods(http.MethodPost)
	users.HandleFunc("/all", s.handleListUsers).Methods(http.MethodGet)

	return r
}

// middleware wraps h outermost first: tracing, panic recovery, headers,
// scanner detection, CORS, rate limiting, then bearer authentication.
func (s *Server) middleware(h http.Handler, origins []string) http.Handler {
	onInvalidToken := func(w http.ResponseWriter, r *http.Request, err error) {
		writeMessage(w, http.StatusUnauthorized, "Invalid or expired token")
	}
	onLimit := func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
	}
	onPanic := func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusInternalServerError, genericServerError)
	}

	if s.svc.Tokens != nil {
		h = identity.Middleware(s.svc.Tokens, onInvalidToken)(h)
	}
	h = s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, onLimit)(h)
	h = security.CORS(origins)(h)
	h = s.securityDetector.Middleware(s.logger.WithComponent(log.ComponentSecurity))(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = trace.Recover(onPanic)(h)
	return s.traceMiddleware.Middleware(h)
}

// owner resolves whose data a request touches: the authenticated user,
// then an explicit userId, then the configured default.
func (s *Server) owner(r *http.Request, explicit string) string {
	if id, ok := identity.UserID(r.Context()); ok {
		return id
	}
	if explicit = sanitizeInput(explicit); explicit != "" {
		return explicit
	}
	return s.defaultUserID
}

// Shutdown stops the rate limiter and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
