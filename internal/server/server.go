// Package server assembles the signup HTTP server from configuration.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gabrielmiguelok/agentsignup/client"
	"github.com/gabrielmiguelok/agentsignup/internal/config"
	"github.com/gabrielmiguelok/agentsignup/pkg/accounts"
	"github.com/gabrielmiguelok/agentsignup/pkg/core"
	"github.com/gabrielmiguelok/agentsignup/pkg/handoff"
	"github.com/gabrielmiguelok/agentsignup/pkg/health"
	"github.com/gabrielmiguelok/agentsignup/pkg/limits"
	"github.com/gabrielmiguelok/agentsignup/pkg/logging"
	"github.com/gabrielmiguelok/agentsignup/pkg/metrics"
	"github.com/gabrielmiguelok/agentsignup/pkg/registration"
	"github.com/gabrielmiguelok/agentsignup/pkg/router"
	"github.com/gabrielmiguelok/agentsignup/pkg/transport"
	"github.com/gabrielmiguelok/agentsignup/pkg/views"
)

const (
	// SignupPath serves the wizard.
	SignupPath = "/"

	assetPrefix = "/_live/"

	maxHeapBytes = 1 << 30
)

// Server is the assembled signup service.
type Server struct {
	cfg     config.Config
	logger  logging.Logger
	version string

	metrics *metrics.Metrics
	health  *health.Checker
	router  *router.Router
	breaker *accounts.Breaker
	db      *sql.DB
	http    *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithVersion sets the version reported by health checks.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// WithCreator replaces the configured account store, mostly for tests.
func WithCreator(c registration.AccountCreator) Option {
	return func(s *Server) { s.breaker = s.guard(c) }
}

// New builds the server. In postgres mode it connects and migrates the
// account store before returning.
func New(ctx context.Context, cfg config.Config, logger logging.Logger, opts ...Option) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	s := &Server{
		cfg:     cfg,
		logger:  logger,
		version: "dev",
	}
	s.metrics = metrics.New(metrics.WithOutcomeClassifier(classifyOutcome))

	for _, opt := range opts {
		opt(s)
	}

	resolver, err := limits.NewIPResolver(cfg.Server.TrustedProxies)
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	var ping health.CheckFunc
	if s.breaker == nil {
		store, pingFn, err := s.openStore(ctx)
		if err != nil {
			return nil, err
		}
		s.breaker = s.guard(store)
		ping = pingFn
	}

	issuer := handoff.NewIssuer(cfg.Handoff.SigningKey, cfg.Handoff.TTL, cfg.Handoff.DashboardPath)

	s.router = s.buildRouter(issuer, resolver)
	s.health = s.buildHealth(ping)
	s.router.Handle("/livez", s.health.LivenessHandler())
	s.router.Handle("/healthz", s.health.ReadinessHandler())
	s.router.Handle("/metrics", s.metrics.Handler())

	s.http = &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

func (s *Server) openStore(ctx context.Context) (registration.AccountCreator, health.CheckFunc, error) {
	switch s.cfg.Submission.Mode {
	case config.ModePostgres:
		db, err := accounts.Open(ctx, s.cfg.Database.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open account store: %w", err)
		}
		db.SetMaxOpenConns(s.cfg.Database.MaxOpenConns)
		store := accounts.NewPostgresStore(db)
		if err := store.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("migrate account store: %w", err)
		}
		s.db = db
		s.logger.Info("account store ready", logging.String("mode", config.ModePostgres))
		return store, health.PingCheck(store.Ping), nil

	default:
		s.logger.Info("account store ready",
			logging.String("mode", config.ModeSimulated),
			logging.Duration("delay", s.cfg.Submission.Delay),
		)
		return accounts.NewSimulated(accounts.WithDelay(s.cfg.Submission.Delay)), nil, nil
	}
}

// guard wraps the store in a submission timeout, a span and the breaker.
func (s *Server) guard(store registration.AccountCreator) *accounts.Breaker {
	var next registration.AccountCreator = accounts.NewTraced(store, nil)
	if timeout := s.cfg.Submission.Timeout; timeout > 0 {
		traced := next
		next = registration.AccountCreatorFunc(func(ctx context.Context, form registration.FormState) (registration.Receipt, error) {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			return traced.CreateAccount(ctx, form)
		})
	}

	bc := accounts.DefaultBreakerConfig()
	if s.cfg.Breaker.MaxFailures > 0 {
		bc.MaxFailures = s.cfg.Breaker.MaxFailures
	}
	if s.cfg.Breaker.Cooldown > 0 {
		bc.Cooldown = s.cfg.Breaker.Cooldown
	}
	bc.OnStateChange = func(from, to accounts.BreakerState) {
		s.metrics.BreakerChanged(to.String())
		s.logger.Warn("account store circuit changed",
			logging.String("from", from.String()),
			logging.String("to", to.String()),
		)
	}
	return accounts.NewBreaker(next, bc)
}

func (s *Server) buildRouter(issuer *handoff.Issuer, resolver *limits.IPResolver) *router.Router {
	timeouts := core.DefaultTimeoutConfig()
	if s.cfg.Server.SessionIdle > 0 {
		timeouts.SessionIdle = s.cfg.Server.SessionIdle
	}
	if s.cfg.Server.ShutdownTimeout > 0 {
		timeouts.GracefulShutdown = s.cfg.Server.ShutdownTimeout
	}

	r := router.New(
		router.WithLogger(s.logger),
		router.WithTimeouts(timeouts),
		router.WithOriginPolicy(transport.OriginPolicy{
			AllowedOrigins:  s.cfg.Server.AllowedOrigins,
			InsecureDevMode: s.cfg.Server.DevMode,
		}),
		router.WithSessionObserver(s.metrics),
		router.WithMaxSessions(s.cfg.Server.MaxSessions),
		router.WithSessionsPerIP(s.cfg.Server.SessionsPerIP),
		router.WithIPResolver(resolver),
		router.WithAssets(router.DefaultScriptPath, router.DefaultStylePath),
	)

	r.Use(
		logging.RequestLogger(s.logger),
		router.Recovery(s.logger),
		router.SecureHeaders(),
	)
	if s.cfg.Server.RateLimit > 0 {
		r.Use(router.RateLimit(s.cfg.Server.RateLimit, resolver))
	}

	r.Live(SignupPath, views.Factory(views.Config{
		Creator:       s.breaker,
		Issuer:        issuer,
		DashboardPath: s.cfg.Handoff.DashboardPath,
		Observer:      s.metrics,
		Logger:        s.logger,
	}), router.WithTitle("Join as a Real Estate Agent"))

	r.Handle(assetPrefix+"*", http.StripPrefix(assetPrefix, client.Handler()))
	r.Handle(s.cfg.Handoff.DashboardPath, issuer.DashboardHandler())
	return r
}

func (s *Server) buildHealth(ping health.CheckFunc) *health.Checker {
	hc := health.NewChecker(s.version)
	hc.AddCheck("sessions", health.SessionCapacityCheck(s.router.SocketManager().Count, s.cfg.Server.MaxSessions), 0)
	hc.AddCheck("account_store_circuit", health.CircuitCheck(func() string { return s.breaker.State().String() }), 0)
	hc.AddCheck("memory", health.MemoryCheck(maxHeapBytes), 0)
	if ping != nil {
		hc.AddCriticalCheck("postgres", ping, 2*time.Second)
	}
	return hc
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Metrics returns the server's collectors.
func (s *Server) Metrics() *metrics.Metrics {
	return s.metrics
}

// Run serves until ctx is canceled, then drains live sessions and shuts the
// HTTP server down.
func (s *Server) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("signup server listening",
			logging.String("addr", s.cfg.Server.Addr),
			logging.String("version", s.version),
			logging.Bool("dev_mode", s.cfg.Server.DevMode),
			logging.Int("trusted_proxies", len(s.cfg.Server.TrustedProxies)),
		)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		return s.shutdown()
	})

	return g.Wait()
}

func (s *Server) shutdown() error {
	timeout := s.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.logger.Info("shutting down", logging.Int("sessions", s.router.SocketManager().Count()))

	var errs []error
	if err := s.router.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("drain sessions: %w", err))
	}
	if err := s.http.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	return errors.Join(errs...)
}

func classifyOutcome(err error) string {
	switch {
	case errors.Is(err, accounts.ErrEmailTaken):
		return metrics.OutcomeEmailTaken
	case errors.Is(err, accounts.ErrUnavailable):
		return metrics.OutcomeUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return metrics.OutcomeCanceled
	}
	return metrics.OutcomeFailure
}
