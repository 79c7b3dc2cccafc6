// Package app wires configuration, storage, the request pipeline and the
// audit recorder into a runnable HTTP service.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/neogan74/catalog/internal/account"
	"github.com/neogan74/catalog/internal/audit"
	"github.com/neogan74/catalog/internal/auth"
	"github.com/neogan74/catalog/internal/catalog"
	"github.com/neogan74/catalog/internal/config"
	"github.com/neogan74/catalog/internal/handlers"
	"github.com/neogan74/catalog/internal/logger"
	"github.com/neogan74/catalog/internal/metrics"
	"github.com/neogan74/catalog/internal/middleware"
	"github.com/neogan74/catalog/internal/persistence"
	"github.com/neogan74/catalog/internal/policy"
	"github.com/neogan74/catalog/internal/ratelimit"
	"github.com/neogan74/catalog/internal/telemetry"
)

const shutdownTimeout = 10 * time.Second

// Builder wires application dependencies.
type Builder struct {
	cfg            *config.Config
	version        string
	logger         logger.Logger
	fiberApp       *fiber.App
	backend        *persistence.Backend
	tokens         *auth.TokenService
	policy         *policy.Engine
	recorder       *audit.Recorder
	loginLimiter   *ratelimit.Store
	tracerProvider *telemetry.TracerProvider
	closers        []func()
}

// NewBuilder creates a new application builder.
func NewBuilder(cfg *config.Config, version string) *Builder {
	return &Builder{cfg: cfg, version: version}
}

// WithLogger makes Build use log instead of one derived from configuration.
func (b *Builder) WithLogger(log logger.Logger) *Builder {
	b.logger = log
	return b
}

// Build assembles the application components.
func (b *Builder) Build(ctx context.Context) (*App, error) {
	b.initLogger()
	b.recordStartupMetrics()
	b.initFiber()
	b.initTracing(ctx)
	b.initMiddleware()

	steps := []func(context.Context) error{
		b.initPersistence,
		b.initAccounts,
		b.initPolicy,
		b.initRecorder,
	}
	for _, step := range steps {
		if err := step(ctx); err != nil {
			b.cleanupOnError()
			return nil, err
		}
	}

	b.initRateLimit()
	b.initRoutes()

	return &App{
		cfg:      b.cfg,
		logger:   b.logger,
		fiberApp: b.fiberApp,
		recorder: b.recorder,
		closers:  b.closers,
	}, nil
}

func (b *Builder) initLogger() {
	if b.logger == nil {
		b.logger = logger.NewFromConfig(b.cfg.Log.Level, b.cfg.Log.Format)
	}
	logger.SetDefault(b.logger)
}

func (b *Builder) recordStartupMetrics() {
	metrics.BuildInfo.WithLabelValues(b.version, runtime.Version()).Set(1)

	b.logger.Info("Starting catalog service",
		logger.String("version", b.version),
		logger.String("address", b.cfg.Address()),
		logger.String("log_level", b.cfg.Log.Level),
		logger.String("storage", b.cfg.Storage.Type),
		logger.Bool("audit_enabled", b.cfg.Audit.Enabled),
	)
}

func (b *Builder) initFiber() {
	b.fiberApp = fiber.New(fiber.Config{
		AppName:               "catalog",
		DisableStartupMessage: true,
		ErrorHandler:          middleware.ErrorHandler(b.logger),
	})
}

func (b *Builder) initTracing(ctx context.Context) {
	provider, err := telemetry.InitTracing(ctx, telemetry.TracingConfig{
		Enabled:        b.cfg.Tracing.Enabled,
		Endpoint:       b.cfg.Tracing.Endpoint,
		ServiceName:    b.cfg.Tracing.ServiceName,
		ServiceVersion: b.cfg.Tracing.ServiceVersion,
		Environment:    b.cfg.Tracing.Environment,
		SamplingRatio:  b.cfg.Tracing.SamplingRatio,
		InsecureConn:   b.cfg.Tracing.InsecureConn,
	})
	if err != nil {
		b.logger.Error("Failed to initialize tracing", logger.Error(err))
		return
	}

	if provider.Enabled() {
		b.logger.Info("OpenTelemetry tracing initialized",
			logger.String("endpoint", b.cfg.Tracing.Endpoint),
			logger.String("service_name", b.cfg.Tracing.ServiceName),
		)
		b.addCloser(func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := provider.Shutdown(shutdownCtx); err != nil {
				b.logger.Error("Failed to shutdown tracer provider", logger.Error(err))
			}
		})
	}

	b.tracerProvider = provider
}

func (b *Builder) initMiddleware() {
	b.fiberApp.Use(recover.New())
	b.fiberApp.Use(middleware.RequestLogging(b.logger))
	b.fiberApp.Use(middleware.MetricsMiddleware())

	if b.tracerProvider.Enabled() {
		b.fiberApp.Use(middleware.TracingMiddleware(b.tracerProvider.Tracer()))
	}
}

func (b *Builder) initPersistence(ctx context.Context) error {
	backend, err := persistence.Open(ctx, b.cfg.Storage, b.logger.Named("storage"))
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	b.backend = backend

	b.addCloser(func() {
		if err := backend.Close(); err != nil {
			b.logger.Error("Failed to close storage", logger.Error(err))
		}
	})
	return nil
}

func (b *Builder) initAccounts(ctx context.Context) error {
	b.tokens = auth.NewTokenService(b.cfg.Auth.JWTSecret, b.cfg.Auth.JWTExpiry, b.cfg.Auth.Issuer)

	seed := b.cfg.Auth.Bootstrap
	if seed.Email == "" {
		return nil
	}

	hash, err := auth.HashPassword(seed.Password)
	if err != nil {
		return fmt.Errorf("failed to hash bootstrap password: %w", err)
	}

	acc, err := b.backend.Accounts.Create(ctx, account.Account{
		Email:        seed.Email,
		Role:         account.RoleAdmin,
		Name:         seed.Name,
		PasswordHash: hash,
	})
	switch {
	case errors.Is(err, account.ErrConflict):
		b.logger.Info("Bootstrap administrator already exists", logger.String("email", seed.Email))
	case err != nil:
		return fmt.Errorf("failed to create bootstrap administrator: %w", err)
	default:
		b.logger.Info("Bootstrap administrator created",
			logger.String("id", acc.ID),
			logger.String("email", acc.Email))
	}
	return nil
}

func (b *Builder) initPolicy(context.Context) error {
	rules := policy.DefaultRules()
	if path := b.cfg.Auth.PolicyFile; path != "" {
		loaded, err := policy.LoadFile(path)
		if err != nil {
			return fmt.Errorf("failed to load access policy: %w", err)
		}
		rules = loaded
		b.logger.Info("Access policy loaded", logger.String("file", path))
	}

	b.policy = policy.NewEngine(rules)
	b.logger.Info("Access policy ready", logger.Strings("roles", b.policy.Roles()))
	return nil
}

func (b *Builder) initRecorder(context.Context) error {
	recorder, err := audit.NewRecorder(audit.Config{
		Enabled:       b.cfg.Audit.Enabled,
		BufferSize:    b.cfg.Audit.BufferSize,
		DropPolicy:    audit.DropPolicy(b.cfg.Audit.DropPolicy),
		SubmitTimeout: b.cfg.Audit.SubmitTimeout,
		WriteTimeout:  b.cfg.Audit.WriteTimeout,
	}, b.backend.Audit, b.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize audit recorder: %w", err)
	}
	b.recorder = recorder

	b.addCloser(func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := recorder.Shutdown(shutdownCtx); err != nil {
			b.logger.Error("Failed to drain audit recorder", logger.Error(err))
		}
	})
	return nil
}

func (b *Builder) initRateLimit() {
	if !b.cfg.RateLimit.Enabled {
		return
	}

	b.loginLimiter = ratelimit.NewStore(b.cfg.RateLimit.RequestsPerSec, b.cfg.RateLimit.Burst, b.cfg.RateLimit.CleanupInterval)
	b.addCloser(b.loginLimiter.Stop)

	b.logger.Info("Login rate limiting enabled",
		logger.String("requests_per_sec", fmt.Sprintf("%.2f", b.cfg.RateLimit.RequestsPerSec)),
		logger.Int("burst", b.cfg.RateLimit.Burst),
	)
}

func (b *Builder) initRoutes() {
	accounts := b.backend.Accounts
	authHandler := handlers.NewAuthHandler(auth.NewAuthenticator(b.tokens, accounts))
	resourceHandler := handlers.NewResourceHandler(catalog.NewStore())
	activityHandler := handlers.NewActivityHandler(b.recorder, b.cfg.Audit.DefaultPageSize, b.cfg.Audit.MaxPageSize)
	healthHandler := handlers.NewHealthHandler(b.version, b.backend.Type, b.recorder.Enabled())

	b.fiberApp.Get("/health", healthHandler.Check)
	b.fiberApp.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	login := []fiber.Handler{authHandler.Login}
	if b.loginLimiter != nil {
		login = append([]fiber.Handler{middleware.LoginRateLimit(b.loginLimiter)}, login...)
	}
	b.fiberApp.Post("/api/auth/login", login...)

	publicPaths := b.cfg.Auth.PublicPaths
	api := b.fiberApp.Group("/api",
		middleware.RequireAuthentication(auth.NewVerifier(b.tokens, accounts), publicPaths),
		middleware.RequireAuthorization(b.policy, publicPaths),
	)

	audited := func(kind audit.ActionKind) fiber.Handler {
		return middleware.AuditOperation(b.recorder, kind, middleware.AuditOptions{
			EntityParam:    b.cfg.Audit.EntityParam,
			AgentMaxLength: b.cfg.Audit.AgentMaxLength,
		})
	}

	api.Get("/user/me", authHandler.Me)

	api.Get("/resource/list", audited(audit.ActionView), resourceHandler.List)
	api.Get("/resource/:id", audited(audit.ActionView), resourceHandler.Get)
	api.Post("/resource/add", audited(audit.ActionCreate), resourceHandler.Create)
	api.Put("/resource/update/:id", audited(audit.ActionUpdate), resourceHandler.Update)
	api.Delete("/resource/delete/:id", audited(audit.ActionDelete), resourceHandler.Delete)

	api.Get("/activity/logs", audited(audit.ActionView), activityHandler.List)
}

func (b *Builder) addCloser(closer func()) {
	b.closers = append(b.closers, closer)
}

func (b *Builder) cleanupOnError() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

// App represents a configured application ready to run.
type App struct {
	cfg      *config.Config
	logger   logger.Logger
	fiberApp *fiber.App
	recorder *audit.Recorder
	closers  []func()
}

// Handler exposes the HTTP application, mainly for in-process tests.
func (a *App) Handler() *fiber.App {
	return a.fiberApp
}

// Run serves HTTP until ctx is cancelled or SIGINT/SIGTERM arrives, then
// stops accepting requests and drains queued audit records.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.logger.Info("Server starting", logger.String("address", a.cfg.Address()))

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- a.fiberApp.Listen(a.cfg.Address())
	}()

	select {
	case err := <-serverErr:
		a.Close()
		if err != nil {
			a.logger.Error("Failed to start server", logger.Error(err))
		}
		return err
	case <-ctx.Done():
	}

	a.logger.Info("Shutting down server...")

	if err := a.fiberApp.ShutdownWithTimeout(shutdownTimeout); err != nil {
		a.logger.Error("Server forced to shutdown", logger.Error(err))
	}
	a.Close()

	if err := <-serverErr; err != nil {
		return err
	}

	a.logger.Info("Server exited gracefully")
	_ = a.logger.Sync()
	return nil
}

// Close drains the audit recorder and releases storage. It is safe to call
// more than once.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
