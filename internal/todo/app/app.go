package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aussiebroadwan/tasklist/internal/todo/audit"
	"github.com/aussiebroadwan/tasklist/internal/todo/cache"
	httpapi "github.com/aussiebroadwan/tasklist/internal/todo/http"
	"github.com/aussiebroadwan/tasklist/internal/todo/service"
	"github.com/aussiebroadwan/tasklist/internal/todo/store"
	"github.com/aussiebroadwan/tasklist/internal/todo/store/drivers/sqlite"
	"github.com/aussiebroadwan/tasklist/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the todo service with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db    store.Store
	cache *cache.Redis
	audit *audit.Recorder

	// Services
	tokenService        *service.TokenService
	authService         *service.AuthService
	todoService         *service.ToDoService
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "todo-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}
	if err := app.initCache(); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	if err := app.initAudit(); err != nil {
		_ = app.cache.Close()
		_ = app.db.Close()
		return nil, err
	}

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	// Start the fallback drain worker
	app.housekeepingService.Start()

	app.logger.Info("todo service starting", "port", app.cfg.Port, "version", BuildVersion)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a shutdown signal or server error
	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down todo service...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	// Shutdown the HTTP server
	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	// Last chance for buffered cache writes to reach the backend
	if flushed := app.cache.DrainFallback(ctx); flushed > 0 {
		app.logger.Info("cache fallback drained on shutdown", "flushed", flushed)
	}
	if pending := app.cache.Pending(); pending > 0 {
		app.logger.Warn("buffered cache writes lost on shutdown", "pending", pending)
	}

	if err := app.audit.Close(); err != nil {
		app.logger.Error("error closing audit log", "error", err)
	}
	if err := app.cache.Close(); err != nil {
		app.logger.Error("error closing cache", "error", err)
	}

	// Close database connection
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("todo service stopped")
	return nil
}

// initDatabase initializes the database and applies migrations
func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

// initCache builds the redis cache layer. The connection is lazy, so an
// unreachable backend at boot just means starting in degraded mode.
func (app *Application) initCache() error {
	c, err := cache.NewRedis(cache.Config{
		URL:          app.cfg.RedisURL,
		FallbackSize: app.cfg.CacheFallbackMax,
	}, app.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}
	app.cache = c

	if err := c.Ping(context.Background()); err != nil {
		app.logger.Warn("cache backend unreachable, starting degraded", "error", err)
	}
	return nil
}

// initAudit opens the append-only audit log and its recent-events ring
func (app *Application) initAudit() error {
	rec, err := audit.NewRecorder(
		app.cfg.AuditLogFile,
		app.cache,
		app.logger,
		app.cfg.AuditRecentMax,
	)
	if err != nil {
		return fmt.Errorf("failed to initialize audit log: %w", err)
	}
	app.audit = rec
	return nil
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	app.tokenService = &service.TokenService{
		Secret:    []byte(app.cfg.JWTSecret),
		Algorithm: app.cfg.JWTAlgorithm,
		TTL:       app.cfg.TokenTTL,
	}

	app.authService = &service.AuthService{
		Store:  app.db,
		Tokens: app.tokenService,
	}

	app.todoService = &service.ToDoService{
		Store:    app.db,
		Cache:    app.cache,
		Audit:    app.audit,
		CacheTTL: app.cfg.CacheTTL,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.cache,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(BuildVersion, app.db, app.cache, app.logger)

	// Wire services to router
	router.TokenService = app.tokenService
	router.AuthService = app.authService
	router.TodoService = app.todoService
	router.ApplyRoutes()

	app.router = router

	// Initialize HTTP server
	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
