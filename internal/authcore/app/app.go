package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/edgekit/authcore/internal/authcore/http"
	"github.com/edgekit/authcore/internal/authcore/service"
	"github.com/edgekit/authcore/internal/authcore/store"
	"github.com/edgekit/authcore/internal/authcore/store/drivers/sqlite"
	"github.com/edgekit/authcore/pkg/jwtx"
	"github.com/edgekit/authcore/pkg/pwdhash"
	"github.com/edgekit/authcore/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application encapsulates the authentication core with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db store.Store

	accountService *service.AccountService
	sessionService *service.SessionService
	tokenService   *service.TokenService
	eventService   *service.EventService
	agentService   *service.AgentService
	maintenance    *service.MaintenanceService

	server *http.Server
	router *httpapi.Router
}

// New creates an Application with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "authcore",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, errors.New("AUTH_ACCESS_SECRET and AUTH_REFRESH_SECRET are required")
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	if err := app.initServices(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initHTTP()
	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.maintenance.Start()

	app.logger.Info("authcore starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
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

// Shutdown gracefully stops the HTTP server, the background workers and the
// store. The event dispatcher is drained last-but-one so in-flight audit
// records still reach the log.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down authcore...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.maintenance.Stop()
	app.eventService.Close()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("authcore stopped")
	return nil
}

func (app *Application) initDatabase() error {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(dsn)
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

func (app *Application) initServices() error {
	hasher, err := pwdhash.New(pwdhash.Config{
		Iterations: app.cfg.PBKDF2Iterations,
		Bits:       app.cfg.PBKDF2Bits,
	})
	if err != nil {
		return fmt.Errorf("failed to configure password hasher: %w", err)
	}

	codec, err := jwtx.NewCodec(
		[]byte(app.cfg.AccessSecret),
		[]byte(app.cfg.RefreshSecret),
		app.cfg.AccessTTL,
		app.cfg.RefreshTTL,
	)
	if err != nil {
		return fmt.Errorf("failed to configure token codec: %w", err)
	}

	app.eventService = service.NewEventService(app.db, app.logger, app.cfg.Challenge, app.cfg.EventBufferSize)

	app.accountService = &service.AccountService{
		Store:  app.db,
		Hasher: hasher,
	}
	app.sessionService = &service.SessionService{
		Store:       app.db,
		Events:      app.eventService,
		TTL:         app.cfg.SessionTTL,
		MaxSessions: app.cfg.MaxSessions,
	}
	app.tokenService = &service.TokenService{
		Codec:    codec,
		Sessions: app.sessionService,
	}
	app.agentService = &service.AgentService{
		Store:  app.db,
		Events: app.eventService,
	}

	app.maintenance = service.NewMaintenanceService(
		app.db,
		app.logger,
		app.cfg.MaintenanceInterval,
		app.cfg.SessionRetention,
	)

	return nil
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(app.db, app.logger)
	router.Accounts = app.accountService
	router.SessionsSvc = app.sessionService
	router.Tokens = app.tokenService
	router.Events = app.eventService
	router.Agents = app.agentService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
