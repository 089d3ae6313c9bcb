// Package app provides the application lifecycle for the pagemill service:
// dependency wiring, startup, and graceful shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"

	"github.com/pagemill/pagemill/internal/acquire"
	"github.com/pagemill/pagemill/internal/api"
	"github.com/pagemill/pagemill/internal/assemble"
	"github.com/pagemill/pagemill/internal/config"
	"github.com/pagemill/pagemill/internal/database"
	"github.com/pagemill/pagemill/internal/lifecycle"
	"github.com/pagemill/pagemill/internal/logger"
	"github.com/pagemill/pagemill/internal/metrics"
	"github.com/pagemill/pagemill/internal/publish"
	"github.com/pagemill/pagemill/internal/redis"
	"github.com/pagemill/pagemill/internal/sections"
)

const (
	// DefaultShutdownTimeout is the timeout for graceful shutdown
	DefaultShutdownTimeout = 30 * time.Second

	// runLeaseTTL bounds an acquisition run lease; it comfortably exceeds
	// the worst-case run duration of five phase timeouts.
	runLeaseTTL = 5 * time.Minute

	// reservationTTL bounds a publish address reservation. Reservations
	// normally release when the transaction settles.
	reservationTTL = 30 * time.Second
)

// App holds the service with all its dependencies.
type App struct {
	config      *config.Config
	logger      logger.Logger
	db          *sqlx.DB
	redisClient *goredis.Client
	httpServer  *http.Server
	version     string
}

// Options contains configuration for creating a new App
type Options struct {
	ConfigPath string
	Version    string
}

// New creates an App with all dependencies initialized.
func New(opts Options) (*App, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	appLogger, err := logger.NewLogger(cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	appLogger = appLogger.With(
		logger.String("service", "pagemill"),
		logger.String("version", opts.Version),
	)

	db, err := database.NewPostgresConnection(cfg.Database)
	if err != nil {
		_ = appLogger.Sync()
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	redisClient, err := redis.NewClient(cfg.Redis)
	if err != nil {
		db.Close()
		_ = appLogger.Sync()
		return nil, err
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	repo := database.NewRepository(db)
	sectionStore := sections.NewStore(repo, m, appLogger)
	assembler := assemble.New(repo, sectionStore,
		assemble.Policy{StrictRecommended: cfg.Assemble.StrictRecommended}, m, appLogger)
	items := lifecycle.NewService(repo, appLogger)
	reservation := publish.NewAddressReservation(redisClient, reservationTTL, appLogger)
	resolver := publish.NewResolver(repo, repo, reservation, m, appLogger)

	fetcher := acquire.NewHTTPFetcher(cfg.Acquire.FetchTimeout, cfg.Acquire.UserAgent)
	orchestrator := acquire.NewOrchestrator(repo, fetcher, m, appLogger, acquire.Config{
		PhaseTimeout:   cfg.Acquire.PhaseTimeout,
		ProgressBuffer: cfg.Acquire.ProgressBuffer,
	})
	guard := acquire.NewRunGuard(redisClient, runLeaseTTL, appLogger)

	router := api.NewRouter(cfg, appLogger, api.Deps{
		Contexts:     repo,
		Domains:      repo,
		Items:        items,
		Sections:     sectionStore,
		Assembler:    assembler,
		Resolver:     resolver,
		Orchestrator: orchestrator,
		Guard:        guard,
		PingDB:       repo.Ping,
		PingRedis: func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		},
		Registry: registry,
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router.SetupRoutes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return &App{
		config:      cfg,
		logger:      appLogger,
		db:          db,
		redisClient: redisClient,
		httpServer:  httpServer,
		version:     opts.Version,
	}, nil
}

// Run starts the HTTP server and blocks until shutdown.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		a.logger.Info("Starting HTTP server",
			logger.String("address", a.config.Server.Address),
			logger.Bool("debug", a.config.Debug),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		a.logger.Info("Shutting down gracefully", logger.String("signal", sig.String()))
	case <-ctx.Done():
		a.logger.Info("Shutting down: context cancelled")
	case err := <-serverErr:
		a.logger.Error("Server error", logger.Error(err))
		return err
	}

	return a.shutdownHTTPServer()
}

// shutdownHTTPServer gracefully drains in-flight requests, including
// open progress streams.
func (a *App) shutdownHTTPServer() error {
	ctx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Shutdown(ctx); err != nil {
		a.logger.Error("Server shutdown error", logger.Error(err))
		return err
	}

	a.logger.Info("HTTP server stopped")
	return nil
}

// Close cleans up resources
func (a *App) Close() error {
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warn("Failed to close Redis client", logger.Error(err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("Failed to close database", logger.Error(err))
		}
	}
	return a.logger.Sync()
}

// Logger returns the application logger
func (a *App) Logger() logger.Logger {
	return a.logger
}
