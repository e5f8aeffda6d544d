// Package server wires configuration, storage, services and the HTTP API
// into a runnable application with graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/authgate/internal/cryptox"
	"github.com/dmitrijs2005/authgate/internal/logging"
	"github.com/dmitrijs2005/authgate/internal/server/auth"
	"github.com/dmitrijs2005/authgate/internal/server/config"
	"github.com/dmitrijs2005/authgate/internal/server/httpapi"
	"github.com/dmitrijs2005/authgate/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/authgate/internal/server/seed"
	"github.com/dmitrijs2005/authgate/internal/server/services"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      *auth.Hasher
	tokens      *auth.TokenService
	signer      cryptox.PasswordSigner
}

// NewApp opens storage and builds the auth primitives. An empty DSN selects
// the in-memory store.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	tokens, err := auth.NewTokenService(c.SecretKey, auth.TokenTTL)
	if err != nil {
		return nil, err
	}
	hasher, err := auth.NewHasher(c.BcryptCost)
	if err != nil {
		return nil, err
	}

	app := &App{
		config: c,
		logger: logger,
		hasher: hasher,
		tokens: tokens,
		signer: cryptox.NewSigner(c.PasswordSigKey),
	}

	if c.DatabaseDSN == "" {
		logger.Warn(ctx, "no database configured, using in-memory store")
		app.repomanager = repomanager.NewMemoryRepositoryManager()
		return app, nil
	}

	db, err := repomanager.OpenPostgres(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	app.db = db
	app.repomanager = rm

	return app, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// deps builds the HTTP API collaborators over the app's services.
func (app *App) deps() httpapi.Deps {
	deps := httpapi.Deps{
		Users:     services.NewUserService(app.db, app.repomanager, app.hasher, app.tokens, app.signer, app.logger),
		Analytics: services.NewAnalyticsService(app.db, app.repomanager, app.logger),
		Tokens:    app.tokens,
		Logger:    app.logger,
		Metrics:   httpapi.NewMetrics(),
	}
	if app.db != nil {
		deps.DB = app.db
	}
	return deps
}

// seedMemoryStore bootstraps the admin account when running without a
// database and SEED_ADMIN_PASSWORD is set.
func (app *App) seedMemoryStore(ctx context.Context) error {
	if app.db != nil {
		return nil
	}
	pw, ok := os.LookupEnv("SEED_ADMIN_PASSWORD")
	if !ok || pw == "" {
		return nil
	}
	_, err := seed.NewSeeder(nil, app.repomanager, app.hasher, app.signer, app.logger).Run(ctx, pw)
	return err
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	router := httpapi.NewRouter(app.deps())
	s := httpapi.NewServer(app.config.EndpointAddrHTTP, router, app.logger, app.config.ShutdownTimeout)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until SIGINT/SIGTERM/SIGQUIT or ctx cancellation, then closes
// the database.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	if err := app.seedMemoryStore(ctx); err != nil {
		app.logger.Error(ctx, "seed in-memory store", "error", err)
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error(ctx, "close db", "error", err)
		}
	}
	app.logger.Info(ctx, "App stopped")
}
