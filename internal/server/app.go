// Package server wires configuration, storage, the account service and the
// HTTP API together and runs them until the process is told to stop.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/orgchart/internal/logging"
	"github.com/dmitrijs2005/orgchart/internal/server/auth"
	"github.com/dmitrijs2005/orgchart/internal/server/config"
	"github.com/dmitrijs2005/orgchart/internal/server/httpapi"
	"github.com/dmitrijs2005/orgchart/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/orgchart/internal/server/services"
	"github.com/gin-gonic/gin"
)

// sqlOpen is a seam for tests.
var sqlOpen = sql.Open

// logOutput is where the server logger writes; tests swap it.
var logOutput io.Writer = os.Stdout

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	server *httpapi.HTTPServer
}

// NewApp prepares storage (running migrations for PostgreSQL) and builds
// the HTTP server. The token policy is created here once and shared by the
// account service and the request gate.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger, err := logging.Setup(c.LogFormat, c.LogLevel, logOutput)
	if err != nil {
		return nil, err
	}
	if c.SecretKey == config.DefaultSecretKey {
		logger.Warn(ctx, "Token signing key is the development default; set ORGCHART_SECRET_KEY")
	}

	db, manager, err := openStorage(ctx, c)
	if err != nil {
		return nil, err
	}

	tokens, err := auth.NewJWTService([]byte(c.SecretKey), c.AccessTokenValidityDuration, auth.WithIssuer(c.TokenIssuer))
	if err != nil {
		closeDB(db)
		return nil, fmt.Errorf("token policy: %w", err)
	}

	accounts := services.NewAccountService(db, manager, auth.NewArgon2idHasher(), tokens, logger)

	gin.SetMode(gin.ReleaseMode)
	srv := httpapi.NewHTTPServer(c.EndpointAddrHTTP, logger, accounts, tokens, httpapi.NewRegistry(),
		httpapi.WithShutdownTimeout(c.ShutdownTimeout))

	return &App{config: c, logger: logger, db: db, server: srv}, nil
}

func openStorage(ctx context.Context, c *config.Config) (*sql.DB, repomanager.RepositoryManager, error) {
	if c.StorageKind == config.StorageMemory {
		return nil, repomanager.NewMemoryRepositoryManager(), nil
	}

	db, err := sqlOpen("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("db init error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		closeDB(db)
		return nil, nil, fmt.Errorf("db ping error: %w", err)
	}

	manager := repomanager.NewPostgresRepositoryManager()
	if err := manager.RunMigrations(ctx, db); err != nil {
		closeDB(db)
		return nil, nil, err
	}
	return db, manager, nil
}

func closeDB(db *sql.DB) {
	if db != nil {
		_ = db.Close()
	}
}

func (app *App) initSignalHandler(ctx context.Context, cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		defer signal.Stop(sigs)
		select {
		case <-sigs:
			cancelFunc()
		case <-ctx.Done():
		}
	}()
}

// Run serves until ctx is cancelled or a termination signal arrives.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "storage", app.config.StorageKind)

	app.initSignalHandler(ctx, cancelFunc)

	var (
		wg     sync.WaitGroup
		runErr error
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.server.Run(ctx); err != nil {
			app.logger.Error(ctx, "HTTP server stopped", "error", err)
			runErr = err
			cancelFunc()
		}
	}()

	wg.Wait()

	closeDB(app.db)
	app.logger.Info(context.WithoutCancel(ctx), "App stopped")
	return runErr
}
