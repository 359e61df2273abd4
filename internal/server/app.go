// Package server initializes and runs the SessionKeeper server.
// It wires the database, the session lifecycle engine and the HTTP
// endpoint, starts the background token sweep, and handles graceful
// shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/dmitrijs2005/sessionkeeper/internal/logging"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/auth"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/config"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/httpapi"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/password"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/services"
	"github.com/dmitrijs2005/sessionkeeper/internal/timex"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	auth   *services.AuthService
	users  *services.UserService
	tokens *auth.TokenService
}

func NewApp(c *config.Config) (*App, error) {

	sl := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(sl)

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm, err := repomanager.NewPostgresRepositoryManager()
	if err != nil {
		return nil, fmt.Errorf("repository init error: %w", err)
	}

	if err := rm.RunMigrations(context.Background(), db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	refreshTTL := time.Duration(c.RefreshTokenValidityDays) * 24 * time.Hour
	tokens := auth.NewTokenService(c.AccessTokenSecret, c.RefreshTokenSecret,
		c.AccessTokenValidityDuration, refreshTTL)
	hasher := password.NewBcryptHasher(c.BcryptCost)
	clock := &timex.SystemClock{}

	as := services.NewAuthService(db, rm, tokens, hasher, clock, c.RefreshTokenValidityDays)
	us := services.NewUserService(db, rm, hasher)

	return &App{config: c, logger: logger, db: db, auth: as, users: us, tokens: tokens}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {

	f := fiber.New(fiber.Config{DisableStartupMessage: true})

	ah := httpapi.NewAuthHandler(app.auth, app.logger)
	uh := httpapi.NewUserHandler(app.users, app.logger)
	httpapi.RegisterRoutes(f, ah, uh, app.tokens)

	go func() {
		<-ctx.Done()
		if err := f.ShutdownWithTimeout(5 * time.Second); err != nil {
			app.logger.Error(ctx, "http shutdown error", "err", err.Error())
		}
	}()

	app.logger.Info(ctx, "http endpoint listening", "addr", app.config.EndpointAddrHTTP)
	if err := f.Listen(app.config.EndpointAddrHTTP); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// startSweeper periodically reclaims expired and revoked refresh
// tokens. A failed sweep is logged and retried on the next tick.
func (app *App) startSweeper(ctx context.Context) {
	ticker := time.NewTicker(app.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := app.auth.SweepRefreshTokens(ctx)
			if err != nil {
				app.logger.Error(ctx, "token sweep failed", "err", err.Error())
				continue
			}
			app.logger.Info(ctx, "token sweep completed", "reclaimed", n)
		}
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startSweeper(ctx)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "err", err.Error())
	}
}
