// Package server initializes and runs the sync server: it loads the
// configuration, connects the repository backend, applies migrations, and
// starts the HTTP gateway together with the refresh-token sweep loop.
// Shutdown is graceful on SIGINT/SIGTERM/SIGQUIT.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/akarpenko/notesync/internal/logging"
	"github.com/akarpenko/notesync/internal/server/config"
	"github.com/akarpenko/notesync/internal/server/httpapi"
	"github.com/akarpenko/notesync/internal/server/shared/db"
	"github.com/akarpenko/notesync/internal/server/tokens"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	config       *config.Config
	logger       logging.Logger
	repos        db.RepositoryManager
	tokenService *tokens.Service
}

func NewApp(cfg *config.Config) (*App, error) {

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	rm, err := db.NewPostgresRepositoryManager(cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	if err := rm.RunMigrations(context.Background()); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	ts := tokens.NewService(rm, cfg)

	return &App{config: cfg, logger: logger, repos: rm, tokenService: ts}, nil
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

	srv := &http.Server{
		Addr:    app.config.EndpointAddr,
		Handler: httpapi.NewRouter(app.logger, app.tokenService),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(ctx, "http server shutdown error", "error", err.Error())
		}
	}()

	app.logger.Info(ctx, "http server listening", "addr", app.config.EndpointAddr)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// startTokenSweeper periodically removes expired refresh-token rows so the
// table does not accumulate tokens that can never be redeemed again.
func (app *App) startTokenSweeper(ctx context.Context) {

	ticker := time.NewTicker(app.config.TokenSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := app.tokenService.SweepExpired(ctx)
			if err != nil {
				app.logger.Error(ctx, "token sweep error", "error", err.Error())
				continue
			}
			if deleted > 0 {
				app.logger.Info(ctx, "expired refresh tokens removed", "count", deleted)
			}
		}
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "starting server...")

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
		app.startTokenSweeper(ctx)
	}()

	wg.Wait()

	if err := app.repos.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err.Error())
	}

	app.logger.Info(ctx, "server stopped")
}
