// Package cli is the interactive control surface of the sync client. It is
// a thin REPL over the bridge: every command becomes a bridge call and every
// answer is an Envelope, so the terminal UI stays as dumb as any other UI
// process would be.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/akarpenko/notesync/internal/client/api"
	"github.com/akarpenko/notesync/internal/client/bridge"
	"github.com/akarpenko/notesync/internal/client/config"
	"github.com/akarpenko/notesync/internal/client/session"
	"github.com/akarpenko/notesync/internal/client/syncer"
	"github.com/akarpenko/notesync/internal/logging"
)

type App struct {
	config *config.Config
	bridge *bridge.Bridge
	syncer *syncer.Syncer
	store  *session.Store
	reader *bufio.Reader
	out    io.Writer
}

func NewApp(c *config.Config) (*App, error) {

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	store, err := session.Open(c.DBPath)
	if err != nil {
		return nil, err
	}

	apiClient := api.NewClient(c.ServerURL, c.RequestTimeout)
	s := syncer.New(apiClient, store, logger, c.SyncInterval)
	b := bridge.New(s, c)

	app := &App{
		config: c,
		bridge: b,
		syncer: s,
		store:  store,
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
	}
	b.Subscribe(app)

	return app, nil
}

// AuthStateChanged implements bridge.Subscriber.
func (a *App) AuthStateChanged() {
	fmt.Fprintln(a.out, "(auth state changed)")
}

func (a *App) Run(ctx context.Context) {
	defer a.Close()
	a.Root(ctx)
}

func (a *App) Close() {
	a.syncer.Dispose()
	if err := a.store.Close(); err != nil {
		fmt.Fprintf(a.out, "failed to close session store: %v\n", err)
	}
}

func (a *App) isLoggedIn() bool {
	status, ok := a.bridge.Status().Data.(bridge.StatusData)
	return ok && status.State != "disconnected"
}
