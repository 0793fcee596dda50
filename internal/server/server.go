// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package server wires configuration, storage and services into the HTTP
// server.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"codeberg.org/godrive/accounts/internal/clock"
	"codeberg.org/godrive/accounts/internal/config"
	"codeberg.org/godrive/accounts/internal/database"
	"codeberg.org/godrive/accounts/internal/handlers"
	"codeberg.org/godrive/accounts/internal/i18n"
	"codeberg.org/godrive/accounts/internal/repository"
	"codeberg.org/godrive/accounts/internal/services/approval"
	"codeberg.org/godrive/accounts/internal/services/auth"
	"codeberg.org/godrive/accounts/internal/services/email"
	"codeberg.org/godrive/accounts/internal/services/notify"
	"codeberg.org/godrive/accounts/internal/services/session"
	"codeberg.org/godrive/accounts/internal/services/verification"
	"codeberg.org/godrive/accounts/internal/storage"
	"codeberg.org/godrive/accounts/internal/tokenstore"
	"github.com/labstack/echo/v4"
	"github.com/urfave/cli/v3"
)

// Run starts the server with the given CLI command.
func Run(ctx context.Context, cmd *cli.Command) error {
	cfg := config.NewFromCLI(cmd)
	setupLogger(cfg.Log.Level, cfg.Log.Format)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	slog.Info("starting server",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"base_url", cfg.Server.BaseURL,
		"token_store", cfg.Tokens.Store,
		"smtp", cfg.SMTPEnabled(),
	)

	app, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	if cfg.Admin.Email != "" && cfg.Admin.Password != "" {
		if err := app.auth.EnsureAdmin(ctx, cfg.Admin.Email, cfg.Admin.Password); err != nil {
			return fmt.Errorf("failed to seed admin: %w", err)
		}
	}

	return startWithGracefulShutdown(app.Echo, cfg)
}

// Option overrides a collaborator of the App.
type Option func(*options)

type options struct {
	clock      clock.Clock
	dispatcher notify.Dispatcher
}

// WithClock replaces the system clock.
func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithDispatcher replaces the notification backend chosen from the
// configuration.
func WithDispatcher(d notify.Dispatcher) Option {
	return func(o *options) { o.dispatcher = d }
}

// App is the assembled application.
type App struct {
	Echo *echo.Echo

	repo    *repository.Repository
	files   *storage.Local
	auth    *auth.Service
	async   *notify.Async
	closers []func() error
}

// New opens the database and token store and builds the echo instance with
// all middleware and routes.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	o := options{clock: clock.System{}}
	for _, opt := range opts {
		opt(&o)
	}

	if err := i18n.Init(); err != nil {
		return nil, fmt.Errorf("failed to init i18n: %w", err)
	}

	db, err := database.Open(ctx, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	app := &App{closers: []func() error{db.Close}}

	tokens, closeTokens, err := tokenstore.Open(ctx, cfg.Tokens, db, o.clock)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to open token store: %w", err)
	}
	app.closers = append(app.closers, closeTokens)

	files, err := storage.NewLocal(cfg.Uploads.Dir, o.clock)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.files = files

	dispatcher := o.dispatcher
	if dispatcher == nil {
		if dispatcher, err = newDispatcher(cfg); err != nil {
			app.Close()
			return nil, err
		}
	}
	app.async = notify.NewAsync(dispatcher, slog.Default())

	sessions, err := session.NewManager(&cfg.Session, strings.HasPrefix(cfg.Server.BaseURL, "https://"))
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to init sessions: %w", err)
	}

	app.repo = repository.New(db)
	verifier := verification.NewService(app.repo, tokens, files, app.async, o.clock, verification.Options{
		BaseURL: cfg.Server.BaseURL,
	})
	app.auth = auth.NewService(app.repo, verifier, files, o.clock, 0)

	h := handlers.New(handlers.Deps{
		Repo:         app.repo,
		Verification: verifier,
		Auth:         app.auth,
		Approval:     approval.NewService(app.repo),
		Sessions:     sessions,
		Files:        files,
		Clock:        o.clock,
	})

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handlers.ErrorHandler

	setupMiddleware(e, cfg, sessions, app.repo)
	setupRoutes(e, h)

	app.Echo = e
	return app, nil
}

// newDispatcher sends mail over SMTP when it is configured and logs the
// notifications otherwise.
func newDispatcher(cfg *config.Config) (notify.Dispatcher, error) {
	if !cfg.SMTPEnabled() {
		slog.Warn("smtp_disabled", "hint", "notifications are written to the log")
		return notify.NewLog(slog.Default()), nil
	}
	svc, err := email.NewService(&cfg.SMTP, cfg.App.Name, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to init email: %w", err)
	}
	return svc, nil
}

// Close waits for pending notifications and releases the token store and
// the database.
func (a *App) Close() {
	if a.async != nil {
		a.async.Wait()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			slog.Error("failed to close resource", "error", err)
		}
	}
	a.closers = nil
}

func startWithGracefulShutdown(e *echo.Echo, cfg *config.Config) error {
	errChan := make(chan error, 1)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	go func() {
		slog.Info("Server running", "url", cfg.Server.BaseURL)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// Wait for interrupt signal or error
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		slog.Info("shutting down server")
	case err := <-errChan:
		slog.Error("server error", "error", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
	}

	slog.Info("server stopped")
	return nil
}
