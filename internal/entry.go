// Package internal provides the main application initialization and runtime logic.
package internal

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

	"golang.org/x/sync/errgroup"

	"github.com/starford/itemdesk/internal/app"
	"github.com/starford/itemdesk/internal/backend"
	"github.com/starford/itemdesk/internal/itemstore"
	"github.com/starford/itemdesk/internal/mcpserver"
	"github.com/starford/itemdesk/internal/models"
	"github.com/starford/itemdesk/internal/notify"
	"github.com/starford/itemdesk/internal/render"
	"github.com/starford/itemdesk/internal/session"
	"github.com/starford/itemdesk/internal/sse"
	"github.com/starford/itemdesk/internal/storage"
	"github.com/starford/itemdesk/internal/web"
)

// Version is reported by the MCP server.
const Version = "1.0.0"

var errConfigRequired = errors.New("config is required")

// stack is one session manager, item store and controller over the
// configured client storage.
type stack struct {
	store *storage.FS
	notes *notify.Notifier
	ctl   *app.Controller
}

func (a *application) tokenSource() session.TokenSource {
	if a.config.Auth.TokenMode == TokenModeJWT {
		return session.NewJWTSigner(a.config.Auth.JWTSecret, a.config.Auth.JWTTTL)
	}
	return session.StaticToken(a.config.Auth.StaticToken)
}

func (a *application) build(logger *slog.Logger, notifyOpts []notify.Option, storeOpts []itemstore.StoreOption, appOpts []app.Option) (*stack, error) {
	cfg := a.config

	store, err := storage.NewFS(cfg.Session.Dir)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	notifyOpts = append(notifyOpts, notify.WithLogger(logger))
	if a.sink != nil {
		notifyOpts = append(notifyOpts, notify.WithSink(a.sink))
	}
	notes := notify.New(cfg.Notifications.DismissAfter, notifyOpts...)

	provider, err := session.NewLocalProvider(store, cfg.Auth.DemoUsername, cfg.Auth.DemoPassword)
	if err != nil {
		return nil, fmt.Errorf("init identity provider: %w", err)
	}
	sess := session.NewManager(store, provider, a.tokenSource(), notes, logger, session.WithRegistrar(provider))

	client := itemstore.NewClient(cfg.Remote.BaseURL, cfg.Remote.Timeout, sess)
	items := itemstore.NewStore(client, notes, logger, storeOpts...)

	return &stack{
		store: store,
		notes: notes,
		ctl:   app.New(sess, items, notes, logger, appOpts...),
	}, nil
}

// Run starts the web front-end with the given options.
func Run(ctx context.Context, opts ...Option) error {
	a, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := a.config

	// Initialize structured JSON logger.
	logger := a.logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: cfg.App.LogLevel,
		}))
	}
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("remote_base_url", cfg.Remote.BaseURL),
		slog.String("session_dir", cfg.Session.Dir),
		slog.String("token_mode", cfg.Auth.TokenMode),
		slog.String("log_level", cfg.App.LogLevel.String()))

	loc, err := cfg.Render.Location()
	if err != nil {
		return err
	}
	html, err := render.NewHTML(render.Options{Location: loc})
	if err != nil {
		return err
	}

	// SSE broker.
	broker := sse.NewBroker(500 * time.Millisecond)
	defer broker.Close()

	st, err := a.build(logger,
		[]notify.Option{notify.WithPublisher(broker)},
		[]itemstore.StoreOption{itemstore.WithRefreshHook(func(items []models.Item) {
			broker.PublishRefresh(len(items))
		})},
		[]app.Option{app.WithPublisher(broker)},
	)
	if err != nil {
		return err
	}
	st.ctl.Start(ctx)

	handler := web.NewHandler(st.ctl, html, cfg.Notifications.DismissAfter, logger)
	httpServer := newFrontendServer(cfg.App.HTTP.Address(), web.NewRouter(handler, broker), broker)

	// Follow sign-in and sign-out done by other processes on the same storage.
	watch := func(gCtx context.Context) error {
		err := storage.Watch(gCtx, st.store, logger, func(kind, key string) {
			if key == session.IdentityKey {
				logger.Debug("identity record changed", slog.String("kind", kind))
				st.ctl.SessionChanged(gCtx)
			}
		})
		if err != nil {
			logger.Warn("storage watcher unavailable", slog.String("error", err.Error()))
		}
		return nil
	}

	return serve(ctx, logger, httpServer, watch)
}

// newFrontendServer closes the broker as soon as shutdown begins so open
// event streams end instead of holding Shutdown until its deadline.
func newFrontendServer(addr string, h http.Handler, broker *sse.Broker) *http.Server {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv.RegisterOnShutdown(broker.Close)
	return srv
}

// RunBackend starts the reference item collection.
func RunBackend(ctx context.Context, opts ...Option) error {
	a, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := a.config

	logger := a.logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: cfg.App.LogLevel,
		}))
	}
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.Backend.Address()),
		slog.String("sqlite_path", cfg.Backend.SQLitePath),
		slog.String("auth_mode", cfg.Backend.AuthMode))

	db, err := backend.Open(cfg.Backend.SQLitePath)
	if err != nil {
		return fmt.Errorf("init item table: %w", err)
	}
	defer db.Close()

	httpServer := &http.Server{
		Addr:              cfg.Backend.Address(),
		Handler:           backend.NewRouter(db, cfg.Backend.AuthOptions()),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return serve(ctx, logger, httpServer)
}

// RunMCP serves the item tools over stdio. Logs go to stderr.
func RunMCP(ctx context.Context, opts ...Option) error {
	a, err := newApplication(opts)
	if err != nil {
		return err
	}

	logger := a.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: a.config.App.LogLevel,
		}))
	}
	slog.SetDefault(logger)

	st, err := a.build(logger, nil, nil, nil)
	if err != nil {
		return err
	}
	view := st.ctl.Start(ctx)
	logger.Info("MCP server starting", slog.String("view", view.String()))

	return mcpserver.New(st.ctl, Version).ServeStdio()
}

// Open builds a started controller for one-shot CLI commands.
func Open(ctx context.Context, opts ...Option) (*app.Controller, error) {
	a, err := newApplication(opts)
	if err != nil {
		return nil, err
	}
	logger := a.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelWarn,
		}))
	}

	st, err := a.build(logger, nil, nil, nil)
	if err != nil {
		return nil, err
	}
	st.ctl.Start(ctx)
	return st.ctl, nil
}

// serve runs srv and the background tasks until a signal arrives or one of
// them fails, then shuts the server down gracefully.
func serve(ctx context.Context, logger *slog.Logger, srv *http.Server, tasks ...func(context.Context) error) error {
	logger.Info("Server starting...", slog.String("http_address", srv.Addr))

	ctx, stop := context.WithCancel(ctx)
	defer stop()
	g, gCtx := errgroup.WithContext(ctx)

	for _, task := range tasks {
		g.Go(func() error { return task(gCtx) })
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		stop()

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}
