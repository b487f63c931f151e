// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/quikpix/internal/api"
	"github.com/starford/quikpix/internal/gallery"
	"github.com/starford/quikpix/internal/index"
	"github.com/starford/quikpix/internal/mcpserver"
	"github.com/starford/quikpix/internal/sse"
	"github.com/starford/quikpix/internal/storage"
)

// stack is the storage, index and gallery shared by the HTTP and MCP entry points.
type stack struct {
	store storage.Provider
	db    *index.DB
	lib   *gallery.Library
	svc   *gallery.Service
}

func (s *stack) close() {
	s.lib.Close()
	s.db.Close()
}

func buildStack(cfg *Config, logger *slog.Logger) (*stack, error) {
	if err := os.MkdirAll(cfg.Library.Root, 0o755); err != nil {
		return nil, fmt.Errorf("create library dir: %w", err)
	}

	store, err := storage.NewFS(cfg.Library.Root)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	// A failed sync still leaves whatever the index held before.
	if err := index.Sync(db, store, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	lib := gallery.NewLibrary(db, db, cfg.Library.GalleryOptions(), logger)
	sessions := gallery.NewSessions(cfg.Viewer.Tuning(), gallery.WithMaxSessions(cfg.Viewer.MaxSessions))
	svc := gallery.NewService(lib, sessions, db, store)

	return &stack{store: store, db: db, lib: lib, svc: svc}, nil
}

func (a *application) logger(fallback io.Writer) *slog.Logger {
	out := a.logOut
	if out == nil {
		out = fallback
	}
	return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: a.config.App.LogLevel,
	}))
}

func newApplication(opts []Option) (*application, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	// Initialize structured JSON logger.
	logger := app.logger(os.Stdout)
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("library_root", cfg.Library.Root),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	st, err := buildStack(cfg, logger)
	if err != nil {
		return err
	}
	defer st.close()

	// SSE broker; library status changes are pushed as library.<status>.
	broker := sse.NewBroker(cfg.Events.CategoriesThrottle, sse.WithHeartbeat(cfg.Events.Heartbeat))
	defer broker.Close()
	st.lib.OnChange(func(snap gallery.Snapshot) {
		broker.PublishLibraryStatus(string(snap.Status), snap)
	})
	st.lib.Refresh()

	apiRouter := api.NewRouter(st.svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", readyHandler(st.lib))

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start file watcher: push image events and rescan categories.
	g.Go(func() error {
		err := index.Watch(gCtx, st.db, st.store, logger, func(kind, path string) {
			broker.PublishImageEvent(kind, path)
			st.lib.Refresh()
		})
		if err != nil {
			logger.Error("watcher stopped", slog.String("error", err.Error()))
		}
		return nil
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the gallery over MCP on stdin/stdout. Logs go to stderr so
// they never interleave with the protocol stream.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger := app.logger(os.Stderr)
	slog.SetDefault(logger)

	st, err := buildStack(cfg, logger)
	if err != nil {
		return err
	}
	defer st.close()

	waitCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if snap, err := st.svc.RefreshAndWait(waitCtx); err != nil {
		logger.Warn("initial category scan", slog.String("status", string(snap.Status)), slog.String("error", err.Error()))
	}

	logger.Info("MCP server starting", slog.String("library_root", cfg.Library.Root))
	return mcpserver.New(st.svc, st.db, st.store).ServeStdio()
}

// readyHandler reports 200 once the library has produced a category list
// (ready or empty) and 503 otherwise.
func readyHandler(lib *gallery.Library) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		snap := lib.Snapshot()
		code := http.StatusServiceUnavailable
		if snap.Status == gallery.StatusReady || snap.Status == gallery.StatusEmpty {
			code = http.StatusOK
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":     snap.Status,
			"generation": snap.Generation,
		})
	}
}
