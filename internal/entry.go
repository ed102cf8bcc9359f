// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/algiz/internal/api"
	"github.com/starford/algiz/internal/apperr"
	"github.com/starford/algiz/internal/baseline"
	"github.com/starford/algiz/internal/eventlog"
	"github.com/starford/algiz/internal/history"
	"github.com/starford/algiz/internal/mcpserver"
	"github.com/starford/algiz/internal/models"
	"github.com/starford/algiz/internal/monitor"
	"github.com/starford/algiz/internal/sse"
	"github.com/starford/algiz/internal/watch"
)

const (
	sseReplay       = 16
	shutdownTimeout = 10 * time.Second
)

// runtime holds the components shared by every command.
type runtime struct {
	cfg     *Config
	logger  *slog.Logger
	events  *eventlog.Logger
	store   *baseline.FileStore
	db      *history.DB
	closers []io.Closer
}

func (rt *runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i].Close(); err != nil {
			rt.logger.Warn("close failed", slog.String("error", err.Error()))
		}
	}
}

func newApplication(opts []Option) (*application, error) {
	app := &application{
		digest:  baseline.FileDigester,
		console: os.Stdout,
		version: "dev",
	}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// setup builds the logger, event log and stores. Extra sinks receive every
// event after the history database.
func (a *application) setup(sinks ...eventlog.Sink) (*runtime, error) {
	cfg := a.config

	logger := slog.New(slog.NewJSONHandler(a.console, &slog.HandlerOptions{
		Level:       cfg.App.LogLevel,
		ReplaceAttr: eventlog.ReplaceLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.Any("paths", cfg.Monitor.Paths),
		slog.Int("interval_seconds", cfg.Monitor.IntervalSeconds),
		slog.String("baseline_path", cfg.Baseline.Path),
		slog.String("event_log_path", cfg.EventLog.Path),
		slog.String("history_path", cfg.History.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	rt := &runtime{
		cfg:    cfg,
		logger: logger,
		store:  baseline.NewFileStore(cfg.Baseline.Path),
	}

	var evOpts []eventlog.Option
	if cfg.EventLog.Console {
		evOpts = append(evOpts, eventlog.WithConsole(logger))
	}

	if cfg.History.Enabled() {
		if err := os.MkdirAll(filepath.Dir(cfg.History.Path), 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
		db, err := history.Open(cfg.History.Path)
		if err != nil {
			return nil, fmt.Errorf("init history: %w", err)
		}
		rt.db = db
		rt.closers = append(rt.closers, db)
		if n, err := db.Count(); err == nil {
			logger.Info("Event history opened", slog.String("path", cfg.History.Path), slog.Int("events", n))
		}
		evOpts = append(evOpts, eventlog.WithSink(db))
	}
	for _, s := range sinks {
		evOpts = append(evOpts, eventlog.WithSink(s))
	}

	file := eventlog.OpenFile(cfg.EventLog.File())
	rt.closers = append(rt.closers, file)
	rt.events = eventlog.New(file, evOpts...)

	return rt, nil
}

// Run establishes the baseline and monitors it until an intrusion is
// detected, nothing could be baselined, or the operator stops it.
// It returns apperr.ErrIntrusionDetected, apperr.ErrNothingToMonitor or nil.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	var broker *sse.Broker
	var sinks []eventlog.Sink
	if cfg.App.HTTP.Enabled {
		broker = sse.NewBroker(sseReplay)
		defer broker.Close()
		sinks = append(sinks, broker)
	}

	rt, err := app.setup(sinks...)
	if err != nil {
		return err
	}
	defer rt.Close()
	logger := rt.logger

	mgr := baseline.NewManager(cfg.Monitor.Paths, rt.store, app.digest, rt.events)
	b := mgr.Establish(ctx)

	trigger := make(chan struct{}, 1)
	var checkerOpts []monitor.Option
	if cfg.Monitor.Watch {
		checkerOpts = append(checkerOpts, monitor.WithTrigger(trigger))
	}
	checker := monitor.New(app.digest, rt.events, cfg.Monitor.Interval(), checkerOpts...)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gCtx := errgroup.WithContext(runCtx)

	// Monitor loop. Any exit, clean or not, stops the other goroutines.
	g.Go(func() error {
		defer cancel()
		return checker.Run(gCtx, b)
	})

	if cfg.Monitor.Watch {
		g.Go(func() error {
			if err := watch.Watch(gCtx, b.Paths(), watch.DefaultDebounce, logger, trigger); err != nil {
				logger.Warn("watcher disabled", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	if cfg.App.HTTP.Enabled {
		httpServer := &http.Server{
			Addr:    cfg.App.HTTP.Address(),
			Handler: newHTTPHandler(cfg, checker, b, rt.db, broker),
		}

		g.Go(func() error {
			logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("HTTP server error: %w", err)
			}
			return nil
		})

		g.Go(func() error {
			<-gCtx.Done()
			// Streams never end on their own; Shutdown would wait for them.
			logger.Info("Closing event streams", slog.Int("clients", broker.ClientCount()))
			broker.Close()
			shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancelShutdown()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
			cancel()
		case <-gCtx.Done():
		}
		return nil
	})

	err = g.Wait()
	switch {
	case err == nil:
		logger.Info("Monitor stopped")
	case errors.Is(err, apperr.ErrIntrusionDetected):
		logger.Warn("Monitor halted", slog.String("reason", err.Error()))
	default:
		logger.Error("Application error", slog.String("error", err.Error()))
	}
	return err
}

func newHTTPHandler(cfg *Config, checker *monitor.Checker, b baseline.Baseline, db *history.DB, broker *sse.Broker) http.Handler {
	var source api.EventSource
	if db != nil {
		source = db
	}
	var stream http.Handler
	if broker != nil {
		stream = broker
	}
	h := api.NewHandler(checker, b, source)
	apiRouter := api.NewRouter(h, cfg.App.Auth.AuthEnabled(), cfg.App.Auth.Token, stream)

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
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if checker.Status().State != models.StateMonitoring {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"not monitoring"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)
	return r
}

// Check establishes the baseline and runs exactly one check cycle. The
// returned error is apperr.ErrIntrusionDetected when a file was modified or
// is missing.
func Check(ctx context.Context, opts ...Option) (monitor.Report, error) {
	app, err := newApplication(opts)
	if err != nil {
		return monitor.Report{}, err
	}
	rt, err := app.setup()
	if err != nil {
		return monitor.Report{}, err
	}
	defer rt.Close()

	mgr := baseline.NewManager(app.config.Monitor.Paths, rt.store, app.digest, rt.events)
	b := mgr.Establish(ctx)
	if b.Len() == 0 {
		rt.events.Event(models.LevelError, "No files were successfully baselined. Exiting monitor.")
		return monitor.Report{}, apperr.ErrNothingToMonitor
	}

	checker := monitor.New(app.digest, rt.events, app.config.Monitor.Interval())
	report := checker.Check(b)
	if report.Intrusion {
		return report, apperr.ErrIntrusionDetected
	}
	return report, nil
}

// ListEvents writes up to limit recent events from the history database to
// w, newest first, one event log line per event.
func ListEvents(_ context.Context, w io.Writer, limit int, level models.Level, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	if !app.config.History.Enabled() {
		return fmt.Errorf("event history is disabled")
	}

	db, err := history.Open(app.config.History.Path)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer db.Close()

	events, err := db.Recent(limit, level)
	if err != nil {
		return fmt.Errorf("list events: %w", err)
	}
	for _, ev := range events {
		if _, err := io.WriteString(w, eventlog.FormatLine(ev)); err != nil {
			return err
		}
	}
	return nil
}

// queryChecker returns a checker for on-demand queries. Its findings go to
// the console only: the event log and history record what the monitor did.
func queryChecker(app *application, rt *runtime) *monitor.Checker {
	events := eventlog.New(nil, eventlog.WithConsole(rt.logger))
	return monitor.New(app.digest, events, app.config.Monitor.Interval())
}

// ServeMCP serves the integrity tools over stdio. Structured logs go to
// stderr since stdout carries the protocol.
func ServeMCP(_ context.Context, opts ...Option) error {
	opts = append(opts, WithConsole(os.Stderr))
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	rt, err := app.setup()
	if err != nil {
		return err
	}
	defer rt.Close()

	srv := mcpserver.New(rt.store, queryChecker(app, rt), rt.db, app.version)

	rt.logger.Info("Serving MCP on stdio")
	return srv.ServeStdio()
}
