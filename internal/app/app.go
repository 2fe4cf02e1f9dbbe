// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/edlume/alertflow/internal/alertqueue"
	"github.com/edlume/alertflow/internal/alertqueue/telegram"
	"github.com/edlume/alertflow/internal/config"
	"github.com/edlume/alertflow/internal/pkg/httputil"
	"github.com/edlume/alertflow/internal/version"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// App represents the application instance.
type App struct {
	config        *config.Config
	logger        *slog.Logger
	queue         *alertqueue.Queue
	server        *http.Server
	metricsServer *http.Server
	statsCancel   context.CancelFunc
}

// New creates a new application instance. The queue's background loops are
// not running until Run is called.
func New(cfg *config.Config) *App {
	logger := initLogger(cfg.Log)

	sender := telegram.NewSender(telegram.Config{
		APIURL:       cfg.Telegram.APIURL,
		BotToken:     cfg.Telegram.BotToken,
		ParseMode:    cfg.Telegram.ParseMode,
		Timeout:      cfg.Telegram.Timeout,
		Destinations: cfg.Telegram.Destinations,
	})

	queue := alertqueue.New(alertqueue.Config{
		DedupWindow:     cfg.Queue.DedupWindow,
		RateLimitWindow: cfg.Queue.RateLimitWindow,
		WorkerInterval:  cfg.Queue.WorkerInterval,
		SweepInterval:   cfg.Queue.SweepInterval,
		BatchSize:       cfg.Queue.BatchSize,
		MaxAttempts:     cfg.Queue.MaxAttempts,
		SendPace:        cfg.Queue.SendPace,
		SentGrace:       cfg.Queue.SentGrace,
	}, sender, alertqueue.NewLogReporter())

	app := &App{
		config: cfg,
		logger: logger,
		queue:  queue,
	}

	app.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:           app.setupRouter(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	// Metrics server on separate port
	metricsRouter := chi.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.Handler())

	app.metricsServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.MetricsPort),
		Handler:           metricsRouter,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return app
}

// Run starts the queue loops and the HTTP servers. It blocks until the main
// server stops.
func (a *App) Run() error {
	queueCtx, cancel := context.WithCancel(context.Background())
	a.statsCancel = cancel

	a.queue.Start(queueCtx)
	go a.collectQueueStats(queueCtx)

	go func() {
		a.logger.Info("starting metrics server",
			"host", a.config.Server.Host,
			"port", a.config.Server.MetricsPort,
		)
		if err := a.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("metrics server error", "error", err)
		}
	}()

	a.logger.Info("starting server",
		"host", a.config.Server.Host,
		"port", a.config.Server.Port,
	)

	if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down servers")

	if a.statsCancel != nil {
		a.statsCancel()
	}

	// Stop the queue first so no tick starts mid-shutdown
	a.queue.Stop()

	// Shutdown both servers in parallel
	var wg sync.WaitGroup
	var errs []error
	var mu sync.Mutex

	wg.Add(2)

	go func() {
		defer wg.Done()
		if err := a.server.Shutdown(ctx); err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("shutdown server: %w", err))
			mu.Unlock()
		}
	}()

	go func() {
		defer wg.Done()
		if err := a.metricsServer.Shutdown(ctx); err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("shutdown metrics server: %w", err))
			mu.Unlock()
		}
	}()

	wg.Wait()

	return errors.Join(errs...)
}

// Router returns the HTTP handler for testing.
func (a *App) Router() http.Handler {
	return a.server.Handler
}

// Queue returns the alert queue instance. Used by in-process producers.
func (a *App) Queue() *alertqueue.Queue {
	return a.queue
}

func (a *App) collectQueueStats(ctx context.Context) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			alertqueue.RecordStats(a.queue.Stats())
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) setupRouter() *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware must be first to measure full request time
	r.Use(httputil.MetricsMiddleware)
	r.Use(middleware.RequestID)
	r.Use(httputil.RequestLoggerMiddleware(a.logger))
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", a.healthzHandler)
	r.Get("/version", a.versionHandler)

	handler := alertqueue.NewHandler(a.queue)
	r.Route("/api/v1", func(r chi.Router) {
		handler.RegisterRoutes(r)
	})

	return r
}

func (a *App) healthzHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *App) versionHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.JSON(w, http.StatusOK, map[string]string{
		"version":    version.Version,
		"git_commit": version.GitCommit,
		"build_date": version.BuildDate,
	})
}

func initLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger
}
