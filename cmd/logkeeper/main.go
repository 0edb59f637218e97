// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/audithq/logkeeper/internal/config"
	"github.com/audithq/logkeeper/internal/engine"
	"github.com/audithq/logkeeper/internal/handler/api"
	"github.com/audithq/logkeeper/internal/logging"
	"github.com/audithq/logkeeper/internal/middleware"
	"github.com/audithq/logkeeper/internal/scheduler"
	"github.com/audithq/logkeeper/internal/store"
	"github.com/audithq/logkeeper/internal/version"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

func main() {
	// Parse CLI flags
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "logkeeper - Operational Log & Audit Governance Engine\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  LOGKEEPER_DB_PATH                SQLite database path (default: ./data/logkeeper.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  LOGKEEPER_SERVER_PORT            Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  LOGKEEPER_ENV                    Environment: development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  LOGKEEPER_LOG_LEVEL              Log level: debug|info|warn|error (default: info)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  LOGKEEPER_PURGE_SCHEDULE         Purge cron schedule (default: 0 3 * * *)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  LOGKEEPER_PURGE_BUDGET_SECONDS   Purge cycle time budget (default: 300)\n")
	}

	flag.Parse()

	// Handle -h/-help flag
	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	// Handle -v/-version flag
	if *showVersion {
		info := version.Info{Version: appVersion, GitCommit: appGitCommit, BuildTime: appBuildTime}
		_, _ = fmt.Println(info)
		os.Exit(0)
	}

	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env file if present (development)
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Setup logger
	logLevel := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Ensure data directory exists
	dbDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	// Initialize database
	slog.Info("initializing database", "path", cfg.DBPath)
	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func(db *sql.DB) {
		err = db.Close()
		if err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}(db)

	// Run migrations
	slog.Info("running database migrations")
	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database ready")

	// Start the governance engine and its submit queue workers
	eng := engine.New(db, logger, engine.Config{
		QueueSize: cfg.SubmitQueueSize,
		Workers:   cfg.SubmitWorkers,
	})
	eng.Start()
	defer eng.Stop()

	// Upgrade logger so the service's own WARN+ records flow through the
	// engine and are governed like any other event source
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger = slog.New(logging.NewEngineHandler(textHandler, eng, cfg.Environment()))
	slog.SetDefault(logger)
	slog.Info("engine log integration enabled", "min_level", "warn")

	// Start the purge scheduler
	purger := scheduler.NewPurger(eng, logger, scheduler.Config{
		Schedule: cfg.PurgeSchedule,
		Budget:   cfg.PurgeBudget(),
	})
	if err := purger.Start(); err != nil {
		return fmt.Errorf("starting purge scheduler: %w", err)
	}
	defer purger.Stop()
	slog.Info("purge scheduler started", "schedule", cfg.PurgeSchedule, "budget", cfg.PurgeBudget())

	// Setup router
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))

	rateLimiter := middleware.NewRateLimiter(cfg.APIRateRPS, cfg.APIRateBurst)
	r.Use(rateLimiter.Middleware())

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		if err := db.PingContext(req.Context()); err != nil {
			api.WriteError(w, http.StatusServiceUnavailable, "unhealthy", "database unreachable")
			return
		}
		api.WriteSuccess(w, map[string]string{"status": "healthy"}, nil)
	})

	apiHandler := api.NewHandler(eng, purger, cfg.Environment())
	r.Mount("/api/v1", apiHandler.Routes())

	// Create server with appropriate timeouts
	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1MB max header size
	}

	// Start server in goroutine
	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
