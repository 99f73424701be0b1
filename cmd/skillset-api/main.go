// main is the entry point of the Student Skillset API.
//
// STARTUP SEQUENCE:
//  1. Load configuration (defaults → optional YAML file → environment)
//  2. Initialise the logger
//  3. Open storage (MongoDB or SQLite, picked by the storage URI scheme)
//  4. Register all HTTP routes
//  5. Start the HTTP server in a separate goroutine
//  6. Block the main goroutine until an OS signal (Ctrl+C / kill) arrives
//  7. Gracefully shut down: finish in-flight requests, close storage, exit
//
// RUNNING THE SERVER:
//
//	go run ./cmd/skillset-api
//
// or against an embedded database, without MongoDB:
//
//	STORAGE_URI=sqlite://students.db PORT=8082 go run ./cmd/skillset-api
package main

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

	"github.com/aanand-mishra/skillset-api/internal/config"
	"github.com/aanand-mishra/skillset-api/internal/http/handlers/health"
	"github.com/aanand-mishra/skillset-api/internal/http/handlers/student"
	"github.com/aanand-mishra/skillset-api/internal/http/middleware"
	"github.com/aanand-mishra/skillset-api/internal/roster"
	"github.com/aanand-mishra/skillset-api/internal/storage"
	"github.com/aanand-mishra/skillset-api/internal/storage/mongodb"
	"github.com/aanand-mishra/skillset-api/internal/storage/sqlite"
)

func main() {
	// ── 1. Load Config ────────────────────────────────────────────────────
	cfg := config.MustLoad()

	// ── 2. Initialise Logger ──────────────────────────────────────────────
	// Installed as the default so handlers can log through package slog.
	log := setupLogger(cfg.Env)
	slog.SetDefault(log)

	log.Info("starting skillset-api",
		slog.String("env", cfg.Env),
		slog.String("version", "1.0.0"),
	)

	// ── 3. Initialise Storage ─────────────────────────────────────────────
	store, err := openStorage(cfg, log)
	if err != nil {
		log.Error("failed to initialise storage", slog.String("error", err.Error()))
		os.Exit(1)
	}

	repo := roster.New(store, cfg.Storage.QueryTimeout)

	// ── 4. Register HTTP Routes ───────────────────────────────────────────
	router := http.NewServeMux()
	student.Register(router, repo)
	router.HandleFunc("GET /healthz", health.New(repo))

	// ── 5. Create the HTTP Server ─────────────────────────────────────────
	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      middleware.Chain(router, middleware.RequestID, middleware.Logger(log)),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	// ── 6. Start Server in a Goroutine ────────────────────────────────────
	go func() {
		log.Info("server started", slog.String("address", cfg.Addr()))

		if err := server.ListenAndServe(); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			log.Error("server encountered an error",
				slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	// ── 7. Wait for Shutdown Signal ───────────────────────────────────────
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)
	<-done

	log.Info("shutdown signal received, stopping server...")

	// ── 8. Graceful Shutdown ──────────────────────────────────────────────
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("failed to shutdown server gracefully",
			slog.String("error", err.Error()))
	}

	if err := store.Close(); err != nil {
		log.Error("failed to close storage", slog.String("error", err.Error()))
	}

	log.Info("server stopped gracefully")
}

// openStorage builds the backend named by cfg.Storage.URI.
//
// SQLite is a local file, so failing to open it is fatal. MongoDB is a
// remote service: when it is unreachable at startup the server still comes
// up, logs a warning, and answers 503 until the database is back. Indexes
// are retried lazily on the first insert.
func openStorage(cfg *config.Config, log *slog.Logger) (storage.Storage, error) {
	backend, err := cfg.Storage.Backend()
	if err != nil {
		return nil, err
	}

	switch backend {
	case config.BackendSQLite:
		db, err := sqlite.New(cfg.Storage.SQLitePath())
		if err != nil {
			return nil, err
		}
		log.Info("storage initialised",
			slog.String("backend", string(backend)),
			slog.String("path", cfg.Storage.SQLitePath()))
		return db, nil

	case config.BackendMongo:
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Storage.ConnectTimeout)
		defer cancel()

		db, err := mongodb.New(ctx, cfg.Storage.URI, cfg.Storage.ConnectTimeout)
		if err != nil {
			return nil, err
		}

		if err := db.Ping(ctx); err != nil {
			log.Warn("mongodb is unreachable; serving anyway, storage operations will fail until it is back",
				slog.String("error", err.Error()))
			return db, nil
		}
		if err := db.EnsureIndexes(ctx); err != nil {
			log.Warn("could not create indexes", slog.String("error", err.Error()))
		}

		log.Info("storage initialised", slog.String("backend", string(backend)))
		return db, nil
	}

	return nil, fmt.Errorf("unsupported storage backend %q", backend)
}

// setupLogger returns a *slog.Logger configured for the given environment.
//
// Development (dev): human-readable text output at DEBUG level.
// Production (prod): machine-readable JSON output at INFO level.
func setupLogger(env string) *slog.Logger {
	switch env {
	case "prod":
		return slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelInfo,
			}),
		)
	case "staging":
		return slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelDebug,
			}),
		)
	default:
		return slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelDebug,
			}),
		)
	}
}
