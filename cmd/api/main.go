// Package main is the entry point for the trip planner API server.
// Its sole responsibility is wiring dependencies together and starting the server.
// No business logic belongs here.
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

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/redis/go-redis/v9"

	"github.com/pkordes/trip-planner/internal/catalog"
	"github.com/pkordes/trip-planner/internal/config"
	"github.com/pkordes/trip-planner/internal/handler"
	"github.com/pkordes/trip-planner/internal/metrics"
	"github.com/pkordes/trip-planner/internal/middleware"
	"github.com/pkordes/trip-planner/internal/remote"
	"github.com/pkordes/trip-planner/internal/repo"
	"github.com/pkordes/trip-planner/internal/service"
	"github.com/pkordes/trip-planner/internal/suggest"
	"github.com/pkordes/trip-planner/migrations"
)

func main() {
	// --- Config -----------------------------------------------------------
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using environment variables")
	}
	cfg, err := config.Load()
	if err != nil {
		// Use plain stderr before the logger is configured.
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	// --- Logger -----------------------------------------------------------
	logger := newLogger(cfg)
	slog.SetDefault(logger)
	metrics.RegisterDefault()

	// --- Draft store ------------------------------------------------------
	store, closeStore, err := openStore(context.Background(), cfg, logger)
	if err != nil {
		slog.Error("failed to open draft store", "store", cfg.DraftStore, "error", err)
		os.Exit(1)
	}
	defer closeStore()
	slog.Info("draft store ready", "store", cfg.DraftStore)

	// --- Remote backend and catalog ---------------------------------------
	opts := []remote.Option{
		remote.WithToken(cfg.RemoteAPIToken),
		remote.WithHTTPClient(&http.Client{Timeout: cfg.RemoteTimeout}),
	}
	if cfg.RemoteRateLimit > 0 {
		opts = append(opts, remote.WithRateLimit(cfg.RemoteRateLimit))
	}
	client, err := remote.New(cfg.RemoteAPIURL, logger, opts...)
	if err != nil {
		slog.Error("invalid remote API configuration", "error", err)
		os.Exit(1)
	}

	var source suggest.Catalog
	switch cfg.CatalogSource {
	case config.CatalogFile:
		f, err := catalog.Load(cfg.CatalogPath)
		if err != nil {
			slog.Error("failed to load catalog", "path", cfg.CatalogPath, "error", err)
			os.Exit(1)
		}
		source = f
	case config.CatalogRemote:
		source = client
	default:
		source = catalog.Default()
	}
	cached := suggest.NewCachedCatalog(source, cfg.CatalogTTL)
	engine := suggest.NewEngine(
		cached,
		logger,
		suggest.WithLimit(cfg.SuggestionLimit),
	)

	// --- Services ---------------------------------------------------------
	saver := service.NewSaveOrchestrator(client, logger, service.SaveOptions{
		Concurrency: cfg.ReconcileConcurrency,
		Strict:      cfg.StrictReconcile,
	})
	drafts := service.NewDraftService(store, engine, saver, client, logger)

	// --- Router -----------------------------------------------------------
	// Middleware is applied in order: RequestID → RealIP → Logger → Recoverer
	// → CORS → body limit. The logger sits outside Recoverer so panics are
	// logged with their 500 status.
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewSlogLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))
	r.Use(middleware.NewMaxBodySizeHandler(cfg.MaxBodyBytes))

	r.Handle("/metrics", metrics.Handler())
	handler.NewServer(drafts, logger).Routes(r)

	// --- HTTP Server ------------------------------------------------------
	// A save fans out to the remote backend, so the write timeout leaves room
	// for reconciliation retries.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown: wait for OS signal, then give in-flight requests
	// up to 15 seconds to complete before forcefully closing.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	// SIGHUP drops cached catalog reads so an edited catalog is picked up
	// without waiting for CATALOG_TTL.
	reload := make(chan os.Signal, 1)
	signal.Notify(reload, syscall.SIGHUP)
	go func() {
		for range reload {
			cached.Flush()
			slog.Info("catalog cache flushed")
		}
	}()

	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-stop
	slog.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// newLogger builds the JSON logger, or tint's coloured console logger when
// LOG_FORMAT=text.
func newLogger(cfg config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	if cfg.LogFormat == "text" {
		return slog.New(tint.NewHandler(os.Stdout, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		}))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

// openStore connects the configured draft store and returns it with a func
// that releases its connections.
func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (repo.DraftStore, func(), error) {
	switch cfg.DraftStore {
	case config.StorePostgres:
		// New() does not open connections immediately; Ping verifies the DB
		// is reachable before accepting traffic.
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("create pool: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("ping: %w", err)
		}
		sqlDB := stdlib.OpenDBFromPool(pool)
		if err := migrations.Up(ctx, sqlDB, logger); err != nil {
			_ = sqlDB.Close()
			pool.Close()
			return nil, nil, err
		}
		return repo.NewPostgresStore(pool), func() {
			_ = sqlDB.Close()
			pool.Close()
		}, nil

	case config.StoreRedis:
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(opts)
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, nil, fmt.Errorf("ping: %w", err)
		}
		return repo.NewRedisStore(rdb, cfg.DraftTTL), func() { _ = rdb.Close() }, nil

	default:
		return repo.NewMemoryStore(), func() {}, nil
	}
}
