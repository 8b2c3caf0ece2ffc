package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/jonboulle/clockwork"

	httpadapter "github.com/quakewatch/quake-analytics/internal/adapter/http"
	kafkaadapter "github.com/quakewatch/quake-analytics/internal/adapter/kafka"
	"github.com/quakewatch/quake-analytics/internal/analytics"
	"github.com/quakewatch/quake-analytics/internal/cache"
	"github.com/quakewatch/quake-analytics/internal/config"
	"github.com/quakewatch/quake-analytics/internal/observability"
	"github.com/quakewatch/quake-analytics/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	db, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	records := store.NewPostgres(db, logger)

	// Result cache: Redis when configured, in-process LRU otherwise.
	var resultCache cache.Cache
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error("invalid redis url", "error", err)
			os.Exit(1)
		}
		resultCache = cache.NewRedis(redis.NewClient(opts))
		logger.Info("redis cache enabled", "ttl", cfg.CacheTTL)
	} else {
		resultCache = cache.NewMemory(cfg.CacheMaxEntries, clockwork.NewRealClock())
		logger.Info("in-memory cache enabled", "ttl", cfg.CacheTTL, "max_entries", cfg.CacheMaxEntries)
	}

	svc := analytics.New(records, resultCache, logger, metrics, cfg.CacheTTL)
	srv := httpadapter.NewServer(cfg.HTTPAddr, svc, logger, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Cache invalidation consumer (feature-flagged via KAFKA_BROKERS).
	if cfg.InvalidationEnabled() {
		invalidator := kafkaadapter.NewInvalidator(cfg, resultCache, logger, metrics)
		defer invalidator.Close()
		go func() {
			if err := invalidator.Run(ctx); err != nil {
				logger.Error("cache invalidator error", "error", err)
			}
		}()
	} else {
		logger.Info("cache invalidation consumer disabled")
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown error", "error", err)
	}
	logger.Info("shutdown complete")
}
