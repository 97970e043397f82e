package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"

	"github.com/couchcryptid/ws-deviation-dashboard/internal/adapter/cache"
	httpadapter "github.com/couchcryptid/ws-deviation-dashboard/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/ws-deviation-dashboard/internal/adapter/kafka"
	"github.com/couchcryptid/ws-deviation-dashboard/internal/adapter/warehouse"
	"github.com/couchcryptid/ws-deviation-dashboard/internal/catalog"
	"github.com/couchcryptid/ws-deviation-dashboard/internal/config"
	"github.com/couchcryptid/ws-deviation-dashboard/internal/dashboard"
	"github.com/couchcryptid/ws-deviation-dashboard/internal/observability"
	"github.com/couchcryptid/ws-deviation-dashboard/internal/refresh"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cat, err := catalog.Load(cfg.MetricCatalogPath)
	if err != nil {
		logger.Error("failed to load metric catalog", "error", err)
		os.Exit(1)
	}

	db, err := warehouse.Open(ctx, cfg.WarehouseDriver, cfg.WarehouseDSN)
	if err != nil {
		logger.Error("failed to open warehouse", "driver", cfg.WarehouseDriver, "error", err)
		os.Exit(1)
	}
	defer db.Close() //nolint:errcheck // process exit

	var repo warehouse.Reader = warehouse.NewRepository(db, metrics, cfg.WarehouseQueryTimeout)

	var cached *cache.CachedRepository
	var redisClient *redis.Client
	switch cfg.CacheBackend {
	case config.CacheMemory:
		cached = cache.NewCachedRepository(repo, cache.NewLRU(cfg.CacheSize, cfg.CacheTTL, clockwork.NewRealClock()), metrics)
		logger.Info("query cache enabled", "backend", cfg.CacheBackend, "size", cfg.CacheSize, "ttl", cfg.CacheTTL)
	case config.CacheRedis:
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB, Password: cfg.RedisPassword})
		store := cache.NewRedis(redisClient, cfg.CacheTTL, logger)
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := store.Ping(pingCtx); err != nil {
			logger.Warn("redis unreachable, results will be read from the warehouse until it recovers", "addr", cfg.RedisAddr, "error", err)
		}
		cancel()
		cached = cache.NewCachedRepository(repo, store, metrics)
		logger.Info("query cache enabled", "backend", cfg.CacheBackend, "addr", cfg.RedisAddr, "ttl", cfg.CacheTTL)
	default:
		logger.Info("query cache disabled")
	}
	if cached != nil {
		repo = cached
	}

	svc := dashboard.New(repo, cat, metrics, logger, dashboard.Options{
		ClearSkyThreshold: cfg.ClearSkyThreshold,
		DefaultRangeDays:  cfg.DefaultRangeDays,
	})
	checks := httpadapter.Checks{svc}

	var reader *kafkaadapter.Reader
	if cfg.RefreshEnabled() && cached != nil {
		reader = kafkaadapter.NewReader(cfg, logger)
		listener := refresh.New(reader, cached, logger, metrics, cfg.BatchSize)
		checks = append(checks, listener)

		go func() {
			if err := listener.Run(ctx); err != nil {
				logger.Error("refresh listener error", "error", err)
			}
		}()
	} else {
		logger.Info("refresh listener disabled")
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, svc, checks, metrics, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if reader != nil {
		if err := reader.Close(); err != nil {
			logger.Error("kafka reader close error", "error", err)
		}
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error("redis close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
