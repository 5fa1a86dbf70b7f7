package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/V4T54L/string-analyzer/internal/adapter/metrics"
	"github.com/V4T54L/string-analyzer/internal/adapter/repository/postgres"
	redisrepo "github.com/V4T54L/string-analyzer/internal/adapter/repository/redis"
	"github.com/V4T54L/string-analyzer/internal/pkg/config"
	"github.com/V4T54L/string-analyzer/internal/pkg/logger"
	"github.com/V4T54L/string-analyzer/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)
	log.Info("starting record mirror consumer")

	if cfg.RedisAddr == "" || cfg.PostgresURL == "" {
		log.Error("REDIS_ADDR and POSTGRES_URL are required")
		os.Exit(1)
	}

	// Cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New(prometheus.DefaultRegisterer)

	// Metrics server
	metricsMux := http.NewServeMux()
	metricsMux.Handle("GET /metrics", promhttp.Handler())
	metricsServer := &http.Server{Addr: cfg.ConsumerMetricsAddr, Handler: metricsMux}
	go func() {
		log.Info("starting metrics server", "addr", metricsServer.Addr)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", "error", err)
		}
	}()

	// Connect to Redis
	redisOpts, err := redis.ParseURL(cfg.RedisAddr)
	if err != nil {
		log.Error("failed to parse redis url", "error", err)
		os.Exit(1)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	log.Info("connected to redis")

	// Connect to PostgreSQL
	db, err := sql.Open("postgres", cfg.PostgresURL)
	if err != nil {
		log.Error("failed to open postgres connection", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	log.Info("connected to postgres")

	// Create a unique consumer name for this instance
	consumerName, err := os.Hostname()
	if err != nil {
		log.Warn("could not get hostname for consumer name, using default", "error", err)
		consumerName = "consumer-default"
	}

	// Instantiate repositories
	eventRepo := redisrepo.NewEventRepository(redisClient, log, cfg.EventStream, cfg.EventDLQStream, nil, m)
	if err := eventRepo.EnsureGroup(ctx, cfg.ConsumerGroup); err != nil {
		log.Error("failed to create consumer group", "error", err)
		os.Exit(1)
	}
	recordRepo := postgres.NewRecordRepository(db, log)
	if err := recordRepo.EnsureSchema(ctx); err != nil {
		log.Error("failed to ensure postgres schema", "error", err)
		os.Exit(1)
	}

	syncUseCase := usecase.NewSyncRecordsUseCase(eventRepo, recordRepo, log,
		cfg.ConsumerGroup, consumerName, cfg.SyncBatchSize, cfg.SyncRetryCount, cfg.SyncRetryBackoff, m)

	// Start the consumer processing loop
	ticker := time.NewTicker(cfg.SyncInterval)
	defer ticker.Stop()

	log.Info("consumer started, mirroring records...", "group", cfg.ConsumerGroup, "consumer", consumerName)

Loop:
	for {
		select {
		case <-ticker.C:
			// Drain everything that is ready before waiting for the next tick.
			for {
				n, err := syncUseCase.ProcessBatch(ctx)
				if err != nil {
					if ctx.Err() == nil {
						log.Error("error processing batch", "error", err)
					}
					break
				}
				if n == 0 {
					break
				}
			}
		case <-ctx.Done():
			log.Info("context cancelled, shutting down consumer loop")
			break Loop
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Error("metrics server shutdown failed", "error", err)
	}
	log.Info("consumer shut down gracefully")
}
