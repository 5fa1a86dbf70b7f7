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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/V4T54L/string-analyzer/internal/adapter/api"
	"github.com/V4T54L/string-analyzer/internal/adapter/api/handler"
	"github.com/V4T54L/string-analyzer/internal/adapter/metrics"
	"github.com/V4T54L/string-analyzer/internal/adapter/repository/memory"
	redisrepo "github.com/V4T54L/string-analyzer/internal/adapter/repository/redis"
	"github.com/V4T54L/string-analyzer/internal/adapter/repository/snapshot"
	"github.com/V4T54L/string-analyzer/internal/adapter/repository/wal"
	"github.com/V4T54L/string-analyzer/internal/domain"
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

	logger := logger.New(cfg.LogLevel)
	slog.SetDefault(logger)

	m := metrics.New(prometheus.DefaultRegisterer)

	// --- Graceful Shutdown Context ---
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Snapshot persistence ---
	snapshotRepo, err := snapshot.NewFileRepository(cfg.SnapshotPath, logger)
	if err != nil {
		logger.Error("failed to initialize snapshot repository", "error", err)
		os.Exit(1)
	}

	g, gctx := errgroup.WithContext(ctx)

	// --- SSE Broker ---
	sseBroker := handler.NewSSEBroker(gctx, logger, cfg.SSEHeartbeatInterval)
	publishers := []domain.EventPublisher{sseBroker}

	// --- Optional record event stream ---
	var streams handler.StreamInspector
	if cfg.RedisAddr != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisAddr)
		if err != nil {
			logger.Error("failed to parse redis url", "error", err)
			os.Exit(1)
		}
		redisClient := redis.NewClient(redisOpts)
		defer redisClient.Close()

		walRepo, err := wal.NewWALRepository(cfg.WALPath, cfg.WALSegmentSize, cfg.WALMaxDiskSize, logger)
		if err != nil {
			logger.Error("failed to initialize WAL repository", "error", err)
			os.Exit(1)
		}
		defer walRepo.Close()

		eventRepo := redisrepo.NewEventRepository(redisClient, logger, cfg.EventStream, cfg.EventDLQStream, walRepo, m)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn("could not connect to redis, events will be buffered in the WAL", "error", err)
			eventRepo.CheckHealth(ctx)
		} else if err := eventRepo.ReplayWAL(ctx); err != nil {
			logger.Error("failed to replay WAL on startup", "error", err)
		}
		publishers = append(publishers, eventRepo)

		// Start Redis health check and WAL replay loop
		g.Go(func() error {
			eventRepo.StartHealthCheck(gctx, cfg.HealthCheckInterval)
			return nil
		})

		streams = usecase.NewAdminStreamUseCase(redisrepo.NewAdminRepository(redisClient, logger), cfg.EventStream)
	} else {
		logger.Info("REDIS_ADDR not set, record event stream disabled")
	}

	// --- Service ---
	svc := usecase.NewStringService(memory.NewRecordStore(), nil, logger,
		usecase.WithSnapshots(snapshotRepo),
		usecase.WithPublishers(publishers...),
		usecase.WithMetrics(m),
	)
	svc.Restore(ctx)

	// --- Servers ---
	apiServer := &http.Server{
		Addr:         cfg.HTTPServerAddr,
		Handler:      api.NewRouter(cfg, logger, m, svc, sseBroker),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 0, // SSE responses stay open
		IdleTimeout:  15 * time.Second,
	}
	adminServer := &http.Server{
		Addr:         cfg.AdminServerAddr,
		Handler:      api.NewAdminRouter(streams, prometheus.DefaultGatherer, logger),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	for _, srv := range []struct {
		name   string
		server *http.Server
	}{{"api", apiServer}, {"admin", adminServer}} {
		g.Go(func() error {
			logger.Info("starting server", "server", srv.name, "addr", srv.server.Addr)
			if err := srv.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("server failed", "server", srv.name, "error", err)
				return err
			}
			return nil
		})
	}

	// --- Wait for shutdown signal or server failure ---
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down servers...")

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancelShutdown()

		if err := adminServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("admin server shutdown failed", "error", err)
		}
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("api server shutdown failed", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("servers shut down gracefully")
}
