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
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rollbook/internal/attendance"
	"rollbook/internal/cache"
	"rollbook/internal/cloudinary"
	"rollbook/internal/config"
	"rollbook/internal/jobs"
	"rollbook/internal/observability"
	"rollbook/internal/queue"
	"rollbook/internal/store"
	"rollbook/internal/uploads"
)

// Worker consumes queue messages: archives uploaded rosters and refreshes
// cached attendance summaries.
func main() {
	cfg := config.Load()
	logger := observability.NewLogger(cfg.Env).With("component", "worker")
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("worker failed", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.App, logger *slog.Logger) error {
	if cfg.QueueBackend != "redis" {
		return errors.New("worker needs QUEUE_BACKEND=redis; the memory queue is drained inside the api process")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := observability.InitTracer(ctx, "rollbook-worker", cfg.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer func() { _ = shutdownTracer(context.Background()) }()

	db, err := store.Open(ctx, cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()
	if !redisClient.Healthy(ctx) {
		logger.Warn("redis not reachable yet, consumer will keep retrying", "addr", cfg.RedisAddr)
	}

	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)
	go serveMetrics(ctx, logger, reg, ":"+cfg.WorkerMetricsPort)

	upl, err := uploads.NewStore(cfg.UploadDir, cfg.MaxUploadSize)
	if err != nil {
		return err
	}

	var archiver jobs.Archiver
	if cfg.CloudinaryConfigured() {
		archiver = cloudinary.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
		logger.Info("cloudinary archiving enabled", "cloud", cfg.CloudinaryCloudName)
	} else {
		logger.Info("cloudinary not configured, uploads are only removed")
	}

	att := attendance.NewService(
		attendance.NewRepository(db.Client, metrics),
		cache.NewRedis(redisClient.Client, ""),
		cfg.SummaryCacheTTL,
		nil,
		metrics,
		logger,
	)

	q := queue.NewRedisQueue(redisClient.Client, "")
	return jobs.NewProcessor(archiver, upl, att, metrics, logger).Run(ctx, q)
}

func serveMetrics(ctx context.Context, logger *slog.Logger, reg *prometheus.Registry, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Warn("metrics server stopped", "err", err)
	}
}
