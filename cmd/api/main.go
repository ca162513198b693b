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

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"rollbook/internal/account"
	"rollbook/internal/attendance"
	"rollbook/internal/auth"
	"rollbook/internal/cache"
	"rollbook/internal/cloudinary"
	"rollbook/internal/config"
	"rollbook/internal/httpapi"
	"rollbook/internal/httpmiddleware"
	"rollbook/internal/jobs"
	"rollbook/internal/observability"
	"rollbook/internal/queue"
	"rollbook/internal/roster"
	"rollbook/internal/store"
	"rollbook/internal/uploads"
)

const serviceName = "rollbook-api"

func main() {
	cfg := config.Load()
	logger := observability.NewLogger(cfg.Env)
	slog.SetDefault(logger)

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("api stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.App, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := observability.InitTracer(ctx, serviceName, cfg.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracer(sctx)
	}()

	db, err := store.Open(ctx, cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	logger.Info("database ready", "driver", cfg.DBDriver)

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()
	redisUp := redisClient.Healthy(ctx)
	if !redisUp {
		logger.Warn("redis not reachable, using in-process cache and limiters", "addr", cfg.RedisAddr)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(reg)

	var c cache.Cache = cache.NewMemory()
	var credentialLimiter httpmiddleware.Limiter = httpmiddleware.NewTokenBucket(cfg.LoginLimitPerMin, cfg.LoginLimitPerMin)
	if redisUp {
		c = cache.NewRedis(redisClient.Client, "")
		credentialLimiter = httpmiddleware.NewRedisWindow(redisClient.Client, cfg.LoginLimitPerMin, time.Minute)
	}

	var q queue.Queue
	if cfg.QueueBackend == "redis" {
		q = queue.NewRedisQueue(redisClient.Client, "")
	} else {
		q = queue.NewInMemory(256)
	}

	upl, err := uploads.NewStore(cfg.UploadDir, cfg.MaxUploadSize)
	if err != nil {
		return err
	}

	issuer := auth.NewIssuer(cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL, cfg.RefreshTTL)
	accounts := account.NewService(account.NewRepository(db.Client, metrics), issuer, c, cfg.ProfileCacheTTL, logger)
	rosters := roster.NewService(roster.NewRepository(db.Client, metrics), q, metrics, logger)
	att := attendance.NewService(attendance.NewRepository(db.Client, metrics), c, cfg.SummaryCacheTTL, q, metrics, logger)

	// without a shared queue nobody else would drain the jobs
	if _, inProcess := q.(*queue.InMemory); inProcess {
		var archiver jobs.Archiver
		if cfg.CloudinaryConfigured() {
			archiver = cloudinary.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
		}
		proc := jobs.NewProcessor(archiver, upl, att, metrics, logger)
		go func() {
			if err := proc.Run(ctx, q); err != nil {
				logger.Error("in-process worker stopped", "err", err)
			}
		}()
	}

	health := map[string]httpapi.HealthCheck{"db": db.Healthy}
	if redisUp || cfg.QueueBackend == "redis" {
		health["redis"] = redisClient.Healthy
	}

	router := httpapi.NewRouter(httpapi.Deps{
		Accounts:          accounts,
		Rosters:           rosters,
		Attendance:        att,
		Uploads:           upl,
		Issuer:            issuer,
		AuthRequired:      cfg.AuthRequired,
		GlobalLimiter:     httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin),
		CredentialLimiter: credentialLimiter,
		Metrics:           metrics,
		Gatherer:          reg,
		Health:            health,
		ServiceName:       serviceName,
		CORSOrigins:       cfg.CORSOrigins,
		MaxUploadSize:     cfg.MaxUploadSize,
		Log:               logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server forced shutdown", "err", err)
	}
	logger.Info("server exited")
	return nil
}
