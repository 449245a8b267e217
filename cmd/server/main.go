package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/showring/notify/internal/api"
	"github.com/showring/notify/internal/capture"
	"github.com/showring/notify/internal/config"
	"github.com/showring/notify/internal/db"
	"github.com/showring/notify/internal/dispatch"
	"github.com/showring/notify/internal/metrics"
	"github.com/showring/notify/internal/ratelimiter"
	"github.com/showring/notify/internal/repository"
	"github.com/showring/notify/internal/retryq"
	"github.com/showring/notify/internal/worker"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync() //nolint:errcheck

	// ---- configuration ----
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	// ---- database ----
	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}
	logger.Info("database migrations applied")

	// ---- redis (auth-surface rate limiting) ----
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	// ---- core dependencies ----
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	subs := repository.NewPgSubscriptionRepository(pool)
	queue := repository.NewPgQueueRepository(pool)
	deadLetters := repository.NewPgDeadLetterRepository(pool)
	secrets := repository.NewPgSecretsRepository(pool)
	counters := repository.NewPgRateCounterRepository(pool)

	dispatcher := dispatch.NewGatewayDispatcher(cfg.GatewayURL, secrets, cfg.GatewayTimeout)
	retry := retryq.New(queue, logger)

	announceGate := ratelimiter.NewAnnouncementLimiter(counters, cfg.AnnouncementLimit, cfg.AnnouncementWindow)
	authLimiter := ratelimiter.NewAuthLimiter(rdb, cfg.AuthFailureLimit, cfg.AuthFailureWindow)

	captureSvc := capture.New(subs, dispatcher, retry, announceGate, cfg.UpSoonSpan, m.CaptureHooks(), logger)
	processor := worker.NewProcessor(queue, subs, retry, dispatcher,
		cfg.DispatchPerSec, cfg.ProcessorBatchSize, cfg.ProcessorWorkers, m.WorkerHooks(), logger)
	cleaner := worker.NewCleaner(subs, queue, counters,
		cfg.SucceededRetention, cfg.StaleSubscription, cfg.RateCounterRetention, logger)

	// ---- scheduler ----
	// Context for all background work; cancelled on shutdown signal.
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	sched := cron.New()
	if _, err := sched.AddFunc(cfg.ProcessSchedule, func() {
		_ = processor.ProcessDue(workerCtx)
	}); err != nil {
		logger.Fatal("invalid process schedule", zap.Error(err))
	}
	if _, err := sched.AddFunc(cfg.CleanupSchedule, func() {
		cleaner.Run(workerCtx)
	}); err != nil {
		logger.Fatal("invalid cleanup schedule", zap.Error(err))
	}
	sched.Start()

	// ---- HTTP server ----
	router := api.NewRouter(api.Deps{
		Capture:       captureSvc,
		Processor:     processor,
		Cleaner:       cleaner,
		Subscriptions: subs,
		Queue:         queue,
		DeadLetters:   deadLetters,
		Secrets:       secrets,
		AuthLimiter:   authLimiter,
		Registry:      reg,
		Logger:        logger,
	})
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	// Start server in a goroutine so it does not block the shutdown listener.
	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// ---- graceful shutdown ----
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutdown signal received")

	// 1. Stop accepting new HTTP requests.
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	// 2. Stop scheduling new passes, then wait for an in-flight pass to end.
	<-sched.Stop().Done()

	// 3. Signal any remaining background work to stop.
	cancelWorkers()

	logger.Info("server stopped cleanly")
}
