package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/noah-isme/banner-pricing/internal/app"
	"github.com/noah-isme/banner-pricing/internal/config"
	"github.com/noah-isme/banner-pricing/internal/lock"
	"github.com/noah-isme/banner-pricing/internal/notify"
	"github.com/noah-isme/banner-pricing/internal/obs"
	"github.com/noah-isme/banner-pricing/internal/resilience"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.Log.Format, cfg.Log.Level, "banner-worker")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Obs.MetricsEnabled {
		obs.MustRegisterDomainMetrics(cfg.Obs.MetricsNamespace, prometheus.DefaultRegisterer)
		resilience.RegisterMetrics(prometheus.DefaultRegisterer)
	}
	shutdownTracer, err := obs.InitTracer(ctx, obs.TracingConfig{
		ServiceName:   "banner-worker",
		Endpoint:      cfg.Obs.TracingEndpoint,
		Exporter:      cfg.Obs.TracingExporter,
		SamplingRatio: cfg.Obs.TracingSampling,
		Environment:   cfg.AppEnv,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("init tracer")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracer(shutdownCtx)
	}()

	infra, err := app.Connect(ctx, cfg, "banner-worker")
	if err != nil {
		logger.Fatal().Err(err).Msg("connect")
	}
	defer func() {
		if err := infra.Close(); err != nil {
			logger.Error().Err(err).Msg("close connections")
		}
	}()

	pricing, err := app.NewPricing(ctx, cfg, infra.DB, infra.Redis, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("load pricing catalog")
	}
	go pricing.Holder.Run(ctx, cfg.Catalog.RefreshInterval)

	renderer, err := notify.NewRenderer(cfg.Email.FooterMarkdown)
	if err != nil {
		logger.Fatal().Err(err).Msg("email templates")
	}

	// The worker only re-prices; it never enqueues.
	orders := app.NewOrders(infra.DB, pricing.Quotes, nil, logger)
	confirmations := &notify.ConfirmationHandler{
		Orders:   orders,
		Renderer: renderer,
		Sender:   app.NewSender(cfg, logger),
		Locker:   lock.Locker{R: infra.Redis, RetryBackoff: 100 * time.Millisecond, MaxWait: 2 * time.Second},
		LockTTL:  cfg.Worker.LockTTL,
		Logger:   logger.With().Str("component", "confirmation").Logger(),
	}

	taskRedis, err := app.TaskRedis(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("task queue config")
	}
	srv := asynq.NewServer(taskRedis, asynq.Config{
		Concurrency:     cfg.Worker.Concurrency,
		Queues:          map[string]int{notify.QueueEmail: 1},
		ShutdownTimeout: 10 * time.Second,
		Logger:          obs.AsynqLogger{Logger: logger},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)
			logger.Warn().Err(err).Str("task", task.Type()).Int("retry", retried).Int("max_retry", maxRetry).Msg("task failed")
		}),
	})
	mux := asynq.NewServeMux()
	confirmations.Register(mux)

	logger.Info().Int("concurrency", cfg.Worker.Concurrency).Msg("worker starting")
	if err := srv.Start(mux); err != nil {
		logger.Fatal().Err(err).Msg("start worker")
	}
	<-ctx.Done()
	srv.Shutdown()
	logger.Info().Msg("worker shutdown complete")
}
