package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/banner-pricing/internal/app"
	"github.com/noah-isme/banner-pricing/internal/auth"
	"github.com/noah-isme/banner-pricing/internal/catalog"
	"github.com/noah-isme/banner-pricing/internal/common"
	"github.com/noah-isme/banner-pricing/internal/config"
	"github.com/noah-isme/banner-pricing/internal/health"
	"github.com/noah-isme/banner-pricing/internal/migrations"
	"github.com/noah-isme/banner-pricing/internal/notify"
	"github.com/noah-isme/banner-pricing/internal/obs"
	"github.com/noah-isme/banner-pricing/internal/order"
	"github.com/noah-isme/banner-pricing/internal/quote"
	"github.com/noah-isme/banner-pricing/internal/ratelimit"
	"github.com/noah-isme/banner-pricing/internal/resilience"
	"github.com/noah-isme/banner-pricing/internal/security"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.Log.Format, cfg.Log.Level, "banner-api")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Obs.MetricsEnabled {
		obs.MustRegisterDomainMetrics(cfg.Obs.MetricsNamespace, prometheus.DefaultRegisterer)
		resilience.RegisterMetrics(prometheus.DefaultRegisterer)
	}

	shutdownTracer, err := obs.InitTracer(ctx, obs.TracingConfig{
		ServiceName:   "banner-api",
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
		if err := shutdownTracer(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("shutdown tracer")
		}
	}()

	if err := migrations.Up(cfg.DatabaseURL); err != nil {
		logger.Fatal().Err(err).Msg("run migrations")
	}

	infra, err := app.Connect(ctx, cfg, "banner-api")
	if err != nil {
		logger.Fatal().Err(err).Msg("connect")
	}
	defer func() {
		if err := infra.Close(); err != nil {
			logger.Error().Err(err).Msg("close connections")
		}
	}()
	if cfg.Obs.MetricsEnabled {
		if err := redisotel.InstrumentMetrics(infra.Redis); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}

	pricing, err := app.NewPricing(ctx, cfg, infra.DB, infra.Redis, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("load pricing catalog")
	}
	logger.Info().Str("catalog_version", pricing.Holder.Current().Version()).Str("region", cfg.Pricing.Region).Msg("pricing catalog loaded")
	go pricing.Holder.Run(ctx, cfg.Catalog.RefreshInterval)

	taskRedis, err := app.TaskRedis(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("task queue config")
	}
	taskClient := asynq.NewClient(taskRedis)
	defer func() {
		if err := taskClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close task client")
		}
	}()
	orders := app.NewOrders(infra.DB, pricing.Quotes, notify.Enqueuer{
		Client:   taskClient,
		MaxRetry: cfg.Email.MaxRetries + 3,
		Timeout:  cfg.Email.Timeout * 3,
	}, logger)

	verifier, err := app.NewVerifier(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("admin verifier")
	}
	if verifier == nil {
		logger.Warn().Msg("ADMIN_JWT_SECRET not set, admin routes disabled")
	}

	limiter, err := ratelimit.New(cfg.Limits.Driver, infra.Redis, "rl:")
	if err != nil {
		logger.Fatal().Err(err).Msg("rate limiter")
	}

	validate := app.NewValidator()
	router := newRouter(routerDeps{
		cfg:    cfg,
		logger: logger,
		health: health.Handler{
			Checker:      health.Pinger{DB: infra.DB, Redis: infra.Redis},
			Catalog:      pricing.Holder,
			DBTimeout:    500 * time.Millisecond,
			RedisTimeout: 300 * time.Millisecond,
		},
		catalog: catalog.NewHandler(catalog.HandlerConfig{
			Holder:  pricing.Holder,
			Flags:   pricing.Flags,
			Service: pricing.Catalog,
		}),
		quotes:     quote.NewHandler(quote.HandlerConfig{Service: pricing.Quotes, Validator: validate}),
		orders:     order.NewHandler(orders, validate),
		orderAdmin: order.NewAdminHandler(orders),
		auth:       auth.Middleware{Verifier: verifier},
		idem:       common.Idem{R: infra.Redis, TTL: cfg.HTTP.IdempotencyTTL},
		quoteLimit: ratelimit.Handler{
			Limiter: limiter,
			Config: ratelimit.Config{
				Key:    ratelimit.ByClientIP("quotes"),
				Window: time.Minute,
				Max:    cfg.Limits.QuotesPerMinute,
			},
			OnError: func(err error) { logger.Warn().Err(err).Msg("rate limiter unavailable") },
		},
		headers:   security.Headers{Enable: cfg.HTTP.SecurityHeaders, EnableHSTS: cfg.HTTP.HSTS},
		bodySize:  security.BodyLimit{Max: cfg.HTTP.MaxBodyBytes},
		pprofUser: cfg.Obs.PprofUser,
		pprofPass: cfg.Obs.PprofPass,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		logger.Error().Err(err).Msg("server exited unexpectedly")
	}
	shutdown(srv, cfg.HTTP.ShutdownTimeout, logger)
}

// shutdown flips readiness first so load balancers drain before connections close.
func shutdown(srv *http.Server, timeout time.Duration, logger zerolog.Logger) {
	health.SetReady(false)
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
		return
	}
	logger.Info().Msg("server stopped")
}
