// Package app wires configuration into the services shared by the API, the
// worker and pricectl.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/banner-pricing/internal/auth"
	"github.com/noah-isme/banner-pricing/internal/catalog"
	"github.com/noah-isme/banner-pricing/internal/common"
	"github.com/noah-isme/banner-pricing/internal/config"
	"github.com/noah-isme/banner-pricing/internal/flags"
	"github.com/noah-isme/banner-pricing/internal/notify"
	"github.com/noah-isme/banner-pricing/internal/obs"
	"github.com/noah-isme/banner-pricing/internal/order"
	"github.com/noah-isme/banner-pricing/internal/present"
	"github.com/noah-isme/banner-pricing/internal/quote"
	"github.com/noah-isme/banner-pricing/internal/resilience"
)

// Infra holds the network connections a process owns.
type Infra struct {
	DB    *pgxpool.Pool
	Redis *redis.Client
}

// Connect opens and pings Postgres and Redis with tracing installed.
func Connect(ctx context.Context, cfg *config.Config, appName string) (*Infra, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = appName
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		pool.Close()
		return nil, fmt.Errorf("instrument redis tracing: %w", err)
	}
	if err := redisClient.Ping(ctx).Err(); err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Infra{DB: pool, Redis: redisClient}, nil
}

// Close releases the connections.
func (i *Infra) Close() error {
	if i.DB != nil {
		i.DB.Close()
	}
	if i.Redis != nil {
		return i.Redis.Close()
	}
	return nil
}

// TaskRedis returns the asynq connection option for cfg.RedisURL.
func TaskRedis(cfg *config.Config) (asynq.RedisConnOpt, error) {
	opt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse asynq redis uri: %w", err)
	}
	return opt, nil
}

// Pricing groups the services that compute and present prices.
type Pricing struct {
	Catalog   *catalog.Service
	Holder    *catalog.Holder
	Flags     *flags.Provider
	Formatter *present.Formatter
	Quotes    *quote.Service
}

// NewPricing loads the catalog and builds the quote service. redisClient and
// pool may be nil when the catalog comes from a file.
func NewPricing(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, redisClient redis.Cmdable, logger zerolog.Logger) (*Pricing, error) {
	svcCfg := catalog.ServiceConfig{
		Path:   cfg.Catalog.Path,
		Source: cfg.Catalog.Source,
		Logger: logger,
	}
	if pool != nil {
		svcCfg.Store = catalog.NewPGStore(pool)
	}
	if redisClient != nil {
		svcCfg.Cache = catalog.NewCache(redisClient, cfg.Catalog.CacheTTL)
	}
	catalogSvc := catalog.NewService(svcCfg)

	holder, err := catalog.NewHolder(ctx, catalogSvc, logger)
	if err != nil {
		return nil, err
	}
	formatter, err := present.NewFormatter(cfg.Pricing.CurrencyCode, cfg.Pricing.CurrencySymbol, cfg.Pricing.Locale)
	if err != nil {
		return nil, err
	}
	provider := flags.NewProvider(cfg.Pricing.Region, cfg.Pricing.Regions, cfg.Pricing.Flags)
	quotes, err := quote.NewService(quote.ServiceConfig{
		Holder:       holder,
		Versions:     catalogSvc,
		Flags:        provider,
		TaxRate:      cfg.Pricing.TaxRate,
		MinimumOrder: cfg.Pricing.MinimumOrder,
		Formatter:    formatter,
	})
	if err != nil {
		return nil, err
	}
	return &Pricing{
		Catalog:   catalogSvc,
		Holder:    holder,
		Flags:     provider,
		Formatter: formatter,
		Quotes:    quotes,
	}, nil
}

// NewOrders builds the order service on top of quotes.
func NewOrders(pool *pgxpool.Pool, quotes *quote.Service, queue order.ConfirmationQueue, logger zerolog.Logger) *order.Service {
	return order.NewService(order.ServiceConfig{
		Repository: order.NewPGRepository(pool),
		Quotes:     quotes,
		Queue:      queue,
		Logger:     logger,
	})
}

// NewVerifier returns nil when no admin secret is configured; admin routes
// then answer 503.
func NewVerifier(cfg *config.Config) (*auth.Verifier, error) {
	if cfg.Admin.JWTSecret == "" {
		return nil, nil
	}
	return auth.NewVerifier(auth.VerifierConfig{
		Secret:    cfg.Admin.JWTSecret,
		Issuer:    cfg.Admin.JWTIssuer,
		Audience:  cfg.Admin.JWTAudience,
		ClockSkew: cfg.Admin.ClockSkew,
	})
}

// NewValidator returns the request validator shared by handlers.
func NewValidator() *validator.Validate {
	return common.NewValidator()
}

// NewSender picks the email transport named by EMAIL_PROVIDER.
func NewSender(cfg *config.Config, logger zerolog.Logger) notify.Sender {
	switch cfg.Email.Provider {
	case "resend":
		breaker := resilience.NewBreaker(resilience.BreakerConfig{
			Target:       "resend",
			MinRequests:  cfg.Email.BreakerMinReq,
			FailureRatio: cfg.Email.BreakerRatio,
			OpenFor:      cfg.Email.BreakerOpenFor,
			Logger:       logger,
		})
		return notify.ResendSender{
			HTTP: resilience.HTTPClient{
				Client:        &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
				Breaker:       breaker,
				BaseBackoff:   200 * time.Millisecond,
				MaxAttempts:   cfg.Email.MaxRetries + 1,
				Jitter:        0.2,
				Timeout:       cfg.Email.Timeout,
				MaxRetryAfter: 30 * time.Second,
			},
			BaseURL: cfg.Email.ResendBaseURL,
			APIKey:  cfg.Email.ResendAPIKey,
			From:    cfg.Email.From,
		}
	default:
		logger.Warn().Str("provider", cfg.Email.Provider).Msg("email delivery disabled")
		return notify.NopSender{}
	}
}
