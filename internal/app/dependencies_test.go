package app

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/banner-pricing/internal/config"
	"github.com/noah-isme/banner-pricing/internal/notify"
	"github.com/noah-isme/banner-pricing/internal/pricing"
)

func fileConfig() *config.Config {
	return &config.Config{
		Catalog: config.CatalogConfig{Source: "file", Path: "../../catalog.yaml"},
		Pricing: config.PricingConfig{
			Region:         "us",
			Regions:        []string{"us", "eu"},
			TaxRate:        decimal.RequireFromString("0.06"),
			MinimumOrder:   pricing.DefaultMinimumOrder,
			CurrencyCode:   "USD",
			CurrencySymbol: "$",
			Locale:         "en-US",
		},
		Admin: config.AdminConfig{JWTIssuer: "banner-pricing", JWTAudience: "banner-admin"},
		Email: config.EmailConfig{Provider: "nop"},
	}
}

func TestNewPricingFromFile(t *testing.T) {
	p, err := NewPricing(context.Background(), fileConfig(), nil, nil, zerolog.Nop())
	require.NoError(t, err)
	require.True(t, p.Holder.Ready())
	require.Equal(t, "2026-10-01", p.Holder.Current().Version())

	view, err := p.Quotes.Quote(context.Background(), "eu", []pricing.LineItem{{
		Width:    decimal.NewFromInt(24),
		Height:   decimal.NewFromInt(36),
		Quantity: 1,
	}})
	require.NoError(t, err)
	require.Equal(t, "eu", view.Region)
	require.Equal(t, int64(2700), view.Totals.SubtotalCents)
}

func TestNewPricingRejectsMissingCatalog(t *testing.T) {
	cfg := fileConfig()
	cfg.Catalog.Path = "does-not-exist.yaml"
	_, err := NewPricing(context.Background(), cfg, nil, nil, zerolog.Nop())
	require.Error(t, err)
}

func TestNewVerifier(t *testing.T) {
	cfg := fileConfig()
	v, err := NewVerifier(cfg)
	require.NoError(t, err)
	require.Nil(t, v)

	cfg.Admin.JWTSecret = "secret"
	v, err = NewVerifier(cfg)
	require.NoError(t, err)
	require.NotNil(t, v)
}

func TestNewSender(t *testing.T) {
	cfg := fileConfig()
	require.IsType(t, notify.NopSender{}, NewSender(cfg, zerolog.Nop()))

	cfg.Email = config.EmailConfig{
		Provider:       "resend",
		From:           "orders@example.com",
		ResendAPIKey:   "re_test",
		ResendBaseURL:  "https://api.resend.com",
		MaxRetries:     2,
		BreakerMinReq:  5,
		BreakerRatio:   0.5,
		BreakerOpenFor: 0,
	}
	sender, ok := NewSender(cfg, zerolog.Nop()).(notify.ResendSender)
	require.True(t, ok)
	require.Equal(t, 3, sender.HTTP.MaxAttempts)
	require.Equal(t, "re_test", sender.APIKey)
	require.NotNil(t, sender.HTTP.Breaker)
	require.Equal(t, "resend", sender.HTTP.Breaker.Target())
}

func TestTaskRedis(t *testing.T) {
	cfg := fileConfig()
	cfg.RedisURL = "redis://localhost:6379/2"
	opt, err := TaskRedis(cfg)
	require.NoError(t, err)
	require.NotNil(t, opt)

	cfg.RedisURL = "://bad"
	_, err = TaskRedis(cfg)
	require.Error(t, err)
}
