package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/banner-pricing/internal/pricing"
)

func baseEnv() map[string]string {
	return map[string]string{
		"DATABASE_URL":             "postgres://localhost/banner",
		"REDIS_URL":                "redis://localhost:6379/0",
		"PRICING_TAX_RATE":         "",
		"PRICING_REGION":           "",
		"PRICING_REGIONS":          "",
		"FEATURE_FLAGS":            "",
		"CATALOG_SOURCE":           "",
		"EMAIL_PROVIDER":           "",
		"RESEND_API_KEY":           "",
		"PRICING_MIN_ORDER_CENTS":  "",
		"CATALOG_REFRESH_INTERVAL": "",
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadForTests(baseEnv())
	require.NoError(t, err)

	require.Equal(t, "0.06", cfg.Pricing.TaxRate.String())
	require.Equal(t, "us", cfg.Pricing.Region)
	require.Equal(t, []string{"us"}, cfg.Pricing.Regions)
	require.Equal(t, pricing.Money(2000), cfg.Pricing.MinimumOrder)
	require.Equal(t, "file", cfg.Catalog.Source)
	require.Equal(t, time.Minute, cfg.Catalog.RefreshInterval)
	require.Equal(t, "nop", cfg.Email.Provider)
	require.Equal(t, ":8080", cfg.HTTPAddr())
}

func TestLoadPricingOverrides(t *testing.T) {
	env := baseEnv()
	env["PRICING_TAX_RATE"] = "0.0825"
	env["PRICING_REGION"] = "CA"
	env["PRICING_REGIONS"] = "us, eu"
	env["FEATURE_FLAGS"] = "min_order_floor, lamination"
	env["PRICING_MIN_ORDER_CENTS"] = "2500"
	env["CATALOG_REFRESH_INTERVAL"] = "bogus"

	cfg, err := LoadForTests(env)
	require.NoError(t, err)
	require.Equal(t, "0.0825", cfg.Pricing.TaxRate.String())
	require.Equal(t, "ca", cfg.Pricing.Region)
	require.Equal(t, []string{"us", "eu", "ca"}, cfg.Pricing.Regions)
	require.Equal(t, []string{"min_order_floor", "lamination"}, cfg.Pricing.Flags)
	require.Equal(t, pricing.Money(2500), cfg.Pricing.MinimumOrder)
	require.Equal(t, time.Minute, cfg.Catalog.RefreshInterval)
}

func TestLoadRejectsBadTaxRate(t *testing.T) {
	for _, rate := range []string{"six percent", "1.2", "-0.01", "0.0612345"} {
		env := baseEnv()
		env["PRICING_TAX_RATE"] = rate
		_, err := LoadForTests(env)
		require.Error(t, err, rate)
	}
}

func TestLoadRequiresConnections(t *testing.T) {
	env := baseEnv()
	env["DATABASE_URL"] = ""
	_, err := LoadForTests(env)
	require.ErrorContains(t, err, "DATABASE_URL")
}

func TestLoadResendNeedsKey(t *testing.T) {
	env := baseEnv()
	env["EMAIL_PROVIDER"] = "resend"
	_, err := LoadForTests(env)
	require.ErrorContains(t, err, "RESEND_API_KEY")

	env["RESEND_API_KEY"] = "re_test"
	cfg, err := LoadForTests(env)
	require.NoError(t, err)
	require.Equal(t, "resend", cfg.Email.Provider)
}

func TestLoadRejectsUnknownCatalogSource(t *testing.T) {
	env := baseEnv()
	env["CATALOG_SOURCE"] = "s3"
	_, err := LoadForTests(env)
	require.ErrorContains(t, err, "CATALOG_SOURCE")
}

func TestLoadOfflineSkipsConnections(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("ADMIN_JWT_SECRET", "s3cret")

	_, err := Load()
	require.ErrorContains(t, err, "DATABASE_URL")

	cfg, err := LoadOffline()
	require.NoError(t, err)
	require.Equal(t, "s3cret", cfg.Admin.JWTSecret)
	require.Equal(t, "banner-admin", cfg.Admin.JWTAudience)
}
