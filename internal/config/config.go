package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/banner-pricing/internal/pricing"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	CORSAllowedOrigins []string

	Log     LogConfig
	Obs     ObsConfig
	Catalog CatalogConfig
	Pricing PricingConfig
	Admin   AdminConfig
	Limits  RateLimitConfig
	Email   EmailConfig
	Worker  WorkerConfig
	HTTP    HTTPConfig
}

// HTTPConfig holds API hardening knobs.
type HTTPConfig struct {
	SecurityHeaders bool
	HSTS            bool
	MaxBodyBytes    int64
	IdempotencyTTL  time.Duration
	ShutdownTimeout time.Duration
}

// LogConfig controls zerolog output.
type LogConfig struct {
	Format string
	Level  string
}

// ObsConfig controls metrics and tracing.
type ObsConfig struct {
	MetricsEnabled   bool
	MetricsNamespace string
	HTTPBuckets      string
	TracingExporter  string
	TracingEndpoint  string
	TracingSampling  float64
	PprofEnabled     bool
	PprofUser        string
	PprofPass        string
}

// CatalogConfig selects where the pricing catalog comes from.
type CatalogConfig struct {
	Source          string
	Path            string
	CacheTTL        time.Duration
	RefreshInterval time.Duration
}

// PricingConfig is the pricing context applied when a request does not override it.
type PricingConfig struct {
	Region         string
	Regions        []string
	Flags          []string
	TaxRate        decimal.Decimal
	MinimumOrder   pricing.Money
	CurrencyCode   string
	CurrencySymbol string
	Locale         string
}

// AdminConfig configures admin JWT verification.
type AdminConfig struct {
	JWTSecret   string
	JWTIssuer   string
	JWTAudience string
	ClockSkew   time.Duration
}

// RateLimitConfig configures quote endpoint throttling.
type RateLimitConfig struct {
	Driver          string
	QuotesPerMinute int
}

// EmailConfig configures confirmation email delivery.
type EmailConfig struct {
	Provider       string
	From           string
	ResendAPIKey   string
	ResendBaseURL  string
	FooterMarkdown string
	Timeout        time.Duration
	MaxRetries     int
	BreakerMinReq  int
	BreakerRatio   float64
	BreakerOpenFor time.Duration
}

// WorkerConfig configures the asynq worker.
type WorkerConfig struct {
	Concurrency int
	LockTTL     time.Duration
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	return load(true)
}

// LoadOffline is Load without the DATABASE_URL and REDIS_URL requirement, for
// tools that never connect.
func LoadOffline() (*Config, error) {
	return load(false)
}

func load(requireConnections bool) (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	taxRate, err := parseDecimal(k.String("PRICING_TAX_RATE"), "0.06")
	if err != nil {
		return nil, fmt.Errorf("PRICING_TAX_RATE: %w", err)
	}
	if err := pricing.ValidateTaxRate(taxRate); err != nil {
		return nil, fmt.Errorf("PRICING_TAX_RATE: %w", err)
	}
	region := strings.ToLower(valueOrDefault(k.String("PRICING_REGION"), "us"))

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        k.String("DATABASE_URL"),
		RedisURL:           k.String("REDIS_URL"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		Log: LogConfig{
			Format: valueOrDefault(k.String("LOG_FORMAT"), "json"),
			Level:  valueOrDefault(k.String("LOG_LEVEL"), "info"),
		},
		Obs: ObsConfig{
			MetricsEnabled:   parseBoolDefault(k.String("OBS_METRICS_ENABLED"), true),
			MetricsNamespace: valueOrDefault(k.String("OBS_METRICS_NAMESPACE"), "banner"),
			HTTPBuckets:      k.String("OBS_HTTP_BUCKETS_MS"),
			TracingExporter:  valueOrDefault(k.String("OBS_TRACING_EXPORTER"), "none"),
			TracingEndpoint:  k.String("OTEL_EXPORTER_OTLP_ENDPOINT"),
			TracingSampling:  parseFloat(k.String("OBS_TRACING_SAMPLING_RATIO"), 1),
			PprofEnabled:     parseBool(k.String("OBS_PPROF_ENABLED")),
			PprofUser:        k.String("SECURE_PPROF_BASIC_AUTH_USER"),
			PprofPass:        k.String("SECURE_PPROF_BASIC_AUTH_PASS"),
		},
		Catalog: CatalogConfig{
			Source:          strings.ToLower(valueOrDefault(k.String("CATALOG_SOURCE"), "file")),
			Path:            valueOrDefault(k.String("CATALOG_PATH"), "catalog.yaml"),
			CacheTTL:        parseDuration(k.String("CATALOG_CACHE_TTL"), "10m"),
			RefreshInterval: parseDuration(k.String("CATALOG_REFRESH_INTERVAL"), "1m"),
		},
		Pricing: PricingConfig{
			Region:         region,
			Regions:        withDefault(splitAndTrim(strings.ToLower(k.String("PRICING_REGIONS"))), region),
			Flags:          splitAndTrim(k.String("FEATURE_FLAGS")),
			TaxRate:        taxRate,
			MinimumOrder:   pricing.Money(parseInt(k.String("PRICING_MIN_ORDER_CENTS"), int(pricing.DefaultMinimumOrder))),
			CurrencyCode:   strings.ToUpper(valueOrDefault(k.String("CURRENCY_CODE"), "USD")),
			CurrencySymbol: valueOrDefault(k.String("CURRENCY_SYMBOL"), "$"),
			Locale:         valueOrDefault(k.String("CURRENCY_LOCALE"), "en-US"),
		},
		Admin: AdminConfig{
			JWTSecret:   k.String("ADMIN_JWT_SECRET"),
			JWTIssuer:   valueOrDefault(k.String("ADMIN_JWT_ISSUER"), "banner-pricing"),
			JWTAudience: valueOrDefault(k.String("ADMIN_JWT_AUDIENCE"), "banner-admin"),
			ClockSkew:   parseDuration(k.String("ADMIN_JWT_CLOCK_SKEW"), "30s"),
		},
		Limits: RateLimitConfig{
			Driver:          strings.ToLower(valueOrDefault(k.String("RATE_LIMIT_DRIVER"), "sliding")),
			QuotesPerMinute: parseInt(k.String("RATE_LIMIT_QUOTES_PER_MINUTE"), 120),
		},
		Email: EmailConfig{
			Provider:       strings.ToLower(valueOrDefault(k.String("EMAIL_PROVIDER"), "nop")),
			From:           valueOrDefault(k.String("NOTIFY_EMAIL_FROM"), "orders@example.com"),
			ResendAPIKey:   k.String("RESEND_API_KEY"),
			ResendBaseURL:  valueOrDefault(k.String("RESEND_BASE_URL"), "https://api.resend.com"),
			FooterMarkdown: k.String("NOTIFY_EMAIL_FOOTER"),
			Timeout:        parseDuration(k.String("EMAIL_TIMEOUT"), "10s"),
			MaxRetries:     parseInt(k.String("EMAIL_RETRY_MAX"), 2),
			BreakerMinReq:  parseInt(k.String("EMAIL_BREAKER_MIN_REQUESTS"), 10),
			BreakerRatio:   parseFloat(k.String("EMAIL_BREAKER_FAILURE_RATIO"), 0.5),
			BreakerOpenFor: parseDuration(k.String("EMAIL_BREAKER_OPEN_FOR"), "30s"),
		},
		Worker: WorkerConfig{
			Concurrency: parseInt(k.String("WORKER_CONCURRENCY"), 5),
			LockTTL:     parseDuration(k.String("LOCK_TTL"), "30s"),
		},
		HTTP: HTTPConfig{
			SecurityHeaders: parseBoolDefault(k.String("SECURITY_HEADERS_ENABLED"), true),
			HSTS:            parseBool(k.String("SECURITY_HSTS_ENABLED")),
			MaxBodyBytes:    int64(parseInt(k.String("HTTP_MAX_BODY_BYTES"), 1<<20)),
			IdempotencyTTL:  parseDuration(k.String("IDEMPOTENCY_TTL"), "10m"),
			ShutdownTimeout: parseDuration(k.String("HTTP_SHUTDOWN_TIMEOUT"), "15s"),
		},
	}

	if requireConnections && cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if requireConnections && cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	switch cfg.Catalog.Source {
	case "file", "db":
	default:
		return nil, fmt.Errorf("CATALOG_SOURCE %q must be file or db", cfg.Catalog.Source)
	}
	if cfg.Email.Provider == "resend" && cfg.Email.ResendAPIKey == "" {
		return nil, errors.New("RESEND_API_KEY is required when EMAIL_PROVIDER=resend")
	}
	if !contains(cfg.Pricing.Regions, cfg.Pricing.Region) {
		cfg.Pricing.Regions = append(cfg.Pricing.Regions, cfg.Pricing.Region)
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

// IsProduction reports whether APP_ENV names a production deployment.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func withDefault(values []string, fallback string) []string {
	if len(values) == 0 {
		return []string{fallback}
	}
	return values
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseBool(value string) bool {
	return parseBoolDefault(value, false)
}

func parseBoolDefault(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func parseInt(value string, fallback int) int {
	v, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return v
}

func parseFloat(value string, fallback float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return v
}

// parseDecimal is strict: a malformed tax rate must not silently fall back.
func parseDecimal(value, fallback string) (decimal.Decimal, error) {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	return decimal.NewFromString(base)
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
