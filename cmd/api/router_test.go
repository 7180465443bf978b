package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/banner-pricing/internal/auth"
	"github.com/noah-isme/banner-pricing/internal/catalog"
	"github.com/noah-isme/banner-pricing/internal/common"
	"github.com/noah-isme/banner-pricing/internal/config"
	"github.com/noah-isme/banner-pricing/internal/flags"
	"github.com/noah-isme/banner-pricing/internal/order"
	"github.com/noah-isme/banner-pricing/internal/present"
	"github.com/noah-isme/banner-pricing/internal/pricing"
	"github.com/noah-isme/banner-pricing/internal/quote"
	"github.com/noah-isme/banner-pricing/internal/ratelimit"
	"github.com/noah-isme/banner-pricing/internal/security"
)

func testRouter(t *testing.T, verifier *auth.Verifier, quotesPerMinute int) http.Handler {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	def, err := catalog.LoadFile("../../catalog.yaml")
	require.NoError(t, err)
	cat, err := catalog.Build(def)
	require.NoError(t, err)
	holder := catalog.NewStaticHolder(cat)
	provider := flags.NewProvider("us", nil, nil)
	quotes, err := quote.NewService(quote.ServiceConfig{
		Holder:       holder,
		Flags:        provider,
		TaxRate:      decimal.RequireFromString("0.06"),
		MinimumOrder: pricing.DefaultMinimumOrder,
		Formatter:    present.MustFormatter("USD", "$", "en-US"),
	})
	require.NoError(t, err)
	orders := order.NewService(order.ServiceConfig{Quotes: quotes, Logger: zerolog.Nop()})

	cfg := &config.Config{Obs: config.ObsConfig{TracingExporter: "none"}}
	return newRouter(routerDeps{
		cfg:        cfg,
		logger:     zerolog.Nop(),
		catalog:    catalog.NewHandler(catalog.HandlerConfig{Holder: holder, Flags: provider}),
		quotes:     quote.NewHandler(quote.HandlerConfig{Service: quotes}),
		orders:     order.NewHandler(orders, nil),
		orderAdmin: order.NewAdminHandler(orders),
		auth:       auth.Middleware{Verifier: verifier},
		idem:       common.Idem{R: rdb, TTL: time.Minute},
		quoteLimit: ratelimit.Handler{
			Limiter: ratelimit.SlidingWindow{Client: rdb, Prefix: "rl:"},
			Config:  ratelimit.Config{Key: ratelimit.ByClientIP("quotes"), Window: time.Minute, Max: quotesPerMinute},
		},
		headers:  security.Headers{Enable: true},
		bodySize: security.BodyLimit{Max: 1 << 16},
	})
}

func serve(h http.Handler, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.RemoteAddr = "203.0.113.9:5000"
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestRouterOptionsAndHeaders(t *testing.T) {
	h := testRouter(t, nil, 10)
	rr := serve(h, http.MethodGet, "/api/v1/options", "", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.Contains(t, rr.Body.String(), `"catalog_version":"2026-10-01"`)
	require.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
}

func TestRouterQuoteIsRateLimited(t *testing.T) {
	h := testRouter(t, nil, 1)
	body := `{"items":[{"width":24,"height":36,"quantity":1}]}`

	rr := serve(h, http.MethodPost, "/api/v1/quotes", body, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = serve(h, http.MethodPost, "/api/v1/quotes", body, nil)
	require.Equal(t, http.StatusTooManyRequests, rr.Code)
	require.Contains(t, rr.Body.String(), "RATE_LIMITED")
}

func TestRouterAdminRequiresVerifier(t *testing.T) {
	h := testRouter(t, nil, 10)
	rr := serve(h, http.MethodGet, "/api/v1/admin/orders", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestRouterAdminRejectsMissingToken(t *testing.T) {
	verifier, err := auth.NewVerifier(auth.VerifierConfig{Secret: "test-secret", Issuer: "banner-pricing", Audience: "banner-admin"})
	require.NoError(t, err)
	h := testRouter(t, verifier, 10)

	rr := serve(h, http.MethodGet, "/api/v1/admin/orders", "", nil)
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	token, err := verifier.Issue("ops@example.com", time.Minute)
	require.NoError(t, err)
	rr = serve(h, http.MethodPost, "/api/v1/admin/catalog", "version: x", map[string]string{"Authorization": "Bearer " + token})
	require.NotEqual(t, http.StatusUnauthorized, rr.Code)
	require.NotEqual(t, http.StatusForbidden, rr.Code)
}

func TestRouterCheckoutReplayIsRejected(t *testing.T) {
	h := testRouter(t, nil, 10)
	header := map[string]string{"Idempotency-Key": "checkout-1"}

	first := serve(h, http.MethodPost, "/api/v1/orders", `{}`, header)
	require.NotEqual(t, http.StatusConflict, first.Code)

	second := serve(h, http.MethodPost, "/api/v1/orders", `{}`, header)
	require.Equal(t, http.StatusConflict, second.Code)
	require.Contains(t, second.Body.String(), "IDEMPOTENT_REPLAY")
}
