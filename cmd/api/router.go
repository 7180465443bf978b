package main

import (
	"crypto/subtle"
	"net/http"
	"net/http/pprof"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/noah-isme/banner-pricing/internal/auth"
	"github.com/noah-isme/banner-pricing/internal/catalog"
	"github.com/noah-isme/banner-pricing/internal/common"
	"github.com/noah-isme/banner-pricing/internal/config"
	"github.com/noah-isme/banner-pricing/internal/health"
	"github.com/noah-isme/banner-pricing/internal/obs"
	"github.com/noah-isme/banner-pricing/internal/order"
	"github.com/noah-isme/banner-pricing/internal/quote"
	"github.com/noah-isme/banner-pricing/internal/ratelimit"
	"github.com/noah-isme/banner-pricing/internal/security"
)

type routerDeps struct {
	cfg        *config.Config
	logger     zerolog.Logger
	health     health.Handler
	catalog    *catalog.Handler
	quotes     *quote.Handler
	orders     *order.Handler
	orderAdmin *order.AdminHandler
	auth       auth.Middleware
	idem       common.Idem
	quoteLimit ratelimit.Handler
	headers    security.Headers
	bodySize   security.BodyLimit
	pprofUser  string
	pprofPass  string
}

func newRouter(d routerDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if d.cfg.Obs.TracingExporter != "none" {
		r.Use(obs.TracingMiddleware)
	}
	if d.cfg.Obs.MetricsEnabled {
		httpMetrics := obs.NewHTTPMetrics(d.cfg.Obs.MetricsNamespace, obs.ParseBucketsCSV(d.cfg.Obs.HTTPBuckets), nil)
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: d.logger}.Middleware)
	r.Use(d.headers.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(d.cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"Location", "X-RateLimit-Remaining"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	if d.cfg.Obs.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}
	if d.cfg.Obs.PprofEnabled {
		r.Mount("/debug/pprof", protectPprof(newPprofMux(), d.pprofUser, d.pprofPass))
	}

	r.Get("/health/live", d.health.Live)
	r.Get("/health/ready", d.health.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Use(d.bodySize.Middleware)
		v.Get("/options", d.catalog.Options)

		v.Group(func(q chi.Router) {
			q.Use(d.quoteLimit.Middleware)
			q.Post("/quotes", d.quotes.Quote)
			q.Post("/quotes/item", d.quotes.Item)
		})

		v.With(d.idem.Middleware).Post("/orders", d.orders.Checkout)

		v.Route("/admin", func(admin chi.Router) {
			admin.Use(d.auth.RequireAdmin)
			admin.Get("/orders", d.orderAdmin.List)
			admin.Get("/orders/{id}/breakdown", d.orderAdmin.Breakdown)
			admin.With(d.idem.Middleware).Post("/orders/{id}/confirmation", d.orderAdmin.ResendConfirmation)
			admin.Post("/catalog", d.catalog.Publish)
		})
	})
	return r
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

func newPprofMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", pprof.Index)
	mux.HandleFunc("/cmdline", pprof.Cmdline)
	mux.HandleFunc("/profile", pprof.Profile)
	mux.HandleFunc("/symbol", pprof.Symbol)
	mux.HandleFunc("/trace", pprof.Trace)
	mux.Handle("/allocs", pprof.Handler("allocs"))
	mux.Handle("/goroutine", pprof.Handler("goroutine"))
	mux.Handle("/heap", pprof.Handler("heap"))
	return mux
}

func protectPprof(handler http.Handler, user, pass string) http.Handler {
	if user == "" {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 || subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
			w.Header().Set("WWW-Authenticate", "Basic realm=restricted")
			http.Error(w, "unauthorised", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
