package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// QuoteRequestsTotal counts pricing computations by surface (api, admin, email, cli) and outcome.
	QuoteRequestsTotal *prometheus.CounterVec
	// CatalogReloadTotal counts catalog loads by source (cache, db, file) and outcome.
	CatalogReloadTotal *prometheus.CounterVec
	// ConfirmationEmailTotal counts confirmation email jobs by outcome.
	ConfirmationEmailTotal *prometheus.CounterVec
	// EmailSendLatency records provider send latency in milliseconds.
	EmailSendLatency *prometheus.HistogramVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		QuoteRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quote_requests_total",
			Help:      "Count of pricing computations by surface and outcome.",
		}, []string{"surface", "result"})
		CatalogReloadTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_reload_total",
			Help:      "Count of pricing catalog loads by source and outcome.",
		}, []string{"source", "result"})
		ConfirmationEmailTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "confirmation_email_total",
			Help:      "Count of order confirmation email jobs by outcome.",
		}, []string{"result"})
		EmailSendLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "email_send_duration_ms",
			Help:      "Latency for email provider calls in milliseconds.",
			Buckets:   []float64{25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"provider", "result"})

		mustRegisterCollector(reg, QuoteRequestsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				QuoteRequestsTotal = v
			}
		})
		mustRegisterCollector(reg, CatalogReloadTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CatalogReloadTotal = v
			}
		})
		mustRegisterCollector(reg, ConfirmationEmailTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				ConfirmationEmailTotal = v
			}
		})
		mustRegisterCollector(reg, EmailSendLatency, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.HistogramVec); ok {
				EmailSendLatency = v
			}
		})
	})
}

// CountQuote records a pricing computation when domain metrics are registered.
func CountQuote(surface string, err error) {
	if QuoteRequestsTotal == nil {
		return
	}
	QuoteRequestsTotal.WithLabelValues(surface, resultLabel(err)).Inc()
}

// CountCatalogReload records a catalog load when domain metrics are registered.
func CountCatalogReload(source string, err error) {
	if CatalogReloadTotal == nil {
		return
	}
	CatalogReloadTotal.WithLabelValues(source, resultLabel(err)).Inc()
}

// CountConfirmationEmail records a confirmation job outcome when domain metrics are registered.
func CountConfirmationEmail(result string) {
	if ConfirmationEmailTotal == nil {
		return
	}
	ConfirmationEmailTotal.WithLabelValues(result).Inc()
}

// ObserveEmailSend records provider latency when domain metrics are registered.
func ObserveEmailSend(provider string, ms float64, err error) {
	if EmailSendLatency == nil {
		return
	}
	EmailSendLatency.WithLabelValues(provider, resultLabel(err)).Observe(ms)
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
