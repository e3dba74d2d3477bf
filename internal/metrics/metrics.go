// Package metrics exposes Prometheus collectors for the ledger.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Conversion outcomes recorded per returned entry.
const (
	OutcomeConverted = "converted"
	OutcomeFallback  = "fallback"
	OutcomeIdentity  = "identity"
)

// Metrics owns a private registry so tests and multiple servers never collide.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	ledgerOps         *prometheus.CounterVec
	conversions       *prometheus.CounterVec
	rateFetches       *prometheus.CounterVec
	rateFetchDuration prometheus.Histogram
	eventsPublished   *prometheus.CounterVec
	rateLimitExceeded prometheus.Counter
	idempotentReplays prometheus.Counter
	suspicious        prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		httpRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fxledger_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fxledger_http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2, 5},
			},
			[]string{"method", "route"},
		),
		ledgerOps: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fxledger_ledger_operations_total",
				Help: "Ledger operations by kind and result",
			},
			[]string{"operation", "result"},
		),
		conversions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fxledger_conversions_total",
				Help: "Per-entry currency conversion outcomes",
			},
			[]string{"outcome"},
		),
		rateFetches: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fxledger_rate_fetches_total",
				Help: "Exchange rate fetches by result",
			},
			[]string{"result"},
		),
		rateFetchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "fxledger_rate_fetch_duration_seconds",
			Help:    "Duration of exchange rate fetches",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2, 5, 10},
		}),
		eventsPublished: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fxledger_events_published_total",
				Help: "Ledger events handed to the broker",
			},
			[]string{"type", "result"},
		),
		rateLimitExceeded: f.NewCounter(prometheus.CounterOpts{
			Name: "fxledger_rate_limit_exceeded_total",
			Help: "Requests rejected by the rate limiter",
		}),
		idempotentReplays: f.NewCounter(prometheus.CounterOpts{
			Name: "fxledger_idempotent_replays_total",
			Help: "Create requests answered from the idempotency store",
		}),
		suspicious: f.NewCounter(prometheus.CounterOpts{
			Name: "fxledger_suspicious_requests_total",
			Help: "Requests flagged by the security detector",
		}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Metrics) ObserveLedgerOp(op string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.ledgerOps.WithLabelValues(op, result).Inc()
}

func (m *Metrics) ObserveConversion(outcome string) {
	if m == nil {
		return
	}
	m.conversions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveRateFetch(ok bool, d time.Duration) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.rateFetches.WithLabelValues(result).Inc()
	m.rateFetchDuration.Observe(d.Seconds())
}

func (m *Metrics) ObserveEventPublish(eventType string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.eventsPublished.WithLabelValues(eventType, result).Inc()
}

func (m *Metrics) IncRateLimitExceeded() {
	if m == nil {
		return
	}
	m.rateLimitExceeded.Inc()
}

func (m *Metrics) IncIdempotentReplay() {
	if m == nil {
		return
	}
	m.idempotentReplays.Inc()
}

func (m *Metrics) IncSuspiciousRequest() {
	if m == nil {
		return
	}
	m.suspicious.Inc()
}
