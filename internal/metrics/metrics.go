// Package metrics declares the Prometheus collectors shared by the fxledger
// binaries.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome label values.
const (
	OutcomeOK          = "ok"
	OutcomeUnavailable = "unavailable"
	OutcomeRejected    = "rejected"
	OutcomeError       = "error"
)

var (
	RateLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fxledger_rate_lookups_total",
			Help: "Exchange rate lookups by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)
	RateLookupDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fxledger_rate_lookup_duration_seconds",
			Help:    "Latency of exchange rate lookups",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)
	LedgerWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fxledger_ledger_writes_total",
			Help: "Ledger rows written or rejected",
		},
		[]string{"operation", "outcome"},
	)
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fxledger_http_requests_total",
			Help: "HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fxledger_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	RateLimited = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fxledger_rate_limited_total",
			Help: "Requests blocked by the rate limiter",
		},
		[]string{"route"},
	)
	WorkerMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fxledger_worker_messages_total",
			Help: "Messages handled by the worker by outcome",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(
		RateLookups,
		RateLookupDuration,
		LedgerWrites,
		HTTPRequests,
		HTTPDuration,
		RateLimited,
		WorkerMessages,
	)
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
