// Package metrics holds the Prometheus collectors shared by the HTTP layer
// and the analysis pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "scanit"

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route and status code.",
	}, []string{"method", "route", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	HTTPInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "http_requests_in_flight",
		Help:      "Requests currently being served.",
	})

	// StrategyAttempts counts fallback strategy attempts; outcome is ok, error, rate_limited, timeout or absent.
	StrategyAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "strategy_attempts_total",
		Help:      "Fallback chain strategy attempts by task, strategy and outcome.",
	}, []string{"task", "strategy", "outcome"})

	// ChainDefaults counts chains that ran out of strategies and returned the safe default.
	ChainDefaults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "chain_defaults_total",
		Help:      "Fallback chains that returned their safe default.",
	}, []string{"task"})

	FacetLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "facet_lookups_total",
		Help:      "Facet requests by facet and result (hit, computed, recomputed).",
	}, []string{"facet", "result"})

	RecordsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "records_created_total",
		Help:      "Analysis records created, by degraded mode.",
	}, []string{"degraded"})
)
