// Package metrics exposes Prometheus collectors for the HTTP surface and the
// upstream Telegram call path.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	apiRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "telegate_api_requests_total",
		Help: "API requests by method, route and status code.",
	}, []string{"method", "route", "status"})

	apiDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "telegate_api_request_duration_seconds",
		Help:    "API request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	activeRequests = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "telegate_api_active_requests",
		Help: "In-flight API requests.",
	})

	upstreamCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "telegate_upstream_calls_total",
		Help: "Upstream Telegram calls by operation and outcome.",
	}, []string{"operation", "outcome"})

	upstreamRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "telegate_upstream_retries_total",
		Help: "Upstream retries by failure classification.",
	}, []string{"kind"})

	floodWaitSeconds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "telegate_flood_wait_seconds_total",
		Help: "Total seconds slept honoring upstream FLOOD_WAIT demands.",
	})
)

// RecordAPIRequest records one finished HTTP request.
func RecordAPIRequest(method, route, status string, elapsed time.Duration) {
	apiRequests.WithLabelValues(method, route, status).Inc()
	apiDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// TrackActiveRequest adjusts the in-flight request gauge.
func TrackActiveRequest(start bool) {
	if start {
		activeRequests.Inc()
	} else {
		activeRequests.Dec()
	}
}

// RecordUpstreamCall records one upstream invocation outcome ("ok",
// "transient", "flood_wait", "fatal").
func RecordUpstreamCall(operation, outcome string) {
	upstreamCalls.WithLabelValues(operation, outcome).Inc()
}

// RecordRetry counts a retry decision by classification.
func RecordRetry(kind string) {
	upstreamRetries.WithLabelValues(kind).Inc()
}

// RecordFloodWait accumulates slept flood-wait time.
func RecordFloodWait(d time.Duration) {
	floodWaitSeconds.Add(d.Seconds())
}
