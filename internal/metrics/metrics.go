// Package metrics exposes the process-wide Prometheus collectors for the
// status service: HTTP traffic and the device simulator.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	candidatesTotal            *prometheus.CounterVec
	recoveredTotal             prometheus.Counter
	activeWorkers              prometheus.Gauge
	rateLimitDelaysSeconds     *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"method", "route"},
		)

		candidatesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keyspace_candidates_total",
				Help: "Candidates processed by simulated devices, labeled by device.",
			},
			[]string{"device"},
		)

		recoveredTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "keyspace_recovered_total",
				Help: "Targets recovered by simulated devices.",
			},
		)

		activeWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "keyspace_active_workers",
				Help: "Number of device workers currently running.",
			},
		)

		rateLimitDelaysSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "keyspace_rate_limit_delays_seconds",
				Help:    "Histogram of simulator rate limit wait durations.",
				Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"device"},
		)
	})
}

// DeviceLabel renders a zero-based device index as its one-based label.
func DeviceLabel(id int) string {
	if id < 0 {
		return "unknown"
	}
	return strconv.Itoa(id + 1)
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveCandidates adds n processed candidates for a device.
func ObserveCandidates(device int, n uint64) {
	candidatesTotal.WithLabelValues(DeviceLabel(device)).Add(float64(n))
}

// ObserveRecovered adds n recovered targets.
func ObserveRecovered(n int) {
	if n > 0 {
		recoveredTotal.Add(float64(n))
	}
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	activeWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	activeWorkers.Dec()
}

// ObserveRateLimitDelay records the duration of a rate limit wait.
func ObserveRateLimitDelay(device int, duration time.Duration) {
	rateLimitDelaysSeconds.WithLabelValues(DeviceLabel(device)).Observe(duration.Seconds())
}
