package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for the server. Each Server owns
// its own registry so independent instances (and tests) never collide on
// registration.
type Metrics struct {
	registry       *prometheus.Registry
	requestTotal   *prometheus.CounterVec
	requestLatency prometheus.Histogram
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "corrgate_requests_total",
				Help: "Total number of requests processed",
			},
			[]string{"method", "path", "status"},
		),
		requestLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "corrgate_request_duration_seconds",
				Help:    "Request latency in seconds",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
			},
		),
	}
	m.registry.MustRegister(m.requestTotal, m.requestLatency)
	return m
}

// Observe records one completed request.
func (m *Metrics) Observe(method, path string, status int, elapsed time.Duration) {
	m.requestTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.requestLatency.Observe(elapsed.Seconds())
}

// Handler serves this server's registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
