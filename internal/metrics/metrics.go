// Package metrics defines the Prometheus collectors of the serving layer.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/teslashibe/go-motionblend/pkg/transition"
)

const namespace = "motionblend"

// Metrics holds the collectors, registered on their own registry.
type Metrics struct {
	registry *prometheus.Registry

	RequestCount    *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	Transitions      prometheus.Counter
	TransitionFrames prometheus.Histogram
	GenerateLatency  prometheus.Histogram
	Quality          *prometheus.HistogramVec
	Failures         *prometheus.CounterVec

	StreamClients prometheus.Gauge
}

// New creates and registers the collectors, plus the Go runtime and process
// collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RequestCount: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		Transitions: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transitions_total",
				Help:      "Total number of generated transitions",
			},
		),
		TransitionFrames: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "transition_frames",
				Help:      "Frames per generated transition",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 11),
			},
		),
		GenerateLatency: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "generate_latency_seconds",
				Help:      "End-to-end transition generation latency in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
			},
		),
		Quality: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "transition_quality",
				Help:      "Quality scores of generated transitions",
				Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
			},
			[]string{"metric"},
		),
		Failures: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "failures_total",
				Help:      "Failed requests by error code",
			},
			[]string{"code"},
		),
		StreamClients: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "stream_clients",
				Help:      "Connected frame stream clients",
			},
		),
	}
}

// Registry returns the registry holding every collector.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveRequest records one HTTP request.
func (m *Metrics) ObserveRequest(method, route, status string, elapsed time.Duration) {
	m.RequestCount.WithLabelValues(method, route, status).Inc()
	m.RequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ObserveTransition records one generated transition.
func (m *Metrics) ObserveTransition(frames int, elapsed time.Duration, q transition.Metrics) {
	m.Transitions.Inc()
	m.TransitionFrames.Observe(float64(frames))
	m.GenerateLatency.Observe(elapsed.Seconds())
	m.Quality.WithLabelValues("smoothness").Observe(q.Smoothness)
	m.Quality.WithLabelValues("naturalness").Observe(q.Naturalness)
	m.Quality.WithLabelValues("style_preservation").Observe(q.StylePreservation)
	m.Quality.WithLabelValues("temporal_consistency").Observe(q.TemporalConsistency)
}

// ObserveFailure counts a failed request by its error code.
func (m *Metrics) ObserveFailure(code string) {
	m.Failures.WithLabelValues(code).Inc()
}
