// Package metrics exposes Prometheus collectors for the companion service.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mindmate"

// Capabilities of the remote AI collaborators.
const (
	CapabilityText          = "text"
	CapabilityImage         = "image"
	CapabilitySpeech        = "speech"
	CapabilityTranscription = "transcription"
)

type Metrics struct {
	registry *prometheus.Registry

	remoteCalls    *prometheus.CounterVec
	remoteDuration *prometheus.HistogramVec
	responses      *prometheus.CounterVec
	activeSessions prometheus.Gauge
	mediaPurged    prometheus.Counter
}

// New registers all collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		remoteCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remote_calls_total",
			Help:      "Remote AI calls by capability and outcome.",
		}, []string{"capability", "outcome"}),
		remoteDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "remote_call_duration_seconds",
			Help:      "Latency of remote AI calls.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40},
		}, []string{"capability"}),
		responses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "responses_total",
			Help:      "Orchestrated responses by classified intent.",
		}, []string{"intent"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Companion sessions currently held in memory.",
		}),
		mediaPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "media_purged_total",
			Help:      "Media assets removed by retention sweeps.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.remoteCalls,
		m.remoteDuration,
		m.responses,
		m.activeSessions,
		m.mediaPurged,
	)
	return m
}

// ObserveRemoteCall records one remote call that started at started.
func (m *Metrics) ObserveRemoteCall(capability string, started time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.remoteCalls.WithLabelValues(capability, outcome).Inc()
	m.remoteDuration.WithLabelValues(capability).Observe(time.Since(started).Seconds())
}

func (m *Metrics) ObserveResponse(intent string) {
	if m == nil {
		return
	}
	m.responses.WithLabelValues(intent).Inc()
}

func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.activeSessions.Inc()
}

func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.activeSessions.Dec()
}

func (m *Metrics) MediaPurged(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.mediaPurged.Add(float64(n))
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
