// Package metrics exposes Prometheus collectors for the classification core.
//
// All methods are safe to call on a nil *Metrics, so components can be built
// without instrumentation in tests and in the one-shot CLI.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "swiftguard"

// Metrics holds every collector on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	verdicts      *prometheus.CounterVec
	decisions     *prometheus.CounterVec
	lookups       *prometheus.CounterVec
	events        *prometheus.CounterVec
	modelLatency  *prometheus.HistogramVec
	episodes      prometheus.Gauge
	coalesced     prometheus.Counter
	notifyDropped prometheus.Counter
}

// New creates the collectors and registers them with Go runtime and process metrics.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		verdicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verdicts_total",
			Help:      "Terminal page verdicts by pipeline.",
		}, []string{"pipeline", "verdict"}),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interceptor_decisions_total",
			Help:      "Chatbot message decisions by monitoring mode.",
		}, []string{"mode", "outcome"}),
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "factcheck_lookups_total",
			Help:      "Fact-check lookups by outcome.",
		}, []string{"outcome"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "family_events_total",
			Help:      "Family-monitoring events by type and outcome.",
		}, []string{"type", "outcome"}),
		modelLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "model_prompt_seconds",
			Help:      "Language model prompt latency by pipeline.",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"pipeline"}),
		episodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "processing_episodes",
			Help:      "Page processing episodes currently running.",
		}),
		coalesced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coalesced_requests_total",
			Help:      "Classification requests merged into a running episode.",
		}),
		notifyDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_dropped_total",
			Help:      "Notifications lost because a subscriber was too slow.",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.verdicts, m.decisions, m.lookups, m.events, m.modelLatency,
		m.episodes, m.coalesced, m.notifyDropped,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Verdict counts a terminal verdict.
func (m *Metrics) Verdict(pipeline, verdict string) {
	if m == nil {
		return
	}
	m.verdicts.WithLabelValues(pipeline, verdict).Inc()
}

// Decision counts an interceptor decision. outcome is proceed, blocked or error.
func (m *Metrics) Decision(mode, outcome string) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(mode, outcome).Inc()
}

// Lookup counts a fact-check lookup.
func (m *Metrics) Lookup(err error) {
	if m == nil {
		return
	}
	m.lookups.WithLabelValues(outcome(err)).Inc()
}

// Event counts a family event emission.
func (m *Metrics) Event(eventType string, err error) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(eventType, outcome(err)).Inc()
}

// ModelPrompt records the duration of a prompt started at start.
func (m *Metrics) ModelPrompt(pipeline string, start time.Time) {
	if m == nil {
		return
	}
	m.modelLatency.WithLabelValues(pipeline).Observe(time.Since(start).Seconds())
}

// EpisodeStarted increments the running episode gauge.
func (m *Metrics) EpisodeStarted() {
	if m == nil {
		return
	}
	m.episodes.Inc()
}

// EpisodeFinished decrements the running episode gauge.
func (m *Metrics) EpisodeFinished() {
	if m == nil {
		return
	}
	m.episodes.Dec()
}

// Coalesced counts a request merged into a running episode.
func (m *Metrics) Coalesced() {
	if m == nil {
		return
	}
	m.coalesced.Inc()
}

// NotificationDropped counts a lost notification.
func (m *Metrics) NotificationDropped() {
	if m == nil {
		return
	}
	m.notifyDropped.Inc()
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
