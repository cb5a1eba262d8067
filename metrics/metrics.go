package metrics

import (
	"net/http"

	"gamestake/aggregator"
	"gamestake/events"
	"gamestake/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gamestake"

// Metrics exports ingestion signals to Prometheus. It implements the
// source and aggregator observer interfaces.
type Metrics struct {
	registry *prometheus.Registry

	outcomes     *prometheus.CounterVec
	alerts       *prometheus.CounterVec
	skippedLogs  *prometheus.CounterVec
	sourceErrors prometheus.Counter
	pending      prometheus.Gauge
	cursor       prometheus.Gauge
	head         prometheus.Gauge
}

// New creates the collectors on a private registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Events handled by the aggregator, by kind and outcome.",
		}, []string{"kind", "outcome"}),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "consistency_alerts_total",
			Help:      "Consistency alerts raised, by category.",
		}, []string{"category"}),
		skippedLogs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "skipped_logs_total",
			Help:      "Chain logs that were not turned into events.",
		}, []string{"reason"}),
		sourceErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_errors_total",
			Help:      "Failed RPC calls against the chain node.",
		}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_events",
			Help:      "Events buffered while waiting for a predecessor.",
		}),
		cursor: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cursor_block",
			Help:      "Next block the source will read.",
		}),
		head: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "chain_head_block",
			Help:      "Latest block reported by the node.",
		}),
	}

	m.registry.MustRegister(
		m.outcomes,
		m.alerts,
		m.skippedLogs,
		m.sourceErrors,
		m.pending,
		m.cursor,
		m.head,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveCursor(next, head uint64) {
	m.cursor.Set(float64(next))
	m.head.Set(float64(head))
}

func (m *Metrics) ObserveSourceError(err error) {
	if err != nil {
		m.sourceErrors.Inc()
	}
}

func (m *Metrics) ObserveSkippedLog(reason string) {
	m.skippedLogs.WithLabelValues(reason).Inc()
}

func (m *Metrics) ObserveOutcome(kind models.EventKind, outcome aggregator.Outcome) {
	m.outcomes.WithLabelValues(string(kind), string(outcome)).Inc()
}

func (m *Metrics) ObserveAlert(category events.AlertCategory) {
	m.alerts.WithLabelValues(string(category)).Inc()
}

func (m *Metrics) ObservePending(count int) {
	m.pending.Set(float64(count))
}
