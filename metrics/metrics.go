// Package metrics exposes Prometheus instruments for the tracker.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lightlink-network/ll-whale-tracker/types"
)

const namespace = "whale_tracker"

// Metrics holds the tracker's Prometheus metrics. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	CandidatesSeen  prometheus.Counter
	Rejected        *prometheus.CounterVec
	Tracked         prometheus.Counter
	Terminal        *prometheus.CounterVec
	Evicted         prometheus.Counter
	InFlight        prometheus.Gauge
	ConfirmDelay    prometheus.Histogram
	SinkErrors      prometheus.Counter
	SubscriptionErr prometheus.Counter
}

// New registers the metrics on their own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		CandidatesSeen: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "classifier",
			Name:      "candidates_total",
			Help:      "Total number of pending candidates delivered to the classifier",
		}),
		Rejected: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "classifier",
			Name:      "rejected_total",
			Help:      "Candidates rejected by the classifier, by reason",
		}, []string{"reason"}),
		Tracked: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "tracked_total",
			Help:      "Qualifying transactions inserted into the registry",
		}),
		Terminal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "watcher",
			Name:      "terminal_total",
			Help:      "Terminal outcomes by status",
		}, []string{"status"}),
		Evicted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sweeper",
			Name:      "evicted_total",
			Help:      "Records evicted after exceeding the TTL",
		}),
		InFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "in_flight",
			Help:      "Records currently held in the registry",
		}),
		ConfirmDelay: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "watcher",
			Name:      "confirmation_delay_seconds",
			Help:      "Delay between first sighting and inclusion",
			Buckets:   []float64{1, 3, 6, 12, 24, 36, 60, 120, 300, 600, 1800},
		}),
		SinkErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sink",
			Name:      "write_errors_total",
			Help:      "Rows that could not be persisted after retries",
		}),
		SubscriptionErr: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "source",
			Name:      "subscription_errors_total",
			Help:      "Candidate subscription failures",
		}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveCandidate() {
	if m == nil {
		return
	}
	m.CandidatesSeen.Inc()
}

func (m *Metrics) ObserveRejection(reason string) {
	if m == nil {
		return
	}
	m.Rejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) ObserveTracked(inFlight int) {
	if m == nil {
		return
	}
	m.Tracked.Inc()
	m.InFlight.Set(float64(inFlight))
}

func (m *Metrics) ObserveTerminal(status types.Status, delay *float64, inFlight int) {
	if m == nil {
		return
	}
	m.Terminal.WithLabelValues(string(status)).Inc()
	if delay != nil {
		m.ConfirmDelay.Observe(*delay)
	}
	m.InFlight.Set(float64(inFlight))
}

func (m *Metrics) ObserveEvicted(inFlight int) {
	if m == nil {
		return
	}
	m.Evicted.Inc()
	m.InFlight.Set(float64(inFlight))
}

func (m *Metrics) ObserveSinkError() {
	if m == nil {
		return
	}
	m.SinkErrors.Inc()
}

func (m *Metrics) ObserveSubscriptionError() {
	if m == nil {
		return
	}
	m.SubscriptionErr.Inc()
}
