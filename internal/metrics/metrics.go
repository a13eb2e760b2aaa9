// Package metrics exposes the service's Prometheus instruments. A nil
// *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "scantrack"

// Scan outcomes.
const (
	OutcomeRedirected  = "redirected"
	OutcomeNotFound    = "not_found"
	OutcomeDeactivated = "deactivated"
	OutcomeTimeout     = "timeout"
	OutcomeFailed      = "failed"
)

type Metrics struct {
	reg prometheus.Registerer

	scans             *prometheus.CounterVec
	scanDuration      prometheus.Histogram
	liveDropped       prometheus.Counter
	relayDropped      prometheus.Counter
	analyticsDuration *prometheus.HistogramVec
	codesCreated      prometheus.Counter
}

// New registers every instrument with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		reg: reg,
		scans: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scans_total",
			Help:      "Scan requests by outcome.",
		}, []string{"outcome"}),
		scanDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scan_duration_seconds",
			Help:      "Time from scan request to redirect decision.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2},
		}),
		liveDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "live_messages_dropped_total",
			Help:      "Scan updates discarded because a live subscriber queue was full.",
		}),
		relayDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_messages_dropped_total",
			Help:      "Scan updates discarded because the relay outbox was full.",
		}),
		analyticsDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analytics_query_duration_seconds",
			Help:      "Aggregation query latency by query.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}, []string{"query"}),
		codesCreated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "codes_created_total",
			Help:      "Code records created.",
		}),
	}
}

func (m *Metrics) ObserveScan(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.scans.WithLabelValues(outcome).Inc()
	m.scanDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveQuery(query string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.analyticsDuration.WithLabelValues(query).Observe(elapsed.Seconds())
}

func (m *Metrics) LiveDropped() {
	if m == nil {
		return
	}
	m.liveDropped.Inc()
}

func (m *Metrics) RelayDropped() {
	if m == nil {
		return
	}
	m.relayDropped.Inc()
}

func (m *Metrics) CodeCreated() {
	if m == nil {
		return
	}
	m.codesCreated.Inc()
}

// WatchSubscribers exports count as the live subscriber gauge.
func (m *Metrics) WatchSubscribers(count func() int) {
	if m == nil {
		return
	}
	promauto.With(m.reg).NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "live_subscribers",
		Help:      "Currently connected live subscribers.",
	}, func() float64 { return float64(count()) })
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
