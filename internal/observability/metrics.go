package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	Recomputes      *prometheus.CounterVec
	Classifications *prometheus.CounterVec
	Alerts          *prometheus.CounterVec
	Requests        *prometheus.CounterVec
	RateLimited     prometheus.Counter

	RecomputeDuration prometheus.Histogram
	MemoriesCached    prometheus.Gauge
}

// NewTestMetrics registers against a private registry so tests can build as
// many as they like.
func NewTestMetrics() *Metrics {
	return NewMetrics("test", prometheus.NewRegistry())
}

func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Recomputes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recomputes_total",
			Help:      "Movement memory recomputes by result.",
		}, []string{"result"}),
		Classifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classifications_total",
			Help:      "Logged sets classified, by outcome.",
		}, []string{"outcome"}),
		Alerts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_total",
			Help:      "Alerts attached to served suggestions, by type.",
		}, []string{"type"}),
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "The total number of incoming requests.",
		}, []string{"method", "status"}),
		RateLimited: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_requests_total",
			Help:      "The total number of rate limited requests.",
		}),
		RecomputeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recompute_duration_seconds",
			Help:      "Time to load history and re-derive one memory.",
			Buckets:   []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		}),
		MemoriesCached: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "memories_cached",
			Help:      "Memory snapshots currently held in the read cache.",
		}),
	}
}

// Recompute results.
const (
	ResultUpdated = "updated"
	ResultRetired = "retired"
	ResultSkipped = "skipped"
	ResultError   = "error"
)

func (m *Metrics) ObserveRecompute(result string, d time.Duration) {
	m.Recomputes.WithLabelValues(result).Inc()
	m.RecomputeDuration.Observe(d.Seconds())
}

// Handler serves the metrics of a gatherer.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
