// Package metrics exposes Prometheus collectors for the search core.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "witcher"

// Search status label values.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Metrics holds every collector, registered on one registry.
type Metrics struct {
	registry *prometheus.Registry

	SearchDuration     prometheus.Histogram
	SearchesTotal      *prometheus.CounterVec
	CandidateCount     prometheus.Histogram
	ExtractionOutcomes *prometheus.CounterVec
	IndexBuildDuration *prometheus.GaugeVec
	CorpusScenes       prometheus.Gauge
}

// New creates collectors on a fresh registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.NewRegistry())
}

// NewWithRegistry creates collectors on reg.
func NewWithRegistry(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		SearchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "duration_seconds",
			Help:      "smart_search latency in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}),

		SearchesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "requests_total",
			Help:      "Total number of smart_search requests",
		}, []string{"status"}),

		CandidateCount: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "candidates",
			Help:      "Size of the lexical and semantic candidate union",
			Buckets:   []float64{0, 1, 5, 10, 20, 30, 45, 60, 100},
		}),

		ExtractionOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "extraction",
			Name:      "outcomes_total",
			Help:      "Entity extraction outcomes",
		}, []string{"outcome"}),

		IndexBuildDuration: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "build_duration_seconds",
			Help:      "Duration of the last index build by stage",
		}, []string{"stage"}),

		CorpusScenes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "corpus",
			Name:      "scenes",
			Help:      "Number of scenes loaded",
		}),
	}
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveSearch records one search. A nil receiver is a no-op.
func (m *Metrics) ObserveSearch(d time.Duration, candidates int, outcome string, err error) {
	if m == nil {
		return
	}
	status := StatusOK
	if err != nil {
		status = StatusError
	}
	m.SearchesTotal.WithLabelValues(status).Inc()
	m.SearchDuration.Observe(d.Seconds())
	if err != nil {
		return
	}
	m.CandidateCount.Observe(float64(candidates))
	if outcome != "" {
		m.ExtractionOutcomes.WithLabelValues(outcome).Inc()
	}
}

// ObserveBuild records index build timings and the corpus size.
func (m *Metrics) ObserveBuild(scenes int, stages map[string]time.Duration) {
	if m == nil {
		return
	}
	m.CorpusScenes.Set(float64(scenes))
	for stage, d := range stages {
		m.IndexBuildDuration.WithLabelValues(stage).Set(d.Seconds())
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
