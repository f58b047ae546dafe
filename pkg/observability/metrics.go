package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics of matching runs.
type Metrics struct {
	ComparisonsTotal        *prometheus.CounterVec
	LinksTotal              *prometheus.CounterVec
	RelationCandidatesTotal *prometheus.CounterVec
	StageSeconds            *prometheus.HistogramVec
}

// NewMetrics registers the metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ComparisonsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tlr_comparisons_total",
				Help: "Similarity comparisons by result",
			},
			[]string{"result"},
		),
		LinksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tlr_links_total",
				Help: "Link insertions by kind, merges included",
			},
			[]string{"kind"},
		),
		RelationCandidatesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tlr_relation_candidates_total",
				Help: "Candidate relations by matching outcome",
			},
			[]string{"outcome"},
		),
		StageSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tlr_stage_seconds",
				Help:    "Stage duration",
				Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
			},
			[]string{"stage"},
		),
	}
}

// ObserveComparison counts a similarity decision.
func (m *Metrics) ObserveComparison(similar bool) {
	result := "dissimilar"
	if similar {
		result = "similar"
	}
	m.ComparisonsTotal.WithLabelValues(result).Inc()
}

// LinkAdded counts a link insertion.
func (m *Metrics) LinkAdded(kind string) {
	m.LinksTotal.WithLabelValues(kind).Inc()
}

// RelationCandidate counts a candidate relation outcome.
func (m *Metrics) RelationCandidate(outcome string) {
	m.RelationCandidatesTotal.WithLabelValues(outcome).Inc()
}

// ObserveStage records a stage duration.
func (m *Metrics) ObserveStage(stage string, seconds float64) {
	m.StageSeconds.WithLabelValues(stage).Observe(seconds)
}

// WriteTextfile writes every metric gathered by g to path in the Prometheus
// text format, for the node exporter textfile collector.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	return prometheus.WriteToTextfile(path, g)
}
