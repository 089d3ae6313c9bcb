// Package metrics exposes Prometheus metrics for the pagemill service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all pagemill Prometheus metrics.
type Metrics struct {
	// Acquisition metrics
	AcquireRuns    *prometheus.CounterVec // result: complete|error
	PhaseOutcomes  *prometheus.CounterVec // phase, status
	PhaseDuration  prometheus.Histogram
	FieldsUpserted prometheus.Counter

	// Assembly metrics
	Assemblies       *prometheus.CounterVec // result: success|rejected
	SectionsUpserted prometheus.Counter

	// Publish metrics
	Publishes        *prometheus.CounterVec // result: success|conflict|ownership|state_conflict
	PublishConflicts prometheus.Counter
}

// New creates pagemill metrics registered against the given registerer.
// Tests pass a fresh prometheus.NewRegistry().
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		AcquireRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pagemill_acquire_runs_total",
			Help: "Acquisition runs by terminal result",
		}, []string{"result"}),
		PhaseOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pagemill_acquire_phase_outcomes_total",
			Help: "Acquisition phase outcomes by phase and status",
		}, []string{"phase", "status"}),
		PhaseDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "pagemill_acquire_phase_duration_seconds",
			Help:    "Duration of acquisition phases",
			Buckets: prometheus.DefBuckets,
		}),
		FieldsUpserted: factory.NewCounter(prometheus.CounterOpts{
			Name: "pagemill_context_fields_upserted_total",
			Help: "Site context field upserts",
		}),
		Assemblies: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pagemill_assemblies_total",
			Help: "Assembly attempts by result",
		}, []string{"result"}),
		SectionsUpserted: factory.NewCounter(prometheus.CounterOpts{
			Name: "pagemill_sections_upserted_total",
			Help: "Section upserts",
		}),
		Publishes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pagemill_publishes_total",
			Help: "Publish attempts by result",
		}, []string{"result"}),
		PublishConflicts: factory.NewCounter(prometheus.CounterOpts{
			Name: "pagemill_publish_conflicts_total",
			Help: "Publish attempts rejected by address conflicts",
		}),
	}
}
