package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	PhaseLabel     = "phase"
	OperationLabel = "operation"
	ResultLabel    = "result"
	Outcome        = "outcome"

	Satisfiable   = "sat"
	Unsatisfiable = "unsat"

	Admissible   = "admissible"
	Rejected     = "rejected"
	Consistent   = "consistent"
	Inconsistent = "inconsistent"
	Failed       = "failed"
)

// Phases of the coloring engine timed by ObservePhase.
const (
	PhaseBuild            = "build"
	PhaseColorChoices     = "color_choices"
	PhaseHarmonizing      = "harmonizing_variants"
	PhaseFamilyCheck      = "family_check"
	PhaseExploration      = "state_exploration"
	PhaseSchedulerCheck   = "scheduler_check"
	PhaseConsistency      = "consistency"
	PhaseCoreDerivation   = "core_derivation"
	PhaseCoreAnalysis     = "core_analysis"
	PhaseCoreMinimization = "core_minimization"
)

// Operations of the coloring engine counted by EmitQuery.
const (
	SelectCompatibleChoices = "select_compatible_choices"
	AreChoicesConsistent    = "are_choices_consistent"
)

// To add new metrics:
// 1. Register new metrics in RegisterWith() below.
// 2. Add an Emit/Observe helper used by the engine.
var (
	phaseDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "coloring_phase_duration_seconds",
			Help:    "Time spent in a phase of the coloring engine",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		},
		[]string{PhaseLabel},
	)

	solverChecks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coloring_solver_checks_total",
			Help: "Monotonic count of solver checks by result",
		},
		[]string{ResultLabel},
	)

	solverCheckDuration = prometheus.NewSummary(
		prometheus.SummaryOpts{
			Name:       "coloring_solver_check_duration_seconds",
			Help:       "The duration of a single solver check",
			Objectives: map[float64]float64{0.95: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
	)

	queries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coloring_queries_total",
			Help: "Monotonic count of engine queries by operation and outcome",
		},
		[]string{OperationLabel, Outcome},
	)

	unsatCoreSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "coloring_unsat_core_size",
			Help:    "Number of (choice, path) pairs in reported unsat cores",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
	)
)

// Register registers the engine metrics with the default registry.
func Register() {
	RegisterWith(prometheus.DefaultRegisterer)
}

func RegisterWith(r prometheus.Registerer) {
	r.MustRegister(phaseDuration)
	r.MustRegister(solverChecks)
	r.MustRegister(solverCheckDuration)
	r.MustRegister(queries)
	r.MustRegister(unsatCoreSize)
}

// ObservePhase records the time elapsed since start for a phase. It is
// meant to be deferred:
//
//	defer metrics.ObservePhase(metrics.PhaseExploration, time.Now())
func ObservePhase(phase string, start time.Time) {
	phaseDuration.WithLabelValues(phase).Observe(time.Since(start).Seconds())
}

func EmitSolverCheck(sat bool, duration time.Duration) {
	result := Unsatisfiable
	if sat {
		result = Satisfiable
	}
	solverChecks.WithLabelValues(result).Inc()
	solverCheckDuration.Observe(duration.Seconds())
}

func EmitQuery(operation, outcome string) {
	queries.WithLabelValues(operation, outcome).Inc()
}

func EmitUnsatCore(size int) {
	unsatCoreSize.Observe(float64(size))
}
