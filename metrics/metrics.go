// Package metrics provides Prometheus observability metrics for the staffing estimator.
// It includes Critical and Important metrics for business and operational visibility.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry is the custom prometheus registry for our application
var Registry = prometheus.NewRegistry()

// factory allows us to register metrics to our custom Registry directly
var factory = promauto.With(Registry)

// =============================================================================
// CRITICAL METRICS - Business Impact Visibility
// =============================================================================

// ResourcesRequiredPeak tracks the highest hourly requirement of the last run.
var ResourcesRequiredPeak = factory.NewGauge(prometheus.GaugeOpts{
	Namespace: "estimator",
	Name:      "resources_required_peak",
	Help:      "Highest hourly resource requirement of the last completed run",
})

// ShiftResourcesRequired tracks the sum of required resources across shift blocks.
var ShiftResourcesRequired = factory.NewGauge(prometheus.GaugeOpts{
	Namespace: "estimator",
	Name:      "shift_resources_required_total",
	Help:      "Sum of required resources across all shift blocks of the last completed run",
})

// ShiftResourcesAssigned tracks the sum of assigned resources after the cap.
var ShiftResourcesAssigned = factory.NewGauge(prometheus.GaugeOpts{
	Namespace: "estimator",
	Name:      "shift_resources_assigned_total",
	Help:      "Sum of assigned resources across all shift blocks of the last completed run",
})

// ShiftResourcesUnmet tracks headcount that the cap could not cover.
// High values indicate capacity planning issues.
var ShiftResourcesUnmet = factory.NewGauge(prometheus.GaugeOpts{
	Namespace: "estimator",
	Name:      "shift_resources_unmet_total",
	Help:      "Required resources not covered by the headcount cap in the last completed run",
})

// ShiftBlocksUnderStaffed tracks blocks whose requirement exceeds the cap.
var ShiftBlocksUnderStaffed = factory.NewGauge(prometheus.GaugeOpts{
	Namespace: "estimator",
	Name:      "shift_blocks_under_staffed",
	Help:      "Number of shift blocks in the last completed run where required resources exceed the cap",
})

// ForecastResourcesByDay tracks the forecast peak requirement per target date.
var ForecastResourcesByDay = factory.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "estimator",
	Name:      "forecast_resources_peak",
	Help:      "Forecast peak hourly resource requirement by date of the last completed run",
}, []string{"date"})

// =============================================================================
// IMPORTANT METRICS - Operational Health
// =============================================================================

// ParserErrorsTotal tracks parse errors by error type.
var ParserErrorsTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "parser",
	Name:      "errors_total",
	Help:      "Total parse errors by error type",
}, []string{"error_type"})

// ParserRecordsTotal tracks total records kept after normalization.
var ParserRecordsTotal = factory.NewCounter(prometheus.CounterOpts{
	Namespace: "parser",
	Name:      "records_total",
	Help:      "Total records kept after normalization",
})

// ParserRowsDroppedTotal tracks rows excluded by normalization filters.
var ParserRowsDroppedTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "parser",
	Name:      "rows_dropped_total",
	Help:      "Rows excluded during normalization by reason",
}, []string{"reason"})

// ParserCoercedTotal tracks records with at least one value defaulted.
var ParserCoercedTotal = factory.NewCounter(prometheus.CounterOpts{
	Namespace: "parser",
	Name:      "coerced_total",
	Help:      "Records kept with at least one unparsable value coerced to a default",
})

// ParserDurationSeconds tracks time to normalize input files.
var ParserDurationSeconds = factory.NewHistogram(prometheus.HistogramOpts{
	Namespace: "parser",
	Name:      "duration_seconds",
	Help:      "Time taken to normalize the input rows",
	Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
})

// EstimatorDurationSeconds tracks time to run the whole pipeline.
var EstimatorDurationSeconds = factory.NewHistogram(prometheus.HistogramOpts{
	Namespace: "estimator",
	Name:      "duration_seconds",
	Help:      "Time taken to run the estimation pipeline",
	Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1},
})

// EstimatorRunsTotal tracks pipeline runs by outcome.
var EstimatorRunsTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "estimator",
	Name:      "runs_total",
	Help:      "Estimation runs by outcome",
}, []string{"outcome"})

// =============================================================================
// Helper Functions
// =============================================================================

// ResetRunGauges clears the per-run gauges. Callers publishing a run hold a
// lock across the reset and the new values.
func ResetRunGauges() {
	ResourcesRequiredPeak.Set(0)
	ShiftResourcesRequired.Set(0)
	ShiftResourcesAssigned.Set(0)
	ShiftResourcesUnmet.Set(0)
	ShiftBlocksUnderStaffed.Set(0)
	ForecastResourcesByDay.Reset()
}
