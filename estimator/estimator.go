// Package estimator runs the whole staffing pipeline for one input file:
// normalize, aggregate, bucketize, rank and forecast.
package estimator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"staffing-estimator/aggregator"
	"staffing-estimator/config"
	"staffing-estimator/errors"
	"staffing-estimator/forecast"
	"staffing-estimator/metrics"
	"staffing-estimator/models"
	"staffing-estimator/parser"
	"staffing-estimator/ranking"
	"staffing-estimator/scheduler"
)

// Run outcomes reported on estimator_runs_total.
const (
	OutcomeSuccess       = "success"
	OutcomeEmpty         = "empty"
	OutcomeInvalidConfig = "invalid_config"
	OutcomeParseError    = "parse_error"
	OutcomeForecastError = "forecast_error"
	OutcomeCanceled      = "canceled"
)

type Estimator struct {
	Logger     zerolog.Logger
	Aliases    parser.Aliases
	Forecaster *forecast.Extrapolator
	Now        func() time.Time
	NewID      func() string
}

// New returns an Estimator with the default header aliases, the wall clock
// and random run IDs.
func New(logger zerolog.Logger) *Estimator {
	return &Estimator{
		Logger:     logger,
		Aliases:    parser.DefaultAliases(),
		Forecaster: forecast.New(),
		Now:        time.Now,
		NewID:      func() string { return uuid.NewString() },
	}
}

// Run estimates staffing for rows (header first). Configuration, column and
// forecast window problems fail the run. A dataset with no surviving rows does
// not: the result carries an EmptyDatasetError warning and empty tables.
func (e *Estimator) Run(ctx context.Context, rows [][]string, cfg config.Config) (*models.Result, error) {
	start := time.Now()
	defer func() { metrics.EstimatorDurationSeconds.Observe(time.Since(start).Seconds()) }()

	result, outcome, err := e.run(ctx, rows, cfg)
	metrics.EstimatorRunsTotal.WithLabelValues(outcome).Inc()
	if err != nil {
		e.Logger.Error().Err(err).Str("outcome", outcome).Msg("estimation failed")
		return nil, err
	}

	e.Logger.Info().
		Str("run_id", result.RunID).
		Int("rows_read", result.Stats.Read).
		Int("rows_kept", result.Stats.Kept).
		Int("shift_blocks", result.Shifts.Summary.Blocks).
		Int("under_staffed", result.Shifts.Summary.UnderStaffedBlocks).
		Dur("elapsed", time.Since(start)).
		Msg("estimation complete")
	return result, nil
}

func (e *Estimator) run(ctx context.Context, rows [][]string, cfg config.Config) (*models.Result, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, OutcomeCanceled, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, OutcomeInvalidConfig, err
	}
	if _, _, _, err := e.Forecaster.Window(cfg); err != nil {
		return nil, OutcomeForecastError, err
	}

	ds, err := parser.Normalize(rows, e.Aliases, cfg)
	if err != nil {
		return nil, OutcomeParseError, err
	}
	e.Logger.Debug().
		Int("read", ds.Stats.Read).
		Int("dropped_status", ds.Stats.DroppedStatus).
		Int("dropped_hours", ds.Stats.DroppedHours).
		Int("coerced", ds.Stats.Coerced).
		Msg("normalized input")

	if err := ctx.Err(); err != nil {
		return nil, OutcomeCanceled, err
	}

	result := &models.Result{
		RunID:       e.NewID(),
		GeneratedAt: e.Now().UTC(),
		Stats:       ds.Stats,
		Warnings:    []string{},
	}
	outcome := OutcomeSuccess
	if len(ds.Records) == 0 {
		warn := &errors.EmptyDatasetError{Read: ds.Stats.Read}
		e.Logger.Warn().Err(warn).Msg("empty dataset")
		result.Warnings = append(result.Warnings, warn.Error())
		outcome = OutcomeEmpty
	}
	if ds.Stats.Coerced > 0 {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("%d records had unparsable values replaced by defaults", ds.Stats.Coerced))
	}

	if result.Resources, err = aggregator.BuildTable(ds.Records, cfg); err != nil {
		return nil, OutcomeInvalidConfig, err
	}
	if result.Shifts, err = scheduler.GeneratePlan(result.Resources, cfg); err != nil {
		return nil, OutcomeInvalidConfig, err
	}
	if n := result.Shifts.Summary.UnderStaffedBlocks; n > 0 {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("%d shift blocks need more than the cap of %d resources", n, result.Shifts.Cap))
	}

	result.Models = aggregator.ByModel(ds.Records, cfg)
	result.Pickers = ranking.Rank(ds.Records, cfg.Ranking.Limit)

	if result.Forecast, err = e.Forecaster.Extrapolate(ds.Records, cfg); err != nil {
		return nil, OutcomeForecastError, err
	}

	record(result)
	return result, outcome, nil
}

// gaugesMu serializes gauge publication so concurrent runs never interleave.
var gaugesMu sync.Mutex

// record replaces the per-run gauges with the values of result.
func record(result *models.Result) {
	gaugesMu.Lock()
	defer gaugesMu.Unlock()
	metrics.ResetRunGauges()

	peak := 0
	for _, row := range result.Resources.Rows {
		peak = max(peak, row.Peak())
	}
	metrics.ResourcesRequiredPeak.Set(float64(peak))

	s := result.Shifts.Summary
	metrics.ShiftResourcesRequired.Set(float64(s.RequiredTotal))
	metrics.ShiftResourcesAssigned.Set(float64(s.AssignedTotal))
	metrics.ShiftResourcesUnmet.Set(float64(s.UnmetTotal))
	metrics.ShiftBlocksUnderStaffed.Set(float64(s.UnderStaffedBlocks))

	if result.Forecast != nil {
		for _, row := range result.Forecast.Rows {
			metrics.ForecastResourcesByDay.WithLabelValues(row.Key).Set(float64(row.Peak()))
		}
	}
}
