package estimator_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staffing-estimator/config"
	customerrors "staffing-estimator/errors"
	"staffing-estimator/estimator"
	"staffing-estimator/logging"
	"staffing-estimator/metrics"
	"staffing-estimator/parser"
)

var fixedNow = time.Date(2024, 3, 20, 9, 0, 0, 0, time.UTC)

func newEstimator() *estimator.Estimator {
	e := estimator.New(logging.Nop())
	e.Now = func() time.Time { return fixedNow }
	e.NewID = func() string { return "run-1" }
	return e
}

func fixture(t *testing.T) [][]string {
	t.Helper()
	f, err := os.Open("testdata/orders.csv")
	require.NoError(t, err)
	defer f.Close()

	rows, err := parser.ReadRows("orders.csv", f)
	require.NoError(t, err)
	return rows
}

func TestRun_Fixture(t *testing.T) {
	result, err := newEstimator().Run(context.Background(), fixture(t), config.Default())
	require.NoError(t, err)

	assert.Equal(t, "run-1", result.RunID)
	assert.Equal(t, fixedNow, result.GeneratedAt)
	assert.Equal(t, 6, result.Stats.Read)
	assert.Equal(t, 4, result.Stats.Kept)
	assert.Equal(t, 1, result.Stats.DroppedStatus)
	assert.Equal(t, 1, result.Stats.DroppedHours)
	assert.Empty(t, result.Warnings)

	require.Len(t, result.Resources.Rows, 2)
	monday, tuesday := result.Resources.Rows[0], result.Resources.Rows[1]
	assert.Equal(t, "Monday", monday.Key)
	assert.Equal(t, 3, monday.Resources[10-8], "ceil(215/100)")
	assert.Equal(t, 1, monday.Resources[14-8])
	assert.Equal(t, "Tuesday", tuesday.Key)
	assert.Equal(t, 3, tuesday.Resources[12-8])

	require.Len(t, result.Shifts.Blocks, 6)
	assert.Equal(t, "08:00-13:00", result.Shifts.Blocks[0].Label)
	assert.Equal(t, 3, result.Shifts.Blocks[0].RequiredResources)
	assert.Equal(t, 10, result.Shifts.Summary.RequiredTotal)

	require.Len(t, result.Models, 2)
	assert.Equal(t, "express", result.Models[0].Model)
	assert.Equal(t, 465, result.Models[0].Items)
	assert.Equal(t, 12, result.Models[0].PeakHour)

	require.Len(t, result.Pickers, 3)
	assert.Equal(t, "p1", result.Pickers[0].Picker)
	assert.InDelta(t, 216.0, result.Pickers[0].ItemsPerHour, 1e-9)
	assert.Equal(t, "p2", result.Pickers[1].Picker)
	assert.Equal(t, "p3", result.Pickers[2].Picker)

	assert.Nil(t, result.Forecast)
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.ResourcesRequiredPeak))
	assert.Equal(t, 10.0, testutil.ToFloat64(metrics.ShiftResourcesRequired))
}

func TestRun_Idempotent(t *testing.T) {
	cfg := config.Default()
	cfg.MaxResources = 2
	cfg.Forecast.Start = "2024-03-25"
	cfg.Forecast.End = "2024-03-31"

	first, err := newEstimator().Run(context.Background(), fixture(t), cfg)
	require.NoError(t, err)
	second, err := newEstimator().Run(context.Background(), fixture(t), cfg)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestRun_Cap(t *testing.T) {
	cfg := config.Default()
	cfg.MaxResources = 2

	result, err := newEstimator().Run(context.Background(), fixture(t), cfg)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Shifts.Summary.UnderStaffedBlocks)
	assert.Equal(t, 2, result.Shifts.Summary.UnmetTotal)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "cap of 2")
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.ShiftBlocksUnderStaffed))
}

func TestRun_Forecast(t *testing.T) {
	cfg := config.Default()
	cfg.Forecast.Start = "2024-03-25"
	cfg.Forecast.End = "2024-03-26"

	result, err := newEstimator().Run(context.Background(), fixture(t), cfg)
	require.NoError(t, err)
	require.NotNil(t, result.Forecast)
	require.Len(t, result.Forecast.Rows, 2)
	assert.Equal(t, 3, result.Forecast.Rows[0].Resources[10-8])
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.ForecastResourcesByDay.WithLabelValues("2024-03-25")))
}

func TestRun_ConcurrentRunsPublishOneForecast(t *testing.T) {
	rows := fixture(t)
	start := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

	const runs = 8
	errs := make(chan error, runs)
	var wg sync.WaitGroup
	for i := 0; i < runs; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			cfg := config.Default()
			cfg.Forecast.Start = start.AddDate(0, 0, 7*i).Format(config.DateLayout)
			cfg.Forecast.End = start.AddDate(0, 0, 7*i+2).Format(config.DateLayout)
			_, err := newEstimator().Run(context.Background(), rows, cfg)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, 3, testutil.CollectAndCount(metrics.ForecastResourcesByDay), "only the last completed run is published")
}

func TestRun_Errors(t *testing.T) {
	tests := map[string]struct {
		rows          [][]string
		mutate        func(*config.Config)
		expectedError error
	}{
		"ForecastSpan45Days": {
			mutate: func(c *config.Config) {
				c.Forecast.Start = "2024-04-01"
				c.Forecast.End = "2024-05-15"
			},
			expectedError: customerrors.ErrForecastRange,
		},
		"ForecastTooFarAhead": {
			mutate: func(c *config.Config) {
				c.Forecast.Start = "2030-01-01"
				c.Forecast.End = "2030-01-02"
				c.Forecast.MaxLeadDays = 21
			},
			expectedError: customerrors.ErrForecastLead,
		},
		"ShiftTooLong": {
			mutate:        func(c *config.Config) { c.ShiftDuration = 10 * time.Hour },
			expectedError: customerrors.ErrInvalidShift,
		},
		"ProductivityOutOfRange": {
			mutate:        func(c *config.Config) { c.Productivity = 5 },
			expectedError: customerrors.ErrInvalidConfig,
		},
		"MissingColumns": {
			rows:          [][]string{{"fecha", "items"}, {"2024-03-04", "3"}},
			expectedError: customerrors.ErrMissingColumn,
		},
		"NoRows": {
			rows:          [][]string{},
			expectedError: customerrors.ErrEmptyInput,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := config.Default()
			if tt.mutate != nil {
				tt.mutate(&cfg)
			}
			rows := tt.rows
			if rows == nil {
				rows = fixture(t)
			}

			result, err := newEstimator().Run(context.Background(), rows, cfg)
			assert.ErrorIs(t, err, tt.expectedError)
			assert.Nil(t, result)
		})
	}
}

func TestRun_EmptyDatasetIsAWarning(t *testing.T) {
	rows := [][]string{
		{"fecha", "items", "estado", "slot_from", "operational_model"},
		{"2024-03-04", "10", "CANCELLED", "10", "express"},
		{"2024-03-04", "10", "FINISHED", "3", "express"},
	}

	result, err := newEstimator().Run(context.Background(), rows, config.Default())
	require.NoError(t, err)

	assert.Equal(t, 2, result.Stats.Read)
	assert.Zero(t, result.Stats.Kept)
	assert.Empty(t, result.Resources.Rows)
	assert.Empty(t, result.Shifts.Blocks)
	assert.Empty(t, result.Models)
	assert.Empty(t, result.Pickers)
	require.NotEmpty(t, result.Warnings)
	assert.Equal(t, (&customerrors.EmptyDatasetError{Read: 2}).Error(), result.Warnings[0])
}

func TestRun_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newEstimator().Run(ctx, fixture(t), config.Default())
	assert.ErrorIs(t, err, context.Canceled)
}
