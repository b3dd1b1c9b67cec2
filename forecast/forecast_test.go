package forecast_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staffing-estimator/config"
	customerrors "staffing-estimator/errors"
	"staffing-estimator/forecast"
	"staffing-estimator/models"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func fixedClock(t time.Time) *forecast.Extrapolator {
	return &forecast.Extrapolator{Now: func() time.Time { return t }}
}

// history has two Mondays and one Tuesday.
func history() []models.OrderRecord {
	return []models.OrderRecord{
		{Date: day(2024, 3, 4), Hour: 10, Items: 100},
		{Date: day(2024, 3, 11), Hour: 10, Items: 300},
		{Date: day(2024, 3, 11), Hour: 12, Items: 50},
		{Date: day(2024, 3, 5), Hour: 10, Items: 450},
	}
}

func TestExtrapolate_WeekdayAverage(t *testing.T) {
	cfg := config.Default()
	cfg.Forecast.Start = "2024-04-01" // Monday
	cfg.Forecast.End = "2024-04-03"   // Wednesday

	table, err := fixedClock(day(2024, 3, 20)).Extrapolate(history(), cfg)
	require.NoError(t, err)
	require.Len(t, table.Rows, 3)
	assert.Equal(t, models.GroupByDate, table.Grouping)

	monday := table.Rows[0]
	assert.Equal(t, "2024-04-01", monday.Key)
	assert.Equal(t, 0, monday.Weekday)
	assert.InDelta(t, 200.0, monday.Demand[10-8], 1e-9, "(100+300)/2 Mondays")
	assert.Equal(t, 2, monday.Resources[10-8])
	assert.InDelta(t, 25.0, monday.Demand[12-8], 1e-9, "50 over both Mondays")
	assert.Equal(t, 1, monday.Resources[12-8])
	assert.Equal(t, 1.0, monday.Demand[9-8], "no history for the hour")

	tuesday := table.Rows[1]
	assert.Equal(t, 5, tuesday.Resources[10-8])

	wednesday := table.Rows[2]
	for i, v := range wednesday.Resources {
		assert.Equal(t, 1, v, "weekday never seen, hour %d", i+8)
		assert.Equal(t, 1.0, wednesday.Demand[i])
	}
}

func TestExtrapolate_EventUplift(t *testing.T) {
	cfg := config.Default()
	cfg.Forecast.Start = "2024-04-01"
	cfg.Forecast.End = "2024-04-08"
	cfg.Event = config.EventWindow{Start: "2024-04-08", End: "2024-04-08", ImpactPercent: 100}

	table, err := fixedClock(day(2024, 3, 20)).Extrapolate(history(), cfg)
	require.NoError(t, err)
	require.Len(t, table.Rows, 8)

	first, last := table.Rows[0], table.Rows[7]
	assert.False(t, first.InEvent)
	assert.Equal(t, 2, first.Resources[10-8])
	assert.True(t, last.InEvent)
	assert.InDelta(t, 400.0, last.Demand[10-8], 1e-9)
	assert.Equal(t, 4, last.Resources[10-8])
}

func TestExtrapolate_Limits(t *testing.T) {
	tests := map[string]struct {
		start         string
		end           string
		maxLead       int
		expectedError error
		expectedRows  int
	}{
		"ThirtyDaysAllowed":   {start: "2024-04-01", end: "2024-04-30", expectedRows: 30},
		"FortyFiveDays":       {start: "2024-04-01", end: "2024-05-15", expectedError: customerrors.ErrForecastRange},
		"ThirtyOneDays":       {start: "2024-04-01", end: "2024-05-01", expectedError: customerrors.ErrForecastRange},
		"SingleDay":           {start: "2024-04-01", end: "2024-04-01", expectedRows: 1},
		"EndBeforeStart":      {start: "2024-04-02", end: "2024-04-01", expectedError: customerrors.ErrInvalidConfig},
		"LeadWithinLimit":     {start: "2024-04-10", end: "2024-04-12", maxLead: 21, expectedRows: 3},
		"LeadBeyondLimit":     {start: "2024-04-11", end: "2024-04-12", maxLead: 21, expectedError: customerrors.ErrForecastLead},
		"LeadIgnoredWhenZero": {start: "2024-09-01", end: "2024-09-02", expectedRows: 2},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Forecast.Start = tt.start
			cfg.Forecast.End = tt.end
			cfg.Forecast.MaxLeadDays = tt.maxLead

			table, err := fixedClock(time.Date(2024, 3, 20, 15, 30, 0, 0, time.UTC)).Extrapolate(history(), cfg)
			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, table, "no partial table")
				return
			}
			require.NoError(t, err)
			assert.Len(t, table.Rows, tt.expectedRows)
		})
	}
}

func TestExtrapolate_RangeErrorDetails(t *testing.T) {
	cfg := config.Default()
	cfg.Forecast.Start = "2024-04-01"
	cfg.Forecast.End = "2024-05-15"

	_, err := forecast.New().Extrapolate(history(), cfg)
	var rangeErr *customerrors.ForecastRangeTooLongError
	require.ErrorAs(t, err, &rangeErr)
	assert.Equal(t, 45, rangeErr.Days)
	assert.Equal(t, 30, rangeErr.MaxDays)
}

func TestExtrapolate_NoWindow(t *testing.T) {
	table, err := forecast.New().Extrapolate(history(), config.Default())
	require.NoError(t, err)
	assert.Nil(t, table)
}

func TestExtrapolate_EmptyHistory(t *testing.T) {
	cfg := config.Default()
	cfg.Forecast.Start = "2024-04-01"
	cfg.Forecast.End = "2024-04-07"

	table, err := forecast.New().Extrapolate(nil, cfg)
	require.NoError(t, err)
	require.Len(t, table.Rows, 7)
	for _, row := range table.Rows {
		assert.Equal(t, 1, row.Peak())
	}
}
