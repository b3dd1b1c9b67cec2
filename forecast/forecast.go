// Package forecast projects a future date range from historical weekday
// patterns.
package forecast

import (
	"time"

	"staffing-estimator/aggregator"
	"staffing-estimator/config"
	"staffing-estimator/errors"
	"staffing-estimator/models"
)

const day = 24 * time.Hour

// Extrapolator builds forecast tables. Now is the clock used for the lead
// time check; it defaults to time.Now.
type Extrapolator struct {
	Now func() time.Time
}

// New returns an Extrapolator on the wall clock.
func New() *Extrapolator {
	return &Extrapolator{Now: time.Now}
}

// Window returns the configured forecast window after enforcing the span
// and lead limits. ok is false when no window is configured.
func (x *Extrapolator) Window(cfg config.Config) (start, end time.Time, ok bool, err error) {
	start, end, ok = cfg.Forecast.Range()
	if !ok {
		return start, end, false, nil
	}
	if end.Before(start) {
		return start, end, true, &errors.ConfigError{Field: "forecast.end", Reason: "is before forecast.start"}
	}

	span := int(end.Sub(start)/day) + 1
	if span > cfg.Forecast.MaxSpanDays {
		return start, end, true, &errors.ForecastRangeTooLongError{Days: span, MaxDays: cfg.Forecast.MaxSpanDays}
	}

	if cfg.Forecast.MaxLeadDays > 0 {
		now := x.Now().UTC()
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		lead := int(start.Sub(today) / day)
		if lead > cfg.Forecast.MaxLeadDays {
			return start, end, true, &errors.ForecastStartTooFarError{LeadDays: lead, MaxDays: cfg.Forecast.MaxLeadDays}
		}
	}
	return start, end, true, nil
}

// Extrapolate returns one row per date of the forecast window. Each hour is
// the historical average for that weekday and hour: the weekday total divided
// by the number of distinct historical dates falling on that weekday. Hours
// without any history get a demand of 1. Event uplift applies to target dates
// inside the event window. A nil table is returned when no window is set.
func (x *Extrapolator) Extrapolate(records []models.OrderRecord, cfg config.Config) (*models.ResourceTable, error) {
	start, end, ok, err := x.Window(cfg)
	if err != nil || !ok {
		return nil, err
	}
	return build(aggregator.Collect(records, cfg), cfg, start, end), nil
}

func build(hd *aggregator.HourlyDemand, cfg config.Config, start, end time.Time) *models.ResourceTable {
	width := cfg.CloseHour - cfg.OpenHour + 1

	var (
		dateCount [7]int
		totals    [7][]float64
		seen      [7][]bool
	)
	for i := range totals {
		totals[i] = make([]float64, width)
		seen[i] = make([]bool, width)
	}
	for _, d := range hd.Dates {
		wd := aggregator.WeekdayIndex(d)
		dateCount[wd]++
		for i := 0; i < width; i++ {
			if v, ok := hd.Get(d, cfg.OpenHour+i); ok {
				totals[wd][i] += v
				seen[wd][i] = true
			}
		}
	}

	table := &models.ResourceTable{
		Grouping:  models.GroupByDate,
		OpenHour:  cfg.OpenHour,
		CloseHour: cfg.CloseHour,
		Rows:      make([]models.ResourceRow, 0, int(end.Sub(start)/day)+1),
	}
	productivity := cfg.EffectiveProductivity()

	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		wd := aggregator.WeekdayIndex(d)
		multiplier := cfg.Event.Multiplier(d)
		row := models.ResourceRow{
			Key:       d.Format(config.DateLayout),
			Date:      d,
			Weekday:   wd,
			Demand:    make([]float64, width),
			Resources: make([]int, width),
			InEvent:   cfg.Event.Contains(d),
		}
		for i := 0; i < width; i++ {
			demand := 1.0
			if seen[wd][i] {
				demand = totals[wd][i] / float64(dateCount[wd]) * multiplier
			}
			row.Demand[i] = demand
			row.Resources[i] = aggregator.Resources(demand, productivity)
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}
