// Package aggregator turns normalized orders into hourly demand and the
// resource table derived from it.
package aggregator

import (
	"cmp"
	"math"
	"slices"
	"time"

	"staffing-estimator/config"
	"staffing-estimator/models"
)

// ceilTolerance keeps float noise such as 100.00000000001/100 from adding a resource.
const ceilTolerance = 1e-9

// Resources converts demand to headcount: max(1, ceil(demand/productivity)).
// The floor at 1 keeps every open hour staffed even without history.
func Resources(demand, productivity float64) int {
	if productivity <= 0 || demand <= 0 {
		return 1
	}
	n := int(math.Ceil(demand/productivity - ceilTolerance))
	return max(1, n)
}

// WeekdayIndex maps t to 0 (Monday) .. 6 (Sunday).
func WeekdayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// WeekdayName returns the English name of a Monday-based weekday index.
func WeekdayName(idx int) string {
	return time.Weekday((idx + 1) % 7).String()
}

// Slot keys one calendar date and hour.
type Slot struct {
	Date time.Time
	Hour int
}

// HourlyDemand is the total item count per calendar date and hour.
// A slot is present only when at least one record fell into it.
type HourlyDemand struct {
	Totals  map[Slot]float64
	Dates   []time.Time
	Undated int
}

// Collect sums item counts per (date, hour). Records without a usable date
// cannot be placed and are only counted.
func Collect(records []models.OrderRecord, cfg config.Config) *HourlyDemand {
	hd := &HourlyDemand{Totals: make(map[Slot]float64)}
	seen := make(map[time.Time]bool)

	for _, r := range records {
		if r.Date.IsZero() {
			hd.Undated++
			continue
		}
		if r.Hour < cfg.OpenHour || r.Hour > cfg.CloseHour {
			continue
		}
		hd.Totals[Slot{Date: r.Date, Hour: r.Hour}] += float64(r.Items)
		if !seen[r.Date] {
			seen[r.Date] = true
			hd.Dates = append(hd.Dates, r.Date)
		}
	}
	slices.SortFunc(hd.Dates, func(a, b time.Time) int { return a.Compare(b) })
	return hd
}

// Get returns the total for a slot and whether any record fell into it.
func (hd *HourlyDemand) Get(date time.Time, hour int) (float64, bool) {
	v, ok := hd.Totals[Slot{Date: date, Hour: hour}]
	return v, ok
}

type rowGroup struct {
	key     string
	date    time.Time
	weekday int
	dates   []time.Time
}

// BuildTable groups records by weekday or date (cfg.Grouping) and hour,
// reduces each cell with the configured strategy and converts it to
// resources. Dates inside the event window have their demand multiplied
// before the ceiling step. Cells without any history get a demand of 1.
func BuildTable(records []models.OrderRecord, cfg config.Config) (*models.ResourceTable, error) {
	strategy, err := StrategyFor(cfg.Aggregation)
	if err != nil {
		return nil, err
	}
	hd := Collect(records, cfg)
	return buildFromDemand(hd, cfg, strategy), nil
}

func buildFromDemand(hd *HourlyDemand, cfg config.Config, strategy Strategy) *models.ResourceTable {
	table := &models.ResourceTable{
		Grouping:  cfg.Grouping,
		OpenHour:  cfg.OpenHour,
		CloseHour: cfg.CloseHour,
		Rows:      make([]models.ResourceRow, 0),
	}
	productivity := cfg.EffectiveProductivity()
	width := cfg.CloseHour - cfg.OpenHour + 1

	for _, g := range groupDates(hd.Dates, cfg.Grouping) {
		row := models.ResourceRow{
			Key:       g.key,
			Date:      g.date,
			Weekday:   g.weekday,
			Demand:    make([]float64, width),
			Resources: make([]int, width),
		}
		if !g.date.IsZero() {
			row.InEvent = cfg.Event.Contains(g.date)
		}

		for i := 0; i < width; i++ {
			hour := cfg.OpenHour + i
			values := make([]float64, 0, len(g.dates))
			hasHistory := false
			for _, d := range g.dates {
				v, ok := hd.Get(d, hour)
				hasHistory = hasHistory || ok
				values = append(values, v*cfg.Event.Multiplier(d))
			}

			demand := 1.0
			if hasHistory {
				demand = strategy.Reduce(values)
			}
			row.Demand[i] = demand
			row.Resources[i] = Resources(demand, productivity)
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}

func groupDates(dates []time.Time, grouping models.Grouping) []rowGroup {
	if grouping == models.GroupByDate {
		groups := make([]rowGroup, 0, len(dates))
		for _, d := range dates {
			groups = append(groups, rowGroup{
				key:     d.Format(config.DateLayout),
				date:    d,
				weekday: WeekdayIndex(d),
				dates:   []time.Time{d},
			})
		}
		return groups
	}

	byWeekday := make(map[int]*rowGroup)
	for _, d := range dates {
		idx := WeekdayIndex(d)
		g, ok := byWeekday[idx]
		if !ok {
			g = &rowGroup{key: WeekdayName(idx), weekday: idx}
			byWeekday[idx] = g
		}
		g.dates = append(g.dates, d)
	}
	groups := make([]rowGroup, 0, len(byWeekday))
	for _, g := range byWeekday {
		groups = append(groups, *g)
	}
	slices.SortFunc(groups, func(a, b rowGroup) int { return cmp.Compare(a.weekday, b.weekday) })
	return groups
}
