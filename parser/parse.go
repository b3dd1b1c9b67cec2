package parser

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"staffing-estimator/config"
	"staffing-estimator/errors"
	"staffing-estimator/metrics"
	"staffing-estimator/models"
)

// FinishedStatus is the only order status counted as demand.
const FinishedStatus = "FINISHED"

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02 15:04:05-07:00",
	"2006-01-02 15:04:05.000",
	"02/01/2006",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"2/1/2006",
	"02-01-2006",
	"02-01-2006 15:04:05",
	"2006/01/02",
	"2006/01/02 15:04:05",
}

// Excel serials accepted as dates, roughly years 1954 to 2119.
const (
	minSerial = 20000
	maxSerial = 80000
)

var clockLayouts = []string{"15:04:05", "15:04", "3:04PM", "3PM"}

// Normalize turns raw rows (header first) into order records.
// Unparsable values are coerced to sentinels instead of failing the run:
// zero date, hour -1, zero items, "unknown" categories. Rows whose status is
// not FINISHED and rows outside [OpenHour, CloseHour] are excluded.
func Normalize(rows [][]string, aliases Aliases, cfg config.Config) (*models.Dataset, error) {
	start := time.Now()
	defer func() { metrics.ParserDurationSeconds.Observe(time.Since(start).Seconds()) }()

	if len(rows) == 0 {
		metrics.ParserErrorsTotal.WithLabelValues("empty_input").Inc()
		return nil, errors.ErrEmptyInput
	}

	cols, err := ResolveColumns(rows[0], aliases)
	if err != nil {
		metrics.ParserErrorsTotal.WithLabelValues("missing_column").Inc()
		return nil, err
	}

	ds := &models.Dataset{}
	for _, rec := range rows[1:] {
		if isBlank(rec) {
			continue
		}
		ds.Stats.Read++

		status := cols.Get(rec, FieldStatus)
		if !strings.EqualFold(status, FinishedStatus) {
			ds.Stats.DroppedStatus++
			metrics.ParserRowsDroppedTotal.WithLabelValues("status").Inc()
			continue
		}

		record, coerced := buildRecord(rec, cols)
		if record.Hour < cfg.OpenHour || record.Hour > cfg.CloseHour {
			ds.Stats.DroppedHours++
			metrics.ParserRowsDroppedTotal.WithLabelValues("store_hours").Inc()
			continue
		}
		if coerced {
			ds.Stats.Coerced++
		}
		ds.Records = append(ds.Records, record)
	}

	ds.Stats.Kept = len(ds.Records)
	metrics.ParserRecordsTotal.Add(float64(ds.Stats.Kept))
	metrics.ParserCoercedTotal.Add(float64(ds.Stats.Coerced))
	return ds, nil
}

func buildRecord(rec []string, cols ColumnMap) (models.OrderRecord, bool) {
	coerced := false
	r := models.OrderRecord{
		Status:           strings.ToUpper(cols.Get(rec, FieldStatus)),
		OperationalModel: categorical(cols.Get(rec, FieldOperationalModel)),
		PickerID:         categorical(cols.Get(rec, FieldPicker)),
		OnTime:           parseOnTime(cols.Get(rec, FieldOnTime)),
	}

	slotHour, slotDay, slotOK := parseSlot(cols.Get(rec, FieldSlotFrom))
	r.Hour = -1
	if slotOK {
		r.Hour = slotHour
	} else {
		coerced = true
	}

	if day, ok := parseDate(cols.Get(rec, FieldDate)); ok {
		r.Date = day
	} else if !slotDay.IsZero() {
		r.Date = slotDay
	} else {
		coerced = true
	}

	items, ok := parseCount(cols.Get(rec, FieldItems))
	if !ok {
		coerced = true
	}
	r.Items = items

	if t, ok := parseTimestamp(cols.Get(rec, FieldPickingStart)); ok {
		r.PickingStart = t
	}
	if t, ok := parseTimestamp(cols.Get(rec, FieldPickingEnd)); ok {
		r.PickingEnd = t
	}
	return r, coerced
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func categorical(v string) string {
	if v == "" {
		return models.Unknown
	}
	return v
}

// parseDate returns the calendar day of v in UTC.
func parseDate(v string) (time.Time, bool) {
	t, ok := parseTimestamp(v)
	if !ok {
		return time.Time{}, false
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
}

func parseTimestamp(v string) (time.Time, bool) {
	if v == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	// Spreadsheet exports may carry Excel serial dates.
	if serial, err := strconv.ParseFloat(v, 64); err == nil {
		return serialTime(serial)
	}
	return time.Time{}, false
}

// serialTime converts an Excel date serial within a plausible range.
func serialTime(serial float64) (time.Time, bool) {
	if serial < minSerial || serial > maxSerial {
		return time.Time{}, false
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// parseSlot accepts a bare hour ("10"), a clock time ("10:30") or a full
// timestamp. For timestamps the calendar day is returned as well.
func parseSlot(v string) (int, time.Time, bool) {
	if v == "" {
		return -1, time.Time{}, false
	}
	if n, err := strconv.ParseFloat(strings.Replace(v, ",", ".", 1), 64); err == nil && !strings.ContainsAny(v, ":/-") {
		switch {
		case n > 0 && n < 1:
			// Excel time of day: a fraction of 24 hours.
			return int(n*24 + 1e-9), time.Time{}, true
		case n >= 0 && n < 24:
			return int(n), time.Time{}, true
		}
		if t, ok := serialTime(n); ok {
			day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return t.Hour(), day, true
		}
		return -1, time.Time{}, false
	}
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, strings.ToUpper(v)); err == nil {
			return t.Hour(), time.Time{}, true
		}
	}
	if t, ok := parseTimestamp(v); ok {
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		return t.Hour(), day, true
	}
	return -1, time.Time{}, false
}

func parseCount(v string) (int, bool) {
	if v == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(v); err == nil {
		if n < 0 {
			return 0, false
		}
		return n, true
	}
	f, err := strconv.ParseFloat(strings.Replace(v, ",", ".", 1), 64)
	if err != nil || f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int(math.Round(f)), true
}

func parseOnTime(v string) models.OnTime {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "si", "sí", "sim", "s", "on time", "ontime":
		return models.OnTimeYes
	case "0", "false", "no", "n", "nao", "não", "late", "delayed":
		return models.OnTimeNo
	default:
		return models.OnTimeUnknown
	}
}
