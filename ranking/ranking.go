// Package ranking orders pickers by productivity.
package ranking

import (
	"cmp"
	"math"
	"slices"
	"strings"

	"staffing-estimator/models"
)

type tally struct {
	stat       models.PickerStat
	timedItems int
	onTime     int
	rated      int
}

// Rank returns pickers ordered by items per active picking hour, then on-time
// rate, then items. Active time is the sum of end minus start over orders
// carrying both timestamps. Pickers without any active time follow the timed
// ones, ordered by items. Unknown pickers are excluded. limit <= 0 keeps all.
func Rank(records []models.OrderRecord, limit int) []models.PickerStat {
	byPicker := make(map[string]*tally)
	for _, r := range records {
		id := strings.TrimSpace(r.PickerID)
		if id == "" || strings.EqualFold(id, models.Unknown) {
			continue
		}
		t, ok := byPicker[id]
		if !ok {
			t = &tally{stat: models.PickerStat{Picker: id}}
			byPicker[id] = t
		}
		t.stat.Orders++
		t.stat.Items += r.Items

		switch r.OnTime {
		case models.OnTimeYes:
			t.onTime++
			t.rated++
		case models.OnTimeNo:
			t.rated++
		}

		if !r.PickingStart.IsZero() && r.PickingEnd.After(r.PickingStart) {
			t.stat.ActiveMinutes += r.PickingEnd.Sub(r.PickingStart).Minutes()
			t.timedItems += r.Items
		}
	}

	out := make([]models.PickerStat, 0, len(byPicker))
	for _, t := range byPicker {
		s := t.stat
		if t.rated > 0 {
			s.OnTimeRate = round(float64(t.onTime)/float64(t.rated), 4)
		}
		if s.ActiveMinutes > 0 {
			s.ItemsPerHour = round(float64(t.timedItems)/(s.ActiveMinutes/60), 2)
		}
		s.ActiveMinutes = round(s.ActiveMinutes, 2)
		out = append(out, s)
	}

	slices.SortFunc(out, compare)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

func compare(a, b models.PickerStat) int {
	aTimed, bTimed := a.ActiveMinutes > 0, b.ActiveMinutes > 0
	if aTimed != bTimed {
		if aTimed {
			return -1
		}
		return 1
	}
	if c := cmp.Compare(b.ItemsPerHour, a.ItemsPerHour); c != 0 {
		return c
	}
	if c := cmp.Compare(b.OnTimeRate, a.OnTimeRate); c != 0 {
		return c
	}
	if c := cmp.Compare(b.Items, a.Items); c != 0 {
		return c
	}
	return cmp.Compare(a.Picker, b.Picker)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
