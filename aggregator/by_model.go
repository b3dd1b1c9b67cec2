package aggregator

import (
	"cmp"
	"slices"

	"staffing-estimator/config"
	"staffing-estimator/models"
)

// ByModel summarizes demand per operational model. The peak is the busiest
// single (date, hour) slot of the model; ties go to the earliest hour.
func ByModel(records []models.OrderRecord, cfg config.Config) []models.ModelDemand {
	type acc struct {
		summary models.ModelDemand
		slots   map[Slot]int
	}
	byModel := make(map[string]*acc)

	for _, r := range records {
		a, ok := byModel[r.OperationalModel]
		if !ok {
			a = &acc{
				summary: models.ModelDemand{Model: r.OperationalModel},
				slots:   make(map[Slot]int),
			}
			byModel[r.OperationalModel] = a
		}
		a.summary.Orders++
		a.summary.Items += r.Items
		if !r.Date.IsZero() {
			a.slots[Slot{Date: r.Date, Hour: r.Hour}] += r.Items
		}
	}

	productivity := cfg.EffectiveProductivity()
	out := make([]models.ModelDemand, 0, len(byModel))
	for _, a := range byModel {
		s := a.summary
		s.PeakHour = -1
		for slot, items := range a.slots {
			if items > s.PeakItems || (items == s.PeakItems && (s.PeakHour < 0 || slot.Hour < s.PeakHour)) {
				s.PeakItems = items
				s.PeakHour = slot.Hour
			}
		}
		s.PeakResources = Resources(float64(s.PeakItems), productivity)
		out = append(out, s)
	}

	slices.SortFunc(out, func(a, b models.ModelDemand) int {
		if c := cmp.Compare(b.Items, a.Items); c != 0 {
			return c
		}
		return cmp.Compare(a.Model, b.Model)
	})
	return out
}
