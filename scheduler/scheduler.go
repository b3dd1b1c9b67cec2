package scheduler

import (
	"fmt"
	"math"
	"time"

	"staffing-estimator/config"
	"staffing-estimator/errors"
	"staffing-estimator/models"
)

// BlockHours returns the nominal block length for a shift duration, rounded
// up to whole hours. Durations outside 4h..9h are rejected.
func BlockHours(d time.Duration) (int, error) {
	if d < config.MinShiftDuration || d > config.MaxShiftDuration {
		return 0, &errors.InvalidShiftDurationError{
			Minutes: int(d.Minutes()),
			Min:     int(config.MinShiftDuration.Minutes()),
			Max:     int(config.MaxShiftDuration.Minutes()),
		}
	}
	return int(math.Ceil(d.Minutes() / 60)), nil
}

// Span is one block of hours, end inclusive.
type Span struct {
	Start int
	End   int
}

// Partition splits [openHour, closeHour] into consecutive spans of
// blockHours. Each span starts one hour after the previous one ends; the
// last span is truncated at closeHour.
func Partition(openHour, closeHour, blockHours int) []Span {
	if blockHours <= 0 || closeHour < openHour {
		return nil
	}
	spans := make([]Span, 0, (closeHour-openHour)/blockHours+1)
	for start := openHour; start <= closeHour; {
		end := min(start+blockHours-1, closeHour)
		spans = append(spans, Span{Start: start, End: end})
		start = end + 1
	}
	return spans
}

// Label formats a span as "HH:MM-HH:MM".
func (s Span) Label() string {
	return fmt.Sprintf("%02d:00-%02d:00", s.Start, s.End)
}

// GeneratePlan bucketizes every row of table into shift blocks. Each block
// requires the peak hourly requirement it covers. With a cap configured the
// assignment is limited to the cap and blocks needing more are flagged
// under-staffed.
func GeneratePlan(table *models.ResourceTable, cfg config.Config) (*models.ShiftPlan, error) {
	blockHours, err := BlockHours(cfg.ShiftDuration)
	if err != nil {
		return nil, err
	}

	limit, capped := cfg.Cap()
	plan := &models.ShiftPlan{
		BlockHours: blockHours,
		Cap:        limit,
		Blocks:     make([]models.ShiftBlock, 0),
	}
	spans := Partition(table.OpenHour, table.CloseHour, blockHours)

	for _, row := range table.Rows {
		for _, span := range spans {
			block := models.ShiftBlock{
				RowKey:            row.Key,
				StartHour:         span.Start,
				EndHour:           span.End,
				Label:             span.Label(),
				RequiredResources: peak(row, table.OpenHour, span),
			}
			block.AssignedResources = block.RequiredResources
			if capped {
				allocateWithCap(&block, limit, cfg.OverStaffPolicy)
			}
			plan.Blocks = append(plan.Blocks, block)
			summarize(&plan.Summary, block)
		}
	}
	return plan, nil
}

func peak(row models.ResourceRow, open int, span Span) int {
	required := 0
	for h := span.Start; h <= span.End; h++ {
		i := h - open
		if i < 0 || i >= len(row.Resources) {
			continue
		}
		required = max(required, row.Resources[i])
	}
	return required
}

// allocateWithCap limits the block to the available headcount and sets the
// staffing flags.
func allocateWithCap(block *models.ShiftBlock, limit int, policy config.OverStaffPolicy) {
	block.AssignedResources = min(block.RequiredResources, limit)
	block.UnderStaffed = block.RequiredResources > limit

	switch policy {
	case config.OverStaffCapExceedsRequired:
		block.OverStaffed = limit > block.RequiredResources
	case config.OverStaffRequiredExceedsCap:
		block.OverStaffed = block.RequiredResources > limit
	default:
		block.OverStaffed = false
	}
}

func summarize(s *models.ShiftSummary, block models.ShiftBlock) {
	s.Blocks++
	s.RequiredTotal += block.RequiredResources
	s.AssignedTotal += block.AssignedResources
	s.UnmetTotal += block.RequiredResources - block.AssignedResources
	if block.UnderStaffed {
		s.UnderStaffedBlocks++
	}
	if block.OverStaffed {
		s.OverStaffedBlocks++
	}
}
