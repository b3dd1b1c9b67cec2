package models

import "time"

// OnTime is the tri-state on-time flag carried by an order.
type OnTime string

const (
	OnTimeYes     OnTime = "yes"
	OnTimeNo      OnTime = "no"
	OnTimeUnknown OnTime = "unknown"
)

// Unknown is the sentinel used for empty categorical fields.
const Unknown = "unknown"

// OrderRecord is one normalized row of the operations export.
// It is shared across packages and never mutated after Normalize returns it.
type OrderRecord struct {
	Date             time.Time
	Hour             int
	Items            int
	Status           string
	OperationalModel string
	PickerID         string
	OnTime           OnTime
	PickingStart     time.Time
	PickingEnd       time.Time
}

// Dataset holds the records that survived normalization and the counters
// describing what was filtered or coerced on the way.
type Dataset struct {
	Records []OrderRecord
	Stats   NormalizeStats
}

// NormalizeStats counts rows at each normalization step.
type NormalizeStats struct {
	Read          int `json:"read"`
	Kept          int `json:"kept"`
	DroppedStatus int `json:"dropped_status"`
	DroppedHours  int `json:"dropped_hours"`
	Coerced       int `json:"coerced"`
}

// Grouping selects how resource table rows are keyed.
type Grouping string

const (
	GroupByWeekday Grouping = "weekday"
	GroupByDate    Grouping = "date"
)

// ResourceTable holds resources needed per row and hour.
type ResourceTable struct {
	Grouping  Grouping      `json:"grouping"`
	OpenHour  int           `json:"open_hour"`
	CloseHour int           `json:"close_hour"`
	Rows      []ResourceRow `json:"rows"`
}

// Hours returns the declared hour columns, open through close inclusive.
func (t *ResourceTable) Hours() []int {
	hours := make([]int, 0, t.CloseHour-t.OpenHour+1)
	for h := t.OpenHour; h <= t.CloseHour; h++ {
		hours = append(hours, h)
	}
	return hours
}

// ResourceRow is one weekday or date of a ResourceTable.
// Resources and Demand are indexed by hour - OpenHour.
type ResourceRow struct {
	Key       string    `json:"key"`
	Date      time.Time `json:"date,omitzero"`
	Weekday   int       `json:"weekday"`
	Demand    []float64 `json:"demand"`
	Resources []int     `json:"resources"`
	InEvent   bool      `json:"in_event,omitempty"`
}

// Peak returns the highest resource count of the row.
func (r ResourceRow) Peak() int {
	peak := 0
	for _, v := range r.Resources {
		if v > peak {
			peak = v
		}
	}
	return peak
}

// ShiftBlock is a contiguous span of hours staffed as one unit.
type ShiftBlock struct {
	RowKey            string `json:"row"`
	StartHour         int    `json:"start_hour"`
	EndHour           int    `json:"end_hour"`
	Label             string `json:"label"`
	RequiredResources int    `json:"required"`
	AssignedResources int    `json:"assigned"`
	UnderStaffed      bool   `json:"under_staffed"`
	OverStaffed       bool   `json:"over_staffed"`
}

// ShiftPlan is the bucketized view of a ResourceTable.
type ShiftPlan struct {
	BlockHours int          `json:"block_hours"`
	Cap        int          `json:"cap,omitempty"`
	Blocks     []ShiftBlock `json:"blocks"`
	Summary    ShiftSummary `json:"summary"`
}

// ShiftSummary aggregates a ShiftPlan.
type ShiftSummary struct {
	Blocks             int `json:"blocks"`
	UnderStaffedBlocks int `json:"under_staffed_blocks"`
	OverStaffedBlocks  int `json:"over_staffed_blocks"`
	RequiredTotal      int `json:"required_total"`
	AssignedTotal      int `json:"assigned_total"`
	UnmetTotal         int `json:"unmet_total"`
}

// ModelDemand summarizes demand for one operational model.
type ModelDemand struct {
	Model         string `json:"model"`
	Orders        int    `json:"orders"`
	Items         int    `json:"items"`
	PeakHour      int    `json:"peak_hour"`
	PeakItems     int    `json:"peak_items"`
	PeakResources int    `json:"peak_resources"`
}

// PickerStat is one entry of the picker productivity ranking.
type PickerStat struct {
	Rank          int     `json:"rank"`
	Picker        string  `json:"picker"`
	Orders        int     `json:"orders"`
	Items         int     `json:"items"`
	OnTimeRate    float64 `json:"on_time_rate"`
	ActiveMinutes float64 `json:"active_minutes"`
	ItemsPerHour  float64 `json:"items_per_hour"`
}

// Result is everything produced by one estimator run.
type Result struct {
	RunID       string         `json:"run_id"`
	GeneratedAt time.Time      `json:"generated_at"`
	Stats       NormalizeStats `json:"stats"`
	Resources   *ResourceTable `json:"resources"`
	Shifts      *ShiftPlan     `json:"shifts"`
	Forecast    *ResourceTable `json:"forecast,omitempty"`
	Models      []ModelDemand  `json:"models"`
	Pickers     []PickerStat   `json:"pickers"`
	Warnings    []string       `json:"warnings,omitempty"`
}
