package errors

import (
	"fmt"
	"strings"
)

// Sentinel errors for errors.Is checks. The typed errors below unwrap to them.
var (
	ErrMissingColumn  = fmt.Errorf("missing column")
	ErrInvalidShift   = fmt.Errorf("invalid shift duration")
	ErrForecastRange  = fmt.Errorf("forecast range too long")
	ErrForecastLead   = fmt.Errorf("forecast start too far ahead")
	ErrEmptyDataset   = fmt.Errorf("empty dataset")
	ErrInvalidConfig  = fmt.Errorf("invalid configuration")
	ErrEmptyInput     = fmt.Errorf("empty input")
	ErrUnsupportedExt = fmt.Errorf("unsupported file type")
)

// ParseError wraps a specific error with context about where it occurred.
type ParseError struct {
	Line   int
	Record []string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at line %d: %v (record: %v)", e.Line, e.Err, e.Record)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// MissingColumnError names the canonical fields no header could be matched to.
type MissingColumnError struct {
	Fields []string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Fields, ", "))
}

func (e *MissingColumnError) Unwrap() error {
	return ErrMissingColumn
}

// InvalidShiftDurationError reports a shift length outside the allowed bounds.
type InvalidShiftDurationError struct {
	Minutes int
	Min     int
	Max     int
}

func (e *InvalidShiftDurationError) Error() string {
	return fmt.Sprintf("shift duration %dh%02dm must be between %dh%02dm and %dh%02dm",
		e.Minutes/60, e.Minutes%60, e.Min/60, e.Min%60, e.Max/60, e.Max%60)
}

func (e *InvalidShiftDurationError) Unwrap() error {
	return ErrInvalidShift
}

// ForecastRangeTooLongError reports a forecast window wider than the configured cap.
type ForecastRangeTooLongError struct {
	Days    int
	MaxDays int
}

func (e *ForecastRangeTooLongError) Error() string {
	return fmt.Sprintf("forecast range of %d days exceeds the maximum of %d days", e.Days, e.MaxDays)
}

func (e *ForecastRangeTooLongError) Unwrap() error {
	return ErrForecastRange
}

// ForecastStartTooFarError reports a forecast starting further ahead than allowed.
type ForecastStartTooFarError struct {
	LeadDays int
	MaxDays  int
}

func (e *ForecastStartTooFarError) Error() string {
	return fmt.Sprintf("forecast starts %d days ahead, maximum is %d days", e.LeadDays, e.MaxDays)
}

func (e *ForecastStartTooFarError) Unwrap() error {
	return ErrForecastLead
}

// EmptyDatasetError is a warning: no row survived the status and store-hours filters.
// Runs carrying it still complete with empty tables.
type EmptyDatasetError struct {
	Read int
}

func (e *EmptyDatasetError) Error() string {
	return fmt.Sprintf("no finished orders within store hours (%d rows read)", e.Read)
}

func (e *EmptyDatasetError) Unwrap() error {
	return ErrEmptyDataset
}

// ConfigError reports a configuration field outside its allowed range.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s %s", e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfig
}
