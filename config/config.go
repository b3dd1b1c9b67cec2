// Package config defines the immutable run configuration of the staffing
// estimator, its defaults, layered loading and validation.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"staffing-estimator/models"
)

// DateLayout is the layout of every date-valued setting.
const DateLayout = "2006-01-02"

// Shift duration bounds.
const (
	MinShiftDuration = 4 * time.Hour
	MaxShiftDuration = 9 * time.Hour
)

// OverStaffPolicy decides what the over-staffed flag of a shift block means.
type OverStaffPolicy string

const (
	// OverStaffCapExceedsRequired flags blocks where available headcount exceeds the requirement.
	OverStaffCapExceedsRequired OverStaffPolicy = "cap_exceeds_required"
	// OverStaffRequiredExceedsCap flags blocks where the requirement exceeds available headcount.
	OverStaffRequiredExceedsCap OverStaffPolicy = "required_exceeds_cap"
	// OverStaffNone never flags.
	OverStaffNone OverStaffPolicy = "none"
)

// Strategy names for reducing per-date hourly totals into one row value.
const (
	StrategySum        = "sum"
	StrategyMean       = "mean"
	StrategyPeak       = "peak"
	StrategyPercentile = "percentile"
)

// Config is supplied once per run and passed by value to every component.
type Config struct {
	OpenHour        int             `mapstructure:"open_hour" validate:"min=0,max=23"`
	CloseHour       int             `mapstructure:"close_hour" validate:"min=0,max=23,gtefield=OpenHour"`
	Productivity    float64         `mapstructure:"productivity" validate:"gte=10,lte=500"`
	ShiftDuration   time.Duration   `mapstructure:"shift_duration"`
	MaxResources    int             `mapstructure:"max_resources" validate:"gte=0"`
	Grouping        models.Grouping `mapstructure:"grouping" validate:"oneof=weekday date"`
	OverStaffPolicy OverStaffPolicy `mapstructure:"over_staff_policy" validate:"oneof=cap_exceeds_required required_exceeds_cap none"`
	Aggregation     Aggregation     `mapstructure:"aggregation"`
	Event           EventWindow     `mapstructure:"event"`
	Forecast        ForecastWindow  `mapstructure:"forecast"`
	Ranking         Ranking         `mapstructure:"ranking"`
	Output          Output          `mapstructure:"output"`
	Log             Log             `mapstructure:"log"`
	Server          Server          `mapstructure:"server"`
}

// Aggregation selects the demand reduction strategy.
type Aggregation struct {
	Strategy       string  `mapstructure:"strategy" validate:"oneof=sum mean peak percentile"`
	Percentile     float64 `mapstructure:"percentile" validate:"gt=0,lte=100"`
	FatiguePercent float64 `mapstructure:"fatigue_percent" validate:"gte=0,lt=100"`
}

// EventWindow is a date range with a multiplicative demand uplift.
type EventWindow struct {
	Start         string  `mapstructure:"start" validate:"omitempty,datetime=2006-01-02"`
	End           string  `mapstructure:"end" validate:"omitempty,datetime=2006-01-02"`
	ImpactPercent float64 `mapstructure:"impact_percent" validate:"gte=0,lte=200"`
}

// ForecastWindow is the target date range of the extrapolator and its limits.
type ForecastWindow struct {
	Start       string `mapstructure:"start" validate:"omitempty,datetime=2006-01-02"`
	End         string `mapstructure:"end" validate:"omitempty,datetime=2006-01-02"`
	MaxSpanDays int    `mapstructure:"max_span_days" validate:"gte=1"`
	MaxLeadDays int    `mapstructure:"max_lead_days" validate:"gte=0"`
}

// Ranking configures the picker productivity ranking.
type Ranking struct {
	Limit int `mapstructure:"limit" validate:"gte=0"`
}

// Output configures presentation of a run.
type Output struct {
	Format string `mapstructure:"format" validate:"oneof=text json csv"`
	Dir    string `mapstructure:"dir"`
	Report bool   `mapstructure:"report"`
}

// Log configures the zerolog logger.
type Log struct {
	Level  string `mapstructure:"level" validate:"oneof=trace debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
}

// Server configures the HTTP API. MaxUploadMB bounds the request body of an
// upload and is also the in-memory threshold for multipart parts.
type Server struct {
	Addr           string        `mapstructure:"addr" validate:"required"`
	CORSOrigins    string        `mapstructure:"cors_origins"`
	MaxUploadMB    int64         `mapstructure:"max_upload_mb" validate:"gte=1"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		OpenHour:        8,
		CloseHour:       22,
		Productivity:    100,
		ShiftDuration:   6 * time.Hour,
		MaxResources:    0,
		Grouping:        models.GroupByWeekday,
		OverStaffPolicy: OverStaffCapExceedsRequired,
		Aggregation: Aggregation{
			Strategy:   StrategySum,
			Percentile: 90,
		},
		Forecast: ForecastWindow{
			MaxSpanDays: 30,
		},
		Ranking: Ranking{Limit: 20},
		Output: Output{
			Format: "text",
			Dir:    "reports",
		},
		Log: Log{
			Level:  "info",
			Format: "console",
		},
		Server: Server{
			Addr:           ":8080",
			CORSOrigins:    "*",
			MaxUploadMB:    20,
			RequestTimeout: 30 * time.Second,
		},
	}
}

// SetDefaults registers every key of Default on v so that environment
// variables are picked up by Unmarshal.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("open_hour", d.OpenHour)
	v.SetDefault("close_hour", d.CloseHour)
	v.SetDefault("productivity", d.Productivity)
	v.SetDefault("shift_duration", d.ShiftDuration.String())
	v.SetDefault("max_resources", d.MaxResources)
	v.SetDefault("grouping", string(d.Grouping))
	v.SetDefault("over_staff_policy", string(d.OverStaffPolicy))
	v.SetDefault("aggregation.strategy", d.Aggregation.Strategy)
	v.SetDefault("aggregation.percentile", d.Aggregation.Percentile)
	v.SetDefault("aggregation.fatigue_percent", d.Aggregation.FatiguePercent)
	v.SetDefault("event.start", "")
	v.SetDefault("event.end", "")
	v.SetDefault("event.impact_percent", 0)
	v.SetDefault("forecast.start", "")
	v.SetDefault("forecast.end", "")
	v.SetDefault("forecast.max_span_days", d.Forecast.MaxSpanDays)
	v.SetDefault("forecast.max_lead_days", d.Forecast.MaxLeadDays)
	v.SetDefault("ranking.limit", d.Ranking.Limit)
	v.SetDefault("output.format", d.Output.Format)
	v.SetDefault("output.dir", d.Output.Dir)
	v.SetDefault("output.report", d.Output.Report)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.cors_origins", d.Server.CORSOrigins)
	v.SetDefault("server.max_upload_mb", d.Server.MaxUploadMB)
	v.SetDefault("server.request_timeout", d.Server.RequestTimeout.String())
}

// Load resolves the configuration from v: flags bound by the caller, then
// STAFFING_* environment variables, then the optional config file, then defaults.
func Load(v *viper.Viper, file string) (Config, error) {
	v.SetEnvPrefix("STAFFING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	return cfg, nil
}

// Cap returns the configured headcount cap and whether one is set.
func (c Config) Cap() (int, bool) {
	return c.MaxResources, c.MaxResources > 0
}

// EffectiveProductivity is the productivity after the fatigue discount.
func (c Config) EffectiveProductivity() float64 {
	return c.Productivity * (1 - c.Aggregation.FatiguePercent/100)
}

// Range returns the event window bounds. ok is false when no window is set.
func (e EventWindow) Range() (start, end time.Time, ok bool) {
	return parseRange(e.Start, e.End)
}

// Contains reports whether day falls inside the event window.
func (e EventWindow) Contains(day time.Time) bool {
	start, end, ok := e.Range()
	if !ok {
		return false
	}
	d := truncateDay(day)
	return !d.Before(start) && !d.After(end)
}

// Multiplier returns the demand multiplier for day: 1 + impact/100 inside
// the window, 1 outside.
func (e EventWindow) Multiplier(day time.Time) float64 {
	if !e.Contains(day) {
		return 1
	}
	return 1 + e.ImpactPercent/100
}

// Range returns the forecast bounds. ok is false when no window is set.
func (f ForecastWindow) Range() (start, end time.Time, ok bool) {
	return parseRange(f.Start, f.End)
}

func parseRange(from, to string) (time.Time, time.Time, bool) {
	if from == "" || to == "" {
		return time.Time{}, time.Time{}, false
	}
	start, err := time.Parse(DateLayout, from)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	end, err := time.Parse(DateLayout, to)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
