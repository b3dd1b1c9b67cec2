package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"staffing-estimator/config"
	customerrors "staffing-estimator/errors"
	"staffing-estimator/estimator"
	"staffing-estimator/models"
	"staffing-estimator/parser"
)

// Error codes returned in the error envelope.
const (
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeTooLarge       = "PAYLOAD_TOO_LARGE"
	CodeInvalidConfig  = "INVALID_CONFIG"
	CodeInvalidShift   = "INVALID_SHIFT_DURATION"
	CodeMissingColumns = "MISSING_COLUMNS"
	CodeUnreadableFile = "UNREADABLE_FILE"
	CodeForecastRange  = "FORECAST_RANGE_TOO_LONG"
	CodeForecastLead   = "FORECAST_START_TOO_FAR"
	CodeTimeout        = "TIMEOUT"
	CodeInternal       = "INTERNAL"
)

type Handler struct {
	Estimator *estimator.Estimator
	Base      config.Config
	Logger    zerolog.Logger
	Version   string
}

// estimateForm holds the optional per-request overrides of the base config.
type estimateForm struct {
	Productivity    *float64 `form:"productivity"`
	ShiftMinutes    *int     `form:"shift_minutes"`
	MaxResources    *int     `form:"max_resources"`
	OpenHour        *int     `form:"open_hour"`
	CloseHour       *int     `form:"close_hour"`
	Grouping        string   `form:"grouping"`
	Strategy        string   `form:"strategy"`
	EventStart      string   `form:"event_start"`
	EventEnd        string   `form:"event_end"`
	EventImpact     *float64 `form:"event_impact_percent"`
	ForecastStart   string   `form:"forecast_start"`
	ForecastEnd     string   `form:"forecast_end"`
	RankingLimit    *int     `form:"ranking_limit"`
	OverStaffPolicy string   `form:"over_staff_policy"`
}

func (f estimateForm) apply(cfg config.Config) config.Config {
	if f.Productivity != nil {
		cfg.Productivity = *f.Productivity
	}
	if f.ShiftMinutes != nil {
		cfg.ShiftDuration = time.Duration(*f.ShiftMinutes) * time.Minute
	}
	if f.MaxResources != nil {
		cfg.MaxResources = *f.MaxResources
	}
	if f.OpenHour != nil {
		cfg.OpenHour = *f.OpenHour
	}
	if f.CloseHour != nil {
		cfg.CloseHour = *f.CloseHour
	}
	if f.Grouping != "" {
		cfg.Grouping = models.Grouping(f.Grouping)
	}
	if f.Strategy != "" {
		cfg.Aggregation.Strategy = f.Strategy
	}
	if f.EventStart != "" || f.EventEnd != "" {
		cfg.Event.Start, cfg.Event.End = f.EventStart, f.EventEnd
	}
	if f.EventImpact != nil {
		cfg.Event.ImpactPercent = *f.EventImpact
	}
	if f.ForecastStart != "" || f.ForecastEnd != "" {
		cfg.Forecast.Start, cfg.Forecast.End = f.ForecastStart, f.ForecastEnd
	}
	if f.RankingLimit != nil {
		cfg.Ranking.Limit = *f.RankingLimit
	}
	if f.OverStaffPolicy != "" {
		cfg.OverStaffPolicy = config.OverStaffPolicy(f.OverStaffPolicy)
	}
	return cfg
}

func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": h.Version})
}

// Config returns the base configuration requests start from.
func (h *Handler) Config(c *gin.Context) {
	cfg := h.Base
	c.JSON(http.StatusOK, gin.H{
		"open_hour":              cfg.OpenHour,
		"close_hour":             cfg.CloseHour,
		"productivity":           cfg.Productivity,
		"shift_minutes":          int(cfg.ShiftDuration.Minutes()),
		"max_resources":          cfg.MaxResources,
		"grouping":               cfg.Grouping,
		"over_staff_policy":      cfg.OverStaffPolicy,
		"strategy":               cfg.Aggregation.Strategy,
		"forecast_max_span_days": cfg.Forecast.MaxSpanDays,
		"forecast_max_lead_days": cfg.Forecast.MaxLeadDays,
	})
}

func (h *Handler) Estimate(c *gin.Context) {
	limit := h.Base.Server.MaxUploadMB << 20
	if c.Request.ContentLength > limit {
		writeError(c, http.StatusRequestEntityTooLarge, CodeTooLarge, "upload too large", gin.H{"max_bytes": limit})
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

	file, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(c, http.StatusRequestEntityTooLarge, CodeTooLarge, "upload too large", gin.H{"max_bytes": limit})
			return
		}
		writeError(c, http.StatusBadRequest, CodeInvalidRequest, "file required", nil)
		return
	}

	var form estimateForm
	if err := c.ShouldBind(&form); err != nil {
		writeError(c, http.StatusBadRequest, CodeInvalidRequest, "invalid form values", err.Error())
		return
	}
	cfg := form.apply(h.Base)

	f, err := file.Open()
	if err != nil {
		writeError(c, http.StatusBadRequest, CodeInvalidRequest, "cannot open upload", err.Error())
		return
	}
	defer f.Close()

	rows, err := parser.ReadRows(file.Filename, f)
	if err != nil {
		status, code := classify(err)
		if status == http.StatusInternalServerError {
			status, code = http.StatusUnprocessableEntity, CodeUnreadableFile
		}
		writeError(c, status, code, err.Error(), nil)
		return
	}

	ctx := c.Request.Context()
	if h.Base.Server.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.Base.Server.RequestTimeout)
		defer cancel()
	}

	result, err := h.Estimator.Run(ctx, rows, cfg)
	if err != nil {
		status, code := classify(err)
		var details any
		var missing *customerrors.MissingColumnError
		if errors.As(err, &missing) {
			details = gin.H{"fields": missing.Fields}
		}
		if status == http.StatusInternalServerError {
			h.Logger.Error().Err(err).Str("request_id", c.GetString(RequestIDHeader)).Msg("estimate failed")
		}
		writeError(c, status, code, err.Error(), details)
		return
	}

	c.JSON(http.StatusOK, result)
}

// classify maps pipeline errors to an HTTP status and error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, customerrors.ErrInvalidShift):
		return http.StatusBadRequest, CodeInvalidShift
	case errors.Is(err, customerrors.ErrInvalidConfig):
		return http.StatusBadRequest, CodeInvalidConfig
	case errors.Is(err, customerrors.ErrUnsupportedExt):
		return http.StatusBadRequest, CodeInvalidRequest
	case errors.Is(err, customerrors.ErrMissingColumn):
		return http.StatusUnprocessableEntity, CodeMissingColumns
	case errors.Is(err, customerrors.ErrEmptyInput):
		return http.StatusUnprocessableEntity, CodeUnreadableFile
	case errors.Is(err, customerrors.ErrForecastRange):
		return http.StatusUnprocessableEntity, CodeForecastRange
	case errors.Is(err, customerrors.ErrForecastLead):
		return http.StatusUnprocessableEntity, CodeForecastLead
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, CodeTimeout
	}
	var parseErr *customerrors.ParseError
	if errors.As(err, &parseErr) {
		return http.StatusUnprocessableEntity, CodeUnreadableFile
	}
	return http.StatusInternalServerError, CodeInternal
}

func writeError(c *gin.Context, status int, code string, message string, details any) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}
