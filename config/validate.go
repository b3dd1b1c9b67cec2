package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	customerrors "staffing-estimator/errors"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their config key rather than the Go field name.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

// Validate checks ranges and cross-field constraints. Shift durations outside
// 4h..9h yield an InvalidShiftDurationError, other violations a ConfigError.
func (c Config) Validate() error {
	if c.ShiftDuration < MinShiftDuration || c.ShiftDuration > MaxShiftDuration {
		return &customerrors.InvalidShiftDurationError{
			Minutes: int(c.ShiftDuration.Minutes()),
			Min:     int(MinShiftDuration.Minutes()),
			Max:     int(MaxShiftDuration.Minutes()),
		}
	}

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return &customerrors.ConfigError{
				Field:  strings.TrimPrefix(fe.Namespace(), "Config."),
				Reason: describe(fe),
			}
		}
		return fmt.Errorf("%w: %v", customerrors.ErrInvalidConfig, err)
	}

	if (c.Event.Start == "") != (c.Event.End == "") {
		return &customerrors.ConfigError{Field: "event", Reason: "needs both start and end"}
	}
	if start, end, ok := c.Event.Range(); ok && end.Before(start) {
		return &customerrors.ConfigError{Field: "event.end", Reason: "is before event.start"}
	}
	if (c.Forecast.Start == "") != (c.Forecast.End == "") {
		return &customerrors.ConfigError{Field: "forecast", Reason: "needs both start and end"}
	}
	if start, end, ok := c.Forecast.Range(); ok && end.Before(start) {
		return &customerrors.ConfigError{Field: "forecast.end", Reason: "is before forecast.start"}
	}
	return nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "min", "gte":
		return fmt.Sprintf("must be >= %s (got %v)", fe.Param(), fe.Value())
	case "max", "lte":
		return fmt.Sprintf("must be <= %s (got %v)", fe.Param(), fe.Value())
	case "gt":
		return fmt.Sprintf("must be > %s (got %v)", fe.Param(), fe.Value())
	case "lt":
		return fmt.Sprintf("must be < %s (got %v)", fe.Param(), fe.Value())
	case "oneof":
		return fmt.Sprintf("must be one of: %s (got %v)", strings.ReplaceAll(fe.Param(), " ", ", "), fe.Value())
	case "gtefield":
		return fmt.Sprintf("must not be before %s (got %v)", fe.Param(), fe.Value())
	case "datetime":
		return fmt.Sprintf("must be a date in %s format (got %v)", fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("failed %s check (got %v)", fe.Tag(), fe.Value())
	}
}
