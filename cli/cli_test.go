package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	customerrors "staffing-estimator/errors"
)

// run executes a fresh command tree so flag state does not leak between tests.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append(args, "--log-level", "error"))
	err := cmd.Execute()
	return out.String(), err
}

type jsonResult struct {
	Resources struct {
		Rows []struct {
			Key       string `json:"key"`
			Resources []int  `json:"resources"`
		} `json:"rows"`
	} `json:"resources"`
	Shifts struct {
		BlockHours int `json:"block_hours"`
		Cap        int `json:"cap"`
	} `json:"shifts"`
	Forecast *struct {
		Rows []struct {
			Key string `json:"key"`
		} `json:"rows"`
	} `json:"forecast"`
}

func decode(t *testing.T, out string) jsonResult {
	t.Helper()
	var r jsonResult
	require.NoError(t, json.Unmarshal([]byte(out), &r), out)
	return r
}

func TestVersionCmd(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "staffing-estimator dev\n", out)
}

func TestEstimateCmd_Text(t *testing.T) {
	out, err := run(t, "estimate", "testdata/orders.csv")
	require.NoError(t, err)
	assert.Contains(t, out, "RESOURCES BY WEEKDAY")
	assert.Contains(t, out, "08:00-13:00")
}

func TestEstimateCmd_Flags(t *testing.T) {
	out, err := run(t, "estimate", "testdata/orders.csv",
		"--format", "json",
		"--shift-duration", "4h30m",
		"--max-resources", "2",
		"--productivity", "50",
		"--forecast-start", "2024-03-25",
		"--forecast-end", "2024-03-27",
	)
	require.NoError(t, err)

	r := decode(t, out)
	assert.Equal(t, 5, r.Shifts.BlockHours)
	assert.Equal(t, 2, r.Shifts.Cap)
	require.NotEmpty(t, r.Resources.Rows)
	assert.Equal(t, 5, r.Resources.Rows[0].Resources[10-8], "ceil(215/50)")
	require.NotNil(t, r.Forecast)
	assert.Len(t, r.Forecast.Rows, 3)
}

func TestEstimateCmd_ConfigFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "staffing.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("productivity: 50\nmax_resources: 7\noutput:\n  format: json\n"), 0o600))
	t.Setenv("STAFFING_MAX_RESOURCES", "3")

	out, err := run(t, "estimate", "testdata/orders.csv", "--config", cfgPath)
	require.NoError(t, err)

	r := decode(t, out)
	assert.Equal(t, 3, r.Shifts.Cap, "environment overrides the config file")
	assert.Equal(t, 5, r.Resources.Rows[0].Resources[10-8], "productivity from the config file")
}

func TestEstimateCmd_FlagOverridesEnv(t *testing.T) {
	t.Setenv("STAFFING_PRODUCTIVITY", "50")

	out, err := run(t, "estimate", "testdata/orders.csv", "--format", "json", "--productivity", "200")
	require.NoError(t, err)

	r := decode(t, out)
	assert.Equal(t, 2, r.Resources.Rows[0].Resources[10-8], "ceil(215/200)")
}

func TestEstimateCmd_Report(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")

	_, err := run(t, "estimate", "testdata/orders.csv", "--report", "--output-dir", dir)
	require.NoError(t, err)

	matches, err := filepath.Glob(filepath.Join(dir, "staffing-*.xlsx"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestEstimateCmd_Errors(t *testing.T) {
	tests := map[string]struct {
		args          []string
		expectedError error
	}{
		"ForecastSpan45Days": {
			args:          []string{"estimate", "testdata/orders.csv", "--forecast-start", "2024-04-01", "--forecast-end", "2024-05-15"},
			expectedError: customerrors.ErrForecastRange,
		},
		"ShiftTooShort": {
			args:          []string{"estimate", "testdata/orders.csv", "--shift-duration", "3h"},
			expectedError: customerrors.ErrInvalidShift,
		},
		"UnknownFormat": {
			args:          []string{"estimate", "testdata/orders.csv", "--format", "pdf"},
			expectedError: customerrors.ErrInvalidConfig,
		},
		"MissingInput": {
			args:          []string{"estimate", "testdata/orders.pdf"},
			expectedError: os.ErrNotExist,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			assert.ErrorIs(t, err, tt.expectedError)
		})
	}
}

func TestEstimateCmd_RequiresFile(t *testing.T) {
	_, err := run(t, "estimate")
	assert.Error(t, err)
}
