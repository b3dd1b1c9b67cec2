package parser_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staffing-estimator/config"
	customerrors "staffing-estimator/errors"
	"staffing-estimator/models"
	"staffing-estimator/parser"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func normalize(t *testing.T, input string, cfg config.Config) (*models.Dataset, error) {
	t.Helper()
	rows, err := parser.ReadCSV(strings.NewReader(strings.TrimSpace(input)))
	require.NoError(t, err)
	return parser.Normalize(rows, parser.DefaultAliases(), cfg)
}

func TestNormalize(t *testing.T) {
	cfg := config.Default() // store hours 8..22

	tests := map[string]struct {
		input         string
		expectedData  []models.OrderRecord
		expectedStats models.NormalizeStats
		expectedError error
	}{
		"ValidInput_SpanishHeaders": {
			input: `
Fecha,items,estado,slot_from,operational_model,picker,ontime
2024-03-04,12,FINISHED,10,express,p1,1
2024-03-04,5,finished,2024-03-04 11:30:00,scheduled,p2,0
`,
			expectedData: []models.OrderRecord{
				{
					Date: day(2024, 3, 4), Hour: 10, Items: 12, Status: "FINISHED",
					OperationalModel: "express", PickerID: "p1", OnTime: models.OnTimeYes,
				},
				{
					Date: day(2024, 3, 4), Hour: 11, Items: 5, Status: "FINISHED",
					OperationalModel: "scheduled", PickerID: "p2", OnTime: models.OnTimeNo,
				},
			},
			expectedStats: models.NormalizeStats{Read: 2, Kept: 2},
		},
		"ValidInput_PortugueseHeadersWithDiacritics": {
			input: `
Data,Quantidade,Situação,Horário,Modelo Operacional
04/03/2024,7,Finished,09:15,dark store
`,
			expectedData: []models.OrderRecord{
				{
					Date: day(2024, 3, 4), Hour: 9, Items: 7, Status: "FINISHED",
					OperationalModel: "dark store", PickerID: models.Unknown, OnTime: models.OnTimeUnknown,
				},
			},
			expectedStats: models.NormalizeStats{Read: 1, Kept: 1},
		},
		"FiltersStatusAndStoreHours": {
			input: `
Fecha,items,estado,slot_from,operational_model
2024-03-04,3,CANCELLED,10,express
2024-03-04,4,FINISHED,7,express
2024-03-04,5,FINISHED,23,express
2024-03-04,6,FINISHED,22,express
2024-03-04,2,FINISHED,8,express
`,
			expectedData: []models.OrderRecord{
				{Date: day(2024, 3, 4), Hour: 22, Items: 6, Status: "FINISHED", OperationalModel: "express", PickerID: models.Unknown, OnTime: models.OnTimeUnknown},
				{Date: day(2024, 3, 4), Hour: 8, Items: 2, Status: "FINISHED", OperationalModel: "express", PickerID: models.Unknown, OnTime: models.OnTimeUnknown},
			},
			expectedStats: models.NormalizeStats{Read: 5, Kept: 2, DroppedStatus: 1, DroppedHours: 2},
		},
		"CoercesUnparsableValues": {
			input: `
Fecha,items,estado,slot_from,operational_model
not-a-date,abc,FINISHED,12,
`,
			expectedData: []models.OrderRecord{
				{Hour: 12, Items: 0, Status: "FINISHED", OperationalModel: models.Unknown, PickerID: models.Unknown, OnTime: models.OnTimeUnknown},
			},
			expectedStats: models.NormalizeStats{Read: 1, Kept: 1, Coerced: 1},
		},
		"UnparsableHourFallsOutsideStoreHours": {
			input: `
Fecha,items,estado,slot_from,operational_model
2024-03-04,3,FINISHED,later,express
`,
			expectedStats: models.NormalizeStats{Read: 1, DroppedHours: 1},
		},
		"DateTakenFromSlotTimestamp": {
			input: `
Fecha,items,estado,slot_from,operational_model
,9,FINISHED,2024-03-05T14:00:00,express
`,
			expectedData: []models.OrderRecord{
				{Date: day(2024, 3, 5), Hour: 14, Items: 9, Status: "FINISHED", OperationalModel: "express", PickerID: models.Unknown, OnTime: models.OnTimeUnknown},
			},
			expectedStats: models.NormalizeStats{Read: 1, Kept: 1},
		},
		"ExcelSerialValues": {
			input: `
Fecha,items,estado,slot_from,operational_model
45355,4,FINISHED,45355.4375,express
,2,FINISHED,45356.75,express
2024-03-04,1,FINISHED,0.4375,express
`,
			expectedData: []models.OrderRecord{
				{Date: day(2024, 3, 4), Hour: 10, Items: 4, Status: "FINISHED", OperationalModel: "express", PickerID: models.Unknown, OnTime: models.OnTimeUnknown},
				{Date: day(2024, 3, 5), Hour: 18, Items: 2, Status: "FINISHED", OperationalModel: "express", PickerID: models.Unknown, OnTime: models.OnTimeUnknown},
				{Date: day(2024, 3, 4), Hour: 10, Items: 1, Status: "FINISHED", OperationalModel: "express", PickerID: models.Unknown, OnTime: models.OnTimeUnknown},
			},
			expectedStats: models.NormalizeStats{Read: 3, Kept: 3},
		},
		"SkipsBlankLines": {
			input: `
Fecha,items,estado,slot_from,operational_model
,,,,
2024-03-04,1,FINISHED,10,express
`,
			expectedData: []models.OrderRecord{
				{Date: day(2024, 3, 4), Hour: 10, Items: 1, Status: "FINISHED", OperationalModel: "express", PickerID: models.Unknown, OnTime: models.OnTimeUnknown},
			},
			expectedStats: models.NormalizeStats{Read: 1, Kept: 1},
		},
		"Error_MissingColumns": {
			input: `
Fecha,items,slot_from
2024-03-04,1,10
`,
			expectedError: customerrors.ErrMissingColumn,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := normalize(t, tt.input, cfg)

			if tt.expectedError != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.expectedError), "Normalize() error = %v, expectedError %v", err, tt.expectedError)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expectedData, got.Records)
			assert.Equal(t, tt.expectedStats, got.Stats)
		})
	}
}

func TestNormalize_MissingColumnErrorNamesAllFields(t *testing.T) {
	_, err := normalize(t, "Fecha,picker\n2024-03-04,p1", config.Default())

	var missing *customerrors.MissingColumnError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, []string{
		parser.FieldItems, parser.FieldStatus, parser.FieldSlotFrom, parser.FieldOperationalModel,
	}, missing.Fields)
	assert.Contains(t, err.Error(), "items, status, slot_from, operational_model")
}

func TestNormalize_PickingTimestamps(t *testing.T) {
	input := `
Fecha,items,estado,slot_from,operational_model,picker,actual_inicio_picking,actual_fin_picking
2024-03-04,20,FINISHED,10,express,p1,2024-03-04 10:05:00,2024-03-04 10:35:00
`
	got, err := normalize(t, input, config.Default())
	require.NoError(t, err)
	require.Len(t, got.Records, 1)

	rec := got.Records[0]
	assert.Equal(t, time.Date(2024, 3, 4, 10, 5, 0, 0, time.UTC), rec.PickingStart)
	assert.Equal(t, 30*time.Minute, rec.PickingEnd.Sub(rec.PickingStart))
}

func TestNormalize_EmptyInput(t *testing.T) {
	_, err := parser.Normalize(nil, parser.DefaultAliases(), config.Default())
	assert.ErrorIs(t, err, customerrors.ErrEmptyInput)
}

func TestNormalize_CustomStoreHours(t *testing.T) {
	cfg := config.Default()
	cfg.OpenHour, cfg.CloseHour = 10, 12

	input := `
Fecha,items,estado,slot_from,operational_model
2024-03-04,1,FINISHED,9,express
2024-03-04,1,FINISHED,10,express
2024-03-04,1,FINISHED,12,express
2024-03-04,1,FINISHED,13,express
`
	got, err := normalize(t, input, cfg)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Stats.Kept)
	assert.Equal(t, 2, got.Stats.DroppedHours)
}
