// Package report writes the XLSX summary of an estimation run.
package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"staffing-estimator/models"
)

// Sheet names, in workbook order.
const (
	SheetShifts    = "Shifts"
	SheetResources = "Resources"
	SheetForecast  = "Forecast"
	SheetModels    = "Models"
	SheetPickers   = "Pickers"
)

// FileName returns the report name for result: staffing-<date>-<run id>.xlsx.
func FileName(result *models.Result) string {
	return fmt.Sprintf("staffing-%s-%s.xlsx", result.GeneratedAt.UTC().Format("2006-01-02"), result.RunID)
}

// Write saves the workbook for result into dir, creating dir when needed,
// and returns the file path.
func Write(result *models.Result, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating report dir: %w", err)
	}

	f, err := Build(result)
	if err != nil {
		return "", err
	}
	defer f.Close()

	path := filepath.Join(dir, FileName(result))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("saving report %s: %w", path, err)
	}
	return path, nil
}

// Build lays out the workbook for result without saving it.
func Build(result *models.Result) (*excelize.File, error) {
	f := excelize.NewFile()
	w := &workbook{f: f}

	var err error
	if err = f.SetSheetName("Sheet1", SheetShifts); err != nil {
		f.Close()
		return nil, err
	}
	for _, name := range []string{SheetResources, SheetForecast, SheetModels, SheetPickers} {
		if _, err = f.NewSheet(name); err != nil {
			f.Close()
			return nil, err
		}
	}

	if w.header, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err != nil {
		f.Close()
		return nil, err
	}
	if w.alert, err = f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#FFC7CE"}, Pattern: 1},
	}); err != nil {
		f.Close()
		return nil, err
	}

	w.shiftSheet(result.Shifts)
	w.tableSheet(SheetResources, result.Resources)
	w.tableSheet(SheetForecast, result.Forecast)
	w.modelSheet(result.Models)
	w.pickerSheet(result.Pickers)

	if w.err != nil {
		f.Close()
		return nil, w.err
	}
	f.SetActiveSheet(0)
	return f, nil
}

// workbook keeps the first write error so sheet writers stay linear.
type workbook struct {
	f      *excelize.File
	header int
	alert  int
	err    error
}

func (w *workbook) row(sheet string, n int, values []any) {
	if w.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		w.err = err
		return
	}
	w.err = w.f.SetSheetRow(sheet, cell, &values)
}

func (w *workbook) style(sheet string, n, style int) {
	if w.err != nil {
		return
	}
	w.err = w.f.SetRowStyle(sheet, n, n, style)
}

func (w *workbook) shiftSheet(plan *models.ShiftPlan) {
	w.row(SheetShifts, 1, []any{"Row", "Shift", "Start Hour", "End Hour", "Required", "Assigned", "Under Staffed", "Over Staffed"})
	w.style(SheetShifts, 1, w.header)
	if plan == nil {
		return
	}
	for i, b := range plan.Blocks {
		n := i + 2
		w.row(SheetShifts, n, []any{b.RowKey, b.Label, b.StartHour, b.EndHour, b.RequiredResources, b.AssignedResources, yesNo(b.UnderStaffed), yesNo(b.OverStaffed)})
		if b.UnderStaffed {
			w.style(SheetShifts, n, w.alert)
		}
	}
}

func (w *workbook) tableSheet(sheet string, table *models.ResourceTable) {
	if table == nil {
		w.row(sheet, 1, []any{"No data"})
		return
	}
	header := []any{"Row"}
	for _, h := range table.Hours() {
		header = append(header, fmt.Sprintf("%02d:00", h))
	}
	header = append(header, "Peak", "Event")
	w.row(sheet, 1, header)
	w.style(sheet, 1, w.header)

	for i, r := range table.Rows {
		values := make([]any, 0, len(r.Resources)+3)
		values = append(values, r.Key)
		for _, v := range r.Resources {
			values = append(values, v)
		}
		values = append(values, r.Peak(), yesNo(r.InEvent))
		w.row(sheet, i+2, values)
	}
}

func (w *workbook) modelSheet(demand []models.ModelDemand) {
	w.row(SheetModels, 1, []any{"Model", "Orders", "Items", "Peak Hour", "Peak Items", "Peak Resources"})
	w.style(SheetModels, 1, w.header)
	for i, m := range demand {
		w.row(SheetModels, i+2, []any{m.Model, m.Orders, m.Items, m.PeakHour, m.PeakItems, m.PeakResources})
	}
}

func (w *workbook) pickerSheet(stats []models.PickerStat) {
	w.row(SheetPickers, 1, []any{"Rank", "Picker", "Orders", "Items", "On Time Rate", "Active Minutes", "Items Per Hour"})
	w.style(SheetPickers, 1, w.header)
	for i, p := range stats {
		w.row(SheetPickers, i+2, []any{p.Rank, p.Picker, p.Orders, p.Items, p.OnTimeRate, p.ActiveMinutes, p.ItemsPerHour})
	}
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}
