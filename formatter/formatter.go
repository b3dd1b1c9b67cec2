package formatter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"staffing-estimator/errors"
	"staffing-estimator/models"
)

// Formats accepted by Format.
const (
	FormatNameText = "text"
	FormatNameJSON = "json"
	FormatNameCSV  = "csv"
)

// Format renders result in the named format.
func Format(result *models.Result, format string) (string, error) {
	switch format {
	case FormatNameJSON:
		return FormatJSON(result), nil
	case FormatNameCSV:
		return FormatCSV(result), nil
	case FormatNameText, "":
		return FormatText(result), nil
	default:
		return "", &errors.ConfigError{Field: "output.format", Reason: "must be one of text, json, csv"}
	}
}

// FormatText returns the human readable report of a run
func FormatText(result *models.Result) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Run %s (%s)\n", result.RunID, result.GeneratedAt.Format("2006-01-02 15:04:05 UTC"))
	s := result.Stats
	fmt.Fprintf(&sb, "Rows: read=%d kept=%d dropped_status=%d dropped_hours=%d coerced=%d\n",
		s.Read, s.Kept, s.DroppedStatus, s.DroppedHours, s.Coerced)

	if result.Resources != nil {
		fmt.Fprintf(&sb, "\nRESOURCES BY %s\n", strings.ToUpper(string(result.Resources.Grouping)))
		writeTextTable(&sb, result.Resources)
	}

	if result.Shifts != nil {
		capLabel := "none"
		if result.Shifts.Cap > 0 {
			capLabel = strconv.Itoa(result.Shifts.Cap)
		}
		fmt.Fprintf(&sb, "\nSHIFTS (%dh blocks, cap=%s)\n", result.Shifts.BlockHours, capLabel)
		for _, b := range result.Shifts.Blocks {
			sb.WriteString(formatTextBlock(b))
			sb.WriteString("\n")
			if b.UnderStaffed {
				fmt.Fprintf(&sb, "  ⚠️  UNDER-STAFFED: Required=%d, Assigned=%d, Unmet=%d\n",
					b.RequiredResources, b.AssignedResources, b.RequiredResources-b.AssignedResources)
			}
		}
		sum := result.Shifts.Summary
		fmt.Fprintf(&sb, "Total: blocks=%d required=%d assigned=%d unmet=%d under_staffed=%d over_staffed=%d\n",
			sum.Blocks, sum.RequiredTotal, sum.AssignedTotal, sum.UnmetTotal, sum.UnderStaffedBlocks, sum.OverStaffedBlocks)
	}

	if result.Forecast != nil {
		sb.WriteString("\nFORECAST\n")
		writeTextTable(&sb, result.Forecast)
	}

	if len(result.Models) > 0 {
		sb.WriteString("\nOPERATIONAL MODELS\n")
		for _, m := range result.Models {
			fmt.Fprintf(&sb, "%s : orders=%d, items=%d, peak=%s (items=%d, resources=%d)\n",
				m.Model, m.Orders, m.Items, hourLabel(m.PeakHour), m.PeakItems, m.PeakResources)
		}
	}

	if len(result.Pickers) > 0 {
		sb.WriteString("\nPICKERS\n")
		for _, p := range result.Pickers {
			fmt.Fprintf(&sb, "%2d. %s : items/h=%.2f, on_time=%.1f%%, items=%d, orders=%d\n",
				p.Rank, p.Picker, p.ItemsPerHour, p.OnTimeRate*100, p.Items, p.Orders)
		}
	}

	if len(result.Warnings) > 0 {
		sb.WriteString("\nWARNINGS\n")
		for _, w := range result.Warnings {
			fmt.Fprintf(&sb, "  • %s\n", w)
		}
	}

	return sb.String()
}

// FormatJSON returns the JSON representation of the run
func FormatJSON(result *models.Result) string {
	jsonBytes, _ := json.MarshalIndent(result, "", "  ")
	return string(jsonBytes)
}

// FormatCSV returns one CSV section per table, separated by an empty line.
// Every section starts with its own header row.
func FormatCSV(result *models.Result) string {
	var sb strings.Builder
	writer := csv.NewWriter(&sb)

	if result.Resources != nil {
		writeTableToCSV(writer, "Resources", result.Resources)
	}

	if result.Shifts != nil {
		writer.Write(nil)
		writer.Write([]string{"Shift", "Row", "Required", "Assigned", "Under Staffed", "Over Staffed"})
		for _, b := range result.Shifts.Blocks {
			writer.Write([]string{
				b.Label,
				b.RowKey,
				strconv.Itoa(b.RequiredResources),
				strconv.Itoa(b.AssignedResources),
				yesNo(b.UnderStaffed),
				yesNo(b.OverStaffed),
			})
		}
	}

	if result.Forecast != nil {
		writer.Write(nil)
		writeTableToCSV(writer, "Forecast", result.Forecast)
	}

	if len(result.Models) > 0 {
		writer.Write(nil)
		writer.Write([]string{"Model", "Orders", "Items", "Peak Hour", "Peak Items", "Peak Resources"})
		for _, m := range result.Models {
			writer.Write([]string{
				m.Model,
				strconv.Itoa(m.Orders),
				strconv.Itoa(m.Items),
				hourLabel(m.PeakHour),
				strconv.Itoa(m.PeakItems),
				strconv.Itoa(m.PeakResources),
			})
		}
	}

	if len(result.Pickers) > 0 {
		writer.Write(nil)
		writer.Write([]string{"Rank", "Picker", "Items Per Hour", "On Time Rate", "Items", "Orders", "Active Minutes"})
		for _, p := range result.Pickers {
			writer.Write([]string{
				strconv.Itoa(p.Rank),
				p.Picker,
				strconv.FormatFloat(p.ItemsPerHour, 'f', 2, 64),
				strconv.FormatFloat(p.OnTimeRate, 'f', 4, 64),
				strconv.Itoa(p.Items),
				strconv.Itoa(p.Orders),
				strconv.FormatFloat(p.ActiveMinutes, 'f', 2, 64),
			})
		}
	}

	writer.Flush()
	return sb.String()
}

// writeTableToCSV writes a resource table with one column per hour
func writeTableToCSV(writer *csv.Writer, title string, table *models.ResourceTable) {
	header := []string{title}
	for _, h := range table.Hours() {
		header = append(header, hourLabel(h))
	}
	writer.Write(header)

	for _, row := range table.Rows {
		record := make([]string, 0, len(row.Resources)+1)
		record = append(record, row.Key)
		for _, v := range row.Resources {
			record = append(record, strconv.Itoa(v))
		}
		writer.Write(record)
	}
}

// writeTextTable writes a resource table as fixed width columns
func writeTextTable(sb *strings.Builder, table *models.ResourceTable) {
	if len(table.Rows) == 0 {
		sb.WriteString("(no data)\n")
		return
	}

	fmt.Fprintf(sb, "%-12s", "")
	for _, h := range table.Hours() {
		fmt.Fprintf(sb, " %5s", hourLabel(h))
	}
	sb.WriteString("\n")

	for _, row := range table.Rows {
		key := row.Key
		if row.InEvent {
			key += "*"
		}
		fmt.Fprintf(sb, "%-12s", key)
		for _, v := range row.Resources {
			fmt.Fprintf(sb, " %5d", v)
		}
		sb.WriteString("\n")
	}
}

// formatTextBlock formats a single shift block line for text output
func formatTextBlock(b models.ShiftBlock) string {
	return fmt.Sprintf("%-12s %s : required=%d ; assigned=%d", b.RowKey, b.Label, b.RequiredResources, b.AssignedResources)
}

func hourLabel(h int) string {
	if h < 0 {
		return ""
	}
	return fmt.Sprintf("%02d:00", h)
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}
