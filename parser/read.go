package parser

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"staffing-estimator/errors"
)

// ReadRows reads every row of the named file from r, choosing the reader by
// extension. Files without an extension are read as CSV.
func ReadRows(name string, r io.Reader) ([][]string, error) {
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".xlsx", ".xlsm":
		return ReadXLSX(r)
	case ".xls":
		return ReadXLS(r)
	case ".csv", ".txt", "":
		return ReadCSV(r)
	default:
		return nil, fmt.Errorf("%w: %s", errors.ErrUnsupportedExt, ext)
	}
}

// ReadCSV reads all rows of a comma or semicolon separated file. The
// delimiter is taken from whichever occurs more often in the header line.
func ReadCSV(r io.Reader) ([][]string, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(4096)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, fmt.Errorf("error reading CSV header: %w", err)
	}
	if len(head) == 0 {
		return nil, errors.ErrEmptyInput
	}

	reader := csv.NewReader(br)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.Comma = sniffDelimiter(head)

	var rows [][]string
	lastLine := 0 // physical line the previous record ended on
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			line := lastLine + 1
			if pe, ok := err.(*csv.ParseError); ok {
				line = pe.StartLine
			}
			return nil, &errors.ParseError{Line: line, Record: record, Err: err}
		}
		rows = append(rows, record)

		start, _ := reader.FieldPos(0)
		lastLine = start
		for _, field := range record {
			lastLine += strings.Count(field, "\n")
		}
	}
	return rows, nil
}

func sniffDelimiter(head []byte) rune {
	line := string(head)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	if strings.Count(line, ";") > strings.Count(line, ",") {
		return ';'
	}
	return ','
}

// ReadXLSX reads the rows of the first worksheet of an XLSX workbook.
func ReadXLSX(r io.Reader) ([][]string, error) {
	file, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("error opening workbook: %w", err)
	}
	defer func() { _ = file.Close() }()

	sheet := file.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("%w: no worksheet found", errors.ErrEmptyInput)
	}
	// Raw values keep date cells as serial numbers instead of the cell's display format.
	rows, err := file.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("error reading worksheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: worksheet %s is empty", errors.ErrEmptyInput, sheet)
	}
	return rows, nil
}

// maxXLSRows bounds how many rows are read from a legacy workbook.
const maxXLSRows = 100000

// ReadXLS reads the rows of a legacy BIFF (.xls) workbook with a single sheet.
func ReadXLS(r io.Reader) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("error reading workbook: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.ErrEmptyInput
	}

	workbook, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("error opening workbook: %w", err)
	}
	switch n := workbook.NumSheets(); {
	case n == 0:
		return nil, fmt.Errorf("%w: no worksheet found", errors.ErrEmptyInput)
	case n > 1:
		return nil, fmt.Errorf("%w: %d worksheets found, expected one", errors.ErrUnsupportedExt, n)
	}

	rows := workbook.ReadAllCells(maxXLSRows)
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: worksheet is empty", errors.ErrEmptyInput)
	}
	return rows, nil
}
