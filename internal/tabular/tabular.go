// Package tabular reads uploaded spreadsheets and CSV files into a uniform
// row/column shape. It is the engine's ground truth for source column names:
// header-row detection, merged two-row headers, duplicate column names, and
// trailing blank rows are all normalized here so the cascades never see them.
package tabular

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/fieldmap/fieldmap/pkg/errors"
)

// Header detection bounds.
const (
	headerScanRows   = 50
	headerMinDensity = 0.5
)

// Dataset is a uniformly shaped tabular file: ordered column names plus rows
// keyed by column name. Cell values are strings as rendered in the source.
type Dataset struct {
	Columns []string
	Rows    []map[string]string
}

// Read loads a spreadsheet or CSV file by extension. The sheet argument
// selects an Excel worksheet; empty means the first sheet. CSV ignores it.
func Read(path, sheet string) (*Dataset, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xlsx", ".xlsm", ".xls":
		return ReadExcel(path, sheet)
	case ".csv":
		return ReadCSV(path)
	default:
		return nil, errors.NewValidationError("path", path,
			fmt.Sprintf("unsupported file extension %q", ext))
	}
}

// ReadExcel loads one worksheet of an Excel workbook.
func ReadExcel(path, sheet string) (*Dataset, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.WrapIO("open", path, err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	raw, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.WrapParse("xlsx", path, err)
	}
	return fromRawRows(raw)
}

// SheetNames lists the worksheets of an Excel workbook in workbook order.
func SheetNames(path string) ([]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.WrapIO("open", path, err)
	}
	defer f.Close()
	return f.GetSheetList(), nil
}

// ReadCSV loads a CSV file. Records may have ragged lengths; short rows pad
// with empty cells.
func ReadCSV(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WrapIO("open", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	raw, err := r.ReadAll()
	if err != nil {
		return nil, errors.WrapParse("csv", path, err)
	}
	return fromRawRows(raw)
}

// fromRawRows locates the header row, merges a qualifying row above it into
// two-row header names, deduplicates column names, and materializes the data
// rows below the header. Blank rows are dropped.
func fromRawRows(raw [][]string) (*Dataset, error) {
	width := sheetWidth(raw)
	headerIdx := detectHeaderRow(raw)
	if headerIdx < 0 {
		return nil, errors.NewParseError("tabular", "", "no header row found", nil)
	}

	header := raw[headerIdx]
	if headerIdx > 0 && mergeableHeader(raw[headerIdx-1], width) {
		header = mergeHeaders(raw[headerIdx-1], header)
	}
	columns := dedupeColumns(trimAll(header))

	var rows []map[string]string
	for _, record := range raw[headerIdx+1:] {
		if blankRow(record) {
			continue
		}
		row := make(map[string]string, len(columns))
		for i, col := range columns {
			if col == "" {
				continue
			}
			if i < len(record) {
				row[col] = strings.TrimSpace(record[i])
			} else {
				row[col] = ""
			}
		}
		rows = append(rows, row)
	}

	var named []string
	for _, col := range columns {
		if col != "" {
			named = append(named, col)
		}
	}
	if len(named) == 0 {
		return nil, errors.NewParseError("tabular", "", "header row has no named columns", nil)
	}
	return &Dataset{Columns: named, Rows: rows}, nil
}

// sheetWidth returns the widest row length. Excel and ragged-CSV rows are
// right-trimmed, so a row's own length understates how sparse it is; density
// is always measured against the full sheet width.
func sheetWidth(raw [][]string) int {
	width := 0
	for _, row := range raw {
		if len(row) > width {
			width = len(row)
		}
	}
	return width
}

// rowDensity is the share of a row's cells that are non-empty, measured
// against the sheet width.
func rowDensity(row []string, width int) float64 {
	if width == 0 {
		return 0
	}
	filled := 0
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			filled++
		}
	}
	return float64(filled) / float64(width)
}

// detectHeaderRow picks the densest row among the first headerScanRows rows,
// requiring at least half the sheet width non-empty. Measuring against the
// sheet width keeps a short title row (one cell, right-trimmed) from
// outscoring the real header beneath it.
func detectHeaderRow(raw [][]string) int {
	limit := len(raw)
	if limit > headerScanRows {
		limit = headerScanRows
	}
	width := sheetWidth(raw)

	bestIdx, bestDensity := -1, 0.0
	for i := 0; i < limit; i++ {
		if density := rowDensity(raw[i], width); density > bestDensity {
			bestIdx, bestDensity = i, density
		}
	}
	if bestDensity < headerMinDensity {
		return -1
	}
	return bestIdx
}

// mergeableHeader reports whether the row above the detected header is the
// top half of a two-row header. It must itself clear the density threshold;
// a sparse title or banner row does not qualify the header cells beneath it.
func mergeableHeader(above []string, width int) bool {
	return rowDensity(above, width) >= headerMinDensity
}

// mergeHeaders prefixes header cells with the non-empty cell above them.
func mergeHeaders(above, header []string) []string {
	out := make([]string, len(header))
	for i, cell := range header {
		cell = strings.TrimSpace(cell)
		prefix := ""
		if i < len(above) {
			prefix = strings.TrimSpace(above[i])
		}
		switch {
		case prefix == "":
			out[i] = cell
		case cell == "":
			out[i] = prefix
		default:
			out[i] = prefix + " " + cell
		}
	}
	return out
}

func trimAll(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = strings.TrimSpace(c)
	}
	return out
}

// dedupeColumns suffixes repeated column names with their occurrence index
// so every named column is addressable.
func dedupeColumns(columns []string) []string {
	seen := make(map[string]int, len(columns))
	out := make([]string, len(columns))
	for i, col := range columns {
		if col == "" {
			out[i] = ""
			continue
		}
		if n := seen[col]; n > 0 {
			out[i] = fmt.Sprintf("%s.%d", col, n)
		} else {
			out[i] = col
		}
		seen[col]++
	}
	return out
}

// blankRow reports whether every cell is empty after trimming.
func blankRow(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
