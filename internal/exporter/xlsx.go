package exporter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Sheet is one worksheet of an exported workbook.
type Sheet struct {
	Name  string
	Table Table
}

const maxSheetName = 31

// EncodeXLSX builds a workbook with one worksheet per sheet, in order.
// Measure columns are written as numbers.
func EncodeXLSX(sheets ...Sheet) ([]byte, error) {
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook needs at least one sheet")
	}

	f := excelize.NewFile()
	defer f.Close()

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	seen := make(map[string]bool)
	for i, sheet := range sheets {
		name := sheetName(sheet.Name, i)
		if seen[name] {
			return nil, fmt.Errorf("duplicate sheet name %q", name)
		}
		seen[name] = true

		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return nil, fmt.Errorf("failed to name sheet %q: %w", name, err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("failed to add sheet %q: %w", name, err)
		}

		if err := writeSheet(f, name, sheet.Table, header); err != nil {
			return nil, fmt.Errorf("failed to write sheet %q: %w", name, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to encode workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, name string, table Table, headerStyle int) error {
	numeric := make([]bool, len(table.Columns))
	for i, c := range table.Columns {
		numeric[i] = isNumericColumn(c)

		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(name, cell, c); err != nil {
			return err
		}
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(name, col, col, 18); err != nil {
			return err
		}
	}
	if len(table.Columns) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(table.Columns), 1)
		if err := f.SetCellStyle(name, "A1", last, headerStyle); err != nil {
			return err
		}
	}

	for r, row := range table.Rows {
		values := make([]interface{}, len(row))
		for c, v := range row {
			values[c] = v
			if c < len(numeric) && numeric[c] && v != "" {
				if n, err := strconv.ParseFloat(v, 64); err == nil {
					values[c] = n
				}
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(name, cell, &values); err != nil {
			return err
		}
	}
	return nil
}

func isNumericColumn(name string) bool {
	switch name {
	case "QTY", "NIC", "ITEMS", "Rank", "Latitude", "Longitude":
		return true
	}
	for _, prefix := range []string{"Forecast_", "Published_", "Computed_", "Delta_"} {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// sheetName trims name to what Excel accepts.
func sheetName(name string, index int) string {
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	if name == "" {
		name = fmt.Sprintf("Sheet%d", index+1)
	}
	if len([]rune(name)) > maxSheetName {
		name = string([]rune(name)[:maxSheetName])
	}
	return name
}
