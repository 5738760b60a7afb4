package excel

import (
	"fmt"
	"strings"

	"datapilot/domain/analysis"

	"github.com/xuri/excelize/v2"
)

// maxSheetName is Excel's limit on worksheet names
const maxSheetName = 31

// Sheet is one worksheet of an exported workbook
type Sheet struct {
	Name    string
	Columns []string
	Rows    []analysis.Row
}

// WriteWorkbook renders sheets into an xlsx file; the first sheet is active
func WriteWorkbook(sheets []Sheet) ([]byte, error) {
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook needs at least one sheet")
	}

	f := excelize.NewFile()
	defer f.Close()

	used := map[string]bool{}
	for i, sheet := range sheets {
		name := sheetName(sheet.Name, i, used)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return nil, fmt.Errorf("failed to rename first sheet: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("failed to add sheet %s: %w", name, err)
		}

		header := make([]interface{}, len(sheet.Columns))
		for j, col := range sheet.Columns {
			header[j] = col
		}
		if err := f.SetSheetRow(name, "A1", &header); err != nil {
			return nil, fmt.Errorf("failed to write header of %s: %w", name, err)
		}
		if len(sheet.Columns) > 0 {
			lastCol, _ := excelize.ColumnNumberToName(len(sheet.Columns))
			style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
			if err == nil {
				_ = f.SetCellStyle(name, "A1", lastCol+"1", style)
			}
		}

		for r, row := range sheet.Rows {
			values := make([]interface{}, len(sheet.Columns))
			for j, col := range sheet.Columns {
				values[j] = row[col]
			}
			cell, err := excelize.CoordinatesToCellName(1, r+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetSheetRow(name, cell, &values); err != nil {
				return nil, fmt.Errorf("failed to write row %d of %s: %w", r+1, name, err)
			}
		}
	}
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func sheetName(name string, idx int, used map[string]bool) string {
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	if name == "" {
		name = fmt.Sprintf("Sheet%d", idx+1)
	}
	if len(name) > maxSheetName {
		name = name[:maxSheetName]
	}
	base := name
	for n := 2; used[strings.ToLower(name)]; n++ {
		suffix := fmt.Sprintf("_%d", n)
		if len(base)+len(suffix) > maxSheetName {
			name = base[:maxSheetName-len(suffix)] + suffix
		} else {
			name = base + suffix
		}
	}
	used[strings.ToLower(name)] = true
	return name
}
