package services

import (
	"fmt"
	"strconv"

	"datapilot/domain/analysis"
	"datapilot/internal/dataops"
)

// DefaultPreviewRows is how many rows the preview tables show
const DefaultPreviewRows = 10

// Column is one header of a rendered table
type Column struct {
	Name    string
	Numeric bool
}

// Table is a dataset laid out for the templates
type Table struct {
	Columns   []Column
	Rows      [][]string
	Total     int
	Truncated bool
}

// Empty reports whether the table has nothing to show
func (t Table) Empty() bool {
	return len(t.Rows) == 0
}

// DataService turns wizard rows into table views
type DataService struct {
	maxRows int
}

func NewDataService(maxRows int) *DataService {
	if maxRows <= 0 {
		maxRows = DefaultPreviewRows
	}
	return &DataService{maxRows: maxRows}
}

// Table lays rows out under columns. When columns is empty the keys of the
// first row are used.
func (s *DataService) Table(columns []string, rows []analysis.Row) Table {
	if len(rows) == 0 {
		return Table{}
	}
	if len(columns) == 0 {
		columns = analysis.ColumnsOf(rows[0])
	} else {
		columns = alignColumns(columns, rows)
	}

	numeric := make(map[string]bool)
	for _, col := range dataops.NumericColumns(columns, rows) {
		numeric[col] = true
	}

	table := Table{Total: len(rows), Truncated: len(rows) > s.maxRows}
	for _, col := range columns {
		table.Columns = append(table.Columns, Column{Name: col, Numeric: numeric[col]})
	}
	for _, row := range analysis.Head(rows, s.maxRows) {
		cells := make([]string, len(columns))
		for i, col := range columns {
			cells[i] = FormatCell(row[col])
		}
		table.Rows = append(table.Rows, cells)
	}
	return table
}

// alignColumns keeps the declared columns the rows still carry and appends
// keys added by cleaning, such as one-hot or engineered features
func alignColumns(columns []string, rows []analysis.Row) []string {
	present := make(map[string]bool)
	for _, row := range rows {
		for k := range row {
			present[k] = true
		}
	}
	known := make(map[string]bool, len(columns))
	out := make([]string, 0, len(columns))
	for _, c := range columns {
		known[c] = true
		if present[c] {
			out = append(out, c)
		}
	}
	for _, c := range analysis.ColumnsOf(rows[0]) {
		if !known[c] {
			out = append(out, c)
		}
	}
	return out
}

// FormatCell renders a cell value for display
func FormatCell(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return "—"
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}
