// Package dataops implements the cleaning operations and analysis tasks
// served by the development backend.
package dataops

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"datapilot/domain/analysis"
)

// numericShare is the fraction of non-empty cells that must parse as
// numbers for a column to count as numeric
const numericShare = 0.8

// toFloat converts a cell to float64 when it holds a number
func toFloat(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, finite(x)
	case float32:
		return float64(x), finite(float64(x))
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case int32:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil && finite(f)
	}
	return 0, false
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func isEmpty(v interface{}) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}

// NumericColumns returns the columns whose non-empty cells are mostly numbers
func NumericColumns(columns []string, rows []analysis.Row) []string {
	var out []string
	for _, col := range columns {
		total, numeric := 0, 0
		for _, row := range rows {
			v := row[col]
			if isEmpty(v) {
				continue
			}
			total++
			if _, ok := toFloat(v); ok {
				numeric++
			}
		}
		if total > 0 && float64(numeric)/float64(total) >= numericShare {
			out = append(out, col)
		}
	}
	return out
}

// CategoricalColumns returns the columns that are not numeric
func CategoricalColumns(columns []string, rows []analysis.Row) []string {
	numeric := map[string]bool{}
	for _, c := range NumericColumns(columns, rows) {
		numeric[c] = true
	}
	var out []string
	for _, col := range columns {
		if !numeric[col] {
			out = append(out, col)
		}
	}
	return out
}

// Values collects the numeric cells of a column, skipping the rest
func Values(col string, rows []analysis.Row) []float64 {
	out := make([]float64, 0, len(rows))
	for _, row := range rows {
		if f, ok := toFloat(row[col]); ok {
			out = append(out, f)
		}
	}
	return out
}

// label returns a display label for row i
func label(labelCol string, row analysis.Row, i int) string {
	if labelCol != "" && !isEmpty(row[labelCol]) {
		return fmt.Sprint(row[labelCol])
	}
	return fmt.Sprintf("Row %d", i+1)
}

// distinct returns the distinct string values of a column in first-seen order
func distinct(col string, rows []analysis.Row) []string {
	seen := map[string]bool{}
	var out []string
	for _, row := range rows {
		if isEmpty(row[col]) {
			continue
		}
		v := fmt.Sprint(row[col])
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

// groupColumn picks the first categorical column that actually groups rows,
// falling back to the first categorical column
func groupColumn(categorical []string, rows []analysis.Row) string {
	for _, col := range categorical {
		if n := len(distinct(col, rows)); n >= 2 && n < len(rows) {
			return col
		}
	}
	if len(categorical) > 0 {
		return categorical[0]
	}
	return ""
}

// columnsOf keeps the given order and falls back to sorted keys
func columnsOf(columns []string, rows []analysis.Row) []string {
	if len(columns) > 0 || len(rows) == 0 {
		return columns
	}
	cols := analysis.ColumnsOf(rows[0])
	sort.Strings(cols)
	return cols
}
