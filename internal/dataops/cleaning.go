package dataops

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
	"strings"

	"datapilot/domain/analysis"
	"datapilot/domain/core"

	"github.com/montanaflynn/stats"
)

// maxOneHotLevels bounds the columns one-hot encoding may add per source column
const maxOneHotLevels = 12

// Result is the outcome of a cleaning operation
type Result struct {
	Columns []string
	Rows    []analysis.Row
}

type cleanFunc func(columns []string, rows []analysis.Row) Result

var operations = map[string]cleanFunc{
	"remove-nulls":        removeNulls,
	"normalize":           normalize,
	"one-hot-encode":      oneHotEncode,
	"drop-duplicates":     dropDuplicates,
	"aggregate":           aggregate,
	"impute":              impute,
	"feature-engineering": featureEngineering,
	"data-validation":     validate,
}

// Clean applies one named operation. Input rows are never modified.
func Clean(operation string, columns []string, rows []analysis.Row) (Result, error) {
	op, ok := operations[operation]
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", core.ErrUnknownAction, operation)
	}
	columns = columnsOf(columns, rows)
	res := op(append([]string(nil), columns...), analysis.CloneRows(rows))
	if res.Rows == nil {
		res.Rows = []analysis.Row{}
	}
	log.Printf("[DataOps] %s: %d rows -> %d rows, %d columns", operation, len(rows), len(res.Rows), len(res.Columns))
	return res, nil
}

func removeNulls(columns []string, rows []analysis.Row) Result {
	out := make([]analysis.Row, 0, len(rows))
	for _, row := range rows {
		complete := true
		for _, col := range columns {
			if isEmpty(row[col]) {
				complete = false
				break
			}
		}
		if complete {
			out = append(out, row)
		}
	}
	return Result{Columns: columns, Rows: out}
}

// normalize min-max scales numeric columns to [0, 1]
func normalize(columns []string, rows []analysis.Row) Result {
	for _, col := range NumericColumns(columns, rows) {
		data := Values(col, rows)
		min, _ := stats.Min(data)
		max, _ := stats.Max(data)
		span := max - min
		for _, row := range rows {
			f, ok := toFloat(row[col])
			if !ok {
				continue
			}
			if span == 0 {
				row[col] = 0.0
			} else {
				row[col] = round((f-min)/span, 4)
			}
		}
	}
	return Result{Columns: columns, Rows: rows}
}

func oneHotEncode(columns []string, rows []analysis.Row) Result {
	out := make([]string, 0, len(columns))
	for _, col := range columns {
		levels := distinct(col, rows)
		if contains(NumericColumns([]string{col}, rows), col) || len(levels) == 0 || len(levels) > maxOneHotLevels {
			out = append(out, col)
			continue
		}
		for _, level := range levels {
			name := col + "_" + strings.ReplaceAll(strings.ToLower(level), " ", "_")
			out = append(out, name)
			for _, row := range rows {
				if !isEmpty(row[col]) && fmt.Sprint(row[col]) == level {
					row[name] = 1.0
				} else {
					row[name] = 0.0
				}
			}
		}
		for _, row := range rows {
			delete(row, col)
		}
	}
	return Result{Columns: out, Rows: rows}
}

func dropDuplicates(columns []string, rows []analysis.Row) Result {
	seen := map[string]bool{}
	out := make([]analysis.Row, 0, len(rows))
	for _, row := range rows {
		values := make([]interface{}, len(columns))
		for i, col := range columns {
			values[i] = row[col]
		}
		key, _ := json.Marshal(values)
		if seen[string(key)] {
			continue
		}
		seen[string(key)] = true
		out = append(out, row)
	}
	return Result{Columns: columns, Rows: out}
}

// aggregate sums numeric columns grouped by a categorical column
func aggregate(columns []string, rows []analysis.Row) Result {
	categorical := CategoricalColumns(columns, rows)
	numeric := NumericColumns(columns, rows)
	if len(categorical) == 0 || len(numeric) == 0 {
		return Result{Columns: columns, Rows: rows}
	}
	group := groupColumn(categorical, rows)

	order := distinct(group, rows)
	buckets := map[string][]analysis.Row{}
	for _, row := range rows {
		if isEmpty(row[group]) {
			continue
		}
		k := fmt.Sprint(row[group])
		buckets[k] = append(buckets[k], row)
	}

	out := make([]analysis.Row, 0, len(order))
	for _, k := range order {
		agg := analysis.Row{group: k, "count": float64(len(buckets[k]))}
		for _, col := range numeric {
			sum, _ := stats.Sum(Values(col, buckets[k]))
			agg[col] = round(sum, 4)
		}
		out = append(out, agg)
	}
	return Result{Columns: append(append([]string{group}, numeric...), "count"), Rows: out}
}

// impute fills numeric gaps with the median and categorical gaps with the mode
func impute(columns []string, rows []analysis.Row) Result {
	numeric := map[string]bool{}
	for _, col := range NumericColumns(columns, rows) {
		numeric[col] = true
	}
	for _, col := range columns {
		var fill interface{}
		if numeric[col] {
			median, err := stats.Median(Values(col, rows))
			if err != nil {
				continue
			}
			fill = round(median, 4)
		} else {
			mode := mostCommon(col, rows)
			if mode == "" {
				continue
			}
			fill = mode
		}
		for _, row := range rows {
			if isEmpty(row[col]) {
				row[col] = fill
			}
		}
	}
	return Result{Columns: columns, Rows: rows}
}

// featureEngineering adds a z-score per numeric column and the ratio of the
// first two numeric columns
func featureEngineering(columns []string, rows []analysis.Row) Result {
	numeric := NumericColumns(columns, rows)
	out := append([]string(nil), columns...)
	for _, col := range numeric {
		data := Values(col, rows)
		mean, err := stats.Mean(data)
		if err != nil {
			continue
		}
		sd, _ := stats.StandardDeviation(data)
		name := col + "_zscore"
		out = append(out, name)
		for _, row := range rows {
			f, ok := toFloat(row[col])
			switch {
			case !ok:
				row[name] = nil
			case sd == 0:
				row[name] = 0.0
			default:
				row[name] = round((f-mean)/sd, 4)
			}
		}
	}
	if len(numeric) >= 2 {
		a, b := numeric[0], numeric[1]
		name := a + "_per_" + b
		out = append(out, name)
		for _, row := range rows {
			x, okA := toFloat(row[a])
			y, okB := toFloat(row[b])
			if okA && okB && y != 0 {
				row[name] = round(x/y, 4)
			} else {
				row[name] = nil
			}
		}
	}
	return Result{Columns: out, Rows: rows}
}

// validate drops rows whose numeric columns hold non-numeric text
func validate(columns []string, rows []analysis.Row) Result {
	numeric := NumericColumns(columns, rows)
	out := make([]analysis.Row, 0, len(rows))
	for _, row := range rows {
		ok := true
		for _, col := range numeric {
			if v := row[col]; !isEmpty(v) {
				if _, isNum := toFloat(v); !isNum {
					ok = false
					break
				}
			}
		}
		if ok {
			out = append(out, row)
		}
	}
	return Result{Columns: columns, Rows: out}
}

func mostCommon(col string, rows []analysis.Row) string {
	counts := map[string]int{}
	best, bestN := "", 0
	for _, row := range rows {
		if isEmpty(row[col]) {
			continue
		}
		counts[fmt.Sprint(row[col])]++
	}
	for _, v := range distinct(col, rows) {
		if counts[v] > bestN {
			best, bestN = v, counts[v]
		}
	}
	return best
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func round(f float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(f*p) / p
}
