package dataops

import (
	"fmt"
	"log"
	"math"
	"sort"
	"strings"

	"datapilot/domain/analysis"
	"datapilot/domain/core"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// maxChartPoints caps how many rows a label chart plots
const maxChartPoints = 50

// chartBuilder computes a chart from a dataset
type chartBuilder func(in taskInput) (analysis.Chart, error)

type taskInput struct {
	columns     []string
	rows        []analysis.Row
	numeric     []string
	categorical []string
}

// Analyze runs the analysis task and returns its chart. Tasks without a
// dedicated builder chart the first numeric column by the first label column;
// the kind follows the task family (trend, segment or default).
func Analyze(task core.TaskID, columns []string, rows []analysis.Row) (*analysis.Chart, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("task %s needs at least one row", task)
	}
	columns = columnsOf(columns, rows)
	in := taskInput{
		columns:     columns,
		rows:        rows,
		numeric:     NumericColumns(columns, rows),
		categorical: CategoricalColumns(columns, rows),
	}

	chart, err := builderFor(task)(in)
	if err != nil {
		return nil, err
	}
	chart.ID = string(task)
	if chart.Title == "" {
		chart.Title = fmt.Sprintf("%s Analysis", titleCase(string(task)))
	}
	log.Printf("[DataOps] task %s: %s chart with %d points", task, chart.Kind, len(chart.Data))
	return &chart, nil
}

func builderFor(task core.TaskID) chartBuilder {
	id := string(task)
	switch {
	case id == "summary-stats" || id == "auto-eda" || id == "kpi-dashboard" || id == "hospital-stats":
		return summaryChart
	case strings.Contains(id, "correlation") || id == "feature-importance" || id == "risk-heatmap":
		return correlationChart
	case strings.Contains(id, "outlier") || strings.Contains(id, "anomaly") || id == "drift-monitoring" || id == "volatility-analysis":
		return outlierChart
	case id == "hypothesis-testing":
		return hypothesisChart
	case strings.Contains(id, "trend") || strings.Contains(id, "forecast") || strings.Contains(id, "survival") || strings.Contains(id, "funnel"):
		return labelChart(analysis.ChartLine)
	case strings.Contains(id, "segment") || strings.Contains(id, "cluster") || strings.Contains(id, "basket") ||
		id == "prevalence-graph" || id == "rfm-analysis":
		return segmentChart
	default:
		return labelChart(analysis.ChartBar)
	}
}

// summaryChart plots the mean of each numeric column; the full profiles go
// into the chart config
func summaryChart(in taskInput) (analysis.Chart, error) {
	if len(in.numeric) == 0 {
		return analysis.Chart{}, fmt.Errorf("summary statistics need a numeric column")
	}
	data := make([]analysis.Row, 0, len(in.numeric))
	profiles := make([]Profile, 0, len(in.numeric))
	for _, col := range in.numeric {
		p, err := ProfileColumn(col, Values(col, in.rows))
		if err != nil {
			continue
		}
		profiles = append(profiles, p)
		data = append(data, analysis.Row{"name": col, "value": round(p.Mean, 4)})
	}
	return analysis.Chart{
		Kind:   analysis.ChartBar,
		Title:  "Summary Statistics (mean per column)",
		Data:   data,
		Config: map[string]interface{}{"profiles": profiles},
	}, nil
}

// correlationChart plots the Pearson correlation of each numeric column pair
func correlationChart(in taskInput) (analysis.Chart, error) {
	if len(in.numeric) < 2 {
		return analysis.Chart{}, fmt.Errorf("correlation needs at least two numeric columns")
	}
	var data []analysis.Row
	for i := 0; i < len(in.numeric); i++ {
		for j := i + 1; j < len(in.numeric); j++ {
			x, y := pairedValues(in.numeric[i], in.numeric[j], in.rows)
			if len(x) < 2 {
				continue
			}
			r := stat.Correlation(x, y, nil)
			if math.IsNaN(r) {
				r = 0
			}
			data = append(data, analysis.Row{
				"name":  in.numeric[i] + " × " + in.numeric[j],
				"value": round(r, 4),
			})
		}
	}
	sort.SliceStable(data, func(a, b int) bool {
		return math.Abs(data[a]["value"].(float64)) > math.Abs(data[b]["value"].(float64))
	})
	return analysis.Chart{
		Kind:   analysis.ChartBar,
		Title:  "Correlation Analysis",
		Data:   data,
		Config: map[string]interface{}{"method": "pearson"},
	}, nil
}

// outlierChart scatters the first numeric column and flags IQR outliers
func outlierChart(in taskInput) (analysis.Chart, error) {
	if len(in.numeric) == 0 {
		return analysis.Chart{}, fmt.Errorf("outlier detection needs a numeric column")
	}
	col := in.numeric[0]
	data := Values(col, in.rows)
	q25, q75, err := quartiles(data)
	if err != nil {
		return analysis.Chart{}, err
	}
	flagged := map[int]bool{}
	for _, i := range OutlierIndexes(data, q25, q75) {
		flagged[i] = true
	}

	points := make([]analysis.Row, 0, len(data))
	for i, v := range data {
		points = append(points, analysis.Row{"x": float64(i + 1), "y": v, "outlier": flagged[i]})
	}
	return analysis.Chart{
		Kind:  analysis.ChartScatter,
		Title: fmt.Sprintf("Outliers in %s", col),
		Data:  points,
		Config: map[string]interface{}{
			"column":   col,
			"outliers": len(flagged),
			"lower":    q25 - 1.5*(q75-q25),
			"upper":    q75 + 1.5*(q75-q25),
		},
	}, nil
}

// hypothesisChart compares the first numeric column between the two largest
// groups of a categorical column with Welch's t-test
func hypothesisChart(in taskInput) (analysis.Chart, error) {
	if len(in.numeric) == 0 || len(in.categorical) == 0 {
		return analysis.Chart{}, fmt.Errorf("hypothesis testing needs a numeric and a categorical column")
	}
	metric, group := in.numeric[0], groupColumn(in.categorical, in.rows)

	groups := map[string][]float64{}
	for _, row := range in.rows {
		f, ok := toFloat(row[metric])
		if !ok || isEmpty(row[group]) {
			continue
		}
		k := fmt.Sprint(row[group])
		groups[k] = append(groups[k], f)
	}
	names := distinct(group, in.rows)
	sort.SliceStable(names, func(i, j int) bool { return len(groups[names[i]]) > len(groups[names[j]]) })
	if len(names) < 2 || len(groups[names[0]]) < 2 || len(groups[names[1]]) < 2 {
		return analysis.Chart{}, fmt.Errorf("hypothesis testing needs two groups of %s with at least two rows", group)
	}

	a, b := groups[names[0]], groups[names[1]]
	t, p := welch(a, b)
	meanA, _ := stats.Mean(a)
	meanB, _ := stats.Mean(b)
	return analysis.Chart{
		Kind:  analysis.ChartBar,
		Title: fmt.Sprintf("%s by %s: %s vs %s", metric, group, names[0], names[1]),
		Data: []analysis.Row{
			{"name": names[0], "value": round(meanA, 4)},
			{"name": names[1], "value": round(meanB, 4)},
		},
		Config: map[string]interface{}{
			"t_statistic": round(t, 4),
			"p_value":     round(p, 4),
			"significant": p < 0.05,
		},
	}, nil
}

func welch(a, b []float64) (t, p float64) {
	meanA, _ := stats.Mean(a)
	meanB, _ := stats.Mean(b)
	varA, _ := stats.SampleVariance(a)
	varB, _ := stats.SampleVariance(b)
	na, nb := float64(len(a)), float64(len(b))

	se := math.Sqrt(varA/na + varB/nb)
	if se == 0 {
		return 0, 1
	}
	t = (meanA - meanB) / se
	df := math.Pow(varA/na+varB/nb, 2) / (math.Pow(varA/na, 2)/(na-1) + math.Pow(varB/nb, 2)/(nb-1))
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	p = 2 * (1 - dist.CDF(math.Abs(t)))
	return t, p
}

// segmentChart sums the first numeric column per category (or counts rows)
func segmentChart(in taskInput) (analysis.Chart, error) {
	if len(in.categorical) == 0 {
		return labelChart(analysis.ChartPie)(in)
	}
	group := groupColumn(in.categorical, in.rows)
	metric := ""
	if len(in.numeric) > 0 {
		metric = in.numeric[0]
	}

	totals := map[string]float64{}
	for _, row := range in.rows {
		if isEmpty(row[group]) {
			continue
		}
		k := fmt.Sprint(row[group])
		if metric == "" {
			totals[k]++
		} else if f, ok := toFloat(row[metric]); ok {
			totals[k] += f
		}
	}
	data := make([]analysis.Row, 0, len(totals))
	for _, k := range distinct(group, in.rows) {
		data = append(data, analysis.Row{"name": k, "value": round(totals[k], 4)})
	}
	title := fmt.Sprintf("Rows by %s", group)
	if metric != "" {
		title = fmt.Sprintf("%s by %s", metric, group)
	}
	return analysis.Chart{Kind: analysis.ChartPie, Title: title, Data: data}, nil
}

// labelChart plots the first numeric column against the first label column
func labelChart(kind analysis.ChartKind) chartBuilder {
	return func(in taskInput) (analysis.Chart, error) {
		if len(in.numeric) == 0 {
			return analysis.Chart{}, fmt.Errorf("no numeric column to chart")
		}
		metric := in.numeric[0]
		labelCol := ""
		if len(in.categorical) > 0 {
			labelCol = in.categorical[0]
		}

		data := make([]analysis.Row, 0, len(in.rows))
		for i, row := range in.rows {
			if len(data) == maxChartPoints {
				break
			}
			f, ok := toFloat(row[metric])
			if !ok {
				continue
			}
			data = append(data, analysis.Row{"name": label(labelCol, row, i), "value": f})
		}
		return analysis.Chart{
			Kind:   kind,
			Data:   data,
			Config: map[string]interface{}{"metric": metric, "label": labelCol},
		}, nil
	}
}

func pairedValues(a, b string, rows []analysis.Row) ([]float64, []float64) {
	var x, y []float64
	for _, row := range rows {
		fa, okA := toFloat(row[a])
		fb, okB := toFloat(row[b])
		if okA && okB {
			x = append(x, fa)
			y = append(y, fb)
		}
	}
	return x, y
}

func titleCase(id string) string {
	words := strings.Fields(strings.ReplaceAll(id, "-", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
