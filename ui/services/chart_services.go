package services

import (
	"encoding/json"
	"fmt"
	"html"
	"html/template"
	"math"
	"sort"
	"strconv"
	"strings"

	"datapilot/domain/analysis"
)

const (
	chartWidth  = 640.0
	chartHeight = 300.0
	chartPad    = 36.0
)

var palette = []string{"#6366f1", "#22c55e", "#3b82f6", "#f59e0b", "#ec4899", "#14b8a6", "#a855f7", "#ef4444"}

type point struct {
	Label string
	Value float64
}

// ChartSVG draws a chart as inline SVG. Unknown kinds fall back to bars.
func ChartSVG(chart analysis.Chart) template.HTML {
	var body string
	switch chart.Kind {
	case analysis.ChartScatter:
		body = scatterSVG(chart.Data)
	case analysis.ChartPie:
		body = pieSVG(series(chart.Data))
	case analysis.ChartLine:
		body = lineSVG(series(chart.Data))
	default:
		body = barSVG(series(chart.Data))
	}
	if body == "" {
		return template.HTML(`<p class="chart-empty">No plottable values</p>`)
	}
	return template.HTML(fmt.Sprintf(
		`<svg class="chart" viewBox="0 0 %.0f %.0f" role="img" aria-label="%s" xmlns="http://www.w3.org/2000/svg">%s</svg>`,
		chartWidth, chartHeight, html.EscapeString(chart.Title), body))
}

// series reads label/value pairs from chart rows. The value is the "value"
// field, or the first numeric field other than the label.
func series(rows []analysis.Row) []point {
	var out []point
	for i, row := range rows {
		label, ok := row["name"].(string)
		if !ok || label == "" {
			label = strconv.Itoa(i + 1)
		}
		v, ok := number(row["value"])
		if !ok {
			v, ok = firstNumber(row)
		}
		if !ok {
			continue
		}
		out = append(out, point{Label: label, Value: v})
	}
	return out
}

func firstNumber(row analysis.Row) (float64, bool) {
	keys := make([]string, 0, len(row))
	for k := range row {
		if k != "name" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		if v, ok := number(row[k]); ok {
			return v, true
		}
	}
	return 0, false
}

func number(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, finite(x)
	case float32:
		return float64(x), finite(float64(x))
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil && finite(f)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil && finite(f)
	}
	return 0, false
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func bounds(values []float64) (lo, hi float64) {
	lo, hi = 0, 0
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if hi == lo {
		hi = lo + 1
	}
	return lo, hi
}

func barSVG(points []point) string {
	if len(points) == 0 {
		return ""
	}
	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.Value
	}
	lo, hi := bounds(values)
	plotH := chartHeight - 2*chartPad
	scale := func(v float64) float64 { return chartPad + (hi-v)/(hi-lo)*plotH }
	zero := scale(0)
	slot := (chartWidth - 2*chartPad) / float64(len(points))

	var b strings.Builder
	fmt.Fprintf(&b, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" class="axis"/>`, chartPad, zero, chartWidth-chartPad, zero)
	for i, p := range points {
		x := chartPad + float64(i)*slot + slot*0.15
		y := math.Min(scale(p.Value), zero)
		h := math.Abs(scale(p.Value) - zero)
		fmt.Fprintf(&b, `<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="%s"><title>%s: %s</title></rect>`,
			x, y, slot*0.7, h, palette[i%len(palette)], html.EscapeString(p.Label), FormatCell(p.Value))
		if len(points) <= 12 {
			fmt.Fprintf(&b, `<text x="%.1f" y="%.1f" class="tick" text-anchor="middle">%s</text>`,
				x+slot*0.35, chartHeight-chartPad/3, html.EscapeString(truncate(p.Label, 14)))
		}
	}
	return b.String()
}

func lineSVG(points []point) string {
	if len(points) == 0 {
		return ""
	}
	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.Value
	}
	lo, hi := bounds(values)
	plotW, plotH := chartWidth-2*chartPad, chartHeight-2*chartPad
	step := plotW
	if len(points) > 1 {
		step = plotW / float64(len(points)-1)
	}

	coords := make([]string, len(points))
	var dots strings.Builder
	for i, p := range points {
		x := chartPad + float64(i)*step
		if len(points) == 1 {
			x = chartWidth / 2
		}
		y := chartPad + (hi-p.Value)/(hi-lo)*plotH
		coords[i] = fmt.Sprintf("%.1f,%.1f", x, y)
		fmt.Fprintf(&dots, `<circle cx="%.1f" cy="%.1f" r="3" fill="%s"><title>%s: %s</title></circle>`,
			x, y, palette[0], html.EscapeString(p.Label), FormatCell(p.Value))
	}
	return fmt.Sprintf(`<polyline points="%s" fill="none" stroke="%s" stroke-width="2"/>%s`,
		strings.Join(coords, " "), palette[0], dots.String())
}

func pieSVG(points []point) string {
	var total float64
	for _, p := range points {
		if p.Value > 0 {
			total += p.Value
		}
	}
	if total == 0 {
		return ""
	}

	cx, cy, r := chartHeight/2, chartHeight/2, chartHeight/2-chartPad/2
	var b strings.Builder
	angle := -math.Pi / 2
	legendY := chartPad
	for i, p := range points {
		if p.Value <= 0 {
			continue
		}
		color := palette[i%len(palette)]
		share := p.Value / total
		label := fmt.Sprintf("%s: %s (%.0f%%)", p.Label, FormatCell(p.Value), share*100)
		if share >= 0.9999 {
			fmt.Fprintf(&b, `<circle cx="%.1f" cy="%.1f" r="%.1f" fill="%s"><title>%s</title></circle>`, cx, cy, r, color, html.EscapeString(label))
		} else {
			end := angle + share*2*math.Pi
			large := 0
			if share > 0.5 {
				large = 1
			}
			fmt.Fprintf(&b, `<path d="M%.1f,%.1f L%.1f,%.1f A%.1f,%.1f 0 %d 1 %.1f,%.1f Z" fill="%s"><title>%s</title></path>`,
				cx, cy, cx+r*math.Cos(angle), cy+r*math.Sin(angle), r, r, large,
				cx+r*math.Cos(end), cy+r*math.Sin(end), color, html.EscapeString(label))
			angle = end
		}
		fmt.Fprintf(&b, `<rect x="%.1f" y="%.1f" width="10" height="10" fill="%s"/><text x="%.1f" y="%.1f" class="legend">%s</text>`,
			chartHeight+10, legendY-9, color, chartHeight+26, legendY, html.EscapeString(truncate(label, 40)))
		legendY += 18
	}
	return b.String()
}

func scatterSVG(rows []analysis.Row) string {
	type xy struct {
		x, y    float64
		outlier bool
	}
	var pts []xy
	var xs, ys []float64
	for _, row := range rows {
		x, okX := number(row["x"])
		y, okY := number(row["y"])
		if !okX || !okY {
			continue
		}
		flagged, _ := row["outlier"].(bool)
		pts = append(pts, xy{x, y, flagged})
		xs = append(xs, x)
		ys = append(ys, y)
	}
	if len(pts) == 0 {
		return ""
	}
	xlo, xhi := spread(xs)
	ylo, yhi := spread(ys)
	plotW, plotH := chartWidth-2*chartPad, chartHeight-2*chartPad

	var b strings.Builder
	fmt.Fprintf(&b, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" class="axis"/>`, chartPad, chartHeight-chartPad, chartWidth-chartPad, chartHeight-chartPad)
	for _, p := range pts {
		color := palette[2]
		if p.outlier {
			color = palette[7]
		}
		fmt.Fprintf(&b, `<circle cx="%.1f" cy="%.1f" r="4" fill="%s"><title>(%s, %s)</title></circle>`,
			chartPad+(p.x-xlo)/(xhi-xlo)*plotW, chartPad+(yhi-p.y)/(yhi-ylo)*plotH, color,
			FormatCell(p.x), FormatCell(p.y))
	}
	return b.String()
}

func spread(values []float64) (lo, hi float64) {
	lo, hi = values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if hi == lo {
		lo, hi = lo-1, hi+1
	}
	return lo, hi
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
