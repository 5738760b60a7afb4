// Package export builds downloadable artifacts from a wizard session.
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"datapilot/adapters/excel"
	"datapilot/domain/analysis"
	"datapilot/internal/errors"
)

// Content types of the supported formats
const (
	ContentTypeJSON = "application/json"
	ContentTypeCSV  = "text/csv; charset=utf-8"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ContentTypeText = "text/plain; charset=utf-8"
)

// Kinds understood besides chart ids
const (
	KindReport   = "report"
	KindCleaned  = "cleaned-data"
	KindDataset  = "dataset"
	KindInsights = "insights"
)

// Exporter implements ports.ArtifactExporter
type Exporter struct{}

// NewExporter creates an exporter
func NewExporter() *Exporter {
	return &Exporter{}
}

// table is a resolved export source
type table struct {
	name    string
	columns []string
	rows    []analysis.Row
}

// Export renders kind in format. json, csv and xlsx carry the session data;
// any other format gets a plain-text summary.
func (e *Exporter) Export(bundle analysis.Bundle, kind, format string) (*analysis.Artifact, error) {
	format = strings.ToLower(format)
	artifact := &analysis.Artifact{Name: kind + "." + format}

	if kind == KindReport {
		return e.exportReport(bundle, artifact, format)
	}

	t := resolve(bundle, kind)
	var err error
	switch format {
	case "json":
		artifact.ContentType = ContentTypeJSON
		artifact.Data, err = json.MarshalIndent(t.rows, "", "  ")
	case "csv":
		artifact.ContentType = ContentTypeCSV
		artifact.Data, err = writeCSV(t.columns, t.rows)
	case "xlsx":
		artifact.ContentType = ContentTypeXLSX
		artifact.Data, err = excel.WriteWorkbook([]excel.Sheet{{Name: t.name, Columns: t.columns, Rows: t.rows}})
	default:
		artifact.ContentType = ContentTypeText
		artifact.Data = []byte(summary(bundle, kind, format))
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to encode %s", artifact.Name)
	}
	return artifact, nil
}

func (e *Exporter) exportReport(bundle analysis.Bundle, artifact *analysis.Artifact, format string) (*analysis.Artifact, error) {
	var err error
	switch format {
	case "json":
		artifact.ContentType = ContentTypeJSON
		artifact.Data, err = json.MarshalIndent(map[string]interface{}{
			"role":     bundle.RoleName,
			"columns":  bundle.Columns,
			"preview":  bundle.Preview,
			"cleaned":  bundle.Cleaned,
			"charts":   bundle.Charts,
			"insights": bundle.Insights,
		}, "", "  ")
	case "xlsx":
		artifact.ContentType = ContentTypeXLSX
		sheets := []excel.Sheet{{Name: "Data", Columns: bundle.Columns, Rows: bundle.Preview}}
		if len(bundle.Cleaned) > 0 {
			sheets = append(sheets, excel.Sheet{Name: "Cleaned", Columns: columnsFor(bundle.Columns, bundle.Cleaned), Rows: bundle.Cleaned})
		}
		for _, c := range bundle.Charts {
			sheets = append(sheets, excel.Sheet{Name: c.ID, Columns: columnsFor(nil, c.Data), Rows: c.Data})
		}
		if len(bundle.Insights) > 0 {
			sheets = append(sheets, insightSheet(bundle.Insights))
		}
		artifact.Data, err = excel.WriteWorkbook(sheets)
	case "csv":
		artifact.ContentType = ContentTypeCSV
		t := resolve(bundle, KindCleaned)
		artifact.Data, err = writeCSV(t.columns, t.rows)
	default:
		artifact.ContentType = ContentTypeText
		artifact.Data = []byte(summary(bundle, KindReport, format))
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to encode %s", artifact.Name)
	}
	return artifact, nil
}

// resolve picks the rows a kind refers to. Chart ids win over the preview
// fallback; cleaned data falls back to the preview when nothing was cleaned.
func resolve(bundle analysis.Bundle, kind string) table {
	switch kind {
	case KindCleaned, "cleaned":
		if len(bundle.Cleaned) > 0 {
			return table{name: "Cleaned", columns: columnsFor(bundle.Columns, bundle.Cleaned), rows: bundle.Cleaned}
		}
	case KindInsights:
		s := insightSheet(bundle.Insights)
		return table{name: s.Name, columns: s.Columns, rows: s.Rows}
	case KindDataset, "data", "preview":
	default:
		for _, c := range bundle.Charts {
			if c.ID == kind {
				return table{name: c.ID, columns: columnsFor(nil, c.Data), rows: c.Data}
			}
		}
	}
	return table{name: "Data", columns: columnsFor(bundle.Columns, bundle.Preview), rows: bundle.Preview}
}

func insightSheet(insights []analysis.Insight) excel.Sheet {
	rows := make([]analysis.Row, 0, len(insights))
	for _, in := range insights {
		rows = append(rows, analysis.Row{
			"question":  in.Question,
			"response":  in.Response,
			"timestamp": in.CreatedAt.String(),
		})
	}
	return excel.Sheet{Name: "Insights", Columns: []string{"question", "response", "timestamp"}, Rows: rows}
}

func columnsFor(columns []string, rows []analysis.Row) []string {
	if len(columns) > 0 || len(rows) == 0 {
		return columns
	}
	return analysis.ColumnsOf(rows[0])
}

func writeCSV(columns []string, rows []analysis.Row) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(columns); err != nil {
		return nil, err
	}
	record := make([]string, len(columns))
	for _, row := range rows {
		for i, col := range columns {
			record[i] = cellString(row[col])
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func cellString(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

func summary(bundle analysis.Bundle, kind, format string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s export\n", kind, strings.ToUpper(format))
	fmt.Fprintf(&b, "Role: %s\n", bundle.RoleName)
	fmt.Fprintf(&b, "Rows: %d preview, %d cleaned\n", len(bundle.Preview), len(bundle.Cleaned))
	fmt.Fprintf(&b, "Charts: %d\n", len(bundle.Charts))
	for _, c := range bundle.Charts {
		fmt.Fprintf(&b, "  - %s (%s, %d points)\n", c.Title, c.Kind, len(c.Data))
	}
	fmt.Fprintf(&b, "Insights: %d\n", len(bundle.Insights))
	return b.String()
}

// DirSaver writes artifacts into a directory
type DirSaver struct {
	Dir string
}

// Save writes the artifact as Dir/<name>
func (s DirSaver) Save(ctx context.Context, artifact analysis.Artifact) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", s.Dir, err)
	}
	path := filepath.Join(s.Dir, filepath.Base(artifact.Name))
	if err := os.WriteFile(path, artifact.Data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	log.Printf("[Export] saved %s (%d bytes)", path, len(artifact.Data))
	return nil
}
