// Package simulated is an in-process stand-in for the analytics backend.
// It waits a fixed delay per call and answers with a hard-coded sample
// dataset, so the wizard can be demonstrated without a real service.
package simulated

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"datapilot/domain/analysis"
	"datapilot/domain/catalog"
	"datapilot/domain/core"
)

// cleanedRowLimit is how many preview rows a simulated cleaning keeps
const cleanedRowLimit = 3

// Delays configures the artificial latency of each call
type Delays struct {
	Upload  time.Duration
	Clean   time.Duration
	Task    time.Duration
	Insight time.Duration
}

// DefaultDelays mimic a remote backend closely enough to exercise the busy states
func DefaultDelays() Delays {
	return Delays{
		Upload:  2 * time.Second,
		Clean:   1500 * time.Millisecond,
		Task:    2 * time.Second,
		Insight: 1500 * time.Millisecond,
	}
}

// Backend implements ports.AnalyticsBackend without any I/O
type Backend struct {
	delays Delays
}

// NewBackend creates a simulated backend
func NewBackend(delays Delays) *Backend {
	return &Backend{delays: delays}
}

// SampleColumns is the column order of SampleRows
var SampleColumns = []string{"name", "sales", "revenue", "category"}

// SampleRows returns a fresh copy of the demo dataset
func SampleRows() []analysis.Row {
	return []analysis.Row{
		{"name": "Product A", "sales": 1200, "revenue": 24000, "category": "Electronics"},
		{"name": "Product B", "sales": 800, "revenue": 16000, "category": "Clothing"},
		{"name": "Product C", "sales": 1500, "revenue": 30000, "category": "Electronics"},
		{"name": "Product D", "sales": 600, "revenue": 12000, "category": "Books"},
		{"name": "Product E", "sales": 900, "revenue": 18000, "category": "Clothing"},
	}
}

func sampleDataset() *analysis.Dataset {
	rows := SampleRows()
	return &analysis.Dataset{
		ID:       "sample",
		Columns:  append([]string(nil), SampleColumns...),
		Rows:     rows,
		RowCount: len(rows),
	}
}

// Upload ignores the file content and returns the sample dataset
func (b *Backend) Upload(ctx context.Context, role core.RoleID, file analysis.Upload) (*analysis.Dataset, error) {
	log.Printf("[Simulated] upload %s for %s (%d bytes)", file.Name, role, file.Size)
	if err := wait(ctx, b.delays.Upload); err != nil {
		return nil, err
	}
	return sampleDataset(), nil
}

// Clean keeps the first rows as a placeholder for the cleaned dataset
func (b *Backend) Clean(ctx context.Context, role core.RoleID, operation string, rows []analysis.Row) ([]analysis.Row, error) {
	log.Printf("[Simulated] clean %s for %s (%d rows)", operation, role, len(rows))
	if err := wait(ctx, b.delays.Clean); err != nil {
		return nil, err
	}
	return analysis.Head(rows, cleanedRowLimit), nil
}

// Analyze charts sales by product name from the submitted rows
func (b *Backend) Analyze(ctx context.Context, role core.RoleID, task core.TaskID, payload analysis.TaskPayload) (*analysis.Chart, error) {
	log.Printf("[Simulated] analyze %s/%s (%d rows)", role, task, len(payload.Data))
	if err := wait(ctx, b.delays.Task); err != nil {
		return nil, err
	}

	data := make([]analysis.Row, 0, len(payload.Data))
	for _, row := range payload.Data {
		data = append(data, analysis.Row{"name": row["name"], "value": row["sales"]})
	}
	return &analysis.Chart{
		ID:    string(task),
		Kind:  analysis.ChartBar,
		Title: fmt.Sprintf("%s Analysis", task),
		Data:  data,
	}, nil
}

// Insight answers every question with the same templated summary
func (b *Backend) Insight(ctx context.Context, role core.RoleID, question string) (string, error) {
	log.Printf("[Simulated] insight for %s: %q", role, question)
	if err := wait(ctx, b.delays.Insight); err != nil {
		return "", err
	}

	roleName := string(role)
	if r, ok := catalog.Lookup(role); ok {
		roleName = r.Name
	}
	return fmt.Sprintf("Based on your %s data, here are the key insights: the **Electronics** category performs best, "+
		"with Product C leading in both sales (1500 units) and revenue ($30,000). Sales volume and revenue move together "+
		"across every product category.", strings.ToLower(roleName)), nil
}

// Report returns a placeholder document
func (b *Backend) Report(ctx context.Context, role core.RoleID, format string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("Mock %s report for %s\n", format, role)), nil
}

// ChartExport returns a placeholder document
func (b *Backend) ChartExport(ctx context.Context, chartID string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("Mock chart export for %s\n", chartID)), nil
}

// Preview returns the sample dataset
func (b *Backend) Preview(ctx context.Context, role core.RoleID) (*analysis.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return sampleDataset(), nil
}

// wait sleeps for d unless ctx ends first
func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
