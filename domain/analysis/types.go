// Package analysis defines the data that flows between the wizard, the
// analytics backend and the exporters.
package analysis

import (
	"io"
	"sort"

	"datapilot/domain/core"
)

// Row maps a column name to its cell value
type Row map[string]interface{}

// Dataset is a tabular result returned by the backend
type Dataset struct {
	ID       core.DatasetID `json:"dataset_id,omitempty"`
	Columns  []string       `json:"columns"`
	Rows     []Row          `json:"preview"`
	RowCount int            `json:"row_count,omitempty"`
}

// FileHandle describes an uploaded file without holding its content
type FileHandle struct {
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
}

// Upload is a file being sent to the backend
type Upload struct {
	FileHandle
	Body io.Reader
}

// TaskPayload is the JSON body posted for an analysis task
type TaskPayload struct {
	Columns []string `json:"columns"`
	Data    []Row    `json:"data"`
}

// ChartKind is the closed set of chart renderers
type ChartKind string

const (
	ChartBar     ChartKind = "bar"
	ChartLine    ChartKind = "line"
	ChartPie     ChartKind = "pie"
	ChartScatter ChartKind = "scatter"
)

// Valid reports whether the kind has a renderer
func (k ChartKind) Valid() bool {
	switch k {
	case ChartBar, ChartLine, ChartPie, ChartScatter:
		return true
	}
	return false
}

// Chart is produced by a completed task and never mutated afterwards
type Chart struct {
	ID     string                 `json:"id"`
	Kind   ChartKind              `json:"type"`
	Title  string                 `json:"title"`
	Data   []Row                  `json:"data"`
	Config map[string]interface{} `json:"config,omitempty"`
}

// Insight is one question/answer pair of the AI log
type Insight struct {
	Question  string         `json:"question"`
	Response  string         `json:"response"`
	CreatedAt core.Timestamp `json:"timestamp"`
}

// Artifact is an in-memory file ready to be saved
type Artifact struct {
	Name        string
	ContentType string
	Data        []byte
}

// Bundle is everything an exporter may draw from
type Bundle struct {
	RoleID   core.RoleID
	RoleName string
	Columns  []string
	Preview  []Row
	Cleaned  []Row
	Charts   []Chart
	Insights []Insight
}

// CloneRows deep-copies rows one level down
func CloneRows(rows []Row) []Row {
	if rows == nil {
		return nil
	}
	out := make([]Row, len(rows))
	for i, r := range rows {
		out[i] = r.Clone()
	}
	return out
}

// Clone copies the row map
func (r Row) Clone() Row {
	if r == nil {
		return nil
	}
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Clone copies the chart including its data rows
func (c Chart) Clone() Chart {
	out := c
	out.Data = CloneRows(c.Data)
	if c.Config != nil {
		out.Config = make(map[string]interface{}, len(c.Config))
		for k, v := range c.Config {
			out.Config[k] = v
		}
	}
	return out
}

// ColumnsOf returns the keys of row in sorted order; used only when the
// backend did not report a column order
func ColumnsOf(row Row) []string {
	cols := make([]string, 0, len(row))
	for k := range row {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

// Head returns at most n rows from the front
func Head(rows []Row, n int) []Row {
	if n > len(rows) {
		n = len(rows)
	}
	return CloneRows(rows[:n])
}
