package export

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"datapilot/adapters/excel"
	"datapilot/domain/analysis"
	"datapilot/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ ports.ArtifactExporter = (*Exporter)(nil)
	_ ports.FileSaver        = DirSaver{}
)

func testBundle() analysis.Bundle {
	preview := []analysis.Row{
		{"name": "Product A", "sales": 1200.0},
		{"name": "Product B", "sales": 800.0},
	}
	return analysis.Bundle{
		RoleID:   "finance",
		RoleName: "Finance Analyst",
		Columns:  []string{"name", "sales"},
		Preview:  preview,
		Cleaned:  preview[:1],
		Charts: []analysis.Chart{{ID: "chart1", Kind: analysis.ChartBar, Title: "chart1 Analysis",
			Data: []analysis.Row{{"name": "Product A", "value": 1200.0}}}},
	}
}

func TestExportCleanedCSV(t *testing.T) {
	a, err := NewExporter().Export(testBundle(), "cleaned-data", "csv")
	require.NoError(t, err)
	assert.Equal(t, "cleaned-data.csv", a.Name)
	assert.Equal(t, ContentTypeCSV, a.ContentType)
	assert.Equal(t, "name,sales\nProduct A,1200\n", string(a.Data))
}

func TestExportChartJSON(t *testing.T) {
	a, err := NewExporter().Export(testBundle(), "chart1", "json")
	require.NoError(t, err)

	var rows []map[string]interface{}
	require.NoError(t, json.Unmarshal(a.Data, &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, 1200.0, rows[0]["value"])
}

func TestExportUnknownFormatIsTextSummary(t *testing.T) {
	a, err := NewExporter().Export(testBundle(), "chart1", "png")
	require.NoError(t, err)
	assert.Equal(t, "chart1.png", a.Name)
	assert.Equal(t, ContentTypeText, a.ContentType)
	assert.Contains(t, string(a.Data), "chart1 Analysis")
}

func TestExportReportWorkbook(t *testing.T) {
	a, err := NewExporter().Export(testBundle(), KindReport, "xlsx")
	require.NoError(t, err)
	assert.Equal(t, ContentTypeXLSX, a.ContentType)

	ds, err := excel.NewDataReader("report.xlsx").ReadData(bytes.NewReader(a.Data))
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "sales"}, ds.Columns)
	assert.Len(t, ds.Rows, 2)
}

func TestExportEmptyBundle(t *testing.T) {
	a, err := NewExporter().Export(analysis.Bundle{}, KindDataset, "json")
	require.NoError(t, err)
	assert.Equal(t, "null", string(a.Data))
}

func TestDirSaver(t *testing.T) {
	dir := t.TempDir()
	err := DirSaver{Dir: dir}.Save(context.Background(), analysis.Artifact{Name: "x.txt", Data: []byte("hi")})
	require.NoError(t, err)

	got, err := os.ReadFile(filepath.Join(dir, "x.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hi", string(got))
}
