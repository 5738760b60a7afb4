package devbackend

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"datapilot/adapters/api"
	"datapilot/adapters/db"
	"datapilot/adapters/excel"
	"datapilot/domain/analysis"
	"datapilot/domain/core"
	"datapilot/internal/errors"
	"datapilot/internal/migration"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const salesCSV = `name,sales,revenue,category
Product A,1200,24000,Electronics
Product B,800,16000,Clothing
Product C,1500,30000,Electronics
Product D,,12000,Books
Product E,900,18000,Clothing
`

func newTestBackend(t *testing.T) (*httptest.Server, *api.Client) {
	t.Helper()
	ctx := context.Background()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	conn, err := db.Open(ctx, fmt.Sprintf("sqlite://file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, migration.NewRunner().Run(ctx, conn))

	srv := httptest.NewServer(New(db.NewStore(conn)).Handler())
	t.Cleanup(srv.Close)
	return srv, api.NewClient(srv.URL)
}

func upload(t *testing.T, c *api.Client, role string) *analysis.Dataset {
	t.Helper()
	ds, err := c.Upload(context.Background(), core.RoleID(role), analysis.Upload{
		FileHandle: analysis.FileHandle{Name: "sales.csv", Size: int64(len(salesCSV))},
		Body:       strings.NewReader(salesCSV),
	})
	require.NoError(t, err)
	return ds
}

func TestUploadAndPreview(t *testing.T) {
	_, c := newTestBackend(t)

	ds := upload(t, c, "finance")
	assert.NotEmpty(t, ds.ID)
	assert.Equal(t, []string{"name", "sales", "revenue", "category"}, ds.Columns)
	require.Len(t, ds.Rows, 5)
	assert.Equal(t, 1200.0, ds.Rows[0]["sales"])

	preview, err := c.Preview(context.Background(), "finance")
	require.NoError(t, err)
	assert.Equal(t, ds.ID, preview.ID)
	assert.Equal(t, 5, preview.RowCount)
}

func TestUploadKeepsNonFiniteTextAsStrings(t *testing.T) {
	_, c := newTestBackend(t)
	src := "name,sales,revenue,category\nProduct A,1200,24000,Infinity\nProduct B,NaN,16000,Clothing\nProduct C,-Inf,30000,Books\n"

	ds, err := c.Upload(context.Background(), "finance", analysis.Upload{
		FileHandle: analysis.FileHandle{Name: "odd.csv", Size: int64(len(src))},
		Body:       strings.NewReader(src),
	})
	require.NoError(t, err)
	require.Len(t, ds.Rows, 3)
	assert.Equal(t, "Infinity", ds.Rows[0]["category"])
	assert.Equal(t, "NaN", ds.Rows[1]["sales"])
	assert.Equal(t, "-Inf", ds.Rows[2]["sales"])

	chart, err := c.Analyze(context.Background(), "finance", "summary-stats", analysis.TaskPayload{})
	require.NoError(t, err)
	require.Len(t, chart.Data, 1)
	assert.Equal(t, "revenue", chart.Data[0]["name"])
}

func TestPreviewWithoutUploadIsNotFound(t *testing.T) {
	_, c := newTestBackend(t)
	_, err := c.Preview(context.Background(), "marketing")
	require.Error(t, err)

	var statusErr *api.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.Status)
}

func TestCleanThroughClient(t *testing.T) {
	_, c := newTestBackend(t)
	ds := upload(t, c, "finance")

	cleaned, err := c.Clean(context.Background(), "finance", "remove-nulls", ds.Rows)
	require.NoError(t, err)
	assert.Len(t, cleaned, 4)

	_, err = c.Clean(context.Background(), "finance", "shred", ds.Rows)
	assert.Equal(t, errors.CodeExternalService, errors.GetCode(err))
}

func TestAnalyzeStoresChart(t *testing.T) {
	_, c := newTestBackend(t)
	ds := upload(t, c, "research-eda")

	chart, err := c.Analyze(context.Background(), "research-eda", "summary-stats",
		analysis.TaskPayload{Columns: ds.Columns, Data: ds.Rows})
	require.NoError(t, err)
	assert.Equal(t, "summary-stats", chart.ID)
	assert.Equal(t, analysis.ChartBar, chart.Kind)
	require.NotEmpty(t, chart.Data)

	data, err := c.ChartExport(context.Background(), "summary-stats")
	require.NoError(t, err)
	assert.Contains(t, string(data), `"title"`)
}

func TestInsightUsesTemplateWithoutModel(t *testing.T) {
	_, c := newTestBackend(t)
	upload(t, c, "healthcare")

	answer, err := c.Insight(context.Background(), "healthcare", "What stands out?")
	require.NoError(t, err)
	assert.Contains(t, answer, "healthcare analyst data (5 rows, 4 columns)")
	assert.Contains(t, answer, "sales: mean")
}

func TestInsightRejectsEmptyQuestion(t *testing.T) {
	srv, _ := newTestBackend(t)
	resp, err := http.Post(srv.URL+"/ai-insight/finance", "application/json", strings.NewReader(`{"question":" "}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestReportUsesCleanedData(t *testing.T) {
	_, c := newTestBackend(t)
	ds := upload(t, c, "finance")
	_, err := c.Clean(context.Background(), "finance", "remove-nulls", ds.Rows)
	require.NoError(t, err)

	csv, err := c.Report(context.Background(), "finance", "csv")
	require.NoError(t, err)
	assert.Equal(t, 5, strings.Count(string(csv), "\n"))

	xlsx, err := c.Report(context.Background(), "finance", "xlsx")
	require.NoError(t, err)
	book, err := excel.NewDataReader("report.xlsx").ReadData(bytes.NewReader(xlsx))
	require.NoError(t, err)
	assert.Len(t, book.Rows, 5)
}

func TestUnknownRoleIsNotFound(t *testing.T) {
	srv, _ := newTestBackend(t)
	resp, err := http.Get(srv.URL + "/preview/astrologer")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUploadRejectsUnreadableFile(t *testing.T) {
	_, c := newTestBackend(t)
	_, err := c.Upload(context.Background(), "finance", analysis.Upload{
		FileHandle: analysis.FileHandle{Name: "notes.txt"},
		Body:       strings.NewReader("hello"),
	})
	var statusErr *api.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusUnprocessableEntity, statusErr.Status)
}
