package db

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"datapilot/domain/analysis"
	"datapilot/domain/core"
	"datapilot/internal/migration"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	conn, err := Open(ctx, fmt.Sprintf("sqlite://file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, migration.NewRunner().Run(ctx, conn))
	// migrations are idempotent
	require.NoError(t, migration.NewRunner().Run(ctx, conn))
	return NewStore(conn)
}

func TestParseURL(t *testing.T) {
	driver, dsn, err := parseURL("sqlite://data/app.db")
	require.NoError(t, err)
	assert.Equal(t, "sqlite", driver)
	assert.Equal(t, "data/app.db", dsn)

	driver, _, err = parseURL("postgresql://u:p@localhost/db")
	require.NoError(t, err)
	assert.Equal(t, "postgres", driver)

	_, _, err = parseURL("mysql://localhost")
	assert.Error(t, err)
	_, _, err = parseURL("sqlite://")
	assert.Error(t, err)
}

func TestDatasetRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := &StoredDataset{
		ID: core.NewDatasetID(), RoleID: "finance", FileName: "q1.csv",
		Columns:   []string{"name", "sales"},
		Rows:      []analysis.Row{{"name": "A", "sales": 1.0}},
		CreatedAt: time.Unix(100, 0),
	}
	second := &StoredDataset{
		ID: core.NewDatasetID(), RoleID: "finance", FileName: "q2.csv",
		Columns:   []string{"name", "sales"},
		Rows:      []analysis.Row{{"name": "B", "sales": 2.0}},
		CreatedAt: time.Unix(200, 0),
	}
	require.NoError(t, store.SaveDataset(ctx, first))
	require.NoError(t, store.SaveDataset(ctx, second))

	latest, err := store.LatestForRole(ctx, "finance")
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)
	assert.Equal(t, "q2.csv", latest.FileName)
	assert.Equal(t, second.Rows, latest.Rows)

	cols, rows := latest.Current()
	assert.Equal(t, second.Columns, cols)
	assert.Equal(t, second.Rows, rows)
}

func TestSaveCleaned(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ds := &StoredDataset{ID: core.NewDatasetID(), RoleID: "general", FileName: "x.csv",
		Columns: []string{"v"}, Rows: []analysis.Row{{"v": 1.0}, {"v": nil}}}
	require.NoError(t, store.SaveDataset(ctx, ds))
	require.NoError(t, store.SaveCleaned(ctx, ds.ID, []string{"v"}, []analysis.Row{{"v": 1.0}}))

	latest, err := store.LatestForRole(ctx, "general")
	require.NoError(t, err)
	_, rows := latest.Current()
	assert.Len(t, rows, 1)

	err = store.SaveCleaned(ctx, "missing", nil, nil)
	assert.True(t, core.IsNotFoundError(err))
}

func TestLatestForUnknownRole(t *testing.T) {
	store := newTestStore(t)
	_, err := store.LatestForRole(context.Background(), "marketing")
	assert.ErrorIs(t, err, core.ErrDatasetNotFound)
}

func TestChartUpsert(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	chart := analysis.Chart{ID: "summary-stats", Kind: analysis.ChartBar, Title: "v1"}
	require.NoError(t, store.SaveChart(ctx, "finance", chart))
	chart.Title = "v2"
	require.NoError(t, store.SaveChart(ctx, "finance", chart))

	got, err := store.GetChart(ctx, "summary-stats")
	require.NoError(t, err)
	assert.Equal(t, "v2", got.Title)
	assert.Equal(t, analysis.ChartBar, got.Kind)

	_, err = store.GetChart(ctx, "nope")
	assert.ErrorIs(t, err, core.ErrChartNotFound)
}
