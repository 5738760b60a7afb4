package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeadCopiesAndClamps(t *testing.T) {
	rows := []Row{{"a": 1}, {"a": 2}}

	head := Head(rows, 5)
	assert.Len(t, head, 2)

	head[0]["a"] = 99
	assert.Equal(t, 1, rows[0]["a"])
	assert.Empty(t, Head(nil, 3))
}

func TestColumnsOfIsSorted(t *testing.T) {
	assert.Equal(t, []string{"name", "revenue", "sales"}, ColumnsOf(Row{"sales": 1, "name": "x", "revenue": 2}))
}

func TestChartCloneIsDeep(t *testing.T) {
	c := Chart{ID: "c", Kind: ChartBar, Data: []Row{{"value": 1}}, Config: map[string]interface{}{"x": "name"}}
	cp := c.Clone()
	cp.Data[0]["value"] = 2
	cp.Config["x"] = "other"

	assert.Equal(t, 1, c.Data[0]["value"])
	assert.Equal(t, "name", c.Config["x"])
}

func TestChartKindValid(t *testing.T) {
	assert.True(t, ChartScatter.Valid())
	assert.False(t, ChartKind("radar").Valid())
}
