package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIDIsUnique(t *testing.T) {
	a, b := NewID(), NewID()
	assert.NotEqual(t, a, b)
	assert.False(t, a.IsEmpty())
}

func TestParseSessionID(t *testing.T) {
	id := NewSessionID()

	parsed, err := ParseSessionID(" " + id.String() + " ")
	require.NoError(t, err)
	assert.Equal(t, id, parsed)

	_, err = ParseSessionID("")
	assert.Error(t, err)

	_, err = ParseSessionID("not-a-uuid")
	assert.Error(t, err)
}

func TestParseTaskID(t *testing.T) {
	id, err := ParseTaskID("kpi-dashboard")
	require.NoError(t, err)
	assert.Equal(t, TaskID("kpi-dashboard"), id)

	_, err = ParseTaskID("   ")
	assert.Error(t, err)
}
