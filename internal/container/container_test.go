package container

import (
	"context"
	"testing"
	"time"

	"datapilot/adapters/api"
	"datapilot/adapters/simulated"
	"datapilot/domain/catalog"
	"datapilot/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(mode string) *config.Config {
	return &config.Config{
		Backend: config.BackendConfig{Mode: mode, BaseURL: "http://localhost:8000"},
		Session: config.SessionConfig{TTL: time.Hour},
		DevBackend: config.DevBackendConfig{
			DatabaseURL: "sqlite://file:container_test?mode=memory&cache=shared",
		},
	}
}

func TestNewRejectsNilConfig(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}

func TestBackendSelection(t *testing.T) {
	c, err := New(testConfig(config.BackendSimulated))
	require.NoError(t, err)
	assert.IsType(t, &simulated.Backend{}, c.Backend)

	c, err = New(testConfig(config.BackendHTTP))
	require.NoError(t, err)
	assert.IsType(t, &api.Client{}, c.Backend)
}

func TestSessionsUseContainerWizards(t *testing.T) {
	c, err := New(testConfig(config.BackendSimulated))
	require.NoError(t, err)

	w := c.Sessions.WizardFor("s1", catalog.MustLookup("finance"))
	assert.Equal(t, "Finance Analyst", w.Role().Name)
	assert.Equal(t, 1, c.Sessions.Len())
}

func TestInitDevBackend(t *testing.T) {
	c, err := New(testConfig(config.BackendSimulated))
	require.NoError(t, err)

	require.NoError(t, c.InitDevBackend(context.Background()))
	assert.NotNil(t, c.DevBackend)
	assert.NoError(t, c.Shutdown(context.Background()))
}
