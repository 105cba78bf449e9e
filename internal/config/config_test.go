package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	cfg := New()
	assert.LessOrEqual(t, len(cfg.Hostname), hostnameLimit)
	assert.Equal(t, defaultQueueSize, cfg.QueueSize)
	assert.Equal(t, defaultExecutionWorkers, cfg.MaxExecutionWorkers)
	assert.Equal(t, time.Hour, cfg.MarketExpiry)
	assert.Equal(t, 120*time.Millisecond, cfg.PlaceLatency)
	assert.False(t, cfg.RaiseErrors)
	assert.False(t, cfg.Simulated())
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{
		"queueSize": 64,
		"maxExecutionWorkers": 4,
		"raiseErrors": true,
		"marketExpirySeconds": 120,
		"placeLatencyMs": 200,
		"instanceId": "i-0abc"
	}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.QueueSize)
	assert.Equal(t, 4, cfg.MaxExecutionWorkers)
	assert.True(t, cfg.RaiseErrors)
	assert.Equal(t, 2*time.Minute, cfg.MarketExpiry)
	assert.Equal(t, 200*time.Millisecond, cfg.PlaceLatency)
	assert.Equal(t, 170*time.Millisecond, cfg.CancelLatency)
	assert.Equal(t, "i-0abc", cfg.InstanceID)
}

func TestLoadInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"queueSize": -1}`), 0o644))
	_, err := Load(path)
	require.Error(t, err)
}

func TestSimulatedToggle(t *testing.T) {
	cfg := New()
	cfg.SetSimulated(true)
	assert.True(t, cfg.Simulated())
	cfg.SetSimulated(false)
	assert.False(t, cfg.Simulated())
}
