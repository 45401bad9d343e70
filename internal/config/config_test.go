package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/larder/internal/freshness"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 5*time.Minute, cfg.Monitor.Interval.Std())
	assert.Equal(t, 500*time.Millisecond, cfg.Refresh.QuietWindow.Std())
	assert.True(t, cfg.Monitor.Alerts.NearExpiry)
	assert.True(t, cfg.Monitor.Alerts.Expired)
	assert.True(t, cfg.Cleanup.Enabled)
}

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Store.Path, cfg.Store.Path)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "larder.yaml")
	content := `
store:
  path: /tmp/test-larder.db
settings:
  near_expiry_threshold_days: 5
  category_thresholds:
    produce: 2
  shelf_lives:
    produce: 4
monitor:
  interval: 1m
  alerts:
    near_expiry: true
    expired: false
refresh:
  quiet_window: 750ms
  max_delay: 3s
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/test-larder.db", cfg.Store.Path)
	assert.Equal(t, time.Minute, cfg.Monitor.Interval.Std())
	assert.Equal(t, 750*time.Millisecond, cfg.Refresh.QuietWindow.Std())
	assert.False(t, cfg.Monitor.Alerts.Expired)
	assert.Equal(t, 5, cfg.Settings.NearExpiryThresholdDays("dairy"))
	assert.Equal(t, 2, cfg.Settings.NearExpiryThresholdDays("produce"))
	assert.Equal(t, 4, cfg.Settings.ShelfLifeDays("produce"))
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("LARDER_DB_PATH", "/srv/larder.db")
	t.Setenv("LARDER_NATS_URL", "nats://broker:4222")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "/srv/larder.db", cfg.Store.Path)
	assert.True(t, cfg.NATS.Enabled)
	assert.Equal(t, "nats://broker:4222", cfg.NATS.URL)
}

func TestLoad_RejectsBadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "larder.yaml")
	require.NoError(t, os.WriteFile(path, []byte("monitor:\n  interval: soon\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Store.Path = ""
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.NATS.Enabled = true
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Log.Level = "loud"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Settings.CategoryThresholds = map[string]int{"dairy": -1}
	assert.Error(t, cfg.Validate())
}

func TestSettings_ProfileDefaults(t *testing.T) {
	var s SettingsConfig
	assert.Equal(t, freshness.DefaultNearExpiryThresholdDays, s.NearExpiryThresholdDays("anything"))
	assert.Equal(t, freshness.DefaultShelfLifeDays, s.ShelfLifeDays("anything"))
}

func TestInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "larder.yaml")
	require.NoError(t, Init(path, false))

	// Refuses to clobber without force.
	assert.Error(t, Init(path, false))
	assert.NoError(t, Init(path, true))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Settings.NearExpiryThresholdDays("dairy"))
	assert.Equal(t, 180, cfg.Settings.ShelfLifeDays("pantry"))
}
