package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.True(t, cfg.DBEnabled)
	assert.True(t, cfg.DBMigrate)
	assert.Equal(t, "sleepsense", cfg.Database.Database)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.False(t, cfg.Sleep.ImportStrict)
	assert.Equal(t, "sleepData_", cfg.Sleep.SleepDataKeyPrefix)
	assert.Equal(t, "currentSleepData", cfg.Sleep.CurrentSnapshotKey)
	assert.Equal(t, "sleep:data:updated", cfg.Sleep.EventStream)
	assert.True(t, cfg.Sleep.EventsEnabled)
	assert.False(t, cfg.Sleep.SeedDemo)
	assert.False(t, cfg.Sleep.ArchiveOnUpdate)
	assert.Equal(t, "sleepsense-archiver", cfg.Sleep.ArchiverGroup)
	assert.False(t, cfg.MQTT.Enabled)
	assert.Equal(t, "sleepsense/import", cfg.MQTT.Topic)
	assert.Equal(t, byte(1), cfg.MQTT.QoS)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("DB_ENABLED", "false")
	t.Setenv("DB_PORT", "not-a-port")
	t.Setenv("IMPORT_STRICT", "true")
	t.Setenv("EVENTS_ENABLED", "false")
	t.Setenv("MQTT_ENABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.False(t, cfg.DBEnabled)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.True(t, cfg.Sleep.ImportStrict)
	assert.False(t, cfg.Sleep.EventsEnabled)
	assert.True(t, cfg.MQTT.Enabled)
}

func TestLoad_YAMLOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sleepsense.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http:
  addr: ":7070"
database:
  host: pg.internal
sleep:
  seed_demo: true
  archive_on_update: true
  event_stream: custom:stream
mqtt:
  topic: devices/import
`), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("REDIS_ADDR", "redis:6380")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.HTTP.Addr)
	assert.Equal(t, "pg.internal", cfg.Database.Host)
	assert.Equal(t, "postgres", cfg.Database.User)
	assert.True(t, cfg.Sleep.SeedDemo)
	assert.True(t, cfg.Sleep.ArchiveOnUpdate)
	assert.Equal(t, "custom:stream", cfg.Sleep.EventStream)
	assert.Equal(t, "sleepData_", cfg.Sleep.SleepDataKeyPrefix)
	assert.Equal(t, "devices/import", cfg.MQTT.Topic)
	assert.Equal(t, "redis:6380", cfg.Redis.Addr)
}

func TestLoad_BadFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := Load()
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("http: [unterminated"), 0o600))
	t.Setenv("CONFIG_FILE", bad)
	_, err = Load()
	assert.Error(t, err)
}
