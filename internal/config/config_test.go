package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, ":8080", cfg.Server.Addr())
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 30*time.Second, cfg.API.Timeout)
	assert.Equal(t, 60*time.Second, cfg.API.ImageTimeout)
	assert.Equal(t, 900, cfg.API.MaxHeight)
	assert.Equal(t, 10*time.Minute, cfg.Coordinator.Interval)
	assert.Equal(t, []string{"stocks", "webcams", "aviation"}, cfg.Coordinator.Resources)
	assert.Empty(t, cfg.Database.URL)
	assert.Equal(t, slog.LevelInfo, cfg.Logger.SlogLevel())
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "fiftyone", cfg.MQTT.TopicPrefix)
}

func TestLoad_Environment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("FIFTYONE_SERVER_PORT", "9090")
	t.Setenv("FIFTYONE_COORDINATOR_INTERVAL", "30s")
	t.Setenv("FIFTYONE_LOGGER_LEVEL", "debug")
	t.Setenv("FIFTYONE_METRICS_ENABLED", "false")
	t.Setenv("DATABASE_URL", "postgres://localhost/fiftyone")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Coordinator.Interval)
	assert.Equal(t, slog.LevelDebug, cfg.Logger.SlogLevel())
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, "postgres://localhost/fiftyone", cfg.Database.URL)
}

func TestLoad_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "fiftyone.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
api:
  url: https://custom.api.com
  maxHeight: 600
coordinator:
  resources: [stocks, pictures]
mqtt:
  broker: tcp://localhost:1883
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://custom.api.com", cfg.API.URL)
	assert.Equal(t, 600, cfg.API.MaxHeight)
	assert.Equal(t, []string{"stocks", "pictures"}, cfg.Coordinator.Resources)
	assert.Equal(t, "tcp://localhost:1883", cfg.MQTT.Broker)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidLevel(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("FIFTYONE_LOGGER_LEVEL", "verbose")

	_, err := Load("")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:      ServerConfig{Port: 8080},
			API:         APIConfig{Timeout: time.Second, ImageTimeout: time.Second, MaxHeight: 900},
			Coordinator: CoordinatorConfig{Interval: time.Minute},
			Logger:      LoggerConfig{Level: "info"},
		}
	}
	require.NoError(t, valid().Validate())

	c := valid()
	c.Server.Port = 0
	assert.Error(t, c.Validate())

	c = valid()
	c.Coordinator.Interval = 0
	assert.Error(t, c.Validate())

	c = valid()
	c.API.URL = "not a url"
	assert.Error(t, c.Validate())
}
