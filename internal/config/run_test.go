package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRunConfigDefaults(t *testing.T) {
	cfg, err := LoadRunConfig("")
	require.NoError(t, err)

	assert.Equal(t, DefaultRunConfig(), cfg)
}

func TestLoadRunConfigFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wormtrack.yaml")
	yaml := `
day: "3"
treatment: B
workers: 2
interval: 10
loader:
  indicator: "-track*.csv"
plots:
  dir: /tmp/plots
log:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))

	t.Setenv("WORMTRACK_WORKERS", "8")
	t.Setenv("WORMTRACK_DB__PATH", "/tmp/reports.db")
	t.Setenv("WORMTRACK_USE_3D", "true")

	cfg, err := LoadRunConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "3", cfg.Day)
	assert.Equal(t, "B", cfg.Treatment)
	assert.Equal(t, 10, cfg.Interval)
	assert.Equal(t, 8, cfg.Workers, "env overrides file")
	assert.True(t, cfg.Use3D)
	assert.Equal(t, "/tmp/reports.db", cfg.DB.Path)
	assert.Equal(t, "-track*.csv", cfg.Loader.Indicator)
	assert.Equal(t, "Well", cfg.Loader.Separator, "default kept for unset keys")
	assert.Equal(t, "/tmp/plots", cfg.Plots.Dir)
	assert.Equal(t, 600, cfg.Plots.Width)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadRunConfigInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workers: 0\n"), 0644))

	_, err := LoadRunConfig(path)
	var ce *ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "Workers", ce.Field)
}

func TestLoadRunConfigMissingFile(t *testing.T) {
	_, err := LoadRunConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestRunConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*RunConfig)
		field  string
	}{
		{"log level", func(c *RunConfig) { c.Log.Level = "loud" }, "Level"},
		{"log format", func(c *RunConfig) { c.Log.Format = "xml" }, "Format"},
		{"batch format", func(c *RunConfig) { c.Loader.BatchFormat = "Batch" }, "BatchFormat"},
		{"indicator", func(c *RunConfig) { c.Loader.Indicator = "" }, "Indicator"},
		{"plot width", func(c *RunConfig) { c.Plots.Width = 10 }, "Width"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultRunConfig()
			tt.mutate(c)
			var ce *ConfigError
			require.ErrorAs(t, c.Validate(), &ce)
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}
