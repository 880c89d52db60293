package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes environment overrides, e.g. WORMTRACK_WORKERS=8 or
// WORMTRACK_LOG__LEVEL=debug (double underscore separates sections).
const EnvPrefix = "WORMTRACK_"

// RunConfig configures one invocation of the batch runner.
type RunConfig struct {
	Day        string `koanf:"day"`
	Treatment  string `koanf:"treatment"`
	ParamsPath string `koanf:"params"`
	Interval   int    `koanf:"interval" validate:"gte=0"`
	Workers    int    `koanf:"workers" validate:"gte=1,lte=256"`
	Use3D      bool   `koanf:"use_3d"`
	Overwrite  bool   `koanf:"overwrite"`

	Loader  LoaderConfig  `koanf:"loader"`
	DB      DBConfig      `koanf:"db"`
	Plots   PlotsConfig   `koanf:"plots"`
	Log     LogConfig     `koanf:"log"`
	Metrics MetricsConfig `koanf:"metrics"`
}

// LoaderConfig holds the trajectory file naming convention.
type LoaderConfig struct {
	Indicator   string `koanf:"indicator" validate:"required"`
	Separator   string `koanf:"separator"`
	BatchFormat string `koanf:"batch_format" validate:"required,contains=%d"`
}

// DBConfig selects the report store. An empty path disables persistence.
type DBConfig struct {
	Path string `koanf:"path"`
}

// PlotsConfig controls per-well plot output. An empty dir disables plots.
type PlotsConfig struct {
	Dir       string `koanf:"dir"`
	Width     int    `koanf:"width" validate:"gte=100"`
	Height    int    `koanf:"height" validate:"gte=100"`
	Histogram bool   `koanf:"histogram"`
}

// LogConfig configures monitoring.Init.
type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn warning error disabled off"`
	Format string `koanf:"format" validate:"oneof=console json"`
}

// MetricsConfig names the optional Prometheus textfile output.
type MetricsConfig struct {
	OutPath string `koanf:"out"`
}

// DefaultRunConfig returns the built-in defaults.
func DefaultRunConfig() *RunConfig {
	return &RunConfig{
		Day:     "1",
		Workers: 4,
		Loader: LoaderConfig{
			Indicator:   "-position*.csv",
			Separator:   "Well",
			BatchFormat: "Batch %d",
		},
		Plots: PlotsConfig{
			Width:     600,
			Height:    600,
			Histogram: true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadRunConfig layers defaults, an optional YAML file, and WORMTRACK_*
// environment variables, then validates the result.
func LoadRunConfig(path string) (*RunConfig, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(DefaultRunConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &RunConfig{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// envTransformFunc maps WORMTRACK_PLOTS__DIR to plots.dir and
// WORMTRACK_USE_3D to use_3d.
func envTransformFunc(key string) string {
	key = strings.TrimPrefix(key, EnvPrefix)
	key = strings.ToLower(key)
	return strings.ReplaceAll(key, "__", ".")
}

// Validate checks field ranges.
func (c *RunConfig) Validate() error {
	return validateStruct(c)
}
