// Package config loads process configuration from the environment,
// with an optional YAML overlay for static tuning values that don't
// belong in the process environment.
package config

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the full set of knobs the process reads at startup.
type Config struct {
	Env         string
	LogLevel    string
	Port        string
	DatabaseDSN string

	Tuning Tuning
}

// Tuning holds values a human tunes per deployment rather than per
// request: the DP fraction set, the aggregation ladder, retention, and
// queue sizing. Defaults match the values baked into the packages that
// consume them; a YAML file overrides only what it sets.
type Tuning struct {
	PumpFractions        []float64 `yaml:"pump_fractions"`
	AggregationLevels    []string  `yaml:"aggregation_levels"`
	DefaultRetentionDays int       `yaml:"default_retention_days"`
	DownsampleQueueDepth int       `yaml:"downsample_queue_depth"`
	JobQueueDepth        int       `yaml:"job_queue_depth"`
}

func defaultTuning() Tuning {
	return Tuning{
		PumpFractions:        []float64{0.0, 0.05, 0.10, 0.25, 0.40, 0.50, 0.75, 0.90, 1.0},
		AggregationLevels:    []string{"1m", "5m", "15m", "1h", "6h", "1d", "1w", "1mo"},
		DefaultRetentionDays: 365,
		DownsampleQueueDepth: 1024,
		JobQueueDepth:        256,
	}
}

// Load reads Config from the environment, then applies a YAML overlay
// from yamlPath if it is non-empty and the file exists. A missing
// yamlPath is not an error: defaults stand.
func Load(yamlPath string) (Config, error) {
	cfg := Config{
		Env:         getEnv("PEILBEHEER_ENV", "development"),
		LogLevel:    getEnv("PEILBEHEER_LOG_LEVEL", "info"),
		Port:        getEnv("PEILBEHEER_PORT", "8080"),
		DatabaseDSN: getEnv("PEILBEHEER_DATABASE_DSN", ""),
		Tuning:      defaultTuning(),
	}

	if yamlPath == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(yamlPath)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, err
	}

	if err := yaml.Unmarshal(data, &cfg.Tuning); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// GetPortInt parses Port as an integer, falling back to 8080 if it
// isn't one.
func (c Config) GetPortInt() int {
	if p, err := strconv.Atoi(c.Port); err == nil {
		return p
	}
	return 8080
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
