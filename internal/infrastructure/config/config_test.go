package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWhenEnvUnset(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "8080", cfg.Port)
	assert.Empty(t, cfg.DatabaseDSN)
	assert.Equal(t, defaultTuning(), cfg.Tuning)
}

func TestLoad_ReadsEnvOverrides(t *testing.T) {
	t.Setenv("PEILBEHEER_ENV", "production")
	t.Setenv("PEILBEHEER_LOG_LEVEL", "warn")
	t.Setenv("PEILBEHEER_PORT", "9090")
	t.Setenv("PEILBEHEER_DATABASE_DSN", "postgres://localhost/peilbeheer")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Env)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "postgres://localhost/peilbeheer", cfg.DatabaseDSN)
}

func TestLoad_MissingYAMLFileIsNotAnError(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, defaultTuning(), cfg.Tuning)
}

func TestLoad_YAMLOverlayOverridesTuning(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	contents := []byte("default_retention_days: 30\njob_queue_depth: 16\n")
	require.NoError(t, os.WriteFile(path, contents, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.Tuning.DefaultRetentionDays)
	assert.Equal(t, 16, cfg.Tuning.JobQueueDepth)
}

func TestLoad_MalformedYAMLIsAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("not: [valid"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestConfig_GetPortInt(t *testing.T) {
	assert.Equal(t, 9090, Config{Port: "9090"}.GetPortInt())
	assert.Equal(t, 8080, Config{Port: "not-a-number"}.GetPortInt())
}
