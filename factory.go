package peilbeheer

import (
	"context"

	"github.com/rijnland-waterbeheer/peilbeheer/internal/infrastructure/config"
	"github.com/rijnland-waterbeheer/peilbeheer/internal/infrastructure/logger"
	"github.com/rijnland-waterbeheer/peilbeheer/internal/infrastructure/storage"
)

// Config is the process-level configuration loaded at startup.
type Config = config.Config

// Tuning holds the static operational values (DP fraction set,
// aggregation ladder, retention, queue depths) that come from the
// optional YAML overlay rather than the environment.
type Tuning = config.Tuning

// LoadConfig reads Config from the environment, applying a YAML
// overlay from yamlPath if it is non-empty and present on disk.
func LoadConfig(yamlPath string) (Config, error) {
	return config.Load(yamlPath)
}

// NewLogger configures a zerolog.Logger: structured JSON in
// production, a colorized console writer otherwise.
func NewLogger(level, env string) Logger {
	return logger.Setup(level, env)
}

// PostgresStore is the durable Store implementation backed by
// Postgres, plus CRUD persistence for alert rules, alerts, and
// scenarios.
type PostgresStore = storage.PostgresStore

// NewPostgresStore opens a connection pool against dsn without
// validating connectivity.
func NewPostgresStore(dsn string) *PostgresStore {
	return storage.NewPostgresStore(dsn)
}

// NewPostgresStoreWithSchema opens a connection pool against dsn and
// creates every table it owns if not already present.
func NewPostgresStoreWithSchema(ctx context.Context, dsn string) (*PostgresStore, error) {
	store := storage.NewPostgresStore(dsn)
	if err := store.InitSchema(ctx); err != nil {
		return nil, err
	}
	return store, nil
}
