// Package driver opens a store.Store by driver name, so that hosts can
// pick a backend from configuration.
package driver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/xraph/membership/store"
	"github.com/xraph/membership/store/file"
	"github.com/xraph/membership/store/memory"
	"github.com/xraph/membership/store/mongo"
	"github.com/xraph/membership/store/postgres"
	"github.com/xraph/membership/store/sqlite"
)

// Supported driver names.
const (
	Memory   = "memory"
	SQLite   = "sqlite"
	Postgres = "postgres"
	Mongo    = "mongo"
	File     = "file"
)

// ErrUnknownDriver is returned for a driver name Open does not support.
var ErrUnknownDriver = errors.New("driver: unknown store driver")

// Config selects and locates a backend.
type Config struct {
	// Driver is one of memory, sqlite, postgres, mongo or file
	// (default: memory).
	Driver string `json:"driver" mapstructure:"driver" yaml:"driver"`

	// DSN is the connection string, or the state file path for the file
	// driver.
	DSN string `json:"dsn" mapstructure:"dsn" yaml:"dsn"`

	// Database names the MongoDB database (default: "membership").
	Database string `json:"database" mapstructure:"database" yaml:"database"`
}

// Name returns the normalized driver name.
func (c Config) Name() string {
	d := strings.ToLower(strings.TrimSpace(c.Driver))
	switch d {
	case "":
		return Memory
	case "pg", "postgresql":
		return Postgres
	case "sqlite3":
		return SQLite
	case "mongodb":
		return Mongo
	}
	return d
}

// Open opens the configured backend. The caller owns the returned store
// and must Close it.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (store.Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	name := cfg.Name()
	if name != Memory && cfg.DSN == "" {
		return nil, fmt.Errorf("driver: %s store requires a dsn", name)
	}

	switch name {
	case Memory:
		return memory.New(), nil
	case SQLite:
		s, err := sqlite.Open(ctx, cfg.DSN, sqlite.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		return s, nil
	case Postgres:
		s, err := postgres.Open(ctx, cfg.DSN, postgres.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		return s, nil
	case Mongo:
		database := cfg.Database
		if database == "" {
			database = "membership"
		}
		s, err := mongo.Open(ctx, cfg.DSN, database)
		if err != nil {
			return nil, err
		}
		return s, nil
	case File:
		s, err := file.Open(cfg.DSN)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}
