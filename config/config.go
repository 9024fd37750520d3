// Package config centralises runtime configuration helpers for boxoffice services.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment identifies the runtime environment where boxoffice operates.
type Environment string

const (
	// EnvDev marks the development environment.
	EnvDev Environment = "dev"
	// EnvStaging marks the staging environment.
	EnvStaging Environment = "staging"
	// EnvProd marks the production environment.
	EnvProd Environment = "prod"
)

// CacheSettings bounds the result cache.
type CacheSettings struct {
	TTL      time.Duration
	MaxBytes int
}

// DistributionSettings tunes the reconciliation engine.
type DistributionSettings struct {
	DefaultWeight string
	Workers       int
}

// DatabaseSettings configures the sales store connection.
type DatabaseSettings struct {
	DSN           string
	MigrationsDir string
	QueriesPerSec float64
}

// TelemetrySettings configures OTLP export.
type TelemetrySettings struct {
	OTLPEndpoint string
	ServiceName  string
}

// Settings contains the boxoffice configuration tree loaded from defaults and overrides.
type Settings struct {
	Environment  Environment
	Cache        CacheSettings
	Distribution DistributionSettings
	Database     DatabaseSettings
	Telemetry    TelemetrySettings
}

// Default returns the default boxoffice configuration.
func Default() Settings {
	return Settings{
		Environment: EnvProd,
		Cache: CacheSettings{
			TTL:      5 * time.Minute,
			MaxBytes: 8 << 20,
		},
		Distribution: DistributionSettings{
			DefaultWeight: "even",
			Workers:       8,
		},
		Database: DatabaseSettings{
			DSN:           "",
			MigrationsDir: "db/migrations",
			QueriesPerSec: 50,
		},
		Telemetry: TelemetrySettings{
			OTLPEndpoint: "",
			ServiceName:  "boxoffice",
		},
	}
}

// FromEnv loads configuration values from environment variables, overriding defaults.
func FromEnv() Settings {
	cfg := Default()
	if env := strings.TrimSpace(os.Getenv("BOXOFFICE_ENV")); env != "" {
		cfg.Environment = Environment(strings.ToLower(env))
	}
	if v := strings.TrimSpace(os.Getenv("BOXOFFICE_CACHE_TTL")); v != "" {
		if dur, err := time.ParseDuration(v); err == nil && dur > 0 {
			cfg.Cache.TTL = dur
		}
	}
	if v := strings.TrimSpace(os.Getenv("BOXOFFICE_CACHE_MAX_BYTES")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Cache.MaxBytes = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("BOXOFFICE_DEFAULT_WEIGHT")); v != "" {
		cfg.Distribution.DefaultWeight = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv("BOXOFFICE_WORKERS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Distribution.Workers = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("BOXOFFICE_DATABASE_URL")); v != "" {
		cfg.Database.DSN = v
	}
	if v := strings.TrimSpace(os.Getenv("BOXOFFICE_MIGRATIONS_DIR")); v != "" {
		cfg.Database.MigrationsDir = v
	}
	if v := strings.TrimSpace(os.Getenv("BOXOFFICE_DB_QUERIES_PER_SEC")); v != "" {
		if rate, err := strconv.ParseFloat(v, 64); err == nil && rate > 0 {
			cfg.Database.QueriesPerSec = rate
		}
	}
	if v := strings.TrimSpace(os.Getenv("BOXOFFICE_OTLP_ENDPOINT")); v != "" {
		cfg.Telemetry.OTLPEndpoint = v
	}
	if v := strings.TrimSpace(os.Getenv("BOXOFFICE_SERVICE_NAME")); v != "" {
		cfg.Telemetry.ServiceName = v
	}
	return cfg
}
