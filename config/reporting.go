package config

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ReportingConfig captures the reporting engine configuration tree.
type ReportingConfig struct {
	Cache        CacheConfig        `yaml:"cache"`
	Distribution DistributionConfig `yaml:"distribution"`
	Database     DatabaseConfig     `yaml:"database"`
	Telemetry    TelemetryConfig    `yaml:"telemetry"`
}

// CacheConfig controls result cache behaviour.
type CacheConfig struct {
	TTL      time.Duration `yaml:"ttl"`
	MaxBytes int           `yaml:"maxBytes"`
}

// DistributionConfig governs snapshot reconciliation defaults.
type DistributionConfig struct {
	DefaultWeight string `yaml:"defaultWeight"`
	Workers       int    `yaml:"workers"`
}

// DatabaseConfig declares sales store connectivity.
type DatabaseConfig struct {
	DSN           string  `yaml:"dsn"`
	MigrationsDir string  `yaml:"migrationsDir"`
	QueriesPerSec float64 `yaml:"queriesPerSec"`
}

// TelemetryConfig configures OTLP exporters.
type TelemetryConfig struct {
	OTLPEndpoint string `yaml:"otlpEndpoint"`
	ServiceName  string `yaml:"serviceName"`
}

// LoadReportingConfig loads a reporting configuration YAML document from disk.
func LoadReportingConfig(ctx context.Context, path string) (ReportingConfig, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = os.Getenv("BOXOFFICE_CONFIG")
	}
	path = strings.TrimSpace(path)
	if path == "" {
		path = "config/reporting.yaml"
	}

	reader, closer, err := openReportingFile(path)
	if err != nil {
		return ReportingConfig{}, err
	}
	defer closer()

	bytes, err := io.ReadAll(reader)
	if err != nil {
		return ReportingConfig{}, fmt.Errorf("read reporting config: %w", err)
	}

	var cfg ReportingConfig
	if err := yaml.Unmarshal(bytes, &cfg); err != nil {
		return ReportingConfig{}, fmt.Errorf("unmarshal reporting config: %w", err)
	}

	if err := cfg.Validate(ctx); err != nil {
		return ReportingConfig{}, err
	}
	return cfg, nil
}

// Validate performs semantic validation on the loaded configuration.
func (c ReportingConfig) Validate(ctx context.Context) error {
	_ = ctx
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache ttl must be >=0")
	}
	if c.Cache.MaxBytes < 0 {
		return fmt.Errorf("cache maxBytes must be >=0")
	}
	switch strings.ToLower(strings.TrimSpace(c.Distribution.DefaultWeight)) {
	case "", "even", "early", "late":
	default:
		return fmt.Errorf("distribution defaultWeight must be even|early|late")
	}
	if c.Distribution.Workers < 0 {
		return fmt.Errorf("distribution workers must be >=0")
	}
	if c.Database.QueriesPerSec < 0 {
		return fmt.Errorf("database queriesPerSec must be >=0")
	}
	return nil
}

// Merge layers the YAML document over env-derived settings, with YAML winning
// for any field it sets.
func (c ReportingConfig) Merge(base Settings) Settings {
	out := base
	if c.Cache.TTL > 0 {
		out.Cache.TTL = c.Cache.TTL
	}
	if c.Cache.MaxBytes > 0 {
		out.Cache.MaxBytes = c.Cache.MaxBytes
	}
	if w := strings.ToLower(strings.TrimSpace(c.Distribution.DefaultWeight)); w != "" {
		out.Distribution.DefaultWeight = w
	}
	if c.Distribution.Workers > 0 {
		out.Distribution.Workers = c.Distribution.Workers
	}
	if dsn := strings.TrimSpace(c.Database.DSN); dsn != "" {
		out.Database.DSN = dsn
	}
	if dir := strings.TrimSpace(c.Database.MigrationsDir); dir != "" {
		out.Database.MigrationsDir = dir
	}
	if c.Database.QueriesPerSec > 0 {
		out.Database.QueriesPerSec = c.Database.QueriesPerSec
	}
	if endpoint := strings.TrimSpace(c.Telemetry.OTLPEndpoint); endpoint != "" {
		out.Telemetry.OTLPEndpoint = endpoint
	}
	if name := strings.TrimSpace(c.Telemetry.ServiceName); name != "" {
		out.Telemetry.ServiceName = name
	}
	return out
}

func openReportingFile(path string) (io.Reader, func(), error) {
	safePath := filepath.Clean(path)
	file, err := os.Open(safePath) // #nosec G304 -- configuration paths are controlled by operators.
	if err != nil {
		return nil, nil, fmt.Errorf("open reporting config: %w", err)
	}
	return file, func() { _ = file.Close() }, nil
}
