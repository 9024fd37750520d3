package postgres

import (
	"context"
	"os"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ObservePoolMetrics registers observable gauges that report pgx pool health:
// total, idle, acquired, and constructing connection counts.
func ObservePoolMetrics(pool *pgxpool.Pool, poolName string) {
	if pool == nil {
		return
	}
	normalized := strings.TrimSpace(poolName)
	if normalized == "" {
		normalized = "primary"
	}
	attrs := []attribute.KeyValue{
		attribute.String("environment", strings.TrimSpace(os.Getenv("BOXOFFICE_ENV"))),
		attribute.String("db_pool", normalized),
	}

	gauges := []struct {
		name        string
		description string
		read        func(stat *pgxpool.Stat) int64
	}{
		{
			name:        "boxoffice_db_pool_connections_total",
			description: "Total connections (idle + acquired + constructing)",
			read:        func(stat *pgxpool.Stat) int64 { return int64(stat.TotalConns()) },
		},
		{
			name:        "boxoffice_db_pool_connections_idle",
			description: "Idle connections ready for checkout",
			read:        func(stat *pgxpool.Stat) int64 { return int64(stat.IdleConns()) },
		},
		{
			name:        "boxoffice_db_pool_connections_acquired",
			description: "Connections currently acquired by callers",
			read:        func(stat *pgxpool.Stat) int64 { return int64(stat.AcquiredConns()) },
		},
		{
			name:        "boxoffice_db_pool_connections_constructing",
			description: "Connections currently being constructed",
			read:        func(stat *pgxpool.Stat) int64 { return int64(stat.ConstructingConns()) },
		},
	}

	meter := otel.Meter("postgres.pool")
	for _, gauge := range gauges {
		read := gauge.read
		if _, err := meter.Int64ObservableGauge(gauge.name,
			metric.WithDescription(gauge.description),
			metric.WithUnit("{connection}"),
			metric.WithInt64Callback(func(_ context.Context, observer metric.Int64Observer) error {
				observer.Observe(read(pool.Stat()), metric.WithAttributes(attrs...))
				return nil
			}),
		); err != nil {
			return
		}
	}
}
