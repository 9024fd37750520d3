// Command boxoffice computes daily sales series for shows straight from the
// sales store, for operators and the reporting layer to consume as JSON.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	json "github.com/goccy/go-json"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stagepass/boxoffice/config"
	"github.com/stagepass/boxoffice/internal/domain/showstore"
	"github.com/stagepass/boxoffice/internal/infra/persistence/migrations"
	"github.com/stagepass/boxoffice/internal/infra/persistence/postgres"
	"github.com/stagepass/boxoffice/internal/observability"
	"github.com/stagepass/boxoffice/internal/resultcache"
	"github.com/stagepass/boxoffice/internal/series"
	"github.com/stagepass/boxoffice/internal/timeline"
	"github.com/stagepass/boxoffice/lib/telemetry"
)

const dateLayout = "2006-01-02"

func main() {
	configPath := flag.String("config", "", "path to reporting YAML config (optional)")
	showsFlag := flag.String("shows", "", "comma-separated show IDs")
	groupingFlag := flag.String("grouping", "show", "aggregation grouping: show|stop|project")
	fromFlag := flag.String("from", "", "window start (YYYY-MM-DD)")
	toFlag := flag.String("to", "", "window end (YYYY-MM-DD)")
	weightFlag := flag.String("weight", "", "distribution weight: even|early|late")
	cumulativeFlag := flag.Bool("cumulative", false, "emit running totals instead of daily values")
	rangesFlag := flag.Bool("ranges", false, "expand precomputed ranges instead of raw snapshots")
	migrateFlag := flag.Bool("migrate", true, "apply database migrations before querying")
	flag.Parse()

	logger := newStdLogger()
	observability.SetLogger(logger)

	if err := run(context.Background(), *configPath, *showsFlag, *groupingFlag, *fromFlag, *toFlag, *weightFlag, *cumulativeFlag, *rangesFlag, *migrateFlag); err != nil {
		logger.Error("boxoffice run failed", observability.Field{Key: "error", Value: err})
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath, showsFlag, groupingFlag, fromFlag, toFlag, weightFlag string, cumulative, useRanges, migrate bool) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	settings := config.FromEnv()
	if configPath != "" {
		reporting, err := config.LoadReportingConfig(ctx, configPath)
		if err != nil {
			return err
		}
		settings = reporting.Merge(settings)
	}

	_, shutdownTelemetry, err := telemetry.Init(ctx, settings.Telemetry)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			observability.Log().Error("telemetry shutdown", observability.Field{Key: "error", Value: err})
		}
	}()
	observability.SetMetrics(observability.NewOTelMetrics())

	showIDs := splitList(showsFlag)
	if len(showIDs) == 0 {
		return fmt.Errorf("at least one show ID required (-shows)")
	}
	window, err := parseWindow(fromFlag, toFlag)
	if err != nil {
		return err
	}
	grouping, err := parseGrouping(groupingFlag)
	if err != nil {
		return err
	}
	weight := timeline.Weight(strings.ToLower(strings.TrimSpace(weightFlag)))
	if !weight.Validate() {
		weight = timeline.Weight(settings.Distribution.DefaultWeight)
	}
	if !weight.Validate() {
		weight = timeline.WeightEven
	}

	if settings.Database.DSN == "" {
		return fmt.Errorf("database DSN required (BOXOFFICE_DATABASE_URL or config)")
	}
	if migrate {
		if err := migrations.Apply(ctx, settings.Database.DSN, settings.Database.MigrationsDir); err != nil {
			return err
		}
	}
	pool, err := pgxpool.New(ctx, settings.Database.DSN)
	if err != nil {
		return fmt.Errorf("connect sales store: %w", err)
	}
	defer pool.Close()
	postgres.ObservePoolMetrics(pool, "sales")

	store := postgres.NewSalesStore(pool, settings.Database.QueriesPerSec)
	engine := series.NewEngine(series.WithWorkers(settings.Distribution.Workers))
	cache := resultcache.New(resultcache.NewMemoryStore(settings.Cache.MaxBytes),
		resultcache.WithTTL(settings.Cache.TTL))
	defer cache.Close()

	// The cache entry is keyed and scoped by the aggregation entities, not the
	// raw show IDs, so stop- and project-grouped runs over the same shows
	// never share rows.
	shows, err := store.Shows(ctx, showIDs)
	if err != nil {
		return err
	}
	entityKeys := make([]string, 0, len(shows))
	seenKeys := make(map[string]bool, len(shows))
	for _, show := range shows {
		key := show.GroupKey(grouping)
		if !seenKeys[key] {
			seenKeys[key] = true
			entityKeys = append(entityKeys, key)
		}
	}

	query := resultcache.Query{
		RangeSelector: window.Start.Format(dateLayout) + ".." + window.End.Format(dateLayout),
		Metric:        "daily",
		Grouping:      string(grouping),
		Weight:        weight,
		EntityIDs:     entityKeys,
	}
	fetch := func(ctx context.Context, w timeline.Window) ([]timeline.SeriesPoint, error) {
		if useRanges {
			ranges, entityMap, err := store.DistributionRanges(ctx, showIDs, grouping, w)
			if err != nil {
				return nil, err
			}
			return engine.ComputeDailySeriesFromRanges(ctx, ranges, entityMap, w, weight)
		}
		showSeries, err := store.ShowSeries(ctx, showIDs, grouping)
		if err != nil {
			return nil, err
		}
		return engine.ComputeDailySeries(ctx, showSeries, w, weight)
	}

	daily, err := engine.CachedDailySeries(ctx, cache, query, window, fetch)
	if err != nil {
		return err
	}

	out := daily
	if cumulative {
		out = engine.ComputeCumulativeSeries(daily, collectEntities(daily), nil)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(out); err != nil {
		return fmt.Errorf("encode series: %w", err)
	}
	return nil
}

func parseWindow(from, to string) (timeline.Window, error) {
	start, err := time.Parse(dateLayout, strings.TrimSpace(from))
	if err != nil {
		return timeline.Window{}, fmt.Errorf("parse -from: %w", err)
	}
	end, err := time.Parse(dateLayout, strings.TrimSpace(to))
	if err != nil {
		return timeline.Window{}, fmt.Errorf("parse -to: %w", err)
	}
	if end.Before(start) {
		return timeline.Window{}, fmt.Errorf("window end before start")
	}
	return timeline.Window{Start: start, End: end}, nil
}

func parseGrouping(raw string) (showstore.Grouping, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "show":
		return showstore.GroupByShow, nil
	case "stop":
		return showstore.GroupByStop, nil
	case "project":
		return showstore.GroupByProject, nil
	}
	return "", fmt.Errorf("grouping must be show|stop|project")
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func collectEntities(points []timeline.SeriesPoint) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, point := range points {
		for id := range point.Entities {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids
}

type stdLogger struct {
	logger *log.Logger
}

func newStdLogger() *stdLogger {
	return &stdLogger{logger: log.New(os.Stderr, "boxoffice ", log.LstdFlags|log.LUTC)}
}

func (l *stdLogger) Debug(msg string, fields ...observability.Field) { l.print("DEBUG", msg, fields) }
func (l *stdLogger) Info(msg string, fields ...observability.Field)  { l.print("INFO", msg, fields) }
func (l *stdLogger) Error(msg string, fields ...observability.Field) { l.print("ERROR", msg, fields) }

func (l *stdLogger) print(level, msg string, fields []observability.Field) {
	var b strings.Builder
	b.WriteString(level)
	b.WriteString(" ")
	b.WriteString(msg)
	for _, field := range fields {
		fmt.Fprintf(&b, " %s=%v", field.Key, field.Value)
	}
	l.logger.Println(b.String())
}
