// Package series orchestrates snapshot reconciliation into chartable series.
package series

import (
	"context"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/stagepass/boxoffice/internal/observability"
	"github.com/stagepass/boxoffice/internal/resultcache"
	"github.com/stagepass/boxoffice/internal/timeline"
)

const defaultWorkers = 8

// ShowSeries bundles one show's reconciliation inputs under its aggregation
// key. Several shows may share an EntityID when grouped by stop or project.
type ShowSeries struct {
	EntityID    string
	Snapshots   []timeline.Snapshot
	SalesStart  *time.Time
	ReportDates []time.Time
}

// Engine computes daily and cumulative series. The reconciliation itself is
// pure per show, so the engine fans work out and reduces with associative
// addition.
type Engine struct {
	workers int
}

// Option configures an Engine.
type Option func(*Engine)

// WithWorkers bounds the per-show fan-out.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// NewEngine constructs an engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{workers: defaultWorkers}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// ComputeDailySeries reconciles every show's snapshots and aggregates them
// into a dense daily matrix over the window.
func (e *Engine) ComputeDailySeries(ctx context.Context, shows []ShowSeries, window timeline.Window, weight timeline.Weight) ([]timeline.SeriesPoint, error) {
	if !weight.Validate() {
		weight = timeline.WeightEven
	}
	start := time.Now()

	workers := pool.NewWithResults[[]timeline.DistributedItem]().
		WithContext(ctx).
		WithMaxGoroutines(e.workers)
	for _, show := range shows {
		show := show
		workers.Go(func(ctx context.Context) ([]timeline.DistributedItem, error) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			reportDays := make(map[time.Time]bool, len(show.ReportDates))
			for _, day := range show.ReportDates {
				reportDays[timeline.Day(day)] = true
			}
			return timeline.Reconcile(show.Snapshots, show.EntityID, show.SalesStart, reportDays, weight), nil
		})
	}
	results, err := workers.Wait()
	if err != nil {
		return nil, err
	}

	var items []timeline.DistributedItem
	for _, batch := range results {
		items = append(items, batch...)
	}
	matrix := timeline.Aggregate(items, entityIDs(shows), window.Start, window.End)

	observability.Telemetry().ObserveHistogram("boxoffice_reconcile_duration_seconds",
		time.Since(start).Seconds(), map[string]string{"path": "snapshots"})
	return matrix, nil
}

// ComputeDailySeriesFromRanges expands precomputed delta ranges instead of
// re-deriving deltas from raw snapshots. entityMap keys ranges by show and
// maps each show to its aggregation entity.
func (e *Engine) ComputeDailySeriesFromRanges(ctx context.Context, ranges []timeline.DistributionRange, entityMap map[string]string, window timeline.Window, weight timeline.Weight) ([]timeline.SeriesPoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !weight.Validate() {
		weight = timeline.WeightEven
	}
	start := time.Now()

	items := timeline.ExpandRanges(ranges, entityMap, window.Start, window.End, weight)
	ids := make([]string, 0, len(ranges))
	seen := make(map[string]bool, len(ranges))
	for _, r := range ranges {
		entity := r.ShowID
		if mapped, ok := entityMap[r.ShowID]; ok && mapped != "" {
			entity = mapped
		}
		if !seen[entity] {
			seen[entity] = true
			ids = append(ids, entity)
		}
	}
	matrix := timeline.Aggregate(items, ids, window.Start, window.End)

	observability.Telemetry().ObserveHistogram("boxoffice_reconcile_duration_seconds",
		time.Since(start).Seconds(), map[string]string{"path": "ranges"})
	return matrix, nil
}

// ComputeCumulativeSeries reconstructs running totals from a daily matrix.
func (e *Engine) ComputeCumulativeSeries(daily []timeline.SeriesPoint, entityIDs []string, baselines map[string]timeline.Baseline) []timeline.SeriesPoint {
	return timeline.Cumulative(daily, entityIDs, baselines)
}

// FetchFunc loads fresh daily rows for a window.
type FetchFunc func(ctx context.Context, window timeline.Window) ([]timeline.SeriesPoint, error)

// CachedDailySeries serves a query through the result cache: on a hit only
// the uncached tail is fetched and merged over the settled history; on a
// miss the full window is fetched and cached. A nil cache degrades to a
// plain fetch.
func (e *Engine) CachedDailySeries(ctx context.Context, cache *resultcache.Cache, query resultcache.Query, window timeline.Window, fetch FetchFunc) ([]timeline.SeriesPoint, error) {
	if cache == nil {
		return fetch(ctx, window)
	}
	key := cache.Key(query)

	if entry, ok := cache.Get(ctx, key, query.EntityIDs); ok {
		tailStart := entry.CachedUpTo.AddDate(0, 0, 1)
		if tailStart.After(timeline.Day(window.End)) {
			return entry.Rows, nil
		}
		fresh, err := fetch(ctx, timeline.Window{Start: tailStart, End: window.End})
		if err != nil {
			return nil, err
		}
		merged := resultcache.Merge(entry.Rows, fresh)
		cache.Put(ctx, key, merged, query.EntityIDs)
		return merged, nil
	}

	rows, err := fetch(ctx, window)
	if err != nil {
		return nil, err
	}
	cache.Put(ctx, key, rows, query.EntityIDs)
	return rows, nil
}

func entityIDs(shows []ShowSeries) []string {
	ids := make([]string, 0, len(shows))
	seen := make(map[string]bool, len(shows))
	for _, show := range shows {
		if !seen[show.EntityID] {
			seen[show.EntityID] = true
			ids = append(ids, show.EntityID)
		}
	}
	return ids
}
