package series

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/stagepass/boxoffice/internal/resultcache"
	"github.com/stagepass/boxoffice/internal/timeline"
)

func day(yy int, mm time.Month, dd int) time.Time {
	return time.Date(yy, mm, dd, 0, 0, 0, 0, time.UTC)
}

func sampleShows() []ShowSeries {
	startA := day(2024, time.January, 1)
	return []ShowSeries{
		{
			EntityID: "show-a",
			Snapshots: []timeline.Snapshot{
				{EffectiveDate: day(2024, time.January, 6), CumulativeTickets: 60, CumulativeRevenue: decimal.RequireFromString("120")},
			},
			SalesStart:  &startA,
			ReportDates: []time.Time{day(2024, time.January, 6)},
		},
		{
			EntityID: "show-b",
			Snapshots: []timeline.Snapshot{
				{EffectiveDate: day(2024, time.January, 2), CumulativeTickets: 10},
				{EffectiveDate: day(2024, time.January, 8), CumulativeTickets: 40},
			},
			ReportDates: []time.Time{day(2024, time.January, 2), day(2024, time.January, 8)},
		},
		{
			EntityID: "show-c",
			Snapshots: []timeline.Snapshot{
				{EffectiveDate: day(2024, time.January, 4), CumulativeTickets: 25, CumulativeRevenue: decimal.RequireFromString("75.50")},
			},
		},
	}
}

func TestComputeDailySeriesMatchesSequentialReconciliation(t *testing.T) {
	shows := sampleShows()
	window := timeline.Window{Start: day(2024, time.January, 1), End: day(2024, time.January, 10)}

	engine := NewEngine(WithWorkers(4))
	got, err := engine.ComputeDailySeries(context.Background(), shows, window, timeline.WeightEven)
	require.NoError(t, err)

	var items []timeline.DistributedItem
	ids := make([]string, 0, len(shows))
	for _, show := range shows {
		ids = append(ids, show.EntityID)
		reportDays := make(map[time.Time]bool)
		for _, d := range show.ReportDates {
			reportDays[timeline.Day(d)] = true
		}
		items = append(items, timeline.Reconcile(show.Snapshots, show.EntityID, show.SalesStart, reportDays, timeline.WeightEven)...)
	}
	want := timeline.Aggregate(items, ids, window.Start, window.End)

	require.Equal(t, want, got)
}

func TestComputeDailySeriesSharedEntityAccumulates(t *testing.T) {
	shows := []ShowSeries{
		{
			EntityID: "stop-1",
			Snapshots: []timeline.Snapshot{
				{EffectiveDate: day(2024, time.January, 3), CumulativeTickets: 9},
			},
		},
		{
			EntityID: "stop-1",
			Snapshots: []timeline.Snapshot{
				{EffectiveDate: day(2024, time.January, 3), CumulativeTickets: 4},
			},
		},
	}
	window := timeline.Window{Start: day(2024, time.January, 1), End: day(2024, time.January, 5)}

	engine := NewEngine()
	got, err := engine.ComputeDailySeries(context.Background(), shows, window, timeline.WeightEven)
	require.NoError(t, err)
	require.Len(t, got, 5)
	require.Equal(t, int64(13), got[2].Entities["stop-1"].Tickets)
}

func TestComputeDailySeriesCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	engine := NewEngine()
	_, err := engine.ComputeDailySeries(ctx, sampleShows(), timeline.Window{Start: day(2024, time.January, 1), End: day(2024, time.January, 10)}, timeline.WeightEven)
	require.Error(t, err)
}

func TestComputeDailySeriesFromRanges(t *testing.T) {
	ranges := []timeline.DistributionRange{
		{
			ShowID:       "show-a",
			StartDate:    day(2024, time.January, 1),
			EndDate:      day(2024, time.January, 5),
			Tickets:      10,
			Revenue:      decimal.RequireFromString("25"),
			IsReportDate: true,
		},
	}
	entityMap := map[string]string{"show-a": "stop-1"}
	window := timeline.Window{Start: day(2024, time.January, 1), End: day(2024, time.January, 5)}

	engine := NewEngine()
	got, err := engine.ComputeDailySeriesFromRanges(context.Background(), ranges, entityMap, window, timeline.WeightEven)
	require.NoError(t, err)
	require.Len(t, got, 5)

	var tickets int64
	for _, point := range got {
		cell := point.Entities["stop-1"]
		tickets += cell.Tickets + cell.EstimatedTickets
	}
	require.Equal(t, int64(10), tickets)
	// Only the report-backed final day carries actual tickets and revenue.
	require.Equal(t, int64(2), got[4].Entities["stop-1"].Tickets)
	require.Equal(t, int64(0), got[0].Entities["stop-1"].Tickets)
	require.Equal(t, int64(2), got[0].Entities["stop-1"].EstimatedTickets)
}

func TestCachedDailySeriesNilCacheFetchesDirectly(t *testing.T) {
	window := timeline.Window{Start: day(2024, time.March, 1), End: day(2024, time.March, 5)}
	var fetched []timeline.Window
	fetch := func(ctx context.Context, w timeline.Window) ([]timeline.SeriesPoint, error) {
		fetched = append(fetched, w)
		return nil, nil
	}

	engine := NewEngine()
	_, err := engine.CachedDailySeries(context.Background(), nil, resultcache.Query{}, window, fetch)
	require.NoError(t, err)
	require.Equal(t, []timeline.Window{window}, fetched)
}

func TestCachedDailySeriesFetchesOnlyUncachedTail(t *testing.T) {
	now := time.Date(2024, time.March, 20, 12, 0, 0, 0, time.UTC)
	cache := resultcache.New(resultcache.NewMemoryStore(0), resultcache.WithClock(func() time.Time { return now }))
	defer cache.Close()

	window := timeline.Window{Start: day(2024, time.March, 1), End: day(2024, time.March, 20)}
	query := resultcache.Query{
		RangeSelector: "2024-03-01..2024-03-20",
		Metric:        "daily",
		Weight:        timeline.WeightEven,
		EntityIDs:     []string{"show-1"},
	}

	var fetched []timeline.Window
	fetch := func(ctx context.Context, w timeline.Window) ([]timeline.SeriesPoint, error) {
		fetched = append(fetched, w)
		span := timeline.DaysBetween(timeline.Day(w.Start), timeline.Day(w.End)) + 1
		rows := make([]timeline.SeriesPoint, span)
		for i := 0; i < span; i++ {
			date := timeline.Day(w.Start).AddDate(0, 0, i)
			rows[i] = timeline.SeriesPoint{
				Date:     date,
				Entities: map[string]timeline.Cell{"show-1": {Tickets: int64(date.Day())}},
			}
		}
		return rows, nil
	}

	engine := NewEngine()
	first, err := engine.CachedDailySeries(context.Background(), cache, query, window, fetch)
	require.NoError(t, err)
	require.Len(t, first, 20)
	require.Len(t, fetched, 1)
	require.Equal(t, window, fetched[0])

	second, err := engine.CachedDailySeries(context.Background(), cache, query, window, fetch)
	require.NoError(t, err)
	require.Len(t, second, 20)
	require.Len(t, fetched, 2)
	// March 18 is the last settled row, so the second fetch starts March 19.
	require.Equal(t, day(2024, time.March, 19), timeline.Day(fetched[1].Start))
	require.Equal(t, window.End, fetched[1].End)

	for i, point := range second {
		require.Equal(t, int64(i+1), point.Entities["show-1"].Tickets, "row %d", i)
	}
}

func TestCachedDailySeriesGroupingsNeverShareEntries(t *testing.T) {
	now := time.Date(2024, time.March, 20, 12, 0, 0, 0, time.UTC)
	cache := resultcache.New(resultcache.NewMemoryStore(0), resultcache.WithClock(func() time.Time { return now }))
	defer cache.Close()

	window := timeline.Window{Start: day(2024, time.March, 1), End: day(2024, time.March, 10)}
	byStop := resultcache.Query{
		RangeSelector: "2024-03-01..2024-03-10",
		Metric:        "daily",
		Grouping:      "stop",
		Weight:        timeline.WeightEven,
		EntityIDs:     []string{"key-1"},
	}
	byProject := byStop
	byProject.Grouping = "project"

	var fetches int
	fetch := func(ctx context.Context, w timeline.Window) ([]timeline.SeriesPoint, error) {
		fetches++
		return []timeline.SeriesPoint{{
			Date:     timeline.Day(w.Start),
			Entities: map[string]timeline.Cell{"key-1": {Tickets: int64(fetches)}},
		}}, nil
	}

	engine := NewEngine()
	_, err := engine.CachedDailySeries(context.Background(), cache, byStop, window, fetch)
	require.NoError(t, err)

	// Even when the aggregation keys coincide, a different grouping is a
	// different computation and must refetch the whole window.
	second, err := engine.CachedDailySeries(context.Background(), cache, byProject, window, fetch)
	require.NoError(t, err)
	require.Equal(t, 2, fetches)
	require.Equal(t, int64(2), second[0].Entities["key-1"].Tickets)
}
