package timeline

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestAggregateDenseZeroMatrix(t *testing.T) {
	points := Aggregate(nil, []string{"a", "b"}, day(2024, time.April, 1), day(2024, time.April, 3))
	require.Len(t, points, 3)
	for i, point := range points {
		require.Equal(t, day(2024, time.April, 1+i), point.Date)
		require.Len(t, point.Entities, 2)
		for id, cell := range point.Entities {
			require.Zero(t, cell.Tickets, "entity %s", id)
			require.Zero(t, cell.EstimatedTickets, "entity %s", id)
			require.True(t, cell.Revenue.IsZero(), "entity %s", id)
		}
	}
}

func TestAggregateSplitsActualAndEstimated(t *testing.T) {
	items := []DistributedItem{
		{Date: day(2024, time.April, 1), EntityID: "a", Tickets: 5, Revenue: decimal.RequireFromString("50"), IsEstimated: false},
		{Date: day(2024, time.April, 1), EntityID: "a", Tickets: 3, Revenue: decimal.RequireFromString("30"), IsEstimated: true},
	}

	points := Aggregate(items, []string{"a"}, day(2024, time.April, 1), day(2024, time.April, 1))
	require.Len(t, points, 1)
	cell := points[0].Entities["a"]
	require.Equal(t, int64(5), cell.Tickets)
	require.Equal(t, int64(3), cell.EstimatedTickets)
	// Estimated revenue is never booked.
	require.True(t, cell.Revenue.Equal(decimal.RequireFromString("50")))
}

func TestAggregateIgnoresOutOfScopeItems(t *testing.T) {
	items := []DistributedItem{
		{Date: day(2024, time.April, 9), EntityID: "a", Tickets: 5},
		{Date: day(2024, time.April, 2), EntityID: "other", Tickets: 7},
	}

	points := Aggregate(items, []string{"a"}, day(2024, time.April, 1), day(2024, time.April, 3))
	for _, point := range points {
		require.Zero(t, point.Entities["a"].Tickets)
		_, ok := point.Entities["other"]
		require.False(t, ok)
	}
}

func TestAggregateInvertedWindow(t *testing.T) {
	require.Nil(t, Aggregate(nil, []string{"a"}, day(2024, time.April, 3), day(2024, time.April, 1)))
}

func TestAggregateNormalizesItemDates(t *testing.T) {
	noon := time.Date(2024, time.April, 2, 12, 30, 0, 0, time.UTC)
	items := []DistributedItem{{Date: noon, EntityID: "a", Tickets: 4}}

	points := Aggregate(items, []string{"a"}, day(2024, time.April, 1), day(2024, time.April, 3))
	require.Equal(t, int64(4), points[1].Entities["a"].Tickets)
}

func TestCumulativeRunningTotals(t *testing.T) {
	daily := []SeriesPoint{
		{Date: day(2024, time.April, 1), Entities: map[string]Cell{
			"a": {Tickets: 5, EstimatedTickets: 5, Revenue: decimal.RequireFromString("50")},
		}},
		{Date: day(2024, time.April, 2), Entities: map[string]Cell{
			"a": {Tickets: 10},
		}},
	}
	baselines := map[string]Baseline{
		"a": {Actual: 100, Estimated: 20, Revenue: decimal.RequireFromString("500")},
	}

	out := Cumulative(daily, []string{"a"}, baselines)
	require.Len(t, out, 2)

	first := out[0].Entities["a"]
	require.Equal(t, int64(105), first.Tickets)
	require.Equal(t, int64(25), first.EstimatedTickets)
	require.True(t, first.Revenue.Equal(decimal.RequireFromString("550")))

	second := out[1].Entities["a"]
	require.Equal(t, int64(115), second.Tickets)
	require.Equal(t, int64(25), second.EstimatedTickets)
	require.True(t, second.Revenue.Equal(decimal.RequireFromString("550")))
}

func TestCumulativeStackedSeriesSumsToTrueTotal(t *testing.T) {
	daily := Aggregate([]DistributedItem{
		{Date: day(2024, time.April, 1), EntityID: "a", Tickets: 3, IsEstimated: true},
		{Date: day(2024, time.April, 2), EntityID: "a", Tickets: 4},
		{Date: day(2024, time.April, 3), EntityID: "a", Tickets: 2, IsEstimated: true},
	}, []string{"a"}, day(2024, time.April, 1), day(2024, time.April, 3))

	out := Cumulative(daily, []string{"a"}, nil)
	var runningTotal int64
	for _, point := range out {
		cell := point.Entities["a"]
		dayCell := dailyCell(daily, point.Date, "a")
		runningTotal += dayCell.Tickets + dayCell.EstimatedTickets
		require.Equal(t, runningTotal, cell.Tickets+cell.EstimatedTickets, "date %s", point.Date)
	}
}

func dailyCell(points []SeriesPoint, date time.Time, id string) Cell {
	for _, point := range points {
		if point.Date.Equal(date) {
			return point.Entities[id]
		}
	}
	return Cell{}
}
