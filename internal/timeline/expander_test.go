package timeline

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestExpandRangesClipsToWindow(t *testing.T) {
	ranges := []DistributionRange{{
		ShowID:       "show-a",
		StartDate:    day(2024, time.January, 1),
		EndDate:      day(2024, time.January, 5),
		Tickets:      10,
		Revenue:      decimal.RequireFromString("25"),
		IsReportDate: true,
	}}

	items := ExpandRanges(ranges, nil, day(2024, time.January, 3), day(2024, time.January, 10), WeightEven)
	require.Len(t, items, 3)
	for i, item := range items {
		require.Equal(t, day(2024, time.January, 3+i), item.Date)
		require.Equal(t, "show-a", item.EntityID)
		require.Equal(t, int64(2), item.Tickets)
		require.True(t, item.Revenue.Equal(decimal.RequireFromString("5")))
	}
	require.True(t, items[0].IsEstimated)
	require.True(t, items[1].IsEstimated)
	require.False(t, items[2].IsEstimated)
}

func TestExpandRangesZeroAmountOnlyVisibleAsReportReceipt(t *testing.T) {
	inWindow := DistributionRange{
		ShowID:       "show-a",
		StartDate:    day(2024, time.January, 4),
		EndDate:      day(2024, time.January, 4),
		IsReportDate: true,
	}
	unmarked := inWindow
	unmarked.IsReportDate = false
	outside := inWindow
	outside.StartDate = day(2024, time.February, 1)
	outside.EndDate = day(2024, time.February, 1)

	start, end := day(2024, time.January, 1), day(2024, time.January, 10)

	items := ExpandRanges([]DistributionRange{inWindow}, nil, start, end, WeightEven)
	require.Len(t, items, 1)
	require.Equal(t, day(2024, time.January, 4), items[0].Date)
	require.Zero(t, items[0].Tickets)
	require.False(t, items[0].IsEstimated)

	require.Empty(t, ExpandRanges([]DistributionRange{unmarked}, nil, start, end, WeightEven))
	require.Empty(t, ExpandRanges([]DistributionRange{outside}, nil, start, end, WeightEven))
}

func TestExpandRangesMapsEntities(t *testing.T) {
	ranges := []DistributionRange{{
		ShowID:       "show-a",
		StartDate:    day(2024, time.January, 2),
		EndDate:      day(2024, time.January, 3),
		Tickets:      4,
		IsReportDate: true,
	}}
	entityIDs := map[string]string{"show-a": "stop-1"}

	items := ExpandRanges(ranges, entityIDs, day(2024, time.January, 1), day(2024, time.January, 5), WeightEven)
	require.Len(t, items, 2)
	for _, item := range items {
		require.Equal(t, "stop-1", item.EntityID)
	}
}

func TestExpandRangesReportDaysSharedAcrossRanges(t *testing.T) {
	// The receipt-marked end of one range makes the same day actual inside
	// another range of the same show.
	ranges := []DistributionRange{
		{
			ShowID:       "show-a",
			StartDate:    day(2024, time.January, 1),
			EndDate:      day(2024, time.January, 6),
			Tickets:      12,
			IsReportDate: true,
		},
		{
			ShowID:       "show-a",
			StartDate:    day(2024, time.January, 3),
			EndDate:      day(2024, time.January, 3),
			IsReportDate: true,
		},
	}

	items := ExpandRanges(ranges, nil, day(2024, time.January, 1), day(2024, time.January, 10), WeightEven)
	for _, item := range items {
		if item.Date.Equal(day(2024, time.January, 3)) || item.Date.Equal(day(2024, time.January, 6)) {
			require.False(t, item.IsEstimated, "date %s", item.Date)
		} else {
			require.True(t, item.IsEstimated, "date %s", item.Date)
		}
	}
}
