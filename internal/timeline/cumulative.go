package timeline

import "github.com/shopspring/decimal"

// Cumulative converts a dense daily matrix into running totals per entity,
// optionally seeded with baselines accrued before the visible window.
//
// The emitted actual series is runningTotal minus runningEstimated, so a
// stacked actual+estimated chart always sums to the true running total even
// as the estimated share grows or shrinks.
func Cumulative(daily []SeriesPoint, entityIDs []string, baselines map[string]Baseline) []SeriesPoint {
	runningTotal := make(map[string]int64, len(entityIDs))
	runningEstimated := make(map[string]int64, len(entityIDs))
	runningRevenue := make(map[string]decimal.Decimal, len(entityIDs))
	for _, id := range entityIDs {
		base := baselines[id]
		runningTotal[id] = base.Actual + base.Estimated
		runningEstimated[id] = base.Estimated
		runningRevenue[id] = base.Revenue
	}

	out := make([]SeriesPoint, len(daily))
	for i, point := range daily {
		cells := make(map[string]Cell, len(entityIDs))
		for _, id := range entityIDs {
			day := point.Entities[id]
			runningTotal[id] += day.Tickets + day.EstimatedTickets
			runningEstimated[id] += day.EstimatedTickets
			runningRevenue[id] = runningRevenue[id].Add(day.Revenue)

			cells[id] = Cell{
				Tickets:          runningTotal[id] - runningEstimated[id],
				EstimatedTickets: runningEstimated[id],
				Revenue:          runningRevenue[id],
			}
		}
		out[i] = SeriesPoint{Date: point.Date, Entities: cells}
	}
	return out
}
