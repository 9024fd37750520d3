package timeline

import "time"

// Aggregate folds daily items into a dense date-by-entity matrix. Every date
// in the window holds a zero cell for every requested entity, so charts never
// see gaps. Estimated items contribute to the estimated ticket series only;
// revenue is attributed solely to report-backed items so interpolated days
// never imply false revenue precision.
func Aggregate(items []DistributedItem, entityIDs []string, windowStart, windowEnd time.Time) []SeriesPoint {
	windowStart = Day(windowStart)
	windowEnd = Day(windowEnd)
	if windowEnd.Before(windowStart) {
		return nil
	}

	requested := make(map[string]bool, len(entityIDs))
	for _, id := range entityIDs {
		requested[id] = true
	}

	span := DaysBetween(windowStart, windowEnd) + 1
	points := make([]SeriesPoint, span)
	index := make(map[time.Time]int, span)
	for i := 0; i < span; i++ {
		date := windowStart.AddDate(0, 0, i)
		cells := make(map[string]Cell, len(entityIDs))
		for _, id := range entityIDs {
			cells[id] = Cell{}
		}
		points[i] = SeriesPoint{Date: date, Entities: cells}
		index[date] = i
	}

	for _, item := range items {
		if !requested[item.EntityID] {
			continue
		}
		i, ok := index[Day(item.Date)]
		if !ok {
			continue
		}
		cell := points[i].Entities[item.EntityID]
		if item.IsEstimated {
			cell.EstimatedTickets += item.Tickets
		} else {
			cell.Tickets += item.Tickets
			cell.Revenue = cell.Revenue.Add(item.Revenue)
		}
		points[i].Entities[item.EntityID] = cell
	}
	return points
}
