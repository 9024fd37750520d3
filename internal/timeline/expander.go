package timeline

import "time"

// ExpandRanges expands precomputed delta ranges into daily items clipped to
// the visible window. entityIDs maps a show to its aggregation key (stop or
// project grouping); shows absent from the map keep their own ID.
//
// A zero-amount range is only visible when it marks a report receipt inside
// the window. A day is actual, not estimated, exactly when it is the end date
// of some report-marked range for the same show.
func ExpandRanges(ranges []DistributionRange, entityIDs map[string]string, windowStart, windowEnd time.Time, weight Weight) []DistributedItem {
	windowStart = Day(windowStart)
	windowEnd = Day(windowEnd)

	reportDays := make(map[string]map[time.Time]bool)
	for _, r := range ranges {
		if !r.IsReportDate {
			continue
		}
		days, ok := reportDays[r.ShowID]
		if !ok {
			days = make(map[time.Time]bool)
			reportDays[r.ShowID] = days
		}
		days[Day(r.EndDate)] = true
	}

	var out []DistributedItem
	for _, r := range ranges {
		entity := r.ShowID
		if mapped, ok := entityIDs[r.ShowID]; ok && mapped != "" {
			entity = mapped
		}
		start := Day(r.StartDate)
		end := Day(r.EndDate)
		if end.Before(start) {
			start = end
		}

		if r.Tickets == 0 && r.Revenue.IsZero() {
			if r.IsReportDate && !end.Before(windowStart) && !end.After(windowEnd) {
				out = append(out, DistributedItem{
					Date:        end,
					EntityID:    entity,
					Tickets:     0,
					Revenue:     r.Revenue,
					IsEstimated: false,
				})
			}
			continue
		}

		span := DaysBetween(start, end) + 1
		tickets := Distribute(r.Tickets, span, weight)
		revenue := DistributeAmount(r.Revenue, span, weight)
		for i := 0; i < span; i++ {
			day := start.AddDate(0, 0, i)
			if day.Before(windowStart) || day.After(windowEnd) {
				continue
			}
			out = append(out, DistributedItem{
				Date:        day,
				EntityID:    entity,
				Tickets:     tickets[i],
				Revenue:     revenue[i],
				IsEstimated: !reportDays[r.ShowID][day],
			})
		}
	}
	return out
}
