package timeline

import (
	"time"

	"github.com/shopspring/decimal"
)

// Reconcile converts one show's ordered cumulative snapshots into daily items.
//
// A known sales start strictly before the first snapshot anchors the first
// spread inclusively; afterwards only real report dates anchor gaps, and each
// gap opens the day after the previous report. A non-positive ticket delta
// emits an explicit zero item on the report date, marking "report received,
// no growth" as distinct from a missing report. Snapshots without a usable
// date are skipped; the function is total over arbitrary input.
func Reconcile(snapshots []Snapshot, entityID string, salesStart *time.Time, reportDates map[time.Time]bool, weight Weight) []DistributedItem {
	usable := make([]Snapshot, 0, len(snapshots))
	for _, snap := range snapshots {
		if snap.EffectiveDate.IsZero() {
			continue
		}
		usable = append(usable, snap)
	}
	if len(usable) == 0 {
		return nil
	}

	var out []DistributedItem
	var prevTickets int64
	prevRevenue := decimal.Zero
	var prevDate time.Time
	anchored := false
	haveBaseline := false

	if salesStart != nil {
		start := Day(*salesStart)
		if start.Before(Day(usable[0].EffectiveDate)) {
			prevDate = start
			anchored = true
			haveBaseline = true
		}
	}

	for _, snap := range usable {
		date := Day(snap.EffectiveDate)
		if !haveBaseline {
			prevTickets = snap.CumulativeTickets
			prevRevenue = snap.CumulativeRevenue
			prevDate = date
			haveBaseline = true
			if len(usable) == 1 {
				// No start anchor to spread from: the lone report lands whole
				// on its own date.
				out = append(out, DistributedItem{
					Date:        date,
					EntityID:    entityID,
					Tickets:     maxInt64(snap.CumulativeTickets, 0),
					Revenue:     floorZero(snap.CumulativeRevenue),
					IsEstimated: false,
				})
			}
			continue
		}

		deltaTickets := snap.CumulativeTickets - prevTickets
		deltaRevenue := floorZero(snap.CumulativeRevenue.Sub(prevRevenue))

		switch {
		case deltaTickets <= 0:
			out = append(out, DistributedItem{
				Date:        date,
				EntityID:    entityID,
				Tickets:     0,
				Revenue:     decimal.Zero,
				IsEstimated: false,
			})
		default:
			start := prevDate
			if !anchored {
				start = prevDate.AddDate(0, 0, 1)
			}
			if !start.Before(date) {
				out = append(out, DistributedItem{
					Date:        date,
					EntityID:    entityID,
					Tickets:     deltaTickets,
					Revenue:     deltaRevenue,
					IsEstimated: false,
				})
				break
			}
			span := DaysBetween(start, date) + 1
			tickets := Distribute(deltaTickets, span, weight)
			revenue := DistributeAmount(deltaRevenue, span, weight)
			for i := 0; i < span; i++ {
				day := start.AddDate(0, 0, i)
				out = append(out, DistributedItem{
					Date:        day,
					EntityID:    entityID,
					Tickets:     tickets[i],
					Revenue:     revenue[i],
					IsEstimated: !day.Equal(date) && !reportDates[day],
				})
			}
		}

		prevTickets = snap.CumulativeTickets
		prevRevenue = snap.CumulativeRevenue
		prevDate = date
		anchored = false
	}
	return out
}

func floorZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
