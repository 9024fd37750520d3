// Package timeline turns sparse cumulative sales snapshots into dense daily series.
package timeline

import (
	"time"

	"github.com/shopspring/decimal"
)

// Weight selects the shape used when spreading a delta across a gap of days.
type Weight string

const (
	// WeightEven spreads a delta uniformly across the gap.
	WeightEven Weight = "even"
	// WeightEarly front-loads the spread toward the start of the gap.
	WeightEarly Weight = "early"
	// WeightLate back-loads the spread toward the report date.
	WeightLate Weight = "late"
)

// Validate ensures the weight names a known distribution shape.
func (w Weight) Validate() bool {
	switch w {
	case WeightEven, WeightEarly, WeightLate:
		return true
	}
	return false
}

// Snapshot is one reported observation of cumulative tickets and revenue as of a date.
type Snapshot struct {
	EffectiveDate     time.Time
	CumulativeTickets int64
	CumulativeRevenue decimal.Decimal
}

// DistributedItem is a single day's attributed sales for one entity.
// Items are never negative; IsEstimated marks interpolated days.
type DistributedItem struct {
	Date        time.Time
	EntityID    string
	Tickets     int64
	Revenue     decimal.Decimal
	IsEstimated bool
}

// Cell holds one entity's contribution for one day, with actual and
// estimated tickets kept as separate series. Estimated revenue is not
// tracked: revenue is attributed only to report-backed days.
type Cell struct {
	Tickets          int64           `json:"tickets"`
	EstimatedTickets int64           `json:"estimated_tickets"`
	Revenue          decimal.Decimal `json:"revenue"`
}

// SeriesPoint is one dated row of the dense matrix, keyed by entity ID.
type SeriesPoint struct {
	Date     time.Time       `json:"date"`
	Entities map[string]Cell `json:"entities"`
}

// Baseline seeds cumulative reconstruction with totals accrued before the
// visible window.
type Baseline struct {
	Actual    int64
	Estimated int64
	Revenue   decimal.Decimal
}

// DistributionRange is an already delta-computed amount covering a closed
// date interval, maintained upstream so daily expansion never re-derives
// deltas from raw snapshots.
type DistributionRange struct {
	ShowID       string
	StartDate    time.Time
	EndDate      time.Time
	Tickets      int64
	Revenue      decimal.Decimal
	IsReportDate bool
}

// Window is a closed date interval.
type Window struct {
	Start time.Time
	End   time.Time
}

// Day normalizes a timestamp to UTC midnight so dates compare and hash
// consistently across the engine.
func Day(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of whole days from a to b (both normalized).
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)) / (24 * time.Hour))
}
