// Package showstore defines the show catalog and sales report types consumed
// by the reconciliation engine.
package showstore

import (
	"time"

	"github.com/shopspring/decimal"
)

// Grouping selects the aggregation key shows roll up under.
type Grouping string

const (
	// GroupByShow keys series by individual show.
	GroupByShow Grouping = "show"
	// GroupByStop keys series by tour stop.
	GroupByStop Grouping = "stop"
	// GroupByProject keys series by project.
	GroupByProject Grouping = "project"
)

// Show is one sellable event on a tour.
type Show struct {
	ID         string
	Name       string
	StopID     string
	ProjectID  string
	SalesStart *time.Time
}

// GroupKey returns the aggregation key for the show under the given grouping.
func (s Show) GroupKey(grouping Grouping) string {
	switch grouping {
	case GroupByStop:
		if s.StopID != "" {
			return s.StopID
		}
	case GroupByProject:
		if s.ProjectID != "" {
			return s.ProjectID
		}
	}
	return s.ID
}

// SalesReport is one raw cumulative report row as ingested upstream.
type SalesReport struct {
	ShowID            string
	SaleDate          *time.Time
	ReceivedAt        time.Time
	CumulativeTickets int64
	CumulativeRevenue decimal.Decimal
}

// EffectiveDate derives the day the report describes. An explicit sale date
// wins; otherwise receipt minus one day, since reports cover the prior day's
// activity. Reports with neither carry no temporal anchor and are unusable.
func (r SalesReport) EffectiveDate() (time.Time, bool) {
	if r.SaleDate != nil && !r.SaleDate.IsZero() {
		return *r.SaleDate, true
	}
	if !r.ReceivedAt.IsZero() {
		return r.ReceivedAt.AddDate(0, 0, -1), true
	}
	return time.Time{}, false
}
