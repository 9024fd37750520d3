// Package postgres implements the sales data provider over PostgreSQL.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/stagepass/boxoffice/internal/domain/showstore"
	"github.com/stagepass/boxoffice/internal/observability"
	"github.com/stagepass/boxoffice/internal/series"
	"github.com/stagepass/boxoffice/internal/timeline"
)

// SalesStore loads shows, raw sales reports, and precomputed distribution
// ranges from PostgreSQL. Reads are throttled so dashboard fan-out cannot
// saturate the pool.
type SalesStore struct {
	pool    *pgxpool.Pool
	limiter *rate.Limiter
}

// NewSalesStore constructs a SalesStore backed by the provided pgx pool.
// A non-positive queriesPerSec disables throttling.
func NewSalesStore(pool *pgxpool.Pool, queriesPerSec float64) *SalesStore {
	var limiter *rate.Limiter
	if queriesPerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(queriesPerSec), 1)
	}
	return &SalesStore{pool: pool, limiter: limiter}
}

const (
	showSelectSQL = `
SELECT id, name, stop_id, project_id, sales_start
FROM shows
WHERE id = ANY($1)
ORDER BY id;
`
	reportSelectSQL = `
SELECT show_id, sale_date, received_at, cumulative_tickets, cumulative_revenue::text
FROM sales_reports
WHERE show_id = ANY($1)
ORDER BY show_id, COALESCE(sale_date, received_at - INTERVAL '1 day'), received_at;
`
	rangeSelectSQL = `
SELECT show_id, start_date, end_date, tickets, revenue::text, is_report_date
FROM distribution_ranges
WHERE show_id = ANY($1) AND end_date >= $2 AND start_date <= $3
ORDER BY show_id, end_date;
`
)

// Shows loads catalog rows for the given show IDs.
func (s *SalesStore) Shows(ctx context.Context, showIDs []string) ([]showstore.Show, error) {
	if err := s.throttle(ctx); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, showSelectSQL, showIDs)
	if err != nil {
		return nil, fmt.Errorf("select shows: %w", err)
	}
	defer rows.Close()

	var shows []showstore.Show
	for rows.Next() {
		var show showstore.Show
		var stopID, projectID *string
		if err := rows.Scan(&show.ID, &show.Name, &stopID, &projectID, &show.SalesStart); err != nil {
			return nil, fmt.Errorf("scan show: %w", err)
		}
		if stopID != nil {
			show.StopID = *stopID
		}
		if projectID != nil {
			show.ProjectID = *projectID
		}
		shows = append(shows, show)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate shows: %w", err)
	}
	return shows, nil
}

// ShowSeries loads ordered snapshots per show, keyed by the grouping entity.
// Report rows without a usable date are skipped and surfaced as a
// data-quality counter, never an error.
func (s *SalesStore) ShowSeries(ctx context.Context, showIDs []string, grouping showstore.Grouping) ([]series.ShowSeries, error) {
	shows, err := s.Shows(ctx, showIDs)
	if err != nil {
		return nil, err
	}
	byShow := make(map[string]showstore.Show, len(shows))
	for _, show := range shows {
		byShow[show.ID] = show
	}

	if err := s.throttle(ctx); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, reportSelectSQL, showIDs)
	if err != nil {
		return nil, fmt.Errorf("select sales reports: %w", err)
	}
	defer rows.Close()

	reports := make(map[string][]showstore.SalesReport, len(shows))
	var skipped int
	for rows.Next() {
		var report showstore.SalesReport
		var revenue string
		if err := rows.Scan(&report.ShowID, &report.SaleDate, &report.ReceivedAt, &report.CumulativeTickets, &revenue); err != nil {
			return nil, fmt.Errorf("scan sales report: %w", err)
		}
		parsed, err := decimal.NewFromString(revenue)
		if err != nil {
			return nil, fmt.Errorf("parse cumulative revenue %q: %w", revenue, err)
		}
		report.CumulativeRevenue = parsed
		if _, ok := report.EffectiveDate(); !ok {
			skipped++
			continue
		}
		reports[report.ShowID] = append(reports[report.ShowID], report)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sales reports: %w", err)
	}
	if skipped > 0 {
		observability.Telemetry().IncCounter("boxoffice_reports_skipped_total", float64(skipped), map[string]string{"reason": "no_date"})
		observability.Log().Debug("skipped sales reports without a usable date",
			observability.Field{Key: "count", Value: skipped})
	}

	out := make([]series.ShowSeries, 0, len(shows))
	for _, show := range shows {
		showReports := reports[show.ID]
		snapshots := make([]timeline.Snapshot, 0, len(showReports))
		reportDates := make([]time.Time, 0, len(showReports))
		for _, report := range showReports {
			effective, ok := report.EffectiveDate()
			if !ok {
				continue
			}
			snapshots = append(snapshots, timeline.Snapshot{
				EffectiveDate:     effective,
				CumulativeTickets: report.CumulativeTickets,
				CumulativeRevenue: report.CumulativeRevenue,
			})
			reportDates = append(reportDates, timeline.Day(effective))
		}
		out = append(out, series.ShowSeries{
			EntityID:    show.GroupKey(grouping),
			Snapshots:   snapshots,
			SalesStart:  show.SalesStart,
			ReportDates: reportDates,
		})
	}
	return out, nil
}

// DistributionRanges loads precomputed delta ranges overlapping the window
// plus the show-to-entity mapping for the grouping.
func (s *SalesStore) DistributionRanges(ctx context.Context, showIDs []string, grouping showstore.Grouping, window timeline.Window) ([]timeline.DistributionRange, map[string]string, error) {
	shows, err := s.Shows(ctx, showIDs)
	if err != nil {
		return nil, nil, err
	}
	entityMap := make(map[string]string, len(shows))
	for _, show := range shows {
		entityMap[show.ID] = show.GroupKey(grouping)
	}

	if err := s.throttle(ctx); err != nil {
		return nil, nil, err
	}
	rows, err := s.pool.Query(ctx, rangeSelectSQL, showIDs, timeline.Day(window.Start), timeline.Day(window.End))
	if err != nil {
		return nil, nil, fmt.Errorf("select distribution ranges: %w", err)
	}
	defer rows.Close()

	var ranges []timeline.DistributionRange
	for rows.Next() {
		var r timeline.DistributionRange
		var revenue string
		if err := rows.Scan(&r.ShowID, &r.StartDate, &r.EndDate, &r.Tickets, &revenue, &r.IsReportDate); err != nil {
			return nil, nil, fmt.Errorf("scan distribution range: %w", err)
		}
		parsed, err := decimal.NewFromString(revenue)
		if err != nil {
			return nil, nil, fmt.Errorf("parse range revenue %q: %w", revenue, err)
		}
		r.Revenue = parsed
		ranges = append(ranges, r)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate distribution ranges: %w", err)
	}
	return ranges, entityMap, nil
}

func (s *SalesStore) throttle(ctx context.Context) error {
	if s.limiter == nil {
		return nil
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("sales store throttle: %w", err)
	}
	return nil
}

var _ series.Provider = (*SalesStore)(nil)
