package series

import (
	"context"

	"github.com/stagepass/boxoffice/internal/domain/showstore"
	"github.com/stagepass/boxoffice/internal/timeline"
)

// Provider supplies already-queried sales data for reconciliation. The
// engine never fetches on its own; implementations own query shape, ordering
// guarantees, and grouping resolution.
type Provider interface {
	// ShowSeries returns, per show, its ordered snapshots, sales start, and
	// report dates, keyed by the grouping entity.
	ShowSeries(ctx context.Context, showIDs []string, grouping showstore.Grouping) ([]ShowSeries, error)

	// DistributionRanges returns precomputed delta ranges overlapping the
	// window plus the show-to-entity mapping for the grouping.
	DistributionRanges(ctx context.Context, showIDs []string, grouping showstore.Grouping, window timeline.Window) ([]timeline.DistributionRange, map[string]string, error)
}
