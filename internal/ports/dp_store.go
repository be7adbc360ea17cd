package ports

import (
	"context"

	"shipment-forecast-service/internal/scgraph"
)

// DPStore persists the path and probability memos between runs. Load
// returns nil memos when nothing has been stored yet; callers start
// cold. Save must merge the given memos into the latest stored state
// (read-modify-write) so entries computed by a concurrent worker for
// other vertices are not lost, and must mark the memos clean on
// success. Implementations skip the write when the memo reports no
// updates and force is false.
type DPStore interface {
	LoadPathDP(ctx context.Context, n int) (*scgraph.PathDP, error)
	LoadProbDP(ctx context.Context, n int) (*scgraph.PathProbDP, error)
	SavePathDP(ctx context.Context, dp *scgraph.PathDP, force bool) error
	SaveProbDP(ctx context.Context, dp *scgraph.PathProbDP, force bool) error
}
