package ports

import (
	"context"

	"shipment-forecast-service/internal/scgraph"
)

// GraphStore loads the supply chain graph records the in-memory graph
// is built from.
type GraphStore interface {
	VertexRecords(ctx context.Context) ([]scgraph.VertexRecord, error)
	EdgeRecords(ctx context.Context) ([]scgraph.EdgeRecord, error)
}
