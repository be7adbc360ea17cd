package ports

import "context"

// RouteTimeQuery is one leg of a batched route-time prediction request.
// TMI/WMI are the live indexes computed for the leg, AvgTMI/AvgWMI the
// historical averages stored on the graph edge.
type RouteTimeQuery struct {
	SourceLatitude       float64
	SourceLongitude      float64
	DestinationLatitude  float64
	DestinationLongitude float64
	DistanceKm           float64
	TMI                  float64
	AvgTMI               float64
	WMI                  float64
	AvgWMI               float64
	AvgOTI               float64
}

// RouteTimeModel predicts travel times for a batch of legs. The response
// must have the same length and order as the request; each entry is a
// predicted time in hours. Callers fall back to each query's AvgOTI when
// the model is unavailable or the response is malformed.
type RouteTimeModel interface {
	EstimateRouteTimes(ctx context.Context, queries []RouteTimeQuery) ([]float64, error)
}
