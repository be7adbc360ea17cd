package ports

import (
	"context"
	"time"
)

// TransportationMode classifies how a shipment leg is carried.
type TransportationMode string

const (
	ModeAir     TransportationMode = "AIR"
	ModeRail    TransportationMode = "RAIL"
	ModeRoad    TransportationMode = "ROAD"
	ModeSea     TransportationMode = "SEA"
	ModeUnknown TransportationMode = "UNKNOWN"
)

// TrafficRequest asks for live traffic conditions on a single leg.
type TrafficRequest struct {
	SourceLatitude       float64
	SourceLongitude      float64
	DestinationLatitude  float64
	DestinationLongitude float64
	DepartureTime        time.Time
	Mode                 TransportationMode
}

// TrafficResult is the traffic service's answer for one leg.
type TrafficResult struct {
	DistanceKm               float64
	TravelTimeHours          float64
	NoTrafficTravelTimeHours float64
	TrafficDelayHours        float64
}

// TrafficService provides live traffic data for a route leg. A failed
// lookup is reported through the error return; callers degrade to a
// zero, not-computed traffic index rather than failing the estimation.
type TrafficService interface {
	TrafficData(ctx context.Context, req TrafficRequest) (TrafficResult, error)
}
