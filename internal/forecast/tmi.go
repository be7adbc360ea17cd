package forecast

import (
	"context"
	"log"
	"sync"
	"time"

	"shipment-forecast-service/internal/platform/obs"
	"shipment-forecast-service/internal/ports"
	"shipment-forecast-service/internal/scgraph"
)

// TMIValue is the traffic meta-index applied to one leg. Computed is
// false when the service was skipped or unavailable; the value is zero
// in that case.
type TMIValue struct {
	Value    float64
	Computed bool
}

// TMICalculationInput compares the graph's geodesic leg against the
// road route reported by the traffic service.
type TMICalculationInput struct {
	DistanceGeodesicKm       float64
	DistanceRoadKm           float64
	TimeHours                float64
	TimeRoadNoTrafficHours   float64
	TimeRoadWithTrafficHours float64
}

// TMICalculation is the classified and computed traffic meta-index.
type TMICalculation struct {
	Value                    float64
	Mode                     ports.TransportationMode
	DistanceGeodesicKm       float64
	DistanceRoadKm           float64
	TimeHours                float64
	TimeRoadNoTrafficHours   float64
	TimeRoadWithTrafficHours float64
}

// TMIRecord is a stored traffic observation for one graph leg.
type TMIRecord struct {
	TMICalculation
	SourceIndex      int
	SourceID         int
	SourceName       string
	DestinationIndex int
	DestinationID    int
	DestinationName  string
	Timestamp        time.Time
}

// TMICalculator classifies a leg's transportation mode from its
// historical speed and distance, and computes the relative traffic
// delay for road and rail legs.
type TMICalculator struct {
	Speed    TMISpeedParams
	Distance TMIDistanceParams
}

// TransportationMode classifies a leg by average speed and distance,
// checking modes from fastest to slowest.
func (c TMICalculator) TransportationMode(distanceKm, timeHours float64) ports.TransportationMode {
	speedKmh := distanceKm / timeHours

	sp, dp := c.Speed, c.Distance
	switch {
	case sp.AirMinSpeedKmh <= speedKmh && speedKmh <= sp.AirMaxSpeedKmh &&
		dp.AirMinDistanceKm <= distanceKm && distanceKm <= dp.AirMaxDistanceKm:
		return ports.ModeAir
	case sp.SeaMinSpeedKmh <= speedKmh && speedKmh <= sp.SeaMaxSpeedKmh &&
		dp.SeaMinDistanceKm <= distanceKm && distanceKm <= dp.SeaMaxDistanceKm:
		return ports.ModeSea
	case sp.RailMinSpeedKmh <= speedKmh && speedKmh <= sp.RailMaxSpeedKmh &&
		dp.RailMinDistanceKm <= distanceKm && distanceKm <= dp.RailMaxDistanceKm:
		return ports.ModeRail
	case sp.RoadMinSpeedKmh <= speedKmh && speedKmh <= sp.RoadMaxSpeedKmh &&
		dp.RoadMinDistanceKm <= distanceKm && distanceKm <= dp.RoadMaxDistanceKm:
		return ports.ModeRoad
	default:
		return ports.ModeUnknown
	}
}

func emptyTMICalculation(input TMICalculationInput, mode ports.TransportationMode) TMICalculation {
	return TMICalculation{
		Mode:               mode,
		DistanceGeodesicKm: input.DistanceGeodesicKm,
		DistanceRoadKm:     input.DistanceRoadKm,
		TimeHours:          input.TimeHours,
	}
}

// Calculate computes the relative traffic delay (with vs. without
// traffic) for road and rail legs; other modes yield a zero index.
func (c TMICalculator) Calculate(input TMICalculationInput) TMICalculation {
	mode := c.TransportationMode(input.DistanceGeodesicKm, input.TimeHours)
	if mode != ports.ModeRail && mode != ports.ModeRoad {
		return emptyTMICalculation(input, mode)
	}

	if input.TimeRoadNoTrafficHours <= 0 {
		log.Printf("tmi: non-positive no-traffic time hours=%f mode=%s", input.TimeRoadNoTrafficHours, mode)
		return emptyTMICalculation(input, mode)
	}
	if input.TimeRoadWithTrafficHours < input.TimeRoadNoTrafficHours {
		log.Printf("tmi: with-traffic time %f below no-traffic time %f mode=%s",
			input.TimeRoadWithTrafficHours, input.TimeRoadNoTrafficHours, mode)
		return emptyTMICalculation(input, mode)
	}

	return TMICalculation{
		Value:                    (input.TimeRoadWithTrafficHours - input.TimeRoadNoTrafficHours) / input.TimeRoadNoTrafficHours,
		Mode:                     mode,
		DistanceGeodesicKm:       input.DistanceGeodesicKm,
		DistanceRoadKm:           input.DistanceRoadKm,
		TimeHours:                input.TimeHours,
		TimeRoadNoTrafficHours:   input.TimeRoadNoTrafficHours,
		TimeRoadWithTrafficHours: input.TimeRoadWithTrafficHours,
	}
}

// TMIQuery asks for the traffic meta-index of one graph leg at a
// departure time.
type TMIQuery struct {
	Source                 *scgraph.Vertex
	Destination            *scgraph.Vertex
	RouteGeodesicDistance  float64
	RouteAverageTime       float64
	ShipmentEstimationTime time.Time
	DepartureTime          time.Time
}

// TMIManager calls the traffic service for a leg, computes the index,
// and keeps the road/rail observations of the current estimation for
// persistence. It is safe for concurrent per-path use.
type TMIManager struct {
	client       ports.TrafficService
	calculator   TMICalculator
	useService   bool
	maxTimedelta float64

	mu   sync.Mutex
	data []TMIRecord
}

func NewTMIManager(client ports.TrafficService, calculator TMICalculator, params TMIParams) *TMIManager {
	return &TMIManager{
		client:       client,
		calculator:   calculator,
		useService:   params.UseTrafficService,
		maxTimedelta: params.TrafficMaxTimedelta,
	}
}

// Reset clears the accumulated observations before a new estimation.
func (m *TMIManager) Reset() {
	m.mu.Lock()
	m.data = nil
	m.mu.Unlock()
}

// Records returns the observations accumulated since the last Reset.
func (m *TMIManager) Records() []TMIRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]TMIRecord, len(m.data))
	copy(out, m.data)
	return out
}

func (m *TMIManager) save(rec TMIRecord) {
	if rec.Mode != ports.ModeRoad && rec.Mode != ports.ModeRail {
		return
	}
	m.mu.Lock()
	m.data = append(m.data, rec)
	m.mu.Unlock()
}

// CalculateTMI resolves the leg's live traffic index. Disabled service,
// departures too far past the estimation instant, and upstream failures
// all degrade to a zero, not-computed value.
func (m *TMIManager) CalculateTMI(ctx context.Context, q TMIQuery) TMIValue {
	if !m.useService {
		return TMIValue{}
	}
	if q.DepartureTime.Sub(q.ShipmentEstimationTime).Hours() > m.maxTimedelta {
		return TMIValue{}
	}

	result, err := m.client.TrafficData(ctx, ports.TrafficRequest{
		SourceLatitude:       q.Source.Latitude,
		SourceLongitude:      q.Source.Longitude,
		DestinationLatitude:  q.Destination.Latitude,
		DestinationLongitude: q.Destination.Longitude,
		DepartureTime:        q.DepartureTime,
		Mode:                 ports.ModeRoad,
	})
	if err != nil {
		log.Printf("tmi: traffic data source=%s destination=%s err=%v", q.Source.Name, q.Destination.Name, err)
		obs.UpstreamFallbacks.WithLabelValues("traffic").Inc()
		return TMIValue{}
	}

	calc := m.calculator.Calculate(TMICalculationInput{
		DistanceGeodesicKm:       q.RouteGeodesicDistance,
		DistanceRoadKm:           result.DistanceKm,
		TimeHours:                q.RouteAverageTime,
		TimeRoadNoTrafficHours:   result.NoTrafficTravelTimeHours,
		TimeRoadWithTrafficHours: result.TravelTimeHours,
	})

	m.save(TMIRecord{
		TMICalculation:   calc,
		SourceIndex:      q.Source.Index,
		SourceID:         q.Source.ID,
		SourceName:       q.Source.Name,
		DestinationIndex: q.Destination.Index,
		DestinationID:    q.Destination.ID,
		DestinationName:  q.Destination.Name,
		Timestamp:        q.DepartureTime,
	})

	return TMIValue{Value: calc.Value, Computed: true}
}
