package forecast

import (
	"context"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"shipment-forecast-service/internal/geo"
	"shipment-forecast-service/internal/platform/obs"
	"shipment-forecast-service/internal/ports"
	"shipment-forecast-service/internal/scgraph"
)

// WMIValue is the weather meta-index applied to one leg. Computed is
// false when the service was skipped or unavailable.
type WMIValue struct {
	Value    float64
	Computed bool
}

// WMIBy tells which factor produced the final weather index.
type WMIBy string

const (
	ByNone             WMIBy = "none"
	ByWeatherCondition WMIBy = "weather_condition"
	ByTemperature      WMIBy = "temperature"
)

// WMICalculationInput aggregates the conditions observed along a leg's
// waypoints.
type WMICalculationInput struct {
	WeatherCodes []string
	Temperatures []float64
}

// WMICalculation is the computed weather meta-index with the worst
// condition and temperature that drove it.
type WMICalculation struct {
	Value              float64
	WeatherCode        string
	WeatherDescription string
	TemperatureCelsius float64
	By                 WMIBy
}

// WMIRecord is a stored weather observation for one graph leg.
type WMIRecord struct {
	WMICalculation
	SourceIndex          int
	SourceID             int
	SourceName           string
	DestinationIndex     int
	DestinationID        int
	DestinationName      string
	Timestamp            time.Time
	NInterpolationPoints int
	StepDistanceKm       float64
}

// WMICalculator scores weather conditions and temperatures and keeps
// the worse of the two as the leg's index.
type WMICalculator struct {
	scores       map[string]float64
	descriptions map[string]string
	tempScore    func(float64) float64
}

func NewWMICalculator() *WMICalculator {
	return &WMICalculator{
		scores:       weatherScores,
		descriptions: weatherDescriptions,
		tempScore:    temperatureScore,
	}
}

func (c *WMICalculator) maxScoreCondition(codes []string) (score float64, code, description string) {
	maxScore := -1.0
	for _, candidate := range codes {
		s, ok := c.scores[candidate]
		if !ok {
			log.Printf("wmi: unknown weather code=%s", candidate)
			continue
		}
		if s > maxScore {
			maxScore = s
			code = candidate
			description = c.descriptions[candidate]
		}
	}
	if maxScore < 0 {
		return 0, "", ""
	}
	return maxScore, code, description
}

func (c *WMICalculator) maxTempScore(temperatures []float64) (score, temperature float64) {
	maxScore := -1.0
	for _, t := range temperatures {
		if s := c.tempScore(t); s > maxScore {
			maxScore = s
			temperature = t
		}
	}
	if maxScore < 0 {
		return 0, 0
	}
	return maxScore, temperature
}

// Calculate keeps the worse of the worst condition score and the worst
// temperature score.
func (c *WMICalculator) Calculate(input WMICalculationInput) WMICalculation {
	weatherScore, code, description := c.maxScoreCondition(input.WeatherCodes)
	tempScore, temperature := c.maxTempScore(input.Temperatures)

	by := ByTemperature
	value := tempScore
	if weatherScore > tempScore {
		by = ByWeatherCondition
		value = weatherScore
	}

	return WMICalculation{
		Value:              value,
		WeatherCode:        code,
		WeatherDescription: description,
		TemperatureCelsius: temperature,
		By:                 by,
	}
}

// WMIQuery asks for the weather meta-index of one graph leg at a
// departure time.
type WMIQuery struct {
	Source                 *scgraph.Vertex
	Destination            *scgraph.Vertex
	RouteAverageTime       float64
	ShipmentEstimationTime time.Time
	DepartureTime          time.Time
}

// WMIManager samples the weather along interpolated waypoints of a leg
// and aggregates the conditions into a single index. It is safe for
// concurrent per-path use.
type WMIManager struct {
	client     ports.WeatherService
	calculator *WMICalculator
	params     WMIParams

	mu   sync.Mutex
	data []WMIRecord
}

func NewWMIManager(client ports.WeatherService, calculator *WMICalculator, params WMIParams) *WMIManager {
	return &WMIManager{client: client, calculator: calculator, params: params}
}

// Reset clears the accumulated observations before a new estimation.
func (m *WMIManager) Reset() {
	m.mu.Lock()
	m.data = nil
	m.mu.Unlock()
}

// Records returns the observations accumulated since the last Reset.
func (m *WMIManager) Records() []WMIRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]WMIRecord, len(m.data))
	copy(out, m.data)
	return out
}

// interpolateRoute lays equidistant waypoints along the great-circle
// route, including both endpoints. The step shrinks when the nominal
// step would exceed the waypoint cap.
func (m *WMIManager) interpolateRoute(from, to geo.Coordinates) (waypoints []geo.Coordinates, stepKm, totalKm float64) {
	stepKm = m.params.StepDistanceKm
	totalKm = geo.Distance(from, to)

	nPoints := int(totalKm / stepKm)
	if nPoints+2 > m.params.MaxPoints {
		nPoints = m.params.MaxPoints - 2
		stepKm = totalKm / float64(nPoints+1)
	}

	bearing := geo.Bearing(from, to)

	waypoints = make([]geo.Coordinates, 0, nPoints+2)
	waypoints = append(waypoints, from)
	for i := 1; i <= nPoints; i++ {
		waypoints = append(waypoints, geo.Move(from, float64(i)*stepKm, bearing))
	}
	waypoints = append(waypoints, to)

	return waypoints, stepKm, totalKm
}

// CalculateWMI samples the weather along the leg. Disabled service,
// non-positive average times, departures too far past the estimation
// instant, and upstream failures all degrade to a zero, not-computed
// value.
func (m *WMIManager) CalculateWMI(ctx context.Context, q WMIQuery) WMIValue {
	if !m.params.UseWeatherService {
		return WMIValue{}
	}
	if q.RouteAverageTime <= 0 {
		log.Printf("wmi: non-positive route average time hours=%f", q.RouteAverageTime)
		return WMIValue{}
	}
	if q.DepartureTime.Sub(q.ShipmentEstimationTime).Hours() > m.params.WeatherMaxTimedelta {
		return WMIValue{}
	}

	from := geo.Coordinates{Lat: q.Source.Latitude, Lon: q.Source.Longitude}
	to := geo.Coordinates{Lat: q.Destination.Latitude, Lon: q.Destination.Longitude}
	waypoints, stepKm, totalKm := m.interpolateRoute(from, to)

	averageSpeedKmh := totalKm / q.RouteAverageTime

	reqs := make([]ports.WeatherRequest, 0, len(waypoints))
	at := q.DepartureTime
	for _, wp := range waypoints {
		reqs = append(reqs, ports.WeatherRequest{Latitude: wp.Lat, Longitude: wp.Lon, Timestamp: at})
		at = at.Add(time.Duration(stepKm / averageSpeedKmh * float64(time.Hour)))
	}

	results, err := m.client.WeatherData(ctx, reqs)
	if err != nil {
		log.Printf("wmi: weather data source=%s destination=%s err=%v", q.Source.Name, q.Destination.Name, err)
		obs.UpstreamFallbacks.WithLabelValues("weather").Inc()
		return WMIValue{}
	}

	codeSet := make(map[string]struct{})
	temperatures := make([]float64, 0, len(results))
	for _, result := range results {
		if result.Failed {
			continue
		}
		for _, code := range strings.Split(result.WeatherCodes, ",") {
			code = strings.TrimSpace(code)
			if code != "" {
				codeSet[code] = struct{}{}
			}
		}
		temperatures = append(temperatures, result.TemperatureCelsius)
	}
	if len(temperatures) == 0 {
		log.Printf("wmi: no valid weather data source=%s destination=%s", q.Source.Name, q.Destination.Name)
		return WMIValue{}
	}

	codes := make([]string, 0, len(codeSet))
	for code := range codeSet {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	calc := m.calculator.Calculate(WMICalculationInput{WeatherCodes: codes, Temperatures: temperatures})

	m.mu.Lock()
	m.data = append(m.data, WMIRecord{
		WMICalculation:       calc,
		SourceIndex:          q.Source.Index,
		SourceID:             q.Source.ID,
		SourceName:           q.Source.Name,
		DestinationIndex:     q.Destination.Index,
		DestinationID:        q.Destination.ID,
		DestinationName:      q.Destination.Name,
		Timestamp:            q.DepartureTime,
		NInterpolationPoints: len(waypoints),
		StepDistanceKm:       stepKm,
	})
	m.mu.Unlock()

	return WMIValue{Value: calc.Value, Computed: true}
}
