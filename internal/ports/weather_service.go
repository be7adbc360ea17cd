package ports

import (
	"context"
	"time"
)

// WeatherRequest asks for weather conditions at a waypoint and time.
type WeatherRequest struct {
	Latitude  float64
	Longitude float64
	Timestamp time.Time
}

// WeatherResult carries the observed or forecast conditions for one
// waypoint. WeatherCodes is a comma-separated list of condition codes.
// Failed marks a per-waypoint lookup failure; the remaining fields are
// meaningless when it is set.
type WeatherResult struct {
	WeatherCodes       string
	TemperatureCelsius float64
	Humidity           float64
	WindSpeedKmh       float64
	VisibilityKm       float64
	Failed             bool
}

// WeatherService provides weather data for a batch of waypoints. The
// response has the same cardinality and order as the request; partial
// failures are flagged per item via WeatherResult.Failed.
type WeatherService interface {
	WeatherData(ctx context.Context, reqs []WeatherRequest) ([]WeatherResult, error)
}
