package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"shipment-forecast-service/internal/platform/obs"
	"shipment-forecast-service/internal/ports"
)

// WeatherClient fetches weather conditions for a batch of route
// waypoints from the weather backend.
type WeatherClient struct {
	restClient
}

func NewWeatherClient(baseURL, apiKey string) (*WeatherClient, error) {
	base, err := newRESTClient(baseURL, apiKey)
	if err != nil {
		return nil, fmt.Errorf("weather client: %w", err)
	}
	return &WeatherClient{restClient: base}, nil
}

type weatherRequestBody struct {
	Points []weatherPoint `json:"points"`
}

type weatherPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timestamp string  `json:"timestamp"`
}

type weatherResponseBody struct {
	Results []struct {
		WeatherCodes       string  `json:"weatherCodes"`
		TemperatureCelsius float64 `json:"temperatureCelsius"`
		Humidity           float64 `json:"humidity"`
		WindSpeedKmh       float64 `json:"windSpeedKmh"`
		VisibilityKm       float64 `json:"visibilityKm"`
		Failed             bool    `json:"failed"`
	} `json:"results"`
}

// WeatherData returns conditions for each waypoint in request order.
// Per-waypoint failures come back flagged rather than failing the
// whole batch.
func (c *WeatherClient) WeatherData(ctx context.Context, reqs []ports.WeatherRequest) (_ []ports.WeatherResult, err error) {
	defer obs.Time(ctx, "weather.WeatherData")(&err)

	if len(reqs) == 0 {
		return []ports.WeatherResult{}, nil
	}

	points := make([]weatherPoint, 0, len(reqs))
	for _, r := range reqs {
		points = append(points, weatherPoint{
			Latitude:  r.Latitude,
			Longitude: r.Longitude,
			Timestamp: r.Timestamp.UTC().Format("2006-01-02T15:04:05Z07:00"),
		})
	}

	payload, err := json.Marshal(weatherRequestBody{Points: points})
	if err != nil {
		return nil, fmt.Errorf("weather: marshal request: %w", err)
	}

	endpoint := c.baseURL + "/weather/batch"
	resp, err := c.doWithRetry(ctx, func() (*http.Request, error) {
		return c.newRequest(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	})
	if err != nil {
		return nil, fmt.Errorf("weather: request failed: %w", err)
	}
	defer resp.Body.Close()

	var decoded weatherResponseBody
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("weather: decode response: %w", err)
	}

	if len(decoded.Results) != len(reqs) {
		return nil, fmt.Errorf("weather: expected %d results, got %d", len(reqs), len(decoded.Results))
	}

	out := make([]ports.WeatherResult, 0, len(decoded.Results))
	for _, r := range decoded.Results {
		out = append(out, ports.WeatherResult{
			WeatherCodes:       r.WeatherCodes,
			TemperatureCelsius: r.TemperatureCelsius,
			Humidity:           r.Humidity,
			WindSpeedKmh:       r.WindSpeedKmh,
			VisibilityKm:       r.VisibilityKm,
			Failed:             r.Failed,
		})
	}

	return out, nil
}
