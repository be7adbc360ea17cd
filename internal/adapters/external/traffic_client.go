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

// TrafficClient fetches live traffic conditions for a route leg from
// the traffic backend.
type TrafficClient struct {
	restClient
}

func NewTrafficClient(baseURL, apiKey string) (*TrafficClient, error) {
	base, err := newRESTClient(baseURL, apiKey)
	if err != nil {
		return nil, fmt.Errorf("traffic client: %w", err)
	}
	return &TrafficClient{restClient: base}, nil
}

type trafficRequestBody struct {
	Origin        []float64 `json:"origin"`
	Destination   []float64 `json:"destination"`
	DepartureTime string    `json:"departureTime"`
	Mode          string    `json:"mode"`
}

type trafficResponseBody struct {
	DistanceKm               float64 `json:"distanceKm"`
	TravelTimeHours          float64 `json:"travelTimeHours"`
	NoTrafficTravelTimeHours float64 `json:"noTrafficTravelTimeHours"`
	TrafficDelayHours        float64 `json:"trafficDelayHours"`
}

// TrafficData returns the live and free-flow travel times for one leg.
func (c *TrafficClient) TrafficData(ctx context.Context, req ports.TrafficRequest) (_ ports.TrafficResult, err error) {
	defer obs.Time(ctx, "traffic.TrafficData")(&err)

	bodyObj := trafficRequestBody{
		Origin:        []float64{req.SourceLongitude, req.SourceLatitude},
		Destination:   []float64{req.DestinationLongitude, req.DestinationLatitude},
		DepartureTime: req.DepartureTime.UTC().Format("2006-01-02T15:04:05Z07:00"),
		Mode:          string(req.Mode),
	}

	payload, err := json.Marshal(bodyObj)
	if err != nil {
		return ports.TrafficResult{}, fmt.Errorf("traffic: marshal request: %w", err)
	}

	endpoint := c.baseURL + "/traffic/route"
	resp, err := c.doWithRetry(ctx, func() (*http.Request, error) {
		return c.newRequest(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	})
	if err != nil {
		return ports.TrafficResult{}, fmt.Errorf("traffic: request failed: %w", err)
	}
	defer resp.Body.Close()

	var decoded trafficResponseBody
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return ports.TrafficResult{}, fmt.Errorf("traffic: decode response: %w", err)
	}

	if decoded.NoTrafficTravelTimeHours <= 0 {
		return ports.TrafficResult{}, fmt.Errorf("traffic: invalid free-flow time %.4f", decoded.NoTrafficTravelTimeHours)
	}

	return ports.TrafficResult{
		DistanceKm:               decoded.DistanceKm,
		TravelTimeHours:          decoded.TravelTimeHours,
		NoTrafficTravelTimeHours: decoded.NoTrafficTravelTimeHours,
		TrafficDelayHours:        decoded.TrafficDelayHours,
	}, nil
}
