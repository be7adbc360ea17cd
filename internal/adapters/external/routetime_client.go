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

// RouteTimeClient queries the route-time regression model with a batch
// of legs and returns the predicted travel times.
type RouteTimeClient struct {
	restClient
}

func NewRouteTimeClient(baseURL, apiKey string) (*RouteTimeClient, error) {
	base, err := newRESTClient(baseURL, apiKey)
	if err != nil {
		return nil, fmt.Errorf("route time client: %w", err)
	}
	return &RouteTimeClient{restClient: base}, nil
}

type routeTimeLeg struct {
	SourceLatitude       float64 `json:"sourceLatitude"`
	SourceLongitude      float64 `json:"sourceLongitude"`
	DestinationLatitude  float64 `json:"destinationLatitude"`
	DestinationLongitude float64 `json:"destinationLongitude"`
	DistanceKm           float64 `json:"distanceKm"`
	TMI                  float64 `json:"tmi"`
	AvgTMI               float64 `json:"avgTmi"`
	WMI                  float64 `json:"wmi"`
	AvgWMI               float64 `json:"avgWmi"`
	AvgOTI               float64 `json:"avgOti"`
}

type routeTimeResponse struct {
	TimesHours []*float64 `json:"timesHours"`
}

// EstimateRouteTimes predicts travel times for the batch, in request
// order. A null prediction for any leg fails the whole batch; the
// caller falls back to historical averages.
func (c *RouteTimeClient) EstimateRouteTimes(ctx context.Context, queries []ports.RouteTimeQuery) (_ []float64, err error) {
	defer obs.Time(ctx, "routetime.EstimateRouteTimes")(&err)

	if len(queries) == 0 {
		return []float64{}, nil
	}

	legs := make([]routeTimeLeg, 0, len(queries))
	for _, q := range queries {
		legs = append(legs, routeTimeLeg{
			SourceLatitude:       q.SourceLatitude,
			SourceLongitude:      q.SourceLongitude,
			DestinationLatitude:  q.DestinationLatitude,
			DestinationLongitude: q.DestinationLongitude,
			DistanceKm:           q.DistanceKm,
			TMI:                  q.TMI,
			AvgTMI:               q.AvgTMI,
			WMI:                  q.WMI,
			AvgWMI:               q.AvgWMI,
			AvgOTI:               q.AvgOTI,
		})
	}

	payload, err := json.Marshal(map[string][]routeTimeLeg{"legs": legs})
	if err != nil {
		return nil, fmt.Errorf("route time: marshal request: %w", err)
	}

	endpoint := c.baseURL + "/predict"
	resp, err := c.doWithRetry(ctx, func() (*http.Request, error) {
		return c.newRequest(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	})
	if err != nil {
		return nil, fmt.Errorf("route time: request failed: %w", err)
	}
	defer resp.Body.Close()

	var decoded routeTimeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("route time: decode response: %w", err)
	}

	out := make([]float64, 0, len(decoded.TimesHours))
	for i, t := range decoded.TimesHours {
		if t == nil {
			return nil, fmt.Errorf("route time: model returned no prediction for leg %d", i)
		}
		out = append(out, *t)
	}

	return out, nil
}
