package external

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"shipment-forecast-service/internal/domain"
	"shipment-forecast-service/internal/platform/obs"
)

// GeoClient resolves place names through the geocoding backend
// (/geocode/search) and returns the unified location record vertex
// resolution keys on.
type GeoClient struct {
	restClient
}

func NewGeoClient(baseURL, apiKey string) (*GeoClient, error) {
	base, err := newRESTClient(baseURL, apiKey)
	if err != nil {
		return nil, fmt.Errorf("geo client: %w", err)
	}
	return &GeoClient{restClient: base}, nil
}

type geocodeResponse struct {
	Features []struct {
		Properties struct {
			Label       string `json:"label"`
			Locality    string `json:"locality"`
			Region      string `json:"region"`
			CountryCode string `json:"country_a"`
		} `json:"properties"`
		Geometry struct {
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"features"`
}

// LocationData resolves a city (and optional country) to a canonical
// location. Calls may be retried via doWithRetry.
func (c *GeoClient) LocationData(ctx context.Context, city, country string) (_ domain.Location, err error) {
	defer obs.Time(ctx, "geo.LocationData")(&err)

	city = normalize(city)
	if city == "" {
		return domain.Location{}, fmt.Errorf("geocode: city must be non-empty")
	}

	text := city
	if country = normalize(country); country != "" {
		text = city + ", " + country
	}

	endpoint := c.baseURL + "/geocode/search"
	resp, err := c.doWithRetry(ctx, func() (*http.Request, error) {
		req, err := c.newRequest(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		q := req.URL.Query()
		q.Set("text", text)
		q.Set("size", "1")
		req.URL.RawQuery = q.Encode()
		return req, nil
	})
	if err != nil {
		return domain.Location{}, fmt.Errorf("geocode %q: execute request: %w", text, err)
	}
	defer resp.Body.Close()

	var decoded geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return domain.Location{}, fmt.Errorf("geocode %q: decode response: %w", text, err)
	}

	if len(decoded.Features) == 0 {
		return domain.Location{}, fmt.Errorf("geocode: no results for %q", text)
	}

	feature := decoded.Features[0]
	coords := feature.Geometry.Coordinates
	if len(coords) != 2 {
		return domain.Location{}, fmt.Errorf("geocode: invalid coordinate format for %q", text)
	}

	props := feature.Properties
	locality := props.Locality
	if locality == "" {
		locality = city
	}

	return domain.Location{
		Name:        unifiedName(locality, props.Region, props.CountryCode),
		City:        locality,
		State:       props.Region,
		CountryCode: props.CountryCode,
		Coordinates: domain.Coordinates{Lon: coords[0], Lat: coords[1]},
	}, nil
}

// unifiedName joins the non-empty place parts into the canonical
// "City, State, CC" form graph vertices are named with.
func unifiedName(city, state, countryCode string) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{city, state, countryCode} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}
