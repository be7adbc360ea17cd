package external

import (
	"context"
	"fmt"
	"strings"

	"shipment-forecast-service/internal/domain"
)

// MockGeoService serves canned geocoding answers for tests and local
// runs without the external backend.
type MockGeoService struct {
	m map[string]domain.Location
}

func NewMockGeoService(locations []domain.Location) *MockGeoService {
	m := make(map[string]domain.Location, len(locations))
	for _, loc := range locations {
		m[mockGeoKey(loc.City, loc.CountryCode)] = loc
	}
	return &MockGeoService{m: m}
}

func mockGeoKey(city, country string) string {
	return strings.ToUpper(normalize(city)) + "|" + strings.ToUpper(normalize(country))
}

func (s *MockGeoService) LocationData(ctx context.Context, city, country string) (domain.Location, error) {
	if loc, ok := s.m[mockGeoKey(city, country)]; ok {
		return loc, nil
	}
	// Country-less entries match any requested country.
	if loc, ok := s.m[mockGeoKey(city, "")]; ok {
		return loc, nil
	}
	return domain.Location{}, fmt.Errorf("missing location %q, %q", city, country)
}
