package ports

import (
	"context"

	"shipment-forecast-service/internal/domain"
)

// GeoService resolves a city (and optional country) to a canonical
// location through the external geocoding backend.
type GeoService interface {
	// Return the unified location record for the given place.
	LocationData(ctx context.Context, city, country string) (domain.Location, error)
}
