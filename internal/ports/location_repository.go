package ports

import (
	"context"

	"shipment-forecast-service/internal/domain"
)

// LocationRepository caches resolved locations so repeated vertex
// resolutions skip the external geocoding call. FindByCity returns
// (zero, false, nil) on a miss or when the city is ambiguous.
type LocationRepository interface {
	FindByCity(ctx context.Context, city, countryCode string) (domain.Location, bool, error)
	FindByName(ctx context.Context, name string) (domain.Location, bool, error)
	Save(ctx context.Context, loc domain.Location) (domain.Location, error)
}
