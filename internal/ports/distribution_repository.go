package ports

import (
	"context"

	"shipment-forecast-service/internal/stats"
)

// DistributionRepository reads the fitted historical time distributions
// backing the estimation pipeline. Each lookup prefers a fitted gamma
// row and falls back to the raw sample when none exists.
type DistributionRepository interface {
	// Historical dispatch time of a site, in hours.
	DispatchTime(ctx context.Context, siteID int) (stats.Distribution, error)
	// Historical shipment time of a site and carrier pair, in hours.
	ShipmentTime(ctx context.Context, siteID, carrierID int) (stats.Distribution, error)
	// Optimized transit weight for the exponential blend strategy.
	TTWeight(ctx context.Context, siteID, carrierID int) (float64, error)
}
