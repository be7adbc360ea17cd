package forecast

import (
	"fmt"

	"shipment-forecast-service/internal/stats"
)

// TT is the remaining transit time estimate in hours at the given
// confidence level.
type TT struct {
	Lower      float64
	Upper      float64
	Confidence float64
}

// TTCalculator derives the remaining transit time from the historical
// shipment time distribution, subtracting the time already in transit.
type TTCalculator struct {
	Confidence float64
}

// Calculate computes the confidence interval of the shipment time
// distribution and clamps it by the hours elapsed since shipment.
func (c TTCalculator) Calculate(dist stats.Distribution, ts TimeSequence) (TT, error) {
	lower, upper, err := stats.CI(dist, c.Confidence)
	if err != nil {
		return TT{}, fmt.Errorf("tt: shipment time ci: %w", err)
	}

	elapsed := hoursBetween(ts.ShipmentTime, ts.ShipmentEstimationTime())
	remainingLower := lower - elapsed
	if remainingLower < 0 {
		remainingLower = 0
	}
	remainingUpper := upper - elapsed
	if remainingUpper < 0 {
		remainingUpper = 0
	}

	return TT{Lower: remainingLower, Upper: remainingUpper, Confidence: c.Confidence}, nil
}

// Empty is the zero transit time used when the transit weight is
// negligible.
func (c TTCalculator) Empty() TT {
	return TT{Confidence: c.Confidence}
}
