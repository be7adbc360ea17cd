package forecast

import (
	"fmt"

	"shipment-forecast-service/internal/stats"
)

// TimeDeviationInput carries the historical distributions the deviation
// thresholds are derived from.
type TimeDeviationInput struct {
	DTDistribution stats.Distribution
	STDistribution stats.Distribution
}

// TimeDeviation reports how far the dispatch and shipment estimates run
// past their historical upper-confidence thresholds. Positive values
// mean the order is late relative to history.
type TimeDeviation struct {
	DTLower float64
	DTUpper float64

	STLower float64
	STUpper float64

	DTConfidence float64
	STConfidence float64
}

// TotalLower sums the dispatch and shipment lower deviations.
func (td TimeDeviation) TotalLower() float64 { return td.DTLower + td.STLower }

// TotalUpper sums the dispatch and shipment upper deviations.
func (td TimeDeviation) TotalUpper() float64 { return td.DTUpper + td.STUpper }

// TimeDeviationCalculator compares the computed DT and TFST against the
// upper confidence bounds of the historical distributions.
type TimeDeviationCalculator struct {
	DTConfidence float64
	STConfidence float64
}

func (c TimeDeviationCalculator) Calculate(input TimeDeviationInput, dt DT, tfst TFSTCalculation, ts TimeSequence) (TimeDeviation, error) {
	_, dtThreshold, err := stats.CI(input.DTDistribution, c.DTConfidence)
	if err != nil {
		return TimeDeviation{}, fmt.Errorf("time deviation: dt ci: %w", err)
	}

	_, stThreshold, err := stats.CI(input.STDistribution, c.STConfidence)
	if err != nil {
		return TimeDeviation{}, fmt.Errorf("time deviation: st ci: %w", err)
	}

	elapsed := hoursBetween(ts.ShipmentTime, ts.ShipmentEstimationTime())

	return TimeDeviation{
		DTLower:      dt.TotalTimeLower() - dtThreshold,
		DTUpper:      dt.TotalTimeUpper() - dtThreshold,
		STLower:      (tfst.Lower + elapsed) - stThreshold,
		STUpper:      (tfst.Upper + elapsed) - stThreshold,
		DTConfidence: c.DTConfidence,
		STConfidence: c.STConfidence,
	}, nil
}
