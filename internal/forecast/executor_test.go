package forecast

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shipment-forecast-service/internal/stats"
)

func TestExecutorEndToEnd(t *testing.T) {
	dtCalc := NewDTCalculator(noHolidayCalculator(), 0.8)
	tfstExec := newTestTFSTExecutor(t, AlphaConst{Value: 1.0}, 0)
	tdCalc := TimeDeviationCalculator{DTConfidence: 0.8, STConfidence: 0.8}
	exec := NewExecutor(dtCalc, tfstExec, tdCalc)

	tsInput, err := NewTimeSequenceInput(base, base.Add(h(6)), base.Add(h(10)))
	require.NoError(t, err)

	input := ExecutorInput{
		TimeSequence: tsInput,
		DT:           DTShipmentTimeInput{SiteID: 1, ShipmentTime: base.Add(h(6))},
		TFST: TFSTInput{
			PT: PTInput{VertexID: 1, CarrierNames: []string{"dhl"}},
			TT: stats.Sample{X: []float64{30}, Mean: 30},
		},
		TimeDeviation: TimeDeviationInput{
			DTDistribution: stats.Sample{X: []float64{10}, Mean: 10},
			STDistribution: stats.Sample{X: []float64{30}, Mean: 30},
		},
	}

	result, err := exec.Execute(context.Background(), input)
	require.NoError(t, err)

	// The shipment time is derived from the six-hour dispatch estimate.
	assert.Equal(t, base.Add(h(6)), result.TimeSequence.ShipmentTime)
	assert.Equal(t, 6.0, result.DT.TotalTime())

	// Alpha 1 puts everything on the transit time: 30h minus the four
	// hours already in transit.
	require.Equal(t, ComputeTT, result.TFST.TFST.Computed)
	assert.InDelta(t, 26.0, result.TFST.TT.Lower, 1e-9)
	assert.InDelta(t, 26.0, result.TFST.TT.Upper, 1e-9)

	assert.InDelta(t, 26.0, result.EST.Value, 1e-9)
	assert.InDelta(t, 0.0, result.CFDI.Lower, 1e-9)
	assert.InDelta(t, 0.0, result.CFDI.Upper, 1e-9)

	// Six hours dispatch + four in transit + 26 remaining.
	assert.InDelta(t, 36.0, result.EODT.Value, 1e-9)
	assert.Equal(t, base.Add(h(36)), result.EDD.Value)

	// Four hours short of the ten-hour dispatch threshold, and the
	// shipment runs level with its thirty-hour threshold.
	assert.InDelta(t, -4.0, result.TimeDeviation.DTLower, 1e-9)
	assert.InDelta(t, -4.0, result.TimeDeviation.DTUpper, 1e-9)
	assert.InDelta(t, 0.0, result.TimeDeviation.STLower, 1e-9)
	assert.InDelta(t, 0.0, result.TimeDeviation.STUpper, 1e-9)
	assert.InDelta(t, -4.0, result.TimeDeviation.TotalLower(), 1e-9)
}

func TestExecutorRejectsInconsistentDerivedShipment(t *testing.T) {
	dtCalc := NewDTCalculator(noHolidayCalculator(), 0.8)
	tfstExec := newTestTFSTExecutor(t, AlphaConst{Value: 1.0}, 0)
	exec := NewExecutor(dtCalc, tfstExec, TimeDeviationCalculator{DTConfidence: 0.8, STConfidence: 0.8})

	tsInput, err := NewTimeSequenceInput(base, base.Add(h(1)), base.Add(h(10)))
	require.NoError(t, err)

	// A derived shipment time strictly between the event and the
	// estimation instant is inconsistent.
	input := ExecutorInput{
		TimeSequence: tsInput,
		DT:           DTShipmentTimeInput{SiteID: 1, ShipmentTime: base.Add(h(5))},
		TFST: TFSTInput{
			PT: PTInput{VertexID: 1, CarrierNames: []string{"dhl"}},
			TT: stats.Sample{X: []float64{30}, Mean: 30},
		},
	}

	_, err = exec.Execute(context.Background(), input)
	assert.ErrorIs(t, err, ErrBadTimeSequence)
}
