package forecast

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shipment-forecast-service/internal/ports"
)

type fakeRouteTimeModel struct {
	times []float64
	err   error
	calls int
}

func (f *fakeRouteTimeModel) EstimateRouteTimes(ctx context.Context, queries []ports.RouteTimeQuery) ([]float64, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.times != nil {
		return f.times, nil
	}
	out := make([]float64, len(queries))
	for i, q := range queries {
		out[i] = q.AvgOTI * 2
	}
	return out, nil
}

func modelInput(avgOTI float64, withExtData bool) RouteTimeInput {
	input := RouteTimeInput{DistanceKm: 100, AvgOTI: avgOTI}
	if withExtData {
		input.TMI = TMIValue{Value: 0.2, Computed: true}
		input.WMI = WMIValue{Value: 0.5, Computed: true}
	}
	return input
}

func TestRouteTimeEstimatorModelDisabled(t *testing.T) {
	model := &fakeRouteTimeModel{}
	estimator := NewRouteTimeEstimator(model, false)

	predictions := estimator.Predict(context.Background(), []RouteTimeInput{
		modelInput(10, true),
		modelInput(20, true),
	})

	assert.Equal(t, []float64{10, 20}, predictions)
	assert.Zero(t, model.calls)
}

func TestRouteTimeEstimatorMixedBatch(t *testing.T) {
	model := &fakeRouteTimeModel{}
	estimator := NewRouteTimeEstimator(model, true)

	// Legs without live traffic or weather data stay on the historical
	// average; only the rest go through the model.
	predictions := estimator.Predict(context.Background(), []RouteTimeInput{
		modelInput(10, false),
		modelInput(20, true),
		modelInput(30, true),
	})

	assert.Equal(t, []float64{10, 40, 60}, predictions)
	assert.Equal(t, 1, model.calls)
}

func TestRouteTimeEstimatorModelError(t *testing.T) {
	model := &fakeRouteTimeModel{err: errors.New("model unavailable")}
	estimator := NewRouteTimeEstimator(model, true)

	predictions := estimator.Predict(context.Background(), []RouteTimeInput{
		modelInput(10, true),
		modelInput(20, true),
	})

	assert.Equal(t, []float64{10, 20}, predictions)
}

func TestRouteTimeEstimatorLengthMismatch(t *testing.T) {
	model := &fakeRouteTimeModel{times: []float64{1}}
	estimator := NewRouteTimeEstimator(model, true)

	predictions := estimator.Predict(context.Background(), []RouteTimeInput{
		modelInput(10, true),
		modelInput(20, true),
	})

	assert.Equal(t, []float64{10, 20}, predictions)
}

func TestRouteTimeCalculatorBounds(t *testing.T) {
	calc := NewRouteTimeCalculator(NewRouteTimeEstimator(nil, false), 0.1)

	rt := calc.Calculate(context.Background(), modelInput(10, false), 0.95)
	require.InDelta(t, 10*(1-0.095), rt.Lower, 1e-12)
	require.InDelta(t, 10*(1+0.095), rt.Upper, 1e-12)
}
