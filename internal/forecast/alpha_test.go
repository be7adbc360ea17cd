package forecast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shipment-forecast-service/internal/stats"
)

func TestAlphaConst(t *testing.T) {
	ts := mustTimeSequence(t, base, base.Add(h(6)), base.Add(h(8)), base.Add(h(5)))

	calc := AlphaConst{Value: 0.3}
	alpha, err := calc.Calculate(AlphaInput{}, ts)
	require.NoError(t, err)

	assert.Equal(t, AlphaTypeConst, alpha.Type)
	assert.Equal(t, 0.3, alpha.Value)
}

func TestAlphaExpDispatchStage(t *testing.T) {
	ts := mustTimeSequence(t, base, base.Add(h(1)), base.Add(h(2)), base.Add(h(10)))
	require.Equal(t, StageDispatch, ts.Stage())

	calc := AlphaExp{TTWeight: 0.5}
	alpha, err := calc.Calculate(AlphaInput{STDistribution: stats.Gamma{Shape: 2, Scale: 3}}, ts)
	require.NoError(t, err)

	assert.Equal(t, 1.0, alpha.Value)
	assert.Equal(t, 1.0, alpha.Input)
	assert.Equal(t, 0.0, alpha.Tau)
}

func TestAlphaExpShipmentStage(t *testing.T) {
	// Five hours elapsed since shipment against a mean shipment time of
	// ten hours gives tau = 0.5; with weight 0.5 the exponent is 1 and
	// alpha = 1 - tau.
	ts := mustTimeSequence(t, base, base.Add(h(6)), base.Add(h(10)), base.Add(h(5)))
	require.Equal(t, StageShipment, ts.Stage())

	calc := AlphaExp{TTWeight: 0.5}
	alpha, err := calc.Calculate(AlphaInput{STDistribution: stats.Sample{X: []float64{10}, Mean: 10}}, ts)
	require.NoError(t, err)

	assert.Equal(t, 0.5, alpha.Tau)
	assert.Equal(t, 0.5, alpha.Value)
}

func TestAlphaExpZeroWeight(t *testing.T) {
	ts := mustTimeSequence(t, base, base.Add(h(6)), base.Add(h(10)), base.Add(h(5)))

	calc := AlphaExp{TTWeight: 0}
	alpha, err := calc.Calculate(AlphaInput{STDistribution: stats.Sample{X: []float64{10}, Mean: 10}}, ts)
	require.NoError(t, err)

	assert.Equal(t, 0.0, alpha.Value)
}

func TestAlphaExpSaturatedTau(t *testing.T) {
	// Elapsed time past the mean saturates tau at 1. With weight 1 the
	// exponent is 0 and the value must be 1, not NaN.
	ts := mustTimeSequence(t, base, base.Add(h(6)), base.Add(h(30)), base.Add(h(5)))

	calc := AlphaExp{TTWeight: 1}
	alpha, err := calc.Calculate(AlphaInput{STDistribution: stats.Sample{X: []float64{10}, Mean: 10}}, ts)
	require.NoError(t, err)

	assert.Equal(t, 1.0, alpha.Tau)
	assert.Equal(t, 1.0, alpha.Value)
}

func TestAlphaMarkov(t *testing.T) {
	ts := mustTimeSequence(t, base, base.Add(h(6)), base.Add(h(10)), base.Add(h(5)))

	calc := AlphaMarkov{}
	_, err := calc.Calculate(AlphaInput{}, ts)
	assert.ErrorIs(t, err, ErrMissingVertexID)

	id := 4
	_, err = calc.Calculate(AlphaInput{VertexID: &id}, ts)
	assert.ErrorIs(t, err, ErrMarkovAlphaUnsupported)
}

func TestNewAlphaCalculator(t *testing.T) {
	calc, err := NewAlphaCalculator(AlphaParams{AlphaType: AlphaTypeConst, ConstAlphaValue: 0.7})
	require.NoError(t, err)
	assert.Equal(t, AlphaConst{Value: 0.7}, calc)

	calc, err = NewAlphaCalculator(AlphaParams{AlphaType: AlphaTypeExp, ExpTTWeight: 0.4})
	require.NoError(t, err)
	assert.Equal(t, AlphaExp{TTWeight: 0.4}, calc)

	_, err = NewAlphaCalculator(AlphaParams{AlphaType: "bogus"})
	assert.Error(t, err)
}
