package forecast

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shipment-forecast-service/internal/stats"
)

func newTestTFSTExecutor(t *testing.T, alpha AlphaCalculator, parallelization int) *TFSTExecutor {
	t.Helper()
	pt := newTestPTCalculator(chainSCGraph(t), ptTestParams())
	tt := TTCalculator{Confidence: 0.8}
	return NewTFSTExecutor(alpha, pt, tt, parallelization, 0.01)
}

func tfstTestInput() TFSTInput {
	return TFSTInput{
		PT: PTInput{VertexID: 1, CarrierNames: []string{"dhl"}},
		TT: stats.Sample{X: []float64{30, 40, 50}, Mean: 40},
	}
}

func TestTFSTExecutorSkipsPTWhenAlphaSaturates(t *testing.T) {
	exec := newTestTFSTExecutor(t, AlphaConst{Value: 1.0}, 0)
	ts := ptTestTimeSequence(t)

	result, err := exec.Execute(context.Background(), ts, tfstTestInput())
	require.NoError(t, err)

	assert.Equal(t, ComputeTT, result.TFST.Computed)
	assert.Equal(t, 0, result.PT.NPaths)
	assert.Equal(t, 0.0, result.PT.Lower)

	// The blend collapses to the transit time.
	assert.Equal(t, result.TT.Lower, result.TFST.Lower)
	assert.Equal(t, result.TT.Upper, result.TFST.Upper)
}

func TestTFSTExecutorSkipsTTWhenAlphaVanishes(t *testing.T) {
	exec := newTestTFSTExecutor(t, AlphaConst{Value: 0.0}, 0)
	ts := ptTestTimeSequence(t)

	result, err := exec.Execute(context.Background(), ts, tfstTestInput())
	require.NoError(t, err)

	assert.Equal(t, ComputePT, result.TFST.Computed)
	assert.Equal(t, 0.0, result.TT.Lower)
	assert.Equal(t, 0.0, result.TT.Upper)
	assert.Equal(t, 0.8, result.TT.Confidence)

	assert.InDelta(t, 32.0, result.TFST.Lower, 1e-9)
	assert.InDelta(t, 32.0, result.TFST.Upper, 1e-9)
}

func TestTFSTExecutorBlendsBoth(t *testing.T) {
	for _, parallelization := range []int{0, 2} {
		exec := newTestTFSTExecutor(t, AlphaConst{Value: 0.5}, parallelization)
		ts := ptTestTimeSequence(t)

		result, err := exec.Execute(context.Background(), ts, tfstTestInput())
		require.NoError(t, err)

		assert.Equal(t, ComputeAll, result.TFST.Computed)
		assert.Equal(t, 1, result.PT.NPaths)

		expectedLower := 0.5*result.PT.Lower + 0.5*result.TT.Lower
		expectedUpper := 0.5*result.PT.Upper + 0.5*result.TT.Upper
		assert.InDelta(t, expectedLower, result.TFST.Lower, 1e-9)
		assert.InDelta(t, expectedUpper, result.TFST.Upper, 1e-9)
		assert.Equal(t, 0.01, result.TFST.Tolerance)
	}
}

func TestTFSTExecutorAlphaError(t *testing.T) {
	exec := newTestTFSTExecutor(t, AlphaMarkov{}, 0)
	ts := ptTestTimeSequence(t)

	_, err := exec.Execute(context.Background(), ts, tfstTestInput())
	assert.ErrorIs(t, err, ErrMissingVertexID)
}
