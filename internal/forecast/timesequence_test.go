package forecast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, time.March, 2, 8, 0, 0, 0, time.UTC)

func h(hours float64) time.Duration {
	return time.Duration(hours * float64(time.Hour))
}

func mustTimeSequence(t *testing.T, order, event, estimation, shipment time.Time) TimeSequence {
	t.Helper()
	input, err := NewTimeSequenceInput(order, event, estimation)
	require.NoError(t, err)
	ts, err := NewTimeSequence(input, shipment)
	require.NoError(t, err)
	return ts
}

func TestTimeSequenceInputOrdering(t *testing.T) {
	_, err := NewTimeSequenceInput(base, base.Add(h(2)), base.Add(h(5)))
	require.NoError(t, err)

	// Equal timestamps are allowed.
	_, err = NewTimeSequenceInput(base, base, base)
	require.NoError(t, err)
}

func TestTimeSequenceInputRejectsBadOrdering(t *testing.T) {
	// Estimation before event.
	_, err := NewTimeSequenceInput(base, base.Add(h(5)), base.Add(h(4)))
	assert.ErrorIs(t, err, ErrBadTimeSequence)

	// Event before order.
	_, err = NewTimeSequenceInput(base, base.Add(-h(1)), base.Add(h(1)))
	assert.ErrorIs(t, err, ErrBadTimeSequence)
}

func TestTimeSequenceRejectsShipmentBeforeOrder(t *testing.T) {
	input, err := NewTimeSequenceInput(base, base.Add(h(1)), base.Add(h(2)))
	require.NoError(t, err)

	_, err = NewTimeSequence(input, base.Add(-h(1)))
	assert.ErrorIs(t, err, ErrBadTimeSequence)
}

func TestTimeSequenceRejectsShipmentBetweenEventAndEstimation(t *testing.T) {
	input, err := NewTimeSequenceInput(base, base.Add(h(1)), base.Add(h(5)))
	require.NoError(t, err)

	_, err = NewTimeSequence(input, base.Add(h(3)))
	assert.ErrorIs(t, err, ErrBadTimeSequence)
}

func TestTimeSequenceStage(t *testing.T) {
	// Estimation before shipment: still dispatching.
	ts := mustTimeSequence(t, base, base.Add(h(1)), base.Add(h(2)), base.Add(h(10)))
	assert.Equal(t, StageDispatch, ts.Stage())

	// Estimation at or after shipment: in transit.
	ts = mustTimeSequence(t, base, base.Add(h(6)), base.Add(h(8)), base.Add(h(5)))
	assert.Equal(t, StageShipment, ts.Stage())
}

func TestTimeSequenceClampedAccessors(t *testing.T) {
	ts := mustTimeSequence(t, base, base.Add(h(1)), base.Add(h(2)), base.Add(h(10)))
	assert.Equal(t, base.Add(h(10)), ts.ShipmentEventTime())
	assert.Equal(t, base.Add(h(10)), ts.ShipmentEstimationTime())

	ts = mustTimeSequence(t, base, base.Add(h(6)), base.Add(h(8)), base.Add(h(5)))
	assert.Equal(t, base.Add(h(6)), ts.ShipmentEventTime())
	assert.Equal(t, base.Add(h(8)), ts.ShipmentEstimationTime())
}
