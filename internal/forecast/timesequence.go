// Package forecast implements the delivery forecast pipeline: dispatch
// and transit time estimates blended into a shipment forecast (TFST)
// and the derived delivery indicators (EST, EODT, EDD, CFDI).
package forecast

import (
	"errors"
	"fmt"
	"time"
)

// EstimationStage tells which phase of the order lifecycle an
// estimation lands in. DELIVERY is declared for completeness but never
// derived from a time sequence.
type EstimationStage string

const (
	StageDispatch EstimationStage = "dispatch"
	StageShipment EstimationStage = "shipment"
	StageDelivery EstimationStage = "delivery"
)

// Signals a time sequence whose timestamps violate the ordering rules.
var ErrBadTimeSequence = errors.New("forecast: invalid time sequence")

// TimeSequenceInput holds the externally observed timestamps of an
// estimation request, before the shipment time is known or derived.
type TimeSequenceInput struct {
	OrderTime      time.Time
	EventTime      time.Time
	EstimationTime time.Time
}

// NewTimeSequenceInput validates estimation >= event >= order.
func NewTimeSequenceInput(orderTime, eventTime, estimationTime time.Time) (TimeSequenceInput, error) {
	if estimationTime.Before(eventTime) {
		return TimeSequenceInput{}, fmt.Errorf("%w: estimation time %s precedes event time %s",
			ErrBadTimeSequence, estimationTime.Format(time.RFC3339), eventTime.Format(time.RFC3339))
	}
	if eventTime.Before(orderTime) {
		return TimeSequenceInput{}, fmt.Errorf("%w: event time %s precedes order time %s",
			ErrBadTimeSequence, eventTime.Format(time.RFC3339), orderTime.Format(time.RFC3339))
	}
	return TimeSequenceInput{
		OrderTime:      orderTime,
		EventTime:      eventTime,
		EstimationTime: estimationTime,
	}, nil
}

// TimeSequence is a validated input sequence extended with the shipment
// time (observed or derived from the dispatch estimate).
type TimeSequence struct {
	TimeSequenceInput
	ShipmentTime time.Time
}

// NewTimeSequence validates the full ordering: the shipment may not
// precede the order, and may not fall strictly between the last event
// and the estimation instant.
func NewTimeSequence(input TimeSequenceInput, shipmentTime time.Time) (TimeSequence, error) {
	if shipmentTime.Before(input.OrderTime) {
		return TimeSequence{}, fmt.Errorf("%w: shipment time %s precedes order time %s",
			ErrBadTimeSequence, shipmentTime.Format(time.RFC3339), input.OrderTime.Format(time.RFC3339))
	}
	if input.EventTime.Before(shipmentTime) && shipmentTime.Before(input.EstimationTime) {
		return TimeSequence{}, fmt.Errorf("%w: shipment time %s falls between event time %s and estimation time %s",
			ErrBadTimeSequence, shipmentTime.Format(time.RFC3339),
			input.EventTime.Format(time.RFC3339), input.EstimationTime.Format(time.RFC3339))
	}
	return TimeSequence{TimeSequenceInput: input, ShipmentTime: shipmentTime}, nil
}

// Stage reports the estimation stage: DISPATCH while the estimation
// instant precedes the shipment, SHIPMENT afterwards.
func (ts TimeSequence) Stage() EstimationStage {
	if ts.EstimationTime.Before(ts.ShipmentTime) {
		return StageDispatch
	}
	return StageShipment
}

// ShipmentEventTime is the last event instant clamped to the shipment
// start.
func (ts TimeSequence) ShipmentEventTime() time.Time {
	if ts.EventTime.After(ts.ShipmentTime) {
		return ts.EventTime
	}
	return ts.ShipmentTime
}

// ShipmentEstimationTime is the estimation instant clamped to the
// shipment start.
func (ts TimeSequence) ShipmentEstimationTime() time.Time {
	if ts.EstimationTime.After(ts.ShipmentTime) {
		return ts.EstimationTime
	}
	return ts.ShipmentTime
}

func hoursBetween(from, to time.Time) float64 {
	return to.Sub(from).Hours()
}
