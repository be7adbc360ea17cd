package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Event type discriminators carried in the envelope.
const (
	TypeTrackingUpdate  = "TRACKING_UPDATE"
	TypeDisruptionEvent = "DISRUPTION_EVENT"
)

// Order event subtypes, in lifecycle order.
const (
	OrderCreation   = "ORDER_CREATION"
	CarrierCreation = "CARRIER_CREATION"
	CarrierUpdate   = "CARRIER_UPDATE"
	CarrierDelivery = "CARRIER_DELIVERY"
)

var ErrUnknownEventType = errors.New("events: unknown event type")

// Envelope is the outer frame of every inbound event. Data stays raw
// until the type discriminator selects the payload shape.
type Envelope struct {
	EventType string          `json:"eventType"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// OrderEventData is the payload of a TRACKING_UPDATE. The three slices
// are parallel: one new tracking step per index.
type OrderEventData struct {
	Type              string   `json:"type"`
	OrderID           int      `json:"orderId"`
	TrackingNumber    string   `json:"trackingNumber"`
	EventTimestamps   []string `json:"eventTimestamps"`
	OrderNewStepsIDs  []int    `json:"orderNewStepsIds"`
	OrderNewLocations []string `json:"orderNewLocations"`
}

// DisruptionLocation is the epicenter of a reported disruption.
type DisruptionLocation struct {
	Name        string    `json:"name"`
	Coordinates []float64 `json:"coordinates"`
	RadiusKm    float64   `json:"radiusKm"`
}

// Disruption describes the external incident itself. Measurements is a
// free-form metric map; the severity key feeds the outbound message.
type Disruption struct {
	DisruptionType     string             `json:"disruptionType"`
	DisruptionLocation DisruptionLocation `json:"disruptionLocation"`
	Measurements       map[string]float64 `json:"measurements"`
}

// AffectedOrderSummary lists the impacted orders; the slices are
// parallel by index.
type AffectedOrderSummary struct {
	OrderIDs  []int    `json:"orderIds"`
	Statuses  []string `json:"statuses"`
	Locations []string `json:"locations"`
}

// AffectedOrders wraps the summary with the reported total.
type AffectedOrders struct {
	Total   int                  `json:"total"`
	Summary AffectedOrderSummary `json:"summary"`
}

// DisruptionEventData is the payload of a DISRUPTION_EVENT.
type DisruptionEventData struct {
	EventTimestamp string         `json:"eventTimestamp"`
	Disruption     Disruption     `json:"disruption"`
	AffectedOrders AffectedOrders `json:"affectedOrders"`
}

// ParseEnvelope decodes the outer frame of a raw event body.
func ParseEnvelope(payload []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return Envelope{}, fmt.Errorf("parse envelope: %w", err)
	}
	switch env.EventType {
	case TypeTrackingUpdate, TypeDisruptionEvent:
		return env, nil
	default:
		return Envelope{}, fmt.Errorf("parse envelope: %w: %q", ErrUnknownEventType, env.EventType)
	}
}
