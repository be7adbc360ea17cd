package domain

import "time"

// Estimation is one persisted forecast run for an order at a vertex.
// Hours fields are durations in hours; EDD is the projected delivery
// timestamp. The deviation fields report how far the dispatch and
// shipment estimates run past their historical thresholds.
type Estimation struct {
	ID       int
	OrderID  int
	VertexID int
	Status   OrderStatus

	OrderTime      time.Time
	ShipmentTime   time.Time
	EventTime      time.Time
	EstimationTime time.Time

	Stage string

	AlphaType  string
	AlphaInput float64
	AlphaValue float64
	TTWeight   float64
	Tau        float64

	DTLowerHours float64
	DTHours      float64
	DTUpperHours float64

	PTLowerHours float64
	PTUpperHours float64
	PTNPaths     int
	AvgTMI       float64
	AvgWMI       float64

	TTLowerHours float64
	TTUpperHours float64
	TTConfidence float64

	TFSTLowerHours float64
	TFSTUpperHours float64

	ESTHours  float64
	CFDILower float64
	CFDIUpper float64
	EODTHours float64
	EDD       time.Time

	DTDeviationLower float64
	DTDeviationUpper float64
	STDeviationLower float64
	STDeviationUpper float64
	DTConfidence     float64
	STConfidence     float64

	Traffic []TrafficObservation
	Weather []WeatherObservation
}

// TrafficObservation is a stored traffic index sample for one leg of a
// candidate path.
type TrafficObservation struct {
	SourceID        int
	SourceName      string
	DestinationID   int
	DestinationName string
	Mode            string
	Value           float64
	DistanceKm      float64
	RoadDistanceKm  float64
	NoTrafficHours  float64
	TrafficHours    float64
	Timestamp       time.Time
}

// WeatherObservation is a stored weather index sample for one leg of a
// candidate path.
type WeatherObservation struct {
	SourceID        int
	SourceName      string
	DestinationID   int
	DestinationName string
	Value           float64
	WeatherCode     string
	Description     string
	Temperature     float64
	By              string
	NPoints         int
	StepDistanceKm  float64
	Timestamp       time.Time
}
