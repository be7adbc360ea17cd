package dto

import (
	"time"

	"shipment-forecast-service/internal/domain"
)

// Vertex identifies a graph vertex by id, by unified name, or by type
// alone for the manufacturer. Exactly one of the three is expected.
type Vertex struct {
	VertexID   *int   `json:"vertexId,omitempty"`
	VertexName string `json:"vertexName,omitempty"`
	VertexType string `json:"vertexType,omitempty"`
}

// Carrier identifies a carrier by id or by name.
type Carrier struct {
	CarrierID   *int   `json:"carrierId,omitempty"`
	CarrierName string `json:"carrierName,omitempty"`
}

type Site struct {
	SiteID int `json:"siteId"`
}

type OrderEstimationRequest struct {
	OrderID        int        `json:"orderId"`
	EventTime      time.Time  `json:"eventTime"`
	EstimationTime *time.Time `json:"estimationTime,omitempty"`
	Vertex         *Vertex    `json:"vertex,omitempty"`
}

type VertexEstimationRequest struct {
	Vertex         Vertex     `json:"vertex"`
	Carrier        Carrier    `json:"carrier"`
	Site           Site       `json:"site"`
	OrderTime      time.Time  `json:"orderTime"`
	EventTime      time.Time  `json:"eventTime"`
	EstimationTime time.Time  `json:"estimationTime"`
	ShipmentTime   *time.Time `json:"shipmentTime,omitempty"`
}

type TrafficObservation struct {
	SourceID        int       `json:"sourceId"`
	SourceName      string    `json:"sourceName"`
	DestinationID   int       `json:"destinationId"`
	DestinationName string    `json:"destinationName"`
	Mode            string    `json:"mode"`
	Value           float64   `json:"value"`
	DistanceKm      float64   `json:"distanceKm"`
	RoadDistanceKm  float64   `json:"roadDistanceKm"`
	NoTrafficHours  float64   `json:"noTrafficHours"`
	TrafficHours    float64   `json:"trafficHours"`
	Timestamp       time.Time `json:"timestamp"`
}

type WeatherObservation struct {
	SourceID        int       `json:"sourceId"`
	SourceName      string    `json:"sourceName"`
	DestinationID   int       `json:"destinationId"`
	DestinationName string    `json:"destinationName"`
	Value           float64   `json:"value"`
	WeatherCode     string    `json:"weatherCode"`
	Description     string    `json:"description"`
	Temperature     float64   `json:"temperatureCelsius"`
	By              string    `json:"by"`
	NPoints         int       `json:"nInterpolationPoints"`
	StepDistanceKm  float64   `json:"stepDistanceKm"`
	Timestamp       time.Time `json:"timestamp"`
}

// Estimation is the wire form of one stored forecast run.
type Estimation struct {
	ID       int    `json:"id"`
	OrderID  int    `json:"orderId"`
	VertexID int    `json:"vertexId"`
	Status   string `json:"status"`

	OrderTime      time.Time `json:"orderTime"`
	ShipmentTime   time.Time `json:"shipmentTime"`
	EventTime      time.Time `json:"eventTime"`
	EstimationTime time.Time `json:"estimationTime"`

	Stage string `json:"stage"`

	AlphaType  string  `json:"alphaType"`
	AlphaInput float64 `json:"alphaInput"`
	AlphaValue float64 `json:"alphaValue"`
	TTWeight   float64 `json:"ttWeight"`
	Tau        float64 `json:"tau"`

	DTLowerHours float64 `json:"dtLowerHours"`
	DTHours      float64 `json:"dtHours"`
	DTUpperHours float64 `json:"dtUpperHours"`

	PTLowerHours float64 `json:"ptLowerHours"`
	PTUpperHours float64 `json:"ptUpperHours"`
	PTNPaths     int     `json:"ptNPaths"`
	AvgTMI       float64 `json:"avgTmi"`
	AvgWMI       float64 `json:"avgWmi"`

	TTLowerHours float64 `json:"ttLowerHours"`
	TTUpperHours float64 `json:"ttUpperHours"`
	TTConfidence float64 `json:"ttConfidence"`

	TFSTLowerHours float64 `json:"tfstLowerHours"`
	TFSTUpperHours float64 `json:"tfstUpperHours"`

	ESTHours  float64   `json:"estHours"`
	CFDILower float64   `json:"cfdiLower"`
	CFDIUpper float64   `json:"cfdiUpper"`
	EODTHours float64   `json:"eodtHours"`
	EDD       time.Time `json:"edd"`

	DTDeviationLower float64 `json:"dtDeviationLower"`
	DTDeviationUpper float64 `json:"dtDeviationUpper"`
	STDeviationLower float64 `json:"stDeviationLower"`
	STDeviationUpper float64 `json:"stDeviationUpper"`
	DTConfidence     float64 `json:"dtConfidence"`
	STConfidence     float64 `json:"stConfidence"`

	Traffic []TrafficObservation `json:"traffic,omitempty"`
	Weather []WeatherObservation `json:"weather,omitempty"`
}

// FromEstimation flattens a domain estimation into its wire form.
func FromEstimation(e domain.Estimation) Estimation {
	out := Estimation{
		ID:       e.ID,
		OrderID:  e.OrderID,
		VertexID: e.VertexID,
		Status:   string(e.Status),

		OrderTime:      e.OrderTime,
		ShipmentTime:   e.ShipmentTime,
		EventTime:      e.EventTime,
		EstimationTime: e.EstimationTime,

		Stage: e.Stage,

		AlphaType:  e.AlphaType,
		AlphaInput: e.AlphaInput,
		AlphaValue: e.AlphaValue,
		TTWeight:   e.TTWeight,
		Tau:        e.Tau,

		DTLowerHours: e.DTLowerHours,
		DTHours:      e.DTHours,
		DTUpperHours: e.DTUpperHours,

		PTLowerHours: e.PTLowerHours,
		PTUpperHours: e.PTUpperHours,
		PTNPaths:     e.PTNPaths,
		AvgTMI:       e.AvgTMI,
		AvgWMI:       e.AvgWMI,

		TTLowerHours: e.TTLowerHours,
		TTUpperHours: e.TTUpperHours,
		TTConfidence: e.TTConfidence,

		TFSTLowerHours: e.TFSTLowerHours,
		TFSTUpperHours: e.TFSTUpperHours,

		ESTHours:  e.ESTHours,
		CFDILower: e.CFDILower,
		CFDIUpper: e.CFDIUpper,
		EODTHours: e.EODTHours,
		EDD:       e.EDD,

		DTDeviationLower: e.DTDeviationLower,
		DTDeviationUpper: e.DTDeviationUpper,
		STDeviationLower: e.STDeviationLower,
		STDeviationUpper: e.STDeviationUpper,
		DTConfidence:     e.DTConfidence,
		STConfidence:     e.STConfidence,
	}

	for _, t := range e.Traffic {
		out.Traffic = append(out.Traffic, TrafficObservation{
			SourceID:        t.SourceID,
			SourceName:      t.SourceName,
			DestinationID:   t.DestinationID,
			DestinationName: t.DestinationName,
			Mode:            t.Mode,
			Value:           t.Value,
			DistanceKm:      t.DistanceKm,
			RoadDistanceKm:  t.RoadDistanceKm,
			NoTrafficHours:  t.NoTrafficHours,
			TrafficHours:    t.TrafficHours,
			Timestamp:       t.Timestamp,
		})
	}
	for _, o := range e.Weather {
		out.Weather = append(out.Weather, WeatherObservation{
			SourceID:        o.SourceID,
			SourceName:      o.SourceName,
			DestinationID:   o.DestinationID,
			DestinationName: o.DestinationName,
			Value:           o.Value,
			WeatherCode:     o.WeatherCode,
			Description:     o.Description,
			Temperature:     o.Temperature,
			By:              o.By,
			NPoints:         o.NPoints,
			StepDistanceKm:  o.StepDistanceKm,
			Timestamp:       o.Timestamp,
		})
	}
	return out
}

// Batch estimation outcome markers.
const (
	StatusCreated = "CREATED"
	StatusFailed  = "FAILED"
	StatusError   = "ERROR"
)

// EstimationResult is one entry of a batch estimation response. Data and
// Location are set on success, Message on failure.
type EstimationResult struct {
	Status   string      `json:"status"`
	ID       int         `json:"id,omitempty"`
	Location string      `json:"location,omitempty"`
	Data     *Estimation `json:"data,omitempty"`
	Message  string      `json:"message,omitempty"`
}

// OrderEstimations is the retrieval form: the newest estimation of an
// order plus its full history, oldest first.
type OrderEstimations struct {
	OrderID int          `json:"orderId"`
	Latest  Estimation   `json:"latest"`
	History []Estimation `json:"history"`
}
