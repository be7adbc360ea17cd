package domain

import "time"

// ExternalDisruption carries the cause of a reconfiguration triggered
// from outside the ordinary tracking flow.
type ExternalDisruption struct {
	DisruptionType string  `json:"disruptionType"`
	Severity       float64 `json:"severity"`
}

// Delay summarizes an order's estimated lateness. Bounds are hours past
// the historical thresholds, split into the dispatch and shipment
// phases; Expected backs the EDD off by the mean total deviation.
type Delay struct {
	DispatchLower float64   `json:"dispatchLower"`
	DispatchUpper float64   `json:"dispatchUpper"`
	ShipmentLower float64   `json:"shipmentLower"`
	ShipmentUpper float64   `json:"shipmentUpper"`
	TotalLower    float64   `json:"totalLower"`
	TotalUpper    float64   `json:"totalUpper"`
	EDD           time.Time `json:"edd"`
	Expected      time.Time `json:"expected"`
}

// Reconfiguration is the outbound message asking the planning layer to
// reconsider an order. Delay is nil when the estimation itself failed
// and only the disruption context is known.
type Reconfiguration struct {
	OrderID  int                 `json:"orderId"`
	SLS      bool                `json:"sls"`
	External *ExternalDisruption `json:"external,omitempty"`
	Delay    *Delay              `json:"delay,omitempty"`
}

// Actionable reports whether the message carries a reason the planning
// layer should react to: a second-source flag, an external disruption,
// or a delay whose bounds are both positive.
func (r Reconfiguration) Actionable() bool {
	if r.SLS || r.External != nil {
		return true
	}
	return r.Delay != nil && r.Delay.TotalLower > 0 && r.Delay.TotalUpper > 0
}
