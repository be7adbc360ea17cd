package forecast

import "time"

// EST is the estimated remaining shipment time in hours, the midpoint
// of the TFST interval.
type EST struct {
	Value float64
}

// CalculateEST returns the midpoint of the TFST bounds.
func CalculateEST(tfst TFSTCalculation) EST {
	return EST{Value: (tfst.Lower + tfst.Upper) / 2.0}
}

// CFDI is the confidence forecast deviation index, the spread of the
// TFST interval around the estimate.
type CFDI struct {
	Lower float64
	Upper float64
}

// CalculateCFDI measures the distance of the estimate from each TFST
// bound. Both sides are non-negative when EST is the interval midpoint.
func CalculateCFDI(tfst TFSTCalculation, est EST) CFDI {
	return CFDI{
		Lower: est.Value - tfst.Lower,
		Upper: tfst.Upper - est.Value,
	}
}

// EODT is the estimated order delivery time in hours from order
// creation.
type EODT struct {
	Value float64
}

// CalculateEODT sums the elapsed dispatch time, the elapsed shipment
// time, and the remaining shipment estimate.
func CalculateEODT(ts TimeSequence, est EST) EODT {
	dispatchElapsed := hoursBetween(ts.OrderTime, ts.ShipmentTime)
	shipmentElapsed := hoursBetween(ts.ShipmentTime, ts.ShipmentEstimationTime())
	return EODT{Value: dispatchElapsed + shipmentElapsed + est.Value}
}

// EDD is the estimated delivery date.
type EDD struct {
	Value time.Time
}

// CalculateEDD projects the delivery timestamp from the order time and
// the estimated order delivery time.
func CalculateEDD(ts TimeSequence, eodt EODT) EDD {
	return EDD{Value: ts.OrderTime.Add(time.Duration(eodt.Value * float64(time.Hour)))}
}
