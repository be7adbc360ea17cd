package forecast

// TFSTCompute records which components actually contributed to a TFST
// result after the tolerance optimization.
type TFSTCompute string

const (
	ComputePT  TFSTCompute = "pt"
	ComputeTT  TFSTCompute = "tt"
	ComputeAll TFSTCompute = "all"
)

// TFSTCalculation is the alpha-blended shipment forecast in hours.
type TFSTCalculation struct {
	Lower float64
	Upper float64
	Alpha float64
}

// TFST extends the calculation with the tolerance applied and the
// components that were computed.
type TFST struct {
	TFSTCalculation
	Tolerance float64
	Computed  TFSTCompute
}

// CalculateTFST blends the path time and transit time bounds linearly
// by the alpha weight.
func CalculateTFST(alpha Alpha, pt PT, tt TT) TFSTCalculation {
	return TFSTCalculation{
		Lower: (1-alpha.Value)*pt.Lower + alpha.Value*tt.Lower,
		Upper: (1-alpha.Value)*pt.Upper + alpha.Value*tt.Upper,
		Alpha: alpha.Value,
	}
}
