package forecast

import (
	"errors"
	"fmt"
	"math"

	"shipment-forecast-service/internal/stats"
)

// AlphaType names the blend-weight strategy.
type AlphaType string

const (
	AlphaTypeConst  AlphaType = "CONST"
	AlphaTypeExp    AlphaType = "EXP"
	AlphaTypeMarkov AlphaType = "MARKOV"
)

// The Markov strategy has no defined semantics yet; selecting it is an
// explicit error rather than an invented behaviour.
var ErrMarkovAlphaUnsupported = errors.New("forecast: markov alpha calculation is not supported")

var ErrMissingVertexID = errors.New("forecast: vertex id required for markov alpha calculation")

// AlphaInput feeds the blend-weight calculation: the shipment time
// distribution and, for the Markov strategy, the current vertex.
type AlphaInput struct {
	STDistribution stats.Distribution
	VertexID       *int
}

// Alpha is the computed blend weight between the path time and transit
// time estimates. Input records the strategy's driving quantity (tau
// for EXP, the constant itself for CONST). TTWeight and Tau are only
// meaningful for the EXP strategy.
type Alpha struct {
	Type     AlphaType
	Input    float64
	Value    float64
	TTWeight float64
	Tau      float64
}

// AlphaCalculator computes the TFST blend weight from the request input
// and time sequence.
type AlphaCalculator interface {
	Calculate(input AlphaInput, ts TimeSequence) (Alpha, error)
}

// AlphaConst always returns a fixed configured weight.
type AlphaConst struct {
	Value float64
}

func (c AlphaConst) Calculate(input AlphaInput, ts TimeSequence) (Alpha, error) {
	return Alpha{Type: AlphaTypeConst, Input: c.Value, Value: c.Value}, nil
}

// AlphaExp decays the transit-time weight exponentially with the
// fraction of the average shipment time already elapsed.
type AlphaExp struct {
	TTWeight float64
}

func (c AlphaExp) exp(tau float64) float64 {
	if c.TTWeight == 0 {
		return 0.0
	}
	// 0**0 would be undefined here; the limit value is 1.
	if tau == 1 && c.TTWeight == 1 {
		return 1.0
	}
	return math.Pow(1-tau, 1/c.TTWeight-1)
}

func (c AlphaExp) Calculate(input AlphaInput, ts TimeSequence) (Alpha, error) {
	if ts.Stage() == StageDispatch {
		// Shipment has not started: full weight on the transit estimate.
		return Alpha{Type: AlphaTypeExp, Input: 1.0, Value: 1.0, TTWeight: c.TTWeight, Tau: 0.0}, nil
	}

	elapsed := hoursBetween(ts.ShipmentTime, ts.ShipmentEstimationTime())
	ast, err := stats.Mean(input.STDistribution)
	if err != nil {
		return Alpha{}, fmt.Errorf("alpha exp: shipment time mean: %w", err)
	}

	tau := math.Min(1, elapsed/ast)
	return Alpha{
		Type:     AlphaTypeExp,
		Input:    tau,
		Value:    c.exp(tau),
		TTWeight: c.TTWeight,
		Tau:      tau,
	}, nil
}

// AlphaMarkov is the declared but unimplemented Markov-chain strategy.
type AlphaMarkov struct{}

func (c AlphaMarkov) Calculate(input AlphaInput, ts TimeSequence) (Alpha, error) {
	if input.VertexID == nil {
		return Alpha{}, ErrMissingVertexID
	}
	return Alpha{}, ErrMarkovAlphaUnsupported
}

// NewAlphaCalculator builds the strategy selected by the parameters.
func NewAlphaCalculator(params AlphaParams) (AlphaCalculator, error) {
	switch params.AlphaType {
	case AlphaTypeConst:
		return AlphaConst{Value: params.ConstAlphaValue}, nil
	case AlphaTypeExp:
		return AlphaExp{TTWeight: params.ExpTTWeight}, nil
	case AlphaTypeMarkov:
		return AlphaMarkov{}, nil
	default:
		return nil, fmt.Errorf("forecast: unknown alpha type %q", params.AlphaType)
	}
}
