package forecast

import (
	"context"
	"fmt"
	"time"
)

// ExecutorInput is the full input of one estimation request.
type ExecutorInput struct {
	TimeSequence  TimeSequenceInput
	DT            DTInput
	TFST          TFSTInput
	TimeDeviation TimeDeviationInput
}

// ExecutorResult is the full output of one estimation request.
type ExecutorResult struct {
	TimeSequence  TimeSequence
	DT            DT
	TFST          TFSTResult
	EST           EST
	CFDI          CFDI
	EODT          EODT
	EDD           EDD
	TimeDeviation TimeDeviation
}

// Executor chains the whole forecast pipeline: dispatch time, derived
// shipment time, the blended shipment forecast, and the delivery
// indicators.
type Executor struct {
	dt            *DTCalculator
	tfst          *TFSTExecutor
	timeDeviation TimeDeviationCalculator
}

func NewExecutor(dt *DTCalculator, tfst *TFSTExecutor, timeDeviation TimeDeviationCalculator) *Executor {
	return &Executor{dt: dt, tfst: tfst, timeDeviation: timeDeviation}
}

// Execute runs one estimation. The shipment time is derived from the
// dispatch estimate when the order has not shipped yet, which is what
// makes the downstream time sequence valid in the dispatch stage.
func (e *Executor) Execute(ctx context.Context, input ExecutorInput) (ExecutorResult, error) {
	dt, err := e.dt.Calculate(ctx, input.DT, input.TimeSequence)
	if err != nil {
		return ExecutorResult{}, fmt.Errorf("executor: dt: %w", err)
	}

	shipmentTime := input.TimeSequence.OrderTime.Add(time.Duration(dt.TotalTime() * float64(time.Hour)))
	ts, err := NewTimeSequence(input.TimeSequence, shipmentTime)
	if err != nil {
		return ExecutorResult{}, fmt.Errorf("executor: time sequence: %w", err)
	}

	tfstResult, err := e.tfst.Execute(ctx, ts, input.TFST)
	if err != nil {
		return ExecutorResult{}, fmt.Errorf("executor: %w", err)
	}

	est := CalculateEST(tfstResult.TFST.TFSTCalculation)
	cfdi := CalculateCFDI(tfstResult.TFST.TFSTCalculation, est)
	eodt := CalculateEODT(ts, est)
	edd := CalculateEDD(ts, eodt)

	timeDeviation, err := e.timeDeviation.Calculate(input.TimeDeviation, dt, tfstResult.TFST.TFSTCalculation, ts)
	if err != nil {
		return ExecutorResult{}, fmt.Errorf("executor: %w", err)
	}

	return ExecutorResult{
		TimeSequence:  ts,
		DT:            dt,
		TFST:          tfstResult,
		EST:           est,
		CFDI:          cfdi,
		EODT:          eodt,
		EDD:           edd,
		TimeDeviation: timeDeviation,
	}, nil
}
