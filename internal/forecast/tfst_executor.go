package forecast

import (
	"context"
	"fmt"

	"shipment-forecast-service/internal/stats"
)

// TFSTInput bundles the per-request inputs of the three blended
// components.
type TFSTInput struct {
	Alpha AlphaInput
	PT    PTInput
	TT    stats.Distribution
}

// TFSTResult carries the blended forecast and its components.
type TFSTResult struct {
	Alpha Alpha
	PT    PT
	TT    TT
	TFST  TFST
}

// TFSTExecutor runs the alpha, path time, and transit time
// calculations and blends them. When alpha makes one side negligible
// within the tolerance, that side is skipped entirely.
type TFSTExecutor struct {
	alpha           AlphaCalculator
	pt              *PTCalculator
	tt              TTCalculator
	parallelization int
	tolerance       float64
}

func NewTFSTExecutor(alpha AlphaCalculator, pt *PTCalculator, tt TTCalculator, parallelization int, tolerance float64) *TFSTExecutor {
	return &TFSTExecutor{
		alpha:           alpha,
		pt:              pt,
		tt:              tt,
		parallelization: parallelization,
		tolerance:       tolerance,
	}
}

func (e *TFSTExecutor) optimizeByAlpha(alpha Alpha) TFSTCompute {
	if alpha.Value < e.tolerance {
		return ComputePT
	}
	if alpha.Value > 1-e.tolerance {
		return ComputeTT
	}
	return ComputeAll
}

// Execute computes alpha first, selects the components worth computing,
// and joins PT and TT before blending. PT and TT have no data
// dependency on each other and run in parallel goroutines when a
// parallelization degree is configured.
func (e *TFSTExecutor) Execute(ctx context.Context, ts TimeSequence, input TFSTInput) (TFSTResult, error) {
	alpha, err := e.alpha.Calculate(input.Alpha, ts)
	if err != nil {
		return TFSTResult{}, fmt.Errorf("tfst: alpha: %w", err)
	}

	toCompute := e.optimizeByAlpha(alpha)

	var (
		pt    PT
		tt    TT
		ptErr error
		ttErr error
	)

	computePT := func() {
		if toCompute == ComputePT || toCompute == ComputeAll {
			pt, ptErr = e.pt.Calculate(ctx, input.PT, ts)
		} else {
			pt = e.pt.Empty()
		}
	}
	computeTT := func() {
		if toCompute == ComputeTT || toCompute == ComputeAll {
			tt, ttErr = e.tt.Calculate(input.TT, ts)
		} else {
			tt = e.tt.Empty()
		}
	}

	if e.parallelization > 0 {
		done := make(chan struct{})
		go func() {
			defer close(done)
			computeTT()
		}()
		computePT()
		<-done
	} else {
		computePT()
		computeTT()
	}

	if ptErr != nil {
		return TFSTResult{}, fmt.Errorf("tfst: pt: %w", ptErr)
	}
	if ttErr != nil {
		return TFSTResult{}, fmt.Errorf("tfst: tt: %w", ttErr)
	}

	calc := CalculateTFST(alpha, pt, tt)
	return TFSTResult{
		Alpha: alpha,
		PT:    pt,
		TT:    tt,
		TFST:  TFST{TFSTCalculation: calc, Tolerance: e.tolerance, Computed: toCompute},
	}, nil
}
