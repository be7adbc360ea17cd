// Package stats provides the historical-time distribution model used by the
// forecast calculators: a fitted gamma distribution or an empirical sample,
// with closed-form mean and two-sided confidence intervals.
package stats

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	// ErrUnsupportedDistribution reports a Distribution variant the code does
	// not know. With the sealed interface below this cannot be produced by
	// package clients; it exists so the exhaustive switches fail loudly
	// instead of defaulting.
	ErrUnsupportedDistribution = errors.New("stats: unsupported distribution variant")

	// ErrBadConfidence reports a confidence level outside (0, 1).
	ErrBadConfidence = errors.New("stats: confidence level must be in (0, 1)")
)

// Distribution is a sealed two-variant type: Gamma or Sample.
type Distribution interface {
	isDistribution()
}

// Gamma is a fitted gamma distribution with shape/scale and a location shift.
type Gamma struct {
	Shape float64 `json:"shape"`
	Scale float64 `json:"scale"`
	Loc   float64 `json:"loc"`
}

func (Gamma) isDistribution() {}

// Sample is an empirical distribution: raw observations and their mean.
type Sample struct {
	X    []float64 `json:"x"`
	Mean float64   `json:"mean"`
}

func (Sample) isDistribution() {}

// Mean returns the distribution mean in the same unit as the observations.
func Mean(d Distribution) (float64, error) {
	switch v := d.(type) {
	case Gamma:
		return v.Shape*v.Scale + v.Loc, nil
	case Sample:
		return v.Mean, nil
	default:
		return 0, fmt.Errorf("%w: %T", ErrUnsupportedDistribution, d)
	}
}

// CI returns the two-sided confidence interval at the given confidence level:
// the alpha/2 and 1-alpha/2 quantiles with alpha = 1 - confidence.
func CI(d Distribution, confidence float64) (lower, upper float64, err error) {
	if confidence <= 0 || confidence >= 1 {
		return 0, 0, fmt.Errorf("%w: got %g", ErrBadConfidence, confidence)
	}

	alpha := 1 - confidence

	switch v := d.(type) {
	case Gamma:
		lower = v.Quantile(alpha / 2)
		upper = v.Quantile(1 - alpha/2)
		return lower, upper, nil
	case Sample:
		lower = Percentile(v.X, alpha/2*100)
		upper = Percentile(v.X, (1-alpha/2)*100)
		return lower, upper, nil
	default:
		return 0, 0, fmt.Errorf("%w: %T", ErrUnsupportedDistribution, d)
	}
}

// Percentile computes the q-th percentile (q in [0, 100]) of x using linear
// interpolation between closest ranks, matching numpy's default method.
func Percentile(x []float64, q float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	if len(x) == 1 {
		return x[0]
	}

	sorted := make([]float64, len(x))
	copy(sorted, x)
	sort.Float64s(sorted)

	if q <= 0 {
		return sorted[0]
	}
	if q >= 100 {
		return sorted[len(sorted)-1]
	}

	pos := q / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}

	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
