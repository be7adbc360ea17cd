package scgraph

import (
	"errors"
	"fmt"
	"math"
)

// Epsilon is the tolerance for the probability-sum invariant: across every
// (carrier, path) combination the probabilities must sum to 1.0 (the order
// takes exactly one of these paths) or to 0.0 (no historical data supports
// any path). Anything else means corrupted counters or a computation bug.
const Epsilon = 1e-3

var (
	// ErrProbabilitySum reports a path set whose probabilities sum to
	// neither ~1.0 nor ~0.0. Surfaced as an internal failure, never mapped
	// to client input.
	ErrProbabilitySum = errors.New("scgraph: path probabilities must sum to 1.0 or 0.0")

	// ErrProbabilityRange reports a single path probability outside [0, 1].
	ErrProbabilityRange = errors.New("scgraph: path probability out of [0, 1]")

	// ErrBadCarrierNames reports a request in which every carrier name is
	// absent from the historical data. The engine itself returns an empty
	// result in that case; service layers raise this when an empty valid
	// set should be treated as client error.
	ErrBadCarrierNames = errors.New("scgraph: no requested carrier found in historical data")
)

// ProbPathID is one candidate delivery path in vertex-id space, with the
// probability that an order from the source follows it and the carrier that
// probability is conditioned on.
type ProbPathID struct {
	Path    []int   `json:"path"`
	Prob    float64 `json:"prob"`
	Carrier string  `json:"carrier"`
}

// ProbPathName is one candidate delivery path in vertex-name space.
type ProbPathName struct {
	Path    []string `json:"path"`
	Prob    float64  `json:"prob"`
	Carrier string   `json:"carrier"`
}

// PathsID is the result of a path query in vertex-id space: every candidate
// path from source to destination with its probability and carrier, plus the
// carrier names that were requested and the subset backed by historical data.
type PathsID struct {
	Source            int          `json:"source"`
	Destination       int          `json:"destination"`
	RequestedCarriers []string     `json:"requestedCarriers"`
	ValidCarriers     []string     `json:"validCarriers"`
	Paths             []ProbPathID `json:"paths"`
}

// PathsName is the vertex-name-space twin of PathsID.
type PathsName struct {
	Source            string         `json:"source"`
	Destination       string         `json:"destination"`
	RequestedCarriers []string       `json:"requestedCarriers"`
	ValidCarriers     []string       `json:"validCarriers"`
	Paths             []ProbPathName `json:"paths"`
}

func checkProbInvariant(probs []float64) error {
	total := 0.0
	for _, p := range probs {
		if p < 0 || p > 1 {
			return fmt.Errorf("%w: got %g", ErrProbabilityRange, p)
		}
		total += p
	}
	if math.Abs(total-1.0) >= Epsilon && math.Abs(total) >= Epsilon {
		return fmt.Errorf("%w: got %g", ErrProbabilitySum, total)
	}
	return nil
}

// NewPathsID validates and builds a PathsID result. Construction fails when
// the probability-sum invariant is violated.
func NewPathsID(source, destination int, requested, valid []string, paths []ProbPathID) (PathsID, error) {
	probs := make([]float64, len(paths))
	for i, p := range paths {
		probs[i] = p.Prob
	}
	if err := checkProbInvariant(probs); err != nil {
		return PathsID{}, fmt.Errorf("new paths result: %w", err)
	}
	return PathsID{
		Source:            source,
		Destination:       destination,
		RequestedCarriers: requested,
		ValidCarriers:     valid,
		Paths:             paths,
	}, nil
}

// NewPathsName validates and builds a PathsName result.
func NewPathsName(source, destination string, requested, valid []string, paths []ProbPathName) (PathsName, error) {
	probs := make([]float64, len(paths))
	for i, p := range paths {
		probs[i] = p.Prob
	}
	if err := checkProbInvariant(probs); err != nil {
		return PathsName{}, fmt.Errorf("new paths result: %w", err)
	}
	return PathsName{
		Source:            source,
		Destination:       destination,
		RequestedCarriers: requested,
		ValidCarriers:     valid,
		Paths:             paths,
	}, nil
}

// TotalProbability sums the per-path probabilities.
func (p PathsID) TotalProbability() float64 {
	total := 0.0
	for _, pp := range p.Paths {
		total += pp.Prob
	}
	return total
}

// NPaths is the number of candidate paths.
func (p PathsID) NPaths() int { return len(p.Paths) }

// TotalProbability sums the per-path probabilities.
func (p PathsName) TotalProbability() float64 {
	total := 0.0
	for _, pp := range p.Paths {
		total += pp.Prob
	}
	return total
}

// NPaths is the number of candidate paths.
func (p PathsName) NPaths() int { return len(p.Paths) }
