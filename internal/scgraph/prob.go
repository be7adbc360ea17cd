package scgraph

import (
	"errors"
	"fmt"
)

// ErrProbMemoSkew reports a memoized probability list whose length does not
// match the path list it must be aligned with. The two memos advance in
// lock-step per vertex; a mismatch means the stored state is corrupted.
var ErrProbMemoSkew = errors.New("scgraph: probability memo out of step with path memo")

// probPath is one scored path in vertex-index space, before identifier-space
// conversion.
type probPath struct {
	path    []int
	prob    float64
	carrier string
}

// probResult carries the index-space outcome of a probability computation.
type probResult struct {
	validCarriers []string
	paths         []probPath
}

// PathProbabilityManager scores enumerated paths per carrier from the
// historical edge traffic counters, memoizing raw per-path probabilities in
// the shared PathProbDP.
type PathProbabilityManager struct {
	graph *Graph
	dp    *PathProbDP
}

// NewPathProbabilityManager binds the manager to a graph and a probability
// memo. A nil memo starts empty (cold cache).
func NewPathProbabilityManager(graph *Graph, dp *PathProbDP) *PathProbabilityManager {
	if dp == nil {
		dp = NewPathProbDP(graph.VertexCount())
	}
	return &PathProbabilityManager{graph: graph, dp: dp}
}

// DP exposes the underlying memo for persistence.
func (m *PathProbabilityManager) DP() *PathProbDP { return m.dp }

// pathProbability computes the raw probability that the carrier routes an
// order along the given index path: the product over consecutive edges (u,v)
// of the carrier's orders on that edge divided by the carrier's orders across
// all edges leaving u. A missing edge or a zero denominator makes the whole
// path impossible for this carrier.
func (m *PathProbabilityManager) pathProbability(carrier string, path []int) float64 {
	g := m.graph
	prob := 1.0

	for i := 0; prob > 0 && i+1 < len(path); i++ {
		u, v := path[i], path[i+1]

		edge := g.EdgeBetween(u, v)
		if edge == nil {
			return 0
		}

		departures := 0
		for _, ei := range g.OutEdges(u) {
			departures += g.Edge(ei).NOrdersByCarrier[carrier]
		}
		if departures == 0 {
			return 0
		}

		prob *= float64(edge.NOrdersByCarrier[carrier]) / float64(departures)
	}

	return prob
}

// computePathsProb scores the supplied index paths for every requested
// carrier. Carriers absent from the source vertex's historical counters are
// dropped from the valid set; with no valid carrier the result is empty and
// callers decide whether that is a client error. When zeroProbPaths is
// false, impossible paths are excluded from the result; when true they are
// kept with probability 0.
// Per-carrier probabilities are weighted by the carrier's share of the source
// vertex's historical orders, so the combined result sums to at most 1.
func (m *PathProbabilityManager) computePathsProb(source int, carriers []string, paths [][]int, zeroProbPaths bool) (probResult, error) {
	sourceV, err := m.graph.Vertex(source)
	if err != nil {
		return probResult{}, fmt.Errorf("compute paths prob: %w", err)
	}

	if len(paths) == 0 {
		return probResult{validCarriers: []string{}, paths: []probPath{}}, nil
	}

	// Requested order is preserved so results are deterministic.
	validCarriers := make([]string, 0, len(carriers))
	seen := make(map[string]bool, len(carriers))
	for _, c := range carriers {
		if seen[c] {
			continue
		}
		seen[c] = true
		if _, ok := sourceV.NOrdersByCarrier[c]; ok {
			validCarriers = append(validCarriers, c)
		}
	}
	if len(validCarriers) == 0 {
		return probResult{validCarriers: []string{}, paths: []probPath{}}, nil
	}

	totalValidOrders := 0
	for _, c := range validCarriers {
		totalValidOrders += sourceV.NOrdersByCarrier[c]
	}

	result := probResult{validCarriers: validCarriers}
	for _, carrier := range validCarriers {
		cached, err := m.dp.Contains(carrier, source)
		if err != nil {
			return probResult{}, fmt.Errorf("compute paths prob: %w", err)
		}
		if !cached {
			computed := make([]float64, len(paths))
			for i, path := range paths {
				computed[i] = m.pathProbability(carrier, path)
			}
			if err := m.dp.Put(carrier, source, computed); err != nil {
				return probResult{}, fmt.Errorf("compute paths prob: %w", err)
			}
		}

		probs, err := m.dp.Get(carrier, source)
		if err != nil {
			return probResult{}, fmt.Errorf("compute paths prob: %w", err)
		}
		if len(probs) != len(paths) {
			return probResult{}, fmt.Errorf("compute paths prob: carrier %q at %q: %d probs for %d paths: %w",
				carrier, sourceV.Name, len(probs), len(paths), ErrProbMemoSkew)
		}

		weight := 1.0
		if totalValidOrders > 0 {
			weight = float64(sourceV.NOrdersByCarrier[carrier]) / float64(totalValidOrders)
		}

		for i, path := range paths {
			prob := probs[i]
			if prob == 0 && !zeroProbPaths {
				continue
			}
			result.paths = append(result.paths, probPath{
				path:    path,
				prob:    prob * weight,
				carrier: carrier,
			})
		}
	}

	return result, nil
}
