// Package scgraph implements the probabilistic path engine of the forecast
// pipeline: a directed supply-chain graph, enumeration of all simple paths
// from any vertex to the manufacturer, and per-carrier path probabilities
// derived from historical edge traffic. Both stages memoize their results in
// durable DP caches shared across worker invocations.
package scgraph

import "fmt"

// SCGraph binds a loaded graph to its path-extraction and path-probability
// managers and exposes the combined query in the caller's identifier space.
// The manufacturer vertex is the implicit sink of every query.
type SCGraph struct {
	graph       *Graph
	extraction  *PathExtractionManager
	probability *PathProbabilityManager
}

// NewSCGraph wires the engine over a validated graph. Nil DP caches start
// empty (cold start).
func NewSCGraph(graph *Graph, pathDP *PathDP, probDP *PathProbDP) *SCGraph {
	return &SCGraph{
		graph:       graph,
		extraction:  NewPathExtractionManager(graph, pathDP),
		probability: NewPathProbabilityManager(graph, probDP),
	}
}

// Graph returns the underlying graph.
func (s *SCGraph) Graph() *Graph { return s.graph }

// Extraction returns the path-extraction manager, exposing its DP cache for
// persistence.
func (s *SCGraph) Extraction() *PathExtractionManager { return s.extraction }

// Probability returns the path-probability manager, exposing its DP cache
// for persistence.
func (s *SCGraph) Probability() *PathProbabilityManager { return s.probability }

// extractScored runs extraction then probability in vertex-index space.
func (s *SCGraph) extractScored(sourceIndex int, carriers []string, zeroProbPaths bool) (probResult, error) {
	paths, err := s.extraction.ExtractPaths(sourceIndex)
	if err != nil {
		return probResult{}, err
	}
	return s.probability.computePathsProb(sourceIndex, carriers, paths, zeroProbPaths)
}

// ExtractPathsByID returns every scored path from the vertex with the given
// domain id to the manufacturer, expressed as vertex-id sequences.
func (s *SCGraph) ExtractPathsByID(sourceID int, carriers []string, zeroProbPaths bool) (PathsID, error) {
	source, err := s.graph.VertexByID(sourceID)
	if err != nil {
		return PathsID{}, fmt.Errorf("extract paths by id: %w", err)
	}

	scored, err := s.extractScored(source.Index, carriers, zeroProbPaths)
	if err != nil {
		return PathsID{}, fmt.Errorf("extract paths by id: source %d: %w", sourceID, err)
	}

	converted := make([]ProbPathID, 0, len(scored.paths))
	for _, pp := range scored.paths {
		ids := make([]int, len(pp.path))
		for i, v := range pp.path {
			ids[i] = s.graph.vertices[v].ID
		}
		converted = append(converted, ProbPathID{Path: ids, Prob: pp.prob, Carrier: pp.carrier})
	}

	result, err := NewPathsID(source.ID, s.graph.Manufacturer().ID, carriers, scored.validCarriers, converted)
	if err != nil {
		return PathsID{}, fmt.Errorf("extract paths by id: source %d: %w", sourceID, err)
	}
	return result, nil
}

// ExtractPathsByName returns every scored path from the named vertex to the
// manufacturer, expressed as vertex-name sequences.
func (s *SCGraph) ExtractPathsByName(sourceName string, carriers []string, zeroProbPaths bool) (PathsName, error) {
	source, err := s.graph.VertexByName(sourceName)
	if err != nil {
		return PathsName{}, fmt.Errorf("extract paths by name: %w", err)
	}

	scored, err := s.extractScored(source.Index, carriers, zeroProbPaths)
	if err != nil {
		return PathsName{}, fmt.Errorf("extract paths by name: source %q: %w", sourceName, err)
	}

	converted := make([]ProbPathName, 0, len(scored.paths))
	for _, pp := range scored.paths {
		names := make([]string, len(pp.path))
		for i, v := range pp.path {
			names[i] = s.graph.vertices[v].Name
		}
		converted = append(converted, ProbPathName{Path: names, Prob: pp.prob, Carrier: pp.carrier})
	}

	result, err := NewPathsName(source.Name, s.graph.Manufacturer().Name, carriers, scored.validCarriers, converted)
	if err != nil {
		return PathsName{}, fmt.Errorf("extract paths by name: source %q: %w", sourceName, err)
	}
	return result, nil
}
