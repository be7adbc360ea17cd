package services

import (
	"context"
	"fmt"
	"log"

	"shipment-forecast-service/internal/platform/obs"
	"shipment-forecast-service/internal/ports"
	"shipment-forecast-service/internal/scgraph"
)

// PathService serves the path-inspection endpoint: candidate paths from
// a source vertex to the manufacturer, scored per carrier. Every call
// flushes the memos it warmed to the durable store.
type PathService struct {
	scGraph *scgraph.SCGraph
	dpStore ports.DPStore
}

func NewPathService(scGraph *scgraph.SCGraph, dpStore ports.DPStore) *PathService {
	return &PathService{scGraph: scGraph, dpStore: dpStore}
}

// recordLookups classifies the extraction as cached or computed from
// the memo dirty-flag transitions around the call.
func (s *PathService) recordLookups(pathWasDirty, probWasDirty bool) {
	pathResult := "cached"
	if !pathWasDirty && s.scGraph.Extraction().DP().Updated() {
		pathResult = "computed"
	}
	obs.PathCacheLookups.WithLabelValues("path", pathResult).Inc()

	probResult := "cached"
	if !probWasDirty && s.scGraph.Probability().DP().Updated() {
		probResult = "computed"
	}
	obs.PathCacheLookups.WithLabelValues("prob", probResult).Inc()
}

func (s *PathService) flushDP(ctx context.Context) {
	if err := s.dpStore.SavePathDP(ctx, s.scGraph.Extraction().DP(), false); err != nil {
		log.Printf("op=paths msg=\"save path memo\" err=%q", err)
	}
	if err := s.dpStore.SaveProbDP(ctx, s.scGraph.Probability().DP(), false); err != nil {
		log.Printf("op=paths msg=\"save probability memo\" err=%q", err)
	}
}

// PathsByID extracts the scored paths from the vertex with the given
// graph id.
func (s *PathService) PathsByID(ctx context.Context, sourceID int, carriers []string, zeroProbPaths bool) (scgraph.PathsID, error) {
	pathWasDirty := s.scGraph.Extraction().DP().Updated()
	probWasDirty := s.scGraph.Probability().DP().Updated()

	paths, err := s.scGraph.ExtractPathsByID(sourceID, carriers, zeroProbPaths)
	if err != nil {
		return scgraph.PathsID{}, fmt.Errorf("paths by id %d: %w", sourceID, err)
	}
	if len(carriers) > 0 && len(paths.ValidCarriers) == 0 {
		return scgraph.PathsID{}, fmt.Errorf("paths by id %d: %w", sourceID, scgraph.ErrBadCarrierNames)
	}

	s.recordLookups(pathWasDirty, probWasDirty)
	s.flushDP(ctx)
	return paths, nil
}

// PathsByName extracts the scored paths from the vertex with the given
// unified name.
func (s *PathService) PathsByName(ctx context.Context, sourceName string, carriers []string, zeroProbPaths bool) (scgraph.PathsName, error) {
	pathWasDirty := s.scGraph.Extraction().DP().Updated()
	probWasDirty := s.scGraph.Probability().DP().Updated()

	paths, err := s.scGraph.ExtractPathsByName(sourceName, carriers, zeroProbPaths)
	if err != nil {
		return scgraph.PathsName{}, fmt.Errorf("paths by name %q: %w", sourceName, err)
	}
	if len(carriers) > 0 && len(paths.ValidCarriers) == 0 {
		return scgraph.PathsName{}, fmt.Errorf("paths by name %q: %w", sourceName, scgraph.ErrBadCarrierNames)
	}

	s.recordLookups(pathWasDirty, probWasDirty)
	s.flushDP(ctx)
	return paths, nil
}
