package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"shipment-forecast-service/internal/domain"
	"shipment-forecast-service/internal/ports"
	"shipment-forecast-service/internal/scgraph"
)

// ErrBadVertexRef signals a reference that names no resolvable vertex.
var ErrBadVertexRef = errors.New("resolve vertex: reference must carry an id, a name, or the manufacturer type")

// VertexRef is a caller-side vertex reference: by graph id, by unified
// name, or by type alone for the single manufacturer.
type VertexRef struct {
	ID   *int
	Name string
	Type scgraph.VertexType
}

// VertexResolver maps vertex references onto graph vertices. Unknown
// intermediate names are geocoded through the location cache and the
// external geo service, then retried under the unified name.
type VertexResolver struct {
	graph     *scgraph.Graph
	locations ports.LocationRepository
	geo       ports.GeoService
}

func NewVertexResolver(graph *scgraph.Graph, locations ports.LocationRepository, geo ports.GeoService) *VertexResolver {
	return &VertexResolver{graph: graph, locations: locations, geo: geo}
}

// splitPlace parses a free-form "city, country" location string. Three
// or more comma parts mean a region sits in the middle and the country
// is the third part.
func splitPlace(name string) (city, country string) {
	parts := strings.Split(name, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	city = parts[0]
	if len(parts) > 2 {
		country = parts[2]
	} else if len(parts) == 2 {
		country = parts[1]
	}
	return city, country
}

// Resolve finds the graph vertex a reference points at. An id wins over
// a name; a bare MANUFACTURER type resolves to the single manufacturer
// vertex without a name.
func (r *VertexResolver) Resolve(ctx context.Context, ref VertexRef) (*scgraph.Vertex, error) {
	if ref.ID != nil {
		v, err := r.graph.VertexByID(*ref.ID)
		if err != nil {
			return nil, fmt.Errorf("resolve vertex: by id %d: %w", *ref.ID, err)
		}
		return v, nil
	}

	if ref.Type == scgraph.Manufacturer {
		return r.graph.Manufacturer(), nil
	}

	if ref.Name == "" {
		return nil, ErrBadVertexRef
	}

	v, err := r.graph.VertexByName(ref.Name)
	if err == nil {
		return v, nil
	}
	if !errors.Is(err, scgraph.ErrVertexNotFound) || ref.Type != scgraph.Intermediate {
		return nil, fmt.Errorf("resolve vertex: by name %q: %w", ref.Name, err)
	}

	// An unknown intermediate may be a raw place string rather than a
	// unified location name. Geocode it and retry.
	loc, err := r.resolveLocation(ctx, ref.Name)
	if err != nil {
		return nil, fmt.Errorf("resolve vertex: location %q: %w", ref.Name, err)
	}

	v, err = r.graph.VertexByName(loc.Name)
	if err != nil {
		return nil, fmt.Errorf("resolve vertex: by unified name %q: %w", loc.Name, err)
	}
	return v, nil
}

// resolveLocation returns the canonical location for a raw place
// string, consulting the cache before the external geo service and
// saving fresh resolutions back.
func (r *VertexResolver) resolveLocation(ctx context.Context, raw string) (domain.Location, error) {
	city, country := splitPlace(raw)

	loc, ok, err := r.locations.FindByCity(ctx, city, country)
	if err != nil {
		return domain.Location{}, fmt.Errorf("cache lookup: %w", err)
	}
	if ok {
		return loc, nil
	}

	loc, err = r.geo.LocationData(ctx, city, country)
	if err != nil {
		return domain.Location{}, fmt.Errorf("geocode: %w", err)
	}

	saved, err := r.locations.Save(ctx, loc)
	if err != nil {
		return domain.Location{}, fmt.Errorf("cache save: %w", err)
	}
	return saved, nil
}
