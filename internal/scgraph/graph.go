package scgraph

import (
	"errors"
	"fmt"
)

// Vertex classification within the supply chain. Every graph has exactly one
// MANUFACTURER vertex, which acts as the sink of all delivery paths.
type VertexType string

const (
	SupplierSite VertexType = "SUPPLIER_SITE"
	Intermediate VertexType = "INTERMEDIATE"
	Manufacturer VertexType = "MANUFACTURER"
)

var (
	ErrNoManufacturer    = errors.New("scgraph: graph has no manufacturer vertex")
	ErrManyManufacturers = errors.New("scgraph: graph has more than one manufacturer vertex")
	ErrVertexNotFound    = errors.New("scgraph: vertex not found")
	ErrDuplicateVertex   = errors.New("scgraph: duplicate vertex")
	ErrIndexOutOfBounds  = errors.New("scgraph: vertex index out of bounds")
)

// Represents a node of the supply-chain graph: a supplier site, an
// intermediate hub, or the manufacturer. The statistical annotations
// (coordinates, residence time, order counters) are loaded once with the
// graph and read-only afterwards.
type Vertex struct {
	Index            int
	ID               int
	Name             string
	Type             VertexType
	Latitude         float64
	Longitude        float64
	AvgORI           float64
	NOrders          int
	NOrdersByCarrier map[string]int
}

// Represents a directed edge between two vertices, carrying the historical
// aggregate counters the probability engine and the calculators consume.
// Edges are immutable once the graph is loaded.
type Edge struct {
	Source           int
	Target           int
	NOrders          int
	NOrdersByCarrier map[string]int
	DistanceKm       float64
	AvgOTI           float64
	AvgWMI           float64
	AvgTMI           float64
}

// Directed supply-chain graph with lookup by index, id, and name, and an
// out-adjacency list of edge indices per vertex.
type Graph struct {
	vertices []Vertex
	edges    []Edge

	byID   map[int]int
	byName map[string]int
	out    [][]int

	manufacturer int
}

// VertexRecord is the JSON wire form of a vertex in the graph store.
type VertexRecord struct {
	ID               int            `json:"v_id"`
	Name             string         `json:"name"`
	Type             VertexType     `json:"type"`
	Latitude         float64        `json:"latitude"`
	Longitude        float64        `json:"longitude"`
	AvgORI           float64        `json:"avg_ori"`
	NOrders          int            `json:"n_orders"`
	NOrdersByCarrier map[string]int `json:"n_orders_by_carrier"`
}

// EdgeRecord is the JSON wire form of an edge; endpoints are vertex ids.
type EdgeRecord struct {
	SourceID         int            `json:"source"`
	TargetID         int            `json:"destination"`
	NOrders          int            `json:"n_orders"`
	NOrdersByCarrier map[string]int `json:"n_orders_by_carrier"`
	DistanceKm       float64        `json:"distance"`
	AvgOTI           float64        `json:"avg_oti"`
	AvgWMI           float64        `json:"avg_wmi"`
	AvgTMI           float64        `json:"avg_tmi"`
}

// Build a Graph from vertex and edge records. Vertex indices are assigned in
// record order. Fails if the graph does not contain exactly one manufacturer
// vertex, if ids or names collide, or if an edge references an unknown vertex.
func NewGraph(vertexRecords []VertexRecord, edgeRecords []EdgeRecord) (*Graph, error) {
	g := &Graph{
		vertices: make([]Vertex, 0, len(vertexRecords)),
		edges:    make([]Edge, 0, len(edgeRecords)),
		byID:     make(map[int]int, len(vertexRecords)),
		byName:   make(map[string]int, len(vertexRecords)),
		out:      make([][]int, len(vertexRecords)),

		manufacturer: -1,
	}

	for i, rec := range vertexRecords {
		if _, ok := g.byID[rec.ID]; ok {
			return nil, fmt.Errorf("new graph: %w: id %d", ErrDuplicateVertex, rec.ID)
		}
		if _, ok := g.byName[rec.Name]; ok {
			return nil, fmt.Errorf("new graph: %w: name %q", ErrDuplicateVertex, rec.Name)
		}

		counters := rec.NOrdersByCarrier
		if counters == nil {
			counters = map[string]int{}
		}

		g.vertices = append(g.vertices, Vertex{
			Index:            i,
			ID:               rec.ID,
			Name:             rec.Name,
			Type:             rec.Type,
			Latitude:         rec.Latitude,
			Longitude:        rec.Longitude,
			AvgORI:           rec.AvgORI,
			NOrders:          rec.NOrders,
			NOrdersByCarrier: counters,
		})
		g.byID[rec.ID] = i
		g.byName[rec.Name] = i

		if rec.Type == Manufacturer {
			if g.manufacturer >= 0 {
				return nil, fmt.Errorf("new graph: %w", ErrManyManufacturers)
			}
			g.manufacturer = i
		}
	}

	if g.manufacturer < 0 {
		return nil, fmt.Errorf("new graph: %w", ErrNoManufacturer)
	}

	for _, rec := range edgeRecords {
		src, ok := g.byID[rec.SourceID]
		if !ok {
			return nil, fmt.Errorf("new graph: edge source: %w: id %d", ErrVertexNotFound, rec.SourceID)
		}
		dst, ok := g.byID[rec.TargetID]
		if !ok {
			return nil, fmt.Errorf("new graph: edge destination: %w: id %d", ErrVertexNotFound, rec.TargetID)
		}

		counters := rec.NOrdersByCarrier
		if counters == nil {
			counters = map[string]int{}
		}

		g.edges = append(g.edges, Edge{
			Source:           src,
			Target:           dst,
			NOrders:          rec.NOrders,
			NOrdersByCarrier: counters,
			DistanceKm:       rec.DistanceKm,
			AvgOTI:           rec.AvgOTI,
			AvgWMI:           rec.AvgWMI,
			AvgTMI:           rec.AvgTMI,
		})
		g.out[src] = append(g.out[src], len(g.edges)-1)
	}

	return g, nil
}

// Number of vertices.
func (g *Graph) VertexCount() int { return len(g.vertices) }

// Number of edges.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// Vertex at the given index.
func (g *Graph) Vertex(index int) (*Vertex, error) {
	if index < 0 || index >= len(g.vertices) {
		return nil, fmt.Errorf("vertex: %w: index %d, n %d", ErrIndexOutOfBounds, index, len(g.vertices))
	}
	return &g.vertices[index], nil
}

// Resolve a vertex by its domain id.
func (g *Graph) VertexByID(id int) (*Vertex, error) {
	i, ok := g.byID[id]
	if !ok {
		return nil, fmt.Errorf("vertex by id: %w: id %d", ErrVertexNotFound, id)
	}
	return &g.vertices[i], nil
}

// Resolve a vertex by name.
func (g *Graph) VertexByName(name string) (*Vertex, error) {
	i, ok := g.byName[name]
	if !ok {
		return nil, fmt.Errorf("vertex by name: %w: name %q", ErrVertexNotFound, name)
	}
	return &g.vertices[i], nil
}

// The single manufacturer vertex, resolved at construction.
func (g *Graph) Manufacturer() *Vertex { return &g.vertices[g.manufacturer] }

// Indices of the edges leaving the given vertex.
func (g *Graph) OutEdges(index int) []int { return g.out[index] }

// Edge at the given edge index.
func (g *Graph) Edge(edgeIndex int) *Edge { return &g.edges[edgeIndex] }

// The edge from source to target, or nil when absent.
func (g *Graph) EdgeBetween(source, target int) *Edge {
	for _, ei := range g.out[source] {
		if g.edges[ei].Target == target {
			return &g.edges[ei]
		}
	}
	return nil
}
