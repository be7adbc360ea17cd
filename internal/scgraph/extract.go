package scgraph

import (
	"fmt"
	"log"
	"sync/atomic"
)

type dfsColor uint8

const (
	colorUnvisited dfsColor = iota
	colorVisiting
	colorVisited
)

// PathExtractionManager enumerates all simple directed paths from a source
// vertex to the manufacturer sink, memoizing discovered suffix paths per
// vertex in the shared PathDP so repeated queries skip the traversal.
// Managers sharing one PathDP may run concurrently: each traversal keeps its
// own frame stack and only publishes complete per-vertex suffix lists.
type PathExtractionManager struct {
	graph *Graph
	dp    *PathDP

	// traversals counts full DFS runs; cache hits leave it unchanged.
	traversals atomic.Int64
}

// NewPathExtractionManager binds the manager to a graph and a path memo.
// A nil memo starts empty (cold cache).
func NewPathExtractionManager(graph *Graph, dp *PathDP) *PathExtractionManager {
	if dp == nil {
		dp = NewPathDP(graph.VertexCount())
	}
	return &PathExtractionManager{graph: graph, dp: dp}
}

// DP exposes the underlying memo for persistence.
func (m *PathExtractionManager) DP() *PathDP { return m.dp }

// ExtractPaths returns every simple path from the source vertex index to the
// manufacturer, each as a full index sequence starting at source. An empty
// result means the manufacturer is unreachable, not a fault. Results for an
// already-memoized source are returned without traversing the graph.
func (m *PathExtractionManager) ExtractPaths(source int) ([][]int, error) {
	return m.extract(source, m.graph.Manufacturer().Index)
}

func (m *PathExtractionManager) extract(source, target int) ([][]int, error) {
	mem, err := m.dp.ForTarget(target)
	if err != nil {
		return nil, fmt.Errorf("extract paths: %w", err)
	}

	cached, err := mem.Contains(source)
	if err != nil {
		return nil, fmt.Errorf("extract paths: %w", err)
	}
	if !cached {
		if err := m.search(mem, source, target); err != nil {
			return nil, fmt.Errorf("extract paths: %w", err)
		}
	}

	suffixes, err := mem.Get(source)
	if err != nil {
		return nil, fmt.Errorf("extract paths: %w", err)
	}

	// Memoized paths exclude their own source vertex; prepend it here.
	paths := make([][]int, 0, len(suffixes))
	for _, suffix := range suffixes {
		full := make([]int, 0, len(suffix)+1)
		full = append(full, source)
		full = append(full, suffix...)
		paths = append(paths, full)
	}
	return paths, nil
}

// dfsFrame is one suspended vertex visit: the vertex and the position of the
// next outgoing edge to expand.
type dfsFrame struct {
	v    int
	next int
}

// search runs an iterative depth-first traversal from source, filling the
// per-vertex suffix memo bottom-up. An explicit frame stack replaces
// recursion so deep graphs cannot blow the call stack, and a three-color
// marking defends against accidental cycles in the data. Each vertex's
// suffix list is assembled locally and published with a single Put, so a
// concurrent traversal never reads a partially filled entry; when two
// traversals race on the same vertex the first complete list wins.
func (m *PathExtractionManager) search(mem *VertexPathDP, source, target int) error {
	m.traversals.Add(1)

	g := m.graph
	color := make([]dfsColor, g.VertexCount())

	stack := []dfsFrame{{v: source}}
	color[source] = colorVisiting

	for len(stack) > 0 {
		frame := &stack[len(stack)-1]
		v := frame.v

		if frame.next == 0 {
			known, err := mem.Contains(v)
			if err != nil {
				return err
			}
			if known {
				color[v] = colorVisited
				stack = stack[:len(stack)-1]
				continue
			}
			if v == target {
				if err := mem.Put(v, [][]int{{}}); err != nil {
					return err
				}
				color[v] = colorVisited
				stack = stack[:len(stack)-1]
				continue
			}
		}

		outgoing := g.OutEdges(v)
		if frame.next < len(outgoing) {
			u := g.Edge(outgoing[frame.next]).Target
			frame.next++

			switch color[u] {
			case colorVisiting:
				log.Printf("Cycle detected from=%s to=%s (check graph data integrity)", g.vertices[v].Name, g.vertices[u].Name)
			case colorUnvisited:
				color[u] = colorVisiting
				stack = append(stack, dfsFrame{v: u})
			}
			continue
		}

		// All successors resolved: extend each successor's suffix paths by
		// the successor itself and publish the complete list for v.
		var found [][]int
		for _, ei := range outgoing {
			u := g.Edge(ei).Target
			known, err := mem.Contains(u)
			if err != nil {
				return err
			}
			if !known {
				continue
			}
			suffixes, err := mem.Get(u)
			if err != nil {
				return err
			}
			for _, suffix := range suffixes {
				path := make([]int, 0, len(suffix)+1)
				path = append(path, u)
				path = append(path, suffix...)
				found = append(found, path)
			}
		}
		if err := mem.Put(v, found); err != nil {
			return err
		}

		color[v] = colorVisited
		stack = stack[:len(stack)-1]
	}

	return nil
}
