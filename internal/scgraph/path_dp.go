package scgraph

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Memoized suffix paths for a single target vertex: mem[v] holds every known
// path from v (exclusive) to the target, as index sequences. The target's own
// entry holds the single empty path. The updated flag records whether any
// entry was mutated since the last persistence write.
//
// One memo is shared by every request hitting the same graph, so all access
// goes through the mutex. Entries move from empty to complete in a single
// Put, which keeps a concurrent reader from observing a half-built list.
type VertexPathDP struct {
	mu      sync.RWMutex
	n       int
	mem     [][][]int
	updated bool
}

// NewVertexPathDP creates an empty memo for a graph of n vertices.
func NewVertexPathDP(n int) *VertexPathDP {
	return &VertexPathDP{n: n, mem: make([][][]int, n)}
}

func legalIndex(v, n int) bool { return v >= 0 && v < n }

func pathsEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Put stores the complete path list for vertex v, deduplicating exact
// repeats. When the entry is already populated the stored list wins: two
// workers racing on the same cold vertex compute identical lists, so the
// loser's copy is redundant.
func (m *VertexPathDP) Put(v int, paths [][]int) error {
	if !legalIndex(v, m.n) {
		return fmt.Errorf("vertex path dp put: %w: index %d, n %d", ErrIndexOutOfBounds, v, m.n)
	}
	if len(paths) == 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.mem[v]) > 0 {
		return nil
	}

	deduped := make([][]int, 0, len(paths))
	for _, path := range paths {
		known := false
		for _, kept := range deduped {
			if pathsEqual(kept, path) {
				known = true
				break
			}
		}
		if !known {
			deduped = append(deduped, path)
		}
	}
	m.mem[v] = deduped
	m.updated = true
	return nil
}

// Contains reports whether vertex v has at least one memoized path.
func (m *VertexPathDP) Contains(v int) (bool, error) {
	if !legalIndex(v, m.n) {
		return false, fmt.Errorf("vertex path dp contains: %w: index %d, n %d", ErrIndexOutOfBounds, v, m.n)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.mem[v]) > 0, nil
}

// Get returns the memoized paths for vertex v. The returned slice is the
// live cache entry and must not be mutated by callers.
func (m *VertexPathDP) Get(v int) ([][]int, error) {
	if !legalIndex(v, m.n) {
		return nil, fmt.Errorf("vertex path dp get: %w: index %d, n %d", ErrIndexOutOfBounds, v, m.n)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.mem[v], nil
}

func (m *VertexPathDP) Updated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.updated
}

func (m *VertexPathDP) markClean() {
	m.mu.Lock()
	m.updated = false
	m.mu.Unlock()
}

// entries returns a shallow snapshot of the populated entries, keyed by
// vertex index.
func (m *VertexPathDP) entries() map[int][][]int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := make(map[int][][]int)
	for v, paths := range m.mem {
		if len(paths) > 0 {
			snap[v] = paths
		}
	}
	return snap
}

func (m *VertexPathDP) overwrite(v int, paths [][]int) {
	m.mu.Lock()
	m.mem[v] = paths
	m.updated = true
	m.mu.Unlock()
}

type vertexPathDPJSON struct {
	N   int       `json:"n"`
	Mem [][][]int `json:"mem"`
}

func (m *VertexPathDP) MarshalJSON() ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	mem := m.mem
	if mem == nil {
		mem = [][][]int{}
	}
	return json.Marshal(vertexPathDPJSON{N: m.n, Mem: mem})
}

func (m *VertexPathDP) UnmarshalJSON(data []byte) error {
	var raw vertexPathDPJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("vertex path dp unmarshal: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.n = raw.N
	m.mem = raw.Mem
	if len(m.mem) < m.n {
		grown := make([][][]int, m.n)
		copy(grown, m.mem)
		m.mem = grown
	}
	m.updated = false
	return nil
}

// PathDP is the durable path memo: one VertexPathDP per possible target
// vertex. Logically only the manufacturer's entry is populated in normal
// operation, but the layout keeps one slot per vertex so entries can be
// addressed by target index.
type PathDP struct {
	n        int
	perTarget []*VertexPathDP
}

// NewPathDP creates an empty path memo for a graph of n vertices.
func NewPathDP(n int) *PathDP {
	p := &PathDP{n: n, perTarget: make([]*VertexPathDP, n)}
	for i := range p.perTarget {
		p.perTarget[i] = NewVertexPathDP(n)
	}
	return p
}

// ForTarget returns the per-target memo for the given target vertex index.
func (p *PathDP) ForTarget(target int) (*VertexPathDP, error) {
	if !legalIndex(target, p.n) {
		return nil, fmt.Errorf("path dp for target: %w: index %d, n %d", ErrIndexOutOfBounds, target, p.n)
	}
	return p.perTarget[target], nil
}

// Updated reports whether any per-target memo was mutated since the last
// persistence write.
func (p *PathDP) Updated() bool {
	for _, m := range p.perTarget {
		if m.Updated() {
			return true
		}
	}
	return false
}

// MarkClean resets all dirty flags. The store calls it after a successful
// write.
func (p *PathDP) MarkClean() {
	for _, m := range p.perTarget {
		m.markClean()
	}
}

// MergeFrom copies other's populated entries over this memo, entry by entry
// (last writer wins per vertex). Entries empty in other are kept as-is, so
// merging a freshly loaded snapshot with local updates loses neither side.
func (p *PathDP) MergeFrom(other *PathDP) {
	if other == nil || other.n != p.n {
		return
	}
	for t := 0; t < p.n; t++ {
		for v, paths := range other.perTarget[t].entries() {
			p.perTarget[t].overwrite(v, paths)
		}
	}
}

type pathDPJSON struct {
	N         int             `json:"n"`
	PerTarget []*VertexPathDP `json:"v_paths_dp_managers"`
}

func (p *PathDP) MarshalJSON() ([]byte, error) {
	return json.Marshal(pathDPJSON{N: p.n, PerTarget: p.perTarget})
}

func (p *PathDP) UnmarshalJSON(data []byte) error {
	var raw pathDPJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("path dp unmarshal: %w", err)
	}
	p.n = raw.N
	p.perTarget = raw.PerTarget
	for len(p.perTarget) < p.n {
		p.perTarget = append(p.perTarget, NewVertexPathDP(p.n))
	}
	for _, m := range p.perTarget {
		if m != nil {
			m.markClean()
		}
	}
	return nil
}
