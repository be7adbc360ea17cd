package scgraph

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// ErrCarrierNotCached reports a probability lookup for a carrier with no
// memoized entries.
var ErrCarrierNotCached = errors.New("scgraph: carrier not present in probability memo")

// PathProbDP memoizes raw (pre-normalization) path probabilities per
// (carrier, source vertex). The probability list at mem[carrier][v] is
// positionally aligned with the path list memoized for v in the path memo.
//
// The memo is shared across concurrent requests, so every access holds the
// mutex; entries are written whole via Put so the alignment with the path
// memo never goes through an intermediate length.
type PathProbDP struct {
	mu      sync.RWMutex
	n       int
	mem     map[string][][]float64
	updated bool
}

// NewPathProbDP creates an empty probability memo for a graph of n vertices.
func NewPathProbDP(n int) *PathProbDP {
	return &PathProbDP{n: n, mem: make(map[string][][]float64)}
}

// Add appends a probability to the (carrier, v) entry, creating the carrier
// row on first use.
func (m *PathProbDP) Add(carrier string, v int, prob float64) error {
	if !legalIndex(v, m.n) {
		return fmt.Errorf("path prob dp add: %w: index %d, n %d", ErrIndexOutOfBounds, v, m.n)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.mem[carrier]; !ok {
		m.mem[carrier] = make([][]float64, m.n)
	}
	m.mem[carrier][v] = append(m.mem[carrier][v], prob)
	m.updated = true
	return nil
}

// Put stores the complete probability list for (carrier, v). When the entry
// is already populated the stored list wins: racing workers compute the
// same values from the same counters, so the loser's copy is redundant.
func (m *PathProbDP) Put(carrier string, v int, probs []float64) error {
	if !legalIndex(v, m.n) {
		return fmt.Errorf("path prob dp put: %w: index %d, n %d", ErrIndexOutOfBounds, v, m.n)
	}
	if len(probs) == 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.mem[carrier]; !ok {
		m.mem[carrier] = make([][]float64, m.n)
	}
	if len(m.mem[carrier][v]) > 0 {
		return nil
	}
	m.mem[carrier][v] = probs
	m.updated = true
	return nil
}

// Contains reports whether the (carrier, v) entry has memoized probabilities.
func (m *PathProbDP) Contains(carrier string, v int) (bool, error) {
	if !legalIndex(v, m.n) {
		return false, fmt.Errorf("path prob dp contains: %w: index %d, n %d", ErrIndexOutOfBounds, v, m.n)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	row, ok := m.mem[carrier]
	if !ok {
		return false, nil
	}
	return len(row[v]) > 0, nil
}

// Get returns the memoized probabilities for (carrier, v). The returned slice
// is the live cache entry and must not be mutated by callers.
func (m *PathProbDP) Get(carrier string, v int) ([]float64, error) {
	if !legalIndex(v, m.n) {
		return nil, fmt.Errorf("path prob dp get: %w: index %d, n %d", ErrIndexOutOfBounds, v, m.n)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	row, ok := m.mem[carrier]
	if !ok {
		return nil, fmt.Errorf("path prob dp get: %w: carrier %q", ErrCarrierNotCached, carrier)
	}
	return row[v], nil
}

// Updated reports whether the memo was mutated since the last persistence
// write.
func (m *PathProbDP) Updated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.updated
}

// MarkClean resets the dirty flag. The store calls it after a successful
// write.
func (m *PathProbDP) MarkClean() {
	m.mu.Lock()
	m.updated = false
	m.mu.Unlock()
}

// MergeFrom copies other's populated (carrier, vertex) entries over this
// memo, entry by entry (last writer wins per entry).
func (m *PathProbDP) MergeFrom(other *PathProbDP) {
	if other == nil || other.n != m.n {
		return
	}

	other.mu.RLock()
	snap := make(map[string][][]float64, len(other.mem))
	for carrier, row := range other.mem {
		snap[carrier] = row
	}
	other.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	for carrier, row := range snap {
		for v, probs := range row {
			if len(probs) == 0 {
				continue
			}
			if _, ok := m.mem[carrier]; !ok {
				m.mem[carrier] = make([][]float64, m.n)
			}
			m.mem[carrier][v] = probs
			m.updated = true
		}
	}
}

type pathProbDPJSON struct {
	N   int                    `json:"n"`
	Mem map[string][][]float64 `json:"mem"`
}

func (m *PathProbDP) MarshalJSON() ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	mem := m.mem
	if mem == nil {
		mem = map[string][][]float64{}
	}
	return json.Marshal(pathProbDPJSON{N: m.n, Mem: mem})
}

func (m *PathProbDP) UnmarshalJSON(data []byte) error {
	var raw pathProbDPJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("path prob dp unmarshal: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.n = raw.N
	m.mem = raw.Mem
	if m.mem == nil {
		m.mem = make(map[string][][]float64)
	}
	for carrier, row := range m.mem {
		for len(row) < m.n {
			row = append(row, nil)
		}
		m.mem[carrier] = row
	}
	m.updated = false
	return nil
}
