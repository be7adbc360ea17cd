package scgraph

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func carriers(pairs ...any) map[string]int {
	m := map[string]int{}
	for i := 0; i+1 < len(pairs); i += 2 {
		m[pairs[i].(string)] = pairs[i+1].(int)
	}
	return m
}

// diamondGraph builds S1 -> {I1, I2} -> M with carrier traffic split
// 60/40 between the two branches for "dhl" and all "ups" traffic on I2.
func diamondGraph(t *testing.T) *Graph {
	t.Helper()
	g, err := NewGraph(
		[]VertexRecord{
			{ID: 1, Name: "S1", Type: SupplierSite, NOrdersByCarrier: carriers("dhl", 10, "ups", 5)},
			{ID: 2, Name: "I1", Type: Intermediate, NOrdersByCarrier: carriers("dhl", 6)},
			{ID: 3, Name: "I2", Type: Intermediate, NOrdersByCarrier: carriers("dhl", 4, "ups", 5)},
			{ID: 4, Name: "M", Type: Manufacturer},
		},
		[]EdgeRecord{
			{SourceID: 1, TargetID: 2, NOrdersByCarrier: carriers("dhl", 6)},
			{SourceID: 1, TargetID: 3, NOrdersByCarrier: carriers("dhl", 4, "ups", 5)},
			{SourceID: 2, TargetID: 4, NOrdersByCarrier: carriers("dhl", 6)},
			{SourceID: 3, TargetID: 4, NOrdersByCarrier: carriers("dhl", 4, "ups", 5)},
		},
	)
	require.NoError(t, err)
	return g
}

func TestNewGraphManufacturerInvariant(t *testing.T) {
	_, err := NewGraph([]VertexRecord{
		{ID: 1, Name: "S1", Type: SupplierSite},
	}, nil)
	assert.ErrorIs(t, err, ErrNoManufacturer)

	_, err = NewGraph([]VertexRecord{
		{ID: 1, Name: "M1", Type: Manufacturer},
		{ID: 2, Name: "M2", Type: Manufacturer},
	}, nil)
	assert.ErrorIs(t, err, ErrManyManufacturers)
}

func TestNewGraphRejectsUnknownEdgeEndpoint(t *testing.T) {
	_, err := NewGraph(
		[]VertexRecord{{ID: 1, Name: "M", Type: Manufacturer}},
		[]EdgeRecord{{SourceID: 1, TargetID: 99}},
	)
	assert.ErrorIs(t, err, ErrVertexNotFound)
}

func TestExtractPathsValidity(t *testing.T) {
	g := diamondGraph(t)
	m := NewPathExtractionManager(g, nil)

	source, err := g.VertexByName("S1")
	require.NoError(t, err)
	sink := g.Manufacturer().Index

	paths, err := m.ExtractPaths(source.Index)
	require.NoError(t, err)
	require.Len(t, paths, 2)

	for _, path := range paths {
		assert.Equal(t, source.Index, path[0])
		assert.Equal(t, sink, path[len(path)-1])

		seen := map[int]bool{}
		for _, v := range path {
			assert.False(t, seen[v], "vertex %d repeated in path %v", v, path)
			seen[v] = true
		}
	}
}

func TestExtractPathsCacheIdempotence(t *testing.T) {
	g := diamondGraph(t)
	m := NewPathExtractionManager(g, nil)

	source, err := g.VertexByName("S1")
	require.NoError(t, err)

	first, err := m.ExtractPaths(source.Index)
	require.NoError(t, err)
	require.EqualValues(t, 1, m.traversals.Load())
	assert.True(t, m.DP().Updated())

	second, err := m.ExtractPaths(source.Index)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, m.traversals.Load(), "second call must not traverse the graph")

	m.DP().MarkClean()
	_, err = m.ExtractPaths(source.Index)
	require.NoError(t, err)
	assert.False(t, m.DP().Updated(), "cache hit must not dirty the memo")
}

func TestExtractPathsSourceIsManufacturer(t *testing.T) {
	g := diamondGraph(t)
	m := NewPathExtractionManager(g, nil)

	sink := g.Manufacturer().Index
	paths, err := m.ExtractPaths(sink)
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Equal(t, []int{sink}, paths[0])
}

func TestExtractPathsUnreachable(t *testing.T) {
	g, err := NewGraph(
		[]VertexRecord{
			{ID: 1, Name: "S1", Type: SupplierSite},
			{ID: 2, Name: "M", Type: Manufacturer},
		},
		nil, // no edges
	)
	require.NoError(t, err)

	m := NewPathExtractionManager(g, nil)
	paths, err := m.ExtractPaths(0)
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestExtractPathsCycleDefence(t *testing.T) {
	g, err := NewGraph(
		[]VertexRecord{
			{ID: 1, Name: "S1", Type: SupplierSite},
			{ID: 2, Name: "I1", Type: Intermediate},
			{ID: 3, Name: "I2", Type: Intermediate},
			{ID: 4, Name: "M", Type: Manufacturer},
		},
		[]EdgeRecord{
			{SourceID: 1, TargetID: 2},
			{SourceID: 2, TargetID: 3},
			{SourceID: 3, TargetID: 2}, // back edge
			{SourceID: 3, TargetID: 4},
		},
	)
	require.NoError(t, err)

	m := NewPathExtractionManager(g, nil)
	paths, err := m.ExtractPaths(0)
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Equal(t, []int{0, 1, 2, 3}, paths[0])
}

func TestProbabilityConservation(t *testing.T) {
	g := diamondGraph(t)
	sc := NewSCGraph(g, nil, nil)

	result, err := sc.ExtractPathsByName("S1", []string{"dhl", "ups"}, false)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"dhl", "ups"}, result.ValidCarriers)
	assert.InDelta(t, 1.0, result.TotalProbability(), Epsilon)

	// dhl carries 10 of 15 source orders, split 0.6/0.4 across branches.
	for _, p := range result.Paths {
		switch {
		case p.Carrier == "dhl" && p.Path[1] == "I1":
			assert.InDelta(t, 10.0/15.0*0.6, p.Prob, 1e-9)
		case p.Carrier == "dhl" && p.Path[1] == "I2":
			assert.InDelta(t, 10.0/15.0*0.4, p.Prob, 1e-9)
		case p.Carrier == "ups":
			assert.InDelta(t, 5.0/15.0, p.Prob, 1e-9)
		default:
			t.Fatalf("unexpected path %v for carrier %s", p.Path, p.Carrier)
		}
	}
}

func TestProbabilitySumInvariantRejected(t *testing.T) {
	_, err := NewPathsID(1, 4, []string{"dhl"}, []string{"dhl"}, []ProbPathID{
		{Path: []int{1, 4}, Prob: 0.5, Carrier: "dhl"},
	})
	assert.ErrorIs(t, err, ErrProbabilitySum)

	_, err = NewPathsID(1, 4, []string{"dhl"}, []string{"dhl"}, []ProbPathID{
		{Path: []int{1, 4}, Prob: 1.2, Carrier: "dhl"},
	})
	assert.ErrorIs(t, err, ErrProbabilityRange)
}

func TestZeroProbPathsFlag(t *testing.T) {
	g := diamondGraph(t)

	// ups never departs S1 toward I1, so the S1->I1->M path is impossible.
	sc := NewSCGraph(g, nil, nil)
	excluded, err := sc.ExtractPathsByName("S1", []string{"ups"}, false)
	require.NoError(t, err)
	require.Len(t, excluded.Paths, 1)
	assert.Equal(t, []string{"S1", "I2", "M"}, excluded.Paths[0].Path)

	sc = NewSCGraph(g, nil, nil)
	included, err := sc.ExtractPathsByName("S1", []string{"ups"}, true)
	require.NoError(t, err)
	require.Len(t, included.Paths, 2)

	var zeros int
	for _, p := range included.Paths {
		if p.Prob == 0 {
			zeros++
			assert.Equal(t, []string{"S1", "I1", "M"}, p.Path)
		}
	}
	assert.Equal(t, 1, zeros)
}

// End-to-end chain example: one carrier on a single line S1 -> I1 -> M.
func TestSingleChainSingleCarrier(t *testing.T) {
	g, err := NewGraph(
		[]VertexRecord{
			{ID: 1, Name: "S1", Type: SupplierSite, NOrdersByCarrier: carriers("dhl", 10)},
			{ID: 2, Name: "I1", Type: Intermediate, NOrdersByCarrier: carriers("dhl", 10)},
			{ID: 3, Name: "M", Type: Manufacturer},
		},
		[]EdgeRecord{
			{SourceID: 1, TargetID: 2, NOrdersByCarrier: carriers("dhl", 10)},
			{SourceID: 2, TargetID: 3, NOrdersByCarrier: carriers("dhl", 10)},
		},
	)
	require.NoError(t, err)
	sc := NewSCGraph(g, nil, nil)

	result, err := sc.ExtractPathsByName("S1", []string{"dhl"}, false)
	require.NoError(t, err)
	require.Len(t, result.Paths, 1)
	assert.Equal(t, []string{"S1", "I1", "M"}, result.Paths[0].Path)
	assert.InDelta(t, 1.0, result.Paths[0].Prob, Epsilon)
	assert.Equal(t, "dhl", result.Paths[0].Carrier)

	// A carrier with no historical data yields an empty result, and the
	// valid-carriers list tells the caller nothing matched.
	unknown, err := sc.ExtractPathsByName("S1", []string{"fedex"}, false)
	require.NoError(t, err)
	assert.Empty(t, unknown.Paths)
	assert.Empty(t, unknown.ValidCarriers)
	assert.Equal(t, []string{"fedex"}, unknown.RequestedCarriers)
}

func TestExtractPathsByIDSpace(t *testing.T) {
	g := diamondGraph(t)
	sc := NewSCGraph(g, nil, nil)

	result, err := sc.ExtractPathsByID(1, []string{"dhl"}, false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Source)
	assert.Equal(t, 4, result.Destination)
	for _, p := range result.Paths {
		assert.Equal(t, 1, p.Path[0])
		assert.Equal(t, 4, p.Path[len(p.Path)-1])
	}

	_, err = sc.ExtractPathsByID(99, nil, false)
	assert.ErrorIs(t, err, ErrVertexNotFound)
}

func TestPathDPJSONRoundTrip(t *testing.T) {
	g := diamondGraph(t)
	m := NewPathExtractionManager(g, nil)
	source, err := g.VertexByName("S1")
	require.NoError(t, err)

	paths, err := m.ExtractPaths(source.Index)
	require.NoError(t, err)

	blob, err := json.Marshal(m.DP())
	require.NoError(t, err)

	restored := &PathDP{}
	require.NoError(t, json.Unmarshal(blob, restored))
	assert.False(t, restored.Updated(), "a freshly loaded memo is clean")

	warm := NewPathExtractionManager(g, restored)
	again, err := warm.ExtractPaths(source.Index)
	require.NoError(t, err)
	assert.Equal(t, paths, again)
	assert.Zero(t, warm.traversals.Load(), "restored memo must satisfy the query without traversal")
}

func TestPathProbDPJSONRoundTrip(t *testing.T) {
	dp := NewPathProbDP(3)
	require.NoError(t, dp.Add("dhl", 0, 0.25))
	require.NoError(t, dp.Add("dhl", 0, 0.75))

	blob, err := json.Marshal(dp)
	require.NoError(t, err)

	restored := &PathProbDP{}
	require.NoError(t, json.Unmarshal(blob, restored))
	assert.False(t, restored.Updated())

	probs, err := restored.Get("dhl", 0)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.25, 0.75}, probs)
}

func TestDPMergeKeepsBothSides(t *testing.T) {
	local := NewPathProbDP(3)
	require.NoError(t, local.Add("dhl", 0, 0.5))

	remote := NewPathProbDP(3)
	require.NoError(t, remote.Add("ups", 1, 1.0))

	local.MergeFrom(remote)

	dhl, err := local.Get("dhl", 0)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5}, dhl)

	ups, err := local.Get("ups", 1)
	require.NoError(t, err)
	assert.Equal(t, []float64{1.0}, ups)
}

// Several requests sharing one engine over cold memos, the way the server
// and the event worker pool run it. Run with the race detector enabled.
func TestConcurrentExtractionSharedMemos(t *testing.T) {
	g := diamondGraph(t)
	pathDP := NewPathDP(g.VertexCount())
	probDP := NewPathProbDP(g.VertexCount())

	const workers = 8
	results := make([]PathsName, workers)
	errs := make([]error, workers)

	var start, done sync.WaitGroup
	start.Add(1)
	done.Add(workers)
	for i := 0; i < workers; i++ {
		go func(i int) {
			defer done.Done()
			sc := NewSCGraph(g, pathDP, probDP)
			start.Wait()
			results[i], errs[i] = sc.ExtractPathsByName("S1", []string{"dhl", "ups"}, false)
		}(i)
	}
	start.Done()
	done.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, results[0], results[i], "worker %d saw a different result", i)
	}
	assert.InDelta(t, 1.0, results[0].TotalProbability(), Epsilon)
	assert.True(t, pathDP.Updated())
	assert.True(t, probDP.Updated())
}

// Persistence reads the memos while requests keep warming them; the two
// sides must not tear each other's state.
func TestConcurrentPersistenceAndExtraction(t *testing.T) {
	g := diamondGraph(t)
	sc := NewSCGraph(g, nil, nil)
	pathDP := sc.Extraction().DP()
	probDP := sc.Probability().DP()

	var done sync.WaitGroup
	done.Add(2)

	go func() {
		defer done.Done()
		for i := 0; i < 50; i++ {
			if _, err := sc.ExtractPathsByName("S1", []string{"dhl", "ups"}, false); err != nil {
				t.Errorf("extract: %v", err)
				return
			}
		}
	}()
	go func() {
		defer done.Done()
		for i := 0; i < 50; i++ {
			if _, err := json.Marshal(pathDP); err != nil {
				t.Errorf("marshal path memo: %v", err)
				return
			}
			if _, err := json.Marshal(probDP); err != nil {
				t.Errorf("marshal prob memo: %v", err)
				return
			}
			pathDP.MarkClean()
			probDP.MarkClean()
		}
	}()
	done.Wait()

	result, err := sc.ExtractPathsByName("S1", []string{"dhl", "ups"}, false)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, result.TotalProbability(), Epsilon)
}
