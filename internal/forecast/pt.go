package forecast

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"
	"sync"
	"time"

	"shipment-forecast-service/internal/scgraph"
)

// PTInput selects the vertex the shipment currently sits at and the
// candidate carriers for the remaining journey.
type PTInput struct {
	VertexID     int
	CarrierNames []string
}

// PT is the path time estimate: probability-weighted bounds over the
// candidate paths, with the first-hop traffic and weather averages the
// route-time model consumes downstream.
type PT struct {
	Lower  float64
	Upper  float64
	NPaths int
	AvgTMI float64
	AvgWMI float64

	Params  PTParams
	TMIData []TMIRecord
	WMIData []WMIRecord
}

// PTCalculator walks every candidate path from the current vertex to
// the manufacturer and aggregates the per-path travel times by path
// probability.
type PTCalculator struct {
	scGraph   *scgraph.SCGraph
	routeTime *RouteTimeCalculator
	tmi       *TMIManager
	wmi       *WMIManager
	params    PTParams
}

func NewPTCalculator(scGraph *scgraph.SCGraph, routeTime *RouteTimeCalculator, tmi *TMIManager, wmi *WMIManager, params PTParams) *PTCalculator {
	return &PTCalculator{
		scGraph:   scGraph,
		routeTime: routeTime,
		tmi:       tmi,
		wmi:       wmi,
		params:    params,
	}
}

// Empty is the defined zero result for a vertex with no usable path.
func (c *PTCalculator) Empty() PT {
	return PT{Params: c.params, TMIData: []TMIRecord{}, WMIData: []WMIRecord{}}
}

func (c *PTCalculator) computeTMI(ctx context.Context, prob float64, s, d *scgraph.Vertex, e *scgraph.Edge, estimationTime, currentTime time.Time) TMIValue {
	if prob < c.params.ExtDataMinProbability {
		return TMIValue{}
	}
	return c.tmi.CalculateTMI(ctx, TMIQuery{
		Source:                 s,
		Destination:            d,
		RouteGeodesicDistance:  e.DistanceKm,
		RouteAverageTime:       e.AvgOTI,
		ShipmentEstimationTime: estimationTime,
		DepartureTime:          currentTime,
	})
}

func (c *PTCalculator) computeWMI(ctx context.Context, prob float64, s, d *scgraph.Vertex, e *scgraph.Edge, estimationTime, currentTime time.Time) WMIValue {
	if prob < c.params.ExtDataMinProbability {
		return WMIValue{}
	}
	return c.wmi.CalculateWMI(ctx, WMIQuery{
		Source:                 s,
		Destination:            d,
		RouteAverageTime:       e.AvgOTI,
		ShipmentEstimationTime: estimationTime,
		DepartureTime:          currentTime,
	})
}

// vertexTime is the handling time at a vertex. Only intermediate hubs
// hold shipments; the first vertex's handling is reduced by the time
// already spent there.
func vertexTime(v *scgraph.Vertex, eventTime, currentTime time.Time, firstVertex bool) (lower, upper float64) {
	if v.Type != scgraph.Intermediate {
		return 0, 0
	}
	vt := CalculateVertexTime(v.AvgORI)
	lower, upper = vt.Lower, vt.Upper
	if firstVertex {
		elapsed := hoursBetween(eventTime, currentTime)
		lower = math.Max(lower-elapsed, 0)
		upper = math.Max(upper-elapsed, 0)
	}
	return lower, upper
}

type pathTimeResult struct {
	lower    float64
	upper    float64
	startTMI float64
	startWMI float64
}

// pathTime walks one path, accumulating vertex handling and leg travel
// times. The wall clock advances by the midpoint after each step so
// the traffic and weather lookups see realistic departure times.
func (c *PTCalculator) pathTime(ctx context.Context, path []int, prob float64, eventTime, estimationTime time.Time) (pathTimeResult, error) {
	g := c.scGraph.Graph()

	var result pathTimeResult
	currentTime := estimationTime

	for i := 0; i < len(path)-1; i++ {
		s, err := g.VertexByID(path[i])
		if err != nil {
			return pathTimeResult{}, fmt.Errorf("pt: path vertex %d: %w", path[i], err)
		}
		d, err := g.VertexByID(path[i+1])
		if err != nil {
			return pathTimeResult{}, fmt.Errorf("pt: path vertex %d: %w", path[i+1], err)
		}
		e := g.EdgeBetween(s.Index, d.Index)
		if e == nil {
			return pathTimeResult{}, fmt.Errorf("pt: no edge from vertex %d to vertex %d", path[i], path[i+1])
		}

		l, u := vertexTime(s, eventTime, currentTime, i == 0)
		result.lower += l
		result.upper += u
		currentTime = currentTime.Add(time.Duration((l + u) / 2.0 * float64(time.Hour)))

		tmi := c.computeTMI(ctx, prob, s, d, e, estimationTime, currentTime)
		wmi := c.computeWMI(ctx, prob, s, d, e, estimationTime, currentTime)
		if i == 0 {
			result.startTMI = tmi.Value
			result.startWMI = wmi.Value
		}

		rt := c.routeTime.Calculate(ctx, RouteTimeInput{
			SourceLatitude:       s.Latitude,
			SourceLongitude:      s.Longitude,
			DestinationLatitude:  d.Latitude,
			DestinationLongitude: d.Longitude,
			DistanceKm:           e.DistanceKm,
			TMI:                  tmi,
			AvgTMI:               e.AvgTMI,
			WMI:                  wmi,
			AvgWMI:               e.AvgWMI,
			AvgOTI:               e.AvgOTI,
		}, c.params.Confidence)
		result.lower += rt.Lower
		result.upper += rt.Upper
		currentTime = currentTime.Add(time.Duration((rt.Lower + rt.Upper) / 2.0 * float64(time.Hour)))
	}

	last, err := g.VertexByID(path[len(path)-1])
	if err != nil {
		return pathTimeResult{}, fmt.Errorf("pt: path vertex %d: %w", path[len(path)-1], err)
	}
	l, u := vertexTime(last, eventTime, currentTime, len(path) == 1)
	result.lower += l
	result.upper += u

	return result, nil
}

type scoredPath struct {
	path []int
	prob float64
	pathTimeResult
}

// calculateRemaining extracts, filters, and walks the candidate paths,
// then combines them by probability.
func (c *PTCalculator) calculateRemaining(ctx context.Context, input PTInput, eventTime, estimationTime time.Time) (PT, error) {
	if _, err := c.scGraph.Graph().VertexByID(input.VertexID); err != nil {
		return PT{}, fmt.Errorf("pt: resolve vertex %d: %w", input.VertexID, err)
	}

	allPaths, err := c.scGraph.ExtractPathsByID(input.VertexID, input.CarrierNames, false)
	if err != nil {
		return PT{}, fmt.Errorf("pt: extract paths for vertex %d: %w", input.VertexID, err)
	}

	filtered := make([]scgraph.ProbPathID, 0, len(allPaths.Paths))
	for _, p := range allPaths.Paths {
		if p.Prob >= c.params.PathMinProbability {
			filtered = append(filtered, p)
		}
	}
	if len(filtered) == 0 {
		log.Printf("pt: no path with prob>=%f vertex=%d", c.params.PathMinProbability, input.VertexID)
		return c.Empty(), nil
	}

	if len(filtered) > c.params.MaxPaths {
		sort.SliceStable(filtered, func(i, j int) bool { return filtered[i].Prob > filtered[j].Prob })
		filtered = filtered[:c.params.MaxPaths]
	}

	if len(filtered) < len(allPaths.Paths) {
		var totalProb float64
		for _, p := range filtered {
			totalProb += p.Prob
		}
		for i := range filtered {
			filtered[i].Prob /= totalProb
		}
	}

	// Paths have no data dependency on each other; walk them
	// concurrently.
	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		successful []scoredPath
		failedProb float64
		nFailed    int
	)
	for _, p := range filtered {
		wg.Add(1)
		go func(p scgraph.ProbPathID) {
			defer wg.Done()
			result, err := c.pathTime(ctx, p.Path, p.Prob, eventTime, estimationTime)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Printf("pt: path time failed path=%v prob=%f err=%v", p.Path, p.Prob, err)
				failedProb += p.Prob
				nFailed++
				return
			}
			successful = append(successful, scoredPath{path: p.Path, prob: p.Prob, pathTimeResult: result})
		}(p)
	}
	wg.Wait()

	if len(successful) == 0 {
		if nFailed > 0 {
			log.Printf("pt: all %d paths failed vertex=%d", nFailed, input.VertexID)
		}
		return c.Empty(), nil
	}
	if nFailed > 0 {
		// Redistribute the failed probability mass over the survivors.
		for i := range successful {
			successful[i].prob /= 1.0 - failedProb
		}
	}

	var lower, upper, avgTMI, avgWMI float64
	for _, sp := range successful {
		lower += sp.prob * sp.lower
		upper += sp.prob * sp.upper
		avgTMI += sp.prob * sp.startTMI
		avgWMI += sp.prob * sp.startWMI
	}

	return PT{
		Lower:  lower,
		Upper:  upper,
		NPaths: len(successful),
		AvgTMI: avgTMI,
		AvgWMI: avgWMI,
		Params: c.params,
	}, nil
}

// Calculate computes the remaining path time from the shipment's
// current vertex and attaches the traffic and weather observations
// gathered along the way.
func (c *PTCalculator) Calculate(ctx context.Context, input PTInput, ts TimeSequence) (PT, error) {
	c.tmi.Reset()
	c.wmi.Reset()

	pt, err := c.calculateRemaining(ctx, input, ts.ShipmentEventTime(), ts.ShipmentEstimationTime())
	if err != nil {
		return PT{}, err
	}

	pt.TMIData = c.tmi.Records()
	pt.WMIData = c.wmi.Records()
	return pt, nil
}
