package forecast

import (
	"context"
	"log"

	"shipment-forecast-service/internal/platform/obs"
	"shipment-forecast-service/internal/ports"
)

// RouteTimeInput is the feature set of one leg for the route-time
// prediction model.
type RouteTimeInput struct {
	SourceLatitude       float64
	SourceLongitude      float64
	DestinationLatitude  float64
	DestinationLongitude float64
	DistanceKm           float64
	TMI                  TMIValue
	AvgTMI               float64
	WMI                  WMIValue
	AvgWMI               float64
	AvgOTI               float64
}

// RouteTime is the predicted travel time bounds for one leg in hours.
type RouteTime struct {
	Lower float64
	Upper float64
}

// RouteTimeEstimator batches leg predictions against the external
// route-time model. Legs without live TMI/WMI data, a disabled model,
// and upstream failures all fall back to the historical average OTI.
type RouteTimeEstimator struct {
	model    ports.RouteTimeModel
	useModel bool
}

func NewRouteTimeEstimator(model ports.RouteTimeModel, useModel bool) *RouteTimeEstimator {
	return &RouteTimeEstimator{model: model, useModel: useModel}
}

// Predict returns one predicted time per input, in input order.
func (e *RouteTimeEstimator) Predict(ctx context.Context, inputs []RouteTimeInput) []float64 {
	predictions := make([]float64, len(inputs))

	if !e.useModel {
		for i, input := range inputs {
			predictions[i] = input.AvgOTI
		}
		return predictions
	}

	var (
		queries []ports.RouteTimeQuery
		indices []int
	)
	for i, input := range inputs {
		if !input.TMI.Computed || !input.WMI.Computed {
			predictions[i] = input.AvgOTI
			continue
		}
		queries = append(queries, ports.RouteTimeQuery{
			SourceLatitude:       input.SourceLatitude,
			SourceLongitude:      input.SourceLongitude,
			DestinationLatitude:  input.DestinationLatitude,
			DestinationLongitude: input.DestinationLongitude,
			DistanceKm:           input.DistanceKm,
			TMI:                  input.TMI.Value,
			AvgTMI:               input.AvgTMI,
			WMI:                  input.WMI.Value,
			AvgWMI:               input.AvgWMI,
			AvgOTI:               input.AvgOTI,
		})
		indices = append(indices, i)
	}
	if len(queries) == 0 {
		return predictions
	}

	times, err := e.model.EstimateRouteTimes(ctx, queries)
	if err != nil || len(times) != len(queries) {
		obs.UpstreamFallbacks.WithLabelValues("route_time").Inc()
		if err != nil {
			log.Printf("route time: model estimation failed n=%d err=%v", len(queries), err)
		} else {
			log.Printf("route time: model returned %d estimates for %d queries", len(times), len(queries))
		}
		for i, idx := range indices {
			predictions[idx] = queries[i].AvgOTI
		}
		return predictions
	}

	for i, idx := range indices {
		predictions[idx] = times[i]
	}
	return predictions
}

// RouteTimeCalculator turns a model point estimate into bounds widened
// by the model's mean absolute percentage error at the requested
// confidence.
type RouteTimeCalculator struct {
	estimator *RouteTimeEstimator
	mape      float64
}

func NewRouteTimeCalculator(estimator *RouteTimeEstimator, mape float64) *RouteTimeCalculator {
	return &RouteTimeCalculator{estimator: estimator, mape: mape}
}

func (c *RouteTimeCalculator) Calculate(ctx context.Context, input RouteTimeInput, confidence float64) RouteTime {
	estimated := c.estimator.Predict(ctx, []RouteTimeInput{input})[0]
	return RouteTime{
		Lower: estimated * (1 - confidence*c.mape),
		Upper: estimated * (1 + confidence*c.mape),
	}
}
