package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"shipment-forecast-service/internal/domain"
	"shipment-forecast-service/internal/forecast"
	"shipment-forecast-service/internal/platform/obs"
	"shipment-forecast-service/internal/ports"
	"shipment-forecast-service/internal/scgraph"
)

// OrderEstimationRequest asks for a forecast of a tracked order at the
// vertex where its latest carrier event was observed.
type OrderEstimationRequest struct {
	OrderID        int
	Vertex         VertexRef
	EventTime      time.Time
	EstimationTime time.Time
}

// VertexEstimationRequest asks for a volatile forecast at an arbitrary
// vertex for a hypothetical order. Nothing is persisted except the path
// memos warmed along the way.
type VertexEstimationRequest struct {
	Vertex         VertexRef
	CarrierID      *int
	CarrierName    string
	SiteID         int
	OrderTime      time.Time
	EventTime      time.Time
	EstimationTime time.Time
	ShipmentTime   *time.Time
}

// EstimationService runs the forecast pipeline against the live graph
// and the historical distributions, persists order estimations, and
// keeps the durable path memos fresh.
type EstimationService struct {
	scGraph       *scgraph.SCGraph
	resolver      *VertexResolver
	orders        ports.OrderRepository
	distributions ports.DistributionRepository
	holidays      ports.HolidayRepository
	traffic       ports.TrafficService
	weather       ports.WeatherService
	routeModel    ports.RouteTimeModel
	estimations   ports.EstimationStore
	dpStore       ports.DPStore
	params        func() *forecast.Params
}

func NewEstimationService(
	scGraph *scgraph.SCGraph,
	resolver *VertexResolver,
	orders ports.OrderRepository,
	distributions ports.DistributionRepository,
	holidays ports.HolidayRepository,
	traffic ports.TrafficService,
	weather ports.WeatherService,
	routeModel ports.RouteTimeModel,
	estimations ports.EstimationStore,
	dpStore ports.DPStore,
	params func() *forecast.Params,
) *EstimationService {
	return &EstimationService{
		scGraph:       scGraph,
		resolver:      resolver,
		orders:        orders,
		distributions: distributions,
		holidays:      holidays,
		traffic:       traffic,
		weather:       weather,
		routeModel:    routeModel,
		estimations:   estimations,
		dpStore:       dpStore,
		params:        params,
	}
}

// pipeline is one fully wired executor. Calculators are rebuilt per
// request so hot-reloaded parameters take effect and the TMI/WMI
// managers collect only this run's observations.
type pipeline struct {
	executor *forecast.Executor
	tmi      *forecast.TMIManager
	wmi      *forecast.WMIManager
}

func (s *EstimationService) newPipeline(p forecast.Params) (pipeline, error) {
	alpha, err := forecast.NewAlphaCalculator(p.TFST.Alpha)
	if err != nil {
		return pipeline{}, fmt.Errorf("build pipeline: %w", err)
	}

	holidayCalc := forecast.NewHolidayCalculator(p.DT.Holidays, s.holidays)
	dt := forecast.NewDTCalculator(holidayCalc, p.DT.Confidence)

	tmi := forecast.NewTMIManager(s.traffic, forecast.TMICalculator{
		Speed:    p.TFST.PT.TMI.Speed,
		Distance: p.TFST.PT.TMI.Distance,
	}, p.TFST.PT.TMI)
	wmi := forecast.NewWMIManager(s.weather, forecast.NewWMICalculator(), p.TFST.PT.WMI)

	estimator := forecast.NewRouteTimeEstimator(s.routeModel, p.TFST.PT.RTEstimator.UseModel)
	routeTime := forecast.NewRouteTimeCalculator(estimator, p.TFST.PT.RTEstimator.ModelMAPE)
	pt := forecast.NewPTCalculator(s.scGraph, routeTime, tmi, wmi, p.TFST.PT)

	tt := forecast.TTCalculator{Confidence: p.TFST.TT.Confidence}
	tfst := forecast.NewTFSTExecutor(alpha, pt, tt, p.Parallelization, p.TFST.Tolerance)

	deviation := forecast.TimeDeviationCalculator{
		DTConfidence: p.TimeDeviation.DTConfidence,
		STConfidence: p.TimeDeviation.STConfidence,
	}

	return pipeline{
		executor: forecast.NewExecutor(dt, tfst, deviation),
		tmi:      tmi,
		wmi:      wmi,
	}, nil
}

// orderStatus derives the lifecycle status from the current vertex and
// the shipment observation.
func orderStatus(vertex *scgraph.Vertex, shipped bool) domain.OrderStatus {
	switch {
	case vertex.Type == scgraph.Manufacturer:
		return domain.StatusDelivered
	case !shipped:
		return domain.StatusPending
	default:
		return domain.StatusInTransit
	}
}

type runInput struct {
	siteID         int
	carrier        domain.Carrier
	vertex         *scgraph.Vertex
	orderTime      time.Time
	eventTime      time.Time
	estimationTime time.Time
	shipmentTime   *time.Time
}

// run executes the pipeline once and maps the result onto a flat
// estimation record. The caller decides whether to persist it.
func (s *EstimationService) run(ctx context.Context, in runInput) (domain.Estimation, error) {
	tsInput, err := forecast.NewTimeSequenceInput(in.orderTime, in.eventTime, in.estimationTime)
	if err != nil {
		return domain.Estimation{}, fmt.Errorf("estimate: %w", err)
	}

	dispatchDist, err := s.distributions.DispatchTime(ctx, in.siteID)
	if err != nil {
		return domain.Estimation{}, fmt.Errorf("estimate: dispatch distribution: %w", err)
	}
	shipmentDist, err := s.distributions.ShipmentTime(ctx, in.siteID, in.carrier.ID)
	if err != nil {
		return domain.Estimation{}, fmt.Errorf("estimate: shipment distribution: %w", err)
	}

	p := *s.params()
	if p.TFST.Alpha.AlphaType == forecast.AlphaTypeExp {
		weight, err := s.distributions.TTWeight(ctx, in.siteID, in.carrier.ID)
		switch {
		case err == nil:
			p.TFST.Alpha.ExpTTWeight = weight
		case errors.Is(err, ports.ErrNotFound):
			log.Printf("op=estimate site_id=%d carrier_id=%d msg=\"no optimized tt weight, using default %.3f\"",
				in.siteID, in.carrier.ID, p.TFST.Alpha.ExpTTWeight)
		default:
			return domain.Estimation{}, fmt.Errorf("estimate: tt weight: %w", err)
		}
	}

	pipe, err := s.newPipeline(p)
	if err != nil {
		return domain.Estimation{}, fmt.Errorf("estimate: %w", err)
	}

	var dtInput forecast.DTInput
	if in.shipmentTime != nil {
		dtInput = forecast.DTShipmentTimeInput{SiteID: in.siteID, ShipmentTime: *in.shipmentTime}
	} else {
		dtInput = forecast.DTDistributionInput{SiteID: in.siteID, Distribution: dispatchDist}
	}

	vertexID := in.vertex.ID
	result, err := pipe.executor.Execute(ctx, forecast.ExecutorInput{
		TimeSequence: tsInput,
		DT:           dtInput,
		TFST: forecast.TFSTInput{
			Alpha: forecast.AlphaInput{STDistribution: shipmentDist, VertexID: &vertexID},
			PT:    forecast.PTInput{VertexID: in.vertex.ID, CarrierNames: []string{in.carrier.Name}},
			TT:    shipmentDist,
		},
		TimeDeviation: forecast.TimeDeviationInput{
			DTDistribution: dispatchDist,
			STDistribution: shipmentDist,
		},
	})
	if err != nil {
		return domain.Estimation{}, fmt.Errorf("estimate: %w", err)
	}

	est := mapEstimation(in, result)
	est.Status = orderStatus(in.vertex, in.shipmentTime != nil)
	return est, nil
}

func mapEstimation(in runInput, r forecast.ExecutorResult) domain.Estimation {
	est := domain.Estimation{
		VertexID: in.vertex.ID,

		OrderTime:      r.TimeSequence.OrderTime,
		ShipmentTime:   r.TimeSequence.ShipmentTime,
		EventTime:      r.TimeSequence.EventTime,
		EstimationTime: r.TimeSequence.EstimationTime,
		Stage:          string(r.TimeSequence.Stage()),

		AlphaType:  string(r.TFST.Alpha.Type),
		AlphaInput: r.TFST.Alpha.Input,
		AlphaValue: r.TFST.Alpha.Value,
		TTWeight:   r.TFST.Alpha.TTWeight,
		Tau:        r.TFST.Alpha.Tau,

		DTLowerHours: r.DT.TotalTimeLower(),
		DTHours:      r.DT.TotalTime(),
		DTUpperHours: r.DT.TotalTimeUpper(),

		PTLowerHours: r.TFST.PT.Lower,
		PTUpperHours: r.TFST.PT.Upper,
		PTNPaths:     r.TFST.PT.NPaths,
		AvgTMI:       r.TFST.PT.AvgTMI,
		AvgWMI:       r.TFST.PT.AvgWMI,

		TTLowerHours: r.TFST.TT.Lower,
		TTUpperHours: r.TFST.TT.Upper,
		TTConfidence: r.TFST.TT.Confidence,

		TFSTLowerHours: r.TFST.TFST.Lower,
		TFSTUpperHours: r.TFST.TFST.Upper,

		ESTHours:  r.EST.Value,
		CFDILower: r.CFDI.Lower,
		CFDIUpper: r.CFDI.Upper,
		EODTHours: r.EODT.Value,
		EDD:       r.EDD.Value,

		DTDeviationLower: r.TimeDeviation.DTLower,
		DTDeviationUpper: r.TimeDeviation.DTUpper,
		STDeviationLower: r.TimeDeviation.STLower,
		STDeviationUpper: r.TimeDeviation.STUpper,
		DTConfidence:     r.TimeDeviation.DTConfidence,
		STConfidence:     r.TimeDeviation.STConfidence,
	}

	for _, rec := range r.TFST.PT.TMIData {
		est.Traffic = append(est.Traffic, domain.TrafficObservation{
			SourceID:        rec.SourceID,
			SourceName:      rec.SourceName,
			DestinationID:   rec.DestinationID,
			DestinationName: rec.DestinationName,
			Mode:            string(rec.Mode),
			Value:           rec.Value,
			DistanceKm:      rec.DistanceGeodesicKm,
			RoadDistanceKm:  rec.DistanceRoadKm,
			NoTrafficHours:  rec.TimeRoadNoTrafficHours,
			TrafficHours:    rec.TimeRoadWithTrafficHours,
			Timestamp:       rec.Timestamp,
		})
	}
	for _, rec := range r.TFST.PT.WMIData {
		est.Weather = append(est.Weather, domain.WeatherObservation{
			SourceID:        rec.SourceID,
			SourceName:      rec.SourceName,
			DestinationID:   rec.DestinationID,
			DestinationName: rec.DestinationName,
			Value:           rec.Value,
			WeatherCode:     rec.WeatherCode,
			Description:     rec.WeatherDescription,
			Temperature:     rec.TemperatureCelsius,
			By:              string(rec.By),
			NPoints:         rec.NInterpolationPoints,
			StepDistanceKm:  rec.StepDistanceKm,
			Timestamp:       rec.Timestamp,
		})
	}
	return est
}

// persistDP flushes the path memos warmed by a run. A failed flush only
// loses cached work, so it is logged rather than surfaced.
func (s *EstimationService) persistDP(ctx context.Context) {
	if err := s.dpStore.SavePathDP(ctx, s.scGraph.Extraction().DP(), false); err != nil {
		log.Printf("op=estimate msg=\"save path memo\" err=%q", err)
	}
	if err := s.dpStore.SaveProbDP(ctx, s.scGraph.Probability().DP(), false); err != nil {
		log.Printf("op=estimate msg=\"save probability memo\" err=%q", err)
	}
}

// EstimateOrder runs and persists a forecast for a tracked order.
func (s *EstimationService) EstimateOrder(ctx context.Context, req OrderEstimationRequest) (est domain.Estimation, err error) {
	start := time.Now()
	defer func() {
		obs.EstimationDuration.Observe(time.Since(start).Seconds())
		status := "ok"
		if err != nil {
			status = "error"
		}
		obs.EstimationsTotal.WithLabelValues(status).Inc()
	}()

	order, err := s.orders.Order(ctx, req.OrderID)
	if err != nil {
		return domain.Estimation{}, fmt.Errorf("estimate order %d: %w", req.OrderID, err)
	}
	carrier, err := s.orders.Carrier(ctx, order.CarrierID)
	if err != nil {
		return domain.Estimation{}, fmt.Errorf("estimate order %d: %w", req.OrderID, err)
	}

	vertex, err := s.resolver.Resolve(ctx, req.Vertex)
	if err != nil {
		return domain.Estimation{}, fmt.Errorf("estimate order %d: %w", req.OrderID, err)
	}

	est, err = s.run(ctx, runInput{
		siteID:         order.SiteID,
		carrier:        carrier,
		vertex:         vertex,
		orderTime:      order.OrderTime,
		eventTime:      req.EventTime,
		estimationTime: req.EstimationTime,
		shipmentTime:   order.ShipmentTime,
	})
	s.persistDP(ctx)
	if err != nil {
		return domain.Estimation{}, fmt.Errorf("estimate order %d: %w", req.OrderID, err)
	}

	est.OrderID = order.ID
	id, err := s.estimations.Save(ctx, est)
	if err != nil {
		return domain.Estimation{}, fmt.Errorf("estimate order %d: save: %w", req.OrderID, err)
	}
	est.ID = id

	log.Printf("op=estimate order_id=%d vertex_id=%d stage=%s est_hours=%.2f edd=%s",
		order.ID, vertex.ID, est.Stage, est.ESTHours, est.EDD.Format(time.RFC3339))
	return est, nil
}

// EstimateVertex runs a volatile forecast at an arbitrary vertex. The
// record is returned but not stored.
func (s *EstimationService) EstimateVertex(ctx context.Context, req VertexEstimationRequest) (est domain.Estimation, err error) {
	start := time.Now()
	defer func() {
		obs.EstimationDuration.Observe(time.Since(start).Seconds())
		status := "ok"
		if err != nil {
			status = "error"
		}
		obs.EstimationsTotal.WithLabelValues(status).Inc()
	}()

	var carrier domain.Carrier
	if req.CarrierID != nil {
		carrier, err = s.orders.Carrier(ctx, *req.CarrierID)
	} else {
		carrier, err = s.orders.CarrierByName(ctx, req.CarrierName)
	}
	if err != nil {
		return domain.Estimation{}, fmt.Errorf("estimate vertex: %w", err)
	}

	vertex, err := s.resolver.Resolve(ctx, req.Vertex)
	if err != nil {
		return domain.Estimation{}, fmt.Errorf("estimate vertex: %w", err)
	}

	est, err = s.run(ctx, runInput{
		siteID:         req.SiteID,
		carrier:        carrier,
		vertex:         vertex,
		orderTime:      req.OrderTime,
		eventTime:      req.EventTime,
		estimationTime: req.EstimationTime,
		shipmentTime:   req.ShipmentTime,
	})
	s.persistDP(ctx)
	if err != nil {
		return domain.Estimation{}, fmt.Errorf("estimate vertex: %w", err)
	}
	return est, nil
}
