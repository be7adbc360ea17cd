package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"shipment-forecast-service/internal/domain"
	"shipment-forecast-service/internal/forecast"
	"shipment-forecast-service/internal/ports"
	"shipment-forecast-service/internal/scgraph"
	"shipment-forecast-service/internal/stats"
)

type fakeOrderRepo struct {
	order   domain.Order
	carrier domain.Carrier
}

func (r *fakeOrderRepo) Order(ctx context.Context, orderID int) (domain.Order, error) {
	if orderID != r.order.ID {
		return domain.Order{}, fmt.Errorf("get order: %w: id %d", ports.ErrNotFound, orderID)
	}
	return r.order, nil
}

func (r *fakeOrderRepo) Site(ctx context.Context, siteID int) (domain.Site, error) {
	return domain.Site{ID: siteID}, nil
}

func (r *fakeOrderRepo) Supplier(ctx context.Context, supplierID int) (domain.Supplier, error) {
	return domain.Supplier{ID: supplierID}, nil
}

func (r *fakeOrderRepo) Carrier(ctx context.Context, carrierID int) (domain.Carrier, error) {
	if carrierID != r.carrier.ID {
		return domain.Carrier{}, fmt.Errorf("get carrier: %w: id %d", ports.ErrNotFound, carrierID)
	}
	return r.carrier, nil
}

func (r *fakeOrderRepo) CarrierByName(ctx context.Context, name string) (domain.Carrier, error) {
	if name != r.carrier.Name {
		return domain.Carrier{}, fmt.Errorf("get carrier: %w: name %q", ports.ErrNotFound, name)
	}
	return r.carrier, nil
}

func (r *fakeOrderRepo) CarriersWithOrders(ctx context.Context) ([]domain.Carrier, error) {
	return []domain.Carrier{r.carrier}, nil
}

func (r *fakeOrderRepo) Manufacturer(ctx context.Context) (domain.Manufacturer, error) {
	return domain.Manufacturer{ID: 1, Name: "Plant"}, nil
}

type fakeDistributionRepo struct {
	dispatch  stats.Distribution
	shipment  stats.Distribution
	weight    float64
	weightErr error
}

func (r *fakeDistributionRepo) DispatchTime(ctx context.Context, siteID int) (stats.Distribution, error) {
	return r.dispatch, nil
}

func (r *fakeDistributionRepo) ShipmentTime(ctx context.Context, siteID, carrierID int) (stats.Distribution, error) {
	return r.shipment, nil
}

func (r *fakeDistributionRepo) TTWeight(ctx context.Context, siteID, carrierID int) (float64, error) {
	return r.weight, r.weightErr
}

type fakeEstimationStore struct {
	saved []domain.Estimation
}

func (s *fakeEstimationStore) Save(ctx context.Context, est domain.Estimation) (int, error) {
	est.ID = len(s.saved) + 1
	s.saved = append(s.saved, est)
	return est.ID, nil
}

func (s *fakeEstimationStore) EstimationsByOrders(ctx context.Context, orderIDs []int) ([]domain.Estimation, error) {
	return s.saved, nil
}

type fakeDPStore struct {
	pathSaves int
	probSaves int
}

func (s *fakeDPStore) LoadPathDP(ctx context.Context, n int) (*scgraph.PathDP, error) {
	return nil, nil
}

func (s *fakeDPStore) LoadProbDP(ctx context.Context, n int) (*scgraph.PathProbDP, error) {
	return nil, nil
}

func (s *fakeDPStore) SavePathDP(ctx context.Context, dp *scgraph.PathDP, force bool) error {
	if !dp.Updated() && !force {
		return nil
	}
	s.pathSaves++
	dp.MarkClean()
	return nil
}

func (s *fakeDPStore) SaveProbDP(ctx context.Context, dp *scgraph.PathProbDP, force bool) error {
	if !dp.Updated() && !force {
		return nil
	}
	s.probSaves++
	dp.MarkClean()
	return nil
}

func estimationTestSCGraph(t *testing.T) *scgraph.SCGraph {
	t.Helper()
	g, err := scgraph.NewGraph(
		[]scgraph.VertexRecord{
			{ID: 1, Name: "Site A", Type: scgraph.SupplierSite, NOrders: 5, NOrdersByCarrier: map[string]int{"ups": 5}},
			{ID: 2, Name: "Hub", Type: scgraph.Intermediate, AvgORI: 2, NOrders: 5, NOrdersByCarrier: map[string]int{"ups": 5}},
			{ID: 3, Name: "Plant", Type: scgraph.Manufacturer},
		},
		[]scgraph.EdgeRecord{
			{SourceID: 1, TargetID: 2, NOrders: 5, NOrdersByCarrier: map[string]int{"ups": 5}, AvgOTI: 10},
			{SourceID: 2, TargetID: 3, NOrders: 5, NOrdersByCarrier: map[string]int{"ups": 5}, AvgOTI: 20},
		},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return scgraph.NewSCGraph(g, nil, nil)
}

func estimationTestParams() *forecast.Params {
	return &forecast.Params{
		DT: forecast.DTParams{Confidence: 0.8},
		TFST: forecast.TFSTParams{
			Alpha: forecast.AlphaParams{AlphaType: forecast.AlphaTypeConst, ConstAlphaValue: 0.5},
			PT: forecast.PTParams{
				RTEstimator:           forecast.RTEstimatorParams{UseModel: false},
				PathMinProbability:    0.1,
				MaxPaths:              5,
				ExtDataMinProbability: 0.5,
				Confidence:            0.95,
			},
			TT:        forecast.TTParams{Confidence: 0.8},
			Tolerance: 0,
		},
		TimeDeviation: forecast.TimeDeviationParams{DTConfidence: 0.8, STConfidence: 0.8},
	}
}

func newTestEstimationService(sg *scgraph.SCGraph, orders *fakeOrderRepo, store *fakeEstimationStore, dpStore *fakeDPStore) *EstimationService {
	params := estimationTestParams()
	dists := &fakeDistributionRepo{
		dispatch: stats.Sample{X: []float64{12}, Mean: 12},
		shipment: stats.Sample{X: []float64{30}, Mean: 30},
	}
	resolver := NewVertexResolver(sg.Graph(), &fakeLocationRepo{}, nil)
	return NewEstimationService(sg, resolver, orders, dists, nil, nil, nil, nil,
		store, dpStore, func() *forecast.Params { return params })
}

func closeTo(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestEstimateOrderInTransit(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	shipped := base.Add(6 * time.Hour)

	orders := &fakeOrderRepo{
		order: domain.Order{
			ID: 41, SiteID: 1, CarrierID: 2,
			OrderTime:    base,
			ShipmentTime: &shipped,
			Status:       domain.StatusInTransit,
		},
		carrier: domain.Carrier{ID: 2, Name: "ups"},
	}
	store := &fakeEstimationStore{}
	dpStore := &fakeDPStore{}
	svc := newTestEstimationService(estimationTestSCGraph(t), orders, store, dpStore)

	id := 2
	est, err := svc.EstimateOrder(context.Background(), OrderEstimationRequest{
		OrderID:        41,
		Vertex:         VertexRef{ID: &id},
		EventTime:      base.Add(8 * time.Hour),
		EstimationTime: base.Add(10 * time.Hour),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if est.Status != domain.StatusInTransit {
		t.Fatalf("status = %s, want IN_TRANSIT", est.Status)
	}
	if est.Stage != "shipment" {
		t.Fatalf("stage = %q, want shipment", est.Stage)
	}
	if est.OrderID != 41 || est.VertexID != 2 {
		t.Fatalf("order/vertex = %d/%d, want 41/2", est.OrderID, est.VertexID)
	}

	// Shipped order: dispatch time is the six observed hours.
	if !closeTo(est.DTHours, 6) {
		t.Fatalf("dt = %f, want 6", est.DTHours)
	}
	// Hub handling (2h) is consumed by the two hours since the event;
	// the remaining path is the 20h leg to the plant.
	if !closeTo(est.PTLowerHours, 20) || !closeTo(est.PTUpperHours, 20) {
		t.Fatalf("pt = [%f, %f], want [20, 20]", est.PTLowerHours, est.PTUpperHours)
	}
	if est.PTNPaths != 1 {
		t.Fatalf("n paths = %d, want 1", est.PTNPaths)
	}
	// Historical shipment time 30h minus four hours already in transit.
	if !closeTo(est.TTLowerHours, 26) || !closeTo(est.TTUpperHours, 26) {
		t.Fatalf("tt = [%f, %f], want [26, 26]", est.TTLowerHours, est.TTUpperHours)
	}
	// Even blend of PT 20 and TT 26.
	if !closeTo(est.ESTHours, 23) {
		t.Fatalf("est = %f, want 23", est.ESTHours)
	}
	// 6h dispatch + 4h in transit + 23h remaining.
	if !closeTo(est.EODTHours, 33) {
		t.Fatalf("eodt = %f, want 33", est.EODTHours)
	}
	if want := base.Add(33 * time.Hour); !est.EDD.Equal(want) {
		t.Fatalf("edd = %s, want %s", est.EDD, want)
	}

	if len(store.saved) != 1 || est.ID != 1 {
		t.Fatalf("saved %d records, id %d; want one record with id 1", len(store.saved), est.ID)
	}
	if dpStore.pathSaves != 1 || dpStore.probSaves != 1 {
		t.Fatalf("dp saves = %d/%d, want 1/1", dpStore.pathSaves, dpStore.probSaves)
	}
}

func TestEstimateOrderMemoReuse(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	shipped := base.Add(6 * time.Hour)

	orders := &fakeOrderRepo{
		order: domain.Order{
			ID: 41, SiteID: 1, CarrierID: 2,
			OrderTime:    base,
			ShipmentTime: &shipped,
		},
		carrier: domain.Carrier{ID: 2, Name: "ups"},
	}
	dpStore := &fakeDPStore{}
	svc := newTestEstimationService(estimationTestSCGraph(t), orders, &fakeEstimationStore{}, dpStore)

	id := 2
	req := OrderEstimationRequest{
		OrderID:        41,
		Vertex:         VertexRef{ID: &id},
		EventTime:      base.Add(8 * time.Hour),
		EstimationTime: base.Add(10 * time.Hour),
	}
	for i := 0; i < 2; i++ {
		if _, err := svc.EstimateOrder(context.Background(), req); err != nil {
			t.Fatalf("run %d: unexpected error: %v", i, err)
		}
	}

	// The second run is served from the warmed memos and writes nothing.
	if dpStore.pathSaves != 1 || dpStore.probSaves != 1 {
		t.Fatalf("dp saves = %d/%d, want 1/1", dpStore.pathSaves, dpStore.probSaves)
	}
}

func TestEstimateOrderBadTimeSequence(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	orders := &fakeOrderRepo{
		order:   domain.Order{ID: 41, SiteID: 1, CarrierID: 2, OrderTime: base},
		carrier: domain.Carrier{ID: 2, Name: "ups"},
	}
	svc := newTestEstimationService(estimationTestSCGraph(t), orders, &fakeEstimationStore{}, &fakeDPStore{})

	id := 2
	_, err := svc.EstimateOrder(context.Background(), OrderEstimationRequest{
		OrderID:        41,
		Vertex:         VertexRef{ID: &id},
		EventTime:      base.Add(10 * time.Hour),
		EstimationTime: base.Add(8 * time.Hour),
	})
	if !errors.Is(err, forecast.ErrBadTimeSequence) {
		t.Fatalf("error = %v, want ErrBadTimeSequence", err)
	}
}

func TestEstimateOrderUnknownOrder(t *testing.T) {
	orders := &fakeOrderRepo{
		order:   domain.Order{ID: 41, SiteID: 1, CarrierID: 2},
		carrier: domain.Carrier{ID: 2, Name: "ups"},
	}
	svc := newTestEstimationService(estimationTestSCGraph(t), orders, &fakeEstimationStore{}, &fakeDPStore{})

	_, err := svc.EstimateOrder(context.Background(), OrderEstimationRequest{OrderID: 99})
	if !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestEstimateVertexVolatile(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	shipped := base.Add(6 * time.Hour)

	orders := &fakeOrderRepo{carrier: domain.Carrier{ID: 2, Name: "ups"}}
	store := &fakeEstimationStore{}
	svc := newTestEstimationService(estimationTestSCGraph(t), orders, store, &fakeDPStore{})

	est, err := svc.EstimateVertex(context.Background(), VertexEstimationRequest{
		Vertex:         VertexRef{Name: "Hub", Type: scgraph.Intermediate},
		CarrierName:    "ups",
		SiteID:         1,
		OrderTime:      base,
		EventTime:      base.Add(8 * time.Hour),
		EstimationTime: base.Add(10 * time.Hour),
		ShipmentTime:   &shipped,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !closeTo(est.ESTHours, 23) {
		t.Fatalf("est = %f, want 23", est.ESTHours)
	}
	if len(store.saved) != 0 {
		t.Fatalf("volatile estimation must not be stored, saved %d", len(store.saved))
	}
}

func TestEstimateOrderDeliveredAtManufacturer(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	shipped := base.Add(6 * time.Hour)

	orders := &fakeOrderRepo{
		order: domain.Order{
			ID: 41, SiteID: 1, CarrierID: 2,
			OrderTime:    base,
			ShipmentTime: &shipped,
		},
		carrier: domain.Carrier{ID: 2, Name: "ups"},
	}
	svc := newTestEstimationService(estimationTestSCGraph(t), orders, &fakeEstimationStore{}, &fakeDPStore{})

	est, err := svc.EstimateOrder(context.Background(), OrderEstimationRequest{
		OrderID:        41,
		Vertex:         VertexRef{Type: scgraph.Manufacturer},
		EventTime:      base.Add(30 * time.Hour),
		EstimationTime: base.Add(30 * time.Hour),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if est.Status != domain.StatusDelivered {
		t.Fatalf("status = %s, want DELIVERED", est.Status)
	}
	// The manufacturer has no carrier history, so no scored path
	// survives and the path time degrades to the empty result.
	if est.PTNPaths != 0 || !closeTo(est.PTLowerHours, 0) {
		t.Fatalf("pt = %f n=%d, want empty result", est.PTLowerHours, est.PTNPaths)
	}
}
