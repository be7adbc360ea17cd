package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"shipment-forecast-service/internal/domain"
	"shipment-forecast-service/internal/forecast"
	"shipment-forecast-service/internal/ports"
	"shipment-forecast-service/internal/scgraph"
	"shipment-forecast-service/internal/services"
	"shipment-forecast-service/internal/stats"
)

var testBase = time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

type stubOrders struct {
	order   domain.Order
	carrier domain.Carrier
}

func (s *stubOrders) Order(ctx context.Context, orderID int) (domain.Order, error) {
	if orderID != s.order.ID {
		return domain.Order{}, fmt.Errorf("get order: %w: id %d", ports.ErrNotFound, orderID)
	}
	return s.order, nil
}

func (s *stubOrders) Site(ctx context.Context, siteID int) (domain.Site, error) {
	return domain.Site{ID: siteID}, nil
}

func (s *stubOrders) Supplier(ctx context.Context, supplierID int) (domain.Supplier, error) {
	return domain.Supplier{ID: supplierID}, nil
}

func (s *stubOrders) Carrier(ctx context.Context, carrierID int) (domain.Carrier, error) {
	if carrierID != s.carrier.ID {
		return domain.Carrier{}, fmt.Errorf("get carrier: %w: id %d", ports.ErrNotFound, carrierID)
	}
	return s.carrier, nil
}

func (s *stubOrders) CarrierByName(ctx context.Context, name string) (domain.Carrier, error) {
	if !strings.EqualFold(name, s.carrier.Name) {
		return domain.Carrier{}, fmt.Errorf("get carrier: %w: name %q", ports.ErrNotFound, name)
	}
	return s.carrier, nil
}

func (s *stubOrders) CarriersWithOrders(ctx context.Context) ([]domain.Carrier, error) {
	return []domain.Carrier{s.carrier}, nil
}

func (s *stubOrders) Manufacturer(ctx context.Context) (domain.Manufacturer, error) {
	return domain.Manufacturer{ID: 1, Name: "Plant"}, nil
}

type stubDistributions struct{}

func (s *stubDistributions) DispatchTime(ctx context.Context, siteID int) (stats.Distribution, error) {
	return stats.Sample{X: []float64{12}, Mean: 12}, nil
}

func (s *stubDistributions) ShipmentTime(ctx context.Context, siteID, carrierID int) (stats.Distribution, error) {
	return stats.Sample{X: []float64{30}, Mean: 30}, nil
}

func (s *stubDistributions) TTWeight(ctx context.Context, siteID, carrierID int) (float64, error) {
	return 0, fmt.Errorf("tt weight: %w", ports.ErrNotFound)
}

type stubLocations struct{}

func (s *stubLocations) FindByCity(ctx context.Context, city, countryCode string) (domain.Location, bool, error) {
	return domain.Location{}, false, nil
}

func (s *stubLocations) FindByName(ctx context.Context, name string) (domain.Location, bool, error) {
	return domain.Location{}, false, nil
}

func (s *stubLocations) Save(ctx context.Context, loc domain.Location) (domain.Location, error) {
	return loc, nil
}

type stubEstimations struct {
	saved []domain.Estimation
}

func (s *stubEstimations) Save(ctx context.Context, est domain.Estimation) (int, error) {
	est.ID = len(s.saved) + 1
	s.saved = append(s.saved, est)
	return est.ID, nil
}

func (s *stubEstimations) EstimationsByOrders(ctx context.Context, orderIDs []int) ([]domain.Estimation, error) {
	if len(orderIDs) == 0 {
		return s.saved, nil
	}
	var out []domain.Estimation
	for _, id := range orderIDs {
		for _, est := range s.saved {
			if est.OrderID == id {
				out = append(out, est)
			}
		}
	}
	return out, nil
}

type stubDPStore struct{}

func (s *stubDPStore) LoadPathDP(ctx context.Context, n int) (*scgraph.PathDP, error) {
	return nil, nil
}

func (s *stubDPStore) LoadProbDP(ctx context.Context, n int) (*scgraph.PathProbDP, error) {
	return nil, nil
}

func (s *stubDPStore) SavePathDP(ctx context.Context, dp *scgraph.PathDP, force bool) error {
	dp.MarkClean()
	return nil
}

func (s *stubDPStore) SaveProbDP(ctx context.Context, dp *scgraph.PathProbDP, force bool) error {
	dp.MarkClean()
	return nil
}

type stubQueue struct {
	payloads [][]byte
}

func (q *stubQueue) Enqueue(ctx context.Context, payload []byte) (int64, error) {
	q.payloads = append(q.payloads, payload)
	return int64(len(q.payloads)), nil
}

func (q *stubQueue) Lease(ctx context.Context, limit int) ([]domain.InboundEvent, error) {
	return nil, nil
}

func (q *stubQueue) Ack(ctx context.Context, eventID int64) error     { return nil }
func (q *stubQueue) Release(ctx context.Context, eventID int64) error { return nil }

func testGraph(t *testing.T) *scgraph.SCGraph {
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

func testParams() *forecast.Params {
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

type testEnv struct {
	estimation *EstimationHandler
	paths      *PathsHandler
	events     *EventsHandler
	store      *stubEstimations
	queue      *stubQueue
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	sg := testGraph(t)
	shipped := testBase.Add(6 * time.Hour)
	orders := &stubOrders{
		order: domain.Order{
			ID: 41, SiteID: 1, CarrierID: 7,
			OrderTime: testBase, ShipmentTime: &shipped,
		},
		carrier: domain.Carrier{ID: 7, Name: "ups"},
	}
	store := &stubEstimations{}
	queue := &stubQueue{}
	params := testParams()

	resolver := services.NewVertexResolver(sg.Graph(), &stubLocations{}, nil)
	estimations := services.NewEstimationService(
		sg, resolver, orders, &stubDistributions{}, nil, nil, nil, nil,
		store, &stubDPStore{}, func() *forecast.Params { return params },
	)

	return &testEnv{
		estimation: &EstimationHandler{
			Estimations: estimations,
			Retrieval:   services.NewRetrievalService(store),
		},
		paths:  &PathsHandler{Service: services.NewPathService(sg, &stubDPStore{}), Graph: sg.Graph(), Orders: orders},
		events: &EventsHandler{Queue: queue},
		store:  store,
		queue:  queue,
	}
}

func orderRequestBody(orderID int) string {
	return fmt.Sprintf(
		`{"orderId": %d, "eventTime": %q, "estimationTime": %q, "vertex": {"vertexName": "Hub", "vertexType": "INTERMEDIATE"}}`,
		orderID,
		testBase.Add(8*time.Hour).Format(time.RFC3339),
		testBase.Add(10*time.Hour).Format(time.RFC3339),
	)
}

func TestOrderEstimationSingleCreated(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/estimations/order", strings.NewReader(orderRequestBody(41)))
	rec := httptest.NewRecorder()
	env.estimation.Order(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if loc := rec.Header().Get("Location"); loc != "/estimations/order?order=41" {
		t.Fatalf("unexpected location header: %q", loc)
	}

	var data struct {
		OrderID   int     `json:"orderId"`
		EODTHours float64 `json:"eodtHours"`
		Status    string  `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &data); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if data.OrderID != 41 {
		t.Fatalf("expected order 41, got %d", data.OrderID)
	}
	if math.Abs(data.EODTHours-33) > 1e-9 {
		t.Fatalf("expected eodt 33, got %g", data.EODTHours)
	}
	if data.Status != string(domain.StatusInTransit) {
		t.Fatalf("expected IN_TRANSIT, got %q", data.Status)
	}
	if len(env.store.saved) != 1 {
		t.Fatalf("expected 1 stored estimation, got %d", len(env.store.saved))
	}
}

func TestOrderEstimationInvalidBody(t *testing.T) {
	env := newTestEnv(t)

	for name, body := range map[string]string{
		"malformed":     `{"orderId": `,
		"unknown field": `{"orderId": 41, "bogus": true}`,
		"two objects":   orderRequestBody(41) + orderRequestBody(41),
		"empty list":    `[]`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/estimations/order", strings.NewReader(body))
		rec := httptest.NewRecorder()
		env.estimation.Order(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", name, rec.Code)
		}
	}
}

func TestOrderEstimationUnknownOrder(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/estimations/order", strings.NewReader(orderRequestBody(99)))
	rec := httptest.NewRecorder()
	env.estimation.Order(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestOrderEstimationMissingVertex(t *testing.T) {
	env := newTestEnv(t)

	body := fmt.Sprintf(`{"orderId": 41, "eventTime": %q}`, testBase.Add(8*time.Hour).Format(time.RFC3339))
	req := httptest.NewRequest(http.MethodPost, "/estimations/order", strings.NewReader(body))
	rec := httptest.NewRecorder()
	env.estimation.Order(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestOrderEstimationBatchMixed(t *testing.T) {
	env := newTestEnv(t)

	body := "[" + orderRequestBody(41) + "," + orderRequestBody(99) + "]"
	req := httptest.NewRequest(http.MethodPost, "/estimations/order", strings.NewReader(body))
	rec := httptest.NewRecorder()
	env.estimation.Order(rec, req)

	if rec.Code != http.StatusMultiStatus {
		t.Fatalf("expected 207, got %d: %s", rec.Code, rec.Body.String())
	}

	var results []struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &results); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Status != "CREATED" || results[1].Status != "FAILED" {
		t.Fatalf("unexpected statuses: %+v", results)
	}
}

func TestRetrieveOrderEstimations(t *testing.T) {
	env := newTestEnv(t)

	post := httptest.NewRequest(http.MethodPost, "/estimations/order", strings.NewReader(orderRequestBody(41)))
	env.estimation.Order(httptest.NewRecorder(), post)

	req := httptest.NewRequest(http.MethodGet, "/estimations/order?order=41", nil)
	rec := httptest.NewRecorder()
	env.estimation.Order(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var groups []struct {
		OrderID int `json:"orderId"`
		Latest  struct {
			OrderID int `json:"orderId"`
		} `json:"latest"`
		History []json.RawMessage `json:"history"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &groups); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(groups) != 1 || groups[0].OrderID != 41 || len(groups[0].History) != 1 {
		t.Fatalf("unexpected retrieval payload: %s", rec.Body.String())
	}

	bad := httptest.NewRequest(http.MethodGet, "/estimations/order?order=abc", nil)
	recBad := httptest.NewRecorder()
	env.estimation.Order(recBad, bad)
	if recBad.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad order ids, got %d", recBad.Code)
	}
}

func TestVertexEstimationSingle(t *testing.T) {
	env := newTestEnv(t)

	body := fmt.Sprintf(
		`{"vertex": {"vertexName": "Hub"}, "carrier": {"carrierName": "ups"}, "site": {"siteId": 1}, "orderTime": %q, "eventTime": %q, "estimationTime": %q, "shipmentTime": %q}`,
		testBase.Format(time.RFC3339),
		testBase.Add(8*time.Hour).Format(time.RFC3339),
		testBase.Add(10*time.Hour).Format(time.RFC3339),
		testBase.Add(6*time.Hour).Format(time.RFC3339),
	)
	req := httptest.NewRequest(http.MethodPost, "/estimations/vertex", strings.NewReader(body))
	rec := httptest.NewRecorder()
	env.estimation.Vertex(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var data struct {
		ESTHours float64 `json:"estHours"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &data); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(data.ESTHours-23) > 1e-9 {
		t.Fatalf("expected est 23, got %g", data.ESTHours)
	}
	if len(env.store.saved) != 0 {
		t.Fatalf("vertex estimation must not persist, got %d records", len(env.store.saved))
	}
}

func TestPathsBySourceID(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/scgraph/paths?source=1&by=id", nil)
	rec := httptest.NewRecorder()
	env.paths.Paths(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var results []struct {
		Source int `json:"source"`
		Paths  []struct {
			Path []int   `json:"path"`
			Prob float64 `json:"prob"`
		} `json:"paths"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &results); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 || results[0].Source != 1 {
		t.Fatalf("unexpected paths payload: %s", rec.Body.String())
	}
	if len(results[0].Paths) != 1 || len(results[0].Paths[0].Path) != 3 {
		t.Fatalf("expected the single three-vertex path, got %s", rec.Body.String())
	}
	if math.Abs(results[0].Paths[0].Prob-1) > 1e-9 {
		t.Fatalf("expected probability 1, got %g", results[0].Paths[0].Prob)
	}
}

func TestPathsBadCarrier(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/scgraph/paths?source=1&carrier_name=bogus", nil)
	rec := httptest.NewRecorder()
	env.paths.Paths(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestPathsBadBy(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/scgraph/paths?by=index", nil)
	rec := httptest.NewRecorder()
	env.paths.Paths(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestEventsIngest(t *testing.T) {
	env := newTestEnv(t)

	payload := `{"eventType": "TRACKING_UPDATE", "timestamp": "2025-03-10T08:00:00Z", "data": {}}`
	req := httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	env.events.Ingest(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(env.queue.payloads) != 1 {
		t.Fatalf("expected 1 enqueued payload, got %d", len(env.queue.payloads))
	}

	var ack struct {
		ID     int64  `json:"id"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &ack); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ack.ID != 1 || ack.Status != "ACCEPTED" {
		t.Fatalf("unexpected ack: %+v", ack)
	}
}

func TestEventsIngestRejectsUnknownType(t *testing.T) {
	env := newTestEnv(t)

	payload := `{"eventType": "SOMETHING_ELSE", "timestamp": "2025-03-10T08:00:00Z", "data": {}}`
	req := httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	env.events.Ingest(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(env.queue.payloads) != 0 {
		t.Fatalf("expected nothing enqueued, got %d", len(env.queue.payloads))
	}
}

func TestEventsIngestMethodNotAllowed(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	rec := httptest.NewRecorder()
	env.events.Ingest(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestHealthReportsGraphSize(t *testing.T) {
	sg := testGraph(t)
	health := &HealthHandler{Graph: sg.Graph()}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	health.Check(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body struct {
		Status   string `json:"status"`
		Vertices int    `json:"vertices"`
		Edges    int    `json:"edges"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body.Status != "ok" {
		t.Fatalf("expected status ok, got %q", body.Status)
	}
	if body.Vertices != 3 || body.Edges != 2 {
		t.Fatalf("expected 3 vertices and 2 edges, got %d and %d", body.Vertices, body.Edges)
	}
}
