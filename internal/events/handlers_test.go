package events

import (
	"context"
	"fmt"
	"testing"
	"time"

	"shipment-forecast-service/internal/domain"
	"shipment-forecast-service/internal/ports"
	"shipment-forecast-service/internal/scgraph"
	"shipment-forecast-service/internal/services"
)

type fakeOrderReader struct {
	orders map[int]domain.Order
	site   domain.Site
}

func (r *fakeOrderReader) Order(ctx context.Context, orderID int) (domain.Order, error) {
	order, ok := r.orders[orderID]
	if !ok {
		return domain.Order{}, fmt.Errorf("get order: %w: id %d", ports.ErrNotFound, orderID)
	}
	return order, nil
}

func (r *fakeOrderReader) Site(ctx context.Context, siteID int) (domain.Site, error) {
	return r.site, nil
}

type fakeEstimator struct {
	requests []services.OrderEstimationRequest
	result   domain.Estimation
	err      error
}

func (e *fakeEstimator) EstimateOrder(ctx context.Context, req services.OrderEstimationRequest) (domain.Estimation, error) {
	e.requests = append(e.requests, req)
	if e.err != nil {
		return domain.Estimation{}, e.err
	}
	return e.result, nil
}

func TestParseEnvelope(t *testing.T) {
	env, err := ParseEnvelope([]byte(`{"eventType":"TRACKING_UPDATE","timestamp":"2026-03-01T10:00:00Z","data":{"type":"CARRIER_UPDATE","orderId":7}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env.EventType != TypeTrackingUpdate {
		t.Fatalf("event type = %q, want TRACKING_UPDATE", env.EventType)
	}

	if _, err := ParseEnvelope([]byte(`{"eventType":"SOMETHING_ELSE","data":{}}`)); err == nil {
		t.Fatal("expected error for unknown event type")
	}
	if _, err := ParseEnvelope([]byte(`not json`)); err == nil {
		t.Fatal("expected error for malformed payload")
	}
}

func TestOrderEventCarrierUpdate(t *testing.T) {
	orders := &fakeOrderReader{orders: map[int]domain.Order{
		7: {ID: 7, SiteID: 3, SLS: true},
	}}
	edd := time.Date(2026, 3, 3, 12, 0, 0, 0, time.UTC)
	estimator := &fakeEstimator{result: domain.Estimation{
		OrderID: 7, EDD: edd,
		DTDeviationLower: 1, DTDeviationUpper: 2,
		STDeviationLower: 3, STDeviationUpper: 4,
	}}
	h := NewOrderEventHandler(orders, estimator)

	recs, err := h.Handle(context.Background(), OrderEventData{
		Type:              CarrierUpdate,
		OrderID:           7,
		EventTimestamps:   []string{"2026-03-01T08:00:00Z", "bogus", "2026-03-01T09:00:00Z"},
		OrderNewStepsIDs:  []int{1, 2, 3},
		OrderNewLocations: []string{"Milan, IT", "Lyon, FR", "Paris, FR"},
	}, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The unparseable middle step is skipped, not fatal.
	if len(recs) != 2 {
		t.Fatalf("got %d reconfigurations, want 2", len(recs))
	}
	if len(estimator.requests) != 2 {
		t.Fatalf("got %d estimations, want 2", len(estimator.requests))
	}
	if got := estimator.requests[0].Vertex; got.Name != "Milan, IT" || got.Type != scgraph.Intermediate {
		t.Fatalf("first vertex ref = %+v, want intermediate Milan", got)
	}
	if got := estimator.requests[1].Vertex; got.Name != "Paris, FR" {
		t.Fatalf("second vertex ref = %+v, want Paris", got)
	}

	rec := recs[0]
	if rec.OrderID != 7 || !rec.SLS {
		t.Fatalf("rec = %+v, want order 7 with sls", rec)
	}
	if rec.Delay == nil {
		t.Fatal("expected delay on tracking reconfiguration")
	}
	if rec.Delay.TotalLower != 4 || rec.Delay.TotalUpper != 6 {
		t.Fatalf("total bounds = [%f, %f], want [4, 6]", rec.Delay.TotalLower, rec.Delay.TotalUpper)
	}
	// Expected delivery backs the EDD off by the five-hour mean.
	if want := edd.Add(-5 * time.Hour); !rec.Delay.Expected.Equal(want) {
		t.Fatalf("expected = %s, want %s", rec.Delay.Expected, want)
	}
}

func TestOrderEventVertexByType(t *testing.T) {
	orders := &fakeOrderReader{
		orders: map[int]domain.Order{7: {ID: 7, SiteID: 3}},
		site:   domain.Site{ID: 3, LocationName: "Site A"},
	}

	cases := []struct {
		eventType string
		wantName  string
		wantType  scgraph.VertexType
	}{
		{OrderCreation, "Site A", scgraph.SupplierSite},
		{CarrierCreation, "Site A", scgraph.SupplierSite},
		{CarrierUpdate, "Hub", scgraph.Intermediate},
		{CarrierDelivery, "", scgraph.Manufacturer},
	}
	for _, tc := range cases {
		estimator := &fakeEstimator{}
		h := NewOrderEventHandler(orders, estimator)

		_, err := h.Handle(context.Background(), OrderEventData{
			Type:              tc.eventType,
			OrderID:           7,
			EventTimestamps:   []string{"2026-03-01T08:00:00Z"},
			OrderNewStepsIDs:  []int{1},
			OrderNewLocations: []string{"Hub"},
		}, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.eventType, err)
		}
		got := estimator.requests[0].Vertex
		if got.Name != tc.wantName || got.Type != tc.wantType {
			t.Fatalf("%s: vertex ref = %+v, want (%q, %s)", tc.eventType, got, tc.wantName, tc.wantType)
		}
	}
}

func TestOrderEventUnknownType(t *testing.T) {
	orders := &fakeOrderReader{orders: map[int]domain.Order{7: {ID: 7}}}
	h := NewOrderEventHandler(orders, &fakeEstimator{})

	_, err := h.Handle(context.Background(), OrderEventData{
		Type:              "CARRIER_TELEPORT",
		OrderID:           7,
		EventTimestamps:   []string{"2026-03-01T08:00:00Z"},
		OrderNewStepsIDs:  []int{1},
		OrderNewLocations: []string{"Hub"},
	}, time.Now())
	if err == nil {
		t.Fatal("expected error for unknown order event type")
	}
}

func disruptionData() DisruptionEventData {
	return DisruptionEventData{
		EventTimestamp: "2026-03-01T08:00:00Z",
		Disruption: Disruption{
			DisruptionType: "FLOOD",
			Measurements:   map[string]float64{"severity": 0.7},
		},
		AffectedOrders: AffectedOrders{
			Total: 1,
			Summary: AffectedOrderSummary{
				OrderIDs:  []int{7},
				Statuses:  []string{"IN_TRANSIT"},
				Locations: []string{"Milan, IT"},
			},
		},
	}
}

func TestDisruptionEventWithDelay(t *testing.T) {
	orders := &fakeOrderReader{orders: map[int]domain.Order{7: {ID: 7, SLS: true}}}
	estimator := &fakeEstimator{result: domain.Estimation{OrderID: 7, DTDeviationLower: 1, DTDeviationUpper: 1}}
	h := NewDisruptionEventHandler(orders, estimator)

	recs, err := h.Handle(context.Background(), disruptionData(), time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("got %d reconfigurations, want 1", len(recs))
	}

	rec := recs[0]
	if rec.External == nil || rec.External.DisruptionType != "FLOOD" || rec.External.Severity != 0.7 {
		t.Fatalf("external = %+v, want FLOOD severity 0.7", rec.External)
	}
	if !rec.SLS || rec.Delay == nil {
		t.Fatalf("rec = %+v, want sls with delay", rec)
	}
}

func TestDisruptionEventUnknownOrder(t *testing.T) {
	orders := &fakeOrderReader{orders: map[int]domain.Order{}}
	h := NewDisruptionEventHandler(orders, &fakeEstimator{})

	recs, err := h.Handle(context.Background(), disruptionData(), time.Now().UTC())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("got %d reconfigurations, want 1", len(recs))
	}

	// The disruption context survives even though the order is unknown.
	rec := recs[0]
	if rec.External == nil || rec.SLS || rec.Delay != nil {
		t.Fatalf("rec = %+v, want external only", rec)
	}
}

func TestDisruptionEventEstimationFailure(t *testing.T) {
	orders := &fakeOrderReader{orders: map[int]domain.Order{7: {ID: 7, SLS: true}}}
	estimator := &fakeEstimator{err: fmt.Errorf("resolve vertex: boom")}
	h := NewDisruptionEventHandler(orders, estimator)

	recs, err := h.Handle(context.Background(), disruptionData(), time.Now().UTC())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec := recs[0]
	if rec.Delay != nil || !rec.SLS || rec.External == nil {
		t.Fatalf("rec = %+v, want order flags with external and no delay", rec)
	}
}

func TestDisruptionEventMissingSeverity(t *testing.T) {
	data := disruptionData()
	delete(data.Disruption.Measurements, "severity")

	orders := &fakeOrderReader{orders: map[int]domain.Order{}}
	h := NewDisruptionEventHandler(orders, &fakeEstimator{})

	recs, err := h.Handle(context.Background(), data, time.Now().UTC())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if recs[0].External.Severity != 0 {
		t.Fatalf("severity = %f, want default 0", recs[0].External.Severity)
	}
}

func TestDisruptionEventLengthMismatch(t *testing.T) {
	data := disruptionData()
	data.AffectedOrders.Summary.Locations = nil

	h := NewDisruptionEventHandler(&fakeOrderReader{}, &fakeEstimator{})
	if _, err := h.Handle(context.Background(), data, time.Now().UTC()); err == nil {
		t.Fatal("expected error for mismatched ids and locations")
	}
}
