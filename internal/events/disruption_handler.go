package events

import (
	"context"
	"fmt"
	"log"
	"time"

	"shipment-forecast-service/internal/domain"
	"shipment-forecast-service/internal/scgraph"
	"shipment-forecast-service/internal/services"
)

// DisruptionEventHandler turns external disruption alerts into
// reconfiguration candidates for every affected order. A failed lookup
// or estimation never drops the order from the outcome: the candidate
// then carries only the disruption context without a delay.
type DisruptionEventHandler struct {
	orders      orderReader
	estimations estimator
}

func NewDisruptionEventHandler(orders orderReader, estimations estimator) *DisruptionEventHandler {
	return &DisruptionEventHandler{orders: orders, estimations: estimations}
}

// Handle estimates the delay of each affected order from its reported
// location and pairs it with the disruption context.
func (h *DisruptionEventHandler) Handle(ctx context.Context, data DisruptionEventData, timestamp time.Time) ([]domain.Reconfiguration, error) {
	eventTime, err := time.Parse(time.RFC3339, data.EventTimestamp)
	if err != nil {
		return nil, fmt.Errorf("disruption event: parse timestamp %q: %w", data.EventTimestamp, err)
	}

	severity, ok := data.Disruption.Measurements["severity"]
	if !ok {
		log.Printf("op=disruption_event type=%s msg=\"missing severity measurement, defaulting to 0.0\"",
			data.Disruption.DisruptionType)
	}
	external := &domain.ExternalDisruption{
		DisruptionType: data.Disruption.DisruptionType,
		Severity:       severity,
	}

	ids := data.AffectedOrders.Summary.OrderIDs
	locations := data.AffectedOrders.Summary.Locations
	if len(ids) != len(locations) {
		return nil, fmt.Errorf("disruption event: %d order ids for %d locations", len(ids), len(locations))
	}

	recs := make([]domain.Reconfiguration, 0, len(ids))
	for i, orderID := range ids {
		order, err := h.orders.Order(ctx, orderID)
		if err != nil {
			log.Printf("op=disruption_event order_id=%d msg=\"order lookup failed, skipping delay computation\" err=%q", orderID, err)
			recs = append(recs, domain.Reconfiguration{OrderID: orderID, External: external})
			continue
		}

		est, err := h.estimations.EstimateOrder(ctx, services.OrderEstimationRequest{
			OrderID:        order.ID,
			Vertex:         services.VertexRef{Name: locations[i], Type: scgraph.Intermediate},
			EventTime:      eventTime,
			EstimationTime: timestamp,
		})
		if err != nil {
			log.Printf("op=disruption_event order_id=%d msg=\"estimation failed, skipping delay computation\" err=%q", orderID, err)
			recs = append(recs, domain.Reconfiguration{OrderID: orderID, SLS: order.SLS, External: external})
			continue
		}

		recs = append(recs, domain.Reconfiguration{
			OrderID:  order.ID,
			SLS:      order.SLS,
			External: external,
			Delay:    delayFrom(est),
		})
	}
	return recs, nil
}
