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

// delayFrom derives the outbound delay summary from a stored
// estimation: per-phase deviation bounds past the historical
// thresholds, with the expected delivery backed off the EDD by the mean
// total deviation.
func delayFrom(est domain.Estimation) *domain.Delay {
	totalLower := est.DTDeviationLower + est.STDeviationLower
	totalUpper := est.DTDeviationUpper + est.STDeviationUpper
	expected := est.EDD.Add(-time.Duration((totalLower + totalUpper) / 2 * float64(time.Hour)))

	return &domain.Delay{
		DispatchLower: est.DTDeviationLower,
		DispatchUpper: est.DTDeviationUpper,
		ShipmentLower: est.STDeviationLower,
		ShipmentUpper: est.STDeviationUpper,
		TotalLower:    totalLower,
		TotalUpper:    totalUpper,
		EDD:           est.EDD,
		Expected:      expected,
	}
}

// OrderEventHandler turns carrier tracking updates into fresh
// estimations and reconfiguration candidates.
type OrderEventHandler struct {
	orders      orderReader
	estimations estimator
}

// orderReader is the slice of the order repository the handlers need.
type orderReader interface {
	Order(ctx context.Context, orderID int) (domain.Order, error)
	Site(ctx context.Context, siteID int) (domain.Site, error)
}

// estimator runs one persisted order estimation.
type estimator interface {
	EstimateOrder(ctx context.Context, req services.OrderEstimationRequest) (domain.Estimation, error)
}

func NewOrderEventHandler(orders orderReader, estimations estimator) *OrderEventHandler {
	return &OrderEventHandler{orders: orders, estimations: estimations}
}

// vertexRef maps an order event subtype onto the vertex the shipment is
// at: creation events sit at the supplier site, carrier updates at the
// reported location, the delivery event at the manufacturer.
func (h *OrderEventHandler) vertexRef(ctx context.Context, eventType, location string, order domain.Order) (services.VertexRef, error) {
	switch eventType {
	case OrderCreation, CarrierCreation:
		site, err := h.orders.Site(ctx, order.SiteID)
		if err != nil {
			return services.VertexRef{}, fmt.Errorf("site %d: %w", order.SiteID, err)
		}
		return services.VertexRef{Name: site.LocationName, Type: scgraph.SupplierSite}, nil
	case CarrierUpdate:
		return services.VertexRef{Name: location, Type: scgraph.Intermediate}, nil
	case CarrierDelivery:
		return services.VertexRef{Type: scgraph.Manufacturer}, nil
	default:
		return services.VertexRef{}, fmt.Errorf("unsupported order event type %q", eventType)
	}
}

// Handle processes every new tracking step of the update and returns
// one reconfiguration candidate per estimated step. Steps with an
// unparseable timestamp are skipped, not fatal.
func (h *OrderEventHandler) Handle(ctx context.Context, data OrderEventData, timestamp time.Time) ([]domain.Reconfiguration, error) {
	if len(data.EventTimestamps) != len(data.OrderNewLocations) {
		return nil, fmt.Errorf("order event: %d timestamps for %d locations", len(data.EventTimestamps), len(data.OrderNewLocations))
	}

	order, err := h.orders.Order(ctx, data.OrderID)
	if err != nil {
		return nil, fmt.Errorf("order event: %w", err)
	}

	var recs []domain.Reconfiguration
	for i, raw := range data.EventTimestamps {
		eventTime, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			log.Printf("op=order_event order_id=%d msg=\"unparseable timestamp, skipping step\" ts=%q", order.ID, raw)
			continue
		}

		ref, err := h.vertexRef(ctx, data.Type, data.OrderNewLocations[i], order)
		if err != nil {
			return nil, fmt.Errorf("order event: %w", err)
		}

		est, err := h.estimations.EstimateOrder(ctx, services.OrderEstimationRequest{
			OrderID:        order.ID,
			Vertex:         ref,
			EventTime:      eventTime,
			EstimationTime: timestamp,
		})
		if err != nil {
			return nil, fmt.Errorf("order event: %w", err)
		}

		recs = append(recs, domain.Reconfiguration{
			OrderID: order.ID,
			SLS:     order.SLS,
			Delay:   delayFrom(est),
		})
	}
	return recs, nil
}
