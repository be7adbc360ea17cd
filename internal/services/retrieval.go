package services

import (
	"context"
	"fmt"

	"shipment-forecast-service/internal/domain"
	"shipment-forecast-service/internal/ports"
)

// OrderEstimations groups the stored forecast history of one order.
// Latest is the newest record by estimation time and carries the
// order-level header fields of the API response.
type OrderEstimations struct {
	OrderID int
	Latest  domain.Estimation
	History []domain.Estimation
}

// RetrievalService reads stored estimations back, grouped per order.
type RetrievalService struct {
	estimations ports.EstimationStore
}

func NewRetrievalService(estimations ports.EstimationStore) *RetrievalService {
	return &RetrievalService{estimations: estimations}
}

// OrdersEstimations lists the stored estimations of the given orders,
// oldest first within each order. An empty id list means every order
// with at least one estimation.
func (s *RetrievalService) OrdersEstimations(ctx context.Context, orderIDs []int) ([]OrderEstimations, error) {
	records, err := s.estimations.EstimationsByOrders(ctx, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("orders estimations: %w", err)
	}

	// Records arrive ordered by order id, then estimation time.
	var groups []OrderEstimations
	for _, rec := range records {
		if len(groups) == 0 || groups[len(groups)-1].OrderID != rec.OrderID {
			groups = append(groups, OrderEstimations{OrderID: rec.OrderID})
		}
		g := &groups[len(groups)-1]
		g.History = append(g.History, rec)
		g.Latest = rec
	}
	return groups, nil
}
