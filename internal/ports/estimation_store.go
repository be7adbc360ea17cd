package ports

import (
	"context"

	"shipment-forecast-service/internal/domain"
)

// EstimationStore persists forecast results and serves them back for
// retrieval, newest last per order.
type EstimationStore interface {
	// Save stores the estimation with its traffic and weather
	// observations and returns the new record's identifier.
	Save(ctx context.Context, est domain.Estimation) (int, error)
	// EstimationsByOrders lists stored estimations for the given
	// orders, ordered by estimation time. An empty id list means all
	// orders.
	EstimationsByOrders(ctx context.Context, orderIDs []int) ([]domain.Estimation, error)
}
