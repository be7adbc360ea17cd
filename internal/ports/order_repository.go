package ports

import (
	"context"

	"shipment-forecast-service/internal/domain"
)

// OrderRepository reads orders and the parties around them from the
// relational store.
type OrderRepository interface {
	// Retrieve one order by its identifier.
	Order(ctx context.Context, orderID int) (domain.Order, error)
	Site(ctx context.Context, siteID int) (domain.Site, error)
	Supplier(ctx context.Context, supplierID int) (domain.Supplier, error)
	Carrier(ctx context.Context, carrierID int) (domain.Carrier, error)
	// Carrier lookup by name is case-insensitive.
	CarrierByName(ctx context.Context, name string) (domain.Carrier, error)
	// Carriers that moved at least one order, ordered by id.
	CarriersWithOrders(ctx context.Context) ([]domain.Carrier, error)
	// The supply chain has exactly one manufacturer.
	Manufacturer(ctx context.Context) (domain.Manufacturer, error)
}
