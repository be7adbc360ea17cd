package domain

import "time"

// OrderStatus tracks where an order sits in its lifecycle. PENDING
// orders have no carrier pickup yet, IN_TRANSIT orders are moving, and
// DELIVERED orders have reached the manufacturer.
type OrderStatus string

const (
	StatusPending   OrderStatus = "PENDING"
	StatusInTransit OrderStatus = "IN_TRANSIT"
	StatusDelivered OrderStatus = "DELIVERED"
)

// Order is a purchase order shipped from a supplier site to the
// manufacturer. OrderTime is the manufacturer-side creation timestamp;
// ShipmentTime is the first carrier event and stays nil until the
// carrier picks the order up.
type Order struct {
	ID                  int
	ManufacturerOrderID int
	TrackingNumber      string
	SiteID              int
	CarrierID           int
	ManufacturerID      int
	OrderTime           time.Time
	ShipmentTime        *time.Time
	Status              OrderStatus
	SLS                 bool
	SRS                 bool
}

// Shipped reports whether the carrier has picked the order up.
func (o Order) Shipped() bool { return o.ShipmentTime != nil }
