package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"shipment-forecast-service/internal/domain"
	"shipment-forecast-service/internal/ports"
)

// ErrNotFound aliases the port-level sentinel all lookups here wrap.
var ErrNotFound = ports.ErrNotFound

// SQLOrderRepository reads orders and the parties around them over
// database/sql.
type SQLOrderRepository struct {
	DB *sql.DB
}

func NewSQLOrderRepository(db *sql.DB) *SQLOrderRepository {
	return &SQLOrderRepository{DB: db}
}

func (r *SQLOrderRepository) Order(ctx context.Context, orderID int) (domain.Order, error) {
	q := `
	SELECT id, manufacturer_order_id, tracking_number, site_id, carrier_id,
		manufacturer_id, manufacturer_creation_timestamp,
		carrier_creation_timestamp, status, sls, srs
	FROM orders
	WHERE id = $1
	`

	var o domain.Order
	var shipment sql.NullTime
	var status string
	err := r.DB.QueryRowContext(ctx, q, orderID).Scan(
		&o.ID, &o.ManufacturerOrderID, &o.TrackingNumber, &o.SiteID, &o.CarrierID,
		&o.ManufacturerID, &o.OrderTime, &shipment, &status, &o.SLS, &o.SRS,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Order{}, fmt.Errorf("get order: %w: id %d", ErrNotFound, orderID)
	}
	if err != nil {
		return domain.Order{}, fmt.Errorf("get order id=%d: %w", orderID, err)
	}

	o.Status = domain.OrderStatus(status)
	if shipment.Valid {
		t := shipment.Time
		o.ShipmentTime = &t
	}
	return o, nil
}

func (r *SQLOrderRepository) Site(ctx context.Context, siteID int) (domain.Site, error) {
	q := `
	SELECT id, supplier_id, location_name, lon, lat
	FROM sites
	WHERE id = $1
	`

	var s domain.Site
	err := r.DB.QueryRowContext(ctx, q, siteID).Scan(
		&s.ID, &s.SupplierID, &s.LocationName, &s.Coordinates.Lon, &s.Coordinates.Lat,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Site{}, fmt.Errorf("get site: %w: id %d", ErrNotFound, siteID)
	}
	if err != nil {
		return domain.Site{}, fmt.Errorf("get site id=%d: %w", siteID, err)
	}
	return s, nil
}

func (r *SQLOrderRepository) Supplier(ctx context.Context, supplierID int) (domain.Supplier, error) {
	q := `
	SELECT id, manufacturer_supplier_id, name
	FROM suppliers
	WHERE id = $1
	`

	var s domain.Supplier
	err := r.DB.QueryRowContext(ctx, q, supplierID).Scan(&s.ID, &s.ManufacturerSupplierID, &s.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Supplier{}, fmt.Errorf("get supplier: %w: id %d", ErrNotFound, supplierID)
	}
	if err != nil {
		return domain.Supplier{}, fmt.Errorf("get supplier id=%d: %w", supplierID, err)
	}
	return s, nil
}

func (r *SQLOrderRepository) Carrier(ctx context.Context, carrierID int) (domain.Carrier, error) {
	q := `SELECT id, name FROM carriers WHERE id = $1`

	var c domain.Carrier
	err := r.DB.QueryRowContext(ctx, q, carrierID).Scan(&c.ID, &c.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Carrier{}, fmt.Errorf("get carrier: %w: id %d", ErrNotFound, carrierID)
	}
	if err != nil {
		return domain.Carrier{}, fmt.Errorf("get carrier id=%d: %w", carrierID, err)
	}
	return c, nil
}

func (r *SQLOrderRepository) CarrierByName(ctx context.Context, name string) (domain.Carrier, error) {
	q := `SELECT id, name FROM carriers WHERE LOWER(name) = LOWER($1)`

	var c domain.Carrier
	err := r.DB.QueryRowContext(ctx, q, name).Scan(&c.ID, &c.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Carrier{}, fmt.Errorf("get carrier: %w: name %q", ErrNotFound, name)
	}
	if err != nil {
		return domain.Carrier{}, fmt.Errorf("get carrier name=%q: %w", name, err)
	}
	return c, nil
}

func (r *SQLOrderRepository) CarriersWithOrders(ctx context.Context) ([]domain.Carrier, error) {
	q := `
	SELECT DISTINCT c.id, c.name
	FROM carriers c
	JOIN orders o ON o.carrier_id = c.id
	ORDER BY c.id
	`

	rows, err := r.DB.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list carriers with orders: %w", err)
	}
	defer rows.Close()

	var carriers []domain.Carrier
	for rows.Next() {
		var c domain.Carrier
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("list carriers with orders: scan: %w", err)
		}
		carriers = append(carriers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list carriers with orders: %w", err)
	}
	return carriers, nil
}

func (r *SQLOrderRepository) Manufacturer(ctx context.Context) (domain.Manufacturer, error) {
	q := `SELECT id, name, location_name, lon, lat FROM manufacturers`

	var m domain.Manufacturer
	err := r.DB.QueryRowContext(ctx, q).Scan(
		&m.ID, &m.Name, &m.LocationName, &m.Coordinates.Lon, &m.Coordinates.Lat,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Manufacturer{}, fmt.Errorf("get manufacturer: %w", ErrNotFound)
	}
	if err != nil {
		return domain.Manufacturer{}, fmt.Errorf("get manufacturer: %w", err)
	}
	return m, nil
}
