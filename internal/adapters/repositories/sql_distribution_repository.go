package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"shipment-forecast-service/internal/stats"
)

// SQLDistributionRepository reads the fitted historical distributions.
// Each lookup prefers the fitted gamma row and falls back to the raw
// sample with its precomputed mean; a site or pair with neither is an
// error.
type SQLDistributionRepository struct {
	DB *sql.DB
}

func NewSQLDistributionRepository(db *sql.DB) *SQLDistributionRepository {
	return &SQLDistributionRepository{DB: db}
}

func (r *SQLDistributionRepository) DispatchTime(ctx context.Context, siteID int) (stats.Distribution, error) {
	var shape, scale, loc float64
	err := r.DB.QueryRowContext(ctx,
		`SELECT shape, scale, loc FROM dispatch_time_gamma WHERE site_id = $1`, siteID,
	).Scan(&shape, &scale, &loc)
	if err == nil {
		return stats.Gamma{Shape: shape, Scale: scale, Loc: loc}, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get dispatch time gamma site=%d: %w", siteID, err)
	}

	var mean float64
	err = r.DB.QueryRowContext(ctx,
		`SELECT mean FROM dispatch_time_sample WHERE site_id = $1`, siteID,
	).Scan(&mean)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get dispatch time: %w: site %d", ErrNotFound, siteID)
	}
	if err != nil {
		return nil, fmt.Errorf("get dispatch time sample site=%d: %w", siteID, err)
	}

	x, err := r.hours(ctx, `SELECT hours FROM dispatch_times WHERE site_id = $1`, siteID)
	if err != nil {
		return nil, fmt.Errorf("get dispatch time hours site=%d: %w", siteID, err)
	}

	return stats.Sample{X: x, Mean: mean}, nil
}

func (r *SQLDistributionRepository) ShipmentTime(ctx context.Context, siteID, carrierID int) (stats.Distribution, error) {
	var shape, scale, loc float64
	err := r.DB.QueryRowContext(ctx,
		`SELECT shape, scale, loc FROM shipment_time_gamma WHERE site_id = $1 AND carrier_id = $2`,
		siteID, carrierID,
	).Scan(&shape, &scale, &loc)
	if err == nil {
		return stats.Gamma{Shape: shape, Scale: scale, Loc: loc}, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get shipment time gamma site=%d carrier=%d: %w", siteID, carrierID, err)
	}

	var mean float64
	err = r.DB.QueryRowContext(ctx,
		`SELECT mean FROM shipment_time_sample WHERE site_id = $1 AND carrier_id = $2`,
		siteID, carrierID,
	).Scan(&mean)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get shipment time: %w: site %d carrier %d", ErrNotFound, siteID, carrierID)
	}
	if err != nil {
		return nil, fmt.Errorf("get shipment time sample site=%d carrier=%d: %w", siteID, carrierID, err)
	}

	x, err := r.hours(ctx,
		`SELECT hours FROM shipment_times WHERE site_id = $1 AND carrier_id = $2`,
		siteID, carrierID)
	if err != nil {
		return nil, fmt.Errorf("get shipment time hours site=%d carrier=%d: %w", siteID, carrierID, err)
	}

	return stats.Sample{X: x, Mean: mean}, nil
}

func (r *SQLDistributionRepository) TTWeight(ctx context.Context, siteID, carrierID int) (float64, error) {
	var w float64
	err := r.DB.QueryRowContext(ctx,
		`SELECT tt_weight FROM alpha_opt WHERE site_id = $1 AND carrier_id = $2`,
		siteID, carrierID,
	).Scan(&w)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("get tt weight: %w: site %d carrier %d", ErrNotFound, siteID, carrierID)
	}
	if err != nil {
		return 0, fmt.Errorf("get tt weight site=%d carrier=%d: %w", siteID, carrierID, err)
	}
	return w, nil
}

func (r *SQLDistributionRepository) hours(ctx context.Context, q string, args ...any) ([]float64, error) {
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []float64
	for rows.Next() {
		var h float64
		if err := rows.Scan(&h); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
