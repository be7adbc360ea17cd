package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"shipment-forecast-service/internal/domain"
	"shipment-forecast-service/internal/platform/obs"
)

// SQLEstimationStore persists forecast results with their traffic and
// weather observations.
type SQLEstimationStore struct {
	DB *sql.DB
}

func NewSQLEstimationStore(db *sql.DB) *SQLEstimationStore {
	return &SQLEstimationStore{DB: db}
}

// Save stores the estimation and its observations in one transaction
// and returns the new record's identifier.
func (s *SQLEstimationStore) Save(ctx context.Context, est domain.Estimation) (_ int, err error) {
	defer obs.Time(ctx, "estimation.store.Save")(&err)

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("save estimation: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	q := `
	INSERT INTO estimations (
		order_id, vertex_id, status,
		order_time, shipment_time, event_time, estimation_time, stage,
		alpha_type, alpha_input, alpha_value, tt_weight, tau,
		dt_lower_hours, dt_hours, dt_upper_hours,
		pt_lower_hours, pt_upper_hours, pt_n_paths, avg_tmi, avg_wmi,
		tt_lower_hours, tt_upper_hours, tt_confidence,
		tfst_lower_hours, tfst_upper_hours,
		est_hours, cfdi_lower, cfdi_upper, eodt_hours, edd,
		dt_deviation_lower, dt_deviation_upper, st_deviation_lower, st_deviation_upper,
		dt_confidence, st_confidence
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
		$16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29,
		$30, $31, $32, $33, $34, $35, $36, $37)
	RETURNING id;
	`

	var id int
	err = tx.QueryRowContext(ctx, q,
		est.OrderID, est.VertexID, string(est.Status),
		est.OrderTime, est.ShipmentTime, est.EventTime, est.EstimationTime, est.Stage,
		est.AlphaType, est.AlphaInput, est.AlphaValue, est.TTWeight, est.Tau,
		est.DTLowerHours, est.DTHours, est.DTUpperHours,
		est.PTLowerHours, est.PTUpperHours, est.PTNPaths, est.AvgTMI, est.AvgWMI,
		est.TTLowerHours, est.TTUpperHours, est.TTConfidence,
		est.TFSTLowerHours, est.TFSTUpperHours,
		est.ESTHours, est.CFDILower, est.CFDIUpper, est.EODTHours, est.EDD,
		est.DTDeviationLower, est.DTDeviationUpper, est.STDeviationLower, est.STDeviationUpper,
		est.DTConfidence, est.STConfidence,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("save estimation order=%d: %w", est.OrderID, err)
	}

	for _, t := range est.Traffic {
		_, err := tx.ExecContext(ctx, `
		INSERT INTO traffic_observations (
			estimation_id, source_id, source_name, destination_id, destination_name,
			mode, value, distance_km, road_distance_km, no_traffic_hours, traffic_hours, observed_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12);
		`, id, t.SourceID, t.SourceName, t.DestinationID, t.DestinationName,
			t.Mode, t.Value, t.DistanceKm, t.RoadDistanceKm, t.NoTrafficHours, t.TrafficHours, t.Timestamp)
		if err != nil {
			return 0, fmt.Errorf("save estimation: insert traffic observation: %w", err)
		}
	}

	for _, w := range est.Weather {
		_, err := tx.ExecContext(ctx, `
		INSERT INTO weather_observations (
			estimation_id, source_id, source_name, destination_id, destination_name,
			value, weather_code, description, temperature_c, scored_by,
			n_points, step_distance_km, observed_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13);
		`, id, w.SourceID, w.SourceName, w.DestinationID, w.DestinationName,
			w.Value, w.WeatherCode, w.Description, w.Temperature, w.By,
			w.NPoints, w.StepDistanceKm, w.Timestamp)
		if err != nil {
			return 0, fmt.Errorf("save estimation: insert weather observation: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("save estimation: commit tx: %w", err)
	}

	return id, nil
}

// EstimationsByOrders lists stored estimations, oldest first per
// order. An empty id list returns every order's history.
func (s *SQLEstimationStore) EstimationsByOrders(ctx context.Context, orderIDs []int) (_ []domain.Estimation, err error) {
	defer obs.Time(ctx, "estimation.store.EstimationsByOrders")(&err)

	q := `
	SELECT id, order_id, vertex_id, status,
		order_time, shipment_time, event_time, estimation_time, stage,
		alpha_type, alpha_input, alpha_value, tt_weight, tau,
		dt_lower_hours, dt_hours, dt_upper_hours,
		pt_lower_hours, pt_upper_hours, pt_n_paths, avg_tmi, avg_wmi,
		tt_lower_hours, tt_upper_hours, tt_confidence,
		tfst_lower_hours, tfst_upper_hours,
		est_hours, cfdi_lower, cfdi_upper, eodt_hours, edd,
		dt_deviation_lower, dt_deviation_upper, st_deviation_lower, st_deviation_upper,
		dt_confidence, st_confidence
	FROM estimations
	`

	args := make([]any, 0, len(orderIDs))
	if len(orderIDs) > 0 {
		placeholders := make([]string, 0, len(orderIDs))
		for i, id := range orderIDs {
			placeholders = append(placeholders, fmt.Sprintf("$%d", i+1))
			args = append(args, id)
		}
		q += ` WHERE order_id IN (` + strings.Join(placeholders, ", ") + `)`
	}
	q += ` ORDER BY order_id, estimation_time`

	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list estimations: %w", err)
	}
	defer rows.Close()

	var out []domain.Estimation
	for rows.Next() {
		var e domain.Estimation
		var status string
		if err := rows.Scan(
			&e.ID, &e.OrderID, &e.VertexID, &status,
			&e.OrderTime, &e.ShipmentTime, &e.EventTime, &e.EstimationTime, &e.Stage,
			&e.AlphaType, &e.AlphaInput, &e.AlphaValue, &e.TTWeight, &e.Tau,
			&e.DTLowerHours, &e.DTHours, &e.DTUpperHours,
			&e.PTLowerHours, &e.PTUpperHours, &e.PTNPaths, &e.AvgTMI, &e.AvgWMI,
			&e.TTLowerHours, &e.TTUpperHours, &e.TTConfidence,
			&e.TFSTLowerHours, &e.TFSTUpperHours,
			&e.ESTHours, &e.CFDILower, &e.CFDIUpper, &e.EODTHours, &e.EDD,
			&e.DTDeviationLower, &e.DTDeviationUpper, &e.STDeviationLower, &e.STDeviationUpper,
			&e.DTConfidence, &e.STConfidence,
		); err != nil {
			return nil, fmt.Errorf("list estimations: scan rows: %w", err)
		}
		e.Status = domain.OrderStatus(status)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list estimations: row iteration: %w", err)
	}

	return out, nil
}
