package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"shipment-forecast-service/internal/platform/obs"
	"shipment-forecast-service/internal/scgraph"
)

// SQLGraphStore loads the graph snapshot rows the in-memory graph is
// built from. Per-carrier order counts are stored as JSON objects in a
// text column.
type SQLGraphStore struct {
	DB *sql.DB
}

func NewSQLGraphStore(db *sql.DB) *SQLGraphStore {
	return &SQLGraphStore{DB: db}
}

func (s *SQLGraphStore) VertexRecords(ctx context.Context) (_ []scgraph.VertexRecord, err error) {
	defer obs.Time(ctx, "graph.store.VertexRecords")(&err)

	q := `
	SELECT v_id, name, type, lat, lon, avg_ori, n_orders, n_orders_by_carrier
	FROM graph_vertices
	ORDER BY v_id
	`

	rows, err := s.DB.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("load graph vertices: %w", err)
	}
	defer rows.Close()

	var out []scgraph.VertexRecord
	for rows.Next() {
		var rec scgraph.VertexRecord
		var vtype, byCarrier string
		if err := rows.Scan(&rec.ID, &rec.Name, &vtype, &rec.Latitude, &rec.Longitude,
			&rec.AvgORI, &rec.NOrders, &byCarrier); err != nil {
			return nil, fmt.Errorf("load graph vertices: scan rows: %w", err)
		}
		rec.Type = scgraph.VertexType(vtype)
		if err := json.Unmarshal([]byte(byCarrier), &rec.NOrdersByCarrier); err != nil {
			return nil, fmt.Errorf("load graph vertices: decode carrier counts v_id=%d: %w", rec.ID, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load graph vertices: row iteration: %w", err)
	}

	return out, nil
}

func (s *SQLGraphStore) EdgeRecords(ctx context.Context) (_ []scgraph.EdgeRecord, err error) {
	defer obs.Time(ctx, "graph.store.EdgeRecords")(&err)

	q := `
	SELECT source_id, destination_id, n_orders, n_orders_by_carrier,
		distance_km, avg_oti, avg_wmi, avg_tmi
	FROM graph_edges
	ORDER BY source_id, destination_id
	`

	rows, err := s.DB.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("load graph edges: %w", err)
	}
	defer rows.Close()

	var out []scgraph.EdgeRecord
	for rows.Next() {
		var rec scgraph.EdgeRecord
		var byCarrier string
		if err := rows.Scan(&rec.SourceID, &rec.TargetID, &rec.NOrders, &byCarrier,
			&rec.DistanceKm, &rec.AvgOTI, &rec.AvgWMI, &rec.AvgTMI); err != nil {
			return nil, fmt.Errorf("load graph edges: scan rows: %w", err)
		}
		if err := json.Unmarshal([]byte(byCarrier), &rec.NOrdersByCarrier); err != nil {
			return nil, fmt.Errorf("load graph edges: decode carrier counts %d->%d: %w", rec.SourceID, rec.TargetID, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load graph edges: row iteration: %w", err)
	}

	return out, nil
}
