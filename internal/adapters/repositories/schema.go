package repositories

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"shipment-forecast-service/internal/scgraph"
)

// InitSchema creates the service tables. The statements stick to the
// SQL subset both Postgres and SQLite accept, so the same init path
// serves production and local runs.
func InitSchema(db *sql.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	statements := []string{
		`CREATE TABLE IF NOT EXISTS suppliers (
			id INTEGER PRIMARY KEY,
			manufacturer_supplier_id INTEGER NOT NULL,
			name TEXT NOT NULL
		);`,

		`CREATE TABLE IF NOT EXISTS sites (
			id INTEGER PRIMARY KEY,
			supplier_id INTEGER NOT NULL REFERENCES suppliers(id),
			location_name TEXT NOT NULL,
			lon REAL NOT NULL,
			lat REAL NOT NULL
		);`,

		`CREATE TABLE IF NOT EXISTS carriers (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL UNIQUE
		);`,

		`CREATE TABLE IF NOT EXISTS manufacturers (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			location_name TEXT NOT NULL,
			lon REAL NOT NULL,
			lat REAL NOT NULL
		);`,

		`CREATE TABLE IF NOT EXISTS orders (
			id INTEGER PRIMARY KEY,
			manufacturer_order_id INTEGER NOT NULL,
			tracking_number TEXT NOT NULL,
			site_id INTEGER NOT NULL REFERENCES sites(id),
			carrier_id INTEGER NOT NULL REFERENCES carriers(id),
			manufacturer_id INTEGER NOT NULL REFERENCES manufacturers(id),
			manufacturer_creation_timestamp TIMESTAMP NOT NULL,
			carrier_creation_timestamp TIMESTAMP,
			status TEXT NOT NULL,
			sls BOOLEAN NOT NULL DEFAULT FALSE,
			srs BOOLEAN NOT NULL DEFAULT FALSE
		);`,

		`CREATE TABLE IF NOT EXISTS locations (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			city TEXT NOT NULL,
			state TEXT,
			country_code TEXT,
			lon REAL NOT NULL,
			lat REAL NOT NULL
		);`,

		`CREATE TABLE IF NOT EXISTS site_calendars (
			site_id INTEGER PRIMARY KEY REFERENCES sites(id),
			country_code TEXT NOT NULL,
			weekend_start INTEGER NOT NULL,
			weekend_end INTEGER NOT NULL,
			consider_closure_holidays BOOLEAN NOT NULL,
			consider_working_holidays BOOLEAN NOT NULL,
			consider_weekends_holidays BOOLEAN NOT NULL
		);`,

		`CREATE TABLE IF NOT EXISTS holidays (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			country_code TEXT NOT NULL,
			category TEXT NOT NULL,
			type TEXT,
			description TEXT,
			date DATE NOT NULL
		);`,

		`CREATE INDEX IF NOT EXISTS idx_holidays_country_date
		ON holidays(country_code, date);`,

		`CREATE TABLE IF NOT EXISTS dispatch_time_gamma (
			site_id INTEGER PRIMARY KEY REFERENCES sites(id),
			shape REAL NOT NULL,
			scale REAL NOT NULL,
			loc REAL NOT NULL
		);`,

		`CREATE TABLE IF NOT EXISTS dispatch_time_sample (
			site_id INTEGER PRIMARY KEY REFERENCES sites(id),
			mean REAL NOT NULL
		);`,

		`CREATE TABLE IF NOT EXISTS dispatch_times (
			id INTEGER PRIMARY KEY,
			site_id INTEGER NOT NULL REFERENCES sites(id),
			hours REAL NOT NULL
		);`,

		`CREATE TABLE IF NOT EXISTS shipment_time_gamma (
			site_id INTEGER NOT NULL REFERENCES sites(id),
			carrier_id INTEGER NOT NULL REFERENCES carriers(id),
			shape REAL NOT NULL,
			scale REAL NOT NULL,
			loc REAL NOT NULL,
			PRIMARY KEY (site_id, carrier_id)
		);`,

		`CREATE TABLE IF NOT EXISTS shipment_time_sample (
			site_id INTEGER NOT NULL REFERENCES sites(id),
			carrier_id INTEGER NOT NULL REFERENCES carriers(id),
			mean REAL NOT NULL,
			PRIMARY KEY (site_id, carrier_id)
		);`,

		`CREATE TABLE IF NOT EXISTS shipment_times (
			id INTEGER PRIMARY KEY,
			site_id INTEGER NOT NULL REFERENCES sites(id),
			carrier_id INTEGER NOT NULL REFERENCES carriers(id),
			hours REAL NOT NULL
		);`,

		`CREATE TABLE IF NOT EXISTS alpha_opt (
			site_id INTEGER NOT NULL REFERENCES sites(id),
			carrier_id INTEGER NOT NULL REFERENCES carriers(id),
			tt_weight REAL NOT NULL,
			PRIMARY KEY (site_id, carrier_id)
		);`,

		`CREATE TABLE IF NOT EXISTS graph_vertices (
			v_id INTEGER PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			type TEXT NOT NULL,
			lat REAL NOT NULL,
			lon REAL NOT NULL,
			avg_ori REAL NOT NULL,
			n_orders INTEGER NOT NULL,
			n_orders_by_carrier TEXT NOT NULL
		);`,

		`CREATE TABLE IF NOT EXISTS graph_edges (
			source_id INTEGER NOT NULL REFERENCES graph_vertices(v_id),
			destination_id INTEGER NOT NULL REFERENCES graph_vertices(v_id),
			n_orders INTEGER NOT NULL,
			n_orders_by_carrier TEXT NOT NULL,
			distance_km REAL NOT NULL,
			avg_oti REAL NOT NULL,
			avg_wmi REAL NOT NULL,
			avg_tmi REAL NOT NULL,
			PRIMARY KEY (source_id, destination_id)
		);`,

		`CREATE TABLE IF NOT EXISTS dp_state (
			kind TEXT PRIMARY KEY,
			payload TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL
		);`,

		`CREATE TABLE IF NOT EXISTS estimations (
			id INTEGER PRIMARY KEY,
			order_id INTEGER NOT NULL REFERENCES orders(id),
			vertex_id INTEGER NOT NULL,
			status TEXT NOT NULL,
			order_time TIMESTAMP NOT NULL,
			shipment_time TIMESTAMP NOT NULL,
			event_time TIMESTAMP NOT NULL,
			estimation_time TIMESTAMP NOT NULL,
			stage TEXT NOT NULL,
			alpha_type TEXT NOT NULL,
			alpha_input REAL NOT NULL,
			alpha_value REAL NOT NULL,
			tt_weight REAL NOT NULL,
			tau REAL NOT NULL,
			dt_lower_hours REAL NOT NULL,
			dt_hours REAL NOT NULL,
			dt_upper_hours REAL NOT NULL,
			pt_lower_hours REAL NOT NULL,
			pt_upper_hours REAL NOT NULL,
			pt_n_paths INTEGER NOT NULL,
			avg_tmi REAL NOT NULL,
			avg_wmi REAL NOT NULL,
			tt_lower_hours REAL NOT NULL,
			tt_upper_hours REAL NOT NULL,
			tt_confidence REAL NOT NULL,
			tfst_lower_hours REAL NOT NULL,
			tfst_upper_hours REAL NOT NULL,
			est_hours REAL NOT NULL,
			cfdi_lower REAL NOT NULL,
			cfdi_upper REAL NOT NULL,
			eodt_hours REAL NOT NULL,
			edd TIMESTAMP NOT NULL,
			dt_deviation_lower REAL NOT NULL,
			dt_deviation_upper REAL NOT NULL,
			st_deviation_lower REAL NOT NULL,
			st_deviation_upper REAL NOT NULL,
			dt_confidence REAL NOT NULL,
			st_confidence REAL NOT NULL
		);`,

		`CREATE INDEX IF NOT EXISTS idx_estimations_order_time
		ON estimations(order_id, estimation_time);`,

		`CREATE TABLE IF NOT EXISTS traffic_observations (
			id INTEGER PRIMARY KEY,
			estimation_id INTEGER NOT NULL REFERENCES estimations(id),
			source_id INTEGER NOT NULL,
			source_name TEXT NOT NULL,
			destination_id INTEGER NOT NULL,
			destination_name TEXT NOT NULL,
			mode TEXT NOT NULL,
			value REAL NOT NULL,
			distance_km REAL NOT NULL,
			road_distance_km REAL NOT NULL,
			no_traffic_hours REAL NOT NULL,
			traffic_hours REAL NOT NULL,
			observed_at TIMESTAMP NOT NULL
		);`,

		`CREATE TABLE IF NOT EXISTS weather_observations (
			id INTEGER PRIMARY KEY,
			estimation_id INTEGER NOT NULL REFERENCES estimations(id),
			source_id INTEGER NOT NULL,
			source_name TEXT NOT NULL,
			destination_id INTEGER NOT NULL,
			destination_name TEXT NOT NULL,
			value REAL NOT NULL,
			weather_code TEXT NOT NULL,
			description TEXT,
			temperature_c REAL NOT NULL,
			scored_by TEXT NOT NULL,
			n_points INTEGER NOT NULL,
			step_distance_km REAL NOT NULL,
			observed_at TIMESTAMP NOT NULL
		);`,

		`CREATE TABLE IF NOT EXISTS event_inbox (
			id INTEGER PRIMARY KEY,
			payload TEXT NOT NULL,
			attempts INTEGER NOT NULL DEFAULT 0,
			leased BOOLEAN NOT NULL DEFAULT FALSE,
			received_at TIMESTAMP NOT NULL
		);`,

		`CREATE TABLE IF NOT EXISTS reconfiguration_outbox (
			id INTEGER PRIMARY KEY,
			order_id INTEGER NOT NULL,
			payload TEXT NOT NULL,
			published_at TIMESTAMP NOT NULL
		);`,
	}

	for i, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}

// GraphSeed is the JSON wire form of a graph snapshot.
type GraphSeed struct {
	Vertices []scgraph.VertexRecord `json:"vertices"`
	Edges    []scgraph.EdgeRecord   `json:"edges"`
}

// SeedGraphFromJSON populates the graph tables from a JSON snapshot.
// Existing rows with the same keys are replaced.
func SeedGraphFromJSON(db *sql.DB, jsonPath string) error {
	bytes, err := os.ReadFile(jsonPath)
	if err != nil {
		return fmt.Errorf("seed graph: read %q: %w", jsonPath, err)
	}

	var seed GraphSeed
	if err := json.Unmarshal(bytes, &seed); err != nil {
		return fmt.Errorf("seed graph: parse json: %w", err)
	}

	// Validate the snapshot before touching the database.
	if _, err := scgraph.NewGraph(seed.Vertices, seed.Edges); err != nil {
		return fmt.Errorf("seed graph: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("seed graph: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	vertexStmt, err := tx.Prepare(`
	INSERT OR REPLACE INTO graph_vertices (
		v_id, name, type, lat, lon, avg_ori, n_orders, n_orders_by_carrier
	)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?);
	`)
	if err != nil {
		return fmt.Errorf("seed graph: prepare vertex insert: %w", err)
	}
	defer vertexStmt.Close()

	for _, v := range seed.Vertices {
		byCarrier, err := json.Marshal(v.NOrdersByCarrier)
		if err != nil {
			return fmt.Errorf("seed graph: encode carrier counts v_id=%d: %w", v.ID, err)
		}
		if _, err := vertexStmt.Exec(v.ID, v.Name, string(v.Type), v.Latitude, v.Longitude,
			v.AvgORI, v.NOrders, string(byCarrier)); err != nil {
			return fmt.Errorf("seed graph: insert vertex v_id=%d: %w", v.ID, err)
		}
	}

	edgeStmt, err := tx.Prepare(`
	INSERT OR REPLACE INTO graph_edges (
		source_id, destination_id, n_orders, n_orders_by_carrier,
		distance_km, avg_oti, avg_wmi, avg_tmi
	)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?);
	`)
	if err != nil {
		return fmt.Errorf("seed graph: prepare edge insert: %w", err)
	}
	defer edgeStmt.Close()

	for _, e := range seed.Edges {
		byCarrier, err := json.Marshal(e.NOrdersByCarrier)
		if err != nil {
			return fmt.Errorf("seed graph: encode carrier counts edge %d->%d: %w", e.SourceID, e.TargetID, err)
		}
		if _, err := edgeStmt.Exec(e.SourceID, e.TargetID, e.NOrders, string(byCarrier),
			e.DistanceKm, e.AvgOTI, e.AvgWMI, e.AvgTMI); err != nil {
			return fmt.Errorf("seed graph: insert edge %d->%d: %w", e.SourceID, e.TargetID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed graph: commit tx: %w", err)
	}

	return nil
}
