package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"shipment-forecast-service/internal/platform/obs"
	"shipment-forecast-service/internal/scgraph"
)

// SQLite-backed DP store for local runs. Mirrors SQLDPStore; the
// read-modify-write runs in a transaction, which is enough under
// SQLite's single-writer model.
type SqliteDPStore struct {
	DB *sql.DB
}

func NewSqliteDPStore(db *sql.DB) *SqliteDPStore {
	return &SqliteDPStore{DB: db}
}

func (s *SqliteDPStore) load(ctx context.Context, kind string) ([]byte, error) {
	if s.DB == nil {
		return nil, errors.New("dp store: db is nil")
	}

	var payload []byte
	err := s.DB.QueryRowContext(ctx,
		`SELECT payload FROM dp_state WHERE kind = ?`, kind,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("dp store: load kind=%s: %w", kind, err)
	}
	return payload, nil
}

func (s *SqliteDPStore) LoadPathDP(ctx context.Context, n int) (*scgraph.PathDP, error) {
	payload, err := s.load(ctx, dpKindPath)
	if err != nil || payload == nil {
		return nil, err
	}

	dp := scgraph.NewPathDP(n)
	if err := json.Unmarshal(payload, dp); err != nil {
		return nil, fmt.Errorf("dp store: decode path memo: %w", err)
	}
	return dp, nil
}

func (s *SqliteDPStore) LoadProbDP(ctx context.Context, n int) (*scgraph.PathProbDP, error) {
	payload, err := s.load(ctx, dpKindProb)
	if err != nil || payload == nil {
		return nil, err
	}

	dp := scgraph.NewPathProbDP(n)
	if err := json.Unmarshal(payload, dp); err != nil {
		return nil, fmt.Errorf("dp store: decode prob memo: %w", err)
	}
	return dp, nil
}

func (s *SqliteDPStore) save(ctx context.Context, kind string, merge func(stored []byte) ([]byte, error)) error {
	if s.DB == nil {
		return errors.New("dp store: db is nil")
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("dp store: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var stored []byte
	err = tx.QueryRowContext(ctx,
		`SELECT payload FROM dp_state WHERE kind = ?`, kind,
	).Scan(&stored)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("dp store: read kind=%s: %w", kind, err)
	}

	merged, err := merge(stored)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
	INSERT OR REPLACE INTO dp_state (kind, payload, updated_at)
	VALUES (?, ?, ?);
	`, kind, merged, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("dp store: upsert kind=%s: %w", kind, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("dp store: commit kind=%s: %w", kind, err)
	}
	return nil
}

func (s *SqliteDPStore) SavePathDP(ctx context.Context, dp *scgraph.PathDP, force bool) error {
	if dp == nil {
		return errors.New("dp store: path memo is nil")
	}
	if !dp.Updated() && !force {
		obs.DPSaves.WithLabelValues(dpKindPath, "skipped").Inc()
		return nil
	}

	err := s.save(ctx, dpKindPath, func(stored []byte) ([]byte, error) {
		return mergePathPayload(stored, dp)
	})
	if err != nil {
		return err
	}

	dp.MarkClean()
	obs.DPSaves.WithLabelValues(dpKindPath, "written").Inc()
	return nil
}

func (s *SqliteDPStore) SaveProbDP(ctx context.Context, dp *scgraph.PathProbDP, force bool) error {
	if dp == nil {
		return errors.New("dp store: prob memo is nil")
	}
	if !dp.Updated() && !force {
		obs.DPSaves.WithLabelValues(dpKindProb, "skipped").Inc()
		return nil
	}

	err := s.save(ctx, dpKindProb, func(stored []byte) ([]byte, error) {
		return mergeProbPayload(stored, dp)
	})
	if err != nil {
		return err
	}

	dp.MarkClean()
	obs.DPSaves.WithLabelValues(dpKindProb, "written").Inc()
	return nil
}
