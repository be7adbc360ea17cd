package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"shipment-forecast-service/internal/platform/obs"
	"shipment-forecast-service/internal/scgraph"
)

const (
	dpKindPath = "path"
	dpKindProb = "prob"
)

// SQLDPStore persists the path and probability memos as JSON blobs in
// Postgres. Saves are read-modify-write inside a transaction: the
// stored snapshot is locked, the in-memory memo merged over it, and
// the union written back, so entries computed by a concurrent worker
// for other vertices survive.
type SQLDPStore struct {
	DB *sql.DB
}

func NewSQLDPStore(db *sql.DB) *SQLDPStore {
	return &SQLDPStore{DB: db}
}

func (s *SQLDPStore) load(ctx context.Context, kind string) ([]byte, error) {
	if s.DB == nil {
		return nil, errors.New("dp store: db is nil")
	}

	var payload []byte
	err := s.DB.QueryRowContext(ctx,
		`SELECT payload FROM dp_state WHERE kind = $1`, kind,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("dp store: load kind=%s: %w", kind, err)
	}
	return payload, nil
}

// LoadPathDP returns the stored path memo, or nil when nothing has
// been persisted yet.
func (s *SQLDPStore) LoadPathDP(ctx context.Context, n int) (_ *scgraph.PathDP, err error) {
	defer obs.Time(ctx, "dp.store.LoadPathDP")(&err)

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

// LoadProbDP returns the stored probability memo, or nil when nothing
// has been persisted yet.
func (s *SQLDPStore) LoadProbDP(ctx context.Context, n int) (_ *scgraph.PathProbDP, err error) {
	defer obs.Time(ctx, "dp.store.LoadProbDP")(&err)

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

func (s *SQLDPStore) save(ctx context.Context, kind string, merge func(stored []byte) ([]byte, error)) error {
	if s.DB == nil {
		return errors.New("dp store: db is nil")
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("dp store: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// FOR UPDATE locks nothing when the row does not exist yet, so the
	// very first two savers could blind-overwrite each other. Seeding an
	// empty row first gives the lock something to grab on cold start.
	_, err = tx.ExecContext(ctx, `
	INSERT INTO dp_state (kind, payload, updated_at)
	VALUES ($1, '', NOW())
	ON CONFLICT (kind) DO NOTHING;
	`, kind)
	if err != nil {
		return fmt.Errorf("dp store: seed kind=%s: %w", kind, err)
	}

	var stored []byte
	err = tx.QueryRowContext(ctx,
		`SELECT payload FROM dp_state WHERE kind = $1 FOR UPDATE`, kind,
	).Scan(&stored)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("dp store: lock kind=%s: %w", kind, err)
	}

	merged, err := merge(stored)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
	INSERT INTO dp_state (kind, payload, updated_at)
	VALUES ($1, $2, NOW())
	ON CONFLICT (kind) DO UPDATE
	SET payload = EXCLUDED.payload,
		updated_at = EXCLUDED.updated_at;
	`, kind, merged)
	if err != nil {
		return fmt.Errorf("dp store: upsert kind=%s: %w", kind, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("dp store: commit kind=%s: %w", kind, err)
	}
	return nil
}

// SavePathDP merges the memo into the latest stored snapshot and marks
// it clean. Clean memos are skipped unless force is set.
func (s *SQLDPStore) SavePathDP(ctx context.Context, dp *scgraph.PathDP, force bool) (err error) {
	defer obs.Time(ctx, "dp.store.SavePathDP")(&err)

	if dp == nil {
		return errors.New("dp store: path memo is nil")
	}
	if !dp.Updated() && !force {
		obs.DPSaves.WithLabelValues(dpKindPath, "skipped").Inc()
		return nil
	}

	err = s.save(ctx, dpKindPath, func(stored []byte) ([]byte, error) {
		return mergePathPayload(stored, dp)
	})
	if err != nil {
		return err
	}

	dp.MarkClean()
	obs.DPSaves.WithLabelValues(dpKindPath, "written").Inc()
	return nil
}

// SaveProbDP merges the memo into the latest stored snapshot and marks
// it clean. Clean memos are skipped unless force is set.
func (s *SQLDPStore) SaveProbDP(ctx context.Context, dp *scgraph.PathProbDP, force bool) (err error) {
	defer obs.Time(ctx, "dp.store.SaveProbDP")(&err)

	if dp == nil {
		return errors.New("dp store: prob memo is nil")
	}
	if !dp.Updated() && !force {
		obs.DPSaves.WithLabelValues(dpKindProb, "skipped").Inc()
		return nil
	}

	err = s.save(ctx, dpKindProb, func(stored []byte) ([]byte, error) {
		return mergeProbPayload(stored, dp)
	})
	if err != nil {
		return err
	}

	dp.MarkClean()
	obs.DPSaves.WithLabelValues(dpKindProb, "written").Inc()
	return nil
}

// mergePathPayload overlays the local memo's populated entries on the
// stored snapshot and serializes the union.
func mergePathPayload(stored []byte, local *scgraph.PathDP) ([]byte, error) {
	out := local
	if len(stored) > 0 {
		base := &scgraph.PathDP{}
		if err := json.Unmarshal(stored, base); err != nil {
			return nil, fmt.Errorf("dp store: decode stored path memo: %w", err)
		}
		base.MergeFrom(local)
		out = base
	}

	payload, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("dp store: encode path memo: %w", err)
	}
	return payload, nil
}

// mergeProbPayload overlays the local memo's populated entries on the
// stored snapshot and serializes the union.
func mergeProbPayload(stored []byte, local *scgraph.PathProbDP) ([]byte, error) {
	out := local
	if len(stored) > 0 {
		base := &scgraph.PathProbDP{}
		if err := json.Unmarshal(stored, base); err != nil {
			return nil, fmt.Errorf("dp store: decode stored prob memo: %w", err)
		}
		base.MergeFrom(local)
		out = base
	}

	payload, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("dp store: encode prob memo: %w", err)
	}
	return payload, nil
}
