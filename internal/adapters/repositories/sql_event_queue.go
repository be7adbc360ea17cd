package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"shipment-forecast-service/internal/domain"
	"shipment-forecast-service/internal/platform/obs"
)

// SQLEventQueue is a table-backed queue: producers insert raw
// envelopes into the inbox, the worker leases a batch by flipping the
// leased flag, then acknowledges (delete) or releases (unlease, bump
// attempts) each event. Published reconfigurations go to an outbox
// table the planning layer drains.
type SQLEventQueue struct {
	DB *sql.DB
}

func NewSQLEventQueue(db *sql.DB) *SQLEventQueue {
	return &SQLEventQueue{DB: db}
}

func (q *SQLEventQueue) Enqueue(ctx context.Context, payload []byte) (int64, error) {
	if len(payload) == 0 {
		return 0, errors.New("event queue: empty payload")
	}

	var id int64
	err := q.DB.QueryRowContext(ctx, `
	INSERT INTO event_inbox (payload, attempts, leased, received_at)
	VALUES ($1, 0, FALSE, $2)
	RETURNING id;
	`, string(payload), time.Now().UTC()).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("event queue: enqueue: %w", err)
	}
	return id, nil
}

// Lease claims up to limit unleased events, oldest first.
func (q *SQLEventQueue) Lease(ctx context.Context, limit int) (_ []domain.InboundEvent, err error) {
	defer obs.Time(ctx, "event.queue.Lease")(&err)

	if limit <= 0 {
		return nil, nil
	}

	tx, err := q.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("event queue: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, `
	SELECT id, payload, attempts, received_at
	FROM event_inbox
	WHERE leased = FALSE
	ORDER BY id
	LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("event queue: lease query: %w", err)
	}

	var events []domain.InboundEvent
	for rows.Next() {
		var ev domain.InboundEvent
		var payload string
		if err := rows.Scan(&ev.ID, &payload, &ev.Attempts, &ev.ReceivedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("event queue: scan rows: %w", err)
		}
		ev.Payload = []byte(payload)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("event queue: row iteration: %w", err)
	}
	rows.Close()

	for _, ev := range events {
		if _, err := tx.ExecContext(ctx,
			`UPDATE event_inbox SET leased = TRUE WHERE id = $1`, ev.ID); err != nil {
			return nil, fmt.Errorf("event queue: mark leased id=%d: %w", ev.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("event queue: commit lease: %w", err)
	}

	obs.QueueLeased.Add(float64(len(events)))
	return events, nil
}

func (q *SQLEventQueue) Ack(ctx context.Context, eventID int64) error {
	if _, err := q.DB.ExecContext(ctx,
		`DELETE FROM event_inbox WHERE id = $1`, eventID); err != nil {
		return fmt.Errorf("event queue: ack id=%d: %w", eventID, err)
	}
	obs.QueueLeased.Dec()
	return nil
}

func (q *SQLEventQueue) Release(ctx context.Context, eventID int64) error {
	if _, err := q.DB.ExecContext(ctx, `
	UPDATE event_inbox SET leased = FALSE, attempts = attempts + 1 WHERE id = $1
	`, eventID); err != nil {
		return fmt.Errorf("event queue: release id=%d: %w", eventID, err)
	}
	obs.QueueLeased.Dec()
	return nil
}

// Publish appends a reconfiguration message to the outbox.
func (q *SQLEventQueue) Publish(ctx context.Context, rec domain.Reconfiguration) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("event queue: encode reconfiguration order=%d: %w", rec.OrderID, err)
	}

	_, err = q.DB.ExecContext(ctx, `
	INSERT INTO reconfiguration_outbox (order_id, payload, published_at)
	VALUES ($1, $2, $3);
	`, rec.OrderID, string(payload), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("event queue: publish reconfiguration order=%d: %w", rec.OrderID, err)
	}

	obs.ReconfigurationsPublished.Inc()
	return nil
}
