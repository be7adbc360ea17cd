package ports

import (
	"context"

	"shipment-forecast-service/internal/domain"
)

// EventQueue is the inbound side of the tracking event flow: producers
// enqueue raw envelopes, the worker leases a batch, then acknowledges
// or releases each event. A released event becomes visible again with
// its attempt counter bumped.
type EventQueue interface {
	Enqueue(ctx context.Context, payload []byte) (int64, error)
	Lease(ctx context.Context, limit int) ([]domain.InboundEvent, error)
	Ack(ctx context.Context, eventID int64) error
	Release(ctx context.Context, eventID int64) error
}

// ReconfigurationQueue is the outbound side: reconfiguration messages
// for the planning layer.
type ReconfigurationQueue interface {
	Publish(ctx context.Context, rec domain.Reconfiguration) error
}
