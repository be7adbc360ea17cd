package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"shipment-forecast-service/internal/domain"
	"shipment-forecast-service/internal/platform/obs"
	"shipment-forecast-service/internal/ports"
)

// WorkerConfig sizes the polling loop. Zero values fall back to the
// defaults below.
type WorkerConfig struct {
	Workers      int
	BatchSize    int
	PollInterval time.Duration
	MaxAttempts  int
}

func (c WorkerConfig) withDefaults() WorkerConfig {
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 16
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 2 * time.Second
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	return c
}

// Worker drains the inbound event queue: a fixed goroutine pool decodes
// each envelope, dispatches it to the matching handler, and publishes
// the actionable reconfiguration candidates. Transient failures release
// the event for a retry; malformed or repeatedly failing events are
// acknowledged away with a log line.
type Worker struct {
	queue      ports.EventQueue
	outbound   ports.ReconfigurationQueue
	order      *OrderEventHandler
	disruption *DisruptionEventHandler
	cfg        WorkerConfig
}

func NewWorker(queue ports.EventQueue, outbound ports.ReconfigurationQueue, order *OrderEventHandler, disruption *DisruptionEventHandler, cfg WorkerConfig) *Worker {
	return &Worker{
		queue:      queue,
		outbound:   outbound,
		order:      order,
		disruption: disruption,
		cfg:        cfg.withDefaults(),
	}
}

// Run polls until the context is cancelled. Each leased batch is fanned
// out over the worker pool and fully settled before the next poll.
func (w *Worker) Run(ctx context.Context) error {
	jobs := make(chan domain.InboundEvent, w.cfg.BatchSize)

	var wg sync.WaitGroup
	for i := 0; i < w.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ev := range jobs {
				w.settle(ctx, ev)
			}
		}()
	}

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return ctx.Err()
		case <-ticker.C:
		}

		batch, err := w.queue.Lease(ctx, w.cfg.BatchSize)
		if err != nil {
			log.Printf("op=event_worker msg=\"lease batch\" err=%q", err)
			continue
		}
		for _, ev := range batch {
			jobs <- ev
		}
	}
}

// settle processes one leased event and acknowledges or releases it.
func (w *Worker) settle(ctx context.Context, ev domain.InboundEvent) {
	eventType, err := w.process(ctx, ev)
	if err == nil {
		obs.EventsProcessed.WithLabelValues(eventType, "ok").Inc()
		if err := w.queue.Ack(ctx, ev.ID); err != nil {
			log.Printf("op=event_worker event_id=%d msg=\"ack\" err=%q", ev.ID, err)
		}
		return
	}

	if ev.Attempts+1 >= w.cfg.MaxAttempts {
		obs.EventsProcessed.WithLabelValues(eventType, "parked").Inc()
		log.Printf("op=event_worker event_id=%d attempts=%d msg=\"giving up\" err=%q", ev.ID, ev.Attempts+1, err)
		if err := w.queue.Ack(ctx, ev.ID); err != nil {
			log.Printf("op=event_worker event_id=%d msg=\"ack parked\" err=%q", ev.ID, err)
		}
		return
	}

	obs.EventsProcessed.WithLabelValues(eventType, "error").Inc()
	log.Printf("op=event_worker event_id=%d attempts=%d msg=\"handling failed, releasing\" err=%q", ev.ID, ev.Attempts+1, err)
	if err := w.queue.Release(ctx, ev.ID); err != nil {
		log.Printf("op=event_worker event_id=%d msg=\"release\" err=%q", ev.ID, err)
	}
}

// process decodes and handles one event, returning the envelope type
// for metrics even on failure.
func (w *Worker) process(ctx context.Context, ev domain.InboundEvent) (string, error) {
	env, err := ParseEnvelope(ev.Payload)
	if err != nil {
		return "unknown", err
	}

	timestamp := env.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}

	var recs []domain.Reconfiguration
	switch env.EventType {
	case TypeTrackingUpdate:
		var data OrderEventData
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return env.EventType, fmt.Errorf("decode order event: %w", err)
		}
		recs, err = w.order.Handle(ctx, data, timestamp)
	case TypeDisruptionEvent:
		var data DisruptionEventData
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return env.EventType, fmt.Errorf("decode disruption event: %w", err)
		}
		recs, err = w.disruption.Handle(ctx, data, timestamp)
	}
	if err != nil {
		return env.EventType, err
	}

	for _, rec := range recs {
		if !rec.Actionable() {
			log.Printf("op=event_worker order_id=%d msg=\"not actionable, not forwarding\"", rec.OrderID)
			continue
		}
		if err := w.outbound.Publish(ctx, rec); err != nil {
			return env.EventType, fmt.Errorf("publish reconfiguration for order %d: %w", rec.OrderID, err)
		}
	}
	return env.EventType, nil
}
