package domain

import "time"

// InboundEvent is one undelivered message from the event inbox. Payload
// holds the raw envelope body; Attempts counts delivery tries so
// repeatedly failing events can be parked.
type InboundEvent struct {
	ID         int64
	Payload    []byte
	Attempts   int
	ReceivedAt time.Time
}
