package dto

// EventAccepted acknowledges an enqueued inbound event.
type EventAccepted struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
}
