package handlers

import (
	"io"
	"log"
	"net/http"

	"shipment-forecast-service/internal/api/dto"
	"shipment-forecast-service/internal/events"
	"shipment-forecast-service/internal/ports"
)

// maxEventBytes caps inbound event payloads.
const maxEventBytes = 1 << 20

// EventsHandler accepts tracking and disruption event envelopes and
// hands them to the queue for asynchronous processing.
type EventsHandler struct {
	Queue ports.EventQueue
}

func (h *EventsHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	defer r.Body.Close()
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxEventBytes))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "read body failed")
		return
	}

	// Reject malformed envelopes at the door so the queue only ever
	// holds payloads the worker can decode.
	env, err := events.ParseEnvelope(payload)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	id, err := h.Queue.Enqueue(r.Context(), payload)
	if err != nil {
		log.Printf("enqueue event failed: type=%s err=%v", env.EventType, err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	log.Printf("event accepted: id=%d type=%s", id, env.EventType)
	writeJSON(w, r, http.StatusAccepted, dto.EventAccepted{ID: id, Status: "ACCEPTED"})
}
