package handlers

import (
	"net/http"

	"shipment-forecast-service/internal/scgraph"
)

// HealthHandler reports liveness plus the size of the loaded supply chain
// graph, so a probe can tell a healthy instance from one serving an empty
// graph.
type HealthHandler struct {
	Graph *scgraph.Graph
}

func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	res := map[string]any{
		"status":   "ok",
		"vertices": h.Graph.VertexCount(),
		"edges":    h.Graph.EdgeCount(),
	}
	writeJSON(w, r, http.StatusOK, res)
}
