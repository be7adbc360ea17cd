package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"shipment-forecast-service/internal/ports"
	"shipment-forecast-service/internal/scgraph"
	"shipment-forecast-service/internal/services"
)

// PathsHandler inspects the scored path sets of the supply-chain graph.
type PathsHandler struct {
	Service *services.PathService
	Graph  *scgraph.Graph
	Orders ports.OrderRepository
}

// Paths serves GET with optional source (comma-separated vertex ids,
// default all), carrier_name (comma-separated, default every carrier
// with orders) and by (id or name, default name) query parameters.
func (h *PathsHandler) Paths(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	q := r.URL.Query()

	by := q.Get("by")
	if by == "" {
		by = "name"
	}
	if by != "id" && by != "name" {
		writeError(w, r, http.StatusBadRequest, fmt.Sprintf("by parameter must be id or name, got %q", by))
		return
	}

	sourceIDs, err := parseIDList(q.Get("source"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, fmt.Sprintf("source parameter: %v", err))
		return
	}
	if len(sourceIDs) == 0 {
		for i := 0; i < h.Graph.VertexCount(); i++ {
			v, err := h.Graph.Vertex(i)
			if err != nil {
				writeError(w, r, http.StatusInternalServerError, "internal server error")
				return
			}
			sourceIDs = append(sourceIDs, v.ID)
		}
	}

	carriers, err := h.resolveCarriers(r, parseNameList(q.Get("carrier_name")))
	if err != nil {
		if errors.Is(err, scgraph.ErrBadCarrierNames) {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("resolve carriers failed: err=%v", err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	results := make([]any, 0, len(sourceIDs))
	for _, sourceID := range sourceIDs {
		paths, err := h.extract(r, sourceID, carriers, by)
		if errors.Is(err, scgraph.ErrVertexNotFound) {
			log.Printf("paths source skipped: source=%d err=%v", sourceID, err)
			continue
		}
		if errors.Is(err, scgraph.ErrBadCarrierNames) {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		if err != nil {
			log.Printf("paths extraction failed: source=%d err=%v", sourceID, err)
			writeError(w, r, http.StatusInternalServerError, "internal server error")
			return
		}
		results = append(results, paths)
	}

	writeJSON(w, r, http.StatusOK, results)
}

// resolveCarriers canonicalizes requested carrier names against the
// store, or lists every carrier with at least one order when none were
// requested.
func (h *PathsHandler) resolveCarriers(r *http.Request, requested []string) ([]string, error) {
	if len(requested) == 0 {
		carriers, err := h.Orders.CarriersWithOrders(r.Context())
		if err != nil {
			return nil, err
		}
		names := make([]string, 0, len(carriers))
		for _, c := range carriers {
			names = append(names, c.Name)
		}
		return names, nil
	}

	var names []string
	for _, name := range requested {
		c, err := h.Orders.CarrierByName(r.Context(), name)
		if errors.Is(err, ports.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		names = append(names, c.Name)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("carrier_name parameter %v: %w", requested, scgraph.ErrBadCarrierNames)
	}
	return names, nil
}

func (h *PathsHandler) extract(r *http.Request, sourceID int, carriers []string, by string) (any, error) {
	if by == "id" {
		return h.Service.PathsByID(r.Context(), sourceID, carriers, false)
	}

	v, err := h.Graph.VertexByID(sourceID)
	if err != nil {
		return nil, err
	}
	return h.Service.PathsByName(r.Context(), v.Name, carriers, false)
}
