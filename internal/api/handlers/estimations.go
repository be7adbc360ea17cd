package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"shipment-forecast-service/internal/api/dto"
	"shipment-forecast-service/internal/forecast"
	"shipment-forecast-service/internal/ports"
	"shipment-forecast-service/internal/scgraph"
	"shipment-forecast-service/internal/services"
)

// EstimationHandler serves forecast computation and retrieval. Order
// estimations are persisted; vertex estimations are volatile.
type EstimationHandler struct {
	Estimations *services.EstimationService
	Retrieval   *services.RetrievalService
}

func vertexRef(v dto.Vertex) services.VertexRef {
	return services.VertexRef{
		ID:   v.VertexID,
		Name: v.VertexName,
		Type: scgraph.VertexType(v.VertexType),
	}
}

// failureStatus separates requests the caller can fix from genuine
// internal failures.
func failureStatus(err error) string {
	switch {
	case errors.Is(err, ports.ErrNotFound),
		errors.Is(err, services.ErrBadVertexRef),
		errors.Is(err, scgraph.ErrVertexNotFound),
		errors.Is(err, scgraph.ErrBadCarrierNames),
		errors.Is(err, forecast.ErrBadTimeSequence):
		return dto.StatusFailed
	default:
		return dto.StatusError
	}
}

// Order serves POST (compute and persist, single or batch) and GET
// (stored estimations filtered by the order query parameter).
func (h *EstimationHandler) Order(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.retrieveOrders(w, r)
	case http.MethodPost:
		h.estimateOrders(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *EstimationHandler) retrieveOrders(w http.ResponseWriter, r *http.Request) {
	ids, err := parseIDList(r.URL.Query().Get("order"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, fmt.Sprintf("order parameter: %v", err))
		return
	}

	groups, err := h.Retrieval.OrdersEstimations(r.Context(), ids)
	if err != nil {
		log.Printf("retrieve estimations failed: orders=%v err=%v", ids, err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	res := make([]dto.OrderEstimations, 0, len(groups))
	for _, g := range groups {
		history := make([]dto.Estimation, 0, len(g.History))
		for _, e := range g.History {
			history = append(history, dto.FromEstimation(e))
		}
		res = append(res, dto.OrderEstimations{
			OrderID: g.OrderID,
			Latest:  dto.FromEstimation(g.Latest),
			History: history,
		})
	}
	writeJSON(w, r, http.StatusOK, res)
}

func (h *EstimationHandler) estimateOrders(w http.ResponseWriter, r *http.Request) {
	reqs, single, err := decodeOneOrMany[dto.OrderEstimationRequest](r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	results := make([]dto.EstimationResult, 0, len(reqs))
	for _, req := range reqs {
		if req.Vertex == nil {
			results = append(results, dto.EstimationResult{
				Status:  dto.StatusFailed,
				Message: fmt.Sprintf("order %d: vertex is required", req.OrderID),
			})
			continue
		}

		estimationTime := time.Now().UTC()
		if req.EstimationTime != nil {
			estimationTime = *req.EstimationTime
		}

		est, err := h.Estimations.EstimateOrder(r.Context(), services.OrderEstimationRequest{
			OrderID:        req.OrderID,
			Vertex:         vertexRef(*req.Vertex),
			EventTime:      req.EventTime,
			EstimationTime: estimationTime,
		})
		if err != nil {
			status := failureStatus(err)
			if status == dto.StatusError {
				log.Printf("order estimation failed: order=%d err=%v", req.OrderID, err)
			}
			results = append(results, dto.EstimationResult{
				Status:  status,
				Message: fmt.Sprintf("order %d: %v", req.OrderID, err),
			})
			continue
		}

		data := dto.FromEstimation(est)
		results = append(results, dto.EstimationResult{
			Status:   dto.StatusCreated,
			ID:       est.ID,
			Location: fmt.Sprintf("/estimations/order?order=%d", est.OrderID),
			Data:     &data,
		})
	}

	if single {
		writeSingleResult(w, r, results[0], http.StatusCreated)
		return
	}
	writeBatchResults(w, r, results, http.StatusCreated, "/estimations/order")
}

// Vertex serves POST volatile estimations for a hypothetical order at
// an arbitrary vertex. Nothing is stored.
func (h *EstimationHandler) Vertex(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	reqs, single, err := decodeOneOrMany[dto.VertexEstimationRequest](r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	results := make([]dto.EstimationResult, 0, len(reqs))
	for _, req := range reqs {
		est, err := h.Estimations.EstimateVertex(r.Context(), services.VertexEstimationRequest{
			Vertex:         vertexRef(req.Vertex),
			CarrierID:      req.Carrier.CarrierID,
			CarrierName:    req.Carrier.CarrierName,
			SiteID:         req.Site.SiteID,
			OrderTime:      req.OrderTime,
			EventTime:      req.EventTime,
			EstimationTime: req.EstimationTime,
			ShipmentTime:   req.ShipmentTime,
		})
		if err != nil {
			status := failureStatus(err)
			if status == dto.StatusError {
				log.Printf("vertex estimation failed: site=%d err=%v", req.Site.SiteID, err)
			}
			results = append(results, dto.EstimationResult{
				Status:  status,
				Message: fmt.Sprintf("site %d: %v", req.Site.SiteID, err),
			})
			continue
		}

		data := dto.FromEstimation(est)
		results = append(results, dto.EstimationResult{Status: dto.StatusCreated, Data: &data})
	}

	if single {
		writeSingleResult(w, r, results[0], http.StatusOK)
		return
	}
	writeBatchResults(w, r, results, http.StatusOK, "")
}

// writeSingleResult maps one estimation outcome onto its HTTP status:
// success, unprocessable request, or internal error.
func writeSingleResult(w http.ResponseWriter, r *http.Request, res dto.EstimationResult, okStatus int) {
	switch res.Status {
	case dto.StatusCreated:
		if res.Location != "" {
			w.Header().Set("Location", res.Location)
		}
		writeJSON(w, r, okStatus, res.Data)
	case dto.StatusFailed:
		writeError(w, r, http.StatusUnprocessableEntity, res.Message)
	default:
		writeError(w, r, http.StatusInternalServerError, res.Message)
	}
}

// writeBatchResults collapses a homogeneous batch onto the matching
// status and reports mixed outcomes as 207 Multi-Status.
func writeBatchResults(w http.ResponseWriter, r *http.Request, results []dto.EstimationResult, okStatus int, location string) {
	counts := map[string]int{}
	for _, res := range results {
		counts[res.Status]++
	}

	setLocation := func() {
		if location != "" && counts[dto.StatusCreated] > 0 {
			w.Header().Set("Location", location)
		}
	}

	if len(counts) > 1 {
		setLocation()
		writeJSON(w, r, http.StatusMultiStatus, results)
		return
	}

	switch {
	case counts[dto.StatusCreated] > 0:
		setLocation()
		writeJSON(w, r, okStatus, results)
	case counts[dto.StatusFailed] > 0:
		writeJSON(w, r, http.StatusUnprocessableEntity, results)
	default:
		writeJSON(w, r, http.StatusInternalServerError, results)
	}
}
