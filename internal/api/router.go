package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"shipment-forecast-service/internal/api/handlers"
	"shipment-forecast-service/internal/ports"
	"shipment-forecast-service/internal/scgraph"
	"shipment-forecast-service/internal/services"
)

// Deps carries everything the HTTP surface needs.
type Deps struct {
	Estimations *services.EstimationService
	Retrieval   *services.RetrievalService
	Paths       *services.PathService
	Graph       *scgraph.Graph
	Orders      ports.OrderRepository
	Events      ports.EventQueue
}

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// This is the API composition root (handlers stay unaware of concrete adapters).
func NewRouter(d Deps) http.Handler {
	mux := http.NewServeMux()

	estimationHandler := &handlers.EstimationHandler{
		Estimations: d.Estimations,
		Retrieval:   d.Retrieval,
	}
	pathsHandler := &handlers.PathsHandler{
		Service: d.Paths,
		Graph:   d.Graph,
		Orders:  d.Orders,
	}
	eventsHandler := &handlers.EventsHandler{Queue: d.Events}
	healthHandler := &handlers.HealthHandler{Graph: d.Graph}

	mux.HandleFunc("/health", healthHandler.Check)
	mux.HandleFunc("/estimations/order", estimationHandler.Order)
	mux.HandleFunc("/estimations/vertex", estimationHandler.Vertex)
	mux.HandleFunc("/scgraph/paths", pathsHandler.Paths)
	mux.HandleFunc("/events", eventsHandler.Ingest)
	mux.Handle("/metrics", promhttp.Handler())

	return loggingMiddleware(mux)
}
