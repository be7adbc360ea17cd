package obs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Service-level Prometheus collectors. Registered on the default
// registry; cmd binaries expose them via promhttp.
var (
	EstimationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "forecast_estimations_total",
		Help: "Completed estimation runs by outcome.",
	}, []string{"status"})

	EstimationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "forecast_estimation_duration_seconds",
		Help:    "End-to-end duration of one estimation run.",
		Buckets: prometheus.DefBuckets,
	})

	OpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "forecast_op_duration_seconds",
		Help:    "Duration of timed internal operations by name.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})

	PathCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "forecast_path_cache_lookups_total",
		Help: "Path memo lookups by result.",
	}, []string{"memo", "result"})

	DPSaves = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "forecast_dp_saves_total",
		Help: "Durable memo writes by memo kind and outcome.",
	}, []string{"memo", "outcome"})

	UpstreamFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "forecast_upstream_fallbacks_total",
		Help: "External service calls degraded to a local fallback.",
	}, []string{"service"})

	EventsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "forecast_events_processed_total",
		Help: "Inbound events handled by type and outcome.",
	}, []string{"type", "status"})

	ReconfigurationsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "forecast_reconfigurations_published_total",
		Help: "Reconfiguration messages published to the outbound queue.",
	})

	QueueLeased = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "forecast_event_queue_leased",
		Help: "Inbound events currently leased by the worker.",
	})
)
