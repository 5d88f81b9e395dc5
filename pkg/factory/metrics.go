package factory

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	previewRegenerations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cadhy_factory_preview_regenerations_total",
		Help: "Preview meshes regenerated through the operation contract, by factory kind",
	}, []string{"factory"})

	previewCacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cadhy_factory_preview_cache_hits_total",
		Help: "Preview requests served from the parameter cache without engine calls",
	}, []string{"factory"})

	commitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cadhy_factory_commits_total",
		Help: "Commit attempts by factory kind and outcome (success or error)",
	}, []string{"factory", "outcome"})

	cancellationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cadhy_factory_cancellations_total",
		Help: "Factory cancellations by factory kind",
	}, []string{"factory"})

	updateDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cadhy_factory_update_duration_seconds",
		Help:    "Duration of preview updates by factory kind",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
	}, []string{"factory"})
)

const (
	outcomeSuccess = "success"
	outcomeError   = "error"
)
