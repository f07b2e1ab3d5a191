package manager

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	modelsLoaded = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "mlserve",
			Name:      "models_loaded",
			Help:      "Number of models in the published routing table",
		},
	)

	modelLoadFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mlserve",
			Name:      "model_load_failures_total",
			Help:      "Model load failures by pipeline stage",
		},
		[]string{"stage"},
	)

	modelLoadDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "mlserve",
			Name:      "model_load_duration_seconds",
			Help:      "Duration of a single model's resolve and load in seconds",
			Buckets:   []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600, 1200},
		},
	)

	inferenceTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mlserve",
			Name:      "inference_total",
			Help:      "Inference requests by model and outcome",
		},
		[]string{"model", "outcome"},
	)

	inferenceDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mlserve",
			Name:      "inference_duration_seconds",
			Help:      "Duration of engine generation in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		},
		[]string{"model"},
	)
)

func init() {
	prometheus.MustRegister(modelsLoaded, modelLoadFailures, modelLoadDuration, inferenceTotal, inferenceDuration)
}

// Inference outcomes. Requests for unknown names are counted under
// unknownModelLabel to keep label cardinality bounded by the table.
const (
	outcomeOK         = "ok"
	outcomeNotFound   = "not_found"
	outcomeError      = "error"
	outcomeNoOutput   = "no_output"
	unknownModelLabel = "_unknown"
)
