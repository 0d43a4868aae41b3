package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TrainingRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "paysight_training_runs_total",
		Help: "Total number of model training passes.",
	})

	DatasetRows = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "paysight_dataset_rows",
		Help: "Number of rows in the currently loaded snapshot.",
	})

	PredictionsServed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paysight_predictions_served_total",
		Help: "Total predictions served, labelled by kind.",
	}, []string{"kind"})

	DetectionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "paysight_detection_duration_seconds",
		Help:    "Wall time of one suspicious-transaction scan.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	})

	SuspiciousFound = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "paysight_suspicious_found",
		Help:    "Suspicious transactions found per detection call.",
		Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
	})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paysight_http_requests_total",
		Help: "HTTP requests handled, labelled by route and status.",
	}, []string{"route", "status"})
)
