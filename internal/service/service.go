// Package service owns the engine lifecycle: one training pass builds an
// immutable model artifact, inference reads whichever artifact is current.
// There are no package-level singletons; callers construct and own the
// engine.
package service

import (
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/adilkhz/paysight/internal/anomaly"
	"github.com/adilkhz/paysight/internal/cancellation"
	"github.com/adilkhz/paysight/internal/dataset"
	"github.com/adilkhz/paysight/internal/forecast"
	"github.com/adilkhz/paysight/internal/metrics"
	"github.com/adilkhz/paysight/models"
)

// Artifact bundles everything one training pass produced. It is never
// mutated after Train returns it; a retrain builds a brand-new artifact.
type Artifact struct {
	Snapshot     *dataset.Snapshot
	Cancellation *cancellation.Model
	Detector     *anomaly.Detector
	TrainedAt    time.Time
}

// Engine is the predictive risk engine. All inference methods are pure
// reads over the current artifact and may run concurrently; Train swaps
// the artifact reference atomically, so readers never observe a partial
// model.
type Engine struct {
	artifact atomic.Pointer[Artifact]
	logger   zerolog.Logger
}

// New creates an engine with an empty artifact; every operation returns a
// well-formed zero result until the first Train.
func New(logger zerolog.Logger) *Engine {
	e := &Engine{logger: logger.With().Str("component", "engine").Logger()}

	// Bootstrap artifact over an empty snapshot, so inference is well
	// defined before the first real training pass.
	boot := &Artifact{Snapshot: dataset.Empty()}
	boot.Cancellation = cancellation.Train(boot.Snapshot, zerolog.Nop())
	boot.Detector = anomaly.TrainDetector(boot.Snapshot, zerolog.Nop())
	e.artifact.Store(boot)
	return e
}

// Train fits a fresh artifact from the snapshot and swaps it in. Blocking
// batch operation; not designed to run concurrently with itself.
func (e *Engine) Train(snap *dataset.Snapshot) {
	started := time.Now()
	artifact := &Artifact{
		Snapshot:     snap,
		Cancellation: cancellation.Train(snap, e.logger),
		Detector:     anomaly.TrainDetector(snap, e.logger),
		TrainedAt:    time.Now(),
	}
	e.artifact.Store(artifact)

	metrics.TrainingRuns.Inc()
	metrics.DatasetRows.Set(float64(snap.Len()))
	e.logger.Info().
		Int("rows", snap.Len()).
		Bool("classifier", artifact.Cancellation.Available()).
		Dur("took", time.Since(started)).
		Msg("model artifact trained and swapped")
}

// Current returns the live artifact.
func (e *Engine) Current() *Artifact {
	return e.artifact.Load()
}

// PredictCancellation estimates the cancellation probability for one
// would-be transaction against the current artifact.
func (e *Engine) PredictCancellation(req models.CancellationRequest) models.CancellationResult {
	artifact := e.Current()
	result := artifact.Cancellation.Predict(artifact.Snapshot, req)
	metrics.PredictionsServed.WithLabelValues("cancellation").Inc()
	return result
}

// DetectSuspicious scans the current snapshot, narrowed by the filter,
// and returns at most limit ranked suspicious transactions.
func (e *Engine) DetectSuspicious(filter dataset.Filter, limit int) models.DetectionResult {
	started := time.Now()
	artifact := e.Current()
	result := artifact.Detector.Detect(artifact.Snapshot.Apply(filter), limit)

	metrics.PredictionsServed.WithLabelValues("suspicious").Inc()
	metrics.DetectionDuration.Observe(time.Since(started).Seconds())
	metrics.SuspiciousFound.Observe(float64(result.TotalSuspicious))
	return result
}

// Forecast projects daysAhead days of volume and revenue from the current
// snapshot, narrowed by the filter.
func (e *Engine) Forecast(filter dataset.Filter, daysAhead int) models.ForecastResult {
	artifact := e.Current()
	result := forecast.Project(artifact.Snapshot.Apply(filter), daysAhead, time.Now())
	metrics.PredictionsServed.WithLabelValues("forecast").Inc()
	return result
}

// Summary describes the currently loaded snapshot.
func (e *Engine) Summary() models.DatasetSummary {
	artifact := e.Current()
	summary := artifact.Snapshot.Summary()
	if !artifact.TrainedAt.IsZero() {
		summary.TrainedAt = artifact.TrainedAt.UTC().Format(time.RFC3339)
	}
	return summary
}
