// Package cancellation estimates the probability that a transaction will
// be canceled. A trained random forest serves predictions when enough
// history exists; otherwise the model degrades to empirical cancellation
// rates and never returns an error.
package cancellation

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/adilkhz/paysight/internal/calculate"
	"github.com/adilkhz/paysight/internal/dataset"
	"github.com/adilkhz/paysight/internal/encode"
	"github.com/adilkhz/paysight/internal/learn"
	"github.com/adilkhz/paysight/models"
)

const (
	minTrainingRows   = 100
	minFeatureColumns = 3
)

// featureColumns are the categorical inputs of the classifier; the amount
// is always the first element of the feature vector.
var featureColumns = []string{
	"channel", "payment_method", "customer_segment",
	"merchant_category", "city", "device_type",
}

// Model is a trained (or deliberately unavailable) cancellation classifier.
// Immutable after Train; safe for concurrent use.
type Model struct {
	forest   *learn.Forest
	encoding *encode.Encoding
	logger   zerolog.Logger
}

// Train fits the classifier on the snapshot. Training is skipped, not
// failed, when fewer than minTrainingRows usable rows or fewer than
// minFeatureColumns usable feature columns exist: the returned model then
// serves the empirical-rate fallback.
func Train(snap *dataset.Snapshot, logger zerolog.Logger) *Model {
	m := &Model{logger: logger.With().Str("component", "cancellation_model").Logger()}

	rows := snap.Rows()
	usableCats := encode.UsableColumns(rows, featureColumns)

	amountUsable := false
	for i := range rows {
		if rows[i].Amount != 0 {
			amountUsable = true
			break
		}
	}

	usableColumns := len(usableCats)
	if amountUsable {
		usableColumns++
	}
	if usableColumns < minFeatureColumns {
		m.logger.Warn().
			Int("usable_columns", usableColumns).
			Msg("not enough usable feature columns, cancellation model unavailable")
		return m
	}

	// Rows with any missing usable feature are excluded, not imputed.
	var trainRows []models.TransactionRecord
	for i := range rows {
		if amountUsable && rows[i].Amount == 0 {
			continue
		}
		missing := false
		for _, col := range usableCats {
			if rows[i].Categorical(col) == "" {
				missing = true
				break
			}
		}
		if !missing {
			trainRows = append(trainRows, rows[i])
		}
	}

	if len(trainRows) < minTrainingRows {
		m.logger.Warn().
			Int("usable_rows", len(trainRows)).
			Msg("not enough training rows, cancellation model unavailable")
		return m
	}

	encoding := encode.Fit(trainRows, usableCats)
	features := make([][]float64, len(trainRows))
	labels := make([]int, len(trainRows))
	for i := range trainRows {
		features[i] = encoding.Vector(&trainRows[i])
		if trainRows[i].IsCanceled {
			labels[i] = 1
		}
	}

	forest := learn.TrainForest(features, labels, learn.DefaultForestConfig())
	if forest == nil {
		m.logger.Warn().Msg("forest training produced no model, cancellation model unavailable")
		return m
	}

	m.forest = forest
	m.encoding = encoding
	m.logger.Info().
		Int("rows", len(trainRows)).
		Int("feature_columns", usableColumns).
		Msg("cancellation model trained")
	return m
}

// Available reports whether a trained classifier backs this model.
func (m *Model) Available() bool {
	return m != nil && m.forest != nil
}

// Predict returns the cancellation probability, risk bucket and
// contributing factors for one would-be transaction. Never errors: an
// unavailable model falls back to empirical rates, an empty snapshot
// yields probability 0.
func (m *Model) Predict(snap *dataset.Snapshot, req models.CancellationRequest) models.CancellationResult {
	var probability float64
	if m.Available() {
		record := models.TransactionRecord{
			Amount:           req.Amount,
			Channel:          req.Channel,
			PaymentMethod:    req.PaymentMethod,
			CustomerSegment:  req.CustomerSegment,
			City:             req.City,
			MerchantCategory: req.MerchantCategory,
		}
		probability = m.forest.PredictProba(m.encoding.Vector(&record))
	} else {
		probability = fallbackRate(snap, req)
	}

	return models.CancellationResult{
		CancellationProbability: probability,
		RiskLevel:               RiskLevel(probability),
		Factors:                 riskFactors(snap, req),
	}
}

// RiskLevel buckets a probability with fixed, non-learned thresholds.
func RiskLevel(probability float64) string {
	switch {
	case probability < 0.1:
		return "low"
	case probability < 0.3:
		return "medium"
	default:
		return "high"
	}
}

// fallbackRate is the empirical cancellation rate among transactions
// matching the request on channel, payment method and customer segment,
// falling back to the dataset-wide rate, then to 0 on an empty dataset.
func fallbackRate(snap *dataset.Snapshot, req models.CancellationRequest) float64 {
	rows := snap.Rows()
	if len(rows) == 0 {
		return 0
	}

	matched, matchedCanceled := 0, 0
	totalCanceled := 0
	for i := range rows {
		if rows[i].IsCanceled {
			totalCanceled++
		}
		if rows[i].Channel == req.Channel &&
			rows[i].PaymentMethod == req.PaymentMethod &&
			rows[i].CustomerSegment == req.CustomerSegment {
			matched++
			if rows[i].IsCanceled {
				matchedCanceled++
			}
		}
	}

	if matched > 0 {
		return float64(matchedCanceled) / float64(matched)
	}
	return float64(totalCanceled) / float64(len(rows))
}

func riskFactors(snap *dataset.Snapshot, req models.CancellationRequest) []models.RiskFactor {
	rows := snap.Rows()
	factors := []models.RiskFactor{}
	if len(rows) == 0 {
		return factors
	}

	overall := groupCancelRate(rows, func(*models.TransactionRecord) bool { return true })

	if rate := groupCancelRate(rows, func(r *models.TransactionRecord) bool {
		return r.Channel == req.Channel
	}); rate > overall*1.2 {
		factors = append(factors, models.RiskFactor{
			Factor: "channel",
			Impact: "high",
			Details: fmt.Sprintf("%s has higher cancellation rate (%.1f%% vs %.1f%% overall)",
				req.Channel, rate*100, overall*100),
		})
	}

	if rate := groupCancelRate(rows, func(r *models.TransactionRecord) bool {
		return r.PaymentMethod == req.PaymentMethod
	}); rate > overall*1.2 {
		factors = append(factors, models.RiskFactor{
			Factor: "payment_method",
			Impact: "high",
			Details: fmt.Sprintf("%s has higher cancellation rate (%.1f%% vs %.1f%% overall)",
				req.PaymentMethod, rate*100, overall*100),
		})
	}

	if req.Amount > calculate.Quantile(snap.Amounts(), 0.9) {
		factors = append(factors, models.RiskFactor{
			Factor:  "amount",
			Impact:  "medium",
			Details: "High-value transactions have higher cancellation risk",
		})
	}

	return factors
}

func groupCancelRate(rows []models.TransactionRecord, match func(*models.TransactionRecord) bool) float64 {
	total, canceled := 0, 0
	for i := range rows {
		if !match(&rows[i]) {
			continue
		}
		total++
		if rows[i].IsCanceled {
			canceled++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(canceled) / float64(total)
}
