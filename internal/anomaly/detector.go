// Package anomaly flags suspicious transactions by fusing an isolation
// forest with deterministic rules. The statistical model is fitted once at
// training time; everything else is computed per detection call.
package anomaly

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/adilkhz/paysight/internal/dataset"
	"github.com/adilkhz/paysight/internal/encode"
	"github.com/adilkhz/paysight/internal/learn"
	"github.com/adilkhz/paysight/models"
)

const (
	minTrainingRows   = 100
	contaminationRate = 0.10
)

// Detector scores a snapshot for suspicious transactions. Immutable after
// TrainDetector; safe for concurrent Detect calls.
type Detector struct {
	forest   *learn.IsolationForest
	encoding *encode.Encoding
	logger   zerolog.Logger
}

// TrainDetector fits the statistical stage on the snapshot. With fewer
// than minTrainingRows rows the statistical stage is simply absent and
// detection runs on rules alone.
func TrainDetector(snap *dataset.Snapshot, logger zerolog.Logger) *Detector {
	d := &Detector{logger: logger.With().Str("component", "anomaly_detector").Logger()}

	rows := snap.Rows()
	if len(rows) < minTrainingRows {
		d.logger.Warn().
			Int("rows", len(rows)).
			Msg("not enough rows for the statistical stage, rules-only detection")
		return d
	}

	d.encoding = encode.Fit(rows, []string{"channel"})
	features := make([][]float64, len(rows))
	for i := range rows {
		features[i] = d.featureVector(&rows[i])
	}

	d.forest = learn.TrainIsolationForest(features, contaminationRate, 42)
	d.logger.Info().Int("rows", len(rows)).Msg("isolation forest trained")
	return d
}

// featureVector is the statistical stage's input: amount, refund and
// cancel flags, and the encoded channel.
func (d *Detector) featureVector(r *models.TransactionRecord) []float64 {
	refunded, canceled := 0.0, 0.0
	if r.IsRefunded {
		refunded = 1
	}
	if r.IsCanceled {
		canceled = 1
	}
	return []float64{r.Amount, refunded, canceled, d.encoding.Code("channel", r.Channel)}
}

// fusedEntry is one transaction's winning (score, reason) pair.
type fusedEntry struct {
	score  float64
	reason string
}

// fuse writes an entry only when the id is not already present:
// first-writer-wins, so the statistical stage outranks rules and earlier
// rules outrank later ones.
func fuse(entries map[string]fusedEntry, id string, entry fusedEntry) {
	if _, exists := entries[id]; exists {
		return
	}
	entries[id] = entry
}

// Detect runs both stages over the snapshot and returns a ranked,
// deduplicated result truncated to limit after sorting. Never errors; an
// empty snapshot yields an empty result.
func (d *Detector) Detect(snap *dataset.Snapshot, limit int) models.DetectionResult {
	result := models.DetectionResult{
		SuspiciousTransactions: []models.SuspiciousTransaction{},
		RiskFactors:            []models.RiskFactorSummary{},
	}

	rows := snap.Rows()
	if len(rows) == 0 {
		result.ModelInsights = "No data available for analysis"
		return result
	}

	entries := make(map[string]fusedEntry)

	// Stage A: statistical pass. Raw scores are min-max normalized within
	// this batch, so scores are not comparable across calls.
	if d.forest != nil {
		raw := make([]float64, len(rows))
		flagged := make([]bool, len(rows))
		minScore, maxScore := 0.0, 0.0
		for i := range rows {
			vector := d.featureVector(&rows[i])
			raw[i] = d.forest.Score(vector)
			flagged[i] = d.forest.Anomalous(vector)
			if i == 0 || raw[i] < minScore {
				minScore = raw[i]
			}
			if i == 0 || raw[i] > maxScore {
				maxScore = raw[i]
			}
		}

		explainer := NewExplainer(rows)
		for i := range rows {
			if !flagged[i] {
				continue
			}
			normalized := 0.5
			if maxScore > minScore {
				normalized = (raw[i] - minScore) / (maxScore - minScore)
			}
			fuse(entries, rows[i].ID, fusedEntry{
				score:  normalized,
				reason: explainer.Explain(&rows[i]),
			})
		}
	}

	// Stage B: deterministic rules, in declaration order.
	ctx := newRuleContext(rows, snap.Amounts())
	for _, rule := range detectionRules() {
		matches := rule.apply(ctx)
		// Summaries reflect population-level prevalence: every match
		// counts even when fusion already holds the transaction.
		if len(matches) > 0 {
			result.RiskFactors = append(result.RiskFactors, models.RiskFactorSummary{
				Factor:      rule.name,
				Count:       len(matches),
				Description: rule.describe(ctx),
				Severity:    rule.severity,
			})
		}
		for _, match := range matches {
			fuse(entries, rows[match.index].ID, fusedEntry{score: match.score, reason: match.reason})
		}
	}

	// Materialize in snapshot order, first occurrence of each id only.
	consumed := make(map[string]bool, len(entries))
	for i := range rows {
		entry, ok := entries[rows[i].ID]
		if !ok || consumed[rows[i].ID] {
			continue
		}
		consumed[rows[i].ID] = true
		result.SuspiciousTransactions = append(result.SuspiciousTransactions, models.SuspiciousTransaction{
			TransactionRecord: rows[i],
			AnomalyScore:      entry.score,
			RiskLevel:         scoreRiskLevel(entry.score),
			Reason:            entry.reason,
		})
	}

	sort.SliceStable(result.SuspiciousTransactions, func(i, j int) bool {
		a, b := &result.SuspiciousTransactions[i], &result.SuspiciousTransactions[j]
		if a.AnomalyScore != b.AnomalyScore {
			return a.AnomalyScore > b.AnomalyScore
		}
		return a.ID < b.ID
	})

	result.TotalSuspicious = len(result.SuspiciousTransactions)
	if limit > 0 && len(result.SuspiciousTransactions) > limit {
		result.SuspiciousTransactions = result.SuspiciousTransactions[:limit]
	}

	result.ModelInsights = d.insights(len(rows), result)
	return result
}

func scoreRiskLevel(score float64) string {
	switch {
	case score >= 0.8:
		return "high"
	case score >= 0.6:
		return "medium"
	default:
		return "low"
	}
}

func (d *Detector) insights(analyzed int, result models.DetectionResult) string {
	insights := fmt.Sprintf("Analyzed %d transactions. Detected %d suspicious operations. ",
		analyzed, result.TotalSuspicious)
	if d.forest != nil {
		insights += "Isolation forest model was used for anomaly detection. "
	}
	if len(result.SuspiciousTransactions) == 0 {
		return insights + "No anomalies detected."
	}

	var sum float64
	for i := range result.SuspiciousTransactions {
		sum += result.SuspiciousTransactions[i].AnomalyScore
	}
	return insights + fmt.Sprintf("Average anomaly score: %.2f.",
		sum/float64(len(result.SuspiciousTransactions)))
}
