package models

import (
	"time"
)

// TransactionRecord is a single row of the payment dataset. Records are
// immutable once produced by the dataset layer; missing values arrive
// pre-normalized (empty string for text, 0 for numeric).
type TransactionRecord struct {
	ID                string    `json:"transaction_id"`
	Date              time.Time `json:"date"`
	Amount            float64   `json:"amount_kzt"`
	Channel           string    `json:"channel"`
	PaymentMethod     string    `json:"payment_method"`
	CustomerSegment   string    `json:"customer_segment"`
	MerchantCategory  string    `json:"merchant_category"`
	City              string    `json:"city"`
	Region            string    `json:"region"`
	DeviceType        string    `json:"device_type"`
	AcquisitionSource string    `json:"acquisition_source"`
	IsRefunded        bool      `json:"is_refunded"`
	IsCanceled        bool      `json:"is_canceled"`
}

// HasDate reports whether the record carries usable date information.
func (r *TransactionRecord) HasDate() bool {
	return !r.Date.IsZero()
}

// Categorical returns the value of a categorical feature column by name.
// Unknown column names return an empty string, which downstream encoders
// treat as missing.
func (r *TransactionRecord) Categorical(column string) string {
	switch column {
	case "channel":
		return r.Channel
	case "payment_method":
		return r.PaymentMethod
	case "customer_segment":
		return r.CustomerSegment
	case "merchant_category":
		return r.MerchantCategory
	case "city":
		return r.City
	case "region":
		return r.Region
	case "device_type":
		return r.DeviceType
	case "acquisition_source":
		return r.AcquisitionSource
	}
	return ""
}

// CancellationRequest describes a single would-be transaction for which the
// caller wants a cancellation probability. City and MerchantCategory are
// optional.
type CancellationRequest struct {
	Amount           float64 `json:"amount_kzt" binding:"required"`
	Channel          string  `json:"channel" binding:"required"`
	PaymentMethod    string  `json:"payment_method" binding:"required"`
	CustomerSegment  string  `json:"customer_segment" binding:"required"`
	City             string  `json:"city,omitempty"`
	MerchantCategory string  `json:"merchant_category,omitempty"`
}

// RiskFactor describes one contributing factor behind a cancellation-risk
// assessment.
type RiskFactor struct {
	Factor  string `json:"factor"`
	Impact  string `json:"impact"` // high, medium
	Details string `json:"details"`
}

// CancellationResult is the outcome of a cancellation-probability request.
type CancellationResult struct {
	CancellationProbability float64      `json:"cancellation_probability"`
	RiskLevel               string       `json:"risk_level"` // low, medium, high
	Factors                 []RiskFactor `json:"factors"`
}

// SuspiciousTransaction is one flagged transaction in a detection result,
// carrying the full record plus the fused anomaly score and explanation.
type SuspiciousTransaction struct {
	TransactionRecord
	AnomalyScore float64 `json:"anomaly_score"` // 0-1, 1 = most anomalous
	RiskLevel    string  `json:"risk_level"`    // low, medium, high
	Reason       string  `json:"reason"`
}

// RiskFactorSummary aggregates how many rows matched one detection rule
// across the whole snapshot, independent of fusion/deduplication.
type RiskFactorSummary struct {
	Factor      string `json:"factor"`
	Count       int    `json:"count"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
}

// DetectionResult is the outcome of one suspicious-transaction scan.
type DetectionResult struct {
	SuspiciousTransactions []SuspiciousTransaction `json:"suspicious_transactions"`
	TotalSuspicious        int                     `json:"total_suspicious"`
	RiskFactors            []RiskFactorSummary     `json:"risk_factors"`
	ModelInsights          string                  `json:"model_insights"`
}

// ForecastPoint is one projected day of transaction activity.
type ForecastPoint struct {
	Date             string  `json:"date"` // YYYY-MM-DD
	PredictedVolume  int     `json:"predicted_volume"`
	PredictedRevenue float64 `json:"predicted_revenue"`
}

// ConfidenceInterval is a fixed multiplier pair around the forecast.
type ConfidenceInterval struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// ForecastResult is the outcome of a volume/revenue projection.
type ForecastResult struct {
	PredictedVolume       []ForecastPoint    `json:"predicted_volume"`
	PredictedTotalRevenue float64            `json:"predicted_total_revenue"`
	ConfidenceInterval    ConfidenceInterval `json:"confidence_interval"`
}

// DatasetSummary describes the currently loaded snapshot.
type DatasetSummary struct {
	TotalTransactions int     `json:"total_transactions"`
	TotalRevenue      float64 `json:"total_revenue"`
	RefundedCount     int     `json:"refunded_count"`
	CanceledCount     int     `json:"canceled_count"`
	FirstDate         string  `json:"first_date,omitempty"`
	LastDate          string  `json:"last_date,omitempty"`
	TrainedAt         string  `json:"trained_at,omitempty"`
}
