// Package dataset owns the validated transaction snapshot: loading,
// schema checks, type coercion and filtering happen here, so downstream
// components never re-check column presence or value shapes.
package dataset

import (
	"time"

	"github.com/adilkhz/paysight/models"
)

// Snapshot is an immutable, schema-validated collection of transaction
// records. All engine operations read from a snapshot; none mutate it.
type Snapshot struct {
	rows    []models.TransactionRecord
	amounts []float64
}

// New builds a snapshot from already-coerced records.
func New(rows []models.TransactionRecord) *Snapshot {
	amounts := make([]float64, len(rows))
	for i := range rows {
		amounts[i] = rows[i].Amount
	}
	return &Snapshot{rows: rows, amounts: amounts}
}

// Empty returns a snapshot with no rows.
func Empty() *Snapshot {
	return New(nil)
}

// Rows exposes the underlying records. Callers must not modify them.
func (s *Snapshot) Rows() []models.TransactionRecord {
	return s.rows
}

// Len returns the number of records in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.rows)
}

// Amounts returns the amount column for the whole snapshot.
func (s *Snapshot) Amounts() []float64 {
	return s.amounts
}

// Filter narrows a detection, forecast or summary request to a subset of
// the snapshot. Zero values mean "no constraint".
type Filter struct {
	From            time.Time
	To              time.Time
	Channel         string
	City            string
	PaymentMethod   string
	CustomerSegment string
}

// IsZero reports whether the filter constrains anything.
func (f Filter) IsZero() bool {
	return f.From.IsZero() && f.To.IsZero() &&
		f.Channel == "" && f.City == "" && f.PaymentMethod == "" && f.CustomerSegment == ""
}

func (f Filter) matches(r *models.TransactionRecord) bool {
	if !f.From.IsZero() && (!r.HasDate() || r.Date.Before(f.From)) {
		return false
	}
	if !f.To.IsZero() && (!r.HasDate() || r.Date.After(f.To)) {
		return false
	}
	if f.Channel != "" && r.Channel != f.Channel {
		return false
	}
	if f.City != "" && r.City != f.City {
		return false
	}
	if f.PaymentMethod != "" && r.PaymentMethod != f.PaymentMethod {
		return false
	}
	if f.CustomerSegment != "" && r.CustomerSegment != f.CustomerSegment {
		return false
	}
	return true
}

// Apply returns a new snapshot containing only the matching rows. The
// receiver is returned unchanged for an unconstrained filter.
func (s *Snapshot) Apply(f Filter) *Snapshot {
	if f.IsZero() {
		return s
	}

	filtered := make([]models.TransactionRecord, 0, len(s.rows))
	for i := range s.rows {
		if f.matches(&s.rows[i]) {
			filtered = append(filtered, s.rows[i])
		}
	}
	return New(filtered)
}

// Summary aggregates headline numbers over the snapshot.
func (s *Snapshot) Summary() models.DatasetSummary {
	sum := models.DatasetSummary{TotalTransactions: len(s.rows)}

	var first, last time.Time
	for i := range s.rows {
		r := &s.rows[i]
		sum.TotalRevenue += r.Amount
		if r.IsRefunded {
			sum.RefundedCount++
		}
		if r.IsCanceled {
			sum.CanceledCount++
		}
		if r.HasDate() {
			if first.IsZero() || r.Date.Before(first) {
				first = r.Date
			}
			if last.IsZero() || r.Date.After(last) {
				last = r.Date
			}
		}
	}

	if !first.IsZero() {
		sum.FirstDate = first.Format("2006-01-02")
		sum.LastDate = last.Format("2006-01-02")
	}
	return sum
}
