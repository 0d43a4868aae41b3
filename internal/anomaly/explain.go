package anomaly

import (
	"fmt"
	"strings"

	"github.com/adilkhz/paysight/internal/calculate"
	"github.com/adilkhz/paysight/models"
)

const (
	highRefundRate = 0.30
	highCancelRate = 0.20
)

// Explainer derives human-readable reasons for a flagged transaction from
// how far its fields deviate from snapshot-level baselines. Baselines are
// computed once per detection call.
type Explainer struct {
	meanAmount        float64
	stdAmount         float64
	medianAmount      float64
	channelRefundRate map[string]float64
	methodCancelRate  map[string]float64
}

// NewExplainer computes the baselines for one snapshot.
func NewExplainer(rows []models.TransactionRecord) *Explainer {
	amounts := make([]float64, len(rows))
	channelTotal := map[string]int{}
	channelRefunded := map[string]int{}
	methodTotal := map[string]int{}
	methodCanceled := map[string]int{}

	for i := range rows {
		r := &rows[i]
		amounts[i] = r.Amount
		if r.Channel != "" {
			channelTotal[r.Channel]++
			if r.IsRefunded {
				channelRefunded[r.Channel]++
			}
		}
		if r.PaymentMethod != "" {
			methodTotal[r.PaymentMethod]++
			if r.IsCanceled {
				methodCanceled[r.PaymentMethod]++
			}
		}
	}

	e := &Explainer{
		meanAmount:        calculate.Mean(amounts),
		stdAmount:         calculate.StdDev(amounts),
		medianAmount:      calculate.Median(amounts),
		channelRefundRate: make(map[string]float64, len(channelTotal)),
		methodCancelRate:  make(map[string]float64, len(methodTotal)),
	}
	for channel, total := range channelTotal {
		e.channelRefundRate[channel] = float64(channelRefunded[channel]) / float64(total)
	}
	for method, total := range methodTotal {
		e.methodCancelRate[method] = float64(methodCanceled[method]) / float64(total)
	}
	return e
}

// Explain produces one reason string for a flagged transaction by joining
// every fragment that fires, in a fixed evaluation order. A generic
// sentence is returned when nothing fires.
func (e *Explainer) Explain(r *models.TransactionRecord) string {
	var reasons []string

	if e.stdAmount > 0 && r.Amount > e.meanAmount+2*e.stdAmount {
		reasons = append(reasons, fmt.Sprintf(
			"Transaction amount (%.0f KZT) significantly exceeds the average (%.0f KZT)",
			r.Amount, e.meanAmount))
	} else if e.medianAmount > 0 && r.Amount > 3*e.medianAmount {
		reasons = append(reasons, fmt.Sprintf(
			"Transaction amount is %.1f times the median", r.Amount/e.medianAmount))
	}

	if r.IsRefunded {
		reasons = append(reasons, "Transaction was refunded")
	}
	if r.IsCanceled {
		reasons = append(reasons, "Transaction was canceled")
	}

	if rate, ok := e.channelRefundRate[r.Channel]; ok && rate > highRefundRate {
		reasons = append(reasons, fmt.Sprintf(
			"Channel '%s' has a high refund rate (%.1f%%)", r.Channel, rate*100))
	}
	if rate, ok := e.methodCancelRate[r.PaymentMethod]; ok && rate > highCancelRate {
		reasons = append(reasons, fmt.Sprintf(
			"Payment method '%s' has a high cancellation rate (%.1f%%)", r.PaymentMethod, rate*100))
	}

	if len(reasons) == 0 {
		return "Model detected an unusual pattern in the transaction data"
	}
	return strings.Join(reasons, "; ")
}
