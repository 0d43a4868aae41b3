package anomaly

import (
	"strings"
	"testing"

	"github.com/adilkhz/paysight/models"
)

func TestExplainAmountDeviation(t *testing.T) {
	rows := []models.TransactionRecord{
		{ID: "1", Amount: 90}, {ID: "2", Amount: 100}, {ID: "3", Amount: 110},
		{ID: "4", Amount: 95}, {ID: "5", Amount: 105},
	}
	e := NewExplainer(rows)

	reason := e.Explain(&models.TransactionRecord{ID: "x", Amount: 5000})
	if !strings.Contains(reason, "significantly exceeds the average") {
		t.Errorf("reason = %q", reason)
	}
}

func TestExplainMedianFallback(t *testing.T) {
	// Identical amounts: zero deviation, so the median multiple fires.
	rows := []models.TransactionRecord{
		{ID: "1", Amount: 100}, {ID: "2", Amount: 100}, {ID: "3", Amount: 100},
	}
	e := NewExplainer(rows)

	reason := e.Explain(&models.TransactionRecord{ID: "x", Amount: 1000})
	if !strings.Contains(reason, "10.0 times the median") {
		t.Errorf("reason = %q", reason)
	}
}

func TestExplainFlagsAndRates(t *testing.T) {
	rows := []models.TransactionRecord{
		{ID: "1", Amount: 100, Channel: "web", PaymentMethod: "card", IsRefunded: true, IsCanceled: true},
		{ID: "2", Amount: 100, Channel: "web", PaymentMethod: "card"},
		{ID: "3", Amount: 100, Channel: "pos", PaymentMethod: "cash"},
	}
	e := NewExplainer(rows)

	reason := e.Explain(&rows[0])
	for _, fragment := range []string{
		"Transaction was refunded",
		"Transaction was canceled",
		"Channel 'web' has a high refund rate (50.0%)",
		"Payment method 'card' has a high cancellation rate (50.0%)",
	} {
		if !strings.Contains(reason, fragment) {
			t.Errorf("reason %q missing %q", reason, fragment)
		}
	}
	if !strings.Contains(reason, "; ") {
		t.Errorf("fragments must be joined with a semicolon, got %q", reason)
	}
}

func TestExplainGenericFallback(t *testing.T) {
	rows := []models.TransactionRecord{
		{ID: "1", Amount: 100, Channel: "web", PaymentMethod: "card"},
		{ID: "2", Amount: 200, Channel: "web", PaymentMethod: "card"},
	}
	e := NewExplainer(rows)

	reason := e.Explain(&models.TransactionRecord{ID: "x", Amount: 150, Channel: "web", PaymentMethod: "card"})
	if reason != "Model detected an unusual pattern in the transaction data" {
		t.Errorf("reason = %q", reason)
	}
}
