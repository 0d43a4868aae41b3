package anomaly

import (
	"fmt"

	"github.com/adilkhz/paysight/internal/calculate"
	"github.com/adilkhz/paysight/models"
)

const (
	scoreRefundedHighValue = 0.85
	scoreCanceledHighValue = 0.80
	scoreBurst             = 0.75

	burstPerDayLimit = 10
)

// ruleContext is the shared per-call state the deterministic rules read.
type ruleContext struct {
	rows    []models.TransactionRecord
	amounts []float64
	p99     float64
	p95     float64
}

func newRuleContext(rows []models.TransactionRecord, amounts []float64) *ruleContext {
	return &ruleContext{
		rows:    rows,
		amounts: amounts,
		p99:     calculate.Quantile(amounts, 0.99),
		p95:     calculate.Quantile(amounts, 0.95),
	}
}

// ruleMatch flags one row with a fixed severity score and a literal reason.
type ruleMatch struct {
	index  int
	score  float64
	reason string
}

// rule is one deterministic detection rule. Rules run after the
// statistical pass and in declaration order; fusion gives earlier writers
// precedence, so ordering is part of the contract.
type rule struct {
	name     string
	severity string
	describe func(ctx *ruleContext) string
	apply    func(ctx *ruleContext) []ruleMatch
}

func detectionRules() []rule {
	return []rule{
		{
			name:     "high_amount",
			severity: "high",
			describe: func(ctx *ruleContext) string {
				return fmt.Sprintf("Transactions above the 99th percentile (%.0f KZT)", ctx.p99)
			},
			apply: highAmountRule,
		},
		{
			name:     "refunded_high_value",
			severity: "high",
			describe: func(ctx *ruleContext) string {
				return fmt.Sprintf("High-value refunded transactions (>%.0f KZT)", ctx.p95)
			},
			apply: refundedHighValueRule,
		},
		{
			name:     "canceled_high_value",
			severity: "medium",
			describe: func(ctx *ruleContext) string {
				return fmt.Sprintf("High-value canceled transactions (>%.0f KZT)", ctx.p95)
			},
			apply: canceledHighValueRule,
		},
		{
			name:     "transaction_burst",
			severity: "medium",
			describe: func(ctx *ruleContext) string {
				return fmt.Sprintf("Groups with more than %d transactions in a single day", burstPerDayLimit)
			},
			apply: burstRule,
		},
	}
}

// highAmountRule flags amounts above the 99th percentile; the score grows
// with the exact percentile rank and is capped at 0.95.
func highAmountRule(ctx *ruleContext) []ruleMatch {
	var matches []ruleMatch
	for i := range ctx.rows {
		amount := ctx.rows[i].Amount
		if amount <= ctx.p99 {
			continue
		}
		percentile := calculate.PercentileRank(ctx.amounts, amount)
		// Scaled integer form so the batch maximum (rank 100) lands exactly
		// on 0.8 rather than a hair below it.
		score := (70 + (percentile-99)*10) / 100
		if score > 0.95 {
			score = 0.95
		}
		matches = append(matches, ruleMatch{
			index: i,
			score: score,
			reason: fmt.Sprintf(
				"Extremely high transaction amount (%.0f KZT) - above %.1f%% of all transactions",
				amount, percentile),
		})
	}
	return matches
}

func refundedHighValueRule(ctx *ruleContext) []ruleMatch {
	var matches []ruleMatch
	for i := range ctx.rows {
		r := &ctx.rows[i]
		if !r.IsRefunded || r.Amount <= ctx.p95 {
			continue
		}
		matches = append(matches, ruleMatch{
			index: i,
			score: scoreRefundedHighValue,
			reason: fmt.Sprintf(
				"High-value transaction (%.0f KZT) was refunded - possible fraud or processing error",
				r.Amount),
		})
	}
	return matches
}

func canceledHighValueRule(ctx *ruleContext) []ruleMatch {
	var matches []ruleMatch
	for i := range ctx.rows {
		r := &ctx.rows[i]
		if !r.IsCanceled || r.Amount <= ctx.p95 {
			continue
		}
		matches = append(matches, ruleMatch{
			index: i,
			score: scoreCanceledHighValue,
			reason: fmt.Sprintf(
				"High-value transaction (%.0f KZT) was canceled - suspicious activity",
				r.Amount),
		})
	}
	return matches
}

// burstRule groups transactions by payment method and calendar day (the
// schema's closest stand-in for a per-customer key) and flags one
// representative transaction for every group exceeding the daily limit.
func burstRule(ctx *ruleContext) []ruleMatch {
	type group struct {
		first int
		count int
	}
	groups := map[string]*group{}
	var order []string

	for i := range ctx.rows {
		r := &ctx.rows[i]
		if !r.HasDate() || r.PaymentMethod == "" {
			continue
		}
		key := r.PaymentMethod + "|" + r.Date.Format("2006-01-02")
		g, ok := groups[key]
		if !ok {
			g = &group{first: i}
			groups[key] = g
			order = append(order, key)
		}
		g.count++
	}

	var matches []ruleMatch
	for _, key := range order {
		g := groups[key]
		if g.count <= burstPerDayLimit {
			continue
		}
		matches = append(matches, ruleMatch{
			index: g.first,
			score: scoreBurst,
			reason: fmt.Sprintf(
				"Suspiciously high number of transactions (%d) in a single day - possible automated/testing burst",
				g.count),
		})
	}
	return matches
}
