package service

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"tillpos/internal/dto"
)

// PaymentLine is one side of the reconciliation input: either an expected
// aggregate from the invoice ledger or a cashier-reported entry.
type PaymentLine struct {
	Method           string
	Amount           decimal.Decimal
	TransactionCount int
}

// NormalizeMethod collapses case/whitespace variants of a payment method
// ("cash", " Cash " → "CASH") so both sides group on the same key.
func NormalizeMethod(method string) string {
	return strings.ToUpper(strings.TrimSpace(method))
}

// Reconcile builds the per-method breakdown over the union of expected and
// reported methods. Duplicate entries on either side are merged first; a
// method missing on one side defaults to zero. Amounts are rounded to two
// decimals per row, difference = reported − expected, and the transaction
// count is the max of the two sides (informational, never summed across).
// Rows come back sorted by method for deterministic rendering.
func Reconcile(expected, reported []PaymentLine) []dto.PaymentBreakdownRow {
	exp := mergeByMethod(expected)
	rep := mergeByMethod(reported)

	methods := make([]string, 0, len(exp)+len(rep))
	seen := make(map[string]bool)
	for m := range exp {
		if !seen[m] {
			seen[m] = true
			methods = append(methods, m)
		}
	}
	for m := range rep {
		if !seen[m] {
			seen[m] = true
			methods = append(methods, m)
		}
	}
	sort.Strings(methods)

	rows := make([]dto.PaymentBreakdownRow, 0, len(methods))
	for _, m := range methods {
		e := exp[m]
		r := rep[m]
		expAmt := e.Amount.Round(2)
		repAmt := r.Amount.Round(2)
		rows = append(rows, dto.PaymentBreakdownRow{
			Method:           m,
			ExpectedAmount:   expAmt,
			ReportedAmount:   repAmt,
			DifferenceAmount: repAmt.Sub(expAmt).Round(2),
			TransactionCount: maxInt(e.TransactionCount, r.TransactionCount),
		})
	}
	return rows
}

// ReconcileTotals sums a breakdown once, rounding each total exactly once so
// per-row rounding never accumulates into the totals.
func ReconcileTotals(rows []dto.PaymentBreakdownRow) (expectedTotal, reportedTotal, differenceTotal decimal.Decimal) {
	expectedTotal = decimal.Zero
	reportedTotal = decimal.Zero
	for _, row := range rows {
		expectedTotal = expectedTotal.Add(row.ExpectedAmount)
		reportedTotal = reportedTotal.Add(row.ReportedAmount)
	}
	expectedTotal = expectedTotal.Round(2)
	reportedTotal = reportedTotal.Round(2)
	differenceTotal = reportedTotal.Sub(expectedTotal).Round(2)
	return expectedTotal, reportedTotal, differenceTotal
}

func mergeByMethod(lines []PaymentLine) map[string]PaymentLine {
	merged := make(map[string]PaymentLine, len(lines))
	for _, l := range lines {
		key := NormalizeMethod(l.Method)
		if key == "" {
			continue
		}
		acc := merged[key]
		acc.Method = key
		acc.Amount = acc.Amount.Add(l.Amount)
		acc.TransactionCount += l.TransactionCount
		merged[key] = acc
	}
	return merged
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
