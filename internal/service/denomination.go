package service

import (
	"strings"

	"github.com/shopspring/decimal"

	"tillpos/internal/dto"
)

// denominationEpsilon absorbs float noise from clients that compute the
// target client-side: a counted total within half a cent still matches.
var denominationEpsilon = decimal.RequireFromString("0.005")

// ValidateDenominations checks that a physical cash count adds up to target.
//
// target == 0: the count is optional and unchecked.
// target > 0: a count is required, every entry must be in localCurrency
// (empty currency means local), and Σ(value×qty) rounded to 2 decimals must
// match target within the epsilon.
func ValidateDenominations(denoms []dto.DenominationEntry, target decimal.Decimal, localCurrency string) error {
	if target.IsZero() || target.IsNegative() {
		return nil
	}
	if len(denoms) == 0 {
		return ErrDenominationsRequired
	}

	sum := decimal.Zero
	for _, d := range denoms {
		cur := strings.ToUpper(strings.TrimSpace(d.Currency))
		if cur != "" && cur != strings.ToUpper(localCurrency) {
			return ErrCurrencyMismatch
		}
		sum = sum.Add(d.Value.Mul(decimal.NewFromInt(int64(d.Quantity))))
	}

	if sum.Round(2).Sub(target).Abs().GreaterThan(denominationEpsilon) {
		return ErrAmountMismatch
	}
	return nil
}
