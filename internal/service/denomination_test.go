package service

import (
	"testing"

	"tillpos/internal/dto"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestValidateDenominationsExactMatch(t *testing.T) {
	denoms := []dto.DenominationEntry{
		{Value: d("100"), Quantity: 1},
		{Value: d("20"), Quantity: 1},
		{Value: d("5"), Quantity: 1},
	}
	assert.NoError(t, ValidateDenominations(denoms, d("125"), "EUR"))
}

func TestValidateDenominationsZeroTargetSkipsCheck(t *testing.T) {
	// Zero float: the count is optional and whatever is sent is not checked.
	assert.NoError(t, ValidateDenominations(nil, decimal.Zero, "EUR"))
	assert.NoError(t, ValidateDenominations([]dto.DenominationEntry{
		{Value: d("5"), Quantity: 99},
	}, decimal.Zero, "EUR"))
}

func TestValidateDenominationsRequired(t *testing.T) {
	err := ValidateDenominations(nil, d("50"), "EUR")
	assert.ErrorIs(t, err, ErrDenominationsRequired)
}

func TestValidateDenominationsMismatch(t *testing.T) {
	denoms := []dto.DenominationEntry{
		{Value: d("100"), Quantity: 1},
		{Value: d("20"), Quantity: 1},
	}
	err := ValidateDenominations(denoms, d("125"), "EUR")
	assert.ErrorIs(t, err, ErrAmountMismatch)
}

func TestValidateDenominationsEpsilon(t *testing.T) {
	denoms := []dto.DenominationEntry{
		{Value: d("0.01"), Quantity: 1250},
	}
	// 12.50 counted against client-computed 12.504 — inside half a cent.
	assert.NoError(t, ValidateDenominations(denoms, d("12.504"), "EUR"))
	// 12.506 is more than 0.005 away.
	assert.ErrorIs(t, ValidateDenominations(denoms, d("12.506"), "EUR"), ErrAmountMismatch)
}

func TestValidateDenominationsCurrency(t *testing.T) {
	denoms := []dto.DenominationEntry{
		{Currency: "USD", Value: d("100"), Quantity: 1},
	}
	assert.ErrorIs(t, ValidateDenominations(denoms, d("100"), "EUR"), ErrCurrencyMismatch)

	// Empty and case-variant currencies count as local.
	denoms = []dto.DenominationEntry{
		{Currency: "", Value: d("50"), Quantity: 1},
		{Currency: "eur", Value: d("50"), Quantity: 1},
	}
	assert.NoError(t, ValidateDenominations(denoms, d("100"), "EUR"))
}

func TestValidateDenominationsZeroQuantityLines(t *testing.T) {
	// A line with quantity 0 contributes nothing but is not an error.
	denoms := []dto.DenominationEntry{
		{Value: d("100"), Quantity: 1},
		{Value: d("5"), Quantity: 0},
	}
	assert.NoError(t, ValidateDenominations(denoms, d("100"), "EUR"))
}
