package services

import (
	"fmt"

	"auction-house/internal/domain"

	"github.com/shopspring/decimal"
)

// Amounts are stored as DECIMAL(18,2).
const amountScale = 2

var maxAmount = decimal.RequireFromString("9999999999999999.99")

// validateAmount rejects amounts the money columns cannot hold exactly.
func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: bid amount must be positive", domain.ErrValidation)
	}
	if !amount.Equal(amount.Truncate(amountScale)) {
		return fmt.Errorf("%w: bid amount must have at most %d decimal places", domain.ErrValidation, amountScale)
	}
	if amount.GreaterThan(maxAmount) {
		return fmt.Errorf("%w: bid amount must not exceed %s", domain.ErrValidation, maxAmount.String())
	}
	return nil
}
