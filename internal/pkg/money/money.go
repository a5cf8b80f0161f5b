package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Monetary amounts are held as decimals with 2-decimal precision and only
// converted to integer minor units (kobo/cents) at the payment gateway boundary.

var (
	hundred = decimal.NewFromInt(100)

	// Withdrawal fee schedule: 2.5% of the amount plus a flat 100 (major units).
	withdrawalFeeRate = decimal.NewFromFloat(0.025)
	withdrawalFeeFlat = decimal.NewFromInt(100)
)

// Round2 rounds an amount to 2 decimal places.
func Round2(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(2)
}

// Parse parses a decimal amount string.
func Parse(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", raw)
	}
	return amount, nil
}

// ToMinorUnits converts a major-unit amount to integer minor units.
// The amount is rounded to 2 decimal places first so the result is exact.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Round(2).Mul(hundred).IntPart()
}

// FromMinorUnits converts integer minor units back to a major-unit amount.
func FromMinorUnits(minor int64) decimal.Decimal {
	return decimal.NewFromInt(minor).Div(hundred)
}

// Equal reports whether two amounts are equal at minor-unit precision.
func Equal(a, b decimal.Decimal) bool {
	return ToMinorUnits(a) == ToMinorUnits(b)
}

// WithdrawalFee computes the fee and net payout for a withdrawal amount.
// The percentage component is rounded to 2 decimal places before the flat
// component is added; the net amount is floored at zero.
func WithdrawalFee(amount decimal.Decimal) (fee, net decimal.Decimal) {
	fee = amount.Mul(withdrawalFeeRate).Round(2).Add(withdrawalFeeFlat)
	net = amount.Sub(fee).Round(2)
	if net.IsNegative() {
		net = decimal.Zero
	}
	return fee, net
}
