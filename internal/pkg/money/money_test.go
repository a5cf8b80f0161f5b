package money

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestWithdrawalFee(t *testing.T) {
	fee, net := WithdrawalFee(decimal.NewFromInt(10000))
	if !fee.Equal(decimal.NewFromInt(350)) {
		t.Fatalf("expected fee 350, got %s", fee)
	}
	if !net.Equal(decimal.NewFromInt(9650)) {
		t.Fatalf("expected net 9650, got %s", net)
	}
}

func TestWithdrawalFeeSmallAmountFloorsNetAtZero(t *testing.T) {
	fee, net := WithdrawalFee(decimal.NewFromInt(50))
	if !fee.Equal(decimal.NewFromFloat(101.25)) {
		t.Fatalf("expected fee 101.25, got %s", fee)
	}
	if !net.IsZero() {
		t.Fatalf("expected net 0, got %s", net)
	}
}

func TestMinorUnitRoundTrip(t *testing.T) {
	amount := decimal.NewFromFloat(1234.56)
	minor := ToMinorUnits(amount)
	if minor != 123456 {
		t.Fatalf("expected 123456 minor units, got %d", minor)
	}
	if !FromMinorUnits(minor).Equal(amount) {
		t.Fatalf("round trip mismatch: %s", FromMinorUnits(minor))
	}
}

func TestEqualAtMinorUnitPrecision(t *testing.T) {
	a := decimal.NewFromFloat(400.004)
	b := decimal.NewFromInt(400)
	if !Equal(a, b) {
		t.Fatalf("expected %s and %s equal at minor-unit precision", a, b)
	}
	if Equal(decimal.NewFromFloat(400.01), b) {
		t.Fatal("expected 400.01 and 400 to differ")
	}
}

func TestParse(t *testing.T) {
	amount, err := Parse("250.40")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if !amount.Equal(decimal.NewFromFloat(250.4)) {
		t.Fatalf("unexpected amount %s", amount)
	}
	if _, err := Parse("not-a-number"); err == nil {
		t.Fatal("expected error for invalid amount")
	}
}
