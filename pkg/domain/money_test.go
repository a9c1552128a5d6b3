package domain

import (
	"errors"
	"math"
	"testing"
)

func TestAmountString(t *testing.T) {
	cases := []struct {
		in   Amount
		want string
	}{
		{0, "0"},
		{1000, "0.001"},
		{5000, "0.005"},
		{100, "0.0001"},
		{10_000, "0.01"},
		{1_000_000, "1"},
		{1_500_000, "1.5"},
		{2_000_001, "2.000001"},
	}
	for _, c := range cases {
		if got := c.in.String(); got != c.want {
			t.Fatalf("Amount(%d).String() = %q, want %q", uint64(c.in), got, c.want)
		}
	}
}

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want Amount
	}{
		{"0.001", 1000},
		{"0.005", 5000},
		{"1", 1_000_000},
		{"1.5", 1_500_000},
		{".25", 250_000},
		{" 0.01 ", 10_000},
	}
	for _, c := range cases {
		got, err := ParseAmount(c.in)
		if err != nil {
			t.Fatalf("ParseAmount(%q): %v", c.in, err)
		}
		if got != c.want {
			t.Fatalf("ParseAmount(%q) = %d, want %d", c.in, uint64(got), uint64(c.want))
		}
	}
	for _, bad := range []string{"", "abc", "1.1234567", "-1"} {
		if _, err := ParseAmount(bad); err == nil {
			t.Fatalf("ParseAmount(%q): expected error", bad)
		}
	}
}

func TestParseAmountRange(t *testing.T) {
	// 18446744073709.551615 coins is exactly the largest representable Amount.
	got, err := ParseAmount("18446744073709.551615")
	if err != nil {
		t.Fatalf("max amount: %v", err)
	}
	if got != Amount(math.MaxUint64) {
		t.Fatalf("max amount = %d", uint64(got))
	}
	for _, bad := range []string{"18446744073710", "18446744073709.551616", "99999999999999999999"} {
		if _, err := ParseAmount(bad); err == nil {
			t.Fatalf("ParseAmount(%q): expected out-of-range error", bad)
		}
	}
}

func TestParseAmountRoundTrip(t *testing.T) {
	for _, a := range []Amount{0, 1, 1000, 5000, 999_999, 1_000_000, 123_456_789} {
		parsed, err := ParseAmount(a.String())
		if err != nil {
			t.Fatalf("round trip %d: %v", uint64(a), err)
		}
		if parsed != a {
			t.Fatalf("round trip %d: got %d", uint64(a), uint64(parsed))
		}
	}
}

func TestRequiredDeposit(t *testing.T) {
	cases := []struct {
		kind     FeeKind
		quantity uint64
		want     Amount
	}{
		{FeePlant, 5, 5000},
		{FeeWater, 5, 500},
		{FeePlot, 99, PlotSeedFee},
		{FeeKind("unknown"), 3, 0},
		{FeePlant, math.MaxUint64 / uint64(PlantUnitFee), Amount(math.MaxUint64/uint64(PlantUnitFee)) * PlantUnitFee},
	}
	for _, c := range cases {
		got, err := RequiredDeposit(c.kind, c.quantity)
		if err != nil {
			t.Fatalf("RequiredDeposit(%q, %d): %v", c.kind, c.quantity, err)
		}
		if got != c.want {
			t.Fatalf("RequiredDeposit(%q, %d) = %d, want %d", c.kind, c.quantity, uint64(got), uint64(c.want))
		}
	}
}

func TestRequiredDepositRejectsOverflowingQuantity(t *testing.T) {
	// A quantity whose product wraps uint64 would otherwise shrink the fee
	// to near zero.
	overflowing := []struct {
		kind     FeeKind
		quantity uint64
	}{
		{FeePlant, math.MaxUint64/uint64(PlantUnitFee) + 1},
		{FeePlant, 18_446_744_073_709_552},
		{FeeWater, math.MaxUint64/uint64(WaterUnitFee) + 1},
	}
	for _, c := range overflowing {
		if _, err := RequiredDeposit(c.kind, c.quantity); !errors.Is(err, ErrInvalidQuantity) {
			t.Fatalf("RequiredDeposit(%q, %d): got %v, want ErrInvalidQuantity", c.kind, c.quantity, err)
		}
	}
}

func TestInsufficientDepositMessage(t *testing.T) {
	required, depErr := RequiredDeposit(FeePlant, 5)
	if depErr != nil {
		t.Fatalf("required deposit: %v", depErr)
	}
	err := InsufficientDepositError{Kind: FeePlant, Required: required}
	if got, want := err.Error(), "need 0.005 GRDN to plant"; got != want {
		t.Fatalf("message %q, want %q", got, want)
	}
	err = InsufficientDepositError{Kind: FeePlot, Required: PlotSeedFee}
	if got, want := err.Error(), "need 0.001 GRDN to tend the plot"; got != want {
		t.Fatalf("message %q, want %q", got, want)
	}
}
