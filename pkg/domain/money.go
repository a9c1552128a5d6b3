package domain

import (
	"fmt"
	"math"
	"math/bits"
	"strconv"
	"strings"
)

// Amount is a fixed-point quantity of the native currency, counted in
// millionths of a coin. 1000 therefore reads as "0.001".
type Amount uint64

// amountScale is the number of base units per whole coin.
const amountScale = 1_000_000

// Fee schedule. Per-quantity fees scale with the planting quantity of the
// multi-plant garden; the plot fee and bloom reward are flat.
const (
	// PlantUnitFee is charged per quantity unit when planting a seed.
	PlantUnitFee Amount = 1000 // 0.001
	// WaterUnitFee is charged per quantity unit when watering.
	WaterUnitFee Amount = 100 // 0.0001
	// PlotSeedFee is the flat deposit required to claim a plot.
	PlotSeedFee Amount = 1000 // 0.001
	// PlotBloomReward is drawn from the vault when a plot blooms.
	PlotBloomReward Amount = 10_000 // 0.01
)

// String renders the amount as a decimal coin value with trailing zeros
// trimmed, e.g. 5000 -> "0.005".
func (a Amount) String() string {
	whole := uint64(a) / amountScale
	frac := uint64(a) % amountScale
	if frac == 0 {
		return strconv.FormatUint(whole, 10)
	}
	s := fmt.Sprintf("%d.%06d", whole, frac)
	return strings.TrimRight(s, "0")
}

// ParseAmount converts a decimal coin string (up to six fractional digits)
// into an Amount.
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}
	wholePart, fracPart, _ := strings.Cut(s, ".")
	if wholePart == "" {
		wholePart = "0"
	}
	whole, err := strconv.ParseUint(wholePart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}
	if len(fracPart) > 6 {
		return 0, fmt.Errorf("parse amount %q: more than 6 fractional digits", s)
	}
	var frac uint64
	if fracPart != "" {
		padded := fracPart + strings.Repeat("0", 6-len(fracPart))
		frac, err = strconv.ParseUint(padded, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse amount %q: %w", s, err)
		}
	}
	if whole > math.MaxUint64/amountScale {
		return 0, fmt.Errorf("parse amount %q: value out of range", s)
	}
	base := whole * amountScale
	if frac > math.MaxUint64-base {
		return 0, fmt.Errorf("parse amount %q: value out of range", s)
	}
	return Amount(base + frac), nil
}

// FeeKind identifies a fee-gated action.
type FeeKind string

// Fee-gated actions recognised by RequiredDeposit.
const (
	// FeePlant gates seed planting in the multi-plant garden.
	FeePlant FeeKind = "plant"
	// FeeWater gates watering in the multi-plant garden.
	FeeWater FeeKind = "water"
	// FeePlot gates claiming and watering a plot in the single-plot garden.
	// The string reads naturally inside InsufficientDepositError messages.
	FeePlot FeeKind = "tend the plot"
)

// RequiredDeposit returns the minimum payment for the given action and
// quantity. The comparison used by callers is payment >= required;
// overpayment is always accepted and retained. A quantity whose fee
// product does not fit in an Amount is rejected instead of wrapped.
func RequiredDeposit(kind FeeKind, quantity uint64) (Amount, error) {
	var unit Amount
	switch kind {
	case FeePlant:
		unit = PlantUnitFee
	case FeeWater:
		unit = WaterUnitFee
	case FeePlot:
		return PlotSeedFee, nil
	default:
		return 0, nil
	}
	hi, lo := bits.Mul64(quantity, uint64(unit))
	if hi != 0 {
		return 0, ErrInvalidQuantity
	}
	return Amount(lo), nil
}
