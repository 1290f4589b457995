package pricing

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/BLYNKTECHNOLOGIES/virtual-ledger-pulse-sub007/internal/models"
)

const (
	PricePlaces = 2
	RatioPlaces = 4
)

var (
	hundred = decimal.NewFromInt(100)

	ErrInvalidIndex = errors.New("pricing: index must be positive")
)

// Result is one computed target. Calculated is the raw value before any clamp;
// Applied is clamped and rounded.
type Result struct {
	Calculated     decimal.Decimal
	Applied        decimal.Decimal
	WasRateLimited bool
	WasCapped      bool
}

// ApplyOffset moves price by amount: UNDERCUT subtracts, OVERCUT adds.
func ApplyOffset(price, amount decimal.Decimal, direction string) decimal.Decimal {
	if direction == models.OffsetOvercut {
		return price.Add(amount)
	}
	return price.Sub(amount)
}

// ApplyOffsetPct scales price by (1 ± pct/100) with the same sign rule as
// ApplyOffset.
func ApplyOffsetPct(price, pct decimal.Decimal, direction string) decimal.Decimal {
	factor := pct.Div(hundred)
	if direction == models.OffsetOvercut {
		return price.Mul(decimal.NewFromInt(1).Add(factor))
	}
	return price.Mul(decimal.NewFromInt(1).Sub(factor))
}

// ClampRate limits the move from last to at most maxChange, keeping direction.
// It is a no-op without a positive last value and a positive limit.
func ClampRate(target decimal.Decimal, last, maxChange *decimal.Decimal) (decimal.Decimal, bool) {
	if last == nil || maxChange == nil || !last.IsPositive() || !maxChange.IsPositive() {
		return target, false
	}
	delta := target.Sub(*last)
	if delta.Abs().LessThanOrEqual(*maxChange) {
		return target, false
	}
	if delta.IsNegative() {
		return last.Sub(*maxChange), true
	}
	return last.Add(*maxChange), true
}

// ClampHard enforces floor and ceiling. The ceiling wins if they cross.
func ClampHard(v decimal.Decimal, floor, ceiling *decimal.Decimal) (decimal.Decimal, bool) {
	capped := false
	if floor != nil && v.LessThan(*floor) {
		v = *floor
		capped = true
	}
	if ceiling != nil && v.GreaterThan(*ceiling) {
		v = *ceiling
		capped = true
	}
	return v, capped
}

// ComputeFixed derives the absolute listing price from a competitor price.
func ComputeFixed(competitor decimal.Decimal, eff Effective, lastPrice *decimal.Decimal) Result {
	raw := ApplyOffset(competitor, eff.OffsetAmount, eff.OffsetDirection)
	return finish(raw, lastPrice, eff.MaxPriceChangePerCycle, eff.MinFloor, eff.MaxCeiling, PricePlaces)
}

// ComputeFloating derives the floating ratio (percent of index) that lands the
// listing at the offset competitor price.
func ComputeFloating(competitor, index decimal.Decimal, eff Effective, lastRatio *decimal.Decimal) (Result, decimal.Decimal, error) {
	if !index.IsPositive() {
		return Result{}, decimal.Zero, ErrInvalidIndex
	}
	desired := ApplyOffsetPct(competitor, eff.OffsetPct, eff.OffsetDirection)
	raw := RatioFor(desired, index)
	return finish(raw, lastRatio, eff.MaxRatioChangePerCycle, eff.MinRatioFloor, eff.MaxRatioCeiling, RatioPlaces), desired, nil
}

// RatioFor converts an absolute price into a percent of index.
func RatioFor(price, index decimal.Decimal) decimal.Decimal {
	return price.Div(index).Mul(hundred)
}

// ClampResting keeps an operator resting value inside the hard limits.
func ClampResting(v decimal.Decimal, eff Effective) (decimal.Decimal, bool) {
	if eff.IsFloating() {
		return clampRounded(v, eff.MinRatioFloor, eff.MaxRatioCeiling, RatioPlaces)
	}
	return clampRounded(v, eff.MinFloor, eff.MaxCeiling, PricePlaces)
}

func finish(raw decimal.Decimal, last, maxChange, floor, ceiling *decimal.Decimal, places int32) Result {
	v, limited := ClampRate(raw, last, maxChange)
	v, capped := clampRounded(v, floor, ceiling, places)
	return Result{
		Calculated:     raw,
		Applied:        v,
		WasRateLimited: limited,
		WasCapped:      capped,
	}
}

// clampRounded clamps, rounds, then clamps again so rounding can never step
// outside a limit that has more precision than the listing accepts.
func clampRounded(v decimal.Decimal, floor, ceiling *decimal.Decimal, places int32) (decimal.Decimal, bool) {
	v, capped := ClampHard(v, floor, ceiling)
	v = v.Round(places)
	v, again := ClampHard(v, floor, ceiling)
	return v, capped || again
}
