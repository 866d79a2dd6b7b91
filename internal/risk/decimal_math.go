package risk

import (
	"math"

	"github.com/shopspring/decimal"
)

// Trigger math runs through decimals so that thresholds sitting exactly on a
// price (stop at 10.45, price at 10.45) compare the same way every cycle
// instead of depending on float rounding.

var (
	decOne      = decimal.NewFromInt(1)
	decimalEps  = decimal.NewFromFloat(1e-8)
	decimalZero = decimal.Zero
)

func decFromFloat(val float64) decimal.Decimal {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return decimalZero
	}
	return decimal.NewFromFloat(val)
}

func decToFloat(val decimal.Decimal) float64 {
	f, _ := val.Float64()
	return f
}

func decimalCompare(a, b float64) int {
	return decFromFloat(a).Cmp(decFromFloat(b))
}

func decimalLTE(a, b float64) bool { return decimalCompare(a, b) <= 0 }
func decimalGTE(a, b float64) bool { return decimalCompare(a, b) >= 0 }

// trailingStopFor returns the stop level implied by an anchor price and a
// trailing distance, long side only.
func trailingStopFor(anchor, pct float64) float64 {
	if anchor <= 0 || pct <= 0 {
		return 0
	}
	return decToFloat(decFromFloat(anchor).Mul(decOne.Sub(decFromFloat(pct))))
}

// shouldRatchetAnchor reports whether price clears the anchor by at least the
// step fraction, i.e. whether the high-water mark moves.
func shouldRatchetAnchor(price, anchor, step float64) bool {
	if price <= 0 || anchor <= 0 {
		return false
	}
	threshold := decFromFloat(anchor).Mul(decOne.Add(decFromFloat(step)))
	return decFromFloat(price).Cmp(threshold) >= 0
}

// shouldRaiseStop reports whether candidate is meaningfully above the current
// stop. Stops only ever move up.
func shouldRaiseStop(candidate, current float64) bool {
	if candidate <= 0 {
		return false
	}
	if current <= 0 {
		return true
	}
	return decFromFloat(candidate).Cmp(decFromFloat(current).Add(decimalEps)) > 0
}
