package money

import "github.com/shopspring/decimal"

// Tolerance tiers used when comparing collected amounts to an order total.
var (
	StrictTolerance   = decimal.RequireFromString("0.05")
	FallbackTolerance = decimal.RequireFromString("0.50")
	InvariantEpsilon  = decimal.RequireFromString("0.01")
)

// Round2 rounds half away from zero to two places.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Roundoff is a whole-unit settlement of an exact amount. Raw + Adjustment
// equals Rounded.
type Roundoff struct {
	Raw        decimal.Decimal
	Rounded    decimal.Decimal
	Adjustment decimal.Decimal
}

func ComputeRoundoff(raw decimal.Decimal) Roundoff {
	raw = Round2(raw)
	rounded := raw.Round(0)
	return Roundoff{Raw: raw, Rounded: rounded, Adjustment: rounded.Sub(raw)}
}

// NoRoundoff is used for methods that settle the exact amount.
func NoRoundoff(raw decimal.Decimal) Roundoff {
	raw = Round2(raw)
	return Roundoff{Raw: raw, Rounded: raw, Adjustment: decimal.Zero}
}

// Covers reports whether collected is within tolerance of target.
func Covers(collected, target, tolerance decimal.Decimal) bool {
	return collected.GreaterThanOrEqual(target.Sub(tolerance))
}

func Max(a, b decimal.Decimal) decimal.Decimal {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

func Format(d decimal.Decimal) string {
	return d.StringFixed(2)
}
