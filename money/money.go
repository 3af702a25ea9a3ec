// Package money provides exact decimal arithmetic for FCFA monetary values
// and the accumulator/micro-impact scales the social-value engine needs.
package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Scale constants per spec: FCFA amounts are 2-decimal, the social
// accumulator is tracked at 6-decimal, raw micro-impact inputs at 18.
const (
	ScaleFCFA = 2
	ScaleAccumulator = 6
	ScaleMicroImpact = 18
)

// Decimal is a re-export so callers don't need a direct shopspring import.
type Decimal = decimal.Decimal

// Zero is the additive identity, useful as a struct default.
var Zero = decimal.Zero

// FromFloat builds a Decimal from a float64, rounded to the FCFA scale.
// Only used at system boundaries (request bodies); internal math stays
// on Decimal end to end.
func FromFloat(f float64) Decimal {
	return decimal.NewFromFloat(f).Round(ScaleFCFA)
}

// FromInt builds an exact FCFA Decimal from an integer amount.
func FromInt(i int64) Decimal {
	return decimal.NewFromInt(i)
}

// RoundFCFA rounds d to 2 decimal places, the scale every persisted FCFA
// field uses.
func RoundFCFA(d Decimal) Decimal {
	return d.Round(ScaleFCFA)
}

// RoundAccumulator rounds d to the social accumulator's 6-decimal scale.
func RoundAccumulator(d Decimal) Decimal {
	return d.Round(ScaleAccumulator)
}

// Pct returns d * (pct/100), e.g. Pct(amount, 5) is a 5% fee.
func Pct(d Decimal, pct float64) Decimal {
	return d.Mul(decimal.NewFromFloat(pct / 100.0))
}

// Clamp restricts d to [lo, hi].
func Clamp(d, lo, hi Decimal) Decimal {
	if d.LessThan(lo) {
		return lo
	}
	if d.GreaterThan(hi) {
		return hi
	}
	return d
}

// Currency is the normalized currency code. BOOMS is FCFA-only.
type Currency string

const FCFA Currency = "FCFA"

var currencyAliases = map[string]Currency{
	"FCFA": FCFA,
	"XOF": FCFA,
	"CFA": FCFA,
	"FRANC CFA": FCFA,
	"F CFA": FCFA,
}

// NormalizeCurrency maps any accepted spelling of the West African CFA
// franc to the canonical FCFA code. ok is false for anything else, per
// the system currency discipline (system is FCFA-only).
func NormalizeCurrency(raw string) (Currency, bool) {
	key := strings.ToUpper(strings.TrimSpace(raw))
	c, ok := currencyAliases[key]
	return c, ok
}
