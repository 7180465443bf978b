package pricing

import (
	"math"

	"github.com/shopspring/decimal"
)

// Money represents a monetary value stored in minor units (cents).
type Money int64

// MaxMoney is the largest amount a Money can hold.
const MaxMoney Money = math.MaxInt64

var (
	half     = decimal.New(5, -1)
	maxCents = decimal.NewFromInt(math.MaxInt64)
	minCents = decimal.NewFromInt(math.MinInt64)
)

// Times multiplies the amount by a whole quantity.
func (m Money) Times(qty int) Money {
	return m * Money(qty)
}

// Decimal exposes the amount as an exact decimal number of cents.
func (m Money) Decimal() decimal.Decimal {
	return decimal.NewFromInt(int64(m))
}

// RoundHalfUp converts a fractional number of cents to whole cents using
// floor(x + 0.5). It is the only rounding rule used by this package. Results
// outside the int64 range saturate at MaxMoney (or its negative bound); the
// calculator rejects a saturated amount instead of pricing with it.
func RoundHalfUp(cents decimal.Decimal) Money {
	rounded := cents.Add(half).Floor()
	switch {
	case rounded.GreaterThanOrEqual(maxCents):
		return MaxMoney
	case rounded.LessThanOrEqual(minCents):
		return math.MinInt64
	}
	return Money(rounded.IntPart())
}

// Sum adds amounts without rounding.
func Sum(amounts ...Money) Money {
	var total Money
	for _, a := range amounts {
		total += a
	}
	return total
}

// addChecked adds two non-negative amounts, reporting false when the sum
// would not fit in a Money.
func addChecked(a, b Money) (Money, bool) {
	if b > MaxMoney-a {
		return 0, false
	}
	return a + b, true
}
