// Package types provides common type aliases and utilities.
package types

import (
	"github.com/shopspring/decimal"
)

// MoneyPlaces is the number of fraction digits kept for monetary amounts.
const MoneyPlaces int32 = 2

// Money represents a monetary value with full precision.
// Uses decimal.Decimal to avoid floating-point errors.
type Money = decimal.Decimal

// Percent is a percentage value in [0, 100] (e.g. 15 means 15%).
type Percent = decimal.Decimal

var hundred = decimal.NewFromInt(100)

// MustMoney creates a Money value from a string, panics on error.
// Use only for constants.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Zero returns zero Money value.
func Zero() Money {
	return decimal.Zero
}

// RoundMoney rounds to two fraction digits, half away from zero.
func RoundMoney(m Money) Money {
	return m.Round(MoneyPlaces)
}

// MulQty multiplies a unit price by an integer quantity.
func MulQty(price Money, qty int64) Money {
	return price.Mul(decimal.NewFromInt(qty))
}

// PercentOf returns round(base * pct / 100, 2).
func PercentOf(base Money, pct Percent) Money {
	return RoundMoney(base.Mul(pct).Div(hundred))
}

// ValidPercent reports whether pct lies in [0, 100] and fits NUMERIC(5,2).
func ValidPercent(pct Percent) bool {
	return !pct.IsNegative() && pct.LessThanOrEqual(hundred) && pct.Equal(pct.Round(MoneyPlaces))
}

// WithinTolerance reports whether |a - b| <= tol.
func WithinTolerance(a, b, tol Money) bool {
	return a.Sub(b).Abs().LessThanOrEqual(tol)
}

// MinMoney returns the smaller of a and b.
func MinMoney(a, b Money) Money {
	return decimal.Min(a, b)
}

// SumMoney adds all values.
func SumMoney(values ...Money) Money {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}
