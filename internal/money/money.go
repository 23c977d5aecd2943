// Package money rounds and formats US dollar amounts.
package money

import (
	gomoney "github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Round rounds v half away from zero to places decimals.
func Round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

// Cents rounds a dollar amount to whole cents.
func Cents(v float64) float64 {
	return Round(v, 2)
}

// Percent turns a fraction into a percentage with two decimals.
func Percent(fraction float64) float64 {
	return decimal.NewFromFloat(fraction).Mul(hundred).Round(2).InexactFloat64()
}

// USD formats a dollar amount as "$1,234.56".
func USD(v float64) string {
	cents := decimal.NewFromFloat(v).Mul(hundred).Round(0).IntPart()
	return gomoney.New(cents, gomoney.USD).Display()
}
