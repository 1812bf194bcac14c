package domain

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// RoundMoney rounds to two decimal places, half away from zero.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Percent returns base × rate / 100 rounded to money precision.
func Percent(base, rate decimal.Decimal) decimal.Decimal {
	return RoundMoney(base.Mul(rate).Div(hundred))
}
