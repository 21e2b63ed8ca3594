package model

import "github.com/shopspring/decimal"

// CalculateRate returns the monthly price of a tier for the given member
// count: the flat price plus any membership surcharge.
func CalculateRate(level ServiceLevel, members int) decimal.Decimal {
	rate := level.FlatPrice
	if level.SurchargeStep <= 0 {
		return rate
	}
	if extra := (members - level.SurchargeOffset) / level.SurchargeStep; extra > 0 {
		rate = rate.Add(decimal.NewFromInt(int64(extra)))
	}
	return rate
}
