package models

import "github.com/shopspring/decimal"

// Round2 rounds v to two decimal places
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// RoundInt rounds v to the nearest whole number
func RoundInt(v float64) float64 {
	return decimal.NewFromFloat(v).Round(0).InexactFloat64()
}

// Clamp limits v to the closed range [lo, hi]
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
