package core

import (
	"math"

	"github.com/shopspring/decimal"
)

// RateSnapshot maps currency codes to multipliers relative to Base:
// an amount in Base times Rates[c] is the amount in c.
type RateSnapshot struct {
	Base  string
	Rates map[string]float64
}

// EmptySnapshot is what a failed fetch degrades to.
func EmptySnapshot(base string) RateSnapshot {
	return RateSnapshot{Base: base, Rates: map[string]float64{}}
}

// Rate returns the multiplier for code if it is usable.
func (s RateSnapshot) Rate(code string) (float64, bool) {
	return usableRate(s.Rates, code)
}

// Conversion is the outcome of Convert. When no rate is available Amount and
// Currency are the originals and Converted is false.
type Conversion struct {
	Amount    decimal.Decimal
	Currency  string
	Converted bool
}

// Convert turns amount in from into to using the ratio rates[to]/rates[from].
// Both rates must share the same base. No rounding is applied.
func Convert(amount decimal.Decimal, from, to string, rates map[string]float64) Conversion {
	if from == to {
		return Conversion{Amount: amount, Currency: to, Converted: true}
	}
	fallback := Conversion{Amount: amount, Currency: from}

	rf, ok := usableRate(rates, from)
	if !ok {
		return fallback
	}
	rt, ok := usableRate(rates, to)
	if !ok {
		return fallback
	}

	v := amount.InexactFloat64() * (rt / rf)
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return fallback
	}
	return Conversion{Amount: decimal.NewFromFloat(v), Currency: to, Converted: true}
}

func usableRate(rates map[string]float64, code string) (float64, bool) {
	r, ok := rates[code]
	if !ok || r <= 0 || math.IsInf(r, 0) || math.IsNaN(r) {
		return 0, false
	}
	return r, true
}
