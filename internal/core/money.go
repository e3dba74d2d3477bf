// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts from strings
// and formatting them back without changing their scale.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Bounds on accepted amounts. The exponent bound keeps FormatAmount output
// proportional to the input.
const (
	maxAmountExponent = 64
	maxAmountDigits   = 64
)

// ParseAmount converts a decimal string to a signed amount.
//
// Surrounding whitespace is ignored. Anything that is not a finite number
// (empty input, "abc", "12abc", "NaN", "Inf") returns ErrInvalidAmount, as
// does an exponent beyond ±64 or more than 64 significant digits.
// The scale of the input is preserved, so "12.50" stays "12.50".
//
// Examples:
//
//	ParseAmount("12.50") -> 12.50, nil
//	ParseAmount("-3")    -> -3, nil
//	ParseAmount("1e3")   -> 1000, nil
//	ParseAmount("12abc") -> 0, ErrInvalidAmount
//	ParseAmount("1e999") -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if exp := d.Exponent(); exp > maxAmountExponent || exp < -maxAmountExponent {
		return decimal.Zero, ErrInvalidAmount
	}
	if d.NumDigits() > maxAmountDigits {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// FormatAmount renders d with exactly as many fractional digits as it was
// parsed with.
func FormatAmount(d decimal.Decimal) string {
	places := -d.Exponent()
	if places < 0 {
		places = 0
	}
	return d.StringFixed(places)
}
