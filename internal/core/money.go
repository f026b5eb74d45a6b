// Package core holds the finance tracker domain: users, classified
// transactions, calendar dates and months, and the aggregate shapes.
//
// This file contains functions for parsing monetary amounts from strings
// and converting between cents and the float amounts the store persists.
package core

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseDecimalToCents converts a decimal string to cents with proper rounding.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and performs
// half-up rounding on the third decimal place. The result is always positive cents.
// Returns an error for invalid formats, negative values, or zero amounts.
//
// Examples:
//   ParseDecimalToCents("12.34") -> 1234, nil
//   ParseDecimalToCents("12,34") -> 1234, nil
//   ParseDecimalToCents("12.344") -> 1234, nil (rounds down)
//   ParseDecimalToCents("12.345") -> 1235, nil (rounds up)
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		// Only positive values allowed
		return 0, ErrInvalidAmount
	}
	// Split into integer and fractional part
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart {
		if r < '0' || r > '9' {
			return 0, ErrInvalidAmount
		}
	}
	for _, r := range fracPart {
		if r < '0' || r > '9' {
			return 0, ErrInvalidAmount
		}
	}
	// Convert integer part - check for overflow
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	// Prevent overflow when multiplying by 100
	const maxSafeInt64 = (1<<63 - 1) / 100
	if iv > maxSafeInt64 {
		return 0, ErrInvalidAmount
	}
	// Take first two fractional digits; then half-up rounding on third
	var fracCents int64 = 0
	if len(fracPart) > 0 {
		d1 := int64(fracPart[0] - '0')
		fracCents = d1 * 10
		if len(fracPart) > 1 {
			d2 := int64(fracPart[1] - '0')
			fracCents += d2
			if len(fracPart) > 2 {
				if fracPart[2] >= '5' {
					fracCents++
				}
			}
		}
	}
	cents := iv*100 + fracCents
	if cents <= 0 {
		return 0, ErrInvalidAmount
	}
	return cents, nil
}

// ParseAmount parses a user-entered amount ("12.34" or "12,34") into the
// float representation stored with transactions, rounded to cents.
func ParseAmount(s string) (float64, error) {
	cents, err := ParseDecimalToCents(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", err, strings.TrimSpace(s))
	}
	return CentsToAmount(cents), nil
}

// CentsToAmount converts integer cents to a float amount.
func CentsToAmount(cents int64) float64 {
	return float64(cents) / 100.0
}

// AmountToCents rounds a float amount half away from zero to integer cents.
func AmountToCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// FormatAmount renders an amount with two decimals, e.g. "1234.50" or "-20.00".
func FormatAmount(amount float64) string {
	return strconv.FormatFloat(float64(AmountToCents(amount))/100.0, 'f', 2, 64)
}
