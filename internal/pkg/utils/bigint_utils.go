package utils

import (
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// FormatUnits renders an integer amount of base units as a decimal string with the given
// number of decimals, without going through floating point.
// Whole values keep one fractional digit.
// Example: amount=1000000000000000000, decimals=18 => "1.0"
// Example: amount=1234500000000000000, decimals=18 => "1.2345"
func FormatUnits(amount *big.Int, decimals uint8) string {
	if amount == nil {
		return "0.0"
	}
	s := decimal.NewFromBigInt(amount, -int32(decimals)).String()
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// FormatRaw renders a token amount; when decimals are unknown the raw integer is returned.
func FormatRaw(amount *big.Int, decimals *uint8) string {
	if decimals == nil {
		if amount == nil {
			return "0"
		}
		return amount.String()
	}
	return FormatUnits(amount, *decimals)
}

// CopyBigInt returns an independent copy of v, or nil.
func CopyBigInt(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}
