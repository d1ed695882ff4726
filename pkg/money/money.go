// Package money keeps amounts as integer cents and only uses decimals to
// render display strings.
package money

import "github.com/shopspring/decimal"

const minorUnits = 2

// ToDecimal converts cents to a decimal with two places.
func ToDecimal(cents int64) decimal.Decimal {
	return decimal.New(cents, -minorUnits)
}

// FormatCents renders cents as a fixed two-place string, e.g. 3550 -> "35.50".
func FormatCents(cents int64) string {
	return ToDecimal(cents).StringFixed(minorUnits)
}
