package decimal

import (
	"github.com/shopspring/decimal"
)

// Zero is decimal zero
var Zero = decimal.Zero

// FromFloat creates decimal from float without rounding, so 0.1 stays 0.1
func FromFloat(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

// FromString parses a decimal amount such as "1250.50". NaN and Inf are rejected.
func FromString(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}

// LineAmount computes quantity * rate. A nil operand contributes zero.
func LineAmount(quantity, rate *float64) decimal.Decimal {
	if quantity == nil || rate == nil {
		return Zero
	}
	return FromFloat(*quantity).Mul(FromFloat(*rate))
}

// Sum sums a slice of decimals
func Sum(values []decimal.Decimal) decimal.Decimal {
	result := Zero
	for _, v := range values {
		result = result.Add(v)
	}
	return result
}

// ToFloat converts back to float64 for JSON responses
func ToFloat(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

// IsNonNegative returns true if decimal is >= zero
func IsNonNegative(d decimal.Decimal) bool {
	return d.GreaterThanOrEqual(Zero)
}

// FormatUSD renders d as a dollar amount with two decimals, e.g. "$1,250.50"
func FormatUSD(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	fixed := d.StringFixed(2)
	whole, frac := fixed[:len(fixed)-3], fixed[len(fixed)-2:]

	grouped := make([]byte, 0, len(whole)+len(whole)/3)
	for i := range len(whole) {
		if i > 0 && (len(whole)-i)%3 == 0 {
			grouped = append(grouped, ',')
		}
		grouped = append(grouped, whole[i])
	}
	return sign + "$" + string(grouped) + "." + frac
}
