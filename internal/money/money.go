// Package money holds the cent arithmetic shared by pricing and refunds.
// All amounts in the system are integer kurus; conversion to display
// values happens at the edges only.
package money

import (
	"fmt"
	"math"
)

// Discount returns the discount in cents for a percentage of a price,
// rounded half away from zero at currency precision. Percent is expected
// in (0, 100]; callers validate before reaching here.
func Discount(priceCents int64, percent float64) int64 {
	return int64(math.Round(float64(priceCents) * percent / 100.0))
}

// ApplyDiscount returns the final price after subtracting the percentage
// discount, floored at zero.
func ApplyDiscount(priceCents int64, percent float64) int64 {
	final := priceCents - Discount(priceCents, percent)
	if final < 0 {
		return 0
	}
	return final
}

// Format renders cents as a decimal string with two fraction digits,
// e.g. 25000 -> "250.00". Used in user-facing error messages.
func Format(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
