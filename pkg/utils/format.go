package utils

import (
	"fmt"
	"math"
)

// FormatCompact formats an amount with a K/M/B/T suffix.
// e.g., 245122000000 → "245.12B", -1500 → "-1.50K"
func FormatCompact(amount float64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = math.Abs(amount)
	}
	switch {
	case amount >= 1e12:
		return fmt.Sprintf("%s%.2fT", sign, amount/1e12)
	case amount >= 1e9:
		return fmt.Sprintf("%s%.2fB", sign, amount/1e9)
	case amount >= 1e6:
		return fmt.Sprintf("%s%.2fM", sign, amount/1e6)
	case amount >= 1e3:
		return fmt.Sprintf("%s%.2fK", sign, amount/1e3)
	default:
		return fmt.Sprintf("%s%.2f", sign, amount)
	}
}

// FormatPct formats a fraction as a percentage with two decimals.
func FormatPct(frac float64) string {
	return fmt.Sprintf("%.2f%%", frac*100)
}
