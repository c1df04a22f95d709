// Package formatters renders amounts and counts for display in en-US.
package formatters

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const currencySymbol = "$"

var printer = message.NewPrinter(language.AmericanEnglish)

// FormatCurrency formats an amount in major units as whole US dollars,
// e.g. 19.99 -> "$20", 1234567 -> "$1,234,567".
func FormatCurrency(amount float64) string {
	switch {
	case math.IsNaN(amount):
		return currencySymbol + "NaN"
	case math.IsInf(amount, 1):
		return currencySymbol + "∞"
	case math.IsInf(amount, -1):
		return "-" + currencySymbol + "∞"
	}

	// half away from zero
	rounded := math.Round(amount)
	sign := ""
	if rounded < 0 {
		sign = "-"
		rounded = -rounded
	}
	return sign + currencySymbol + groupDigits(rounded)
}

// FormatNumber formats an integer with thousands separators, e.g. 1234 -> "1,234".
func FormatNumber(n int64) string {
	return printer.Sprintf("%d", n)
}

func groupDigits(v float64) string {
	if v < math.MaxInt64 {
		return printer.Sprintf("%d", int64(v))
	}
	return printer.Sprintf("%.0f", v)
}
