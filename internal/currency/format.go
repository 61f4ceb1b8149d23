package currency

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Format renders amount in the given currency: rounded half away from zero
// to the currency's decimal places, thousands grouped with "," and the
// fraction separated by "." (en-US grouping), symbol placed per metadata.
// It is display-only and never feeds back into stored amounts.
func Format(amount float64, code string) string {
	info := Lookup(code)
	return info.place(formatNumber(amount, info.DecimalPlaces))
}

// FormatNumber renders amount without a symbol.
func FormatNumber(amount float64, code string) string {
	return formatNumber(amount, Lookup(code).DecimalPlaces)
}

func (i Info) place(number string) string {
	if i.SymbolPosition == SymbolAfter {
		return number + " " + i.Symbol
	}
	if strings.HasPrefix(number, "-") {
		return "-" + i.Symbol + strings.TrimPrefix(number, "-")
	}
	return i.Symbol + number
}

func formatNumber(amount float64, places int32) string {
	switch {
	case math.IsNaN(amount):
		return "NaN"
	case math.IsInf(amount, 1):
		return "∞"
	case math.IsInf(amount, -1):
		return "-∞"
	}

	value := decimal.NewFromFloat(amount).Round(places)
	if value.IsZero() {
		value = decimal.Zero
	}
	fixed := value.Abs().StringFixed(places)

	whole, frac, _ := strings.Cut(fixed, ".")
	out := groupThousands(whole)
	if frac != "" {
		out += "." + frac
	}
	if value.IsNegative() {
		out = "-" + out
	}
	return out
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
