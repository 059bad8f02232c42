package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// defaultScale is used when a registry currency has no ISO 4217 entry.
const defaultScale = 2

// CurrencyInfo is what Format needs from the currency registry.
type CurrencyInfo struct {
	Code   string
	Symbol string
}

// CurrencyTable resolves a currency code to its display information.
type CurrencyTable interface {
	LookupCurrency(code string) (CurrencyInfo, bool)
}

// MinorUnits returns the number of decimal places for code according to
// ISO 4217, or 2 when the code is not a known ISO currency.
func MinorUnits(code string) int {
	unit, err := currency.ParseISO(strings.ToUpper(code))
	if err != nil {
		return defaultScale
	}
	scale, _ := currency.Standard.Rounding(unit)
	return scale
}

// Round rounds amount half away from zero to the minor unit of code.
func Round(amount decimal.Decimal, code string) decimal.Decimal {
	return amount.Round(int32(MinorUnits(code)))
}

// Format renders amount for display. Known currencies use their symbol;
// codes the table does not know render as "<CODE> <amount>". It never fails.
func Format(amount decimal.Decimal, code string, table CurrencyTable) string {
	scale := int32(MinorUnits(code))
	s := groupThousands(amount.Abs().StringFixed(scale))
	sign := ""
	if amount.Round(scale).IsNegative() {
		sign = "-"
	}

	if table != nil {
		if info, ok := table.LookupCurrency(code); ok && info.Symbol != "" {
			return sign + info.Symbol + s
		}
	}
	if code == "" {
		return sign + s
	}
	return sign + strings.ToUpper(code) + " " + s
}

func groupThousands(s string) string {
	intPart, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], s[i:]
	}
	if len(intPart) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(intPart) % 3
	if lead > 0 {
		b.WriteString(intPart[:lead])
	}
	for i := lead; i < len(intPart); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(intPart[i : i+3])
	}
	return b.String() + frac
}
