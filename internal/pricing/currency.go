package pricing

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// NormalizeCurrency returns the canonical upper-case form of code. Codes that
// are not ISO 4217 are returned upper-cased and trimmed so they can still be
// looked up; an empty code becomes DefaultCurrency.
func NormalizeCurrency(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return DefaultCurrency
	}
	if unit, err := currency.ParseISO(code); err == nil {
		return unit.String()
	}
	return code
}

// ValidateCurrency reports an error when code is not a recognized ISO 4217
// currency.
func ValidateCurrency(code string) error {
	if _, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(code))); err != nil {
		return eris.Wrapf(err, "pricing: invalid currency %q", code)
	}
	return nil
}

// FormatAmount renders amount with the standard number of decimals for
// code, e.g. "USD 1,234.50" or "JPY 12,000".
func FormatAmount(code string, amount decimal.Decimal) string {
	code = NormalizeCurrency(code)
	scale := 2
	if unit, err := currency.ParseISO(code); err == nil {
		scale, _ = currency.Standard.Rounding(unit)
	}
	f, _ := amount.Round(int32(scale)).Float64()
	p := message.NewPrinter(language.English)
	return p.Sprintf(fmt.Sprintf("%%s %%.%df", scale), code, f)
}
