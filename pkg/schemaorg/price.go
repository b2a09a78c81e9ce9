package schemaorg

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var reCurrencyCode = regexp.MustCompile(`^[A-Za-z]{3}$`)

// PriceFormatter renders offer prices with a currency symbol using the
// number conventions of a locale.
type PriceFormatter struct {
	printer *message.Printer
}

// NewPriceFormatter creates a formatter for the BCP 47 locale. An empty or
// malformed locale falls back to American English.
func NewPriceFormatter(locale string) *PriceFormatter {
	tag := language.AmericanEnglish
	if locale != "" {
		if parsed, err := language.Parse(locale); err == nil {
			tag = parsed
		}
	}
	return &PriceFormatter{printer: message.NewPrinter(tag)}
}

// Format renders amount in code, e.g. "$1,250.00". An unknown but well
// formed code is used as the symbol, separated by a no-break space.
// The second result is false when the amount is not a number or the
// code is malformed.
func (f *PriceFormatter) Format(amount any, code string) (string, bool) {
	value, ok := parseAmount(amount)
	if !ok || !reCurrencyCode.MatchString(code) {
		return "", false
	}
	symbol := strings.ToUpper(code)
	scale := 2
	if unit, err := currency.ParseISO(code); err == nil {
		symbol = f.printer.Sprint(currency.Symbol(unit))
		scale, _ = currency.Standard.Rounding(unit)
	}
	digits := f.printer.Sprint(number.Decimal(value, number.Scale(scale)))
	if last, _ := utf8.DecodeLastRuneInString(symbol); unicode.IsLetter(last) {
		return symbol + "\u00a0" + digits, true
	}
	return symbol + digits, true
}

func parseAmount(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	}
	return 0, false
}
