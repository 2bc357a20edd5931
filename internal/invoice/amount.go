package invoice

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// amountPattern is the shape of a money amount in OCR text: optional thousands
// separators and an optional fraction.
const amountPattern = `\d{1,3}(?:,\d{3})+(?:\.\d{1,2})?|\d+(?:\.\d{1,2})?`

var currencySymbols = map[string]string{
	"$": "USD",
	"€": "EUR",
	"£": "GBP",
	"¥": "JPY",
	"₹": "INR",
}

var currencyCodes = []string{"USD", "EUR", "GBP", "JPY", "INR", "CAD", "AUD", "CHF", "CNY"}

var (
	reCurrencyToken = regexp.MustCompile(`(?i)\b(` + strings.Join(currencyCodes, "|") + `)\b|([$€£¥₹])`)
	reAmountClean   = regexp.MustCompile(`[\s,$€£¥₹]`)
	reCurrencyCode  = regexp.MustCompile(`^[A-Z]{3}$`)
)

// normalizeAmount parses a matched amount and renders it with two fraction
// digits. Thousands separators and currency symbols are dropped.
func normalizeAmount(raw string) (string, decimal.Decimal, bool) {
	s := reAmountClean.ReplaceAllString(raw, "")
	s = strings.TrimSuffix(s, ".")
	if s == "" {
		return "", decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return "", decimal.Zero, false
	}
	return d.StringFixed(2), d, true
}

// currencyIn returns the ISO code of the first currency symbol or code in s.
func currencyIn(s string) (string, bool) {
	m := reCurrencyToken.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	if m[1] != "" {
		return strings.ToUpper(m[1]), true
	}
	return currencySymbols[m[2]], true
}

// NormalizeCurrency turns a currency symbol or a three-letter code into an
// ISO code. It reports false for anything else.
func NormalizeCurrency(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if code, ok := currencySymbols[s]; ok {
		return code, true
	}
	s = strings.ToUpper(s)
	if !reCurrencyCode.MatchString(s) {
		return "", false
	}
	return s, true
}
