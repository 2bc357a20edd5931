package invoice

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const defaultVendorLines = 5

// Extractor turns recognized invoice text into a Record.
// Its rules are compiled once and never modified, so one Extractor can be
// shared between goroutines.
type Extractor struct {
	invoiceNumberRules []*regexp.Regexp
	vendorRules        []*regexp.Regexp
	totalRules         []*regexp.Regexp
	dateRules          []dateRule
	rowRules           []rowRule

	defaultCurrency string
	vendorLines     int
}

// Option configures an Extractor
type Option func(*Extractor)

// WithDefaultCurrency sets the currency reported when the text names none.
// Values NormalizeCurrency rejects are ignored.
func WithDefaultCurrency(code string) Option {
	return func(e *Extractor) {
		if c, ok := NormalizeCurrency(code); ok {
			e.defaultCurrency = c
		}
	}
}

// WithVendorLines sets how many leading lines are searched for an unlabeled vendor name.
func WithVendorLines(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.vendorLines = n
		}
	}
}

// NewExtractor creates an Extractor with the built-in rule set
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{
		invoiceNumberRules: newInvoiceNumberRules(),
		vendorRules:        newVendorRules(),
		totalRules:         newTotalRules(),
		dateRules:          newDateRules(),
		rowRules:           newRowRules(),
		vendorLines:        defaultVendorLines,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Extract applies the rules to text. It never fails: fields without a
// matching rule are left nil and unparseable rows are skipped.
func (e *Extractor) Extract(text string) Record {
	text = strings.ToValidUTF8(text, "\uFFFD")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")

	rec := Record{
		InvoiceNumber: e.extractInvoiceNumber(text),
		Date:          e.extractDate(text, lines),
		Vendor:        e.extractVendor(text, lines),
		Items:         e.extractItems(lines),
	}

	total, currency := e.extractTotal(text)
	rec.TotalAmount = total
	if currency == "" {
		currency, _ = currencyIn(text)
	}
	if currency == "" {
		currency = e.defaultCurrency
	}
	if currency != "" {
		rec.Currency = stringPtr(currency)
	}
	return rec
}

// extractInvoiceNumber skips identifiers that are really dates, such as the
// date line under an "INVOICE" heading.
func (e *Extractor) extractInvoiceNumber(text string) *string {
	for _, re := range e.invoiceNumberRules {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			v := strings.Trim(m[1], "-/")
			if v == "" || isDate(e.dateRules, v) {
				continue
			}
			return stringPtr(v)
		}
	}
	return nil
}

func (e *Extractor) extractVendor(text string, lines []string) *string {
	for _, re := range e.vendorRules {
		if m := re.FindStringSubmatch(text); m != nil {
			return stringPtr(strings.TrimSpace(m[1]))
		}
	}

	seen := 0
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if seen++; seen > e.vendorLines {
			break
		}
		if looksLikeCompany(line) {
			return stringPtr(line)
		}
	}
	return nil
}

// extractTotal returns the largest amount matched by the first total rule
// that matches at all, together with any currency written next to it.
func (e *Extractor) extractTotal(text string) (*string, string) {
	for _, re := range e.totalRules {
		var (
			best     decimal.Decimal
			bestStr  string
			currency string
			found    bool
		)
		for _, loc := range re.FindAllStringSubmatchIndex(text, -1) {
			amount, d, ok := normalizeAmount(text[loc[2]:loc[3]])
			if !ok {
				continue
			}
			if found && !d.GreaterThan(best) {
				continue
			}
			best, bestStr, found = d, amount, true
			currency, _ = currencyIn(totalContext(text, loc[0], loc[1]))
		}
		if found {
			return stringPtr(bestStr), currency
		}
	}
	return nil, ""
}

// totalContext is the matched total plus the rest of its line, up to a few
// bytes, so that "100.00 USD" keeps its trailing code.
func totalContext(text string, start, end int) string {
	const trailing = 8
	stop := end
	for stop < len(text) && stop-end < trailing && text[stop] != '\n' {
		stop++
	}
	for stop > end && stop < len(text) && !utf8.RuneStart(text[stop]) {
		stop--
	}
	return text[start:stop]
}

func (e *Extractor) extractItems(lines []string) []LineItem {
	items := make([]LineItem, 0)
	for _, line := range lines {
		if item, ok := parseRow(e.rowRules, line); ok {
			items = append(items, item)
		}
	}
	return items
}
