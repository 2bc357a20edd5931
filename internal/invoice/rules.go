package invoice

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	symbolClass = `[$€£¥₹]`
	// identifiers must carry at least one digit, so prose such as
	// "invoice number here" is not mistaken for a number
	identPattern = `([A-Za-z0-9\-/]*\d[A-Za-z0-9\-/]*)`
	// optional ":" / "=" / "(USD)" / "$" between a label and its amount
	labelFiller = `[\s:=\-]*(?:\(?[A-Za-z]{3}\)?)?[\s:=\-]*` + symbolClass + `?\s*`
)

func newInvoiceNumberRules() []*regexp.Regexp {
	return []*regexp.Regexp{
		regexp.MustCompile(`(?i)\binvoice\s*(?:number|num|no\.?|#)\s*:?\s*#?\s*` + identPattern),
		regexp.MustCompile(`(?i)\binv\.?\s*(?:no\.?|#)\s*:?\s*#?\s*` + identPattern),
		// a bare "invoice" label must have its value on the same line
		regexp.MustCompile(`(?i)\binvoice[ \t]*:?[ \t]*#?[ \t]*` + identPattern),
	}
}

func newVendorRules() []*regexp.Regexp {
	return []*regexp.Regexp{
		regexp.MustCompile(`(?im)^[ \t]*(?:vendor|seller|supplier|bill(?:ed)?\s+from|sold\s+by|from)[ \t]*:[ \t]*(\S[^\n]*?)[ \t]*$`),
	}
}

var (
	reCompanyMarker = regexp.MustCompile(`(?i)\b(?:inc|llc|l\.l\.c|corp|corporation|company|co|ltd|limited|gmbh|plc)\b`)
	reNotVendor     = regexp.MustCompile(`(?i)\b(?:invoice|receipt|bill\s+to|ship\s+to|date|total|page)\b`)
	reHasDigit      = regexp.MustCompile(`\d`)
	reHasLetter     = regexp.MustCompile(`\pL`)
)

// looksLikeCompany reports whether a header line reads like a business name:
// it names a legal form, or it is an all-caps phrase without digits.
func looksLikeCompany(line string) bool {
	if len(line) <= 5 || len(line) >= 50 || reNotVendor.MatchString(line) {
		return false
	}
	if reCompanyMarker.MatchString(line) {
		return true
	}
	return strings.Contains(line, " ") &&
		!reHasDigit.MatchString(line) &&
		reHasLetter.MatchString(line) &&
		strings.ToUpper(line) == line
}

// newTotalRules lists total rules by priority; each captures the amount in group 1.
func newTotalRules() []*regexp.Regexp {
	return []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bgrand\s*total\b` + labelFiller + `(` + amountPattern + `)`),
		// "subtotal" is excluded by requiring a non-letter before "total"
		regexp.MustCompile(`(?im)(?:^|[^a-z\n])total\b` + labelFiller + `(` + amountPattern + `)`),
		regexp.MustCompile(`(?i)\bamount\s*due\b` + labelFiller + `(` + amountPattern + `)`),
		regexp.MustCompile(`(?i)\bbalance\s*due\b` + labelFiller + `(` + amountPattern + `)`),
		regexp.MustCompile(`(?i)` + symbolClass + `?\s*(` + amountPattern + `)[ \t]+total\b`),
		regexp.MustCompile(`(?i)\bamount\b` + labelFiller + `(` + amountPattern + `)`),
	}
}

// rowRule recognizes one line-item layout. The index fields name the
// submatch that holds each column.
type rowRule struct {
	re                                 *regexp.Regexp
	description, quantity, unit, total int
}

func newRowRules() []rowRule {
	// row amounts need a fraction so phone numbers and postcodes are not rows
	money := symbolClass + `?\s*(\d{1,3}(?:,\d{3})+\.\d{2}|\d+\.\d{2})`
	return []rowRule{
		{
			// Product A   2   500.00   1000.00
			re:          regexp.MustCompile(`^\s*(.*?\pL.*?)\s+(\d+(?:\.\d+)?)\s+` + money + `\s+` + money + `\s*$`),
			description: 1, quantity: 2, unit: 3, total: 4,
		},
		{
			// 2 x Product A @ 500.00 = 1000.00
			re:          regexp.MustCompile(`^\s*(\d+(?:\.\d+)?)\s*[xX×]\s+(.*?\pL.*?)\s*@\s*` + money + `\s*=?\s*` + money + `\s*$`),
			description: 2, quantity: 1, unit: 3, total: 4,
		},
	}
}

var reSummaryLabel = regexp.MustCompile(`(?i)^\s*(?:sub\s*-?\s*total|grand\s+total|total|tax|vat|gst|sales\s+tax|discount|shipping|freight|handling|balance|amount|paid|payment|change|deposit|invoice|date)\b`)

// parseRow applies the row rules to one line. Rows that match a layout but
// carry a summary label or unparseable numbers are skipped.
func parseRow(rules []rowRule, line string) (LineItem, bool) {
	for _, rule := range rules {
		m := rule.re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		desc := strings.Join(strings.Fields(m[rule.description]), " ")
		if desc == "" || reSummaryLabel.MatchString(desc) {
			return LineItem{}, false
		}
		qty, err := strconv.ParseFloat(m[rule.quantity], 64)
		if err != nil || qty <= 0 {
			return LineItem{}, false
		}
		unit, _, ok := normalizeAmount(m[rule.unit])
		if !ok {
			return LineItem{}, false
		}
		total, _, ok := normalizeAmount(m[rule.total])
		if !ok {
			return LineItem{}, false
		}
		return LineItem{
			Description: desc,
			Quantity:    qty,
			UnitPrice:   unit,
			Total:       total,
		}, true
	}
	return LineItem{}, false
}
