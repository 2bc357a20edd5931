package invoice

import (
	"regexp"
	"strings"
	"time"
)

const monthNames = `(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?`

// dateRule matches one textual date shape and knows which layouts can read it.
type dateRule struct {
	re      *regexp.Regexp
	build   func(m []string) string
	layouts []string
}

func newDateRules() []dateRule {
	return []dateRule{
		{
			// 12/31/2024, 31.12.2024, 1-2-24
			re: regexp.MustCompile(`\b(\d{1,2})[/.\-](\d{1,2})[/.\-](\d{4}|\d{2})\b`),
			build: func(m []string) string {
				return m[1] + "/" + m[2] + "/" + m[3]
			},
			// month first before day first, 4-digit years before 2-digit years
			layouts: []string{"1/2/2006", "2/1/2006", "1/2/06", "2/1/06"},
		},
		{
			// 2024-01-15, 2024/1/5
			re: regexp.MustCompile(`\b(\d{4})[/.\-](\d{1,2})[/.\-](\d{1,2})\b`),
			build: func(m []string) string {
				return m[1] + "/" + m[2] + "/" + m[3]
			},
			layouts: []string{"2006/1/2"},
		},
		{
			// 15 Jan 2024, 1st February, 2024
			re: regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)?\s+(` + monthNames + `),?\s+(\d{4}|\d{2})\b`),
			build: func(m []string) string {
				return m[1] + " " + shortMonth(m[2]) + " " + m[3]
			},
			layouts: []string{"2 Jan 2006", "2 Jan 06"},
		},
		{
			// Jan 15, 2024
			re: regexp.MustCompile(`(?i)\b(` + monthNames + `)\s+(\d{1,2})(?:st|nd|rd|th)?,?\s+(\d{4}|\d{2})\b`),
			build: func(m []string) string {
				return shortMonth(m[1]) + " " + m[2] + " " + m[3]
			},
			layouts: []string{"Jan 2 2006", "Jan 2 06"},
		},
	}
}

var reDateLabel = regexp.MustCompile(`(?i)\b(?:invoice\s+date|issue\s+date|date\s+of\s+issue|dated?|issued)\b`)
var reDueLabel = regexp.MustCompile(`(?i)\b(?:due|expir\w*|delivery|ship\w*)\b`)

func shortMonth(name string) string {
	name = strings.TrimSuffix(name, ".")
	if len(name) > 3 {
		name = name[:3]
	}
	return name
}

// parseDate returns the first candidate in s that is a real calendar date,
// trying rules in priority order and matches in document order.
func parseDate(rules []dateRule, s string) (string, bool) {
	for _, rule := range rules {
		for _, m := range rule.re.FindAllStringSubmatch(s, -1) {
			candidate := rule.build(m)
			for _, layout := range rule.layouts {
				t, err := time.Parse(layout, candidate)
				if err != nil || t.Year() < 1900 || t.Year() > 2199 {
					continue
				}
				return t.Format("2006-01-02"), true
			}
		}
	}
	return "", false
}

// isDate reports whether all of s is a date the rules can read
func isDate(rules []dateRule, s string) bool {
	for _, rule := range rules {
		m := rule.re.FindStringSubmatchIndex(s)
		if m == nil || m[0] != 0 || m[1] != len(s) {
			continue
		}
		if _, ok := parseDate([]dateRule{rule}, s); ok {
			return true
		}
	}
	return false
}

// extractDate prefers dates on lines labeled as the invoice date, then falls
// back to the whole text. Due and delivery dates are not invoice dates.
func (e *Extractor) extractDate(text string, lines []string) *string {
	for _, line := range lines {
		if !reDateLabel.MatchString(line) || reDueLabel.MatchString(line) {
			continue
		}
		if d, ok := parseDate(e.dateRules, line); ok {
			return stringPtr(d)
		}
	}
	if d, ok := parseDate(e.dateRules, text); ok {
		return stringPtr(d)
	}
	return nil
}
