package invoice

// Record contains the fields extracted from one invoice.
// Every field is optional; a nil pointer means no rule matched.
type Record struct {
	InvoiceNumber *string    `json:"invoice_number"`
	Date          *string    `json:"date"` // YYYY-MM-DD
	Vendor        *string    `json:"vendor"`
	TotalAmount   *string    `json:"total_amount"` // decimal, two fraction digits
	Currency      *string    `json:"currency"`     // ISO 4217 code
	Items         []LineItem `json:"items"`
}

// LineItem is one row of the invoice's itemized charges
type LineItem struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   string  `json:"unit_price"`
	Total       string  `json:"total"`
}

// Empty reports whether no field of the record was found
func (r Record) Empty() bool {
	return r.InvoiceNumber == nil && r.Date == nil && r.Vendor == nil &&
		r.TotalAmount == nil && r.Currency == nil && len(r.Items) == 0
}

// Fields returns the number of scalar fields that are present
func (r Record) Fields() int {
	n := 0
	for _, f := range []*string{r.InvoiceNumber, r.Date, r.Vendor, r.TotalAmount, r.Currency} {
		if f != nil {
			n++
		}
	}
	return n
}

func stringPtr(s string) *string {
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
