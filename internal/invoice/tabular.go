package invoice

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"
)

// Row pairs a record with the input it was extracted from
type Row struct {
	Source string
	Record Record
}

var (
	invoiceHeader = []string{"source", "invoice_number", "date", "vendor", "total_amount", "currency", "item_count"}
	itemHeader    = []string{"source", "line", "description", "quantity", "unit_price", "total"}
)

const (
	invoiceSheet = "Invoices"
	itemSheet    = "Items"
)

func invoiceFields(row Row) []string {
	rec := row.Record
	return []string{
		row.Source,
		deref(rec.InvoiceNumber),
		deref(rec.Date),
		deref(rec.Vendor),
		deref(rec.TotalAmount),
		deref(rec.Currency),
		strconv.Itoa(len(rec.Items)),
	}
}

func itemFields(source string, line int, item LineItem) []string {
	return []string{
		source,
		strconv.Itoa(line),
		item.Description,
		strconv.FormatFloat(item.Quantity, 'f', -1, 64),
		item.UnitPrice,
		item.Total,
	}
}

// WriteCSV writes one line per invoice. Absent fields are empty cells.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(invoiceHeader); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for _, row := range rows {
		if err := cw.Write(invoiceFields(row)); err != nil {
			return fmt.Errorf("writing csv row for %s: %w", row.Source, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flushing csv: %w", err)
	}
	return nil
}

// WriteItemsCSV writes the line items of every invoice, numbered from 1 per
// invoice, in document order.
func WriteItemsCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(itemHeader); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for _, row := range rows {
		for i, item := range row.Record.Items {
			if err := cw.Write(itemFields(row.Source, i+1, item)); err != nil {
				return fmt.Errorf("writing csv item for %s: %w", row.Source, err)
			}
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flushing csv: %w", err)
	}
	return nil
}

// WriteXLSX writes a workbook with an Invoices sheet and an Items sheet laid
// out like the two CSV files.
func WriteXLSX(w io.Writer, rows []Row) error {
	f := excelize.NewFile()
	defer f.Close()

	invoices := make([][]string, 0, len(rows))
	var items [][]string
	for _, row := range rows {
		invoices = append(invoices, invoiceFields(row))
		for i, item := range row.Record.Items {
			items = append(items, itemFields(row.Source, i+1, item))
		}
	}

	if err := writeSheet(f, invoiceSheet, invoiceHeader, invoices); err != nil {
		return err
	}
	if err := writeSheet(f, itemSheet, itemHeader, items); err != nil {
		return err
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("removing default sheet: %w", err)
	}
	if index, err := f.GetSheetIndex(invoiceSheet); err == nil && index >= 0 {
		f.SetActiveSheet(index)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, header []string, rows [][]string) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("creating sheet %s: %w", sheet, err)
	}
	for i, values := range append([][]string{header}, rows...) {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("sheet %s row %d: %w", sheet, i+1, err)
		}
		row := make([]any, len(values))
		for j, v := range values {
			row[j] = v
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("sheet %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
