// Package export renders stored invoice records as an XLSX workbook
// with one sheet of invoice headers and one sheet of line items.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/dbelyaev/invoicescan/internal/common"
	"github.com/dbelyaev/invoicescan/internal/store"
)

const (
	invoiceSheet  = "Invoices"
	lineItemSheet = "LineItems"
)

var invoiceHeaders = []string{
	"ID", "Source", "Method", "Invoice #", "Date", "Supplier", "Total", "Created",
}

var lineItemHeaders = []string{
	"Invoice ID", "Invoice #", "#", "Product", "Unit", "Quantity",
	"Price (net)", "Amount (net)", "VAT", "Total",
}

// itemRow mirrors one element of the record's items list as stored in
// record_json.
type itemRow struct {
	LineNumber int     `json:"line_number"`
	Product    string  `json:"product_name"`
	Unit       string  `json:"unit"`
	Quantity   float64 `json:"quantity"`
	UnitPrice  float64 `json:"unit_price_without_vat"`
	Amount     float64 `json:"amount_without_vat"`
	VAT        float64 `json:"vat_amount"`
	Total      float64 `json:"total_with_vat"`
}

// Workbook builds the XLSX workbook for the given records and returns
// it as an in-memory buffer.
func Workbook(records []store.InvoiceRecord) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName(f.GetSheetName(0), invoiceSheet)
	if _, err := f.NewSheet(lineItemSheet); err != nil {
		return nil, common.WrapError(err, "create sheet")
	}

	if err := writeRow(f, invoiceSheet, 1, toCells(invoiceHeaders)); err != nil {
		return nil, err
	}
	if err := writeRow(f, lineItemSheet, 1, toCells(lineItemHeaders)); err != nil {
		return nil, err
	}

	itemRowIdx := 2
	for i, rec := range records {
		cells := []any{
			rec.ID, rec.SourcePath, rec.Method, rec.InvoiceNumber,
			rec.InvoiceDate, rec.Supplier, rec.Total,
			rec.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		if err := writeRow(f, invoiceSheet, i+2, cells); err != nil {
			return nil, err
		}

		for _, it := range recordItems(rec.RecordJSON) {
			cells := []any{
				rec.ID, rec.InvoiceNumber, it.LineNumber, it.Product, it.Unit,
				it.Quantity, it.UnitPrice, it.Amount, it.VAT, it.Total,
			}
			if err := writeRow(f, lineItemSheet, itemRowIdx, cells); err != nil {
				return nil, err
			}
			itemRowIdx++
		}
	}

	if err := f.SetColWidth(invoiceSheet, "A", "B", 38); err != nil {
		return nil, common.WrapError(err, "set column width")
	}
	if err := f.SetColWidth(lineItemSheet, "D", "D", 48); err != nil {
		return nil, common.WrapError(err, "set column width")
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, common.WrapError(err, "write workbook")
	}
	return buf, nil
}

func recordItems(recordJSON string) []itemRow {
	var doc struct {
		Items []itemRow `json:"line_items"`
	}
	// a record without items decodes to an empty list; bad JSON is
	// simply skipped, the header row already made it to the sheet
	_ = json.Unmarshal([]byte(recordJSON), &doc)
	return doc.Items
}

func writeRow(f *excelize.File, sheet string, row int, cells []any) error {
	for col, v := range cells {
		name, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return common.WrapError(err, "cell name")
		}
		if err := f.SetCellValue(sheet, name, v); err != nil {
			return common.WrapError(err, fmt.Sprintf("set cell %s", name))
		}
	}
	return nil
}

func toCells(headers []string) []any {
	out := make([]any, len(headers))
	for i, h := range headers {
		out[i] = h
	}
	return out
}
