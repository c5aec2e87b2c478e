package parse

import "context"

// ExtractInvoiceData runs the whole extraction pass over normalized
// document text and assembles the pruned record. The pass is a pure
// function of the text: running it twice yields the same record.
// tables, when present, is the layout-recovered grid from the text
// acquisition step; it is advisory and the parser works without it.
func (e *Engine) ExtractInvoiceData(ctx context.Context, text string, tables [][][]string) Record {
	text = PreprocessText(text)

	r := Record{}
	if inv := e.buildInvoiceSection(ctx, text); len(inv) > 0 {
		r["invoice"] = inv
	}
	if sup := e.buildSupplierSection(ctx, text); len(sup) > 0 {
		r["supplier"] = sup
	}
	if cust := e.buildCustomerSection(ctx, text); len(cust) > 0 {
		r["customer"] = cust
	}
	if items := e.ExtractLineItems(text); len(items) > 0 {
		r["line_items"] = items
	}
	if fin := e.buildFinancialSection(ctx, text); len(fin) > 0 {
		r["financial_summary"] = fin
	}
	if sig := buildSignatoriesSection(text); len(sig) > 0 {
		r["signatories"] = sig
	}
	if terms := buildTermsSection(text); len(terms) > 0 {
		r["terms_and_conditions"] = terms
	}
	if add := buildAdditionalInfoSection(text); len(add) > 0 {
		r["additional_info"] = add
	}
	return Prune(r)
}
