package parse

import (
	"context"
	"regexp"
	"strings"
)

var (
	reValidity     = regexp.MustCompile(`(?i)действителен\s+в\s+течение\s+(\d+\s+банковских\s+дней)`)
	reTitle        = regexp.MustCompile(`(?im)^(сч[её]т\s*№?\s*[\d/]+\s+от\s+[\d.]+\s*(?:г\.)?)\s*$`)
	rePaymentDue   = regexp.MustCompile(`(?i)оплат[аиыу][^\n]*?до\s+(\d{1,2}\.\d{1,2}\.\d{4})`)
	reAddress      = regexp.MustCompile(`(?i)адрес\s*[:\-]?\s*([^\n]{10,150})`)
	rePhone        = regexp.MustCompile(`(?i)тел(?:ефон)?\.?\s*[:\-]?\s*(\+?[78][\d\s\-\(\)]{9,16})`)
	rePhoneDigits  = regexp.MustCompile(`(?i)тел\.\s*(8\d{10})`)
	reSettlementRS = regexp.MustCompile(`(?i)р\s*/\s*с[чёт]*\.?\s*№?\s*(\d{20})`)
	reCorrespKS    = regexp.MustCompile(`(?i)к\s*/\s*с[чёт]*\.?\s*№?\s*(\d{20})`)
	reBIK          = regexp.MustCompile(`(?i)БИК\s*[:\-]?\s*(\d{9})`)
	reBankName     = regexp.MustCompile(`(?i)(?:в\s+банке?|банк)\s*[:\-]?\s*([А-ЯЁ][^\n,]{5,80})`)
	reContract     = regexp.MustCompile(`(?i)договор[а-я]*\s*№?\s*([\w\-/]+)\s+от\s+(\d{1,2}\.\d{1,2}\.\d{4})`)

	reSubtotal     = regexp.MustCompile(`(?i)итого\s+без\s+ндс\s*[:\-]?\s*(` + amount2 + `)`)
	reVATLine      = regexp.MustCompile(`(?i)ндс\s*\(?\s*(\d{1,2})\s*%\s*\)?\s*[:\-]?\s*(` + amount2 + `)`)
	reVATAmount    = regexp.MustCompile(`(?i)(?:в\s+т\.?\s*ч\.?|в\s+том\s+числе)\s+ндс\s*[:\-]?\s*(` + amount2 + `)`)
	reGrandTotal   = regexp.MustCompile(`(?i)всего\s+с\s+ндс\s*[:\-]?\s*(` + amount2 + `)`)
	reWordsAmount  = regexp.MustCompile(`(?i)([А-Яа-яё][А-Яа-яё\s\-]+рубл[а-яё]*[А-Яа-яё\s\d\-]*копе[а-яё]+)`)
	reWithoutVAT   = regexp.MustCompile(`(?i)без\s+(?:налога\s+)?\(?ндс\)?`)
	reItemsTotal   = regexp.MustCompile(`(?i)всего\s+наименований\s+(\d+)`)

	reSignatoryName = `([А-ЯЁ][а-яё]+\s+[А-ЯЁ]\.\s*[А-ЯЁ]\.)`
	reSalesDirector = regexp.MustCompile(`(?i)директор\s+по\s+продажам[^\n]*?` + reSignatoryName)
	reAccountant    = regexp.MustCompile(`(?i)главный\s+бухгалтер[^\n]*?` + reSignatoryName)
	reIssuedBy      = regexp.MustCompile(`(?i)выписал\(?а?\)?[^\n]*?` + reSignatoryName)
	reDirector      = regexp.MustCompile(`(?i)(?:генеральный\s+)?директор[^\n]*?` + reSignatoryName)

	reTermClause = regexp.MustCompile(`(?m)^\s*(\d+)\.\s+([^\n]{20,500})$`)
	rePickup     = regexp.MustCompile(`(?i)самовывоз[^\n]*?(?:по\s+адресу|со\s+склада)?\s*[:\-]?\s*([^\n]{10,150})`)
	reContact    = regexp.MustCompile(`(?i)(?:контакт[а-я]*|менеджер)\s*[:\-]?\s*([А-ЯЁ][а-яё]+(?:\s+[А-ЯЁ][а-яё]+)?)`)
)

var currencyMarkers = []struct {
	marker string
	code   string
}{
	{"руб", "RUB"},
	{"₽", "RUB"},
	{"rub", "RUB"},
	{"eur", "EUR"},
	{"€", "EUR"},
	{"usd", "USD"},
	{"$", "USD"},
	{"долл", "USD"},
}

// buildInvoiceSection collects the header-level fields: number, date,
// title line, validity clause.
func (e *Engine) buildInvoiceSection(ctx context.Context, text string) Section {
	s := Section{}
	s.put("number", e.extractField(ctx, text, FieldInvoiceNumber))
	s.put("date", e.extractField(ctx, text, FieldInvoiceDate))
	if m := reTitle.FindStringSubmatch(text); m != nil {
		s.put("title", collapseWhitespace(m[1]))
	}
	if m := reValidity.FindStringSubmatch(text); m != nil {
		s.put("validity", collapseWhitespace(m[1]))
	}
	if m := rePaymentDue.FindStringSubmatch(text); m != nil {
		s.put("payment_due", m[1])
	}
	return s
}

func (e *Engine) buildSupplierSection(ctx context.Context, text string) Section {
	s := Section{}
	s.put("company_name", e.extractField(ctx, text, FieldSeller))
	s.put("inn", e.extractField(ctx, text, FieldSellerINN))
	s.put("kpp", e.extractField(ctx, text, FieldSellerKPP))
	// address and phone come from the supplier half of the document
	// when a buyer block exists below it
	scope := supplierScope(text)
	if m := reAddress.FindStringSubmatch(scope); m != nil {
		s.put("address", collapseWhitespace(m[1]))
	}
	if m := rePhone.FindStringSubmatch(scope); m != nil {
		s.put("phone", collapseWhitespace(m[1]))
	}
	s.put("bank_details", buildBankDetails(text))
	return s
}

func (e *Engine) buildCustomerSection(ctx context.Context, text string) Section {
	s := Section{}
	s.put("company_name", e.extractField(ctx, text, FieldBuyer))
	s.put("inn", e.extractField(ctx, text, FieldBuyerINN))
	s.put("kpp", e.extractField(ctx, text, FieldBuyerKPP))
	scope := customerScope(text)
	if scope != "" {
		if m := reAddress.FindStringSubmatch(scope); m != nil {
			s.put("address", collapseWhitespace(m[1]))
		}
		if m := rePhone.FindStringSubmatch(scope); m != nil {
			s.put("phone", collapseWhitespace(m[1]))
		}
	}
	if m := reContract.FindStringSubmatch(text); m != nil {
		contract := Section{}
		contract.put("number", m[1])
		contract.put("date", m[2])
		s.put("contract", contract)
	}
	return s
}

// supplierScope returns the text before the buyer anchor, or the whole
// text when no buyer block exists.
func supplierScope(text string) string {
	if i := indexFold(text, "покупатель"); i > 0 {
		return text[:i]
	}
	return text
}

func customerScope(text string) string {
	if i := indexFold(text, "покупатель"); i >= 0 {
		return text[i:]
	}
	return ""
}

func indexFold(haystack, needle string) int {
	return strings.Index(strings.ToLower(haystack), strings.ToLower(needle))
}

func buildBankDetails(text string) Section {
	b := Section{}
	if m := reSettlementRS.FindStringSubmatch(text); m != nil {
		b.put("settlement_account", m[1])
	}
	if m := reCorrespKS.FindStringSubmatch(text); m != nil {
		b.put("correspondent_account", m[1])
	}
	if m := reBIK.FindStringSubmatch(text); m != nil {
		b.put("bik", m[1])
	}
	if m := reBankName.FindStringSubmatch(text); m != nil {
		b.put("bank_name", collapseWhitespace(m[1]))
	}
	return b
}

// buildFinancialSection collects the money summary below the goods
// table. VAT is reported either as a rate+amount line or an in-total
// amount; a "без НДС" marker records the zero-VAT case explicitly.
func (e *Engine) buildFinancialSection(ctx context.Context, text string) Section {
	s := Section{}
	if m := reSubtotal.FindStringSubmatch(text); m != nil {
		if v, ok := amountValue(m[1]); ok {
			s.put("subtotal_without_vat", v)
		}
	}
	if m := reVATLine.FindStringSubmatch(text); m != nil {
		vat := Section{}
		vat.put("rate", m[1]+"%")
		if v, ok := amountValue(m[2]); ok {
			vat.put("amount", v)
		}
		s.put("vat", vat)
	} else if m := reVATAmount.FindStringSubmatch(text); m != nil {
		vat := Section{}
		if v, ok := amountValue(m[1]); ok {
			vat.put("amount", v)
		}
		s.put("vat", vat)
	} else if reWithoutVAT.MatchString(text) {
		s.put("vat_exempt", true)
	}
	if m := reGrandTotal.FindStringSubmatch(text); m != nil {
		if v, ok := amountValue(m[1]); ok {
			s.put("total_with_vat", v)
		}
	}
	if raw := e.extractField(ctx, text, FieldTotalAmount); raw != "" {
		if v, ok := amountValue(raw); ok {
			s.put("total_amount", v)
		}
	}
	if m := reWordsAmount.FindStringSubmatch(text); m != nil {
		s.put("amount_in_words", collapseWhitespace(m[1]))
	}
	if m := reItemsTotal.FindStringSubmatch(text); m != nil {
		if v, ok := amountValue(m[1]); ok {
			s.put("items_count", int(v))
		}
	}
	// currency only makes sense next to actual money fields
	if len(s) > 0 {
		s.put("currency", detectCurrency(text, e.cfg.DefaultCurrency))
	}
	return s
}

func detectCurrency(text, fallback string) string {
	lower := strings.ToLower(text)
	for _, c := range currencyMarkers {
		if strings.Contains(lower, c.marker) {
			return c.code
		}
	}
	return fallback
}

func buildSignatoriesSection(text string) Section {
	s := Section{}
	if m := reSalesDirector.FindStringSubmatch(text); m != nil {
		s.put("sales_director", collapseWhitespace(m[1]))
	}
	if m := reAccountant.FindStringSubmatch(text); m != nil {
		s.put("chief_accountant", collapseWhitespace(m[1]))
	}
	if m := reIssuedBy.FindStringSubmatch(text); m != nil {
		s.put("issued_by", collapseWhitespace(m[1]))
	}
	if len(s) == 0 {
		if m := reDirector.FindStringSubmatch(text); m != nil {
			s.put("director", collapseWhitespace(m[1]))
		}
	}
	return s
}

// buildTermsSection picks up the numbered conditions block that many
// invoices append below the totals.
func buildTermsSection(text string) []Section {
	var terms []Section
	for _, m := range reTermClause.FindAllStringSubmatch(text, -1) {
		clause := collapseWhitespace(m[2])
		// a numbered line that parses as a goods row is not a term
		if reShortAmount.MatchString(clause) {
			continue
		}
		t := Section{}
		if v, ok := amountValue(m[1]); ok {
			t.put("number", int(v))
		}
		t.put("text", clause)
		terms = append(terms, t)
	}
	return terms
}

func buildAdditionalInfoSection(text string) Section {
	s := Section{}
	if m := rePickup.FindStringSubmatch(text); m != nil {
		s.put("pickup_address", collapseWhitespace(m[1]))
	}
	if m := reContact.FindStringSubmatch(text); m != nil {
		s.put("contact", collapseWhitespace(m[1]))
	}
	if m := rePhoneDigits.FindStringSubmatch(text); m != nil {
		s.put("contact_phone", m[1])
	}
	return s
}
