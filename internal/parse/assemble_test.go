package parse

import (
	"context"
	"reflect"
	"testing"
)

const sampleInvoice = `СЧЁТ № 123 от 15.03.2024
Счёт действителен в течение 5 банковских дней

Поставщик: ООО "Ромашка" ИНН 1234567890 КПП 123456789
Адрес: г. Москва, ул. Ленина, д. 1
р/с 40702810900000012345 в банке АО "Альфа-Банк"
к/с 30101810200000000593 БИК 044525593

Покупатель: АО "Лютик" ИНН 9876543210

№ Наименование товара Кол-во Ед. Цена Сумма
1 Труба стальная 10 шт 1 200,00 12 000,00 2 400,00 14 400,00
Итого без НДС: 12 000,00
НДС (20%): 2 400,00
Всего с НДС: 14 400,00
Всего к оплате: 14 400,00

Директор по продажам Иванов И. И.
Главный бухгалтер Петрова А. А.`

func TestExtractInvoiceData(t *testing.T) {
	e := newTestEngine()
	rec := e.ExtractInvoiceData(context.Background(), sampleInvoice, nil)

	inv, ok := rec["invoice"].(Section)
	if !ok {
		t.Fatal("no invoice section")
	}
	if inv["number"] != "123" {
		t.Errorf("invoice number = %v", inv["number"])
	}
	if inv["date"] != "15.03.2024" {
		t.Errorf("invoice date = %v", inv["date"])
	}
	if inv["validity"] != "5 банковских дней" {
		t.Errorf("validity = %v", inv["validity"])
	}

	sup, ok := rec["supplier"].(Section)
	if !ok {
		t.Fatal("no supplier section")
	}
	if sup["company_name"] != `ООО "Ромашка"` {
		t.Errorf("supplier company_name = %v", sup["company_name"])
	}
	if sup["inn"] != "1234567890" {
		t.Errorf("supplier inn = %v", sup["inn"])
	}
	bank, ok := sup["bank_details"].(Section)
	if !ok {
		t.Fatal("no bank details")
	}
	if bank["settlement_account"] != "40702810900000012345" {
		t.Errorf("settlement_account = %v", bank["settlement_account"])
	}
	if bank["bik"] != "044525593" {
		t.Errorf("bik = %v", bank["bik"])
	}

	cust, ok := rec["customer"].(Section)
	if !ok {
		t.Fatal("no customer section")
	}
	if cust["company_name"] != `АО "Лютик"` {
		t.Errorf("customer company_name = %v", cust["company_name"])
	}

	items, ok := rec["line_items"].([]Section)
	if !ok || len(items) != 1 {
		t.Fatalf("line_items = %v", rec["line_items"])
	}

	fin, ok := rec["financial_summary"].(Section)
	if !ok {
		t.Fatal("no financial summary")
	}
	if got, _ := fin["subtotal_without_vat"].(float64); got != 12000 {
		t.Errorf("subtotal = %v", fin["subtotal_without_vat"])
	}
	if got, _ := fin["total_with_vat"].(float64); got != 14400 {
		t.Errorf("total_with_vat = %v", fin["total_with_vat"])
	}
	if fin["currency"] != "RUB" {
		t.Errorf("currency = %v", fin["currency"])
	}
	vat, ok := fin["vat"].(Section)
	if !ok {
		t.Fatal("no vat section")
	}
	if vat["rate"] != "20%" {
		t.Errorf("vat rate = %v", vat["rate"])
	}

	sig, ok := rec["signatories"].(Section)
	if !ok {
		t.Fatal("no signatories section")
	}
	if sig["sales_director"] != "Иванов И. И." {
		t.Errorf("sales_director = %v", sig["sales_director"])
	}
	if sig["chief_accountant"] != "Петрова А. А." {
		t.Errorf("chief_accountant = %v", sig["chief_accountant"])
	}
}

func TestExtractInvoiceDataIdempotent(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()
	a := e.ExtractInvoiceData(ctx, sampleInvoice, nil)
	b := e.ExtractInvoiceData(ctx, sampleInvoice, nil)
	if !reflect.DeepEqual(a, b) {
		t.Error("same text produced different records")
	}
}

func TestExtractInvoiceDataOmitsAbsentSections(t *testing.T) {
	e := newTestEngine()
	rec := e.ExtractInvoiceData(context.Background(), "Поставщик: ООО \"Ромашка\" ИНН 1234567890", nil)

	for _, key := range []string{"customer", "line_items", "terms_and_conditions", "signatories"} {
		if _, present := rec[key]; present {
			t.Errorf("absent data produced %q section: %v", key, rec[key])
		}
	}
	sup, ok := rec["supplier"].(Section)
	if !ok {
		t.Fatal("supplier section missing")
	}
	if sup["company_name"] != `ООО "Ромашка"` {
		t.Errorf("supplier company_name = %v", sup["company_name"])
	}
}

func TestExtractInvoiceDataEmptyText(t *testing.T) {
	e := newTestEngine()
	rec := e.ExtractInvoiceData(context.Background(), "", nil)
	if len(rec) != 0 {
		t.Errorf("empty text produced record: %v", rec)
	}
}
