package parse

import "testing"

const sampleTable = `№ Наименование товара Кол-во Ед. Цена Сумма
1 Труба стальная 10 шт 1 200,00 12 000,00 2 400,00 14 400,00
2 Лист оцинкованный 5 шт 2 000,00 10 000,00 2 000,00 12 000,00
3 Уголок 25х25 2 шт 500,00 1 000,00 200,00 1 200,00
Итого: 23 000,00`

func TestExtractLineItemsFullTable(t *testing.T) {
	e := newTestEngine()
	items := e.ExtractLineItems(sampleTable)
	if len(items) != 3 {
		t.Fatalf("got %d items, want 3", len(items))
	}

	for i, item := range items {
		if n, ok := item[itemLineNumber].(int); !ok || n != i+1 {
			t.Errorf("item %d: line_number = %v, want %d", i, item[itemLineNumber], i+1)
		}
	}

	first := items[0]
	if got := first[itemName]; got != "Труба стальная" {
		t.Errorf("product_name = %v", got)
	}
	if got := first[itemUnit]; got != "шт" {
		t.Errorf("unit = %v", got)
	}
	if got, ok := first[itemQuantity].(float64); !ok || got != 10 {
		t.Errorf("quantity = %v, want float64 10", first[itemQuantity])
	}
	if got, ok := first[itemUnitPrice].(float64); !ok || got != 1200 {
		t.Errorf("unit_price_without_vat = %v, want 1200", first[itemUnitPrice])
	}
	if got, ok := first[itemAmount].(float64); !ok || got != 12000 {
		t.Errorf("amount_without_vat = %v, want 12000", first[itemAmount])
	}
	if got, ok := first[itemVAT].(float64); !ok || got != 2400 {
		t.Errorf("vat_amount = %v, want 2400", first[itemVAT])
	}
	if got, ok := first[itemTotal].(float64); !ok || got != 14400 {
		t.Errorf("total_with_vat = %v, want 14400", first[itemTotal])
	}

	if got := items[2][itemName]; got != "Уголок 25х25" {
		t.Errorf("item 3 product_name = %v", got)
	}
}

func TestExtractLineItemsWrappedName(t *testing.T) {
	e := newTestEngine()
	text := `Наименование товара Кол-во Ед. Цена Сумма
1 Труба стальная
профильная 40х20 10 шт 1 200,00 12 000,00 2 400,00 14 400,00
2 Лист 5 шт 2 000,00 10 000,00 2 000,00 12 000,00
Итого: 23 000,00`

	items := e.ExtractLineItems(text)
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	first := items[0]
	if got := first[itemName]; got != "Труба стальная профильная 40х20" {
		t.Errorf("merged product_name = %v", got)
	}
	if got, ok := first[itemQuantity].(float64); !ok || got != 10 {
		t.Errorf("merged quantity = %v, want float64 10", first[itemQuantity])
	}
	if got := items[1][itemName]; got != "Лист" {
		t.Errorf("second product_name = %v", got)
	}
}

func TestExtractLineItemsWrappedAmounts(t *testing.T) {
	e := newTestEngine()
	// OCR pushed the whole amounts block onto its own line; the row
	// must be completed by merging, not parsed as two fragments
	text := `Наименование товара Кол-во Ед. Цена Сумма
1 Труба стальная профильная 10 шт
1 200,00 12 000,00 2 400,00 14 400,00
Итого: 14 400,00`

	items := e.ExtractLineItems(text)
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1", len(items))
	}
	item := items[0]
	if got := item[itemName]; got != "Труба стальная профильная" {
		t.Errorf("product_name = %v", got)
	}
	if got, ok := item[itemQuantity].(float64); !ok || got != 10 {
		t.Errorf("quantity = %v, want float64 10", item[itemQuantity])
	}
	if got, ok := item[itemUnitPrice].(float64); !ok || got != 1200 {
		t.Errorf("unit_price_without_vat = %v, want 1200", item[itemUnitPrice])
	}
	if got, ok := item[itemTotal].(float64); !ok || got != 14400 {
		t.Errorf("total_with_vat = %v, want 14400", item[itemTotal])
	}
}

func TestExtractLineItemsStopsAtEndMarker(t *testing.T) {
	e := newTestEngine()
	text := `Наименование товара Кол-во Ед. Цена Сумма
1 Труба стальная 10 шт 1 200,00 12 000,00 2 400,00 14 400,00
Итого: 14 400,00
2 Не товар а пункт условий 5 шт 1 000,00 5 000,00 1 000,00 6 000,00`

	items := e.ExtractLineItems(text)
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1", len(items))
	}
}

func TestExtractLineItemsSectionHeadingStart(t *testing.T) {
	e := newTestEngine()
	// a goods-section heading arms the scan even with no column header
	text := `Перечень товаров
1 Труба стальная профильная 10 шт 1 200,00 12 000,00
Итого: 12 000,00`

	items := e.ExtractLineItems(text)
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1", len(items))
	}
	if got := items[0][itemName]; got != "Труба стальная профильная" {
		t.Errorf("product_name = %v", got)
	}
}

func TestExtractLineItemsDescriptionOnlyRow(t *testing.T) {
	e := newTestEngine()
	text := `Перечень услуг
Консультационные услуги по сопровождению 15 000,00
Итого: 15 000,00`

	items := e.ExtractLineItems(text)
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1", len(items))
	}
	item := items[0]
	if got := item[itemName]; got != "Консультационные услуги по сопровождению" {
		t.Errorf("product_name = %v", got)
	}
	if got, ok := item[itemTotal].(float64); !ok || got != 15000 {
		t.Errorf("total_with_vat = %v, want 15000", item[itemTotal])
	}
}

func TestExtractLineItemsNoTable(t *testing.T) {
	e := newTestEngine()
	// without a heading or column header a row-shaped line stays
	// unparsed
	text := `Счёт № 1 от 01.01.2024
1 Труба стальная 10 шт 1 200,00 12 000,00
Оплата в течение 5 дней`
	if items := e.ExtractLineItems(text); len(items) != 0 {
		t.Fatalf("got %d items from tableless text", len(items))
	}
}

func TestParseHeuristicRow(t *testing.T) {
	item := parseHeuristicRow("Труба профильная 25 шт 1 250,00 31 250,00")
	if item == nil {
		t.Fatal("collapsed row not parsed")
	}
	if got := item[itemName]; got != "Труба профильная" {
		t.Errorf("product_name = %v", got)
	}
	if got, ok := item[itemQuantity].(float64); !ok || got != 25 {
		t.Errorf("quantity = %v, want float64 25", item[itemQuantity])
	}
	if got := item[itemUnit]; got != "шт" {
		t.Errorf("unit = %v", got)
	}
	if got, ok := item[itemUnitPrice].(float64); !ok || got != 1250 {
		t.Errorf("unit_price_without_vat = %v, want 1250", item[itemUnitPrice])
	}
	if got, ok := item[itemTotal].(float64); !ok || got != 31250 {
		t.Errorf("total_with_vat = %v, want 31250", item[itemTotal])
	}
}

func TestParseHeuristicRowGate(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"no unit and no long numbers", "Консультационные услуги по сопровождению 15 000,00"},
		{"totals line", "Итого 3 шт 14 400,00 14 400,00"},
		{"too little numeric material", "Труба стальная 10 шт"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if item := parseHeuristicRow(tt.line); item != nil {
				t.Errorf("parsed %q into %v", tt.line, item)
			}
		})
	}
}

func TestParseMinimalRow(t *testing.T) {
	item := parseMinimalRow("1 Консультационные услуги 15 000,00")
	if item == nil {
		t.Fatal("minimal row not parsed")
	}
	if got := item[itemName]; got != "Консультационные услуги" {
		t.Errorf("product_name = %v", got)
	}
	if got, ok := item[itemUnitPrice].(float64); !ok || got != 15000 {
		t.Errorf("unit_price_without_vat = %v, want 15000", item[itemUnitPrice])
	}
	if got, ok := item[itemTotal].(float64); !ok || got != 15000 {
		t.Errorf("total_with_vat = %v, want 15000", item[itemTotal])
	}
}

func TestParseMinimalRowTwoAmounts(t *testing.T) {
	item := parseMinimalRow("Монтаж оборудования на объекте 12 000,00 14 400,00")
	if item == nil {
		t.Fatal("minimal row not parsed")
	}
	if got, ok := item[itemUnitPrice].(float64); !ok || got != 12000 {
		t.Errorf("unit_price_without_vat = %v, want 12000", item[itemUnitPrice])
	}
	if got, ok := item[itemTotal].(float64); !ok || got != 14400 {
		t.Errorf("total_with_vat = %v, want 14400", item[itemTotal])
	}
}

func TestParseMinimalRowRejects(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"short description", "Услуги 15 000,00"},
		{"no letters", "1234567890 123 15 000,00"},
		{"no amount", "Консультационные услуги по сопровождению"},
		{"totals line", "Всего к оплате 15 000,00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if item := parseMinimalRow(tt.line); item != nil {
				t.Errorf("parsed %q into %v", tt.line, item)
			}
		})
	}
}
