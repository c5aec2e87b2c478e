package parse

import "regexp"

// Semantic fields owned by the cascade engine.
const (
	FieldInvoiceNumber = "invoice_number"
	FieldInvoiceDate   = "date"
	FieldSeller        = "seller"
	FieldBuyer         = "buyer"
	FieldSellerINN     = "seller_inn"
	FieldSellerKPP     = "seller_kpp"
	FieldBuyerINN      = "buyer_inn"
	FieldBuyerKPP      = "buyer_kpp"
	FieldTotalAmount   = "total_amount"
)

// candidate is one rule of a field cascade, ordered most specific
// first. group is the capture index holding the value. excludeBetween,
// when set, rejects a match whose span between the anchor and the
// capture contains the keyword — the counterparty cross-section guard,
// expressed explicitly because RE2 has no lookahead.
type candidate struct {
	re             *regexp.Regexp
	group          int
	excludeBetween string
}

func pat(expr string) candidate { return candidate{re: regexp.MustCompile(expr), group: 1} }

func patExcl(expr, keyword string) candidate {
	return candidate{re: regexp.MustCompile(expr), group: 1, excludeBetween: keyword}
}

const (
	orgPrefix = `(?:ООО|АО|ТД|ИП)`
	amount2   = `[\d\s,\.]{3,}[,\.]\d{2}`
)

// fieldCascades holds the ordered candidate lists per field. Evaluation
// is strictly first-match-wins; patterns are data, the control flow
// lives in the engine.
var fieldCascades = map[string][]candidate{
	FieldInvoiceNumber: {
		pat(`(?i)сч[её]т[а-я]*\s+на\s+оплату\s+№\s*([\d/]+)`),
		pat(`(?i)сч[её]т[а-я]*\s*№\s*([\d/]+)`),
		pat(`(?i)сч[её]т[а-я]*-оферта\s+(\d+)`),
		pat(`(?i)сч[её]т[а-я]*-фактура\s+№\s*(\d+)`),
		pat(`(?i)(?:сч[её]т[а-я]*|invoice)\s*[:\-]?\s*№?\s*([\d/]{1,15})`),
		pat(`(?i)invoice\s*#?\s*(\d{1,10})`),
		pat(`№\s*([\d/]+)`),
	},
	FieldInvoiceDate: {
		pat(`(?i)от\s+(\d{1,2}\.\d{1,2}\.\d{4})`),
		pat(`(?i)от\s+(\d{1,2}\s+[а-я]+\s+\d{4}\s+г\.)`),
		pat(`(?i)(?:дата|date|от)\s*[:\-]?\s*(\d{1,2}[./\-]\d{1,2}[./\-]\d{2,4})`),
		pat(`(\d{1,2}\.\d{1,2}\.\d{4})`),
		pat(`(\d{1,2}/\d{1,2}/\d{4})`),
	},
	FieldSeller: {
		patExcl(`(?i)поставщик\s+((?:ООО|АО)\s+ТД\s+"[^"]+")`, "покупатель"),
		patExcl(`(?i)поставщик\s+(`+orgPrefix+`\s+"[^"]+")`, "покупатель"),
		patExcl(`(?i)поставщик\s+(`+orgPrefix+`\s+[А-Яа-яA-Za-z]{3,}[А-Яа-яA-Za-z\s,\.]*)`, "покупатель"),
		patExcl(`(?i)поставщик[^\n]*\n\s*(`+orgPrefix+`\s+"[^"]+")`, "покупатель"),
		patExcl(`(?im)поставщик[:\-]?\s+(`+orgPrefix+`\s+"[^"]+")(?:\s+ИНН|\s+КПП|\s+Адрес|$)`, "покупатель"),
		patExcl(`(?im)поставщик[:\-]?\s+(`+orgPrefix+`\s+[А-Яа-яA-Za-z]{3,}[А-Яа-яA-Za-z\s,\.]*?)(?:\s+ИНН|\s+КПП|\s+Адрес|$)`, "покупатель"),
		patExcl(`(?im)исполнитель[:\-]?\s+(`+orgPrefix+`\s+"[^"]+")(?:\s+ИНН|\s+КПП|\s+Адрес|$)`, "покупатель"),
		patExcl(`(?im)продавец[:\-]?\s+(`+orgPrefix+`\s+"[^"]+")(?:\s+ИНН|\s+КПП|\s+Адрес|$)`, "покупатель"),
		patExcl(`(?im)поставщик[^:\n]*[:\-]?\s*(ИП\s+[А-Яа-яA-Za-z\s,\.]+?)(?:\s+ИНН|\s+КПП|\s+Адрес|$)`, "покупатель"),
		patExcl(`(?i)отправитель\s*[:\-]?\s*([А-ЯЁ][а-яё]+\s+[А-ЯЁ][а-яё]+)`, "покупатель"),
	},
	FieldBuyer: {
		patExcl(`(?i)покупатель\s+(`+orgPrefix+`\s+"[^"]+")`, "поставщик"),
		patExcl(`(?i)покупатель\s+(`+orgPrefix+`\s+[А-Яа-яA-Za-z]{2,}[А-Яа-яA-Za-z\s,\.]*)`, "поставщик"),
		patExcl(`(?i)покупатель[^\n]*\n\s*(`+orgPrefix+`\s+"[^"]+")`, "поставщик"),
		patExcl(`(?im)покупатель[:\-]?\s+(`+orgPrefix+`\s+"[^"]+")(?:\s+ИНН|\s+КПП|\s+Адрес|$)`, "поставщик"),
		patExcl(`(?im)покупатель[:\-]?\s+(`+orgPrefix+`\s+[А-Яа-яA-Za-z]{2,}[А-Яа-яA-Za-z\s,\.]*?)(?:\s+ИНН|\s+КПП|\s+Адрес|$)`, "поставщик"),
		patExcl(`(?im)заказчик[:\-]?\s+(`+orgPrefix+`\s+"[^"]+")(?:\s+ИНН|\s+КПП|\s+Адрес|$)`, "поставщик"),
		patExcl(`(?im)клиент[:\-]?\s+(`+orgPrefix+`\s+"[^"]+")(?:\s+ИНН|\s+КПП|\s+Адрес|$)`, "поставщик"),
		patExcl(`(?i)получатель\s*[:\-]?\s*([А-ЯЁ][а-яё]+\s+[А-ЯЁ]\.)`, "поставщик"),
		patExcl(`(?i)получатель\s*[:\-]?\s*([А-ЯЁ][а-яё]+\s+[А-ЯЁ][а-яё]+)`, "поставщик"),
	},
	FieldSellerINN: {
		patExcl(`(?is)поставщик.*?ИНН\s*[:\-]?\s*(\d{10,12})`, "покупатель"),
		patExcl(`(?is)исполнитель.*?ИНН\s*[:\-]?\s*(\d{10,12})`, "покупатель"),
		patExcl(`(?is)продавец.*?ИНН\s*[:\-]?\s*(\d{10,12})`, "покупатель"),
	},
	FieldSellerKPP: {
		patExcl(`(?is)поставщик.*?КПП\s*[:\-]?\s*(\d{9})`, "покупатель"),
		patExcl(`(?is)исполнитель.*?КПП\s*[:\-]?\s*(\d{9})`, "покупатель"),
		patExcl(`(?is)продавец.*?КПП\s*[:\-]?\s*(\d{9})`, "покупатель"),
	},
	FieldBuyerINN: {
		patExcl(`(?is)покупатель.*?ИНН\s*[:\-]?\s*(\d{10,12})`, "поставщик"),
		patExcl(`(?is)заказчик.*?ИНН\s*[:\-]?\s*(\d{10,12})`, "поставщик"),
		patExcl(`(?is)клиент.*?ИНН\s*[:\-]?\s*(\d{10,12})`, "поставщик"),
	},
	FieldBuyerKPP: {
		patExcl(`(?is)покупатель.*?КПП\s*[:\-]?\s*(\d{9})`, "поставщик"),
		patExcl(`(?is)заказчик.*?КПП\s*[:\-]?\s*(\d{9})`, "поставщик"),
		patExcl(`(?is)клиент.*?КПП\s*[:\-]?\s*(\d{9})`, "поставщик"),
	},
	FieldTotalAmount: {
		pat(`(?i)всего\s+к\s+оплате\s*[:\-]?\s*(` + amount2 + `)`),
		pat(`(?i)всего\s+с\s+ндс\s*[:\-]?\s*(` + amount2 + `)`),
		pat(`(?i)к\s+оплате\s*[:\-]?\s*(` + amount2 + `)`),
		pat(`(?i)итого[^,\n]*вкл[^,\n]*ндс[^,\n]*[:\-]?\s*(` + amount2 + `)`),
		pat(`(?i)итого\s*[:\-]?\s*(` + amount2 + `)\s*(?:руб|RUB|₽|р\.)`),
		pat(`(?i)(?:итого|total)\s*[:\-]?\s*(` + amount2 + `)`),
		pat(`(?i)на\s+сумму\s+(` + amount2 + `)\s*(?:руб|RUB|₽|р\.)`),
		pat(`(?i)сумма\s+(` + amount2 + `)`),
	},
}
