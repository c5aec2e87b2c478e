package parse

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"
)

// Table scan states. The parser walks the document line by line,
// arms itself on a goods-section heading, consumes rows until an end
// marker, and never re-enters a finished table.
type tableState int

const (
	beforeTable tableState = iota
	inTable
	tableDone
)

const (
	amt      = `[\d\s,\.]{3,}[,\.]\d{2}`
	amtShort = `[\d\s]{1,}[,\.]\d{2}`
	unitWord = `шт|кг|м2|м3|м|л|г|т|ед|компл|упак|рул|лист|пог\.?\s*м`

	maxContinuationLen = 100
	maxContinuations   = 2
	minQuantity        = 1
	maxQuantity        = 999
)

// Item field keys.
const (
	itemLineNumber = "line_number"
	itemName       = "product_name"
	itemUnit       = "unit"
	itemQuantity   = "quantity"
	itemTerms      = "delivery_terms"
	itemUnitPrice  = "unit_price_without_vat"
	itemAmount     = "amount_without_vat"
	itemVAT        = "vat_amount"
	itemTotal      = "total_with_vat"
)

// rowGrammar maps capture groups of one row shape onto item fields in
// order. Grammars are tried most specific first; the first full match
// on a line wins.
type rowGrammar struct {
	re     *regexp.Regexp
	fields []string
}

var rowGrammars = []rowGrammar{
	// idx name qty unit terms price amount vat total
	{
		re: regexp.MustCompile(`^(\d+)\s+(.+?)\s+(\d+(?:[,.]\d+)?)\s+(` + unitWord + `)\.?\s+(\d+\s*(?:банковских\s+)?дн\w*)\s+(` + amt + `)\s+(` + amt + `)\s+(` + amt + `)\s+(` + amt + `)\s*$`),
		fields: []string{itemLineNumber, itemName, itemQuantity, itemUnit, itemTerms,
			itemUnitPrice, itemAmount, itemVAT, itemTotal},
	},
	// idx name qty unit price amount vat total
	{
		re: regexp.MustCompile(`^(\d+)\s+(.+?)\s+(\d+(?:[,.]\d+)?)\s+(` + unitWord + `)\.?\s+(` + amt + `)\s+(` + amt + `)\s+(` + amt + `)\s+(` + amt + `)\s*$`),
		fields: []string{itemLineNumber, itemName, itemQuantity, itemUnit,
			itemUnitPrice, itemAmount, itemVAT, itemTotal},
	},
	// idx name qty unit price amount
	{
		re:     regexp.MustCompile(`^(\d+)\s+(.+?)\s+(\d+(?:[,.]\d+)?)\s+(` + unitWord + `)\s*\.?\s+(` + amt + `)\s+(` + amt + `)\s*$`),
		fields: []string{itemLineNumber, itemName, itemQuantity, itemUnit, itemUnitPrice, itemAmount},
	},
	// idx long-name qty free-form-unit price amount
	{
		re:     regexp.MustCompile(`^(\d+)\s+(.{10,}?)\s+(\d+(?:[,.]\d+)?)\s+([А-Яа-яA-Za-z]{1,5})\.?\s+(` + amt + `)\s+(` + amt + `)\s*$`),
		fields: []string{itemLineNumber, itemName, itemQuantity, itemUnit, itemUnitPrice, itemAmount},
	},
}

// looseRow catches rows where the column order drifted: index, a name
// of at least 5 runes, a short unit token, a quantity, then whatever
// amounts survive at the tail.
var looseRow = regexp.MustCompile(`^(\d+)\s+(\S.{4,}?)\s+([А-Яа-яA-Za-z\.]{1,8})\s+(\d+(?:[,.]\d+)?)\s+(.+)$`)

var (
	reShortAmount   = regexp.MustCompile(amtShort)
	reRowStart      = regexp.MustCompile(`^\d+\s`)
	reLeadingAmount = regexp.MustCompile(`^` + amtShort)
	reTotalPrefix   = regexp.MustCompile(`(?i)^(итого|всего|ндс)`)
	reNumberToken   = regexp.MustCompile(`\d+`)
	reLeadingIndex  = regexp.MustCompile(`^(\d+)\s+`)
	reUnitToken     = regexp.MustCompile(`(?i)(?:^|\s)(` + unitWord + `)\.?(?:\s|$)`)
	reFreeUnit      = regexp.MustCompile(`\d+\s+([А-Яа-яA-Za-z]{1,5})\s+`)
	reNameQty       = regexp.MustCompile(`([А-Яа-яA-Za-z][А-Яа-яA-Za-z\s]{4,}?)\s+(\d{1,3})(?:\s|$)`)
	reHasLetter     = regexp.MustCompile(`[А-Яа-яA-Za-z]`)
)

// tableStartPhrases arm the scan on a goods-section heading even when
// the column header itself was lost by OCR.
var tableStartPhrases = []string{
	"перечень товаров",
	"заказные позиции",
	"позиции заказа",
	"контрактное производство",
	"товар",
	"услуг",
	"работ",
}

var tableHeaderTokens = []string{
	"№", "наименование", "изм", "ед.", "ед ", "кол-во", "цена", "сумма",
}

var tableEndMarkers = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^итого\s*:`),
	regexp.MustCompile(`(?i)^итого\s+без\s+ндс`),
	regexp.MustCompile(`(?i)^всего\s+наименований`),
	regexp.MustCompile(`(?i)^ндс\s*\(`),
	regexp.MustCompile(`(?i)^всего\s+с\s+ндс\s*:`),
	regexp.MustCompile(`(?i)^всего\s+к\s+оплате`),
}

func isTableStart(line string) bool {
	lower := strings.ToLower(line)
	for _, p := range tableStartPhrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return headerTokenCount(lower) >= 3 && !reRowStart.MatchString(line)
}

func isHeaderLine(line string) bool {
	return headerTokenCount(strings.ToLower(line)) >= 3 && !reRowStart.MatchString(line)
}

func headerTokenCount(lower string) int {
	n := 0
	for _, tok := range tableHeaderTokens {
		if strings.Contains(lower, tok) {
			n++
		}
	}
	return n
}

func isTableEnd(line string) bool {
	for _, re := range tableEndMarkers {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

// ExtractLineItems scans the document for the goods table and parses
// its rows. Numeric fields come back as float64, the row index as int;
// a row no grammar can shape is skipped, not guessed at. Rows are only
// looked for after a section heading or column header arms the scan.
func (e *Engine) ExtractLineItems(text string) []Section {
	var items []Section
	state := beforeTable

	lines := strings.Split(text, "\n")
	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}

		switch state {
		case beforeTable:
			if isTableStart(line) {
				state = inTable
			}
		case inTable:
			if isTableEnd(line) {
				state = tableDone
				continue
			}
			if isHeaderLine(line) {
				continue
			}
			item, consumed := e.parseRow(lines, i)
			if item != nil {
				items = append(items, item)
				i += consumed
			}
		case tableDone:
			// single table per document
		}
	}

	if len(items) > 0 {
		e.logger.Debug("line items extracted", slog.Int("count", len(items)))
	}
	return items
}

// parseRow shapes the line at idx into an item. When the line alone
// matches no grammar — typically an OCR wrap that pushed the amounts
// or the tail of the name onto the next line — up to two qualifying
// continuation lines are concatenated on and the cascade retried after
// each merge. Returns the item and how many extra lines were consumed.
func (e *Engine) parseRow(lines []string, idx int) (Section, int) {
	line := strings.TrimSpace(lines[idx])
	if item := matchRow(line); item != nil {
		return item, 0
	}

	merged := line
	for n := 1; n <= maxContinuations && idx+n < len(lines); n++ {
		next := strings.TrimSpace(lines[idx+n])
		if !isContinuation(next) {
			break
		}
		merged += " " + next
		if item := matchRow(merged); item != nil {
			return item, n
		}
	}
	return nil, 0
}

// isContinuation reports whether a line may be glued onto the row
// above it: short, not a totals or header line, and not the start of
// the next row. A line opening with a two-decimal amount is wrapped
// column data, not a new row, even though it starts with a digit.
func isContinuation(next string) bool {
	if next == "" || len([]rune(next)) >= maxContinuationLen {
		return false
	}
	if reTotalPrefix.MatchString(next) || isTableEnd(next) || isHeaderLine(next) {
		return false
	}
	if reRowStart.MatchString(next) && !reLeadingAmount.MatchString(next) {
		return false
	}
	return true
}

func matchRow(line string) Section {
	if item := matchGrammars(line); item != nil {
		return item
	}
	if item := parseLooseRow(line); item != nil {
		return item
	}
	if item := parseHeuristicRow(line); item != nil {
		return item
	}
	return parseMinimalRow(line)
}

func matchGrammars(line string) Section {
	for _, g := range rowGrammars {
		m := g.re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		item := Section{}
		ok := true
		for gi, field := range g.fields {
			if !setItemField(item, field, m[gi+1]) {
				ok = false
				break
			}
		}
		if ok {
			return item
		}
	}
	return nil
}

func parseLooseRow(line string) Section {
	m := looseRow.FindStringSubmatch(line)
	if m == nil {
		return nil
	}
	amounts := validAmounts(m[5])
	if len(amounts) < 3 {
		return nil
	}
	item := Section{}
	if !setItemField(item, itemLineNumber, m[1]) ||
		!setItemField(item, itemName, m[2]) ||
		!setItemField(item, itemUnit, m[3]) ||
		!setItemField(item, itemQuantity, m[4]) {
		return nil
	}
	setItemField(item, itemUnitPrice, amounts[0])
	setItemField(item, itemAmount, amounts[1])
	if len(amounts) >= 4 {
		setItemField(item, itemVAT, amounts[2])
		setItemField(item, itemTotal, amounts[3])
	} else {
		setItemField(item, itemTotal, amounts[2])
	}
	return item
}

// parseHeuristicRow handles rows whose column boundaries collapsed. It
// only fires on lines that still look like goods rows: enough numeric
// material (3+ number tokens or 2+ two-decimal amounts) backed by a
// recognized unit token or at least two long numbers. Name, quantity
// and unit are recovered positionally; the first amount is read as the
// unit price and the last as the row total.
func parseHeuristicRow(line string) Section {
	if reTotalPrefix.MatchString(line) {
		return nil
	}
	numbers := reNumberToken.FindAllString(line, -1)
	amounts := validAmounts(line)
	if len(numbers) < 3 && len(amounts) < 2 {
		return nil
	}
	unit, hasUnit := unitFromLine(line)
	if !hasUnit && countLongNumbers(numbers) < 2 {
		return nil
	}

	name, quantity := nameAndQuantity(line, numbers)
	if len([]rune(name)) < 3 {
		return nil
	}

	item := Section{}
	item[itemLineNumber] = 1
	if m := reLeadingIndex.FindStringSubmatch(line); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil {
			item[itemLineNumber] = v
		}
	}
	item.put(itemName, collapseWhitespace(name))
	item.put(itemUnit, unit)
	if quantity > 0 {
		item[itemQuantity] = float64(quantity)
	}

	switch {
	case len(amounts) >= 2:
		setItemField(item, itemUnitPrice, amounts[0])
		setItemField(item, itemAmount, amounts[len(amounts)-1])
		setItemField(item, itemTotal, amounts[len(amounts)-1])
	case len(amounts) == 1:
		setItemField(item, itemAmount, amounts[0])
		setItemField(item, itemTotal, amounts[0])
		if quantity > 0 {
			if total, ok := amountValue(amounts[0]); ok {
				item[itemUnitPrice] = total / float64(quantity)
			}
		}
	default:
		return nil
	}
	return item
}

func countLongNumbers(numbers []string) int {
	n := 0
	for _, num := range numbers {
		if len(num) >= 4 {
			n++
		}
	}
	return n
}

func unitFromLine(line string) (string, bool) {
	if m := reUnitToken.FindStringSubmatch(line); m != nil {
		return strings.ToLower(m[1]), true
	}
	// a short letter run wedged between numbers is most likely the
	// unit column
	if m := reFreeUnit.FindStringSubmatch(line); m != nil {
		return strings.ToLower(m[1]), true
	}
	return "", false
}

// nameAndQuantity pulls the description and the adjacent short numeric
// run out of a collapsed row. Quantity zero means none was recovered.
func nameAndQuantity(line string, numbers []string) (string, int) {
	if m := reNameQty.FindStringSubmatch(line); m != nil {
		if qty, err := strconv.Atoi(m[2]); err == nil && qty >= minQuantity && qty <= maxQuantity {
			return strings.TrimSpace(m[1]), qty
		}
	}
	name := reLeadingIndex.ReplaceAllString(line, "")
	if runes := []rune(name); len(runes) > 50 {
		name = string(runes[:50])
	}
	start := 0
	if reLeadingIndex.MatchString(line) {
		start = 1
	}
	for _, num := range numbers[start:] {
		if qty, err := strconv.Atoi(num); err == nil && qty >= minQuantity && qty <= maxQuantity {
			return strings.TrimSpace(name), qty
		}
	}
	return strings.TrimSpace(name), 0
}

// parseMinimalRow is the last resort: a letter-bearing description of
// at least 10 runes followed by at least one two-decimal amount, with
// no numeric row structure required at all. The last amount is the row
// total and the one before it the unit price.
func parseMinimalRow(line string) Section {
	if reTotalPrefix.MatchString(line) {
		return nil
	}
	locs := amountLocations(line)
	if len(locs) == 0 {
		return nil
	}

	desc := strings.TrimSpace(line[:locs[0][0]])
	desc = reLeadingIndex.ReplaceAllString(desc, "")
	desc = collapseWhitespace(desc)
	if len([]rune(desc)) < 10 || !reHasLetter.MatchString(desc) {
		return nil
	}

	total := line[locs[len(locs)-1][0]:locs[len(locs)-1][1]]
	price := total
	if len(locs) >= 2 {
		price = line[locs[len(locs)-2][0]:locs[len(locs)-2][1]]
	}

	item := Section{}
	item.put(itemName, desc)
	if !setItemField(item, itemUnitPrice, price) || !setItemField(item, itemTotal, total) {
		return nil
	}
	return item
}

// validAmounts returns the two-decimal amount tokens carrying more
// than three digits, filtering out stray "0,00"-grade noise.
func validAmounts(line string) []string {
	var out []string
	for _, loc := range amountLocations(line) {
		out = append(out, line[loc[0]:loc[1]])
	}
	return out
}

func amountLocations(line string) [][]int {
	var out [][]int
	for _, loc := range reShortAmount.FindAllStringIndex(line, -1) {
		digits := 0
		for _, r := range line[loc[0]:loc[1]] {
			if r >= '0' && r <= '9' {
				digits++
			}
		}
		if digits > 3 {
			out = append(out, loc)
		}
	}
	return out
}

// setItemField stores one captured cell with its field's type:
// line_number as int, money and quantity fields as float64, the rest
// as trimmed strings. Returns false on an unparseable numeric cell.
func setItemField(item Section, field, raw string) bool {
	raw = strings.TrimSpace(raw)
	switch field {
	case itemLineNumber:
		v, ok := amountValue(raw)
		if !ok {
			return false
		}
		item[field] = int(v)
	case itemQuantity, itemUnitPrice, itemAmount, itemVAT, itemTotal:
		v, ok := amountValue(raw)
		if !ok {
			return false
		}
		item[field] = v
	case itemName:
		item.put(field, collapseWhitespace(raw))
	default:
		item.put(field, raw)
	}
	return true
}
