package parse

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	reSpaceRun      = regexp.MustCompile(`[ \t]+`)
	reAnyWhitespace = regexp.MustCompile(`\s+`)
	reTrailingLatin = regexp.MustCompile(`(?i)\s+[a-z]\s*$`)
	reTrailingComma = regexp.MustCompile(`\s*,+$`)
	reDigitsOnly    = regexp.MustCompile(`^\d+$`)
	reSingleLetter  = regexp.MustCompile(`(?i)^[a-zа-я]\s*,?$`)
)

// PreprocessText collapses interior space/tab runs to single spaces
// while keeping newlines — the text shape the cascades expect.
func PreprocessText(text string) string {
	return reSpaceRun.ReplaceAllString(text, " ")
}

func collapseWhitespace(s string) string {
	return strings.TrimSpace(reAnyWhitespace.ReplaceAllString(s, " "))
}

// normalizeAmount turns a captured money/quantity string into a
// parseable decimal: interior spaces and NBSPs stripped, thousands
// separators removed, decimal comma converted to a point.
func normalizeAmount(s string) string {
	s = strings.NewReplacer(" ", "", " ", "", "\"", "").Replace(strings.TrimSpace(s))
	// a trailing ",NN" or ".NN" is the decimal part; any separator
	// before it is a thousands separator
	if i := strings.LastIndexAny(s, ",."); i >= 0 && len(s)-i-1 == 2 {
		head := strings.NewReplacer(",", "", ".", "").Replace(s[:i])
		s = head + "." + s[i+1:]
	} else {
		s = strings.ReplaceAll(s, ",", ".")
	}
	return s
}

func amountValue(s string) (float64, bool) {
	v, err := strconv.ParseFloat(normalizeAmount(s), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// nameStopTokens is payment/contact boilerplate that tends to bleed
// into a captured counterparty name.
var nameStopTokens = []string{
	"карта получателя",
	"карта",
	"получателя",
	"получатель",
	"квитанция",
	"по вопросам",
	"служба",
	"инн",
	"кпп",
	"адрес",
}

// truncateName cuts a captured counterparty name at the first stop
// token and rebalances quotes when the cut splits a quoted run. Pure
// string repair; the degenerate-capture checks live in the engine.
func truncateName(s string) string {
	lower := strings.ToLower(s)
	min := len(s)
	for _, tok := range nameStopTokens {
		if idx := strings.Index(lower, tok); idx > 0 && idx < min {
			min = idx
		}
	}
	if min < len(s) {
		s = strings.TrimSpace(s[:min])
		s = rebalanceQuotes(s)
	}
	s = reTrailingLatin.ReplaceAllString(s, "")
	s = reTrailingComma.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

func rebalanceQuotes(s string) string {
	if strings.Count(s, `"`)%2 == 1 {
		return s + `"`
	}
	return s
}

// isDegenerateName reports captures too short or too noisy to be a
// real company name.
func isDegenerateName(s string) bool {
	s = strings.TrimSpace(s)
	if len([]rune(s)) < 3 {
		return true
	}
	if reSingleLetter.MatchString(s) {
		return true
	}
	if reDigitsOnly.MatchString(s) {
		return true
	}
	if strings.Trim(s, "0") == "" {
		return true
	}
	return false
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
