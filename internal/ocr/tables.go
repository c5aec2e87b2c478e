package ocr

import (
	"regexp"
	"strings"
)

var reColumnGap = regexp.MustCompile(`\s{2,}`)

// GridsFromLayout recovers coarse row/column grids from pdftotext
// -layout output. A line splitting into 3+ cells on runs of 2+ spaces
// counts as a table row; consecutive rows form one grid. This is a
// secondary signal only — the line-item parser works from plain text
// and does not require these grids.
func GridsFromLayout(text string) [][][]string {
	var grids [][][]string
	var cur [][]string

	flush := func() {
		if len(cur) >= 2 {
			grids = append(grids, cur)
		}
		cur = nil
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || trimmed == "\f" {
			flush()
			continue
		}
		cells := reColumnGap.Split(trimmed, -1)
		if len(cells) >= 3 {
			cur = append(cur, cells)
		} else {
			flush()
		}
	}
	flush()
	return grids
}
