package schedule

import (
	"strings"

	"holdings_extract/pkg/core/fields"
)

// mergeSplitCells rejoins tokens that filings lay out in cells of their own:
// an isolated currency symbol is joined onto the next non-blank cell when that
// cell is numeric, and a lone ")" or "%" is appended to the previous non-blank
// cell. Joined text lands in the numeric cell's position; the emptied cell
// becomes "". The input is not modified.
func mergeSplitCells(cells []string) []string {
	out := append([]string(nil), cells...)

	for i := 0; i < len(out); i++ {
		if !fields.IsCurrencySymbol(out[i]) {
			continue
		}
		j := nextNonBlank(out, i+1)
		if j < 0 || !looksNumeric(out[j]) {
			continue
		}
		out[j] = strings.TrimSpace(out[i]) + out[j]
		out[i] = ""
	}

	for i := 0; i < len(out); i++ {
		t := strings.TrimSpace(out[i])
		if t != ")" && t != "%" && t != ")%" && t != "%)" {
			continue
		}
		j := prevNonBlank(out, i-1)
		if j < 0 {
			continue
		}
		out[j] += t
		out[i] = ""
	}
	return out
}

func nextNonBlank(cells []string, from int) int {
	for i := from; i < len(cells); i++ {
		if strings.TrimSpace(cells[i]) != "" {
			return i
		}
	}
	return -1
}

func prevNonBlank(cells []string, from int) int {
	for i := from; i >= 0; i-- {
		if strings.TrimSpace(cells[i]) != "" {
			return i
		}
	}
	return -1
}

// looksNumeric reports whether a cell is an amount, a split "(1,234" negative
// or an explicit null marker that stands in an amount column.
func looksNumeric(s string) bool {
	s = strings.TrimSpace(s)
	if fields.IsBlank(s) {
		return true
	}
	_, ok := fields.ParseAmount(s)
	return ok
}
