package schedule

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"holdings_extract/pkg/core/fields"
)

// =============================================================================
// HTML TABLE READER - Extract raw cell grids from filing HTML
// =============================================================================

const (
	maxCaptionLen  = 300
	maxCaptionHops = 3
	maxColspan     = 20
)

// ReadHTMLTables returns every table of an HTML document as a RawTable, in
// document order. Cell text is whitespace-collapsed and colspans are expanded.
// Tables nested inside other tables are read on their own.
func ReadHTMLTables(html string) ([]RawTable, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var tables []RawTable
	empty := 0
	doc.Find("table").Each(func(i int, table *goquery.Selection) {
		rows := readRows(table)
		if len(rows) == 0 {
			empty++
			return
		}
		caption := findCaption(table)
		tables = append(tables, RawTable{
			ID:      tableID(len(tables), caption, rows),
			Caption: caption,
			Scale:   detectTableScale(caption, rows),
			Rows:    rows,
		})
	})

	log.Printf("[TableReader] SUMMARY: tables=%d, empty=%d", len(tables), empty)
	return tables, nil
}

// readRows collects the direct rows of a table, skipping rows of nested tables.
func readRows(table *goquery.Selection) [][]string {
	var rows [][]string
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		if tr.Closest("table").Get(0) != table.Get(0) {
			return
		}
		var cells []string
		tr.ChildrenFiltered("td, th").Each(func(_ int, cell *goquery.Selection) {
			text := cellText(cell)
			cells = append(cells, text)
			for span := colspan(cell); span > 1; span-- {
				cells = append(cells, "")
			}
		})
		if len(cells) == 0 || allBlank(cells) {
			return
		}
		rows = append(rows, cells)
	})
	return rows
}

func cellText(cell *goquery.Selection) string {
	return strings.Join(strings.Fields(cell.Text()), " ")
}

func colspan(cell *goquery.Selection) int {
	v, ok := cell.Attr("colspan")
	if !ok {
		return 1
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 1 {
		return 1
	}
	if n > maxColspan {
		return maxColspan
	}
	return n
}

func allBlank(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return false
		}
	}
	return true
}

// findCaption returns the nearest non-empty text preceding the table, which
// in schedule filings is the "Schedule of Investments ... (in thousands)" heading.
func findCaption(table *goquery.Selection) string {
	prev := table.Prev()
	for hop := 0; hop < maxCaptionHops && prev.Length() > 0; hop++ {
		if goquery.NodeName(prev) == "table" {
			return ""
		}
		text := strings.Join(strings.Fields(prev.Text()), " ")
		if text != "" {
			if len(text) > maxCaptionLen {
				text = text[len(text)-maxCaptionLen:]
			}
			return text
		}
		prev = prev.Prev()
	}
	return ""
}

// detectTableScale looks for a "(in thousands)" marker in the caption or the
// first few rows.
func detectTableScale(caption string, rows [][]string) fields.Scale {
	if s := fields.DetectScale(caption); s != fields.ScaleUnits {
		return s
	}
	for i := 0; i < len(rows) && i < 3; i++ {
		if s := fields.DetectScale(strings.Join(rows[i], " ")); s != fields.ScaleUnits {
			return s
		}
	}
	return fields.ScaleUnits
}

// tableID is the table's position plus a short fingerprint of its caption and
// first row, so IDs stay stable across re-reads of the same document.
func tableID(position int, caption string, rows [][]string) string {
	h := sha256.New()
	h.Write([]byte(caption))
	if len(rows) > 0 {
		h.Write([]byte(strings.Join(rows[0], "|")))
	}
	return fmt.Sprintf("t%03d-%s", position, hex.EncodeToString(h.Sum(nil))[:8])
}
