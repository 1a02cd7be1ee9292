package schedule

import (
	"regexp"
	"sort"
	"strings"

	"holdings_extract/pkg/core/fields"
)

// =============================================================================
// HEADER KEYWORDS
// =============================================================================

// Keyword is a header phrase with the weight it contributes to a field.
type Keyword struct {
	Phrase string `yaml:"phrase" json:"phrase"`
	Weight int    `yaml:"weight" json:"weight"`
}

// KeywordTable maps each field to the header phrases that identify its column.
type KeywordTable map[fields.Field][]Keyword

// DefaultKeywords covers the header vocabulary seen across BDC and fund
// schedules. Longer, more specific phrases carry more weight, so "Amortized
// Cost" beats "Cost" and "Investment Type" beats "Investment". Rate components
// outrank "interest rate" so a "PIK Interest Rate" column maps to the PIK field.
var DefaultKeywords = KeywordTable{
	fields.EntityName: {
		{"portfolio company", 10}, {"name of investment", 9}, {"company", 8},
		{"issuer", 8}, {"borrower", 8}, {"investments", 5}, {"investment", 5},
	},
	fields.Industry:            {{"industry", 10}, {"sector", 8}},
	fields.BusinessDescription: {{"business description", 10}, {"description", 6}},
	fields.ItemType: {
		{"investment type", 10}, {"type of investment", 10}, {"security type", 9},
		{"class of security", 9}, {"title of securities", 9}, {"instrument", 6},
		{"tranche", 5}, {"security", 5}, {"investment", 4}, {"type", 4}, {"class", 3},
	},
	fields.AcquisitionDate: {
		{"acquisition date", 10}, {"initial acquisition", 10}, {"date acquired", 10},
		{"acquired", 7}, {"acquisition", 6},
	},
	fields.MaturityDate: {{"maturity date", 10}, {"maturity", 9}, {"due date", 8}, {"expiration", 7}},
	fields.PrincipalAmount: {
		{"principal amount", 10}, {"par amount", 10}, {"principal", 9}, {"par value", 9},
		{"face amount", 9}, {"par", 6},
	},
	fields.Cost:      {{"amortized cost", 10}, {"cost", 8}},
	fields.FairValue: {{"fair value", 10}, {"market value", 9}, {"value", 4}},
	fields.InterestRate: {
		{"interest rate", 10}, {"coupon", 8}, {"cash rate", 8}, {"interest", 5}, {"rate", 4},
	},
	fields.ReferenceRate: {
		{"reference rate", 10}, {"base rate", 9}, {"benchmark", 9}, {"index", 7}, {"reference", 7},
	},
	fields.Spread:    {{"spread above index", 11}, {"spread", 10}, {"margin", 7}},
	fields.FloorRate: {{"floor", 11}},
	fields.PIKRate:   {{"paid in kind", 11}, {"payment in kind", 11}, {"pik", 11}},
	fields.SharesUnits: {
		{"number of shares", 10}, {"shares units", 10}, {"shares", 9}, {"units", 8}, {"quantity", 7},
	},
	fields.PercentNetAssets: {
		{"% of net assets", 10}, {"percent of net assets", 10}, {"percentage of net assets", 10},
		{"net assets", 8},
	},
	fields.Currency:          {{"currency", 10}},
	fields.CommitmentLimit:   {{"total commitment", 10}, {"commitment amount", 10}, {"commitment", 8}},
	fields.UndrawnCommitment: {{"unfunded commitment", 11}, {"undrawn commitment", 11}, {"unfunded", 10}, {"undrawn", 10}},
}

// Merge returns a copy of t with extra phrases appended per field.
func (t KeywordTable) Merge(extra KeywordTable) KeywordTable {
	out := make(KeywordTable, len(t))
	for f, kws := range t {
		out[f] = append([]Keyword(nil), kws...)
	}
	for f, kws := range extra {
		out[f] = append(out[f], kws...)
	}
	return out
}

var (
	headerFootnote = regexp.MustCompile(`\((\d{1,2}|[a-z]|\*+)\)`)
	headerSplit    = regexp.MustCompile(`[^a-z0-9%]+`)
)

// headerText lowercases a header cell, drops footnote markers and reduces it
// to space-separated tokens padded with spaces for whole-word containment.
func headerText(s string) string {
	s = headerFootnote.ReplaceAllString(strings.ToLower(s), " ")
	return " " + strings.Join(strings.Fields(headerSplit.ReplaceAllString(s, " ")), " ") + " "
}

// scoreCell returns the weight of the best phrase of f found in the cell.
func (t KeywordTable) scoreCell(norm string, f fields.Field) int {
	best := 0
	for _, kw := range t[f] {
		if kw.Weight > best && strings.Contains(norm, headerText(kw.Phrase)) {
			best = kw.Weight
		}
	}
	return best
}

// =============================================================================
// COLUMN ROLE MAP
// =============================================================================

// ColumnRoleMap maps column positions to fields for one table. At most one
// column maps to each field and at most one field to each column.
type ColumnRoleMap struct {
	byCol   map[int]fields.Field
	byField map[fields.Field]int
	anchors []int // positions of non-empty header cells, ascending
}

// NewColumnRoleMap creates an empty map.
func NewColumnRoleMap() *ColumnRoleMap {
	return &ColumnRoleMap{byCol: map[int]fields.Field{}, byField: map[fields.Field]int{}}
}

// Assign maps f to col unless either is already taken.
func (m *ColumnRoleMap) Assign(f fields.Field, col int) bool {
	if _, taken := m.byField[f]; taken {
		return false
	}
	if _, taken := m.byCol[col]; taken {
		return false
	}
	m.byField[f] = col
	m.byCol[col] = f
	m.addAnchor(col)
	return true
}

func (m *ColumnRoleMap) addAnchor(col int) {
	i := sort.SearchInts(m.anchors, col)
	if i < len(m.anchors) && m.anchors[i] == col {
		return
	}
	m.anchors = append(m.anchors, 0)
	copy(m.anchors[i+1:], m.anchors[i:])
	m.anchors[i] = col
}

// Field returns the field mapped to col.
func (m *ColumnRoleMap) Field(col int) (fields.Field, bool) {
	f, ok := m.byCol[col]
	return f, ok
}

// Column returns the column mapped to f.
func (m *ColumnRoleMap) Column(f fields.Field) (int, bool) {
	c, ok := m.byField[f]
	return c, ok
}

// Len is the number of mapped fields.
func (m *ColumnRoleMap) Len() int { return len(m.byField) }

// Fields returns the mapped fields in column order.
func (m *ColumnRoleMap) Fields() []fields.Field {
	cols := make([]int, 0, len(m.byCol))
	for c := range m.byCol {
		cols = append(cols, c)
	}
	sort.Ints(cols)
	out := make([]fields.Field, len(cols))
	for i, c := range cols {
		out[i] = m.byCol[c]
	}
	return out
}

// span returns the half-open range of positions covered by the header cell
// at col: up to the next non-empty header cell.
func (m *ColumnRoleMap) span(col, rowLen int) (int, int) {
	i := sort.SearchInts(m.anchors, col+1)
	if i < len(m.anchors) && m.anchors[i] < rowLen {
		return col, m.anchors[i]
	}
	return col, rowLen
}

// Value returns the first non-empty cell under f's header span, or "".
func (m *ColumnRoleMap) Value(cells []string, f fields.Field) string {
	col, ok := m.byField[f]
	if !ok {
		return ""
	}
	from, to := m.span(col, len(cells))
	for i := from; i < to && i < len(cells); i++ {
		if cells[i] != "" {
			return cells[i]
		}
	}
	return ""
}

// =============================================================================
// HEADER SCORING & ASSIGNMENT
// =============================================================================

type candidate struct {
	col, score, rank int
	field            fields.Field
}

// headerScore is the number of distinct fields at least one cell of the row
// matches.
func (t KeywordTable) headerScore(row []string) int {
	matched := make(map[fields.Field]bool)
	for _, c := range t.candidates(row) {
		matched[c.field] = true
	}
	return len(matched)
}

func (t KeywordTable) candidates(row []string) []candidate {
	var out []candidate
	for col, cell := range row {
		if cell == "" {
			continue
		}
		norm := headerText(cell)
		for rank, f := range fields.StandardFields {
			if s := t.scoreCell(norm, f); s > 0 {
				out = append(out, candidate{col: col, score: s, rank: rank, field: f})
			}
		}
	}
	return out
}

// assign maps the row's header cells into m: highest score first, ties to the
// leftmost column, then to the earlier field of the standard order.
func (t KeywordTable) assign(m *ColumnRoleMap, row []string) int {
	cands := t.candidates(row)
	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if a.col != b.col {
			return a.col < b.col
		}
		return a.rank < b.rank
	})
	n := 0
	for _, c := range cands {
		if m.Assign(c.field, c.col) {
			n++
		}
	}
	for col, cell := range row {
		if cell != "" {
			m.addAnchor(col)
		}
	}
	return n
}
