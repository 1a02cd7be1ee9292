package schedule

import (
	"fmt"
	"log"
	"strings"

	"holdings_extract/pkg/core/facts"
	"holdings_extract/pkg/core/fields"
	"holdings_extract/pkg/core/normalize"
)

// =============================================================================
// PARSER - per-table state machine over RawTable rows
// =============================================================================

// DefaultHeaderThreshold is the number of distinct fields a row's cells must
// match before it is taken as the table header.
const DefaultHeaderThreshold = 3

// DefaultIndustryKeywords identify industry group headings in schedules that
// have no industry column.
var DefaultIndustryKeywords = []string{
	"aerospace", "defense", "automotive", "banking", "beverage", "biotechnology",
	"building products", "business services", "capital equipment", "chemicals",
	"construction", "consumer", "containers", "packaging", "distribution",
	"diversified", "education", "electronics", "energy", "environmental",
	"finance", "financial services", "food", "gaming", "health care", "healthcare",
	"hotels", "industrial", "insurance", "internet", "it services", "leisure",
	"logistics", "media", "metals", "mining", "oil and gas", "pharmaceuticals",
	"real estate", "retail", "software", "specialty", "technology",
	"telecommunications", "transportation", "utilities",
}

// Options tunes the parser. Zero values fall back to the defaults.
type Options struct {
	HeaderThreshold  int
	Keywords         KeywordTable
	IndustryKeywords []string
	// SkipLabels are first-cell texts of rows to ignore (case-insensitive prefix).
	SkipLabels []string
	// ExtraFragments split "Entity, Type" name cells ahead of the default rules.
	ExtraFragments []facts.FragmentRule
}

// Parser turns RawTables into ProvisionalRows.
type Parser struct {
	threshold int
	keywords  KeywordTable
	industry  []string
	skip      []string
	splitter  *facts.IdentifierParser
}

// NewParser creates a parser.
func NewParser(opts Options) *Parser {
	p := &Parser{
		threshold: opts.HeaderThreshold,
		keywords:  opts.Keywords,
		splitter:  facts.NewIdentifierParser(opts.ExtraFragments),
	}
	if p.threshold <= 0 {
		p.threshold = DefaultHeaderThreshold
	}
	if p.keywords == nil {
		p.keywords = DefaultKeywords
	}
	industry := opts.IndustryKeywords
	if industry == nil {
		industry = DefaultIndustryKeywords
	}
	for _, kw := range industry {
		p.industry = append(p.industry, headerText(kw))
	}
	for _, s := range opts.SkipLabels {
		p.skip = append(p.skip, strings.ToLower(strings.TrimSpace(s)))
	}
	return p
}

// carried is the heading context threaded from row to row. It spans
// consecutive tables because schedules break across pages.
type carried struct {
	entity   string
	itemType string
	industry string
}

// tableRun is the state of one table's pass.
type tableRun struct {
	table     RawTable
	state     TableState
	roles     *ColumnRoleMap
	headerRow int
	best      int
}

// Parse runs every table through the state machine, in order. It never fails:
// tables without a header are reported in Result.Skipped, unreadable cells in
// Result.Unparsed.
func (p *Parser) Parse(tables []RawTable) *Result {
	res := &Result{Tables: len(tables)}
	ctx := &carried{}

	for _, t := range tables {
		run := &tableRun{table: t, state: StateSeekingHeader, headerRow: -1}
		before := len(res.Rows)
		for i, row := range t.Rows {
			p.step(run, ctx, i, row, res)
		}
		if run.state == StateSeekingHeader {
			res.Skipped = append(res.Skipped, TableSkip{
				TableID: t.ID,
				Reason:  fmt.Sprintf("no header row reached threshold %d", p.threshold),
				Score:   run.best,
			})
			continue
		}
		run.state = StateDone
		res.Parsed++
		log.Printf("[Schedule] Table %s: header_row=%d, mapped=%d, rows=%d",
			t.ID, run.headerRow, run.roles.Len(), len(res.Rows)-before)
	}

	log.Printf("[Schedule] SUMMARY: tables=%d, parsed=%d, skipped=%d, rows=%d, unparsed=%d",
		res.Tables, res.Parsed, len(res.Skipped), len(res.Rows), len(res.Unparsed))
	return res
}

// step advances the state machine by one row.
func (p *Parser) step(run *tableRun, ctx *carried, i int, row []string, res *Result) {
	switch run.state {
	case StateSeekingHeader:
		score := p.keywords.headerScore(row)
		if score > run.best {
			run.best = score
		}
		if score >= p.threshold && !hasValues(row) {
			run.roles = NewColumnRoleMap()
			p.keywords.assign(run.roles, row)
			run.headerRow = i
			run.state = StateHeaderFound
		}

	case StateHeaderFound:
		// multi-line headers and "$" / "(in thousands)" unit rows
		if isUnitRow(row) {
			return
		}
		if p.isHeaderContinuation(run, row) {
			p.keywords.assign(run.roles, row)
			return
		}
		run.state = StateInBody
		p.body(run, ctx, i, row, res)

	case StateInBody:
		p.body(run, ctx, i, row, res)
	}
}

// body classifies one body row and emits a ProvisionalRow for position lines.
func (p *Parser) body(run *tableRun, ctx *carried, i int, raw []string, res *Result) {
	cells := mergeSplitCells(raw)
	kind, rowCtx := p.classify(run, ctx, cells)

	switch kind {
	case RowCompanyHeader:
		ctx.entity, ctx.itemType = rowCtx.entity, rowCtx.itemType
		if rowCtx.industry != "" {
			ctx.industry = rowCtx.industry
		}
		return
	case RowIndustryHeader:
		ctx.industry = rowCtx.industry
		ctx.entity, ctx.itemType = "", ""
		return
	case RowDetail, RowContinuation:
	default:
		return
	}

	if rowCtx.entity == "" {
		res.Unparsed = append(res.Unparsed, Unparsed{
			TableID:  run.table.ID,
			RowIndex: i,
			Raw:      strings.Join(raw, " | "),
			Reason:   "position row with no entity in scope",
		})
		return
	}
	if kind == RowDetail {
		ctx.entity, ctx.itemType = rowCtx.entity, rowCtx.itemType
	}
	if rowCtx.industry != "" {
		ctx.industry = rowCtx.industry
	}

	pr := ProvisionalRow{
		EntityNameRaw: rowCtx.entity,
		ItemTypeRaw:   rowCtx.itemType,
		Industry:      rowCtx.industry,
		Kind:          kind,
		Cells:         map[fields.Field]string{},
		Values:        fields.Set{},
		TableID:       run.table.ID,
		RowIndex:      i,
		Order:         len(res.Rows),
	}
	if pr.Industry == "" {
		pr.Industry = ctx.industry
	}
	res.Unparsed = append(res.Unparsed, p.extract(run, cells, &pr, rowCtx.terms)...)
	res.Rows = append(res.Rows, pr)
}

// rowContext is what one row contributes to the carried context.
type rowContext struct {
	entity   string
	itemType string
	industry string
	terms    fields.Set
}

// classify decides the row kind and resolves its entity, type and industry,
// inheriting from ctx for continuation rows.
func (p *Parser) classify(run *tableRun, ctx *carried, cells []string) (RowKind, rowContext) {
	idx := nextNonBlank(cells, 0)
	if idx < 0 {
		return RowUnknown, rowContext{}
	}
	first := cells[idx]
	if isSubtotal(first) {
		return RowSubtotal, rowContext{}
	}
	if p.isSkipLabel(first) {
		return RowUnknown, rowContext{}
	}
	if p.keywords.headerScore(cells) >= p.threshold && !hasValues(cells) {
		return RowHeader, rowContext{} // header repeated after a page break
	}

	name := p.nameCell(run, cells)
	itemType := run.roles.Value(cells, fields.ItemType)
	industry := run.roles.Value(cells, fields.Industry)
	numeric := p.hasNumericFields(run, cells)
	_, hasIndustryCol := run.roles.Column(fields.Industry)

	switch {
	case name != "" && !numeric:
		if itemType == "" && !hasIndustryCol && p.isIndustry(name) {
			return RowIndustryHeader, rowContext{industry: name}
		}
		return RowCompanyHeader, rowContext{entity: name, itemType: itemType, industry: industry}

	case name == "" && numeric:
		return RowContinuation, rowContext{
			entity:   ctx.entity,
			itemType: firstNonEmpty(itemType, ctx.itemType),
			industry: industry,
		}

	case name != "" && numeric:
		rc := rowContext{entity: name, itemType: itemType, industry: industry}
		if itemType != "" {
			return RowDetail, rc
		}
		if split, ok := p.splitter.SplitAtComma(name); ok {
			rc.entity, rc.itemType, rc.terms = split.EntityName, split.Fragment, split.Terms
			return RowDetail, rc
		}
		if ctx.entity != "" && normalize.IsItemTypePhrase(name) {
			// instrument line under a company heading in a single name column
			return RowContinuation, rowContext{entity: ctx.entity, itemType: name, industry: industry}
		}
		return RowDetail, rc
	}
	return RowUnknown, rowContext{}
}

// nameCell is the entity column's text, or the first column when no entity
// column was mapped.
func (p *Parser) nameCell(run *tableRun, cells []string) string {
	if _, ok := run.roles.Column(fields.EntityName); ok {
		return run.roles.Value(cells, fields.EntityName)
	}
	if len(cells) > 0 {
		if _, mapped := run.roles.Field(0); !mapped {
			return cells[0]
		}
	}
	return ""
}

// isHeaderContinuation accepts a second header line: every non-empty cell is
// a header phrase, and it is not a lone name-column cell, which would be a
// company heading.
func (p *Parser) isHeaderContinuation(run *tableRun, row []string) bool {
	if hasValues(row) {
		return false
	}
	nonEmpty, lastCol := 0, -1
	for col, c := range row {
		if c == "" {
			continue
		}
		if p.keywords.headerScore([]string{c}) == 0 {
			return false
		}
		nonEmpty++
		lastCol = col
	}
	if nonEmpty == 0 {
		return false
	}
	if nonEmpty == 1 {
		nameCol, ok := run.roles.Column(fields.EntityName)
		if !ok {
			nameCol = 0
		}
		return lastCol != nameCol
	}
	return true
}

func (p *Parser) hasNumericFields(run *tableRun, cells []string) bool {
	for _, f := range run.roles.Fields() {
		if f.IsNumeric() && run.roles.Value(cells, f) != "" {
			return true
		}
	}
	return false
}

func (p *Parser) isIndustry(text string) bool {
	if normalize.HasLegalSuffix(text) {
		return false
	}
	norm := headerText(text)
	for _, kw := range p.industry {
		if strings.Contains(norm, kw) {
			return true
		}
	}
	return false
}

func (p *Parser) isSkipLabel(text string) bool {
	lower := strings.ToLower(text)
	for _, s := range p.skip {
		if s != "" && strings.HasPrefix(lower, s) {
			return true
		}
	}
	return false
}

// =============================================================================
// ROW HEURISTICS
// =============================================================================

func isSubtotal(first string) bool {
	lower := strings.ToLower(strings.TrimSpace(first))
	return strings.HasPrefix(lower, "total") ||
		strings.HasPrefix(lower, "subtotal") ||
		strings.HasPrefix(lower, "sub-total")
}

// hasValues reports whether any cell holds an amount, percentage or date,
// which header rows never do.
func hasValues(row []string) bool {
	for _, c := range row {
		if c == "" || fields.IsBlank(c) {
			continue
		}
		if _, ok := fields.ParseAmount(c); ok {
			return true
		}
		if _, ok := fields.ParsePercent(c); ok {
			return true
		}
		if _, ok := fields.ParseDate(c); ok {
			return true
		}
	}
	return false
}

// isUnitRow matches rows made only of "$", "%" and scale captions.
func isUnitRow(row []string) bool {
	seen := false
	for _, c := range row {
		if c == "" {
			continue
		}
		seen = true
		if fields.IsCurrencySymbol(c) || c == "%" || fields.DetectScale(c) != fields.ScaleUnits {
			continue
		}
		return false
	}
	return seen
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
