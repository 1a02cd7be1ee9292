package schedule

import (
	"strings"

	"holdings_extract/pkg/core/fields"
)

// extract parses the mapped cells of a position row into pr.Values and
// returns the cells no parser could read. Dedicated rate columns are read
// before the interest rate composite, so an explicit spread column wins over
// a spread embedded in the coupon text.
func (p *Parser) extract(run *tableRun, cells []string, pr *ProvisionalRow, terms fields.Set) []Unparsed {
	var misses []Unparsed
	miss := func(f fields.Field, raw, reason string) {
		misses = append(misses, Unparsed{TableID: pr.TableID, RowIndex: pr.RowIndex, Field: f, Raw: raw, Reason: reason})
	}

	pr.Values[fields.EntityName] = fields.TextValue(pr.EntityNameRaw)
	if pr.ItemTypeRaw != "" {
		pr.Values[fields.ItemType] = fields.TextValue(pr.ItemTypeRaw)
	}
	if pr.Industry != "" {
		pr.Values[fields.Industry] = fields.TextValue(pr.Industry)
	}

	mapped := run.roles.Fields()
	ordered := make([]fields.Field, 0, len(mapped))
	for _, f := range mapped {
		if f != fields.InterestRate {
			ordered = append(ordered, f)
		}
	}
	if _, ok := run.roles.Column(fields.InterestRate); ok {
		ordered = append(ordered, fields.InterestRate)
	}

	for _, f := range ordered {
		raw := strings.TrimSpace(run.roles.Value(cells, f))
		if raw == "" {
			continue
		}
		pr.Cells[f] = raw
		switch f {
		case fields.EntityName, fields.ItemType, fields.Industry:
			continue
		}
		if fields.IsBlank(raw) {
			continue
		}
		if reason := parseCell(pr.Values, f, raw, run.table.Scale); reason != "" {
			miss(f, raw, reason)
		}
	}

	for f, v := range terms {
		pr.Values.PutIfAbsent(f, v)
	}
	return misses
}

// parseCell stores one cell's value under f. It returns a reason when the
// text could not be read.
func parseCell(set fields.Set, f fields.Field, raw string, scale fields.Scale) string {
	switch f.Kind() {
	case fields.KindAmount:
		d, ok := fields.ParseAmount(raw)
		if !ok {
			return "unparsable amount"
		}
		set.PutIfAbsent(f, fields.NumberValue(scale.Apply(d), raw))
		if cur := fields.DetectCurrency(raw); cur != "" {
			set.PutIfAbsent(fields.Currency, fields.TextValue(cur))
		}

	case fields.KindQuantity:
		d, ok := fields.ParseAmount(raw)
		if !ok {
			return "unparsable quantity"
		}
		set.PutIfAbsent(f, fields.NumberValue(d, raw))

	case fields.KindDate:
		d, ok := fields.ParseDate(raw)
		if !ok {
			return "unparsable date"
		}
		set.PutIfAbsent(f, fields.DateValue(d, raw))

	case fields.KindRate:
		return parseRateCell(set, f, raw)

	default:
		switch f {
		case fields.ReferenceRate:
			return parseReferenceCell(set, raw)
		case fields.Currency:
			cur := fields.DetectCurrency(raw)
			if cur == "" {
				cur = strings.ToUpper(raw)
			}
			set.PutIfAbsent(f, fields.TextValue(cur))
		default:
			set.PutIfAbsent(f, fields.TextValue(raw))
		}
	}
	return ""
}

// parseRateCell reads a rate column. A plain percentage goes to the column's
// own field; composite text ("S+5.75%, 1.00% Floor") fills every component
// it names.
func parseRateCell(set fields.Set, f fields.Field, raw string) string {
	if f != fields.InterestRate {
		if d, ok := fields.ParsePercent(raw); ok {
			set.PutIfAbsent(f, fields.NumberValue(d, raw))
			return ""
		}
	}
	rc, ok := fields.ParseRate(raw)
	if !ok {
		return "unparsable rate"
	}
	rc.Fill(set, raw)
	return ""
}

// parseReferenceCell reads a reference-rate column, either a bare benchmark
// ("SOFR", "L") or a benchmark with spread ("SF + 6.25%").
func parseReferenceCell(set fields.Set, raw string) string {
	if rc, ok := fields.ParseRate(raw); ok && rc.ReferenceRate != "" {
		rc.Fill(set, raw)
		return ""
	}
	token := strings.Fields(strings.NewReplacer("(", " ", ")", " ", "+", " ").Replace(raw))
	for n := len(token); n > 0; n-- {
		if code, ok := fields.CanonicalBenchmark(strings.Join(token[:n], " ")); ok {
			set.PutIfAbsent(fields.ReferenceRate, fields.TextValue(code))
			return ""
		}
	}
	return "unknown reference rate"
}
