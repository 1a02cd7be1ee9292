package facts

import (
	"log"
	"strings"

	"github.com/shopspring/decimal"

	"holdings_extract/pkg/core/fields"
)

// =============================================================================
// STRUCTURED-FACT EXTRACTOR
// =============================================================================

// Options tunes extraction for one filing.
type Options struct {
	// PeriodEnd, when set (YYYY-MM-DD), drops facts whose end date differs.
	// Filings repeat the prior period's schedule under separate contexts.
	PeriodEnd string
	// ExtraFragments are issuer-specific type-fragment rules.
	ExtraFragments []FragmentRule
}

// Extractor groups raw facts into FactRecords.
type Extractor struct {
	opts   Options
	parser *IdentifierParser
}

// NewExtractor creates an extractor.
func NewExtractor(opts Options) *Extractor {
	return &Extractor{opts: opts, parser: NewIdentifierParser(opts.ExtraFragments)}
}

// Group collects facts by reporting context, preserving first-seen order.
// Facts without an identifier are filing-level data and are counted as ignored.
func (e *Extractor) Group(raw []RawFact) (groups []RawFactGroup, ignored int) {
	index := make(map[string]int)
	for _, f := range raw {
		if strings.TrimSpace(f.Identifier) == "" {
			ignored++
			continue
		}
		if e.opts.PeriodEnd != "" && f.EndDate != "" && f.EndDate != e.opts.PeriodEnd {
			continue
		}
		key := f.ContextID
		if key == "" {
			key = f.Identifier
		}
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, RawFactGroup{ContextKey: key, Identifier: f.Identifier})
		}
		groups[i].Facts = append(groups[i].Facts, f)
	}
	return groups, ignored
}

// Extract groups facts, splits each context's identifier and collects the
// recognized financial concepts. Pure transform: no I/O.
func (e *Extractor) Extract(raw []RawFact) *Result {
	groups, ignored := e.Group(raw)
	res := &Result{Ignored: ignored, Contexts: len(groups)}

	for order, g := range groups {
		split := e.parser.Split(g.Identifier)
		rec := FactRecord{
			ContextKey:       g.ContextKey,
			Identifier:       g.Identifier,
			EntityNameRaw:    split.EntityName,
			ItemTypeFragment: split.Fragment,
			Recognized:       split.Recognized,
			Values:           fields.Set{},
			Order:            order,
		}
		if !split.Recognized {
			res.Misses = append(res.Misses, Miss{
				ContextKey: g.ContextKey,
				Raw:        g.Identifier,
				Reason:     "no item-type fragment recognized",
			})
		}

		for _, f := range g.Facts {
			if miss := e.applyFact(rec.Values, f); miss != nil {
				miss.ContextKey = g.ContextKey
				res.Misses = append(res.Misses, *miss)
			}
		}
		// terms embedded in the identifier only fill gaps left by tagged facts
		for field, v := range split.Terms {
			rec.Values.PutIfAbsent(field, v)
		}
		if rec.ItemTypeFragment != "" {
			rec.Values.PutIfAbsent(fields.ItemType, fields.TextValue(rec.ItemTypeFragment))
		}
		if rec.EntityNameRaw != "" {
			rec.Values[fields.EntityName] = fields.TextValue(rec.EntityNameRaw)
		}
		res.Records = append(res.Records, rec)
	}

	log.Printf("[FactExtractor] SUMMARY: contexts=%d, recognized=%d, ignored_facts=%d, misses=%d",
		res.Contexts, res.RecognizedCount(), res.Ignored, len(res.Misses))
	return res
}

// applyFact stores one fact's value under its vocabulary field.
func (e *Extractor) applyFact(set fields.Set, f RawFact) *Miss {
	field, ok := ConceptField(f.Concept)
	if !ok {
		return nil
	}
	raw := strings.TrimSpace(f.Value)
	if raw == "" {
		return nil
	}

	switch field.Kind() {
	case fields.KindText:
		if field == fields.ReferenceRate {
			if code := canonicalReference(raw); code != "" {
				set.PutIfAbsent(field, fields.TextValue(code))
				return nil
			}
			return &Miss{Concept: f.Concept, Raw: raw, Reason: "unknown reference rate"}
		}
		set.PutIfAbsent(field, fields.TextValue(raw))

	case fields.KindDate:
		d, ok := fields.ParseDate(raw)
		if !ok {
			return &Miss{Concept: f.Concept, Raw: raw, Reason: "unparsable date"}
		}
		set.PutIfAbsent(field, fields.DateValue(d, raw))

	case fields.KindRate:
		d, ok := fields.ParsePercent(raw)
		if !ok {
			return &Miss{Concept: f.Concept, Raw: raw, Reason: "unparsable rate"}
		}
		set.PutIfAbsent(field, fields.NumberValue(toPercentPoints(d, f.Unit, raw), raw))

	case fields.KindAmount, fields.KindQuantity:
		d, ok := fields.ParseAmount(raw)
		if !ok {
			return &Miss{Concept: f.Concept, Raw: raw, Reason: "unparsable amount"}
		}
		set.PutIfAbsent(field, fields.NumberValue(d, raw))
		if field.IsMonetary() {
			if cur := unitCurrency(f.Unit); cur != "" {
				set.PutIfAbsent(fields.Currency, fields.TextValue(cur))
			}
		}
	}
	return nil
}

// toPercentPoints converts XBRL "pure" ratios (0.1025) to percentage points
// (10.25). Unitless values are taken as already in points, and values carrying
// a percent sign are left alone.
func toPercentPoints(d decimal.Decimal, unit, raw string) decimal.Decimal {
	if strings.Contains(raw, "%") {
		return d
	}
	if strings.HasSuffix(strings.ToLower(unit), "pure") {
		return d.Shift(2)
	}
	return d
}

// canonicalReference maps a benchmark token or an XBRL member name
// ("us-gaap:SecuredOvernightFinancingRateSofrMember") to its code.
func canonicalReference(raw string) string {
	if code, ok := fields.CanonicalBenchmark(raw); ok {
		return code
	}
	key := squash(raw)
	switch {
	case strings.Contains(key, "sofr"), strings.Contains(key, "securedovernightfinancing"):
		return fields.RefSOFR
	case strings.Contains(key, "libor"), strings.Contains(key, "londoninterbank"):
		return fields.RefLIBOR
	case strings.Contains(key, "prime"):
		return fields.RefPrime
	case strings.Contains(key, "euribor"), strings.Contains(key, "eurointerbank"):
		return fields.RefEURIBOR
	case strings.Contains(key, "sonia"), strings.Contains(key, "sterlingovernight"):
		return fields.RefSONIA
	case strings.Contains(key, "bsby"), strings.Contains(key, "bloombergshortterm"):
		return fields.RefBSBY
	case strings.Contains(key, "cdor"), strings.Contains(key, "canadiandollaroffered"):
		return fields.RefCDOR
	}
	return ""
}
