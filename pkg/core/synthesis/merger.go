package synthesis

import (
	"log"
	"sort"

	"holdings_extract/pkg/core/fields"
	"holdings_extract/pkg/core/match"
)

// =============================================================================
// MERGER
// =============================================================================

// Confidence by match method. Low-confidence pairs get half.
var methodConfidence = map[match.Method]float64{
	match.MethodExact:    1.0,
	match.MethodFuzzy:    0.75,
	match.MethodRowOnly:  0.6,
	match.MethodFactOnly: 0.6,
}

// Merger builds UnifiedRecords from matcher pairs.
type Merger struct{}

// NewMerger creates a merger.
func NewMerger() *Merger {
	return &Merger{}
}

// Merge builds one record per pair, in document order: records carrying a
// table row by row order, then fact-only records by context order. Pairs that
// resolve no entity name are dropped and counted.
func (m *Merger) Merge(pairs []match.Pair) (records []UnifiedRecord, dropped int) {
	type keyed struct {
		rec      UnifiedRecord
		hasRow   bool
		position int
	}
	var built []keyed
	for _, p := range pairs {
		rec := m.mergePair(p)
		if rec.EntityName() == "" {
			dropped++
			continue
		}
		k := keyed{rec: rec}
		if p.Row != nil {
			k.hasRow, k.position = true, p.Row.Order
		} else if p.Fact != nil {
			k.position = p.Fact.Order
		}
		built = append(built, k)
	}

	sort.SliceStable(built, func(i, j int) bool {
		a, b := built[i], built[j]
		if a.hasRow != b.hasRow {
			return a.hasRow
		}
		return a.position < b.position
	})

	records = make([]UnifiedRecord, len(built))
	for i, k := range built {
		records[i] = k.rec
	}
	if dropped > 0 {
		log.Printf("[Merger] Dropped %d pairs without an entity name", dropped)
	}
	return records, dropped
}

// mergePair applies the per-field source preference to one pair.
func (m *Merger) mergePair(p match.Pair) UnifiedRecord {
	var table, fact fields.Set
	rec := UnifiedRecord{
		values:        fields.Set{},
		provenance:    map[fields.Field]Source{},
		Method:        p.Method,
		LowConfidence: p.LowConfidence,
	}
	if p.Row != nil {
		table = p.Row.Values
		rec.Origin.TableID, rec.Origin.RowIndex = p.Row.TableID, p.Row.RowIndex
	}
	if p.Fact != nil {
		fact = p.Fact.Values
		rec.Origin.ContextKey = p.Fact.ContextKey
	}

	for _, f := range fields.StandardFields {
		tv, inTable := table[f]
		fv, inFacts := fact[f]
		switch {
		case inTable && inFacts:
			if PreferFacts(f) {
				rec.set(f, fv, SourceFacts)
			} else {
				rec.set(f, tv, SourceTable)
			}
		case inTable:
			rec.set(f, tv, SourceTable)
		case inFacts:
			rec.set(f, fv, SourceFacts)
		}
	}

	rec.Confidence = methodConfidence[p.Method]
	if rec.LowConfidence {
		rec.Confidence /= 2
	}
	rec.Completeness = calculateCompleteness(rec.values)
	return rec
}

func (r *UnifiedRecord) set(f fields.Field, v fields.Value, s Source) {
	r.values[f] = v
	r.provenance[f] = s
}

// PreferFacts reports whether the fact source wins for f when both sources
// have a value: monetary amounts, share quantities and their currency.
func PreferFacts(f fields.Field) bool {
	k := f.Kind()
	return k == fields.KindAmount || k == fields.KindQuantity || f == fields.Currency
}

// calculateCompleteness is the share of standard fields populated.
func calculateCompleteness(set fields.Set) float64 {
	n := 0
	for _, f := range fields.StandardFields {
		if set.Has(f) {
			n++
		}
	}
	return float64(n) / float64(len(fields.StandardFields))
}
