// Package match pairs table rows with structured-fact records of the same
// filing. Names are noisy and non-unique, so pairing runs in passes: exact
// (entity, type) keys first, then entity containment, then singletons. No
// row or fact is ever used twice.
package match

import (
	"log"
	"strings"

	"holdings_extract/pkg/core/facts"
	"holdings_extract/pkg/core/normalize"
	"holdings_extract/pkg/core/schedule"
)

// DefaultFuzzyLengthThreshold bounds the length difference of two entity keys
// that may still match by containment ("acme" vs "acme holdings" is 9).
const DefaultFuzzyLengthThreshold = 12

// Method tells how a pair was formed.
type Method string

const (
	MethodExact    Method = "exact"
	MethodFuzzy    Method = "fuzzy"
	MethodRowOnly  Method = "row_only"
	MethodFactOnly Method = "fact_only"
)

// Pair is one matcher output. At least one side is non-nil.
type Pair struct {
	Row           *schedule.ProvisionalRow `json:"-"`
	Fact          *facts.FactRecord        `json:"-"`
	Method        Method                   `json:"method"`
	LowConfidence bool                     `json:"low_confidence"`
	Reason        string                   `json:"reason,omitempty"`
}

// Options tunes the matcher.
type Options struct {
	// FuzzyLengthThreshold is the largest allowed difference in entity-key
	// length for a containment match. Zero uses the default.
	FuzzyLengthThreshold int
}

// Matcher pairs rows and facts.
type Matcher struct {
	threshold int
}

// NewMatcher creates a matcher.
func NewMatcher(opts Options) *Matcher {
	t := opts.FuzzyLengthThreshold
	if t <= 0 {
		t = DefaultFuzzyLengthThreshold
	}
	return &Matcher{threshold: t}
}

type rowItem struct {
	row  *schedule.ProvisionalRow
	key  normalize.MatchKey
	used bool
}

type factItem struct {
	fact *facts.FactRecord
	key  normalize.MatchKey
	used bool
}

// Match pairs rows with facts. Output order: exact pairs, fuzzy pairs, then
// unmatched rows and unmatched facts, each in document order.
func (m *Matcher) Match(rows []schedule.ProvisionalRow, recs []facts.FactRecord) []Pair {
	rs := make([]*rowItem, len(rows))
	for i := range rows {
		rs[i] = &rowItem{row: &rows[i], key: normalize.KeyFor(rows[i].EntityNameRaw, rows[i].ItemTypeRaw)}
	}
	fs := make([]*factItem, len(recs))
	for i := range recs {
		fs[i] = &factItem{fact: &recs[i], key: normalize.KeyFor(recs[i].EntityNameRaw, recs[i].ItemTypeFragment)}
	}

	var pairs []Pair
	pairs = append(pairs, m.exactPass(rs, fs)...)
	exact := len(pairs)
	pairs = append(pairs, m.fuzzyPass(rs, fs)...)
	fuzzy := len(pairs) - exact

	rowOnly, factOnly := 0, 0
	for _, r := range rs {
		if !r.used {
			pairs = append(pairs, Pair{Row: r.row, Method: MethodRowOnly})
			rowOnly++
		}
	}
	for _, f := range fs {
		if !f.used {
			pairs = append(pairs, Pair{Fact: f.fact, Method: MethodFactOnly})
			factOnly++
		}
	}

	log.Printf("[Matcher] SUMMARY: rows=%d, facts=%d, exact=%d, fuzzy=%d, row_only=%d, fact_only=%d",
		len(rows), len(recs), exact, fuzzy, rowOnly, factOnly)
	return pairs
}

// exactPass pairs identical (entity, type) keys. When several rows or facts
// share a key they are paired in document order and every such pair is flagged.
func (m *Matcher) exactPass(rs []*rowItem, fs []*factItem) []Pair {
	rowCount := make(map[normalize.MatchKey]int)
	for _, r := range rs {
		rowCount[r.key]++
	}
	factCount := make(map[normalize.MatchKey]int)
	for _, f := range fs {
		factCount[f.key]++
	}

	var pairs []Pair
	for _, f := range fs {
		if f.key.Entity == "" {
			continue
		}
		for _, r := range rs {
			if r.used || r.key != f.key {
				continue
			}
			r.used, f.used = true, true
			p := Pair{Row: r.row, Fact: f.fact, Method: MethodExact}
			if rowCount[f.key] > 1 || factCount[f.key] > 1 {
				p.LowConfidence = true
				p.Reason = "several items share the same entity and type"
			}
			pairs = append(pairs, p)
			break
		}
	}
	return pairs
}

// fuzzyPass pairs leftovers whose entity keys contain one another and differ
// in length by less than the threshold. For each fact, in document order, the
// row with the closest type wins; a tie goes to the earliest row and the pair
// is flagged.
func (m *Matcher) fuzzyPass(rs []*rowItem, fs []*factItem) []Pair {
	var pairs []Pair
	for _, f := range fs {
		if f.used || f.key.Entity == "" {
			continue
		}
		var best *rowItem
		bestScore, ties := -1, 0
		for _, r := range rs {
			if r.used || !m.entityContains(r.key.Entity, f.key.Entity) {
				continue
			}
			score := normalize.TypeSimilarity(r.key.ItemType, f.key.ItemType)
			switch {
			case score > bestScore:
				best, bestScore, ties = r, score, 1
			case score == bestScore:
				ties++
			}
		}
		if best == nil {
			continue
		}
		best.used, f.used = true, true
		p := Pair{Row: best.row, Fact: f.fact, Method: MethodFuzzy}
		switch {
		case ties > 1:
			p.LowConfidence = true
			p.Reason = "several rows equally close"
		case bestScore == 0:
			p.LowConfidence = true
			p.Reason = "item types disagree"
		}
		pairs = append(pairs, p)
	}
	return pairs
}

// entityContains is the containment test: one key is a substring of the
// other and their lengths differ by less than the threshold. Empty keys
// never match.
func (m *Matcher) entityContains(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	diff := len(a) - len(b)
	if diff < 0 {
		diff = -diff
	}
	if diff >= m.threshold {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}
