package match

import (
	"fmt"
	"math/rand"
	"testing"

	"holdings_extract/pkg/core/facts"
	"holdings_extract/pkg/core/schedule"
)

func row(entity, itemType string) schedule.ProvisionalRow {
	return schedule.ProvisionalRow{EntityNameRaw: entity, ItemTypeRaw: itemType}
}

func fact(entity, fragment string) facts.FactRecord {
	return facts.FactRecord{EntityNameRaw: entity, ItemTypeFragment: fragment}
}

func assertNoDoubleMatching(t *testing.T, pairs []Pair) {
	t.Helper()
	rows := make(map[*schedule.ProvisionalRow]bool)
	recs := make(map[*facts.FactRecord]bool)
	for _, p := range pairs {
		if p.Row == nil && p.Fact == nil {
			t.Fatal("pair with neither side")
		}
		if p.Row != nil {
			if rows[p.Row] {
				t.Fatalf("row %+v used twice", *p.Row)
			}
			rows[p.Row] = true
		}
		if p.Fact != nil {
			if recs[p.Fact] {
				t.Fatalf("fact %+v used twice", *p.Fact)
			}
			recs[p.Fact] = true
		}
	}
}

// =============================================================================
// PASSES
// =============================================================================

func TestExactMatch(t *testing.T) {
	rows := []schedule.ProvisionalRow{row("Acme LLC", "First Lien Senior Secured Loan")}
	recs := []facts.FactRecord{fact("Acme", "First Lien Senior Secured Loan")}

	pairs := NewMatcher(Options{}).Match(rows, recs)

	if len(pairs) != 1 {
		t.Fatalf("pairs = %d, want 1", len(pairs))
	}
	p := pairs[0]
	if p.Method != MethodExact || p.Row != &rows[0] || p.Fact != &recs[0] || p.LowConfidence {
		t.Errorf("pair = %+v", p)
	}
}

func TestExactPrefersTypeKey(t *testing.T) {
	rows := []schedule.ProvisionalRow{
		row("Acme Inc", "Second Lien Term Loan"),
		row("Acme Inc", "First Lien Term Loan"),
	}
	recs := []facts.FactRecord{
		fact("Acme", "First Lien Term Loan"),
		fact("Acme", "Second Lien Term Loan"),
	}

	pairs := NewMatcher(Options{}).Match(rows, recs)
	assertNoDoubleMatching(t, pairs)

	for _, p := range pairs {
		if p.Method != MethodExact {
			t.Fatalf("method = %s, want exact", p.Method)
		}
		if p.Row.ItemTypeRaw != p.Fact.ItemTypeFragment {
			t.Errorf("paired %q with %q", p.Row.ItemTypeRaw, p.Fact.ItemTypeFragment)
		}
	}
}

func TestDuplicateKeysFlagged(t *testing.T) {
	rows := []schedule.ProvisionalRow{
		row("Acme", "Term Loan"),
		row("Acme", "Term Loan"),
	}
	recs := []facts.FactRecord{fact("Acme", "Term Loan"), fact("Acme", "Term Loan")}

	pairs := NewMatcher(Options{}).Match(rows, recs)
	assertNoDoubleMatching(t, pairs)

	if len(pairs) != 2 {
		t.Fatalf("pairs = %d, want 2", len(pairs))
	}
	if pairs[0].Row != &rows[0] || pairs[0].Fact != &recs[0] {
		t.Error("duplicates should pair in document order")
	}
	for _, p := range pairs {
		if !p.LowConfidence {
			t.Errorf("pair %+v should be low confidence", p)
		}
	}
}

func TestFuzzyContainment(t *testing.T) {
	rows := []schedule.ProvisionalRow{
		row("Acme Holdings Corp", "Common Stock"),
		row("Acme Holdings Corp", "First Lien Term Loan"),
	}
	recs := []facts.FactRecord{fact("Acme", "First Lien Loan")}

	pairs := NewMatcher(Options{}).Match(rows, recs)
	assertNoDoubleMatching(t, pairs)

	p := pairs[0]
	if p.Method != MethodFuzzy {
		t.Fatalf("method = %s, want fuzzy", p.Method)
	}
	if p.Row != &rows[1] {
		t.Errorf("fuzzy pass should prefer the row with the same type, got %+v", *p.Row)
	}
	if p.LowConfidence {
		t.Error("a unique best candidate is not low confidence")
	}
	if len(pairs) != 2 || pairs[1].Method != MethodRowOnly {
		t.Errorf("equity row should be emitted alone: %+v", pairs)
	}
}

func TestFuzzyTieFlagged(t *testing.T) {
	rows := []schedule.ProvisionalRow{
		row("Acme Holdings", "Term Loan A"),
		row("Acme Holdings", "Term Loan B"),
	}
	recs := []facts.FactRecord{fact("Acme", "")}

	pairs := NewMatcher(Options{}).Match(rows, recs)
	p := pairs[0]
	if p.Method != MethodFuzzy || p.Row != &rows[0] || !p.LowConfidence {
		t.Errorf("tie should go to the first row, flagged: %+v", p)
	}
}

func TestFuzzyLengthThreshold(t *testing.T) {
	rows := []schedule.ProvisionalRow{row("Acme International Holdings Group", "Term Loan")}
	recs := []facts.FactRecord{fact("Acme", "Term Loan")}

	pairs := NewMatcher(Options{}).Match(rows, recs)
	if len(pairs) != 2 {
		t.Fatalf("keys far apart in length must not match: %+v", pairs)
	}

	pairs = NewMatcher(Options{FuzzyLengthThreshold: 40}).Match(rows, recs)
	if len(pairs) != 1 || pairs[0].Method != MethodFuzzy {
		t.Errorf("a wider threshold should match: %+v", pairs)
	}
}

func TestSingletonsKeepOrder(t *testing.T) {
	rows := []schedule.ProvisionalRow{row("Alpha", "Loan"), row("Beta", "Loan")}
	recs := []facts.FactRecord{fact("Gamma", "Loan")}

	pairs := NewMatcher(Options{}).Match(rows, recs)
	want := []Method{MethodRowOnly, MethodRowOnly, MethodFactOnly}
	if len(pairs) != len(want) {
		t.Fatalf("pairs = %d, want %d", len(pairs), len(want))
	}
	for i, m := range want {
		if pairs[i].Method != m {
			t.Errorf("pair %d method = %s, want %s", i, pairs[i].Method, m)
		}
	}
	if pairs[0].Row.EntityNameRaw != "Alpha" || pairs[1].Row.EntityNameRaw != "Beta" {
		t.Error("unmatched rows should keep document order")
	}
}

func TestEmptyEntityNeverMatches(t *testing.T) {
	rows := []schedule.ProvisionalRow{row("", "Loan")}
	recs := []facts.FactRecord{fact("", "Loan")}
	pairs := NewMatcher(Options{}).Match(rows, recs)
	if len(pairs) != 2 {
		t.Errorf("empty keys must not pair: %+v", pairs)
	}
}

// =============================================================================
// PROPERTY: NO DOUBLE MATCHING
// =============================================================================

func TestNoDoubleMatchingRandomized(t *testing.T) {
	names := []string{"Acme", "Acme LLC", "Acme Holdings", "Beta", "Beta Corp", "Gamma Inc", "Delta"}
	types := []string{"First Lien Term Loan", "Second Lien", "Common Stock", "Revolver", ""}
	rng := rand.New(rand.NewSource(7))

	for iter := 0; iter < 200; iter++ {
		rows := make([]schedule.ProvisionalRow, rng.Intn(12))
		for i := range rows {
			rows[i] = row(names[rng.Intn(len(names))], types[rng.Intn(len(types))])
		}
		recs := make([]facts.FactRecord, rng.Intn(12))
		for i := range recs {
			recs[i] = fact(names[rng.Intn(len(names))], types[rng.Intn(len(types))])
		}

		t.Run(fmt.Sprintf("iter%d", iter), func(t *testing.T) {
			pairs := NewMatcher(Options{}).Match(rows, recs)
			assertNoDoubleMatching(t, pairs)

			seenRows, seenFacts := 0, 0
			for _, p := range pairs {
				if p.Row != nil {
					seenRows++
				}
				if p.Fact != nil {
					seenFacts++
				}
			}
			if seenRows != len(rows) || seenFacts != len(recs) {
				t.Errorf("every input must appear exactly once: rows %d/%d facts %d/%d",
					seenRows, len(rows), seenFacts, len(recs))
			}
		})
	}
}
