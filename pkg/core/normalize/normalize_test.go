package normalize

import (
	"strings"
	"testing"
)

// =============================================================================
// ENTITY.GO TESTS
// =============================================================================

func TestEntity(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"Corp suffix", "Acme Corp.", "acme"},
		{"LLC with footnotes", "ACME, LLC (1)(2)", "acme"},
		{"Plain", "Acme", "acme"},
		{"Html entity", "Smith &amp; Wesson, Inc.", "smith wesson"},
		{"Nbsp artifact", "Acme&nbsp;Holdings, Inc.", "acme holdings"},
		{"Double escaped", "Acme &amp;amp; Co", "acme"},
		{"Numeric entity", "&#65;cme", "acme"},
		{"Hex entity", "&#x41;cme, LLC", "acme"},
		{"Escaped numeric entity", "&amp;#65;cme Corp", "acme"},
		{"Dotted LLC", "Widget Holdings, L.L.C.", "widget holdings"},
		{"Trailing numerals", "Acme Corporation 12", "acme"},
		{"Numeral then suffix", "Acme 2 LLC", "acme"},
		{"Stacked suffixes", "Acme Holdings Company, Inc.", "acme holdings"},
		{"Bracket footnote", "Beta Ltd [3]", "beta"},
		{"Only suffix", "Company", "company"},
		{"Limited partnership", "Gamma Capital, LP", "gamma capital"},
		{"Whitespace collapse", "  Delta   Software\tInc  ", "delta software"},
		{"Empty", "", ""},
		{"Punctuation only", "--- , ---", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Entity(tt.raw); got != tt.want {
				t.Errorf("Entity(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestEntity_Idempotent(t *testing.T) {
	inputs := []string{
		"Acme Corp.",
		"ACME, LLC (1)(2)",
		"Acme 2 LLC",
		"Acme &amp;amp; Co",
		"Fund 2 3",
		"Company",
		"Inc",
		"LLC 5",
		"Ünïcode Société Limited",
		"(a) Alpha (b)",
		"Widget Holdings, L.L.C. 7",
		"&#38;&#38;",
		"",
		"   ",
		"x y z co co co",
		"&#x41;cme",
		"&#69;XAMPLE Inc",
		"&amp;#x42;eta Corp",
	}
	for _, in := range inputs {
		once := Entity(in)
		twice := Entity(once)
		if once != twice {
			t.Errorf("Entity not idempotent for %q: %q then %q", in, once, twice)
		}
		if once != strings.ToLower(once) {
			t.Errorf("Entity(%q) = %q contains upper-case letters", in, once)
		}
	}
}

func TestEntity_EscapedSpellingsShareKey(t *testing.T) {
	if a, b := Entity("&#65;cme LLC"), Entity("Acme LLC"); a != b {
		t.Errorf("keys differ: %q vs %q", a, b)
	}
}

func TestHasLegalSuffix(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
	}{
		{"Acme Software, Inc.", true},
		{"Beta Holdings LLC (2)", true},
		{"Software", false},
		{"Healthcare Services", false},
		{"Gamma, L.P.", true},
	}
	for _, tt := range tests {
		if got := HasLegalSuffix(tt.raw); got != tt.want {
			t.Errorf("HasLegalSuffix(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

// =============================================================================
// ITEMTYPE.GO TESTS
// =============================================================================

func TestItemType(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"First Lien Senior Secured Loan", "first_lien"},
		{"First lien senior secured revolving loan", "first_lien:revolver"},
		{"1st Lien Delayed Draw Term Loan", "first_lien:delayed_draw"},
		{"Unitranche", "first_lien"},
		{"Second Lien Term Loan", "second_lien"},
		{"Senior Subordinated Notes", "subordinated"},
		{"Unsecured facility", "unsecured"},
		{"Senior Secured Loan", "senior_secured"},
		{"Series A Preferred Stock", "preferred"},
		{"Common Stock", "equity"},
		{"Class A Units", "equity"},
		{"Warrants", "warrant"},
		{"Term Loan", "loan"},
		{"Royalty Interest", "royalty interest"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := ItemType(tt.raw); got != tt.want {
				t.Errorf("ItemType(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestTypeSimilarity(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"first_lien", "first_lien", 2},
		{"first_lien", "first_lien:revolver", 1},
		{"first_lien", "", 1},
		{"first_lien", "equity", 0},
		{"", "", 2},
	}
	for _, tt := range tests {
		if got := TypeSimilarity(tt.a, tt.b); got != tt.want {
			t.Errorf("TypeSimilarity(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestKeyFor(t *testing.T) {
	a := KeyFor("Acme, LLC", "First Lien Senior Secured Loan")
	b := KeyFor("ACME", "first lien term loan")
	if a != b {
		t.Errorf("KeyFor mismatch: %+v vs %+v", a, b)
	}
}
