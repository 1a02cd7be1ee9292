package fields

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// RATE COMPOSITES
// =============================================================================

// Canonical floating-rate benchmark codes.
const (
	RefLIBOR   = "LIBOR"
	RefSOFR    = "SOFR"
	RefPrime   = "PRIME"
	RefEURIBOR = "EURIBOR"
	RefSONIA   = "SONIA"
	RefBSBY    = "BSBY"
	RefCDOR    = "CDOR"
	RefBBSY    = "BBSY"
)

// benchmarkAliases maps lower-cased benchmark tokens to canonical codes.
var benchmarkAliases = map[string]string{
	"l":         RefLIBOR,
	"libor":     RefLIBOR,
	"sf":        RefSOFR,
	"s":         RefSOFR,
	"sofr":      RefSOFR,
	"term sofr": RefSOFR,
	"prime":     RefPrime,
	"p":         RefPrime,
	"pr":        RefPrime,
	"e":         RefEURIBOR,
	"euribor":   RefEURIBOR,
	"sonia":     RefSONIA,
	"bsby":      RefBSBY,
	"cdor":      RefCDOR,
	"c":         RefCDOR,
	"bbsy":      RefBBSY,
}

const pct = `(-?\d+(?:\.\d+)?)\s*%?`

var (
	leadingPct   = regexp.MustCompile(`^\s*` + pct + `\s*`)
	benchmarkPat = regexp.MustCompile(`(?i)(?:^|[^a-z])(?:\d+\s*m\s+|\d+-month\s+)?(term sofr|sofr|libor|euribor|sonia|bsby|cdor|bbsy|prime|sf|pr|[lspec])\s*\+\s*` + pct)
	floorPat     = regexp.MustCompile(`(?i)floor\s*(?:of|:)?\s*` + pct + `|` + pct + `\s*floor`)
	pikPat       = regexp.MustCompile(`(?i)` + pct + `\s*pik|pik\s*(?:of|:)?\s*` + pct)
	cashPat      = regexp.MustCompile(`(?i)` + pct + `\s*cash|cash\s*(?:of|:)?\s*` + pct)
	plainPat     = regexp.MustCompile(`^\s*` + pct + `\s*$`)
)

// RateComposite is the decomposition of a coupon description. Nil pointers are
// components the text did not state.
type RateComposite struct {
	InterestRate  *decimal.Decimal
	ReferenceRate string
	Spread        *decimal.Decimal
	FloorRate     *decimal.Decimal
	PIKRate       *decimal.Decimal
}

// IsEmpty reports whether nothing was recognized.
func (r RateComposite) IsEmpty() bool {
	return r.InterestRate == nil && r.ReferenceRate == "" && r.Spread == nil && r.FloorRate == nil && r.PIKRate == nil
}

// Fill copies the recognized components into set without overwriting
// populated fields.
func (r RateComposite) Fill(set Set, raw string) {
	put := func(f Field, d *decimal.Decimal) {
		if d != nil {
			set.PutIfAbsent(f, NumberValue(*d, raw))
		}
	}
	put(InterestRate, r.InterestRate)
	put(Spread, r.Spread)
	put(FloorRate, r.FloorRate)
	put(PIKRate, r.PIKRate)
	if r.ReferenceRate != "" {
		set.PutIfAbsent(ReferenceRate, Value{Text: r.ReferenceRate, Raw: raw})
	}
}

// CanonicalBenchmark maps a benchmark token ("L", "SF", "Prime") to its code.
func CanonicalBenchmark(token string) (string, bool) {
	code, ok := benchmarkAliases[strings.ToLower(strings.TrimSpace(token))]
	return code, ok
}

// ParseRate decomposes a coupon string.
// Examples:
//
//	"10.00% (Prime+6.75%, Floor 2.00%)"  → rate 10.00, PRIME + 6.75, floor 2.00
//	"12.00% (L+11.00%, Floor 1.00%)"     → rate 12.00, LIBOR + 11.00, floor 1.00
//	"13.00% (10.00% Cash, 3.00% PIK)"    → rate 10.00 (cash), pik 3.00
//	"11.50%"                             → rate 11.50
//
// The leading percentage is the nominal rate; a "Cash" component overrides it.
// Unrecognized tokens are ignored; the second return is false when nothing
// was recognized.
func ParseRate(raw string) (RateComposite, bool) {
	var out RateComposite
	s := strings.TrimSpace(strings.ReplaceAll(raw, "\u00a0", " "))
	if IsBlank(s) {
		return out, false
	}

	head, clause := s, ""
	if i := strings.Index(s, "("); i >= 0 {
		head = s[:i]
		clause = strings.TrimSuffix(strings.TrimSpace(s[i+1:]), ")")
		clause = strings.NewReplacer("(", ",", ")", ",").Replace(clause)
	}

	if m := leadingPct.FindStringSubmatch(head); m != nil && !isComponent(head) {
		out.InterestRate = decPtr(m[1])
	}

	tokens := splitTokens(head)
	tokens = append(tokens, splitTokens(clause)...)
	for i, tok := range tokens {
		switch {
		case pikPat.MatchString(tok):
			out.PIKRate = decPtr(firstGroup(pikPat.FindStringSubmatch(tok)))
		case cashPat.MatchString(tok):
			out.InterestRate = decPtr(firstGroup(cashPat.FindStringSubmatch(tok)))
		case floorPat.MatchString(tok):
			out.FloorRate = decPtr(firstGroup(floorPat.FindStringSubmatch(tok)))
		case benchmarkPat.MatchString(tok):
			m := benchmarkPat.FindStringSubmatch(tok)
			if code, ok := CanonicalBenchmark(m[1]); ok {
				out.ReferenceRate = code
				out.Spread = decPtr(m[2])
			}
		case i > 0 && out.InterestRate == nil && plainPat.MatchString(tok):
			out.InterestRate = decPtr(plainPat.FindStringSubmatch(tok)[1])
		}
	}

	return out, !out.IsEmpty()
}

// isComponent reports whether a leading percentage belongs to a PIK/Cash/Floor
// token ("12.00% PIK") rather than being the nominal rate.
func isComponent(head string) bool {
	first := head
	if i := strings.Index(head, ","); i >= 0 {
		first = head[:i]
	}
	return pikPat.MatchString(first) || cashPat.MatchString(first) || floorPat.MatchString(first) || benchmarkPat.MatchString(first)
}

func splitTokens(s string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' || r == '/' }) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func firstGroup(m []string) string {
	for _, g := range m[1:] {
		if g != "" {
			return g
		}
	}
	return ""
}

func decPtr(s string) *decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	return &d
}
