package normalize

import (
	"regexp"
	"strings"
)

// =============================================================================
// ITEM TYPE CANONICALIZATION
// =============================================================================

// typeClass is one canonical investment class, recognized by keyword patterns.
type typeClass struct {
	key      string
	patterns []*regexp.Regexp
}

func mustAll(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(`(?i)` + e)
	}
	return out
}

// typeClasses are checked in order; the first matching class wins.
var typeClasses = []typeClass{
	{"first_lien", mustAll(`\bfirst[\s-]*lien`, `\b1st[\s-]*lien`, `\bunitranche`, `\bsenior\s+secured\s+first`)},
	{"second_lien", mustAll(`\bsecond[\s-]*lien`, `\b2nd[\s-]*lien`)},
	{"last_out", mustAll(`\blast[\s-]*out`)},
	{"subordinated", mustAll(`\bsubordinated`, `\bmezzanine`, `\bjunior\b`)},
	{"unsecured", mustAll(`\bunsecured`)},
	{"senior_secured", mustAll(`\bsenior\s+secured`, `\bsecured\s+(loan|debt|note)`)},
	{"convertible", mustAll(`\bconvertible`)},
	{"preferred", mustAll(`\bpreferred`)},
	{"warrant", mustAll(`\bwarrants?\b`)},
	{"equity", mustAll(`\bcommon\b`, `\bequity\b`, `\bmembership\s+(units|interests?)`, `\bclass\s+[a-z0-9]+\s+units`, `\bunits\b`, `\bshares\b`, `\bstock\b`, `\bllc\s+interests?`, `\blp\s+interests?`)},
	{"loan", mustAll(`\bterm\s+loan`, `\bloan\b`, `\bfacility\b`, `\bdebt\b`, `\bnotes?\b`, `\bbonds?\b`)},
}

// instrument qualifiers distinguish several debt lines of the same class at one issuer.
var typeQualifiers = []typeClass{
	{"revolver", mustAll(`\brevolv`, `\brevolver`, `\brcf\b`)},
	{"delayed_draw", mustAll(`\bdelayed[\s-]*draw`, `\bddtl\b`)},
}

// ItemType canonicalizes an investment-type description into a key such as
// "first_lien", "first_lien:revolver" or "equity". Unrecognized text falls
// back to its normalized token form; empty input yields "".
func ItemType(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}

	base := ""
	for _, c := range typeClasses {
		if matchAny(c.patterns, s) {
			base = c.key
			break
		}
	}
	if base == "" {
		return strings.Join(tokenize(strings.ToLower(s)), " ")
	}

	for _, q := range typeQualifiers {
		if matchAny(q.patterns, s) {
			return base + ":" + q.key
		}
	}
	return base
}

// IsItemTypePhrase reports whether raw names a recognized investment class
// ("First Lien Term Loan", "Common Stock") rather than an issuer.
func IsItemTypePhrase(raw string) bool {
	if HasLegalSuffix(raw) {
		return false
	}
	for _, c := range typeClasses {
		if matchAny(c.patterns, raw) {
			return true
		}
	}
	return false
}

func matchAny(patterns []*regexp.Regexp, s string) bool {
	for _, p := range patterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}

// TypeBase strips the instrument qualifier from an item-type key.
func TypeBase(key string) string {
	if i := strings.IndexByte(key, ':'); i >= 0 {
		return key[:i]
	}
	return key
}

// TypeSimilarity scores two item-type keys: 2 identical, 1 same class or one
// side unknown, 0 different classes.
func TypeSimilarity(a, b string) int {
	switch {
	case a == b:
		return 2
	case a == "" || b == "":
		return 1
	case TypeBase(a) == TypeBase(b):
		return 1
	}
	return 0
}

// =============================================================================
// MATCH KEY
// =============================================================================

// MatchKey is the normalized (entity, item type) pair used for matching.
type MatchKey struct {
	Entity   string
	ItemType string
}

// KeyFor computes the match key of a raw entity name and item-type text.
func KeyFor(entityRaw, itemTypeRaw string) MatchKey {
	return MatchKey{Entity: Entity(entityRaw), ItemType: ItemType(itemTypeRaw)}
}
