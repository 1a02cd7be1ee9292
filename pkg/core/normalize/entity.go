// Package normalize turns noisy issuer names and investment-type descriptions
// into comparison keys used by the cross-source matcher.
package normalize

import (
	"html"
	"regexp"
	"strings"
	"unicode"
)

// =============================================================================
// ENTITY NORMALIZER
// =============================================================================

var (
	// entities html.UnescapeString does not know, e.g. "&foo;"
	entityArtifact = regexp.MustCompile(`&#?[a-z0-9]+;?`)
	// parenthetical footnote markers: "(1)", "(2)(3)", "(a)", "(*)"
	footnoteMarker = regexp.MustCompile(`\((\d{1,3}|[a-z]|\*+|†|‡)\)`)
	// bracketed footnote references: "[1]"
	bracketMarker = regexp.MustCompile(`\[\s*\d{1,3}\s*\]`)
)

// legalSuffixes are stripped from the tail, longest first. Multi-token entries
// cover dotted spellings after punctuation collapse ("L.L.C." → "l l c").
var legalSuffixes = [][]string{
	{"l", "l", "c"},
	{"l", "p"},
	{"corporation"},
	{"incorporated"},
	{"company"},
	{"limited"},
	{"llc"},
	{"inc"},
	{"corp"},
	{"ltd"},
	{"lp"},
	{"co"},
}

// Entity canonicalizes a raw issuer name into a comparison key.
// Steps: decode HTML entities, lowercase, strip leftover entity artifacts and
// footnote markers, collapse
// punctuation and whitespace, then strip trailing numerals and legal suffixes
// until neither applies. The result contains only lower-case letters, digits
// and single spaces, which makes Entity(Entity(x)) == Entity(x).
//
// Examples:
//
//	"Acme Corp."               → "acme"
//	"ACME, LLC (1)(2)"         → "acme"
//	"Smith &amp; Wesson, Inc." → "smith wesson"
//	"Company"                  → "company"
func Entity(raw string) string {
	s := strings.ToLower(unescape(raw))
	s = entityArtifact.ReplaceAllString(s, " ")
	s = footnoteMarker.ReplaceAllString(s, " ")
	s = bracketMarker.ReplaceAllString(s, " ")

	tokens := tokenize(s)
	return strings.Join(stripTail(tokens), " ")
}

// unescape decodes HTML entities until none are left, so "&amp;amp;" and
// "&amp;#65;" resolve fully. Each pass never grows the string.
func unescape(s string) string {
	for {
		next := html.UnescapeString(s)
		if next == s {
			return s
		}
		s = next
	}
}

// tokenize splits on anything that is not a letter or decimal digit.
func tokenize(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r))
	})
}

// stripTail removes trailing footnote numerals and legal suffixes until a
// fixed point is reached. A name is never reduced to nothing.
func stripTail(tokens []string) []string {
	for {
		changed := false
		for len(tokens) > 1 && isNumeral(tokens[len(tokens)-1]) {
			tokens = tokens[:len(tokens)-1]
			changed = true
		}
		for _, suffix := range legalSuffixes {
			if len(tokens) > len(suffix) && hasTail(tokens, suffix) {
				tokens = tokens[:len(tokens)-len(suffix)]
				changed = true
				break
			}
		}
		if !changed {
			return tokens
		}
	}
}

func hasTail(tokens, suffix []string) bool {
	off := len(tokens) - len(suffix)
	for i, s := range suffix {
		if tokens[off+i] != s {
			return false
		}
	}
	return true
}

func isNumeral(tok string) bool {
	for _, r := range tok {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return tok != ""
}

// HasLegalSuffix reports whether a raw name ends in a legal-entity suffix.
// Used to tell company rows from industry group headings.
func HasLegalSuffix(raw string) bool {
	s := footnoteMarker.ReplaceAllString(strings.ToLower(unescape(raw)), " ")
	tokens := tokenize(s)
	for len(tokens) > 0 && isNumeral(tokens[len(tokens)-1]) {
		tokens = tokens[:len(tokens)-1]
	}
	for _, suffix := range legalSuffixes {
		if len(tokens) >= len(suffix) && hasTail(tokens, suffix) {
			return true
		}
	}
	return false
}
