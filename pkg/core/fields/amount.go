package fields

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MONETARY / PERCENTAGE TOKENS
// =============================================================================

var (
	blankTokens = map[string]bool{
		"": true, "—": true, "–": true, "-": true, "--": true, "n/a": true, "na": true, "nm": true, "*": true,
	}
	currencySymbols = []struct {
		symbol string
		code   string
	}{
		{"US$", "USD"},
		{"C$", "CAD"},
		{"CAD", "CAD"},
		{"A$", "AUD"},
		{"AUD", "AUD"},
		{"USD", "USD"},
		{"EUR", "EUR"},
		{"GBP", "GBP"},
		{"$", "USD"},
		{"€", "EUR"},
		{"£", "GBP"},
		{"¥", "JPY"},
	}
	numberToken = regexp.MustCompile(`^-?\d+(\.\d+)?$`)
	// trailing footnote markers such as "1,234 (3)" or "1,234(a)(b)"
	footnoteTail = regexp.MustCompile(`(?i)(\s*\((\d{1,2}|[a-z])\))+$`)
	hasDigit     = regexp.MustCompile(`\d`)
)

// IsBlank reports whether a cell is an explicit null marker (dash, em-dash, N/A).
func IsBlank(raw string) bool {
	return blankTokens[strings.ToLower(strings.TrimSpace(raw))]
}

// DetectCurrency returns the ISO code of a currency symbol embedded in raw, or "".
func DetectCurrency(raw string) string {
	for _, c := range currencySymbols {
		if strings.Contains(raw, c.symbol) {
			return c.code
		}
	}
	return ""
}

// IsCurrencySymbol reports whether a whole cell is just a currency marker.
func IsCurrencySymbol(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false
	}
	for _, c := range currencySymbols {
		if raw == c.symbol {
			return true
		}
	}
	return false
}

// ParseAmount parses a monetary or quantity token.
// Handles:
//
//	"$1,234.56"  → 1234.56
//	"(1,234)"    → -1234
//	"$ (15,234)" → -15234
//	"—" or ""    → not ok
func ParseAmount(raw string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(raw)
	if IsBlank(s) {
		return decimal.Decimal{}, false
	}
	if loc := footnoteTail.FindStringIndex(s); loc != nil && hasDigit.MatchString(s[:loc[0]]) {
		s = s[:loc[0]]
	}
	s = strings.ToUpper(s)
	for _, c := range currencySymbols {
		s = strings.ReplaceAll(s, c.symbol, "")
	}
	s = strings.NewReplacer(",", "", " ", "", "\u00a0", "", "−", "-").Replace(s)

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	} else if strings.HasPrefix(s, "(") && !strings.Contains(s, ")") {
		// a split cell: "(1,234" with ")" in the next column
		negative = true
		s = s[1:]
	}
	s = strings.TrimSuffix(s, ")")
	if IsBlank(s) || !numberToken.MatchString(s) {
		return decimal.Decimal{}, false
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	if negative && d.IsPositive() {
		d = d.Neg()
	}
	return d, true
}

// ParsePercent parses "10.50%", "10.50" or "(1.2)%" into a percentage-point value.
func ParsePercent(raw string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(raw)
	s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
	s = strings.ReplaceAll(s, "%", "")
	return ParseAmount(s)
}

// Scale multiplies amounts reported "in thousands" or "in millions".
type Scale int32

const (
	ScaleUnits     Scale = 0
	ScaleThousands Scale = 3
	ScaleMillions  Scale = 6
)

// DetectScale analyzes a table caption to determine value scale.
// Examples:
//
//	"(in thousands)"            → ScaleThousands
//	"($ in millions)"           → ScaleMillions
//	"Schedule of Investments"   → ScaleUnits
func DetectScale(text string) Scale {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "in millions"), strings.Contains(lower, "(millions"):
		return ScaleMillions
	case strings.Contains(lower, "in thousands"), strings.Contains(lower, "(thousands"), strings.Contains(lower, "000s omitted"):
		return ScaleThousands
	}
	return ScaleUnits
}

// Apply shifts d by the scale's power of ten.
func (s Scale) Apply(d decimal.Decimal) decimal.Decimal {
	if s == ScaleUnits {
		return d
	}
	return d.Shift(int32(s))
}
