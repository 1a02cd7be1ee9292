package facts

import (
	"fmt"
	"regexp"
	"strings"

	"holdings_extract/pkg/core/fields"
)

// =============================================================================
// IDENTIFIER SPLITTING - "Acme Corp, First Lien Senior Secured Loan"
// =============================================================================

// FragmentRule recognizes the start of an item-type fragment.
type FragmentRule struct {
	Name    string
	Pattern *regexp.Regexp
}

func rule(name, expr string) FragmentRule {
	return FragmentRule{Name: name, Pattern: regexp.MustCompile(`(?i)\b` + expr)}
}

// DefaultFragmentRules are ordered most specific first.
var DefaultFragmentRules = []FragmentRule{
	rule("first_lien", `(first|1st)[\s-]+lien\b`),
	rule("second_lien", `(second|2nd)[\s-]+lien\b`),
	rule("unitranche", `unitranche\b`),
	rule("last_out", `(first|last)[\s-]+out\b`),
	rule("senior_subordinated", `senior\s+subordinated\b`),
	rule("senior_secured", `senior\s+secured\b`),
	rule("unsecured_facility", `(senior\s+)?unsecured\s+(facility|loan|term\s+loan|notes?|debt|bonds?)\b`),
	rule("subordinated", `subordinated\s+(debt|notes?|loan|term\s+loan|debentures?)\b`),
	rule("mezzanine", `mezzanine\b`),
	rule("convertible", `convertible\s+(notes?|debt|preferred|debentures?)\b`),
	rule("preferred", `((series|class)\s+[a-z0-9-]+\s+)?preferred\s*(stock|equity|units|shares|interests?)?\b`),
	rule("common", `common\s+(stock|equity|units|shares)\b`),
	rule("class_units", `(class|series)\s+[a-z0-9-]+\s+(units|shares|common|interests?)\b`),
	rule("membership", `membership\s+(units|interests?)\b`),
	rule("partnership", `(llc|lp|partnership)\s+interests?\b`),
	rule("warrants", `warrants?\b`),
	rule("revolver", `(revolving|revolver)\b`),
	rule("delayed_draw", `delayed[\s-]+draw\b`),
	rule("term_loan", `term\s+loans?\b`),
	rule("generic", `(secured\s+)?(loan|notes?|bonds?|debt|equity|units|shares)\b`),
}

// CompileFragmentRules compiles issuer-specific fragment expressions.
func CompileFragmentRules(exprs []string) ([]FragmentRule, error) {
	out := make([]FragmentRule, 0, len(exprs))
	for i, e := range exprs {
		re, err := regexp.Compile(`(?i)\b` + e)
		if err != nil {
			return nil, fmt.Errorf("fragment rule %d %q: %w", i, e, err)
		}
		out = append(out, FragmentRule{Name: "override", Pattern: re})
	}
	return out, nil
}

// IdentifierParser splits identifier strings into entity and type fragment.
type IdentifierParser struct {
	rules []FragmentRule
}

// NewIdentifierParser creates a parser. Extra rules take precedence over the defaults.
func NewIdentifierParser(extra []FragmentRule) *IdentifierParser {
	rules := make([]FragmentRule, 0, len(extra)+len(DefaultFragmentRules))
	rules = append(rules, extra...)
	rules = append(rules, DefaultFragmentRules...)
	return &IdentifierParser{rules: rules}
}

// Split is the parsed form of one identifier string.
type Split struct {
	EntityName string
	Fragment   string
	Rule       string
	Recognized bool
	Terms      fields.Set // rate and date terms embedded in the identifier
}

var (
	memberSuffix = regexp.MustCompile(`(?i)\s*(\[member\]|member)\s*$`)
	datePrefix   = regexp.MustCompile(`(?i)^(due|maturity(\s+date)?|matures?|expires?|expiration)\b[:\s]*`)
	acqPrefix    = regexp.MustCompile(`(?i)^(acquired|acquisition(\s+date)?|initial\s+acquisition(\s+date)?)\b[:\s]*`)
	entityTrim   = " ,-–—:;|"
)

// Split parses an identifier. When no fragment rule applies, the whole
// identifier becomes the entity name and Recognized is false.
func (p *IdentifierParser) Split(identifier string) Split {
	cleaned := strings.TrimSpace(memberSuffix.ReplaceAllString(strings.TrimSpace(identifier), ""))
	out := Split{Terms: fields.Set{}}

	rest := p.pullTerms(cleaned, out.Terms)

	if entity, frag, name, ok := p.splitAtSegment(rest); ok {
		out.EntityName, out.Fragment, out.Rule, out.Recognized = entity, frag, name, true
		return out
	}
	if entity, frag, name, ok := p.splitByPriority(rest); ok {
		out.EntityName, out.Fragment, out.Rule, out.Recognized = entity, frag, name, true
		return out
	}
	out.EntityName = strings.Trim(rest, entityTrim)
	return out
}

// SplitAtComma splits "Entity, Type fragment" text from a table cell. Unlike
// Split it never cuts inside a comma-free name, since table names are often
// company names that happen to contain type words.
func (p *IdentifierParser) SplitAtComma(text string) (Split, bool) {
	out := Split{Terms: fields.Set{}}
	rest := p.pullTerms(strings.TrimSpace(text), out.Terms)
	entity, frag, name, ok := p.splitAtSegment(rest)
	if !ok {
		return out, false
	}
	out.EntityName, out.Fragment, out.Rule, out.Recognized = entity, frag, name, true
	return out, true
}

// pullTerms removes comma-separated rate and date parts (after the first part)
// and records them in terms. Returns the remaining identifier text.
func (p *IdentifierParser) pullTerms(s string, terms fields.Set) string {
	parts := strings.Split(s, ",")
	if len(parts) < 2 {
		return s
	}
	keep := []string{parts[0]}
	var rateParts []string
	for _, part := range parts[1:] {
		t := strings.TrimSpace(part)
		switch {
		case strings.Contains(t, "%"):
			rateParts = append(rateParts, t)
		case acqPrefix.MatchString(t):
			if d, ok := fields.ParseDate(t); ok {
				terms.PutIfAbsent(fields.AcquisitionDate, fields.DateValue(d, t))
				continue
			}
			keep = append(keep, part)
		case datePrefix.MatchString(t) || isBareDate(t):
			if d, ok := fields.ParseDate(t); ok {
				terms.PutIfAbsent(fields.MaturityDate, fields.DateValue(d, t))
				continue
			}
			keep = append(keep, part)
		default:
			keep = append(keep, part)
		}
	}
	if len(rateParts) > 0 {
		joined := strings.Join(rateParts, ", ")
		if rc, ok := fields.ParseRate(joined); ok {
			rc.Fill(terms, joined)
		}
	}
	return strings.Join(keep, ",")
}

func isBareDate(s string) bool {
	_, ok := fields.ParseDate(s)
	return ok && len(strings.Fields(s)) <= 3
}

// splitAtSegment prefers the longest fragment that starts a comma-separated segment.
func (p *IdentifierParser) splitAtSegment(s string) (entity, frag, name string, ok bool) {
	for i := 0; i < len(s); i++ {
		if s[i] != ',' {
			continue
		}
		tail := strings.TrimLeft(s[i+1:], " ")
		for _, r := range p.rules {
			if loc := r.Pattern.FindStringIndex(tail); loc != nil && loc[0] == 0 {
				entity = strings.Trim(s[:i], entityTrim)
				if entity == "" {
					break
				}
				return entity, strings.TrimSpace(tail), r.Name, true
			}
		}
	}
	return "", "", "", false
}

// splitByPriority applies the rules in specificity order, taking the first
// occurrence that leaves a non-empty entity name before it.
func (p *IdentifierParser) splitByPriority(s string) (entity, frag, name string, ok bool) {
	for _, r := range p.rules {
		for _, loc := range r.Pattern.FindAllStringIndex(s, -1) {
			entity = strings.Trim(s[:loc[0]], entityTrim)
			if entity == "" {
				continue
			}
			return entity, strings.Trim(s[loc[0]:], entityTrim), r.Name, true
		}
	}
	return "", "", "", false
}
