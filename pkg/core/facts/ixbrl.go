package facts

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"holdings_extract/pkg/core/fields"
)

// =============================================================================
// INLINE XBRL READER - facts embedded in the filing HTML
// =============================================================================

// ixContext is the identifier and period of one xbrli:context.
type ixContext struct {
	identifier string
	start, end string
}

var camelBreak = regexp.MustCompile(`([a-z0-9])([A-Z])`)

// ReadInlineXBRL collects ix:nonFraction and ix:nonNumeric facts from an
// inline XBRL document, resolving each contextRef to the context's investment
// identifier. The HTML parser lower-cases tag and attribute names, so the
// element names are compared in lower case.
func ReadInlineXBRL(html string) ([]RawFact, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse inline xbrl: %w", err)
	}

	contexts := make(map[string]ixContext)
	units := make(map[string]string)
	var factNodes []*goquery.Selection

	doc.Find("*").Each(func(_ int, s *goquery.Selection) {
		switch goquery.NodeName(s) {
		case "xbrli:context":
			id, _ := s.Attr("id")
			contexts[id] = readContext(s)
		case "xbrli:unit":
			id, _ := s.Attr("id")
			units[id] = strings.TrimSpace(firstByName(s, "xbrli:measure").Text())
		case "ix:nonfraction", "ix:nonnumeric":
			factNodes = append(factNodes, s)
		}
	})

	out := make([]RawFact, 0, len(factNodes))
	for _, s := range factNodes {
		ctxRef, _ := s.Attr("contextref")
		ctx := contexts[ctxRef]
		name, _ := s.Attr("name")
		unitRef, _ := s.Attr("unitref")

		value := strings.TrimSpace(s.Text())
		if goquery.NodeName(s) == "ix:nonfraction" {
			value = numericValue(s, value)
		}
		out = append(out, RawFact{
			ContextID:  ctxRef,
			Identifier: ctx.identifier,
			Concept:    name,
			Value:      value,
			Unit:       units[unitRef],
			StartDate:  ctx.start,
			EndDate:    ctx.end,
		})
	}
	return out, nil
}

// readContext extracts the investment identifier from a typed member on the
// InvestmentIdentifierAxis, falling back to an explicit member name.
func readContext(s *goquery.Selection) ixContext {
	var ctx ixContext
	s.Find("*").Each(func(_ int, n *goquery.Selection) {
		switch goquery.NodeName(n) {
		case "xbrldi:typedmember":
			if dim, _ := n.Attr("dimension"); strings.Contains(strings.ToLower(dim), "investmentidentifieraxis") || ctx.identifier == "" {
				ctx.identifier = strings.TrimSpace(n.Text())
			}
		case "xbrldi:explicitmember":
			if ctx.identifier == "" {
				if dim, _ := n.Attr("dimension"); strings.Contains(strings.ToLower(dim), "investment") {
					ctx.identifier = memberToPhrase(n.Text())
				}
			}
		case "xbrli:startdate":
			ctx.start = strings.TrimSpace(n.Text())
		case "xbrli:enddate", "xbrli:instant":
			ctx.end = strings.TrimSpace(n.Text())
		}
	})
	return ctx
}

// memberToPhrase turns "acme:AcmeCorpFirstLienTermLoanMember" into
// "Acme Corp First Lien Term Loan".
func memberToPhrase(member string) string {
	m := strings.TrimSpace(member)
	if i := strings.LastIndexByte(m, ':'); i >= 0 {
		m = m[i+1:]
	}
	m = strings.TrimSuffix(m, "Member")
	return camelBreak.ReplaceAllString(m, "$1 $2")
}

func firstByName(s *goquery.Selection, name string) *goquery.Selection {
	var found *goquery.Selection
	s.Find("*").EachWithBreak(func(_ int, n *goquery.Selection) bool {
		if goquery.NodeName(n) == name {
			found = n
			return false
		}
		return true
	})
	if found == nil {
		return s.Slice(0, 0)
	}
	return found
}

// numericValue applies the ix:nonFraction scale and sign attributes to the
// displayed text, returning a plain decimal string.
func numericValue(s *goquery.Selection, text string) string {
	if nilAttr, _ := s.Attr("xsi:nil"); nilAttr == "true" {
		return ""
	}
	d, ok := fields.ParseAmount(text)
	if !ok {
		if format, _ := s.Attr("format"); strings.Contains(format, "zerodash") || strings.Contains(format, "fixed-zero") {
			return "0"
		}
		return text
	}
	if scale, ok := s.Attr("scale"); ok {
		if n, err := strconv.Atoi(scale); err == nil {
			d = d.Shift(int32(n))
		}
	}
	if sign, _ := s.Attr("sign"); sign == "-" {
		d = d.Neg()
	}
	return d.String()
}
