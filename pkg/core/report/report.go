// Package report renders extraction outcomes for operator review: the
// coverage report of one filing and the summary of a batch run.
package report

import (
	"fmt"
	"html"
	"sort"
	"strings"

	"holdings_extract/pkg/core/fields"
	"holdings_extract/pkg/core/pipeline"
	"holdings_extract/pkg/core/utils"
)

// maxListed caps the skipped / unparsed / ambiguous lists in a report.
const maxListed = 25

// RenderMarkdown writes the coverage report of one filing.
func RenderMarkdown(out *pipeline.ExtractionOutcome) string {
	var b strings.Builder
	cov := out.Coverage

	fmt.Fprintf(&b, "# Coverage report: %s\n\n", out.FilingID)
	if out.Ref.Issuer != "" || out.Ref.PeriodEnd != "" {
		fmt.Fprintf(&b, "%s, period ended %s\n\n", orDash(out.Ref.Issuer), orDash(out.Ref.PeriodEnd))
	}

	status := "OK"
	if cov.Flagged {
		status = "FLAGGED"
	}
	fmt.Fprintf(&b, "**Status:** %s  \n", status)
	fmt.Fprintf(&b, "**Records:** %d (low confidence %d, single source %d)  \n", cov.Records, cov.LowConfidence, cov.SingleSource)
	fmt.Fprintf(&b, "**Overall coverage:** %s\n\n", pct(cov.Overall))

	if len(cov.FlagReasons) > 0 {
		b.WriteString("## Flags\n\n")
		for _, r := range cov.FlagReasons {
			fmt.Fprintf(&b, "- %s\n", r)
		}
		b.WriteString("\n")
	}

	if s := out.Structural; s != nil {
		b.WriteString("## Structural miss\n\n")
		fmt.Fprintf(&b, "%s (%s)\n\n", s.Reason, strings.Join(s.Kinds, ", "))
		if out.RetryWithAlternate {
			b.WriteString("Retry with an alternate document of this filing.\n\n")
		}
	}

	b.WriteString("## Field coverage\n\n| Field | Coverage |\n|---|---:|\n")
	for _, f := range fields.StandardFields {
		fmt.Fprintf(&b, "| %s | %s |\n", f, pct(cov.PerField[f]))
	}
	b.WriteString("\n")

	st := out.Stats
	b.WriteString("## Sources\n\n| Stage | Count |\n|---|---:|\n")
	for _, row := range []struct {
		label string
		n     int
	}{
		{"Tables read", st.Tables},
		{"Tables parsed", st.TablesParsed},
		{"Table rows", st.Rows},
		{"Fact contexts", st.Contexts},
		{"Recognized contexts", st.Recognized},
		{"Exact matches", st.Exact},
		{"Fuzzy matches", st.Fuzzy},
		{"Table only", st.RowOnly},
		{"Facts only", st.FactOnly},
	} {
		fmt.Fprintf(&b, "| %s | %d |\n", row.label, row.n)
	}
	b.WriteString("\n")

	if len(out.Skipped) > 0 {
		b.WriteString("## Skipped tables\n\n| Table | Best header score | Reason |\n|---|---:|---|\n")
		for i, s := range out.Skipped {
			if i == maxListed {
				fmt.Fprintf(&b, "| … | | %d more |\n", len(out.Skipped)-maxListed)
				break
			}
			fmt.Fprintf(&b, "| %s | %d | %s |\n", s.TableID, s.Score, cell(s.Reason))
		}
		b.WriteString("\n")
	}

	if len(out.Ambiguous) > 0 {
		b.WriteString("## Low-confidence matches\n\n| Entity | Method | Reason |\n|---|---|---|\n")
		for i, a := range out.Ambiguous {
			if i == maxListed {
				fmt.Fprintf(&b, "| … | | %d more |\n", len(out.Ambiguous)-maxListed)
				break
			}
			fmt.Fprintf(&b, "| %s | %s | %s |\n", cell(a.Entity), a.Method, cell(a.Reason))
		}
		b.WriteString("\n")
	}

	if n := len(out.Unparsed) + len(out.Misses); n > 0 {
		b.WriteString("## Parse misses\n\n")
		reasons := make(map[string]int)
		for _, u := range out.Unparsed {
			reasons["table: "+u.Reason]++
		}
		for _, m := range out.Misses {
			reasons["facts: "+m.Reason]++
		}
		keys := make([]string, 0, len(reasons))
		for k := range reasons {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "- %s: %d\n", k, reasons[k])
		}
		b.WriteString("\n")
	}

	return b.String()
}

// RenderHTML renders the coverage report as a standalone HTML page.
func RenderHTML(out *pipeline.ExtractionOutcome) (string, error) {
	body, err := utils.MarkdownToHTML(RenderMarkdown(out))
	if err != nil {
		return "", err
	}
	return page("Coverage: "+out.FilingID, body), nil
}

// RenderBatchMarkdown summarises a batch run.
func RenderBatchMarkdown(rep *pipeline.BatchReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Batch run %s\n\n", rep.RunID)
	fmt.Fprintf(&b, "| Submitted | Published | Failed | Flagged | Structural misses |\n|---:|---:|---:|---:|---:|\n")
	fmt.Fprintf(&b, "| %d | %d | %d | %d | %d |\n\n", rep.Submitted, rep.Published, len(rep.Failed), rep.Flagged, rep.Structural)
	if rep.Cancelled {
		b.WriteString("The run was cancelled before every filing was submitted.\n\n")
	}
	if len(rep.Retry) > 0 {
		b.WriteString("## Retry with an alternate document\n\n")
		for _, id := range rep.Retry {
			fmt.Fprintf(&b, "- %s\n", id)
		}
		b.WriteString("\n")
	}
	if len(rep.Failed) > 0 {
		b.WriteString("## Failed filings\n\n")
		ids := make([]string, 0, len(rep.Failed))
		for id := range rep.Failed {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			fmt.Fprintf(&b, "- %s: %s\n", id, rep.Failed[id])
		}
		b.WriteString("\n")
	}
	return b.String()
}

// RenderBatchHTML renders the batch summary as a standalone HTML page.
func RenderBatchHTML(rep *pipeline.BatchReport) (string, error) {
	body, err := utils.MarkdownToHTML(RenderBatchMarkdown(rep))
	if err != nil {
		return "", err
	}
	return page("Batch "+rep.RunID, body), nil
}

func page(title, body string) string {
	return "<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>" + html.EscapeString(title) +
		"</title></head>\n<body>\n" + body + "</body></html>\n"
}

func pct(f float64) string {
	return fmt.Sprintf("%.1f%%", f*100)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// cell keeps free text from breaking a Markdown table row.
func cell(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "|", "\\|"), "\n", " ")
}
