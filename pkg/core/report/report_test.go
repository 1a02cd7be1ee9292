package report

import (
	"strings"
	"testing"

	"holdings_extract/pkg/core/fields"
	"holdings_extract/pkg/core/match"
	"holdings_extract/pkg/core/pipeline"
	"holdings_extract/pkg/core/schedule"
	"holdings_extract/pkg/core/synthesis"
)

func sampleOutcome() *pipeline.ExtractionOutcome {
	per := make(map[fields.Field]float64)
	for _, f := range fields.StandardFields {
		per[f] = 0.5
	}
	return &pipeline.ExtractionOutcome{
		FilingID: "acme-10k",
		Coverage: synthesis.CoverageReport{
			Records:     2,
			PerField:    per,
			Overall:     0.5,
			Flagged:     true,
			FlagReasons: []string{"cost coverage 0.50 below 0.60"},
		},
		Skipped:   []schedule.TableSkip{{TableID: "t003-abcd", Reason: "no header row reached threshold 3", Score: 1}},
		Ambiguous: []pipeline.AmbiguousPair{{Entity: "Acme | Holdings", Method: match.MethodFuzzy, Reason: "several rows equally close"}},
		Structural: &pipeline.StructuralMiss{
			Kinds:  []string{pipeline.MissNoFactContexts},
			Reason: "none of 3 fact contexts matched an investment type",
		},
	}
}

func TestRenderMarkdown(t *testing.T) {
	md := RenderMarkdown(sampleOutcome())

	for _, want := range []string{
		"# Coverage report: acme-10k",
		"**Status:** FLAGGED",
		"- cost coverage 0.50 below 0.60",
		"| principal_amount | 50.0% |",
		"| t003-abcd | 1 | no header row reached threshold 3 |",
		`Acme \| Holdings`,
		"## Structural miss",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}
	if strings.Contains(md, "alternate document") {
		t.Error("retry hint only applies when RetryWithAlternate is set")
	}
}

func TestRenderHTML(t *testing.T) {
	page, err := RenderHTML(sampleOutcome())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(page, "<!DOCTYPE html>") || !strings.Contains(page, "<table>") {
		t.Errorf("unexpected page:\n%s", page)
	}
}

func TestRenderBatch(t *testing.T) {
	rep := &pipeline.BatchReport{
		RunID:     "run-1",
		Submitted: 3,
		Published: 1,
		Retry:     []string{"b"},
		Failed:    map[string]string{"c": "load: boom"},
	}
	md := RenderBatchMarkdown(rep)
	for _, want := range []string{"# Batch run run-1", "| 3 | 1 | 1 | 0 | 0 |", "- b", "- c: load: boom"} {
		if !strings.Contains(md, want) {
			t.Errorf("missing %q:\n%s", want, md)
		}
	}
	if _, err := RenderBatchHTML(rep); err != nil {
		t.Fatal(err)
	}
}
