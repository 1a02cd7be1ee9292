// Package pipeline runs the extraction engine over filings: one filing is
// processed sequentially (tables → rows, facts → records, match, merge,
// score), and many filings run on a bounded worker pool.
package pipeline

import (
	"errors"
	"fmt"
	"log"
	"time"

	"holdings_extract/pkg/core/config"
	"holdings_extract/pkg/core/facts"
	"holdings_extract/pkg/core/ingest"
	"holdings_extract/pkg/core/match"
	"holdings_extract/pkg/core/schedule"
	"holdings_extract/pkg/core/synthesis"
)

// ErrNoInput is returned for a filing with neither schedule tables nor facts.
var ErrNoInput = errors.New("filing has neither schedule tables nor facts")

// Structural miss kinds.
const (
	MissNoScheduleTable = "no_schedule_table"
	MissNoFactContexts  = "no_fact_contexts"
)

// StructuralMiss explains a filing for which one source yielded nothing.
type StructuralMiss struct {
	Kinds  []string `json:"kinds"`
	Reason string   `json:"reason"`
}

// AmbiguousPair describes a low-confidence match for operator review.
type AmbiguousPair struct {
	Entity string       `json:"entity"`
	Method match.Method `json:"method"`
	Reason string       `json:"reason"`
}

// ExtractionOutcome is the complete result for one filing. It is only
// published once every table and fact of the filing has been processed.
type ExtractionOutcome struct {
	RunID    string           `json:"run_id,omitempty"`
	FilingID string           `json:"filing_id"`
	Ref      ingest.FilingRef `json:"ref"`

	Records  []synthesis.UnifiedRecord `json:"records"`
	Coverage synthesis.CoverageReport  `json:"coverage"`

	Skipped   []schedule.TableSkip `json:"skipped_tables"`
	Unparsed  []schedule.Unparsed  `json:"unparsed_cells"`
	Misses    []facts.Miss         `json:"fact_misses"`
	Ambiguous []AmbiguousPair      `json:"ambiguous"`
	Dropped   int                  `json:"dropped"` // pairs without an entity name

	Structural *StructuralMiss `json:"structural_miss,omitempty"`

	// RetryWithAlternate tells batch callers another document of the filing
	// may contain the schedule.
	RetryWithAlternate bool `json:"retry_with_alternate"`

	Stats    Stats         `json:"stats"`
	Duration time.Duration `json:"duration_ns"`
}

// Stats counts the intermediate products of one extraction.
type Stats struct {
	Tables       int `json:"tables"`
	TablesParsed int `json:"tables_parsed"`
	Rows         int `json:"rows"`
	Contexts     int `json:"contexts"`
	Recognized   int `json:"recognized_contexts"`
	Exact        int `json:"exact"`
	Fuzzy        int `json:"fuzzy"`
	RowOnly      int `json:"row_only"`
	FactOnly     int `json:"fact_only"`
}

// Engine extracts filings. It holds no per-filing state and is safe for
// concurrent use.
type Engine struct {
	cfg       *config.Config
	overrides *config.OverrideRegistry
	coverage  synthesis.CoverageOptions
}

// NewEngine creates an engine. overrides may be nil.
func NewEngine(cfg *config.Config, overrides *config.OverrideRegistry) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	cov, err := cfg.CoverageOptions()
	if err != nil {
		return nil, fmt.Errorf("coverage options: %w", err)
	}
	return &Engine{cfg: cfg, overrides: overrides, coverage: cov}, nil
}

// Extract runs the full engine on one filing. Data-quality problems are
// reported in the outcome; errors are returned only for unusable input.
func (e *Engine) Extract(filing *ingest.Filing) (*ExtractionOutcome, error) {
	if filing == nil || filing.Empty() {
		return nil, ErrNoInput
	}
	start := time.Now()
	ref := filing.Ref
	ov := e.overrides.Get(ref.CIK)

	schedOpts, err := e.cfg.ScheduleOptions(ov)
	if err != nil {
		return nil, err
	}
	factOpts, err := e.cfg.FactOptions(ov, ref.PeriodEnd)
	if err != nil {
		return nil, err
	}

	tables := filing.Tables
	if len(tables) == 0 && filing.HTML != "" {
		if tables, err = schedule.ReadHTMLTables(filing.HTML); err != nil {
			return nil, fmt.Errorf("%s: %w", ref.ID, err)
		}
	}

	// 1. Tables → provisional rows
	tableRes := schedule.NewParser(schedOpts).Parse(tables)

	// 2. Facts → records
	factRes := facts.NewExtractor(factOpts).Extract(filing.Facts)

	// 3. Match and merge
	pairs := match.NewMatcher(e.cfg.MatchOptions()).Match(tableRes.Rows, factRes.Records)
	records, dropped := synthesis.NewMerger().Merge(pairs)

	out := &ExtractionOutcome{
		FilingID: ref.ID,
		Ref:      ref,
		Records:  records,
		Coverage: synthesis.ScoreCoverage(records, e.coverage),
		Skipped:  tableRes.Skipped,
		Unparsed: tableRes.Unparsed,
		Misses:   factRes.Misses,
		Dropped:  dropped,
		Stats: Stats{
			Tables:       tableRes.Tables,
			TablesParsed: tableRes.Parsed,
			Rows:         len(tableRes.Rows),
			Contexts:     factRes.Contexts,
			Recognized:   factRes.RecognizedCount(),
		},
	}
	for _, p := range pairs {
		switch p.Method {
		case match.MethodExact:
			out.Stats.Exact++
		case match.MethodFuzzy:
			out.Stats.Fuzzy++
		case match.MethodRowOnly:
			out.Stats.RowOnly++
		case match.MethodFactOnly:
			out.Stats.FactOnly++
		}
		if p.LowConfidence {
			out.Ambiguous = append(out.Ambiguous, AmbiguousPair{Entity: pairEntity(p), Method: p.Method, Reason: p.Reason})
		}
	}

	out.Structural = structuralMiss(filing, tableRes, factRes)
	out.RetryWithAlternate = out.Structural != nil && out.Structural.has(MissNoScheduleTable)
	out.Duration = time.Since(start)

	log.Printf("[Pipeline] SUMMARY %s: records=%d, rows=%d, contexts=%d, exact=%d, fuzzy=%d, coverage=%.2f, flagged=%v, structural=%v",
		ref.ID, len(records), len(tableRes.Rows), factRes.Contexts, out.Stats.Exact, out.Stats.Fuzzy,
		out.Coverage.Overall, out.Coverage.Flagged, out.Structural != nil)
	return out, nil
}

// structuralMiss reports a source that was supplied but yielded nothing: no
// table reached the header threshold, or no fact context matched a type rule.
func structuralMiss(filing *ingest.Filing, tableRes *schedule.Result, factRes *facts.Result) *StructuralMiss {
	var miss StructuralMiss
	if tableRes.Parsed == 0 {
		miss.Kinds = append(miss.Kinds, MissNoScheduleTable)
		miss.Reason = fmt.Sprintf("none of %d tables reached the header threshold", tableRes.Tables)
	}
	if len(filing.Facts) > 0 && factRes.RecognizedCount() == 0 {
		miss.Kinds = append(miss.Kinds, MissNoFactContexts)
		reason := fmt.Sprintf("none of %d fact contexts matched an investment type", factRes.Contexts)
		if miss.Reason != "" {
			reason = miss.Reason + "; " + reason
		}
		miss.Reason = reason
	}
	if len(miss.Kinds) == 0 {
		return nil
	}
	return &miss
}

func (m *StructuralMiss) has(kind string) bool {
	for _, k := range m.Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

func pairEntity(p match.Pair) string {
	if p.Row != nil {
		return p.Row.EntityNameRaw
	}
	if p.Fact != nil {
		return p.Fact.EntityNameRaw
	}
	return ""
}
