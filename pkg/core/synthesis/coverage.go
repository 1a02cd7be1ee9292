package synthesis

import (
	"fmt"
	"log"

	"holdings_extract/pkg/core/fields"
)

// =============================================================================
// COVERAGE SCORER
// =============================================================================

const (
	DefaultOverallThreshold  = 0.35
	DefaultCriticalThreshold = 0.6
)

// DefaultCriticalFields must be well covered for a filing to pass.
var DefaultCriticalFields = []fields.Field{
	fields.EntityName,
	fields.PrincipalAmount,
	fields.Cost,
	fields.FairValue,
}

// CoverageOptions sets the low-quality thresholds.
type CoverageOptions struct {
	OverallThreshold  float64
	CriticalThreshold float64
	CriticalFields    []fields.Field
}

// DefaultCoverageOptions returns the default thresholds.
func DefaultCoverageOptions() CoverageOptions {
	return CoverageOptions{
		OverallThreshold:  DefaultOverallThreshold,
		CriticalThreshold: DefaultCriticalThreshold,
		CriticalFields:    DefaultCriticalFields,
	}
}

// CoverageReport is the quality signal of one filing's extraction.
type CoverageReport struct {
	Records       int                      `json:"records"`
	PerField      map[fields.Field]float64 `json:"per_field"`
	Overall       float64                  `json:"overall"`
	Flagged       bool                     `json:"flagged"`
	FlagReasons   []string                 `json:"flag_reasons,omitempty"`
	LowConfidence int                      `json:"low_confidence"`
	SingleSource  int                      `json:"single_source"`
}

// ScoreCoverage computes per-field coverage (non-null / records) and the
// overall mean over the standard field set, flagging the filing when the
// overall or any critical field falls below its threshold. An empty record
// set is flagged.
func ScoreCoverage(records []UnifiedRecord, opts CoverageOptions) CoverageReport {
	report := CoverageReport{
		Records:  len(records),
		PerField: make(map[fields.Field]float64, len(fields.StandardFields)),
	}

	counts := make(map[fields.Field]int, len(fields.StandardFields))
	for i := range records {
		r := &records[i]
		for _, f := range fields.StandardFields {
			if r.Has(f) {
				counts[f]++
			}
		}
		if r.LowConfidence {
			report.LowConfidence++
		}
		if r.SingleSource() {
			report.SingleSource++
		}
	}

	sum := 0.0
	for _, f := range fields.StandardFields {
		frac := 0.0
		if len(records) > 0 {
			frac = float64(counts[f]) / float64(len(records))
		}
		report.PerField[f] = frac
		sum += frac
	}
	report.Overall = sum / float64(len(fields.StandardFields))

	if len(records) == 0 {
		report.Flagged = true
		report.FlagReasons = append(report.FlagReasons, "no records extracted")
		return report
	}
	if report.Overall < opts.OverallThreshold {
		report.FlagReasons = append(report.FlagReasons,
			fmt.Sprintf("overall coverage %.2f below %.2f", report.Overall, opts.OverallThreshold))
	}
	for _, f := range opts.CriticalFields {
		if report.PerField[f] < opts.CriticalThreshold {
			report.FlagReasons = append(report.FlagReasons,
				fmt.Sprintf("%s coverage %.2f below %.2f", f, report.PerField[f], opts.CriticalThreshold))
		}
	}
	report.Flagged = len(report.FlagReasons) > 0

	log.Printf("[Coverage] records=%d, overall=%.2f, flagged=%v", report.Records, report.Overall, report.Flagged)
	return report
}
