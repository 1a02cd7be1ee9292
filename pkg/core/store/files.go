package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"

	"holdings_extract/pkg/core/pipeline"
	"holdings_extract/pkg/core/report"
	"holdings_extract/pkg/core/synthesis"
)

// Files written per filing.
const (
	RecordsJSON = "records.json"
	RecordsCSV  = "records.csv"
	OutcomeJSON = "outcome.json"
	ReportHTML  = "coverage.html"
)

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// FileSink writes each outcome to its own directory under Dir. The files
// are staged in a temporary directory and renamed into place, so a filing
// directory is either complete or absent.
type FileSink struct {
	Dir string
}

// NewFileSink creates a sink under dir.
func NewFileSink(dir string) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &FileSink{Dir: dir}, nil
}

// FilingDir returns the output directory of a filing.
func (s *FileSink) FilingDir(filingID string) string {
	return filepath.Join(s.Dir, unsafeName.ReplaceAllString(filingID, "_"))
}

// Processed reports whether a filing already has output.
func (s *FileSink) Processed(filingID string) bool {
	_, err := os.Stat(filepath.Join(s.FilingDir(filingID), OutcomeJSON))
	return err == nil
}

// Publish writes records.json, records.csv, outcome.json and coverage.html.
func (s *FileSink) Publish(ctx context.Context, out *pipeline.ExtractionOutcome) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	files, err := renderFiles(out)
	if err != nil {
		return err
	}

	stage, err := os.MkdirTemp(s.Dir, ".staging-")
	if err != nil {
		return fmt.Errorf("create staging dir: %w", err)
	}
	defer os.RemoveAll(stage)

	for name, data := range files {
		if err := os.WriteFile(filepath.Join(stage, name), data, 0644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}

	dest := s.FilingDir(out.FilingID)
	if err := os.RemoveAll(dest); err != nil {
		return fmt.Errorf("replace %s: %w", dest, err)
	}
	if err := os.Rename(stage, dest); err != nil {
		return fmt.Errorf("publish %s: %w", dest, err)
	}
	log.Printf("[FileSink] %s: %d records → %s", out.FilingID, len(out.Records), dest)
	return nil
}

// Retract removes a filing's output directory.
func (s *FileSink) Retract(ctx context.Context, filingID string) error {
	if err := os.RemoveAll(s.FilingDir(filingID)); err != nil {
		return fmt.Errorf("retract %s: %w", filingID, err)
	}
	return nil
}

// renderFiles builds every output file in memory first.
func renderFiles(out *pipeline.ExtractionOutcome) (map[string][]byte, error) {
	recs := out.Records
	if recs == nil {
		recs = []synthesis.UnifiedRecord{}
	}
	records, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal records: %w", err)
	}

	var csvBuf bytes.Buffer
	if err := WriteCSV(&csvBuf, out.Records); err != nil {
		return nil, err
	}

	sidecar, err := json.MarshalIndent(Sidecar(out), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal outcome: %w", err)
	}

	page, err := report.RenderHTML(out)
	if err != nil {
		return nil, err
	}

	return map[string][]byte{
		RecordsJSON: records,
		RecordsCSV:  csvBuf.Bytes(),
		OutcomeJSON: sidecar,
		ReportHTML:  []byte(page),
	}, nil
}

// Sidecar returns the outcome without its records, for the outcome.json
// file and the Postgres outcome row.
func Sidecar(out *pipeline.ExtractionOutcome) *pipeline.ExtractionOutcome {
	s := *out
	s.Records = nil
	return &s
}
