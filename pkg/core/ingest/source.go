// Package ingest loads filings for the extraction engine: the schedule
// document (HTML) and the structured facts of each filing, from a local
// bundle directory or from SEC EDGAR.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"holdings_extract/pkg/core/facts"
	"holdings_extract/pkg/core/schedule"
	"holdings_extract/pkg/core/utils"
)

// Bundle file names inside a filing directory.
const (
	ScheduleFile = "schedule.html"
	FactsFile    = "facts.json"
	MetaFile     = "meta.json"
)

// FilingRef identifies one filing to extract.
type FilingRef struct {
	ID              string `json:"id"` // unique within a batch
	CIK             string `json:"cik"`
	Issuer          string `json:"issuer,omitempty"`
	AccessionNumber string `json:"accession_number,omitempty"`
	FormType        string `json:"form_type,omitempty"`
	PeriodEnd       string `json:"period_end,omitempty"` // YYYY-MM-DD
	Location        string `json:"location,omitempty"`   // directory or document URL
}

// Filing is one loaded filing: its schedule document and structured facts.
// Tables, when set, are used instead of reading tables from HTML.
type Filing struct {
	Ref    FilingRef
	HTML   string
	Tables []schedule.RawTable
	Facts  []facts.RawFact
}

// Empty reports whether the filing carries neither tables nor facts.
func (f *Filing) Empty() bool {
	return strings.TrimSpace(f.HTML) == "" && len(f.Tables) == 0 && len(f.Facts) == 0
}

// Source lists and loads filings.
type Source interface {
	List(ctx context.Context) ([]FilingRef, error)
	Load(ctx context.Context, ref FilingRef) (*Filing, error)
}

// NewFiling builds a filing from an in-memory document. Inline XBRL facts are
// read from the document when raw is empty.
func NewFiling(ref FilingRef, html string, raw []facts.RawFact) *Filing {
	f := &Filing{Ref: ref, HTML: html, Facts: raw}
	fillInlineFacts(f)
	return f
}

// fillInlineFacts reads inline XBRL facts from the document when the filing
// came without a separate fact bundle.
func fillInlineFacts(f *Filing) {
	if len(f.Facts) > 0 || !strings.Contains(strings.ToLower(f.HTML), "ix:nonfraction") {
		return
	}
	raw, err := facts.ReadInlineXBRL(f.HTML)
	if err != nil {
		log.Printf("[Ingest] %s: inline facts unreadable: %v", f.Ref.ID, err)
		return
	}
	f.Facts = raw
}

// =============================================================================
// DIRECTORY SOURCE
// =============================================================================

// DirSource reads filing bundles from subdirectories of Root. Each bundle has
// a meta.json and at least one of schedule.html and facts.json.
type DirSource struct {
	Root string
}

// NewDirSource creates a source over root.
func NewDirSource(root string) *DirSource {
	return &DirSource{Root: root}
}

// List returns one ref per bundle directory, sorted by name.
func (s *DirSource) List(ctx context.Context) ([]FilingRef, error) {
	entries, err := os.ReadDir(s.Root)
	if err != nil {
		return nil, fmt.Errorf("list bundles: %w", err)
	}
	var refs []FilingRef
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(s.Root, e.Name())
		ref, err := readMeta(dir)
		if err != nil {
			return nil, err
		}
		if ref.ID == "" {
			ref.ID = e.Name()
		}
		ref.Location = dir
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].ID < refs[j].ID })
	return refs, nil
}

// Load reads one bundle.
func (s *DirSource) Load(ctx context.Context, ref FilingRef) (*Filing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir := ref.Location
	if dir == "" {
		dir = filepath.Join(s.Root, ref.ID)
	}
	f := &Filing{Ref: ref}

	html, err := os.ReadFile(filepath.Join(dir, ScheduleFile))
	switch {
	case err == nil:
		f.HTML = string(html)
	case !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("read %s: %w", ScheduleFile, err)
	}

	data, err := os.ReadFile(filepath.Join(dir, FactsFile))
	switch {
	case err == nil:
		if _, err := utils.SmartParse(data, &f.Facts); err != nil {
			return nil, fmt.Errorf("%s %s: %w", ref.ID, FactsFile, err)
		}
	case !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("read %s: %w", FactsFile, err)
	}

	fillInlineFacts(f)
	return f, nil
}

func readMeta(dir string) (FilingRef, error) {
	var ref FilingRef
	data, err := os.ReadFile(filepath.Join(dir, MetaFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ref, nil
		}
		return ref, fmt.Errorf("read %s: %w", MetaFile, err)
	}
	if _, err := utils.SmartParse(data, &ref); err != nil {
		return ref, fmt.Errorf("%s %s: %w", dir, MetaFile, err)
	}
	return ref, nil
}
