package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"sync"

	"holdings_extract/pkg/core/schedule"
	"holdings_extract/pkg/core/utils"
)

// =============================================================================
// ISSUER OVERRIDES
// =============================================================================
//
// Every issuer runs through the same engine. Quirks of one issuer's schedule
// layout become declarative additions here: extra header phrases, extra type
// fragments, extra industry headings, rows to skip.

// IssuerOverride holds the additions for one issuer.
type IssuerOverride struct {
	CIK              string                        `json:"cik"`
	Name             string                        `json:"name"`
	HeaderThreshold  int                           `json:"header_threshold,omitempty"`
	Keywords         map[string][]schedule.Keyword `json:"keywords,omitempty"`  // field name → extra header phrases
	Fragments        []string                      `json:"fragments,omitempty"` // regexps for item-type fragments
	IndustryKeywords []string                      `json:"industry_keywords,omitempty"`
	SkipLabels       []string                      `json:"skip_labels,omitempty"`
	Notes            string                        `json:"notes,omitempty"` // why this override exists
	LastUpdated      string                        `json:"last_updated,omitempty"`
}

// Validate checks field names and fragment expressions.
func (o *IssuerOverride) Validate() error {
	if strings.TrimSpace(o.CIK) == "" {
		return fmt.Errorf("override without cik")
	}
	if _, err := parseKeywords(o.Keywords); err != nil {
		return fmt.Errorf("override %s: %w", o.CIK, err)
	}
	if _, err := (&Config{}).FactOptions(o, ""); err != nil {
		return err
	}
	return nil
}

// OverrideRegistry holds overrides keyed by zero-padded CIK.
type OverrideRegistry struct {
	mu        sync.RWMutex
	overrides map[string]*IssuerOverride
	path      string
}

// NewOverrideRegistry creates an empty registry backed by path ("" for memory only).
func NewOverrideRegistry(path string) *OverrideRegistry {
	return &OverrideRegistry{overrides: make(map[string]*IssuerOverride), path: path}
}

// LoadOverrides creates a registry from a JSON or Hjson file. A missing file
// yields an empty registry.
func LoadOverrides(path string) (*OverrideRegistry, error) {
	reg := NewOverrideRegistry(path)
	if path == "" {
		return reg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return reg, nil
		}
		return nil, fmt.Errorf("read overrides: %w", err)
	}

	var file struct {
		Overrides []*IssuerOverride `json:"overrides"`
	}
	strategy, err := utils.SmartParse(data, &file)
	if err != nil {
		return nil, fmt.Errorf("parse overrides %s: %w", path, err)
	}
	for _, o := range file.Overrides {
		if err := o.Validate(); err != nil {
			return nil, fmt.Errorf("overrides %s: %w", path, err)
		}
		reg.overrides[padCIK(o.CIK)] = o
	}
	log.Printf("[Overrides] Loaded %d issuer overrides from %s (%s)", len(file.Overrides), path, strategy)
	return reg, nil
}

// Get returns the override for an issuer, or nil.
func (r *OverrideRegistry) Get(cik string) *IssuerOverride {
	if r == nil || cik == "" {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.overrides[padCIK(cik)]
}

// Add adds or replaces an override.
func (r *OverrideRegistry) Add(o *IssuerOverride) error {
	if err := o.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.overrides[padCIK(o.CIK)] = o
	return nil
}

// Remove deletes an issuer's override.
func (r *OverrideRegistry) Remove(cik string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.overrides, padCIK(cik))
}

// List returns all overrides ordered by CIK.
func (r *OverrideRegistry) List() []*IssuerOverride {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.listLocked()
}

func (r *OverrideRegistry) listLocked() []*IssuerOverride {
	out := make([]*IssuerOverride, 0, len(r.overrides))
	for _, o := range r.overrides {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return padCIK(out[i].CIK) < padCIK(out[j].CIK) })
	return out
}

// SaveToDisk writes the registry as plain JSON.
func (r *OverrideRegistry) SaveToDisk() error {
	if r.path == "" {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	data := struct {
		Overrides []*IssuerOverride `json:"overrides"`
	}{Overrides: r.listLocked()}
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(r.path, bytes, 0644)
}

// padCIK pads a CIK to 10 digits.
func padCIK(cik string) string {
	cik = strings.TrimLeft(strings.TrimSpace(cik), "0")
	for len(cik) < 10 {
		cik = "0" + cik
	}
	return cik
}
