// Package facts turns structured (XBRL) fact data into one FactRecord per
// reporting context. Each context carries a compact identifier string such as
// "Acme Corp, First Lien Senior Secured Loan", which is split into an issuer
// name and an investment-type fragment.
package facts

import (
	"bytes"
	"encoding/json"
	"fmt"

	"holdings_extract/pkg/core/fields"
)

// RawFact is one (concept, value, unit, period) tuple within a reporting context.
type RawFact struct {
	ContextID  string `json:"context_id"`
	Identifier string `json:"identifier"` // entity + item-type phrase of the context
	Concept    string `json:"concept"`    // e.g. "us-gaap:InvestmentOwnedAtFairValue"
	Value      string `json:"value"`
	Unit       string `json:"unit,omitempty"` // e.g. "iso4217:USD", "pure"
	StartDate  string `json:"start_date,omitempty"`
	EndDate    string `json:"end_date,omitempty"` // instant date for balance facts
}

// UnmarshalJSON accepts the value as a JSON string, number or boolean. Numbers
// keep their literal text so large amounts lose no precision.
func (f *RawFact) UnmarshalJSON(data []byte) error {
	type plain RawFact
	aux := struct {
		*plain
		Value json.RawMessage `json:"value"`
	}{plain: (*plain)(f)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	f.Value = ""
	raw := bytes.TrimSpace(aux.Value)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	switch raw[0] {
	case '"':
		return json.Unmarshal(raw, &f.Value)
	case '{', '[':
		return fmt.Errorf("fact %s: value must be a scalar", f.Concept)
	default:
		f.Value = string(raw)
	}
	return nil
}

// RawFactGroup is the set of facts sharing one reporting context.
type RawFactGroup struct {
	ContextKey string
	Identifier string
	Facts      []RawFact
}

// FactRecord is the structured-source view of one disclosed investment.
type FactRecord struct {
	ContextKey       string     `json:"context_key"` // unique within a filing
	Identifier       string     `json:"identifier"`
	EntityNameRaw    string     `json:"entity_name_raw"`
	ItemTypeFragment string     `json:"item_type_fragment"`
	Recognized       bool       `json:"recognized"` // a type-fragment rule matched
	Values           fields.Set `json:"-"`
	Order            int        `json:"order"` // position of the context in the filing
}

// Miss records an identifier the type rules could not split, or a fact value
// that could not be parsed. Both are reported, never fatal.
type Miss struct {
	ContextKey string `json:"context_key"`
	Concept    string `json:"concept,omitempty"`
	Raw        string `json:"raw"`
	Reason     string `json:"reason"`
}

// Result is the outcome of extracting one filing's facts.
type Result struct {
	Records  []FactRecord `json:"records"`
	Misses   []Miss       `json:"misses"`
	Ignored  int          `json:"ignored"` // facts without an identifier (filing-level facts)
	Contexts int          `json:"contexts"`
}

// RecognizedCount returns how many contexts matched a type-fragment rule.
func (r *Result) RecognizedCount() int {
	n := 0
	for _, rec := range r.Records {
		if rec.Recognized {
			n++
		}
	}
	return n
}
