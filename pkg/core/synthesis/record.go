// Package synthesis merges matched table rows and fact records into the
// final UnifiedRecord set of a filing and scores its coverage.
//
// Merge rules, per field:
//   - Single source: whichever side has a value wins.
//   - Both sources: the fact source wins for monetary amounts, quantities and
//     currency; the table wins for dates, rates and descriptive text.
//
// Every populated field records which source supplied it.
package synthesis

import (
	"bytes"
	"encoding/json"

	"holdings_extract/pkg/core/fields"
	"holdings_extract/pkg/core/match"
)

// =============================================================================
// CORE DATA STRUCTURES
// =============================================================================

// Source identifies where a field value came from.
type Source string

const (
	SourceTable Source = "table"
	SourceFacts Source = "facts"
)

// Origin locates the inputs a record was built from.
type Origin struct {
	TableID    string `json:"table_id,omitempty"`
	RowIndex   int    `json:"row_index"`
	ContextKey string `json:"context_key,omitempty"`
}

// UnifiedRecord is one disclosed investment after merging. It is immutable:
// values are read through accessors and never change after Merge returns.
type UnifiedRecord struct {
	values     fields.Set
	provenance map[fields.Field]Source

	Method        match.Method `json:"method"`
	LowConfidence bool         `json:"low_confidence"`
	Confidence    float64      `json:"confidence"`   // 0-1 match confidence
	Completeness  float64      `json:"completeness"` // 0-1 share of standard fields populated
	Origin        Origin       `json:"origin"`
}

// Value returns the parsed value of f.
func (r *UnifiedRecord) Value(f fields.Field) (fields.Value, bool) {
	v, ok := r.values[f]
	return v, ok
}

// Has reports whether f is populated.
func (r *UnifiedRecord) Has(f fields.Field) bool {
	return r.values.Has(f)
}

// Get returns the output form of f (YYYY-MM-DD dates, plain numbers), or ""
// when the field is null.
func (r *UnifiedRecord) Get(f fields.Field) string {
	v, ok := r.values[f]
	if !ok {
		return ""
	}
	return v.Format(f)
}

// EntityName is the record's issuer name as disclosed.
func (r *UnifiedRecord) EntityName() string {
	return r.values.Text(fields.EntityName)
}

// Provenance returns the source of f, or "" when the field is null.
func (r *UnifiedRecord) Provenance(f fields.Field) Source {
	return r.provenance[f]
}

// SingleSource reports whether only one of the two inputs contributed.
func (r *UnifiedRecord) SingleSource() bool {
	return r.Method == match.MethodRowOnly || r.Method == match.MethodFactOnly
}

// MarshalJSON writes the standard fields in output order, null when
// unresolved, followed by provenance and match details. Numbers are written
// as JSON numbers without separators.
func (r *UnifiedRecord) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for _, f := range fields.StandardFields {
		key, _ := json.Marshal(string(f))
		buf.Write(key)
		buf.WriteByte(':')
		v, ok := r.values[f]
		switch {
		case !ok:
			buf.WriteString("null")
		case f.Kind() == fields.KindAmount || f.Kind() == fields.KindRate || f.Kind() == fields.KindQuantity:
			buf.WriteString(v.Number.String())
		default:
			s, err := json.Marshal(v.Format(f))
			if err != nil {
				return nil, err
			}
			buf.Write(s)
		}
		buf.WriteByte(',')
	}

	prov := make(map[string]Source, len(r.provenance))
	for f, s := range r.provenance {
		prov[string(f)] = s
	}
	meta, err := json.Marshal(struct {
		Provenance    map[string]Source `json:"provenance"`
		Method        match.Method      `json:"method"`
		LowConfidence bool              `json:"low_confidence"`
		Confidence    float64           `json:"confidence"`
		Completeness  float64           `json:"completeness"`
		Origin        Origin            `json:"origin"`
	}{prov, r.Method, r.LowConfidence, r.Confidence, r.Completeness, r.Origin})
	if err != nil {
		return nil, err
	}
	buf.Write(meta[1:]) // splice the metadata object's members after the fields
	return buf.Bytes(), nil
}
