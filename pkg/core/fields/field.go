// Package fields defines the standard investment field set and the small
// deterministic parsers (rate composites, dates, amounts) shared by the
// tabular and structured-fact extractors.
package fields

import (
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// STANDARD FIELD SET
// =============================================================================

// Field names one semantic column of the unified investment record.
type Field string

const (
	EntityName          Field = "entity_name"
	Industry            Field = "industry"
	BusinessDescription Field = "business_description"
	ItemType            Field = "item_type"
	AcquisitionDate     Field = "acquisition_date"
	MaturityDate        Field = "maturity_date"
	PrincipalAmount     Field = "principal_amount"
	Cost                Field = "cost"
	FairValue           Field = "fair_value"
	InterestRate        Field = "interest_rate"
	ReferenceRate       Field = "reference_rate"
	Spread              Field = "spread"
	FloorRate           Field = "floor_rate"
	PIKRate             Field = "pik_rate"
	SharesUnits         Field = "shares_units"
	PercentNetAssets    Field = "percent_net_assets"
	Currency            Field = "currency"
	CommitmentLimit     Field = "commitment_limit"
	UndrawnCommitment   Field = "undrawn_commitment"
)

// StandardFields is the output column order.
var StandardFields = []Field{
	EntityName,
	Industry,
	BusinessDescription,
	ItemType,
	AcquisitionDate,
	MaturityDate,
	PrincipalAmount,
	Cost,
	FairValue,
	InterestRate,
	ReferenceRate,
	Spread,
	FloorRate,
	PIKRate,
	SharesUnits,
	PercentNetAssets,
	Currency,
	CommitmentLimit,
	UndrawnCommitment,
}

// Kind tells how a field's raw text is parsed.
type Kind int

const (
	KindText Kind = iota
	KindAmount
	KindRate
	KindDate
	KindQuantity
)

// Kind returns the value kind of the field.
func (f Field) Kind() Kind {
	switch f {
	case PrincipalAmount, Cost, FairValue, CommitmentLimit, UndrawnCommitment:
		return KindAmount
	case InterestRate, Spread, FloorRate, PIKRate, PercentNetAssets:
		return KindRate
	case AcquisitionDate, MaturityDate:
		return KindDate
	case SharesUnits:
		return KindQuantity
	}
	return KindText
}

// IsMonetary reports whether the field holds a currency amount.
func (f Field) IsMonetary() bool { return f.Kind() == KindAmount }

// IsNumeric reports whether a populated cell for this field indicates a
// position line rather than a heading.
func (f Field) IsNumeric() bool {
	k := f.Kind()
	return k == KindAmount || k == KindRate || k == KindQuantity || k == KindDate
}

// Lookup resolves a field from its snake_case name.
func Lookup(name string) (Field, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, f := range StandardFields {
		if string(f) == name {
			return f, true
		}
	}
	return "", false
}

// =============================================================================
// VALUES
// =============================================================================

// Value is a parsed, non-null field value.
type Value struct {
	Text   string
	Number decimal.Decimal
	Date   Date
	Raw    string // source token, kept for manual inspection
}

// TextValue wraps a descriptive string.
func TextValue(s string) Value { return Value{Text: s, Raw: s} }

// NumberValue wraps a numeric amount, rate or quantity.
func NumberValue(d decimal.Decimal, raw string) Value { return Value{Number: d, Raw: raw} }

// DateValue wraps a resolved date.
func DateValue(d Date, raw string) Value { return Value{Date: d, Raw: raw} }

// Format renders the value for output in the given field's kind:
// dates as YYYY-MM-DD and numbers without thousands separators.
func (v Value) Format(f Field) string {
	switch f.Kind() {
	case KindDate:
		return v.Date.String()
	case KindAmount, KindRate, KindQuantity:
		return v.Number.String()
	}
	return v.Text
}

// Set holds the populated fields of one record. A field absent from the map is null.
type Set map[Field]Value

// Has reports whether the field is populated.
func (s Set) Has(f Field) bool {
	_, ok := s[f]
	return ok
}

// PutIfAbsent stores v unless the field already has a value.
func (s Set) PutIfAbsent(f Field, v Value) {
	if _, ok := s[f]; !ok {
		s[f] = v
	}
}

// Text returns the text of a field or "".
func (s Set) Text(f Field) string {
	if v, ok := s[f]; ok {
		return v.Text
	}
	return ""
}

// Clone returns a shallow copy.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}
