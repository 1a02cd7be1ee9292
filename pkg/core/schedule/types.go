// Package schedule parses the schedule-of-investments tables of a filing into
// provisional row records. Each table runs through its own header-detection
// state machine; company and industry headings are carried forward to the
// position rows beneath them.
package schedule

import (
	"fmt"

	"holdings_extract/pkg/core/fields"
)

// =============================================================================
// RAW INPUT
// =============================================================================

// RawTable is one table of a filing: an ordered list of rows, each an
// ordered list of cell texts. Spanned cells are expanded so every row shares
// the header's column positions; the spanned positions after the first are "".
type RawTable struct {
	ID      string       `json:"id"`
	Caption string       `json:"caption,omitempty"` // heading text preceding the table
	Scale   fields.Scale `json:"scale,omitempty"`   // detected from caption / heading rows
	Rows    [][]string   `json:"rows"`
}

// =============================================================================
// ROW KINDS & TABLE STATES
// =============================================================================

// RowKind classifies one table row.
type RowKind int

const (
	RowUnknown RowKind = iota
	RowHeader
	RowCompanyHeader
	RowIndustryHeader
	RowDetail
	RowContinuation
	RowSubtotal
)

func (k RowKind) String() string {
	switch k {
	case RowHeader:
		return "header"
	case RowCompanyHeader:
		return "company_header"
	case RowIndustryHeader:
		return "industry_header"
	case RowDetail:
		return "detail"
	case RowContinuation:
		return "continuation"
	case RowSubtotal:
		return "subtotal"
	}
	return "unknown"
}

// TableState is the per-table parser state.
type TableState int

const (
	StateSeekingHeader TableState = iota
	StateHeaderFound
	StateInBody
	StateDone
)

func (s TableState) String() string {
	switch s {
	case StateSeekingHeader:
		return "SEEKING_HEADER"
	case StateHeaderFound:
		return "HEADER_FOUND"
	case StateInBody:
		return "IN_BODY"
	case StateDone:
		return "DONE"
	}
	return fmt.Sprintf("TableState(%d)", int(s))
}

// =============================================================================
// OUTPUT
// =============================================================================

// ProvisionalRow is one position line read from a table, with entity, type
// and industry carried forward from the headings above it when its own
// cells are blank.
type ProvisionalRow struct {
	EntityNameRaw string                  `json:"entity_name_raw"`
	ItemTypeRaw   string                  `json:"item_type_raw"`
	Industry      string                  `json:"industry,omitempty"`
	Kind          RowKind                 `json:"-"`
	Cells         map[fields.Field]string `json:"cells"` // raw cell text per mapped field
	Values        fields.Set              `json:"-"`
	TableID       string                  `json:"table_id"`
	RowIndex      int                     `json:"row_index"`
	Order         int                     `json:"order"` // position among all rows of the filing
}

// TableSkip records a table that never reached the header threshold.
type TableSkip struct {
	TableID string `json:"table_id"`
	Reason  string `json:"reason"`
	Score   int    `json:"best_header_score"`
}

// Unparsed records a cell a field parser could not interpret, or a position
// row with no entity in scope. The field stays null.
type Unparsed struct {
	TableID  string       `json:"table_id"`
	RowIndex int          `json:"row_index"`
	Field    fields.Field `json:"field,omitempty"`
	Raw      string       `json:"raw"`
	Reason   string       `json:"reason"`
}

// Result is the outcome of parsing one filing's tables.
type Result struct {
	Rows     []ProvisionalRow `json:"rows"`
	Skipped  []TableSkip      `json:"skipped"`
	Unparsed []Unparsed       `json:"unparsed"`
	Tables   int              `json:"tables"`
	Parsed   int              `json:"parsed"` // tables that reached IN_BODY
}
