package store

import (
	"encoding/csv"
	"fmt"
	"io"

	"holdings_extract/pkg/core/fields"
	"holdings_extract/pkg/core/synthesis"
)

// WriteCSV writes records with the standard fields as columns. Null fields
// are written as empty cells.
func WriteCSV(w io.Writer, records []synthesis.UnifiedRecord) error {
	cw := csv.NewWriter(w)
	header := make([]string, 0, len(fields.StandardFields)+2)
	for _, f := range fields.StandardFields {
		header = append(header, string(f))
	}
	header = append(header, "match_method", "low_confidence")
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	row := make([]string, len(header))
	for i := range records {
		r := &records[i]
		for j, f := range fields.StandardFields {
			row[j] = r.Get(f)
		}
		row[len(row)-2] = string(r.Method)
		row[len(row)-1] = fmt.Sprint(r.LowConfidence)
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
