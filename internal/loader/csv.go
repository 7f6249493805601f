package loader

import (
	"encoding/csv"
	"fmt"
	"io"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"dsmetl/internal/table"
)

// LoadCSV reads a comma-separated file. A leading UTF-8 BOM is stripped and
// UTF-16 inputs (with BOM) are decoded transparently; exports from Windows
// tooling carry both. The first record is the header.
func LoadCSV(r io.Reader) (*table.Table, error) {
	decoded := transform.NewReader(r, unicode.BOMOverride(encoding.Nop.NewDecoder()))

	cr := csv.NewReader(decoded)
	// Real settlement exports are ragged; row padding happens in fromRecords.
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("read csv: no header row")
	}
	return fromRecords(records[0], records[1:])
}
