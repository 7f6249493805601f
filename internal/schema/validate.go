package schema

import (
	"fmt"
	"strings"

	"dsmetl/internal/table"
)

// MissingColumnsError reports required canonical columns absent from a table.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Columns, ", "))
}

// NullKeyError reports null values in a composite key column.
type NullKeyError struct {
	Column string
	Count  int
}

func (e *NullKeyError) Error() string {
	return fmt.Sprintf("column %q contains %d null values (unique key cannot be null)", e.Column, e.Count)
}

// IntraBatchDuplicateError reports repeated (Site, Month) keys within one
// upload. Count includes every occurrence of a repeated key, not just the
// second onward.
type IntraBatchDuplicateError struct {
	Count int
}

func (e *IntraBatchDuplicateError) Error() string {
	return fmt.Sprintf("upload contains %d duplicate rows (based on Site + Month)", e.Count)
}

// NonNumericFieldError reports a required numeric column holding values that
// cannot be coerced to a number.
type NonNumericFieldError struct {
	Column string
	Count  int
}

func (e *NonNumericFieldError) Error() string {
	return fmt.Sprintf("column %q contains %d non-numeric values", e.Column, e.Count)
}

// Validate checks a canonically-named table against the schema. The checks
// run in a fixed order and the first failure is returned:
//
//  1. All required canonical columns present (MissingColumnsError).
//  2. No nulls in the composite key columns (NullKeyError).
//  3. No intra-batch duplicate keys (IntraBatchDuplicateError).
//  4. Required numeric columns coercible to numbers (NonNumericFieldError).
//     Optional numeric columns tolerate coercion failures — they become
//     nulls during alignment instead of failing the batch.
//
// Validate is read-only and side-effect free so callers can use it both as
// a pre-flight check and as the mandatory first phase of ingestion.
func Validate(t *table.Table) error {
	var missing []string
	for _, name := range RequiredColumns() {
		if !t.HasColumn(name) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return &MissingColumnsError{Columns: missing}
	}

	for _, key := range KeyColumns() {
		nulls := 0
		for r := 0; r < t.NumRows(); r++ {
			if IsNull(t.Cell(r, key)) {
				nulls++
			}
		}
		if nulls > 0 {
			return &NullKeyError{Column: key, Count: nulls}
		}
	}

	seen := make(map[string]int, t.NumRows())
	for r := 0; r < t.NumRows(); r++ {
		seen[rowKeyString(t, r)]++
	}
	dups := 0
	for _, n := range seen {
		if n > 1 {
			dups += n
		}
	}
	if dups > 0 {
		return &IntraBatchDuplicateError{Count: dups}
	}

	for _, c := range Columns {
		if c.Kind != KindNumeric || !c.Required || !t.HasColumn(c.Name) {
			continue
		}
		bad := 0
		for r := 0; r < t.NumRows(); r++ {
			v := t.Cell(r, c.Name)
			if IsNull(v) {
				continue
			}
			if CoerceFloat(v) == nil {
				bad++
			}
		}
		if bad > 0 {
			return &NonNumericFieldError{Column: c.Name, Count: bad}
		}
	}

	return nil
}

// rowKeyString builds the comparison key for validation. It must agree with
// RecordKey.String for values that survive alignment; for raw cells it falls
// back to coerced string forms.
func rowKeyString(t *table.Table, row int) string {
	site := ""
	if s := CoerceString(t.Cell(row, ColSite)); s != nil {
		site = *s
	}
	month := ""
	if d := CoerceDate(t.Cell(row, ColMonth)); d != nil {
		month = d.Format("2006-01-02")
	} else if s := CoerceString(t.Cell(row, ColMonth)); s != nil {
		month = *s
	}
	return site + "||" + month
}
