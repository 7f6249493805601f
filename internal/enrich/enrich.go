// Package enrich adds read-only reference metadata and derived financial
// metrics to a cleaned upload. It never overwrites ingested values: raw data
// always wins over reference data.
package enrich

import (
	"dsmetl/internal/schema"
	"dsmetl/internal/table"
)

// Join left-joins reference columns onto the working table by Site, adding
// only reference columns absent from the working table. The reference table
// is deduplicated on Site first (first occurrence wins; it is expected to be
// site-unique anyway). When the reference is empty or the working table has
// no Site column, the input is returned unchanged.
//
// The asymmetry is the point: a column present in both tables keeps the
// upload's values untouched.
func Join(t *table.Table, ref *table.Table) *table.Table {
	if ref == nil || ref.NumRows() == 0 || !t.HasColumn(schema.ColSite) || !ref.HasColumn(schema.ColSite) {
		return t
	}

	var add []string
	for _, c := range ref.Columns() {
		if c == schema.ColSite || t.HasColumn(c) {
			continue
		}
		add = append(add, c)
	}
	if len(add) == 0 {
		return t
	}

	// First-seen reference row per site.
	bySite := make(map[string]int, ref.NumRows())
	for r := 0; r < ref.NumRows(); r++ {
		s := schema.CoerceString(ref.Cell(r, schema.ColSite))
		if s == nil {
			continue
		}
		if _, ok := bySite[*s]; !ok {
			bySite[*s] = r
		}
	}

	out := t.Clone()
	for _, col := range add {
		values := make([]any, t.NumRows())
		for r := 0; r < t.NumRows(); r++ {
			s := schema.CoerceString(t.Cell(r, schema.ColSite))
			if s == nil {
				continue
			}
			if refRow, ok := bySite[*s]; ok {
				values[r] = ref.Cell(refRow, col)
			}
		}
		out.AddColumn(col, values)
	}
	return out
}
