package clean

import (
	"strings"

	"dsmetl/internal/schema"
	"dsmetl/internal/table"
)

// Site cleans a site cell: trim, lowercase, alias lookup, then uppercase.
// Empty and "nan" values become nil. Cleaning an already-canonical value is
// a no-op (aliases map onto their own uppercased forms).
func Site(v any, a Aliases) *string {
	s := schema.CoerceString(v)
	if s == nil {
		return nil
	}
	lower := strings.ToLower(strings.TrimSpace(*s))
	if lower == "" || lower == "nan" {
		return nil
	}
	if canonical, ok := a.Sites[lower]; ok {
		canonical = strings.ToUpper(canonical)
		return &canonical
	}
	upper := strings.ToUpper(lower)
	return &upper
}

// QCA cleans a counterparty cell: null/empty/"nan" become nil; alias hits
// (which also fix a known misspelling) return the canonical name; anything
// else is title-cased from the trimmed original.
func QCA(v any, a Aliases) *string {
	s := schema.CoerceString(v)
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	lower := strings.ToLower(trimmed)
	if lower == "" || lower == "nan" {
		return nil
	}
	if canonical, ok := a.QCAs[lower]; ok {
		return &canonical
	}
	titled := titler.String(trimmed)
	return &titled
}

// Table applies per-field cleaning across every canonical column present:
// Site and QCA alias resolution, month normalization, and numeric coercion
// (uncoercible numeric cells become nil, never an error). The input table is
// not mutated.
func Table(t *table.Table, a Aliases) *table.Table {
	out := t.Clone()

	if out.HasColumn(schema.ColSite) {
		for r := 0; r < out.NumRows(); r++ {
			if s := Site(out.Cell(r, schema.ColSite), a); s != nil {
				out.SetCell(r, schema.ColSite, *s)
			} else {
				out.SetCell(r, schema.ColSite, nil)
			}
		}
	}

	if out.HasColumn(schema.ColQCA) {
		for r := 0; r < out.NumRows(); r++ {
			if q := QCA(out.Cell(r, schema.ColQCA), a); q != nil {
				out.SetCell(r, schema.ColQCA, *q)
			} else {
				out.SetCell(r, schema.ColQCA, nil)
			}
		}
	}

	if out.HasColumn(schema.ColMonth) {
		for r := 0; r < out.NumRows(); r++ {
			if m := Month(out.Cell(r, schema.ColMonth)); m != nil {
				out.SetCell(r, schema.ColMonth, *m)
			} else {
				out.SetCell(r, schema.ColMonth, nil)
			}
		}
	}

	for _, c := range schema.Columns {
		if c.Kind != schema.KindNumeric && c.Kind != schema.KindInteger {
			continue
		}
		if !out.HasColumn(c.Name) {
			continue
		}
		for r := 0; r < out.NumRows(); r++ {
			v := out.Cell(r, c.Name)
			if c.Kind == schema.KindInteger {
				if i := schema.CoerceInt(v); i != nil {
					out.SetCell(r, c.Name, *i)
				} else {
					out.SetCell(r, c.Name, nil)
				}
				continue
			}
			if f := schema.CoerceFloat(v); f != nil {
				out.SetCell(r, c.Name, *f)
			} else {
				out.SetCell(r, c.Name, nil)
			}
		}
	}

	return out
}
