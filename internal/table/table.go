// Package table provides the in-memory tabular structure the ingestion
// pipeline operates on: string column headers in a stable order, rows of
// mixed-type cells.
//
// This is the "input table contract" between file loaders and the pipeline.
// A Table makes no promises about cell types — loaders produce strings and
// numbers as they find them, and the cleaning/alignment stages own coercion.
package table

// Table holds an ordered set of named columns and their rows.
//
// Invariants:
//   - Column names are unique within one Table.
//   - Rows always have exactly len(Columns()) cells; AppendRow pads or
//     truncates to keep that true, so ragged source files cannot corrupt
//     positional access.
type Table struct {
	cols []string
	idx  map[string]int
	rows [][]any
}

// New creates an empty table with the given column names.
// Duplicate names keep the first occurrence's position; later duplicates are
// dropped (loaders should not produce duplicates, but real spreadsheets do).
func New(cols []string) *Table {
	t := &Table{idx: make(map[string]int, len(cols))}
	for _, c := range cols {
		if _, ok := t.idx[c]; ok {
			continue
		}
		t.idx[c] = len(t.cols)
		t.cols = append(t.cols, c)
	}
	return t
}

// Columns returns a copy of the column names in order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.cols))
	copy(out, t.cols)
	return out
}

// HasColumn reports whether the named column exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.idx[name]
	return ok
}

// ColumnIndex returns the position of the named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	i, ok := t.idx[name]
	if !ok {
		return -1
	}
	return i
}

// NumRows returns the row count.
func (t *Table) NumRows() int { return len(t.rows) }

// NumColumns returns the column count.
func (t *Table) NumColumns() int { return len(t.cols) }

// AppendRow adds a row, padding with nils or truncating so the row length
// matches the column count.
func (t *Table) AppendRow(row []any) {
	r := make([]any, len(t.cols))
	copy(r, row)
	t.rows = append(t.rows, r)
}

// Row returns the i-th row. The returned slice is the backing storage;
// callers that need to keep it must copy.
func (t *Table) Row(i int) []any { return t.rows[i] }

// Cell returns the value at (row, column name), or nil when the column does
// not exist.
func (t *Table) Cell(row int, col string) any {
	i, ok := t.idx[col]
	if !ok {
		return nil
	}
	return t.rows[row][i]
}

// SetCell writes a value at (row, column name). Unknown columns are a no-op.
func (t *Table) SetCell(row int, col string, v any) {
	i, ok := t.idx[col]
	if !ok {
		return
	}
	t.rows[row][i] = v
}

// AddColumn appends a new column. Existing rows get the given values by
// position; missing values become nil. Adding an existing column is a no-op.
func (t *Table) AddColumn(name string, values []any) {
	if _, ok := t.idx[name]; ok {
		return
	}
	t.idx[name] = len(t.cols)
	t.cols = append(t.cols, name)
	for i := range t.rows {
		var v any
		if i < len(values) {
			v = values[i]
		}
		t.rows[i] = append(t.rows[i], v)
	}
}

// Project returns a new table containing only the named columns, in the
// given order. Names absent from the table are skipped.
func (t *Table) Project(cols []string) *Table {
	kept := make([]string, 0, len(cols))
	src := make([]int, 0, len(cols))
	for _, c := range cols {
		if i, ok := t.idx[c]; ok {
			kept = append(kept, c)
			src = append(src, i)
		}
	}
	out := New(kept)
	for _, row := range t.rows {
		r := make([]any, len(src))
		for j, i := range src {
			r[j] = row[i]
		}
		out.rows = append(out.rows, r)
	}
	return out
}

// Filter returns a new table keeping only rows for which keep returns true.
func (t *Table) Filter(keep func(row int) bool) *Table {
	out := New(t.cols)
	for i, row := range t.rows {
		if !keep(i) {
			continue
		}
		r := make([]any, len(row))
		copy(r, row)
		out.rows = append(out.rows, r)
	}
	return out
}

// Clone returns a deep copy (cells are copied by value; reference-typed
// cells still alias, which is fine for the read-mostly pipeline stages).
func (t *Table) Clone() *Table {
	out := New(t.cols)
	for _, row := range t.rows {
		r := make([]any, len(row))
		copy(r, row)
		out.rows = append(out.rows, r)
	}
	return out
}
