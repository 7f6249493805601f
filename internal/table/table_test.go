package table

import (
	"reflect"
	"testing"
)

func TestNew_DedupsColumns(t *testing.T) {
	t.Parallel()

	tbl := New([]string{"A", "B", "A", "C"})
	if got := tbl.Columns(); !reflect.DeepEqual(got, []string{"A", "B", "C"}) {
		t.Fatalf("Columns()=%v", got)
	}
	if tbl.ColumnIndex("C") != 2 {
		t.Fatalf("ColumnIndex(C)=%d, want 2", tbl.ColumnIndex("C"))
	}
	if tbl.ColumnIndex("missing") != -1 {
		t.Fatalf("ColumnIndex(missing)=%d, want -1", tbl.ColumnIndex("missing"))
	}
}

func TestAppendRow_PadsAndTruncates(t *testing.T) {
	t.Parallel()

	tbl := New([]string{"A", "B", "C"})
	tbl.AppendRow([]any{1})
	tbl.AppendRow([]any{1, 2, 3, 4})

	if got := tbl.Row(0); !reflect.DeepEqual(got, []any{1, nil, nil}) {
		t.Fatalf("Row(0)=%v", got)
	}
	if got := tbl.Row(1); !reflect.DeepEqual(got, []any{1, 2, 3}) {
		t.Fatalf("Row(1)=%v", got)
	}
}

func TestCellAccess(t *testing.T) {
	t.Parallel()

	tbl := New([]string{"A", "B"})
	tbl.AppendRow([]any{"x", "y"})

	if got := tbl.Cell(0, "B"); got != "y" {
		t.Fatalf("Cell(0,B)=%v", got)
	}
	if got := tbl.Cell(0, "missing"); got != nil {
		t.Fatalf("Cell(0,missing)=%v, want nil", got)
	}

	tbl.SetCell(0, "A", "z")
	if got := tbl.Cell(0, "A"); got != "z" {
		t.Fatalf("SetCell not applied: %v", got)
	}
	tbl.SetCell(0, "missing", "z") // no-op, must not panic
}

func TestAddColumn(t *testing.T) {
	t.Parallel()

	tbl := New([]string{"A"})
	tbl.AppendRow([]any{1})
	tbl.AppendRow([]any{2})

	tbl.AddColumn("B", []any{"x"})
	if got := tbl.Cell(0, "B"); got != "x" {
		t.Fatalf("Cell(0,B)=%v", got)
	}
	if got := tbl.Cell(1, "B"); got != nil {
		t.Fatalf("Cell(1,B)=%v, want nil (missing value)", got)
	}

	// Adding an existing column is a no-op.
	tbl.AddColumn("B", []any{"overwrite"})
	if got := tbl.Cell(0, "B"); got != "x" {
		t.Fatalf("AddColumn overwrote existing column: %v", got)
	}
}

func TestProject(t *testing.T) {
	t.Parallel()

	tbl := New([]string{"A", "B", "C"})
	tbl.AppendRow([]any{1, 2, 3})

	out := tbl.Project([]string{"C", "A", "missing"})
	if got := out.Columns(); !reflect.DeepEqual(got, []string{"C", "A"}) {
		t.Fatalf("Columns()=%v", got)
	}
	if got := out.Row(0); !reflect.DeepEqual(got, []any{3, 1}) {
		t.Fatalf("Row(0)=%v", got)
	}
}

func TestFilter(t *testing.T) {
	t.Parallel()

	tbl := New([]string{"A"})
	for i := 0; i < 5; i++ {
		tbl.AppendRow([]any{i})
	}

	out := tbl.Filter(func(row int) bool { return row%2 == 0 })
	if out.NumRows() != 3 {
		t.Fatalf("NumRows()=%d, want 3", out.NumRows())
	}
	if tbl.NumRows() != 5 {
		t.Fatalf("Filter mutated input")
	}
}

func TestClone_Independent(t *testing.T) {
	t.Parallel()

	tbl := New([]string{"A"})
	tbl.AppendRow([]any{"orig"})

	cp := tbl.Clone()
	cp.SetCell(0, "A", "changed")
	if got := tbl.Cell(0, "A"); got != "orig" {
		t.Fatalf("Clone shares row storage: %v", got)
	}
}
