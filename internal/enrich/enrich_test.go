package enrich

import (
	"testing"
	"time"

	"dsmetl/internal/schema"
	"dsmetl/internal/table"
)

func refTable() *table.Table {
	ref := table.New([]string{schema.ColSite, schema.ColConnectivity, schema.ColTechnology})
	ref.AppendRow([]any{"WASHI", "Intra-State", "Solar"})
	ref.AppendRow([]any{"WASHI", "DUPLICATE", "DUPLICATE"}) // dedup: first wins
	ref.AppendRow([]any{"TX_12", "Inter-State", "Wind"})
	return ref
}

func TestJoin_AddsOnlyAbsentColumns(t *testing.T) {
	t.Parallel()

	work := table.New([]string{schema.ColSite, schema.ColTechnology})
	work.AppendRow([]any{"WASHI", "Hybrid"})

	out := Join(work, refTable())

	// Connectivity is absent from the upload, so it joins in.
	if got := out.Cell(0, schema.ColConnectivity); got != "Intra-State" {
		t.Fatalf("Connectivity=%v, want Intra-State", got)
	}
	// Technology exists in the upload; the upload's value wins.
	if got := out.Cell(0, schema.ColTechnology); got != "Hybrid" {
		t.Fatalf("Technology=%v, want upload value Hybrid", got)
	}
}

func TestJoin_FirstReferenceRowWins(t *testing.T) {
	t.Parallel()

	work := table.New([]string{schema.ColSite})
	work.AppendRow([]any{"WASHI"})

	out := Join(work, refTable())
	if got := out.Cell(0, schema.ColConnectivity); got != "Intra-State" {
		t.Fatalf("Connectivity=%v, want first reference occurrence", got)
	}
}

func TestJoin_UnmatchedSiteStaysNull(t *testing.T) {
	t.Parallel()

	work := table.New([]string{schema.ColSite})
	work.AppendRow([]any{"UNKNOWN"})

	out := Join(work, refTable())
	if got := out.Cell(0, schema.ColConnectivity); got != nil {
		t.Fatalf("Connectivity=%v, want nil for unmatched site", got)
	}
}

func TestJoin_NilOrEmptyReferenceIsIdentity(t *testing.T) {
	t.Parallel()

	work := table.New([]string{schema.ColSite})
	work.AppendRow([]any{"WASHI"})

	if out := Join(work, nil); out != work {
		t.Fatalf("Join(nil ref) should return input unchanged")
	}
	if out := Join(work, table.New([]string{schema.ColSite})); out != work {
		t.Fatalf("Join(empty ref) should return input unchanged")
	}
}

func TestDerive(t *testing.T) {
	t.Parallel()

	jan := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	tbl := table.New([]string{schema.ColSite, schema.ColMonth, schema.ColRevenue, schema.ColPenalty, schema.ColLoss})
	tbl.AppendRow([]any{"A", jan, 1000.0, 50.0, nil})  // loss derived: 5%
	tbl.AppendRow([]any{"B", jan, 1000.0, 50.0, 7.5})  // ingested loss kept
	tbl.AppendRow([]any{"C", jan, 0.0, 50.0, nil})     // zero revenue: stays null
	tbl.AppendRow([]any{"D", jan, nil, 50.0, nil})     // null revenue: stays null

	out := Derive(tbl)

	if got := out.Cell(0, schema.ColLoss); got != 5.0 {
		t.Fatalf("row A loss=%v, want 5.0", got)
	}
	if got := out.Cell(1, schema.ColLoss); got != 7.5 {
		t.Fatalf("row B loss=%v, want ingested 7.5 untouched", got)
	}
	if out.Cell(2, schema.ColLoss) != nil || out.Cell(3, schema.ColLoss) != nil {
		t.Fatalf("rows C/D loss should stay null")
	}

	// CY backfilled from Month for every row.
	for r := 0; r < out.NumRows(); r++ {
		if got := out.Cell(r, schema.ColCY); got != int64(2025) {
			t.Fatalf("row %d CY=%v, want 2025", r, got)
		}
	}

	// Input not mutated.
	if tbl.HasColumn(schema.ColCY) {
		t.Fatalf("Derive mutated its input")
	}
}

func TestEfficiencyScore(t *testing.T) {
	t.Parallel()

	if got := EfficiencyScore(5); got != 95 {
		t.Fatalf("EfficiencyScore(5)=%v, want 95", got)
	}
}

func TestFinancialYear(t *testing.T) {
	t.Parallel()

	tests := []struct {
		month time.Month
		year  int
		want  string
	}{
		{time.April, 2024, "FY2025"},
		{time.March, 2025, "FY2025"},
		{time.December, 2024, "FY2025"},
		{time.January, 2024, "FY2024"},
	}
	for _, tc := range tests {
		m := time.Date(tc.year, tc.month, 1, 0, 0, 0, 0, time.UTC)
		if got := FinancialYear(m); got != tc.want {
			t.Errorf("FinancialYear(%v)=%q, want %q", m, got, tc.want)
		}
	}
}

func TestFinancialQuarter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		month time.Month
		want  string
	}{
		{time.April, "Q1"},
		{time.June, "Q1"},
		{time.July, "Q2"},
		{time.October, "Q3"},
		{time.January, "Q4"},
		{time.March, "Q4"},
	}
	for _, tc := range tests {
		m := time.Date(2025, tc.month, 1, 0, 0, 0, 0, time.UTC)
		if got := FinancialQuarter(m); got != tc.want {
			t.Errorf("FinancialQuarter(%v)=%q, want %q", tc.month, got, tc.want)
		}
	}
}
