package memory

import (
	"context"
	"testing"
	"time"

	"dsmetl/internal/schema"
	"dsmetl/internal/storage"
)

func month(y int, m time.Month) time.Time {
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

func rec(site string, mo time.Time, energy float64) schema.Record {
	return schema.Record{Site: site, Month: mo, MeasuredEnergyKWh: &energy}
}

func TestFactoryRegistered(t *testing.T) {
	t.Parallel()

	s, err := storage.New(context.Background(), storage.Config{Kind: "memory"})
	if err != nil {
		t.Fatalf("storage.New(memory) err=%v", err)
	}
	defer s.Close()
	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("Init() err=%v", err)
	}
}

func TestInsertRows_UniqueBackstop(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := New()

	jan := month(2025, time.January)
	if err := s.InsertRows(ctx, []schema.Record{rec("WASHI", jan, 1)}); err != nil {
		t.Fatalf("InsertRows() err=%v", err)
	}
	if err := s.InsertRows(ctx, []schema.Record{rec("WASHI", jan, 2)}); err == nil {
		t.Fatalf("duplicate insert err=nil, want unique violation")
	}
	// Conflicting batch must not be partially applied.
	if err := s.InsertRows(ctx, []schema.Record{rec("TX_12", jan, 3), rec("WASHI", jan, 4)}); err == nil {
		t.Fatalf("conflicting batch err=nil, want unique violation")
	}
	n, _ := s.Count(ctx)
	if n != 1 {
		t.Fatalf("Count()=%d after failed batch, want 1", n)
	}
}

func TestReplaceRows_Atomic(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := New()

	jan := month(2025, time.January)
	feb := month(2025, time.February)
	if err := s.InsertRows(ctx, []schema.Record{rec("WASHI", jan, 1), rec("WASHI", feb, 2)}); err != nil {
		t.Fatalf("seed err=%v", err)
	}

	// Replace jan, leave feb.
	key := schema.RecordKey{Site: "WASHI", Month: jan}
	if err := s.ReplaceRows(ctx, []schema.RecordKey{key}, []schema.Record{rec("WASHI", jan, 10)}); err != nil {
		t.Fatalf("ReplaceRows() err=%v", err)
	}
	recs, _ := s.FetchAll(ctx)
	if len(recs) != 2 {
		t.Fatalf("records=%d, want 2", len(recs))
	}
	if *recs[0].MeasuredEnergyKWh != 10 {
		t.Fatalf("jan energy=%v, want replaced 10", *recs[0].MeasuredEnergyKWh)
	}

	// A conflicting replace leaves the store untouched.
	err := s.ReplaceRows(ctx,
		[]schema.RecordKey{key},
		[]schema.Record{rec("WASHI", jan, 99), rec("WASHI", feb, 99)}, // feb not in keys
	)
	if err == nil {
		t.Fatalf("conflicting ReplaceRows err=nil, want unique violation")
	}
	recs, _ = s.FetchAll(ctx)
	if *recs[0].MeasuredEnergyKWh != 10 || *recs[1].MeasuredEnergyKWh != 2 {
		t.Fatalf("failed replace mutated store: %v %v", *recs[0].MeasuredEnergyKWh, *recs[1].MeasuredEnergyKWh)
	}
}

func TestFetchAll_SortedAndCopied(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := New()

	jan := month(2025, time.January)
	feb := month(2025, time.February)
	if err := s.InsertRows(ctx, []schema.Record{
		rec("TX_12", jan, 1),
		rec("WASHI", feb, 2),
		rec("WASHI", jan, 3),
	}); err != nil {
		t.Fatalf("InsertRows() err=%v", err)
	}

	recs, err := s.FetchAll(ctx)
	if err != nil {
		t.Fatalf("FetchAll() err=%v", err)
	}
	wantOrder := []string{"TX_12||2025-01-01", "WASHI||2025-01-01", "WASHI||2025-02-01"}
	for i, w := range wantOrder {
		if got := recs[i].Key().String(); got != w {
			t.Fatalf("order[%d]=%s, want %s", i, got, w)
		}
	}

	// Mutating a fetched record must not touch stored state.
	*recs[0].MeasuredEnergyKWh = 999
	again, _ := s.FetchAll(ctx)
	if *again[0].MeasuredEnergyKWh != 1 {
		t.Fatalf("FetchAll aliases stored pointers")
	}
}

func TestKeys(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := New()

	jan := month(2025, time.January)
	if err := s.InsertRows(ctx, []schema.Record{rec("WASHI", jan, 1)}); err != nil {
		t.Fatalf("InsertRows() err=%v", err)
	}
	keys, err := s.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys() err=%v", err)
	}
	if len(keys) != 1 || keys[0].String() != "WASHI||2025-01-01" {
		t.Fatalf("Keys()=%v", keys)
	}
}

func TestLogs_AppendOnlyNewestFirst(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := New()

	for _, name := range []string{"a.xlsx", "b.xlsx", "c.xlsx"} {
		if err := s.AppendLog(ctx, storage.LogEntry{Filename: name, Status: storage.StatusSuccess}); err != nil {
			t.Fatalf("AppendLog(%s) err=%v", name, err)
		}
	}

	logs, err := s.RecentLogs(ctx, 2)
	if err != nil {
		t.Fatalf("RecentLogs() err=%v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("len=%d, want 2", len(logs))
	}
	if logs[0].Filename != "c.xlsx" || logs[1].Filename != "b.xlsx" {
		t.Fatalf("order=%s,%s, want newest first", logs[0].Filename, logs[1].Filename)
	}
	if logs[0].ID <= logs[1].ID {
		t.Fatalf("IDs not monotonic: %d vs %d", logs[0].ID, logs[1].ID)
	}
	if logs[0].Timestamp.IsZero() {
		t.Fatalf("zero timestamp not defaulted")
	}
}
