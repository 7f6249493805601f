// Package pipeline wires the ingestion stages together: column mapping,
// value cleaning, reference enrichment, validation, alignment, duplicate
// detection and the final upsert, with one ingestion-log entry per attempt.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"dsmetl/internal/clean"
	"dsmetl/internal/enrich"
	"dsmetl/internal/metrics"
	"dsmetl/internal/schema"
	"dsmetl/internal/storage"
	"dsmetl/internal/table"
)

// Pipeline executes ingestion against one store. It is cheap to construct;
// the store owns all heavyweight state.
type Pipeline struct {
	store   storage.Store
	aliases clean.Aliases
	ref     *table.Table

	// now is a clock seam for tests.
	now func() time.Time
}

// New builds a pipeline. ref is the optional site reference table used for
// enrichment; nil disables the join.
func New(store storage.Store, aliases clean.Aliases, ref *table.Table) *Pipeline {
	return &Pipeline{
		store:   store,
		aliases: aliases,
		ref:     ref,
		now:     time.Now,
	}
}

// Prepared is the outcome of the normalization stages, before validation.
type Prepared struct {
	// Table holds canonically-named, cleaned, enriched rows.
	Table *table.Table

	// Report describes how source headers mapped to canonical names.
	Report schema.MappingReport

	// Dropped counts rows removed because cleaning could not produce a
	// non-null composite key (unrecognized site or unparseable month).
	Dropped int
}

// Prepare runs the pre-validation stages: header mapping, value cleaning,
// reference enrichment, derived columns, then drops rows whose key columns
// cleaned to null. Dropped rows are counted, not silently lost.
func (p *Pipeline) Prepare(t *table.Table) Prepared {
	mapped, report := schema.MapColumns(t)
	cleaned := clean.Table(mapped, p.aliases)
	if p.ref != nil {
		cleaned = enrich.Join(cleaned, p.ref)
	}
	derived := enrich.Derive(cleaned)

	kept := derived.Filter(func(row int) bool {
		return !schema.IsNull(derived.Cell(row, schema.ColSite)) &&
			!schema.IsNull(derived.Cell(row, schema.ColMonth))
	})
	dropped := derived.NumRows() - kept.NumRows()
	if dropped > 0 {
		log.Printf("pipeline: dropped %d rows with unresolvable site/month keys", dropped)
	}

	return Prepared{Table: kept, Report: report, Dropped: dropped}
}

// Validate prepares the table and checks it against the canonical schema.
// The returned Prepared is valid even when err is non-nil, so callers can
// show mapping and drop details alongside the failure.
func (p *Pipeline) Validate(t *table.Table) (Prepared, error) {
	prep := p.Prepare(t)
	if len(prep.Report.Missing) > 0 {
		// Validation reports missing required columns itself; the mapping
		// report just adds which source headers were seen.
		log.Printf("pipeline: unmapped source headers: %v", prep.Report.Unmatched)
	}
	return prep, schema.Validate(prep.Table)
}

// Duplicates partitions a batch by whether its key already exists in the
// store.
type Duplicates struct {
	// Existing holds records whose (Site, Month) is already persisted.
	Existing []schema.Record

	// New holds records not yet persisted.
	New []schema.Record
}

// ExistingKeys returns the keys of the already-persisted records.
func (d Duplicates) ExistingKeys() []schema.RecordKey {
	keys := make([]schema.RecordKey, len(d.Existing))
	for i, r := range d.Existing {
		keys[i] = r.Key()
	}
	return keys
}

// DetectDuplicates splits records into store-duplicates and new rows by
// comparing composite keys against the persisted set. It never mutates the
// store.
func (p *Pipeline) DetectDuplicates(ctx context.Context, recs []schema.Record) (Duplicates, error) {
	keys, err := p.store.Keys(ctx)
	if err != nil {
		return Duplicates{}, fmt.Errorf("fetch persisted keys: %w", err)
	}
	persisted := make(map[string]bool, len(keys))
	for _, k := range keys {
		persisted[k.String()] = true
	}

	var d Duplicates
	for _, r := range recs {
		if persisted[r.Key().String()] {
			d.Existing = append(d.Existing, r)
		} else {
			d.New = append(d.New, r)
		}
	}
	return d, nil
}

// Stats summarizes one ingestion attempt.
type Stats struct {
	Inserted int
	Updated  int
	Skipped  int
	Dropped  int
	Total    int
}

// Ingest runs the full pipeline on t and persists the outcome. Exactly one
// ingestion-log entry is appended per attempt, success or failure. With
// overwrite set, rows whose key already exists replace the stored rows
// (atomic delete+insert); otherwise they are skipped and only new keys are
// inserted.
func (p *Pipeline) Ingest(ctx context.Context, t *table.Table, filename string, overwrite bool) (Stats, error) {
	start := p.now()
	mode := "skip"
	if overwrite {
		mode = "overwrite"
	}

	prep := p.Prepare(t)
	stats := Stats{Dropped: prep.Dropped, Total: prep.Table.NumRows()}

	if err := schema.Validate(prep.Table); err != nil {
		p.logAttempt(ctx, storage.LogEntry{
			Filename:     filename,
			RowsSkipped:  stats.Total,
			Status:       storage.StatusFailed,
			ErrorMessage: err.Error(),
		})
		p.observe(start, mode, "failed", stats)
		return stats, fmt.Errorf("validate %s: %w", filename, err)
	}

	recs, err := schema.Align(prep.Table)
	if err != nil {
		p.logAttempt(ctx, storage.LogEntry{
			Filename:     filename,
			RowsSkipped:  stats.Total,
			Status:       storage.StatusFailed,
			ErrorMessage: err.Error(),
		})
		p.observe(start, mode, "failed", stats)
		return stats, fmt.Errorf("align %s: %w", filename, err)
	}

	dups, err := p.DetectDuplicates(ctx, recs)
	if err != nil {
		p.logAttempt(ctx, storage.LogEntry{
			Filename:     filename,
			RowsSkipped:  stats.Total,
			Status:       storage.StatusFailed,
			ErrorMessage: err.Error(),
		})
		p.observe(start, mode, "failed", stats)
		return stats, err
	}

	var writeErr error
	if overwrite {
		// One store call for the whole batch: the delete of conflicting keys
		// and the insert of every aligned row commit together or not at all.
		if len(recs) > 0 {
			writeErr = p.store.ReplaceRows(ctx, dups.ExistingKeys(), recs)
		}
		if writeErr == nil {
			stats.Inserted = len(dups.New)
			stats.Updated = len(dups.Existing)
		}
	} else {
		if len(dups.New) > 0 {
			writeErr = p.store.InsertRows(ctx, dups.New)
		}
		if writeErr == nil {
			stats.Inserted = len(dups.New)
			stats.Skipped = len(dups.Existing)
		}
	}

	if writeErr != nil {
		p.logAttempt(ctx, storage.LogEntry{
			Filename:     filename,
			RowsSkipped:  stats.Total,
			Status:       storage.StatusFailed,
			ErrorMessage: writeErr.Error(),
		})
		p.observe(start, mode, "failed", stats)
		return stats, fmt.Errorf("persist %s: %w", filename, writeErr)
	}

	p.logAttempt(ctx, storage.LogEntry{
		Filename:     filename,
		RowsInserted: stats.Inserted,
		RowsUpdated:  stats.Updated,
		RowsSkipped:  stats.Skipped,
		Status:       storage.StatusSuccess,
	})
	p.observe(start, mode, "success", stats)
	return stats, nil
}

// FetchAll returns every persisted canonical record.
func (p *Pipeline) FetchAll(ctx context.Context) ([]schema.Record, error) {
	return p.store.FetchAll(ctx)
}

// RecentLogs returns the latest ingestion-log entries, newest first.
func (p *Pipeline) RecentLogs(ctx context.Context, limit int) ([]storage.LogEntry, error) {
	return p.store.RecentLogs(ctx, limit)
}

// logAttempt appends the per-attempt log entry. A log write failure must not
// mask the ingestion outcome, so it is logged and swallowed.
func (p *Pipeline) logAttempt(ctx context.Context, e storage.LogEntry) {
	e.Timestamp = p.now().UTC()
	if err := p.store.AppendLog(ctx, e); err != nil {
		log.Printf("pipeline: append ingestion log: %v", err)
	}
}

func (p *Pipeline) observe(start time.Time, mode, status string, stats Stats) {
	metrics.IncCounter("dsmetl_ingest_attempts_total", 1, metrics.Labels{"status": status})
	metrics.IncCounter("dsmetl_ingest_rows_inserted_total", float64(stats.Inserted), metrics.Labels{"mode": mode})
	metrics.IncCounter("dsmetl_ingest_rows_updated_total", float64(stats.Updated), metrics.Labels{"mode": mode})
	metrics.IncCounter("dsmetl_ingest_rows_skipped_total", float64(stats.Skipped), metrics.Labels{"mode": mode})
	metrics.IncCounter("dsmetl_ingest_rows_dropped_total", float64(stats.Dropped), metrics.Labels{"mode": mode})
	metrics.ObserveHistogram("dsmetl_ingest_duration_seconds", p.now().Sub(start).Seconds(), nil)
}
