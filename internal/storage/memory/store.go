// Package memory implements storage.Store in process memory. It backs unit
// tests and dry-run previews; semantics mirror the SQL backends, including
// the unique-key backstop and all-or-nothing ReplaceRows.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"dsmetl/internal/schema"
	"dsmetl/internal/storage"
)

func init() {
	storage.Register("memory", func(ctx context.Context, cfg storage.Config) (storage.Store, error) {
		return New(), nil
	})
}

// Store keeps records keyed by composite key and logs in append order.
// Records are copied on the way in and out so callers can never alias
// stored state.
type Store struct {
	mu     sync.RWMutex
	data   map[string]schema.Record
	logs   []storage.LogEntry
	nextID int64
}

// New constructs an empty store.
func New() *Store {
	return &Store{data: make(map[string]schema.Record), nextID: 1}
}

// Close is a no-op.
func (s *Store) Close() {}

// Init is a no-op; the maps exist from construction.
func (s *Store) Init(ctx context.Context) error { return nil }

// Keys returns every persisted composite key.
func (s *Store) Keys(ctx context.Context) ([]schema.RecordKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]schema.RecordKey, 0, len(s.data))
	for _, r := range s.data {
		out = append(out, r.Key())
	}
	return out, nil
}

// InsertRows appends records, enforcing the unique-key backstop.
func (s *Store) InsertRows(ctx context.Context, rows []schema.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rows {
		k := r.Key().String()
		if _, exists := s.data[k]; exists {
			return fmt.Errorf("memory: unique constraint violated for %s", k)
		}
	}
	for _, r := range rows {
		s.data[r.Key().String()] = copyRecord(r)
	}
	return nil
}

// ReplaceRows deletes keys then inserts rows as one atomic step — the lock
// spans both, so no reader observes the intermediate state.
func (s *Store) ReplaceRows(ctx context.Context, keys []schema.RecordKey, rows []schema.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Check before mutating so a conflict leaves the store untouched.
	deleted := make(map[string]bool, len(keys))
	for _, k := range keys {
		deleted[k.String()] = true
	}
	incoming := make(map[string]bool, len(rows))
	for _, r := range rows {
		k := r.Key().String()
		if incoming[k] {
			return fmt.Errorf("memory: unique constraint violated for %s", k)
		}
		if _, exists := s.data[k]; exists && !deleted[k] {
			return fmt.Errorf("memory: unique constraint violated for %s", k)
		}
		incoming[k] = true
	}

	for _, k := range keys {
		delete(s.data, k.String())
	}
	for _, r := range rows {
		s.data[r.Key().String()] = copyRecord(r)
	}
	return nil
}

// FetchAll returns every record ordered by site then month.
func (s *Store) FetchAll(ctx context.Context) ([]schema.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]schema.Record, 0, len(s.data))
	for _, r := range s.data {
		out = append(out, copyRecord(r))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Site != out[j].Site {
			return out[i].Site < out[j].Site
		}
		return out[i].Month.Before(out[j].Month)
	})
	return out, nil
}

// Count returns the record count.
func (s *Store) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.data)), nil
}

// AppendLog records one immutable log entry.
func (s *Store) AppendLog(ctx context.Context, e storage.LogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = s.nextID
	s.nextID++
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	s.logs = append(s.logs, e)
	return nil
}

// RecentLogs returns entries newest first.
func (s *Store) RecentLogs(ctx context.Context, limit int) ([]storage.LogEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := len(s.logs)
	if limit > n {
		limit = n
	}
	out := make([]storage.LogEntry, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, s.logs[i])
	}
	return out, nil
}

func copyRecord(r schema.Record) schema.Record {
	out := r
	out.Connectivity = copyStr(r.Connectivity)
	out.Technology = copyStr(r.Technology)
	out.QCA = copyStr(r.QCA)
	out.CY = copyInt(r.CY)
	out.MeasuredEnergyKWh = copyFloat(r.MeasuredEnergyKWh)
	out.PlantCapacity = copyFloat(r.PlantCapacity)
	out.PPARate = copyFloat(r.PPARate)
	out.ActualRevenueINR = copyFloat(r.ActualRevenueINR)
	out.TotalPenaltyINR = copyFloat(r.TotalPenaltyINR)
	out.CommercialLoss = copyFloat(r.CommercialLoss)
	return out
}

func copyStr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func copyInt(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func copyFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
