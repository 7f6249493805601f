// Package storage defines the persistent store contract for canonical
// settlement records and the append-only ingestion log, plus a backend
// factory registry. Backends register themselves in init() (see
// storage/sqlite, storage/postgres, storage/mssql, storage/memory) and are
// selected by kind string from config.
package storage

import (
	"context"
	"fmt"
	"sync"

	"dsmetl/internal/schema"
)

// Config is the minimal configuration needed to open a store.
type Config struct {
	Kind string
	DSN  string
}

// Store is the backend-agnostic persistence interface.
//
// Semantics every backend must honor:
//   - Init is idempotent and installs a UNIQUE(site, month) constraint as a
//     second line of defense behind the pipeline's pre-checks.
//   - ReplaceRows runs its delete and insert inside ONE transaction; no
//     reader may ever observe the deletes without the inserts. This is the
//     overwrite branch of the upsert and its atomicity is a hard invariant,
//     not an implementation detail.
//   - AppendLog entries are immutable once written; RecentLogs returns them
//     newest first.
type Store interface {
	Init(ctx context.Context) error

	// Keys returns the composite keys of every persisted record.
	Keys(ctx context.Context) ([]schema.RecordKey, error)

	// InsertRows appends records. Callers guarantee the keys are not yet
	// persisted; the unique constraint backstops them.
	InsertRows(ctx context.Context, rows []schema.Record) error

	// ReplaceRows atomically deletes every record matching keys and inserts
	// rows.
	ReplaceRows(ctx context.Context, keys []schema.RecordKey, rows []schema.Record) error

	FetchAll(ctx context.Context) ([]schema.Record, error)
	Count(ctx context.Context) (int64, error)

	AppendLog(ctx context.Context, e LogEntry) error
	RecentLogs(ctx context.Context, limit int) ([]LogEntry, error)

	// Close releases backend resources. Call once at shutdown.
	Close()
}

type factory func(ctx context.Context, cfg Config) (Store, error)

var (
	mu        sync.RWMutex
	factories = map[string]factory{}
)

// Register registers a store backend under a kind (e.g. "sqlite",
// "postgres"). Call from an init() function in a backend package.
//
// Panics on empty kind, nil factory, or duplicate registration — failing
// fast beats ambiguous backend selection.
func Register(kind string, f factory) {
	mu.Lock()
	defer mu.Unlock()

	if kind == "" {
		panic("storage: Register called with empty kind")
	}
	if f == nil {
		panic("storage: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("storage: factory already registered for kind=%q", kind))
	}
	factories[kind] = f
}

// New constructs a Store using the registered backend factory.
func New(ctx context.Context, cfg Config) (Store, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("storage: missing kind")
	}

	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("storage: unsupported kind %q", cfg.Kind)
	}
	return f(ctx, cfg)
}

// Kinds returns the registered backend kinds, for diagnostics output.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	return out
}
