// Package sqlite implements storage.Store on modernc.org/sqlite — the
// CGO-free driver — as the default embedded backend.
//
// Dialect notes vs the Postgres/MSSQL backends:
//   - SQLite has no DATE type; months are stored as "YYYY-MM-DD" TEXT and
//     log timestamps as RFC3339Nano TEXT for reliable round-trips.
//   - The UNIQUE(site, month) constraint backs the pipeline's duplicate
//     pre-checks; INSERT through this backend is plain INSERT so constraint
//     violations surface as errors instead of being silently ignored.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"dsmetl/internal/schema"
	"dsmetl/internal/storage"
)

func init() {
	storage.Register("sqlite", New)
}

// Store is the sqlite-backed store.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the database file named by cfg.DSN.
func New(ctx context.Context, cfg storage.Config) (storage.Store, error) {
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, err
	}
	// A single writer connection sidesteps SQLITE_BUSY under the pipeline's
	// single-writer model and keeps :memory: databases on one connection.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() { _ = s.db.Close() }

const dateLayout = "2006-01-02"

// Init creates the data and log tables if they do not exist.
func (s *Store) Init(ctx context.Context) error {
	const dataDDL = `
CREATE TABLE IF NOT EXISTS dsm_data (
	site TEXT NOT NULL,
	connectivity TEXT,
	technology TEXT,
	cy INTEGER,
	month TEXT NOT NULL,
	measured_energy_kwh REAL,
	plant_capacity REAL,
	ppa_rate REAL,
	actual_revenue_inr REAL,
	total_penalty_inr REAL,
	commercial_loss REAL,
	qca TEXT,
	UNIQUE(site, month)
)`
	const logDDL = `
CREATE TABLE IF NOT EXISTS ingestion_logs (
	log_id INTEGER PRIMARY KEY AUTOINCREMENT,
	ts TEXT NOT NULL,
	filename TEXT,
	rows_inserted INTEGER NOT NULL,
	rows_updated INTEGER NOT NULL,
	rows_skipped INTEGER NOT NULL,
	status TEXT NOT NULL,
	error_message TEXT
)`
	if _, err := s.db.ExecContext(ctx, dataDDL); err != nil {
		return fmt.Errorf("sqlite: create dsm_data: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, logDDL); err != nil {
		return fmt.Errorf("sqlite: create ingestion_logs: %w", err)
	}
	return nil
}

// Keys returns every persisted (site, month) pair.
func (s *Store) Keys(ctx context.Context) ([]schema.RecordKey, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT site, month FROM dsm_data`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []schema.RecordKey
	for rows.Next() {
		var site, month string
		if err := rows.Scan(&site, &month); err != nil {
			return nil, err
		}
		m, err := time.Parse(dateLayout, month)
		if err != nil {
			return nil, fmt.Errorf("sqlite: bad month %q for site %q: %w", month, site, err)
		}
		out = append(out, schema.RecordKey{Site: site, Month: m.UTC()})
	}
	return out, rows.Err()
}

// InsertRows appends records outside any replace cycle.
func (s *Store) InsertRows(ctx context.Context, rows []schema.Record) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := insertTx(ctx, tx, rows); err != nil {
		return err
	}
	return tx.Commit()
}

// ReplaceRows deletes every record matching keys and inserts rows inside one
// transaction. Either both take effect or neither does.
func (s *Store) ReplaceRows(ctx context.Context, keys []schema.RecordKey, rows []schema.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if len(keys) > 0 {
		del, err := tx.PrepareContext(ctx, `DELETE FROM dsm_data WHERE site = ? AND month = ?`)
		if err != nil {
			return err
		}
		for _, k := range keys {
			if _, err := del.ExecContext(ctx, k.Site, k.Month.Format(dateLayout)); err != nil {
				_ = del.Close()
				return fmt.Errorf("sqlite: delete %s: %w", k, err)
			}
		}
		_ = del.Close()
	}

	if err := insertTx(ctx, tx, rows); err != nil {
		return err
	}
	return tx.Commit()
}

func insertTx(ctx context.Context, tx *sql.Tx, rows []schema.Record) error {
	if len(rows) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO dsm_data (
	site, connectivity, technology, cy, month,
	measured_energy_kwh, plant_capacity, ppa_rate,
	actual_revenue_inr, total_penalty_inr, commercial_loss, qca
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range rows {
		_, err := stmt.ExecContext(ctx,
			r.Site, r.Connectivity, r.Technology, r.CY, r.Month.Format(dateLayout),
			r.MeasuredEnergyKWh, r.PlantCapacity, r.PPARate,
			r.ActualRevenueINR, r.TotalPenaltyINR, r.CommercialLoss, r.QCA,
		)
		if err != nil {
			return fmt.Errorf("sqlite: insert %s: %w", r.Key(), err)
		}
	}
	return nil
}

// FetchAll returns every persisted record ordered by site then month.
func (s *Store) FetchAll(ctx context.Context) ([]schema.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT site, connectivity, technology, cy, month,
       measured_energy_kwh, plant_capacity, ppa_rate,
       actual_revenue_inr, total_penalty_inr, commercial_loss, qca
FROM dsm_data
ORDER BY site, month`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []schema.Record
	for rows.Next() {
		var (
			r                schema.Record
			month            string
			conn, tech, qca  sql.NullString
			cy               sql.NullInt64
			energy, capacity sql.NullFloat64
			rate, rev        sql.NullFloat64
			pen, loss        sql.NullFloat64
		)
		if err := rows.Scan(&r.Site, &conn, &tech, &cy, &month,
			&energy, &capacity, &rate, &rev, &pen, &loss, &qca); err != nil {
			return nil, err
		}
		m, err := time.Parse(dateLayout, month)
		if err != nil {
			return nil, fmt.Errorf("sqlite: bad month %q for site %q: %w", month, r.Site, err)
		}
		r.Month = m.UTC()
		r.Connectivity = nullStr(conn)
		r.Technology = nullStr(tech)
		r.QCA = nullStr(qca)
		r.CY = nullInt(cy)
		r.MeasuredEnergyKWh = nullFloat(energy)
		r.PlantCapacity = nullFloat(capacity)
		r.PPARate = nullFloat(rate)
		r.ActualRevenueINR = nullFloat(rev)
		r.TotalPenaltyINR = nullFloat(pen)
		r.CommercialLoss = nullFloat(loss)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Count returns the persisted record count.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM dsm_data`).Scan(&n)
	return n, err
}

// AppendLog writes one immutable ingestion log entry.
func (s *Store) AppendLog(ctx context.Context, e storage.LogEntry) error {
	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	var errMsg any
	if e.ErrorMessage != "" {
		errMsg = e.ErrorMessage
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO ingestion_logs (ts, filename, rows_inserted, rows_updated, rows_skipped, status, error_message)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ts.UTC().Format(time.RFC3339Nano), e.Filename,
		e.RowsInserted, e.RowsUpdated, e.RowsSkipped, e.Status, errMsg)
	return err
}

// RecentLogs returns log entries newest first.
func (s *Store) RecentLogs(ctx context.Context, limit int) ([]storage.LogEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT log_id, ts, filename, rows_inserted, rows_updated, rows_skipped, status, error_message
FROM ingestion_logs
ORDER BY log_id DESC
LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []storage.LogEntry
	for rows.Next() {
		var (
			e        storage.LogEntry
			ts       string
			filename sql.NullString
			errMsg   sql.NullString
		)
		if err := rows.Scan(&e.ID, &ts, &filename, &e.RowsInserted, &e.RowsUpdated, &e.RowsSkipped, &e.Status, &errMsg); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("sqlite: bad log timestamp %q: %w", ts, err)
		}
		e.Timestamp = parsed
		e.Filename = filename.String
		e.ErrorMessage = errMsg.String
		out = append(out, e)
	}
	return out, rows.Err()
}

// IsUniqueViolation reports whether err is the sqlite unique-constraint
// error, for callers that want to distinguish the constraint backstop from
// other storage failures.
func IsUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
