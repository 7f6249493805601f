// Package postgres implements storage.Store on pgx. Months land in a DATE
// column and log timestamps in TIMESTAMPTZ; the delete+insert of
// ReplaceRows runs under one pgx transaction.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dsmetl/internal/schema"
	"dsmetl/internal/storage"
)

func init() {
	storage.Register("postgres", New)
}

// Store is the Postgres-backed store.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a connection pool for cfg.DSN.
func New(ctx context.Context, cfg storage.Config) (storage.Store, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Close closes the pool.
func (s *Store) Close() { s.pool.Close() }

// Init creates the data and log tables if they do not exist.
func (s *Store) Init(ctx context.Context) error {
	const dataDDL = `
CREATE TABLE IF NOT EXISTS dsm_data (
	site TEXT NOT NULL,
	connectivity TEXT,
	technology TEXT,
	cy INTEGER,
	month DATE NOT NULL,
	measured_energy_kwh DOUBLE PRECISION,
	plant_capacity DOUBLE PRECISION,
	ppa_rate DOUBLE PRECISION,
	actual_revenue_inr DOUBLE PRECISION,
	total_penalty_inr DOUBLE PRECISION,
	commercial_loss DOUBLE PRECISION,
	qca TEXT,
	UNIQUE (site, month)
)`
	const logDDL = `
CREATE TABLE IF NOT EXISTS ingestion_logs (
	log_id BIGSERIAL PRIMARY KEY,
	ts TIMESTAMPTZ NOT NULL,
	filename TEXT,
	rows_inserted INTEGER NOT NULL,
	rows_updated INTEGER NOT NULL,
	rows_skipped INTEGER NOT NULL,
	status TEXT NOT NULL,
	error_message TEXT
)`
	if _, err := s.pool.Exec(ctx, dataDDL); err != nil {
		return fmt.Errorf("postgres: create dsm_data: %w", err)
	}
	if _, err := s.pool.Exec(ctx, logDDL); err != nil {
		return fmt.Errorf("postgres: create ingestion_logs: %w", err)
	}
	return nil
}

// Keys returns every persisted (site, month) pair.
func (s *Store) Keys(ctx context.Context) ([]schema.RecordKey, error) {
	rows, err := s.pool.Query(ctx, `SELECT site, month FROM dsm_data`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []schema.RecordKey
	for rows.Next() {
		var k schema.RecordKey
		if err := rows.Scan(&k.Site, &k.Month); err != nil {
			return nil, err
		}
		k.Month = schema.MonthOf(k.Month)
		out = append(out, k)
	}
	return out, rows.Err()
}

// InsertRows appends records in one transaction.
func (s *Store) InsertRows(ctx context.Context, rows []schema.Record) error {
	if len(rows) == 0 {
		return nil
	}
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return insertTx(ctx, tx, rows)
	})
}

// ReplaceRows deletes keys and inserts rows inside one transaction.
func (s *Store) ReplaceRows(ctx context.Context, keys []schema.RecordKey, rows []schema.Record) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		for _, k := range keys {
			if _, err := tx.Exec(ctx,
				`DELETE FROM dsm_data WHERE site = $1 AND month = $2`,
				k.Site, k.Month); err != nil {
				return fmt.Errorf("postgres: delete %s: %w", k, err)
			}
		}
		return insertTx(ctx, tx, rows)
	})
}

func insertTx(ctx context.Context, tx pgx.Tx, rows []schema.Record) error {
	const stmt = `
INSERT INTO dsm_data (
	site, connectivity, technology, cy, month,
	measured_energy_kwh, plant_capacity, ppa_rate,
	actual_revenue_inr, total_penalty_inr, commercial_loss, qca
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	for _, r := range rows {
		_, err := tx.Exec(ctx, stmt,
			r.Site, r.Connectivity, r.Technology, r.CY, r.Month,
			r.MeasuredEnergyKWh, r.PlantCapacity, r.PPARate,
			r.ActualRevenueINR, r.TotalPenaltyINR, r.CommercialLoss, r.QCA,
		)
		if err != nil {
			return fmt.Errorf("postgres: insert %s: %w", r.Key(), err)
		}
	}
	return nil
}

// FetchAll returns every persisted record ordered by site then month.
func (s *Store) FetchAll(ctx context.Context) ([]schema.Record, error) {
	rows, err := s.pool.Query(ctx, `
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
		var r schema.Record
		if err := rows.Scan(&r.Site, &r.Connectivity, &r.Technology, &r.CY, &r.Month,
			&r.MeasuredEnergyKWh, &r.PlantCapacity, &r.PPARate,
			&r.ActualRevenueINR, &r.TotalPenaltyINR, &r.CommercialLoss, &r.QCA); err != nil {
			return nil, err
		}
		r.Month = schema.MonthOf(r.Month)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Count returns the persisted record count.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM dsm_data`).Scan(&n)
	return n, err
}

// AppendLog writes one immutable ingestion log entry.
func (s *Store) AppendLog(ctx context.Context, e storage.LogEntry) error {
	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	var errMsg *string
	if e.ErrorMessage != "" {
		errMsg = &e.ErrorMessage
	}
	_, err := s.pool.Exec(ctx, `
INSERT INTO ingestion_logs (ts, filename, rows_inserted, rows_updated, rows_skipped, status, error_message)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		ts.UTC(), e.Filename, e.RowsInserted, e.RowsUpdated, e.RowsSkipped, e.Status, errMsg)
	return err
}

// RecentLogs returns log entries newest first.
func (s *Store) RecentLogs(ctx context.Context, limit int) ([]storage.LogEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.pool.Query(ctx, `
SELECT log_id, ts, filename, rows_inserted, rows_updated, rows_skipped, status, error_message
FROM ingestion_logs
ORDER BY log_id DESC
LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []storage.LogEntry
	for rows.Next() {
		var (
			e        storage.LogEntry
			filename *string
			errMsg   *string
		)
		if err := rows.Scan(&e.ID, &e.Timestamp, &filename, &e.RowsInserted, &e.RowsUpdated, &e.RowsSkipped, &e.Status, &errMsg); err != nil {
			return nil, err
		}
		if filename != nil {
			e.Filename = *filename
		}
		if errMsg != nil {
			e.ErrorMessage = *errMsg
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
