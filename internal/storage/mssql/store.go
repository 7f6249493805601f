// Package mssql implements storage.Store on SQL Server via go-mssqldb.
//
// Dialect notes vs the Postgres/SQLite backends:
//   - @p1-style placeholders and IF NOT EXISTS guards instead of
//     CREATE TABLE IF NOT EXISTS (not available before SQL Server 2016's
//     DROP IF EXISTS, and never for CREATE).
//   - Months are DATE, log timestamps DATETIMEOFFSET; both round-trip
//     through time.Time in the driver.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/microsoft/go-mssqldb"

	"dsmetl/internal/schema"
	"dsmetl/internal/storage"
)

func init() {
	storage.Register("mssql", New)
}

// Store is the SQL Server-backed store.
type Store struct {
	db *sql.DB
}

// New opens a connection for cfg.DSN.
func New(ctx context.Context, cfg storage.Config) (storage.Store, error) {
	db, err := sql.Open("sqlserver", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() { _ = s.db.Close() }

// Init creates the data and log tables if they do not exist.
func (s *Store) Init(ctx context.Context) error {
	const dataDDL = `
IF OBJECT_ID(N'dbo.dsm_data', N'U') IS NULL
CREATE TABLE dbo.dsm_data (
	site NVARCHAR(255) NOT NULL,
	connectivity NVARCHAR(255) NULL,
	technology NVARCHAR(255) NULL,
	cy INT NULL,
	month DATE NOT NULL,
	measured_energy_kwh FLOAT NULL,
	plant_capacity FLOAT NULL,
	ppa_rate FLOAT NULL,
	actual_revenue_inr FLOAT NULL,
	total_penalty_inr FLOAT NULL,
	commercial_loss FLOAT NULL,
	qca NVARCHAR(255) NULL,
	CONSTRAINT uq_dsm_data_site_month UNIQUE (site, month)
)`
	const logDDL = `
IF OBJECT_ID(N'dbo.ingestion_logs', N'U') IS NULL
CREATE TABLE dbo.ingestion_logs (
	log_id BIGINT IDENTITY(1,1) PRIMARY KEY,
	ts DATETIMEOFFSET NOT NULL,
	filename NVARCHAR(512) NULL,
	rows_inserted INT NOT NULL,
	rows_updated INT NOT NULL,
	rows_skipped INT NOT NULL,
	status NVARCHAR(16) NOT NULL,
	error_message NVARCHAR(MAX) NULL
)`
	if _, err := s.db.ExecContext(ctx, dataDDL); err != nil {
		return fmt.Errorf("mssql: create dsm_data: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, logDDL); err != nil {
		return fmt.Errorf("mssql: create ingestion_logs: %w", err)
	}
	return nil
}

// Keys returns every persisted (site, month) pair.
func (s *Store) Keys(ctx context.Context) ([]schema.RecordKey, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT site, month FROM dbo.dsm_data`)
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

// ReplaceRows deletes keys and inserts rows inside one transaction.
func (s *Store) ReplaceRows(ctx context.Context, keys []schema.RecordKey, rows []schema.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, k := range keys {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM dbo.dsm_data WHERE site = @p1 AND month = @p2`,
			k.Site, k.Month); err != nil {
			return fmt.Errorf("mssql: delete %s: %w", k, err)
		}
	}
	if err := insertTx(ctx, tx, rows); err != nil {
		return err
	}
	return tx.Commit()
}

func insertTx(ctx context.Context, tx *sql.Tx, rows []schema.Record) error {
	const stmt = `
INSERT INTO dbo.dsm_data (
	site, connectivity, technology, cy, month,
	measured_energy_kwh, plant_capacity, ppa_rate,
	actual_revenue_inr, total_penalty_inr, commercial_loss, qca
) VALUES (@p1, @p2, @p3, @p4, @p5, @p6, @p7, @p8, @p9, @p10, @p11, @p12)`
	for _, r := range rows {
		_, err := tx.ExecContext(ctx, stmt,
			r.Site, r.Connectivity, r.Technology, r.CY, r.Month,
			r.MeasuredEnergyKWh, r.PlantCapacity, r.PPARate,
			r.ActualRevenueINR, r.TotalPenaltyINR, r.CommercialLoss, r.QCA,
		)
		if err != nil {
			return fmt.Errorf("mssql: insert %s: %w", r.Key(), err)
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
FROM dbo.dsm_data
ORDER BY site, month`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []schema.Record
	for rows.Next() {
		var (
			r                schema.Record
			conn, tech, qca  sql.NullString
			cy               sql.NullInt64
			energy, capacity sql.NullFloat64
			rate, rev        sql.NullFloat64
			pen, loss        sql.NullFloat64
		)
		if err := rows.Scan(&r.Site, &conn, &tech, &cy, &r.Month,
			&energy, &capacity, &rate, &rev, &pen, &loss, &qca); err != nil {
			return nil, err
		}
		r.Month = schema.MonthOf(r.Month)
		if conn.Valid {
			v := conn.String
			r.Connectivity = &v
		}
		if tech.Valid {
			v := tech.String
			r.Technology = &v
		}
		if qca.Valid {
			v := qca.String
			r.QCA = &v
		}
		if cy.Valid {
			v := cy.Int64
			r.CY = &v
		}
		assign := func(dst **float64, src sql.NullFloat64) {
			if src.Valid {
				v := src.Float64
				*dst = &v
			}
		}
		assign(&r.MeasuredEnergyKWh, energy)
		assign(&r.PlantCapacity, capacity)
		assign(&r.PPARate, rate)
		assign(&r.ActualRevenueINR, rev)
		assign(&r.TotalPenaltyINR, pen)
		assign(&r.CommercialLoss, loss)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Count returns the persisted record count.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM dbo.dsm_data`).Scan(&n)
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
INSERT INTO dbo.ingestion_logs (ts, filename, rows_inserted, rows_updated, rows_skipped, status, error_message)
VALUES (@p1, @p2, @p3, @p4, @p5, @p6, @p7)`,
		ts.UTC(), e.Filename, e.RowsInserted, e.RowsUpdated, e.RowsSkipped, e.Status, errMsg)
	return err
}

// RecentLogs returns log entries newest first.
func (s *Store) RecentLogs(ctx context.Context, limit int) ([]storage.LogEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT TOP (@p1) log_id, ts, filename, rows_inserted, rows_updated, rows_skipped, status, error_message
FROM dbo.ingestion_logs
ORDER BY log_id DESC`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []storage.LogEntry
	for rows.Next() {
		var (
			e        storage.LogEntry
			filename sql.NullString
			errMsg   sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.Timestamp, &filename, &e.RowsInserted, &e.RowsUpdated, &e.RowsSkipped, &e.Status, &errMsg); err != nil {
			return nil, err
		}
		e.Filename = filename.String
		e.ErrorMessage = errMsg.String
		out = append(out, e)
	}
	return out, rows.Err()
}
