package storage

import "time"

// Ingestion outcome statuses.
const (
	StatusSuccess = "SUCCESS"
	StatusFailed  = "FAILED"
)

// LogEntry is one row of the append-only ingestion audit trail. Entries are
// created exactly once per ingestion attempt and never updated or deleted.
type LogEntry struct {
	ID           int64
	Timestamp    time.Time
	Filename     string
	RowsInserted int
	RowsUpdated  int
	RowsSkipped  int
	Status       string
	ErrorMessage string // empty on success
}
