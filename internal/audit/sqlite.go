package audit

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates a new SQLite audit store.
// It creates the database file and schema if they don't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEvent(s scanner) (*Event, error) {
	ev := &Event{}
	err := s.Scan(
		&ev.ID, &ev.PatientID, &ev.ReportType, &ev.ResourceType,
		&ev.Status, &ev.ErrorCode, &ev.RecordCount, &ev.DurationMS,
		&ev.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return ev, nil
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS report_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		patient_id TEXT NOT NULL,
		report_type TEXT NOT NULL,
		resource_type TEXT DEFAULT '',
		status TEXT NOT NULL,
		error_code TEXT DEFAULT '',
		record_count INTEGER NOT NULL DEFAULT 0,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_report_events_patient ON report_events(patient_id);
	CREATE INDEX IF NOT EXISTS idx_report_events_created ON report_events(created_at);
	`

	_, err := db.Exec(schema)
	return err
}

// Record stores one report generation event.
func (s *SQLiteStore) Record(ctx context.Context, event *Event) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO report_events (
			patient_id, report_type, resource_type,
			status, error_code, record_count, duration_ms, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		event.PatientID,
		event.ReportType,
		event.ResourceType,
		event.Status,
		event.ErrorCode,
		event.RecordCount,
		event.DurationMS,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get insert ID: %w", err)
	}
	event.ID = id

	return nil
}

// List returns events most recent first with pagination.
func (s *SQLiteStore) List(ctx context.Context, limit, offset int) ([]*Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, patient_id, report_type, resource_type,
			status, error_code, record_count, duration_ms, created_at
		FROM report_events
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	var result []*Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, ev)
	}
	return result, rows.Err()
}

// ListByPatient returns events for one patient, most recent first.
func (s *SQLiteStore) ListByPatient(ctx context.Context, patientID string, limit int) ([]*Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, patient_id, report_type, resource_type,
			status, error_code, record_count, duration_ms, created_at
		FROM report_events
		WHERE patient_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, patientID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	var result []*Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, ev)
	}
	return result, rows.Err()
}

// Count returns the total number of recorded events.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM report_events").Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
