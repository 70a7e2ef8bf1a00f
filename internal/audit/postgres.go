package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PostgresStore implements the Store interface using PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL audit store.
// It expects the report_events table to already exist.
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromURL creates a new PostgreSQL audit store from a
// connection URL.
func NewPostgresStoreFromURL(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	store, err := NewPostgresStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// Record stores one report generation event.
func (s *PostgresStore) Record(ctx context.Context, event *Event) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO report_events (
			patient_id, report_type, resource_type,
			status, error_code, record_count, duration_ms, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	err := s.db.QueryRowContext(ctx, query,
		event.PatientID,
		event.ReportType,
		event.ResourceType,
		event.Status,
		event.ErrorCode,
		event.RecordCount,
		event.DurationMS,
		event.CreatedAt,
	).Scan(&event.ID)
	if err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}

	return nil
}

// List returns events most recent first with pagination.
func (s *PostgresStore) List(ctx context.Context, limit, offset int) ([]*Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, patient_id, report_type, resource_type,
			status, error_code, record_count, duration_ms, created_at
		FROM report_events
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
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
func (s *PostgresStore) ListByPatient(ctx context.Context, patientID string, limit int) ([]*Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, patient_id, report_type, resource_type,
			status, error_code, record_count, duration_ms, created_at
		FROM report_events
		WHERE patient_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
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
func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM report_events").Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
