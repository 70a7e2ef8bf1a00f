// Package audit records report generation events for traceability. Only
// request metadata is stored; report text never touches the database.
package audit

import (
	"context"
	"time"
)

// Report type values recorded on events.
const (
	ReportTypeComplete = "complete"
	ReportTypeResource = "resource"
)

// Event is one report generation attempt.
type Event struct {
	ID           int64     `json:"id,omitempty"`
	PatientID    string    `json:"patient_id"`
	ReportType   string    `json:"report_type"`
	ResourceType string    `json:"resource_type,omitempty"`
	Status       string    `json:"status"`
	ErrorCode    string    `json:"error_code,omitempty"`
	RecordCount  int       `json:"record_count"`
	DurationMS   int64     `json:"duration_ms"`
	CreatedAt    time.Time `json:"created_at"`
}

// Store defines the interface for audit storage operations.
type Store interface {
	// Record stores one report generation event.
	Record(ctx context.Context, event *Event) error

	// List returns events most recent first with pagination.
	List(ctx context.Context, limit, offset int) ([]*Event, error)

	// ListByPatient returns events for one patient, most recent first.
	ListByPatient(ctx context.Context, patientID string, limit int) ([]*Event, error)

	// Count returns the total number of recorded events.
	Count(ctx context.Context) (int64, error)

	// Close closes the store and releases resources.
	Close() error
}
