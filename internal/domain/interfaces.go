package domain

import (
	"context"
	"time"
)

// CredentialProvider supplies the bearer token used against the FHIR store.
// Implementations shell out to gcloud, use Application Default Credentials,
// or return a fixed token in tests.
type CredentialProvider interface {
	Token(ctx context.Context) (string, error)
}

// PatientDataFetcher retrieves clinical records for one patient. Both
// operations return the union of all result pages; a failing page fails the
// whole fetch with no partial result.
type PatientDataFetcher interface {
	// FetchEverything runs the $everything operation across all resource types.
	FetchEverything(ctx context.Context, patientID string) ([]Record, error)
	// FetchResourceType lists records of a single type for the patient.
	FetchResourceType(ctx context.Context, patientID, resourceType string) ([]Record, error)
}

// Clock abstracts time so the generated_at envelope field is testable.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock.
type SystemClock struct{}

// Now returns the current wall-clock time.
func (SystemClock) Now() time.Time {
	return time.Now()
}
