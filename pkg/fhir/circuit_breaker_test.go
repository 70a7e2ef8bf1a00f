package fhir

import (
	"context"
	"errors"
	"testing"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patient-report-mcp-server/internal/domain"
)

type scriptedFetcher struct {
	records []domain.Record
	err     error
	calls   int
}

func (s *scriptedFetcher) FetchEverything(ctx context.Context, patientID string) ([]domain.Record, error) {
	s.calls++
	return s.records, s.err
}

func (s *scriptedFetcher) FetchResourceType(ctx context.Context, patientID, resourceType string) ([]domain.Record, error) {
	s.calls++
	return s.records, s.err
}

func TestResilientClientPassThrough(t *testing.T) {
	fetcher := &scriptedFetcher{
		records: []domain.Record{{Type: domain.TypeCondition}},
	}
	client := NewResilientClient(fetcher, testLogger())

	records, err := client.FetchEverything(context.Background(), "patient-123")
	require.NoError(t, err)
	assert.Len(t, records, 1)

	records, err = client.FetchResourceType(context.Background(), "patient-123", "Condition")
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, 2, fetcher.calls)
}

func TestResilientClientPropagatesErrors(t *testing.T) {
	fetcher := &scriptedFetcher{
		err: domain.NewReportError(domain.ErrUpstreamAPI, "FHIR store returned status 500", nil),
	}
	client := NewResilientClient(fetcher, testLogger())

	_, err := client.FetchEverything(context.Background(), "patient-123")
	require.Error(t, err)

	var re *domain.ReportError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, domain.ErrUpstreamAPI, re.Code)
}

func TestResilientClientOpensAfterRepeatedFailures(t *testing.T) {
	fetcher := &scriptedFetcher{err: errors.New("connection refused")}
	client := NewResilientClient(fetcher, testLogger())

	for i := 0; i < 10; i++ {
		client.FetchEverything(context.Background(), "patient-123")
	}

	assert.Equal(t, gobreaker.StateOpen, client.State())

	_, err := client.FetchEverything(context.Background(), "patient-123")
	require.Error(t, err)

	var re *domain.ReportError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, domain.ErrUpstreamAPI, re.Code)
	assert.Contains(t, re.Message, "circuit breaker open")
}

func TestResilientClientClosedOnSuccess(t *testing.T) {
	fetcher := &scriptedFetcher{}
	client := NewResilientClient(fetcher, testLogger())

	client.FetchEverything(context.Background(), "patient-123")
	assert.Equal(t, gobreaker.StateClosed, client.State())
}
