package fhir

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/patient-report-mcp-server/internal/domain"
)

// ResilientClient wraps a fetcher with a circuit breaker so that a failing
// FHIR store trips fast instead of stalling every report request. The breaker
// never retries; callers still see every failure as an error.
type ResilientClient struct {
	fetcher domain.PatientDataFetcher
	breaker *gobreaker.CircuitBreaker
	logger  *logrus.Logger
}

// NewResilientClient creates a breaker-wrapped fetcher.
func NewResilientClient(fetcher domain.PatientDataFetcher, logger *logrus.Logger) *ResilientClient {
	settings := gobreaker.Settings{
		Name:        "FHIR",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	}

	return &ResilientClient{
		fetcher: fetcher,
		breaker: gobreaker.NewCircuitBreaker(settings),
		logger:  logger,
	}
}

// FetchEverything fetches all patient data through the breaker.
func (r *ResilientClient) FetchEverything(ctx context.Context, patientID string) ([]domain.Record, error) {
	result, err := r.breaker.Execute(func() (interface{}, error) {
		return r.fetcher.FetchEverything(ctx, patientID)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState {
			return nil, domain.NewReportError(domain.ErrUpstreamAPI,
				"FHIR store temporarily unavailable (circuit breaker open)", err)
		}
		return nil, err
	}
	return result.([]domain.Record), nil
}

// FetchResourceType fetches a single resource type through the breaker.
func (r *ResilientClient) FetchResourceType(ctx context.Context, patientID, resourceType string) ([]domain.Record, error) {
	result, err := r.breaker.Execute(func() (interface{}, error) {
		return r.fetcher.FetchResourceType(ctx, patientID, resourceType)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState {
			return nil, domain.NewReportError(domain.ErrUpstreamAPI,
				"FHIR store temporarily unavailable (circuit breaker open)", err)
		}
		return nil, err
	}
	return result.([]domain.Record), nil
}

// State returns the current breaker state for health reporting.
func (r *ResilientClient) State() gobreaker.State {
	return r.breaker.State()
}
