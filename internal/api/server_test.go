package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patient-report-mcp-server/internal/audit"
	"github.com/patient-report-mcp-server/internal/domain"
	"github.com/patient-report-mcp-server/internal/report"
)

type stubFetcher struct {
	records []domain.Record
	err     error
}

func (s *stubFetcher) FetchEverything(ctx context.Context, patientID string) ([]domain.Record, error) {
	return s.records, s.err
}

func (s *stubFetcher) FetchResourceType(ctx context.Context, patientID, resourceType string) ([]domain.Record, error) {
	return s.records, s.err
}

type memoryAudit struct {
	events []*audit.Event
}

func (m *memoryAudit) Record(ctx context.Context, event *audit.Event) error {
	m.events = append(m.events, event)
	return nil
}

func (m *memoryAudit) List(ctx context.Context, limit, offset int) ([]*audit.Event, error) {
	if offset >= len(m.events) {
		return nil, nil
	}
	end := offset + limit
	if end > len(m.events) {
		end = len(m.events)
	}
	return m.events[offset:end], nil
}

func (m *memoryAudit) ListByPatient(ctx context.Context, patientID string, limit int) ([]*audit.Event, error) {
	var matched []*audit.Event
	for _, event := range m.events {
		if event.PatientID == patientID && len(matched) < limit {
			matched = append(matched, event)
		}
	}
	return matched, nil
}

func (m *memoryAudit) Count(ctx context.Context) (int64, error) {
	return int64(len(m.events)), nil
}

func (m *memoryAudit) Close() error {
	return nil
}

func testConfig() *domain.Config {
	return &domain.Config{
		Server:  domain.ServerConfig{Host: "127.0.0.1", Port: 8080},
		Logging: domain.LoggingConfig{Level: "error", Format: "json"},
	}
}

func newTestServer(t *testing.T, fetcher domain.PatientDataFetcher, store audit.Store) *Server {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	opts := []report.Option{}
	if store != nil {
		opts = append(opts, report.WithAuditStore(store))
	}
	service := report.NewService(fetcher, logger, opts...)
	return NewServer(testConfig(), service, store, logger)
}

func conditionRecords(names ...string) []domain.Record {
	records := make([]domain.Record, 0, len(names))
	for _, name := range names {
		records = append(records, domain.Record{
			Type: domain.TypeCondition,
			Condition: &domain.Condition{
				Code: &domain.CodeableConcept{Text: name},
			},
		})
	}
	return records
}

func doRequest(t *testing.T, server *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	server := newTestServer(t, &stubFetcher{}, nil)

	rec := doRequest(t, server, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestCompleteReportEndpoint(t *testing.T) {
	server := newTestServer(t, &stubFetcher{records: conditionRecords("Hypertension")}, nil)

	rec := doRequest(t, server, http.MethodGet, "/api/v1/patients/patient-123/report")
	assert.Equal(t, http.StatusOK, rec.Code)

	var result report.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, report.StatusSuccess, result.Status)
	assert.Equal(t, "patient-123", result.PatientID)
	assert.Contains(t, result.Report, "COMPLETE CLINICAL SUMMARY REPORT")
}

func TestResourceReportEndpoint(t *testing.T) {
	server := newTestServer(t, &stubFetcher{records: conditionRecords("Diabetes", "Asthma")}, nil)

	rec := doRequest(t, server, http.MethodGet, "/api/v1/patients/patient-123/report/Condition")
	assert.Equal(t, http.StatusOK, rec.Code)

	var result report.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "Condition", result.ResourceType)
	assert.Equal(t, 2, result.ResourceCount)
}

func TestResourceReportNoDataReturns404(t *testing.T) {
	server := newTestServer(t, &stubFetcher{}, nil)

	rec := doRequest(t, server, http.MethodGet, "/api/v1/patients/patient-123/report/Condition")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var result report.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, domain.ErrNoData, result.ErrorCode)
}

func TestCompleteReportFetchErrorReturns502(t *testing.T) {
	fetcher := &stubFetcher{
		err: domain.NewReportError(domain.ErrUpstreamAPI, "FHIR API error (status 500)", nil),
	}
	server := newTestServer(t, fetcher, nil)

	rec := doRequest(t, server, http.MethodGet, "/api/v1/patients/patient-123/report")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestAuditEventsEndpoint(t *testing.T) {
	store := &memoryAudit{}
	server := newTestServer(t, &stubFetcher{records: conditionRecords("Hypertension")}, store)

	doRequest(t, server, http.MethodGet, "/api/v1/patients/patient-123/report")
	doRequest(t, server, http.MethodGet, "/api/v1/patients/patient-456/report")

	rec := doRequest(t, server, http.MethodGet, "/api/v1/audit/events")
	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Events []*audit.Event `json:"events"`
		Count  int            `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)

	rec = doRequest(t, server, http.MethodGet, "/api/v1/audit/events?patient_id=patient-456")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 1, body.Count)
	assert.Equal(t, "patient-456", body.Events[0].PatientID)
}

func TestAuditEventsInvalidLimit(t *testing.T) {
	server := newTestServer(t, &stubFetcher{}, &memoryAudit{})

	rec := doRequest(t, server, http.MethodGet, "/api/v1/audit/events?limit=nope")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuditEndpointAbsentWhenDisabled(t *testing.T) {
	server := newTestServer(t, &stubFetcher{}, nil)

	rec := doRequest(t, server, http.MethodGet, "/api/v1/audit/events")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRequestIDHeaderAssigned(t *testing.T) {
	server := newTestServer(t, &stubFetcher{}, nil)

	rec := doRequest(t, server, http.MethodGet, "/health")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}
