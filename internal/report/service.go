// Package report assembles human-readable clinical summary reports from FHIR
// resources and wraps them in structured result envelopes.
package report

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/patient-report-mcp-server/internal/audit"
	"github.com/patient-report-mcp-server/internal/domain"
)

const (
	headerRule = "================================================================================"

	envelopeTimeLayout = "2006-01-02 15:04:05"
	headerTimeLayout   = "2006-01-02 15:04"

	// Caps applied to the specific-resource report for conciseness.
	encounterLimit       = 10
	genericResourceLimit = 10
)

// Result envelope statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Resource types with a dedicated section in the complete report, plus the
// administrative types that are counted but never rendered.
var excludedFromOther = map[string]bool{
	domain.TypePatient:             true,
	domain.TypeCondition:           true,
	domain.TypeMedicationRequest:   true,
	domain.TypeMedicationStatement: true,
	domain.TypeObservation:         true,
	domain.TypeAllergyIntolerance:  true,
	domain.TypeProcedure:           true,
	domain.TypeEncounter:           true,
	domain.TypeFamilyMemberHistory: true,
	"Account":                      true,
	"Appointment":                  true,
	"AppointmentResponse":          true,
	"ClinicalImpression":           true,
	"Composition":                  true,
	"Coverage":                     true,
	"DocumentReference":            true,
	"ExplanationOfBenefit":         true,
	"Person":                       true,
	"Organization":                 true,
	"ServiceRequest":               true,
}

// Result is the structured envelope returned by every report operation.
// Errors are carried in the envelope; the operations never return a Go error.
type Result struct {
	Status         string `json:"status"`
	Report         string `json:"report,omitempty"`
	PatientID      string `json:"patient_id"`
	ResourceType   string `json:"resource_type,omitempty"`
	TotalResources int    `json:"total_resources"`
	ResourceCount  int    `json:"resource_count"`
	ErrorCode      string `json:"error_code,omitempty"`
	ErrorMessage   string `json:"error_message,omitempty"`
	GeneratedAt    string `json:"generated_at"`
}

// Service generates patient reports from a data fetcher.
type Service struct {
	fetcher domain.PatientDataFetcher
	clock   domain.Clock
	audit   audit.Store
	logger  *logrus.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the wall clock, used by tests for deterministic output.
func WithClock(clock domain.Clock) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

// WithAuditStore enables recording of report generation events.
func WithAuditStore(store audit.Store) Option {
	return func(s *Service) {
		s.audit = store
	}
}

// NewService creates a report service.
func NewService(fetcher domain.PatientDataFetcher, logger *logrus.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = logrus.New()
	}
	s := &Service{
		fetcher: fetcher,
		clock:   domain.SystemClock{},
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GenerateCompleteReport fetches the patient's full record set and renders
// the complete clinical summary report.
func (s *Service) GenerateCompleteReport(ctx context.Context, patientID string) *Result {
	started := s.clock.Now()

	if strings.TrimSpace(patientID) == "" {
		return s.completeError(ctx, patientID, domain.NewMissingPatientIDError())
	}

	s.logger.WithField("patient_id", patientID).Info("Generating complete patient report")

	records, err := s.fetcher.FetchEverything(ctx, patientID)
	if err != nil {
		return s.completeError(ctx, patientID, err)
	}

	data := domain.Organize(records)

	var report []string
	report = append(report,
		headerRule,
		"COMPLETE CLINICAL SUMMARY REPORT",
		headerRule,
		"Generated: "+started.Format(headerTimeLayout),
		"",
	)

	report = append(report, formatDemographics(data[domain.TypePatient])...)
	report = append(report, formatConditions(data[domain.TypeCondition])...)
	report = append(report, formatMedications(
		data[domain.TypeMedicationRequest], data[domain.TypeMedicationStatement])...)
	report = append(report, formatObservations(data[domain.TypeObservation], true)...)
	report = append(report, formatAllergies(data[domain.TypeAllergyIntolerance])...)
	report = append(report, formatProcedures(data[domain.TypeProcedure])...)
	report = append(report, formatEncounters(data[domain.TypeEncounter], 0)...)
	report = append(report, formatFamilyHistory(data[domain.TypeFamilyMemberHistory])...)

	other := make(map[string][]domain.Record)
	for resourceType, resources := range data {
		if !excludedFromOther[resourceType] {
			other[resourceType] = resources
		}
	}
	report = append(report, formatOtherResources(other, 5)...)

	report = append(report,
		headerRule,
		"CLINICAL SUMMARY",
		sectionRule,
	)

	clinicalCounts := []struct {
		category string
		count    int
	}{
		{"Conditions", len(data[domain.TypeCondition])},
		{"Medications", len(data[domain.TypeMedicationRequest]) + len(data[domain.TypeMedicationStatement])},
		{"Observations", len(data[domain.TypeObservation])},
		{"Allergies", len(data[domain.TypeAllergyIntolerance])},
		{"Procedures", len(data[domain.TypeProcedure])},
		{"Encounters", len(data[domain.TypeEncounter])},
		{"Family History", len(data[domain.TypeFamilyMemberHistory])},
	}

	total := 0
	for _, c := range clinicalCounts {
		total += c.count
		if c.count > 0 {
			report = append(report, fmt.Sprintf("• %s: %d records", c.category, c.count))
		}
	}
	for _, resourceType := range sortedKeys(other) {
		total += len(other[resourceType])
		report = append(report, fmt.Sprintf("• %s: %d records", resourceType, len(other[resourceType])))
	}

	report = append(report,
		"",
		fmt.Sprintf("TOTAL CLINICAL RECORDS: %d", total),
		headerRule,
	)

	generated := s.clock.Now()
	s.recordEvent(ctx, &audit.Event{
		PatientID:   patientID,
		ReportType:  audit.ReportTypeComplete,
		Status:      StatusSuccess,
		RecordCount: total,
		DurationMS:  generated.Sub(started).Milliseconds(),
	})
	s.logger.WithFields(logrus.Fields{
		"patient_id":      patientID,
		"total_resources": total,
	}).Info("Complete patient report generated")

	return &Result{
		Status:         StatusSuccess,
		Report:         strings.Join(report, "\n"),
		PatientID:      patientID,
		TotalResources: total,
		GeneratedAt:    generated.Format(envelopeTimeLayout),
	}
}

// GenerateResourceReport fetches one resource type for the patient and
// renders a focused report.
func (s *Service) GenerateResourceReport(ctx context.Context, patientID, resourceType string) *Result {
	started := s.clock.Now()

	if strings.TrimSpace(patientID) == "" {
		return s.resourceError(ctx, patientID, resourceType, domain.NewMissingPatientIDError())
	}
	if strings.TrimSpace(resourceType) == "" {
		return s.resourceError(ctx, patientID, resourceType,
			domain.NewReportError(domain.ErrInvalidInput, "No resource type provided", nil))
	}

	s.logger.WithFields(logrus.Fields{
		"patient_id":    patientID,
		"resource_type": resourceType,
	}).Info("Generating resource report")

	records, err := s.fetcher.FetchResourceType(ctx, patientID, resourceType)
	if err != nil {
		return s.resourceError(ctx, patientID, resourceType, err)
	}
	if len(records) == 0 {
		return s.resourceError(ctx, patientID, resourceType,
			domain.NewNoDataError(resourceType, patientID))
	}

	upper := strings.ToUpper(resourceType)

	var report []string
	report = append(report,
		headerRule,
		upper+" SUMMARY",
		headerRule,
		"Generated: "+started.Format(headerTimeLayout),
		"",
	)

	switch resourceType {
	case domain.TypeCondition:
		report = append(report, formatConditions(records)...)
	case domain.TypeMedicationRequest:
		report = append(report, formatMedications(records, nil)...)
	case domain.TypeMedicationStatement:
		report = append(report, formatMedications(nil, records)...)
	case domain.TypeObservation:
		report = append(report, formatObservations(records, false)...)
	case domain.TypeAllergyIntolerance:
		report = append(report, formatAllergies(records)...)
	case domain.TypeProcedure:
		report = append(report, formatProcedures(records)...)
	case domain.TypeEncounter:
		report = append(report, formatEncounters(records, encounterLimit)...)
	case domain.TypeFamilyMemberHistory:
		report = append(report, formatFamilyHistory(records)...)
	default:
		report = append(report,
			fmt.Sprintf("%s (%d records)", upper, len(records)),
			sectionRule,
		)
		shown := records
		if len(records) > genericResourceLimit {
			shown = records[:genericResourceLimit]
		}
		for _, rec := range shown {
			if rec.Other == nil {
				continue
			}
			report = append(report, "• "+basicResourceInfo(rec.Other))
		}
		if len(records) > genericResourceLimit {
			report = append(report, fmt.Sprintf("... and %d more", len(records)-genericResourceLimit))
		}
		report = append(report, "")
	}

	report = append(report,
		headerRule,
		fmt.Sprintf("TOTAL %s RECORDS: %d", upper, len(records)),
		headerRule,
	)

	generated := s.clock.Now()
	s.recordEvent(ctx, &audit.Event{
		PatientID:    patientID,
		ReportType:   audit.ReportTypeResource,
		ResourceType: resourceType,
		Status:       StatusSuccess,
		RecordCount:  len(records),
		DurationMS:   generated.Sub(started).Milliseconds(),
	})
	s.logger.WithFields(logrus.Fields{
		"patient_id":     patientID,
		"resource_type":  resourceType,
		"resource_count": len(records),
	}).Info("Resource report generated")

	return &Result{
		Status:        StatusSuccess,
		Report:        strings.Join(report, "\n"),
		PatientID:     patientID,
		ResourceType:  resourceType,
		ResourceCount: len(records),
		GeneratedAt:   generated.Format(envelopeTimeLayout),
	}
}

func (s *Service) completeError(ctx context.Context, patientID string, err error) *Result {
	code, message := classify(err)
	s.logger.WithFields(logrus.Fields{
		"patient_id": patientID,
		"error_code": code,
	}).WithError(err).Error("Complete patient report failed")
	s.recordEvent(ctx, &audit.Event{
		PatientID:  patientID,
		ReportType: audit.ReportTypeComplete,
		Status:     StatusError,
		ErrorCode:  code,
	})
	return &Result{
		Status:       StatusError,
		PatientID:    patientID,
		ErrorCode:    code,
		ErrorMessage: message,
		GeneratedAt:  s.clock.Now().Format(envelopeTimeLayout),
	}
}

func (s *Service) resourceError(ctx context.Context, patientID, resourceType string, err error) *Result {
	code, message := classify(err)
	s.logger.WithFields(logrus.Fields{
		"patient_id":    patientID,
		"resource_type": resourceType,
		"error_code":    code,
	}).WithError(err).Error("Resource report failed")
	s.recordEvent(ctx, &audit.Event{
		PatientID:    patientID,
		ReportType:   audit.ReportTypeResource,
		ResourceType: resourceType,
		Status:       StatusError,
		ErrorCode:    code,
	})
	return &Result{
		Status:       StatusError,
		PatientID:    patientID,
		ResourceType: resourceType,
		ErrorCode:    code,
		ErrorMessage: message,
		GeneratedAt:  s.clock.Now().Format(envelopeTimeLayout),
	}
}

// classify maps an error to its envelope code and user-facing message.
func classify(err error) (code, message string) {
	var re *domain.ReportError
	if errors.As(err, &re) {
		return re.Code, re.Message
	}
	return domain.ErrUpstreamAPI, err.Error()
}

// recordEvent writes an audit event when a store is configured. Audit
// failures are logged and never surface in the report result.
func (s *Service) recordEvent(ctx context.Context, event *audit.Event) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, event); err != nil {
		s.logger.WithError(err).Warn("Failed to record audit event")
	}
}
