package domain

import (
	"fmt"
)

// Error codes surfaced in report envelopes.
const (
	ErrMissingPatientID = "MISSING_PATIENT_ID"
	ErrUpstreamAPI      = "FHIR_API_ERROR"
	ErrNoData           = "NO_DATA_FOUND"
	ErrAuthentication   = "AUTHENTICATION_ERROR"
	ErrInvalidInput     = "INVALID_INPUT"
)

// ReportError is a classified failure from the fetch/format pipeline. All
// errors crossing the operation boundary are converted into envelope fields;
// nothing propagates past it.
type ReportError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *ReportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause.
func (e *ReportError) Unwrap() error {
	return e.Err
}

// NewReportError creates a classified error wrapping an underlying cause.
func NewReportError(code, message string, err error) *ReportError {
	return &ReportError{Code: code, Message: message, Err: err}
}

// NewMissingPatientIDError reports that no patient identifier was supplied.
func NewMissingPatientIDError() *ReportError {
	return &ReportError{
		Code:    ErrMissingPatientID,
		Message: "No patient ID provided. Please provide a patient ID first.",
	}
}

// NewNoDataError reports a zero-record result for a specific resource type.
func NewNoDataError(resourceType, patientID string) *ReportError {
	return &ReportError{
		Code:    ErrNoData,
		Message: fmt.Sprintf("No %s data found for patient %s", resourceType, patientID),
	}
}
