package tools

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patient-report-mcp-server/internal/domain"
	"github.com/patient-report-mcp-server/internal/mcp/protocol"
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

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
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

func TestCompleteReportToolSuccess(t *testing.T) {
	logger := testLogger()
	service := report.NewService(&stubFetcher{records: conditionRecords("Hypertension")}, logger)
	tool := NewCompleteReportTool(service, logger)

	resp := tool.HandleTool(context.Background(), &protocol.JSONRPC2Request{
		JSONRPC: "2.0",
		Method:  "tool_call",
		Params:  map[string]interface{}{"patient_id": "patient-123"},
		ID:      1,
	})

	require.Nil(t, resp.Error)
	result, ok := resp.Result.(*report.Result)
	require.True(t, ok)
	assert.Equal(t, report.StatusSuccess, result.Status)
	assert.Equal(t, "patient-123", result.PatientID)
	assert.Contains(t, result.Report, "COMPLETE CLINICAL SUMMARY REPORT")
}

func TestCompleteReportToolMissingPatientID(t *testing.T) {
	logger := testLogger()
	service := report.NewService(&stubFetcher{}, logger)
	tool := NewCompleteReportTool(service, logger)

	resp := tool.HandleTool(context.Background(), &protocol.JSONRPC2Request{
		JSONRPC: "2.0",
		Method:  "tool_call",
		Params:  map[string]interface{}{},
		ID:      2,
	})

	require.Nil(t, resp.Error)
	result, ok := resp.Result.(*report.Result)
	require.True(t, ok)
	assert.Equal(t, report.StatusError, result.Status)
	assert.Equal(t, "No patient ID provided. Please provide a patient ID first.", result.ErrorMessage)
}

func TestCompleteReportToolNilParams(t *testing.T) {
	logger := testLogger()
	service := report.NewService(&stubFetcher{}, logger)
	tool := NewCompleteReportTool(service, logger)

	resp := tool.HandleTool(context.Background(), &protocol.JSONRPC2Request{
		JSONRPC: "2.0",
		Method:  "tool_call",
		ID:      3,
	})

	require.NotNil(t, resp.Error)
	assert.Equal(t, protocol.InvalidParams, resp.Error.Code)
}

func TestResourceReportToolSuccess(t *testing.T) {
	logger := testLogger()
	service := report.NewService(&stubFetcher{records: conditionRecords("Diabetes", "Asthma")}, logger)
	tool := NewResourceReportTool(service, logger)

	resp := tool.HandleTool(context.Background(), &protocol.JSONRPC2Request{
		JSONRPC: "2.0",
		Method:  "tool_call",
		Params: map[string]interface{}{
			"patient_id":    "patient-123",
			"resource_type": "Condition",
		},
		ID: 4,
	})

	require.Nil(t, resp.Error)
	result, ok := resp.Result.(*report.Result)
	require.True(t, ok)
	assert.Equal(t, report.StatusSuccess, result.Status)
	assert.Equal(t, "Condition", result.ResourceType)
	assert.Equal(t, 2, result.ResourceCount)
	assert.Contains(t, result.Report, "CONDITION SUMMARY")
}

func TestResourceReportToolNoData(t *testing.T) {
	logger := testLogger()
	service := report.NewService(&stubFetcher{}, logger)
	tool := NewResourceReportTool(service, logger)

	resp := tool.HandleTool(context.Background(), &protocol.JSONRPC2Request{
		JSONRPC: "2.0",
		Method:  "tool_call",
		Params: map[string]interface{}{
			"patient_id":    "patient-123",
			"resource_type": "Condition",
		},
		ID: 5,
	})

	require.Nil(t, resp.Error)
	result, ok := resp.Result.(*report.Result)
	require.True(t, ok)
	assert.Equal(t, report.StatusError, result.Status)
	assert.Equal(t, "No Condition data found for patient patient-123", result.ErrorMessage)
}

func TestToolInfoSchemas(t *testing.T) {
	logger := testLogger()
	service := report.NewService(&stubFetcher{}, logger)

	completeInfo := NewCompleteReportTool(service, logger).GetToolInfo()
	assert.Equal(t, "generate_complete_patient_report", completeInfo.Name)
	require.NotNil(t, completeInfo.InputSchema)
	assert.Equal(t, []string{"patient_id"}, completeInfo.InputSchema["required"])

	resourceInfo := NewResourceReportTool(service, logger).GetToolInfo()
	assert.Equal(t, "generate_specific_resource_report", resourceInfo.Name)
	require.NotNil(t, resourceInfo.InputSchema)
	assert.Equal(t, []string{"patient_id", "resource_type"}, resourceInfo.InputSchema["required"])
}

func TestRegistryRegistersAndExecutes(t *testing.T) {
	logger := testLogger()
	router := protocol.NewMessageRouter(logger)
	service := report.NewService(&stubFetcher{records: conditionRecords("Hypertension")}, logger)
	registry := NewToolRegistry(logger, router, service)

	require.NoError(t, registry.RegisterAllTools())
	require.NoError(t, registry.ValidateAllTools())
	assert.Len(t, registry.GetRegisteredToolsInfo(), 2)

	resp := registry.ExecuteTool(context.Background(), &protocol.JSONRPC2Request{
		JSONRPC: "2.0",
		Method:  "generate_complete_patient_report",
		Params:  map[string]interface{}{"patient_id": "patient-123"},
		ID:      6,
	})
	require.Nil(t, resp.Error)

	resp = registry.ExecuteTool(context.Background(), &protocol.JSONRPC2Request{
		JSONRPC: "2.0",
		Method:  "unknown_tool",
		ID:      7,
	})
	require.NotNil(t, resp.Error)
	assert.Equal(t, protocol.MethodNotFound, resp.Error.Code)
}
