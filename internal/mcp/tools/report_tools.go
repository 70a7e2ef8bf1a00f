package tools

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/patient-report-mcp-server/internal/mcp/protocol"
	"github.com/patient-report-mcp-server/internal/report"
)

// CompleteReportTool implements the generate_complete_patient_report MCP tool
type CompleteReportTool struct {
	service *report.Service
	logger  *logrus.Logger
}

// CompleteReportParams defines parameters for the complete report tool
type CompleteReportParams struct {
	PatientID string `json:"patient_id"`
}

// NewCompleteReportTool creates a new generate_complete_patient_report tool
func NewCompleteReportTool(service *report.Service, logger *logrus.Logger) *CompleteReportTool {
	return &CompleteReportTool{
		service: service,
		logger:  logger,
	}
}

// HandleTool implements the ToolHandler interface for generate_complete_patient_report
func (t *CompleteReportTool) HandleTool(ctx context.Context, req *protocol.JSONRPC2Request) *protocol.JSONRPC2Response {
	t.logger.WithField("tool", "generate_complete_patient_report").Info("Processing complete report request")

	var params CompleteReportParams
	if err := ParseParams(req.Params, &params); err != nil {
		return &protocol.JSONRPC2Response{
			JSONRPC: "2.0",
			Error: &protocol.RPCError{
				Code:    protocol.InvalidParams,
				Message: "Invalid parameters",
				Data:    err.Error(),
			},
			ID: req.ID,
		}
	}

	result := t.service.GenerateCompleteReport(ctx, params.PatientID)

	t.logger.WithFields(logrus.Fields{
		"patient_id":      params.PatientID,
		"status":          result.Status,
		"total_resources": result.TotalResources,
	}).Info("Complete report request finished")

	return &protocol.JSONRPC2Response{
		JSONRPC: "2.0",
		Result:  result,
		ID:      req.ID,
	}
}

// GetToolInfo returns tool metadata
func (t *CompleteReportTool) GetToolInfo() protocol.ToolInfo {
	return protocol.ToolInfo{
		Name:        "generate_complete_patient_report",
		Description: "Generate a complete clinical summary report covering every FHIR resource stored for a patient",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"patient_id": map[string]interface{}{
					"type":        "string",
					"description": "FHIR patient identifier",
				},
			},
			"required": []string{"patient_id"},
		},
	}
}

// ValidateParams validates tool parameters
func (t *CompleteReportTool) ValidateParams(params interface{}) error {
	var reportParams CompleteReportParams
	return ParseParams(params, &reportParams)
}

// ResourceReportTool implements the generate_specific_resource_report MCP tool
type ResourceReportTool struct {
	service *report.Service
	logger  *logrus.Logger
}

// ResourceReportParams defines parameters for the resource report tool
type ResourceReportParams struct {
	PatientID    string `json:"patient_id"`
	ResourceType string `json:"resource_type"`
}

// NewResourceReportTool creates a new generate_specific_resource_report tool
func NewResourceReportTool(service *report.Service, logger *logrus.Logger) *ResourceReportTool {
	return &ResourceReportTool{
		service: service,
		logger:  logger,
	}
}

// HandleTool implements the ToolHandler interface for generate_specific_resource_report
func (t *ResourceReportTool) HandleTool(ctx context.Context, req *protocol.JSONRPC2Request) *protocol.JSONRPC2Response {
	t.logger.WithField("tool", "generate_specific_resource_report").Info("Processing resource report request")

	var params ResourceReportParams
	if err := ParseParams(req.Params, &params); err != nil {
		return &protocol.JSONRPC2Response{
			JSONRPC: "2.0",
			Error: &protocol.RPCError{
				Code:    protocol.InvalidParams,
				Message: "Invalid parameters",
				Data:    err.Error(),
			},
			ID: req.ID,
		}
	}

	result := t.service.GenerateResourceReport(ctx, params.PatientID, params.ResourceType)

	t.logger.WithFields(logrus.Fields{
		"patient_id":    params.PatientID,
		"resource_type": params.ResourceType,
		"status":        result.Status,
	}).Info("Resource report request finished")

	return &protocol.JSONRPC2Response{
		JSONRPC: "2.0",
		Result:  result,
		ID:      req.ID,
	}
}

// GetToolInfo returns tool metadata
func (t *ResourceReportTool) GetToolInfo() protocol.ToolInfo {
	return protocol.ToolInfo{
		Name:        "generate_specific_resource_report",
		Description: "Generate a focused report covering a single FHIR resource type for a patient, such as Condition or Observation",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"patient_id": map[string]interface{}{
					"type":        "string",
					"description": "FHIR patient identifier",
				},
				"resource_type": map[string]interface{}{
					"type":        "string",
					"description": "FHIR resource type to report on, for example Condition, Observation or MedicationRequest",
				},
			},
			"required": []string{"patient_id", "resource_type"},
		},
	}
}

// ValidateParams validates tool parameters
func (t *ResourceReportTool) ValidateParams(params interface{}) error {
	var reportParams ResourceReportParams
	return ParseParams(params, &reportParams)
}
