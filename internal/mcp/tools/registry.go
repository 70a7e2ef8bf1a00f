package tools

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/patient-report-mcp-server/internal/mcp/protocol"
	"github.com/patient-report-mcp-server/internal/report"
)

// ToolRegistry manages registration of all MCP tools
type ToolRegistry struct {
	logger  *logrus.Logger
	router  *protocol.MessageRouter
	service *report.Service
}

// NewToolRegistry creates a new tool registry
func NewToolRegistry(logger *logrus.Logger, router *protocol.MessageRouter, service *report.Service) *ToolRegistry {
	return &ToolRegistry{
		logger:  logger,
		router:  router,
		service: service,
	}
}

// RegisterAllTools registers the patient report tools with the MCP router
func (tr *ToolRegistry) RegisterAllTools() error {
	tr.logger.Info("Registering patient report tools")

	completeTool := NewCompleteReportTool(tr.service, tr.logger)
	tr.router.RegisterToolHandler("generate_complete_patient_report", completeTool)
	tr.logger.Debug("Registered generate_complete_patient_report tool")

	resourceTool := NewResourceReportTool(tr.service, tr.logger)
	tr.router.RegisterToolHandler("generate_specific_resource_report", resourceTool)
	tr.logger.Debug("Registered generate_specific_resource_report tool")

	tr.logger.Info("Successfully registered patient report tools")
	return nil
}

// ExecuteTool dispatches a tool request to its registered handler. The
// request method carries the tool name.
func (tr *ToolRegistry) ExecuteTool(ctx context.Context, req *protocol.JSONRPC2Request) *protocol.JSONRPC2Response {
	handler, exists := tr.router.GetToolHandler(req.Method)
	if !exists {
		return &protocol.JSONRPC2Response{
			JSONRPC: "2.0",
			Error: &protocol.RPCError{
				Code:    protocol.MethodNotFound,
				Message: "Tool not found",
				Data:    fmt.Sprintf("No tool registered with name: %s", req.Method),
			},
			ID: req.ID,
		}
	}

	return handler.HandleTool(ctx, req)
}

// GetRegisteredToolsInfo returns information about all registered tools
func (tr *ToolRegistry) GetRegisteredToolsInfo() []protocol.ToolInfo {
	toolHandlers := tr.router.GetToolHandlers()
	toolsInfo := make([]protocol.ToolInfo, 0, len(toolHandlers))

	for _, handler := range toolHandlers {
		toolsInfo = append(toolsInfo, handler.GetToolInfo())
	}

	return toolsInfo
}

// ValidateAllTools validates all registered tools expose complete metadata
func (tr *ToolRegistry) ValidateAllTools() error {
	tr.logger.Info("Validating all registered tools")

	toolHandlers := tr.router.GetToolHandlers()

	for name, handler := range toolHandlers {
		toolInfo := handler.GetToolInfo()
		if toolInfo.Name == "" {
			return fmt.Errorf("tool %s is missing a name", name)
		}

		if toolInfo.Description == "" {
			tr.logger.WithField("tool", name).Warn("Tool missing description")
		}

		if toolInfo.InputSchema == nil {
			tr.logger.WithField("tool", name).Warn("Tool missing input schema")
		}
	}

	tr.logger.Info("Tool validation completed")
	return nil
}
