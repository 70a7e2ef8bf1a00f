package protocol

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"
)

// InitializeHandler handles the MCP initialize handshake.
type InitializeHandler struct {
	logger *logrus.Logger
}

// HandleSystem processes the initialize request
func (h *InitializeHandler) HandleSystem(ctx context.Context, req *JSONRPC2Request) *JSONRPC2Response {
	h.logger.Info("Handling MCP initialize request")

	result := map[string]interface{}{
		"protocolVersion": "2025-01-01",
		"capabilities": map[string]interface{}{
			"tools": map[string]interface{}{
				"listChanged": false,
			},
		},
		"serverInfo": map[string]interface{}{
			"name":    "patient-report-mcp-server",
			"version": "1.0.0",
		},
	}

	return &JSONRPC2Response{
		JSONRPC: "2.0",
		Result:  result,
		ID:      req.ID,
	}
}

// GetSystemInfo returns metadata about the initialize handler
func (h *InitializeHandler) GetSystemInfo() SystemInfo {
	return SystemInfo{
		Method:      "initialize",
		Description: "Initializes the MCP session and reports server capabilities",
	}
}

// ToolsListHandler handles tools/list requests.
type ToolsListHandler struct {
	logger *logrus.Logger
	router *MessageRouter
}

// HandleSystem processes the tools/list request
func (h *ToolsListHandler) HandleSystem(ctx context.Context, req *JSONRPC2Request) *JSONRPC2Response {
	h.logger.Debug("Handling tools/list request")

	handlers := h.router.GetToolHandlers()
	tools := make([]map[string]interface{}, 0, len(handlers))
	for _, handler := range handlers {
		info := handler.GetToolInfo()
		tools = append(tools, map[string]interface{}{
			"name":        info.Name,
			"description": info.Description,
			"inputSchema": info.InputSchema,
		})
	}

	return &JSONRPC2Response{
		JSONRPC: "2.0",
		Result: map[string]interface{}{
			"tools": tools,
		},
		ID: req.ID,
	}
}

// GetSystemInfo returns metadata about the tools/list handler
func (h *ToolsListHandler) GetSystemInfo() SystemInfo {
	return SystemInfo{
		Method:      "tools/list",
		Description: "Lists all registered tools and their input schemas",
	}
}

// ToolsCallHandler handles tools/call requests by dispatching to the named
// tool handler.
type ToolsCallHandler struct {
	logger *logrus.Logger
	router *MessageRouter
}

type toolsCallParams struct {
	Name      string      `json:"name"`
	Arguments interface{} `json:"arguments"`
}

// HandleSystem processes the tools/call request
func (h *ToolsCallHandler) HandleSystem(ctx context.Context, req *JSONRPC2Request) *JSONRPC2Response {
	data, err := json.Marshal(req.Params)
	if err != nil {
		return &JSONRPC2Response{
			JSONRPC: "2.0",
			Error: &RPCError{
				Code:    InvalidParams,
				Message: "Invalid parameters",
				Data:    err.Error(),
			},
			ID: req.ID,
		}
	}

	var params toolsCallParams
	if err := json.Unmarshal(data, &params); err != nil {
		return &JSONRPC2Response{
			JSONRPC: "2.0",
			Error: &RPCError{
				Code:    InvalidParams,
				Message: "Invalid parameters",
				Data:    err.Error(),
			},
			ID: req.ID,
		}
	}

	handler, exists := h.router.GetToolHandler(params.Name)
	if !exists {
		return &JSONRPC2Response{
			JSONRPC: "2.0",
			Error: &RPCError{
				Code:    MethodNotFound,
				Message: "Tool not found",
				Data:    fmt.Sprintf("No tool registered with name: %s", params.Name),
			},
			ID: req.ID,
		}
	}

	h.logger.WithField("tool_name", params.Name).Debug("Dispatching tool call")

	toolReq := &JSONRPC2Request{
		JSONRPC: "2.0",
		Method:  "tool_call",
		Params:  params.Arguments,
		ID:      req.ID,
	}
	return handler.HandleTool(ctx, toolReq)
}

// GetSystemInfo returns metadata about the tools/call handler
func (h *ToolsCallHandler) GetSystemInfo() SystemInfo {
	return SystemInfo{
		Method:      "tools/call",
		Description: "Invokes a registered tool with the supplied arguments",
	}
}
