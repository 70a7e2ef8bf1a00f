package protocol

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoToolHandler struct {
	name   string
	called bool
}

func (e *echoToolHandler) HandleTool(ctx context.Context, req *JSONRPC2Request) *JSONRPC2Response {
	e.called = true
	return &JSONRPC2Response{
		JSONRPC: "2.0",
		Result:  req.Params,
		ID:      req.ID,
	}
}

func (e *echoToolHandler) GetToolInfo() ToolInfo {
	return ToolInfo{
		Name:        e.name,
		Description: "echoes its arguments",
		InputSchema: map[string]interface{}{"type": "object"},
	}
}

func (e *echoToolHandler) ValidateParams(params interface{}) error {
	return nil
}

func newTestRouter() *MessageRouter {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewMessageRouter(logger)
}

func TestNewMessageRouterRegistersSystemHandlers(t *testing.T) {
	router := newTestRouter()

	methods := router.GetSupportedMethods()
	assert.Contains(t, methods, "initialize")
	assert.Contains(t, methods, "tools/list")
	assert.Contains(t, methods, "tools/call")
}

func TestHandleRequestUnknownMethod(t *testing.T) {
	router := newTestRouter()

	resp := router.HandleRequest(context.Background(), &JSONRPC2Request{
		JSONRPC: "2.0",
		Method:  "resources/list",
		ID:      1,
	})

	require.NotNil(t, resp.Error)
	assert.Equal(t, MethodNotFound, resp.Error.Code)
}

func TestInitializeHandler(t *testing.T) {
	router := newTestRouter()

	resp := router.HandleRequest(context.Background(), &JSONRPC2Request{
		JSONRPC: "2.0",
		Method:  "initialize",
		ID:      1,
	})

	require.Nil(t, resp.Error)
	result, ok := resp.Result.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "2025-01-01", result["protocolVersion"])

	serverInfo, ok := result["serverInfo"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "patient-report-mcp-server", serverInfo["name"])
}

func TestToolsListHandler(t *testing.T) {
	router := newTestRouter()
	router.RegisterToolHandler("echo_tool", &echoToolHandler{name: "echo_tool"})

	resp := router.HandleRequest(context.Background(), &JSONRPC2Request{
		JSONRPC: "2.0",
		Method:  "tools/list",
		ID:      2,
	})

	require.Nil(t, resp.Error)
	result, ok := resp.Result.(map[string]interface{})
	require.True(t, ok)

	tools, ok := result["tools"].([]map[string]interface{})
	require.True(t, ok)
	require.Len(t, tools, 1)
	assert.Equal(t, "echo_tool", tools[0]["name"])
}

func TestToolsCallHandlerDispatches(t *testing.T) {
	router := newTestRouter()
	handler := &echoToolHandler{name: "echo_tool"}
	router.RegisterToolHandler("echo_tool", handler)

	resp := router.HandleRequest(context.Background(), &JSONRPC2Request{
		JSONRPC: "2.0",
		Method:  "tools/call",
		Params: map[string]interface{}{
			"name":      "echo_tool",
			"arguments": map[string]interface{}{"patient_id": "patient-123"},
		},
		ID: 3,
	})

	require.Nil(t, resp.Error)
	assert.True(t, handler.called)

	args, ok := resp.Result.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "patient-123", args["patient_id"])
}

func TestToolsCallHandlerUnknownTool(t *testing.T) {
	router := newTestRouter()

	resp := router.HandleRequest(context.Background(), &JSONRPC2Request{
		JSONRPC: "2.0",
		Method:  "tools/call",
		Params: map[string]interface{}{
			"name":      "missing_tool",
			"arguments": map[string]interface{}{},
		},
		ID: 4,
	})

	require.NotNil(t, resp.Error)
	assert.Equal(t, MethodNotFound, resp.Error.Code)
}

func TestGetToolHandler(t *testing.T) {
	router := newTestRouter()
	router.RegisterToolHandler("echo_tool", &echoToolHandler{name: "echo_tool"})

	_, exists := router.GetToolHandler("echo_tool")
	assert.True(t, exists)

	_, exists = router.GetToolHandler("missing")
	assert.False(t, exists)
}
