package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/patient-report-mcp-server/internal/mcp/protocol"
	"github.com/patient-report-mcp-server/internal/mcp/tools"
	"github.com/patient-report-mcp-server/internal/mcp/transport"
)

// TransportBridge adapts the custom transport interface to the MCP SDK
// Transport contract. The underlying transport must already be started,
// Connect only binds it to an SDK session.
type TransportBridge struct {
	customTransport transport.Transport
	logger          *logrus.Logger
}

// NewTransportBridge creates a new transport bridge
func NewTransportBridge(customTransport transport.Transport, logger *logrus.Logger) *TransportBridge {
	return &TransportBridge{
		customTransport: customTransport,
		logger:          logger,
	}
}

// Connect implements mcp.Transport
func (b *TransportBridge) Connect(ctx context.Context) (mcp.Connection, error) {
	if b.customTransport.IsClosed() {
		return nil, fmt.Errorf("transport %s is closed", b.customTransport.GetType())
	}

	b.logger.WithField("transport_type", b.customTransport.GetType()).Debug("Connecting transport bridge")
	return &bridgeConnection{
		customTransport: b.customTransport,
		logger:          b.logger,
		sessionID:       uuid.NewString(),
	}, nil
}

// bridgeConnection pumps JSON-RPC messages between the SDK session and the
// custom transport.
type bridgeConnection struct {
	customTransport transport.Transport
	logger          *logrus.Logger
	sessionID       string
}

// Read implements mcp.Connection. EOF passes through unchanged so the SDK
// can shut down cleanly.
func (c *bridgeConnection) Read(ctx context.Context) (jsonrpc.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := c.customTransport.ReadMessage()
	if err != nil {
		if err == io.EOF {
			return nil, err
		}
		return nil, fmt.Errorf("failed to read message: %w", err)
	}
	if len(data) == 0 {
		return nil, io.EOF
	}

	msg, err := jsonrpc.DecodeMessage(data)
	if err != nil {
		c.logger.WithError(err).Error("Failed to decode JSON-RPC message")
		return nil, fmt.Errorf("failed to decode message: %w", err)
	}
	return msg, nil
}

// Write implements mcp.Connection
func (c *bridgeConnection) Write(ctx context.Context, msg jsonrpc.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := jsonrpc.EncodeMessage(msg)
	if err != nil {
		c.logger.WithError(err).Error("Failed to encode JSON-RPC message")
		return fmt.Errorf("failed to encode message: %w", err)
	}
	return c.customTransport.WriteMessage(data)
}

// Close implements mcp.Connection
func (c *bridgeConnection) Close() error {
	c.logger.Debug("Closing transport through bridge")
	return c.customTransport.Close()
}

// SessionID implements mcp.Connection
func (c *bridgeConnection) SessionID() string {
	return c.sessionID
}

// NewSDKToolHandler returns an MCP SDK tool handler that dispatches one
// registered tool through the internal tool registry.
func NewSDKToolHandler(toolRegistry *tools.ToolRegistry, toolName string, logger *logrus.Logger) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		logger.WithField("tool", toolName).Debug("Handling MCP tool call")

		var arguments interface{}
		if req != nil && req.Params != nil {
			arguments = req.Params.Arguments
		}

		rpcReq := &protocol.JSONRPC2Request{
			JSONRPC: "2.0",
			Method:  toolName,
			Params:  arguments,
		}

		response := toolRegistry.ExecuteTool(ctx, rpcReq)
		if response.Error != nil {
			return nil, fmt.Errorf("tool execution failed: %s", response.Error.Message)
		}

		payload, err := json.Marshal(response.Result)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal tool result: %w", err)
		}

		return &mcp.CallToolResult{
			Content:           []mcp.Content{&mcp.TextContent{Text: string(payload)}},
			StructuredContent: response.Result,
		}, nil
	}
}
