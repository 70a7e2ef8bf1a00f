// Package transport provides the wire transports the MCP server can speak
// over: stdio for local agents and HTTP SSE for remote ones.
package transport

import (
	"context"
)

// Transport defines the interface for MCP transport mechanisms
type Transport interface {
	// Start initializes the transport
	Start(ctx context.Context) error

	// ReadMessage reads a message from the transport
	ReadMessage() ([]byte, error)

	// WriteMessage sends a message via the transport
	WriteMessage(message []byte) error

	// WriteJSONMessage sends a JSON object as a message
	WriteJSONMessage(obj interface{}) error

	// Close closes the transport and cleans up resources
	Close() error

	// IsClosed returns whether the transport is closed
	IsClosed() bool

	// GetType returns the transport type identifier
	GetType() string
}

// TransportType represents the type of transport
type TransportType string

const (
	TransportStdio   TransportType = "stdio"
	TransportHTTPSSE TransportType = "http-sse"
)
