package transport

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/patient-report-mcp-server/internal/domain"
)

// Manager handles transport selection, creation and lifecycle.
type Manager struct {
	logger    *logrus.Logger
	config    *domain.MCPConfig
	transport Transport
	mu        sync.RWMutex
}

// NewManager creates a new transport manager.
func NewManager(logger *logrus.Logger, config *domain.MCPConfig) *Manager {
	return &Manager{
		logger: logger,
		config: config,
	}
}

// DetectTransport resolves the transport type from command line arguments,
// environment, configuration and finally the terminal heuristic, in that
// order.
func (m *Manager) DetectTransport() (TransportType, error) {
	for _, arg := range os.Args[1:] {
		switch arg {
		case "--stdio", "-stdio":
			m.logger.Info("Using stdio transport from command line argument")
			return TransportStdio, nil
		case "--http", "-http":
			m.logger.Info("Using HTTP SSE transport from command line argument")
			return TransportHTTPSSE, nil
		}
	}

	if transportType := os.Getenv("MCP_TRANSPORT"); transportType != "" {
		switch transportType {
		case "stdio":
			m.logger.Info("Using stdio transport from MCP_TRANSPORT")
			return TransportStdio, nil
		case "http", "http-sse":
			m.logger.Info("Using HTTP SSE transport from MCP_TRANSPORT")
			return TransportHTTPSSE, nil
		default:
			m.logger.WithField("transport_type", transportType).Warn("Unknown transport type in MCP_TRANSPORT")
		}
	}

	if m.config != nil && m.config.TransportType != "" {
		switch m.config.TransportType {
		case "stdio":
			m.logger.Info("Using stdio transport from configuration")
			return TransportStdio, nil
		case "http", "http-sse":
			m.logger.Info("Using HTTP SSE transport from configuration")
			return TransportHTTPSSE, nil
		default:
			m.logger.WithField("transport_type", m.config.TransportType).Warn("Unknown transport type in configuration")
		}
	}

	// MCP servers default to stdio.
	m.logger.Info("No specific transport requested, defaulting to stdio")
	return TransportStdio, nil
}

// CreateTransport creates a transport instance of the given type.
func (m *Manager) CreateTransport(transportType TransportType) (Transport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch transportType {
	case TransportStdio:
		m.logger.Info("Creating stdio transport")
		return NewStdioTransport(m.logger), nil

	case TransportHTTPSSE:
		host := "localhost"
		port := 8081

		if m.config != nil {
			if m.config.HTTPHost != "" {
				host = m.config.HTTPHost
			}
			if m.config.HTTPPort > 0 {
				port = m.config.HTTPPort
			}
		}
		if envHost := os.Getenv("MCP_HTTP_HOST"); envHost != "" {
			host = envHost
		}
		if envPort := os.Getenv("MCP_HTTP_PORT"); envPort != "" {
			if p, err := strconv.Atoi(envPort); err == nil {
				port = p
			}
		}

		m.logger.WithFields(logrus.Fields{
			"host": host,
			"port": port,
		}).Info("Creating HTTP SSE transport")

		return NewHTTPSSETransport(m.logger, host, port), nil

	default:
		return nil, fmt.Errorf("unsupported transport type: %s", transportType)
	}
}

// StartTransport detects, creates and starts the appropriate transport.
func (m *Manager) StartTransport(ctx context.Context) (Transport, error) {
	transportType, err := m.DetectTransport()
	if err != nil {
		return nil, fmt.Errorf("failed to detect transport: %w", err)
	}

	t, err := m.CreateTransport(transportType)
	if err != nil {
		return nil, fmt.Errorf("failed to create transport: %w", err)
	}

	if err := t.Start(ctx); err != nil {
		t.Close()
		return nil, fmt.Errorf("failed to start transport: %w", err)
	}

	m.mu.Lock()
	m.transport = t
	m.mu.Unlock()
	m.logger.WithField("transport_type", t.GetType()).Info("Transport started")

	return t, nil
}

// GetActiveTransport returns the currently active transport.
func (m *Manager) GetActiveTransport() Transport {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.transport
}

// Shutdown closes the active transport.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.logger.Info("Shutting down transport manager")

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.transport != nil {
		if err := m.transport.Close(); err != nil {
			return err
		}
		m.transport = nil
	}

	return nil
}
