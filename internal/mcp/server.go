// Package mcp provides the MCP server for patient report generation.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/patient-report-mcp-server/internal/audit"
	"github.com/patient-report-mcp-server/internal/config"
	"github.com/patient-report-mcp-server/internal/domain"
	"github.com/patient-report-mcp-server/internal/mcp/protocol"
	"github.com/patient-report-mcp-server/internal/mcp/tools"
	"github.com/patient-report-mcp-server/internal/mcp/transport"
	"github.com/patient-report-mcp-server/internal/report"
	"github.com/patient-report-mcp-server/pkg/fhir"
)

// Server exposes the patient report tools over MCP. Persistence is limited
// to the optional audit trail, SQLite by default.
type Server struct {
	config          *config.LiteConfig
	mcpServer       *mcp.Server
	transportMgr    *transport.Manager
	activeTransport transport.Transport
	toolRegistry    *tools.ToolRegistry
	reportService   *report.Service
	auditStore      audit.Store
	fetcher         domain.PatientDataFetcher
	logger          *logrus.Logger
}

// ServerOption is a functional option for Server.
type ServerOption func(*Server) error

// WithAuditStore sets a custom audit store.
func WithAuditStore(store audit.Store) ServerOption {
	return func(s *Server) error {
		s.auditStore = store
		return nil
	}
}

// WithFetcher sets a custom patient data fetcher, replacing the Google Cloud
// Healthcare client built from configuration.
func WithFetcher(fetcher domain.PatientDataFetcher) ServerOption {
	return func(s *Server) error {
		s.fetcher = fetcher
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) error {
		s.logger = logger
		return nil
	}
}

// NewServer creates a new MCP server instance from configuration.
func NewServer(cfg *config.LiteConfig, opts ...ServerOption) (*Server, error) {
	server := &Server{
		config: cfg,
		logger: logrus.New(),
	}

	if cfg.LogFormat == "text" {
		server.logger.SetFormatter(&logrus.TextFormatter{})
	} else {
		server.logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	server.logger.SetLevel(level)

	for _, opt := range opts {
		if err := opt(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if err := cfg.EnsureDataDir(); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	if server.auditStore == nil && cfg.AuditEnabled {
		store, err := audit.NewSQLiteStore(cfg.AuditDBPath())
		if err != nil {
			return nil, fmt.Errorf("failed to create audit store: %w", err)
		}
		server.auditStore = store
	}

	if server.fetcher == nil {
		fetcher, err := buildFHIRFetcher(cfg, server.logger)
		if err != nil {
			return nil, err
		}
		server.fetcher = fetcher
	}

	serviceOpts := []report.Option{}
	if server.auditStore != nil {
		serviceOpts = append(serviceOpts, report.WithAuditStore(server.auditStore))
	}
	server.reportService = report.NewService(server.fetcher, server.logger, serviceOpts...)

	mcpConfig := &domain.MCPConfig{
		TransportType: cfg.Transport,
		HTTPPort:      cfg.HTTPPort,
	}

	transportMgr := transport.NewManager(server.logger, mcpConfig)
	router := protocol.NewMessageRouter(server.logger)

	toolRegistry := tools.NewToolRegistry(server.logger, router, server.reportService)
	if err := toolRegistry.RegisterAllTools(); err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}
	if err := toolRegistry.ValidateAllTools(); err != nil {
		return nil, fmt.Errorf("tool validation failed: %w", err)
	}

	serverInfo := &mcp.Implementation{
		Name:    "patient-report-mcp-server",
		Version: "v0.1.0",
	}
	mcpServer := mcp.NewServer(serverInfo, nil)

	server.mcpServer = mcpServer
	server.transportMgr = transportMgr
	server.toolRegistry = toolRegistry

	if err := server.registerMCPTools(mcpServer, toolRegistry); err != nil {
		return nil, fmt.Errorf("failed to register MCP tools: %w", err)
	}

	server.logger.Info("Server initialized successfully")
	return server, nil
}

// buildFHIRFetcher wires the Google Cloud Healthcare FHIR client behind the
// circuit breaker.
func buildFHIRFetcher(cfg *config.LiteConfig, logger *logrus.Logger) (domain.PatientDataFetcher, error) {
	credentials, err := fhir.NewCredentialProvider(cfg.CredentialSource)
	if err != nil {
		return nil, fmt.Errorf("failed to create credential provider: %w", err)
	}

	client := fhir.NewClient(cfg.FHIRConfig(), credentials, logger)
	return fhir.NewResilientClient(client, logger), nil
}

// registerMCPTools registers tools with the MCP SDK.
func (s *Server) registerMCPTools(mcpServer *mcp.Server, toolRegistry *tools.ToolRegistry) error {
	toolsInfo := toolRegistry.GetRegisteredToolsInfo()

	for _, toolInfo := range toolsInfo {
		schema, err := toolInputSchema(toolInfo.InputSchema)
		if err != nil {
			return fmt.Errorf("invalid input schema for tool %s: %w", toolInfo.Name, err)
		}

		toolDef := &mcp.Tool{
			Name:        toolInfo.Name,
			Description: toolInfo.Description,
			InputSchema: schema,
		}

		handler := NewSDKToolHandler(toolRegistry, toolInfo.Name, s.logger)
		mcpServer.AddTool(toolDef, handler)

		s.logger.WithField("tool_name", toolInfo.Name).Debug("Registered MCP tool")
	}

	s.logger.WithField("tool_count", len(toolsInfo)).Info("Registered all tools with MCP SDK")
	return nil
}

// toolInputSchema converts a tool's JSON schema document into the SDK's
// schema representation.
func toolInputSchema(doc map[string]interface{}) (*jsonschema.Schema, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}

	var schema jsonschema.Schema
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil, err
	}
	return &schema, nil
}

// Start starts the MCP server over the configured transport and blocks
// until the context is cancelled or the transport closes.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting patient report MCP server")

	activeTransport, err := s.transportMgr.StartTransport(ctx)
	if err != nil {
		return fmt.Errorf("failed to start transport: %w", err)
	}

	s.activeTransport = activeTransport
	s.logger.WithField("transport_type", activeTransport.GetType()).Info("Transport initialized")

	mcpTransport := NewTransportBridge(activeTransport, s.logger)

	if err := s.mcpServer.Run(ctx, mcpTransport); err != nil {
		s.activeTransport.Close()
		return fmt.Errorf("MCP server failed: %w", err)
	}

	return nil
}

// Close cleans up server resources.
func (s *Server) Close() error {
	if s.auditStore != nil {
		if err := s.auditStore.Close(); err != nil {
			s.logger.WithError(err).Error("Failed to close audit store")
		}
	}
	if s.activeTransport != nil {
		s.activeTransport.Close()
	}
	return nil
}

// ReportService returns the underlying report service for external surfaces
// such as the REST API.
func (s *Server) ReportService() *report.Service {
	return s.reportService
}

// AuditStore returns the audit store, nil when auditing is disabled.
func (s *Server) AuditStore() audit.Store {
	return s.auditStore
}
