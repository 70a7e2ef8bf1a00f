// Package api exposes the report pipeline over a REST surface for clients
// that do not speak MCP.
package api

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/patient-report-mcp-server/internal/audit"
	"github.com/patient-report-mcp-server/internal/domain"
	"github.com/patient-report-mcp-server/internal/report"
)

// Server is the HTTP server wrapping the report service.
type Server struct {
	config     *domain.Config
	service    *report.Service
	auditStore audit.Store
	logger     *logrus.Logger
	router     *gin.Engine
	server     *http.Server
}

// NewServer creates a new HTTP server instance. auditStore may be nil when
// auditing is disabled; the audit endpoints are then not registered.
func NewServer(cfg *domain.Config, service *report.Service, auditStore audit.Store, logger *logrus.Logger) *Server {
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(requestIDMiddleware())

	server := &Server{
		config:     cfg,
		service:    service,
		auditStore: auditStore,
		logger:     logger,
		router:     router,
	}

	server.setupRoutes()
	return server
}

// Start starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.config.Server
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	s.logger.WithField("addr", addr).Info("REST server listening")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}

// Handler returns the underlying router, used by tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/patients/:id/report", s.handleCompleteReport)
		v1.GET("/patients/:id/report/:resourceType", s.handleResourceReport)

		if s.auditStore != nil {
			v1.GET("/audit/events", s.handleAuditEvents)
		}
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now(),
		"version":   "1.0.0",
	})
}

func (s *Server) handleCompleteReport(c *gin.Context) {
	patientID := c.Param("id")

	result := s.service.GenerateCompleteReport(c.Request.Context(), patientID)
	c.JSON(statusFor(result), result)
}

func (s *Server) handleResourceReport(c *gin.Context) {
	patientID := c.Param("id")
	resourceType := c.Param("resourceType")

	result := s.service.GenerateResourceReport(c.Request.Context(), patientID, resourceType)
	c.JSON(statusFor(result), result)
}

func (s *Server) handleAuditEvents(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "offset must be a non-negative integer"})
		return
	}

	var events []*audit.Event
	if patientID := c.Query("patient_id"); patientID != "" {
		events, err = s.auditStore.ListByPatient(c.Request.Context(), patientID, limit)
	} else {
		events, err = s.auditStore.List(c.Request.Context(), limit, offset)
	}
	if err != nil {
		s.logger.WithError(err).Error("Failed to list audit events")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list audit events"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"events": events,
		"count":  len(events),
	})
}

// statusFor maps a report result to its HTTP status code.
func statusFor(result *report.Result) int {
	if result.Status == report.StatusSuccess {
		return http.StatusOK
	}
	switch result.ErrorCode {
	case domain.ErrMissingPatientID, domain.ErrInvalidInput:
		return http.StatusBadRequest
	case domain.ErrNoData:
		return http.StatusNotFound
	case domain.ErrAuthentication:
		return http.StatusBadGateway
	default:
		return http.StatusBadGateway
	}
}

// corsMiddleware adds CORS headers to responses
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, Authorization, X-API-Key")
		c.Header("Access-Control-Expose-Headers", "Content-Length")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// requestIDMiddleware tags each request with a unique ID for log correlation
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header("X-Request-ID", requestID)
		c.Set("request_id", requestID)
		c.Next()
	}
}
