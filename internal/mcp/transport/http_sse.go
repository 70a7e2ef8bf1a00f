package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// HTTPSSETransport implements MCP communication over HTTP with Server-Sent
// Events: clients receive messages on the SSE stream and send them with POST.
type HTTPSSETransport struct {
	logger     *logrus.Logger
	server     *http.Server
	router     *gin.Engine
	host       string
	port       int
	clients    map[string]*sseClient
	clientsMu  sync.RWMutex
	messagesCh chan httpMessage
	closed     bool
	mu         sync.RWMutex
}

// sseClient is one connected SSE stream.
type sseClient struct {
	id       string
	messages chan []byte
	done     chan struct{}
}

// httpMessage is one message received on the POST endpoint.
type httpMessage struct {
	clientID string
	data     []byte
}

// NewHTTPSSETransport creates a new HTTP SSE transport for remote agents.
func NewHTTPSSETransport(logger *logrus.Logger, host string, port int) *HTTPSSETransport {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	t := &HTTPSSETransport{
		logger:     logger,
		router:     router,
		host:       host,
		port:       port,
		clients:    make(map[string]*sseClient),
		messagesCh: make(chan httpMessage, 100),
	}

	t.setupRoutes()
	return t
}

func (h *HTTPSSETransport) setupRoutes() {
	h.router.GET("/mcp/sse", h.handleSSEConnection)
	h.router.POST("/mcp/message", h.handleMessage)
	h.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"transport": string(TransportHTTPSSE),
			"clients":   h.GetConnectedClients(),
		})
	})
}

// Start initializes the HTTP SSE transport.
func (h *HTTPSSETransport) Start(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return fmt.Errorf("transport is closed")
	}

	addr := fmt.Sprintf("%s:%d", h.host, h.port)
	h.server = &http.Server{
		Addr:    addr,
		Handler: h.router,
	}

	h.logger.WithField("address", addr).Info("Starting HTTP SSE transport for MCP communication")

	go func() {
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.logger.WithError(err).Error("HTTP server failed")
		}
	}()

	return nil
}

// handleSSEConnection handles a Server-Sent Events subscription. A client_id
// query parameter identifies a reconnecting client; absent, one is assigned.
func (h *HTTPSSETransport) handleSSEConnection(c *gin.Context) {
	clientID := c.Query("client_id")
	if clientID == "" {
		clientID = uuid.NewString()
	}

	h.logger.WithField("client_id", clientID).Info("New SSE client connecting")

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("Access-Control-Allow-Origin", "*")

	client := &sseClient{
		id:       clientID,
		messages: make(chan []byte, 50),
		done:     make(chan struct{}),
	}

	h.clientsMu.Lock()
	h.clients[clientID] = client
	h.clientsMu.Unlock()

	defer func() {
		h.clientsMu.Lock()
		delete(h.clients, clientID)
		h.clientsMu.Unlock()
		h.logger.WithField("client_id", clientID).Info("SSE client disconnected")
	}()

	// Tell the client its id so it can address POSTs.
	fmt.Fprintf(c.Writer, "data: {\"type\":\"session\",\"client_id\":%q}\n\n", clientID)
	c.Writer.Flush()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case <-client.done:
			return
		case message := <-client.messages:
			fmt.Fprintf(c.Writer, "data: %s\n\n", string(message))
			c.Writer.Flush()
		case <-ticker.C:
			// Keep-alive
			fmt.Fprintf(c.Writer, "data: {\"type\":\"ping\"}\n\n")
			c.Writer.Flush()
		}
	}
}

// handleMessage accepts one JSON-RPC message from a client.
func (h *HTTPSSETransport) handleMessage(c *gin.Context) {
	clientID := c.Query("client_id")
	if clientID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "client_id parameter required"})
		return
	}

	var message json.RawMessage
	if err := c.ShouldBindJSON(&message); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}

	select {
	case h.messagesCh <- httpMessage{clientID: clientID, data: message}:
		c.JSON(http.StatusOK, gin.H{"status": "received"})
	default:
		h.logger.Error("Message queue full")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Message queue full"})
	}
}

// ReadMessage reads the next queued client message.
func (h *HTTPSSETransport) ReadMessage() ([]byte, error) {
	select {
	case msg, ok := <-h.messagesCh:
		if !ok {
			return nil, fmt.Errorf("transport is closed")
		}
		return msg.data, nil
	case <-time.After(30 * time.Second):
		return nil, fmt.Errorf("read timeout")
	}
}

// WriteMessage sends a message to all connected clients.
func (h *HTTPSSETransport) WriteMessage(message []byte) error {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()

	if len(h.clients) == 0 {
		return fmt.Errorf("no connected clients")
	}

	for clientID, client := range h.clients {
		select {
		case client.messages <- message:
			h.logger.WithField("client_id", clientID).Debug("Message queued for client")
		default:
			h.logger.WithField("client_id", clientID).Warn("Client message queue full, dropping message")
		}
	}

	return nil
}

// WriteJSONMessage writes a JSON object as a message.
func (h *HTTPSSETransport) WriteJSONMessage(obj interface{}) error {
	data, err := json.Marshal(obj)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return h.WriteMessage(data)
}

// Close closes the HTTP SSE transport.
func (h *HTTPSSETransport) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true

	h.clientsMu.Lock()
	for _, client := range h.clients {
		close(client.done)
	}
	h.clients = make(map[string]*sseClient)
	h.clientsMu.Unlock()

	if h.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.server.Shutdown(ctx); err != nil {
			h.logger.WithError(err).Error("Error shutting down HTTP server")
			return err
		}
	}

	close(h.messagesCh)
	h.logger.Info("HTTP SSE transport closed")
	return nil
}

// IsClosed returns whether the transport is closed.
func (h *HTTPSSETransport) IsClosed() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.closed
}

// GetType returns the transport type.
func (h *HTTPSSETransport) GetType() string {
	return string(TransportHTTPSSE)
}

// GetConnectedClients returns the number of connected clients.
func (h *HTTPSSETransport) GetConnectedClients() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}
