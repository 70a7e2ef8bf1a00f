// Package main provides the MCP entry point for the patient report server.
// Configuration comes from FHIR_REPORT_* environment variables; the audit
// trail lives in SQLite under the data directory.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/patient-report-mcp-server/internal/config"
	"github.com/patient-report-mcp-server/internal/mcp"
)

func main() {
	cfg := config.LoadLiteConfig()

	log.Printf("Starting patient report MCP server with transport: %s", cfg.Transport)
	log.Printf("Data directory: %s", cfg.DataDir)

	server, err := mcp.NewServer(cfg)
	if err != nil {
		log.Fatalf("Failed to create MCP server: %v", err)
	}
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Println("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	if err := server.Start(ctx); err != nil {
		log.Fatalf("MCP server failed: %v", err)
	}

	log.Println("Patient report MCP server stopped")
}
