// Package main provides the REST entry point for the patient report server.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/patient-report-mcp-server/internal/api"
	"github.com/patient-report-mcp-server/internal/audit"
	"github.com/patient-report-mcp-server/internal/config"
	"github.com/patient-report-mcp-server/internal/report"
	"github.com/patient-report-mcp-server/pkg/fhir"
)

func main() {
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()

	logger := logrus.New()
	if cfg.Logging.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	credentials, err := fhir.NewCredentialProvider(cfg.FHIR.CredentialSource)
	if err != nil {
		log.Fatalf("Failed to create credential provider: %v", err)
	}
	fetcher := fhir.NewResilientClient(fhir.NewClient(cfg.FHIR, credentials, logger), logger)

	auditStore, err := openAuditStore(cfg.Audit.Driver, cfg.Audit.Path, cfg.Audit.DSN)
	if err != nil {
		log.Fatalf("Failed to open audit store: %v", err)
	}
	if auditStore != nil {
		defer auditStore.Close()
	}

	serviceOpts := []report.Option{}
	if auditStore != nil {
		serviceOpts = append(serviceOpts, report.WithAuditStore(auditStore))
	}
	service := report.NewService(fetcher, logger, serviceOpts...)

	logger.WithFields(logrus.Fields{
		"host": cfg.Server.Host,
		"port": cfg.Server.Port,
	}).Info("Starting patient report REST server")

	server := api.NewServer(cfg, service, auditStore, logger)

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
		log.Fatalf("Server failed: %v", err)
	}

	log.Println("Server stopped")
}

func openAuditStore(driver, path, dsn string) (audit.Store, error) {
	switch driver {
	case "postgres":
		return audit.NewPostgresStoreFromURL(dsn)
	case "none", "":
		return nil, nil
	default:
		return audit.NewSQLiteStore(path)
	}
}
