// This file contains the lightweight configuration for standalone operation
// of the MCP server binary, driven entirely by environment variables.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/patient-report-mcp-server/internal/domain"
)

// LiteConfig is a simplified configuration for standalone operation.
// It needs only the FHIR store identifiers and uses sensible defaults.
type LiteConfig struct {
	// Data storage
	DataDir string // Base directory for the audit database

	// FHIR store settings
	FHIRProjectID string
	FHIRLocation  string
	FHIRDatasetID string
	FHIRStoreID   string
	FHIRBaseURL   string // Overrides the derived Cloud Healthcare URL
	FHIRPageSize  int
	FHIRTimeout   time.Duration
	FHIRRateLimit int

	// Credential source: gcloud or adc
	CredentialSource string

	// Transport settings
	Transport string // Transport type: stdio, http
	HTTPPort  int    // HTTP port (if transport is http)

	// Audit settings
	AuditEnabled bool

	// Logging
	LogLevel  string // Log level: debug, info, warn, error
	LogFormat string // Log format: json, text
}

// DefaultLiteConfig returns a configuration with sensible defaults.
func DefaultLiteConfig() *LiteConfig {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".patient-report-mcp")

	return &LiteConfig{
		DataDir:          dataDir,
		FHIRLocation:     "us-central1",
		FHIRPageSize:     500,
		FHIRTimeout:      60 * time.Second,
		FHIRRateLimit:    10,
		CredentialSource: domain.CredentialSourceGcloud,
		Transport:        "stdio",
		HTTPPort:         8081,
		AuditEnabled:     true,
		LogLevel:         "info",
		LogFormat:        "json",
	}
}

// LoadLiteConfig loads configuration from environment variables.
// Falls back to defaults if not set.
func LoadLiteConfig() *LiteConfig {
	cfg := DefaultLiteConfig()

	if v := os.Getenv("FHIR_REPORT_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}

	// FHIR store
	if v := os.Getenv("FHIR_REPORT_PROJECT_ID"); v != "" {
		cfg.FHIRProjectID = v
	}
	if v := os.Getenv("FHIR_REPORT_LOCATION"); v != "" {
		cfg.FHIRLocation = v
	}
	if v := os.Getenv("FHIR_REPORT_DATASET_ID"); v != "" {
		cfg.FHIRDatasetID = v
	}
	if v := os.Getenv("FHIR_REPORT_STORE_ID"); v != "" {
		cfg.FHIRStoreID = v
	}
	if v := os.Getenv("FHIR_REPORT_BASE_URL"); v != "" {
		cfg.FHIRBaseURL = v
	}
	if v := os.Getenv("FHIR_REPORT_PAGE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.FHIRPageSize = n
		}
	}
	if v := os.Getenv("FHIR_REPORT_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.FHIRTimeout = d
		}
	}
	if v := os.Getenv("FHIR_REPORT_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.FHIRRateLimit = n
		}
	}

	if v := os.Getenv("FHIR_REPORT_CREDENTIAL_SOURCE"); v != "" {
		cfg.CredentialSource = v
	}

	// Transport
	if v := os.Getenv("FHIR_REPORT_TRANSPORT"); v != "" {
		cfg.Transport = v
	}
	if v := os.Getenv("FHIR_REPORT_HTTP_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.HTTPPort = n
		}
	}

	// Audit
	if v := os.Getenv("FHIR_REPORT_AUDIT"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.AuditEnabled = b
		}
	}

	// Logging
	if v := os.Getenv("FHIR_REPORT_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("FHIR_REPORT_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}

	return cfg
}

// FHIRConfig converts the lite settings into the store configuration used by
// the FHIR client.
func (c *LiteConfig) FHIRConfig() domain.FHIRStoreConfig {
	return domain.FHIRStoreConfig{
		ProjectID:        c.FHIRProjectID,
		Location:         c.FHIRLocation,
		DatasetID:        c.FHIRDatasetID,
		StoreID:          c.FHIRStoreID,
		BaseURL:          c.FHIRBaseURL,
		PageSize:         c.FHIRPageSize,
		Timeout:          c.FHIRTimeout,
		RateLimit:        c.FHIRRateLimit,
		CredentialSource: c.CredentialSource,
	}
}

// AuditDBPath returns the path to the audit SQLite database.
func (c *LiteConfig) AuditDBPath() string {
	return filepath.Join(c.DataDir, "audit.db")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *LiteConfig) EnsureDataDir() error {
	return os.MkdirAll(c.DataDir, 0755)
}
