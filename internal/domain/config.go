package domain

import (
	"fmt"
	"time"
)

// Config is the complete application configuration.
type Config struct {
	Server  ServerConfig    `mapstructure:"server"`
	FHIR    FHIRStoreConfig `mapstructure:"fhir"`
	Audit   AuditConfig     `mapstructure:"audit"`
	Logging LoggingConfig   `mapstructure:"logging"`
	MCP     MCPConfig       `mapstructure:"mcp"`
}

// ServerConfig holds REST server settings.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// Credential source names for FHIRStoreConfig.CredentialSource.
const (
	CredentialSourceGcloud = "gcloud"
	CredentialSourceADC    = "adc"
)

// FHIRStoreConfig identifies the Cloud Healthcare FHIR store and how to
// reach it. BaseURL, when set, overrides the URL derived from the store
// identifiers (used by tests and non-GCP deployments).
type FHIRStoreConfig struct {
	ProjectID        string        `mapstructure:"project_id"`
	Location         string        `mapstructure:"location"`
	DatasetID        string        `mapstructure:"dataset_id"`
	StoreID          string        `mapstructure:"store_id"`
	BaseURL          string        `mapstructure:"base_url"`
	PageSize         int           `mapstructure:"page_size"`
	Timeout          time.Duration `mapstructure:"timeout"`
	RateLimit        int           `mapstructure:"rate_limit"`
	CredentialSource string        `mapstructure:"credential_source"`
}

// EffectiveBaseURL returns BaseURL when set, otherwise the Cloud Healthcare
// FHIR endpoint for the configured store.
func (c FHIRStoreConfig) EffectiveBaseURL() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return fmt.Sprintf(
		"https://healthcare.googleapis.com/v1/projects/%s/locations/%s/datasets/%s/fhirStores/%s/fhir",
		c.ProjectID, c.Location, c.DatasetID, c.StoreID,
	)
}

// AuditConfig selects where report-generation events are recorded.
// Driver is "sqlite", "postgres" or "none".
type AuditConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
	DSN    string `mapstructure:"dsn"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MCPConfig holds MCP transport settings.
type MCPConfig struct {
	TransportType string `mapstructure:"transport_type"`
	HTTPHost      string `mapstructure:"http_host"`
	HTTPPort      int    `mapstructure:"http_port"`
}
