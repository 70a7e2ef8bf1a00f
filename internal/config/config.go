// Package config provides configuration management for the report server.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/patient-report-mcp-server/internal/domain"
)

// Manager loads and holds the application configuration using Viper.
type Manager struct {
	config *domain.Config
}

// NewManager creates a new configuration manager.
func NewManager() (*Manager, error) {
	m := &Manager{}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// loadConfig loads configuration from file, environment and defaults.
func (m *Manager) loadConfig() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/patient-report-mcp-server/")

	viper.SetEnvPrefix("FHIR_REPORT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	m.setDefaults()

	// Config file is optional; defaults and environment variables suffice.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &domain.Config{}
	if err := viper.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.config = config
	return nil
}

// setDefaults sets default configuration values.
func (m *Manager) setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "60s")
	viper.SetDefault("server.idle_timeout", "120s")

	// FHIR store defaults
	viper.SetDefault("fhir.project_id", "")
	viper.SetDefault("fhir.location", "us-central1")
	viper.SetDefault("fhir.dataset_id", "")
	viper.SetDefault("fhir.store_id", "")
	viper.SetDefault("fhir.base_url", "")
	viper.SetDefault("fhir.page_size", 500)
	viper.SetDefault("fhir.timeout", "60s")
	viper.SetDefault("fhir.rate_limit", 10)
	viper.SetDefault("fhir.credential_source", domain.CredentialSourceGcloud)

	// Audit defaults
	viper.SetDefault("audit.driver", "sqlite")
	viper.SetDefault("audit.path", "audit.db")
	viper.SetDefault("audit.dsn", "")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")

	// MCP defaults
	viper.SetDefault("mcp.transport_type", "stdio")
	viper.SetDefault("mcp.http_port", 8081)
}

// GetConfig returns the complete configuration.
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// GetFHIRConfig returns the FHIR store configuration.
func (m *Manager) GetFHIRConfig() *domain.FHIRStoreConfig {
	return &m.config.FHIR
}

// GetServerConfig returns the REST server configuration.
func (m *Manager) GetServerConfig() *domain.ServerConfig {
	return &m.config.Server
}

// Validate checks that the configuration names a reachable FHIR store.
func (m *Manager) Validate() error {
	fhir := m.config.FHIR
	if fhir.BaseURL == "" {
		if fhir.ProjectID == "" {
			return fmt.Errorf("fhir.project_id is required when fhir.base_url is not set")
		}
		if fhir.DatasetID == "" {
			return fmt.Errorf("fhir.dataset_id is required when fhir.base_url is not set")
		}
		if fhir.StoreID == "" {
			return fmt.Errorf("fhir.store_id is required when fhir.base_url is not set")
		}
	}
	if fhir.PageSize <= 0 {
		return fmt.Errorf("fhir.page_size must be positive, got %d", fhir.PageSize)
	}

	switch m.config.Audit.Driver {
	case "sqlite", "postgres", "none", "":
	default:
		return fmt.Errorf("unsupported audit driver: %s", m.config.Audit.Driver)
	}

	switch m.config.FHIR.CredentialSource {
	case domain.CredentialSourceGcloud, domain.CredentialSourceADC, "":
	default:
		return fmt.Errorf("unsupported credential source: %s", m.config.FHIR.CredentialSource)
	}

	return nil
}
