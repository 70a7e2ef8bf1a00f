package fhir

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"cloud.google.com/go/auth"
	"cloud.google.com/go/auth/credentials"

	"github.com/patient-report-mcp-server/internal/domain"
)

// cloudPlatformScope is the OAuth scope required by the Healthcare API.
const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// GcloudCredentialProvider obtains a bearer token by shelling out to the
// gcloud CLI. The token is not cached; each call runs the CLI again.
type GcloudCredentialProvider struct{}

// Token runs `gcloud auth print-access-token` and returns the trimmed output.
func (GcloudCredentialProvider) Token(ctx context.Context) (string, error) {
	gcloudCmd := "gcloud"
	if runtime.GOOS == "windows" {
		gcloudCmd = "gcloud.cmd"
	}

	out, err := exec.CommandContext(ctx, gcloudCmd, "auth", "print-access-token").Output()
	if err != nil {
		return "", fmt.Errorf("failed to run gcloud auth print-access-token: %w", err)
	}

	token := strings.TrimSpace(string(out))
	if token == "" {
		return "", fmt.Errorf("gcloud returned an empty access token")
	}
	return token, nil
}

// ADCCredentialProvider obtains bearer tokens from Application Default
// Credentials, for deployments where the gcloud CLI is not available.
type ADCCredentialProvider struct {
	creds *auth.Credentials
}

// NewADCCredentialProvider detects Application Default Credentials.
func NewADCCredentialProvider() (*ADCCredentialProvider, error) {
	creds, err := credentials.DetectDefault(&credentials.DetectOptions{
		Scopes: []string{cloudPlatformScope},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to detect default credentials: %w", err)
	}
	return &ADCCredentialProvider{creds: creds}, nil
}

// Token returns the current access token value.
func (p *ADCCredentialProvider) Token(ctx context.Context) (string, error) {
	tok, err := p.creds.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to obtain token: %w", err)
	}
	return tok.Value, nil
}

// StaticCredentialProvider returns a fixed token. Used by tests.
type StaticCredentialProvider string

// Token returns the fixed token value.
func (s StaticCredentialProvider) Token(ctx context.Context) (string, error) {
	return string(s), nil
}

// NewCredentialProvider builds the provider named by the configuration.
func NewCredentialProvider(source string) (domain.CredentialProvider, error) {
	switch source {
	case "", domain.CredentialSourceGcloud:
		return GcloudCredentialProvider{}, nil
	case domain.CredentialSourceADC:
		return NewADCCredentialProvider()
	default:
		return nil, fmt.Errorf("unknown credential source: %s", source)
	}
}
