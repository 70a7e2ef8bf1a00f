package fhir

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/patient-report-mcp-server/internal/domain"
)

// defaultPageSize matches the _count parameter sent when none is configured.
const defaultPageSize = 500

// Client fetches clinical data from a Cloud Healthcare FHIR store. All
// fetches are sequential and blocking; pagination follows the bundle's next
// link until exhausted and any non-2xx page aborts the whole fetch.
type Client struct {
	baseURL     string
	pageSize    int
	credentials domain.CredentialProvider
	httpClient  *http.Client
	rateLimit   *rate.Limiter
	logger      *logrus.Logger
}

// NewClient creates a FHIR store client for the configured store.
func NewClient(cfg domain.FHIRStoreConfig, credentials domain.CredentialProvider, logger *logrus.Logger) *Client {
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}

	return &Client{
		baseURL:     cfg.EffectiveBaseURL(),
		pageSize:    pageSize,
		credentials: credentials,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		rateLimit: rate.NewLimiter(limit, 1),
		logger:    logger,
	}
}

// FetchEverything retrieves all resources related to a patient via the
// $everything operation and decodes them into typed records.
func (c *Client) FetchEverything(ctx context.Context, patientID string) ([]domain.Record, error) {
	firstURL := fmt.Sprintf("%s/Patient/%s/$everything?_count=%d",
		c.baseURL, url.PathEscape(patientID), c.pageSize)

	c.logger.WithField("patient_id", patientID).Info("Fetching complete patient data")

	entries, err := c.fetchAllPages(ctx, firstURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch patient data: %w", err)
	}

	return decodeEntries(entries)
}

// FetchResourceType retrieves all resources of a single type for a patient
// via the type-level search endpoint.
func (c *Client) FetchResourceType(ctx context.Context, patientID, resourceType string) ([]domain.Record, error) {
	params := url.Values{
		"patient": {patientID},
		"_count":  {strconv.Itoa(c.pageSize)},
	}
	firstURL := fmt.Sprintf("%s/%s?%s", c.baseURL, resourceType, params.Encode())

	c.logger.WithFields(logrus.Fields{
		"patient_id":    patientID,
		"resource_type": resourceType,
	}).Info("Fetching resource data")

	entries, err := c.fetchAllPages(ctx, firstURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s data: %w", resourceType, err)
	}

	return decodeEntries(entries)
}

// fetchAllPages walks the pagination chain starting at firstURL and returns
// the union of all page entries. The bearer token is obtained once up front;
// a token expiring mid-pagination surfaces as an upstream HTTP failure.
func (c *Client) fetchAllPages(ctx context.Context, firstURL string) ([]BundleEntry, error) {
	token, err := c.credentials.Token(ctx)
	if err != nil {
		return nil, domain.NewReportError(domain.ErrAuthentication, "failed to obtain access token", err)
	}

	var entries []BundleEntry
	nextURL := firstURL
	page := 1

	for nextURL != "" {
		if err := c.rateLimit.Wait(ctx); err != nil {
			return nil, err
		}

		bundle, err := c.fetchPage(ctx, nextURL, token)
		if err != nil {
			return nil, err
		}

		entries = append(entries, bundle.Entry...)
		c.logger.WithFields(logrus.Fields{
			"page":    page,
			"entries": len(bundle.Entry),
		}).Debug("Fetched bundle page")

		nextURL = bundle.NextLink()
		page++
	}

	c.logger.WithField("total_entries", len(entries)).Info("Fetch completed")
	return entries, nil
}

// fetchPage performs one authenticated GET and decodes the bundle.
func (c *Client) fetchPage(ctx context.Context, pageURL, token string) (*Bundle, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/fhir+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, domain.NewReportError(domain.ErrUpstreamAPI,
			fmt.Sprintf("FHIR store returned status %d: %s", resp.StatusCode, string(body)), nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var bundle Bundle
	if err := json.Unmarshal(body, &bundle); err != nil {
		return nil, fmt.Errorf("failed to parse bundle: %w", err)
	}

	return &bundle, nil
}

// decodeEntries converts raw bundle entries into typed records. Entries with
// no resource payload are skipped; every other entry yields exactly one
// record, preserving fetch order.
func decodeEntries(entries []BundleEntry) ([]domain.Record, error) {
	records := make([]domain.Record, 0, len(entries))
	for _, entry := range entries {
		if len(entry.Resource) == 0 {
			continue
		}
		rec, err := domain.DecodeRecord(entry.Resource)
		if err != nil {
			return nil, fmt.Errorf("failed to decode resource: %w", err)
		}
		records = append(records, rec)
	}
	return records, nil
}
