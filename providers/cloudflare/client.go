// Package cloudflare implements the dnsshift provider interface for
// Cloudflare DNS using the REST API v4.
package cloudflare

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"gitlab.bluewillows.net/root/dnsshift/pkg/httputil"
	"gitlab.bluewillows.net/root/dnsshift/pkg/provider"
)

const (
	// DefaultAPIEndpoint is the base URL for Cloudflare API v4.
	DefaultAPIEndpoint = "https://api.cloudflare.com/client/v4"

	// DefaultTimeout is the HTTP client timeout.
	DefaultTimeout = httputil.DefaultTimeout

	// pageSize is the largest page the records endpoint accepts.
	pageSize = 100

	// autoTTL is Cloudflare's "automatic" TTL, required for proxied records.
	autoTTL = 1
)

// apiError represents an error from the Cloudflare API.
type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// resultInfo carries pagination details.
type resultInfo struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalPages int `json:"total_pages"`
	Count      int `json:"count"`
	TotalCount int `json:"total_count"`
}

// apiResponse is the standard Cloudflare API response wrapper.
type apiResponse struct {
	Success    bool            `json:"success"`
	Errors     []apiError      `json:"errors"`
	Result     json.RawMessage `json:"result"`
	ResultInfo *resultInfo     `json:"result_info,omitempty"`
}

// zoneResult represents a zone from the Cloudflare API.
type zoneResult struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

// dnsRecord represents a DNS record from the Cloudflare API.
type dnsRecord struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Name    string `json:"name"`
	Content string `json:"content"`
	TTL     int    `json:"ttl"`
	Proxied bool   `json:"proxied"`
}

// updateRecordRequest is the request body for replacing a DNS record.
type updateRecordRequest struct {
	Type    string `json:"type"`
	Name    string `json:"name"`
	Content string `json:"content"`
	TTL     int    `json:"ttl"`
	Proxied bool   `json:"proxied"`
}

// Client is a Cloudflare DNS API client.
type Client struct {
	apiEndpoint string
	usesToken   bool
	httpClient  *http.Client
	logger      *slog.Logger
}

// ClientOption is a functional option for configuring the Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client. Authentication headers are then
// the caller's responsibility.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a new Cloudflare API client from cfg.
func NewClient(cfg *Config, opts ...ClientOption) *Client {
	c := &Client{
		apiEndpoint: DefaultAPIEndpoint,
		usesToken:   cfg.usesToken(),
		logger:      slog.Default(),
	}
	if cfg.Endpoint != "" {
		c.apiEndpoint = cfg.Endpoint
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		c.httpClient = httputil.NewClient(&httputil.ClientConfig{
			Timeout: cfg.Timeout,
			Headers: authHeaders(cfg),
			Logger:  c.logger,
		})
	}

	return c
}

// authHeaders returns the authentication headers for cfg.
func authHeaders(cfg *Config) http.Header {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	if cfg.usesToken() {
		h.Set("Authorization", "Bearer "+cfg.Token)
	} else {
		h.Set("X-Auth-Email", cfg.Email)
		h.Set("X-Auth-Key", cfg.APIKey)
	}
	return h
}

// doRequest performs an HTTP request to the Cloudflare API and classifies
// failures into the provider error sentinels.
func (c *Client) doRequest(ctx context.Context, method, path string, body any) (*apiResponse, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.apiEndpoint+path, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response body: %v", provider.ErrProviderUnavailable, err)
	}

	var apiResp apiResponse
	parseErr := json.Unmarshal(respBody, &apiResp)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail := fmt.Sprintf("status %d", resp.StatusCode)
		if parseErr == nil && len(apiResp.Errors) > 0 {
			detail = fmt.Sprintf("%s (code: %d, status %d)", apiResp.Errors[0].Message, apiResp.Errors[0].Code, resp.StatusCode)
		}
		return nil, classifyStatus(resp.StatusCode, detail)
	}

	if parseErr != nil {
		return nil, fmt.Errorf("parsing response JSON: %w", parseErr)
	}

	if !apiResp.Success {
		if len(apiResp.Errors) > 0 {
			return nil, fmt.Errorf("API error: %s (code: %d)", apiResp.Errors[0].Message, apiResp.Errors[0].Code)
		}
		return nil, fmt.Errorf("API request failed with unknown error")
	}

	return &apiResp, nil
}

// classifyStatus maps an HTTP status to a provider error.
func classifyStatus(status int, detail string) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: %s", provider.ErrUnauthorized, detail)
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", provider.ErrRateLimited, detail)
	case status == http.StatusNotFound:
		return fmt.Errorf("%w: %s", provider.ErrNotFound, detail)
	case status >= 500:
		return fmt.Errorf("%w: %s", provider.ErrProviderUnavailable, detail)
	default:
		return fmt.Errorf("API error: %s", detail)
	}
}

// Ping checks connectivity and credentials.
// Tokens are checked with /user/tokens/verify, API keys with /user.
func (c *Client) Ping(ctx context.Context) error {
	path := "/user"
	if c.usesToken {
		path = "/user/tokens/verify"
	}
	if _, err := c.doRequest(ctx, http.MethodGet, path, nil); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	return nil
}

// GetZoneID returns the id of the zone named exactly zone.
func (c *Client) GetZoneID(ctx context.Context, zone string) (string, error) {
	params := url.Values{}
	params.Set("name", provider.NormalizeHostname(zone))

	resp, err := c.doRequest(ctx, http.MethodGet, "/zones?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("looking up zone %s: %w", zone, err)
	}

	var zones []zoneResult
	if err := json.Unmarshal(resp.Result, &zones); err != nil {
		return "", fmt.Errorf("parsing zones response: %w", err)
	}

	if len(zones) == 0 {
		return "", fmt.Errorf("%w: %s", provider.ErrZoneNotFound, zone)
	}

	c.logger.Debug("found zone",
		slog.String("zone", zone),
		slog.String("zone_id", zones[0].ID),
		slog.String("status", zones[0].Status),
	)

	return zones[0].ID, nil
}

// ListARecords returns the A records of a zone, following pagination.
// When name is non-empty, only records with that exact name are returned.
func (c *Client) ListARecords(ctx context.Context, zoneID, name string) ([]dnsRecord, error) {
	var records []dnsRecord

	for page := 1; ; page++ {
		params := url.Values{}
		params.Set("type", "A")
		params.Set("per_page", strconv.Itoa(pageSize))
		params.Set("page", strconv.Itoa(page))
		if name != "" {
			params.Set("name", provider.NormalizeHostname(name))
		}

		path := fmt.Sprintf("/zones/%s/dns_records?%s", url.PathEscape(zoneID), params.Encode())
		resp, err := c.doRequest(ctx, http.MethodGet, path, nil)
		if err != nil {
			return nil, fmt.Errorf("listing records: %w", err)
		}

		var batch []dnsRecord
		if err := json.Unmarshal(resp.Result, &batch); err != nil {
			return nil, fmt.Errorf("parsing records response: %w", err)
		}
		records = append(records, batch...)

		if resp.ResultInfo == nil || page >= resp.ResultInfo.TotalPages || len(batch) == 0 {
			break
		}
	}

	c.logger.Debug("listed records",
		slog.String("zone_id", zoneID),
		slog.String("name", name),
		slog.Int("count", len(records)),
	)

	return records, nil
}

// UpdateRecord replaces a DNS record by id.
func (c *Client) UpdateRecord(ctx context.Context, zoneID, recordID string, req updateRecordRequest) error {
	start := time.Now()
	path := fmt.Sprintf("/zones/%s/dns_records/%s", url.PathEscape(zoneID), url.PathEscape(recordID))
	if _, err := c.doRequest(ctx, http.MethodPut, path, req); err != nil {
		return fmt.Errorf("updating record: %w", err)
	}

	c.logger.Debug("updated DNS record",
		slog.String("zone_id", zoneID),
		slog.String("record_id", recordID),
		slog.String("name", req.Name),
		slog.String("content", req.Content),
		slog.Int("ttl", req.TTL),
		slog.Bool("proxied", req.Proxied),
		slog.Duration("elapsed", time.Since(start)),
	)

	return nil
}
