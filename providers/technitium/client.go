// Package technitium implements the dnsshift provider interface for
// Technitium DNS Server using its HTTP API.
//
// Zone ids are the zone names. Record ids have the form "<name>|<address>"
// because the API addresses records by owner name and value.
package technitium

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"gitlab.bluewillows.net/root/dnsshift/pkg/httputil"
	"gitlab.bluewillows.net/root/dnsshift/pkg/provider"
)

// API status values.
const (
	statusOK           = "ok"
	statusError        = "error"
	statusInvalidToken = "invalid-token"
)

// apiRecord represents a DNS record from the Technitium API.
type apiRecord struct {
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	TTL      int      `json:"ttl"`
	RData    apiRData `json:"rData"`
	Disabled bool     `json:"disabled"`
}

// apiRData contains the record-specific data from Technitium.
type apiRData struct {
	IPAddress string `json:"ipAddress,omitempty"`
}

// apiResponse is the standard Technitium API response wrapper.
type apiResponse struct {
	Status       string          `json:"status"`
	ErrorMessage string          `json:"errorMessage,omitempty"`
	Response     json.RawMessage `json:"response,omitempty"`
}

// zoneInfo contains zone metadata from the API response.
type zoneInfo struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Disabled bool   `json:"disabled"`
}

// Client is a Technitium DNS Server API client.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// ClientOption is a functional option for configuring the Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
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

// NewClient creates a new Technitium API client from cfg.
func NewClient(cfg *Config, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: cfg.URL,
		token:   cfg.Token,
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		c.httpClient = httputil.NewClient(&httputil.ClientConfig{
			Timeout:       cfg.Timeout,
			TLSSkipVerify: cfg.TLSSkipVerify,
			Logger:        c.logger,
		})
	}

	return c
}

// doRequest performs an HTTP request to the Technitium API.
func (c *Client) doRequest(ctx context.Context, endpoint string, params url.Values) (*apiResponse, error) {
	if params == nil {
		params = url.Values{}
	}
	params.Set("token", c.token)

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, endpoint, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response body: %v", provider.ErrProviderUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: status %d", provider.ErrUnauthorized, resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: status %d", provider.ErrRateLimited, resp.StatusCode)
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d", provider.ErrProviderUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var apiResp apiResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("parsing response JSON: %w", err)
	}

	switch apiResp.Status {
	case statusOK:
		return &apiResp, nil
	case statusInvalidToken:
		return nil, fmt.Errorf("%w: %s", provider.ErrUnauthorized, apiResp.ErrorMessage)
	case statusError:
		return nil, fmt.Errorf("API error: %s", apiResp.ErrorMessage)
	default:
		return nil, fmt.Errorf("API returned status %q", apiResp.Status)
	}
}

// Ping checks connectivity to the Technitium server.
// Uses the /api/user/session/get endpoint which is lightweight.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.doRequest(ctx, "/api/user/session/get", nil); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	return nil
}

// FindZone returns the enabled zone named exactly zone.
func (c *Client) FindZone(ctx context.Context, zone string) (string, error) {
	apiResp, err := c.doRequest(ctx, "/api/zones/list", nil)
	if err != nil {
		return "", fmt.Errorf("listing zones: %w", err)
	}

	var result struct {
		Zones []zoneInfo `json:"zones"`
	}
	if err := json.Unmarshal(apiResp.Response, &result); err != nil {
		return "", fmt.Errorf("parsing zones response: %w", err)
	}

	for _, z := range result.Zones {
		if !z.Disabled && provider.SameHostname(z.Name, zone) {
			return provider.NormalizeHostname(z.Name), nil
		}
	}

	return "", fmt.Errorf("%w: %s", provider.ErrZoneNotFound, zone)
}

// GetRecords returns the records of one name in zone. With listZone the
// whole zone is returned instead.
func (c *Client) GetRecords(ctx context.Context, zone, domain string, listZone bool) ([]apiRecord, error) {
	params := url.Values{}
	params.Set("zone", zone)
	params.Set("domain", domain)
	if listZone {
		params.Set("listZone", "true")
	}

	apiResp, err := c.doRequest(ctx, "/api/zones/records/get", params)
	if err != nil {
		return nil, fmt.Errorf("getting records for %s: %w", domain, err)
	}

	var result struct {
		Zone    zoneInfo    `json:"zone"`
		Records []apiRecord `json:"records"`
	}
	if err := json.Unmarshal(apiResp.Response, &result); err != nil {
		return nil, fmt.Errorf("parsing records response: %w", err)
	}

	c.logger.Debug("retrieved records",
		slog.String("zone", zone),
		slog.String("domain", domain),
		slog.Bool("list_zone", listZone),
		slog.Int("count", len(result.Records)),
	)

	return result.Records, nil
}

// UpdateARecord changes the address of one A record.
func (c *Client) UpdateARecord(ctx context.Context, zone, hostname, oldIP, newIP string, ttl int) error {
	params := url.Values{}
	params.Set("zone", zone)
	params.Set("domain", hostname)
	params.Set("type", "A")
	params.Set("ipAddress", oldIP)
	params.Set("newIpAddress", newIP)
	params.Set("ttl", strconv.Itoa(ttl))

	if _, err := c.doRequest(ctx, "/api/zones/records/update", params); err != nil {
		return fmt.Errorf("updating A record for %s: %w", hostname, err)
	}

	c.logger.Debug("updated A record",
		slog.String("hostname", hostname),
		slog.String("old_ip", oldIP),
		slog.String("new_ip", newIP),
		slog.String("zone", zone),
		slog.Int("ttl", ttl),
	)

	return nil
}
