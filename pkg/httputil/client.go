// Package httputil provides the shared HTTP client used by REST-based DNS
// providers.
package httputil

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

// Default HTTP client configuration values.
const (
	// DefaultTimeout bounds every remote call, including reading the body.
	DefaultTimeout = 30 * time.Second

	// DefaultUserAgent is used when no custom user agent is specified.
	DefaultUserAgent = "dnsshift/1.0"
)

// ClientConfig contains configuration for creating an HTTP client.
type ClientConfig struct {
	// Timeout is the HTTP client timeout. Defaults to 30 seconds.
	Timeout time.Duration

	// TLSSkipVerify controls whether to skip TLS certificate verification.
	// Only for testing or servers with self-signed certificates.
	TLSSkipVerify bool

	// UserAgent defaults to DefaultUserAgent.
	UserAgent string

	// Headers are added to every request unless the request already sets
	// them. Providers use this for authentication headers.
	Headers http.Header

	// Logger enables debug logging of requests and responses.
	Logger *slog.Logger
}

// headerTransport wraps an http.RoundTripper to add static headers and
// optionally log requests at debug level.
type headerTransport struct {
	base      http.RoundTripper
	userAgent string
	headers   http.Header
	logger    *slog.Logger
}

// RoundTrip implements http.RoundTripper.
func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// RoundTrippers must not modify the caller's request.
	req = req.Clone(req.Context())

	if req.Header.Get("User-Agent") == "" && t.userAgent != "" {
		req.Header.Set("User-Agent", t.userAgent)
	}
	for key, values := range t.headers {
		if req.Header.Get(key) != "" {
			continue
		}
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	start := time.Now()
	resp, err := t.base.RoundTrip(req)

	if t.logger != nil {
		attrs := []any{
			slog.String("method", req.Method),
			slog.String("path", req.URL.Path),
			slog.Duration("elapsed", time.Since(start)),
		}
		if resp != nil {
			attrs = append(attrs, slog.Int("status", resp.StatusCode))
		}
		if err != nil {
			attrs = append(attrs, slog.String("error", err.Error()))
		}
		t.logger.Debug("HTTP request", attrs...)
	}

	return resp, err
}

// NewClient creates an HTTP client with the specified configuration.
// If cfg is nil, defaults are used (30s timeout, TLS verification enabled).
func NewClient(cfg *ClientConfig) *http.Client {
	if cfg == nil {
		cfg = &ClientConfig{}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	baseTransport := http.DefaultTransport
	if cfg.TLSSkipVerify {
		baseTransport = &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: true, //nolint:gosec // Intentional: user explicitly requested skip
			},
		}
	}

	return &http.Client{
		Timeout: timeout,
		Transport: &headerTransport{
			base:      baseTransport,
			userAgent: userAgent,
			headers:   cfg.Headers.Clone(),
			logger:    cfg.Logger,
		},
	}
}

// ParseTimeout accepts whole seconds ("30") or a Go duration ("1m30s").
func ParseTimeout(s string) (time.Duration, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q", s)
	}
	return d, nil
}
