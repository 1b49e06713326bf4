package dnsupdate

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/miekg/dns"
)

// Default configuration values.
const (
	// DefaultPort is the standard DNS port.
	DefaultPort = 53

	// DefaultTimeout is the default timeout for DNS operations.
	DefaultTimeout = 10 * time.Second

	// DefaultTSIGAlgorithm is the default TSIG algorithm if none specified.
	DefaultTSIGAlgorithm = dns.HmacSHA256
)

// Algorithm name constants for user-facing configuration.
const (
	AlgNameSHA256 = "hmac-sha256"
	AlgNameSHA512 = "hmac-sha512"
	AlgNameMD5    = "hmac-md5"
)

// Config holds RFC 2136 client configuration.
type Config struct {
	// Server is the primary server address. The port defaults to 53.
	Server string

	// TSIGKeyName is the TSIG key name. A trailing dot is added if missing.
	TSIGKeyName string

	// TSIGSecret is the base64-encoded TSIG shared secret.
	TSIGSecret string

	// TSIGAlgorithm is one of hmac-sha256 (default), hmac-sha512, hmac-md5.
	TSIGAlgorithm string

	// Timeout bounds each exchange (default: 10s).
	Timeout time.Duration

	// UseTCP forces TCP for queries and updates. AXFR always uses TCP.
	UseTCP bool
}

// Validate checks that all required configuration is present and valid.
func (c *Config) Validate() error {
	var errs []string

	if strings.TrimSpace(c.Server) == "" {
		errs = append(errs, "server is required")
	}

	if c.TSIGKeyName != "" || c.TSIGSecret != "" || c.TSIGAlgorithm != "" {
		if c.TSIGKeyName == "" {
			errs = append(errs, "tsig key name is required when using TSIG authentication")
		}
		if c.TSIGSecret == "" {
			errs = append(errs, "tsig secret is required when using TSIG authentication")
		}
		if !isValidAlgorithm(c.GetTSIGAlgorithm()) {
			errs = append(errs, fmt.Sprintf("unsupported tsig algorithm: %s (supported: hmac-md5, hmac-sha256, hmac-sha512)", c.TSIGAlgorithm))
		}
	}

	if c.Timeout < 0 {
		errs = append(errs, "timeout must be non-negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("dnsupdate config validation failed: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetServer returns the server address with port, appending 53 when absent.
// Bare IPv6 literals are bracketed.
func (c *Config) GetServer() string {
	server := strings.TrimSpace(c.Server)
	if server == "" {
		return ""
	}

	if _, _, err := net.SplitHostPort(server); err == nil {
		return server
	}

	host := strings.TrimSuffix(strings.TrimPrefix(server, "["), "]")
	return net.JoinHostPort(host, strconv.Itoa(DefaultPort))
}

// GetTimeout returns the configured timeout or the default.
func (c *Config) GetTimeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return DefaultTimeout
}

// GetTSIGAlgorithm returns the TSIG algorithm in miekg/dns format.
func (c *Config) GetTSIGAlgorithm() string {
	return normalizeAlgorithm(c.TSIGAlgorithm)
}

// HasTSIG returns true if TSIG authentication is configured.
func (c *Config) HasTSIG() bool {
	return c.TSIGKeyName != "" && c.TSIGSecret != ""
}
