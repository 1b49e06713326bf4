package rfc2136

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gitlab.bluewillows.net/root/dnsshift/pkg/dnsupdate"
	"gitlab.bluewillows.net/root/dnsshift/pkg/provider"
)

// DefaultTimeout is the default timeout for DNS operations.
const DefaultTimeout = dnsupdate.DefaultTimeout

// Config holds RFC 2136 provider configuration.
type Config struct {
	// Server is the primary server address. The port defaults to 53.
	Server string

	// TSIGKeyName is the TSIG key name. Optional, but recommended.
	TSIGKeyName string

	// TSIGSecret is the base64-encoded TSIG shared secret.
	TSIGSecret string

	// TSIGAlgorithm is hmac-sha256 (default), hmac-sha512 or hmac-md5.
	TSIGAlgorithm string

	// Timeout bounds each DNS exchange.
	Timeout time.Duration

	// UseTCP forces TCP for queries and updates.
	UseTCP bool
}

// Validate checks that all required configuration is present and valid.
func (c *Config) Validate() error {
	var errs []error

	if c.Server == "" {
		errs = append(errs, provider.ErrConfigMissing("SERVER"))
	}

	if c.TSIGKeyName != "" || c.TSIGSecret != "" || c.TSIGAlgorithm != "" {
		if c.TSIGKeyName == "" {
			errs = append(errs, provider.ErrConfigInvalid("TSIG_KEY", "", "required when using TSIG authentication"))
		}
		if c.TSIGSecret == "" {
			errs = append(errs, provider.ErrConfigInvalid("TSIG_SECRET", "", "required when using TSIG authentication"))
		}
	}

	if c.Timeout < 0 {
		errs = append(errs, provider.ErrConfigInvalid("TIMEOUT", c.Timeout.String(), "must be non-negative"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("rfc2136 config validation failed: %w", errors.Join(errs...))
	}

	return nil
}

// ToDNSUpdateConfig converts this config to dnsupdate.Config.
func (c *Config) ToDNSUpdateConfig() *dnsupdate.Config {
	return &dnsupdate.Config{
		Server:        c.Server,
		TSIGKeyName:   c.TSIGKeyName,
		TSIGSecret:    c.TSIGSecret,
		TSIGAlgorithm: c.TSIGAlgorithm,
		Timeout:       c.Timeout,
		UseTCP:        c.UseTCP,
	}
}

// LoadConfigFromMap builds a Config from provider settings.
//
// Required keys: SERVER
// Optional keys: TSIG_KEY (or TSIG_KEY_NAME), TSIG_SECRET, TSIG_ALGORITHM,
// TIMEOUT (seconds or a Go duration, default 10s), USE_TCP
func LoadConfigFromMap(name string, settings map[string]string) (*Config, error) {
	get := func(key string) string { return strings.TrimSpace(settings[key]) }

	cfg := &Config{
		Server:        get("SERVER"),
		TSIGKeyName:   get("TSIG_KEY"),
		TSIGSecret:    get("TSIG_SECRET"),
		TSIGAlgorithm: get("TSIG_ALGORITHM"),
		Timeout:       DefaultTimeout,
	}
	if cfg.TSIGKeyName == "" {
		cfg.TSIGKeyName = get("TSIG_KEY_NAME")
	}

	if v := get("TIMEOUT"); v != "" {
		timeout, err := parseTimeout(v)
		if err != nil {
			return nil, fmt.Errorf("configuration for %s: %w", name, err)
		}
		cfg.Timeout = timeout
	}

	if v := get("USE_TCP"); v != "" {
		useTCP, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("configuration for %s: %w", name, provider.ErrConfigInvalid("USE_TCP", v, "must be a boolean"))
		}
		cfg.UseTCP = useTCP
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration for %s: %w", name, err)
	}

	return cfg, nil
}

// parseTimeout accepts whole seconds or a Go duration string.
func parseTimeout(v string) (time.Duration, error) {
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, provider.ErrConfigInvalid("TIMEOUT", v, "must be seconds or a duration")
	}
	return d, nil
}
