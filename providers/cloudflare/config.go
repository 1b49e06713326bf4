package cloudflare

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gitlab.bluewillows.net/root/dnsshift/pkg/httputil"
	"gitlab.bluewillows.net/root/dnsshift/pkg/provider"
)

// Config holds Cloudflare-specific configuration.
//
// Authentication uses either an API token (Bearer) or the legacy global API
// key together with the account email. A token wins when both are set.
type Config struct {
	Token    string        // API token (Bearer authentication)
	Email    string        // account email, required with APIKey
	APIKey   string        // legacy global API key
	Endpoint string        // API base URL, defaults to DefaultAPIEndpoint
	Timeout  time.Duration // per-call timeout, defaults to DefaultTimeout
}

// Validate checks that all required configuration is present.
func (c *Config) Validate() error {
	var errs []error

	if c.Token == "" {
		switch {
		case c.APIKey == "" && c.Email == "":
			errs = append(errs, provider.ErrConfigMissing("TOKEN"))
		case c.APIKey == "":
			errs = append(errs, provider.ErrConfigInvalid("API_KEY", "", "required when TOKEN is not set"))
		case c.Email == "":
			errs = append(errs, provider.ErrConfigInvalid("EMAIL", "", "required with API_KEY"))
		}
	}
	if c.Timeout < 0 {
		errs = append(errs, provider.ErrConfigInvalid("TIMEOUT", c.Timeout.String(), "must be non-negative"))
	}
	if c.Endpoint != "" && !strings.HasPrefix(c.Endpoint, "http://") && !strings.HasPrefix(c.Endpoint, "https://") {
		errs = append(errs, provider.ErrConfigInvalid("ENDPOINT", c.Endpoint, "must be an http(s) URL"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("cloudflare config validation failed: %w", errors.Join(errs...))
	}

	return nil
}

// usesToken reports whether Bearer authentication is configured.
func (c *Config) usesToken() bool {
	return c.Token != ""
}

// LoadConfigFromMap builds a Config from provider settings.
//
// Supported keys: TOKEN, EMAIL, API_KEY, ENDPOINT, TIMEOUT (seconds or a Go
// duration).
func LoadConfigFromMap(name string, settings map[string]string) (*Config, error) {
	cfg := &Config{
		Token:    strings.TrimSpace(settings["TOKEN"]),
		Email:    strings.TrimSpace(settings["EMAIL"]),
		APIKey:   strings.TrimSpace(settings["API_KEY"]),
		Endpoint: strings.TrimRight(strings.TrimSpace(settings["ENDPOINT"]), "/"),
	}

	if v := strings.TrimSpace(settings["TIMEOUT"]); v != "" {
		timeout, err := httputil.ParseTimeout(v)
		if err != nil {
			return nil, fmt.Errorf("configuration for %s: %w", name, provider.ErrConfigInvalid("TIMEOUT", v, err.Error()))
		}
		cfg.Timeout = timeout
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration for %s: %w", name, err)
	}

	return cfg, nil
}
