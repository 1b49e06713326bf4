package technitium

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gitlab.bluewillows.net/root/dnsshift/pkg/httputil"
	"gitlab.bluewillows.net/root/dnsshift/pkg/provider"
)

// Config holds Technitium-specific configuration.
type Config struct {
	URL           string        // Technitium API URL (e.g., http://dns:5380)
	Token         string        // API token
	Timeout       time.Duration // per-call timeout, defaults to httputil.DefaultTimeout
	TLSSkipVerify bool          // for self-signed web service certificates
}

// Validate checks that all required configuration is present.
func (c *Config) Validate() error {
	var errs []error

	if c.URL == "" {
		errs = append(errs, provider.ErrConfigMissing("URL"))
	} else if !strings.HasPrefix(c.URL, "http://") && !strings.HasPrefix(c.URL, "https://") {
		errs = append(errs, provider.ErrConfigInvalid("URL", c.URL, "must be an http(s) URL"))
	}
	if c.Token == "" {
		errs = append(errs, provider.ErrConfigMissing("TOKEN"))
	}
	if c.Timeout < 0 {
		errs = append(errs, provider.ErrConfigInvalid("TIMEOUT", c.Timeout.String(), "must be non-negative"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("technitium config validation failed: %w", errors.Join(errs...))
	}

	return nil
}

// LoadConfigFromMap creates a Config from provider settings.
//
// Required keys: URL, TOKEN
// Optional keys: TIMEOUT (seconds or a Go duration), TLS_SKIP_VERIFY
func LoadConfigFromMap(name string, settings map[string]string) (*Config, error) {
	cfg := &Config{
		URL:   strings.TrimRight(strings.TrimSpace(settings["URL"]), "/"),
		Token: strings.TrimSpace(settings["TOKEN"]),
	}

	if v := strings.TrimSpace(settings["TIMEOUT"]); v != "" {
		timeout, err := httputil.ParseTimeout(v)
		if err != nil {
			return nil, fmt.Errorf("configuration for %s: %w", name, provider.ErrConfigInvalid("TIMEOUT", v, err.Error()))
		}
		cfg.Timeout = timeout
	}

	if v := strings.TrimSpace(settings["TLS_SKIP_VERIFY"]); v != "" {
		cfg.TLSSkipVerify = strings.EqualFold(v, "true") || v == "1"
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration for %s: %w", name, err)
	}

	return cfg, nil
}
