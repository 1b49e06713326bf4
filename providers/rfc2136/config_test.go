package rfc2136

import (
	"errors"
	"strings"
	"testing"
	"time"

	"gitlab.bluewillows.net/root/dnsshift/pkg/provider"
)

func TestLoadConfigFromMap(t *testing.T) {
	tests := []struct {
		name     string
		settings map[string]string
		want     Config
		errMatch string
	}{
		{
			name:     "minimal",
			settings: map[string]string{"SERVER": "ns1.example.com"},
			want:     Config{Server: "ns1.example.com", Timeout: DefaultTimeout},
		},
		{
			name: "full",
			settings: map[string]string{
				"SERVER":         "10.0.0.53:5353",
				"TSIG_KEY":       "dnsshift.",
				"TSIG_SECRET":    "c2VjcmV0",
				"TSIG_ALGORITHM": "hmac-sha512",
				"TIMEOUT":        "3",
				"USE_TCP":        "true",
			},
			want: Config{
				Server:        "10.0.0.53:5353",
				TSIGKeyName:   "dnsshift.",
				TSIGSecret:    "c2VjcmV0",
				TSIGAlgorithm: "hmac-sha512",
				Timeout:       3 * time.Second,
				UseTCP:        true,
			},
		},
		{
			name:     "legacy key name and duration timeout",
			settings: map[string]string{"SERVER": "ns1", "TSIG_KEY_NAME": "k.", "TSIG_SECRET": "c2VjcmV0", "TIMEOUT": "1500ms"},
			want:     Config{Server: "ns1", TSIGKeyName: "k.", TSIGSecret: "c2VjcmV0", Timeout: 1500 * time.Millisecond},
		},
		{name: "missing server", settings: map[string]string{}, errMatch: "SERVER"},
		{name: "secret without key", settings: map[string]string{"SERVER": "ns1", "TSIG_SECRET": "c2VjcmV0"}, errMatch: "TSIG_KEY"},
		{name: "bad timeout", settings: map[string]string{"SERVER": "ns1", "TIMEOUT": "soon"}, errMatch: "TIMEOUT"},
		{name: "bad use_tcp", settings: map[string]string{"SERVER": "ns1", "USE_TCP": "maybe"}, errMatch: "USE_TCP"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadConfigFromMap("internal", tt.settings)
			if tt.errMatch != "" {
				var cerr *provider.ConfigError
				if !errors.As(err, &cerr) {
					t.Fatalf("LoadConfigFromMap() error = %v, want *provider.ConfigError", err)
				}
				if cerr.Field != tt.errMatch {
					t.Errorf("ConfigError.Field = %q, want %q", cerr.Field, tt.errMatch)
				}
				if !strings.Contains(err.Error(), "internal") {
					t.Errorf("error %q should name the instance", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadConfigFromMap() error = %v", err)
			}
			if *cfg != tt.want {
				t.Errorf("LoadConfigFromMap() = %+v, want %+v", *cfg, tt.want)
			}
		})
	}
}

func TestConfig_ToDNSUpdateConfig(t *testing.T) {
	cfg := Config{Server: "ns1", TSIGKeyName: "k.", TSIGSecret: "c2VjcmV0", Timeout: time.Second, UseTCP: true}
	du := cfg.ToDNSUpdateConfig()

	if du.Server != "ns1" || du.TSIGKeyName != "k." || du.TSIGSecret != "c2VjcmV0" || du.Timeout != time.Second || !du.UseTCP {
		t.Errorf("ToDNSUpdateConfig() = %+v", du)
	}
	if err := du.Validate(); err != nil {
		t.Errorf("converted config invalid: %v", err)
	}
}
