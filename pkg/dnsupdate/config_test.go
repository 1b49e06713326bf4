package dnsupdate

import (
	"strings"
	"testing"
	"time"

	"github.com/miekg/dns"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name     string
		config   Config
		errMatch string
	}{
		{name: "server only", config: Config{Server: "ns1.example.com"}},
		{
			name: "with TSIG",
			config: Config{
				Server:        "ns1.example.com:53",
				TSIGKeyName:   "dnsshift.",
				TSIGSecret:    "c2VjcmV0",
				TSIGAlgorithm: "hmac-sha512",
			},
		},
		{name: "missing server", config: Config{}, errMatch: "server is required"},
		{name: "key without secret", config: Config{Server: "ns1", TSIGKeyName: "k."}, errMatch: "tsig secret is required"},
		{name: "secret without key", config: Config{Server: "ns1", TSIGSecret: "c2VjcmV0"}, errMatch: "tsig key name is required"},
		{
			name:     "bad algorithm",
			config:   Config{Server: "ns1", TSIGKeyName: "k.", TSIGSecret: "c2VjcmV0", TSIGAlgorithm: "hmac-sha1024"},
			errMatch: "unsupported tsig algorithm",
		},
		{name: "negative timeout", config: Config{Server: "ns1", Timeout: -time.Second}, errMatch: "timeout must be non-negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.errMatch == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.errMatch) {
				t.Errorf("Validate() error = %v, want %q", err, tt.errMatch)
			}
		})
	}
}

func TestConfig_GetServer(t *testing.T) {
	tests := []struct {
		server string
		want   string
	}{
		{"ns1.example.com", "ns1.example.com:53"},
		{"ns1.example.com:5353", "ns1.example.com:5353"},
		{"192.0.2.1", "192.0.2.1:53"},
		{"2001:db8::1", "[2001:db8::1]:53"},
		{"[2001:db8::1]", "[2001:db8::1]:53"},
		{"[2001:db8::1]:5300", "[2001:db8::1]:5300"},
		{"", ""},
	}

	for _, tt := range tests {
		c := Config{Server: tt.server}
		if got := c.GetServer(); got != tt.want {
			t.Errorf("GetServer(%q) = %q, want %q", tt.server, got, tt.want)
		}
	}
}

func TestConfig_Defaults(t *testing.T) {
	c := Config{Server: "ns1"}
	if c.GetTimeout() != DefaultTimeout {
		t.Errorf("GetTimeout() = %v", c.GetTimeout())
	}
	if c.GetTSIGAlgorithm() != dns.HmacSHA256 {
		t.Errorf("GetTSIGAlgorithm() = %q", c.GetTSIGAlgorithm())
	}
	if c.HasTSIG() {
		t.Error("HasTSIG() should be false")
	}

	c.Timeout = 3 * time.Second
	c.TSIGAlgorithm = "MD5"
	if c.GetTimeout() != 3*time.Second || c.GetTSIGAlgorithm() != dns.HmacMD5 {
		t.Errorf("overrides not applied: %v %q", c.GetTimeout(), c.GetTSIGAlgorithm())
	}
}
