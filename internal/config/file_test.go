package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestInterpolateEnvVars(t *testing.T) {
	t.Setenv("TEST_VAR", "test-value")
	t.Setenv("API_TOKEN", "secret123")

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "simple variable", input: "${TEST_VAR}", expected: "test-value"},
		{name: "variable in string", input: "prefix-${TEST_VAR}-suffix", expected: "prefix-test-value-suffix"},
		{name: "multiple variables", input: "${TEST_VAR}:${API_TOKEN}", expected: "test-value:secret123"},
		{name: "unset variable", input: "${NONEXISTENT_VAR}", expected: ""},
		{name: "default value", input: "${NONEXISTENT_VAR:-default}", expected: "default"},
		{name: "default value not used when set", input: "${TEST_VAR:-default}", expected: "test-value"},
		{name: "no variables", input: "plain string", expected: "plain string"},
		{name: "empty default", input: "${NONEXISTENT:-}", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InterpolateEnvVars(tt.input); got != tt.expected {
				t.Errorf("InterpolateEnvVars(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

const yamlConfig = `
log:
  level: debug
  format: text
schedule:
  day_start_hour: 8
  day_end_hour: 20
  day_ip: 1.1.1.1
  night_ip: 2.2.2.2
  timezone: UTC
domains:
  - name: a.example.com
    zone: example.com
  - name: b.example.org
    zone: example.org
auto_discovery: false
check_interval: 120
ttl: 600
workers: 2
provider:
  type: rfc2136
  config:
    server: ns1.example.com:53
    tsig_secret: ${TEST_TSIG_SECRET}
`

const tomlConfig = `
auto_discovery = true
error_backoff = 30

[schedule]
day_start_hour = 22
day_end_hour = 6
day_ip = "10.0.0.1"
night_ip = "10.0.0.2"

[[domains]]
name = "x.example.com"
zone = "example.com"

[cloudflare]
email = "ops@example.com"
api_token = "tok"
`

const jsonConfig = `{
  "cloudflare": {"email": "user@example.com", "api_token": "json-token"},
  "schedule": {"day_start_hour": 8, "day_end_hour": 20, "day_ip": "1.1.1.1", "night_ip": "2.2.2.2"},
  "domains": [{"name": "a.example.com", "zone": "example.com"}],
  "check_interval": 300,
  "log": {"level": "INFO", "file": "/tmp/dnsshift.log"}
}`

func TestLoadFile_YAML(t *testing.T) {
	t.Setenv("TEST_TSIG_SECRET", "c2VjcmV0")
	path := writeFile(t, "config.yaml", yamlConfig)

	fc, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	cfg := defaults()
	fc.apply(cfg)

	if cfg.Log.Level != "debug" || cfg.Log.Format != "text" {
		t.Errorf("Log = %+v", cfg.Log)
	}
	if cfg.Schedule.DayIP != "1.1.1.1" || cfg.Schedule.NightIP != "2.2.2.2" {
		t.Errorf("Schedule = %+v", cfg.Schedule)
	}
	if len(cfg.Domains) != 2 || cfg.Domains[1].Zone != "example.org" {
		t.Errorf("Domains = %+v", cfg.Domains)
	}
	if cfg.AutoDiscovery {
		t.Error("AutoDiscovery should be false")
	}
	if cfg.CheckInterval != 120*time.Second {
		t.Errorf("CheckInterval = %v, want 2m", cfg.CheckInterval)
	}
	if cfg.ErrorBackoff != DefaultErrorBackoff {
		t.Errorf("ErrorBackoff = %v, want default", cfg.ErrorBackoff)
	}
	if cfg.TTL != 600 || cfg.Workers != 2 {
		t.Errorf("TTL = %d, Workers = %d", cfg.TTL, cfg.Workers)
	}
	if cfg.Provider.Type != "rfc2136" {
		t.Errorf("Provider.Type = %q", cfg.Provider.Type)
	}
	if cfg.Provider.Settings["SERVER"] != "ns1.example.com:53" {
		t.Errorf("SERVER = %q", cfg.Provider.Settings["SERVER"])
	}
	if cfg.Provider.Settings["TSIG_SECRET"] != "c2VjcmV0" {
		t.Errorf("TSIG_SECRET = %q, want interpolated value", cfg.Provider.Settings["TSIG_SECRET"])
	}
}

func TestLoadFile_TOML(t *testing.T) {
	path := writeFile(t, "config.toml", tomlConfig)

	fc, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	cfg := defaults()
	fc.apply(cfg)

	if cfg.Schedule.DayStartHour != 22 || cfg.Schedule.DayEndHour != 6 {
		t.Errorf("hours = %d-%d", cfg.Schedule.DayStartHour, cfg.Schedule.DayEndHour)
	}
	if cfg.ErrorBackoff != 30*time.Second {
		t.Errorf("ErrorBackoff = %v", cfg.ErrorBackoff)
	}
	if cfg.Provider.Type != "cloudflare" {
		t.Errorf("Provider.Type = %q", cfg.Provider.Type)
	}
	if cfg.Provider.Settings["TOKEN"] != "tok" || cfg.Provider.Settings["EMAIL"] != "ops@example.com" {
		t.Errorf("Settings = %v", cfg.Provider.Settings)
	}
}

func TestLoadFile_JSON(t *testing.T) {
	path := writeFile(t, "config.json", jsonConfig)

	fc, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	cfg := defaults()
	fc.apply(cfg)

	if cfg.Provider.Settings["TOKEN"] != "json-token" {
		t.Errorf("TOKEN = %q", cfg.Provider.Settings["TOKEN"])
	}
	if cfg.Log.Level != "info" || cfg.Log.File != "/tmp/dnsshift.log" {
		t.Errorf("Log = %+v", cfg.Log)
	}
	if !cfg.AutoDiscovery {
		t.Error("AutoDiscovery should default to true")
	}
}

func TestLoadFile_Errors(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := LoadFile(writeFile(t, "bad.json", "{not json")); err == nil {
		t.Error("expected error for invalid JSON")
	}
	if _, err := LoadFile(writeFile(t, "bad.yaml", "domains: [unclosed")); err == nil {
		t.Error("expected error for invalid YAML")
	}
	if _, err := LoadFile(writeFile(t, "bad.toml", "schedule = [")); err == nil {
		t.Error("expected error for invalid TOML")
	}
}
