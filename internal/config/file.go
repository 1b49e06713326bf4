package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// FileConfig represents the configuration file structure.
// Pointer fields distinguish unset from zero values.
type FileConfig struct {
	Log      *FileLogConfig      `yaml:"log,omitempty" toml:"log" json:"log,omitempty"`
	Schedule *FileScheduleConfig `yaml:"schedule,omitempty" toml:"schedule" json:"schedule,omitempty"`
	Domains  []FileDomainConfig  `yaml:"domains,omitempty" toml:"domains" json:"domains,omitempty"`

	AutoDiscovery *bool `yaml:"auto_discovery,omitempty" toml:"auto_discovery" json:"auto_discovery,omitempty"`
	DryRun        *bool `yaml:"dry_run,omitempty" toml:"dry_run" json:"dry_run,omitempty"`
	CheckInterval *int  `yaml:"check_interval,omitempty" toml:"check_interval" json:"check_interval,omitempty"` // seconds
	ErrorBackoff  *int  `yaml:"error_backoff,omitempty" toml:"error_backoff" json:"error_backoff,omitempty"`    // seconds
	TTL           *int  `yaml:"ttl,omitempty" toml:"ttl" json:"ttl,omitempty"`
	Workers       *int  `yaml:"workers,omitempty" toml:"workers" json:"workers,omitempty"`
	HealthPort    *int  `yaml:"health_port,omitempty" toml:"health_port" json:"health_port,omitempty"`

	Provider *FileProviderConfig `yaml:"provider,omitempty" toml:"provider" json:"provider,omitempty"`

	// Cloudflare is shorthand for a cloudflare provider block.
	Cloudflare *FileCloudflareConfig `yaml:"cloudflare,omitempty" toml:"cloudflare" json:"cloudflare,omitempty"`
}

// FileLogConfig holds logging settings.
type FileLogConfig struct {
	Level  string `yaml:"level,omitempty" toml:"level" json:"level,omitempty"`
	Format string `yaml:"format,omitempty" toml:"format" json:"format,omitempty"`
	File   string `yaml:"file,omitempty" toml:"file" json:"file,omitempty"`
}

// FileScheduleConfig holds the day/night policy.
type FileScheduleConfig struct {
	DayStartHour *int   `yaml:"day_start_hour,omitempty" toml:"day_start_hour" json:"day_start_hour,omitempty"`
	DayEndHour   *int   `yaml:"day_end_hour,omitempty" toml:"day_end_hour" json:"day_end_hour,omitempty"`
	DayIP        string `yaml:"day_ip,omitempty" toml:"day_ip" json:"day_ip,omitempty"`
	NightIP      string `yaml:"night_ip,omitempty" toml:"night_ip" json:"night_ip,omitempty"`
	Timezone     string `yaml:"timezone,omitempty" toml:"timezone" json:"timezone,omitempty"`
}

// FileDomainConfig is one declared domain.
type FileDomainConfig struct {
	Name string `yaml:"name" toml:"name" json:"name"`
	Zone string `yaml:"zone" toml:"zone" json:"zone"`
}

// FileProviderConfig selects the DNS backend.
type FileProviderConfig struct {
	Type   string            `yaml:"type" toml:"type" json:"type"`
	Config map[string]string `yaml:"config,omitempty" toml:"config" json:"config,omitempty"`
}

// FileCloudflareConfig holds Cloudflare credentials.
type FileCloudflareConfig struct {
	Email    string `yaml:"email,omitempty" toml:"email" json:"email,omitempty"`
	APIToken string `yaml:"api_token,omitempty" toml:"api_token" json:"api_token,omitempty"`
	APIKey   string `yaml:"api_key,omitempty" toml:"api_key" json:"api_key,omitempty"`
}

// envVarPattern matches ${VAR} or ${VAR:-default} syntax.
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// InterpolateEnvVars replaces ${VAR} patterns with environment variable values.
// Supports ${VAR:-default} syntax for default values.
func InterpolateEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultValue := ""
		if len(groups) >= 3 {
			defaultValue = groups[2]
		}

		if value := os.Getenv(varName); value != "" {
			return value
		}
		return defaultValue
	})
}

// interpolateEnvVars interpolates environment variables in all string fields.
func (c *FileConfig) interpolateEnvVars() {
	if c.Log != nil {
		c.Log.Level = InterpolateEnvVars(c.Log.Level)
		c.Log.Format = InterpolateEnvVars(c.Log.Format)
		c.Log.File = InterpolateEnvVars(c.Log.File)
	}

	if c.Schedule != nil {
		c.Schedule.DayIP = InterpolateEnvVars(c.Schedule.DayIP)
		c.Schedule.NightIP = InterpolateEnvVars(c.Schedule.NightIP)
		c.Schedule.Timezone = InterpolateEnvVars(c.Schedule.Timezone)
	}

	for i := range c.Domains {
		c.Domains[i].Name = InterpolateEnvVars(c.Domains[i].Name)
		c.Domains[i].Zone = InterpolateEnvVars(c.Domains[i].Zone)
	}

	if c.Provider != nil {
		c.Provider.Type = InterpolateEnvVars(c.Provider.Type)
		for k, v := range c.Provider.Config {
			c.Provider.Config[k] = InterpolateEnvVars(v)
		}
	}

	if c.Cloudflare != nil {
		c.Cloudflare.Email = InterpolateEnvVars(c.Cloudflare.Email)
		c.Cloudflare.APIToken = InterpolateEnvVars(c.Cloudflare.APIToken)
		c.Cloudflare.APIKey = InterpolateEnvVars(c.Cloudflare.APIKey)
	}
}

// LoadFile reads and parses a configuration file, detecting the format by
// extension: .toml, .json, or YAML for anything else.
// Environment variables in ${VAR} format are interpolated.
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg FileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return nil, fmt.Errorf("parsing TOML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing JSON config: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing YAML config: %w", err)
		}
	}

	cfg.interpolateEnvVars()

	return &cfg, nil
}

// apply copies every set field onto cfg.
func (c *FileConfig) apply(cfg *Config) {
	if c.Log != nil {
		if c.Log.Level != "" {
			cfg.Log.Level = strings.ToLower(c.Log.Level)
		}
		if c.Log.Format != "" {
			cfg.Log.Format = strings.ToLower(c.Log.Format)
		}
		cfg.Log.File = c.Log.File
	}

	if s := c.Schedule; s != nil {
		if s.DayStartHour != nil {
			cfg.Schedule.DayStartHour = *s.DayStartHour
			cfg.Schedule.dayStartSet = true
		}
		if s.DayEndHour != nil {
			cfg.Schedule.DayEndHour = *s.DayEndHour
			cfg.Schedule.dayEndSet = true
		}
		cfg.Schedule.DayIP = strings.TrimSpace(s.DayIP)
		cfg.Schedule.NightIP = strings.TrimSpace(s.NightIP)
		cfg.Schedule.Timezone = s.Timezone
	}

	for _, d := range c.Domains {
		cfg.Domains = append(cfg.Domains, Domain{
			Name: strings.TrimSpace(d.Name),
			Zone: strings.TrimSpace(d.Zone),
		})
	}

	if c.AutoDiscovery != nil {
		cfg.AutoDiscovery = *c.AutoDiscovery
	}
	if c.DryRun != nil {
		cfg.DryRun = *c.DryRun
	}
	if c.CheckInterval != nil {
		cfg.CheckInterval = time.Duration(*c.CheckInterval) * time.Second
	}
	if c.ErrorBackoff != nil {
		cfg.ErrorBackoff = time.Duration(*c.ErrorBackoff) * time.Second
	}
	if c.TTL != nil {
		cfg.TTL = *c.TTL
	}
	if c.Workers != nil {
		cfg.Workers = *c.Workers
	}
	if c.HealthPort != nil {
		cfg.HealthPort = *c.HealthPort
	}

	if c.Cloudflare != nil {
		cfg.Provider.Type = "cloudflare"
		setIfNotEmpty(cfg.Provider.Settings, "TOKEN", c.Cloudflare.APIToken)
		setIfNotEmpty(cfg.Provider.Settings, "EMAIL", c.Cloudflare.Email)
		setIfNotEmpty(cfg.Provider.Settings, "API_KEY", c.Cloudflare.APIKey)
	}

	if c.Provider != nil {
		if c.Provider.Type != "" {
			cfg.Provider.Type = strings.ToLower(c.Provider.Type)
		}
		for k, v := range c.Provider.Config {
			// Normalize keys to uppercase for consistency with env var loading
			cfg.Provider.Settings[strings.ToUpper(k)] = v
		}
	}
}

func setIfNotEmpty(m map[string]string, key, value string) {
	if value != "" {
		m[key] = value
	}
}
