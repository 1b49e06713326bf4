// Package config handles loading and validation of dnsshift configuration.
//
// Configuration is layered: a YAML, TOML or JSON file supplies the base
// values, DNSSHIFT_* environment variables override them, and the merged
// result is validated as a whole. Any validation failure aborts startup.
package config

import (
	"time"

	"gitlab.bluewillows.net/root/dnsshift/internal/schedule"
)

// Configuration defaults.
const (
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "json"
	DefaultAutoDiscovery = true
	DefaultCheckInterval = 300 * time.Second
	DefaultErrorBackoff  = 60 * time.Second
	DefaultTTL           = 300
	DefaultWorkers       = 1
	DefaultHealthPort    = 8080
	DefaultProviderType  = "cloudflare"
)

// EnvPrefix is the prefix of every environment variable read by dnsshift.
const EnvPrefix = "DNSSHIFT_"

// Config is the validated runtime configuration.
type Config struct {
	// Path is the file the configuration was loaded from, if any.
	Path string

	Log      LogConfig
	Schedule ScheduleConfig
	Domains  []Domain
	Provider ProviderConfig

	AutoDiscovery bool
	DryRun        bool
	CheckInterval time.Duration
	ErrorBackoff  time.Duration
	TTL           int
	Workers       int
	HealthPort    int // 0 disables the health server

	location *time.Location
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, text
	File   string // optional; output is also written here
}

// ScheduleConfig holds the day/night policy.
type ScheduleConfig struct {
	DayStartHour int
	DayEndHour   int
	DayIP        string
	NightIP      string
	Timezone     string // IANA name, "Local" or "UTC"; empty means Local

	// Hours have no usable default; 0 is a valid hour, so presence is tracked.
	dayStartSet bool
	dayEndSet   bool
}

// Domain is a declared domain and its owning zone.
type Domain struct {
	Name string
	Zone string
}

// ProviderConfig selects the DNS backend.
type ProviderConfig struct {
	Type string

	// Settings are passed to the provider factory. Keys are upper-case,
	// for example TOKEN or SERVER.
	Settings map[string]string
}

// Policy returns the schedule policy described by the configuration.
func (c *Config) Policy() schedule.Policy {
	loc := c.location
	if loc == nil {
		loc = time.Local
	}
	return schedule.Policy{
		DayStartHour: c.Schedule.DayStartHour,
		DayEndHour:   c.Schedule.DayEndHour,
		DayIP:        c.Schedule.DayIP,
		NightIP:      c.Schedule.NightIP,
		Location:     loc,
	}
}

// Location returns the time zone the schedule is evaluated in.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.Local
	}
	return c.location
}

// defaults returns a Config holding every default value.
func defaults() *Config {
	return &Config{
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Provider: ProviderConfig{
			Type:     DefaultProviderType,
			Settings: make(map[string]string),
		},
		AutoDiscovery: DefaultAutoDiscovery,
		CheckInterval: DefaultCheckInterval,
		ErrorBackoff:  DefaultErrorBackoff,
		TTL:           DefaultTTL,
		Workers:       DefaultWorkers,
		HealthPort:    DefaultHealthPort,
	}
}
