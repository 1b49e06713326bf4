package config

import (
	"fmt"
	"strings"
	"time"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration error: %s", e.Errors[0])
	}
	return fmt.Sprintf("configuration errors:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// validateConfig performs cross-field validation on the merged configuration
// and resolves the schedule time zone.
func validateConfig(cfg *Config) []string {
	var errs []string

	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("log.level: invalid value %q (must be debug, info, warn, or error)", cfg.Log.Level))
	}
	switch cfg.Log.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Sprintf("log.format: invalid value %q (must be json or text)", cfg.Log.Format))
	}

	loc, err := loadLocation(cfg.Schedule.Timezone)
	if err != nil {
		errs = append(errs, fmt.Sprintf("schedule.timezone: %v", err))
	} else {
		cfg.location = loc
	}

	if !cfg.Schedule.dayStartSet {
		errs = append(errs, "schedule.day_start_hour is required")
	}
	if !cfg.Schedule.dayEndSet {
		errs = append(errs, "schedule.day_end_hour is required")
	}
	if err := cfg.Policy().Validate(); err != nil {
		errs = append(errs, "schedule: "+err.Error())
	}

	if len(cfg.Domains) == 0 {
		errs = append(errs, "domains: at least one domain is required")
	}
	for i, d := range cfg.Domains {
		if d.Name == "" {
			errs = append(errs, fmt.Sprintf("domains[%d]: name is required", i))
		}
		if d.Zone == "" {
			errs = append(errs, fmt.Sprintf("domains[%d]: zone is required", i))
		}
	}

	if cfg.CheckInterval < time.Second {
		errs = append(errs, "check_interval: must be at least 1s")
	}
	if cfg.ErrorBackoff < time.Second {
		errs = append(errs, "error_backoff: must be at least 1s")
	}
	if cfg.TTL < 1 {
		errs = append(errs, "ttl: must be at least 1")
	}
	if cfg.Workers < 1 {
		errs = append(errs, "workers: must be at least 1")
	}
	if cfg.HealthPort < 0 || cfg.HealthPort > 65535 {
		errs = append(errs, fmt.Sprintf("health_port: must be between 0 and 65535, got %d", cfg.HealthPort))
	}

	if cfg.Provider.Type == "" {
		errs = append(errs, "provider.type is required")
	}

	return errs
}

// loadLocation resolves a time zone name. Empty and "Local" mean the host zone.
func loadLocation(name string) (*time.Location, error) {
	switch strings.TrimSpace(name) {
	case "", "Local", "local":
		return time.Local, nil
	case "UTC", "utc":
		return time.UTC, nil
	}
	return time.LoadLocation(strings.TrimSpace(name))
}

// ValidateProviderType checks that the provider type is known.
// It is called when building the provider, not during config load.
func ValidateProviderType(typeName string, knownTypes []string) error {
	for _, known := range knownTypes {
		if typeName == known {
			return nil
		}
	}
	return fmt.Errorf("unknown provider type: %q (known types: %s)", typeName, strings.Join(knownTypes, ", "))
}
