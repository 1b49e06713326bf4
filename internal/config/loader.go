package config

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// ResolvePath returns the config file path: the first argument if given,
// otherwise DNSSHIFT_CONFIG. An empty result means env-only configuration.
func ResolvePath(args []string) string {
	if len(args) > 0 && args[0] != "" {
		return args[0]
	}
	return getEnv("CONFIG")
}

// Load builds the configuration from the file at path (optional), then
// environment overrides, then validates the result. All problems are
// reported together in a *ValidationError.
func Load(path string) (*Config, error) {
	cfg := defaults()
	cfg.Path = path

	var errs []string

	if path != "" {
		fileCfg, err := LoadFile(path)
		if err != nil {
			return nil, &ValidationError{Errors: []string{"config file: " + err.Error()}}
		}
		fileCfg.apply(cfg)
		slog.Debug("loaded configuration from file", slog.String("path", path))
	}

	errs = append(errs, applyEnvOverrides(cfg)...)
	errs = append(errs, validateConfig(cfg)...)

	if len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}

	return cfg, nil
}

// applyEnvOverrides merges DNSSHIFT_* variables into cfg.
// Environment variables always take precedence over file config.
func applyEnvOverrides(cfg *Config) []string {
	var errs []string

	if v := getEnv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = strings.ToLower(v)
	}
	if v := getEnv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = strings.ToLower(v)
	}
	if v := getEnv("LOG_FILE"); v != "" {
		cfg.Log.File = v
	}

	if v := getEnv("DRY_RUN"); v != "" {
		cfg.DryRun = parseBool(v, cfg.DryRun)
	}
	if v := getEnv("AUTO_DISCOVERY"); v != "" {
		cfg.AutoDiscovery = parseBool(v, cfg.AutoDiscovery)
	}

	if v := getEnv("CHECK_INTERVAL"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%sCHECK_INTERVAL: %v", EnvPrefix, err))
		} else {
			cfg.CheckInterval = d
		}
	}
	if v := getEnv("ERROR_BACKOFF"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%sERROR_BACKOFF: %v", EnvPrefix, err))
		} else {
			cfg.ErrorBackoff = d
		}
	}

	intVars := []struct {
		key string
		dst *int
		set *bool
	}{
		{"TTL", &cfg.TTL, nil},
		{"WORKERS", &cfg.Workers, nil},
		{"HEALTH_PORT", &cfg.HealthPort, nil},
		{"DAY_START_HOUR", &cfg.Schedule.DayStartHour, &cfg.Schedule.dayStartSet},
		{"DAY_END_HOUR", &cfg.Schedule.DayEndHour, &cfg.Schedule.dayEndSet},
	}
	for _, iv := range intVars {
		v := getEnv(iv.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s%s: invalid integer %q", EnvPrefix, iv.key, v))
			continue
		}
		*iv.dst = n
		if iv.set != nil {
			*iv.set = true
		}
	}

	if v := getEnv("DAY_IP"); v != "" {
		cfg.Schedule.DayIP = strings.TrimSpace(v)
	}
	if v := getEnv("NIGHT_IP"); v != "" {
		cfg.Schedule.NightIP = strings.TrimSpace(v)
	}
	if v := getEnv("TIMEZONE"); v != "" {
		cfg.Schedule.Timezone = v
	}

	if v := getEnv("DOMAINS"); v != "" {
		domains, dErrs := parseDomains(v)
		errs = append(errs, dErrs...)
		cfg.Domains = domains
	}

	if v := getEnv("PROVIDER"); v != "" {
		cfg.Provider.Type = strings.ToLower(v)
	}
	for k, v := range providerEnvSettings() {
		cfg.Provider.Settings[k] = v
	}

	return errs
}

// parseSeconds accepts a plain number of seconds or a Go duration ("5m").
func parseSeconds(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q (use seconds or a format like 60s, 5m)", s)
	}
	return d, nil
}

// parseDomains parses "name@zone,name@zone".
func parseDomains(s string) ([]Domain, []string) {
	var domains []Domain
	var errs []string

	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, zone, ok := strings.Cut(part, "@")
		if !ok || name == "" || zone == "" {
			errs = append(errs, fmt.Sprintf("%sDOMAINS: entry %q must be name@zone", EnvPrefix, part))
			continue
		}
		domains = append(domains, Domain{Name: strings.TrimSpace(name), Zone: strings.TrimSpace(zone)})
	}

	return domains, errs
}
