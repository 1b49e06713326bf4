package config

import (
	"os"
	"strings"
)

// getEnv retrieves a DNSSHIFT_ environment variable value.
func getEnv(key string) string {
	return os.Getenv(EnvPrefix + key)
}

// getEnvOrFile retrieves a value from either a direct environment variable
// or a file path specified by the file key (Docker secrets pattern).
//
// If both are set, the file takes precedence. This allows local development
// with direct values while production uses Docker secrets.
//
// The file contents are trimmed of leading/trailing whitespace.
func getEnvOrFile(directKey, fileKey string) string {
	if filePath := os.Getenv(fileKey); filePath != "" {
		content, err := os.ReadFile(filePath)
		if err == nil {
			return strings.TrimSpace(string(content))
		}
		// If file read fails, fall through to direct value
	}

	return os.Getenv(directKey)
}

// providerEnvSettings collects DNSSHIFT_PROVIDER_<KEY> and
// DNSSHIFT_PROVIDER_<KEY>_FILE variables, keyed by <KEY>.
func providerEnvSettings() map[string]string {
	const prefix = EnvPrefix + "PROVIDER_"

	keys := make(map[string]struct{})
	for _, kv := range os.Environ() {
		name, _, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, prefix) {
			continue
		}
		key := strings.TrimPrefix(name, prefix)
		key = strings.TrimSuffix(key, "_FILE")
		if key != "" {
			keys[key] = struct{}{}
		}
	}

	settings := make(map[string]string, len(keys))
	for key := range keys {
		if v := getEnvOrFile(prefix+key, prefix+key+"_FILE"); v != "" {
			settings[key] = v
		}
	}
	return settings
}

// parseBool parses a boolean string, returning defaultValue on parse failure.
// Accepts: true/false, 1/0, yes/no, on/off (case-insensitive).
func parseBool(s string, defaultValue bool) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		return defaultValue
	}
}
