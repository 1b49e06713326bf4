package provider

import (
	"errors"
	"fmt"
)

// Common errors for provider operations.
var (
	// ErrNotFound indicates a record was not found.
	ErrNotFound = errors.New("record not found")

	// ErrZoneNotFound indicates no zone matched the requested name.
	ErrZoneNotFound = errors.New("zone not found")

	// ErrUnauthorized indicates authentication failed.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRateLimited indicates the provider rejected the call for exceeding its rate limit.
	ErrRateLimited = errors.New("rate limited")

	// ErrProviderUnavailable indicates the provider API is unreachable.
	ErrProviderUnavailable = errors.New("provider unavailable")
)

// ConfigError represents a configuration error.
type ConfigError struct {
	Field   string
	Value   string
	Message string
}

func (e *ConfigError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("configuration error: %s=%q: %s", e.Field, e.Value, e.Message)
	}
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Message)
}

// ErrConfigMissing creates an error for a missing required configuration field.
func ErrConfigMissing(field string) error {
	return &ConfigError{
		Field:   field,
		Message: "required but not set",
	}
}

// ErrConfigInvalid creates an error for an invalid configuration value.
func ErrConfigInvalid(field, value, message string) error {
	return &ConfigError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// ProviderError wraps an error with provider context.
type ProviderError struct {
	Provider  string
	Operation string
	Err       error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %s: %v", e.Provider, e.Operation, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// WrapError wraps an error with provider context.
func WrapError(provider, operation string, err error) error {
	if err == nil {
		return nil
	}
	return &ProviderError{
		Provider:  provider,
		Operation: operation,
		Err:       err,
	}
}

// IsNotFound returns true if the error indicates a record was not found.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsZoneNotFound returns true if the error indicates the zone does not exist.
func IsZoneNotFound(err error) bool {
	return errors.Is(err, ErrZoneNotFound)
}

// IsUnauthorized returns true if the error indicates authentication failed.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsRateLimited returns true if the error indicates the call was throttled.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// IsProviderUnavailable returns true if the error indicates the provider is unreachable.
func IsProviderUnavailable(err error) bool {
	return errors.Is(err, ErrProviderUnavailable)
}
