// Package provider defines the interface that DNS provider backends implement
// for dnsshift to resolve zones, list address records and update them.
package provider

import (
	"context"
	"strings"
)

// RecordType represents the type of DNS record.
type RecordType string

// RecordTypeA is the only record type dnsshift manages.
const RecordTypeA RecordType = "A"

// Record represents an address record as reported by a provider.
type Record struct {
	// ID is the provider-assigned identifier. Opaque to callers and stable
	// for the lifetime of the record.
	ID string

	Hostname string
	Type     RecordType
	Target   string // current address
	TTL      int

	// Proxied is the Cloudflare proxy flag. Other providers leave it false.
	Proxied bool
}

// Provider defines the operations the reconciler needs from a DNS backend.
// Every method is a remote call and may fail transiently.
type Provider interface {
	// Name returns the provider instance name (e.g., "public-dns").
	Name() string

	// Type returns the provider type (e.g., "cloudflare", "rfc2136").
	Type() string

	// Ping checks connectivity to the provider.
	Ping(ctx context.Context) error

	// ZoneID resolves a zone name to the provider's zone identifier.
	// Returns an error wrapping ErrZoneNotFound if no zone matches.
	ZoneID(ctx context.Context, zone string) (string, error)

	// ListAddressRecords returns the A records of a zone. When name is
	// non-empty only records with exactly that name are returned.
	ListAddressRecords(ctx context.Context, zoneID, name string) ([]Record, error)

	// UpdateRecord rewrites an existing record, identified by record.ID,
	// to the given hostname, target and TTL. The type is always A.
	UpdateRecord(ctx context.Context, zoneID string, record Record) error
}

// NormalizeHostname lowercases a hostname and strips the trailing dot so
// names from different providers compare equal.
func NormalizeHostname(name string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(name)), ".")
}

// SameHostname reports whether two hostnames refer to the same name.
func SameHostname(a, b string) bool {
	return NormalizeHostname(a) == NormalizeHostname(b)
}
