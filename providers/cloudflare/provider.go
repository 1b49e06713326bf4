package cloudflare

import (
	"context"
	"fmt"
	"log/slog"

	"gitlab.bluewillows.net/root/dnsshift/pkg/provider"
)

// Provider implements provider.Provider for Cloudflare DNS.
type Provider struct {
	name   string
	client *Client
	logger *slog.Logger
}

// ProviderOption is a functional option for configuring the Provider.
type ProviderOption func(*Provider)

// WithProviderLogger sets a custom logger for the provider.
func WithProviderLogger(logger *slog.Logger) ProviderOption {
	return func(p *Provider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New creates a new Cloudflare provider instance.
func New(name string, config *Config, opts ...ProviderOption) (*Provider, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	p := &Provider{
		name:   name,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(p)
	}

	p.client = NewClient(config, WithLogger(p.logger))

	return p, nil
}

// NewFromMap creates a new Cloudflare provider from a settings map.
func NewFromMap(name string, settings map[string]string, opts ...ProviderOption) (*Provider, error) {
	cfg, err := LoadConfigFromMap(name, settings)
	if err != nil {
		return nil, err
	}
	return New(name, cfg, opts...)
}

// Name returns the provider instance name.
func (p *Provider) Name() string {
	return p.name
}

// Type returns "cloudflare".
func (p *Provider) Type() string {
	return "cloudflare"
}

// Ping checks connectivity to the Cloudflare API.
func (p *Provider) Ping(ctx context.Context) error {
	return provider.WrapError(p.name, "ping", p.client.Ping(ctx))
}

// ZoneID looks up the zone with exactly the given name.
func (p *Provider) ZoneID(ctx context.Context, zone string) (string, error) {
	id, err := p.client.GetZoneID(ctx, zone)
	if err != nil {
		return "", provider.WrapError(p.name, "zone lookup", err)
	}
	return id, nil
}

// ListAddressRecords returns the zone's A records, optionally filtered by name.
func (p *Provider) ListAddressRecords(ctx context.Context, zoneID, name string) ([]provider.Record, error) {
	apiRecords, err := p.client.ListARecords(ctx, zoneID, name)
	if err != nil {
		return nil, provider.WrapError(p.name, "list", err)
	}

	records := make([]provider.Record, 0, len(apiRecords))
	for _, r := range apiRecords {
		if r.Type != "" && r.Type != string(provider.RecordTypeA) {
			continue
		}
		if name != "" && !provider.SameHostname(r.Name, name) {
			continue
		}
		records = append(records, provider.Record{
			ID:       r.ID,
			Hostname: r.Name,
			Type:     provider.RecordTypeA,
			Target:   r.Content,
			TTL:      r.TTL,
			Proxied:  r.Proxied,
		})
	}

	return records, nil
}

// UpdateRecord rewrites the record's address. Proxied records keep their
// proxy flag and are written with Cloudflare's automatic TTL.
func (p *Provider) UpdateRecord(ctx context.Context, zoneID string, record provider.Record) error {
	if record.ID == "" {
		return provider.WrapError(p.name, "update", fmt.Errorf("%w: record id is required", provider.ErrNotFound))
	}

	ttl := record.TTL
	if record.Proxied || ttl <= 0 {
		ttl = autoTTL
	}

	req := updateRecordRequest{
		Type:    string(provider.RecordTypeA),
		Name:    provider.NormalizeHostname(record.Hostname),
		Content: record.Target,
		TTL:     ttl,
		Proxied: record.Proxied,
	}

	if err := p.client.UpdateRecord(ctx, zoneID, record.ID, req); err != nil {
		return provider.WrapError(p.name, "update", err)
	}

	return nil
}

// Factory returns a provider.Factory function for use with the provider registry.
func Factory(opts ...ProviderOption) provider.Factory {
	return func(name string, settings map[string]string) (provider.Provider, error) {
		return NewFromMap(name, settings, opts...)
	}
}

// Ensure Provider implements provider.Provider at compile time.
var _ provider.Provider = (*Provider)(nil)
