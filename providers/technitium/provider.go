package technitium

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"gitlab.bluewillows.net/root/dnsshift/pkg/provider"
)

// defaultTTL is used when an update carries no TTL.
const defaultTTL = 300

// Provider implements provider.Provider for Technitium DNS Server.
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

// New creates a new Technitium provider instance.
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

// Name returns the provider instance name.
func (p *Provider) Name() string {
	return p.name
}

// Type returns "technitium".
func (p *Provider) Type() string {
	return "technitium"
}

// Ping checks connectivity to the Technitium server.
func (p *Provider) Ping(ctx context.Context) error {
	return provider.WrapError(p.name, "ping", p.client.Ping(ctx))
}

// ZoneID returns the zone name when the server hosts an enabled zone with
// exactly that name.
func (p *Provider) ZoneID(ctx context.Context, zone string) (string, error) {
	id, err := p.client.FindZone(ctx, zone)
	if err != nil {
		return "", provider.WrapError(p.name, "zone lookup", err)
	}
	return id, nil
}

// ListAddressRecords returns the enabled A records of name, or of the whole
// zone when name is empty.
func (p *Provider) ListAddressRecords(ctx context.Context, zoneID, name string) ([]provider.Record, error) {
	domain, listZone := provider.NormalizeHostname(name), false
	if domain == "" {
		domain, listZone = zoneID, true
	}

	apiRecords, err := p.client.GetRecords(ctx, zoneID, domain, listZone)
	if err != nil {
		return nil, provider.WrapError(p.name, "list", err)
	}

	records := make([]provider.Record, 0, len(apiRecords))
	for _, r := range apiRecords {
		if r.Disabled || r.Type != string(provider.RecordTypeA) || r.RData.IPAddress == "" {
			continue
		}
		if !listZone && !provider.SameHostname(r.Name, name) {
			continue
		}
		hostname := provider.NormalizeHostname(r.Name)
		records = append(records, provider.Record{
			ID:       recordID(hostname, r.RData.IPAddress),
			Hostname: hostname,
			Type:     provider.RecordTypeA,
			Target:   r.RData.IPAddress,
			TTL:      r.TTL,
		})
	}

	return records, nil
}

// UpdateRecord moves the record named by record.ID to record.Target.
func (p *Provider) UpdateRecord(ctx context.Context, zoneID string, record provider.Record) error {
	hostname, oldIP, ok := strings.Cut(record.ID, "|")
	if !ok || hostname == "" || oldIP == "" {
		return provider.WrapError(p.name, "update",
			fmt.Errorf("%w: malformed record id %q", provider.ErrNotFound, record.ID))
	}

	ttl := record.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}

	if err := p.client.UpdateARecord(ctx, zoneID, hostname, oldIP, record.Target, ttl); err != nil {
		return provider.WrapError(p.name, "update", err)
	}

	return nil
}

func recordID(hostname, address string) string {
	return hostname + "|" + address
}

// Ensure Provider implements provider.Provider at compile time.
var _ provider.Provider = (*Provider)(nil)
