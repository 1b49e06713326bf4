package rfc2136

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"gitlab.bluewillows.net/root/dnsshift/pkg/dnsupdate"
	"gitlab.bluewillows.net/root/dnsshift/pkg/provider"
)

// defaultTTL is used when an update carries no TTL.
const defaultTTL = 300

// idSeparator joins the owner name and address in record ids.
const idSeparator = "|"

// Provider implements provider.Provider for RFC 2136 Dynamic DNS servers.
type Provider struct {
	name   string
	client *dnsupdate.Client
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

// New creates a new RFC 2136 provider instance.
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

	client, err := dnsupdate.NewClient(config.ToDNSUpdateConfig(), dnsupdate.WithLogger(p.logger))
	if err != nil {
		return nil, fmt.Errorf("creating dnsupdate client: %w", err)
	}
	p.client = client

	return p, nil
}

// Name returns the provider instance name.
func (p *Provider) Name() string {
	return p.name
}

// Type returns "rfc2136".
func (p *Provider) Type() string {
	return "rfc2136"
}

// Ping checks connectivity to the DNS server.
func (p *Provider) Ping(ctx context.Context) error {
	return provider.WrapError(p.name, "ping", classify(p.client.Ping(ctx)))
}

// ZoneID confirms the server is authoritative for zone and returns the
// zone's FQDN as its id.
func (p *Provider) ZoneID(ctx context.Context, zone string) (string, error) {
	soa, err := p.client.SOA(ctx, zone)
	if err != nil {
		return "", provider.WrapError(p.name, "zone lookup", classify(err))
	}
	return dnsupdate.Fqdn(soa.Hdr.Name), nil
}

// ListAddressRecords queries name directly, or transfers the whole zone
// when name is empty.
func (p *Provider) ListAddressRecords(ctx context.Context, zoneID, name string) ([]provider.Record, error) {
	var (
		found []dnsupdate.Record
		err   error
	)

	if name != "" {
		if !dnsupdate.InZone(name, zoneID) {
			return nil, provider.WrapError(p.name, "list",
				fmt.Errorf("%w: %s not in zone %s", provider.ErrNotFound, name, zoneID))
		}
		found, err = p.client.Query(ctx, name)
	} else {
		found, err = p.client.ListA(ctx, zoneID)
	}
	if err != nil {
		return nil, provider.WrapError(p.name, "list", classify(err))
	}

	records := make([]provider.Record, 0, len(found))
	for _, r := range found {
		records = append(records, provider.Record{
			ID:       recordID(r.Name, r.Address),
			Hostname: provider.NormalizeHostname(r.Name),
			Type:     provider.RecordTypeA,
			Target:   r.Address,
			TTL:      int(r.TTL),
		})
	}

	return records, nil
}

// UpdateRecord replaces the A record named by record.ID with one pointing
// at record.Target, in a single UPDATE message.
func (p *Provider) UpdateRecord(ctx context.Context, zoneID string, record provider.Record) error {
	owner, oldAddress, ok := parseRecordID(record.ID)
	if !ok {
		return provider.WrapError(p.name, "update",
			fmt.Errorf("%w: malformed record id %q", provider.ErrNotFound, record.ID))
	}

	ttl := record.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}

	oldRecord := dnsupdate.NewARecord(owner, oldAddress, 0)
	newRecord := dnsupdate.NewARecord(owner, record.Target, uint32(ttl))

	if err := p.client.Replace(ctx, zoneID, oldRecord, newRecord); err != nil {
		return provider.WrapError(p.name, "update", classify(err))
	}

	p.logger.Debug("replaced A record",
		slog.String("provider", p.name),
		slog.String("name", owner),
		slog.String("old", oldAddress),
		slog.String("new", record.Target),
	)

	return nil
}

// recordID builds the "<fqdn>|<address>" id of an A record.
func recordID(name, address string) string {
	return dnsupdate.Fqdn(name) + idSeparator + address
}

// parseRecordID splits a record id into owner name and address.
func parseRecordID(id string) (name, address string, ok bool) {
	name, address, ok = strings.Cut(id, idSeparator)
	if !ok || name == "" || address == "" {
		return "", "", false
	}
	return name, address, true
}

// classify maps dnsupdate errors onto the provider sentinels.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, dnsupdate.ErrZoneNotFound):
		return fmt.Errorf("%w: %w", provider.ErrZoneNotFound, err)
	case dnsupdate.IsAuthError(err):
		return fmt.Errorf("%w: %w", provider.ErrUnauthorized, err)
	case dnsupdate.IsNetworkError(err), errors.Is(err, dnsupdate.ErrAXFRFailed):
		return fmt.Errorf("%w: %w", provider.ErrProviderUnavailable, err)
	default:
		return err
	}
}

// Ensure Provider implements provider.Provider at compile time.
var _ provider.Provider = (*Provider)(nil)
