package dnsupdate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/miekg/dns"
)

// Sentinel errors for RFC 2136 operations.
var (
	// ErrUpdateFailed is returned when the server rejects an UPDATE.
	ErrUpdateFailed = errors.New("dns update failed")

	// ErrAuthenticationFailed is returned when TSIG authentication fails.
	ErrAuthenticationFailed = errors.New("tsig authentication failed")

	// ErrConnectionFailed is returned when the server cannot be reached.
	ErrConnectionFailed = errors.New("connection to dns server failed")

	// ErrZoneNotFound is returned when the server is not authoritative for
	// a zone apex.
	ErrZoneNotFound = errors.New("zone not found on server")

	// ErrZoneMismatch is returned when a record name is outside the zone.
	ErrZoneMismatch = errors.New("record name does not match zone")

	// ErrAXFRFailed is returned when a zone transfer is refused or fails.
	ErrAXFRFailed = errors.New("zone transfer (AXFR) failed")
)

// Client handles RFC 2136 queries, updates and zone transfers against one
// primary server.
type Client struct {
	config    *Config
	tsig      *TSIG
	logger    *slog.Logger
	dnsClient *dns.Client
}

// ClientOption is a functional option for configuring the Client.
type ClientOption func(*Client)

// WithLogger sets a custom logger for the DNS update client.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a new RFC 2136 client with the given configuration.
func NewClient(config *Config, opts ...ClientOption) (*Client, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	tsig, err := TSIGFromConfig(config)
	if err != nil {
		return nil, fmt.Errorf("invalid TSIG configuration: %w", err)
	}

	c := &Client{
		config: config,
		tsig:   tsig,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.dnsClient = &dns.Client{
		Net:        "udp",
		Timeout:    config.GetTimeout(),
		TsigSecret: tsig.secrets(),
	}
	if config.UseTCP {
		c.dnsClient.Net = "tcp"
	}

	c.logger.Debug("RFC 2136 client initialized",
		slog.String("server", config.GetServer()),
		slog.Bool("tsig", tsig != nil),
		slog.Bool("tcp", config.UseTCP),
	)

	return c, nil
}

// Server returns the configured server address.
func (c *Client) Server() string {
	return c.config.GetServer()
}

// Ping checks that the server answers. Any response counts, since the
// root SOA question is only used to exercise the transport and TSIG.
func (c *Client) Ping(ctx context.Context) error {
	msg := new(dns.Msg)
	msg.SetQuestion(".", dns.TypeSOA)
	msg.RecursionDesired = false

	_, rtt, err := c.exchange(ctx, msg)
	if err != nil {
		return err
	}

	c.logger.Debug("DNS server ping successful",
		slog.String("server", c.config.GetServer()),
		slog.Duration("rtt", rtt),
	)
	return nil
}

// SOA queries the SOA record of zone and returns it. The answer must be
// owned by zone itself, so a name below an apex yields ErrZoneNotFound.
func (c *Client) SOA(ctx context.Context, zone string) (*dns.SOA, error) {
	zone = Fqdn(zone)

	msg := new(dns.Msg)
	msg.SetQuestion(zone, dns.TypeSOA)
	msg.RecursionDesired = false

	resp, rtt, err := c.exchange(ctx, msg)
	if err != nil {
		return nil, err
	}

	switch resp.Rcode {
	case dns.RcodeSuccess:
	case dns.RcodeNotAuth:
		if c.tsig != nil {
			return nil, fmt.Errorf("%w: %s", ErrAuthenticationFailed, dns.RcodeToString[resp.Rcode])
		}
		return nil, fmt.Errorf("%w: %s (%s)", ErrZoneNotFound, zone, dns.RcodeToString[resp.Rcode])
	case dns.RcodeNameError, dns.RcodeRefused:
		return nil, fmt.Errorf("%w: %s (%s)", ErrZoneNotFound, zone, dns.RcodeToString[resp.Rcode])
	default:
		return nil, fmt.Errorf("%w: server returned %s", ErrConnectionFailed, dns.RcodeToString[resp.Rcode])
	}

	for _, rr := range resp.Answer {
		if soa, ok := rr.(*dns.SOA); ok && Fqdn(soa.Hdr.Name) == zone {
			c.logger.Debug("SOA probe successful",
				slog.String("zone", zone),
				slog.Uint64("serial", uint64(soa.Serial)),
				slog.Duration("rtt", rtt),
			)
			return soa, nil
		}
	}

	return nil, fmt.Errorf("%w: %s is not a zone apex", ErrZoneNotFound, zone)
}

// Query returns the A records for name. NXDOMAIN yields an empty slice.
func (c *Client) Query(ctx context.Context, name string) ([]Record, error) {
	fqdn := Fqdn(name)

	msg := new(dns.Msg)
	msg.SetQuestion(fqdn, dns.TypeA)
	msg.RecursionDesired = false

	resp, _, err := c.exchange(ctx, msg)
	if err != nil {
		return nil, err
	}

	if resp.Rcode == dns.RcodeNameError {
		return []Record{}, nil
	}
	if resp.Rcode != dns.RcodeSuccess {
		return nil, fmt.Errorf("dns query for %s returned %s", fqdn, dns.RcodeToString[resp.Rcode])
	}

	records := make([]Record, 0, len(resp.Answer))
	for _, rr := range resp.Answer {
		record, ok := RecordFromRR(rr)
		if !ok || record.Name != fqdn {
			continue
		}
		records = append(records, record)
	}

	c.logger.Debug("DNS query complete",
		slog.String("name", fqdn),
		slog.Int("count", len(records)),
	)

	return records, nil
}

// Replace removes oldRecord and inserts newRecord in one UPDATE message, so
// the server applies both or neither.
func (c *Client) Replace(ctx context.Context, zone string, oldRecord, newRecord Record) error {
	zone = Fqdn(zone)

	oldRR, err := c.zoneRR(zone, oldRecord)
	if err != nil {
		return fmt.Errorf("invalid old record: %w", err)
	}
	newRR, err := c.zoneRR(zone, newRecord)
	if err != nil {
		return fmt.Errorf("invalid new record: %w", err)
	}

	msg := new(dns.Msg)
	msg.SetUpdate(zone)
	msg.Remove([]dns.RR{oldRR})
	msg.Insert([]dns.RR{newRR})

	c.logger.Debug("updating DNS record",
		slog.String("zone", zone),
		slog.String("name", newRR.Hdr.Name),
		slog.String("old_address", oldRecord.Address),
		slog.String("new_address", newRecord.Address),
		slog.Uint64("ttl", uint64(newRecord.TTL)),
	)

	resp, _, err := c.exchange(ctx, msg)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUpdateFailed, err)
	}

	return c.checkResponse(resp)
}

// ListA transfers zone and returns its A records. Servers that restrict
// AXFR produce ErrAXFRFailed.
func (c *Client) ListA(ctx context.Context, zone string) ([]Record, error) {
	zone = Fqdn(zone)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	transfer := &dns.Transfer{
		DialTimeout:  c.config.GetTimeout(),
		ReadTimeout:  c.config.GetTimeout(),
		WriteTimeout: c.config.GetTimeout(),
		TsigSecret:   c.tsig.secrets(),
	}

	msg := new(dns.Msg)
	msg.SetAxfr(zone)
	c.tsig.sign(msg)

	c.logger.Debug("initiating AXFR zone transfer",
		slog.String("server", c.config.GetServer()),
		slog.String("zone", zone),
	)

	env, err := transfer.In(msg, c.config.GetServer())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAXFRFailed, err)
	}

	var records []Record
	var transferErr error
	for e := range env {
		if e.Error != nil {
			// Keep draining so the transfer goroutine can exit.
			if transferErr == nil {
				transferErr = e.Error
			}
			continue
		}
		for _, rr := range e.RR {
			if record, ok := RecordFromRR(rr); ok {
				records = append(records, record)
			}
		}
	}

	if transferErr != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrAXFRFailed, zone, transferErr)
	}

	c.logger.Debug("AXFR zone transfer complete",
		slog.String("zone", zone),
		slog.Int("records", len(records)),
	)

	return records, nil
}

// zoneRR converts record and checks that it belongs to zone.
func (c *Client) zoneRR(zone string, record Record) (*dns.A, error) {
	rr, err := record.ToRR()
	if err != nil {
		return nil, err
	}
	if !InZone(rr.Hdr.Name, zone) {
		return nil, fmt.Errorf("%w: %s not in zone %s", ErrZoneMismatch, rr.Hdr.Name, zone)
	}
	return rr, nil
}

// exchange signs msg when TSIG is configured and sends it to the server.
func (c *Client) exchange(ctx context.Context, msg *dns.Msg) (*dns.Msg, time.Duration, error) {
	c.tsig.sign(msg)

	resp, rtt, err := c.dnsClient.ExchangeContext(ctx, msg, c.config.GetServer())
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, 0, ctxErr
		}
		if errors.Is(err, dns.ErrSig) || errors.Is(err, dns.ErrTime) {
			return nil, 0, fmt.Errorf("%w: %w", ErrAuthenticationFailed, err)
		}
		return nil, 0, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	return resp, rtt, nil
}

// checkResponse maps an UPDATE response code to an error.
func (c *Client) checkResponse(resp *dns.Msg) error {
	if resp == nil {
		return fmt.Errorf("%w: no response from server", ErrUpdateFailed)
	}

	switch resp.Rcode {
	case dns.RcodeSuccess:
		return nil

	case dns.RcodeNotAuth:
		// Servers answer NOTAUTH both for foreign zones and rejected keys.
		if c.tsig != nil {
			return fmt.Errorf("%w: %s", ErrAuthenticationFailed, dns.RcodeToString[resp.Rcode])
		}
		return fmt.Errorf("%w: server not authoritative for zone", ErrUpdateFailed)

	case dns.RcodeRefused:
		return fmt.Errorf("%w: update refused (check server policy or TSIG configuration)", ErrUpdateFailed)

	case dns.RcodeNotZone:
		return ErrZoneMismatch

	default:
		return fmt.Errorf("%w: %s", ErrUpdateFailed, dns.RcodeToString[resp.Rcode])
	}
}

// IsNetworkError checks if an error is a network-related error.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrConnectionFailed) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// IsAuthError checks if an error is an authentication error.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrAuthenticationFailed)
}
