package dnsupdate

import (
	"fmt"
	"net/netip"
	"strings"

	"github.com/miekg/dns"
)

// Record is an A record as seen on the wire.
type Record struct {
	// Name is the owner name, normalized to a lowercase FQDN by ToRR.
	Name string

	// TTL is the time-to-live in seconds.
	TTL uint32

	// Address is the dotted-quad IPv4 address.
	Address string
}

// NewARecord creates a new A record.
func NewARecord(name, address string, ttl uint32) Record {
	return Record{Name: name, TTL: ttl, Address: address}
}

// ToRR converts the Record to a *dns.A.
func (r Record) ToRR() (*dns.A, error) {
	if strings.TrimSpace(r.Name) == "" {
		return nil, fmt.Errorf("record name is required")
	}

	addr, err := netip.ParseAddr(strings.TrimSpace(r.Address))
	if err != nil || !addr.Is4() {
		return nil, fmt.Errorf("invalid IPv4 address: %q", r.Address)
	}

	return &dns.A{
		Hdr: dns.RR_Header{
			Name:   Fqdn(r.Name),
			Rrtype: dns.TypeA,
			Class:  dns.ClassINET,
			Ttl:    r.TTL,
		},
		A: addr.AsSlice(),
	}, nil
}

// RecordFromRR converts an A resource record. ok is false for any other type.
func RecordFromRR(rr dns.RR) (Record, bool) {
	a, ok := rr.(*dns.A)
	if !ok || a.A == nil {
		return Record{}, false
	}
	return Record{
		Name:    Fqdn(a.Hdr.Name),
		TTL:     a.Hdr.Ttl,
		Address: a.A.String(),
	}, true
}

// Fqdn lowercases name and ensures the trailing dot.
func Fqdn(name string) string {
	return dns.Fqdn(strings.ToLower(strings.TrimSpace(name)))
}

// InZone reports whether name is the zone apex or below it.
func InZone(name, zone string) bool {
	return dns.IsSubDomain(Fqdn(zone), Fqdn(name))
}
