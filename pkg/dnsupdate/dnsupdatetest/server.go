// Package dnsupdatetest provides an in-process authoritative DNS server for
// testing RFC 2136 clients. It answers SOA and A queries, applies UPDATE
// messages and serves AXFR, over both UDP and TCP on the same port.
package dnsupdatetest

import (
	"net"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/miekg/dns"
)

// Server is a minimal authoritative server holding A records per zone.
type Server struct {
	// Addr is the host:port both listeners are bound to.
	Addr string

	tsigName   string
	tsigSecret string

	mu          sync.Mutex
	zones       map[string][]*dns.A
	updates     int
	updateRcode int
	refuseAXFR  bool
}

// Option configures a Server.
type Option func(*Server)

// WithTSIG requires every request to be signed with the given key.
func WithTSIG(name, secret string) Option {
	return func(s *Server) {
		s.tsigName = dns.Fqdn(strings.ToLower(name))
		s.tsigSecret = secret
	}
}

// NewServer starts a server serving the given zones. It is shut down when
// the test ends.
func NewServer(t testing.TB, zones []string, opts ...Option) *Server {
	t.Helper()

	s := &Server{zones: make(map[string][]*dns.A)}
	for _, z := range zones {
		s.zones[fqdn(z)] = nil
	}
	for _, opt := range opts {
		opt(s)
	}

	pc, l := listen(t)
	s.Addr = l.Addr().String()

	var secrets map[string]string
	if s.tsigName != "" {
		secrets = map[string]string{s.tsigName: s.tsigSecret}
	}

	handler := dns.HandlerFunc(s.serveDNS)
	for _, srv := range []*dns.Server{
		{PacketConn: pc, Handler: handler, TsigSecret: secrets, MsgAcceptFunc: acceptMsg},
		{Listener: l, Handler: handler, TsigSecret: secrets, MsgAcceptFunc: acceptMsg},
	} {
		started := make(chan struct{})
		srv.NotifyStartedFunc = func() { close(started) }
		go func() { _ = srv.ActivateAndServe() }()
		select {
		case <-started:
		case <-time.After(5 * time.Second):
			t.Fatal("dns server did not start")
		}
		t.Cleanup(func() { _ = srv.Shutdown() })
	}

	return s
}

// acceptMsg extends the default accept policy with UPDATE, whose update
// section carries more than one RR.
func acceptMsg(dh dns.Header) dns.MsgAcceptAction {
	if dh.Bits&(1<<15) != 0 {
		return dns.MsgIgnore
	}
	if opcode := int(dh.Bits>>11) & 0xF; opcode == dns.OpcodeUpdate {
		return dns.MsgAccept
	}
	return dns.DefaultMsgAcceptFunc(dh)
}

// listen binds UDP and TCP to the same loopback port.
func listen(t testing.TB) (net.PacketConn, net.Listener) {
	t.Helper()

	for attempt := 0; attempt < 20; attempt++ {
		l, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("listen tcp: %v", err)
		}
		pc, err := net.ListenPacket("udp", l.Addr().String())
		if err == nil {
			return pc, l
		}
		_ = l.Close()
	}

	t.Fatal("could not bind udp and tcp to the same port")
	return nil, nil
}

// AddA adds an A record to the zone containing name.
func (s *Server) AddA(name, address string, ttl uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	zone := s.zoneFor(fqdn(name))
	if zone == "" {
		panic("dnsupdatetest: " + name + " is not in any served zone")
	}
	s.zones[zone] = append(s.zones[zone], &dns.A{
		Hdr: dns.RR_Header{Name: fqdn(name), Rrtype: dns.TypeA, Class: dns.ClassINET, Ttl: ttl},
		A:   net.ParseIP(address).To4(),
	})
}

// Addresses returns the sorted addresses currently held for name.
func (s *Server) Addresses(name string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []string
	for _, rr := range s.zones[s.zoneFor(fqdn(name))] {
		if rr.Hdr.Name == fqdn(name) {
			out = append(out, rr.A.String())
		}
	}
	sort.Strings(out)
	return out
}

// TTL returns the TTL of the record name/address, or 0 when absent.
func (s *Server) TTL(name, address string) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rr := range s.zones[s.zoneFor(fqdn(name))] {
		if rr.Hdr.Name == fqdn(name) && rr.A.String() == address {
			return rr.Hdr.Ttl
		}
	}
	return 0
}

// Updates returns the number of UPDATE messages applied.
func (s *Server) Updates() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updates
}

// FailUpdates makes every UPDATE answer with rcode. Zero restores success.
func (s *Server) FailUpdates(rcode int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updateRcode = rcode
}

// RefuseAXFR makes zone transfers fail.
func (s *Server) RefuseAXFR(refuse bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refuseAXFR = refuse
}

func (s *Server) serveDNS(w dns.ResponseWriter, r *dns.Msg) {
	m := new(dns.Msg)
	m.SetReply(r)
	m.Authoritative = true

	if s.tsigName != "" {
		if r.IsTsig() == nil || w.TsigStatus() != nil {
			m.SetRcode(r, dns.RcodeNotAuth)
			_ = w.WriteMsg(m)
			return
		}
	}

	if len(r.Question) != 1 {
		m.SetRcode(r, dns.RcodeFormatError)
		s.write(w, r, m)
		return
	}
	q := r.Question[0]

	if r.Opcode == dns.OpcodeUpdate {
		s.update(r, m)
		s.write(w, r, m)
		return
	}

	if q.Qtype == dns.TypeAXFR {
		s.transfer(w, r, m)
		return
	}

	s.query(q, m)
	s.write(w, r, m)
}

func (s *Server) write(w dns.ResponseWriter, r, m *dns.Msg) {
	if t := r.IsTsig(); t != nil && s.tsigName != "" {
		m.SetTsig(t.Hdr.Name, t.Algorithm, 300, time.Now().Unix())
	}
	_ = w.WriteMsg(m)
}

func (s *Server) query(q dns.Question, m *dns.Msg) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := fqdn(q.Name)
	zone := s.zoneFor(name)
	if zone == "" {
		m.Rcode = dns.RcodeRefused
		return
	}

	switch q.Qtype {
	case dns.TypeSOA:
		if name == zone {
			m.Answer = append(m.Answer, soa(zone))
		} else {
			m.Ns = append(m.Ns, soa(zone))
		}
	case dns.TypeA:
		for _, rr := range s.zones[zone] {
			if rr.Hdr.Name == name {
				m.Answer = append(m.Answer, dns.Copy(rr))
			}
		}
		if len(m.Answer) == 0 {
			m.Rcode = dns.RcodeNameError
			m.Ns = append(m.Ns, soa(zone))
		}
	}
}

func (s *Server) update(r, m *dns.Msg) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.updateRcode != 0 {
		m.Rcode = s.updateRcode
		return
	}

	zone := fqdn(r.Question[0].Name)
	if _, ok := s.zones[zone]; !ok {
		m.Rcode = dns.RcodeNotAuth
		return
	}

	for _, rr := range r.Ns {
		if !dns.IsSubDomain(zone, fqdn(rr.Header().Name)) {
			m.Rcode = dns.RcodeNotZone
			return
		}
	}

	records := s.zones[zone]
	for _, rr := range r.Ns {
		a, ok := rr.(*dns.A)
		if !ok {
			continue
		}
		name := fqdn(a.Hdr.Name)
		switch a.Hdr.Class {
		case dns.ClassNONE:
			kept := records[:0]
			for _, existing := range records {
				if existing.Hdr.Name == name && existing.A.Equal(a.A) {
					continue
				}
				kept = append(kept, existing)
			}
			records = kept
		case dns.ClassINET:
			dup := false
			for _, existing := range records {
				if existing.Hdr.Name == name && existing.A.Equal(a.A) {
					existing.Hdr.Ttl = a.Hdr.Ttl
					dup = true
				}
			}
			if !dup {
				inserted := dns.Copy(a).(*dns.A)
				inserted.Hdr.Name = name
				records = append(records, inserted)
			}
		}
	}
	s.zones[zone] = records
	s.updates++
}

func (s *Server) transfer(w dns.ResponseWriter, r, m *dns.Msg) {
	s.mu.Lock()
	zone := fqdn(r.Question[0].Name)
	records, ok := s.zones[zone]
	refuse := s.refuseAXFR
	rrs := []dns.RR{soa(zone)}
	for _, rr := range records {
		rrs = append(rrs, dns.Copy(rr))
	}
	rrs = append(rrs, soa(zone))
	s.mu.Unlock()

	if refuse || !ok {
		m.Rcode = dns.RcodeRefused
		s.write(w, r, m)
		return
	}

	tr := new(dns.Transfer)
	if s.tsigName != "" {
		tr.TsigSecret = map[string]string{s.tsigName: s.tsigSecret}
	}

	ch := make(chan *dns.Envelope)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = tr.Out(w, r, ch)
	}()
	ch <- &dns.Envelope{RR: rrs}
	close(ch)
	wg.Wait()
	w.Hijack()
}

// zoneFor returns the most specific served zone containing name.
// Callers hold s.mu.
func (s *Server) zoneFor(name string) string {
	best := ""
	for zone := range s.zones {
		if dns.IsSubDomain(zone, name) && len(zone) > len(best) {
			best = zone
		}
	}
	return best
}

func soa(zone string) *dns.SOA {
	return &dns.SOA{
		Hdr:     dns.RR_Header{Name: zone, Rrtype: dns.TypeSOA, Class: dns.ClassINET, Ttl: 3600},
		Ns:      "ns1." + zone,
		Mbox:    "hostmaster." + zone,
		Serial:  1,
		Refresh: 3600,
		Retry:   600,
		Expire:  86400,
		Minttl:  300,
	}
}

func fqdn(name string) string {
	return dns.Fqdn(strings.ToLower(name))
}
