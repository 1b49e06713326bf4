package schedule

import (
	"net/netip"
	"sort"
)

// ManagedSet is the set of addresses dnsshift may overwrite. A record is
// eligible for change only if its current address is a member.
type ManagedSet struct {
	addrs map[string]struct{}
}

// NewManagedSet builds a set from address strings.
func NewManagedSet(addrs ...string) ManagedSet {
	s := ManagedSet{addrs: make(map[string]struct{}, len(addrs))}
	for _, a := range addrs {
		if a == "" {
			continue
		}
		s.addrs[canonical(a)] = struct{}{}
	}
	return s
}

// Contains reports whether addr is a managed address.
func (s ManagedSet) Contains(addr string) bool {
	_, ok := s.addrs[canonical(addr)]
	return ok
}

// Len returns the number of managed addresses.
func (s ManagedSet) Len() int {
	return len(s.addrs)
}

// Addresses returns the managed addresses, sorted.
func (s ManagedSet) Addresses() []string {
	out := make([]string, 0, len(s.addrs))
	for a := range s.addrs {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// SameAddress reports whether two address strings denote the same IP.
func SameAddress(a, b string) bool {
	return canonical(a) == canonical(b)
}

// canonical returns the parsed form of an IP so equivalent spellings compare
// equal. Unparsable content is returned unchanged.
func canonical(addr string) string {
	if ip, err := netip.ParseAddr(addr); err == nil {
		return ip.Unmap().String()
	}
	return addr
}
