// Package rfc2136 implements the dnsshift provider interface for
// authoritative servers that accept RFC 2136 Dynamic DNS updates, such as
// BIND, Knot DNS, PowerDNS and Windows DNS.
//
// Zone ids are the fully qualified zone names, confirmed by an SOA probe.
// Record ids have the form "<fqdn>|<address>" because DNS has no native
// record identifier. Zone-wide listing uses AXFR, so the discovery pass
// needs the server to allow transfers to this client.
//
// # Configuration
//
//	provider:
//	  type: rfc2136
//	  config:
//	    server: ns1.example.com:53
//	    tsig_key: dnsshift.
//	    tsig_secret: ${TSIG_SECRET}
//	    tsig_algorithm: hmac-sha256
//	    timeout: 10
//	    use_tcp: false
//
// The same settings can be given as DNSSHIFT_PROVIDER_<KEY> environment
// variables, with the _FILE suffix for secrets.
package rfc2136
