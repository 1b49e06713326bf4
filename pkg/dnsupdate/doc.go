// Package dnsupdate provides an RFC 2136 Dynamic DNS Update client for A
// records.
//
// One Client talks to one primary server and may serve any number of zones:
// the zone is an argument of every operation rather than part of the
// configuration.
//
// Supported operations:
//   - SOA probe of a zone apex (connectivity and zone existence)
//   - A queries for a single name
//   - AXFR enumeration of a zone's A records (read-only)
//   - atomic replacement of one A record by another in a single UPDATE
//
// TSIG authentication (RFC 2845) is applied to every message when a key is
// configured. Generate keys with BIND's tsig-keygen:
//
//	tsig-keygen -a hmac-sha256 dnsshift > dnsshift.key
//
// # Usage
//
//	client, err := dnsupdate.NewClient(&dnsupdate.Config{
//	    Server:      "ns1.example.com:53",
//	    TSIGKeyName: "dnsshift.",
//	    TSIGSecret:  secret,
//	})
//	if err != nil {
//	    return err
//	}
//
//	err = client.Replace(ctx, "example.com.",
//	    dnsupdate.NewARecord("app.example.com.", "192.0.2.2", 300),
//	    dnsupdate.NewARecord("app.example.com.", "192.0.2.1", 300),
//	)
package dnsupdate
