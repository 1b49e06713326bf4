package dnsupdate

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/miekg/dns"
)

// tsigFudge is the permitted clock skew in seconds.
const tsigFudge = 300

// TSIG represents a Transaction Signature key for RFC 2845 authentication.
type TSIG struct {
	// Name is the fully qualified key name.
	Name string

	// Secret is the base64-encoded shared secret.
	Secret string

	// Algorithm is the TSIG algorithm in miekg/dns format.
	Algorithm string
}

// NewTSIG creates a TSIG key from the given parameters.
func NewTSIG(name, secret, algorithm string) (*TSIG, error) {
	name = dns.Fqdn(strings.ToLower(strings.TrimSpace(name)))

	if _, err := base64.StdEncoding.DecodeString(secret); err != nil {
		return nil, fmt.Errorf("tsig secret is not valid base64: %w", err)
	}

	alg := normalizeAlgorithm(algorithm)
	if !isValidAlgorithm(alg) {
		return nil, fmt.Errorf("unsupported tsig algorithm: %s", algorithm)
	}

	return &TSIG{
		Name:      name,
		Secret:    secret,
		Algorithm: alg,
	}, nil
}

// TSIGFromConfig creates a TSIG key from a Config.
// Returns nil if TSIG is not configured.
func TSIGFromConfig(config *Config) (*TSIG, error) {
	if !config.HasTSIG() {
		return nil, nil //nolint:nilnil // nil TSIG is valid (no auth)
	}

	return NewTSIG(config.TSIGKeyName, config.TSIGSecret, config.TSIGAlgorithm)
}

// secrets returns the key table used by dns.Client and dns.Transfer.
func (t *TSIG) secrets() map[string]string {
	if t == nil {
		return nil
	}
	return map[string]string{t.Name: t.Secret}
}

// sign adds the TSIG record to a fully constructed message.
func (t *TSIG) sign(msg *dns.Msg) {
	if t == nil {
		return
	}
	msg.SetTsig(t.Name, t.Algorithm, tsigFudge, 0)
}

// normalizeAlgorithm maps user-facing names to miekg/dns format.
func normalizeAlgorithm(alg string) string {
	normalized := strings.ToLower(strings.TrimSpace(alg))

	switch normalized {
	case "":
		return DefaultTSIGAlgorithm
	case AlgNameMD5, "md5", dns.HmacMD5:
		return dns.HmacMD5
	case AlgNameSHA256, "sha256", dns.HmacSHA256:
		return dns.HmacSHA256
	case AlgNameSHA512, "sha512", dns.HmacSHA512:
		return dns.HmacSHA512
	default:
		return normalized
	}
}

func isValidAlgorithm(alg string) bool {
	switch alg {
	case dns.HmacMD5, dns.HmacSHA256, dns.HmacSHA512:
		return true
	default:
		return false
	}
}
