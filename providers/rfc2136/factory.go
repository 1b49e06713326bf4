package rfc2136

import (
	"log/slog"

	"gitlab.bluewillows.net/root/dnsshift/pkg/provider"
)

// Factory returns a provider.Factory for creating RFC 2136 provider instances.
func Factory(opts ...ProviderOption) provider.Factory {
	return func(name string, settings map[string]string) (provider.Provider, error) {
		cfg, err := LoadConfigFromMap(name, settings)
		if err != nil {
			return nil, err
		}

		p, err := New(name, cfg, opts...)
		if err != nil {
			return nil, err
		}

		p.logger.Info("RFC 2136 provider created",
			slog.String("name", name),
			slog.String("server", p.client.Server()),
			slog.Bool("tsig", cfg.TSIGKeyName != ""),
			slog.Bool("tcp", cfg.UseTCP),
		)

		return p, nil
	}
}
