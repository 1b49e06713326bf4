package technitium

import (
	"gitlab.bluewillows.net/root/dnsshift/pkg/provider"
)

// Factory returns a provider.Factory function for use with the provider registry.
func Factory(opts ...ProviderOption) provider.Factory {
	return func(name string, settings map[string]string) (provider.Provider, error) {
		cfg, err := LoadConfigFromMap(name, settings)
		if err != nil {
			return nil, err
		}
		return New(name, cfg, opts...)
	}
}
