// Package provider contains the provider registry for creating provider instances by type.
package provider

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Factory is a function that creates a new provider instance from configuration.
type Factory func(name string, config map[string]string) (Provider, error)

// Registry manages provider type factories and active provider instances.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory  // type name -> factory function
	instances map[string]Provider // instance name -> provider
	order     []string            // instance names in creation order
	logger    *slog.Logger
}

// NewRegistry creates a new provider registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		factories: make(map[string]Factory),
		instances: make(map[string]Provider),
		order:     make([]string, 0),
		logger:    logger,
	}
}

// RegisterFactory registers a provider factory for a given type.
func (r *Registry) RegisterFactory(typeName string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[typeName] = factory
}

// Types returns the registered provider type names, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.factories))
	for t := range r.factories {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// CreateInstance creates and registers a provider instance.
func (r *Registry) CreateInstance(name, typeName string, config map[string]string) (Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.instances[name]; exists {
		return nil, fmt.Errorf("provider instance %q already exists", name)
	}

	factory, ok := r.factories[typeName]
	if !ok {
		return nil, fmt.Errorf("unknown provider type: %s", typeName)
	}

	p, err := factory(name, config)
	if err != nil {
		return nil, fmt.Errorf("creating provider %s: %w", name, err)
	}

	r.instances[name] = p
	r.order = append(r.order, name)

	r.logger.Info("registered provider",
		slog.String("name", name),
		slog.String("type", typeName),
	)

	return p, nil
}

// Get returns a provider instance by name.
func (r *Registry) Get(name string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.instances[name]
	return p, ok
}

// All returns all provider instances in creation order.
func (r *Registry) All() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	providers := make([]Provider, 0, len(r.order))
	for _, name := range r.order {
		if p, ok := r.instances[name]; ok {
			providers = append(providers, p)
		}
	}
	return providers
}

// Count returns the number of provider instances.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
