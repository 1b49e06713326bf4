package reconciler

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"gitlab.bluewillows.net/root/dnsshift/pkg/provider"
)

// ZoneResolver looks up a provider zone identifier by zone name.
type ZoneResolver func(ctx context.Context, zone string) (string, error)

// ZoneCache maps zone names to provider zone identifiers for the lifetime of
// the process. Entries are added on first successful lookup and never
// evicted. Concurrent lookups of the same uncached zone share one remote call.
// Failed lookups are not cached, so the next pass retries them.
type ZoneCache struct {
	resolve ZoneResolver
	logger  *slog.Logger

	mu    sync.RWMutex
	ids   map[string]string
	group singleflight.Group
}

// NewZoneCache creates a cache backed by resolve.
func NewZoneCache(resolve ZoneResolver, logger *slog.Logger) *ZoneCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &ZoneCache{
		resolve: resolve,
		logger:  logger,
		ids:     make(map[string]string),
	}
}

// Resolve returns the zone id for zone, performing the remote lookup only if
// the zone has not been resolved before.
func (c *ZoneCache) Resolve(ctx context.Context, zone string) (string, error) {
	key := provider.NormalizeHostname(zone)

	if id, ok := c.Lookup(key); ok {
		return id, nil
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		if id, ok := c.Lookup(key); ok {
			return id, nil
		}

		id, err := c.resolve(ctx, zone)
		if err != nil {
			return "", err
		}

		c.mu.Lock()
		c.ids[key] = id
		c.mu.Unlock()

		c.logger.Debug("cached zone id",
			slog.String("zone", key),
			slog.String("zone_id", id),
		)
		return id, nil
	})
	if err != nil {
		return "", err
	}

	return v.(string), nil
}

// Lookup returns a cached zone id without calling the provider.
func (c *ZoneCache) Lookup(zone string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.ids[provider.NormalizeHostname(zone)]
	return id, ok
}

// Len returns the number of cached zones.
func (c *ZoneCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.ids)
}
