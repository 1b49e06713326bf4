package reconciler

import (
	"context"
	"fmt"
	"log/slog"

	"gitlab.bluewillows.net/root/dnsshift/internal/schedule"
	"gitlab.bluewillows.net/root/dnsshift/pkg/provider"
)

// ReconcileDiscovered scans every zone referenced by the declared domains
// and updates undeclared records whose address is managed but not desired.
//
// Records named like a declared domain are excluded, since the declared pass
// owns them. Each zone is scanned once. A failure is isolated to its zone.
// When auto discovery is disabled the result is marked Skipped.
func (r *Reconciler) ReconcileDiscovered(ctx context.Context, desired string, managed schedule.ManagedSet) *PassResult {
	if !r.config.AutoDiscovery {
		r.logger.Info("auto discovery disabled, only declared domains are reconciled")
		result := NewPassResult(PassDiscovery)
		result.Skipped = true
		return result
	}

	zones := uniqueZones(r.config.Domains)
	declared := declaredNames(r.config.Domains)

	r.logger.Info("starting discovery scan", slog.Int("zones", len(zones)))

	partials := make([]*PassResult, len(zones))
	r.forEach(len(zones), func(i int) {
		partials[i] = r.discoverZone(ctx, zones[i], declared, desired, managed)
	})

	result := NewPassResult(PassDiscovery)
	for _, p := range partials {
		result.merge(p)
	}

	return result
}

func (r *Reconciler) discoverZone(
	ctx context.Context,
	zone string,
	declared map[string]struct{},
	desired string,
	managed schedule.ManagedSet,
) *PassResult {
	out := NewPassResult(PassDiscovery)
	unit := UnitResult{Name: zone, Zone: zone}
	defer func() { out.Units = append(out.Units, unit) }()

	logger := r.logger.With(slog.String("zone", zone))

	zoneID, err := r.zones.Resolve(ctx, zone)
	if err != nil {
		unit.Errors = append(unit.Errors, fmt.Errorf("resolving zone %s: %w", zone, err))
		logger.Error("failed to resolve zone for discovery", slog.String("kind", errorKind(err)), slog.String("error", err.Error()))
		return out
	}

	records, err := r.provider.ListAddressRecords(ctx, zoneID, "")
	if err != nil {
		unit.Errors = append(unit.Errors, fmt.Errorf("listing zone %s: %w", zone, err))
		logger.Error("failed to scan zone", slog.String("kind", errorKind(err)), slog.String("error", err.Error()))
		return out
	}

	logger.Debug("scanned zone", slog.Int("records", len(records)))

	isDeclared := func(rec provider.Record) string {
		if _, ok := declared[provider.NormalizeHostname(rec.Hostname)]; ok {
			return ReasonDeclared
		}
		return ""
	}

	r.applyRecords(ctx, &unit, out, zoneID, records, desired, managed, isDeclared)

	return out
}

// uniqueZones returns the distinct zones of domains in first-seen order.
func uniqueZones(domains []Domain) []string {
	seen := make(map[string]struct{}, len(domains))
	zones := make([]string, 0, len(domains))
	for _, d := range domains {
		key := provider.NormalizeHostname(d.Zone)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		zones = append(zones, d.Zone)
	}
	return zones
}

// declaredNames returns the normalized names of all declared domains.
func declaredNames(domains []Domain) map[string]struct{} {
	names := make(map[string]struct{}, len(domains))
	for _, d := range domains {
		names[provider.NormalizeHostname(d.Name)] = struct{}{}
	}
	return names
}
