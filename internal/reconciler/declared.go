package reconciler

import (
	"context"
	"fmt"
	"log/slog"

	"gitlab.bluewillows.net/root/dnsshift/internal/schedule"
)

// ReconcileDeclared updates the records of every declared domain whose
// address is managed but not desired.
//
// Domains are independent: a failure resolving a zone, listing records or
// updating a record is recorded against that domain and the pass moves on.
// Units in the returned result follow the declared order.
func (r *Reconciler) ReconcileDeclared(ctx context.Context, desired string, managed schedule.ManagedSet) *PassResult {
	domains := r.config.Domains
	partials := make([]*PassResult, len(domains))

	r.forEach(len(domains), func(i int) {
		partials[i] = r.reconcileDomain(ctx, domains[i], desired, managed)
	})

	result := NewPassResult(PassDeclared)
	for _, p := range partials {
		result.merge(p)
	}

	return result
}

func (r *Reconciler) reconcileDomain(ctx context.Context, d Domain, desired string, managed schedule.ManagedSet) *PassResult {
	out := NewPassResult(PassDeclared)
	unit := UnitResult{Name: d.Name, Zone: d.Zone}
	defer func() { out.Units = append(out.Units, unit) }()

	logger := r.logger.With(
		slog.String("domain", d.Name),
		slog.String("zone", d.Zone),
	)

	zoneID, err := r.zones.Resolve(ctx, d.Zone)
	if err != nil {
		unit.Errors = append(unit.Errors, fmt.Errorf("resolving zone %s: %w", d.Zone, err))
		logger.Error("failed to resolve zone", slog.String("kind", errorKind(err)), slog.String("error", err.Error()))
		return out
	}

	records, err := r.provider.ListAddressRecords(ctx, zoneID, d.Name)
	if err != nil {
		unit.Errors = append(unit.Errors, fmt.Errorf("listing records for %s: %w", d.Name, err))
		logger.Error("failed to list records", slog.String("kind", errorKind(err)), slog.String("error", err.Error()))
		return out
	}

	if len(records) == 0 {
		logger.Warn("no A records found for declared domain")
		return out
	}

	logger.Debug("fetched declared records", slog.Int("count", len(records)))

	r.applyRecords(ctx, &unit, out, zoneID, records, desired, managed, nil)

	return out
}
