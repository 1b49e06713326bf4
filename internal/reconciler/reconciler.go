package reconciler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/benbjohnson/clock"
	"golang.org/x/sync/errgroup"

	"gitlab.bluewillows.net/root/dnsshift/internal/metrics"
	"gitlab.bluewillows.net/root/dnsshift/internal/schedule"
	"gitlab.bluewillows.net/root/dnsshift/pkg/provider"
)

// DefaultTTL is the TTL written on every update.
const DefaultTTL = 300

// Domain is a declared domain and the zone that owns it.
type Domain struct {
	Name string
	Zone string
}

// Config holds reconciler configuration options.
type Config struct {
	// Policy decides the desired address.
	Policy schedule.Policy

	// Domains are the declared domains, reconciled in order.
	Domains []Domain

	// AutoDiscovery enables the zone-wide scan for undeclared records
	// pointing at a managed address.
	AutoDiscovery bool

	// DryRun if true, logs changes without applying them.
	DryRun bool

	// TTL is written on every updated record.
	TTL int

	// Workers bounds how many domains (declared pass) or zones (discovery
	// pass) are processed at once. Values below 2 mean sequential.
	Workers int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		AutoDiscovery: true,
		TTL:           DefaultTTL,
		Workers:       1,
	}
}

// Reconciler brings DNS address records in line with the day/night policy.
//
// Each pass:
//  1. Evaluates the schedule once to get the desired address
//  2. Updates declared domains whose records hold the other managed address
//  3. Optionally scans each declared zone for undeclared records holding a
//     managed address and updates those too
//
// Records whose address is not managed are never modified, and records
// already at the desired address are never re-submitted.
type Reconciler struct {
	provider provider.Provider
	zones    *ZoneCache
	config   Config
	clock    clock.Clock
	logger   *slog.Logger

	// locksMu guards zoneLocks. Updates within one zone are serialized.
	locksMu   sync.Mutex
	zoneLocks map[string]*sync.Mutex
}

// Option is a functional option for configuring the Reconciler.
type Option func(*Reconciler)

// WithLogger sets a custom logger for the reconciler.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reconciler) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithConfig sets the reconciler configuration.
func WithConfig(cfg Config) Option {
	return func(r *Reconciler) {
		r.config = cfg
	}
}

// WithClock sets the clock used to evaluate the schedule.
func WithClock(c clock.Clock) Option {
	return func(r *Reconciler) {
		if c != nil {
			r.clock = c
		}
	}
}

// WithZoneCache shares an existing zone cache.
func WithZoneCache(cache *ZoneCache) Option {
	return func(r *Reconciler) {
		r.zones = cache
	}
}

// New creates a new Reconciler that applies changes through p.
func New(p provider.Provider, opts ...Option) *Reconciler {
	r := &Reconciler{
		provider:  p,
		config:    DefaultConfig(),
		clock:     clock.New(),
		logger:    slog.Default(),
		zoneLocks: make(map[string]*sync.Mutex),
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.config.TTL <= 0 {
		r.config.TTL = DefaultTTL
	}
	if r.zones == nil {
		r.zones = NewZoneCache(p.ZoneID, r.logger)
	}

	return r
}

// Reconcile performs one full pass: declared domains, then discovery.
//
// Failures of individual domains, zones or records are reported in the
// Result and never abort the pass. An error is returned only if the pass
// could not start.
func (r *Reconciler) Reconcile(ctx context.Context) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("reconciliation not started: %w", err)
	}

	now := r.clock.Now()
	desired := r.config.Policy.Desired(now)
	managed := r.config.Policy.Managed()

	r.logger.Info("starting reconciliation",
		slog.String("desired", desired),
		slog.Any("managed", managed.Addresses()),
		slog.Bool("auto_discovery", r.config.AutoDiscovery),
		slog.Bool("dry_run", r.config.DryRun),
	)

	result := NewResult(desired, r.config.DryRun, now)
	result.Declared = r.ReconcileDeclared(ctx, desired, managed)
	result.Discovery = r.ReconcileDiscovered(ctx, desired, managed)
	result.Complete(r.clock.Now())

	r.recordMetrics(result, managed)

	r.logger.Info("reconciliation complete",
		slog.String("desired", desired),
		slog.Int("updated", result.UpdatedCount()),
		slog.Int("declared_updated", result.Declared.UpdatedCount()),
		slog.Int("discovered_updated", result.Discovery.UpdatedCount()),
		slog.Bool("discovery_skipped", result.DiscoverySkipped()),
		slog.Int("skipped", result.SkippedCount()),
		slog.Int("failed", result.FailedCount()),
		slog.Duration("duration", result.Duration()),
	)

	if next := r.config.Policy.NextTransition(now); !next.IsZero() {
		r.logger.Debug("next schedule transition",
			slog.Time("at", next),
			slog.String("address", r.config.Policy.Desired(next)),
		)
	}

	return result, nil
}

// Config returns the current reconciler configuration.
func (r *Reconciler) Config() Config {
	return r.config
}

// Zones returns the zone id cache.
func (r *Reconciler) Zones() *ZoneCache {
	return r.zones
}

// applyRecords decides and applies changes for records of one unit of work.
// skip, if non-nil, is consulted before the managed-address rules.
func (r *Reconciler) applyRecords(
	ctx context.Context,
	unit *UnitResult,
	out *PassResult,
	zoneID string,
	records []provider.Record,
	desired string,
	managed schedule.ManagedSet,
	skip func(provider.Record) string,
) {
	lock := r.zoneLock(unit.Zone)
	lock.Lock()
	defer lock.Unlock()

	for _, rec := range records {
		reason := ""
		if skip != nil {
			reason = skip(rec)
		}
		if reason == "" {
			reason = skipReason(rec, desired, managed)
		}

		if reason != "" {
			unit.Skipped++
			out.Actions = append(out.Actions, Action{
				Type:     ActionSkip,
				Status:   StatusSkipped,
				Pass:     out.Pass,
				Zone:     unit.Zone,
				Hostname: rec.Hostname,
				RecordID: rec.ID,
				From:     rec.Target,
				Target:   desired,
				Reason:   reason,
			})
			continue
		}

		action, err := r.update(ctx, out.Pass, unit.Zone, zoneID, rec, desired)
		if err != nil {
			unit.Errors = append(unit.Errors, fmt.Errorf("updating %s (%s): %w", rec.Hostname, rec.ID, err))
		} else {
			unit.Updated++
		}
		out.Actions = append(out.Actions, action)
	}
}

// skipReason returns why a record must be left alone, or "" if it needs
// updating to desired.
func skipReason(rec provider.Record, desired string, managed schedule.ManagedSet) string {
	switch {
	case rec.Type != "" && rec.Type != provider.RecordTypeA:
		return ReasonNotAddress
	case !managed.Contains(rec.Target):
		return ReasonUnmanaged
	case schedule.SameAddress(rec.Target, desired):
		return ReasonInSync
	default:
		return ""
	}
}

// errorKind classifies a provider error for logging.
func errorKind(err error) string {
	switch {
	case provider.IsUnauthorized(err):
		return "unauthorized"
	case provider.IsRateLimited(err):
		return "rate_limited"
	case provider.IsProviderUnavailable(err):
		return "unavailable"
	case provider.IsZoneNotFound(err):
		return "zone_not_found"
	case provider.IsNotFound(err):
		return "not_found"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "other"
	}
}

// update rewrites one record to desired.
func (r *Reconciler) update(ctx context.Context, pass Pass, zone, zoneID string, rec provider.Record, desired string) (Action, error) {
	action := Action{
		Type:     ActionUpdate,
		Pass:     pass,
		Zone:     zone,
		Hostname: rec.Hostname,
		RecordID: rec.ID,
		From:     rec.Target,
		Target:   desired,
		DryRun:   r.config.DryRun,
	}

	if r.config.DryRun {
		action.Status = StatusSuccess
		r.logger.Info("would update record (dry-run)",
			slog.String("pass", string(pass)),
			slog.String("hostname", rec.Hostname),
			slog.String("zone", zone),
			slog.String("from", rec.Target),
			slog.String("to", desired),
		)
		return action, nil
	}

	updated := rec
	updated.Type = provider.RecordTypeA
	updated.Target = desired
	updated.TTL = r.config.TTL

	if err := r.provider.UpdateRecord(ctx, zoneID, updated); err != nil {
		action.Status = StatusFailed
		action.Error = err.Error()
		r.logger.Error("failed to update record",
			slog.String("pass", string(pass)),
			slog.String("hostname", rec.Hostname),
			slog.String("zone", zone),
			slog.String("from", rec.Target),
			slog.String("to", desired),
			slog.String("kind", errorKind(err)),
			slog.String("error", err.Error()),
		)
		return action, err
	}

	action.Status = StatusSuccess
	r.logger.Info("updated record",
		slog.String("pass", string(pass)),
		slog.String("hostname", rec.Hostname),
		slog.String("zone", zone),
		slog.String("from", rec.Target),
		slog.String("to", desired),
	)
	return action, nil
}

// forEach runs fn for 0..n-1, sequentially or with up to Workers goroutines.
func (r *Reconciler) forEach(n int, fn func(i int)) {
	if r.config.Workers < 2 || n < 2 {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}

	var g errgroup.Group
	g.SetLimit(r.config.Workers)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			fn(i)
			return nil
		})
	}
	_ = g.Wait()
}

func (r *Reconciler) zoneLock(zone string) *sync.Mutex {
	key := provider.NormalizeHostname(zone)

	r.locksMu.Lock()
	defer r.locksMu.Unlock()

	lock, ok := r.zoneLocks[key]
	if !ok {
		lock = &sync.Mutex{}
		r.zoneLocks[key] = lock
	}
	return lock
}

// recordMetrics records Prometheus metrics from a reconciliation result.
func (r *Reconciler) recordMetrics(result *Result, managed schedule.ManagedSet) {
	status := "success"
	if result.HasErrors() {
		status = "partial"
	}
	metrics.PassesTotal.WithLabelValues(status).Inc()
	metrics.PassDuration.Observe(result.Duration().Seconds())
	metrics.LastPassTimestamp.Set(float64(result.EndTime.Unix()))
	metrics.SetDesiredAddress(result.Desired, managed.Addresses())

	for _, pass := range result.Passes() {
		label := string(pass.Pass)
		if n := pass.UpdatedCount(); n > 0 {
			metrics.RecordsUpdatedTotal.WithLabelValues(label).Add(float64(n))
		}
		if n := pass.FailedCount(); n > 0 {
			metrics.FailuresTotal.WithLabelValues(label).Add(float64(n))
		}
		for _, a := range pass.SkippedActions() {
			metrics.RecordsSkippedTotal.WithLabelValues(label, a.Reason).Inc()
		}
	}
}
