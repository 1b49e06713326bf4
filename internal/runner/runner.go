// Package runner drives periodic reconciliation passes.
//
// A Runner executes one pass immediately, then one pass per interval until
// its context is cancelled or Stop is called. A pass that fails or panics is
// logged and followed by a shorter error backoff instead of the interval.
// Passes already in flight are never cancelled; shutdown takes effect at the
// next loop boundary.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"gitlab.bluewillows.net/root/dnsshift/internal/metrics"
	"gitlab.bluewillows.net/root/dnsshift/internal/reconciler"
)

// Default timings.
const (
	DefaultInterval     = 300 * time.Second
	DefaultErrorBackoff = 60 * time.Second
)

// ErrAlreadyRunning is returned by Run if the runner is already running.
var ErrAlreadyRunning = errors.New("runner already running")

// ErrPassPanicked wraps a recovered panic from a pass.
var ErrPassPanicked = errors.New("reconciliation pass panicked")

// Passer performs one reconciliation pass.
type Passer interface {
	Reconcile(ctx context.Context) (*reconciler.Result, error)
}

// State is the lifecycle state of a Runner.
type State int

const (
	StateStopped State = iota
	StateRunning
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	default:
		return "stopped"
	}
}

// Config holds runner timings.
type Config struct {
	// Interval is the wait between successful passes.
	Interval time.Duration

	// ErrorBackoff is the wait after a pass that failed or panicked.
	ErrorBackoff time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval:     DefaultInterval,
		ErrorBackoff: DefaultErrorBackoff,
	}
}

// Runner repeatedly invokes a Passer.
type Runner struct {
	passer Passer
	config Config
	clock  clock.Clock
	logger *slog.Logger

	stop     chan struct{}
	stopOnce sync.Once

	mu      sync.RWMutex
	state   State
	last    *reconciler.Result
	lastErr error
}

// Option is a functional option for configuring the Runner.
type Option func(*Runner)

// WithInterval sets the wait between passes.
func WithInterval(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.config.Interval = d
		}
	}
}

// WithErrorBackoff sets the wait after a failed pass.
func WithErrorBackoff(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.config.ErrorBackoff = d
		}
	}
}

// WithClock sets the clock used for waits.
func WithClock(c clock.Clock) Option {
	return func(r *Runner) {
		if c != nil {
			r.clock = c
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates a Runner for passer.
func New(passer Passer, opts ...Option) *Runner {
	r := &Runner{
		passer: passer,
		config: DefaultConfig(),
		clock:  clock.New(),
		logger: slog.Default(),
		stop:   make(chan struct{}),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Run executes passes until ctx is cancelled or Stop is called.
// It blocks and returns nil on a clean shutdown.
func (r *Runner) Run(ctx context.Context) error {
	r.mu.Lock()
	if r.state == StateRunning {
		r.mu.Unlock()
		return ErrAlreadyRunning
	}
	r.state = StateRunning
	r.mu.Unlock()

	defer r.setState(StateStopped)

	r.logger.Info("runner started",
		slog.Duration("interval", r.config.Interval),
		slog.Duration("error_backoff", r.config.ErrorBackoff),
	)

	for r.active(ctx) {
		wait := r.config.Interval
		if err := r.runPass(ctx); err != nil {
			wait = r.config.ErrorBackoff
			r.logger.Warn("backing off after failed pass", slog.Duration("backoff", wait))
		}

		if !r.active(ctx) {
			break
		}
		if !r.wait(ctx, wait) {
			break
		}
	}

	r.logger.Info("runner stopped")
	return nil
}

// Stop requests shutdown. An in-flight pass is allowed to finish.
// Stop is safe to call more than once.
func (r *Runner) Stop() {
	r.stopOnce.Do(func() {
		close(r.stop)
	})
}

// State returns the current lifecycle state.
func (r *Runner) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// LastResult returns the result and error of the most recent pass.
// Both are nil before the first pass completes.
func (r *Runner) LastResult() (*reconciler.Result, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.last, r.lastErr
}

func (r *Runner) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

// active reports whether neither ctx nor Stop has requested shutdown.
func (r *Runner) active(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-r.stop:
		return false
	default:
		return true
	}
}

// wait blocks for d, returning false if shutdown was requested meanwhile.
func (r *Runner) wait(ctx context.Context, d time.Duration) bool {
	timer := r.clock.Timer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-r.stop:
		return false
	case <-timer.C:
		return true
	}
}

// runPass performs one pass, converting a panic into an error.
func (r *Runner) runPass(ctx context.Context) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", ErrPassPanicked, p)
		}
		if err != nil {
			metrics.PassesTotal.WithLabelValues("error").Inc()
			r.logger.Error("reconciliation pass failed", slog.String("error", err.Error()))
		}

		r.mu.Lock()
		r.lastErr = err
		r.mu.Unlock()
	}()

	result, err := r.passer.Reconcile(context.WithoutCancel(ctx))
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.last = result
	r.mu.Unlock()

	if result != nil && r.logger.Enabled(ctx, slog.LevelDebug) {
		r.logger.Debug("pass summary", slog.String("summary", result.Summary()))
	}

	if result != nil && result.HasErrors() {
		for _, u := range result.Failures() {
			r.logger.Warn("unit failed during pass",
				slog.String("name", u.Name),
				slog.String("zone", u.Zone),
				slog.String("error", u.Err().Error()),
			)
		}
	}

	return nil
}
