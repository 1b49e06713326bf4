package runner

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"gitlab.bluewillows.net/root/dnsshift/internal/reconciler"
)

// mockPasser implements Passer for testing.
type mockPasser struct {
	calls  atomic.Int32
	passed chan struct{}
	fn     func(ctx context.Context, call int) (*reconciler.Result, error)
}

func newMockPasser(fn func(ctx context.Context, call int) (*reconciler.Result, error)) *mockPasser {
	return &mockPasser{passed: make(chan struct{}, 100), fn: fn}
}

func (m *mockPasser) Reconcile(ctx context.Context) (*reconciler.Result, error) {
	n := int(m.calls.Add(1))
	defer func() { m.passed <- struct{}{} }()
	if m.fn != nil {
		return m.fn(ctx, n)
	}
	return reconciler.NewResult("1.1.1.1", false, time.Now()), nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitPass(t *testing.T, m *mockPasser) {
	t.Helper()
	select {
	case <-m.passed:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for pass")
	}
}

func runAsync(r *Runner, ctx context.Context) <-chan error {
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()
	return done
}

func waitDone(t *testing.T, done <-chan error) {
	t.Helper()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
}

func TestState_String(t *testing.T) {
	if StateRunning.String() != "running" || StateStopped.String() != "stopped" {
		t.Error("unexpected state names")
	}
}

func TestNew_Defaults(t *testing.T) {
	r := New(newMockPasser(nil), WithInterval(0), WithErrorBackoff(-1))

	if r.config.Interval != DefaultInterval {
		t.Errorf("Interval = %v, want %v", r.config.Interval, DefaultInterval)
	}
	if r.config.ErrorBackoff != DefaultErrorBackoff {
		t.Errorf("ErrorBackoff = %v, want %v", r.config.ErrorBackoff, DefaultErrorBackoff)
	}
	if r.State() != StateStopped {
		t.Error("new runner should be stopped")
	}
}

func TestRun_StartupPassThenStop(t *testing.T) {
	passer := newMockPasser(nil)
	r := New(passer, WithClock(clock.NewMock()), WithLogger(testLogger()))

	done := runAsync(r, context.Background())
	waitPass(t, passer)

	if r.State() != StateRunning {
		t.Error("runner should be running")
	}

	r.Stop()
	waitDone(t, done)

	if got := passer.calls.Load(); got != 1 {
		t.Errorf("passes = %d, want 1", got)
	}
	if r.State() != StateStopped {
		t.Error("runner should be stopped")
	}
	if res, err := r.LastResult(); res == nil || err != nil {
		t.Errorf("LastResult() = %v, %v", res, err)
	}

	r.Stop()
}

func TestRun_LogsSummaryAtDebug(t *testing.T) {
	var mu sync.Mutex
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&lockedWriter{mu: &mu, w: &buf}, &slog.HandlerOptions{Level: slog.LevelDebug}))

	passer := newMockPasser(nil)
	r := New(passer, WithClock(clock.NewMock()), WithLogger(logger))

	done := runAsync(r, context.Background())
	waitPass(t, passer)
	r.Stop()
	waitDone(t, done)

	mu.Lock()
	out := buf.String()
	mu.Unlock()
	if !strings.Contains(out, "pass summary") || !strings.Contains(out, "Desired address: 1.1.1.1") {
		t.Errorf("debug log should carry the pass summary:\n%s", out)
	}
}

type lockedWriter struct {
	mu *sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

func TestRun_IntervalWithMockClock(t *testing.T) {
	mock := clock.NewMock()
	passer := newMockPasser(nil)
	r := New(passer, WithClock(mock), WithInterval(time.Minute), WithLogger(testLogger()))

	done := runAsync(r, context.Background())
	waitPass(t, passer)

	// Let the runner arm its timer before advancing.
	time.Sleep(20 * time.Millisecond)
	mock.Add(30 * time.Second)
	if got := passer.calls.Load(); got != 1 {
		t.Fatalf("pass ran before interval elapsed: %d", got)
	}

	mock.Add(30 * time.Second)
	waitPass(t, passer)

	r.Stop()
	waitDone(t, done)

	if got := passer.calls.Load(); got != 2 {
		t.Errorf("passes = %d, want 2", got)
	}
}

func TestRun_ContextCancelIsPrompt(t *testing.T) {
	passer := newMockPasser(nil)
	r := New(passer, WithInterval(time.Hour), WithLogger(testLogger()))

	ctx, cancel := context.WithCancel(context.Background())
	done := runAsync(r, ctx)
	waitPass(t, passer)

	start := time.Now()
	cancel()
	waitDone(t, done)

	if time.Since(start) > time.Second {
		t.Error("shutdown should interrupt the interval wait")
	}
}

func TestRun_InFlightPassNotCancelled(t *testing.T) {
	release := make(chan struct{})
	var passErr error
	var mu sync.Mutex

	passer := newMockPasser(func(ctx context.Context, _ int) (*reconciler.Result, error) {
		<-release
		mu.Lock()
		passErr = ctx.Err()
		mu.Unlock()
		return reconciler.NewResult("1.1.1.1", false, time.Now()), nil
	})
	r := New(passer, WithInterval(time.Hour), WithLogger(testLogger()))

	ctx, cancel := context.WithCancel(context.Background())
	done := runAsync(r, ctx)

	time.Sleep(20 * time.Millisecond)
	cancel()
	close(release)

	waitPass(t, passer)
	waitDone(t, done)

	mu.Lock()
	defer mu.Unlock()
	if passErr != nil {
		t.Errorf("pass context was cancelled: %v", passErr)
	}
	if got := passer.calls.Load(); got != 1 {
		t.Errorf("passes = %d, want 1", got)
	}
}

func TestRun_BackoffAfterError(t *testing.T) {
	boom := errors.New("boom")
	passer := newMockPasser(func(_ context.Context, _ int) (*reconciler.Result, error) {
		return nil, boom
	})
	r := New(passer,
		WithInterval(time.Hour),
		WithErrorBackoff(5*time.Millisecond),
		WithLogger(testLogger()),
	)

	done := runAsync(r, context.Background())
	for i := 0; i < 3; i++ {
		waitPass(t, passer)
	}
	r.Stop()
	waitDone(t, done)

	if _, err := r.LastResult(); !errors.Is(err, boom) {
		t.Errorf("LastResult() error = %v, want %v", err, boom)
	}
}

func TestRun_RecoversPanic(t *testing.T) {
	passer := newMockPasser(func(_ context.Context, call int) (*reconciler.Result, error) {
		if call == 1 {
			panic("unexpected")
		}
		return reconciler.NewResult("2.2.2.2", false, time.Now()), nil
	})
	r := New(passer,
		WithInterval(time.Hour),
		WithErrorBackoff(5*time.Millisecond),
		WithLogger(testLogger()),
	)

	done := runAsync(r, context.Background())
	waitPass(t, passer)
	waitPass(t, passer)
	r.Stop()
	waitDone(t, done)

	res, err := r.LastResult()
	if err != nil {
		t.Errorf("LastResult() error = %v, want nil after recovery", err)
	}
	if res == nil || res.Desired != "2.2.2.2" {
		t.Errorf("LastResult() = %+v", res)
	}
}

func TestRun_AlreadyRunning(t *testing.T) {
	passer := newMockPasser(nil)
	r := New(passer, WithClock(clock.NewMock()), WithLogger(testLogger()))

	done := runAsync(r, context.Background())
	waitPass(t, passer)

	if err := r.Run(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Run() error = %v, want ErrAlreadyRunning", err)
	}

	r.Stop()
	waitDone(t, done)
}
