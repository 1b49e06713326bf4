package reconciler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestZoneCache_Resolve(t *testing.T) {
	var calls atomic.Int32
	cache := NewZoneCache(func(_ context.Context, zone string) (string, error) {
		calls.Add(1)
		return "id-" + zone, nil
	}, testLogger())

	ctx := context.Background()
	for _, zone := range []string{"example.com", "Example.COM.", "example.com"} {
		id, err := cache.Resolve(ctx, zone)
		if err != nil {
			t.Fatalf("Resolve(%q) error = %v", zone, err)
		}
		if id != "id-example.com" {
			t.Errorf("Resolve(%q) = %q", zone, id)
		}
	}

	if calls.Load() != 1 {
		t.Errorf("resolver calls = %d, want 1", calls.Load())
	}
	if cache.Len() != 1 {
		t.Errorf("Len() = %d, want 1", cache.Len())
	}
	if id, ok := cache.Lookup("example.com"); !ok || id != "id-example.com" {
		t.Errorf("Lookup() = %q, %v", id, ok)
	}
}

func TestZoneCache_ErrorsNotCached(t *testing.T) {
	var calls atomic.Int32
	fail := true
	cache := NewZoneCache(func(_ context.Context, zone string) (string, error) {
		calls.Add(1)
		if fail {
			return "", errors.New("unavailable")
		}
		return "zone-1", nil
	}, nil)

	if _, err := cache.Resolve(context.Background(), "example.com"); err == nil {
		t.Fatal("expected error")
	}
	if cache.Len() != 0 {
		t.Error("failed lookup must not be cached")
	}

	fail = false
	id, err := cache.Resolve(context.Background(), "example.com")
	if err != nil || id != "zone-1" {
		t.Fatalf("Resolve() = %q, %v", id, err)
	}
	if calls.Load() != 2 {
		t.Errorf("resolver calls = %d, want 2", calls.Load())
	}
}

func TestZoneCache_ConcurrentLookupsShareCall(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	cache := NewZoneCache(func(_ context.Context, _ string) (string, error) {
		calls.Add(1)
		<-release
		return "zone-1", nil
	}, testLogger())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if id, err := cache.Resolve(context.Background(), "example.com"); err != nil || id != "zone-1" {
				t.Errorf("Resolve() = %q, %v", id, err)
			}
		}()
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls.Load() != 1 {
		t.Errorf("resolver calls = %d, want 1", calls.Load())
	}
}
