package provider

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
)

// mockProvider implements Provider for testing.
type mockProvider struct {
	name     string
	typeName string
	pingErr  error
	records  []Record
}

func (m *mockProvider) Name() string                   { return m.name }
func (m *mockProvider) Type() string                   { return m.typeName }
func (m *mockProvider) Ping(ctx context.Context) error { return m.pingErr }
func (m *mockProvider) ZoneID(ctx context.Context, zone string) (string, error) {
	return "id-" + zone, nil
}
func (m *mockProvider) ListAddressRecords(ctx context.Context, zoneID, name string) ([]Record, error) {
	return m.records, nil
}
func (m *mockProvider) UpdateRecord(ctx context.Context, zoneID string, r Record) error { return nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestRegistry_RegisterFactory(t *testing.T) {
	r := NewRegistry(testLogger())

	var gotConfig map[string]string
	r.RegisterFactory("test", func(name string, config map[string]string) (Provider, error) {
		gotConfig = config
		return &mockProvider{name: name, typeName: "test"}, nil
	})

	p, err := r.CreateInstance("public-dns", "test", map[string]string{"TOKEN": "abc"})
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}

	if p.Name() != "public-dns" {
		t.Errorf("expected name public-dns, got %s", p.Name())
	}
	if gotConfig["TOKEN"] != "abc" {
		t.Errorf("expected factory to receive config, got %v", gotConfig)
	}
	if r.Count() != 1 {
		t.Errorf("expected 1 instance, got %d", r.Count())
	}
}

func TestRegistry_CreateInstance_UnknownType(t *testing.T) {
	r := NewRegistry(testLogger())

	_, err := r.CreateInstance("test", "unknown", nil)
	if err == nil {
		t.Error("expected error for unknown type")
	}
}

func TestRegistry_CreateInstance_FactoryError(t *testing.T) {
	r := NewRegistry(testLogger())
	factoryErr := errors.New("token is required")
	r.RegisterFactory("test", func(name string, config map[string]string) (Provider, error) {
		return nil, factoryErr
	})

	_, err := r.CreateInstance("test", "test", nil)
	if !errors.Is(err, factoryErr) {
		t.Errorf("expected wrapped factory error, got %v", err)
	}
	if r.Count() != 0 {
		t.Errorf("expected no instances after failure, got %d", r.Count())
	}
}

func TestRegistry_CreateInstance_Duplicate(t *testing.T) {
	r := NewRegistry(testLogger())
	r.RegisterFactory("test", func(name string, config map[string]string) (Provider, error) {
		return &mockProvider{name: name, typeName: "test"}, nil
	})

	if _, err := r.CreateInstance("dns", "test", nil); err != nil {
		t.Fatalf("first CreateInstance failed: %v", err)
	}
	if _, err := r.CreateInstance("dns", "test", nil); err == nil {
		t.Error("expected error for duplicate instance name")
	}
}

func TestRegistry_AllAndGet(t *testing.T) {
	r := NewRegistry(testLogger())
	r.RegisterFactory("test", func(name string, config map[string]string) (Provider, error) {
		return &mockProvider{name: name, typeName: "test"}, nil
	})

	for _, name := range []string{"b", "a", "c"} {
		if _, err := r.CreateInstance(name, "test", nil); err != nil {
			t.Fatalf("CreateInstance(%s) failed: %v", name, err)
		}
	}

	all := r.All()
	want := []string{"b", "a", "c"}
	for i, p := range all {
		if p.Name() != want[i] {
			t.Errorf("All()[%d] = %s, want %s", i, p.Name(), want[i])
		}
	}

	if _, ok := r.Get("a"); !ok {
		t.Error("expected Get(a) to succeed")
	}
	if _, ok := r.Get("missing"); ok {
		t.Error("expected Get(missing) to fail")
	}
}

func TestRegistry_Types(t *testing.T) {
	r := NewRegistry(testLogger())
	noop := func(name string, config map[string]string) (Provider, error) { return nil, nil }
	r.RegisterFactory("rfc2136", noop)
	r.RegisterFactory("cloudflare", noop)

	types := r.Types()
	if len(types) != 2 || types[0] != "cloudflare" || types[1] != "rfc2136" {
		t.Errorf("unexpected types: %v", types)
	}
}
