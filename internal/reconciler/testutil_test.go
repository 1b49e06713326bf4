package reconciler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"

	"gitlab.bluewillows.net/root/dnsshift/internal/schedule"
	"gitlab.bluewillows.net/root/dnsshift/pkg/provider"
)

const (
	testDayIP   = "1.1.1.1"
	testNightIP = "2.2.2.2"
)

// testMockProvider implements provider.Provider for testing.
// Records are kept per zone id; every call is tracked for verification.
type testMockProvider struct {
	mu sync.Mutex

	zones   map[string]string            // zone name -> zone id
	records map[string][]provider.Record // zone id -> records
	updated []provider.Record

	zoneErr   map[string]error // by zone name
	listErr   map[string]error // by zone id + "/" + name
	updateErr map[string]error // by record id

	zoneCalls atomic.Int32
	listCalls atomic.Int32
	nextID    int
}

func newTestMockProvider() *testMockProvider {
	return &testMockProvider{
		zones:     make(map[string]string),
		records:   make(map[string][]provider.Record),
		zoneErr:   make(map[string]error),
		listErr:   make(map[string]error),
		updateErr: make(map[string]error),
	}
}

func (m *testMockProvider) Name() string { return "mock" }
func (m *testMockProvider) Type() string { return "mock" }

func (m *testMockProvider) Ping(_ context.Context) error { return nil }

func (m *testMockProvider) ZoneID(_ context.Context, zone string) (string, error) {
	m.zoneCalls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.zoneErr[zone]; err != nil {
		return "", err
	}
	id, ok := m.zones[zone]
	if !ok {
		return "", fmt.Errorf("%w: %s", provider.ErrZoneNotFound, zone)
	}
	return id, nil
}

func (m *testMockProvider) ListAddressRecords(_ context.Context, zoneID, name string) ([]provider.Record, error) {
	m.listCalls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.listErr[zoneID+"/"+name]; err != nil {
		return nil, err
	}

	var out []provider.Record
	for _, r := range m.records[zoneID] {
		if name == "" || provider.SameHostname(r.Hostname, name) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *testMockProvider) UpdateRecord(_ context.Context, zoneID string, record provider.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.updateErr[record.ID]; err != nil {
		return err
	}

	recs := m.records[zoneID]
	for i := range recs {
		if recs[i].ID == record.ID {
			recs[i] = record
			m.updated = append(m.updated, record)
			return nil
		}
	}
	return provider.ErrNotFound
}

// AddZone registers a zone and returns its id.
func (m *testMockProvider) AddZone(zone string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := "zone-" + zone
	m.zones[zone] = id
	return id
}

// AddRecord adds a record to a previously added zone and returns its id.
func (m *testMockProvider) AddRecord(zone, hostname, recordType, target string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	id := fmt.Sprintf("rec-%d", m.nextID)
	zoneID := m.zones[zone]
	m.records[zoneID] = append(m.records[zoneID], provider.Record{
		ID:       id,
		Hostname: hostname,
		Type:     provider.RecordType(recordType),
		Target:   target,
		TTL:      3600,
	})
	return id
}

// Target returns the current address of a record.
func (m *testMockProvider) Target(id string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, recs := range m.records {
		for _, r := range recs {
			if r.ID == id {
				return r.Target
			}
		}
	}
	return ""
}

// Updated returns all records passed to a successful UpdateRecord.
func (m *testMockProvider) Updated() []provider.Record {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]provider.Record, len(m.updated))
	copy(out, m.updated)
	return out
}

func (m *testMockProvider) SetZoneError(zone string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.zoneErr[zone] = err
}

func (m *testMockProvider) SetListError(zone, name string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listErr["zone-"+zone+"/"+name] = err
}

func (m *testMockProvider) SetUpdateError(id string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateErr[id] = err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testPolicy() schedule.Policy {
	return schedule.Policy{
		DayStartHour: 8,
		DayEndHour:   20,
		DayIP:        testDayIP,
		NightIP:      testNightIP,
		Location:     time.UTC,
	}
}

// clockAt returns a mock clock set to the given UTC hour.
func clockAt(hour int) *clock.Mock {
	mock := clock.NewMock()
	mock.Set(time.Date(2024, 6, 1, hour, 30, 0, 0, time.UTC))
	return mock
}

func newTestReconciler(p provider.Provider, hour int, mutate func(*Config)) *Reconciler {
	cfg := DefaultConfig()
	cfg.Policy = testPolicy()
	if mutate != nil {
		mutate(&cfg)
	}
	return New(p,
		WithConfig(cfg),
		WithClock(clockAt(hour)),
		WithLogger(testLogger()),
	)
}
