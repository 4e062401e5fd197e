package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/ghalamif/vesagent/internal/domain"
	"github.com/ghalamif/vesagent/internal/ports"
	"github.com/ghalamif/vesagent/internal/ves"
)

type mockObs struct {
	mu       sync.Mutex
	warns    []string
	errors   []error
	counters map[string]float64
}

func (m *mockObs) LogDebug(string, ...ports.Field) {}
func (m *mockObs) LogInfo(string, ...ports.Field)  {}

func (m *mockObs) LogWarn(msg string, _ ...ports.Field) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.warns = append(m.warns, msg)
}

func (m *mockObs) LogError(_ string, err error, _ ...ports.Field) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, err)
}

func (m *mockObs) IncCounter(name string, v float64, labels ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counters == nil {
		m.counters = make(map[string]float64)
	}
	key := name
	if len(labels) > 0 {
		key += "{" + strings.Join(labels, ",") + "}"
	}
	m.counters[key] += v
}

func (m *mockObs) ObserveLatency(string, float64) {}
func (m *mockObs) SetGauge(string, float64)       {}

func (m *mockObs) counter(key string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[key]
}

type mockSink struct {
	errs []error
	sent []ves.Event
}

func (m *mockSink) Name() string { return "mock" }

func (m *mockSink) Send(_ context.Context, e ves.Event) error {
	idx := len(m.sent)
	m.sent = append(m.sent, e)
	if idx < len(m.errs) {
		return m.errs[idx]
	}
	return nil
}

type mockArchive struct {
	err     error
	batches [][]ves.Event
}

func (m *mockArchive) Name() string { return "mock-archive" }

func (m *mockArchive) WriteBatch(events []ves.Event) error {
	m.batches = append(m.batches, events)
	return m.err
}

type mockCollector struct {
	startErr error
	stopErr  error
	started  bool
	stopped  bool
}

func (m *mockCollector) Start(ports.Ingestor) error {
	if m.startErr != nil {
		return m.startErr
	}
	m.started = true
	return nil
}

func (m *mockCollector) Stop() error {
	m.stopped = true
	return m.stopErr
}

var errBoom = errors.New("boom")

func at(sec float64) time.Time {
	return time.Unix(0, 0).Add(time.Duration(sec * float64(time.Second)))
}

func sample(plugin, instance, typ, typeInstance string, sec float64, values ...float64) *domain.ValueList {
	return &domain.ValueList{
		Host:           "host-a",
		Plugin:         plugin,
		PluginInstance: instance,
		Type:           typ,
		TypeInstance:   typeInstance,
		Values:         values,
		Time:           at(sec),
		Interval:       10 * time.Second,
	}
}

func counterFrom(start uint64) func() uint64 {
	n := start - 1
	return func() uint64 {
		n++
		return n
	}
}
