package vesagent

import (
	"context"
	"sync"
	"time"
)

type stubCollector struct {
	samples  []*ValueList
	startErr error
	started  bool
	stopped  bool
}

func (s *stubCollector) Start(ing Ingestor) error {
	if s.startErr != nil {
		return s.startErr
	}
	s.started = true
	for _, vl := range s.samples {
		ing.OnSample(vl)
	}
	return nil
}

func (s *stubCollector) Stop() error {
	s.stopped = true
	return nil
}

type stubSink struct{}

func (s *stubSink) Send(context.Context, Event) error { return nil }
func (s *stubSink) Name() string                      { return "stub" }

type stubArchive struct {
	mu     sync.Mutex
	events []Event
}

func (s *stubArchive) WriteBatch(events []Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, events...)
	return nil
}

func (s *stubArchive) Name() string { return "stub-archive" }

func (s *stubArchive) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

type stubObservability struct{}

func (s *stubObservability) LogDebug(string, ...Field)             {}
func (s *stubObservability) LogInfo(string, ...Field)              {}
func (s *stubObservability) LogWarn(string, ...Field)              {}
func (s *stubObservability) LogError(string, error, ...Field)      {}
func (s *stubObservability) IncCounter(string, float64, ...string) {}
func (s *stubObservability) ObserveLatency(string, float64)        {}
func (s *stubObservability) SetGauge(string, float64)              {}

// vmSamples returns the series a VM needs to be exported, stamped at sec.
func vmSamples(vm string, sec int64) []*ValueList {
	mk := func(typ, typeInstance string, v float64) *ValueList {
		return &ValueList{
			Host:           "host-a",
			Plugin:         "virt",
			PluginInstance: vm,
			Type:           typ,
			TypeInstance:   typeInstance,
			Values:         []float64{v},
			Time:           time.Unix(sec, 0),
			Interval:       10 * time.Second,
		}
	}
	return []*ValueList{
		mk("virt_cpu_total", "", 1000),
		mk("virt_vcpu", "0", 1000),
		mk("memory", "total", 1048576),
		mk("memory", "unused", 262144),
	}
}
