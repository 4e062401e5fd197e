// Package engine owns the sample cache and the export schedule.
//
// One mutex guards the cache and the sequence counter. Ingestion holds it for
// a single slot update; an export cycle holds it while the events are built and
// releases it before anything is sent.
package engine

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"github.com/ghalamif/vesagent/internal/adapters/observability"
	"github.com/ghalamif/vesagent/internal/adapters/sink"
	"github.com/ghalamif/vesagent/internal/app/config"
	"github.com/ghalamif/vesagent/internal/app/pipeline"
	"github.com/ghalamif/vesagent/internal/cache"
	"github.com/ghalamif/vesagent/internal/domain"
	"github.com/ghalamif/vesagent/internal/ports"
	"github.com/ghalamif/vesagent/internal/ves"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ErrRunning    = errors.New("engine: already running")
	ErrNotRunning = errors.New("engine: not running")
)

type Options struct {
	Plugin   config.PluginConfig
	Hostname string
	// Sink defaults to a VES listener sink built from Plugin at Start.
	Sink    ports.Sink
	Archive ports.Archive
	Obs     ports.Observability
}

// Stats is a point-in-time view of the engine state.
type Stats struct {
	Series   int
	Sources  []string
	Sequence uint64
	Running  bool
}

type Engine struct {
	mu     sync.Mutex
	cache  *cache.Cache
	seq    uint64
	plugin config.PluginConfig
	asm    pipeline.Assembler

	sink    ports.Sink
	archive ports.Archive
	obs     ports.Observability

	running bool
	stop    chan struct{}
	done    chan struct{}
}

var _ ports.Ingestor = (*Engine)(nil)

func New(opts Options) *Engine {
	if opts.Hostname == "" {
		if h, err := os.Hostname(); err == nil {
			opts.Hostname = h
		}
	}
	if opts.Obs == nil {
		opts.Obs = observability.NewPromObs(nil, prometheus.NewRegistry())
	}
	if opts.Plugin == (config.PluginConfig{}) {
		opts.Plugin = config.DefaultPluginConfig()
	}
	return &Engine{
		cache:   cache.New(),
		plugin:  opts.Plugin,
		sink:    opts.Sink,
		archive: opts.Archive,
		obs:     opts.Obs,
		asm: pipeline.Assembler{
			Hostname:       opts.Hostname,
			FunctionalRole: opts.Plugin.FunctionalRole,
			Obs:            opts.Obs,
		},
	}
}

// Configure applies plugin keys. It fails once the engine is running.
func (e *Engine) Configure(values map[string]any) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		return ErrRunning
	}
	if err := e.plugin.Configure(values); err != nil {
		return err
	}
	e.asm.FunctionalRole = e.plugin.FunctionalRole
	return nil
}

// Plugin returns the effective plugin configuration.
func (e *Engine) Plugin() config.PluginConfig {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.plugin
}

// Start arms the export ticker at SendEventInterval.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		return ErrRunning
	}
	if e.sink == nil {
		e.sink = sink.NewVESSink(sink.VESSinkOptions{
			URL:      e.plugin.ListenerURL(),
			Username: e.plugin.Username,
			Password: e.plugin.Password,
		})
	}

	e.running = true
	e.stop = make(chan struct{})
	e.done = make(chan struct{})
	go e.loop(e.plugin.SendEventInterval, e.stop, e.done)

	e.obs.LogInfo("engine_started",
		ports.Field{Key: "listener", Value: e.plugin.ListenerURL()},
		ports.Field{Key: "interval", Value: e.plugin.SendEventInterval.String()},
		ports.Field{Key: "sink", Value: e.sink.Name()})
	return nil
}

func (e *Engine) loop(interval time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			// in-flight sends are bounded by the sink timeout, not cancelled
			e.RunCycle(context.Background())
		}
	}
}

// Shutdown stops the ticker and waits for a running cycle to finish.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return ErrNotRunning
	}
	e.running = false
	close(e.stop)
	done := e.done
	e.mu.Unlock()

	select {
	case <-done:
		e.obs.LogInfo("engine_stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// OnSample records one value list.
func (e *Engine) OnSample(vl *domain.ValueList) {
	if vl == nil {
		return
	}
	e.mu.Lock()
	ok := e.cache.Record(vl)
	e.mu.Unlock()

	if !ok {
		e.obs.IncCounter("ves_samples_dropped_total", 1)
		e.obs.LogWarn("sample_out_of_order",
			ports.Field{Key: "plugin", Value: vl.Plugin},
			ports.Field{Key: "plugin_instance", Value: vl.PluginInstance},
			ports.Field{Key: "type", Value: vl.Type},
			ports.Field{Key: "type_instance", Value: vl.TypeInstance},
			ports.Field{Key: "time", Value: vl.Time})
		return
	}
	e.obs.IncCounter("ves_samples_ingested_total", 1)
}

// OnNotification turns n into a fault event and sends it right away.
func (e *Engine) OnNotification(n *domain.Notification) {
	if n == nil {
		return
	}
	e.obs.IncCounter("ves_notifications_total", 1)

	// sequence ids go only to faults that can be sent
	e.mu.Lock()
	s, archive := e.sink, e.archive
	if s == nil {
		e.mu.Unlock()
		e.obs.LogWarn("fault_dropped_not_started",
			ports.Field{Key: "plugin", Value: n.Plugin},
			ports.Field{Key: "plugin_instance", Value: n.PluginInstance})
		return
	}
	f := e.asm.BuildFault(n, e.nextSeq())
	e.mu.Unlock()

	pipeline.Dispatch(context.Background(), []ves.Event{f}, s, archive, e.obs)
}

// RunCycle builds the measurement events of one export cycle and sends them.
// It returns the number of events the listener accepted.
func (e *Engine) RunCycle(ctx context.Context) int {
	e.mu.Lock()
	built := e.asm.BuildMeasurements(e.cache, e.nextSeq)
	series := e.cache.Len()
	s, archive := e.sink, e.archive
	e.mu.Unlock()

	e.obs.SetGauge("ves_cache_series", float64(series))
	if len(built) == 0 {
		e.obs.LogDebug("cycle_empty", ports.Field{Key: "series", Value: series})
		return 0
	}

	events := make([]ves.Event, 0, len(built))
	for _, m := range built {
		events = append(events, m)
	}
	if s == nil {
		e.obs.LogWarn("cycle_dropped_not_started", ports.Field{Key: "events", Value: len(events)})
		return 0
	}
	return pipeline.Dispatch(ctx, events, s, archive, e.obs)
}

// Stats reports the current cache and sequence state.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Stats{
		Series:   e.cache.Len(),
		Sources:  e.cache.Sources(),
		Sequence: e.seq,
		Running:  e.running,
	}
}

// nextSeq must be called with e.mu held.
func (e *Engine) nextSeq() uint64 {
	e.seq++
	return e.seq
}
