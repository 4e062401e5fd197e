package vesagent

import (
	"context"
	"fmt"
	"time"
)

// Flow builds a Runtime in three steps: Conf loads the configuration, StreamIN
// chooses where samples come from, StreamOUT chooses where events go.
//
//	flow, _ := vesagent.Conf("config.yaml")
//	err := flow.
//		StreamIN(vesagent.StreamInLibvirt("qemu:///system", 10*time.Second)).
//		Run(ctx, vesagent.StreamOutListener(map[string]any{"Domain": "10.0.0.5"}))
//
// Stream options edit a private copy of the configuration; the Config passed to
// ConfFromConfig is never modified. The first option error is reported by
// StreamOUT.
type Flow struct {
	cfg  *Config
	opts []RuntimeOption
	err  error
}

// FlowOption mutates the Flow after configuration is loaded.
type FlowOption func(*Flow)

// StreamInOption configures the sample sources.
type StreamInOption func(*Flow)

// StreamOutOption configures event delivery and archiving.
type StreamOutOption func(*Flow)

// Conf loads YAML from disk, applies FlowOption values, and returns a Flow builder.
func Conf(path string, opts ...FlowOption) (*Flow, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return ConfFromConfig(cfg, opts...)
}

// ConfFromConfig bootstraps a Flow from a copy of cfg.
func ConfFromConfig(cfg *Config, opts ...FlowOption) (*Flow, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	c := *cfg
	f := &Flow{cfg: &c}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f, nil
}

// Config returns the flow's configuration, including stream option edits.
func (f *Flow) Config() *Config {
	if f == nil {
		return nil
	}
	return f.cfg
}

// Options appends raw RuntimeOption values, e.g. WithObservability.
func (f *Flow) Options(opts ...RuntimeOption) *Flow {
	if f == nil {
		return nil
	}
	f.opts = append(f.opts, opts...)
	return f
}

// StreamIN applies sample source options.
func (f *Flow) StreamIN(opts ...StreamInOption) *Flow {
	if f == nil {
		return nil
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// StreamOUT applies delivery options and builds a Runtime ready to run.
func (f *Flow) StreamOUT(opts ...StreamOutOption) (*Runtime, error) {
	if f == nil {
		return nil, fmt.Errorf("flow is nil")
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return NewRuntime(f.cfg, f.opts...)
}

// Run is a shortcut for StreamOUT + runtime.Run.
func (f *Flow) Run(ctx context.Context, opts ...StreamOutOption) error {
	rt, err := f.StreamOUT(opts...)
	if err != nil {
		return err
	}
	return rt.Run(ctx)
}

// WithFlowOptions appends RuntimeOption values during Conf.
func WithFlowOptions(opts ...RuntimeOption) FlowOption {
	return func(f *Flow) {
		f.Options(opts...)
	}
}

// StreamInIngest serves the collectd write_http receiver on addr. An empty
// addr turns the receiver off.
func StreamInIngest(addr string) StreamInOption {
	return func(f *Flow) {
		f.cfg.Ingest.Addr = addr
		f.cfg.Ingest.Disabled = addr == ""
	}
}

// StreamInLibvirt polls domain stats from the libvirt daemon at uri
// (qemu:///system, unix:///path/to/socket). A non-positive interval keeps the
// configured one.
func StreamInLibvirt(uri string, interval time.Duration) StreamInOption {
	return func(f *Flow) {
		f.cfg.Libvirt.URI = uri
		if interval > 0 {
			f.cfg.Libvirt.Interval = interval
		}
	}
}

// StreamInCollector adds a custom sample source. Supplying one replaces the
// receiver and poller configured above.
func StreamInCollector(col Collector) StreamInOption {
	return func(f *Flow) {
		if col != nil {
			f.opts = append(f.opts, WithCollector(col))
		}
	}
}

// StreamOutListener applies event listener keys (Domain, Port, Topic, ...)
// on top of the configured ones, with the same type checks as the ves section.
func StreamOutListener(values map[string]any) StreamOutOption {
	return func(f *Flow) {
		if f.err != nil {
			return
		}
		if err := f.cfg.Plugin.Configure(values); err != nil {
			f.err = fmt.Errorf("listener: %w", err)
		}
	}
}

// StreamOutArchiveDB records every dispatched event in a Postgres table.
func StreamOutArchiveDB(connString, table string) StreamOutOption {
	return func(f *Flow) {
		f.cfg.Archive.ConnString = connString
		if table != "" {
			f.cfg.Archive.Table = table
		}
	}
}

// StreamOutArchive records every dispatched event in a custom store.
func StreamOutArchive(a Archive) StreamOutOption {
	return func(f *Flow) {
		if a != nil {
			f.opts = append(f.opts, WithArchive(a))
		}
	}
}

// StreamOutSink delivers events to s instead of the event listener.
func StreamOutSink(s Sink) StreamOutOption {
	return func(f *Flow) {
		if s != nil {
			f.opts = append(f.opts, WithSink(s))
		}
	}
}

// StreamOutCallback delivers events to fn instead of the event listener.
func StreamOutCallback(name string, fn EventHandler) StreamOutOption {
	return StreamOutSink(NewCallbackSink(name, fn))
}
