package vesagent

import (
	"time"

	base "github.com/ghalamif/vesagent/pkg/vesagent"
)

// Re-exported errors for convenience.
var (
	ErrChannelSinkClosed = base.ErrChannelSinkClosed
	ErrUnknownKey        = base.ErrUnknownKey
	ErrInvalidType       = base.ErrInvalidType
	ErrInvalidValue      = base.ErrInvalidValue
)

// Type aliases so consumers can import github.com/ghalamif/vesagent directly.
type (
	Config          = base.Config
	PluginConfig    = base.PluginConfig
	AgentConfig     = base.AgentConfig
	MetricsConfig   = base.MetricsConfig
	IngestConfig    = base.IngestConfig
	LibvirtConfig   = base.LibvirtConfig
	ArchiveConfig   = base.ArchiveConfig
	Flow            = base.Flow
	FlowOption      = base.FlowOption
	StreamInOption  = base.StreamInOption
	StreamOutOption = base.StreamOutOption
	Runtime         = base.Runtime
	RuntimeOption   = base.RuntimeOption
	EventHandler    = base.EventHandler
	Event           = base.Event
	ValueList       = base.ValueList
	Notification    = base.Notification
	Severity        = base.Severity
	Stats           = base.Stats
	Ingestor        = base.Ingestor
	Collector       = base.Collector
	Sink            = base.Sink
	Archive         = base.Archive
	Observability   = base.Observability
	Field           = base.Field
)

// Config helpers.
func LoadConfig(path string) (*Config, error) {
	return base.LoadConfig(path)
}

func ParseConfig(raw []byte) (*Config, error) {
	return base.ParseConfig(raw)
}

func DefaultConfig() *Config {
	return base.DefaultConfig()
}

// Flow builder helpers.
func Conf(path string, opts ...FlowOption) (*Flow, error) {
	return base.Conf(path, opts...)
}

func ConfFromConfig(cfg *Config, opts ...FlowOption) (*Flow, error) {
	return base.ConfFromConfig(cfg, opts...)
}

func WithFlowOptions(opts ...RuntimeOption) FlowOption {
	return base.WithFlowOptions(opts...)
}

func StreamInCollector(col Collector) StreamInOption {
	return base.StreamInCollector(col)
}

func StreamInIngest(addr string) StreamInOption {
	return base.StreamInIngest(addr)
}

func StreamInLibvirt(uri string, interval time.Duration) StreamInOption {
	return base.StreamInLibvirt(uri, interval)
}

func StreamOutSink(s Sink) StreamOutOption {
	return base.StreamOutSink(s)
}

func StreamOutArchive(a Archive) StreamOutOption {
	return base.StreamOutArchive(a)
}

func StreamOutListener(values map[string]any) StreamOutOption {
	return base.StreamOutListener(values)
}

func StreamOutArchiveDB(connString, table string) StreamOutOption {
	return base.StreamOutArchiveDB(connString, table)
}

func StreamOutCallback(name string, fn EventHandler) StreamOutOption {
	return base.StreamOutCallback(name, fn)
}

// Runtime and options.
func NewRuntime(cfg *Config, opts ...RuntimeOption) (*Runtime, error) {
	return base.NewRuntime(cfg, opts...)
}

func WithCollector(col Collector) RuntimeOption {
	return base.WithCollector(col)
}

func WithSink(s Sink) RuntimeOption {
	return base.WithSink(s)
}

func WithArchive(a Archive) RuntimeOption {
	return base.WithArchive(a)
}

func WithObservability(obs Observability) RuntimeOption {
	return base.WithObservability(obs)
}

// Sink adapters.
func NewCallbackSink(name string, fn EventHandler) Sink {
	return base.NewCallbackSink(name, fn)
}

func NewChannelSink(name string, buffer int) (Sink, <-chan Event, func()) {
	return base.NewChannelSink(name, buffer)
}

// MarshalEvent renders e as listener JSON.
func MarshalEvent(e Event) ([]byte, error) {
	return base.MarshalEvent(e)
}
