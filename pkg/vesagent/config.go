package vesagent

import (
	"github.com/ghalamif/vesagent/internal/app/config"
)

// Config re-exports the root configuration struct so downstream projects can
// construct or modify it programmatically.
type Config = config.Config

type (
	// PluginConfig holds the event listener keys (Domain, Port, ...).
	PluginConfig = config.PluginConfig
	// AgentConfig sets the reporting hostname and log level.
	AgentConfig = config.AgentConfig
	// MetricsConfig configures the metrics HTTP server.
	MetricsConfig = config.MetricsConfig
	// IngestConfig configures the collectd write_http receiver.
	IngestConfig = config.IngestConfig
	// LibvirtConfig configures the native libvirt poller.
	LibvirtConfig = config.LibvirtConfig
	// ArchiveConfig configures the optional Postgres event archive.
	ArchiveConfig = config.ArchiveConfig
)

var (
	// ErrUnknownKey is returned for a plugin key outside the key table.
	ErrUnknownKey = config.ErrUnknownKey
	// ErrInvalidType is returned when a plugin value has the wrong type.
	ErrInvalidType = config.ErrInvalidType
	// ErrInvalidValue is returned when a plugin value is out of range.
	ErrInvalidValue = config.ErrInvalidValue
)

// LoadConfig loads YAML from disk using the internal config reader.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// ParseConfig decodes an in-memory YAML document.
func ParseConfig(raw []byte) (*Config, error) {
	return config.Parse(raw)
}

// DefaultConfig returns a configuration with every default applied.
func DefaultConfig() *Config {
	return config.Default()
}

// DefaultPluginConfig returns the default event listener settings.
func DefaultPluginConfig() PluginConfig {
	return config.DefaultPluginConfig()
}
