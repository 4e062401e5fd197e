package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	VES     map[string]any `yaml:"ves"`
	Agent   AgentConfig    `yaml:"agent"`
	Metrics MetricsConfig  `yaml:"metrics"`
	Ingest  IngestConfig   `yaml:"ingest"`
	Libvirt LibvirtConfig  `yaml:"libvirt"`
	Archive ArchiveConfig  `yaml:"archive"`

	// Plugin is the type-checked form of VES.
	Plugin PluginConfig `yaml:"-"`
}

type AgentConfig struct {
	Hostname string `yaml:"hostname"`
	LogLevel string `yaml:"log_level"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

type IngestConfig struct {
	Addr     string `yaml:"addr"`
	Disabled bool   `yaml:"disabled"`
}

type LibvirtConfig struct {
	URI      string        `yaml:"uri"`
	Interval time.Duration `yaml:"interval"`
}

type ArchiveConfig struct {
	ConnString string `yaml:"conn_string"`
	Table      string `yaml:"table"`
}

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

// Parse decodes a YAML document. Unknown sections and unknown or mistyped
// plugin keys are rejected.
func Parse(raw []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	cfg.Plugin = DefaultPluginConfig()
	if err := cfg.Plugin.Configure(cfg.VES); err != nil {
		return nil, fmt.Errorf("ves config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{Plugin: DefaultPluginConfig()}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Agent.Hostname == "" {
		if h, err := os.Hostname(); err == nil {
			c.Agent.Hostname = h
		}
	}
	if c.Agent.LogLevel == "" {
		c.Agent.LogLevel = "info"
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9100"
	}
	if c.Ingest.Addr == "" {
		c.Ingest.Addr = ":8090"
	}
	if c.Libvirt.Interval <= 0 {
		c.Libvirt.Interval = 10 * time.Second
	}
	if c.Archive.Table == "" {
		c.Archive.Table = "ves_events"
	}
}

func (c *Config) validate() error {
	switch c.Agent.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("agent.log_level %q is invalid", c.Agent.LogLevel)
	}
	if c.Metrics.Addr == "" {
		return fmt.Errorf("metrics.addr is required")
	}
	return nil
}
