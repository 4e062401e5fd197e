package config

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

var (
	// ErrUnknownKey is returned for a key outside the plugin key table.
	ErrUnknownKey = errors.New("unknown configuration key")
	// ErrInvalidType is returned when a value does not have the key's type.
	ErrInvalidType = errors.New("invalid configuration value type")
	// ErrInvalidValue is returned when a well-typed value is out of range.
	ErrInvalidValue = errors.New("invalid configuration value")
)

type valueKind int

const (
	kindString valueKind = iota
	kindNumber
	kindBool
)

func (k valueKind) String() string {
	switch k {
	case kindNumber:
		return "number"
	case kindBool:
		return "boolean"
	default:
		return "string"
	}
}

var pluginKeys = map[string]valueKind{
	"Domain":            kindString,
	"Port":              kindNumber,
	"Path":              kindString,
	"Username":          kindString,
	"Password":          kindString,
	"Topic":             kindString,
	"UseHttps":          kindBool,
	"SendEventInterval": kindNumber,
	"FunctionalRole":    kindString,
	"ApiVersion":        kindNumber,
}

// PluginConfig is the event listener configuration.
type PluginConfig struct {
	Domain            string
	Port              int
	Path              string
	Username          string
	Password          string
	Topic             string
	UseHTTPS          bool
	SendEventInterval time.Duration
	FunctionalRole    string
	APIVersion        float64
}

// DefaultPluginConfig returns the documented defaults.
func DefaultPluginConfig() PluginConfig {
	return PluginConfig{
		Domain:            "127.0.0.1",
		Port:              30000,
		SendEventInterval: 20 * time.Second,
		FunctionalRole:    "Collectd VES Agent",
		APIVersion:        5.1,
	}
}

// Configure applies keyed values on top of the current settings. Every key must
// belong to the key table and carry a value of that key's type; nothing is
// applied when any entry is rejected.
func (p *PluginConfig) Configure(values map[string]any) error {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	next := *p
	for _, key := range keys {
		kind, ok := pluginKeys[key]
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownKey, key)
		}
		if err := next.set(key, kind, values[key]); err != nil {
			return err
		}
	}
	if err := next.validate(); err != nil {
		return err
	}
	*p = next
	return nil
}

func (p *PluginConfig) set(key string, kind valueKind, raw any) error {
	mismatch := func() error {
		return fmt.Errorf("%w: key %q value %v (%T) should be %s", ErrInvalidType, key, raw, raw, kind)
	}

	switch kind {
	case kindString:
		s, ok := raw.(string)
		if !ok {
			return mismatch()
		}
		switch key {
		case "Domain":
			p.Domain = s
		case "Path":
			p.Path = s
		case "Username":
			p.Username = s
		case "Password":
			p.Password = s
		case "Topic":
			p.Topic = s
		case "FunctionalRole":
			p.FunctionalRole = s
		}
	case kindBool:
		b, ok := raw.(bool)
		if !ok {
			return mismatch()
		}
		p.UseHTTPS = b
	case kindNumber:
		n, ok := toNumber(raw)
		if !ok {
			return mismatch()
		}
		switch key {
		case "Port":
			if n != math.Trunc(n) {
				return mismatch()
			}
			p.Port = int(n)
		case "SendEventInterval":
			p.SendEventInterval = time.Duration(n * float64(time.Second))
		case "ApiVersion":
			p.APIVersion = n
		}
	}
	return nil
}

func toNumber(raw any) (float64, bool) {
	switch v := raw.(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint64:
		return float64(v), true
	case float64:
		return v, !math.IsNaN(v) && !math.IsInf(v, 0)
	default:
		return 0, false
	}
}

func (p *PluginConfig) validate() error {
	if p.Domain == "" {
		return fmt.Errorf("%w: domain is required", ErrInvalidValue)
	}
	if p.Port <= 0 || p.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidValue, p.Port)
	}
	if p.SendEventInterval <= 0 {
		return fmt.Errorf("%w: send event interval must be > 0", ErrInvalidValue)
	}
	if p.APIVersion < 1 {
		return fmt.Errorf("%w: api version %v below 1", ErrInvalidValue, p.APIVersion)
	}
	return nil
}

// ListenerURL composes the event listener endpoint.
func (p PluginConfig) ListenerURL() string {
	scheme := "http"
	if p.UseHTTPS {
		scheme = "https"
	}
	path := ""
	if p.Path != "" {
		path = "/" + p.Path
	}
	topic := ""
	if p.Topic != "" {
		topic = "/" + p.Topic
	}
	return fmt.Sprintf("%s://%s:%d%s/eventListener/v%d%s", scheme, p.Domain, p.Port, path, int(p.APIVersion), topic)
}
