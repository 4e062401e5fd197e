// Package cache keeps the latest and previous observation of every metric series.
//
// A Cache is not safe for concurrent use; the engine serializes every access
// with its own lock so that a whole export cycle sees one consistent snapshot.
package cache

import (
	"slices"
	"time"

	"github.com/ghalamif/vesagent/internal/domain"
)

// Key identifies one series.
type Key struct {
	Source       string
	Instance     string
	Type         string
	TypeInstance string
}

// Slot is the depth-1 sliding window of a series.
type Slot struct {
	Key
	Host      string
	DSNames   []string
	Values    []float64
	PreValues []float64
	Time      time.Time
	PreTime   time.Time
	Interval  time.Duration
	// Fresh is set on every write and cleared by consuming reads.
	Fresh bool
}

type sourceEntry struct {
	interval time.Duration
	slots    []*Slot
}

// Cache maps a source to its series in first-seen order.
type Cache struct {
	sources map[string]*sourceEntry
	order   []string
}

func New() *Cache {
	return &Cache{sources: make(map[string]*sourceEntry)}
}

// Record stores vl in its series. A new series starts with previous == current,
// so no delta is available until the second observation. A sample older than
// the series' current one is dropped and Record reports false, so PreTime never
// exceeds Time.
func (c *Cache) Record(vl *domain.ValueList) bool {
	key := Key{
		Source:       vl.Plugin,
		Instance:     vl.PluginInstance,
		Type:         vl.Type,
		TypeInstance: vl.TypeInstance,
	}
	values := append([]float64(nil), vl.Values...)

	src, ok := c.sources[key.Source]
	if !ok {
		src = &sourceEntry{}
		c.sources[key.Source] = src
		c.order = append(c.order, key.Source)
	}

	for _, s := range src.slots {
		if s.Key != key {
			continue
		}
		if vl.Time.Before(s.Time) {
			return false
		}
		s.PreTime = s.Time
		s.PreValues = s.Values
		s.Time = vl.Time
		s.Values = values
		s.Host = vl.Host
		if len(vl.DSNames) > 0 {
			s.DSNames = append([]string(nil), vl.DSNames...)
		}
		s.Fresh = true
		return true
	}

	src.slots = append(src.slots, &Slot{
		Key:       key,
		Host:      vl.Host,
		DSNames:   append([]string(nil), vl.DSNames...),
		Values:    values,
		PreValues: values,
		Time:      vl.Time,
		PreTime:   vl.Time,
		Interval:  vl.Interval,
		Fresh:     true,
	})
	src.interval = vl.Interval
	return true
}

// Filter selects slots of one source. Empty fields match everything.
type Filter struct {
	Source       string
	Instance     *string
	Type         string
	TypeInstance *string
	Types        []string
	// Consume clears Fresh on every returned slot.
	Consume bool
}

// Str is a helper for the optional Filter fields.
func Str(s string) *string { return &s }

func (f Filter) match(s *Slot) bool {
	if f.Instance != nil && *f.Instance != s.Instance {
		return false
	}
	if f.Type != "" && f.Type != s.Type {
		return false
	}
	if f.TypeInstance != nil && *f.TypeInstance != s.TypeInstance {
		return false
	}
	if len(f.Types) > 0 && !slices.Contains(f.Types, s.Type) {
		return false
	}
	return true
}

// Query returns the slots matching f. The returned pointers alias cache state
// and stay valid only while the caller holds the engine lock.
func (c *Cache) Query(f Filter) []*Slot {
	src, ok := c.sources[f.Source]
	if !ok {
		return nil
	}
	var out []*Slot
	for _, s := range src.slots {
		if !f.match(s) {
			continue
		}
		if f.Consume {
			s.Fresh = false
		}
		out = append(out, s)
	}
	return out
}

// ClearFreshness marks every slot outside the excluded sources as consumed.
func (c *Cache) ClearFreshness(exclude ...string) {
	for _, name := range c.order {
		if slices.Contains(exclude, name) {
			continue
		}
		for _, s := range c.sources[name].slots {
			s.Fresh = false
		}
	}
}

// ClearInstance marks every slot of one source instance as consumed.
func (c *Cache) ClearInstance(source, instance string) {
	c.Query(Filter{Source: source, Instance: Str(instance), Consume: true})
}

// Interval returns the reporting interval last recorded for a source.
func (c *Cache) Interval(source string) time.Duration {
	if src, ok := c.sources[source]; ok {
		return src.interval
	}
	return 0
}

// Sources returns the source names in first-seen order.
func (c *Cache) Sources() []string {
	return append([]string(nil), c.order...)
}

// Len returns the number of series held.
func (c *Cache) Len() int {
	n := 0
	for _, src := range c.sources {
		n += len(src.slots)
	}
	return n
}
