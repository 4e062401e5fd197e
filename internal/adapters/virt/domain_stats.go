package virt

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/digitalocean/go-libvirt"

	"github.com/ghalamif/vesagent/internal/domain"
)

const plugin = "virt"

type nicStat struct {
	name            string
	rxBytes, rxPkts float64
	rxErrs, rxDrop  float64
	txBytes, txPkts float64
	txErrs, txDrop  float64
}

type blockStat struct {
	name            string
	rdBytes, rdReqs float64
	wrBytes, wrReqs float64
}

type domainStats struct {
	cpuTime *float64
	vcpus   map[int]float64
	balloon map[string]float64
	nics    map[int]*nicStat
	blocks  map[int]*blockStat
}

// balloonMemory maps balloon stats (KiB) onto virt memory type instances.
var balloonMemory = []struct{ stat, typeInstance string }{
	{"maximum", "total"},
	{"current", "actual_balloon"},
	{"unused", "unused"},
	{"available", "available"},
	{"usable", "usable"},
	{"rss", "rss"},
	{"swap_in", "swap_in"},
	{"swap_out", "swap_out"},
}

func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case uint64:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint32:
		return float64(n), true
	case int32:
		return float64(n), true
	case int:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// indexed splits "net.0.rx.bytes" into (0, "rx.bytes").
func indexed(rest string) (int, string, bool) {
	idx, key, ok := strings.Cut(rest, ".")
	if !ok {
		return 0, "", false
	}
	i, err := strconv.Atoi(idx)
	if err != nil || i < 0 {
		return 0, "", false
	}
	return i, key, true
}

func parseParams(params []libvirt.TypedParam) *domainStats {
	s := &domainStats{
		vcpus:   make(map[int]float64),
		balloon: make(map[string]float64),
		nics:    make(map[int]*nicStat),
		blocks:  make(map[int]*blockStat),
	}

	for _, p := range params {
		str, isString := p.Value.I.(string)
		val, isNum := numeric(p.Value.I)

		switch {
		case p.Field == "cpu.time" && isNum:
			s.cpuTime = &val
		case strings.HasPrefix(p.Field, "balloon.") && isNum:
			s.balloon[strings.TrimPrefix(p.Field, "balloon.")] = val
		case strings.HasPrefix(p.Field, "vcpu."):
			i, key, ok := indexed(strings.TrimPrefix(p.Field, "vcpu."))
			if ok && key == "time" && isNum {
				s.vcpus[i] = val
			}
		case strings.HasPrefix(p.Field, "net."):
			i, key, ok := indexed(strings.TrimPrefix(p.Field, "net."))
			if !ok {
				continue
			}
			n, ok := s.nics[i]
			if !ok {
				n = &nicStat{}
				s.nics[i] = n
			}
			if key == "name" && isString {
				n.name = str
				continue
			}
			if !isNum {
				continue
			}
			switch key {
			case "rx.bytes":
				n.rxBytes = val
			case "rx.pkts":
				n.rxPkts = val
			case "rx.errs":
				n.rxErrs = val
			case "rx.drop":
				n.rxDrop = val
			case "tx.bytes":
				n.txBytes = val
			case "tx.pkts":
				n.txPkts = val
			case "tx.errs":
				n.txErrs = val
			case "tx.drop":
				n.txDrop = val
			}
		case strings.HasPrefix(p.Field, "block."):
			i, key, ok := indexed(strings.TrimPrefix(p.Field, "block."))
			if !ok {
				continue
			}
			b, ok := s.blocks[i]
			if !ok {
				b = &blockStat{}
				s.blocks[i] = b
			}
			if key == "name" && isString {
				b.name = str
				continue
			}
			if !isNum {
				continue
			}
			switch key {
			case "rd.bytes":
				b.rdBytes = val
			case "rd.reqs":
				b.rdReqs = val
			case "wr.bytes":
				b.wrBytes = val
			case "wr.reqs":
				b.wrReqs = val
			}
		}
	}
	return s
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// DomainValueLists converts the stats of one domain into virt value lists.
// Memory values are reported in bytes.
func DomainValueLists(host, vm string, params []libvirt.TypedParam, ts time.Time, interval time.Duration) []*domain.ValueList {
	s := parseParams(params)

	var out []*domain.ValueList
	add := func(typ, typeInstance string, values ...float64) {
		out = append(out, &domain.ValueList{
			Host:           host,
			Plugin:         plugin,
			PluginInstance: vm,
			Type:           typ,
			TypeInstance:   typeInstance,
			Values:         values,
			Time:           ts,
			Interval:       interval,
		})
	}

	if s.cpuTime != nil {
		add("virt_cpu_total", "", *s.cpuTime)
	}
	for _, i := range sortedKeys(s.vcpus) {
		add("virt_vcpu", strconv.Itoa(i), s.vcpus[i])
	}
	for _, m := range balloonMemory {
		if kib, ok := s.balloon[m.stat]; ok {
			add("memory", m.typeInstance, kib*1024)
		}
	}
	for _, i := range sortedKeys(s.nics) {
		n := s.nics[i]
		if n.name == "" {
			continue
		}
		add("if_octets", n.name, n.rxBytes, n.txBytes)
		add("if_packets", n.name, n.rxPkts, n.txPkts)
		add("if_errors", n.name, n.rxErrs, n.txErrs)
		add("if_dropped", n.name, n.rxDrop, n.txDrop)
	}
	for _, i := range sortedKeys(s.blocks) {
		b := s.blocks[i]
		if b.name == "" {
			continue
		}
		add("disk_octets", b.name, b.rdBytes, b.wrBytes)
		add("disk_ops", b.name, b.rdReqs, b.wrReqs)
	}
	return out
}
