package pipeline

import (
	"fmt"

	"github.com/ghalamif/vesagent/internal/cache"
	"github.com/ghalamif/vesagent/internal/calc"
	"github.com/ghalamif/vesagent/internal/ports"
	"github.com/ghalamif/vesagent/internal/ves"
)

// VirtSource is the collectd plugin reporting per-VM series.
const VirtSource = "virt"

const (
	typeCPUTotal = "virt_cpu_total"
	typeVCPU     = "virt_vcpu"
	typeMemory   = "memory"
	typePerf     = "perf"
)

// requiredVMTypes must each have at least one fresh series for a VM event.
var requiredVMTypes = []string{typeCPUTotal, typeVCPU, typeMemory}

var (
	nicTypes  = []string{"if_packets", "if_octets", "if_errors", "if_dropped"}
	diskTypes = []string{"disk_octets", "disk_ops"}
)

// Assembler turns the sample cache into VES events. Its methods must be called
// with the engine lock held.
type Assembler struct {
	Hostname       string
	FunctionalRole string
	Obs            ports.Observability
}

// BuildMeasurements builds one measurement per VM whose series are all fresh.
// next hands out sequence ids and is only called for events that are built.
func (a *Assembler) BuildMeasurements(c *cache.Cache, next func() uint64) []*ves.Measurement {
	vms := c.Query(cache.Filter{Source: VirtSource, Type: typeCPUTotal})
	if len(vms) == 0 {
		return nil
	}

	hostFields := a.hostFields(c)
	seen := make(map[string]bool, len(vms))

	var out []*ves.Measurement
	for _, cpu := range vms {
		vm := cpu.Instance
		if seen[vm] {
			continue
		}
		seen[vm] = true

		if reason := vmStaleReason(c, vm); reason != "" {
			a.Obs.LogWarn("vm_stale_skip",
				ports.Field{Key: "vm", Value: vm},
				ports.Field{Key: "reason", Value: reason})
			a.Obs.IncCounter("ves_vm_skipped_total", 1)
			continue
		}

		m := a.buildVM(c, cpu, next())
		for _, f := range hostFields {
			m.AddAdditionalField(f.Name, f.Value)
		}
		c.ClearInstance(VirtSource, vm)
		out = append(out, m)
	}

	if len(out) > 0 {
		c.ClearFreshness(VirtSource)
	}
	return out
}

// vmStaleReason reports why a VM cannot be exported this cycle, or "" when
// every one of its series is fresh and every required type is present.
func vmStaleReason(c *cache.Cache, vm string) string {
	present := make(map[string]bool)
	for _, s := range c.Query(cache.Filter{Source: VirtSource, Instance: cache.Str(vm)}) {
		if !s.Fresh {
			return fmt.Sprintf("series %s not refreshed", dash(s.Type, s.TypeInstance))
		}
		present[s.Type] = true
	}
	for _, typ := range requiredVMTypes {
		if !present[typ] {
			return fmt.Sprintf("series %s missing", typ)
		}
	}
	return ""
}

func (a *Assembler) buildVM(c *cache.Cache, cpu *cache.Slot, seq uint64) *ves.Measurement {
	vm := cpu.Instance
	m := ves.NewMeasurement(seq)

	h := m.Header()
	h.FunctionalRole = a.FunctionalRole
	h.SetReportingEntity(a.Hostname)
	h.SetSource(vm)
	h.SetWindow(cpu.PreTime, cpu.Time)
	m.Fields.MeasurementInterval = c.Interval(VirtSource).Seconds()

	m.AddMemoryUsage(ves.NewMemoryUsage(vm, vmMemory(c, vm)))

	for _, s := range vmSlots(c, vm, typeVCPU) {
		m.AddCPUUsage(ves.CPUUsage{
			CPUIdentifier: s.TypeInstance,
			PercentUsage:  calc.CPUPercent(valueAt(s.PreValues, 0), valueAt(s.Values, 0), s.PreTime, s.Time),
		})
	}

	for _, name := range typeInstances(c, vm, nicTypes) {
		nic := ves.NewVNicPerformance(name)
		for _, s := range c.Query(cache.Filter{Source: VirtSource, Instance: cache.Str(vm), TypeInstance: cache.Str(name), Types: nicTypes}) {
			setNicCounters(&nic, s)
		}
		m.AddVNicPerformance(nic)
	}

	for _, name := range typeInstances(c, vm, diskTypes) {
		disk := ves.DiskUsage{DiskIdentifier: name}
		for _, s := range c.Query(cache.Filter{Source: VirtSource, Instance: cache.Str(vm), TypeInstance: cache.Str(name), Types: diskTypes}) {
			setDiskCounters(&disk, s)
		}
		m.AddDiskUsage(disk)
	}

	if perf := vmSlots(c, vm, typePerf); len(perf) > 0 {
		arr := ves.NewNamedArray(typePerf)
		for _, s := range perf {
			arr.Add(s.TypeInstance, formatValue(valueAt(s.Values, 0)))
		}
		m.AddAdditionalMeasurement(arr)
	}

	return m
}

// vmMemory maps the virt memory series onto the memory breakdown. virt does
// not report used memory, so the other components are zeroed and used is
// reconstructed as configured - free.
func vmMemory(c *cache.Cache, vm string) calc.Memory {
	zero := calc.Float(0)
	mem := calc.Memory{Buffered: zero, Cached: zero, SlabRecl: zero, SlabUnrecl: zero}

	kib := func(typeInstance string) *float64 {
		slots := c.Query(cache.Filter{Source: VirtSource, Instance: cache.Str(vm), Type: typeMemory, TypeInstance: cache.Str(typeInstance)})
		if len(slots) == 0 || len(slots[0].Values) == 0 {
			return nil
		}
		return calc.Float(calc.BytesToKiB(slots[0].Values[0]))
	}

	mem.Configured = kib("total")
	if free := kib("unused"); free != nil {
		mem.Free = free
	} else {
		mem.Free = kib("rss")
	}
	return mem
}

func vmSlots(c *cache.Cache, vm, typ string) []*cache.Slot {
	return c.Query(cache.Filter{Source: VirtSource, Instance: cache.Str(vm), Type: typ})
}

// typeInstances lists the distinct type instances of a VM's series of the
// given types, in first-seen order.
func typeInstances(c *cache.Cache, vm string, types []string) []string {
	var (
		out  []string
		seen = make(map[string]bool)
	)
	for _, s := range c.Query(cache.Filter{Source: VirtSource, Instance: cache.Str(vm), Types: types}) {
		if seen[s.TypeInstance] {
			continue
		}
		seen[s.TypeInstance] = true
		out = append(out, s.TypeInstance)
	}
	return out
}

func setNicCounters(nic *ves.VNicPerformance, s *cache.Slot) {
	var rxAcc, rxDelta, txAcc, txDelta **float64
	switch s.Type {
	case "if_packets":
		rxAcc, rxDelta = &nic.ReceivedTotalPacketsAccumulated, &nic.ReceivedTotalPacketsDelta
		txAcc, txDelta = &nic.TransmittedTotalPacketsAccumulated, &nic.TransmittedTotalPacketsDelta
	case "if_octets":
		rxAcc, rxDelta = &nic.ReceivedOctetsAccumulated, &nic.ReceivedOctetsDelta
		txAcc, txDelta = &nic.TransmittedOctetsAccumulated, &nic.TransmittedOctetsDelta
	case "if_errors":
		rxAcc, rxDelta = &nic.ReceivedErrorPacketsAccumulated, &nic.ReceivedErrorPacketsDelta
		txAcc, txDelta = &nic.TransmittedErrorPacketsAccumulated, &nic.TransmittedErrorPacketsDelta
	case "if_dropped":
		rxAcc, rxDelta = &nic.ReceivedDiscardedPacketsAccumulated, &nic.ReceivedDiscardedPacketsDelta
		txAcc, txDelta = &nic.TransmittedDiscardedPacketsAccumulated, &nic.TransmittedDiscardedPacketsDelta
	default:
		return
	}
	if len(s.Values) < 2 {
		return
	}
	*rxAcc = calc.Float(s.Values[0])
	*txAcc = calc.Float(s.Values[1])
	if len(s.PreValues) >= 2 {
		*rxDelta = calc.Float(calc.CounterDelta(s.PreValues[0], s.Values[0]))
		*txDelta = calc.Float(calc.CounterDelta(s.PreValues[1], s.Values[1]))
	}
}

func setDiskCounters(disk *ves.DiskUsage, s *cache.Slot) {
	if len(s.Values) < 2 {
		return
	}
	read, write := calc.Float(s.Values[0]), calc.Float(s.Values[1])
	switch s.Type {
	case "disk_octets":
		disk.DiskOctetsReadLast, disk.DiskOctetsWriteLast = read, write
	case "disk_ops":
		disk.DiskOpsReadLast, disk.DiskOpsWriteLast = read, write
	}
}

// hostFields flattens every fresh series outside virt into name/value pairs.
func (a *Assembler) hostFields(c *cache.Cache) []ves.Field {
	var out []ves.Field
	for _, source := range c.Sources() {
		if source == VirtSource {
			continue
		}
		for _, s := range c.Query(cache.Filter{Source: source}) {
			if !s.Fresh {
				continue
			}
			prefix := dash(source, s.Instance, s.TypeInstance)
			names := DataSetNames(s.Type, s.DSNames, len(s.Values))
			for i, v := range s.Values {
				out = append(out, ves.Field{
					Name:  dash(prefix, s.Type, names[i]),
					Value: formatValue(v),
				})
			}
		}
	}
	return out
}

func valueAt(values []float64, i int) float64 {
	if i < len(values) {
		return values[i]
	}
	return 0
}
