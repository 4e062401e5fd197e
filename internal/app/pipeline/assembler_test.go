package pipeline

import (
	"testing"

	"github.com/ghalamif/vesagent/internal/cache"
	"github.com/ghalamif/vesagent/internal/ves"
)

func newAssembler() (*Assembler, *mockObs) {
	obs := &mockObs{}
	return &Assembler{Hostname: "host-a", FunctionalRole: "Collectd VES Agent", Obs: obs}, obs
}

// recordVM records the required series of one VM at time sec.
func recordVM(c *cache.Cache, vm string, sec, cpuNs, vcpuNs float64) {
	c.Record(sample("virt", vm, "virt_cpu_total", "", sec, cpuNs))
	c.Record(sample("virt", vm, "virt_vcpu", "0", sec, vcpuNs))
	c.Record(sample("virt", vm, "memory", "total", sec, 1048576))
	c.Record(sample("virt", vm, "memory", "unused", sec, 262144))
}

func TestBuildMeasurementsFirstObservationExportsZeroCPU(t *testing.T) {
	c := cache.New()
	recordVM(c, "vm1", 10, 1000, 1000)
	a, _ := newAssembler()

	events := a.BuildMeasurements(c, counterFrom(1))
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	m := events[0]
	if got := m.Fields.CPUUsageArray[0].PercentUsage; got != 0 {
		t.Fatalf("expected 0%% cpu on first observation, got %v", got)
	}
	h := m.Header()
	if h.StartEpochMicrosec != 10_000_000 || h.LastEpochMicrosec != 10_000_000 {
		t.Fatalf("unexpected window %d..%d", h.StartEpochMicrosec, h.LastEpochMicrosec)
	}
}

func TestBuildMeasurementsCPUTotalOnlyIsSkipped(t *testing.T) {
	c := cache.New()
	c.Record(sample("virt", "vm1", "virt_cpu_total", "", 10, 1000))
	a, obs := newAssembler()

	if events := a.BuildMeasurements(c, counterFrom(1)); len(events) != 0 {
		t.Fatalf("expected no event for a VM missing required series, got %d", len(events))
	}
	if len(obs.warns) != 1 || obs.warns[0] != "vm_stale_skip" {
		t.Fatalf("expected one stale warning, got %v", obs.warns)
	}
	if got := obs.counter("ves_vm_skipped_total"); got != 1 {
		t.Fatalf("expected skipped counter 1, got %v", got)
	}
}

func TestBuildMeasurementsStaleVMSkippedUntilRefreshed(t *testing.T) {
	c := cache.New()
	a, _ := newAssembler()
	recordVM(c, "vm1", 10, 0, 0)

	if events := a.BuildMeasurements(c, counterFrom(1)); len(events) != 1 {
		t.Fatalf("expected first cycle to export, got %d", len(events))
	}
	if events := a.BuildMeasurements(c, counterFrom(2)); len(events) != 0 {
		t.Fatalf("expected stale VM to be skipped, got %d", len(events))
	}

	recordVM(c, "vm1", 20, 1e9, 5e8)
	events := a.BuildMeasurements(c, counterFrom(2))
	if len(events) != 1 {
		t.Fatalf("expected refreshed VM to export, got %d", len(events))
	}
	if got := events[0].Fields.CPUUsageArray[0].PercentUsage; got != 5.0 {
		t.Fatalf("expected 5%% vcpu usage, got %v", got)
	}
	h := events[0].Header()
	if h.StartEpochMicrosec != 10_000_000 || h.LastEpochMicrosec != 20_000_000 {
		t.Fatalf("unexpected window %d..%d", h.StartEpochMicrosec, h.LastEpochMicrosec)
	}
}

func TestBuildMeasurementsPartiallyStaleVMIsSkipped(t *testing.T) {
	c := cache.New()
	a, _ := newAssembler()
	recordVM(c, "vm1", 10, 0, 0)
	a.BuildMeasurements(c, counterFrom(1))

	// everything but memory/unused refreshed
	c.Record(sample("virt", "vm1", "virt_cpu_total", "", 20, 1))
	c.Record(sample("virt", "vm1", "virt_vcpu", "0", 20, 1))
	c.Record(sample("virt", "vm1", "memory", "total", 20, 1048576))

	if events := a.BuildMeasurements(c, counterFrom(2)); len(events) != 0 {
		t.Fatalf("expected VM with one stale series to be skipped, got %d", len(events))
	}
}

func TestBuildMeasurementsHeader(t *testing.T) {
	c := cache.New()
	recordVM(c, "vm1", 10, 0, 0)
	a, _ := newAssembler()

	m := a.BuildMeasurements(c, counterFrom(42))[0]
	h := m.Header()
	if h.SourceName != "vm1" || h.SourceID != "vm1" {
		t.Fatalf("expected VM as source, got %q/%q", h.SourceID, h.SourceName)
	}
	if h.ReportingEntityName != "host-a" || h.FunctionalRole != "Collectd VES Agent" {
		t.Fatalf("unexpected reporting identity: %+v", h)
	}
	if h.Sequence != 42 || h.EventID != "42" {
		t.Fatalf("expected sequence 42, got %d/%s", h.Sequence, h.EventID)
	}
	if m.Fields.MeasurementInterval != 10 {
		t.Fatalf("expected interval 10, got %v", m.Fields.MeasurementInterval)
	}
}

func TestBuildMeasurementsMemory(t *testing.T) {
	c := cache.New()
	recordVM(c, "vm1", 10, 0, 0)
	a, _ := newAssembler()

	mem := a.BuildMeasurements(c, counterFrom(1))[0].Fields.MemoryUsageArray[0]
	if mem.VMIdentifier != "vm1" {
		t.Fatalf("unexpected vm identifier %q", mem.VMIdentifier)
	}
	if mem.MemoryConfigured == nil || *mem.MemoryConfigured != 1024 {
		t.Fatalf("expected configured 1024 KiB, got %v", mem.MemoryConfigured)
	}
	if mem.MemoryFree != 256 || mem.MemoryUsed != 768 {
		t.Fatalf("expected free 256 used 768, got %v/%v", mem.MemoryFree, mem.MemoryUsed)
	}
	if mem.MemoryBuffered == nil || *mem.MemoryBuffered != 0 {
		t.Fatalf("expected buffered zeroed, got %v", mem.MemoryBuffered)
	}
}

func TestBuildMeasurementsMemoryFallsBackToRSS(t *testing.T) {
	c := cache.New()
	c.Record(sample("virt", "vm1", "virt_cpu_total", "", 10, 0))
	c.Record(sample("virt", "vm1", "virt_vcpu", "0", 10, 0))
	c.Record(sample("virt", "vm1", "memory", "rss", 10, 524288))
	a, _ := newAssembler()

	mem := a.BuildMeasurements(c, counterFrom(1))[0].Fields.MemoryUsageArray[0]
	if mem.MemoryFree != 512 {
		t.Fatalf("expected free from rss 512, got %v", mem.MemoryFree)
	}
	if mem.MemoryConfigured != nil || mem.MemoryUsed != 0 {
		t.Fatalf("expected no configured/used without total, got %v/%v", mem.MemoryConfigured, mem.MemoryUsed)
	}
}

func TestBuildMeasurementsVNic(t *testing.T) {
	c := cache.New()
	a, _ := newAssembler()
	recordVM(c, "vm1", 10, 0, 0)
	c.Record(sample("virt", "vm1", "if_octets", "tap0", 10, 100, 200))
	c.Record(sample("virt", "vm1", "if_packets", "tap0", 10, 1, 2))
	a.BuildMeasurements(c, counterFrom(1))

	recordVM(c, "vm1", 20, 0, 0)
	c.Record(sample("virt", "vm1", "if_octets", "tap0", 20, 150, 260))
	c.Record(sample("virt", "vm1", "if_packets", "tap0", 20, 3, 5))

	events := a.BuildMeasurements(c, counterFrom(2))
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	nics := events[0].Fields.VNicPerformanceArray
	if len(nics) != 1 || nics[0].VNicIdentifier != "tap0" {
		t.Fatalf("expected one tap0 vnic, got %+v", nics)
	}
	nic := nics[0]
	if *nic.ReceivedOctetsAccumulated != 150 || *nic.TransmittedOctetsAccumulated != 260 {
		t.Fatalf("unexpected octets accumulated %v/%v", *nic.ReceivedOctetsAccumulated, *nic.TransmittedOctetsAccumulated)
	}
	if *nic.ReceivedOctetsDelta != 50 || *nic.TransmittedOctetsDelta != 60 {
		t.Fatalf("unexpected octets delta %v/%v", *nic.ReceivedOctetsDelta, *nic.TransmittedOctetsDelta)
	}
	if *nic.ReceivedTotalPacketsAccumulated != 3 || *nic.TransmittedTotalPacketsDelta != 3 {
		t.Fatalf("unexpected packet counters: %+v", nic)
	}
	if nic.ReceivedErrorPacketsAccumulated != nil || nic.ReceivedDiscardedPacketsAccumulated != nil {
		t.Fatalf("missing error/dropped series must leave fields absent: %+v", nic)
	}
}

func TestBuildMeasurementsVMRestartResetsCounters(t *testing.T) {
	c := cache.New()
	a, _ := newAssembler()
	recordVM(c, "vm1", 1000, 5e12, 5e12)
	c.Record(sample("virt", "vm1", "if_octets", "tap0", 1000, 5000, 6000))
	a.BuildMeasurements(c, counterFrom(1))

	recordVM(c, "vm1", 1010, 1e9, 1e9)
	c.Record(sample("virt", "vm1", "if_octets", "tap0", 1010, 100, 200))

	events := a.BuildMeasurements(c, counterFrom(2))
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if got := events[0].Fields.CPUUsageArray[0].PercentUsage; got != 10 {
		t.Fatalf("expected 10%% after counter reset, got %v", got)
	}
	nic := events[0].Fields.VNicPerformanceArray[0]
	if *nic.ReceivedOctetsDelta != 100 || *nic.TransmittedOctetsDelta != 200 {
		t.Fatalf("expected reset deltas 100/200, got %v/%v", *nic.ReceivedOctetsDelta, *nic.TransmittedOctetsDelta)
	}
}

func TestBuildMeasurementsIgnoresOlderSample(t *testing.T) {
	c := cache.New()
	a, _ := newAssembler()
	recordVM(c, "vm1", 1000, 0, 0)
	a.BuildMeasurements(c, counterFrom(1))

	recordVM(c, "vm1", 1010, 1e9, 1e9)
	c.Record(sample("virt", "vm1", "virt_vcpu", "0", 990, 7e9))

	events := a.BuildMeasurements(c, counterFrom(2))
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if got := events[0].Fields.CPUUsageArray[0].PercentUsage; got != 10 {
		t.Fatalf("expected 10%% from the in-order window, got %v", got)
	}
}

func TestBuildMeasurementsDisk(t *testing.T) {
	c := cache.New()
	recordVM(c, "vm1", 10, 0, 0)
	c.Record(sample("virt", "vm1", "disk_octets", "vda", 10, 1, 2))
	c.Record(sample("virt", "vm1", "disk_ops", "vda", 10, 3, 4))
	c.Record(sample("virt", "vm1", "disk_ops", "vdb", 10, 5, 6))
	a, _ := newAssembler()

	disks := a.BuildMeasurements(c, counterFrom(1))[0].Fields.DiskUsageArray
	if len(disks) != 2 {
		t.Fatalf("expected 2 disks, got %d", len(disks))
	}
	vda := disks[0]
	if vda.DiskIdentifier != "vda" || *vda.DiskOctetsReadLast != 1 || *vda.DiskOctetsWriteLast != 2 || *vda.DiskOpsReadLast != 3 || *vda.DiskOpsWriteLast != 4 {
		t.Fatalf("unexpected vda usage: %+v", vda)
	}
	vdb := disks[1]
	if vdb.DiskIdentifier != "vdb" || vdb.DiskOctetsReadLast != nil || *vdb.DiskOpsWriteLast != 6 {
		t.Fatalf("unexpected vdb usage: %+v", vdb)
	}
}

func TestBuildMeasurementsPerf(t *testing.T) {
	c := cache.New()
	recordVM(c, "vm1", 10, 0, 0)
	c.Record(sample("virt", "vm1", "perf", "perf_cpu_cycles", 10, 12))
	recordVM(c, "vm2", 10, 0, 0)
	a, _ := newAssembler()

	events := a.BuildMeasurements(c, counterFrom(1))
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	perf := events[0].Fields.AdditionalMeasurements
	if len(perf) != 1 || perf[0].Name != "perf" {
		t.Fatalf("expected perf array, got %+v", perf)
	}
	if f := perf[0].ArrayOfFields[0]; f.Name != "perf_cpu_cycles" || f.Value != "12" {
		t.Fatalf("unexpected perf field %+v", f)
	}
	if len(events[1].Fields.AdditionalMeasurements) != 0 {
		t.Fatalf("expected no perf array for vm2")
	}
}

func TestBuildMeasurementsHostFields(t *testing.T) {
	c := cache.New()
	recordVM(c, "vm1", 10, 0, 0)
	recordVM(c, "vm2", 10, 0, 0)
	c.Record(sample("cpu", "0", "percent", "user", 10, 5.5))
	c.Record(sample("interface", "eth0", "if_octets", "", 10, 1, 2))
	a, _ := newAssembler()

	events := a.BuildMeasurements(c, counterFrom(1))
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	want := []ves.Field{
		{Name: "cpu-0-user-percent-value", Value: "5.5"},
		{Name: "interface-eth0-if_octets-rx", Value: "1"},
		{Name: "interface-eth0-if_octets-tx", Value: "2"},
	}
	for _, m := range events {
		got := m.Fields.AdditionalFields
		if len(got) != len(want) {
			t.Fatalf("expected %d host fields, got %+v", len(want), got)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("field %d: expected %+v, got %+v", i, want[i], got[i])
			}
		}
	}

	for _, s := range c.Query(cache.Filter{Source: "cpu"}) {
		if s.Fresh {
			t.Fatalf("host series must be consumed after a cycle with events")
		}
	}

	recordVM(c, "vm1", 20, 0, 0)
	events = a.BuildMeasurements(c, counterFrom(3))
	if len(events) != 1 || len(events[0].Fields.AdditionalFields) != 0 {
		t.Fatalf("expected consumed host fields not to be re-reported")
	}
}

func TestBuildMeasurementsNoVMsLeavesCacheUntouched(t *testing.T) {
	c := cache.New()
	c.Record(sample("cpu", "0", "percent", "user", 10, 5.5))
	a, _ := newAssembler()

	calls := 0
	next := func() uint64 { calls++; return uint64(calls) }
	if events := a.BuildMeasurements(c, next); events != nil {
		t.Fatalf("expected no events, got %d", len(events))
	}
	if calls != 0 {
		t.Fatalf("expected no sequence ids to be allocated, got %d", calls)
	}
	if s := c.Query(cache.Filter{Source: "cpu"}); !s[0].Fresh {
		t.Fatalf("expected host series to stay fresh")
	}
}

func TestBuildMeasurementsSkippedVMDoesNotUseSequence(t *testing.T) {
	c := cache.New()
	c.Record(sample("virt", "vm0", "virt_cpu_total", "", 10, 0))
	recordVM(c, "vm1", 10, 0, 0)
	a, _ := newAssembler()

	events := a.BuildMeasurements(c, counterFrom(7))
	if len(events) != 1 || events[0].Header().Sequence != 7 {
		t.Fatalf("expected vm1 to get sequence 7, got %+v", events)
	}
	if events[0].Header().SourceName != "vm1" {
		t.Fatalf("expected vm1 event, got %s", events[0].Header().SourceName)
	}
}

func TestDataSetNames(t *testing.T) {
	if got := DataSetNames("if_octets", nil, 2); got[0] != "rx" || got[1] != "tx" {
		t.Fatalf("expected rx/tx, got %v", got)
	}
	if got := DataSetNames("if_octets", []string{"in", "out"}, 2); got[0] != "in" {
		t.Fatalf("expected sent dsnames to win, got %v", got)
	}
	if got := DataSetNames("unknown", nil, 1); got[0] != "value" {
		t.Fatalf("expected value, got %v", got)
	}
	if got := DataSetNames("unknown", nil, 2); got[0] != "0" || got[1] != "1" {
		t.Fatalf("expected index names, got %v", got)
	}
}

func TestDash(t *testing.T) {
	if got := dash("cpu", "", "user", "percent"); got != "cpu-user-percent" {
		t.Fatalf("unexpected dash join %q", got)
	}
	if got := dash("", ""); got != "" {
		t.Fatalf("expected empty join, got %q", got)
	}
}
