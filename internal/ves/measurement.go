package ves

import "github.com/ghalamif/vesagent/internal/calc"

const measurementsVersion = 2.0

// Measurement is a measurementsForVfScaling event.
type Measurement struct {
	header CommonEventHeader
	Fields MeasurementFields
}

// MeasurementFields is the measurementsForVfScalingFields body.
type MeasurementFields struct {
	AdditionalMeasurements          []NamedArrayOfFields `json:"additionalMeasurements"`
	CodecUsageArray                 []any                `json:"codecUsageArray"`
	ConcurrentSessions              int                  `json:"concurrentSessions"`
	ConfiguredEntities              int                  `json:"configuredEntities"`
	CPUUsageArray                   []CPUUsage           `json:"cpuUsageArray"`
	FeatureUsageArray               []any                `json:"featureUsageArray"`
	FilesystemUsageArray            []any                `json:"filesystemUsageArray"`
	LatencyDistribution             []any                `json:"latencyDistribution"`
	MeanRequestLatency              float64              `json:"meanRequestLatency"`
	MeasurementInterval             float64              `json:"measurementInterval"`
	NumberOfMediaPortsInUse         int                  `json:"numberOfMediaPortsInUse"`
	RequestRate                     float64              `json:"requestRate"`
	VnfcScalingMetric               int                  `json:"vnfcScalingMetric"`
	AdditionalFields                []Field              `json:"additionalFields"`
	AdditionalObjects               []any                `json:"additionalObjects"`
	DiskUsageArray                  []DiskUsage          `json:"diskUsageArray"`
	MeasurementsForVfScalingVersion float64              `json:"measurementsForVfScalingVersion"`
	MemoryUsageArray                []MemoryUsage        `json:"memoryUsageArray"`
	VNicPerformanceArray            []VNicPerformance    `json:"vNicPerformanceArray"`
}

// NewMeasurement returns an empty hostOS measurement carrying sequence id seq.
func NewMeasurement(seq uint64) *Measurement {
	return &Measurement{
		header: newHeader(DomainMeasurements, "hostOS", seq),
		Fields: MeasurementFields{
			AdditionalMeasurements:          []NamedArrayOfFields{},
			CodecUsageArray:                 []any{},
			CPUUsageArray:                   []CPUUsage{},
			FeatureUsageArray:               []any{},
			FilesystemUsageArray:            []any{},
			LatencyDistribution:             []any{},
			AdditionalFields:                []Field{},
			AdditionalObjects:               []any{},
			DiskUsageArray:                  []DiskUsage{},
			MeasurementsForVfScalingVersion: measurementsVersion,
			MemoryUsageArray:                []MemoryUsage{},
			VNicPerformanceArray:            []VNicPerformance{},
		},
	}
}

func (m *Measurement) Header() *CommonEventHeader { return &m.header }
func (m *Measurement) FieldsName() string         { return "measurementsForVfScalingFields" }
func (m *Measurement) Body() any                  { return &m.Fields }

func (m *Measurement) AddAdditionalMeasurement(n NamedArrayOfFields) {
	m.Fields.AdditionalMeasurements = append(m.Fields.AdditionalMeasurements, n)
}

func (m *Measurement) AddAdditionalField(name, value string) {
	m.Fields.AdditionalFields = append(m.Fields.AdditionalFields, Field{Name: name, Value: value})
}

func (m *Measurement) AddCPUUsage(c CPUUsage) {
	m.Fields.CPUUsageArray = append(m.Fields.CPUUsageArray, c)
}

func (m *Measurement) AddMemoryUsage(u MemoryUsage) {
	m.Fields.MemoryUsageArray = append(m.Fields.MemoryUsageArray, u)
}

func (m *Measurement) AddDiskUsage(d DiskUsage) {
	m.Fields.DiskUsageArray = append(m.Fields.DiskUsageArray, d)
}

func (m *Measurement) AddVNicPerformance(v VNicPerformance) {
	m.Fields.VNicPerformanceArray = append(m.Fields.VNicPerformanceArray, v)
}

// CPUUsage is the cpuUsage record of one (v)CPU.
type CPUUsage struct {
	CPUIdentifier     string   `json:"cpuIdentifier"`
	PercentUsage      float64  `json:"percentUsage"`
	CPUIdle           *float64 `json:"cpuIdle,omitempty"`
	CPUUsageInterrupt *float64 `json:"cpuUsageInterrupt,omitempty"`
	CPUUsageNice      *float64 `json:"cpuUsageNice,omitempty"`
	CPUUsageSoftIrq   *float64 `json:"cpuUsageSoftIrq,omitempty"`
	CPUUsageSteal     *float64 `json:"cpuUsageSteal,omitempty"`
	CPUUsageSystem    *float64 `json:"cpuUsageSystem,omitempty"`
	CPUUsageUser      *float64 `json:"cpuUsageUser,omitempty"`
	CPUWait           *float64 `json:"cpuWait,omitempty"`
}

// MemoryUsage is the memoryUsage record of one VM. memoryFree and memoryUsed
// are required and fall back to reconstructed values or zero.
type MemoryUsage struct {
	VMIdentifier     string   `json:"vmIdentifier"`
	MemoryFree       float64  `json:"memoryFree"`
	MemoryUsed       float64  `json:"memoryUsed"`
	MemoryBuffered   *float64 `json:"memoryBuffered,omitempty"`
	MemoryCached     *float64 `json:"memoryCached,omitempty"`
	MemoryConfigured *float64 `json:"memoryConfigured,omitempty"`
	MemorySlabRecl   *float64 `json:"memorySlabRecl,omitempty"`
	MemorySlabUnrecl *float64 `json:"memorySlabUnrecl,omitempty"`
}

// NewMemoryUsage derives the record from a partially known breakdown.
func NewMemoryUsage(vm string, m calc.Memory) MemoryUsage {
	return MemoryUsage{
		VMIdentifier:     vm,
		MemoryFree:       m.FreeValue(),
		MemoryUsed:       m.UsedValue(),
		MemoryBuffered:   m.Buffered,
		MemoryCached:     m.Cached,
		MemoryConfigured: m.Total(),
		MemorySlabRecl:   m.SlabRecl,
		MemorySlabUnrecl: m.SlabUnrecl,
	}
}

// DiskUsage is the diskUsage record of one disk.
type DiskUsage struct {
	DiskIdentifier            string   `json:"diskIdentifier"`
	DiskIoTimeAvg             *float64 `json:"diskIoTimeAvg,omitempty"`
	DiskIoTimeLast            *float64 `json:"diskIoTimeLast,omitempty"`
	DiskIoTimeMax             *float64 `json:"diskIoTimeMax,omitempty"`
	DiskIoTimeMin             *float64 `json:"diskIoTimeMin,omitempty"`
	DiskMergedReadAvg         *float64 `json:"diskMergedReadAvg,omitempty"`
	DiskMergedReadLast        *float64 `json:"diskMergedReadLast,omitempty"`
	DiskMergedReadMax         *float64 `json:"diskMergedReadMax,omitempty"`
	DiskMergedReadMin         *float64 `json:"diskMergedReadMin,omitempty"`
	DiskMergedWriteAvg        *float64 `json:"diskMergedWriteAvg,omitempty"`
	DiskMergedWriteLast       *float64 `json:"diskMergedWriteLast,omitempty"`
	DiskMergedWriteMax        *float64 `json:"diskMergedWriteMax,omitempty"`
	DiskMergedWriteMin        *float64 `json:"diskMergedWriteMin,omitempty"`
	DiskOctetsReadAvg         *float64 `json:"diskOctetsReadAvg,omitempty"`
	DiskOctetsReadLast        *float64 `json:"diskOctetsReadLast,omitempty"`
	DiskOctetsReadMax         *float64 `json:"diskOctetsReadMax,omitempty"`
	DiskOctetsReadMin         *float64 `json:"diskOctetsReadMin,omitempty"`
	DiskOctetsWriteAvg        *float64 `json:"diskOctetsWriteAvg,omitempty"`
	DiskOctetsWriteLast       *float64 `json:"diskOctetsWriteLast,omitempty"`
	DiskOctetsWriteMax        *float64 `json:"diskOctetsWriteMax,omitempty"`
	DiskOctetsWriteMin        *float64 `json:"diskOctetsWriteMin,omitempty"`
	DiskOpsReadAvg            *float64 `json:"diskOpsReadAvg,omitempty"`
	DiskOpsReadLast           *float64 `json:"diskOpsReadLast,omitempty"`
	DiskOpsReadMax            *float64 `json:"diskOpsReadMax,omitempty"`
	DiskOpsReadMin            *float64 `json:"diskOpsReadMin,omitempty"`
	DiskOpsWriteAvg           *float64 `json:"diskOpsWriteAvg,omitempty"`
	DiskOpsWriteLast          *float64 `json:"diskOpsWriteLast,omitempty"`
	DiskOpsWriteMax           *float64 `json:"diskOpsWriteMax,omitempty"`
	DiskOpsWriteMin           *float64 `json:"diskOpsWriteMin,omitempty"`
	DiskPendingOperationsAvg  *float64 `json:"diskPendingOperationsAvg,omitempty"`
	DiskPendingOperationsLast *float64 `json:"diskPendingOperationsLast,omitempty"`
	DiskPendingOperationsMax  *float64 `json:"diskPendingOperationsMax,omitempty"`
	DiskPendingOperationsMin  *float64 `json:"diskPendingOperationsMin,omitempty"`
	DiskTimeReadAvg           *float64 `json:"diskTimeReadAvg,omitempty"`
	DiskTimeReadLast          *float64 `json:"diskTimeReadLast,omitempty"`
	DiskTimeReadMax           *float64 `json:"diskTimeReadMax,omitempty"`
	DiskTimeReadMin           *float64 `json:"diskTimeReadMin,omitempty"`
	DiskTimeWriteAvg          *float64 `json:"diskTimeWriteAvg,omitempty"`
	DiskTimeWriteLast         *float64 `json:"diskTimeWriteLast,omitempty"`
	DiskTimeWriteMax          *float64 `json:"diskTimeWriteMax,omitempty"`
	DiskTimeWriteMin          *float64 `json:"diskTimeWriteMin,omitempty"`
}

// VNicPerformance is the vNicPerformance record of one interface.
type VNicPerformance struct {
	ValuesAreSuspect                       string   `json:"valuesAreSuspect"`
	VNicIdentifier                         string   `json:"vNicIdentifier"`
	ReceivedBroadcastPacketsAccumulated    *float64 `json:"receivedBroadcastPacketsAccumulated,omitempty"`
	ReceivedBroadcastPacketsDelta          *float64 `json:"receivedBroadcastPacketsDelta,omitempty"`
	ReceivedDiscardedPacketsAccumulated    *float64 `json:"receivedDiscardedPacketsAccumulated,omitempty"`
	ReceivedDiscardedPacketsDelta          *float64 `json:"receivedDiscardedPacketsDelta,omitempty"`
	ReceivedErrorPacketsAccumulated        *float64 `json:"receivedErrorPacketsAccumulated,omitempty"`
	ReceivedErrorPacketsDelta              *float64 `json:"receivedErrorPacketsDelta,omitempty"`
	ReceivedMulticastPacketsAccumulated    *float64 `json:"receivedMulticastPacketsAccumulated,omitempty"`
	ReceivedMulticastPacketsDelta          *float64 `json:"receivedMulticastPacketsDelta,omitempty"`
	ReceivedOctetsAccumulated              *float64 `json:"receivedOctetsAccumulated,omitempty"`
	ReceivedOctetsDelta                    *float64 `json:"receivedOctetsDelta,omitempty"`
	ReceivedTotalPacketsAccumulated        *float64 `json:"receivedTotalPacketsAccumulated,omitempty"`
	ReceivedTotalPacketsDelta              *float64 `json:"receivedTotalPacketsDelta,omitempty"`
	ReceivedUnicastPacketsAccumulated      *float64 `json:"receivedUnicastPacketsAccumulated,omitempty"`
	ReceivedUnicastPacketsDelta            *float64 `json:"receivedUnicastPacketsDelta,omitempty"`
	TransmittedBroadcastPacketsAccumulated *float64 `json:"transmittedBroadcastPacketsAccumulated,omitempty"`
	TransmittedBroadcastPacketsDelta       *float64 `json:"transmittedBroadcastPacketsDelta,omitempty"`
	TransmittedDiscardedPacketsAccumulated *float64 `json:"transmittedDiscardedPacketsAccumulated,omitempty"`
	TransmittedDiscardedPacketsDelta       *float64 `json:"transmittedDiscardedPacketsDelta,omitempty"`
	TransmittedErrorPacketsAccumulated     *float64 `json:"transmittedErrorPacketsAccumulated,omitempty"`
	TransmittedErrorPacketsDelta           *float64 `json:"transmittedErrorPacketsDelta,omitempty"`
	TransmittedMulticastPacketsAccumulated *float64 `json:"transmittedMulticastPacketsAccumulated,omitempty"`
	TransmittedMulticastPacketsDelta       *float64 `json:"transmittedMulticastPacketsDelta,omitempty"`
	TransmittedOctetsAccumulated           *float64 `json:"transmittedOctetsAccumulated,omitempty"`
	TransmittedOctetsDelta                 *float64 `json:"transmittedOctetsDelta,omitempty"`
	TransmittedTotalPacketsAccumulated     *float64 `json:"transmittedTotalPacketsAccumulated,omitempty"`
	TransmittedTotalPacketsDelta           *float64 `json:"transmittedTotalPacketsDelta,omitempty"`
	TransmittedUnicastPacketsAccumulated   *float64 `json:"transmittedUnicastPacketsAccumulated,omitempty"`
	TransmittedUnicastPacketsDelta         *float64 `json:"transmittedUnicastPacketsDelta,omitempty"`
}

func NewVNicPerformance(id string) VNicPerformance {
	return VNicPerformance{ValuesAreSuspect: "true", VNicIdentifier: id}
}
