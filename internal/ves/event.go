// Package ves models the VES 5.x event listener schema.
//
// Required fields are plain values and are always serialized. Optional fields
// are pointers tagged omitempty, so a key is emitted only when a value is set.
package ves

import (
	"encoding/json"
	"strconv"
	"time"
)

const (
	DomainMeasurements = "measurementsForVfScaling"
	DomainFault        = "fault"

	headerVersion = 2.0
)

// Event is one outbound record: a common header plus a domain-specific body.
type Event interface {
	Header() *CommonEventHeader
	// FieldsName is the JSON key the body is published under.
	FieldsName() string
	Body() any
}

// CommonEventHeader is shared by every event domain.
type CommonEventHeader struct {
	Version              float64           `json:"version"`
	EventType            string            `json:"eventType"`
	Domain               string            `json:"domain"`
	EventID              string            `json:"eventId"`
	SourceID             string            `json:"sourceId"`
	SourceName           string            `json:"sourceName"`
	FunctionalRole       string            `json:"functionalRole"`
	ReportingEntityID    string            `json:"reportingEntityId"`
	ReportingEntityName  string            `json:"reportingEntityName"`
	Priority             string            `json:"priority"`
	StartEpochMicrosec   int64             `json:"startEpochMicrosec"`
	LastEpochMicrosec    int64             `json:"lastEpochMicrosec"`
	Sequence             uint64            `json:"sequence"`
	EventName            string            `json:"eventName"`
	InternalHeaderFields map[string]string `json:"internalHeaderFields"`
	NfcNamingCode        string            `json:"nfcNamingCode"`
	NfNamingCode         string            `json:"nfNamingCode"`
}

func newHeader(domain, eventType string, seq uint64) CommonEventHeader {
	return CommonEventHeader{
		Version:              headerVersion,
		EventType:            eventType,
		Domain:               domain,
		EventID:              strconv.FormatUint(seq, 10),
		Priority:             "Normal",
		Sequence:             seq,
		InternalHeaderFields: map[string]string{},
	}
}

// SetSource sets both the id and the name of the event source.
func (h *CommonEventHeader) SetSource(name string) {
	h.SourceID = name
	h.SourceName = name
}

// SetReportingEntity sets both the id and the name of the reporting entity.
func (h *CommonEventHeader) SetReportingEntity(name string) {
	h.ReportingEntityID = name
	h.ReportingEntityName = name
}

// SetWindow sets the start/last timestamps.
func (h *CommonEventHeader) SetWindow(start, last time.Time) {
	h.StartEpochMicrosec = EpochMicrosec(start)
	h.LastEpochMicrosec = EpochMicrosec(last)
}

// EpochMicrosec converts t to microseconds since the Unix epoch.
func EpochMicrosec(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMicro()
}

// Marshal renders the listener payload {"event": {"commonEventHeader": ..., <fields>: ...}}.
func Marshal(e Event) ([]byte, error) {
	return json.Marshal(map[string]any{
		"event": map[string]any{
			"commonEventHeader": e.Header(),
			e.FieldsName():      e.Body(),
		},
	})
}

// Field is a name/value pair.
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// NamedArrayOfFields groups fields under a name.
type NamedArrayOfFields struct {
	Name          string  `json:"name"`
	ArrayOfFields []Field `json:"arrayOfFields"`
}

func NewNamedArray(name string) NamedArrayOfFields {
	return NamedArrayOfFields{Name: name, ArrayOfFields: []Field{}}
}

func (n *NamedArrayOfFields) Add(name, value string) {
	n.ArrayOfFields = append(n.ArrayOfFields, Field{Name: name, Value: value})
}
