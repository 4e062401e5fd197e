package ves

const faultFieldsVersion = 1.1

// Fault is a fault-domain event.
type Fault struct {
	header CommonEventHeader
	Fields FaultFields
}

// FaultFields is the faultFields body.
type FaultFields struct {
	FaultFieldsVersion         float64 `json:"faultFieldsVersion"`
	EventSeverity              string  `json:"eventSeverity"`
	EventSourceType            string  `json:"eventSourceType"`
	AlarmCondition             string  `json:"alarmCondition"`
	SpecificProblem            string  `json:"specificProblem"`
	VfStatus                   string  `json:"vfStatus"`
	AlarmInterfaceA            string  `json:"alarmInterfaceA"`
	AlarmAdditionalInformation []Field `json:"alarmAdditionalInformation"`
	EventCategory              string  `json:"eventCategory"`
}

// Event severities understood by the listener.
const (
	SeverityCritical = "CRITICAL"
	SeverityWarning  = "WARNING"
	SeverityNormal   = "NORMAL"
)

// NewFault returns a Notification fault event carrying sequence id seq.
func NewFault(seq uint64) *Fault {
	return &Fault{
		header: newHeader(DomainFault, "Notification", seq),
		Fields: FaultFields{
			FaultFieldsVersion:         faultFieldsVersion,
			EventSeverity:              SeverityNormal,
			EventSourceType:            "other(0)",
			VfStatus:                   "Active",
			AlarmAdditionalInformation: []Field{},
		},
	}
}

func (f *Fault) Header() *CommonEventHeader { return &f.header }
func (f *Fault) FieldsName() string         { return "faultFields" }
func (f *Fault) Body() any                  { return &f.Fields }

var (
	_ Event = (*Measurement)(nil)
	_ Event = (*Fault)(nil)
)
