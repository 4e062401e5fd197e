package pipeline

import (
	"github.com/ghalamif/vesagent/internal/domain"
	"github.com/ghalamif/vesagent/internal/ves"
)

var faultSeverity = map[domain.Severity]string{
	domain.SeverityFailure: ves.SeverityCritical,
	domain.SeverityWarning: ves.SeverityWarning,
	domain.SeverityOkay:    ves.SeverityNormal,
}

// BuildFault converts a notification into a fault event. Notifications from
// virt are attributed to the VM, everything else to the host.
func (a *Assembler) BuildFault(n *domain.Notification, seq uint64) *ves.Fault {
	f := ves.NewFault(seq)

	h := f.Header()
	h.FunctionalRole = a.FunctionalRole
	h.SetReportingEntity(a.Hostname)
	if n.Plugin == VirtSource {
		h.SetSource(n.PluginInstance)
	} else {
		h.SetSource(a.Hostname)
	}
	h.SetWindow(n.Time, n.Time)

	severity, ok := faultSeverity[n.Severity]
	if !ok {
		severity = ves.SeverityNormal
	}
	f.Fields.EventSeverity = severity
	f.Fields.SpecificProblem = dash(n.PluginInstance, n.TypeInstance)
	f.Fields.AlarmInterfaceA = dash(n.Plugin, n.PluginInstance)
	f.Fields.EventSourceType = "host(3)"
	f.Fields.AlarmCondition = n.Message
	return f
}
