package vesagent

import (
	"github.com/ghalamif/vesagent/internal/app/engine"
	"github.com/ghalamif/vesagent/internal/domain"
	"github.com/ghalamif/vesagent/internal/ports"
	"github.com/ghalamif/vesagent/internal/ves"
)

// ValueList is one collectd sample: a plugin/type identity plus its values.
type ValueList = domain.ValueList

// Notification is a collectd notification; it becomes a fault event.
type Notification = domain.Notification

// Severity is a notification severity.
type Severity = domain.Severity

const (
	SeverityFailure = domain.SeverityFailure
	SeverityWarning = domain.SeverityWarning
	SeverityOkay    = domain.SeverityOkay
)

// Ingestor receives samples and notifications from collectors.
type Ingestor = ports.Ingestor

// Collector feeds samples from any source (write_http, libvirt, simulators, etc.) into the agent.
type Collector = ports.Collector

// Sink delivers one event; the default posts it to the VES event listener.
type Sink = ports.Sink

// Archive persists dispatched events for audit.
type Archive = ports.Archive

// Observability emits logs and metrics about ingestion and delivery.
type Observability = ports.Observability

// Field is a structured log field used by Observability implementations.
type Field = ports.Field

// Event is an outbound VES event (measurement or fault).
type Event = ves.Event

// Stats is a point-in-time view of the engine state.
type Stats = engine.Stats

// MarshalEvent renders e in the listener's {"event": {...}} envelope.
func MarshalEvent(e Event) ([]byte, error) {
	return ves.Marshal(e)
}
