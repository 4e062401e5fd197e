package pipeline

import (
	"context"
	"time"

	"github.com/ghalamif/vesagent/internal/adapters/sink"
	"github.com/ghalamif/vesagent/internal/ports"
	"github.com/ghalamif/vesagent/internal/ves"
)

// Dispatch posts events in order and returns how many the listener accepted.
// It must run without the engine lock held. A failed send is logged, counted
// by reason and dropped; it never stops the remaining events. When archive is
// non-nil every dispatched event is written to it afterwards.
func Dispatch(ctx context.Context, events []ves.Event, s ports.Sink, archive ports.Archive, obs ports.Observability) int {
	if len(events) == 0 {
		return 0
	}

	sent := 0
	for _, e := range events {
		h := e.Header()
		start := time.Now()
		if err := s.Send(ctx, e); err != nil {
			reason := sink.FailureReason(err)
			obs.IncCounter("ves_send_failures_total", 1, reason)
			obs.LogError("event_send_failed", err,
				ports.Field{Key: "sink", Value: s.Name()},
				ports.Field{Key: "domain", Value: h.Domain},
				ports.Field{Key: "source", Value: h.SourceName},
				ports.Field{Key: "sequence", Value: h.Sequence},
				ports.Field{Key: "reason", Value: reason})
			continue
		}
		obs.ObserveLatency("ves_send_latency_seconds", time.Since(start).Seconds())
		obs.IncCounter("ves_events_sent_total", 1)
		obs.LogDebug("event_sent",
			ports.Field{Key: "domain", Value: h.Domain},
			ports.Field{Key: "source", Value: h.SourceName},
			ports.Field{Key: "sequence", Value: h.Sequence})
		sent++
	}

	if archive != nil {
		if err := archive.WriteBatch(events); err != nil {
			obs.IncCounter("ves_archive_failures_total", 1)
			obs.LogError("archive_write_failed", err,
				ports.Field{Key: "archive", Value: archive.Name()},
				ports.Field{Key: "events", Value: len(events)})
		}
	}
	return sent
}
