package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/ghalamif/vesagent/internal/adapters/sink"
	"github.com/ghalamif/vesagent/internal/ves"
)

func TestDispatchContinuesAfterFailures(t *testing.T) {
	s := &mockSink{errs: []error{
		&sink.ListenerError{StatusCode: 400, Status: "400 Bad Request"},
		fmt.Errorf("%w: refused", sink.ErrListenerUnreachable),
		errBoom,
	}}
	obs := &mockObs{}
	events := []ves.Event{ves.NewFault(1), ves.NewFault(2), ves.NewFault(3), ves.NewMeasurement(4)}

	if sent := Dispatch(context.Background(), events, s, nil, obs); sent != 1 {
		t.Fatalf("expected 1 accepted event, got %d", sent)
	}
	if len(s.sent) != 4 {
		t.Fatalf("expected every event to be attempted, got %d", len(s.sent))
	}
	for _, reason := range []string{sink.ReasonHTTPStatus, sink.ReasonUnreachable, sink.ReasonOther} {
		if got := obs.counter("ves_send_failures_total{" + reason + "}"); got != 1 {
			t.Fatalf("expected 1 failure for %s, got %v", reason, got)
		}
	}
	if got := obs.counter("ves_events_sent_total"); got != 1 {
		t.Fatalf("expected sent counter 1, got %v", got)
	}
	if len(obs.errors) != 3 {
		t.Fatalf("expected 3 logged errors, got %d", len(obs.errors))
	}
}

func TestDispatchArchivesEvents(t *testing.T) {
	s := &mockSink{}
	archive := &mockArchive{}
	obs := &mockObs{}
	events := []ves.Event{ves.NewFault(1), ves.NewFault(2)}

	Dispatch(context.Background(), events, s, archive, obs)
	if len(archive.batches) != 1 || len(archive.batches[0]) != 2 {
		t.Fatalf("expected one archived batch of 2, got %+v", archive.batches)
	}
}

func TestDispatchArchiveFailureIsLogged(t *testing.T) {
	archive := &mockArchive{err: errors.New("db down")}
	obs := &mockObs{}

	if sent := Dispatch(context.Background(), []ves.Event{ves.NewFault(1)}, &mockSink{}, archive, obs); sent != 1 {
		t.Fatalf("archive failure must not affect sent count, got %d", sent)
	}
	if got := obs.counter("ves_archive_failures_total"); got != 1 {
		t.Fatalf("expected archive failure counter 1, got %v", got)
	}
}

func TestDispatchNoEvents(t *testing.T) {
	archive := &mockArchive{}
	if sent := Dispatch(context.Background(), nil, &mockSink{}, archive, &mockObs{}); sent != 0 {
		t.Fatalf("expected 0, got %d", sent)
	}
	if len(archive.batches) != 0 {
		t.Fatalf("expected no archive write for empty dispatch")
	}
}
