package ports

import (
	"context"

	"github.com/ghalamif/vesagent/internal/ves"
)

// Sink delivers one event to the event listener.
type Sink interface {
	Send(ctx context.Context, e ves.Event) error
	Name() string
}

// Archive records dispatched events for later inspection.
type Archive interface {
	WriteBatch(events []ves.Event) error
	Name() string
}
