package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/ghalamif/vesagent"
)

func main() {
	flow, err := vesagent.Conf("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sink, events, closeEvents := vesagent.NewChannelSink("fanout", 32)
	defer closeEvents()

	go fanoutWorker("listener", events)

	if err := flow.Run(ctx, vesagent.StreamOutSink(sink)); err != nil && err != context.Canceled {
		log.Fatalf("runtime error: %v", err)
	}
}

func fanoutWorker(name string, events <-chan vesagent.Event) {
	for e := range events {
		h := e.Header()
		fmt.Printf("[%s] %s event seq=%d source=%s at %s\n",
			name, h.Domain, h.Sequence, h.SourceName, time.Now().Format(time.RFC3339))
	}
}
