package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/ghalamif/vesagent/pkg/vesagent"
)

func main() {
	flow, err := vesagent.Conf("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// print events instead of posting them to a listener
	callback := func(_ context.Context, e vesagent.Event) error {
		raw, err := vesagent.MarshalEvent(e)
		if err != nil {
			return err
		}
		fmt.Println(string(raw))
		return nil
	}

	if err := flow.Run(ctx, vesagent.StreamOutCallback("stdout", callback)); err != nil && err != context.Canceled {
		log.Fatalf("runtime error: %v", err)
	}
}
