// Command basic forwards libvirt VM stats to an event listener without a
// collectd daemon in front of the agent.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/ghalamif/vesagent"
)

func main() {
	cfgPath := flag.String("config", "../../data/config.yaml", "agent configuration")
	libvirtURI := flag.String("libvirt", "qemu:///system", "libvirt daemon to poll")
	listener := flag.String("listener", "127.0.0.1", "event listener host")
	port := flag.Int("port", 30000, "event listener port")
	flag.Parse()

	flow, err := vesagent.Conf(*cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = flow.
		StreamIN(
			vesagent.StreamInIngest(""),
			vesagent.StreamInLibvirt(*libvirtURI, 10*time.Second),
		).
		Run(ctx, vesagent.StreamOutListener(map[string]any{
			"Domain":            *listener,
			"Port":              *port,
			"SendEventInterval": 10,
		}))
	if err != nil {
		log.Fatalf("agent exited: %v", err)
	}
}
