// Package virt polls libvirt domain statistics and reports them as the value
// lists of collectd's virt plugin.
package virt

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/digitalocean/go-libvirt"

	"github.com/ghalamif/vesagent/internal/ports"
)

const (
	statsState     = 1
	statsCPUTotal  = 2
	statsBalloon   = 4
	statsVCPU      = 8
	statsInterface = 16
	statsBlock     = 32

	statsAll = statsState | statsCPUTotal | statsBalloon | statsVCPU | statsInterface | statsBlock

	// running domains only; stopped ones have no counters to report
	fetchActive = 1
)

const defaultSocket = "/var/run/libvirt/libvirt-sock"

type LocalDialer struct {
	SocketPath string
}

func (d *LocalDialer) Dial() (net.Conn, error) {
	return net.DialTimeout("unix", d.SocketPath, 2*time.Second)
}

// SocketPath resolves a libvirt URI to the unix socket of the daemon.
func SocketPath(uri string) (string, error) {
	uri = strings.TrimSpace(uri)
	switch {
	case uri == "", uri == "qemu:///system":
		return defaultSocket, nil
	case strings.HasPrefix(uri, "/"):
		return uri, nil
	}

	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("unsupported libvirt uri %q: %w", uri, err)
	}
	if sock := u.Query().Get("socket"); sock != "" {
		return sock, nil
	}
	if strings.Contains(u.Scheme, "unix") {
		if u.Path != "" && u.Path != "/system" {
			return u.Path, nil
		}
		return defaultSocket, nil
	}
	return "", fmt.Errorf("unsupported libvirt uri %q (use qemu:///system or ?socket=/path)", uri)
}

// Poller reads all domain stats every interval and feeds them to the ingestor.
type Poller struct {
	uri      string
	hostname string
	interval time.Duration
	obs      ports.Observability

	mu   sync.Mutex
	conn *libvirt.Libvirt
	stop chan struct{}
	wg   sync.WaitGroup
}

var _ ports.Collector = (*Poller)(nil)

func NewPoller(uri, hostname string, interval time.Duration, obs ports.Observability) *Poller {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Poller{uri: uri, hostname: hostname, interval: interval, obs: obs}
}

func (p *Poller) connect() (*libvirt.Libvirt, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn != nil {
		return p.conn, nil
	}
	sock, err := SocketPath(p.uri)
	if err != nil {
		return nil, err
	}
	l := libvirt.NewWithDialer(&LocalDialer{SocketPath: sock})
	if err := l.Connect(); err != nil {
		return nil, fmt.Errorf("connect libvirt %s: %w", sock, err)
	}
	p.conn = l
	return l, nil
}

func (p *Poller) disconnect() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn == nil {
		return nil
	}
	err := p.conn.Disconnect()
	p.conn = nil
	return err
}

func (p *Poller) Start(ing ports.Ingestor) error {
	if _, err := p.connect(); err != nil {
		return err
	}
	p.stop = make(chan struct{})
	p.wg.Add(1)
	go p.run(ing)
	p.obs.LogInfo("libvirt_poller_started",
		ports.Field{Key: "uri", Value: p.uri},
		ports.Field{Key: "interval", Value: p.interval.String()})
	return nil
}

func (p *Poller) run(ing ports.Ingestor) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.poll(ing)
	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			p.poll(ing)
		}
	}
}

func (p *Poller) poll(ing ports.Ingestor) {
	conn, err := p.connect()
	if err != nil {
		p.obs.LogError("libvirt_connect_failed", err)
		return
	}

	records, err := conn.ConnectGetAllDomainStats(nil, statsAll, fetchActive)
	if err != nil {
		p.obs.LogError("libvirt_domain_stats_failed", err)
		// reconnect on the next tick
		_ = p.disconnect()
		return
	}

	now := time.Now()
	for _, rec := range records {
		for _, vl := range DomainValueLists(p.hostname, rec.Dom.Name, rec.Params, now, p.interval) {
			ing.OnSample(vl)
		}
	}
	p.obs.LogDebug("libvirt_poll_done", ports.Field{Key: "domains", Value: len(records)})
}

func (p *Poller) Stop() error {
	if p.stop != nil {
		close(p.stop)
		p.wg.Wait()
		p.stop = nil
	}
	if err := p.disconnect(); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}
