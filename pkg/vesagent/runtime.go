package vesagent

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ghalamif/vesagent/internal/adapters/httpin"
	"github.com/ghalamif/vesagent/internal/adapters/observability"
	"github.com/ghalamif/vesagent/internal/adapters/sink"
	"github.com/ghalamif/vesagent/internal/adapters/virt"
	"github.com/ghalamif/vesagent/internal/app/engine"
	"github.com/ghalamif/vesagent/internal/app/pipeline"
	"github.com/ghalamif/vesagent/internal/domain"
	"github.com/ghalamif/vesagent/internal/ports"
)

// RuntimeOption customizes the dependencies used by Runtime.
type RuntimeOption func(*runtimeOverrides)

type runtimeOverrides struct {
	collectors    []Collector
	sink          Sink
	archive       Archive
	observability Observability
}

// WithCollector adds a sample source. It may be given more than once; when any
// collector is supplied the built-in write_http receiver and libvirt poller are
// not created.
func WithCollector(col Collector) RuntimeOption {
	return func(o *runtimeOverrides) {
		if col != nil {
			o.collectors = append(o.collectors, col)
		}
	}
}

// WithSink replaces the HTTP event listener sink, e.g. to capture events in tests
// or forward them to another transport.
func WithSink(s Sink) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.sink = s
	}
}

// WithArchive records every dispatched event in a caller-provided store instead
// of the Postgres archive configured under archive.conn_string.
func WithArchive(a Archive) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.archive = a
	}
}

// WithObservability plugs in a custom logging and metrics backend.
func WithObservability(obs Observability) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.observability = obs
	}
}

// Runtime wires collectors → engine → event listener and exposes simple
// lifecycle hooks for embedding the agent inside any Go service.
type Runtime struct {
	cfg        *Config
	obs        ports.Observability
	logger     *zap.Logger
	registry   *prometheus.Registry
	engine     *engine.Engine
	collectors []ports.Collector
	sink       ports.Sink
	archive    ports.Archive
	db         *sql.DB

	metricsSrv  *http.Server
	gaugeStopCh chan struct{}
}

var _ Ingestor = (*Runtime)(nil)

// NewRuntime bootstraps the default adapters (collectd write_http receiver,
// libvirt poller when libvirt.uri is set, Postgres archive when
// archive.conn_string is set, zap + Prometheus observability). RuntimeOption
// values override any of them.
func NewRuntime(cfg *Config, opts ...RuntimeOption) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	var overrides runtimeOverrides
	for _, opt := range opts {
		if opt != nil {
			opt(&overrides)
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	var logger *zap.Logger
	obs := overrides.observability
	if obs == nil {
		var err error
		logger, err = observability.NewLogger(cfg.Agent.LogLevel)
		if err != nil {
			return nil, err
		}
		obs = observability.NewPromObs(logger, reg)
	}

	cols := overrides.collectors
	if len(cols) == 0 {
		if !cfg.Ingest.Disabled {
			cols = append(cols, httpin.NewCollectdHTTP(cfg.Ingest.Addr, obs))
		}
		if cfg.Libvirt.URI != "" {
			cols = append(cols, virt.NewPoller(cfg.Libvirt.URI, cfg.Agent.Hostname, cfg.Libvirt.Interval, obs))
		}
	}

	var (
		db      *sql.DB
		archive ports.Archive
	)
	switch {
	case overrides.archive != nil:
		archive = overrides.archive
	case cfg.Archive.ConnString != "":
		var err error
		db, err = sql.Open("postgres", cfg.Archive.ConnString)
		if err != nil {
			return nil, err
		}
		archive = sink.NewTimescaleArchive(db, cfg.Archive.Table)
	}

	eng := engine.New(engine.Options{
		Plugin:   cfg.Plugin,
		Hostname: cfg.Agent.Hostname,
		Sink:     overrides.sink,
		Archive:  archive,
		Obs:      obs,
	})

	return &Runtime{
		cfg:        cfg,
		obs:        obs,
		logger:     logger,
		registry:   reg,
		engine:     eng,
		collectors: cols,
		sink:       overrides.sink,
		archive:    archive,
		db:         db,
	}, nil
}

// Start arms the export schedule, starts every collector and launches the
// metrics server. It returns immediately; call Run to block on a context instead.
func (r *Runtime) Start() error {
	if r == nil {
		return fmt.Errorf("runtime is nil")
	}
	if err := r.engine.Start(); err != nil {
		return err
	}
	if err := pipeline.StartCollectors(r.collectors, r.engine, r.obs); err != nil {
		_ = r.engine.Shutdown(context.Background())
		return err
	}

	r.startMetrics()
	return nil
}

// Run starts the runtime and blocks until the provided context is cancelled.
// Upon cancellation it attempts a graceful shutdown.
func (r *Runtime) Run(ctx context.Context) error {
	if err := r.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.Shutdown(shutdownCtx)
}

// Shutdown stops the metrics server, the collectors, the export schedule and
// the archive connection.
func (r *Runtime) Shutdown(ctx context.Context) error {
	var errs []error

	if r.gaugeStopCh != nil {
		close(r.gaugeStopCh)
		r.gaugeStopCh = nil
	}

	if r.metricsSrv != nil {
		if err := r.metricsSrv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs = append(errs, err)
		}
	}

	if err := pipeline.StopCollectors(r.collectors); err != nil {
		errs = append(errs, err)
	}

	if err := r.engine.Shutdown(ctx); err != nil && !errors.Is(err, engine.ErrNotRunning) {
		errs = append(errs, err)
	}

	if r.db != nil {
		if err := r.db.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if r.logger != nil {
		_ = r.logger.Sync()
	}

	return errors.Join(errs...)
}

// Configure applies plugin keys before Start.
func (r *Runtime) Configure(values map[string]any) error {
	return r.engine.Configure(values)
}

// Plugin returns the effective event listener settings.
func (r *Runtime) Plugin() PluginConfig {
	return r.engine.Plugin()
}

// Stats reports the engine's cache and sequence state.
func (r *Runtime) Stats() Stats {
	return r.engine.Stats()
}

// OnSample feeds one value list into the sample cache, for callers that
// collect samples themselves.
func (r *Runtime) OnSample(vl *domain.ValueList) {
	r.engine.OnSample(vl)
}

// OnNotification turns n into a fault event and sends it immediately.
func (r *Runtime) OnNotification(n *domain.Notification) {
	r.engine.OnNotification(n)
}

// Flush runs one export cycle now and returns the number of accepted events.
func (r *Runtime) Flush(ctx context.Context) int {
	return r.engine.RunCycle(ctx)
}

// MetricsHandler serves the runtime's Prometheus registry.
func (r *Runtime) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Runtime) startMetrics() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.MetricsHandler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.metricsSrv = &http.Server{
		Addr:              r.cfg.Metrics.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	srv := r.metricsSrv
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.obs.LogError("metrics_server_exited", err)
		}
	}()

	r.gaugeStopCh = make(chan struct{})
	go r.recordResourceGauges(r.gaugeStopCh, time.Second)
}

func (r *Runtime) recordResourceGauges(stop <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			r.obs.SetGauge(observability.MetricCacheSeries, float64(r.engine.Stats().Series))
		}
	}
}
