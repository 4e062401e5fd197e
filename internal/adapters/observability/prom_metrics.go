package observability

import (
	"github.com/ghalamif/vesagent/internal/ports"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Metric names recorded by the agent.
const (
	MetricSamplesIngested = "ves_samples_ingested_total"
	MetricSamplesDropped  = "ves_samples_dropped_total"
	MetricNotifications   = "ves_notifications_total"
	MetricEventsSent      = "ves_events_sent_total"
	MetricSendFailures    = "ves_send_failures_total"
	MetricVMSkipped       = "ves_vm_skipped_total"
	MetricArchiveFailures = "ves_archive_failures_total"
	MetricCacheSeries     = "ves_cache_series"
	MetricSendLatency     = "ves_send_latency_seconds"
)

type PromObs struct {
	log      *zap.Logger
	counters map[string]prometheus.Counter
	vecs     map[string]*prometheus.CounterVec
	gauges   map[string]prometheus.Gauge
	histos   map[string]prometheus.Observer
}

var _ ports.Observability = (*PromObs)(nil)

// NewPromObs registers the agent metrics on reg, or on the default registerer
// when reg is nil. A nil logger discards log output.
func NewPromObs(log *zap.Logger, reg prometheus.Registerer) *PromObs {
	if log == nil {
		log = zap.NewNop()
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	ingested := prometheus.NewCounter(prometheus.CounterOpts{
		Name: MetricSamplesIngested,
		Help: "Value lists recorded into the sample cache.",
	})
	dropped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: MetricSamplesDropped,
		Help: "Value lists dropped because they were older than the cached sample.",
	})
	notifications := prometheus.NewCounter(prometheus.CounterOpts{
		Name: MetricNotifications,
		Help: "Notifications turned into fault events.",
	})
	sent := prometheus.NewCounter(prometheus.CounterOpts{
		Name: MetricEventsSent,
		Help: "Events accepted by the event listener.",
	})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: MetricSendFailures,
		Help: "Events the event listener did not accept, by reason.",
	}, []string{"reason"})
	skipped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: MetricVMSkipped,
		Help: "VMs skipped in a cycle because their samples were stale or missing.",
	})
	archiveFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: MetricArchiveFailures,
		Help: "Failed archive writes of dispatched events.",
	})
	series := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: MetricCacheSeries,
		Help: "Series currently held in the sample cache.",
	})
	latency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    MetricSendLatency,
		Help:    "Time spent posting one event to the listener.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	})

	reg.MustRegister(ingested, dropped, notifications, sent, failures, skipped, archiveFailures, series, latency)

	return &PromObs{
		log: log,
		counters: map[string]prometheus.Counter{
			MetricSamplesIngested: ingested,
			MetricSamplesDropped:  dropped,
			MetricNotifications:   notifications,
			MetricEventsSent:      sent,
			MetricVMSkipped:       skipped,
			MetricArchiveFailures: archiveFailures,
		},
		vecs: map[string]*prometheus.CounterVec{
			MetricSendFailures: failures,
		},
		gauges: map[string]prometheus.Gauge{
			MetricCacheSeries: series,
		},
		histos: map[string]prometheus.Observer{
			MetricSendLatency: latency,
		},
	}
}

func (p *PromObs) LogDebug(msg string, fields ...ports.Field) {
	p.log.Debug(msg, zapFields(fields)...)
}

func (p *PromObs) LogInfo(msg string, fields ...ports.Field) {
	p.log.Info(msg, zapFields(fields)...)
}

func (p *PromObs) LogWarn(msg string, fields ...ports.Field) {
	p.log.Warn(msg, zapFields(fields)...)
}

func (p *PromObs) LogError(msg string, err error, fields ...ports.Field) {
	zf := zapFields(fields)
	if err != nil {
		zf = append(zf, zap.Error(err))
	}
	p.log.Error(msg, zf...)
}

// IncCounter adds v to the named counter. Labels are only used by labeled
// counters and must match their label count.
func (p *PromObs) IncCounter(name string, v float64, labels ...string) {
	if c, ok := p.counters[name]; ok {
		c.Add(v)
		return
	}
	if vec, ok := p.vecs[name]; ok {
		c, err := vec.GetMetricWithLabelValues(labels...)
		if err != nil {
			p.log.Warn("metric_label_mismatch", zap.String("metric", name), zap.Error(err))
			return
		}
		c.Add(v)
	}
}

func (p *PromObs) ObserveLatency(name string, seconds float64) {
	if h, ok := p.histos[name]; ok {
		h.Observe(seconds)
	}
}

func (p *PromObs) SetGauge(name string, v float64) {
	if g, ok := p.gauges[name]; ok {
		g.Set(v)
	}
}

func zapFields(fields []ports.Field) []zap.Field {
	out := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		out = append(out, zap.Any(f.Key, f.Value))
	}
	return out
}
