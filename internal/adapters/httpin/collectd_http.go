// Package httpin receives collectd write_http JSON posts.
package httpin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ghalamif/vesagent/internal/domain"
	"github.com/ghalamif/vesagent/internal/ports"
)

const maxBodyBytes = 4 << 20

// record is one element of a write_http JSON array. Value lists and
// notifications share the endpoint; a non-empty severity marks a notification.
type record struct {
	Values         []*float64 `json:"values"`
	DSTypes        []string   `json:"dstypes"`
	DSNames        []string   `json:"dsnames"`
	Time           float64    `json:"time"`
	Interval       float64    `json:"interval"`
	Host           string     `json:"host"`
	Plugin         string     `json:"plugin"`
	PluginInstance string     `json:"plugin_instance"`
	Type           string     `json:"type"`
	TypeInstance   string     `json:"type_instance"`
	Severity       string     `json:"severity"`
	Message        string     `json:"message"`
}

func epoch(sec float64) time.Time {
	if sec <= 0 {
		return time.Now()
	}
	whole, frac := math.Modf(sec)
	return time.Unix(int64(whole), int64(frac*1e9))
}

func (r record) valueList() (*domain.ValueList, error) {
	values := make([]float64, len(r.Values))
	for i, v := range r.Values {
		if v == nil {
			return nil, fmt.Errorf("value %d of %s/%s is undefined", i, r.Plugin, r.Type)
		}
		values[i] = *v
	}
	return &domain.ValueList{
		Host:           r.Host,
		Plugin:         r.Plugin,
		PluginInstance: r.PluginInstance,
		Type:           r.Type,
		TypeInstance:   r.TypeInstance,
		Values:         values,
		DSNames:        r.DSNames,
		Time:           epoch(r.Time),
		Interval:       time.Duration(r.Interval * float64(time.Second)),
	}, nil
}

func (r record) notification() (*domain.Notification, error) {
	sev, err := domain.ParseSeverity(r.Severity)
	if err != nil {
		return nil, err
	}
	return &domain.Notification{
		Host:           r.Host,
		Plugin:         r.Plugin,
		PluginInstance: r.PluginInstance,
		Type:           r.Type,
		TypeInstance:   r.TypeInstance,
		Severity:       sev,
		Time:           epoch(r.Time),
		Message:        r.Message,
	}, nil
}

// decodeRecords accepts a JSON array of records or a single record.
func decodeRecords(body []byte) ([]record, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, errors.New("empty body")
	}
	if body[0] == '{' {
		var one record
		if err := json.Unmarshal(body, &one); err != nil {
			return nil, err
		}
		return []record{one}, nil
	}
	var many []record
	if err := json.Unmarshal(body, &many); err != nil {
		return nil, err
	}
	return many, nil
}

type CollectdHTTP struct {
	addr string
	obs  ports.Observability

	srv *http.Server
}

var _ ports.Collector = (*CollectdHTTP)(nil)

func NewCollectdHTTP(addr string, obs ports.Observability) *CollectdHTTP {
	return &CollectdHTTP{addr: addr, obs: obs}
}

// Router builds the ingest routes feeding ing.
func (c *CollectdHTTP) Router(ing ports.Ingestor) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Post("/collectd", c.handle(ing, false))
	r.Post("/notify", c.handle(ing, true))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

func (c *CollectdHTTP) handle(ing ports.Ingestor, notifyOnly bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		if err != nil {
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}
		records, err := decodeRecords(body)
		if err != nil {
			c.obs.LogWarn("ingest_decode_failed",
				ports.Field{Key: "remote", Value: r.RemoteAddr},
				ports.Field{Key: "error", Value: err.Error()})
			http.Error(w, "Bad Request: cannot parse JSON", http.StatusBadRequest)
			return
		}

		rejected := 0
		for _, rec := range records {
			if notifyOnly || rec.Severity != "" {
				n, err := rec.notification()
				if err != nil {
					rejected++
					c.obs.LogWarn("ingest_notification_rejected", ports.Field{Key: "error", Value: err.Error()})
					continue
				}
				ing.OnNotification(n)
				continue
			}
			vl, err := rec.valueList()
			if err != nil {
				rejected++
				c.obs.LogWarn("ingest_sample_rejected", ports.Field{Key: "error", Value: err.Error()})
				continue
			}
			ing.OnSample(vl)
		}

		if rejected == len(records) && rejected > 0 {
			http.Error(w, "Bad Request: no usable records", http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (c *CollectdHTTP) Start(ing ports.Ingestor) error {
	ln, err := net.Listen("tcp", c.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", c.addr, err)
	}
	c.srv = &http.Server{
		Handler:           c.Router(ing),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := c.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.obs.LogError("ingest_server_failed", err)
		}
	}()
	c.obs.LogInfo("ingest_server_started", ports.Field{Key: "addr", Value: ln.Addr().String()})
	return nil
}

func (c *CollectdHTTP) Stop() error {
	if c.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return c.srv.Shutdown(ctx)
}
