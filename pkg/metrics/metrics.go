// Package metrics exports client counters and the latest statistic values
// in Prometheus format.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"swstat/pkg/protocol"
)

// Config configures the exporter.
type Config struct {
	// Namespace prefixes every metric name (default: "swstat").
	Namespace string
	// Registry receives the collectors (default: a fresh registry).
	Registry *prometheus.Registry
}

// Option configures the exporter.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(ns string) Option {
	return func(c *Config) {
		if ns != "" {
			c.Namespace = ns
		}
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(r *prometheus.Registry) Option {
	return func(c *Config) { c.Registry = r }
}

// Metrics holds the client collectors. A nil *Metrics is a valid no-op.
type Metrics struct {
	registry *prometheus.Registry

	framesSent *prometheus.CounterVec
	received   *prometheus.CounterVec
	acksSent   prometheus.Counter
	errorAcks  prometheus.Counter
	lastStatus prometheus.Gauge
	statValue  *prometheus.GaugeVec
}

// New registers the collectors.
func New(opts ...Option) *Metrics {
	cfg := Config{Namespace: "swstat"}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.NewRegistry()
	}
	factory := promauto.With(cfg.Registry)

	return &Metrics{
		registry: cfg.Registry,
		framesSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "frames_sent_total",
			Help:      "Request frames sent to the server",
		}, []string{"opcode"}),
		received: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "datagrams_received_total",
			Help:      "Datagrams received from the server by kind",
		}, []string{"kind"}),
		acksSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "acks_sent_total",
			Help:      "Acknowledgments sent for received datagrams",
		}),
		errorAcks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "error_acks_total",
			Help:      "Error acknowledgments received for an unknown session",
		}),
		lastStatus: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Name:      "last_status",
			Help:      "Status code of the last data reply",
		}),
		statValue: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Name:      "stat_value",
			Help:      "Latest value reported by the server for each statistic",
		}, []string{"category"}),
	}
}

// FrameSent counts an outbound frame. Connect frames use opcode "connect".
func (m *Metrics) FrameSent(opcode string) {
	if m == nil {
		return
	}
	m.framesSent.WithLabelValues(opcode).Inc()
}

// Received counts an inbound datagram.
func (m *Metrics) Received(k protocol.Kind) {
	if m == nil {
		return
	}
	m.received.WithLabelValues(k.String()).Inc()
}

func (m *Metrics) AckSent() {
	if m == nil {
		return
	}
	m.acksSent.Inc()
}

func (m *Metrics) ErrorAck() {
	if m == nil {
		return
	}
	m.errorAcks.Inc()
}

// Observe records the status and entry values of a data reply.
func (m *Metrics) Observe(rep protocol.Reply) {
	if m == nil || rep.Kind != protocol.KindData {
		return
	}
	m.lastStatus.Set(float64(rep.Status))
	for _, e := range rep.Entries {
		m.statValue.WithLabelValues(CategoryName(e.Category)).Set(float64(e.Value))
	}
}

// CategoryName is the label value used for a category.
func CategoryName(c uint8) string {
	if protocol.KnownCategory(c) {
		return protocol.CategoryLabel(c)
	}
	return "unknown_" + strconv.Itoa(int(c))
}

// Registry returns the registry the collectors live in.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves /metrics and /healthz.
func (m *Metrics) Handler() http.Handler {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	})
	return r
}

// Serve listens on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           m.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	zap.L().Info("metrics listening", zap.String("addr", addr))

	select {
	case err := <-errCh:
		return errors.Wrap(err, "metrics server failed")
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "metrics shutdown failed")
		}
		return nil
	}
}
