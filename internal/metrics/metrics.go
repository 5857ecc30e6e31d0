// Package metrics exposes the scan engine's counters over HTTP for prometheus to scrape.
package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/litetable/litetable-kvs/internal/litetable"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const (
	Namespace = "litetable"

	SubsystemEngine = "engine"
	SubsystemSweep  = "sweep"

	LabelOperation = "operation"
	LabelOutcome   = "outcome"

	OutcomeOK        = "ok"
	OutcomeRetryable = "retryable"
	OutcomeFault     = "fault"
	OutcomeRejected  = "rejected"
)

type Config struct {
	// Address to serve /metrics on. Empty serves nothing.
	Address string
	Port    int
}

type Metrics struct {
	registry *prom.Registry

	requests *prom.CounterVec
	rows     *prom.CounterVec
	latency  *prom.HistogramVec
	swept    prom.Counter

	address string
	server  *http.Server
}

func New(cfg *Config) (*Metrics, error) {
	if cfg == nil {
		return nil, errors.New("metrics config cannot be nil")
	}
	m := &Metrics{
		registry: prom.NewRegistry(),
		requests: prom.NewCounterVec(
			prom.CounterOpts{
				Namespace: Namespace,
				Subsystem: SubsystemEngine,
				Name:      "requests_total",
				Help:      "Total number of engine operations by outcome.",
			},
			[]string{LabelOperation, LabelOutcome}),
		rows: prom.NewCounterVec(
			prom.CounterOpts{
				Namespace: Namespace,
				Subsystem: SubsystemEngine,
				Name:      "rows_total",
				Help:      "Total number of rows returned.",
			},
			[]string{LabelOperation}),
		latency: prom.NewHistogramVec(
			prom.HistogramOpts{
				Namespace: Namespace,
				Subsystem: SubsystemEngine,
				Name:      "cost_seconds",
				Help:      "Histogram of engine operation latency.",
				Buckets:   prom.DefBuckets,
			},
			[]string{LabelOperation}),
		swept: prom.NewCounter(prom.CounterOpts{
			Namespace: Namespace,
			Subsystem: SubsystemSweep,
			Name:      "versions_total",
			Help:      "Total number of shadowed versions removed.",
		}),
	}
	m.registry.MustRegister(m.requests, m.rows, m.latency, m.swept)
	if cfg.Address != "" || cfg.Port != 0 {
		m.address = net.JoinHostPort(cfg.Address, strconv.Itoa(cfg.Port))
	}
	return m, nil
}

// Outcome classifies err for the outcome label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case litetable.IsFault(err):
		return OutcomeFault
	case litetable.IsRetryable(err):
		return OutcomeRetryable
	}
	return OutcomeRejected
}

// Observe records one finished operation. A nil receiver records nothing.
func (m *Metrics) Observe(op string, start time.Time, rows int, err error) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(op, Outcome(err)).Inc()
	m.latency.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err == nil && rows > 0 {
		m.rows.WithLabelValues(op).Add(float64(rows))
	}
}

// Swept records removed versions.
func (m *Metrics) Swept(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.swept.Add(float64(n))
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Start() error {
	if m.address == "" {
		return nil
	}
	listener, err := net.Listen("tcp", m.address)
	if err != nil {
		return err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	m.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info().Msgf("metrics listening on %s", listener.Addr())
		if err := m.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("metrics server stopped")
		}
	}()
	return nil
}

func (m *Metrics) Stop() error {
	if m.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.server.Shutdown(ctx)
}

func (m *Metrics) Name() string {
	return "Metrics Server"
}
