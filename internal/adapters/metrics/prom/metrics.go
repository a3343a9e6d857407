// Package prom exports daemon metrics in the Prometheus text format.
package prom

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/bnema/mailbot/internal/domain"
	"github.com/bnema/mailbot/internal/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mailbot"

type Metrics struct {
	registry *prometheus.Registry

	breakerFailures *prometheus.CounterVec
	breakerOpened   *prometheus.CounterVec
	digestRuns      *prometheus.CounterVec
	modelQueries    *prometheus.CounterVec
	modelDuration   prometheus.Histogram
	activeSessions  prometheus.Gauge
}

var _ ports.Metrics = (*Metrics)(nil)

func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		breakerFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "breaker_failures_total",
			Help:      "Failures recorded per protected operation.",
		}, []string{"operation"}),
		breakerOpened: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "breaker_opened_total",
			Help:      "Closed to open transitions per protected operation.",
		}, []string{"operation"}),
		digestRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "digest_runs_total",
			Help:      "Digest runs by outcome.",
		}, []string{"outcome"}),
		modelQueries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_queries_total",
			Help:      "Language model queries by outcome.",
		}, []string{"outcome"}),
		modelDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "model_query_duration_seconds",
			Help:      "Wall-clock duration of language model queries.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
		}),
		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Conversation sessions currently open.",
		}),
	}
}

func (m *Metrics) BreakerFailure(operation domain.OperationName) {
	m.breakerFailures.WithLabelValues(string(operation)).Inc()
}

func (m *Metrics) BreakerOpened(operation domain.OperationName) {
	m.breakerOpened.WithLabelValues(string(operation)).Inc()
}

func (m *Metrics) DigestRun(outcome domain.DigestOutcome) {
	m.digestRuns.WithLabelValues(string(outcome)).Inc()
}

func (m *Metrics) ModelQuery(outcome string, elapsed time.Duration) {
	m.modelQueries.WithLabelValues(outcome).Inc()
	m.modelDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) ActiveSessions(n int) {
	m.activeSessions.Set(float64(n))
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Serve exposes /metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen metrics: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	server := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve metrics: %w", err)
	}
	return nil
}
