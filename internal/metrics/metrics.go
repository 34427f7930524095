// Package metrics owns the Prometheus registry exposed on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "peerwallet"

// Transfer outcomes recorded by ObserveTransfer.
const (
	OutcomeSuccess      = "success"
	OutcomeInsufficient = "insufficient_funds"
	OutcomeNotFound     = "not_found"
	OutcomeInvalid      = "invalid"
	OutcomeConflict     = "conflict"
	OutcomeError        = "error"
)

// Metrics groups the service collectors. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	transfers        *prometheus.CounterVec
	transferRetries  prometheus.Counter
	transferDuration prometheus.Histogram
	fundings         *prometheus.CounterVec
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		transfers: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "wallet",
			Name:      "transfers_total",
			Help:      "Peer-to-peer transfers by outcome",
		}, []string{"outcome"}),
		transferRetries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "wallet",
			Name:      "transfer_retries_total",
			Help:      "Transfer attempts retried after a store conflict",
		}),
		transferDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "wallet",
			Name:      "transfer_duration_seconds",
			Help:      "Time spent executing a transfer, retries included",
			Buckets:   prometheus.DefBuckets,
		}),
		fundings: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "wallet",
			Name:      "fundings_total",
			Help:      "Wallet funding requests by outcome",
		}, []string{"outcome"}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests processed",
		}, []string{"method", "route", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveTransfer(outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.transfers.WithLabelValues(outcome).Inc()
	m.transferDuration.Observe(took.Seconds())
}

func (m *Metrics) TransferRetried() {
	if m == nil {
		return
	}
	m.transferRetries.Inc()
}

func (m *Metrics) ObserveFunding(outcome string) {
	if m == nil {
		return
	}
	m.fundings.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveRequest(method, route string, status int, took time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(took.Seconds())
}
