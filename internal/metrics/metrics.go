// Package metrics exposes Prometheus collectors for the HTTP endpoint and
// for the commands sent to the document database.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.mongodb.org/mongo-driver/event"
)

const namespace = "recetario"

// Metrics holds the collectors registered by New.
type Metrics struct {
	reg *prometheus.Registry

	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec

	dbCommands *prometheus.CounterVec
	dbLatency  *prometheus.HistogramVec
}

// New registers every collector on reg.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		reg: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests served, by status code and method.",
		}, []string{"code", "method"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Latency of HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"code", "method"}),
		dbCommands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "commands_total",
			Help:      "Database commands issued, by command name and outcome.",
		}, []string{"command", "outcome"}),
		dbLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "command_duration_seconds",
			Help:      "Latency of database commands.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, []string{"command"}),
	}
	reg.MustRegister(m.requests, m.latency, m.dbCommands, m.dbLatency)
	return m
}

// Instrument wraps h so every request is counted and timed.
func (m *Metrics) Instrument(h http.Handler) http.Handler {
	return promhttp.InstrumentHandlerCounter(m.requests,
		promhttp.InstrumentHandlerDuration(m.latency, h))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// CommandMonitor records one observation per finished database command.
// Every resolver round trip shows up here, which makes N+1 fan-out visible.
func (m *Metrics) CommandMonitor() *event.CommandMonitor {
	return &event.CommandMonitor{
		Succeeded: func(_ context.Context, e *event.CommandSucceededEvent) {
			m.observeCommand(e.CommandName, "ok", e.Duration.Seconds())
		},
		Failed: func(_ context.Context, e *event.CommandFailedEvent) {
			m.observeCommand(e.CommandName, "error", e.Duration.Seconds())
		},
	}
}

func (m *Metrics) observeCommand(name, outcome string, seconds float64) {
	m.dbCommands.WithLabelValues(name, outcome).Inc()
	m.dbLatency.WithLabelValues(name).Observe(seconds)
}
