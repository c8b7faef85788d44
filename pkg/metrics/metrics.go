// Package metrics registers the Prometheus collectors for observability
// (C17): a handful of counters/gauges on the infrastructure edges the
// teacher instruments — the bus, the outbox worker, and the room manager —
// leaving the pure analysis engine and aggregates untouched. Grounded on
// cuemby-warren's pkg/metrics/metrics.go (package-level collector
// construction, MustRegister at build time) combined with
// r3e-network-service_layer's infrastructure/metrics/metrics.go pattern of
// a struct returned from a constructor taking an explicit
// prometheus.Registerer, which lets tests register against a private
// registry instead of the global one.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector the process registers. A nil *Metrics is
// valid everywhere it is consumed: every Observe/Inc/Set call below is
// guarded so instrumentation is strictly optional for callers that don't
// wire it up (e.g. unit tests constructing a Bus/Worker/RoomManager
// directly).
type Metrics struct {
	EventsPublishedTotal *prometheus.CounterVec
	HandlerErrorsTotal   *prometheus.CounterVec
	OutboxDepth          prometheus.Gauge
	WSRoomsActive        prometheus.Gauge
	WSClientsTotal       prometheus.Gauge
}

// New constructs a Metrics registered against prometheus.DefaultRegisterer.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry constructs a Metrics registered against registerer. A nil
// registerer skips registration entirely, which is useful in tests that
// only want the collectors, not a side effect on the global registry.
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		EventsPublishedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "decisioncore_events_published_total",
				Help: "Total number of domain events published through the bus, by event type.",
			},
			[]string{"event_type"},
		),
		HandlerErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "decisioncore_handler_errors_total",
				Help: "Total number of event handler failures, by handler name.",
			},
			[]string{"handler"},
		),
		OutboxDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "decisioncore_outbox_depth",
				Help: "Number of pending records returned by the most recent outbox poll.",
			},
		),
		WSRoomsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "decisioncore_ws_rooms_active",
				Help: "Number of WebSocket rooms with at least one connected client.",
			},
		),
		WSClientsTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "decisioncore_ws_clients_total",
				Help: "Total number of connected WebSocket clients across all rooms.",
			},
		),
	}

	if registerer != nil {
		registerer.MustRegister(
			m.EventsPublishedTotal,
			m.HandlerErrorsTotal,
			m.OutboxDepth,
			m.WSRoomsActive,
			m.WSClientsTotal,
		)
	}

	return m
}

// ObserveEventPublished records a single successful publish of eventType.
// Safe to call on a nil *Metrics.
func (m *Metrics) ObserveEventPublished(eventType string) {
	if m == nil {
		return
	}
	m.EventsPublishedTotal.WithLabelValues(eventType).Inc()
}

// ObserveHandlerError records a single handler failure by handler name.
// Safe to call on a nil *Metrics.
func (m *Metrics) ObserveHandlerError(handlerName string) {
	if m == nil {
		return
	}
	m.HandlerErrorsTotal.WithLabelValues(handlerName).Inc()
}

// SetOutboxDepth records the size of the most recent dequeue batch. Safe to
// call on a nil *Metrics.
func (m *Metrics) SetOutboxDepth(depth int) {
	if m == nil {
		return
	}
	m.OutboxDepth.Set(float64(depth))
}

// SetWSRoomsActive records the current number of active rooms. Safe to
// call on a nil *Metrics.
func (m *Metrics) SetWSRoomsActive(count int) {
	if m == nil {
		return
	}
	m.WSRoomsActive.Set(float64(count))
}

// SetWSClientsTotal records the current number of connected clients. Safe
// to call on a nil *Metrics.
func (m *Metrics) SetWSClientsTotal(count int) {
	if m == nil {
		return
	}
	m.WSClientsTotal.Set(float64(count))
}

// Handler returns the HTTP handler serving the registered collectors in
// the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}
