package metrics_test

import (
	"testing"

	"github.com/codeready-toolchain/decisioncore/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithRegistryRegistersAllCollectors(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(registry)
	require.NotNil(t, m)

	families, err := registry.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}

	for _, want := range []string{
		"decisioncore_events_published_total",
		"decisioncore_handler_errors_total",
		"decisioncore_outbox_depth",
		"decisioncore_ws_rooms_active",
		"decisioncore_ws_clients_total",
	} {
		assert.True(t, names[want], "expected %s to be registered", want)
	}
}

func TestObserveEventPublishedIncrementsByEventType(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(registry)

	m.ObserveEventPublished("session.created")
	m.ObserveEventPublished("session.created")
	m.ObserveEventPublished("cycle.started")

	assert.Equal(t, float64(2), testutil.ToFloat64(m.EventsPublishedTotal.WithLabelValues("session.created")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.EventsPublishedTotal.WithLabelValues("cycle.started")))
}

func TestSetOutboxDepthOverwritesPriorValue(t *testing.T) {
	m := metrics.NewWithRegistry(prometheus.NewRegistry())

	m.SetOutboxDepth(5)
	assert.Equal(t, float64(5), testutil.ToFloat64(m.OutboxDepth))

	m.SetOutboxDepth(0)
	assert.Equal(t, float64(0), testutil.ToFloat64(m.OutboxDepth))
}

func TestNilMetricsIsSafeEverywhere(t *testing.T) {
	var m *metrics.Metrics

	assert.NotPanics(t, func() {
		m.ObserveEventPublished("session.created")
		m.ObserveHandlerError("bridge")
		m.SetOutboxDepth(3)
		m.SetWSRoomsActive(1)
		m.SetWSClientsTotal(2)
	})
}
