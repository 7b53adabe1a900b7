package nextmqtt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryMetricsCounter(t *testing.T) {
	m := NewMemoryMetrics()
	c := m.Counter(MetricPacketsSent, MetricLabels{LabelPacketType: "PUBLISH"})
	c.Inc()
	c.Add(2)
	assert.Equal(t, float64(3), c.Value())

	got := m.GetCounter(MetricPacketsSent, MetricLabels{LabelPacketType: "PUBLISH"})
	require.NotNil(t, got)
	assert.Equal(t, float64(3), got.Value())
}

func TestMemoryMetricsGauge(t *testing.T) {
	m := NewMemoryMetrics()
	g := m.Gauge(MetricInflightDepth, nil)
	g.Set(5)
	g.Inc()
	g.Dec()
	assert.Equal(t, float64(5), g.Value())
}

func TestMemoryMetricsDistinctLabelsAreDistinctSeries(t *testing.T) {
	m := NewMemoryMetrics()
	m.Counter(MetricPacketsSent, MetricLabels{LabelPacketType: "PUBLISH"}).Inc()
	m.Counter(MetricPacketsSent, MetricLabels{LabelPacketType: "SUBSCRIBE"}).Inc()

	pub := m.GetCounter(MetricPacketsSent, MetricLabels{LabelPacketType: "PUBLISH"})
	sub := m.GetCounter(MetricPacketsSent, MetricLabels{LabelPacketType: "SUBSCRIBE"})
	require.NotNil(t, pub)
	require.NotNil(t, sub)
	assert.Equal(t, float64(1), pub.Value())
	assert.Equal(t, float64(1), sub.Value())
}

func TestSessionMetricsNilSinkDefaultsToNoOp(t *testing.T) {
	sm := newSessionMetrics(nil)
	assert.NotPanics(t, func() {
		sm.packetSent(PacketPublish)
		sm.packetReceived(PacketPublish)
		sm.inflightDepth(3)
		sm.reconnectAttempted()
	})
}
