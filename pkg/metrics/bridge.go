package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BridgeMetrics instruments the MQTT station bridges.
type BridgeMetrics struct {
	messages    *prometheus.CounterVec
	bytes       *prometheus.CounterVec
	dropped     *prometheus.CounterVec
	connections *prometheus.GaugeVec
}

// NewBridgeMetrics creates the bridge metrics set.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewBridgeMetrics() *BridgeMetrics {
	if !IsEnabled() {
		return nil
	}

	reg := GetRegistry()

	return &BridgeMetrics{
		messages: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "groundcore_bridge_messages_total",
				Help: "Messages relayed by the bridge per station, topic, and direction",
			},
			[]string{"station", "topic", "direction"},
		),
		bytes: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "groundcore_bridge_bytes_total",
				Help: "Payload bytes relayed by the bridge per station, topic, and direction",
			},
			[]string{"station", "topic", "direction"},
		),
		dropped: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "groundcore_bridge_dropped_total",
				Help: "Messages dropped for parse or crypto failures",
			},
			[]string{"station", "topic"},
		),
		connections: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "groundcore_bridge_connected",
				Help: "Bridge connection state per station and broker side (1 connected)",
			},
			[]string{"station", "side"},
		),
	}
}

// RecordMessage counts one relayed message and its payload size.
func (m *BridgeMetrics) RecordMessage(station, topic, direction string, bytes int) {
	if m == nil {
		return
	}
	m.messages.WithLabelValues(station, topic, direction).Inc()
	m.bytes.WithLabelValues(station, topic, direction).Add(float64(bytes))
}

// RecordDrop counts one message dropped before relay.
func (m *BridgeMetrics) RecordDrop(station, topic string) {
	if m == nil {
		return
	}
	m.dropped.WithLabelValues(station, topic).Inc()
}

// SetConnected records the connection state for one broker side.
func (m *BridgeMetrics) SetConnected(station, side string, connected bool) {
	if m == nil {
		return
	}
	v := 0.0
	if connected {
		v = 1.0
	}
	m.connections.WithLabelValues(station, side).Set(v)
}
