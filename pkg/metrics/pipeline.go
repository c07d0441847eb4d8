package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PipelineMetrics instruments the ingest → decode → persist path.
type PipelineMetrics struct {
	packetsIngested *prometheus.CounterVec
	packetsDecoded  *prometheus.CounterVec
	decodeFailures  *prometheus.CounterVec
	schemaMisses    *prometheus.CounterVec
	decodeDuration  *prometheus.HistogramVec
	rowsPersisted   *prometheus.CounterVec
	persistFailures *prometheus.CounterVec
	alertsDetected  *prometheus.CounterVec
}

// NewPipelineMetrics creates the pipeline metrics set.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewPipelineMetrics() *PipelineMetrics {
	if !IsEnabled() {
		return nil
	}

	reg := GetRegistry()

	return &PipelineMetrics{
		packetsIngested: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "groundcore_packets_ingested_total",
				Help: "Raw packets forwarded from the telemetry stream to the bus",
			},
			[]string{"packet"},
		),
		packetsDecoded: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "groundcore_packets_decoded_total",
				Help: "Packets decoded into rows",
			},
			[]string{"packet"},
		),
		decodeFailures: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "groundcore_decode_failures_total",
				Help: "Packets whose payload failed to decode",
			},
			[]string{"packet"},
		),
		schemaMisses: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "groundcore_schema_misses_total",
				Help: "Packets with no registered schema",
			},
			[]string{"packet"},
		),
		decodeDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "groundcore_decode_duration_seconds",
				Help:    "Time spent decoding one packet",
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
			},
			[]string{"packet"},
		),
		rowsPersisted: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "groundcore_rows_persisted_total",
				Help: "Decoded rows written to the telemetry database",
			},
			[]string{"table"},
		),
		persistFailures: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "groundcore_persist_failures_total",
				Help: "Row batches that failed to persist",
			},
			[]string{"table"},
		),
		alertsDetected: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "groundcore_alerts_detected_total",
				Help: "Threshold alerts raised by the alert builder",
			},
			[]string{"severity"},
		),
	}
}

// RecordIngested counts one raw packet forwarded to the bus.
func (m *PipelineMetrics) RecordIngested(packet string) {
	if m == nil {
		return
	}
	m.packetsIngested.WithLabelValues(packet).Inc()
}

// RecordDecoded counts a successful decode and its duration.
func (m *PipelineMetrics) RecordDecoded(packet string, d time.Duration) {
	if m == nil {
		return
	}
	m.packetsDecoded.WithLabelValues(packet).Inc()
	m.decodeDuration.WithLabelValues(packet).Observe(d.Seconds())
}

// RecordDecodeFailure counts a payload that failed to decode.
func (m *PipelineMetrics) RecordDecodeFailure(packet string) {
	if m == nil {
		return
	}
	m.decodeFailures.WithLabelValues(packet).Inc()
}

// RecordSchemaMiss counts a packet with no registered schema.
func (m *PipelineMetrics) RecordSchemaMiss(packet string) {
	if m == nil {
		return
	}
	m.schemaMisses.WithLabelValues(packet).Inc()
}

// RecordPersisted counts rows written to a telemetry table.
func (m *PipelineMetrics) RecordPersisted(table string, rows int) {
	if m == nil {
		return
	}
	m.rowsPersisted.WithLabelValues(table).Add(float64(rows))
}

// RecordPersistFailure counts a failed batch insert.
func (m *PipelineMetrics) RecordPersistFailure(table string) {
	if m == nil {
		return
	}
	m.persistFailures.WithLabelValues(table).Inc()
}

// RecordAlert counts one raised alert by severity.
func (m *PipelineMetrics) RecordAlert(severity string) {
	if m == nil {
		return
	}
	m.alertsDetected.WithLabelValues(severity).Inc()
}
