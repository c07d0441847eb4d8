package metrics

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledMetricsAreNilSafe(t *testing.T) {
	resetForTest()

	var p *PipelineMetrics
	var b *BridgeMetrics

	assert.Nil(t, NewPipelineMetrics())
	assert.Nil(t, NewBridgeMetrics())

	// none of these may panic on nil receivers
	p.RecordIngested("HEALTH_OBC")
	p.RecordDecoded("HEALTH_OBC", time.Millisecond)
	p.RecordDecodeFailure("HEALTH_OBC")
	p.RecordSchemaMiss("HEALTH_EPS")
	p.RecordPersisted("HEALTH_OBC", 4)
	p.RecordPersistFailure("HEALTH_OBC")
	p.RecordAlert("RED")
	b.RecordMessage("gs-1", "cosmos/command", "AtoB", 12)
	b.RecordDrop("gs-1", "SatOS/downlink")
	b.SetConnected("gs-1", "a", true)
}

func TestPipelineCounters(t *testing.T) {
	resetForTest()
	InitRegistry()
	p := NewPipelineMetrics()
	require.NotNil(t, p)

	p.RecordIngested("HEALTH_OBC")
	p.RecordIngested("HEALTH_OBC")
	p.RecordPersisted("HEALTH_OBC", 3)

	assert.Equal(t, 2.0, testutil.ToFloat64(p.packetsIngested.WithLabelValues("HEALTH_OBC")))
	assert.Equal(t, 3.0, testutil.ToFloat64(p.rowsPersisted.WithLabelValues("HEALTH_OBC")))
}

func TestBridgeGauge(t *testing.T) {
	resetForTest()
	InitRegistry()
	b := NewBridgeMetrics()
	require.NotNil(t, b)

	b.SetConnected("gs-1", "b", true)
	assert.Equal(t, 1.0, testutil.ToFloat64(b.connections.WithLabelValues("gs-1", "b")))
	b.SetConnected("gs-1", "b", false)
	assert.Equal(t, 0.0, testutil.ToFloat64(b.connections.WithLabelValues("gs-1", "b")))
}

func TestHandlerWhenDisabled(t *testing.T) {
	resetForTest()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 404, rec.Code)
}
