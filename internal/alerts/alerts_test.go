package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/netrasat/groundcore/pkg/bus"
	"github.com/netrasat/groundcore/pkg/config"
	"github.com/netrasat/groundcore/pkg/decoder"
	"github.com/netrasat/groundcore/pkg/store"
)

func fptr(v float64) *float64 { return &v }

type recordedPublish struct {
	Exchange string
	Key      string
	Value    any
}

type recordingPublisher struct {
	published []recordedPublish
}

func (p *recordingPublisher) Publish(_ context.Context, exchange, key string, v any) error {
	p.published = append(p.published, recordedPublish{exchange, key, v})
	return nil
}

func testStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&store.Alert{}))
	return store.NewWithDB(db)
}

func testConfig() *Config {
	return &Config{
		Thresholds: DefaultThresholds(),
		Submodules: map[string]string{"2": "EPS"},
		Packets: []PacketRule{{
			QueueID:    1,
			PacketName: "HEALTH_EPS_SES_TEMP",
			Metrics: map[string]MetricLimits{
				"SES_A_Temperature_C": {Min: fptr(-10), Max: fptr(50)},
			},
		}},
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alerts.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"submodules": {"2": "EPS"},
		"packets": [
			{"queue_id": 1, "packet_name": "HEALTH_EPS_SES_TEMP",
			 "metrics": {"SES_A_Temperature_C": {"min": -10, "max": 50}}},
			{"queue_id": 7, "packet_name": "HEALTH_ADCS_CSS_VECTOR",
			 "thresholds": {"yellow_percent": 70, "amber_percent": 85, "red_percent": 95},
			 "metrics": {"Sun_Vector_X": {"max": 1.0}}}
		]
	}`), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, DefaultThresholds(), cfg.Thresholds, "missing thresholds fall back")
	assert.Equal(t, "EPS", cfg.submoduleName("2"))
	assert.Equal(t, "Submodule_9", cfg.submoduleName("9"))

	index := cfg.queueIndex()
	require.Contains(t, index, 1)
	require.Contains(t, index, 7)
	assert.Equal(t, 70.0, index[7].Thresholds.YellowPercent)
	require.NotNil(t, index[1].Metrics["SES_A_Temperature_C"].Min)
	assert.Equal(t, -10.0, *index[1].Metrics["SES_A_Temperature_C"].Min)
	assert.Nil(t, index[7].Metrics["Sun_Vector_X"].Min)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0644))
	_, err = LoadConfig(path)
	assert.Error(t, err)
}

func TestEvaluateMetric(t *testing.T) {
	th := DefaultThresholds()
	limits := MetricLimits{Min: fptr(0), Max: fptr(100)}

	sev, pct, reason, ok := evaluateMetric(-1, limits, th)
	require.True(t, ok)
	assert.Equal(t, "RED", sev)
	assert.Equal(t, 100.0, pct)
	assert.Equal(t, "Value below minimum limit", reason)

	sev, pct, _, ok = evaluateMetric(101, limits, th)
	require.True(t, ok)
	assert.Equal(t, "RED", sev)
	assert.Equal(t, 100.0, pct)

	sev, pct, _, ok = evaluateMetric(95, limits, th)
	require.True(t, ok)
	assert.Equal(t, "AMBER", sev)
	assert.Equal(t, 95.0, pct)

	sev, pct, _, ok = evaluateMetric(85, limits, th)
	require.True(t, ok)
	assert.Equal(t, "YELLOW", sev)
	assert.Equal(t, 85.0, pct)

	sev, pct, _, ok = evaluateMetric(100, limits, th)
	require.True(t, ok)
	assert.Equal(t, "RED", sev)
	assert.Equal(t, 100.0, pct)

	_, _, _, ok = evaluateMetric(50, limits, th)
	assert.False(t, ok, "mid-range value raises nothing")

	_, _, _, ok = evaluateMetric(1e9, MetricLimits{Min: fptr(0)}, th)
	assert.False(t, ok, "one-sided limit only fires out of bounds")

	sev, _, _, ok = evaluateMetric(-5, MetricLimits{Min: fptr(0)}, th)
	require.True(t, ok)
	assert.Equal(t, "RED", sev)
}

func envelope(rows ...*decoder.Row) bus.DecodedEnvelope {
	return bus.DecodedEnvelope{
		Meta: bus.DecodedMeta{
			PacketName:   "RAW__TLM__EMULATOR__HEALTH_EPS_SES_TEMP",
			TimestampUTC: "2026-08-24T10:00:00Z",
		},
		Data: rows,
	}
}

func instanceRow(queueID int64, temp float64) *decoder.Row {
	row := decoder.NewRow()
	row.Set("Submodule_ID", int64(2))
	row.Set("Queue_ID", queueID)
	row.Set("SES_A_Temperature_C", temp)
	return row
}

func TestEvaluateEnvelope(t *testing.T) {
	b := NewBuilder(nil, testConfig(), nil)

	dets := b.Evaluate(envelope(
		instanceRow(1, 60),  // above max
		instanceRow(1, 20),  // in range
		instanceRow(99, 60), // unconfigured queue
	))
	require.Len(t, dets, 1)

	det := dets[0]
	assert.Equal(t, "RED", det.Severity)
	assert.Equal(t, 100.0, det.SeverityPercent)
	assert.Equal(t, "HEALTH_EPS_SES_TEMP", det.MatchedPacketName)
	assert.Equal(t, "RAW__TLM__EMULATOR__HEALTH_EPS_SES_TEMP", det.RawPacketName)
	assert.Equal(t, "EPS", det.SubmoduleName)
	assert.Equal(t, "2", det.SubmoduleID)
	assert.Equal(t, 1, det.QueueID)
	assert.Equal(t, store.StatusIdentified, det.Status)
}

func TestEvaluateAfterWireRoundTrip(t *testing.T) {
	b := NewBuilder(nil, testConfig(), nil)

	wire, err := json.Marshal(envelope(instanceRow(1, 49.9)))
	require.NoError(t, err)
	var env bus.DecodedEnvelope
	require.NoError(t, json.Unmarshal(wire, &env))

	dets := b.Evaluate(env)
	require.Len(t, dets, 1, "json.Number values still evaluate")
	assert.Equal(t, "AMBER", dets[0].Severity)
}

func TestBuilderProcessPublishesDetections(t *testing.T) {
	b := NewBuilder(nil, testConfig(), nil)
	pub := &recordingPublisher{}

	body, err := json.Marshal(envelope(instanceRow(1, 60)))
	require.NoError(t, err)
	require.NoError(t, b.process(context.Background(), pub, body))

	require.Len(t, pub.published, 1)
	assert.Equal(t, "", pub.published[0].Exchange)
	assert.Equal(t, bus.QueueAlertDetected, pub.published[0].Key)
}

func TestWorkerStoresAndForwards(t *testing.T) {
	st := testStore(t)
	w := NewWorker(nil, st)
	pub := &recordingPublisher{}

	det := Detection{
		Timestamp:         "2026-08-24T10:00:00Z",
		RawPacketName:     "RAW__TLM__EMULATOR__HEALTH_EPS_SES_TEMP",
		MatchedPacketName: "HEALTH_EPS_SES_TEMP",
		SubmoduleID:       "2",
		SubmoduleName:     "EPS",
		QueueID:           1,
		Metric:            "SES_A_Temperature_C",
		Value:             60,
		Min:               fptr(-10),
		Max:               fptr(50),
		Severity:          "RED",
		SeverityPercent:   100,
		Reason:            "Value above maximum limit",
		Status:            store.StatusIdentified,
	}
	body, err := json.Marshal(det)
	require.NoError(t, err)

	require.NoError(t, w.process(context.Background(), pub, body))

	var stored []store.Alert
	require.NoError(t, st.DB().Find(&stored).Error)
	require.Len(t, stored, 1)
	assert.Equal(t, "HEALTH_EPS_SES_TEMP", stored[0].PacketName)
	assert.Equal(t, 60.0, stored[0].Value)
	assert.Equal(t, store.StatusIdentified, stored[0].Status)
	assert.False(t, stored[0].EngineTime.IsZero())

	require.Len(t, pub.published, 1)
	assert.Equal(t, bus.QueueAlertNotify, pub.published[0].Key)
	forwarded := pub.published[0].Value.(Detection)
	assert.Equal(t, stored[0].ID, forwarded.DBID)
	assert.NotEmpty(t, forwarded.EngineTime)
}

type flakyMailer struct {
	failures int
	sent     int
}

func (m *flakyMailer) Send(context.Context, string, string) error {
	if m.failures > 0 {
		m.failures--
		return errors.New("connection refused")
	}
	m.sent++
	return nil
}

func seedAlert(t *testing.T, st *store.Store) int64 {
	t.Helper()
	a := &store.Alert{MetricName: "SES_A_Temperature_C", Severity: "RED"}
	require.NoError(t, st.InsertAlert(context.Background(), a))
	return a.ID
}

func TestNotifierMarksNotified(t *testing.T) {
	st := testStore(t)
	mailer := &flakyMailer{failures: 1}
	n := NewNotifier(nil, st, mailer)
	n.retryWait = time.Millisecond

	id := seedAlert(t, st)
	require.NoError(t, n.notify(context.Background(), Detection{DBID: id, Metric: "SES_A_Temperature_C"}))

	assert.Equal(t, 1, mailer.sent, "first retry succeeds")
	a, err := st.GetAlert(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, store.StatusNotified, a.Status)
}

func TestNotifierGivesUpAfterRetry(t *testing.T) {
	st := testStore(t)
	mailer := &flakyMailer{failures: 2}
	n := NewNotifier(nil, st, mailer)
	n.retryWait = time.Millisecond

	id := seedAlert(t, st)
	require.NoError(t, n.notify(context.Background(), Detection{DBID: id}))

	a, err := st.GetAlert(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, store.StatusIdentified, a.Status, "status untouched when mail never left")
}

func TestRenderMail(t *testing.T) {
	subject, body := renderMail(Detection{
		Severity: "AMBER", SeverityPercent: 92.5, Metric: "SES_A_Temperature_C",
		Value: 47, Min: fptr(-10), Max: fptr(50),
		SubmoduleName: "EPS", SubmoduleID: "2",
		Reason: "Above 90% operational limit",
	})
	assert.Equal(t, "[GROUNDCORE ALERT] AMBER - SES_A_Temperature_C", subject)
	assert.Contains(t, body, "AMBER (92.50%)")
	assert.Contains(t, body, "EPS (ID: 2)")
	assert.Contains(t, body, "Max Limit      : 50")
}

func TestMailerSelection(t *testing.T) {
	// empty host or explicit mock never opens a connection
	assert.IsType(t, MockMailer{}, NewMailer(config.SMTPConfig{Mock: true, Host: "smtp.example.com"}))
	assert.IsType(t, MockMailer{}, NewMailer(config.SMTPConfig{}))
	assert.IsType(t, &SMTPMailer{}, NewMailer(config.SMTPConfig{Host: "smtp.example.com"}))
}
