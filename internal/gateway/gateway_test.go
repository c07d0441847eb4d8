package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/netrasat/groundcore/internal/bridge"
	"github.com/netrasat/groundcore/pkg/bridgelog"
	"github.com/netrasat/groundcore/pkg/config"
)

func testServer(t *testing.T) (*Server, *bridgelog.Store) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	log, err := bridgelog.OpenWithDB(db)
	require.NoError(t, err)

	stations := []config.StationConfig{
		{ID: "gs-1", Name: "Bangalore", BrokerB: config.BrokerConfig{Host: "gs1.example.com"}},
		{ID: "gs-2", Name: "Svalbard", BrokerB: config.BrokerConfig{Host: "gs2.example.com"}},
	}
	m := bridge.NewManager(stations, log, nil)

	return NewServer(config.GatewayConfig{Port: 8080}, m, log), log
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeData[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var resp struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "ok", resp.Status)
	var out T
	require.NoError(t, json.Unmarshal(resp.Data, &out))
	return out
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := testServer(t)
	rec := get(t, srv.Router(), "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestListStations(t *testing.T) {
	srv, _ := testServer(t)

	rec := get(t, srv.Router(), "/api/v1/stations")
	require.Equal(t, http.StatusOK, rec.Code)

	list := decodeData[[]stationSummary](t, rec)
	require.Len(t, list, 2)
	assert.Equal(t, "gs-1", list[0].ID)
	assert.Equal(t, "gs1.example.com", list[0].BrokerB)
	assert.False(t, list[0].ConnectedA)
}

func TestConnectRequiresRoleHeader(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.Router()

	// No header at all: 401.
	req := httptest.NewRequest(http.MethodPost, "/api/v1/stations/gs-1/connect", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// A non-operator role: 403.
	req = httptest.NewRequest(http.MethodPost, "/api/v1/stations/gs-1/connect", nil)
	req.Header.Set("X-User-Roles", "USER")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDisconnectUnknownStation(t *testing.T) {
	srv, _ := testServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/stations/nope/disconnect", nil)
	req.Header.Set("X-User-Roles", "ADMIN, USER")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDisconnectIdleStation(t *testing.T) {
	srv, _ := testServer(t)

	// Disconnecting a station that was never connected is a no-op, not
	// an error.
	req := httptest.NewRequest(http.MethodPost, "/api/v1/stations/gs-2/disconnect", nil)
	req.Header.Set("X-User-Roles", "MISSION_OPERATOR")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStationStatusMergesLogTotals(t *testing.T) {
	srv, log := testServer(t)
	ctx := context.Background()

	// Two logged commands plus one live counter bump.
	for i := 0; i < 2; i++ {
		require.NoError(t, log.Append(ctx, bridgelog.TopicCosmosCommand,
			bridgelog.NewEntry("gs-1", bridgelog.DirectionAtoB, []byte{1, 2, 3}, "", "cosmos/command")))
	}
	srv.manager.Stats().BumpRx("gs-1", bridgelog.TopicCosmosCommand, 3)

	rec := get(t, srv.Router(), "/api/v1/stations/gs-1/status")
	require.Equal(t, http.StatusOK, rec.Code)

	status := decodeData[stationStatus](t, rec)
	cmd := status.Topics[bridgelog.TopicCosmosCommand]
	assert.Equal(t, int64(1), cmd.Live.RxMsgs)
	assert.Equal(t, int64(2), cmd.Logged.RxMsgs)
	assert.Equal(t, int64(3), cmd.Total.RxMsgs)
	assert.Equal(t, int64(9), cmd.Total.RxBytes)
}

func TestStationStatusUnknown(t *testing.T) {
	srv, _ := testServer(t)
	rec := get(t, srv.Router(), "/api/v1/stations/nope/status")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStationMessages(t *testing.T) {
	srv, log := testServer(t)
	ctx := context.Background()

	require.NoError(t, log.Append(ctx, bridgelog.TopicSatosDownlink,
		bridgelog.NewEntry("gs-1", bridgelog.DirectionBtoA, []byte{0xAA}, "aa", "dl")))

	rec := get(t, srv.Router(), "/api/v1/stations/gs-1/messages?topic=SatOS/downlink")
	require.Equal(t, http.StatusOK, rec.Code)
	entries := decodeData[[]bridgelog.Entry](t, rec)
	require.Len(t, entries, 1)
	assert.Equal(t, "aa", entries[0].DisplayText)

	// Bad topic is a client error, not a 500.
	rec = get(t, srv.Router(), "/api/v1/stations/gs-1/messages?topic=bogus")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStationHealthMessages(t *testing.T) {
	srv, log := testServer(t)
	ctx := context.Background()

	require.NoError(t, log.AppendHealth(ctx, bridgelog.BandSband,
		bridgelog.NewEntry("gs-1", "", []byte(`{"rssi":-80}`), `{"rssi":-80}`, "sband/health")))

	rec := get(t, srv.Router(), "/api/v1/stations/gs-1/health-messages?band=sband")
	require.Equal(t, http.StatusOK, rec.Code)
	entries := decodeData[[]bridgelog.Entry](t, rec)
	require.Len(t, entries, 1)

	rec = get(t, srv.Router(), "/api/v1/stations/gs-1/health-messages?band=lband")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatsEndpoint(t *testing.T) {
	srv, _ := testServer(t)
	srv.manager.Stats().BumpTx("gs-2", bridgelog.TopicSatosUplink, 64)

	rec := get(t, srv.Router(), "/api/v1/stats")
	require.Equal(t, http.StatusOK, rec.Code)

	all := decodeData[map[string]map[string]bridgelog.Counters](t, rec)
	assert.Equal(t, int64(1), all["gs-2"][bridgelog.TopicSatosUplink].TxMsgs)
}
