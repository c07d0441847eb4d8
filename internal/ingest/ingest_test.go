package ingest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netrasat/groundcore/pkg/config"
)

type recordedPublish struct {
	Exchange string
	Key      string
	Value    any
}

type recordingPublisher struct {
	mu        sync.Mutex
	published []recordedPublish
}

func (p *recordingPublisher) Publish(_ context.Context, exchange, key string, v any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, recordedPublish{exchange, key, v})
	return nil
}

func (p *recordingPublisher) all() []recordedPublish {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]recordedPublish(nil), p.published...)
}

func TestAddPacketsCommand(t *testing.T) {
	cmd, err := addPacketsCommand("DEFAULT", "secret", []string{"RAW__TLM__EMULATOR__HEALTH_OBC"})
	require.NoError(t, err)

	assert.Equal(t, "message", cmd.Command)
	assert.Equal(t, streamingChannel, cmd.Identifier)

	var data map[string]any
	require.NoError(t, json.Unmarshal([]byte(cmd.Data), &data))
	assert.Equal(t, "add", data["action"])
	assert.Equal(t, "DEFAULT", data["scope"])
	assert.Equal(t, []any{"RAW__TLM__EMULATOR__HEALTH_OBC"}, data["packets"])
	assert.Nil(t, data["start_time"])
}

func TestPacketName(t *testing.T) {
	name, ok := packetName(map[string]any{"__packet": "HEALTH_OBC"})
	assert.True(t, ok)
	assert.Equal(t, "HEALTH_OBC", name)

	_, ok = packetName(map[string]any{"buffer": "aGk="})
	assert.False(t, ok)

	_, ok = packetName(map[string]any{"__packet": ""})
	assert.False(t, ok)
}

func TestServerFrameRecords(t *testing.T) {
	var frame serverFrame
	require.NoError(t, json.Unmarshal(
		[]byte(`{"identifier":"x","message":[{"__packet":"A"},{"__packet":"B"}]}`), &frame))

	recs, err := frame.records()
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "A", recs[0]["__packet"])

	bad := serverFrame{Message: json.RawMessage(`{"not":"a batch"}`)}
	_, err = bad.records()
	assert.Error(t, err)
}

func TestDialURLAddsAuth(t *testing.T) {
	ing := New(config.IngestConfig{
		URL:      "ws://stream.local:2900/openc3-api/cable",
		Scope:    "DEFAULT",
		Password: "secret",
	}, nil, nil)

	u, err := ing.dialURL()
	require.NoError(t, err)
	assert.Contains(t, u, "scope=DEFAULT")
	assert.Contains(t, u, "authorization=secret")
}

// fakeStreamServer performs the channel handshake and then replays frames.
func fakeStreamServer(t *testing.T, frames []string, gotAdd *string) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		require.NoError(t, conn.WriteJSON(serverFrame{Type: frameWelcome}))

		var sub clientCommand
		require.NoError(t, conn.ReadJSON(&sub))
		require.Equal(t, "subscribe", sub.Command)
		require.NoError(t, conn.WriteJSON(serverFrame{Type: frameConfirm, Identifier: sub.Identifier}))

		var add clientCommand
		require.NoError(t, conn.ReadJSON(&add))
		*gotAdd = add.Data

		for _, f := range frames {
			require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(f)))
		}
	}))
}

func TestStreamOnceForwardsRecords(t *testing.T) {
	var gotAdd string
	srv := fakeStreamServer(t, []string{
		`{"type":"ping","message":123}`,
		`{"identifier":"x","message":[
			{"__packet":"RAW__TLM__EMULATOR__HEALTH_OBC","buffer":"aGk="},
			{"buffer":"bm8="},
			{"__packet":"RAW__TLM__EMULATOR__HEALTH_EPS","buffer":"eW8="}]}`,
	}, &gotAdd)
	defer srv.Close()

	ing := New(config.IngestConfig{
		URL:     "ws" + strings.TrimPrefix(srv.URL, "http"),
		Scope:   "DEFAULT",
		Packets: []string{"RAW__TLM__EMULATOR__HEALTH_OBC", "RAW__TLM__EMULATOR__HEALTH_EPS"},
	}, nil, nil)

	pub := &recordingPublisher{}
	err := ing.streamOnce(context.Background(), pub)
	require.Error(t, err, "stream ends when the server hangs up")

	published := pub.all()
	require.Len(t, published, 2, "record without packet name is dropped")
	assert.Equal(t, "telemetry.raw", published[0].Exchange)
	assert.Equal(t, "RAW__TLM__EMULATOR__HEALTH_OBC", published[0].Key)
	assert.Equal(t, "RAW__TLM__EMULATOR__HEALTH_EPS", published[1].Key)

	var add map[string]any
	require.NoError(t, json.Unmarshal([]byte(gotAdd), &add))
	assert.Len(t, add["packets"], 2)
}
