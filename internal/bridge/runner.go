package bridge

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/netrasat/groundcore/internal/logger"
	"github.com/netrasat/groundcore/pkg/bridgelog"
	"github.com/netrasat/groundcore/pkg/config"
	"github.com/netrasat/groundcore/pkg/frame"
	"github.com/netrasat/groundcore/pkg/metrics"
)

const connectTimeout = 10 * time.Second

// Runner bridges one station: side A is the mission-control broker, side B
// the station broker. Commands flow A→B encrypted; telemetry flows B→A
// decrypted.
type Runner struct {
	station config.StationConfig
	log     *bridgelog.Store
	stats   *Stats
	metrics *metrics.BridgeMetrics

	mu         sync.Mutex
	clientA    mqtt.Client
	clientB    mqtt.Client
	aConnected bool
	bConnected bool
	running    bool
}

// NewRunner returns a stopped runner for one station.
func NewRunner(st config.StationConfig, log *bridgelog.Store, stats *Stats, bm *metrics.BridgeMetrics) *Runner {
	return &Runner{station: st, log: log, stats: stats, metrics: bm}
}

// Connect starts both MQTT clients. Calling Connect on a running runner is
// a no-op.
func (r *Runner) Connect() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return nil
	}

	r.clientA = mqtt.NewClient(r.optionsA())
	r.clientB = mqtt.NewClient(r.optionsB())

	if err := waitConnect(r.clientA.Connect(), "broker A"); err != nil {
		return err
	}
	if err := waitConnect(r.clientB.Connect(), "broker B"); err != nil {
		r.clientA.Disconnect(250)
		return err
	}

	r.running = true
	logger.Info("bridge connected", logger.Station(r.station.ID))
	return nil
}

// Disconnect stops both clients.
func (r *Runner) Disconnect() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return
	}
	r.clientA.Disconnect(250)
	r.clientB.Disconnect(250)
	r.running = false
	r.aConnected = false
	r.bConnected = false
	r.metrics.SetConnected(r.station.ID, "a", false)
	r.metrics.SetConnected(r.station.ID, "b", false)
	logger.Info("bridge disconnected", logger.Station(r.station.ID))
}

// Running reports whether Connect has succeeded and Disconnect has not been
// called since.
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Connected reports the live state of both broker connections.
func (r *Runner) Connected() (aOK, bOK bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.aConnected, r.bConnected
}

func (r *Runner) optionsA() *mqtt.ClientOptions {
	a := r.station.BrokerA
	opts := mqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://%s:%d", a.Host, a.Port)).
		SetClientID("groundcore-bridge-a-" + r.station.ID).
		SetAutoReconnect(true)

	opts.OnConnect = func(c mqtt.Client) {
		r.setConnected("a", true)
		c.Subscribe(bridgelog.TopicCosmosCommand, 0, r.onCommand)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		r.setConnected("a", false)
		logger.Warn("broker A connection lost",
			logger.Station(r.station.ID), logger.Err(err))
	}
	return opts
}

func (r *Runner) optionsB() *mqtt.ClientOptions {
	b := r.station.BrokerB
	scheme := "tcp"
	if b.TLS {
		scheme = "ssl"
	}
	opts := mqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("%s://%s:%d", scheme, b.Host, b.Port)).
		SetClientID("groundcore-bridge-b-" + r.station.ID).
		SetUsername(b.Username).
		SetPassword(b.Password).
		SetAutoReconnect(true)

	if b.TLS {
		opts.SetTLSConfig(&tls.Config{InsecureSkipVerify: b.InsecureSkipVerify})
	}

	opts.OnConnect = func(c mqtt.Client) {
		r.setConnected("b", true)
		c.Subscribe(r.station.TopicDownlink, 0, r.onDownlink)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		r.setConnected("b", false)
		logger.Warn("broker B connection lost",
			logger.Station(r.station.ID), logger.Err(err))
	}
	return opts
}

// waitConnect resolves a connect token. A timed-out wait is a failure in
// its own right: the token carries no Error() until it completes.
func waitConnect(token mqtt.Token, what string) error {
	if !token.WaitTimeout(connectTimeout) {
		return fmt.Errorf("connect %s: no response after %s", what, connectTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("connect %s: %w", what, err)
	}
	return nil
}

func (r *Runner) setConnected(side string, ok bool) {
	r.mu.Lock()
	if side == "a" {
		r.aConnected = ok
	} else {
		r.bConnected = ok
	}
	r.mu.Unlock()
	r.metrics.SetConnected(r.station.ID, side, ok)
}

// onCommand relays one command from A to B: encrypt, wrap, publish.
func (r *Runner) onCommand(_ mqtt.Client, msg mqtt.Message) {
	raw := msg.Payload()
	ctx := context.Background()

	r.stats.BumpRx(r.station.ID, bridgelog.TopicCosmosCommand, len(raw))
	r.metrics.RecordMessage(r.station.ID, bridgelog.TopicCosmosCommand, bridgelog.DirectionAtoB, len(raw))
	r.appendLog(ctx, bridgelog.TopicCosmosCommand,
		bridgelog.NewEntry(r.station.ID, bridgelog.DirectionAtoB, raw, displayHex(raw), msg.Topic()))

	out, err := wrapUplink(raw)
	if err != nil {
		logger.Warn("uplink encrypt failed",
			logger.Station(r.station.ID), logger.Err(err))
		r.metrics.RecordDrop(r.station.ID, bridgelog.TopicSatosUplink)
		return
	}

	r.mu.Lock()
	clientB := r.clientB
	r.mu.Unlock()
	clientB.Publish(r.station.TopicUplink, 0, false, out)

	r.stats.BumpTx(r.station.ID, bridgelog.TopicSatosUplink, len(out))
	r.metrics.RecordMessage(r.station.ID, bridgelog.TopicSatosUplink, bridgelog.DirectionAtoB, len(out))
	r.appendLog(ctx, bridgelog.TopicSatosUplink,
		bridgelog.NewEntry(r.station.ID, bridgelog.DirectionAtoB, out, displayText(out), r.station.TopicUplink))
}

// onDownlink relays one frame from B to A: unwrap, decrypt, publish. A
// malformed or undecryptable frame is logged inbound but never forwarded.
func (r *Runner) onDownlink(_ mqtt.Client, msg mqtt.Message) {
	payload := msg.Payload()
	ctx := context.Background()

	r.stats.BumpRx(r.station.ID, bridgelog.TopicSatosDownlink, len(payload))
	r.metrics.RecordMessage(r.station.ID, bridgelog.TopicSatosDownlink, bridgelog.DirectionBtoA, len(payload))
	r.appendLog(ctx, bridgelog.TopicSatosDownlink,
		bridgelog.NewEntry(r.station.ID, bridgelog.DirectionBtoA, payload, displayText(payload), msg.Topic()))

	raw, err := unwrapDownlink(payload)
	if err != nil {
		logger.Warn("downlink decrypt failed",
			logger.Station(r.station.ID), logger.Err(err))
		r.metrics.RecordDrop(r.station.ID, bridgelog.TopicSatosDownlink)
		return
	}

	r.mu.Lock()
	clientA := r.clientA
	r.mu.Unlock()
	clientA.Publish(bridgelog.TopicCosmosTelemetry, 0, false, raw)

	r.stats.BumpTx(r.station.ID, bridgelog.TopicCosmosTelemetry, len(raw))
	r.metrics.RecordMessage(r.station.ID, bridgelog.TopicCosmosTelemetry, bridgelog.DirectionBtoA, len(raw))
	r.appendLog(ctx, bridgelog.TopicCosmosTelemetry,
		bridgelog.NewEntry(r.station.ID, bridgelog.DirectionBtoA, raw, displayHex(raw), bridgelog.TopicCosmosTelemetry))
}

func (r *Runner) appendLog(ctx context.Context, topic string, e bridgelog.Entry) {
	if err := r.log.Append(ctx, topic, e); err != nil {
		logger.Error("bridge log append failed",
			logger.Station(r.station.ID), logger.Topic(topic), logger.Err(err))
	}
}

// uplinkMessage is the JSON envelope carried on the station uplink topic.
type uplinkMessage struct {
	Message string `json:"message"`
}

// wrapUplink encrypts a raw command frame and wraps it base64 in the uplink
// JSON envelope.
func wrapUplink(raw []byte) ([]byte, error) {
	enc, err := frame.EncryptTC(raw)
	if err != nil {
		return nil, err
	}
	return json.Marshal(uplinkMessage{Message: base64.StdEncoding.EncodeToString(enc)})
}

// unwrapDownlink parses the downlink JSON envelope and decrypts the frame.
func unwrapDownlink(payload []byte) ([]byte, error) {
	var m uplinkMessage
	if err := json.Unmarshal(payload, &m); err != nil {
		return nil, fmt.Errorf("parse downlink envelope: %w", err)
	}
	enc, err := base64.StdEncoding.DecodeString(m.Message)
	if err != nil {
		return nil, fmt.Errorf("decode downlink frame: %w", err)
	}
	return frame.DecryptTM(enc)
}

// displayHex renders a payload for the message log, truncated past 512
// bytes.
func displayHex(b []byte) string {
	h := hex.EncodeToString(b)
	if len(h) > 1024 {
		return fmt.Sprintf("%s...(%d bytes)", h[:1024], len(b))
	}
	return h
}

// displayText renders a textual payload, truncated past 2048 characters.
func displayText(b []byte) string {
	s := string(b)
	if len(s) > 2048 {
		return s[:2048] + "..."
	}
	return s
}
