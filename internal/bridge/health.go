package bridge

import (
	"context"
	"fmt"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/netrasat/groundcore/internal/logger"
	"github.com/netrasat/groundcore/pkg/bridgelog"
	"github.com/netrasat/groundcore/pkg/config"
)

// HealthRunner subscribes to a station's band health topics and persists
// every capture with the station id.
type HealthRunner struct {
	station config.StationConfig
	log     *bridgelog.Store

	mu      sync.Mutex
	client  mqtt.Client
	running bool
}

// NewHealthRunner returns a stopped health runner for one station.
func NewHealthRunner(st config.StationConfig, log *bridgelog.Store) *HealthRunner {
	return &HealthRunner{station: st, log: log}
}

// Start connects to the health broker. Starting a running runner is a
// no-op.
func (h *HealthRunner) Start() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		return nil
	}

	cfg := h.station.Health
	opts := mqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.Host, cfg.Port)).
		SetClientID("groundcore-health-" + h.station.ID).
		SetAutoReconnect(true)
	opts.OnConnect = func(c mqtt.Client) {
		c.Subscribe(cfg.SbandTopic, 0, h.onMessage)
		c.Subscribe(cfg.XbandTopic, 0, h.onMessage)
	}

	h.client = mqtt.NewClient(opts)
	if err := waitConnect(h.client.Connect(), "health broker"); err != nil {
		return err
	}

	h.running = true
	logger.Info("health capture started",
		logger.Station(h.station.ID), logger.Broker(cfg.Host))
	return nil
}

// Stop disconnects from the health broker.
func (h *HealthRunner) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.running {
		return
	}
	h.client.Disconnect(250)
	h.running = false
	logger.Info("health capture stopped", logger.Station(h.station.ID))
}

// Running reports whether the runner is started.
func (h *HealthRunner) Running() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.running
}

func (h *HealthRunner) onMessage(_ mqtt.Client, msg mqtt.Message) {
	band := bridgelog.BandSband
	if msg.Topic() == h.station.Health.XbandTopic {
		band = bridgelog.BandXband
	}

	payload := msg.Payload()
	entry := bridgelog.NewEntry(h.station.ID, "", payload, displayText(payload), msg.Topic())
	if err := h.log.AppendHealth(context.Background(), band, entry); err != nil {
		logger.Error("health log append failed",
			logger.Station(h.station.ID), logger.Band(band), logger.Err(err))
	}
}
