package bridge

import (
	"errors"
	"fmt"
	"sync"

	"github.com/netrasat/groundcore/pkg/bridgelog"
	"github.com/netrasat/groundcore/pkg/config"
	"github.com/netrasat/groundcore/pkg/metrics"
)

// ErrUnknownStation indicates a station id with no configuration.
var ErrUnknownStation = errors.New("bridge: unknown station")

// Manager owns one bridge runner and one health runner per configured
// station, created lazily on first connect.
type Manager struct {
	stations []config.StationConfig
	log      *bridgelog.Store
	stats    *Stats
	metrics  *metrics.BridgeMetrics

	mu      sync.Mutex
	runners map[string]*Runner
	health  map[string]*HealthRunner
}

// NewManager returns a manager for the configured stations.
func NewManager(stations []config.StationConfig, log *bridgelog.Store, bm *metrics.BridgeMetrics) *Manager {
	return &Manager{
		stations: stations,
		log:      log,
		stats:    NewStats(),
		metrics:  bm,
		runners:  make(map[string]*Runner),
		health:   make(map[string]*HealthRunner),
	}
}

// Stats exposes the live counters for status reporting.
func (m *Manager) Stats() *Stats {
	return m.stats
}

// Stations lists the configured stations.
func (m *Manager) Stations() []config.StationConfig {
	return m.stations
}

// Station resolves one station's configuration.
func (m *Manager) Station(id string) (*config.StationConfig, error) {
	for i := range m.stations {
		if m.stations[i].ID == id {
			return &m.stations[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownStation, id)
}

// Connect starts the bridge and the health capture for a station.
func (m *Manager) Connect(id string) error {
	st, err := m.Station(id)
	if err != nil {
		return err
	}

	m.mu.Lock()
	r, ok := m.runners[id]
	if !ok {
		r = NewRunner(*st, m.log, m.stats, m.metrics)
		m.runners[id] = r
	}
	m.mu.Unlock()

	if err := r.Connect(); err != nil {
		return err
	}
	return m.EnsureHealth(id)
}

// EnsureHealth starts only the health capture for a station. A running
// capture is left alone.
func (m *Manager) EnsureHealth(id string) error {
	st, err := m.Station(id)
	if err != nil {
		return err
	}

	m.mu.Lock()
	h, ok := m.health[id]
	if !ok {
		h = NewHealthRunner(*st, m.log)
		m.health[id] = h
	}
	m.mu.Unlock()

	return h.Start()
}

// Disconnect stops the bridge and the health capture for a station.
func (m *Manager) Disconnect(id string) error {
	if _, err := m.Station(id); err != nil {
		return err
	}

	m.mu.Lock()
	r := m.runners[id]
	h := m.health[id]
	m.mu.Unlock()

	if r != nil {
		r.Disconnect()
	}
	if h != nil {
		h.Stop()
	}
	return nil
}

// Status reports both broker connection states for a station. A station
// that was never connected reports false on both sides.
func (m *Manager) Status(id string) (aOK, bOK bool, err error) {
	if _, err := m.Station(id); err != nil {
		return false, false, err
	}

	m.mu.Lock()
	r := m.runners[id]
	m.mu.Unlock()

	if r == nil {
		return false, false, nil
	}
	aOK, bOK = r.Connected()
	return aOK, bOK, nil
}

// Shutdown disconnects every running station.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	runners := make([]*Runner, 0, len(m.runners))
	for _, r := range m.runners {
		runners = append(runners, r)
	}
	healths := make([]*HealthRunner, 0, len(m.health))
	for _, h := range m.health {
		healths = append(healths, h)
	}
	m.mu.Unlock()

	for _, r := range runners {
		r.Disconnect()
	}
	for _, h := range healths {
		h.Stop()
	}
}
