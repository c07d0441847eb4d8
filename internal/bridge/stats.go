// Package bridge relays frames between the mission-control broker (side A)
// and a ground station's broker (side B), encrypting uplinks and decrypting
// downlinks, with per-station message logs, live counters, and a health
// capture runner per station.
package bridge

import (
	"sync"

	"github.com/netrasat/groundcore/pkg/bridgelog"
)

type statKey struct {
	Station string
	Topic   string
}

// Stats holds the live per-(station, logical topic) counters. The zero
// value is not usable; use NewStats.
type Stats struct {
	mu       sync.Mutex
	counters map[statKey]bridgelog.Counters
}

// NewStats returns an empty counter set.
func NewStats() *Stats {
	return &Stats{counters: make(map[statKey]bridgelog.Counters)}
}

// BumpRx counts one received message on a logical topic.
func (s *Stats) BumpRx(station, topic string, bytes int) {
	s.bump(station, topic, bridgelog.Counters{RxMsgs: 1, RxBytes: int64(bytes)})
}

// BumpTx counts one transmitted message on a logical topic.
func (s *Stats) BumpTx(station, topic string, bytes int) {
	s.bump(station, topic, bridgelog.Counters{TxMsgs: 1, TxBytes: int64(bytes)})
}

func (s *Stats) bump(station, topic string, delta bridgelog.Counters) {
	if !isLogicalTopic(topic) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := statKey{station, topic}
	s.counters[key] = s.counters[key].Add(delta)
}

// Snapshot returns the counters of one station, materializing every logical
// topic so callers always see the full set.
func (s *Stats) Snapshot(station string) map[string]bridgelog.Counters {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]bridgelog.Counters, len(bridgelog.LogicalTopics))
	for _, topic := range bridgelog.LogicalTopics {
		out[topic] = s.counters[statKey{station, topic}]
	}
	return out
}

// SnapshotAll returns the counters of every station seen so far.
func (s *Stats) SnapshotAll() map[string]map[string]bridgelog.Counters {
	s.mu.Lock()
	stations := make(map[string]bool)
	for key := range s.counters {
		stations[key.Station] = true
	}
	s.mu.Unlock()

	out := make(map[string]map[string]bridgelog.Counters, len(stations))
	for station := range stations {
		out[station] = s.Snapshot(station)
	}
	return out
}

func isLogicalTopic(topic string) bool {
	for _, t := range bridgelog.LogicalTopics {
		if t == topic {
			return true
		}
	}
	return false
}
