// Package alerts evaluates decoded telemetry against configured limits and
// drives the alert lifecycle: detection, persistence, and mail notification.
package alerts

import (
	"encoding/json"
	"fmt"
	"os"
)

// Thresholds are the severity cut-offs on the percent-of-range scale.
type Thresholds struct {
	YellowPercent float64 `json:"yellow_percent"`
	AmberPercent  float64 `json:"amber_percent"`
	RedPercent    float64 `json:"red_percent"`
}

// DefaultThresholds returns the standard 80/90/100 severity bands.
func DefaultThresholds() Thresholds {
	return Thresholds{YellowPercent: 80, AmberPercent: 90, RedPercent: 100}
}

// MetricLimits bounds one metric. A nil bound is unchecked.
type MetricLimits struct {
	Min *float64 `json:"min"`
	Max *float64 `json:"max"`
}

// PacketRule is the limit set for the packets reporting on one queue id.
// A local Thresholds overrides the global one.
type PacketRule struct {
	QueueID    int                     `json:"queue_id"`
	PacketName string                  `json:"packet_name"`
	Thresholds *Thresholds             `json:"thresholds,omitempty"`
	Metrics    map[string]MetricLimits `json:"metrics"`
}

// Config is the alert rule file: global thresholds, the submodule id to
// name index, and the per-queue packet rules.
type Config struct {
	Thresholds Thresholds        `json:"thresholds"`
	Submodules map[string]string `json:"submodules"`
	Packets    []PacketRule      `json:"packets"`
}

// LoadConfig reads and parses the alert rule file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read alert config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse alert config: %w", err)
	}

	if cfg.Thresholds == (Thresholds{}) {
		cfg.Thresholds = DefaultThresholds()
	}
	return &cfg, nil
}

// queueIndex maps queue id to its rule.
func (c *Config) queueIndex() map[int]*PacketRule {
	index := make(map[int]*PacketRule, len(c.Packets))
	for i := range c.Packets {
		index[c.Packets[i].QueueID] = &c.Packets[i]
	}
	return index
}

// submoduleName resolves a submodule id to its configured name, falling
// back to a synthetic label.
func (c *Config) submoduleName(id string) string {
	if name, ok := c.Submodules[id]; ok {
		return name
	}
	return "Submodule_" + id
}
