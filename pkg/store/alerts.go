package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Alert statuses form a small lattice. An alert is born identified, becomes
// notified once mail goes out, can be acknowledged by an operator, and ends
// resolved or dismissed.
const (
	StatusIdentified   = "alert_identified"
	StatusNotified     = "alert_notified"
	StatusAcknowledged = "acknowledged"
	StatusResolved     = "resolved"
	StatusDismissed    = "dismissed"
)

var statusTransitions = map[string][]string{
	StatusIdentified:   {StatusNotified},
	StatusNotified:     {StatusAcknowledged},
	StatusAcknowledged: {StatusResolved, StatusDismissed},
}

// ValidTransition reports whether an alert may move from one status to
// another.
func ValidTransition(from, to string) bool {
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Alert is one out-of-range (or near-range) metric observation.
type Alert struct {
	ID int64 `gorm:"primaryKey" json:"db_id"`

	// PacketName is the configured packet the rule matched; SourcePacket is
	// the raw stream packet the rows came from.
	PacketName   string `gorm:"column:packet_name;index" json:"packet_name"`
	SourcePacket string `gorm:"column:source_packet" json:"source_packet"`
	SourceTime   string `gorm:"column:source_time" json:"source_time"`

	Submodule   string `gorm:"column:submodule" json:"submodule"`
	SubmoduleID string `gorm:"column:submodule_id" json:"submodule_id"`
	QueueID     int    `gorm:"column:queue_id" json:"queue_id"`
	MetricName  string `gorm:"column:metric_name" json:"metric_name"`

	Value float64 `gorm:"column:value" json:"value"`
	Min   float64 `gorm:"column:min" json:"min"`
	Max   float64 `gorm:"column:max" json:"max"`

	// Percent is the closeness-to-limit measure; 100 means out of bounds.
	Percent  float64 `gorm:"column:percent" json:"percent"`
	Severity string  `gorm:"column:severity;index" json:"severity"`
	Reason   string  `gorm:"column:reason" json:"reason"`
	Status   string  `gorm:"column:status;index" json:"status"`

	// EngineTime is stamped by the alert worker when the row is inserted.
	EngineTime time.Time `gorm:"column:engine_time" json:"engine_time"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Alert) TableName() string { return "alerts" }

// InsertAlert stores a freshly detected alert and returns it with its id.
func (s *Store) InsertAlert(ctx context.Context, a *Alert) error {
	if a.Status == "" {
		a.Status = StatusIdentified
	}
	if a.EngineTime.IsZero() {
		a.EngineTime = time.Now().UTC()
	}
	return s.db.WithContext(ctx).Create(a).Error
}

// UpdateAlertStatus moves an alert along the lattice. Invalid transitions
// and unknown ids are rejected.
func (s *Store) UpdateAlertStatus(ctx context.Context, id int64, to string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var a Alert
		if err := tx.First(&a, id).Error; err != nil {
			return fmt.Errorf("alert %d: %w", id, err)
		}
		if !ValidTransition(a.Status, to) {
			return fmt.Errorf("alert %d: %w: %s -> %s", id, ErrInvalidTransition, a.Status, to)
		}
		return tx.Model(&a).Update("status", to).Error
	})
}

// GetAlert loads one alert by id.
func (s *Store) GetAlert(ctx context.Context, id int64) (*Alert, error) {
	var a Alert
	if err := s.db.WithContext(ctx).First(&a, id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}
