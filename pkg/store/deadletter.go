package store

import (
	"context"
	"time"
)

// DecoderNotFound records packets for which no schema is registered.
type DecoderNotFound struct {
	ID         int64     `gorm:"primaryKey"`
	PacketName string    `gorm:"column:packet_name;index"`
	HexPayload string    `gorm:"column:hex_payload"`
	CreatedAt  time.Time `gorm:"column:created_at"`
}

// TableName keeps the fixed table name the operators query.
func (DecoderNotFound) TableName() string { return "DECODER_NOT_FOUND" }

// DecoderFailed records packets whose decode errored, with the reason.
type DecoderFailed struct {
	ID         int64     `gorm:"primaryKey"`
	PacketName string    `gorm:"column:packet_name;index"`
	HexPayload string    `gorm:"column:hex_payload"`
	Error      string    `gorm:"column:error"`
	CreatedAt  time.Time `gorm:"column:created_at"`
}

func (DecoderFailed) TableName() string { return "DECODER_FAILED" }

// InsertNotFound persists a schema-miss dead letter.
func (s *Store) InsertNotFound(ctx context.Context, packet, hexPayload string) error {
	return s.db.WithContext(ctx).Create(&DecoderNotFound{
		PacketName: packet,
		HexPayload: hexPayload,
	}).Error
}

// InsertFailed persists a decode-failure dead letter.
func (s *Store) InsertFailed(ctx context.Context, packet, hexPayload, reason string) error {
	return s.db.WithContext(ctx).Create(&DecoderFailed{
		PacketName: packet,
		HexPayload: hexPayload,
		Error:      reason,
	}).Error
}
