// Package bridgelog persists the ground-station bridge traffic on SQLite:
// one table per logical topic plus the per-band health capture tables.
package bridgelog

import "time"

// Logical topics. These name the four legs of the bridge, not raw MQTT
// topic strings.
const (
	TopicCosmosCommand   = "cosmos/command"
	TopicCosmosTelemetry = "cosmos/telemetry"
	TopicSatosUplink     = "SatOS/uplink"
	TopicSatosDownlink   = "SatOS/downlink"
)

// LogicalTopics lists every logical topic in reporting order.
var LogicalTopics = []string{
	TopicCosmosCommand,
	TopicCosmosTelemetry,
	TopicSatosUplink,
	TopicSatosDownlink,
}

// Transfer directions as recorded in the logs.
const (
	DirectionAtoB = "AtoB"
	DirectionBtoA = "BtoA"
)

// Health bands.
const (
	BandSband = "sband"
	BandXband = "xband"
)

// Entry is one logged bridge message, table-agnostic.
type Entry struct {
	ID          int64  `json:"id"`
	TsUTC       string `json:"ts_utc"`
	Direction   string `json:"direction"`
	Bytes       int    `json:"bytes"`
	RawBlob     []byte `json:"-"`
	DisplayText string `json:"display_text"`
	MetaJSON    string `json:"-"`
	StationID   string `json:"-"`
	MQTTTopic   string `json:"mqtt_topic,omitempty"`
}

// NewEntry stamps an entry with the current UTC time.
func NewEntry(station, direction string, payload []byte, display, topic string) Entry {
	return Entry{
		TsUTC:       time.Now().UTC().Format(time.RFC3339),
		Direction:   direction,
		Bytes:       len(payload),
		RawBlob:     payload,
		DisplayText: display,
		StationID:   station,
		MQTTTopic:   topic,
	}
}

type cosmosCommandLog struct {
	ID          int64  `gorm:"primaryKey;index:ix_cmd_station_id,priority:2"`
	TsUTC       string `gorm:"column:ts_utc;index"`
	Direction   string `gorm:"column:direction"`
	Bytes       int    `gorm:"column:bytes"`
	RawBlob     []byte `gorm:"column:raw_blob"`
	DisplayText string `gorm:"column:display_text"`
	MetaJSON    string `gorm:"column:meta_json"`
	StationID   string `gorm:"column:station_id;not null;default:default;index:ix_cmd_station_id,priority:1"`
	MQTTTopic   string `gorm:"column:mqtt_topic"`
}

func (cosmosCommandLog) TableName() string { return "COSMOS_COMMAND_LOG" }

type cosmosTelemetryLog struct {
	ID          int64  `gorm:"primaryKey;index:ix_tlm_station_id,priority:2"`
	TsUTC       string `gorm:"column:ts_utc;index"`
	Direction   string `gorm:"column:direction"`
	Bytes       int    `gorm:"column:bytes"`
	RawBlob     []byte `gorm:"column:raw_blob"`
	DisplayText string `gorm:"column:display_text"`
	MetaJSON    string `gorm:"column:meta_json"`
	StationID   string `gorm:"column:station_id;not null;default:default;index:ix_tlm_station_id,priority:1"`
	MQTTTopic   string `gorm:"column:mqtt_topic"`
}

func (cosmosTelemetryLog) TableName() string { return "COSMOS_TELEMETRY_LOG" }

type satosUplinkLog struct {
	ID          int64  `gorm:"primaryKey;index:ix_up_station_id,priority:2"`
	TsUTC       string `gorm:"column:ts_utc;index"`
	Direction   string `gorm:"column:direction"`
	Bytes       int    `gorm:"column:bytes"`
	RawBlob     []byte `gorm:"column:raw_blob"`
	DisplayText string `gorm:"column:display_text"`
	MetaJSON    string `gorm:"column:meta_json"`
	StationID   string `gorm:"column:station_id;not null;default:default;index:ix_up_station_id,priority:1"`
	MQTTTopic   string `gorm:"column:mqtt_topic"`
}

func (satosUplinkLog) TableName() string { return "SATOS_UPLINK_LOG" }

type satosDownlinkLog struct {
	ID          int64  `gorm:"primaryKey;index:ix_dn_station_id,priority:2"`
	TsUTC       string `gorm:"column:ts_utc;index"`
	Direction   string `gorm:"column:direction"`
	Bytes       int    `gorm:"column:bytes"`
	RawBlob     []byte `gorm:"column:raw_blob"`
	DisplayText string `gorm:"column:display_text"`
	MetaJSON    string `gorm:"column:meta_json"`
	StationID   string `gorm:"column:station_id;not null;default:default;index:ix_dn_station_id,priority:1"`
	MQTTTopic   string `gorm:"column:mqtt_topic"`
}

func (satosDownlinkLog) TableName() string { return "SATOS_DOWNLINK_LOG" }

type healthSbandLog struct {
	ID          int64  `gorm:"primaryKey;index:ix_hs_station_id,priority:2"`
	TsUTC       string `gorm:"column:ts_utc;index"`
	Bytes       int    `gorm:"column:bytes"`
	RawBlob     []byte `gorm:"column:raw_blob"`
	DisplayText string `gorm:"column:display_text"`
	MetaJSON    string `gorm:"column:meta_json"`
	StationID   string `gorm:"column:station_id;not null;default:default;index:ix_hs_station_id,priority:1"`
	MQTTTopic   string `gorm:"column:mqtt_topic"`
}

func (healthSbandLog) TableName() string { return "HEALTH_SBAND_LOG" }

type healthXbandLog struct {
	ID          int64  `gorm:"primaryKey;index:ix_hx_station_id,priority:2"`
	TsUTC       string `gorm:"column:ts_utc;index"`
	Bytes       int    `gorm:"column:bytes"`
	RawBlob     []byte `gorm:"column:raw_blob"`
	DisplayText string `gorm:"column:display_text"`
	MetaJSON    string `gorm:"column:meta_json"`
	StationID   string `gorm:"column:station_id;not null;default:default;index:ix_hx_station_id,priority:1"`
	MQTTTopic   string `gorm:"column:mqtt_topic"`
}

func (healthXbandLog) TableName() string { return "HEALTH_XBAND_LOG" }
