package bridgelog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// ErrUnknownTopic indicates a logical topic outside the four bridge legs.
var ErrUnknownTopic = errors.New("bridgelog: unknown logical topic")

// ErrUnknownBand indicates a health band other than sband/xband.
var ErrUnknownBand = errors.New("bridgelog: unknown band")

// Config contains the bridge log database settings.
type Config struct {
	// Path is the SQLite database file.
	Path string `mapstructure:"path" validate:"required"`
}

// Store is the SQLite-backed bridge message log.
type Store struct {
	db *gorm.DB
}

// Open creates or opens the log database and migrates all tables.
func Open(cfg Config) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	// WAL keeps the API readable while runners append.
	dsn := cfg.Path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open bridge log: %w", err)
	}

	if err := db.AutoMigrate(
		&cosmosCommandLog{}, &cosmosTelemetryLog{},
		&satosUplinkLog{}, &satosDownlinkLog{},
		&healthSbandLog{}, &healthXbandLog{},
	); err != nil {
		return nil, fmt.Errorf("migrate bridge log: %w", err)
	}

	return &Store{db: db}, nil
}

// OpenWithDB wraps an existing gorm connection. Used by tests.
func OpenWithDB(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(
		&cosmosCommandLog{}, &cosmosTelemetryLog{},
		&satosUplinkLog{}, &satosDownlinkLog{},
		&healthSbandLog{}, &healthXbandLog{},
	); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func topicModel(topic string) (any, error) {
	switch topic {
	case TopicCosmosCommand:
		return &cosmosCommandLog{}, nil
	case TopicCosmosTelemetry:
		return &cosmosTelemetryLog{}, nil
	case TopicSatosUplink:
		return &satosUplinkLog{}, nil
	case TopicSatosDownlink:
		return &satosDownlinkLog{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
	}
}

// Append logs one message on a logical topic.
func (s *Store) Append(ctx context.Context, topic string, e Entry) error {
	switch topic {
	case TopicCosmosCommand:
		return s.db.WithContext(ctx).Create(&cosmosCommandLog{
			TsUTC: e.TsUTC, Direction: e.Direction, Bytes: e.Bytes,
			RawBlob: e.RawBlob, DisplayText: e.DisplayText, MetaJSON: e.MetaJSON,
			StationID: e.StationID, MQTTTopic: e.MQTTTopic,
		}).Error
	case TopicCosmosTelemetry:
		return s.db.WithContext(ctx).Create(&cosmosTelemetryLog{
			TsUTC: e.TsUTC, Direction: e.Direction, Bytes: e.Bytes,
			RawBlob: e.RawBlob, DisplayText: e.DisplayText, MetaJSON: e.MetaJSON,
			StationID: e.StationID, MQTTTopic: e.MQTTTopic,
		}).Error
	case TopicSatosUplink:
		return s.db.WithContext(ctx).Create(&satosUplinkLog{
			TsUTC: e.TsUTC, Direction: e.Direction, Bytes: e.Bytes,
			RawBlob: e.RawBlob, DisplayText: e.DisplayText, MetaJSON: e.MetaJSON,
			StationID: e.StationID, MQTTTopic: e.MQTTTopic,
		}).Error
	case TopicSatosDownlink:
		return s.db.WithContext(ctx).Create(&satosDownlinkLog{
			TsUTC: e.TsUTC, Direction: e.Direction, Bytes: e.Bytes,
			RawBlob: e.RawBlob, DisplayText: e.DisplayText, MetaJSON: e.MetaJSON,
			StationID: e.StationID, MQTTTopic: e.MQTTTopic,
		}).Error
	default:
		return fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
	}
}

// AppendHealth logs one health capture for a band.
func (s *Store) AppendHealth(ctx context.Context, band string, e Entry) error {
	switch band {
	case BandSband:
		return s.db.WithContext(ctx).Create(&healthSbandLog{
			TsUTC: e.TsUTC, Bytes: e.Bytes, RawBlob: e.RawBlob,
			DisplayText: e.DisplayText, MetaJSON: e.MetaJSON,
			StationID: e.StationID, MQTTTopic: e.MQTTTopic,
		}).Error
	case BandXband:
		return s.db.WithContext(ctx).Create(&healthXbandLog{
			TsUTC: e.TsUTC, Bytes: e.Bytes, RawBlob: e.RawBlob,
			DisplayText: e.DisplayText, MetaJSON: e.MetaJSON,
			StationID: e.StationID, MQTTTopic: e.MQTTTopic,
		}).Error
	default:
		return fmt.Errorf("%w: %s", ErrUnknownBand, band)
	}
}

// Recent returns the newest messages on a logical topic for a station,
// newest first.
func (s *Store) Recent(ctx context.Context, station, topic string, limit, offset int) ([]Entry, error) {
	model, err := topicModel(topic)
	if err != nil {
		return nil, err
	}

	rows, err := s.query(ctx, model, station, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", topic, err)
	}
	return rows, nil
}

// RecentHealth returns the newest health captures for a station and band.
func (s *Store) RecentHealth(ctx context.Context, station, band string, limit, offset int) ([]Entry, error) {
	var model any
	switch band {
	case BandSband:
		model = &healthSbandLog{}
	case BandXband:
		model = &healthXbandLog{}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBand, band)
	}

	rows, err := s.query(ctx, model, station, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query %s health: %w", band, err)
	}
	return rows, nil
}

func (s *Store) query(ctx context.Context, model any, station string, limit, offset int) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}

	var out []Entry
	err := s.db.WithContext(ctx).Model(model).
		Where("station_id = ?", station).
		Order("id DESC").
		Offset(offset).Limit(limit).
		Find(&out).Error
	return out, err
}
