// Package bus wraps the AMQP broker connection and the telemetry topology:
// raw packets fan out per packet name, decoded rows fan out to persistence
// and alerting, and dead letters land on fixed queues.
package bus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/netrasat/groundcore/internal/logger"
)

// Config holds the broker connection settings.
type Config struct {
	URL string `mapstructure:"url" validate:"required,uri"`

	// ConnectTimeout bounds the initial dial including retries.
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// Bus owns one AMQP connection shared by publishers and consumers. Channels
// are cheap; the connection is the scarce resource.
type Bus struct {
	cfg Config

	mu   sync.Mutex
	conn *amqp.Connection
}

// New returns an unconnected bus.
func New(cfg Config) *Bus {
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 2 * time.Minute
	}
	return &Bus{cfg: cfg}
}

// Connect dials the broker, retrying with exponential backoff until the
// context or the configured timeout expires.
func (b *Bus) Connect(ctx context.Context) error {
	policy := backoff.WithContext(backoff.NewExponentialBackOff(
		backoff.WithMaxElapsedTime(b.cfg.ConnectTimeout),
	), ctx)

	attempt := 0
	conn, err := backoff.RetryWithData(func() (*amqp.Connection, error) {
		attempt++
		c, err := amqp.Dial(b.cfg.URL)
		if err != nil {
			logger.Warn("broker dial failed, retrying",
				logger.Broker(b.cfg.URL), logger.Attempt(attempt), logger.Err(err))
			return nil, err
		}
		return c, nil
	}, policy)
	if err != nil {
		return fmt.Errorf("connect to broker: %w", err)
	}

	b.mu.Lock()
	b.conn = conn
	b.mu.Unlock()

	logger.Info("connected to broker", logger.Broker(b.cfg.URL))
	return nil
}

// Channel opens a fresh channel on the shared connection.
func (b *Bus) Channel() (*amqp.Channel, error) {
	b.mu.Lock()
	conn := b.conn
	b.mu.Unlock()

	if conn == nil || conn.IsClosed() {
		return nil, ErrNotConnected
	}
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	return ch, nil
}

// Close shuts the connection down. Consumers unblock with a closed-delivery
// channel.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.conn == nil || b.conn.IsClosed() {
		return nil
	}
	return b.conn.Close()
}
